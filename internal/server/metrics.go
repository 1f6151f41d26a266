package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/edaloom-cli/internal/session"
)

type metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	loadsTotal      *prometheus.CounterVec
	shiftWarnings   prometheus.Counter
}

func newMetrics(sessions *session.Manager) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edaloom",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edaloom",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "edaloom",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edaloom",
			Subsystem: "dataset",
			Name:      "loads_total",
			Help:      "Dataset loads by source and outcome.",
		}, []string{"source", "outcome"}),
		shiftWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edaloom",
			Subsystem: "dataset",
			Name:      "shift_warnings_total",
			Help:      "Loads that raised a column shift warning.",
		}),
	}
	// Cache totals cover live sessions only, so they can go down.
	cacheHits := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "edaloom",
		Subsystem: "session",
		Name:      "cache_hits",
		Help:      "Memoized results served across live sessions.",
	}, func() float64 {
		h, _ := sessions.CacheStats()
		return float64(h)
	})
	cacheMisses := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "edaloom",
		Subsystem: "session",
		Name:      "cache_misses",
		Help:      "Results computed across live sessions.",
	}, func() float64 {
		_, mi := sessions.CacheStats()
		return float64(mi)
	})
	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "edaloom",
		Subsystem: "session",
		Name:      "active",
		Help:      "Live sessions.",
	}, func() float64 { return float64(sessions.Len()) })

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.loadsTotal,
		m.shiftWarnings,
		cacheHits,
		cacheMisses,
		active,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// middleware records per-route counters. The route label is chi's pattern so
// session IDs do not explode cardinality.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) recordLoad(source string, err error, warned bool) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.loadsTotal.WithLabelValues(source, outcome).Inc()
	if warned {
		m.shiftWarnings.Inc()
	}
}
