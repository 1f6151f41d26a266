// Package server exposes analysis sessions over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/session"
)

// DefaultMaxUpload bounds uploaded dataset bodies.
const DefaultMaxUpload = 256 << 20

// Fetcher downloads and loads a remote dataset.
type Fetcher interface {
	FetchDataset(ctx context.Context, ref string, opt dataset.Options) (*dataset.Result, error)
}

// Options configure a Server.
type Options struct {
	Addr string
	// IdleTimeout expires unused sessions; 0 keeps them until deleted.
	IdleTimeout time.Duration
	Session     session.Options
	// Dataset holds defaults for uploads; query parameters override them.
	Dataset   dataset.Options
	MaxUpload int64
	// Fetcher serves the fetch endpoint; nil disables it.
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Server routes API requests to sessions.
type Server struct {
	opt      Options
	sessions *session.Manager
	metrics  *metrics
	router   chi.Router
	log      *slog.Logger
}

// New builds a server and its routes.
func New(opt Options) *Server {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.MaxUpload <= 0 {
		opt.MaxUpload = DefaultMaxUpload
	}
	if opt.Session.Logger == nil {
		opt.Session.Logger = opt.Logger
	}
	s := &Server{
		opt:      opt,
		sessions: session.NewManager(opt.Session),
		log:      opt.Logger,
	}
	s.metrics = newMetrics(s.sessions)
	s.router = s.routes()
	return s
}

// Sessions exposes the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionInfo)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/dataset", s.handleUpload)
			r.Post("/fetch", s.handleFetch)
			r.Get("/missing", s.handleMissing)
			r.Get("/describe", s.handleDescribe)
			r.Get("/outliers/{column}", s.handleOutliers)
			r.Get("/correlation", s.handleCorrelation)
			r.Get("/vif", s.handleVIF)
			r.Get("/hypotheses", s.handleHypotheses)
			r.Get("/report.md", s.handleReport("md"))
			r.Get("/report.html", s.handleReport("html"))
			r.Get("/report.pdf", s.handleReport("pdf"))
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Run serves until ctx is cancelled, sweeping idle sessions meanwhile.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.opt.IdleTimeout > 0 {
		go s.sweepLoop(ctx)
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.opt.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	interval := s.opt.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.Sweep(s.opt.IdleTimeout)
		}
	}
}
