package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/hypothesis"
	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/stats"
)

// ErrNoDataset is returned by computations on a session with nothing loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Options tune the computations a session runs.
type Options struct {
	MaxVIFColumns int
	// PlotPoints bounds hypothesis plot samples; 0 disables sampling.
	PlotPoints int
	Seed       int64
	Logger     *slog.Logger
}

// DefaultOptions mirror the CLI defaults.
func DefaultOptions() Options {
	return Options{
		MaxVIFColumns: stats.MaxVIFColumns,
		PlotPoints:    hypothesis.DefaultPlotPoints,
		Seed:          hypothesis.DefaultSeed,
	}
}

// Session owns one loaded dataset and the results computed from it. All
// operations on a session run one at a time.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	lastUsed time.Time
	result   *dataset.Result
	cache    *Cache
	opt      Options
	log      *slog.Logger
	now      func() time.Time
}

func newSession(id string, opt Options, now func() time.Time) *Session {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := now()
	return &Session{ID: id, Created: t, lastUsed: t, cache: NewCache(), opt: opt, log: log.With("session", id), now: now}
}

// New returns a standalone session, used by the CLI.
func New(id string, opt Options) *Session {
	return newSession(id, opt, time.Now)
}

// Load parses r and makes it the session's dataset.
func (s *Session) Load(r io.Reader, opt dataset.Options) (*dataset.Result, error) {
	res, err := dataset.Load(r, opt)
	if err != nil {
		s.log.Warn("dataset load failed", "error", err)
		return nil, err
	}
	s.Replace(res)
	return res, nil
}

// Replace installs an already loaded dataset and drops everything cached for
// the previous one.
func (s *Session) Replace(res *dataset.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	if s.result != nil {
		n := s.cache.Invalidate(s.result.Table.Fingerprint())
		s.log.Debug("cache invalidated", "entries", n)
	}
	s.result = res
	attrs := []any{"name", res.Table.Name, "rows", res.Table.NumRows(), "columns", res.Table.NumCols(), "encoding", res.Encoding}
	if res.Warning != nil {
		s.log.Warn("dataset loaded with shift warning", append(attrs, "columns_shifted", res.Warning.Columns())...)
		return
	}
	s.log.Info("dataset loaded", attrs...)
}

// Result returns the current load result, or nil.
func (s *Session) Result() *dataset.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Table returns the current table, or nil.
func (s *Session) Table() *dataset.Table {
	if res := s.Result(); res != nil {
		return res.Table
	}
	return nil
}

// Cache exposes the memo cache.
func (s *Session) Cache() *Cache { return s.cache }

// LastUsed reports when the session last served a request.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// op is one memoizable computation over a table.
type op[T any] struct {
	name string
	args string
	fn   func(*dataset.Table) (T, error)
}

// memo runs o under the session lock against the current table.
func memo[T any](s *Session, o op[T]) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	if s.result == nil {
		var zero T
		return zero, ErrNoDataset
	}
	return cached(s, s.result.Table, o)
}

// cached returns o's result for t, computing and storing it on a miss.
// Errors are not cached. The caller holds s.mu.
func cached[T any](s *Session, t *dataset.Table, o op[T]) (T, error) {
	if v, ok := s.cache.Get(t.Fingerprint(), o.name, o.args); ok {
		return v.(T), nil
	}
	start := s.now()
	v, err := o.fn(t)
	if err != nil {
		var zero T
		return zero, err
	}
	s.cache.Put(t.Fingerprint(), o.name, o.args, v)
	s.log.Debug("computed", "op", o.name, "args", o.args, "elapsed", s.now().Sub(start))
	return v, nil
}

// Missing returns the missingness report.
func (s *Session) Missing() ([]stats.MissingEntry, error) {
	return memo(s, op[[]stats.MissingEntry]{name: "missing", fn: func(t *dataset.Table) ([]stats.MissingEntry, error) {
		return stats.MissingReport(t), nil
	}})
}

// Description bundles Describe output with its gaps.
type Description struct {
	Summaries []stats.Summary
	Gaps      []error
}

// Describe summarizes cols, or every numeric column when cols is empty.
func (s *Session) Describe(cols []string) (Description, error) {
	return memo(s, op[Description]{name: "describe", args: strings.Join(cols, "\x00"), fn: func(t *dataset.Table) (Description, error) {
		if len(cols) == 0 {
			cols = t.NumericColumns()
		}
		sums, gaps := stats.Describe(t, cols)
		return Description{Summaries: sums, Gaps: gaps}, nil
	}})
}

// Outliers returns IQR bounds for one column.
func (s *Session) Outliers(column string) (stats.Bounds, error) {
	return memo(s, op[stats.Bounds]{name: "outliers", args: column, fn: func(t *dataset.Table) (stats.Bounds, error) {
		return stats.OutlierBounds(t, column)
	}})
}

// Correlation returns the matrix over cols, or every numeric column when
// cols is empty. It is nil when fewer than two columns qualify.
func (s *Session) Correlation(cols []string) (*stats.CorrMatrix, error) {
	return memo(s, correlationOp(cols))
}

func correlationOp(cols []string) op[*stats.CorrMatrix] {
	return op[*stats.CorrMatrix]{name: "correlation", args: strings.Join(cols, "\x00"), fn: func(t *dataset.Table) (*stats.CorrMatrix, error) {
		if len(cols) == 0 {
			cols = t.NumericColumns()
		}
		return stats.CorrelationMatrix(t, cols)
	}}
}

// VIF scores the numeric columns, capped at Options.MaxVIFColumns.
func (s *Session) VIF() ([]stats.VIFScore, error) {
	return memo(s, s.vifOp())
}

func (s *Session) vifOp() op[[]stats.VIFScore] {
	limit := s.opt.MaxVIFColumns
	if limit <= 0 {
		limit = stats.MaxVIFColumns
	}
	return op[[]stats.VIFScore]{name: "vif", args: fmt.Sprint(limit), fn: func(t *dataset.Table) ([]stats.VIFScore, error) {
		cols := t.NumericColumns()
		if len(cols) > limit {
			cols = cols[:limit]
		}
		return stats.VIF(t, cols)
	}}
}

// Hypotheses runs the generator. An empty target is resolved with
// hypothesis.FindTarget.
func (s *Session) Hypotheses(target string) (hypothesis.Result, error) {
	return memo(s, s.hypothesesOp(target))
}

func (s *Session) hypothesesOp(target string) op[hypothesis.Result] {
	args := fmt.Sprintf("%s|%d|%d", target, s.opt.PlotPoints, s.opt.Seed)
	return op[hypothesis.Result]{name: "hypotheses", args: args, fn: func(t *dataset.Table) (hypothesis.Result, error) {
		num, cat := t.NumericColumns(), t.CategoricalColumns()
		if target == "" {
			target = hypothesis.FindTarget(t, num, cat)
		}
		res := hypothesis.Generate(t, hypothesis.Input{
			Numeric:       num,
			Categorical:   cat,
			Target:        target,
			MaxPlotPoints: s.opt.PlotPoints,
			Seed:          s.opt.Seed,
		})
		for _, g := range res.Gaps {
			s.log.Debug("hypothesis gap", "error", g)
		}
		return res, nil
	}}
}

// Target resolves the target column of the loaded dataset.
func (s *Session) Target() (string, error) {
	return memo(s, targetOp)
}

var targetOp = op[string]{name: "target", fn: func(t *dataset.Table) (string, error) {
	return hypothesis.FindTarget(t, t.NumericColumns(), t.CategoricalColumns()), nil
}}

// Report gathers the sections of a full report for the loaded dataset. Every
// section is computed against the same table in one critical section, so a
// concurrent Replace lands either before or after the whole report.
func (s *Session) Report() (report.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	res := s.result
	if res == nil {
		return report.Input{}, ErrNoDataset
	}
	t := res.Table
	corr, err := cached(s, t, correlationOp(nil))
	if err != nil {
		return report.Input{}, fmt.Errorf("correlation: %w", err)
	}
	scores, err := cached(s, t, s.vifOp())
	if err != nil {
		return report.Input{}, fmt.Errorf("vif: %w", err)
	}
	hyps, err := cached(s, t, s.hypothesesOp(""))
	if err != nil {
		return report.Input{}, fmt.Errorf("hypotheses: %w", err)
	}
	target, err := cached(s, t, targetOp)
	if err != nil {
		return report.Input{}, err
	}
	return report.Input{
		Table:       t,
		Numeric:     t.NumericColumns(),
		Categorical: t.CategoricalColumns(),
		Target:      target,
		Corr:        corr,
		VIF:         stats.VIFRecords(scores),
		Hypotheses:  hypothesis.ExportAll(hyps.Hypotheses),
		Warning:     res.Warning,
		Generated:   s.now(),
	}, nil
}
