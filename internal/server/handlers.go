package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/download"
	"github.com/KaramelBytes/edaloom-cli/internal/hypothesis"
	"github.com/KaramelBytes/edaloom-cli/internal/parser"
	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/session"
	"github.com/KaramelBytes/edaloom-cli/internal/stats"
)

// datasetInfo describes the dataset a session holds.
type datasetInfo struct {
	Name        string   `json:"name"`
	Rows        int      `json:"rows"`
	Columns     []string `json:"columns"`
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Delimiter   string   `json:"delimiter,omitempty"`
	Encoding    string   `json:"encoding,omitempty"`
	Fixed       bool     `json:"fixed"`
	SkippedRows int      `json:"skipped_rows"`
	WideRows    int      `json:"wide_rows"`
	Notes       []string `json:"notes,omitempty"`
	Warning     string   `json:"warning,omitempty"`
	Shifted     []string `json:"shifted_columns,omitempty"`
}

func newDatasetInfo(res *dataset.Result) *datasetInfo {
	if res == nil {
		return nil
	}
	t := res.Table
	info := &datasetInfo{
		Name:        t.Name,
		Rows:        t.NumRows(),
		Columns:     t.Columns(),
		Numeric:     t.NumericColumns(),
		Categorical: t.CategoricalColumns(),
		Encoding:    res.Encoding,
		Fixed:       res.Fixed,
		SkippedRows: res.SkippedRows,
		WideRows:    res.WideRows,
		Notes:       res.Notes,
		Warning:     res.Message(),
	}
	if res.Delimiter != 0 {
		info.Delimiter = string(res.Delimiter)
	}
	if res.Warning != nil {
		info.Shifted = res.Warning.Columns()
	}
	return info
}

type sessionInfo struct {
	ID       string       `json:"id"`
	Created  time.Time    `json:"created"`
	LastUsed time.Time    `json:"last_used"`
	Dataset  *datasetInfo `json:"dataset,omitempty"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, download.Catalog())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionInfo{ID: sess.ID, Created: sess.Created, LastUsed: sess.LastUsed()})
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionInfo{
		ID:       sess.ID,
		Created:  sess.Created,
		LastUsed: sess.LastUsed(),
		Dataset:  newDatasetInfo(sess.Result()),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOptions merges query parameters over the server defaults.
func (s *Server) loadOptions(r *http.Request) (parser.Options, error) {
	opt := parser.Options{Options: s.opt.Dataset}
	q := r.URL.Query()
	if v := q.Get("delimiter"); v != "" {
		d, err := dataset.ParseDelimiter(v)
		if err != nil {
			return opt, badRequest(err)
		}
		opt.Delimiter = d
	}
	if v := q.Get("max_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opt, badRequest(fmt.Errorf("invalid max_rows: %q", v))
		}
		opt.MaxRows = n
	}
	opt.Sheet = q.Get("sheet")
	opt.Name = q.Get("name")
	return opt, nil
}

// handleUpload loads a dataset from a multipart "file" field or from the raw
// request body.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	opt, err := s.loadOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUpload)

	// the multipart file name, or ?name= when it carries an extension, picks
	// the reader; ?name= alone labels the table
	filename := "upload.csv"
	if filepath.Ext(opt.Name) != "" {
		filename = opt.Name
	}
	var body io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, badRequest(fmt.Errorf("multipart upload needs a file field: %w", err)))
			return
		}
		defer f.Close()
		body = f
		if hdr.Filename != "" {
			filename = hdr.Filename
		}
	}

	res, err := parser.OpenReader(filename, body, opt)
	s.metrics.recordLoad("upload", err, err == nil && res.Warning != nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.Replace(res)
	writeJSON(w, http.StatusOK, newDatasetInfo(res))
}

type fetchRequest struct {
	Ref string `json:"ref"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.opt.Fetcher == nil {
		s.writeError(w, r, errFetchDisabled)
		return
	}
	var req fetchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeError(w, r, badRequest(fmt.Errorf("decode body: %w", err)))
		return
	}
	opt, err := s.loadOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.opt.Fetcher.FetchDataset(r.Context(), req.Ref, opt.Options)
	s.metrics.recordLoad("download", err, err == nil && res.Warning != nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.Replace(res)
	writeJSON(w, http.StatusOK, newDatasetInfo(res))
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	entries, err := sess.Missing()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []stats.MissingEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func columnsParam(r *http.Request) []string {
	v := strings.TrimSpace(r.URL.Query().Get("columns"))
	if v == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(v, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func gapStrings(gaps []error) []string {
	out := make([]string, len(gaps))
	for i, g := range gaps {
		out[i] = g.Error()
	}
	return out
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	d, err := sess.Describe(columnsParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summaries": d.Summaries,
		"gaps":      gapStrings(d.Gaps),
	})
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	b, err := sess.Outliers(chi.URLParam(r, "column"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bounds": b, "count": b.Count()})
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	m, err := sess.Correlation(columnsParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{"matrix": m}
	if m != nil {
		resp["top_pairs"] = m.TopPairs(10)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVIF(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	scores, err := sess.VIF()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if scores == nil {
		scores = []stats.VIFScore{}
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleHypotheses(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Hypotheses(r.URL.Query().Get("target"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := hypothesis.ExportAll(res.Hypotheses)
	if out == nil {
		out = []hypothesis.Export{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hypotheses": out,
		"gaps":       gapStrings(res.Gaps),
	})
}

func (s *Server) handleReport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		in, err := sess.Report()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var (
			body []byte
			ct   string
		)
		switch format {
		case "md":
			body, ct = []byte(report.Markdown(in)), "text/markdown; charset=utf-8"
		case "html":
			body, ct = report.HTML(in), "text/html; charset=utf-8"
		case "pdf":
			body, err = report.PDF(in)
			ct = "application/pdf"
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errors

var errFetchDisabled = errors.New("dataset downloads are not configured")

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps an error to its HTTP status and kind label.
func statusFor(err error) (int, string) {
	var (
		req      *requestError
		le       *dataset.LoadError
		ie       *download.IntegrationError
		gap      *stats.Gap
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &req):
		return http.StatusBadRequest, "bad-request"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session-not-found"
	case errors.Is(err, session.ErrNoDataset):
		return http.StatusConflict, "no-dataset"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too-large"
	case errors.Is(err, parser.ErrUnsupported):
		return http.StatusUnsupportedMediaType, "unsupported-format"
	case errors.As(err, &le):
		return http.StatusUnprocessableEntity, "load-error"
	case errors.Is(err, download.ErrInvalidRef):
		return http.StatusBadRequest, "invalid-ref"
	case errors.As(err, &ie):
		switch ie.Kind {
		case download.KindUnauthenticated:
			return http.StatusUnauthorized, string(ie.Kind)
		case download.KindForbidden:
			return http.StatusForbidden, string(ie.Kind)
		case download.KindNotFound:
			return http.StatusNotFound, string(ie.Kind)
		}
		return http.StatusBadGateway, string(ie.Kind)
	case errors.As(err, &gap):
		return http.StatusUnprocessableEntity, "gap"
	case errors.Is(err, errFetchDisabled):
		return http.StatusNotImplemented, "fetch-disabled"
	}
	return http.StatusInternalServerError, ""
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.log.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}
