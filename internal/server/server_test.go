package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/download"
	"github.com/KaramelBytes/edaloom-cli/internal/logging"
	"github.com/KaramelBytes/edaloom-cli/internal/session"
)

type fakeFetcher struct {
	csv string
	err error
}

func (f fakeFetcher) FetchDataset(_ context.Context, ref string, opt dataset.Options) (*dataset.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	opt.Name = ref
	return dataset.LoadBytes([]byte(f.csv), opt)
}

func salesCSV(rows, shiftAt int) string {
	var b strings.Builder
	b.WriteString("id,amount,region,label\n")
	for i := 0; i < rows; i++ {
		amount := fmt.Sprint(i * 3 % 17)
		if shiftAt >= 0 && i >= shiftAt {
			amount = fmt.Sprintf("north-%d", i)
		}
		fmt.Fprintf(&b, "%d,%s,%s,%d\n", i, amount, []string{"n", "s", "e"}[i%3], i%2)
	}
	return b.String()
}

func newTestServer(t *testing.T, f Fetcher) *httptest.Server {
	t.Helper()
	s := New(Options{Session: session.DefaultOptions(), Fetcher: f, Logger: logging.Discard()})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, ct string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp, body := do(t, http.MethodPost, base+"/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var info sessionInfo
	require.NoError(t, json.Unmarshal(body, &info))
	require.NotEmpty(t, info.ID)
	return info.ID
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv.URL)
	base := srv.URL + "/api/sessions/" + id

	resp, body := do(t, http.MethodGet, base+"/missing", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "no-dataset")

	resp, body = do(t, http.MethodPost, base+"/dataset?name=sales.csv", "text/csv", strings.NewReader(salesCSV(40, -1)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var info datasetInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "sales.csv", info.Name)
	assert.Equal(t, 40, info.Rows)
	assert.Equal(t, ",", info.Delimiter)
	assert.Empty(t, info.Warning)

	resp, body = do(t, http.MethodGet, base+"/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var si sessionInfo
	require.NoError(t, json.Unmarshal(body, &si))
	require.NotNil(t, si.Dataset)
	assert.Equal(t, 40, si.Dataset.Rows)

	resp, _ = do(t, http.MethodDelete, base, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = do(t, http.MethodGet, base+"/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "session-not-found")
}

func TestAnalysisEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)
	resp, body := do(t, http.MethodPost, base+"/dataset", "text/csv", strings.NewReader(salesCSV(60, -1)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodGet, base+"/missing", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	resp, body = do(t, http.MethodGet, base+"/describe?columns=amount,region", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var desc struct {
		Summaries []map[string]any `json:"summaries"`
		Gaps      []string         `json:"gaps"`
	}
	require.NoError(t, json.Unmarshal(body, &desc))
	assert.Len(t, desc.Summaries, 1)
	require.Len(t, desc.Gaps, 1)
	assert.Contains(t, desc.Gaps[0], "region")

	resp, body = do(t, http.MethodGet, base+"/outliers/amount", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":0`)

	resp, body = do(t, http.MethodGet, base+"/outliers/region", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "not numeric")

	resp, body = do(t, http.MethodGet, base+"/correlation", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "top_pairs")

	resp, body = do(t, http.MethodGet, base+"/vif", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"column":"id"`)

	resp, body = do(t, http.MethodGet, base+"/hypotheses?target=label", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hyps struct {
		Hypotheses []map[string]string `json:"hypotheses"`
	}
	require.NoError(t, json.Unmarshal(body, &hyps))
	require.NotEmpty(t, hyps.Hypotheses)
	assert.NotEmpty(t, hyps.Hypotheses[0]["verification_method"])

	resp, body = do(t, http.MethodGet, base+"/report.html", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "<!DOCTYPE html>")

	resp, body = do(t, http.MethodGet, base+"/report.pdf", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, body = do(t, http.MethodGet, base+"/report.md", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "## 1. Dataset overview")
}

func TestUploadShiftWarningAndMultipart(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "shifted.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(salesCSV(40, 20)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body := do(t, http.MethodPost, base+"/dataset", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var info datasetInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "shifted.csv", info.Name)
	assert.NotEmpty(t, info.Warning)
	assert.Equal(t, []string{"amount"}, info.Shifted)

	resp, body = do(t, http.MethodGet, base+"/report.md", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "amount")
}

func TestUploadNamePicksReaderOnlyWithExtension(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)

	resp, body := do(t, http.MethodPost, base+"/dataset?name=quarterly", "text/csv", strings.NewReader("a,b\n1,2\n3,4\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var info datasetInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "quarterly", info.Name)
	assert.Equal(t, 2, info.Rows)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "small.tsv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("a\tb\n1\t2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body = do(t, http.MethodPost, base+"/dataset?name=quarterly", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "quarterly", info.Name)
	assert.Equal(t, []string{"a", "b"}, info.Columns)
}

func TestUploadErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)

	resp, _ := do(t, http.MethodPost, base+"/dataset?name=notes.docx", "", strings.NewReader("x"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/dataset?delimiter=ab", "", strings.NewReader("a,b\n1,2\n"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPost, base+"/dataset", "", strings.NewReader(""))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "load-error")
}

func TestFetchMapsIntegrationErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&download.IntegrationError{Kind: download.KindUnauthenticated}, http.StatusUnauthorized},
		{&download.IntegrationError{Kind: download.KindForbidden, Ref: "c/titanic"}, http.StatusForbidden},
		{&download.IntegrationError{Kind: download.KindNotFound}, http.StatusNotFound},
		{&download.IntegrationError{Kind: download.KindOther, StatusCode: 500}, http.StatusBadGateway},
		{download.ErrInvalidRef, http.StatusBadRequest},
	}
	for _, tc := range cases {
		srv := newTestServer(t, fakeFetcher{err: tc.err})
		base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)
		resp, _ := do(t, http.MethodPost, base+"/fetch", "application/json", strings.NewReader(`{"ref":"c/titanic"}`))
		assert.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
	}
}

func TestFetchLoadsDataset(t *testing.T) {
	srv := newTestServer(t, fakeFetcher{csv: salesCSV(30, -1)})
	base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)
	resp, body := do(t, http.MethodPost, base+"/fetch", "application/json", strings.NewReader(`{"ref":"me/sales"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"name":"me/sales"`)

	disabled := newTestServer(t, nil)
	base = disabled.URL + "/api/sessions/" + createSession(t, disabled.URL)
	resp, _ = do(t, http.MethodPost, base+"/fetch", "application/json", strings.NewReader(`{"ref":"me/sales"}`))
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := do(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	base := srv.URL + "/api/sessions/" + createSession(t, srv.URL)
	do(t, http.MethodPost, base+"/dataset", "", strings.NewReader(salesCSV(20, -1)))
	do(t, http.MethodGet, base+"/missing", "", nil)
	do(t, http.MethodGet, base+"/missing", "", nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `edaloom_http_requests_total{method="GET",route="/api/sessions/{id}/missing",status="200"} 2`)
	assert.Contains(t, text, `edaloom_dataset_loads_total{outcome="ok",source="upload"} 1`)
	assert.Contains(t, text, "edaloom_session_active 1")
	assert.Contains(t, text, "edaloom_session_cache_hits 1")
}

func TestCatalog(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, srv.URL+"/api/catalog", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "c/titanic")
}
