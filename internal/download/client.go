package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Kaggle API.
const DefaultBaseURL = "https://www.kaggle.com/api/v1"

// maxDownload bounds the archive size read into memory.
const maxDownload = 512 << 20

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	BaseURL  string
	Username string
	Key      string
	Timeout  time.Duration
	// RatePerSec spaces consecutive requests.
	RatePerSec float64
	// MaxFailures is how many consecutive server failures open the breaker.
	MaxFailures uint32
	Logger      *slog.Logger
	HTTPClient  *http.Client
}

// Client downloads datasets from a Kaggle-compatible API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *slog.Logger
}

// File is one downloaded data file.
type File struct {
	Name string
	Data []byte
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{
		cfg:     cfg,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:     log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "dataset-download",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Client-side rejections say nothing about the endpoint's health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ie *IntegrationError
			return errors.As(err, &ie) && ie.Kind != KindOther
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func isCompetition(ref string) bool { return strings.HasPrefix(ref, "c/") }

// endpoint maps a reference to its download URL.
func (c *Client) endpoint(ref string) (string, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q (use owner/name or c/competition)", ErrInvalidRef, ref)
	}
	if isCompetition(ref) {
		return c.cfg.BaseURL + "/competitions/data/download-all/" + url.PathEscape(parts[1]), nil
	}
	return c.cfg.BaseURL + "/datasets/download/" + url.PathEscape(parts[0]) + "/" + url.PathEscape(parts[1]), nil
}

// Fetch downloads ref and picks its main CSV file.
func (c *Client) Fetch(ctx context.Context, ref string) (*File, error) {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	endpoint, err := c.endpoint(ref)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &IntegrationError{Kind: KindOther, Ref: ref, Err: err}
	}
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, ref, endpoint)
	})
	if err != nil {
		var ie *IntegrationError
		if !errors.As(err, &ie) {
			err = &IntegrationError{Kind: KindOther, Ref: ref, Err: err}
		}
		c.log.Warn("dataset download failed", "ref", ref, "error", err)
		return nil, err
	}
	name := path.Base(ref)
	f, err := pickCSV(body, name)
	if err != nil {
		return nil, &IntegrationError{Kind: KindOther, Ref: ref, Err: err}
	}
	c.log.Info("dataset downloaded", "ref", ref, "file", f.Name, "bytes", len(f.Data), "elapsed", time.Since(start))
	return f, nil
}

// FetchDataset downloads ref and loads its main CSV file.
func (c *Client) FetchDataset(ctx context.Context, ref string, opt dataset.Options) (*dataset.Result, error) {
	f, err := c.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if opt.Name == "" {
		opt.Name = f.Name
	}
	return dataset.LoadBytes(f.Data, opt)
}

func (c *Client) get(ctx context.Context, ref, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.Username != "" || c.cfg.Key != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Key)
	}
	req.Header.Set("User-Agent", "edaloom-cli")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &IntegrationError{Kind: KindOther, Ref: ref, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, statusError(ref, resp.StatusCode, body)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload+1))
	if err != nil {
		return nil, &IntegrationError{Kind: KindOther, Ref: ref, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > maxDownload {
		return nil, &IntegrationError{Kind: KindOther, Ref: ref, Message: fmt.Sprintf("archive larger than %d bytes", maxDownload)}
	}
	return data, nil
}

func statusError(ref string, status int, body []byte) *IntegrationError {
	e := &IntegrationError{Ref: ref, StatusCode: status, Message: errorMessage(body)}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindUnauthenticated
	case http.StatusForbidden:
		e.Kind = KindForbidden
		e.RulesURL = RulesURL(ref)
	case http.StatusNotFound:
		e.Kind = KindNotFound
	default:
		e.Kind = KindOther
	}
	return e
}

// errorMessage pulls a human message out of a JSON error body.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, p := range []string{"message", "error.message", "error", "detail"} {
		if v := gjson.GetBytes(body, p); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// LoadCredentials reads username and key from a kaggle.json file. An empty
// path means ~/.kaggle/kaggle.json.
func LoadCredentials(p string) (username, key string, err error) {
	if p == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", "", herr
		}
		p = filepath.Join(home, ".kaggle", "kaggle.json")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", "", err
	}
	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) {
		return "", "", fmt.Errorf("%s: not valid JSON", p)
	}
	username = gjson.GetBytes(data, "username").String()
	key = gjson.GetBytes(data, "key").String()
	if username == "" || key == "" {
		return "", "", fmt.Errorf("%s: missing username or key", p)
	}
	return username, key, nil
}
