// Package feed fetches raw daily observations from a chart-style quote API
// and hands them to the engine as fetch batches. Transport mechanics stay
// here, at the boundary: the engine only ever sees rows or an error.
package feed

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/seriesdb/date"
	"github.com/go-resty/resty/v2"
)

// diskCache implements a simple disk cache for HTTP responses. Entries are
// keyed by the current day, so cached quotes expire daily and a re-run of
// the same batch within a day never refetches.
type diskCache struct {
	base http.RoundTripper
}

// RoundTrip checks for a cached response on disk first. If none is found it
// performs the actual request and caches a successful response.
func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := fmt.Sprintf("%s %s %s", date.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("seriesdb-%x", sha1.Sum([]byte(key)))

	if resp, err := c.get(key, req); err == nil { // cache hit
		return resp, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		slog.Debug("cache write failed (ignored)", "err", err)
	}
	return resp, nil
}

// get retrieves a cached response from disk.
func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(os.TempDir(), key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to the disk cache.
func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(os.TempDir(), key), content, 0o644)
}

// Client talks to the quote API.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

// ClientOption tunes a Client.
type ClientOption func(*Client)

// WithoutCache disables the daily disk cache, for tests and intraday use.
func WithoutCache() ClientOption {
	return func(c *Client) { c.http.SetTransport(http.DefaultTransport) }
}

// WithLogger installs a logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient returns a client for the quote API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTransport(&diskCache{base: http.DefaultTransport}).
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetHeader("User-Agent", "Mozilla/5.0"),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
