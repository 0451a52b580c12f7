// Package ctfd is a client for the admin endpoints of the CTF server.
//
// Every mutating call carries the admin nonce scraped from the server's admin
// page. Failures are returned as *OutcomeError so callers can tell stale ids,
// rejected payloads and network trouble apart.
package ctfd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tamuctf/CTFd/internal/config"
)

// SessionCookieName is the cookie carrying the server-side admin session.
const SessionCookieName = "session"

// maxResponseSize bounds how much of a reply is read.
const maxResponseSize = 8 << 20

// Client talks to one CTF server.
type Client struct {
	base        string
	http        *http.Client
	timeout     time.Duration
	staticNonce string
	metrics     *Metrics

	nonceMu sync.Mutex
	nonce   string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the configured server.
func New(cfg config.ServerConfig, opts ...Option) (*Client, error) {
	base := cfg.BaseURL()
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.Session != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: SessionCookieName, Value: cfg.Session, Path: "/"}})
	}

	c := &Client{
		base:        base,
		timeout:     cfg.Timeout,
		staticNonce: cfg.Nonce,
		http: &http.Client{
			Jar: jar,
			// a redirect means the server sent us to its login page
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the absolute URL of a server path.
func (c *Client) URL(path string) string {
	return c.base + path
}

// Nonce returns the anti-forgery token used for mutating requests.
func (c *Client) Nonce(ctx context.Context) (string, error) {
	if c.staticNonce != "" {
		return c.staticNonce, nil
	}

	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	if c.nonce != "" {
		return c.nonce, nil
	}

	body, err := c.do(ctx, "nonce", http.MethodGet, "/admin/chals", nil, "")
	if err != nil {
		return "", err
	}
	nonce, ok := scrapeNonce(bytes.NewReader(body))
	if !ok {
		return "", validationError("nonce", "admin page has no nonce field", nil)
	}
	c.nonce = nonce
	return nonce, nil
}

func (c *Client) forgetNonce() {
	c.nonceMu.Lock()
	c.nonce = ""
	c.nonceMu.Unlock()
}

// do performs one request and returns the body of a 2xx reply.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (resp []byte, err error) {
	started := time.Now()
	defer func() { c.metrics.observe(op, started, err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, validationError(op, "build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	res, err := c.http.Do(req)
	if err != nil {
		slog.Warn("CTF server request failed", "op", op, "path", path, "error", err)
		return nil, &OutcomeError{Op: op, Outcome: NetworkFailure, Err: err}
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			slog.Debug("failed to close response body", "op", op, "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, &OutcomeError{Op: op, Outcome: NetworkFailure, Status: res.StatusCode, Err: err}
	}

	if outcome := outcomeForStatus(res.StatusCode); outcome != Success {
		if res.StatusCode == http.StatusForbidden {
			// most likely a stale nonce
			c.forgetNonce()
		}
		return nil, &OutcomeError{
			Op:      op,
			Outcome: outcome,
			Status:  res.StatusCode,
			Message: summarize(data),
		}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	data, err := c.do(ctx, op, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return decodeJSON(op, data, out)
}

// postForm sends form with the nonce attached and returns the reply body.
func (c *Client) postForm(ctx context.Context, op, path string, form url.Values) ([]byte, error) {
	nonce, err := c.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("nonce", nonce)
	return c.do(ctx, op, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// postExpectOne sends a delete-style request whose success reply is "1".
func (c *Client) postExpectOne(ctx context.Context, op, path string, form url.Values) error {
	data, err := c.postForm(ctx, op, path, form)
	if err != nil {
		return err
	}
	return expectOne(op, data)
}

func expectOne(op string, data []byte) error {
	reply := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if reply != "1" {
		return validationError(op, "server replied "+summarize(data), nil)
	}
	return nil
}

func decodeJSON(op string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return validationError(op, "malformed response", err)
	}
	return nil
}

func summarize(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
