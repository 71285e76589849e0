// Package api is the HTTP client for the remote approval workflow API.
//
// Errors are returned raw (*StatusError, *TransportError, *DecodeError);
// the workflowsync layer maps them onto the user-facing taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felixgeelhaar/approvals/internal/log"
	"github.com/felixgeelhaar/approvals/internal/metrics"
	"github.com/felixgeelhaar/approvals/internal/telemetry"
	"github.com/felixgeelhaar/approvals/internal/version"
)

// DefaultTimeout bounds every call; there are no retries.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a fresh UUID on every call.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 1 << 20

// Client is the approval API client
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu    sync.RWMutex
	token string

	userAgent string
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithMetrics records every round trip in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger for request tracing at debug level.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: need an absolute http(s) URL", baseURL)
	}

	c := &Client{
		BaseURL: u.String(),
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: version.UserAgent(),
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin returns scheme://host[:port] of the base URL. Persisted client
// state is scoped by it.
func (c *Client) Origin() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	return u.Scheme + "://" + u.Host
}

// SetToken sets the bearer token sent with every call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// call describes one HTTP exchange.
type call struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	target      any
}

func (c *Client) getJSON(ctx context.Context, op, path string, target any) error {
	return c.do(ctx, call{op: op, method: http.MethodGet, path: path, target: target})
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, body, target any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, call{
		op:          op,
		method:      method,
		path:        path,
		body:        bytes.NewReader(data),
		contentType: "application/json",
		target:      target,
	})
}

func (c *Client) sendForm(ctx context.Context, op, path string, form url.Values, target any) error {
	return c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		target:      target,
	})
}

// do performs an HTTP request with authentication
func (c *Client) do(ctx context.Context, cl call) (err error) {
	ctx, span := telemetry.StartAPISpan(ctx, cl.op, cl.method, cl.path)
	defer func() { telemetry.End(span, err) }()

	req, err := http.NewRequestWithContext(ctx, cl.method, c.BaseURL+cl.path, cl.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(cl.op, 0, elapsed)
		c.logger.DebugContext(ctx, "api call failed", "operation", cl.op, "request_id", requestID, "error", err)
		return &TransportError{Op: cl.op, Err: err}
	}

	c.observe(cl.op, resp.StatusCode, elapsed)
	c.logger.DebugContext(ctx, "api call",
		"operation", cl.op,
		"method", cl.method,
		"path", cl.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", elapsed.Milliseconds(),
	)

	return parseResponse(cl.op, resp, cl.target)
}

func (c *Client) observe(op string, status int, d time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveAPICall(op, status, d)
	}
}

// parseResponse parses the response body into the target struct
func parseResponse(op string, resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Op:     op,
			Status: resp.StatusCode,
			Detail: extractDetail(body),
			Body:   string(body),
		}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
