// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend talks to the remote collaborators of the predictor: the
// settings, order, payment-status, prediction, and data-status services.
//
// Every response is decoded into a typed wire struct and validated. A
// transport failure, a non-2xx status, or a body that fails decoding or
// validation is returned as an apperr Network error. The prediction call
// converts non-2xx answers into apperr Prediction errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/internal/httputil"
	"github.com/pdiddy/acceptance-predictor/internal/logging"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "acceptance-predictor/0.1"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 1 << 20
)

// RequestMetrics observes backend calls. code is 0 when no response arrived.
type RequestMetrics interface {
	ObserveRequest(endpoint string, code int, d time.Duration)
}

// Client is the HTTP client for all backend endpoints.
type Client struct {
	baseURL    string
	http       *http.Client
	userAgent  string
	token      string
	maxRetries int
	limiter    *rate.Limiter
	validate   *validator.Validate
	metrics    RequestMetrics
	log        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics attaches a request observer.
func WithMetrics(m RequestMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client from cfg.
func NewClient(cfg types.BackendConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		userAgent:  ua,
		token:      cfg.APIToken,
		maxRetries: cfg.MaxRetries,
		validate:   validator.New(),
		log:        logging.Discard(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// statusError carries a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// do sends one request and decodes a 2xx JSON body into out, which is then
// validated. endpoint names the call for logs and metrics.
func (c *Client) do(ctx context.Context, endpoint, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Network(endpoint+": waiting for rate limiter", err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.log)
	if err != nil {
		c.observe(endpoint, 0, start)
		return apperr.Network(endpoint+" request failed", err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperr.Network(endpoint+": reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("backend returned non-success",
			"endpoint", endpoint, "status", resp.StatusCode)
		return apperr.Network(endpoint+" rejected", &statusError{Code: resp.StatusCode, Body: detail(raw)})
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Network(endpoint+": malformed response", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return apperr.Network(endpoint+": invalid response", err)
	}
	return nil
}

func (c *Client) observe(endpoint string, code int, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(endpoint, code, time.Since(start))
	}
}

// detail extracts FastAPI's {"detail": "..."} message, or a short prefix of
// the raw body.
func detail(raw []byte) string {
	var d struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &d) == nil && d.Detail != "" {
		return d.Detail
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:197] + "..."
	}
	return s
}
