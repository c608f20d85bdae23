// Package vior is the typed client for the pharmacy backend REST API
// (inventory, sales, laboratory). It normalizes the backend's two list
// response shapes at the boundary and surfaces the backend's own error
// message when a call is rejected.
package vior

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/viorhealth/pos-terminal/pkg/httpmiddleware"
)

// maxBodyBytes bounds how much of a backend response is read into memory.
const maxBodyBytes = 4 << 20

// defaultTimeout applies when Config.Timeout is zero.
const defaultTimeout = 10 * time.Second

// Config holds the connection settings for the pharmacy backend.
type Config struct {
	// BaseURL is the API root, e.g. https://pharmacy.example.com/api.
	BaseURL string
	// Token is the bearer token attached to every request. Empty disables
	// the Authorization header.
	Token string
	// Timeout applies per call.
	Timeout time.Duration
	// HTTPClient optionally overrides the underlying client. Its transport
	// is wrapped with otelhttp instrumentation.
	HTTPClient *http.Client

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client talks to the pharmacy backend.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	timeout time.Duration
}

// NewClient constructs a Client from the given config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported base URL scheme %q", u.Scheme)
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport, opts...),
			Jar:       base.Jar,
		},
		baseURL: strings.TrimRight(u.String(), "/"),
		token:   cfg.Token,
		timeout: timeout,
	}, nil
}

// APIError is a structured rejection from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (HTTP %d)", e.Message, e.StatusCode)
}

// do performs one request with the per-call timeout. On HTTP >= 400 it
// decodes the backend error body into an APIError. When out is non-nil the
// success body is decoded through it.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out func(d *jx.Decoder) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrapf(err, "%s %s: read body", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := out(jx.DecodeBytes(data)); err != nil {
		return errors.Wrapf(err, "%s %s: decode response", method, path)
	}
	return nil
}

// get performs an idempotent read with a single retry on transport errors
// and 5xx responses. Create calls go through do directly and are never
// retried: without a client idempotency key a retried create could
// double-submit a sale.
func (c *Client) get(ctx context.Context, path string, out func(d *jx.Decoder) error) error {
	err := c.do(ctx, http.MethodGet, path, nil, out)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// decodeAPIError extracts the backend's message from an error body. The
// backend uses either {"error": "..."} or {"message": "..."}; anything else
// falls back to a generic message.
func decodeAPIError(status int, data []byte) error {
	msg := ""
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Object {
		_ = d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "error", "message":
				s, err := d.Str()
				if err != nil {
					return d.Skip()
				}
				if msg == "" || key == "error" {
					msg = s
				}
				return nil
			default:
				return d.Skip()
			}
		})
	}
	if msg == "" {
		msg = "request failed"
	}
	return &APIError{StatusCode: status, Message: msg}
}
