// Package apiclient talks JSON over HTTP to the employee portal API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/pkg/redact"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// TokenSource yields the bearer token for the next request. An empty
// string means no Authorization header is sent.
type TokenSource interface {
	Token() string
}

type Config struct {
	// Endpoint is the API root, e.g. https://portal.example.com/api.
	Endpoint string
	Timeout  time.Duration
	Headers  map[string]string
	// HTTPClient overrides the default client; tests use it for httptest.
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	timeout  time.Duration
	headers  map[string]string
	http     *http.Client
	tokens   atomic.Pointer[tokenHolder]
	logger   *slog.Logger
}

type tokenHolder struct {
	src TokenSource
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		timeout:  cfg.Timeout,
		headers:  headers,
		http:     httpClient,
		logger:   logger,
	}
}

// SetTokenSource installs the source consulted on every request.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens.Store(&tokenHolder{src: ts})
}

func (c *Client) token() string {
	h := c.tokens.Load()
	if h == nil || h.src == nil {
		return ""
	}
	return h.src.Token()
}

// Endpoint returns the API root the client was built with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do sends a JSON request. body may be nil; out may be nil when the
// response body is not needed.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return internal.NewInternalError("failed to encode request body", err)
		}
	}

	return c.send(ctx, method, path, "application/json", payload, out)
}

// Upload sends a multipart form. The Content-Type carries the multipart
// boundary and is never the JSON type.
func (c *Client) Upload(ctx context.Context, method, path string, form *Form, out interface{}) error {
	payload, contentType, err := form.encode()
	if err != nil {
		return internal.NewInternalError("failed to encode multipart form", err)
	}
	return c.send(ctx, method, path, contentType, payload, out)
}

// Ping reports whether the API host answers HTTP at all. Any status code
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return internal.NewInternalError("failed to create HTTP request", err)
	}
	c.decorate(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *Client) send(ctx context.Context, method, path, contentType string, payload []byte, out interface{}) error {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return internal.NewInternalError("failed to create HTTP request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	c.decorate(ctx, req)

	start := time.Now()
	c.logRequest(ctx, req, payload)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "api request failed",
			"method", method,
			"path", path,
			"trace_id", req.Header.Get(traceHeader),
			"error", err)
		return transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	c.logResponse(ctx, req, resp, respBody, time.Since(start))

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp, respBody, isJSON)
	}

	if out == nil || !isJSON || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &internal.AppError{
			Type:       internal.ErrorTypeRemote,
			Code:       internal.ErrCodeMalformedResponse,
			Message:    "malformed response body",
			StatusCode: resp.StatusCode,
			Cause:      err,
		}
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.endpoint + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) decorate(ctx context.Context, req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	traceID := internal.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	req.Header.Set(traceHeader, traceID)

	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// remoteError applies the API error contract: message, then error, then
// the status text.
func remoteError(resp *http.Response, body []byte, isJSON bool) error {
	message := ""
	var details map[string]interface{}
	if isJSON && json.Unmarshal(body, &details) == nil {
		if m, ok := details["message"].(string); ok && m != "" {
			message = m
		} else if e, ok := details["error"].(string); ok && e != "" {
			message = e
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}

	appErr := internal.NewRemoteError(message, resp.StatusCode)
	if details != nil {
		appErr.Details = details
	}
	return appErr
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return internal.NewNetworkError("request timed out", internal.ErrCodeTimeout, err)
	}
	return internal.NewNetworkError("portal API unreachable", internal.ErrCodeUnreachable, err)
}

func (c *Client) logRequest(ctx context.Context, req *http.Request, payload []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	body := ""
	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		body = redact.Body(payload)
	} else if payload != nil {
		body = fmt.Sprintf("[multipart %d bytes]", len(payload))
	}
	c.logger.DebugContext(ctx, "api request",
		"trace_id", req.Header.Get(traceHeader),
		"method", req.Method,
		"url", req.URL.String(),
		"headers", redact.Headers(req.Header),
		"body", body,
	)
}

func (c *Client) logResponse(ctx context.Context, req *http.Request, resp *http.Response, body []byte, d time.Duration) {
	level := slog.LevelDebug
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		level = slog.LevelInfo
	} else if resp.StatusCode >= 500 {
		level = slog.LevelWarn
	}

	c.logger.Log(ctx, level, "api response",
		"trace_id", req.Header.Get(traceHeader),
		"method", req.Method,
		"path", req.URL.Path,
		"status_code", resp.StatusCode,
		"duration_ms", d.Milliseconds(),
		"response_size", len(body),
		"body", redact.Body(body),
	)
}
