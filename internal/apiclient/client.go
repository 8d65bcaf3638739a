// Package apiclient talks to the admin REST API. Every outbound call goes
// through Client.Request, which classifies the response, reports failures
// to the operator exactly once and returns a typed *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/notify"
)

// DefaultPrefix is prepended to every resource path.
const DefaultPrefix = "/api/v1"

// deleteOK is the synthetic body of a successful DELETE.
var deleteOK = json.RawMessage(`{"success":true}`)

// Error is a non-2xx response or a transport failure (Status 0).
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return "request failed: " + e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsReported reports whether err already reached the operator through the
// client's notifier. Every *Error returned by Client has.
func IsReported(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}

// Client is safe for concurrent use.
type Client struct {
	BaseURL   string
	Prefix    string
	HTTP      *http.Client
	Notifier  notify.Notifier
	UserAgent string
	Token     string
}

type Option func(*Client)

func WithPrefix(prefix string) Option {
	return func(c *Client) { c.Prefix = prefix }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.Notifier = n }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTP = &http.Client{Timeout: d}
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

// New returns a client for baseURL (scheme and host, no prefix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Prefix:   DefaultPrefix,
		HTTP:     &http.Client{},
		Notifier: notify.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Prefix = "/" + strings.Trim(c.Prefix, "/")
	if c.Prefix == "/" {
		c.Prefix = ""
	}
	return c
}

// URL is the absolute URL for path.
func (c *Client) URL(path string) string {
	return c.BaseURL + c.Prefix + path
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// Request performs one call and returns the raw JSON response. body is
// marshalled only for POST, PUT and PATCH.
func (c *Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil && hasBody(method) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, c.fail(method, path, 0, fmt.Sprintf("encoding request body: %v", err))
		}
		reader = bytes.NewReader(data)
	}
	return c.send(ctx, method, path, "application/json", reader)
}

// send performs one call with an already encoded body.
func (c *Client) send(ctx context.Context, method, path, contentType string, reader io.Reader) (json.RawMessage, error) {
	start := time.Now()
	reqID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, c.fail(method, path, 0, err.Error())
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, c.fail(method, path, 0, err.Error())
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(resp.Body)
	debug.LogKV("api", "response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(payload),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
		"request_id", reqID[:8],
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(method, path, resp.StatusCode, errorMessage(resp.StatusCode, payload))
	}
	if method == http.MethodDelete {
		return deleteOK, nil
	}
	if readErr != nil {
		return nil, c.fail(method, path, resp.StatusCode, fmt.Sprintf("reading response: %v", readErr))
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}
	if !json.Valid(payload) {
		return nil, c.fail(method, path, resp.StatusCode, "invalid JSON in response")
	}
	return json.RawMessage(payload), nil
}

// Do performs a request and decodes the response into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(method, path, http.StatusOK, fmt.Sprintf("decoding response: %v", err))
	}
	return nil
}

// fail builds the typed error, reports it once and logs it.
func (c *Client) fail(method, path string, status int, msg string) *Error {
	e := &Error{Method: method, Path: path, Status: status, Message: msg}
	debug.LogKV("api", "request failed", "method", method, "path", path, "status", status, "error", msg)
	if c.Notifier != nil {
		c.Notifier.Notify(msg, notify.SeverityError)
	}
	return e
}

// errorMessage extracts the backend's detail field, falling back to a
// generic message when the body carries none.
func errorMessage(status int, body []byte) string {
	generic := fmt.Sprintf("HTTP error! status: %d", status)
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return generic
	}
	var detail string
	if err := json.Unmarshal(parsed.Detail, &detail); err == nil {
		if strings.TrimSpace(detail) == "" {
			return generic
		}
		return detail
	}
	// Request validation errors arrive as a list of {loc, msg, type}.
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(parsed.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return generic
}

// Result is the outcome of a DELETE.
type Result struct {
	OK      bool
	Status  int
	Message string
}

func (r Result) Failed() bool { return !r.OK }

// Err returns the failure as an *Error, or nil on success.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &Error{Method: http.MethodDelete, Status: r.Status, Message: r.Message}
}

// Delete issues a DELETE and folds the outcome into a Result.
func (c *Client) Delete(ctx context.Context, path string) Result {
	if _, err := c.Request(ctx, http.MethodDelete, path, nil); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return Result{Status: apiErr.Status, Message: apiErr.Message}
		}
		return Result{Message: err.Error()}
	}
	return Result{OK: true, Status: http.StatusNoContent}
}
