package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxResponseBody int64 = 1 << 20

// Result is the outcome of a dispatched update.
type Result struct {
	Response *Response
	Err      error
}

// Client posts dismissal updates to the notice state endpoint.
type Client struct {
	rest    REST
	hc      *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithTimeout bounds each dispatched call. Default: 10s.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithLogger sets the logger used for dispatch failures.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient returns a client for the endpoint described by rest.
func NewClient(rest REST, opts ...Option) *Client {
	c := &Client{rest: rest, hc: http.DefaultClient, timeout: 10 * time.Second}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Send posts one update and waits for the answer. Requests that resolve to
// no id are refused before anything is sent.
func (c *Client) Send(ctx context.Context, ids []string, dismissed bool) (*Response, error) {
	u, err := NewUpdate(ids, dismissed)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rest.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bridge: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.rest.Nonce != "" {
		req.Header.Set("Authorization", "Bearer "+c.rest.Nonce)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	defer resp.Body.Close()

	data, err := limitedReadAll(resp.Body, maxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrPersist, err)
	}
	if err := statusError(resp.StatusCode, data); err != nil {
		return nil, err
	}
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrPersist, err)
	}
	return &out, nil
}

// Dispatch runs Send on its own goroutine. The returned channel is buffered
// and receives exactly one Result, so callers may drop it. Failures are
// logged here at warn level and never retried.
func (c *Client) Dispatch(ctx context.Context, ids []string, dismissed bool) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		resp, err := c.Send(ctx, ids, dismissed)
		if err != nil {
			c.logger.Warn("bridge: persist failed", "ids", ids, "dismissed", dismissed, "error", err)
		}
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

func statusError(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	var eb ErrorBody
	_ = json.Unmarshal(body, &eb)
	switch {
	case code == http.StatusForbidden || code == http.StatusUnauthorized || eb.Code == CodeForbidden:
		return fmt.Errorf("%w (status %d)", ErrForbidden, code)
	case eb.Code == CodeMissingNotice:
		return fmt.Errorf("%w (status %d)", ErrNoNotices, code)
	}
	return fmt.Errorf("%w: status %d: %s", ErrPersist, code, bytes.TrimSpace(body))
}

// limitedReadAll reads at most maxBytes from r.
func limitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("bridge: response exceeds %d bytes", maxBytes)
	}
	return data, nil
}
