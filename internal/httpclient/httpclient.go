// Package httpclient is a thin abstraction over HTTP(S) requests: method,
// URL, headers, optional body, timeout in, status code and selected
// response headers out. It never interprets the response body — callers
// parse JSON or read headers themselves.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/resumable/uploadkit/internal/uploaderr"
)

// Request describes one HTTP call. Body may be nil for GET/HEAD. BodyReader,
// when set, takes precedence over Body — used by callers (e.g. the chunk
// uploader) that want the wire bytes streamed through a rate limiter rather
// than handed over as a single buffer; ContentLength must then be set
// explicitly since the reader's length cannot be inferred.
type Request struct {
	Method        string
	URL           string
	Headers       http.Header
	Body          []byte
	BodyReader    io.Reader
	ContentLength int64
	Timeout       time.Duration
}

// Response is the normalized result of a Request: status, headers, and the
// full response body, already drained and closed.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether StatusCode is a 2xx success.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Client issues requests through an underlying *http.Client. Method
// (GET/POST/PUT/HEAD) is taken from Request.Method; scheme (http vs https)
// is whatever the URL specifies — the client does not enforce one.
type Client struct {
	HTTP   *http.Client
	Logger *slog.Logger

	// ExtraHeaders is added to every outgoing request (e.g. operator-
	// supplied headers from config), before req.Headers.
	ExtraHeaders http.Header
}

// New creates a Client. A nil http.Client defaults to http.DefaultClient's
// Transport wrapped with no special configuration; a nil logger defaults to
// slog.Default().
func New(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{HTTP: httpClient, Logger: logger}
}

// Do issues req and returns the normalized Response. A request that exceeds
// Timeout returns a Timeout-classified *uploaderr.Error; any other transport
// failure returns a NetworkError-classified one. The adapter never retries —
// retry policy belongs to the caller (see internal/uploaderr.Classify).
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader

	switch {
	case req.BodyReader != nil:
		body = req.BodyReader
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, uploaderr.New(uploaderr.CodeConfigError, false,
			fmt.Sprintf("building request: %v", err), nil)
	}

	for key, vals := range c.ExtraHeaders {
		for _, v := range vals {
			httpReq.Header.Add(key, v)
		}
	}

	for key, vals := range req.Headers {
		for _, v := range vals {
			httpReq.Header.Add(key, v)
		}
	}

	switch {
	case req.BodyReader != nil:
		httpReq.ContentLength = req.ContentLength
	case req.Body != nil:
		httpReq.ContentLength = int64(len(req.Body))
	}

	c.Logger.Debug("http request",
		slog.String("method", req.Method),
		slog.String("url", req.URL),
	)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, uploaderr.New(uploaderr.CodeTimeout, true,
				fmt.Sprintf("%s %s timed out after %s", req.Method, req.URL, timeout), nil)
		}

		return nil, uploaderr.New(uploaderr.CodeNetworkError, true,
			fmt.Sprintf("%s %s: %v", req.Method, req.URL, err), nil)
	}
	defer resp.Body.Close()

	var respBody []byte
	if req.Method != http.MethodHead {
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, uploaderr.New(uploaderr.CodeNetworkError, true,
				fmt.Sprintf("reading response body from %s %s: %v", req.Method, req.URL, err), nil)
		}
	}

	c.Logger.Debug("http response",
		slog.String("method", req.Method),
		slog.String("url", req.URL),
		slog.Int("status", resp.StatusCode),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// Head is a convenience wrapper that issues a HEAD request and returns only
// headers — never a body, per the C3 contract.
func (c *Client) Head(ctx context.Context, url string, headers http.Header, timeout time.Duration) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodHead, URL: url, Headers: headers, Timeout: timeout})
}

// Sleep is called between WithRetry attempts. Defaults to a context-aware
// time.Sleep; tests override it to avoid real delays.
type Sleep func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const defaultRetryBackoff = 2 * time.Second

// isRetryableStatus reports whether a response status is transient
// server-side flakiness worth retrying at the transport layer, as opposed to
// a status a caller needs to inspect itself (404 SessionNotFound, 401/403
// auth failure, and other 4xx caller errors never improve on retry).
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code != http.StatusNotImplemented)
}

// WithRetry issues req, retrying up to maxRetries additional times on
// transport-level failures uploaderr.Classify marks retryable, and on
// retryable 5xx/429 responses, per the backoff Classify returns. This is the
// bounded bootstrap-call retry C5 uses for create_session, resume_session,
// get_progress, and authenticate — pure network/5xx flakiness that has
// nothing to do with chunk-level recovery, which C6/C8 own via Classify
// directly so they can react to SessionNotFound. On retry exhaustion the
// last response (or error) is returned as-is, so callers keep mapping
// specific status codes to their own taxonomy. Callers needing chunk-aware
// recovery (resume vs. abort) should call Do directly and run Classify
// themselves, as the chunk uploader does.
func (c *Client) WithRetry(ctx context.Context, req Request, maxRetries int, sleep Sleep) (*Response, error) {
	if sleep == nil {
		sleep = realSleep
	}

	var (
		lastResp *Response
		lastErr  error
	)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := c.Do(ctx, req)
		if err == nil && resp.OK() {
			return resp, nil
		}

		lastResp, lastErr = resp, err

		retry := attempt < maxRetries
		delay := defaultRetryBackoff

		if err != nil {
			recovery := uploaderr.Classify(err)
			retry = retry && recovery.Action == uploaderr.ActionRetry
			delay = recovery.Delay
		} else {
			retry = retry && isRetryableStatus(resp.StatusCode)
		}

		if !retry {
			return lastResp, lastErr
		}

		c.Logger.Warn("retrying request",
			slog.String("method", req.Method),
			slog.String("url", req.URL),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
		)

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return nil, uploaderr.New(uploaderr.CodeCancelled, false,
				fmt.Sprintf("%s %s: canceled during retry backoff: %v", req.Method, req.URL, sleepErr), nil)
		}
	}

	return lastResp, lastErr
}
