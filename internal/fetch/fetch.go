// Package fetch is the HTTP client shared by modules that pull content from
// or push content to remote services. It bounds every attempt with a
// timeout, paces requests, retries transient failures and classifies errors.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

// Error codes.
const (
	CodeTimeout           = "TIMEOUT"
	CodeHostNotFound      = "HOST_NOT_FOUND"
	CodeConnectionRefused = "CONNECTION_REFUSED"
	CodeHTTPStatus        = "HTTP_STATUS"
	CodeBodyTooLarge      = "BODY_TOO_LARGE"
	CodeRequestFailed     = "REQUEST_FAILED"
	CodeInvalidURL        = "INVALID_URL"
)

// Defaults.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultBackoff     = 500 * time.Millisecond
	DefaultMaxBackoff  = 10 * time.Second
	DefaultMaxBodySize = 10 << 20
)

// Error describes a failed request. It matches contracts.ErrConnection with
// errors.Is.
type Error struct {
	Code   string
	Method string
	URL    string
	Status int
	// Body holds the response body of an HTTP_STATUS failure.
	Body []byte
	Err  error
}

func (e *Error) Error() string {
	if e.Code == CodeHTTPStatus {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Code)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{contracts.ErrConnection}
	}
	return []error{contracts.ErrConnection, e.Err}
}

// Code returns the classification code of err, or "" when err did not come
// from this package.
func Code(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
}

// Client performs bounded, paced and retried HTTP requests.
type Client struct {
	http       *http.Client
	userAgent  string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	maxBody    int64
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the initial and maximum retry delays.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.backoff = initial
		c.maxBackoff = maxDelay
	}
}

// WithMaxBodySize caps how much of a response body is read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// WithRateLimit paces requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client with defaults: 10s per attempt, no retries, no pacing.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		timeout:    DefaultTimeout,
		backoff:    DefaultBackoff,
		maxBackoff: DefaultMaxBackoff,
		maxBody:    DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url. Non-2xx responses are returned as *Error with code
// HTTP_STATUS.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, nil)
}

// PostJSON sends in as JSON and decodes the response into out when out is
// not nil.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	resp, err := c.Do(ctx, http.MethodPost, url, body, header)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", contracts.ErrParse, url, err)
	}
	return nil
}

// Do performs a request with retries.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	if err := checkURL(url); err != nil {
		return nil, &Error{Code: CodeInvalidURL, Method: method, URL: url, Err: err}
	}

	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt <= c.retries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &Error{Code: CodeTimeout, Method: method, URL: url, Err: err}
			}
		}

		resp, err := c.attempt(ctx, method, url, body, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retriable(err) || attempt == c.retries {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		case <-ctx.Done():
			return nil, &Error{Code: CodeTimeout, Method: method, URL: url, Err: ctx.Err()}
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, &Error{Code: CodeInvalidURL, Method: method, URL: url, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Code: classify(attemptCtx, err), Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &Error{Code: classify(attemptCtx, err), Method: method, URL: url, Err: err}
	}
	if int64(len(data)) > c.maxBody {
		return nil, &Error{
			Code: CodeBodyTooLarge, Method: method, URL: url,
			Err: fmt.Errorf("body exceeds %d bytes", c.maxBody),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Code: CodeHTTPStatus, Method: method, URL: url, Status: resp.StatusCode, Body: data}
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
		URL:    resp.Request.URL.String(),
	}, nil
}

// checkURL rejects URLs no attempt could succeed with.
func checkURL(raw string) error {
	u, err := neturl.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func classify(ctx context.Context, err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() == context.DeadlineExceeded:
		return CodeTimeout
	case errors.As(err, &dnsErr):
		return CodeHostNotFound
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	}
	return CodeRequestFailed
}

func retriable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Code {
	case CodeTimeout, CodeConnectionRefused, CodeRequestFailed:
		return true
	case CodeHTTPStatus:
		switch fe.Status {
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
