package ai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/steveyegge/contentfactory/internal/fetch"
)

// ErrorType buckets a failed call by how the caller should react.
type ErrorType string

const (
	ErrorTransient ErrorType = "transient" // retry with backoff
	ErrorQuota     ErrorType = "quota"     // retry after the server's wait
	ErrorAuth      ErrorType = "auth"      // never retry
	ErrorInvalid   ErrorType = "invalid"   // never retry
	ErrorUnknown   ErrorType = "unknown"
)

// defaultQuotaWait is used when a 429 carries no usable header.
const defaultQuotaWait = time.Minute

// classifyError inspects err and reports its type and, for quota errors,
// how long the server asked us to wait.
func classifyError(err error) (ErrorType, time.Duration) {
	if err == nil {
		return ErrorUnknown, 0
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return ErrorInvalid, 0
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return classifyStatus(apiErr.StatusCode, header)
	}

	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		if fetchErr.Status != 0 {
			return classifyStatus(fetchErr.Status, nil)
		}
		return ErrorTransient, 0
	}

	return classifyMessage(err.Error())
}

func classifyStatus(status int, header http.Header) (ErrorType, time.Duration) {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorQuota, retryAfter(header)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuth, 0
	case status >= 500 || status == http.StatusRequestTimeout:
		return ErrorTransient, 0
	case status >= 400:
		return ErrorInvalid, 0
	default:
		return ErrorUnknown, 0
	}
}

// classifyMessage is the fallback for errors that carry no status code.
func classifyMessage(msg string) (ErrorType, time.Duration) {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return ErrorQuota, defaultQuotaWait
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized"):
		return ErrorAuth, 0
	case strings.Contains(msg, "400") || strings.Contains(msg, "404") || strings.Contains(msg, "bad request"):
		return ErrorInvalid, 0
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporary failure"),
		strings.Contains(msg, "service unavailable"),
		strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return ErrorTransient, 0
	default:
		return ErrorUnknown, 0
	}
}

// retryAfter reads Retry-After (seconds) or X-RateLimit-Reset (unix time).
func retryAfter(header http.Header) time.Duration {
	if header == nil {
		return defaultQuotaWait
	}
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}
	if v := header.Get("X-RateLimit-Reset"); v != "" {
		if ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			if d := time.Until(time.Unix(ts, 0)); d > 0 {
				return d
			}
		}
	}
	return defaultQuotaWait
}

// isRetriableError reports whether another attempt could succeed. Unknown
// errors are retried.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	kind, _ := classifyError(err)
	switch kind {
	case ErrorAuth, ErrorInvalid:
		return false
	default:
		return true
	}
}
