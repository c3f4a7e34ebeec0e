// Package ai wraps calls to LLM backends with retry, a circuit breaker and
// a concurrency limit. Provider modules route every network call through a
// Caller.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/steveyegge/contentfactory/internal/logging"
)

// RetryConfig holds retry configuration for API calls
type RetryConfig struct {
	MaxRetries        int           // default 3
	InitialBackoff    time.Duration // default 1s
	MaxBackoff        time.Duration // default 30s
	BackoffMultiplier float64       // default 2.0
	Timeout           time.Duration // per attempt, default 60s

	CircuitBreakerEnabled bool
	FailureThreshold      int           // failures before opening, default 5
	SuccessThreshold      int           // half-open successes before closing, default 2
	OpenTimeout           time.Duration // default 30s

	MaxConcurrentCalls int // 0 = unlimited
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               60 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
		MaxConcurrentCalls:    3,
	}
}

// Caller runs operations with retry and exponential backoff.
type Caller struct {
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewCaller builds a caller. A zero MaxRetries selects the defaults.
func NewCaller(retry RetryConfig, logger *slog.Logger) *Caller {
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = DefaultRetryConfig()
	}
	if retry.BackoffMultiplier < 1 {
		retry.BackoffMultiplier = 1
	}
	logger = logging.OrDefault(logger)

	c := &Caller{retry: retry, logger: logger, sleep: sleepCtx}
	if retry.CircuitBreakerEnabled {
		c.breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout, logger)
	}
	if retry.MaxConcurrentCalls > 0 {
		c.sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}
	return c
}

// Breaker returns the circuit breaker, or nil when disabled.
func (c *Caller) Breaker() *CircuitBreaker {
	return c.breaker
}

// Do runs fn until it succeeds, fails with a non-retriable error, or the
// retries are exhausted. Each attempt gets its own timeout.
func (c *Caller) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%s: acquire concurrency slot: %w", operation, err)
		}
		defer c.sem.Release(1)
	}

	var lastErr error
	backoff := c.retry.InitialBackoff

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.breaker != nil {
			if err := c.breaker.Allow(); err != nil {
				state, failures, _ := c.breaker.Metrics()
				c.logger.Warn("call blocked by circuit breaker",
					"operation", operation, "state", state.String(), "failures", failures)
				return fmt.Errorf("%s: %w", operation, err)
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.retry.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.retry.Timeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			if attempt > 0 {
				c.logger.Info("call succeeded after retries", "operation", operation, "retries", attempt)
			}
			return nil
		}
		lastErr = err

		kind, wait := classifyError(err)
		if !isRetriableError(err) {
			c.logger.Warn("call failed with non-retriable error", "operation", operation, "type", string(kind), "err", err)
			return err
		}
		// auth and invalid requests never count against the breaker
		if c.breaker != nil {
			c.breaker.recordFailureWithType(kind)
		}

		if attempt == c.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", operation, ctx.Err())
		}

		delay := backoff
		if wait > delay {
			delay = wait
		}
		if c.retry.MaxBackoff > 0 && delay > c.retry.MaxBackoff {
			delay = c.retry.MaxBackoff
		}
		c.logger.Info("call failed, retrying", "operation", operation,
			"attempt", attempt+1, "of", c.retry.MaxRetries+1, "delay", delay, "err", err)

		if err := c.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: canceled during backoff: %w", operation, err)
		}
		backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
		if c.retry.MaxBackoff > 0 && backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, c.retry.MaxRetries+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
