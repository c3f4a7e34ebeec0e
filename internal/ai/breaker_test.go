package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/logging"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker(3, 2, 30*time.Second, logging.Discard())
	cb.now = clock.now
	return cb
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := newTestBreaker(clock)

	require.NoError(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	clock.advance(31 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	state, failures, successes := cb.Metrics()
	assert.Equal(t, CircuitClosed, state)
	assert.Zero(t, failures)
	assert.Zero(t, successes)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := newTestBreaker(clock)
	for range 3 {
		cb.RecordFailure()
	}
	clock.advance(time.Minute)
	require.NoError(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := newTestBreaker(&fakeClock{t: time.Now()})
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	_, failures, _ := cb.Metrics()
	assert.Equal(t, 1, failures)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerQuotaWeighting(t *testing.T) {
	cb := NewCircuitBreaker(5, 2, 30*time.Second, logging.Discard())

	cb.recordFailureWithType(ErrorQuota)
	state, failures, _ := cb.Metrics()
	assert.Equal(t, CircuitClosed, state)
	assert.Equal(t, 3, failures)

	cb.recordFailureWithType(ErrorQuota)
	state, failures, _ = cb.Metrics()
	assert.Equal(t, CircuitOpen, state)
	assert.Equal(t, 6, failures)
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", CircuitClosed.String())
	assert.Equal(t, "OPEN", CircuitOpen.String())
	assert.Equal(t, "HALF_OPEN", CircuitHalfOpen.String())
	assert.Equal(t, "UNKNOWN", CircuitState(9).String())
}

func TestCircuitBreakerRecord(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := newTestBreaker(clock)

	cb.Record(context.Canceled)
	cb.Record(ErrCircuitOpen)
	_, failures, _ := cb.Metrics()
	assert.Zero(t, failures, "non-retriable errors do not count")

	for range 3 {
		cb.Record(errors.New("connection reset by peer"))
	}
	assert.Equal(t, CircuitOpen, cb.State())

	clock.advance(time.Minute)
	require.NoError(t, cb.Allow())
	cb.Record(nil)
	cb.Record(nil)
	assert.Equal(t, CircuitClosed, cb.State())
}
