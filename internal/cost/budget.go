// Package cost tracks LLM token usage against an hourly budget. Providers
// record usage after each call and ask CanProceed before the next one.
package cost

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/steveyegge/contentfactory/internal/logging"
)

// ErrBudgetExceeded is returned by providers that refuse a call because the
// current window's budget is spent.
var ErrBudgetExceeded = errors.New("budget exceeded")

// BudgetStatus represents the current budget state
type BudgetStatus int

const (
	// BudgetHealthy indicates normal operation - under budget limits
	BudgetHealthy BudgetStatus = iota
	// BudgetWarning indicates usage past the alert threshold
	BudgetWarning
	// BudgetExceeded indicates budget limits have been exceeded
	BudgetExceeded
)

// String returns a human-readable string representation of the budget status
func (s BudgetStatus) String() string {
	switch s {
	case BudgetHealthy:
		return "HEALTHY"
	case BudgetWarning:
		return "WARNING"
	case BudgetExceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// BudgetStats contains budget statistics
type BudgetStats struct {
	Status           BudgetStatus `json:"status"`
	HourlyTokensUsed int64        `json:"hourly_tokens_used"`
	HourlyCostUsed   float64      `json:"hourly_cost_used"`
	TotalTokensUsed  int64        `json:"total_tokens_used"`
	TotalCostUsed    float64      `json:"total_cost_used"`
	Calls            int64        `json:"calls"`
	WindowStartTime  time.Time    `json:"window_start_time"`
}

// Tracker tracks token budgets and enforces limits
type Tracker struct {
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu               sync.Mutex
	hourlyTokensUsed int64
	hourlyCostUsed   float64
	totalTokensUsed  int64
	totalCostUsed    float64
	calls            int64
	windowStart      time.Time
	warningLogged    bool
}

// NewTracker creates a new budget tracker
func NewTracker(cfg Config, logger *slog.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid budget config: %w", err)
	}
	t := &Tracker{config: cfg, logger: logging.OrDefault(logger), now: time.Now}
	t.windowStart = t.now()
	return t, nil
}

// RecordUsage adds one call's tokens and returns the status afterwards.
func (t *Tracker) RecordUsage(inputTokens, outputTokens int64) BudgetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()

	total := inputTokens + outputTokens
	cost := t.calculateCost(inputTokens, outputTokens)
	t.hourlyTokensUsed += total
	t.hourlyCostUsed += cost
	t.totalTokensUsed += total
	t.totalCostUsed += cost
	t.calls++

	status := t.statusLocked()
	switch status {
	case BudgetWarning:
		if !t.warningLogged {
			t.warningLogged = true
			t.logger.Warn("token budget nearly spent",
				"tokens", t.hourlyTokensUsed, "max_tokens", t.config.MaxTokensPerHour,
				"cost", t.hourlyCostUsed, "max_cost", t.config.MaxCostPerHour)
		}
	case BudgetExceeded:
		t.logger.Warn("token budget exceeded",
			"tokens", t.hourlyTokensUsed, "max_tokens", t.config.MaxTokensPerHour,
			"cost", t.hourlyCostUsed, "max_cost", t.config.MaxCostPerHour)
	}
	return status
}

// CanProceed returns false and a reason when the window's budget is spent.
func (t *Tracker) CanProceed() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()
	if t.isHourlyTokenLimitExceeded() {
		return false, fmt.Sprintf("hourly token budget exceeded (%d/%d tokens used)",
			t.hourlyTokensUsed, t.config.MaxTokensPerHour)
	}
	if t.isHourlyCostLimitExceeded() {
		return false, fmt.Sprintf("hourly cost budget exceeded ($%.2f/$%.2f used)",
			t.hourlyCostUsed, t.config.MaxCostPerHour)
	}
	return true, ""
}

// Check returns ErrBudgetExceeded, wrapped with the reason, when a call
// should not be made.
func (t *Tracker) Check() error {
	if ok, reason := t.CanProceed(); !ok {
		return fmt.Errorf("%w: %s", ErrBudgetExceeded, reason)
	}
	return nil
}

// Stats returns current budget statistics
func (t *Tracker) Stats() BudgetStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()
	return BudgetStats{
		Status:           t.statusLocked(),
		HourlyTokensUsed: t.hourlyTokensUsed,
		HourlyCostUsed:   t.hourlyCostUsed,
		TotalTokensUsed:  t.totalTokensUsed,
		TotalCostUsed:    t.totalCostUsed,
		Calls:            t.calls,
		WindowStartTime:  t.windowStart,
	}
}

// statusLocked must be called with mu held.
func (t *Tracker) statusLocked() BudgetStatus {
	if t.isHourlyTokenLimitExceeded() || t.isHourlyCostLimitExceeded() {
		return BudgetExceeded
	}
	if t.config.MaxTokensPerHour > 0 &&
		float64(t.hourlyTokensUsed)/float64(t.config.MaxTokensPerHour) >= t.config.AlertThreshold {
		return BudgetWarning
	}
	if t.config.MaxCostPerHour > 0 && t.hourlyCostUsed/t.config.MaxCostPerHour >= t.config.AlertThreshold {
		return BudgetWarning
	}
	return BudgetHealthy
}

func (t *Tracker) isHourlyTokenLimitExceeded() bool {
	return t.config.MaxTokensPerHour > 0 && t.hourlyTokensUsed >= t.config.MaxTokensPerHour
}

func (t *Tracker) isHourlyCostLimitExceeded() bool {
	return t.config.MaxCostPerHour > 0 && t.hourlyCostUsed >= t.config.MaxCostPerHour
}

func (t *Tracker) calculateCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) * t.config.InputTokenCost / 1_000_000
	outputCost := float64(outputTokens) * t.config.OutputTokenCost / 1_000_000
	return inputCost + outputCost
}

// checkAndResetWindow must be called with mu held.
func (t *Tracker) checkAndResetWindow() {
	now := t.now()
	if now.Sub(t.windowStart) >= t.config.ResetInterval {
		t.hourlyTokensUsed = 0
		t.hourlyCostUsed = 0
		t.windowStart = now
		t.warningLogged = false
	}
}
