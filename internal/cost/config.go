package cost

import (
	"fmt"
	"time"
)

// Config holds token budgeting configuration for one provider
type Config struct {
	// MaxTokensPerHour is the maximum number of tokens (input + output) allowed per window
	// 0 = unlimited
	MaxTokensPerHour int64 `json:"max_tokens_per_hour"`

	// MaxCostPerHour is the maximum cost in USD allowed per window
	// 0.0 = unlimited
	MaxCostPerHour float64 `json:"max_cost_per_hour"`

	// AlertThreshold is the share of a limit that moves the status to WARNING
	// Default: 0.80
	AlertThreshold float64 `json:"alert_threshold"`

	// ResetInterval is the length of the budget window
	// Default: 1 hour
	ResetInterval time.Duration `json:"reset_interval"`

	// InputTokenCost is the cost per 1M input tokens (in USD)
	// Default: $3.00 for Claude Sonnet 4.5
	InputTokenCost float64 `json:"input_token_cost"`

	// OutputTokenCost is the cost per 1M output tokens (in USD)
	// Default: $15.00 for Claude Sonnet 4.5
	OutputTokenCost float64 `json:"output_token_cost"`
}

// DefaultConfig returns an unlimited budget with Sonnet pricing.
func DefaultConfig() Config {
	return Config{
		AlertThreshold:  0.80,
		ResetInterval:   time.Hour,
		InputTokenCost:  3.00,
		OutputTokenCost: 15.00,
	}
}

// Enabled reports whether any limit is set.
func (c Config) Enabled() bool {
	return c.MaxTokensPerHour > 0 || c.MaxCostPerHour > 0
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxTokensPerHour < 0 {
		return fmt.Errorf("max_tokens_per_hour must be non-negative (got %d)", c.MaxTokensPerHour)
	}
	if c.MaxCostPerHour < 0 {
		return fmt.Errorf("max_cost_per_hour must be non-negative (got %.2f)", c.MaxCostPerHour)
	}
	if c.AlertThreshold <= 0 || c.AlertThreshold > 1 {
		return fmt.Errorf("alert_threshold must be in (0, 1] (got %.2f)", c.AlertThreshold)
	}
	if c.ResetInterval <= 0 {
		return fmt.Errorf("reset_interval must be positive (got %v)", c.ResetInterval)
	}
	if c.InputTokenCost < 0 || c.OutputTokenCost < 0 {
		return fmt.Errorf("token costs must be non-negative")
	}
	return nil
}
