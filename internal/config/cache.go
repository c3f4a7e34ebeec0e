package config

import (
	"errors"
	"fmt"
	"time"
)

// CacheConfig holds configuration for the parsed-item cache and its cleanup
type CacheConfig struct {
	// Enabled turns the sqlite cache on for parse requests
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the sqlite database file
	// Default: .cf/cache.db
	Path string `yaml:"path"`

	// RetentionHours is how long rows are kept regardless of parser cache_duration
	// Default: 24, Range: 1-720
	RetentionHours int `yaml:"retention_hours"`

	// CleanupIntervalMinutes is how often stale rows are pruned
	// Default: 60, Range: 0-1440 (0 = never)
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:                true,
		Path:                   ".cf/cache.db",
		RetentionHours:         24,
		CleanupIntervalMinutes: 60,
	}
}

// Validate checks if the configuration has valid values
func (c CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Path == "" {
		return errors.New("path must not be empty when the cache is enabled")
	}
	if c.RetentionHours < 1 || c.RetentionHours > 720 {
		return fmt.Errorf("retention_hours must be between 1 and 720 (got %d)", c.RetentionHours)
	}
	if c.CleanupIntervalMinutes < 0 || c.CleanupIntervalMinutes > 1440 {
		return fmt.Errorf("cleanup_interval_minutes must be between 0 and 1440 (got %d)",
			c.CleanupIntervalMinutes)
	}
	return nil
}

// Retention returns RetentionHours as a duration.
func (c CacheConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// CleanupInterval returns CleanupIntervalMinutes as a duration.
func (c CacheConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// applyEnv reads:
//   - CF_CACHE_ENABLED (default: true)
//   - CF_CACHE_PATH (default: .cf/cache.db)
//   - CF_CACHE_RETENTION_HOURS (default: 24)
//   - CF_CACHE_CLEANUP_INTERVAL_MINUTES (default: 60)
func (c *CacheConfig) applyEnv() error {
	return errors.Join(
		parseEnvBool("CF_CACHE_ENABLED", &c.Enabled),
		parseEnvString("CF_CACHE_PATH", &c.Path),
		parseEnvInt("CF_CACHE_RETENTION_HOURS", &c.RetentionHours),
		parseEnvInt("CF_CACHE_CLEANUP_INTERVAL_MINUTES", &c.CleanupIntervalMinutes),
	)
}
