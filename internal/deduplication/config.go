package deduplication

import "fmt"

// Config holds configuration for item deduplication
type Config struct {
	// SimilarityThreshold is the minimum title similarity (0.0-1.0) to mark as duplicate
	// Higher values = more conservative (fewer false positives, more false negatives)
	// Default: 0.85
	SimilarityThreshold float64

	// CompareTitles enables title similarity checks in addition to URL matching
	// Default: true
	CompareTitles bool

	// MinTitleLength is the minimum title length to compare titles at all
	// Very short titles ("Update", "News") say little about the story
	// Default: 10 characters
	MinTitleLength int
}

// DefaultConfig returns the default deduplication configuration
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		CompareTitles:       true,
		MinTitleLength:      10,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1] (got %.2f)", c.SimilarityThreshold)
	}
	if c.MinTitleLength < 0 {
		return fmt.Errorf("min_title_length cannot be negative (got %d)", c.MinTitleLength)
	}
	return nil
}
