package contracts

import (
	"fmt"
	"time"
)

// Parser config defaults.
const (
	DefaultParserTimeout = 10 * time.Second
	DefaultRetryCount    = 3
	DefaultCacheDuration = time.Hour
)

// LLM config defaults. An empty model means "provider default".
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultTopP        = 1.0
)

// ParserConfig is the configuration handed to Parser.Initialize. Known keys
// are decoded into fields; everything else stays in Extra for the parser.
type ParserConfig struct {
	Enabled       bool
	Timeout       time.Duration
	RetryCount    int
	CacheDuration time.Duration
	Extra         Values
}

// DefaultParserConfig returns the parser defaults.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Enabled:       true,
		Timeout:       DefaultParserTimeout,
		RetryCount:    DefaultRetryCount,
		CacheDuration: DefaultCacheDuration,
		Extra:         Values{},
	}
}

// NewParserConfig fills defaults for any absent key. timeout and
// cache_duration are given in seconds.
func NewParserConfig(values Values) (ParserConfig, error) {
	cfg := DefaultParserConfig()
	for key, raw := range values {
		switch key {
		case "enabled":
			b, ok := toBool(raw)
			if !ok {
				return cfg, invalidKey(key, raw)
			}
			cfg.Enabled = b
		case "timeout":
			n, ok := toFloat(raw)
			if !ok || n <= 0 {
				return cfg, invalidKey(key, raw)
			}
			cfg.Timeout = time.Duration(n * float64(time.Second))
		case "retry_count":
			n, ok := toInt(raw)
			if !ok || n < 0 {
				return cfg, invalidKey(key, raw)
			}
			cfg.RetryCount = n
		case "cache_duration":
			n, ok := toInt(raw)
			if !ok || n < 0 {
				return cfg, invalidKey(key, raw)
			}
			cfg.CacheDuration = time.Duration(n) * time.Second
		default:
			cfg.Extra[key] = raw
		}
	}
	return cfg, nil
}

// Values renders the config back into its open form.
func (c ParserConfig) Values() Values {
	out := c.Extra.Clone()
	out["enabled"] = c.Enabled
	out["timeout"] = c.Timeout.Seconds()
	out["retry_count"] = c.RetryCount
	out["cache_duration"] = int(c.CacheDuration / time.Second)
	return out
}

// LLMConfig is the configuration handed to Provider.Initialize.
type LLMConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Extra       Values
}

// DefaultLLMConfig returns the provider defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
		Extra:       Values{},
	}
}

// NewLLMConfig fills defaults for any absent key. A null model is the same
// as an absent one.
func NewLLMConfig(values Values) (LLMConfig, error) {
	cfg := DefaultLLMConfig()
	for key, raw := range values {
		switch key {
		case "model":
			if raw == nil {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				return cfg, invalidKey(key, raw)
			}
			cfg.Model = s
		case "temperature":
			f, ok := toFloat(raw)
			if !ok || f < 0 || f > 2 {
				return cfg, invalidKey(key, raw)
			}
			cfg.Temperature = f
		case "max_tokens":
			n, ok := toInt(raw)
			if !ok || n <= 0 {
				return cfg, invalidKey(key, raw)
			}
			cfg.MaxTokens = n
		case "top_p":
			f, ok := toFloat(raw)
			if !ok || f < 0 || f > 1 {
				return cfg, invalidKey(key, raw)
			}
			cfg.TopP = f
		default:
			cfg.Extra[key] = raw
		}
	}
	return cfg, nil
}

// Values renders the config back into its open form.
func (c LLMConfig) Values() Values {
	out := c.Extra.Clone()
	if c.Model == "" {
		out["model"] = nil
	} else {
		out["model"] = c.Model
	}
	out["temperature"] = c.Temperature
	out["max_tokens"] = c.MaxTokens
	out["top_p"] = c.TopP
	return out
}

func invalidKey(key string, raw any) error {
	return fmt.Errorf("%w: %s has unusable value %v (%T)", ErrInvalidConfig, key, raw, raw)
}
