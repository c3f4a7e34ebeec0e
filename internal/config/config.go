// Package config loads the application configuration: defaults, then an
// optional YAML file, then CF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

// Config is the application configuration.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	ModulesPath string        `yaml:"modules_path"`
	Log         LogConfig     `yaml:"log"`
	Cache       CacheConfig   `yaml:"cache"`
	PreviewSize int           `yaml:"preview_size"`
	Modules     ModulesConfig `yaml:"modules"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ModulesConfig holds per-implementation settings, keyed by registry name.
type ModulesConfig struct {
	Parsers        map[string]contracts.Values `yaml:"parsers"`
	LLMProviders   map[string]contracts.Values `yaml:"llm_providers"`
	Agents         map[string]contracts.Values `yaml:"agents"`
	SocialNetworks map[string]contracts.Values `yaml:"social_networks"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		ModulesPath: "modules",
		Log:         LogConfig{Level: "info", Format: "text"},
		Cache:       DefaultCacheConfig(),
		PreviewSize: 3,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
//
// Environment variables:
//   - CF_ADDR: HTTP listen address (default: :8000)
//   - CF_MODULES_PATH: module tree root (default: modules)
//   - CF_LOG_LEVEL: debug, info, warn or error (default: info)
//   - CF_LOG_FORMAT: text or json (default: text)
//   - CF_PREVIEW_SIZE: items returned by a parser test (default: 3)
//   - CF_SHUTDOWN_TIMEOUT: graceful shutdown budget, e.g. 10s
//   - CF_CACHE_*: see CacheConfig
func (c *Config) ApplyEnv() error {
	return errors.Join(
		parseEnvString("CF_ADDR", &c.Server.Addr),
		parseEnvString("CF_MODULES_PATH", &c.ModulesPath),
		parseEnvString("CF_LOG_LEVEL", &c.Log.Level),
		parseEnvString("CF_LOG_FORMAT", &c.Log.Format),
		parseEnvInt("CF_PREVIEW_SIZE", &c.PreviewSize),
		parseEnvDuration("CF_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout),
		c.Cache.applyEnv(),
	)
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("server timeouts cannot be negative")
	}
	if c.ModulesPath == "" {
		return errors.New("modules_path must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error (got %q)", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json' (got %q)", c.Log.Format)
	}
	if c.PreviewSize < 1 || c.PreviewSize > 100 {
		return fmt.Errorf("preview_size must be between 1 and 100 (got %d)", c.PreviewSize)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// ModuleSettings returns the per-module settings keyed by kind.
func (c Config) ModuleSettings() map[contracts.Kind]map[string]contracts.Values {
	return map[contracts.Kind]map[string]contracts.Values{
		contracts.KindParser:        c.Modules.Parsers,
		contracts.KindLLMProvider:   c.Modules.LLMProviders,
		contracts.KindAgent:         c.Modules.Agents,
		contracts.KindSocialNetwork: c.Modules.SocialNetworks,
	}
}
