package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

var envKeys = []string{
	"CF_ADDR", "CF_MODULES_PATH", "CF_LOG_LEVEL", "CF_LOG_FORMAT", "CF_PREVIEW_SIZE",
	"CF_SHUTDOWN_TIMEOUT", "CF_CACHE_ENABLED", "CF_CACHE_PATH", "CF_CACHE_RETENTION_HOURS",
	"CF_CACHE_CLEANUP_INTERVAL_MINUTES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "modules", cfg.ModulesPath)
	assert.Equal(t, 3, cfg.PreviewSize)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Cache.Retention())
	assert.Equal(t, time.Hour, cfg.Cache.CleanupInterval())
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  addr: 127.0.0.1:9090
  shutdown_timeout: 3s
modules_path: ./plugins
log:
  level: debug
  format: json
cache:
  enabled: false
preview_size: 5
modules:
  parsers:
    rss_parser:
      timeout: 5
      rss_url: https://example.com/feed.xml
  llm_providers:
    anthropic:
      model: claude-haiku-4-5
  social_networks:
    telegram:
      chat_id: -100123
      extra:
        nested: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset fields keep defaults")
	assert.Equal(t, "./plugins", cfg.ModulesPath)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5, cfg.PreviewSize)

	settings := cfg.ModuleSettings()
	rss := settings[contracts.KindParser]["rss_parser"]
	assert.Equal(t, 5, rss.Int("timeout", 0))
	assert.Equal(t, "https://example.com/feed.xml", rss.String("rss_url", ""))
	assert.Equal(t, "claude-haiku-4-5", settings[contracts.KindLLMProvider]["anthropic"].String("model", ""))
	tg := settings[contracts.KindSocialNetwork]["telegram"]
	assert.Equal(t, -100123, tg.Int("chat_id", 0))
	assert.Equal(t, true, tg.Map("extra").Bool("nested", false))
	assert.Nil(t, settings[contracts.KindAgent])
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")

	_, err = Load(writeFile(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "parsing config")

	_, err = Load(writeFile(t, "log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "log.format")
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "overrides",
			envVars: map[string]string{
				"CF_ADDR":                  ":9999",
				"CF_MODULES_PATH":          "/opt/cf/modules",
				"CF_LOG_LEVEL":             "warn",
				"CF_PREVIEW_SIZE":          "7",
				"CF_SHUTDOWN_TIMEOUT":      "1m",
				"CF_CACHE_ENABLED":         "false",
				"CF_CACHE_RETENTION_HOURS": "48",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, ":9999", cfg.Server.Addr)
				assert.Equal(t, "/opt/cf/modules", cfg.ModulesPath)
				assert.Equal(t, "warn", cfg.Log.Level)
				assert.Equal(t, 7, cfg.PreviewSize)
				assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
				assert.False(t, cfg.Cache.Enabled)
				assert.Equal(t, 48, cfg.Cache.RetentionHours)
			},
		},
		{name: "bad int", envVars: map[string]string{"CF_PREVIEW_SIZE": "three"}, wantErr: true},
		{name: "bad bool", envVars: map[string]string{"CF_CACHE_ENABLED": "maybe"}, wantErr: true},
		{name: "bad duration", envVars: map[string]string{"CF_SHUTDOWN_TIMEOUT": "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := Default()
			err := cfg.ApplyEnv()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, errMsg: "server.addr"},
		{name: "negative timeout", mutate: func(c *Config) { c.Server.ReadTimeout = -time.Second }, errMsg: "negative"},
		{name: "empty modules path", mutate: func(c *Config) { c.ModulesPath = "" }, errMsg: "modules_path"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, errMsg: "log.level"},
		{name: "preview too big", mutate: func(c *Config) { c.PreviewSize = 1000 }, errMsg: "preview_size"},
		{name: "cache without path", mutate: func(c *Config) { c.Cache.Path = "" }, errMsg: "path"},
		{name: "cache retention", mutate: func(c *Config) { c.Cache.RetentionHours = 0 }, errMsg: "retention_hours"},
		{name: "cleanup interval", mutate: func(c *Config) { c.Cache.CleanupIntervalMinutes = -1 }, errMsg: "cleanup_interval_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	cfg := Default()
	cfg.Cache = CacheConfig{Enabled: false}
	assert.NoError(t, cfg.Validate(), "a disabled cache needs no settings")
}
