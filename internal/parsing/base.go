// Package parsing holds the pieces every HTTP-backed parser shares: config
// bookkeeping, source validation and a configured fetch client.
package parsing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/fetch"
)

// Base stores a parser's config and builds its fetch client. Embed a *Base
// and call Init from Initialize.
type Base struct {
	mu             sync.RWMutex
	cfg            contracts.ParserConfig
	client         *fetch.Client
	userAgent      string
	defaultTimeout time.Duration
}

// NewBase returns a Base holding default config and a default client.
func NewBase(userAgent string, timeout time.Duration) *Base {
	cfg := contracts.DefaultParserConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return &Base{
		cfg:            cfg,
		userAgent:      userAgent,
		defaultTimeout: cfg.Timeout,
		client:         newClient(cfg, userAgent),
	}
}

// Init replaces the config. When cfg carries the generic default timeout,
// the parser's own default timeout is kept. A user_agent key in Extra
// overrides the parser's User-Agent.
func (b *Base) Init(cfg contracts.ParserConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.Timeout == contracts.DefaultParserTimeout {
		cfg.Timeout = b.defaultTimeout
	}
	ua := cfg.Extra.String("user_agent", "")
	if ua == "" {
		ua = b.userAgent
	}
	b.cfg = cfg
	b.client = newClient(cfg, ua)
}

// Config returns the current config.
func (b *Base) Config() contracts.ParserConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// CacheDuration reports how long this parser's output may be reused.
func (b *Base) CacheDuration() time.Duration {
	return b.Config().CacheDuration
}

// Fetch retrieves source with the configured timeout and retries. A
// disabled parser refuses to fetch.
func (b *Base) Fetch(ctx context.Context, source string) (*fetch.Response, error) {
	b.mu.RLock()
	enabled, client := b.cfg.Enabled, b.client
	b.mu.RUnlock()

	if !enabled {
		return nil, fmt.Errorf("parser is disabled: %w", contracts.ErrUnsupported)
	}
	return client.Get(ctx, source)
}

// Enabled reports whether the parser may run.
func (b *Base) Enabled() bool {
	return b.Config().Enabled
}

func newClient(cfg contracts.ParserConfig, userAgent string) *fetch.Client {
	return fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRetries(cfg.RetryCount),
		fetch.WithUserAgent(userAgent),
	)
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
