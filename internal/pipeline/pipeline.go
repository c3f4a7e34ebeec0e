// Package pipeline runs parsers the way every caller should: validate the
// source, probe the connection, then parse. It also backs the list and
// describe operations of the HTTP layer and CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyegge/contentfactory/internal/cache"
	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/manager"
	"github.com/steveyegge/contentfactory/internal/registry"
)

// DefaultPreviewSize is how many items a test run returns.
const DefaultPreviewSize = 3

// Stages of a parser run, reported on failure.
const (
	StageValidate = "validate"
	StageConnect  = "connect"
	StageParse    = "parse"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrInvalidSource is returned when a parser rejects a source string.
var ErrInvalidSource = errors.New("invalid source")

// Service exposes the manager's contents and runs parsers.
type Service struct {
	manager     *manager.Manager
	cache       *cache.Store
	previewSize int
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the parsed-item cache for Parse.
func WithCache(c *cache.Store) Option {
	return func(s *Service) { s.cache = c }
}

// WithPreviewSize sets how many items TestParser returns.
func WithPreviewSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewSize = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New returns a service over m.
func New(m *manager.Manager, opts ...Option) *Service {
	s := &Service{manager: m, previewSize: DefaultPreviewSize}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	return s
}

// Manager returns the underlying manager.
func (s *Service) Manager() *manager.Manager {
	return s.manager
}

// Listing is every registered implementation plus counts.
type Listing struct {
	Parsers        []registry.Descriptor `json:"parsers"`
	LLMProviders   []registry.Descriptor `json:"llm_providers"`
	Agents         []registry.Descriptor `json:"agents"`
	SocialNetworks []registry.Descriptor `json:"social_networks"`
	Stats          manager.Stats         `json:"stats"`
}

// ListAll enumerates all four kinds.
func (s *Service) ListAll() Listing {
	return Listing{
		Parsers:        s.manager.Parsers.List(),
		LLMProviders:   s.manager.Providers.List(),
		Agents:         s.manager.Agents.List(),
		SocialNetworks: s.manager.Networks.List(),
		Stats:          s.manager.Stats(),
	}
}

// ListKind enumerates one kind.
func (s *Service) ListKind(kind contracts.Kind) ([]registry.Descriptor, error) {
	return s.manager.List(kind)
}

// DescribeParser returns a parser's descriptor, or ErrNotFound.
func (s *Service) DescribeParser(name string) (registry.Descriptor, error) {
	d, ok := s.manager.Parsers.Describe(name)
	if !ok {
		return registry.Descriptor{}, fmt.Errorf("parser %q: %w", name, contracts.ErrNotFound)
	}
	return d, nil
}

// TestResult is the outcome of TestParser. On failure Stage and Message say
// what went wrong; Items is never nil.
type TestResult struct {
	Status     string                  `json:"status"`
	Parser     string                  `json:"parser"`
	Source     string                  `json:"source"`
	Stage      string                  `json:"stage,omitempty"`
	Message    string                  `json:"message,omitempty"`
	ItemsCount int                     `json:"items_count"`
	Items      []*contracts.ParsedItem `json:"items"`
	ElapsedMS  int64                   `json:"elapsed_ms"`
}

// OK reports whether the run succeeded.
func (r *TestResult) OK() bool {
	return r.Status == StatusSuccess
}

// TestParser runs the named parser against source and returns the item
// count and a preview. The only error is ErrNotFound for an unknown parser;
// every parser failure, including a panic, becomes an error result.
func (s *Service) TestParser(ctx context.Context, name, source string) (res *TestResult, err error) {
	p, ok := s.manager.Parsers.Get(name)
	if !ok {
		return nil, fmt.Errorf("parser %q: %w", name, contracts.ErrNotFound)
	}

	start := time.Now()
	result := &TestResult{Parser: name, Source: source, Items: []*contracts.ParsedItem{}}
	stage := StageValidate

	defer func() {
		if r := recover(); r != nil {
			result.fail(stage, fmt.Sprintf("parser panicked: %v", r))
			res, err = result, nil
		}
		result.ElapsedMS = time.Since(start).Milliseconds()
		s.logger.Info("parser test finished", "parser", name, "source", source,
			"status", result.Status, "stage", result.Stage, "items", result.ItemsCount)
	}()

	if !p.ValidateSource(source) {
		result.fail(stage, fmt.Sprintf("%v: %q", ErrInvalidSource, source))
		return result, nil
	}

	stage = StageConnect
	if !p.TestConnection(ctx) {
		result.fail(stage, "connection test failed")
		return result, nil
	}

	stage = StageParse
	items, perr := p.Parse(ctx, source)
	if perr != nil {
		result.fail(stage, perr.Error())
		return result, nil
	}

	result.Status = StatusSuccess
	result.ItemsCount = len(items)
	result.Items = preview(items, s.previewSize)
	return result, nil
}

func (r *TestResult) fail(stage, message string) {
	r.Status = StatusError
	r.Stage = stage
	r.Message = message
	r.ItemsCount = 0
	r.Items = []*contracts.ParsedItem{}
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Parser     string                  `json:"parser"`
	Source     string                  `json:"source"`
	Cached     bool                    `json:"cached"`
	ItemsCount int                     `json:"items_count"`
	Items      []*contracts.ParsedItem `json:"items"`
}

type cachePolicy interface {
	CacheDuration() time.Duration
}

// Parse runs the named parser against source, serving from the cache when a
// fresh entry exists. Parser failures are returned as errors.
func (s *Service) Parse(ctx context.Context, name, source string) (res *ParseResult, err error) {
	p, ok := s.manager.Parsers.Get(name)
	if !ok {
		return nil, fmt.Errorf("parser %q: %w", name, contracts.ErrNotFound)
	}
	if !p.ValidateSource(source) {
		return nil, fmt.Errorf("parser %s: %w: %q", name, ErrInvalidSource, source)
	}

	ttl := contracts.DefaultCacheDuration
	if cp, ok := p.(cachePolicy); ok {
		ttl = cp.CacheDuration()
	}

	if s.cache != nil {
		items, hit, err := s.cache.Get(ctx, name, source, ttl)
		if err != nil {
			s.logger.Warn("cache read failed", "parser", name, "err", err)
		} else if hit {
			return &ParseResult{Parser: name, Source: source, Cached: true, ItemsCount: len(items), Items: items}, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("parser %s panicked: %v", name, r)
		}
	}()
	items, err := p.Parse(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("parser %s: %w", name, err)
	}
	if items == nil {
		items = []*contracts.ParsedItem{}
	}

	if s.cache != nil && ttl > 0 {
		if err := s.cache.Put(ctx, name, source, items); err != nil {
			s.logger.Warn("cache write failed", "parser", name, "err", err)
		}
	}
	return &ParseResult{Parser: name, Source: source, ItemsCount: len(items), Items: items}, nil
}

func preview(items []*contracts.ParsedItem, n int) []*contracts.ParsedItem {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]*contracts.ParsedItem, len(items))
	copy(out, items)
	return out
}
