// Package newsprocessor is an agent that pulls a source through a parser
// and returns the headlines.
package newsprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/deduplication"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/schema"
)

const (
	Name          = "news_processor"
	DefaultParser = "rss_parser"
	DefaultLimit  = 5
)

func init() {
	discovery.Provide("agents/news_processor", New)
}

// Config is the agent's accepted configuration.
type Config struct {
	Parser string `json:"parser,omitempty" jsonschema:"default=rss_parser"`
	Limit  int    `json:"limit,omitempty" jsonschema:"minimum=1,default=5"`
	// Dedupe drops repeated stories before the limit is applied.
	Dedupe *bool `json:"dedupe,omitempty" jsonschema:"default=true"`
	// SimilarityThreshold is the title similarity at which two stories match.
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" jsonschema:"minimum=0,maximum=1,default=0.85"`
}

// Headline is one entry of a task result.
type Headline struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Agent turns a source into headlines.
type Agent struct {
	contracts.StatusTracker

	mu          sync.RWMutex
	cfg         Config
	dedupe      *deduplication.Config
	deps        contracts.Dependencies
	initialized bool
}

func New() (*Agent, error) {
	dedupe := deduplication.DefaultConfig()
	return &Agent{cfg: Config{Parser: DefaultParser, Limit: DefaultLimit}, dedupe: &dedupe}, nil
}

func (a *Agent) AgentName() string              { return Name }
func (a *Agent) AgentRole() contracts.AgentRole { return contracts.RoleNewsProcessor }
func (a *Agent) Version() string                { return "1.0.0" }
func (a *Agent) Description() string            { return "Collects headlines from a source through a parser" }

func (a *Agent) ConfigSchema() schema.Document {
	return schema.Reflect(&Config{})
}

func (a *Agent) SetDependencies(deps contracts.Dependencies) {
	a.mu.Lock()
	a.deps = deps
	a.mu.Unlock()
}

func (a *Agent) Initialize(_ context.Context, values contracts.Values) error {
	cfg := Config{
		Parser: values.String("parser", DefaultParser),
		Limit:  values.Int("limit", DefaultLimit),
	}
	if cfg.Parser == "" {
		return fmt.Errorf("%w: parser must not be empty", contracts.ErrInvalidConfig)
	}
	if cfg.Limit < 1 {
		return fmt.Errorf("%w: limit must be positive, got %d", contracts.ErrInvalidConfig, cfg.Limit)
	}

	var dedupe *deduplication.Config
	if values.Bool("dedupe", true) {
		d := deduplication.DefaultConfig()
		d.SimilarityThreshold = values.Float("similarity_threshold", d.SimilarityThreshold)
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: %v", contracts.ErrInvalidConfig, err)
		}
		dedupe = &d
	}

	a.mu.Lock()
	a.cfg = cfg
	a.dedupe = dedupe
	a.initialized = true
	a.mu.Unlock()
	a.SetStatus(contracts.StatusIdle)
	return nil
}

// ValidateInput requires a source string.
func (a *Agent) ValidateInput(_ context.Context, input contracts.Values) bool {
	return input.String("source", "") != ""
}

// ExecuteTask parses task["source"] and returns up to limit headlines.
// task["limit"] overrides the configured limit.
func (a *Agent) ExecuteTask(ctx context.Context, task contracts.Task) (contracts.Result, error) {
	a.mu.RLock()
	cfg, dedupe, deps, ready := a.cfg, a.dedupe, a.deps, a.initialized
	a.mu.RUnlock()

	if !ready || deps.Parser == nil {
		return nil, fmt.Errorf("%s: %w", Name, contracts.ErrNotInitialized)
	}
	if !a.ValidateInput(ctx, task) {
		return nil, fmt.Errorf("%w: %s task needs a source", contracts.ErrInvalidConfig, Name)
	}
	parser, ok := deps.Parser(cfg.Parser)
	if !ok {
		return nil, fmt.Errorf("parser %q: %w", cfg.Parser, contracts.ErrNotFound)
	}

	source := task.String("source", "")
	if !parser.ValidateSource(source) {
		return nil, fmt.Errorf("%w: %s rejects source %q", contracts.ErrInvalidConfig, cfg.Parser, source)
	}

	limit := task.Int("limit", cfg.Limit)
	if limit < 1 {
		limit = cfg.Limit
	}

	a.SetStatus(contracts.StatusProcessing)
	items, err := parser.Parse(ctx, source)
	if err != nil {
		a.SetStatus(contracts.StatusError)
		return nil, fmt.Errorf("processing %s: %w", source, err)
	}

	parsed := len(items)
	if dedupe != nil {
		res := deduplication.Deduplicate(items, *dedupe)
		items = res.Unique
	}

	headlines := make([]Headline, 0, min(limit, len(items)))
	for _, item := range items {
		if len(headlines) == limit {
			break
		}
		headlines = append(headlines, Headline{
			Title:       item.Text("title"),
			URL:         item.Text("url"),
			PublishedAt: item.Text("published_at"),
		})
	}
	a.SetStatus(contracts.StatusCompleted)
	logging.FromContext(ctx).Debug("news processed", "source", source, "parsed", parsed, "unique", len(items), "kept", len(headlines))

	return contracts.Result{"items": headlines, "count": len(headlines), "duplicates": parsed - len(items)}, nil
}
