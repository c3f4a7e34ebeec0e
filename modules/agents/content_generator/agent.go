// Package contentgenerator is an agent that writes content from a prompt
// with whichever LLM provider it is configured to use.
package contentgenerator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/schema"
)

const (
	Name            = "content_generator"
	DefaultProvider = "anthropic"
)

func init() {
	discovery.Provide("agents/content_generator", New)
}

// Config is the agent's accepted configuration.
type Config struct {
	Provider     string `json:"provider,omitempty" jsonschema:"default=anthropic"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxTokens    int    `json:"max_tokens,omitempty" jsonschema:"minimum=1"`
}

// Agent generates text for a task's prompt.
type Agent struct {
	contracts.StatusTracker

	mu          sync.RWMutex
	cfg         Config
	deps        contracts.Dependencies
	initialized bool
}

// New returns an idle, uninitialized agent.
func New() (*Agent, error) {
	return &Agent{cfg: Config{Provider: DefaultProvider}}, nil
}

func (a *Agent) AgentName() string              { return Name }
func (a *Agent) AgentRole() contracts.AgentRole { return contracts.RoleContentGenerator }
func (a *Agent) Version() string                { return "1.0.0" }
func (a *Agent) Description() string            { return "Writes content from a prompt using an LLM provider" }

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
		Provider:     values.String("provider", DefaultProvider),
		SystemPrompt: values.String("system_prompt", ""),
		MaxTokens:    values.Int("max_tokens", 0),
	}
	if cfg.Provider == "" {
		return fmt.Errorf("%w: provider must not be empty", contracts.ErrInvalidConfig)
	}
	a.mu.Lock()
	a.cfg = cfg
	a.initialized = true
	a.mu.Unlock()
	a.SetStatus(contracts.StatusIdle)
	return nil
}

// ValidateInput requires a non-blank prompt.
func (a *Agent) ValidateInput(_ context.Context, input contracts.Values) bool {
	return strings.TrimSpace(input.String("prompt", "")) != ""
}

// ExecuteTask runs task["prompt"] through the provider. task may override
// the configured system_prompt.
func (a *Agent) ExecuteTask(ctx context.Context, task contracts.Task) (contracts.Result, error) {
	a.mu.RLock()
	cfg, deps, ready := a.cfg, a.deps, a.initialized
	a.mu.RUnlock()

	if !ready || deps.Provider == nil {
		return nil, fmt.Errorf("%s: %w", Name, contracts.ErrNotInitialized)
	}
	if !a.ValidateInput(ctx, task) {
		return nil, fmt.Errorf("%w: %s task needs a prompt", contracts.ErrInvalidConfig, Name)
	}
	provider, ok := deps.Provider(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Provider, contracts.ErrNotFound)
	}

	a.SetStatus(contracts.StatusProcessing)
	var opts []contracts.GenerateOption
	if sp := task.String("system_prompt", cfg.SystemPrompt); sp != "" {
		opts = append(opts, contracts.WithSystemPrompt(sp))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, contracts.WithMaxTokens(cfg.MaxTokens))
	}

	content, err := provider.Generate(ctx, task.String("prompt", ""), opts...)
	if err != nil {
		a.SetStatus(contracts.StatusError)
		return nil, fmt.Errorf("generating content: %w", err)
	}
	a.SetStatus(contracts.StatusCompleted)
	logging.FromContext(ctx).Debug("content generated", "provider", cfg.Provider, "chars", len(content))

	return contracts.Result{"content": content, "provider": cfg.Provider}, nil
}
