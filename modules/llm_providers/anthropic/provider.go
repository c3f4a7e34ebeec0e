// Package anthropic provides Claude models through the Anthropic Messages
// API. Every non-streaming call goes through an ai.Caller for retry,
// circuit breaking and concurrency limits.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/steveyegge/contentfactory/internal/ai"
	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/cost"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/schema"
)

const (
	Name = "anthropic"

	// DefaultModel is used when neither config nor CF_ANTHROPIC_MODEL
	// names one.
	DefaultModel = "claude-sonnet-4-5"

	// ModelEnv overrides DefaultModel.
	ModelEnv = "CF_ANTHROPIC_MODEL"
	// APIKeyEnv is read when the config carries no api_key.
	APIKeyEnv = "ANTHROPIC_API_KEY"
)

// ErrNoAPIKey is returned by calls made without a configured key.
var ErrNoAPIKey = fmt.Errorf("%w: anthropic api key not set (config api_key or %s)", contracts.ErrInvalidConfig, APIKeyEnv)

func init() {
	discovery.Provide("llm_providers/anthropic", New)
}

// Config is the provider's accepted configuration.
type Config struct {
	Model              string  `json:"model,omitempty" jsonschema:"oneof_type=string;null,description=Model id; null selects the default"`
	APIKey             string  `json:"api_key,omitempty" jsonschema:"description=Falls back to ANTHROPIC_API_KEY"`
	BaseURL            string  `json:"base_url,omitempty" jsonschema:"format=uri"`
	Temperature        float64 `json:"temperature,omitempty" jsonschema:"minimum=0,maximum=2,default=0.7"`
	MaxTokens          int     `json:"max_tokens,omitempty" jsonschema:"minimum=1,default=2048"`
	TopP               float64 `json:"top_p,omitempty" jsonschema:"minimum=0,maximum=1,default=1"`
	MaxRetries         int     `json:"max_retries,omitempty" jsonschema:"minimum=0,default=3"`
	RetryBackoff       float64 `json:"retry_backoff,omitempty" jsonschema:"minimum=0,description=Initial backoff in seconds"`
	MaxConcurrentCalls int     `json:"max_concurrent_calls,omitempty" jsonschema:"minimum=0,default=3"`
	MaxTokensPerHour   int     `json:"max_tokens_per_hour,omitempty" jsonschema:"minimum=0,description=Hourly input+output token budget; 0 is unlimited"`
	MaxCostPerHour     float64 `json:"max_cost_per_hour,omitempty" jsonschema:"minimum=0,description=Hourly budget in USD; 0 is unlimited"`
}

// GetDefaultModel returns the default model, checking CF_ANTHROPIC_MODEL
// first.
func GetDefaultModel() string {
	if model := os.Getenv(ModelEnv); model != "" {
		return model
	}
	return DefaultModel
}

// Provider talks to the Anthropic API.
type Provider struct {
	mu     sync.RWMutex
	cfg    contracts.LLMConfig
	client *anthropic.Client
	caller *ai.Caller
	budget *cost.Tracker
	ready  bool
	hasKey bool
	logger *slog.Logger
}

// New returns an uninitialized provider.
func New() (*Provider, error) {
	return &Provider{cfg: contracts.DefaultLLMConfig(), logger: slog.Default()}, nil
}

func (p *Provider) ProviderName() string { return Name }
func (p *Provider) Version() string      { return "1.0.0" }
func (p *Provider) Description() string {
	return "Claude models through the Anthropic Messages API"
}

// ConfigSchema describes the accepted config.
func (p *Provider) ConfigSchema() schema.Document {
	return schema.Reflect(&Config{})
}

// Initialize builds the API client. A missing API key is not an error here;
// calls fail with ErrNoAPIKey until one is configured.
func (p *Provider) Initialize(ctx context.Context, cfg contracts.LLMConfig) error {
	logger := logging.FromContext(ctx)
	if cfg.Model == "" {
		cfg.Model = GetDefaultModel()
	}

	apiKey := cfg.Extra.String("api_key", "")
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by the caller
		option.WithMaxRetries(0),
	}
	if base := cfg.Extra.String("base_url", ""); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(opts...)

	retry := ai.DefaultRetryConfig()
	if cfg.Extra.Has("max_retries") {
		retry.MaxRetries = cfg.Extra.Int("max_retries", retry.MaxRetries)
	}
	if cfg.Extra.Has("retry_backoff") {
		retry.InitialBackoff = time.Duration(cfg.Extra.Float("retry_backoff", 1) * float64(time.Second))
	}
	retry.MaxConcurrentCalls = cfg.Extra.Int("max_concurrent_calls", retry.MaxConcurrentCalls)

	budgetCfg := cost.DefaultConfig()
	budgetCfg.MaxTokensPerHour = int64(cfg.Extra.Int("max_tokens_per_hour", 0))
	budgetCfg.MaxCostPerHour = cfg.Extra.Float("max_cost_per_hour", 0)
	budget, err := cost.NewTracker(budgetCfg, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrInvalidConfig, err)
	}

	if apiKey == "" {
		logger.Warn("anthropic provider has no api key", "env", APIKeyEnv)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.client = &client
	p.caller = ai.NewCaller(retry, logger)
	p.budget = budget
	p.ready = true
	p.hasKey = apiKey != ""
	p.logger = logger
	return nil
}

// Model returns the configured model id.
func (p *Provider) Model() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Model
}

// Usage returns token usage since Initialize.
func (p *Provider) Usage() cost.BudgetStats {
	p.mu.RLock()
	budget := p.budget
	p.mu.RUnlock()
	if budget == nil {
		return cost.BudgetStats{}
	}
	return budget.Stats()
}

type session struct {
	cfg    contracts.LLMConfig
	client *anthropic.Client
	caller *ai.Caller
	budget *cost.Tracker
	logger *slog.Logger
}

func (p *Provider) session() (session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return session{}, fmt.Errorf("anthropic provider: %w", contracts.ErrNotInitialized)
	}
	if !p.hasKey {
		return session{}, ErrNoAPIKey
	}
	return session{cfg: p.cfg, client: p.client, caller: p.caller, budget: p.budget, logger: p.logger}, nil
}

// Generate sends a single user prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...contracts.GenerateOption) (string, error) {
	return p.Chat(ctx, []contracts.Message{{Role: contracts.RoleUser, Content: prompt}}, opts...)
}

// Chat sends a conversation. System messages are folded into the system
// prompt, after any WithSystemPrompt option.
func (p *Provider) Chat(ctx context.Context, messages []contracts.Message, opts ...contracts.GenerateOption) (string, error) {
	s, err := p.session()
	if err != nil {
		return "", err
	}
	params, err := buildParams(s.cfg, messages, contracts.ApplyGenerateOptions(opts...))
	if err != nil {
		return "", err
	}
	if err := s.budget.Check(); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	start := time.Now()
	var resp *anthropic.Message
	err = s.caller.Do(ctx, "messages", func(ctx context.Context) error {
		r, apiErr := s.client.Messages.New(ctx, params)
		if apiErr != nil {
			return apiErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	s.budget.RecordUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	s.logger.Debug("anthropic call", "model", string(params.Model),
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(start))
	return text.String(), nil
}

// GenerateStreaming returns text deltas as they arrive. Streams are not
// retried.
func (p *Provider) GenerateStreaming(ctx context.Context, prompt string, opts ...contracts.GenerateOption) (contracts.Stream, error) {
	s, err := p.session()
	if err != nil {
		return nil, err
	}
	params, err := buildParams(s.cfg, []contracts.Message{{Role: contracts.RoleUser, Content: prompt}}, contracts.ApplyGenerateOptions(opts...))
	if err != nil {
		return nil, err
	}
	if err := s.budget.Check(); err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}
	breaker := s.caller.Breaker()
	if breaker != nil {
		if err := breaker.Allow(); err != nil {
			return nil, fmt.Errorf("anthropic stream: %w", err)
		}
	}
	return &textStream{
		stream:  s.client.Messages.NewStreaming(ctx, params),
		budget:  s.budget,
		breaker: breaker,
	}, nil
}

// AvailableModels lists the models the key can use.
func (p *Provider) AvailableModels(ctx context.Context) ([]string, error) {
	s, err := p.session()
	if err != nil {
		return nil, err
	}
	var ids []string
	err = s.caller.Do(ctx, "models", func(ctx context.Context) error {
		page, apiErr := s.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(100)})
		if apiErr != nil {
			return apiErr
		}
		ids = ids[:0]
		for _, m := range page.Data {
			ids = append(ids, m.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing anthropic models: %w", err)
	}
	return ids, nil
}

// TestConnection lists a single model.
func (p *Provider) TestConnection(ctx context.Context) bool {
	s, err := p.session()
	if err != nil {
		return false
	}
	_, err = s.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)})
	if err != nil {
		s.logger.Warn("anthropic connection test failed", "err", err)
	}
	return err == nil
}

func buildParams(cfg contracts.LLMConfig, messages []contracts.Message, o contracts.GenerateOptions) (anthropic.MessageNewParams, error) {
	model := cfg.Model
	if o.Model != "" {
		model = o.Model
	}
	maxTokens := cfg.MaxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}
	temperature := cfg.Temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
	}
	// top_p is only sent when it differs from the default; some models
	// reject it next to temperature
	if o.TopP != nil {
		params.TopP = anthropic.Float(*o.TopP)
	} else if cfg.TopP != contracts.DefaultTopP {
		params.TopP = anthropic.Float(cfg.TopP)
	}

	var system []string
	if o.SystemPrompt != "" {
		system = append(system, o.SystemPrompt)
	}
	for _, m := range messages {
		switch m.Role {
		case contracts.RoleSystem:
			system = append(system, m.Content)
		case contracts.RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case contracts.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return params, fmt.Errorf("%w: message role %q", contracts.ErrUnsupported, m.Role)
		}
	}
	if len(params.Messages) == 0 {
		return params, errors.New("anthropic: no user or assistant messages")
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	return params, nil
}

type textStream struct {
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	budget  *cost.Tracker
	breaker *ai.CircuitBreaker
	current string

	inputTokens  int64
	outputTokens int64
	finished     bool
}

func (t *textStream) Next() bool {
	for t.stream.Next() {
		switch ev := t.stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			t.inputTokens = ev.Message.Usage.InputTokens
		case anthropic.MessageDeltaEvent:
			t.outputTokens = ev.Usage.OutputTokens
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				t.current = d.Text
				return true
			}
		}
	}
	t.current = ""
	t.finish()
	return false
}

// finish records usage and the breaker outcome once per stream.
func (t *textStream) finish() {
	if t.finished {
		return
	}
	t.finished = true
	if t.budget != nil {
		t.budget.RecordUsage(t.inputTokens, t.outputTokens)
	}
	if t.breaker != nil {
		t.breaker.Record(t.stream.Err())
	}
}

func (t *textStream) Current() string { return t.current }
func (t *textStream) Err() error      { return t.stream.Err() }

// Close ends the stream early if needed; a stream closed before its end
// still counts toward usage and the breaker.
func (t *textStream) Close() error {
	t.finish()
	return t.stream.Close()
}
