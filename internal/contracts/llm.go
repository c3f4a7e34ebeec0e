package contracts

import "context"

// Message roles accepted by Provider.Chat.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a language-model backend.
type Provider interface {
	ProviderName() string

	Initialize(ctx context.Context, cfg LLMConfig) error
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	GenerateStreaming(ctx context.Context, prompt string, opts ...GenerateOption) (Stream, error)
	Chat(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)
	TestConnection(ctx context.Context) bool
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	AvailableModels(ctx context.Context) ([]string, error)
}

// Stream yields generated text chunks. It is finite and single-pass:
//
//	for s.Next() {
//		fmt.Print(s.Current())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// GenerateOptions carries per-call overrides. Zero values mean "use the
// provider's configured value".
type GenerateOptions struct {
	SystemPrompt string
	Model        string
	Temperature  *float64
	MaxTokens    int
	TopP         *float64
	Extra        Values
}

// GenerateOption mutates GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(s string) GenerateOption {
	return func(o *GenerateOptions) { o.SystemPrompt = s }
}

// WithModel overrides the model for one call.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) { o.Model = model }
}

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = &t }
}

// WithMaxTokens overrides the output token limit for one call.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

// WithTopP overrides nucleus sampling for one call.
func WithTopP(p float64) GenerateOption {
	return func(o *GenerateOptions) { o.TopP = &p }
}

// WithExtra passes provider-specific settings.
func WithExtra(key string, value any) GenerateOption {
	return func(o *GenerateOptions) {
		if o.Extra == nil {
			o.Extra = Values{}
		}
		o.Extra[key] = value
	}
}

// ApplyGenerateOptions folds opts into a GenerateOptions value.
func ApplyGenerateOptions(opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SliceStream is a Stream over a fixed set of chunks.
type SliceStream struct {
	chunks []string
	pos    int
	err    error
}

// NewSliceStream returns a stream yielding chunks, then err from Err.
func NewSliceStream(chunks []string, err error) *SliceStream {
	return &SliceStream{chunks: chunks, pos: -1, err: err}
}

func (s *SliceStream) Next() bool {
	if s.pos+1 >= len(s.chunks) {
		s.pos = len(s.chunks)
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Current() string {
	if s.pos < 0 || s.pos >= len(s.chunks) {
		return ""
	}
	return s.chunks[s.pos]
}

func (s *SliceStream) Err() error {
	if s.pos < len(s.chunks) {
		return nil
	}
	return s.err
}

func (s *SliceStream) Close() error { return nil }
