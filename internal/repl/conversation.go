package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

// DefaultMaxTurns bounds how many user/assistant exchanges are resent.
const DefaultMaxTurns = 20

// Conversation keeps the chat history for one provider.
type Conversation struct {
	provider contracts.Provider
	system   string
	maxTurns int
	history  []contracts.Message
	opts     []contracts.GenerateOption
}

// NewConversation starts an empty conversation. maxTurns <= 0 selects
// DefaultMaxTurns.
func NewConversation(p contracts.Provider, system string, maxTurns int, opts ...contracts.GenerateOption) *Conversation {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Conversation{provider: p, system: system, maxTurns: maxTurns, opts: opts}
}

// SendMessage sends a user message with the history and records the reply.
// A failed call leaves the history unchanged.
func (c *Conversation) SendMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty message")
	}

	msgs := make([]contracts.Message, 0, len(c.history)+2)
	if c.system != "" {
		msgs = append(msgs, contracts.Message{Role: contracts.RoleSystem, Content: c.system})
	}
	msgs = append(msgs, c.history...)
	msgs = append(msgs, contracts.Message{Role: contracts.RoleUser, Content: text})

	reply, err := c.provider.Chat(ctx, msgs, c.opts...)
	if err != nil {
		return "", fmt.Errorf("%s chat failed: %w", c.provider.ProviderName(), err)
	}

	c.history = append(c.history,
		contracts.Message{Role: contracts.RoleUser, Content: text},
		contracts.Message{Role: contracts.RoleAssistant, Content: reply})
	if over := len(c.history) - 2*c.maxTurns; over > 0 {
		c.history = append([]contracts.Message(nil), c.history[over:]...)
	}
	return reply, nil
}

// History returns a copy of the recorded turns, oldest first.
func (c *Conversation) History() []contracts.Message {
	out := make([]contracts.Message, len(c.history))
	copy(out, c.history)
	return out
}

// ClearHistory forgets every turn.
func (c *Conversation) ClearHistory() {
	c.history = nil
}

// SetSystemPrompt replaces the system prompt for later messages.
func (c *Conversation) SetSystemPrompt(s string) {
	c.system = strings.TrimSpace(s)
}

// SystemPrompt returns the current system prompt.
func (c *Conversation) SystemPrompt() string {
	return c.system
}
