// Package telegram publishes posts to a chat or channel through the Telegram
// Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/fetch"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/schema"
)

const (
	Name = "telegram"

	DefaultBaseURL = "https://api.telegram.org"
	// TokenEnv is read when the config carries no token.
	TokenEnv = "CF_TELEGRAM_TOKEN"

	// MaxMessageLength is the Bot API limit for sendMessage text.
	MaxMessageLength = 4096
	// MaxCaptionLength is the Bot API limit for photo captions.
	MaxCaptionLength = 1024

	// DefaultRate is messages per second sent to one bot.
	DefaultRate = 1.0
)

func init() {
	discovery.Provide("social_networks/telegram", New)
}

// Config is the publisher's accepted configuration.
type Config struct {
	Token     string  `json:"token,omitempty" jsonschema:"description=Bot token; falls back to CF_TELEGRAM_TOKEN"`
	ChatID    any     `json:"chat_id,omitempty" jsonschema:"oneof_type=string;integer,description=Chat id or @channel"`
	BaseURL   string  `json:"base_url,omitempty" jsonschema:"format=uri,default=https://api.telegram.org"`
	ParseMode string  `json:"parse_mode,omitempty" jsonschema:"enum=HTML,enum=Markdown,enum=MarkdownV2"`
	Rate      float64 `json:"rate,omitempty" jsonschema:"minimum=0,description=Messages per second"`
	Timeout   float64 `json:"timeout,omitempty" jsonschema:"minimum=0,description=Request timeout in seconds"`
}

// record is what Analytics reports for a published post.
type record struct {
	MessageID   int64
	ChatID      string
	Type        contracts.PostType
	Characters  int
	PublishedAt time.Time
	URL         string
}

// Publisher sends posts with a bot.
type Publisher struct {
	mu        sync.RWMutex
	token     string
	chatID    string
	baseURL   string
	parseMode string
	client    *fetch.Client
	ready     bool
	posts     map[string]record
	logger    *slog.Logger
}

// New returns an uninitialized publisher.
func New() (*Publisher, error) {
	return &Publisher{posts: make(map[string]record), logger: slog.Default()}, nil
}

func (p *Publisher) NetworkName() string { return Name }
func (p *Publisher) Version() string     { return "1.0.0" }
func (p *Publisher) Description() string {
	return "Publishes text and image posts through the Telegram Bot API"
}

func (p *Publisher) SupportedTypes() []contracts.PostType {
	return []contracts.PostType{contracts.PostText, contracts.PostImage}
}

func (p *Publisher) MaxContentLength() int { return MaxMessageLength }

func (p *Publisher) ConfigSchema() schema.Document {
	return schema.Reflect(&Config{})
}

// Initialize reads the bot settings. A missing token or chat id is not an
// error here; Publish reports it.
func (p *Publisher) Initialize(ctx context.Context, values contracts.Values) error {
	logger := logging.FromContext(ctx)

	token := values.String("token", "")
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	base := strings.TrimRight(values.String("base_url", DefaultBaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	perSecond := values.Float("rate", DefaultRate)
	if perSecond < 0 {
		return fmt.Errorf("%w: rate must not be negative", contracts.ErrInvalidConfig)
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	timeout := time.Duration(values.Float("timeout", 10) * float64(time.Second))

	chatID, err := chatIDString(values["chat_id"])
	if err != nil {
		return err
	}
	if token == "" {
		logger.Warn("telegram publisher has no bot token", "env", TokenEnv)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	p.chatID = chatID
	p.baseURL = base
	p.parseMode = values.String("parse_mode", "")
	p.client = fetch.New(fetch.WithTimeout(timeout), fetch.WithRateLimit(limit, 1))
	p.ready = true
	p.logger = logger
	return nil
}

func chatIDString(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case float64:
		if id != float64(int64(id)) {
			return "", fmt.Errorf("%w: chat_id %v is not an integer", contracts.ErrInvalidConfig, id)
		}
		return strconv.FormatInt(int64(id), 10), nil
	}
	return "", fmt.Errorf("%w: chat_id has unusable type %T", contracts.ErrInvalidConfig, v)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
	Chat      struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"chat"`
}

// call posts payload to the Bot API method and decodes the result into out.
func (p *Publisher) call(ctx context.Context, method string, payload, out any) error {
	p.mu.RLock()
	token, base, client, ready := p.token, p.baseURL, p.client, p.ready
	p.mu.RUnlock()

	if !ready {
		return fmt.Errorf("telegram: %w", contracts.ErrNotInitialized)
	}
	if token == "" {
		return fmt.Errorf("%w: telegram bot token not set (config token or %s)", contracts.ErrInvalidConfig, TokenEnv)
	}

	var resp apiResponse
	err := client.PostJSON(ctx, base+"/bot"+token+"/"+method, payload, &resp)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && len(fe.Body) > 0 && json.Unmarshal(fe.Body, &resp) == nil && resp.Description != "" {
			return &apiError{method: method, code: resp.ErrorCode, description: resp.Description, err: err, token: token}
		}
		return &apiError{method: method, err: err, token: token}
	}
	if !resp.OK {
		return &apiError{method: method, code: resp.ErrorCode, description: resp.Description, token: token}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%w: telegram %s result: %v", contracts.ErrParse, method, err)
		}
	}
	return nil
}

// Publish sends a text message, or a photo with the content as caption.
func (p *Publisher) Publish(ctx context.Context, post contracts.Post) (*contracts.PublishResult, error) {
	if post.ScheduleTime != nil {
		return nil, fmt.Errorf("telegram: scheduled posts: %w", contracts.ErrUnsupported)
	}
	if post.Type == "" {
		post.Type = contracts.PostText
	}

	p.mu.RLock()
	chatID, parseMode := p.chatID, p.parseMode
	p.mu.RUnlock()
	if id, err := chatIDString(post.Extra["chat_id"]); err == nil && id != "" {
		chatID = id
	}
	if chatID == "" {
		return nil, fmt.Errorf("%w: telegram chat_id not set", contracts.ErrInvalidConfig)
	}

	length := utf8.RuneCountInString(post.Content)
	payload := map[string]any{"chat_id": chatID}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	var method string
	switch post.Type {
	case contracts.PostText:
		if strings.TrimSpace(post.Content) == "" {
			return nil, fmt.Errorf("%w: empty text post", contracts.ErrInvalidConfig)
		}
		if length > MaxMessageLength {
			return nil, fmt.Errorf("%w: text is %d characters, limit %d", contracts.ErrInvalidConfig, length, MaxMessageLength)
		}
		method = "sendMessage"
		payload["text"] = post.Content
	case contracts.PostImage:
		if len(post.Attachments) == 0 {
			return nil, fmt.Errorf("%w: image post without attachment", contracts.ErrInvalidConfig)
		}
		if length > MaxCaptionLength {
			return nil, fmt.Errorf("%w: caption is %d characters, limit %d", contracts.ErrInvalidConfig, length, MaxCaptionLength)
		}
		method = "sendPhoto"
		payload["photo"] = post.Attachments[0]
		if post.Content != "" {
			payload["caption"] = post.Content
		}
	default:
		return nil, fmt.Errorf("telegram: %s posts: %w", post.Type, contracts.ErrUnsupported)
	}

	var sent sentMessage
	if err := p.call(ctx, method, payload, &sent); err != nil {
		return nil, err
	}

	published := time.Now().UTC()
	if sent.Date > 0 {
		published = time.Unix(sent.Date, 0).UTC()
	}
	url := ""
	if sent.Chat.Username != "" {
		url = fmt.Sprintf("https://t.me/%s/%d", sent.Chat.Username, sent.MessageID)
	}

	id := uuid.NewString()
	p.mu.Lock()
	p.posts[id] = record{
		MessageID:   sent.MessageID,
		ChatID:      chatID,
		Type:        post.Type,
		Characters:  length,
		PublishedAt: published,
		URL:         url,
	}
	p.mu.Unlock()

	p.log().Info("published to telegram", "post_id", id, "message_id", sent.MessageID, "type", string(post.Type))
	return &contracts.PublishResult{
		PostID:      id,
		URL:         url,
		Status:      "published",
		PublishedAt: published,
		Extra:       contracts.Values{"message_id": sent.MessageID, "chat_id": chatID},
	}, nil
}

// Analytics reports what this process recorded about a post. The Bot API
// exposes no view counts to bots.
func (p *Publisher) Analytics(_ context.Context, postID string) (contracts.Values, error) {
	p.mu.RLock()
	rec, ok := p.posts[postID]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("telegram post %q: %w", postID, contracts.ErrNotFound)
	}
	return contracts.Values{
		"post_id":      postID,
		"message_id":   rec.MessageID,
		"chat_id":      rec.ChatID,
		"type":         string(rec.Type),
		"characters":   rec.Characters,
		"url":          rec.URL,
		"published_at": rec.PublishedAt.Format(time.RFC3339),
	}, nil
}

// TestConnection calls getMe.
func (p *Publisher) TestConnection(ctx context.Context) bool {
	var me struct {
		IsBot bool `json:"is_bot"`
	}
	if err := p.call(ctx, "getMe", struct{}{}, &me); err != nil {
		p.log().Warn("telegram connection test failed", "err", err)
		return false
	}
	return me.IsBot
}

func (p *Publisher) log() *slog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// apiError keeps the bot token out of error text.
type apiError struct {
	method      string
	code        int
	description string
	token       string
	err         error
}

func (e *apiError) Error() string {
	var msg string
	switch {
	case e.description != "":
		msg = fmt.Sprintf("telegram %s failed: %d %s", e.method, e.code, e.description)
	case e.err != nil:
		msg = fmt.Sprintf("telegram %s failed: %v", e.method, e.err)
	default:
		msg = fmt.Sprintf("telegram %s failed", e.method)
	}
	if e.token != "" {
		msg = strings.ReplaceAll(msg, e.token, "<token>")
	}
	return msg
}

func (e *apiError) Unwrap() []error {
	if e.err == nil {
		return []error{contracts.ErrConnection}
	}
	return []error{e.err}
}
