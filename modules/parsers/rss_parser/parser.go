// Package rssparser turns RSS and Atom feeds into parsed items.
package rssparser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/parsing"
	"github.com/steveyegge/contentfactory/internal/schema"
)

const (
	// Name is the registry name.
	Name = "rss_parser"
	// MaxItems caps the entries returned from one feed.
	MaxItems = 20
	// ItemType tags every item this parser produces.
	ItemType = "rss_item"
	// UserAgent is sent with every feed request.
	UserAgent = "Mozilla/5.0 (Content Factory RSS Parser)"
)

func init() {
	discovery.Provide("parsers/rss_parser", New)
}

// Config is the parser-specific part of the configuration.
type Config struct {
	RSSURL    string `json:"rss_url,omitempty" jsonschema:"format=uri,description=Feed used when no source is given"`
	MaxItems  int    `json:"max_items,omitempty" jsonschema:"minimum=1,maximum=20,default=20"`
	UserAgent string `json:"user_agent,omitempty" jsonschema:"description=Overrides the default User-Agent"`
}

// Parser reads RSS 0.9x/2.0 and Atom feeds.
type Parser struct {
	*parsing.Base
}

// New returns a parser with default config.
func New() (*Parser, error) {
	return &Parser{Base: parsing.NewBase(UserAgent, 0)}, nil
}

func (p *Parser) Type() contracts.ParserType { return contracts.ParserRSS }
func (p *Parser) Name() string               { return Name }
func (p *Parser) Version() string            { return "1.0.0" }
func (p *Parser) Description() string        { return "Parses RSS and Atom feeds" }

// ConfigSchema describes the accepted config.
func (p *Parser) ConfigSchema() schema.Document {
	return schema.Reflect(&Config{})
}

// Initialize stores cfg.
func (p *Parser) Initialize(ctx context.Context, cfg contracts.ParserConfig) error {
	if n := cfg.Extra.Int("max_items", MaxItems); n < 1 || n > MaxItems {
		return fmt.Errorf("%w: max_items must be between 1 and %d, got %d", contracts.ErrInvalidConfig, MaxItems, n)
	}
	p.Init(cfg)
	logging.FromContext(ctx).Debug("rss parser initialized", "timeout", cfg.Timeout)
	return nil
}

// ValidateSource accepts absolute http and https URLs.
func (p *Parser) ValidateSource(source string) bool {
	return parsing.IsHTTPURL(source)
}

// TestConnection has nothing to probe until a source is known; it reports
// whether the parser is ready to run.
func (p *Parser) TestConnection(context.Context) bool {
	return p.Enabled()
}

// Parse fetches source and returns up to max_items entries. An empty source
// falls back to the configured rss_url.
func (p *Parser) Parse(ctx context.Context, source string) ([]*contracts.ParsedItem, error) {
	cfg := p.Config()
	if source == "" {
		source = cfg.Extra.String("rss_url", "")
	}
	logger := logging.FromContext(ctx)
	logger.Info("parsing rss", "source", source)

	resp, err := p.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding feed %s: %v", contracts.ErrParse, source, err)
	}

	limit := cfg.Extra.Int("max_items", MaxItems)
	if limit > MaxItems {
		limit = MaxItems
	}
	items := make([]*contracts.ParsedItem, 0, min(limit, len(feed.Items)))
	for _, entry := range feed.Items {
		if len(items) == limit {
			break
		}
		items = append(items, toItem(source, feed, entry))
	}

	logger.Info("parsed rss", "source", source, "items", len(items))
	return items, nil
}

func toItem(source string, feed *gofeed.Feed, entry *gofeed.Item) *contracts.ParsedItem {
	item := contracts.NewParsedItem(source, ItemType).
		Set("title", orDefault(entry.Title, "No title")).
		Set("content", orDefault(orDefault(entry.Description, entry.Content), "No content")).
		Set("url", entry.Link).
		Set("author", orDefault(author(entry), "Unknown")).
		Set("source_name", orDefault(feed.Title, "Unknown Feed")).
		Set("guid", entry.GUID)
	if published := entry.PublishedParsed; published != nil {
		item.Set("published_at", published.UTC().Format(time.RFC3339))
	}
	return item
}

func author(entry *gofeed.Item) string {
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
