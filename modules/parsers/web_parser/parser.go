// Package webparser extracts articles from HTML pages using CSS selectors.
package webparser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/parsing"
	"github.com/steveyegge/contentfactory/internal/schema"
)

const (
	Name      = "web_parser"
	MaxItems  = 10
	ItemType  = "web_item"
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	DefaultTimeout = 15 * time.Second
)

func init() {
	discovery.Provide("parsers/web_parser", New)
}

// Selectors locate the parts of an article. Title, content and link are
// matched inside each article element.
type Selectors struct {
	Articles string `json:"articles,omitempty" jsonschema:"default=article\\, .post\\, .news-item"`
	Title    string `json:"title,omitempty" jsonschema:"default=h1\\, h2\\, h3\\, .title"`
	Content  string `json:"content,omitempty" jsonschema:"default=p\\, .content\\, .description"`
	Link     string `json:"link,omitempty" jsonschema:"default=a[href]"`
}

// DefaultSelectors work for most blog and news layouts.
func DefaultSelectors() Selectors {
	return Selectors{
		Articles: "article, .post, .news-item",
		Title:    "h1, h2, h3, .title",
		Content:  "p, .content, .description",
		Link:     "a[href]",
	}
}

// Config is the parser-specific part of the configuration.
type Config struct {
	URL          string     `json:"url,omitempty" jsonschema:"format=uri,description=Page used when no source is given"`
	CSSSelectors *Selectors `json:"css_selectors,omitempty"`
}

// Parser scrapes article lists from web pages.
type Parser struct {
	*parsing.Base

	mu        sync.RWMutex
	selectors Selectors
}

// New returns a parser with default selectors.
func New() (*Parser, error) {
	return &Parser{
		Base:      parsing.NewBase(UserAgent, DefaultTimeout),
		selectors: DefaultSelectors(),
	}, nil
}

func (p *Parser) Type() contracts.ParserType { return contracts.ParserWeb }
func (p *Parser) Name() string               { return Name }
func (p *Parser) Version() string            { return "1.0.0" }
func (p *Parser) Description() string        { return "Extracts articles from HTML pages with CSS selectors" }

// ConfigSchema describes the accepted config.
func (p *Parser) ConfigSchema() schema.Document {
	return schema.Reflect(&Config{})
}

// Validate compiles every selector. goquery matches nothing for a selector
// it cannot parse, so a typo would otherwise yield empty results.
func (s Selectors) Validate() error {
	for _, f := range []struct{ key, sel string }{
		{"articles", s.Articles},
		{"title", s.Title},
		{"content", s.Content},
		{"link", s.Link},
	} {
		if strings.TrimSpace(f.sel) == "" {
			return fmt.Errorf("css_selectors.%s is empty", f.key)
		}
		if _, err := cascadia.Compile(f.sel); err != nil {
			return fmt.Errorf("css_selectors.%s %q: %v", f.key, f.sel, err)
		}
	}
	return nil
}

// Initialize stores cfg and merges css_selectors over the defaults.
func (p *Parser) Initialize(ctx context.Context, cfg contracts.ParserConfig) error {
	sel := DefaultSelectors()
	custom := cfg.Extra.Map("css_selectors")
	sel.Articles = custom.String("articles", sel.Articles)
	sel.Title = custom.String("title", sel.Title)
	sel.Content = custom.String("content", sel.Content)
	sel.Link = custom.String("link", sel.Link)
	if err := sel.Validate(); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrInvalidConfig, err)
	}

	p.Init(cfg)
	p.mu.Lock()
	p.selectors = sel
	p.mu.Unlock()

	logging.FromContext(ctx).Debug("web parser initialized", "articles", sel.Articles)
	return nil
}

// Selectors returns the selectors in effect.
func (p *Parser) Selectors() Selectors {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selectors
}

func (p *Parser) ValidateSource(source string) bool {
	return parsing.IsHTTPURL(source)
}

// TestConnection reports whether the parser is ready to run.
func (p *Parser) TestConnection(context.Context) bool {
	return p.Enabled()
}

// Parse fetches source and returns up to MaxItems articles.
func (p *Parser) Parse(ctx context.Context, source string) ([]*contracts.ParsedItem, error) {
	if source == "" {
		source = p.Config().Extra.String("url", "")
	}
	logger := logging.FromContext(ctx)
	logger.Info("parsing web page", "source", source)

	resp, err := p.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: reading html from %s: %v", contracts.ErrParse, source, err)
	}

	base, _ := url.Parse(resp.URL)
	if base == nil {
		base, _ = url.Parse(source)
	}
	sel := p.Selectors()

	items := []*contracts.ParsedItem{}
	doc.Find(sel.Articles).EachWithBreak(func(_ int, article *goquery.Selection) bool {
		items = append(items, extract(source, base, sel, article))
		return len(items) < MaxItems
	})

	logger.Info("parsed web page", "source", source, "items", len(items))
	return items, nil
}

func extract(source string, base *url.URL, sel Selectors, article *goquery.Selection) *contracts.ParsedItem {
	title := text(article.Find(sel.Title).First())
	if title == "" {
		title = "No title"
	}
	content := text(article.Find(sel.Content).First())
	if content == "" {
		content = "No content"
	}

	link := ""
	if href, ok := article.Find(sel.Link).First().Attr("href"); ok {
		link = resolve(base, href)
	}

	return contracts.NewParsedItem(source, ItemType).
		Set("title", title).
		Set("content", content).
		Set("url", link)
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
