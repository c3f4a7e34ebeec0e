package newsprocessor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

type listParser struct {
	count int
	err   error
}

func (p *listParser) Type() contracts.ParserType { return contracts.ParserCustom }
func (p *listParser) Name() string               { return "list" }
func (p *listParser) Version() string            { return "1.0.0" }
func (p *listParser) Description() string        { return "" }
func (p *listParser) Initialize(context.Context, contracts.ParserConfig) error {
	return nil
}
func (p *listParser) ValidateSource(s string) bool        { return strings.HasPrefix(s, "https://") }
func (p *listParser) TestConnection(context.Context) bool { return true }
func (p *listParser) Parse(_ context.Context, source string) ([]*contracts.ParsedItem, error) {
	if p.err != nil {
		return nil, p.err
	}
	items := make([]*contracts.ParsedItem, p.count)
	for i := range items {
		items[i] = contracts.NewParsedItem(source, "list_item").
			Set("title", fmt.Sprintf("headline %d", i)).
			Set("url", fmt.Sprintf("https://example.com/%d", i))
	}
	return items, nil
}

func newAgent(t *testing.T, parser contracts.Parser, values contracts.Values) *Agent {
	t.Helper()
	a, err := New()
	require.NoError(t, err)
	a.SetDependencies(contracts.Dependencies{
		Parser: func(name string) (contracts.Parser, bool) {
			if name == "list" {
				return parser, true
			}
			return nil, false
		},
	})
	require.NoError(t, a.Initialize(context.Background(), values))
	return a
}

func TestExecuteTask(t *testing.T) {
	a := newAgent(t, &listParser{count: 8}, contracts.Values{"parser": "list"})

	res, err := a.ExecuteTask(context.Background(), contracts.Task{"source": "https://example.com/feed"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, res["count"])
	headlines := res["items"].([]Headline)
	require.Len(t, headlines, DefaultLimit)
	assert.Equal(t, Headline{Title: "headline 0", URL: "https://example.com/0"}, headlines[0])
	assert.Equal(t, contracts.StatusCompleted, a.Status())

	res, err = a.ExecuteTask(context.Background(), contracts.Task{"source": "https://example.com/feed", "limit": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res["count"])
}

func TestExecuteTaskFewerItemsThanLimit(t *testing.T) {
	a := newAgent(t, &listParser{count: 1}, contracts.Values{"parser": "list", "limit": 10})
	res, err := a.ExecuteTask(context.Background(), contracts.Task{"source": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, res["count"])
}

func TestExecuteTaskErrors(t *testing.T) {
	ctx := context.Background()

	a, err := New()
	require.NoError(t, err)
	_, err = a.ExecuteTask(ctx, contracts.Task{"source": "https://example.com"})
	assert.ErrorIs(t, err, contracts.ErrNotInitialized)

	a = newAgent(t, &listParser{}, nil)
	_, err = a.ExecuteTask(ctx, contracts.Task{"source": "https://example.com"})
	assert.ErrorIs(t, err, contracts.ErrNotFound, "default rss_parser is not available")

	a = newAgent(t, &listParser{}, contracts.Values{"parser": "list"})
	_, err = a.ExecuteTask(ctx, contracts.Task{})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
	_, err = a.ExecuteTask(ctx, contracts.Task{"source": "ftp://nope"})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	a = newAgent(t, &listParser{err: contracts.ErrConnection}, contracts.Values{"parser": "list"})
	_, err = a.ExecuteTask(ctx, contracts.Task{"source": "https://example.com"})
	assert.ErrorIs(t, err, contracts.ErrConnection)
	assert.Equal(t, contracts.StatusError, a.Status())
}

func TestInitializeValidation(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	assert.Equal(t, contracts.RoleNewsProcessor, a.AgentRole())
	assert.ErrorIs(t, a.Initialize(context.Background(), contracts.Values{"limit": 0}), contracts.ErrInvalidConfig)
	assert.NoError(t, a.Initialize(context.Background(), contracts.Values{"limit": 3}))
}

type repeatingParser struct{ listParser }

func (p *repeatingParser) Parse(_ context.Context, source string) ([]*contracts.ParsedItem, error) {
	mk := func(title, url string) *contracts.ParsedItem {
		return contracts.NewParsedItem(source, "list_item").Set("title", title).Set("url", url)
	}
	return []*contracts.ParsedItem{
		mk("Central bank holds interest rates", "https://a.example/rates"),
		mk("Central bank holds interest rates", "https://b.example/rates-story"),
		mk("Storm closes mountain passes", "https://a.example/storm"),
		mk("Storm update", "https://a.example/storm?utm_source=feed"),
	}, nil
}

func TestExecuteTaskDropsDuplicates(t *testing.T) {
	a := newAgent(t, &repeatingParser{}, contracts.Values{"parser": "list"})
	res, err := a.ExecuteTask(context.Background(), contracts.Task{"source": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, res["count"])
	assert.Equal(t, 2, res["duplicates"])

	a = newAgent(t, &repeatingParser{}, contracts.Values{"parser": "list", "dedupe": false})
	res, err = a.ExecuteTask(context.Background(), contracts.Task{"source": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 4, res["count"])
	assert.Equal(t, 0, res["duplicates"])

	b, err := New()
	require.NoError(t, err)
	assert.ErrorIs(t, b.Initialize(context.Background(), contracts.Values{"similarity_threshold": 2.0}), contracts.ErrInvalidConfig)
}
