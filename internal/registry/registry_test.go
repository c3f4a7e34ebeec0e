package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/schema"
)

type fakeParser struct {
	name    string
	version string
	variant string
}

func (p *fakeParser) Type() contracts.ParserType { return contracts.ParserCustom }
func (p *fakeParser) Name() string               { return p.name }
func (p *fakeParser) Version() string            { return p.version }
func (p *fakeParser) Description() string        { return "fake " + p.variant }
func (p *fakeParser) Initialize(context.Context, contracts.ParserConfig) error {
	return nil
}
func (p *fakeParser) Parse(context.Context, string) ([]*contracts.ParsedItem, error) {
	return nil, nil
}
func (p *fakeParser) ValidateSource(string) bool          { return true }
func (p *fakeParser) TestConnection(context.Context) bool { return true }
func (p *fakeParser) ConfigSchema() schema.Document {
	doc := schema.Object()
	doc.Properties["url"] = &schema.Document{Type: "string"}
	doc.Required = []string{"url"}
	return doc
}

func parserFactory(name, variant string) Factory[contracts.Parser] {
	return func() (contracts.Parser, error) {
		return &fakeParser{name: name, version: "1.0.0", variant: variant}, nil
	}
}

func newTestParsers() *Registry[contracts.Parser] {
	return NewParsers(WithLogger(logging.Discard()))
}

func TestRegisterThenGetReturnsSingleton(t *testing.T) {
	r := newTestParsers()

	name, err := r.Register(parserFactory("rss_parser", "a"))
	require.NoError(t, err)
	assert.Equal(t, "rss_parser", name)

	first, ok := r.Get("rss_parser")
	require.True(t, ok)
	second, ok := r.Get("rss_parser")
	require.True(t, ok)
	assert.Same(t, first, second)
}

func TestGetUnknownName(t *testing.T) {
	r := newTestParsers()
	p, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestReRegistrationReplacesFactory(t *testing.T) {
	r := newTestParsers()

	_, err := r.Register(parserFactory("dup", "original"))
	require.NoError(t, err)
	_, err = r.Register(parserFactory("dup", "replacement"))
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	p, ok := r.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "replacement", p.(*fakeParser).variant)

	d, ok := r.Describe("dup")
	require.True(t, ok)
	assert.Equal(t, "fake replacement", d.Description)
}

func TestReRegistrationKeepsBuiltSingleton(t *testing.T) {
	r := newTestParsers()

	_, err := r.Register(parserFactory("dup", "original"))
	require.NoError(t, err)
	before, ok := r.Get("dup")
	require.True(t, ok)

	_, err = r.Register(parserFactory("dup", "replacement"))
	require.NoError(t, err)

	after, ok := r.Get("dup")
	require.True(t, ok)
	assert.Same(t, before, after)
}

func TestFailedRegistrationsAreIsolated(t *testing.T) {
	r := newTestParsers()
	boom := errors.New("boom")

	tests := []struct {
		name    string
		factory Factory[contracts.Parser]
	}{
		{"constructor error", func() (contracts.Parser, error) { return nil, boom }},
		{"constructor panic", func() (contracts.Parser, error) { panic("kaboom") }},
		{"nil instance", func() (contracts.Parser, error) { return nil, nil }},
		{"empty name", parserFactory("", "x")},
		{"nil factory", nil},
	}

	_, err := r.Register(parserFactory("good", "a"))
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(tt.factory)
			require.Error(t, err)
			var regErr *RegistrationError
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, contracts.KindParser, regErr.Kind)
		})
	}

	_, err = r.Register(parserFactory("also_good", "b"))
	require.NoError(t, err)

	assert.Equal(t, []string{"also_good", "good"}, r.Names())
	assert.Len(t, r.List(), 2)
}

func TestGetConstructorFailure(t *testing.T) {
	r := newTestParsers()
	calls := 0
	_, err := r.Register(func() (contracts.Parser, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("second construction fails")
		}
		return &fakeParser{name: "flaky", version: "1.0.0"}, nil
	})
	require.NoError(t, err)

	_, ok := r.Get("flaky")
	assert.False(t, ok)
	assert.True(t, r.Has("flaky"))
}

func TestConcurrentGetConstructsOnce(t *testing.T) {
	r := newTestParsers()
	var constructed atomic.Int32
	_, err := r.Register(func() (contracts.Parser, error) {
		constructed.Add(1)
		return &fakeParser{name: "shared", version: "1.0.0"}, nil
	})
	require.NoError(t, err)
	constructed.Store(0) // ignore the trial instance

	var wg sync.WaitGroup
	results := make([]contracts.Parser, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Get("shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructed.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.Len(t, r.Materialized(), 1)
}

func TestListDescriptors(t *testing.T) {
	r := newTestParsers()
	_, err := r.Register(parserFactory("b_parser", "b"))
	require.NoError(t, err)
	_, err = r.Register(func() (contracts.Parser, error) {
		return &fakeParser{name: "a_parser", version: "not-a-version"}, nil
	})
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)

	assert.Equal(t, "a_parser", list[0].Name)
	assert.Equal(t, UnknownVersion, list[0].Version)

	b := list[1]
	assert.Equal(t, "b_parser", b.Name)
	assert.Equal(t, contracts.KindParser, b.Kind)
	assert.Equal(t, contracts.ParserCustom, b.Type)
	assert.Equal(t, "1.0.0", b.Version)
	assert.Equal(t, "object", b.ConfigSchema.Type)
	assert.Equal(t, []string{"url"}, b.ConfigSchema.Required)
}

type fakeNetwork struct{}

func (fakeNetwork) NetworkName() string                                { return "plain" }
func (fakeNetwork) Initialize(context.Context, contracts.Values) error { return nil }
func (fakeNetwork) Publish(context.Context, contracts.Post) (*contracts.PublishResult, error) {
	return &contracts.PublishResult{}, nil
}
func (fakeNetwork) Analytics(context.Context, string) (contracts.Values, error) {
	return contracts.Values{}, nil
}
func (fakeNetwork) TestConnection(context.Context) bool { return true }

func TestPublisherDescriptorDefaults(t *testing.T) {
	r := NewPublishers(WithLogger(logging.Discard()))
	r.MustRegister(func() (contracts.Publisher, error) { return fakeNetwork{}, nil })

	d, ok := r.Describe("plain")
	require.True(t, ok)
	assert.Equal(t, contracts.KindSocialNetwork, d.Kind)
	assert.Equal(t, []contracts.PostType{contracts.PostText}, d.SupportedTypes)
	assert.Equal(t, 280, d.MaxContentLength)
	assert.Empty(t, d.Type)
	assert.Equal(t, "object", d.ConfigSchema.Type)
}

func TestValidVersion(t *testing.T) {
	assert.True(t, validVersion("1.0.0"))
	assert.True(t, validVersion("v2.3.4-beta.1"))
	assert.False(t, validVersion("1.0.0.0"))
	assert.False(t, validVersion(""))
}
