package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/registry"
)

type stubParser struct{ name string }

func (p *stubParser) Type() contracts.ParserType { return contracts.ParserCustom }
func (p *stubParser) Name() string               { return p.name }
func (p *stubParser) Version() string            { return "1.0.0" }
func (p *stubParser) Description() string        { return "stub" }
func (p *stubParser) Initialize(context.Context, contracts.ParserConfig) error {
	return nil
}
func (p *stubParser) Parse(context.Context, string) ([]*contracts.ParsedItem, error) {
	return nil, nil
}
func (p *stubParser) ValidateSource(string) bool          { return true }
func (p *stubParser) TestConnection(context.Context) bool { return true }

type notAParser struct{}

func newStub(name string) func() (*stubParser, error) {
	return func() (*stubParser, error) { return &stubParser{name: name}, nil }
}

// mkModules creates root/parsers/<dir> for each dir, writing manifests
// where given.
func mkModules(t *testing.T, manifests map[string]string, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		path := filepath.Join(root, "parsers", d)
		require.NoError(t, os.MkdirAll(path, 0755))
		if m, ok := manifests[d]; ok {
			require.NoError(t, os.WriteFile(filepath.Join(path, ManifestFile), []byte(m), 0644))
		}
	}
	return root
}

func newParsers() *registry.Registry[contracts.Parser] {
	return registry.NewParsers(registry.WithLogger(logging.Discard()))
}

func TestDiscoverSkipsPrivateModules(t *testing.T) {
	cat := NewCatalog()
	ProvideTo(cat, "parsers/valid", newStub("valid_parser"))
	ProvideTo(cat, "parsers/_hidden", newStub("hidden_parser"))

	root := mkModules(t, nil, "valid", "_hidden", ".git")
	reg := newParsers()

	report := Discover(context.Background(), reg, Options{Root: root, Catalog: cat, Logger: logging.Discard()})

	assert.Equal(t, []string{"valid_parser"}, reg.Names())
	assert.Equal(t, []string{"valid_parser"}, report.Registered)
	assert.ElementsMatch(t, []string{"_hidden", ".git"}, report.Skipped)
	assert.Empty(t, report.Failed)
}

func TestDiscoverIsolatesFailingModules(t *testing.T) {
	cat := NewCatalog()
	ProvideTo(cat, "parsers/a_good", newStub("good_parser"))
	ProvideTo(cat, "parsers/b_panics", func() (*stubParser, error) { panic("load failure") })
	ProvideTo(cat, "parsers/c_errors", func() (*stubParser, error) { return nil, errors.New("no config") })
	ProvideTo(cat, "parsers/d_abstract", func() (contracts.Parser, error) { return &stubParser{name: "abstract"}, nil })
	ProvideTo(cat, "parsers/e_wrong_kind", func() (*notAParser, error) { return &notAParser{}, nil })
	ProvideTo(cat, "parsers/z_good", newStub("other_parser"))

	manifests := map[string]string{
		"f_bad_manifest":   "enabled: [not, a, bool",
		"g_missing_plugin": "plugin: missing.so\n",
	}
	root := mkModules(t, manifests,
		"a_good", "b_panics", "c_errors", "d_abstract", "e_wrong_kind",
		"f_bad_manifest", "g_missing_plugin", "h_not_compiled", "z_good")
	reg := newParsers()

	report := Discover(context.Background(), reg, Options{Root: root, Catalog: cat, Logger: logging.Discard()})

	assert.Equal(t, []string{"good_parser", "other_parser"}, reg.Names())

	failed := map[string]error{}
	for _, f := range report.Failed {
		failed[f.Module] = f.Err
	}
	for _, m := range []string{
		"parsers/b_panics", "parsers/c_errors", "parsers/d_abstract", "parsers/e_wrong_kind",
		"parsers/f_bad_manifest", "parsers/g_missing_plugin", "parsers/h_not_compiled",
	} {
		assert.Contains(t, failed, m)
	}
	assert.Len(t, report.Failed, 7)
}

func TestDiscoverMissingRoot(t *testing.T) {
	reg := newParsers()
	report := Discover(context.Background(), reg, Options{
		Root:    filepath.Join(t.TempDir(), "nope"),
		Catalog: NewCatalog(),
		Logger:  logging.Discard(),
	})

	assert.True(t, report.Missing)
	assert.Empty(t, report.Registered)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 0, reg.Len())
}

func TestDiscoverManifestOptions(t *testing.T) {
	cat := NewCatalog()
	ProvideTo(cat, "parsers/disabled", newStub("disabled_parser"))
	ProvideTo(cat, "shared/impl", newStub("aliased_parser"))

	manifests := map[string]string{
		"disabled": "enabled: false\n",
		"alias":    "name: alias\nentry: shared/impl\nmin_core_version: 0.1.0\n",
		"too_new":  "min_core_version: 99.0.0\n",
	}
	root := mkModules(t, manifests, "disabled", "alias", "too_new")
	reg := newParsers()

	report := Discover(context.Background(), reg, Options{Root: root, Catalog: cat, Logger: logging.Discard()})

	assert.Equal(t, []string{"aliased_parser"}, reg.Names())
	assert.Contains(t, report.Skipped, "disabled")
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "parsers/too_new", report.Failed[0].Module)
}

func TestDiscoverStopsOnCanceledContext(t *testing.T) {
	cat := NewCatalog()
	ProvideTo(cat, "parsers/one", newStub("one"))
	root := mkModules(t, nil, "one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := newParsers()
	report := Discover(ctx, reg, Options{Root: root, Catalog: cat, Logger: logging.Discard()})
	assert.Equal(t, 0, reg.Len())
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], context.Canceled)
}

func TestDiscoverRegistersEveryQualifyingExport(t *testing.T) {
	cat := NewCatalog()
	ProvideTo(cat, "parsers/bundle", newStub("first"))
	ProvideTo(cat, "parsers/bundle", newStub("second"))
	ProvideTo(cat, "parsers/bundle", func() (*notAParser, error) { return &notAParser{}, nil })

	root := mkModules(t, nil, "bundle")
	reg := newParsers()
	report := Discover(context.Background(), reg, Options{Root: root, Catalog: cat, Logger: logging.Discard()})

	assert.Equal(t, []string{"first", "second"}, reg.Names())
	assert.Empty(t, report.Failed)
}

func TestExportFromSymbol(t *testing.T) {
	parserType := func(exp Export) bool {
		return satisfies(exp.Type, reflectParser())
	}

	withErr := func() (*stubParser, error) { return &stubParser{name: "a"}, nil }
	exp, err := exportFromSymbol("New", withErr)
	require.NoError(t, err)
	assert.True(t, parserType(exp))
	v, err := exp.New()
	require.NoError(t, err)
	assert.Equal(t, "a", v.(*stubParser).name)

	plain := func() *stubParser { return nil }
	exp, err = exportFromSymbol("Plain", &plain)
	require.NoError(t, err)
	_, err = exp.New()
	assert.Error(t, err)

	var instance contracts.Parser = &stubParser{name: "var"}
	exp, err = exportFromSymbol("Parser", &instance)
	require.NoError(t, err)
	assert.True(t, parserType(exp))

	_, err = exportFromSymbol("Bad", func(string) *stubParser { return nil })
	assert.Error(t, err)
	_, err = exportFromSymbol("Bad", func() (*stubParser, string) { return nil, "" })
	assert.Error(t, err)
	_, err = exportFromSymbol("Bad", 42)
	assert.Error(t, err)
}

func TestCatalogModules(t *testing.T) {
	cat := NewCatalog()
	ProvideTo(cat, "parsers/b", newStub("b"))
	ProvideTo(cat, "agents/a", newStub("a"))
	assert.Equal(t, []string{"agents/a", "parsers/b"}, cat.Modules())

	_, ok := cat.Lookup("parsers/none")
	assert.False(t, ok)
}
