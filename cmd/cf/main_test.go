package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/registry"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CF_CACHE_ENABLED", "false")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CF_TELEGRAM_TOKEN", "")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--modules", "../../modules", "--log-level", "error"}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestModulesCommandJSON(t *testing.T) {
	out, err := runCLI(t, "modules", "--json")
	require.NoError(t, err)

	var listing struct {
		Parsers []registry.Descriptor `json:"parsers"`
		Stats   struct {
			Parsers        int `json:"parsers"`
			SocialNetworks int `json:"social_networks"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Equal(t, 2, listing.Stats.Parsers)
	assert.Equal(t, 1, listing.Stats.SocialNetworks)
	require.Len(t, listing.Parsers, 2)
	assert.Equal(t, "rss_parser", listing.Parsers[0].Name)
}

func TestModulesCommandTable(t *testing.T) {
	modulesJSON = false
	out, err := runCLI(t, "modules", "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "content_generator")
	assert.Contains(t, out, "news_processor")
	assert.NotContains(t, out, "rss_parser")
	assert.Contains(t, out, "Total: 6")

	_, err = runCLI(t, "modules", "widgets")
	assert.Error(t, err)
}

func TestDescribeCommand(t *testing.T) {
	out, err := runCLI(t, "describe", "rss_parser")
	require.NoError(t, err)
	var d registry.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, contracts.KindParser, d.Kind)
	assert.Contains(t, d.ConfigSchema.Properties, "rss_url")

	_, err = runCLI(t, "describe", "missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestTestCommandInvalidSource(t *testing.T) {
	testJSON = false
	out, err := runCLI(t, "test", "rss_parser", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
	assert.Contains(t, out, "rss_parser failed at validate stage")
}

func TestWriteTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []string{"NAME", "TITLE"}, [][]string{
		{"a", "日本語"},
		{"longer", "x"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "NAME    TITLE", lines[0])
	assert.Equal(t, "a       日本語", lines[2])
	assert.Equal(t, "longer  x", lines[3])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate(" a\n b ", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestDescriptorDetail(t *testing.T) {
	assert.Equal(t, "rss", descriptorDetail(registry.Descriptor{Type: contracts.ParserRSS}))
	assert.Equal(t, "text,image (max 4096)", descriptorDetail(registry.Descriptor{
		SupportedTypes:   []contracts.PostType{contracts.PostText, contracts.PostImage},
		MaxContentLength: 4096,
	}))
	assert.Equal(t, "-", descriptorDetail(registry.Descriptor{}))
}
