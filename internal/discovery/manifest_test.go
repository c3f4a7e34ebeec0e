package discovery

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

func reflectParser() reflect.Type {
	return reflect.TypeFor[contracts.Parser]()
}

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(body), 0644))
	return dir
}

func TestLoadManifestAbsent(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLoadManifest(t *testing.T) {
	dir := writeManifest(t, `
name: rss_parser
description: feeds
plugin: rss.so
symbols: [New, NewAtom]
min_core_version: v0.1.0
`)
	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "rss_parser", m.Name)
	assert.Equal(t, "rss.so", m.Plugin)
	assert.Equal(t, []string{"New", "NewAtom"}, m.Symbols)
	assert.True(t, m.IsEnabled())
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"escaping plugin path", "plugin: ../other.so\n"},
		{"absolute plugin path", "plugin: /tmp/x.so\n"},
		{"not a shared object", "plugin: parser.go\n"},
		{"symbols without plugin", "symbols: [New]\n"},
		{"bad version", "min_core_version: latest\n"},
		{"future core", "min_core_version: 42.0.0\n"},
		{"bad yaml", "name: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.body))
			assert.Error(t, err)
		})
	}
}
