package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// CoreVersion is the framework version modules declare compatibility with.
const CoreVersion = "0.3.0"

// ManifestFile is the optional per-module manifest.
const ManifestFile = "module.yaml"

// DefaultSymbol is looked up in a plugin when the manifest lists none.
const DefaultSymbol = "New"

// Manifest describes how to load one module.
//
// Example module.yaml:
//
//	name: rss_parser
//	description: RSS and Atom feeds
//	min_core_version: 0.1.0
//	plugin: rss_parser.so
//	symbols: [New]
type Manifest struct {
	Name           string   `yaml:"name,omitempty"`
	Description    string   `yaml:"description,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
	Entry          string   `yaml:"entry,omitempty"`
	Plugin         string   `yaml:"plugin,omitempty"`
	Symbols        []string `yaml:"symbols,omitempty"`
	MinCoreVersion string   `yaml:"min_core_version,omitempty"`
}

// IsEnabled reports whether the module should be loaded. Absent means yes.
func (m *Manifest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// LoadManifest reads dir/module.yaml. It returns (nil, nil) when the file
// does not exist.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Plugin != "" {
		if filepath.IsAbs(m.Plugin) || strings.Contains(m.Plugin, "..") {
			return fmt.Errorf("plugin path %q must stay inside the module directory", m.Plugin)
		}
		if filepath.Ext(m.Plugin) != ".so" {
			return fmt.Errorf("plugin %q is not a .so file", m.Plugin)
		}
	}
	if m.Plugin == "" && len(m.Symbols) > 0 {
		return errors.New("symbols require a plugin")
	}
	if m.MinCoreVersion != "" {
		want := canonical(m.MinCoreVersion)
		if !semver.IsValid(want) {
			return fmt.Errorf("min_core_version %q is not a semantic version", m.MinCoreVersion)
		}
		if semver.Compare(canonical(CoreVersion), want) < 0 {
			return fmt.Errorf("module needs core %s, running %s", m.MinCoreVersion, CoreVersion)
		}
	}
	return nil
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
