package registry

import (
	"strings"

	"golang.org/x/mod/semver"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/schema"
)

// UnknownVersion replaces versions that are not valid semver.
const UnknownVersion = "0.0.0"

// Descriptor is the metadata captured from an implementation when it is
// registered. It never changes afterwards.
type Descriptor struct {
	Name             string               `json:"name"`
	Kind             contracts.Kind       `json:"kind"`
	Type             contracts.ParserType `json:"type,omitempty"`
	Version          string               `json:"version,omitempty"`
	Description      string               `json:"description,omitempty"`
	Role             contracts.AgentRole  `json:"role,omitempty"`
	SupportedTypes   []contracts.PostType `json:"supported_types,omitempty"`
	MaxContentLength int                  `json:"max_content_length,omitempty"`
	ConfigSchema     schema.Document      `json:"config_schema"`
}

type versioned interface{ Version() string }

type described interface{ Description() string }

// describe reads whatever metadata v declares. Parsers carry the full set;
// other kinds contribute what their optional interfaces expose.
func describe(kind contracts.Kind, name string, v any) Descriptor {
	d := Descriptor{
		Name:         name,
		Kind:         kind,
		ConfigSchema: contracts.ConfigSchemaOf(v),
	}
	if p, ok := v.(contracts.Parser); ok && kind == contracts.KindParser {
		d.Type = p.Type()
	}
	if vv, ok := v.(versioned); ok {
		d.Version = vv.Version()
	}
	if dd, ok := v.(described); ok {
		d.Description = dd.Description()
	}
	if a, ok := v.(contracts.Agent); ok && kind == contracts.KindAgent {
		d.Role = a.AgentRole()
	}
	if p, ok := v.(contracts.Publisher); ok && kind == contracts.KindSocialNetwork {
		d.SupportedTypes = contracts.SupportedTypes(p)
		d.MaxContentLength = contracts.MaxContentLength(p)
	}
	return d
}

// validVersion reports whether v is semver, with or without a leading "v".
func validVersion(v string) bool {
	if v == "" {
		return false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}
