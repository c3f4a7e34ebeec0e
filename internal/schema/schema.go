// Package schema produces and checks the self-describing config documents
// that every module exposes through ConfigSchema.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// Document is a JSON-schema subset: an object with named, typed properties
// and a required-field list.
type Document struct {
	Type        string               `json:"type,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Format      string               `json:"format,omitempty"`
	Properties  map[string]*Document `json:"properties,omitempty"`
	Items       *Document            `json:"items,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Maximum     *float64             `json:"maximum,omitempty"`
}

// Object returns an empty object document, used by modules that take no
// configuration.
func Object() Document {
	return Document{Type: "object", Properties: map[string]*Document{}}
}

// IsZero reports whether the document describes nothing at all.
func (d Document) IsZero() bool {
	return d.Type == "" && len(d.Properties) == 0 && len(d.Required) == 0
}

// Reflect builds a document from a Go config struct. Field names come from
// json tags; descriptions, defaults and bounds from jsonschema tags. Fields
// without omitempty are required.
func Reflect(v any) Document {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Anonymous:                 true,
	}
	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return Object()
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Object()
	}
	if doc.Type == "" {
		doc.Type = "object"
	}
	return doc
}

// ValidationError reports values that do not satisfy a Document.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config does not match schema: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks values against doc. A zero document accepts anything.
func Validate(doc Document, values map[string]any) error {
	if doc.IsZero() {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	compiled, err := validator.CompileString("config.json", string(raw))
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	// Round-trip through JSON so numbers and nested maps have the shapes the
	// validator expects.
	if values == nil {
		values = map[string]any{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("encoding values: %w", err)}
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return &ValidationError{Err: fmt.Errorf("decoding values: %w", err)}
	}
	if err := compiled.Validate(instance); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
