package contracts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ParsedItem is the standardized record every parser emits. ID and ParsedAt
// are fixed at construction; Source and Type are set by the parser; Fields
// holds parser-specific content such as title, content, url and author.
//
// A parser fully populates an item before returning it, and callers must
// treat returned items as read-only.
type ParsedItem struct {
	ID       string
	ParsedAt time.Time
	Source   string
	Type     string
	Fields   map[string]any
}

// Reserved keys in the flattened JSON form.
const (
	FieldID       = "id"
	FieldParsedAt = "parsed_at"
	FieldSource   = "source"
	FieldType     = "type"
)

// NewParsedItem returns an item with a fresh id and timestamp.
func NewParsedItem(source, itemType string) *ParsedItem {
	return &ParsedItem{
		ID:       uuid.New().String(),
		ParsedAt: time.Now().UTC(),
		Source:   source,
		Type:     itemType,
		Fields:   make(map[string]any),
	}
}

// Set stores a parser-specific field. Reserved keys are ignored.
func (i *ParsedItem) Set(key string, value any) *ParsedItem {
	if isReserved(key) {
		return i
	}
	i.Fields[key] = value
	return i
}

// Get returns a parser-specific field.
func (i *ParsedItem) Get(key string) (any, bool) {
	v, ok := i.Fields[key]
	return v, ok
}

// Text returns a string field, or "" when absent.
func (i *ParsedItem) Text(key string) string {
	s, _ := i.Fields[key].(string)
	return s
}

// MarshalJSON flattens Fields next to the reserved keys.
func (i *ParsedItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Fields)+4)
	for k, v := range i.Fields {
		out[k] = v
	}
	out[FieldID] = i.ID
	out[FieldParsedAt] = i.ParsedAt.Format(time.RFC3339Nano)
	out[FieldSource] = i.Source
	out[FieldType] = i.Type
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (i *ParsedItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.Fields = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case FieldID:
			i.ID, _ = v.(string)
		case FieldSource:
			i.Source, _ = v.(string)
		case FieldType:
			i.Type, _ = v.(string)
		case FieldParsedAt:
			s, _ := v.(string)
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return err
			}
			i.ParsedAt = t
		default:
			i.Fields[k] = v
		}
	}
	return nil
}

func isReserved(key string) bool {
	switch key {
	case FieldID, FieldParsedAt, FieldSource, FieldType:
		return true
	}
	return false
}
