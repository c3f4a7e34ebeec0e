package contracts

import (
	"context"

	"github.com/steveyegge/contentfactory/internal/schema"
)

// ParserType tags the family a parser belongs to.
type ParserType string

const (
	ParserRSS      ParserType = "rss"
	ParserWeb      ParserType = "web"
	ParserAPI      ParserType = "api"
	ParserSelenium ParserType = "selenium"
	ParserCustom   ParserType = "custom"
)

// Parser fetches a source and turns it into ParsedItems.
//
// Callers run ValidateSource, then TestConnection, then Parse. Parse returns
// an error when the source cannot be fetched or decoded; an empty source is
// a nil error with no items.
type Parser interface {
	Type() ParserType
	Name() string
	Version() string
	Description() string

	Initialize(ctx context.Context, cfg ParserConfig) error
	Parse(ctx context.Context, source string) ([]*ParsedItem, error)
	ValidateSource(source string) bool
	TestConnection(ctx context.Context) bool
}

// Cleaner is implemented by modules holding resources that need release.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// SchemaProvider is implemented by modules that describe their config.
type SchemaProvider interface {
	ConfigSchema() schema.Document
}

// ConfigSchemaOf returns the module's schema, or an empty object document.
func ConfigSchemaOf(v any) schema.Document {
	if sp, ok := v.(SchemaProvider); ok {
		return sp.ConfigSchema()
	}
	return schema.Object()
}
