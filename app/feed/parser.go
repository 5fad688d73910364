package feed

import (
	"bytes"
	"fmt"
)

// BindError reports a document that passed the schema but could not be
// bound to the canonical model, such as an impossible calendar date.
type BindError struct {
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind rss25 document: %v", e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Parser turns canonical rss25 documents into Feeds.
type Parser struct {
	schema *Schema
}

func NewParser(schema *Schema) *Parser {
	return &Parser{schema: schema}
}

func (p *Parser) Schema() *Schema {
	return p.schema
}

// Run validates data against the schema and binds it. Errors are either a
// *SchemaViolation or a *BindError.
func (p *Parser) Run(data []byte) (*Feed, error) {
	if err := p.schema.Validate(data); err != nil {
		return nil, err
	}

	var feed Feed
	if err := newDecoder(bytes.NewReader(data)).Decode(&feed); err != nil {
		return nil, &BindError{Err: err}
	}

	if feed.Version != p.schema.Version() {
		return nil, &BindError{Err: fmt.Errorf("unsupported version %q", feed.Version)}
	}

	feed.normalize()

	return &feed, nil
}
