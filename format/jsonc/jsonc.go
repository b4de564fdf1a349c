// Package jsonc parses JSON and JSON-with-comments documents into flat
// key-value maps using github.com/tailscale/hujson.
//
// Importing the package registers the ".jsonc" and ".json" extensions with
// the format package; plain JSON is a subset of JSONC.
package jsonc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/agriguard/kasane/format"
)

func init() {
	format.Register(New(), ".jsonc", ".json")
}

// Parser parses JSONC documents. It is stateless.
type Parser struct{}

// Ensure Parser implements format.Parser.
var _ format.Parser = (*Parser)(nil)

// New returns a JSONC Parser.
func New() *Parser {
	return &Parser{}
}

// Format returns the format handled by this parser.
func (p *Parser) Format() format.Format {
	return format.FormatJSONC
}

// Parse strips comments and trailing commas, decodes the object and
// flattens it into dotted keys. Numbers keep their literal text.
func (p *Parser) Parse(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]string{}, nil
	}

	v, err := hujson.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSONC: %w", err)
	}
	v.Standardize()

	dec := json.NewDecoder(bytes.NewReader(v.Pack()))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode JSONC: %w", err)
	}
	return format.Flatten(root), nil
}
