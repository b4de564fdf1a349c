// Package toml parses TOML documents into flat key-value maps.
//
// Importing the package registers the ".toml" extension with the format package.
package toml

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/agriguard/kasane/format"
)

func init() {
	format.Register(New(), ".toml")
}

var tomlUnmarshal = toml.Unmarshal

// Parser parses TOML documents. It is stateless.
type Parser struct{}

// Ensure Parser implements format.Parser.
var _ format.Parser = (*Parser)(nil)

// New returns a TOML Parser.
func New() *Parser {
	return &Parser{}
}

// Format returns the format handled by this parser.
func (p *Parser) Format() format.Format {
	return format.FormatTOML
}

// Parse decodes a TOML document and flattens tables into dotted keys.
func (p *Parser) Parse(data []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	var root map[string]any
	if err := tomlUnmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return format.Flatten(root), nil
}
