// Package yaml parses YAML documents into flat key-value maps.
//
// Importing the package registers the ".yaml" and ".yml" extensions with the
// format package.
package yaml

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/agriguard/kasane/format"
)

func init() {
	format.Register(New(), ".yaml", ".yml")
}

var yamlUnmarshal = yaml.Unmarshal

// Parser parses YAML documents. It is stateless.
type Parser struct{}

// Ensure Parser implements format.Parser.
var _ format.Parser = (*Parser)(nil)

// New returns a YAML Parser.
func New() *Parser {
	return &Parser{}
}

// Format returns the format handled by this parser.
func (p *Parser) Format() format.Format {
	return format.FormatYAML
}

// Parse decodes a YAML mapping and flattens it into dotted keys.
// A document whose root is not a mapping is rejected.
func (p *Parser) Parse(data []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	var root map[string]any
	if err := yamlUnmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return format.Flatten(root), nil
}
