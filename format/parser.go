// Package format provides parsers that turn file contents into flat key-value maps.
//
// Nested documents (YAML, TOML, JSONC) are flattened into dotted keys, so that
//
//	flutter:
//	  mapsApiKey: AIza-TEST-123
//
// and the properties line
//
//	flutter.mapsApiKey=AIza-TEST-123
//
// both define the key "flutter.mapsApiKey".
package format

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agriguard/kasane/types"
)

// Format is an alias for types.Format.
type Format = types.Format

// Standard formats.
const (
	FormatProperties Format = "properties"
	FormatYAML       Format = "yaml"
	FormatTOML       Format = "toml"
	FormatJSONC      Format = "jsonc"
)

// Parser parses raw bytes into a flat map of string values.
type Parser interface {
	// Format returns the format handled by this parser.
	Format() Format

	// Parse decodes data. Empty input yields an empty map.
	Parse(data []byte) (map[string]string, error)
}

// ParseFunc is a function that parses bytes into a flat map.
type ParseFunc func([]byte) (map[string]string, error)

// NewParser creates a Parser with the given format and parse function.
//
// Example:
//
//	parser := format.NewParser(format.FormatYAML, parseYAML)
func NewParser(f Format, parse ParseFunc) Parser {
	return &parser{format: f, parseFunc: parse}
}

type parser struct {
	format    Format
	parseFunc ParseFunc
}

// Ensure parser implements the Parser interface.
var _ Parser = (*parser)(nil)

func (p *parser) Format() Format { return p.format }

func (p *parser) Parse(data []byte) (map[string]string, error) {
	return p.parseFunc(data)
}

var (
	registryMu sync.RWMutex
	byExt      = map[string]Parser{}
)

// Register associates file extensions (with or without the leading dot)
// with a parser. Format packages call Register from init.
func Register(p Parser, exts ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range exts {
		byExt[normalizeExt(ext)] = p
	}
}

// ForPath returns the parser registered for the extension of path.
// The format package must have been imported for its extensions to be known.
func ForPath(path string) (Parser, error) {
	ext := normalizeExt(filepath.Ext(path))
	registryMu.RLock()
	p, ok := byExt[ext]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no parser registered for %q", path)
	}
	return p, nil
}

// ForName returns the parser registered under a format name or extension,
// such as "yaml" or ".yml".
func ForName(name string) (Parser, error) {
	registryMu.RLock()
	p, ok := byExt[normalizeExt(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown format %q", name)
	}
	return p, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
