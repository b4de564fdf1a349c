// Package properties parses Java-style .properties files such as Gradle's
// local.properties.
//
// Importing the package registers the ".properties" extension with the
// format package.
package properties

import (
	"bytes"
	"fmt"

	"github.com/magiconair/properties"

	"github.com/agriguard/kasane/format"
)

func init() {
	format.Register(New(), ".properties")
}

// Encoding selects how property file bytes are decoded.
type Encoding = properties.Encoding

// Supported encodings.
const (
	// ISO88591 matches java.util.Properties.load(InputStream).
	ISO88591 = properties.ISO_8859_1
	UTF8     = properties.UTF8
)

// Parser parses .properties files.
// Property references (${other.key}) are not expanded; values are returned
// as written in the file.
type Parser struct {
	encoding Encoding
}

// Ensure Parser implements format.Parser.
var _ format.Parser = (*Parser)(nil)

// Option configures a Parser.
type Option func(*Parser)

// WithEncoding sets the byte encoding. Default is ISO88591.
func WithEncoding(enc Encoding) Option {
	return func(p *Parser) {
		p.encoding = enc
	}
}

// New returns a properties Parser.
//
// Example:
//
//	src := fs.New("local.properties", fs.WithParser(properties.New()))
func New(opts ...Option) *Parser {
	p := &Parser{encoding: ISO88591}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the format handled by this parser.
func (p *Parser) Format() format.Format {
	return format.FormatProperties
}

// Parse decodes data into a flat map.
func (p *Parser) Parse(data []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	loader := &properties.Loader{
		Encoding:         p.encoding,
		DisableExpansion: true,
	}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	return props.Map(), nil
}
