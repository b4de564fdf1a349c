// Package env provides a process-environment configuration source.
package env

import (
	"context"
	"os"
	"strings"
	"unicode"

	"github.com/agriguard/kasane/source"
)

// Source looks up keys in the process environment.
//
// A variable that is not set is absent. A variable set to the empty string is
// present with value "".
//
// Keys are converted to variable names by the key function (identity by
// default) and then prefixed. With prefix "AGRI_" and KeyFunc EnvKey, the key
// "flutter.mapsApiKey" is read from AGRI_FLUTTER_MAPS_API_KEY.
//
// Source is read-only and safe for concurrent use.
type Source struct {
	name    string
	prefix  string
	keyFunc func(string) string
	lookup  func(string) (string, bool)
}

// Ensure Source implements the source.Source interface.
var _ source.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithPrefix sets a prefix prepended to every variable name.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// WithKeyFunc sets the function that maps a key to a variable name
// (before the prefix is applied).
func WithKeyFunc(fn func(string) string) Option {
	return func(s *Source) {
		s.keyFunc = fn
	}
}

// WithLookupFunc replaces os.LookupEnv. Useful for tests and for resolving
// against a captured environment snapshot.
func WithLookupFunc(fn func(string) (string, bool)) Option {
	return func(s *Source) {
		s.lookup = fn
	}
}

// New creates an environment source.
//
// Example:
//
//	// MAPS_API_KEY read verbatim
//	src := env.New("env")
//
//	// flutter.mapsApiKey read from AGRI_FLUTTER_MAPS_API_KEY
//	src := env.New("env", env.WithPrefix("AGRI_"), env.WithKeyFunc(env.EnvKey))
func New(name string, opts ...Option) *Source {
	s := &Source{
		name:    name,
		keyFunc: func(k string) string { return k },
		lookup:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromMap creates a source over a fixed snapshot of variables.
// The map is copied.
func FromMap(name string, vars map[string]string, opts ...Option) *Source {
	snapshot := make(map[string]string, len(vars))
	for k, v := range vars {
		snapshot[k] = v
	}
	opts = append([]Option{WithLookupFunc(func(k string) (string, bool) {
		v, ok := snapshot[k]
		return v, ok
	})}, opts...)
	return New(name, opts...)
}

// Name returns the source name.
func (s *Source) Name() string {
	return s.name
}

// Type returns the source type identifier.
func (s *Source) Type() source.SourceType {
	return source.TypeEnv
}

// Prefix returns the variable name prefix.
func (s *Source) Prefix() string {
	return s.prefix
}

// VarName returns the environment variable consulted for key.
func (s *Source) VarName(key string) string {
	return s.prefix + s.keyFunc(key)
}

// Lookup implements the source.Source interface.
func (s *Source) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := s.lookup(s.VarName(key))
	return v, ok, nil
}

// EnvKey converts a dotted, camel-cased key into an upper snake-case
// variable name: "flutter.mapsApiKey" becomes "FLUTTER_MAPS_API_KEY".
// Dots and dashes become underscores.
func EnvKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)

	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '.' || r == '-':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && needsBreak(runes, i) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// needsBreak reports whether an underscore goes before the upper-case rune
// at i: after a lower-case letter or digit ("mapsApi"), or at the end of an
// acronym ("HTTPServer" -> HTTP_SERVER).
func needsBreak(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '.' || prev == '-' || prev == '_' {
		return false
	}
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
