package plan

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix of environment variables that override
// plan settings.
const DefaultEnvPrefix = "KASANE_"

// Loader loads a plan from defaults, an optional YAML file, the environment
// and explicit overrides, in increasing order of priority.
//
// Lists (sources, placeholders) are replaced wholesale by a higher-priority
// layer, never merged element by element.
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithFile sets the plan file path.
func WithFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values applied after everything else, keyed by koanf
// path (for example "log_level" or "manifest.output"). Command-line flags
// use this.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a plan loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds and validates the plan.
//
// Environment variables map onto plan keys by dropping the prefix,
// lower-casing and turning "__" into a nesting level:
// KASANE_LOG_LEVEL sets log_level and KASANE_MANIFEST__OUTPUT sets
// manifest.output.
func (l *Loader) Load() (*Plan, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load plan file %s: %w", l.filePath, err)
		}
	}

	if l.envPrefix != "" {
		transform := func(s string) string {
			s = strings.TrimPrefix(s, l.envPrefix)
			return strings.ReplaceAll(strings.ToLower(s), "__", ".")
		}
		if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
			return nil, fmt.Errorf("load env: %w", err)
		}
	}

	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var p Plan
	if err := k.Unmarshal("", &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	if p.Root == "" && l.filePath != "" {
		p.Root = filepath.Dir(l.filePath)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load loads the plan at path (empty for the default plan) with the
// default environment prefix.
func Load(path string) (*Plan, error) {
	return NewLoader(WithFile(path)).Load()
}

// Validate reports every problem in the plan at once.
func (p *Plan) Validate() error {
	var errs []error

	names := make(map[string]bool, len(p.Sources))
	for i, s := range p.Sources {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
		} else if names[s.Name] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		names[s.Name] = true

		switch s.Type {
		case SourceFile:
			if s.Path == "" {
				errs = append(errs, fmt.Errorf("source %q: path is required", s.Name))
			}
		case SourceKeyring:
			if s.Service == "" {
				errs = append(errs, fmt.Errorf("source %q: service is required", s.Name))
			}
		case SourceEnv, SourceSSM, SourceLiteral:
		default:
			errs = append(errs, fmt.Errorf("source %q: unknown type %q", s.Name, s.Type))
		}
	}

	seen := make(map[string]bool, len(p.Placeholders))
	for i, ph := range p.Placeholders {
		if ph.Name == "" {
			errs = append(errs, fmt.Errorf("placeholders[%d]: name is required", i))
		} else if seen[ph.Name] {
			errs = append(errs, fmt.Errorf("placeholders[%d]: duplicate name %q", i, ph.Name))
		}
		seen[ph.Name] = true

		if ph.Key == "" {
			errs = append(errs, fmt.Errorf("placeholder %q: key is required", ph.Name))
		}
		for _, ref := range ph.Sources {
			if !names[ref] {
				errs = append(errs, fmt.Errorf("placeholder %q: unknown source %q", ph.Name, ref))
			}
		}
	}

	if p.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid plan: %w", errors.Join(errs...))
	}
	return nil
}
