package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agriguard/kasane"
	"github.com/agriguard/kasane/format"
	"github.com/agriguard/kasane/format/properties"
	"github.com/agriguard/kasane/source"
	"github.com/agriguard/kasane/source/env"
	"github.com/agriguard/kasane/source/fs"
	"github.com/agriguard/kasane/source/keyring"
	"github.com/agriguard/kasane/source/mapdata"
	"github.com/agriguard/kasane/source/ssm"

	// Register the remaining file formats.
	_ "github.com/agriguard/kasane/format/jsonc"
	_ "github.com/agriguard/kasane/format/toml"
	_ "github.com/agriguard/kasane/format/yaml"
)

// Stack is a plan turned into live sources and bindings.
type Stack struct {
	// Sources in plan order.
	Sources []source.Source

	// Files are the file-backed sources, for watching.
	Files []*fs.Source

	Bindings *kasane.Bindings

	byName map[string]source.Source
}

// Source returns the source with the given plan name.
func (s *Stack) Source(name string) (source.Source, bool) {
	src, ok := s.byName[name]
	return src, ok
}

// Build constructs the sources and bindings described by the plan.
// No source is consulted; backends connect lazily on first lookup.
func (p *Plan) Build() (*Stack, error) {
	st := &Stack{
		Bindings: &kasane.Bindings{},
		byName:   make(map[string]source.Source, len(p.Sources)),
	}

	for _, spec := range p.Sources {
		src, err := p.buildSource(spec, st)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
		src = source.WithTimeout(src, p.Timeout)
		st.Sources = append(st.Sources, src)
		st.byName[spec.Name] = src
	}

	for _, ph := range p.Placeholders {
		binding := kasane.Binding{
			Key:      ph.Key,
			Default:  ph.Default,
			Required: ph.Required,
		}
		if len(ph.Sources) > 0 {
			binding.Sources = make([]source.Source, 0, len(ph.Sources))
			for _, name := range ph.Sources {
				src, ok := st.byName[name]
				if !ok {
					return nil, fmt.Errorf("placeholder %q: unknown source %q", ph.Name, name)
				}
				binding.Sources = append(binding.Sources, src)
			}
		}
		st.Bindings.Bind(ph.Name, binding)
	}

	return st, nil
}

func (p *Plan) buildSource(spec SourceSpec, st *Stack) (source.Source, error) {
	var src source.Source
	switch spec.Type {
	case SourceFile:
		f, err := p.buildFile(spec)
		if err != nil {
			return nil, err
		}
		st.Files = append(st.Files, f)
		src = f

	case SourceEnv:
		opts := []env.Option{env.WithPrefix(spec.Prefix)}
		if spec.Derive {
			opts = append(opts, env.WithKeyFunc(env.EnvKey))
		}
		src = env.New(spec.Name, opts...)

	case SourceKeyring:
		src = keyring.New(spec.Name, spec.Service)

	case SourceSSM:
		var opts []ssm.Option
		if spec.Decrypt != nil {
			opts = append(opts, ssm.WithDecryption(*spec.Decrypt))
		}
		src = ssm.New(spec.Name, spec.Prefix, opts...)

	case SourceLiteral:
		values := make(map[string]string, len(spec.Values))
		for _, v := range spec.Values {
			values[v.Key] = v.Value
		}
		src = mapdata.New(spec.Name, values)

	default:
		return nil, fmt.Errorf("unknown type %q", spec.Type)
	}

	if len(spec.Aliases) > 0 {
		aliases := make(map[string]string, len(spec.Aliases))
		for _, a := range spec.Aliases {
			aliases[a.Key] = a.Name
		}
		src = source.Alias(src, aliases)
	}
	return src, nil
}

func (p *Plan) buildFile(spec SourceSpec) (*fs.Source, error) {
	opts := []fs.Option{fs.WithName(spec.Name)}

	if len(spec.SearchPaths) > 0 {
		paths := make([]string, len(spec.SearchPaths))
		for i, sp := range spec.SearchPaths {
			paths[i] = p.resolvePath(sp)
		}
		opts = append(opts, fs.WithSearchPaths(paths...))
	}

	name := spec.Format
	if name == "" {
		name = filepath.Ext(spec.Path)
	}
	parser, err := parserFor(name, spec.Encoding)
	if err != nil {
		return nil, err
	}
	if parser != nil {
		opts = append(opts, fs.WithParser(parser))
	}

	return fs.New(p.resolvePath(spec.Path), opts...), nil
}

// parserFor picks an explicit parser when the plan names a format or an
// encoding. A nil parser lets the file source choose by extension, which
// also covers search paths with different extensions.
func parserFor(name, encoding string) (format.Parser, error) {
	isProperties := strings.EqualFold(strings.TrimPrefix(name, "."), string(format.FormatProperties))

	if encoding != "" {
		if !isProperties {
			return nil, fmt.Errorf("encoding is only supported for properties files")
		}
		enc, err := parseEncoding(encoding)
		if err != nil {
			return nil, err
		}
		return properties.New(properties.WithEncoding(enc)), nil
	}

	if name == "" || strings.HasPrefix(name, ".") {
		return nil, nil
	}
	return format.ForName(name)
}

func parseEncoding(s string) (properties.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "utf-8", "utf8":
		return properties.UTF8, nil
	case "iso-8859-1", "latin1", "latin-1":
		return properties.ISO88591, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

// resolvePath anchors relative paths at the plan root. Home-relative paths
// are left for the file source to expand.
func (p *Plan) resolvePath(path string) string {
	if p.Root == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return path
	}
	return filepath.Join(p.Root, path)
}

// Resolver returns a resolver configured from the plan's sentinel.
func (p *Plan) Resolver(opts ...kasane.Option) *kasane.Resolver {
	if p.Sentinel != "" {
		opts = append([]kasane.Option{kasane.WithSentinel(p.Sentinel)}, opts...)
	}
	return kasane.New(opts...)
}
