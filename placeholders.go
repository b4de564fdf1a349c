package kasane

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/agriguard/kasane/source"
)

// ErrUnresolved is matched by errors reporting required placeholders that
// no source defined.
var ErrUnresolved = errors.New("kasane: required placeholder not resolved")

// Placeholders maps placeholder names to resolved values.
// A map is built per invocation by Populate and is never shared between
// invocations.
type Placeholders map[string]string

// Binding describes how a single placeholder is resolved.
type Binding struct {
	// Key is the configuration key looked up in the sources.
	Key string

	// Default is used when no source defines Key.
	Default string

	// Required makes Populate fail when the value comes from Default or
	// equals the resolver's sentinel.
	Required bool

	// Sources overrides the source list passed to Populate for this binding.
	// Nil means use the shared list.
	Sources []source.Source
}

// Bindings is an ordered set of placeholder bindings.
// The zero value is ready to use.
type Bindings struct {
	names  []string
	byName map[string]Binding
}

// Bind records how the placeholder name resolves. Binding the same name
// again replaces the earlier binding but keeps its position.
func (b *Bindings) Bind(name string, binding Binding) *Bindings {
	if b.byName == nil {
		b.byName = make(map[string]Binding)
	}
	if _, exists := b.byName[name]; !exists {
		b.names = append(b.names, name)
	}
	b.byName[name] = binding
	return b
}

// Get returns the binding for name.
func (b *Bindings) Get(name string) (Binding, bool) {
	binding, ok := b.byName[name]
	return binding, ok
}

// Names returns placeholder names in binding order.
func (b *Bindings) Names() []string {
	return slices.Clone(b.names)
}

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	return len(b.names)
}

// UnresolvedError reports a required placeholder that fell through to its
// default or to the sentinel.
type UnresolvedError struct {
	Name       string
	Resolution Resolution
}

func (e *UnresolvedError) Error() string {
	reason := "no source defines key"
	if e.Resolution.Sentinel {
		reason = "value is the placeholder sentinel"
	}
	return fmt.Sprintf("placeholder %s (key %q): %s", e.Name, e.Resolution.Key, reason)
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}

// Populate resolves every binding using the default resolver.
func Populate(ctx context.Context, bindings *Bindings, sources []source.Source) (Placeholders, error) {
	p, _, err := defaultResolver.Populate(ctx, bindings, sources)
	return p, err
}

// Populate resolves every binding and returns the resulting placeholder map
// together with the per-placeholder resolutions, in binding order.
//
// Required bindings that fall through to their default or to the sentinel
// produce an *UnresolvedError; all such failures are joined and returned
// alongside the fully populated map. Any other error (invalid key or context
// cancellation) aborts population and returns a nil map.
func (r *Resolver) Populate(ctx context.Context, bindings *Bindings, sources []source.Source) (Placeholders, []Resolution, error) {
	if bindings == nil {
		return Placeholders{}, nil, nil
	}

	p := make(Placeholders, bindings.Len())
	resolutions := make([]Resolution, 0, bindings.Len())
	var unresolved []error

	for _, name := range bindings.names {
		binding := bindings.byName[name]
		srcs := sources
		if binding.Sources != nil {
			srcs = binding.Sources
		}

		res, err := r.Lookup(ctx, binding.Key, srcs, binding.Default)
		if err != nil {
			return nil, nil, fmt.Errorf("placeholder %s: %w", name, err)
		}

		p[name] = res.Value
		resolutions = append(resolutions, res)
		if binding.Required && (res.Defaulted || res.Sentinel) {
			unresolved = append(unresolved, &UnresolvedError{Name: name, Resolution: res})
		}
	}

	return p, resolutions, errors.Join(unresolved...)
}
