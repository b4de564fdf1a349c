package source

import (
	"context"
	"fmt"
	"time"
)

// LookupFunc is the signature of Source.Lookup.
type LookupFunc func(ctx context.Context, key string) (string, bool, error)

// funcSource adapts a LookupFunc to the Source interface.
type funcSource struct {
	name string
	fn   LookupFunc
}

// Ensure funcSource implements Source.
var _ Source = (*funcSource)(nil)

// Func returns a Source backed by fn.
//
// Example:
//
//	src := source.Func("flags", func(ctx context.Context, key string) (string, bool, error) {
//	    v, ok := flagValues[key]
//	    return v, ok, nil
//	})
func Func(name string, fn LookupFunc) Source {
	return &funcSource{name: name, fn: fn}
}

func (s *funcSource) Name() string     { return s.name }
func (s *funcSource) Type() SourceType { return TypeFunc }

func (s *funcSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	return s.fn(ctx, key)
}

// aliasSource renames logical keys before delegating to the wrapped source.
type aliasSource struct {
	src     Source
	aliases map[string]string
}

// Alias returns a Source that looks up aliases[key] in src instead of key.
// Keys without an alias are passed through unchanged. The map is copied.
//
// This lets one logical setting live under different names in different
// sources:
//
//	env := source.Alias(env.New("env"), map[string]string{
//	    "flutter.mapsApiKey": "MAPS_API_KEY",
//	})
func Alias(src Source, aliases map[string]string) Source {
	m := make(map[string]string, len(aliases))
	for k, v := range aliases {
		m[k] = v
	}
	return &aliasSource{src: src, aliases: m}
}

func (s *aliasSource) Name() string     { return s.src.Name() }
func (s *aliasSource) Type() SourceType { return s.src.Type() }

func (s *aliasSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	if alias, ok := s.aliases[key]; ok {
		key = alias
	}
	return s.src.Lookup(ctx, key)
}

// Unwrap returns the wrapped source.
func (s *aliasSource) Unwrap() Source { return s.src }

// deadlineSource bounds each lookup of the wrapped source.
type deadlineSource struct {
	src     Source
	timeout time.Duration
}

// WithTimeout returns a Source whose lookups give up after d.
// A lookup that runs out of time fails with an *AccessError wrapping
// context.DeadlineExceeded, so resolution degrades to the next source.
//
// The wrapped lookup runs in its own goroutine; a source that ignores its
// context keeps running after the timeout, but its result is discarded.
func WithTimeout(src Source, d time.Duration) Source {
	return &deadlineSource{src: src, timeout: d}
}

func (s *deadlineSource) Name() string     { return s.src.Name() }
func (s *deadlineSource) Type() SourceType { return s.src.Type() }

// Unwrap returns the wrapped source.
func (s *deadlineSource) Unwrap() Source { return s.src }

type lookupResult struct {
	value string
	ok    bool
	err   error
}

func (s *deadlineSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	if s.timeout <= 0 {
		return s.src.Lookup(ctx, key)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan lookupResult, 1)
	go func() {
		v, ok, err := s.src.Lookup(ctx, key)
		done <- lookupResult{value: v, ok: ok, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.ok, r.err
	case <-ctx.Done():
		return "", false, Access(s.src.Name(), key, fmt.Errorf("lookup timed out after %s: %w", s.timeout, ctx.Err()))
	}
}
