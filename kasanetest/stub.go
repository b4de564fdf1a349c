package kasanetest

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/agriguard/kasane/source"
)

// TypeStub is the source type reported by Stub.
const TypeStub source.SourceType = "stub"

// Stub is an in-memory source that records every lookup and can be told to
// fail. It is useful for asserting resolution order and short-circuiting.
type Stub struct {
	name string

	mu      sync.Mutex
	values  map[string]string
	err     error
	keyErrs map[string]error
	calls   []string
}

// Ensure Stub implements source.Source.
var _ source.Source = (*Stub)(nil)

// NewStub creates a Stub defining the given values.
func NewStub(name string, values map[string]string) *Stub {
	return &Stub{
		name:    name,
		values:  maps.Clone(values),
		keyErrs: make(map[string]error),
	}
}

// FailWith makes every subsequent lookup fail with an *source.AccessError
// wrapping err. A nil err clears the failure.
func (s *Stub) FailWith(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// FailKey makes lookups of key fail with an *source.AccessError wrapping err.
func (s *Stub) FailKey(key string, err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyErrs[key] = err
	return s
}

// Set defines or replaces a value.
func (s *Stub) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
}

// Name returns the stub's name.
func (s *Stub) Name() string {
	return s.name
}

// Type returns TypeStub.
func (s *Stub) Type() source.SourceType {
	return TypeStub
}

// Lookup records the call and answers from the stored values.
func (s *Stub) Lookup(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, key)
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err, ok := s.keyErrs[key]; ok && err != nil {
		return "", false, source.Access(s.name, key, err)
	}
	if s.err != nil {
		return "", false, source.Access(s.name, key, s.err)
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Calls returns the number of lookups made so far.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Keys returns the looked-up keys in call order.
func (s *Stub) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Reset forgets recorded calls.
func (s *Stub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
