// Package kasanetest provides testing utilities for kasane source implementations.
package kasanetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/agriguard/kasane/source"
	"github.com/agriguard/kasane/watcher"
)

// Keys written into every source under test by SourceTester.
const (
	KeyDefined = "conformance.key"
	KeyEmpty   = "conformance.empty"
	KeyMissing = "conformance.missing"

	// ValueDefined is the value stored under KeyDefined.
	ValueDefined = "value"
)

// SourceFactory creates a Source that defines exactly the given keys.
// The factory is called for each test case to ensure test isolation; use t
// for temporary directories and cleanup.
type SourceFactory func(t *testing.T, data map[string]string) source.Source

// SourceTesterOption configures SourceTester behavior.
type SourceTesterOption func(*SourceTester)

// WithoutEmptyValues skips the check that an empty value is reported as
// defined. Use it for backends that cannot store empty values.
func WithoutEmptyValues() SourceTesterOption {
	return func(st *SourceTester) {
		st.skipEmpty = true
	}
}

// WithoutCancellation skips the cancelled-context check for sources whose
// lookups never block.
func WithoutCancellation() SourceTesterOption {
	return func(st *SourceTester) {
		st.skipCancel = true
	}
}

// SourceTester verifies that a Source honors the lookup contract the
// resolver depends on.
type SourceTester struct {
	t          *testing.T
	factory    SourceFactory
	skipEmpty  bool
	skipCancel bool
}

// NewSourceTester creates a SourceTester for the given SourceFactory.
//
// Example:
//
//	func TestSource_Compliance(t *testing.T) {
//	    kasanetest.NewSourceTester(t, func(t *testing.T, data map[string]string) source.Source {
//	        return mapdata.New("test", data)
//	    }).TestAll()
//	}
func NewSourceTester(t *testing.T, factory SourceFactory, opts ...SourceTesterOption) *SourceTester {
	st := &SourceTester{
		t:       t,
		factory: factory,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

func (st *SourceTester) newSource(t *testing.T) source.Source {
	t.Helper()
	data := map[string]string{KeyDefined: ValueDefined}
	if !st.skipEmpty {
		data[KeyEmpty] = ""
	}
	s := st.factory(t, data)
	require(t, s != nil, "factory returned nil source")
	return s
}

// TestAll runs all standard compliance tests for Source implementations.
func (st *SourceTester) TestAll() {
	st.t.Run("Identity", st.testIdentity)
	st.t.Run("LookupDefined", st.testLookupDefined)
	st.t.Run("LookupEmpty", st.testLookupEmpty)
	st.t.Run("LookupMissing", st.testLookupMissing)
	st.t.Run("LookupCancelled", st.testLookupCancelled)
	st.t.Run("ConcurrentLookup", st.testConcurrentLookup)
	st.t.Run("Subscribe", st.testSubscribe)
}

// testIdentity verifies Name() and Type() are non-empty.
func (st *SourceTester) testIdentity(t *testing.T) {
	s := st.newSource(t)
	check(t, s.Name() != "", "Name() returned empty string")
	check(t, s.Type() != "", "Type() returned empty string")
}

func (st *SourceTester) testLookupDefined(t *testing.T) {
	s := st.newSource(t)

	v, ok, err := s.Lookup(context.Background(), KeyDefined)
	requireNoError(t, err, "Lookup(%q) error = %v", KeyDefined, err)
	require(t, ok, "Lookup(%q) ok = false, want true", KeyDefined)
	check(t, v == ValueDefined, "Lookup(%q) = %q, want %q", KeyDefined, v, ValueDefined)
}

// testLookupEmpty verifies that an empty value is defined, not absent.
func (st *SourceTester) testLookupEmpty(t *testing.T) {
	if st.skipEmpty {
		t.Skip("empty values not supported by this source")
	}
	s := st.newSource(t)

	v, ok, err := s.Lookup(context.Background(), KeyEmpty)
	requireNoError(t, err, "Lookup(%q) error = %v", KeyEmpty, err)
	check(t, ok, "Lookup(%q) ok = false, want true for an empty value", KeyEmpty)
	check(t, v == "", "Lookup(%q) = %q, want empty", KeyEmpty, v)
}

// testLookupMissing verifies that an undefined key is absent without error.
func (st *SourceTester) testLookupMissing(t *testing.T) {
	s := st.newSource(t)

	v, ok, err := s.Lookup(context.Background(), KeyMissing)
	requireNoError(t, err, "Lookup(%q) error = %v, want nil for an undefined key", KeyMissing, err)
	check(t, !ok, "Lookup(%q) ok = true, want false", KeyMissing)
	check(t, v == "", "Lookup(%q) = %q, want empty", KeyMissing, v)
}

func (st *SourceTester) testLookupCancelled(t *testing.T) {
	if st.skipCancel {
		t.Skip("cancellation not observed by this source")
	}
	s := st.newSource(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := s.Lookup(ctx, KeyDefined)
	check(t, !ok, "Lookup() with cancelled context ok = true, want false")
	check(t, errors.Is(err, context.Canceled),
		"Lookup() with cancelled context error = %v, want context.Canceled", err)
}

func (st *SourceTester) testConcurrentLookup(t *testing.T) {
	s := st.newSource(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok, err := s.Lookup(context.Background(), KeyDefined)
			if err != nil {
				errs <- err
				return
			}
			if !ok || v != ValueDefined {
				errs <- errors.New("concurrent lookup returned " + v)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Lookup() error = %v", err)
	}
}

// testSubscribe verifies Subscribe behavior for watcher.Subscriber implementations.
func (st *SourceTester) testSubscribe(t *testing.T) {
	s := st.newSource(t)

	sub, ok := s.(watcher.Subscriber)
	if !ok {
		t.Skip("Source does not implement watcher.Subscriber")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := sub.Subscribe(ctx, func(error) {})
	requireNoError(t, err, "Subscribe() error = %v", err)
	require(t, stop != nil, "Subscribe() returned nil StopFunc")

	// A second subscription must be independent of the first.
	stop2, err := sub.Subscribe(ctx, func(error) {})
	requireNoError(t, err, "second Subscribe() error = %v", err)

	check(t, stop(context.Background()) == nil, "StopFunc() returned error")
	check(t, stop2(context.Background()) == nil, "second StopFunc() returned error")
}
