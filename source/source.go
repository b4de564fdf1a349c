// Package source provides the ConfigSource abstraction consulted during resolution.
// A source is a named, read-only key-value lookup. Sources never write; they only
// answer whether a key is defined and, if so, with which value.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/agriguard/kasane/types"
)

// SourceType is an alias for types.SourceType.
type SourceType = types.SourceType

// Standard source types.
const (
	TypeFS       SourceType = "fs"
	TypeEnv      SourceType = "env"
	TypeMap      SourceType = "map"
	TypeFunc     SourceType = "func"
	TypeKeyring  SourceType = "keyring"
	TypeSSM      SourceType = "ssm"
	TypeAlias    SourceType = "alias"
	TypeDeadline SourceType = "deadline"
)

// ErrUnreadable is the default cause attached to an AccessError when a source
// cannot say more about why its backing store could not be read.
var ErrUnreadable = errors.New("source unreadable")

// Source is a named key-value lookup provider.
//
// Lookup returns ok=false when the key is not defined by this source. An empty
// string with ok=true is a defined value. Lookup returns an error (normally an
// *AccessError) when the backing store could not be consulted at all.
type Source interface {
	// Name identifies the source in diagnostics.
	Name() string

	// Type returns the source type identifier.
	Type() SourceType

	// Lookup reads the value for key.
	// The context can be used for cancellation and timeouts of blocking I/O.
	Lookup(ctx context.Context, key string) (value string, ok bool, err error)
}

// AccessError reports that a source could not be read while looking up a key.
type AccessError struct {
	Source string
	Key    string
	Err    error
}

func (e *AccessError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("source %q: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %q: lookup %q: %v", e.Source, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AccessError) Unwrap() error {
	return e.Err
}

// Access wraps err into an *AccessError for the given source and key.
// A nil err is replaced with ErrUnreadable.
func Access(src, key string, err error) *AccessError {
	if err == nil {
		err = ErrUnreadable
	}
	return &AccessError{Source: src, Key: key, Err: err}
}

// IsAccessError reports whether err is, or wraps, an *AccessError.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
