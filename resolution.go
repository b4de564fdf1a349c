package kasane

import (
	"fmt"

	"github.com/agriguard/kasane/source"
)

// Resolution is a resolved value together with its origin.
//
// Exactly one of the following holds:
//   - Defaulted=false: Source/SourceType/Index identify the source that
//     defined the key.
//   - Defaulted=true: no source defined the key and Value is the default.
type Resolution struct {
	// Key is the requested key.
	Key string

	// Value is the resolved value. It may be empty.
	Value string

	// Source is the name of the source that supplied Value.
	// Empty when Defaulted is true.
	Source string

	// SourceType is the type of the source that supplied Value.
	SourceType source.SourceType

	// Index is the position of the supplying source in the list,
	// or -1 when Defaulted is true.
	Index int

	// Defaulted reports whether Value is the caller-supplied default.
	Defaulted bool

	// Sentinel reports whether Value equals the resolver's sentinel.
	Sentinel bool

	// Skipped lists sources that failed to answer and were treated as absent.
	Skipped []SkippedSource

	mask MaskFunc
}

// SkippedSource records a source that could not be consulted.
type SkippedSource struct {
	Name string
	Type source.SourceType
	Err  error
}

// Origin describes where the value came from: the source name, or
// "default".
func (r Resolution) Origin() string {
	if r.Defaulted {
		return "default"
	}
	return r.Source
}

// Masked returns the value passed through the resolver's mask function.
func (r Resolution) Masked() string {
	if r.mask == nil {
		return MaskAll(r.Value)
	}
	return r.mask(r.Value)
}

// String renders the resolution with the value masked.
func (r Resolution) String() string {
	return fmt.Sprintf("%s=%s (from %s)", r.Key, r.Masked(), r.Origin())
}
