// Package mapdata provides an in-memory configuration source.
//
// It is used for hard-coded values, test fixtures, and for snapshots of slower
// sources taken before resolution (see Preload).
package mapdata

import (
	"context"
	"errors"
	"maps"

	"github.com/agriguard/kasane/source"
)

// Source is a read-only source backed by a map[string]string.
// Source is safe for concurrent use.
type Source struct {
	name string
	data map[string]string
}

// Ensure Source implements the source.Source interface.
var _ source.Source = (*Source)(nil)

// New creates a source over data.
// The map is copied, so later modifications to data do not affect the source.
//
// Example:
//
//	defaults := mapdata.New("defaults", map[string]string{
//	    "flutter.mapsApiKey": "YOUR_API_KEY_HERE",
//	})
func New(name string, data map[string]string) *Source {
	cp := maps.Clone(data)
	if cp == nil {
		cp = map[string]string{}
	}
	return &Source{name: name, data: cp}
}

// Name returns the source name.
func (s *Source) Name() string {
	return s.name
}

// Type returns the source type identifier.
func (s *Source) Type() source.SourceType {
	return source.TypeMap
}

// Lookup implements the source.Source interface.
func (s *Source) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Data returns a copy of the source data.
func (s *Source) Data() map[string]string {
	return maps.Clone(s.data)
}

// Len returns the number of keys defined by the source.
func (s *Source) Len() int {
	return len(s.data)
}

// Preload snapshots the given keys of src into an in-memory source with the
// same name. Absent keys are left out of the snapshot.
//
// Keys that could not be read are left out as well; their errors are joined
// and returned alongside the snapshot, which is always usable. This lets a
// caller pay the I/O cost of a slow source once and then resolve without
// blocking.
func Preload(ctx context.Context, src source.Source, keys ...string) (*Source, error) {
	data := make(map[string]string, len(keys))
	var errs []error
	for _, key := range keys {
		v, ok, err := src.Lookup(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			data[key] = v
		}
	}
	return &Source{name: src.Name(), data: data}, errors.Join(errs...)
}
