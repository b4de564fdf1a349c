// Package types provides common type definitions shared across kasane packages.
// This package contains only type definitions and interfaces, no logic.
package types

// SourceType identifies the type of a configuration source.
// Constants for standard types are defined in the source package.
type SourceType string

// Format identifies the file format of a file-backed source.
// Constants for standard formats are defined in the format package.
type Format string

// Details holds metadata about a source.
// It provides a unified way to describe a source in diagnostics without
// requiring multiple type assertions.
type Details struct {
	// Name is the source name used in diagnostics.
	Name string

	// Source is the type of source (e.g., "fs", "env", "ssm").
	Source SourceType

	// Path is the file path for file-based sources (empty for other sources).
	Path string

	// Format is the file format (e.g., "properties", "yaml").
	// Empty for sources that are not file-backed.
	Format Format

	// Watchable reports whether the source can notify about changes.
	Watchable bool
}

// DetailsFiller is an interface for populating Details with metadata.
// Sources implement this interface to contribute metadata beyond
// their name and type.
type DetailsFiller interface {
	FillDetails(d *Details)
}
