// Package plan describes which sources a kasane invocation consults and which
// placeholders it produces.
//
// A plan is a YAML document loaded with koanf. Without a plan file the
// default plan applies, which reads android/local.properties, then the
// MAPS_API_KEY environment variable, then falls back to YOUR_API_KEY_HERE.
package plan

import (
	"time"
)

// DefaultSentinel is the placeholder value written when no source defines
// the Maps API key.
const DefaultSentinel = "YOUR_API_KEY_HERE"

// Source types accepted in a plan.
const (
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceKeyring = "keyring"
	SourceSSM     = "ssm"
	SourceLiteral = "literal"
)

// Plan is the decoded plan document.
type Plan struct {
	// Root is the directory relative file paths are resolved against.
	// Empty means the directory of the plan file, or the working directory
	// for the default plan.
	Root string `koanf:"root"`

	LogLevel string `koanf:"log_level"`

	// Sentinel flags placeholder values that indicate misconfiguration.
	Sentinel string `koanf:"sentinel"`

	// Strict fails placeholder population when any value is the sentinel.
	Strict bool `koanf:"strict"`

	// Timeout bounds each individual source lookup. Zero means no bound.
	Timeout time.Duration `koanf:"timeout"`

	Sources      []SourceSpec      `koanf:"sources"`
	Placeholders []PlaceholderSpec `koanf:"placeholders"`
	Manifest     ManifestSpec      `koanf:"manifest"`
}

// SourceSpec configures one source. Which fields apply depends on Type.
type SourceSpec struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"`

	// file
	Path        string   `koanf:"path"`
	SearchPaths []string `koanf:"search_paths"`
	Format      string   `koanf:"format"`
	Encoding    string   `koanf:"encoding"`

	// env and ssm
	Prefix string `koanf:"prefix"`

	// env: derive variable names from keys with env.EnvKey
	// ("flutter.mapsApiKey" becomes FLUTTER_MAPS_API_KEY).
	Derive bool `koanf:"derive"`

	// env and ssm: per-key name overrides.
	Aliases []AliasSpec `koanf:"aliases"`

	// keyring
	Service string `koanf:"service"`

	// ssm
	Decrypt *bool `koanf:"decrypt"`

	// literal
	Values []ValueSpec `koanf:"values"`
}

// AliasSpec maps a key to the name it has in a particular source.
type AliasSpec struct {
	Key  string `koanf:"key"`
	Name string `koanf:"name"`
}

// ValueSpec is a literal key-value pair.
type ValueSpec struct {
	Key   string `koanf:"key"`
	Value string `koanf:"value"`
}

// PlaceholderSpec binds a placeholder name to a key.
type PlaceholderSpec struct {
	Name     string `koanf:"name"`
	Key      string `koanf:"key"`
	Default  string `koanf:"default"`
	Required bool   `koanf:"required"`

	// Sources restricts resolution to the named sources, in the given order.
	// Empty means all sources in plan order.
	Sources []string `koanf:"sources"`
}

// ManifestSpec names the manifest template and its rendered output.
type ManifestSpec struct {
	Template string `koanf:"template"`
	Output   string `koanf:"output"`
}

// defaults returns the default plan in koanf's map form.
func defaults() map[string]any {
	return map[string]any{
		"log_level": "warn",
		"sentinel":  DefaultSentinel,
		"sources": []any{
			map[string]any{
				"name": "local.properties",
				"type": SourceFile,
				"path": "android/local.properties",
			},
			map[string]any{
				"name": "env",
				"type": SourceEnv,
				"aliases": []any{
					map[string]any{"key": "flutter.mapsApiKey", "name": "MAPS_API_KEY"},
				},
			},
		},
		"placeholders": []any{
			map[string]any{
				"name":    "MAPS_API_KEY",
				"key":     "flutter.mapsApiKey",
				"default": DefaultSentinel,
			},
		},
	}
}
