package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from a given path, translates it into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, path string) (*Model, Converter, error)
}

// Converter is the interface for format-specific data binding: it
// populates a component's configuration struct from a property bag,
// applying type conversions and required-property validation.
type Converter interface {
	// DecodeProperties decodes a property bag into the target struct.
	// processor names the owning processor definition for diagnostics.
	DecodeProperties(ctx context.Context, target any, processor string, props *Properties) error
}
