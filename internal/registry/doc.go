// Package registry provides the central "glue" for the plugin system.
//
// A Registry stores the mapping between the component names used in
// configuration files (e.g., "NullCheckInjector") and the compiled Go
// factories and runtime types that implement them — the "loadable
// runtime form" of a plugin binary. The Catalog collects the
// registries of all plugins linked into the program, keyed by plugin
// name, and memoizes each plugin's synthesized structural image.
//
// Generic specialization is modeled as parameterized factory
// construction: a component declares how many type parameters it
// takes, and its factory receives the resolved runtime types at
// instantiation time.
package registry
