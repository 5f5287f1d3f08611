package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/vk/weavergo/internal/image"
)

// Processor is the transformation contract implemented by every
// component. Each component operates on exactly one structural level;
// the node passed to Process is always of that level. Instances are
// constructed once per rewrite run and reused across all nodes at
// their level.
type Processor interface {
	Process(ctx context.Context, node image.Node) error
}

// Stateful is optionally implemented by processors whose injected
// routine requires a persistent instance rather than a pure static
// entry point.
type Stateful interface {
	HasState() bool
}

// TypeResolver resolves configured type aliases during component
// configuration. The plugin loader provides the implementation.
type TypeResolver interface {
	// Resolve returns the structural type node behind an alias.
	Resolve(alias string) (*image.TypeDef, error)
	// ResolveRuntime returns the loadable runtime form behind an alias.
	ResolveRuntime(alias string) (*RuntimeType, error)
}

// ConfigFinalizer is optionally implemented by component configuration
// structs that need alias resolution or cross-property validation
// after the property bag has been decoded.
type ConfigFinalizer interface {
	Finalize(res TypeResolver) error
}

// RuntimeType is the loadable runtime form of a type a plugin exposes:
// its name inside the plugin image, its Go type, and an instance
// constructor for types that back stateful handling services.
type RuntimeType struct {
	Name   string
	GoType reflect.Type
	New    func() any
}

// ComponentSpec carries everything a component factory receives:
// the populated configuration, the run logger, the resolved generic
// type arguments, and the owning plugin's structural image.
type ComponentSpec struct {
	Config   any
	Logger   *slog.Logger
	TypeArgs []*RuntimeType
	Image    *image.Assembly
}

// RegisteredComponent holds the compiled Go parts of one component.
type RegisteredComponent struct {
	// Level is the single structural level the component processes.
	Level image.Kind
	// TypeParams is the number of unbound generic type parameters the
	// component declares; the processor definition must supply exactly
	// this many type-argument aliases.
	TypeParams int
	// NewConfig returns a pointer to an empty configuration struct,
	// or nil for components that take no configuration.
	NewConfig func() any
	// New constructs the processor instance.
	New func(spec ComponentSpec) (Processor, error)
}

// Registry holds the components and runtime types of one plugin.
type Registry struct {
	components map[string]*RegisteredComponent
	types      map[string]*RuntimeType
}

// New creates an empty per-plugin registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]*RegisteredComponent),
		types:      make(map[string]*RuntimeType),
	}
}

// RegisterComponent registers a component factory under its name.
func (r *Registry) RegisterComponent(name string, c *RegisteredComponent) {
	if _, exists := r.components[name]; exists {
		panic(fmt.Sprintf("component with name '%s' already registered", name))
	}
	slog.Debug("Registering component.", "name", name, "level", c.Level.String())
	r.components[name] = c
}

// RegisterType registers a runtime type under its name.
func (r *Registry) RegisterType(t *RuntimeType) {
	if _, exists := r.types[t.Name]; exists {
		panic(fmt.Sprintf("runtime type with name '%s' already registered", t.Name))
	}
	slog.Debug("Registering runtime type.", "name", t.Name)
	r.types[t.Name] = t
}

// Component looks a registered component up by name.
func (r *Registry) Component(name string) (*RegisteredComponent, bool) {
	c, ok := r.components[name]
	return c, ok
}

// Type looks a registered runtime type up by name.
func (r *Registry) Type(name string) (*RuntimeType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns every registered runtime type, sorted by name, for
// callers that stand service instances up ahead of a run.
func (r *Registry) Types() []*RuntimeType {
	out := make([]*RuntimeType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Instance is one instantiated processor together with the component
// name it was declared under, for diagnostics.
type Instance struct {
	Component string
	Processor Processor
}

// Pipelines holds the instantiated, ordered processor lists per
// structural level — the plugin loader's output and the rewriter's
// input.
type Pipelines map[image.Kind][]Instance
