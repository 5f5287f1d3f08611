package inject

import (
	"fmt"

	"github.com/vk/weavergo/internal/image"
)

// Mode selects how an injected handling call is dispatched.
type Mode int

const (
	// ModeStatic targets a free function that accepts the argument value.
	ModeStatic Mode = iota
	// ModeInstance targets a method on a configured handling-service
	// type; the engine materializes the service instance.
	ModeInstance
)

func (m Mode) String() string {
	if m == ModeInstance {
		return "instance"
	}
	return "static"
}

// ParseMode parses the configuration spelling of a handling mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "static":
		return ModeStatic, nil
	case "instance":
		return ModeInstance, nil
	default:
		return 0, fmt.Errorf("unknown handling mode %q (want \"static\" or \"instance\")", s)
	}
}

// Binding is the specialized injector for one argument type: it knows
// the dispatch mode, the callee inside the handler plugin's image, and
// the handling-service type for instance dispatch.
type Binding struct {
	mode    Mode
	callee  *image.Method
	service *image.TypeDef
	argType string
}

// NewStaticBinding builds a static-call binding. The callee must be a
// static method.
func NewStaticBinding(argType string, callee *image.Method) (*Binding, error) {
	if !callee.Static {
		return nil, fmt.Errorf("static-call handler %s is not a static method", callee.QualifiedName())
	}
	return &Binding{mode: ModeStatic, callee: callee, argType: argType}, nil
}

// NewInstanceBinding builds an instance-call binding on the given
// handling-service type.
func NewInstanceBinding(argType string, service *image.TypeDef, callee *image.Method) (*Binding, error) {
	if service == nil {
		return nil, fmt.Errorf("instance-call handling requires a handling-service type")
	}
	if callee.Static {
		return nil, fmt.Errorf("instance-call handler %s must not be static", callee.QualifiedName())
	}
	return &Binding{mode: ModeInstance, callee: callee, service: service, argType: argType}, nil
}

// Mode returns the binding's dispatch mode.
func (b *Binding) Mode() Mode { return b.mode }

// HasState reports whether the injected routine requires a persistent
// instance rather than a pure static entry point.
func (b *Binding) HasState() bool { return b.mode == ModeInstance }

// Inject splices the handling call for the triggering parameter into
// its method, importing the callee (and, for instance dispatch, the
// service type) into the target assembly's reference tables.
func (b *Binding) Inject(m *image.Method, p *image.Parameter) error {
	target := m.Assembly()
	d := Decision{
		Callee: target.ImportMethod(b.callee),
		Args:   []Arg{ParamArg(p)},
	}
	if b.mode == ModeInstance {
		d.Receiver = target.TypeRefFor(b.service)
	}
	return Apply(m, d, InsertionPoint(m, p))
}

// BuildFunc constructs the specialized binding for one argument type,
// identified by its stable qualified name.
type BuildFunc func(argType string) (*Binding, error)

// BindingCache lazily builds and caches one specialized binding per
// distinct argument type. Cache scope is the lifetime of the owning
// processor instance, i.e. the whole run; a binding is never rebuilt
// for the same type.
type BindingCache struct {
	build    BuildFunc
	bindings map[string]*Binding
	builds   int
}

// NewBindingCache creates a cache over the given builder.
func NewBindingCache(build BuildFunc) *BindingCache {
	return &BindingCache{
		build:    build,
		bindings: make(map[string]*Binding),
	}
}

// For returns the binding for an argument type, building it on first use.
func (c *BindingCache) For(argType string) (*Binding, error) {
	if b, ok := c.bindings[argType]; ok {
		return b, nil
	}
	b, err := c.build(argType)
	if err != nil {
		return nil, err
	}
	c.builds++
	c.bindings[argType] = b
	return b, nil
}

// Builds returns how many bindings have been constructed so far.
func (c *BindingCache) Builds() int { return c.builds }
