package image

import (
	"fmt"
	"log/slog"
)

// Kind identifies one of the five structural levels of a program image.
type Kind int

const (
	KindAssembly Kind = iota
	KindModule
	KindType
	KindMethod
	KindParameter
)

// Kinds lists the structural levels in traversal order.
var Kinds = []Kind{KindAssembly, KindModule, KindType, KindMethod, KindParameter}

// String returns the level name as it appears in configuration files.
func (k Kind) String() string {
	switch k {
	case KindAssembly:
		return "assembly"
	case KindModule:
		return "module"
	case KindType:
		return "type"
	case KindMethod:
		return "method"
	case KindParameter:
		return "parameter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a configuration-level name into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown structural level %q", s)
}

// Node is implemented by every structural element of an image. The
// slog.LogValuer implementation carries enough source context to
// locate the offending declaration in diagnostics without re-running
// the tool.
type Node interface {
	NodeKind() Kind
	QualifiedName() string
	slog.LogValuer
}

// Marker is a piece of tagged metadata attached to a structural node.
// Markers drive declarative policies such as the not-null check or the
// per-method rename.
type Marker struct {
	Name string
	Args map[string]string
}

// Arg returns a marker argument, or "" when absent.
func (m Marker) Arg(name string) string {
	return m.Args[name]
}

// markers is embedded by every node type that can carry metadata.
type markers struct {
	Markers []Marker
}

// Marker returns the first marker with the given name.
func (m *markers) Marker(name string) (Marker, bool) {
	for _, mk := range m.Markers {
		if mk.Name == name {
			return mk, true
		}
	}
	return Marker{}, false
}

// HasMarker reports whether a marker with the given name is attached.
func (m *markers) HasMarker(name string) bool {
	_, ok := m.Marker(name)
	return ok
}

// AddMarker attaches a marker to the node.
func (m *markers) AddMarker(mk Marker) {
	m.Markers = append(m.Markers, mk)
}

// RemoveMarker detaches all markers with the given name.
func (m *markers) RemoveMarker(name string) {
	out := m.Markers[:0]
	for _, mk := range m.Markers {
		if mk.Name != name {
			out = append(out, mk)
		}
	}
	m.Markers = out
}

// Assembly is the root of a program image. It owns the modules declared
// in the image and the tables of type and method references imported
// from other assemblies.
type Assembly struct {
	Name    string
	Version string
	markers

	Modules []*Module

	TypeRefs   []*TypeRef
	MethodRefs []*MethodRef
}

func (a *Assembly) NodeKind() Kind        { return KindAssembly }
func (a *Assembly) QualifiedName() string { return a.Name }

func (a *Assembly) LogValue() slog.Value {
	return slog.GroupValue(slog.String("assembly", a.Name))
}

// AddModule appends a module and wires its parent pointer.
func (a *Assembly) AddModule(m *Module) *Module {
	m.Assembly = a
	a.Modules = append(a.Modules, m)
	return m
}

// Type looks a type definition up by name across all modules.
func (a *Assembly) Type(name string) (*TypeDef, bool) {
	for _, mod := range a.Modules {
		for _, t := range mod.Types {
			if t.Name == name {
				return t, true
			}
		}
	}
	return nil, false
}

// References returns the names of all assemblies referenced by the
// import tables, deduplicated, excluding the assembly itself.
func (a *Assembly) References() []string {
	seen := map[string]struct{}{a.Name: {}}
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	for _, tr := range a.TypeRefs {
		add(tr.Assembly)
	}
	for _, mr := range a.MethodRefs {
		add(mr.Assembly)
	}
	return out
}

// Module is one compilation unit within an assembly.
type Module struct {
	Name string
	markers

	Types    []*TypeDef
	Assembly *Assembly
}

func (m *Module) NodeKind() Kind { return KindModule }

func (m *Module) QualifiedName() string {
	return m.Assembly.Name + "::" + m.Name
}

func (m *Module) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("assembly", m.Assembly.Name),
		slog.String("module", m.Name),
	)
}

// AddType appends a type definition and wires its parent pointer.
func (m *Module) AddType(t *TypeDef) *TypeDef {
	t.Module = m
	m.Types = append(m.Types, t)
	return t
}

// TypeDef is a type declared inside a module.
type TypeDef struct {
	Name string
	// Base is the name of the base type within the same assembly, or
	// "" for a root type.
	Base string
	// ValueType marks types that cannot hold an absent value.
	ValueType bool
	markers

	Methods []*Method
	Module  *Module
}

func (t *TypeDef) NodeKind() Kind { return KindType }

func (t *TypeDef) QualifiedName() string {
	return t.Module.Assembly.Name + "::" + t.Name
}

func (t *TypeDef) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("assembly", t.Module.Assembly.Name),
		slog.String("type", t.Name),
	)
}

// AddMethod appends a method and wires its parent pointer.
func (t *TypeDef) AddMethod(m *Method) *Method {
	m.Type = t
	t.Methods = append(t.Methods, m)
	return m
}

// Method lookup by name; the image format does not support overloads.
func (t *TypeDef) Method(name string) (*Method, bool) {
	for _, m := range t.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Local is a method-local variable slot.
type Local struct {
	Name     string
	TypeName string
}

// Method is a callable member of a type. A nil Body marks an abstract
// or external method that owns no instruction stream.
type Method struct {
	Name         string
	Static       bool
	ReturnsValue bool
	markers

	Params []*Parameter
	Locals []Local
	Body   *Body
	Type   *TypeDef
}

func (m *Method) NodeKind() Kind { return KindMethod }

func (m *Method) QualifiedName() string {
	return m.Type.QualifiedName() + "." + m.Name
}

func (m *Method) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("assembly", m.Type.Module.Assembly.Name),
		slog.String("type", m.Type.Name),
		slog.String("method", m.Name),
	)
}

// Assembly returns the assembly declaring the method.
func (m *Method) Assembly() *Assembly {
	return m.Type.Module.Assembly
}

// AddParam appends a parameter, assigning its argument index.
func (m *Method) AddParam(p *Parameter) *Parameter {
	p.Method = m
	p.Index = len(m.Params)
	m.Params = append(m.Params, p)
	return p
}

// Parameter is one formal argument of a method.
type Parameter struct {
	Name  string
	Index int
	// TypeName is the qualified name ("Assembly::Type") of the
	// parameter type, which may live in another assembly.
	TypeName string
	// ValueType marks parameters whose type cannot hold an absent value.
	ValueType bool
	markers

	Method *Method
}

func (p *Parameter) NodeKind() Kind { return KindParameter }

func (p *Parameter) QualifiedName() string {
	return p.Method.QualifiedName() + "#" + p.Name
}

func (p *Parameter) LogValue() slog.Value {
	m := p.Method
	return slog.GroupValue(
		slog.String("assembly", m.Type.Module.Assembly.Name),
		slog.String("type", m.Type.Name),
		slog.String("method", m.Name),
		slog.String("parameter", p.Name),
	)
}
