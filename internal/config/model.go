package config

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/weavergo/internal/image"
)

// Model is the unified, format-agnostic representation of one rewrite
// run's configuration: the plugin set, the type-alias table, and the
// five ordered processor lists. It is immutable once loaded.
type Model struct {
	Plugins     map[string]*PluginDefinition
	TypeAliases map[string]*TypeAliasDefinition
	Pipelines   Pipelines
}

// Pipelines holds the ordered processor definitions per structural level.
type Pipelines map[image.Kind][]*ProcessorDefinition

// PluginDefinition binds a plugin alias to its binary path. Path may be
// empty for plugins whose structural image is synthesized in-process.
type PluginDefinition struct {
	Alias string
	Path  string
}

// TypeAliasDefinition binds a configured alias to a (plugin alias,
// type name) pair.
type TypeAliasDefinition struct {
	Alias    string
	Plugin   string
	TypeName string
}

// ProcessorDefinition declares what to instantiate, not the instance
// itself: a component name, its owning plugin alias, the ordered
// generic-argument alias list, and the ordered property bag.
type ProcessorDefinition struct {
	Component  string
	Plugin     string
	Level      image.Kind
	TypeArgs   []string
	Properties *Properties
}

// Property is one name/value pair of a processor's property bag.
type Property struct {
	Name  string
	Value cty.Value
}

// Properties is an insertion-ordered name/value bag.
type Properties struct {
	list  []Property
	index map[string]int
}

// NewProperties builds a bag preserving the order of the given pairs.
func NewProperties(props ...Property) *Properties {
	p := &Properties{index: make(map[string]int, len(props))}
	for _, prop := range props {
		p.Add(prop.Name, prop.Value)
	}
	return p
}

// Add appends a property, replacing the value of an existing name in place.
func (p *Properties) Add(name string, value cty.Value) {
	if i, ok := p.index[name]; ok {
		p.list[i].Value = value
		return
	}
	p.index[name] = len(p.list)
	p.list = append(p.list, Property{Name: name, Value: value})
}

// Get returns the value of a named property.
func (p *Properties) Get(name string) (cty.Value, bool) {
	if p == nil {
		return cty.NilVal, false
	}
	if i, ok := p.index[name]; ok {
		return p.list[i].Value, true
	}
	return cty.NilVal, false
}

// All returns the properties in insertion order.
func (p *Properties) All() []Property {
	if p == nil {
		return nil
	}
	return p.list
}

// Len returns the number of properties in the bag.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}
