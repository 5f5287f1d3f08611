package registry

import (
	"fmt"

	"github.com/vk/weavergo/internal/image"
)

// Plugin is the interface a compiled-in plugin implements to be
// registered with the engine. Name must match the name declared by the
// plugin's structural image.
type Plugin interface {
	Name() string
	// Register populates the plugin's registry with its components and
	// runtime types.
	Register(r *Registry)
	// BuildImage synthesizes the plugin's structural image: the types
	// and methods it exposes as injection callees.
	BuildImage() *image.Assembly
}

// catalogEntry pairs a plugin with its populated registry and the
// memoized result of BuildImage.
type catalogEntry struct {
	plugin   Plugin
	registry *Registry
	image    *image.Assembly
}

// Catalog collects the registries of every plugin linked into the
// program, keyed by plugin name.
type Catalog struct {
	entries map[string]*catalogEntry
}

// NewCatalog builds a catalog from the given plugins, registering each
// one exactly once.
func NewCatalog(plugins ...Plugin) *Catalog {
	c := &Catalog{entries: make(map[string]*catalogEntry)}
	for _, p := range plugins {
		c.Add(p)
	}
	return c
}

// Add registers a plugin. Duplicate names are a programmer error.
func (c *Catalog) Add(p Plugin) {
	if _, exists := c.entries[p.Name()]; exists {
		panic(fmt.Sprintf("plugin with name '%s' already registered", p.Name()))
	}
	reg := New()
	p.Register(reg)
	c.entries[p.Name()] = &catalogEntry{plugin: p, registry: reg}
}

// Registry returns the component registry of a named plugin.
func (c *Catalog) Registry(name string) (*Registry, bool) {
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return e.registry, true
}

// Image returns the named plugin's structural image, synthesizing it
// on first use.
func (c *Catalog) Image(name string) (*image.Assembly, bool) {
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if e.image == nil {
		e.image = e.plugin.BuildImage()
	}
	return e.image, true
}
