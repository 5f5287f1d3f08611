package image

import (
	"fmt"
	"path/filepath"
)

// Resolver locates the file path of an assembly image by name. It is
// consulted by Cache.Resolve for assemblies that have not been loaded
// yet, e.g. a plugin's own dependencies.
type Resolver func(name string) (path string, ok bool)

// Cache memoizes loaded assembly images for the duration of one run.
// Each image file is read and decoded at most once regardless of how
// many plugins or references point at it.
type Cache struct {
	byName   map[string]*Assembly
	byPath   map[string]*Assembly
	resolver Resolver
}

// NewCache creates an empty image cache.
func NewCache() *Cache {
	return &Cache{
		byName: make(map[string]*Assembly),
		byPath: make(map[string]*Assembly),
	}
}

// Load reads an image file, memoized by cleaned path. The decoded
// assembly is also indexed by its declared name.
func (c *Cache) Load(path string) (*Assembly, error) {
	key := filepath.Clean(path)
	if a, ok := c.byPath[key]; ok {
		return a, nil
	}
	a, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.byPath[key] = a
	c.byName[a.Name] = a
	return a, nil
}

// Put registers an in-memory assembly (one synthesized by a plugin
// rather than loaded from disk) under its name.
func (c *Cache) Put(a *Assembly) {
	c.byName[a.Name] = a
}

// ByName returns a previously loaded or registered assembly.
func (c *Cache) ByName(name string) (*Assembly, bool) {
	a, ok := c.byName[name]
	return a, ok
}

// Resolve returns the assembly with the given name, consulting the
// installed resolver for images not loaded yet.
func (c *Cache) Resolve(name string) (*Assembly, error) {
	if a, ok := c.byName[name]; ok {
		return a, nil
	}
	if c.resolver == nil {
		return nil, fmt.Errorf("assembly %q is not loaded and no image resolver is installed", name)
	}
	path, ok := c.resolver(name)
	if !ok {
		return nil, fmt.Errorf("assembly %q could not be located", name)
	}
	return c.Load(path)
}

// InstallResolver installs a resolver for the duration of a loading
// phase and returns a restore function. Callers must defer the restore
// so the resolver is removed on every exit path and never leaks into
// later work.
func (c *Cache) InstallResolver(r Resolver) (restore func()) {
	prev := c.resolver
	c.resolver = r
	return func() { c.resolver = prev }
}
