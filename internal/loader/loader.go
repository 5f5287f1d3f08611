package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vk/weavergo/internal/config"
	"github.com/vk/weavergo/internal/ctxlog"
	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// loadedPlugin pairs a plugin's structural image with its runtime
// component set. Image-only plugins (callee sources with no compiled-in
// components) have a nil registry.
type loadedPlugin struct {
	alias    string
	image    *image.Assembly
	registry *registry.Registry
}

// Loader instantiates processors from a loaded configuration model.
// It also implements registry.TypeResolver for component
// configurations that reference type aliases.
type Loader struct {
	model   *config.Model
	conv    config.Converter
	catalog *registry.Catalog
	cache   *image.Cache
	logger  *slog.Logger

	plugins map[string]*loadedPlugin
}

// New creates a loader over the given configuration model, converter,
// plugin catalog, and image cache.
func New(model *config.Model, conv config.Converter, catalog *registry.Catalog, cache *image.Cache, logger *slog.Logger) *Loader {
	return &Loader{
		model:   model,
		conv:    conv,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		plugins: make(map[string]*loadedPlugin),
	}
}

// BuildPipelines instantiates every processor definition in the model
// and returns the five ordered pipelines. Any failure aborts the whole
// run before structural mutation begins.
func (l *Loader) BuildPipelines(ctx context.Context) (registry.Pipelines, error) {
	logger := ctxlog.FromContext(ctx)

	restore := l.cache.InstallResolver(programDirResolver())
	defer restore()

	pipelines := make(registry.Pipelines)
	for _, level := range image.Kinds {
		for _, def := range l.model.Pipelines[level] {
			inst, err := l.instantiate(ctx, def)
			if err != nil {
				return nil, err
			}
			pipelines[level] = append(pipelines[level], inst)
			logger.Debug("Processor instantiated.",
				"component", def.Component,
				"plugin", def.Plugin,
				"level", level.String(),
			)
		}
	}
	return pipelines, nil
}

// programDirResolver locates referenced images next to the running
// program, matching the convention plugin binaries are shipped with.
func programDirResolver() image.Resolver {
	exe, err := os.Executable()
	if err != nil {
		return func(string) (string, bool) { return "", false }
	}
	dir := filepath.Dir(exe)
	return func(name string) (string, bool) {
		path := filepath.Join(dir, name+image.FileExtension)
		if _, err := os.Stat(path); err != nil {
			return "", false
		}
		return path, true
	}
}

// loadPlugin resolves a plugin alias, loading its structural image and
// runtime component set on first use. Each plugin is loaded at most
// once per run regardless of how many definitions reference it.
func (l *Loader) loadPlugin(alias string) (*loadedPlugin, error) {
	if lp, ok := l.plugins[alias]; ok {
		return lp, nil
	}
	def, ok := l.model.Plugins[alias]
	if !ok {
		return nil, &PluginNotFoundError{Alias: alias}
	}

	reg, _ := l.catalog.Registry(alias)
	var img *image.Assembly
	switch {
	case def.Path != "":
		loaded, err := l.cache.Load(def.Path)
		if err != nil {
			return nil, &PluginNotFoundError{Alias: alias, Err: err}
		}
		img = loaded
	default:
		built, ok := l.catalog.Image(alias)
		if !ok {
			return nil, &PluginNotFoundError{Alias: alias, Err: fmt.Errorf("no path configured and no compiled-in plugin registered")}
		}
		l.cache.Put(built)
		img = built
	}

	// A plugin image may reference assemblies that are not loaded yet;
	// they are located through the resolver installed for the loading
	// phase.
	for _, refName := range img.References() {
		if _, err := l.cache.Resolve(refName); err != nil {
			return nil, &PluginNotFoundError{Alias: alias, Err: fmt.Errorf("dependency %q: %w", refName, err)}
		}
	}

	lp := &loadedPlugin{alias: alias, image: img, registry: reg}
	l.plugins[alias] = lp
	l.logger.Debug("Plugin loaded.", "alias", alias, "assembly", img.Name, "has_components", reg != nil)
	return lp, nil
}

// Resolve implements registry.TypeResolver for structural type nodes.
func (l *Loader) Resolve(alias string) (*image.TypeDef, error) {
	ta, ok := l.model.TypeAliases[alias]
	if !ok {
		return nil, &UnresolvedAliasError{Alias: alias}
	}
	lp, err := l.loadPlugin(ta.Plugin)
	if err != nil {
		return nil, err
	}
	t, ok := lp.image.Type(ta.TypeName)
	if !ok {
		return nil, &TypeNotFoundError{Plugin: ta.Plugin, TypeName: ta.TypeName}
	}
	return t, nil
}

// ResolveRuntime implements registry.TypeResolver for loadable runtime
// types used in generic specialization and instance-call handling.
func (l *Loader) ResolveRuntime(alias string) (*registry.RuntimeType, error) {
	ta, ok := l.model.TypeAliases[alias]
	if !ok {
		return nil, &UnresolvedAliasError{Alias: alias}
	}
	lp, err := l.loadPlugin(ta.Plugin)
	if err != nil {
		return nil, err
	}
	if lp.registry == nil {
		return nil, &TypeNotFoundError{Plugin: ta.Plugin, TypeName: ta.TypeName}
	}
	rt, ok := lp.registry.Type(ta.TypeName)
	if !ok {
		return nil, &TypeNotFoundError{Plugin: ta.Plugin, TypeName: ta.TypeName}
	}
	return rt, nil
}

// instantiate performs the per-definition loading algorithm: locate
// the component, check generic arity, resolve type arguments, build
// and populate the configuration, and construct the instance.
func (l *Loader) instantiate(ctx context.Context, def *config.ProcessorDefinition) (registry.Instance, error) {
	none := registry.Instance{}

	lp, err := l.loadPlugin(def.Plugin)
	if err != nil {
		return none, err
	}
	if lp.registry == nil {
		return none, &ComponentNotFoundError{Plugin: def.Plugin, Component: def.Component}
	}
	comp, ok := lp.registry.Component(def.Component)
	if !ok {
		return none, &ComponentNotFoundError{Plugin: def.Plugin, Component: def.Component}
	}
	if comp.Level != def.Level {
		return none, fmt.Errorf("component %q operates at the %s level but is declared in the %s pipeline",
			def.Component, comp.Level, def.Level)
	}
	if comp.TypeParams != len(def.TypeArgs) {
		return none, &GenericArityMismatchError{Component: def.Component, Want: comp.TypeParams, Got: len(def.TypeArgs)}
	}

	typeArgs := make([]*registry.RuntimeType, 0, len(def.TypeArgs))
	for _, argAlias := range def.TypeArgs {
		rt, err := l.ResolveRuntime(argAlias)
		if err != nil {
			return none, fmt.Errorf("component %q: type argument %q: %w", def.Component, argAlias, err)
		}
		typeArgs = append(typeArgs, rt)
	}

	var cfg any
	if comp.NewConfig != nil {
		cfg = comp.NewConfig()
		if err := l.conv.DecodeProperties(ctx, cfg, def.Component, def.Properties); err != nil {
			return none, err
		}
		if fin, ok := cfg.(registry.ConfigFinalizer); ok {
			if err := fin.Finalize(l); err != nil {
				return none, fmt.Errorf("processor %q: %w", def.Component, err)
			}
		}
	}

	proc, err := comp.New(registry.ComponentSpec{
		Config:   cfg,
		Logger:   l.logger,
		TypeArgs: typeArgs,
		Image:    lp.image,
	})
	if err != nil {
		return none, fmt.Errorf("constructing component %q: %w", def.Component, err)
	}
	if s, ok := proc.(registry.Stateful); ok {
		l.logger.Debug("Component declares state capability.", "component", def.Component, "has_state", s.HasState())
	}
	return registry.Instance{Component: def.Component, Processor: proc}, nil
}
