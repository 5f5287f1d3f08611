package hcl

import (
	"fmt"
	"sort"

	"github.com/vk/weavergo/internal/config"
	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/schema"
)

// translate converts the decoded HCL schema into the agnostic model,
// validating alias uniqueness and cross-references along the way.
func (l *Loader) translate(raw *schema.Config) (*config.Model, error) {
	model := &config.Model{
		Plugins:     make(map[string]*config.PluginDefinition),
		TypeAliases: make(map[string]*config.TypeAliasDefinition),
		Pipelines:   make(config.Pipelines),
	}

	for _, p := range raw.Plugins {
		if _, exists := model.Plugins[p.Alias]; exists {
			return nil, fmt.Errorf("plugin alias %q declared more than once", p.Alias)
		}
		model.Plugins[p.Alias] = &config.PluginDefinition{Alias: p.Alias, Path: p.Path}
	}

	for _, ta := range raw.TypeAliases {
		if _, exists := model.TypeAliases[ta.Alias]; exists {
			return nil, fmt.Errorf("type alias %q declared more than once", ta.Alias)
		}
		if _, ok := model.Plugins[ta.Plugin]; !ok {
			return nil, fmt.Errorf("type alias %q references undeclared plugin %q", ta.Alias, ta.Plugin)
		}
		model.TypeAliases[ta.Alias] = &config.TypeAliasDefinition{
			Alias:    ta.Alias,
			Plugin:   ta.Plugin,
			TypeName: ta.Type,
		}
	}

	for _, pipe := range raw.Pipelines {
		level, err := image.ParseKind(pipe.Level)
		if err != nil {
			return nil, fmt.Errorf("pipeline block: %w", err)
		}
		if _, exists := model.Pipelines[level]; exists {
			return nil, fmt.Errorf("pipeline %q declared more than once", pipe.Level)
		}
		model.Pipelines[level] = []*config.ProcessorDefinition{}
		for _, proc := range pipe.Processors {
			def, err := l.translateProcessor(model, proc, level)
			if err != nil {
				return nil, err
			}
			model.Pipelines[level] = append(model.Pipelines[level], def)
		}
	}
	return model, nil
}

func (l *Loader) translateProcessor(model *config.Model, proc *schema.ProcessorBlock, level image.Kind) (*config.ProcessorDefinition, error) {
	if _, ok := model.Plugins[proc.Plugin]; !ok {
		return nil, fmt.Errorf("processor %q references undeclared plugin %q", proc.Component, proc.Plugin)
	}
	for _, arg := range proc.TypeArgs {
		if _, ok := model.TypeAliases[arg]; !ok {
			return nil, fmt.Errorf("processor %q references undeclared type alias %q", proc.Component, arg)
		}
	}
	props, err := l.extractProperties(proc)
	if err != nil {
		return nil, err
	}
	return &config.ProcessorDefinition{
		Component:  proc.Component,
		Plugin:     proc.Plugin,
		Level:      level,
		TypeArgs:   proc.TypeArgs,
		Properties: props,
	}, nil
}

// extractProperties collects the attributes of a processor's
// properties block, evaluated as constant values, preserving their
// declaration order via source byte offsets.
func (l *Loader) extractProperties(proc *schema.ProcessorBlock) (*config.Properties, error) {
	props := config.NewProperties()
	if proc.Properties == nil || proc.Properties.Body == nil {
		return props, nil
	}

	attrs, diags := proc.Properties.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("processor %q: invalid properties block: %w", proc.Component, diags)
	}

	ordered := make([]string, 0, len(attrs))
	for name := range attrs {
		ordered = append(ordered, name)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return attrs[ordered[i]].Range.Start.Byte < attrs[ordered[j]].Range.Start.Byte
	})

	for _, name := range ordered {
		val, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("processor %q: property %q: %w", proc.Component, name, diags)
		}
		props.Add(name, val)
	}
	return props, nil
}
