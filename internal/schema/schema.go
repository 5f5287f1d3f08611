// Package schema declares the HCL block structures of a weavergo
// configuration file. The hcl package decodes into these structs and
// translates them into the format-agnostic config model.
package schema

import "github.com/hashicorp/hcl/v2"

// PluginBlock declares a plugin alias and the path of its image file.
// Path is optional for plugins whose image is synthesized in-process.
type PluginBlock struct {
	Alias string `hcl:"alias,label"`
	Path  string `hcl:"path,optional"`
}

// TypeAliasBlock binds an alias to a (plugin, type name) pair.
type TypeAliasBlock struct {
	Alias  string `hcl:"alias,label"`
	Plugin string `hcl:"plugin"`
	Type   string `hcl:"type"`
}

// PropertiesBlock holds the raw attribute body of a processor's
// `properties` block. Attribute order is recovered from source
// positions during translation.
type PropertiesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// ProcessorBlock declares one processor: the component to instantiate,
// its owning plugin, generic type-argument aliases, and properties.
type ProcessorBlock struct {
	Component  string           `hcl:"component,label"`
	Plugin     string           `hcl:"plugin"`
	TypeArgs   []string         `hcl:"type_args,optional"`
	Properties *PropertiesBlock `hcl:"properties,block"`
}

// PipelineBlock holds the ordered processors of one structural level.
type PipelineBlock struct {
	Level      string            `hcl:"level,label"`
	Processors []*ProcessorBlock `hcl:"processor,block"`
}

// Config is the top-level structure of a configuration file.
type Config struct {
	Plugins     []*PluginBlock    `hcl:"plugin,block"`
	TypeAliases []*TypeAliasBlock `hcl:"type_alias,block"`
	Pipelines   []*PipelineBlock  `hcl:"pipeline,block"`
	Body        hcl.Body          `hcl:",remain"`
}
