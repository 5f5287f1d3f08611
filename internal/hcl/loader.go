package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/weavergo/internal/config"
	"github.com/vk/weavergo/internal/ctxlog"
	"github.com/vk/weavergo/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the configuration file at path and translates it into
// the format-agnostic model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL configuration.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to parse configuration file %s: %w", path, diags)
	}

	var raw schema.Config
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to decode configuration file %s: %w", path, diags)
	}

	model, err := l.translate(&raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	logger.Debug("Configuration loaded.",
		"plugins", len(model.Plugins),
		"type_aliases", len(model.TypeAliases),
	)
	return model, NewConverter(), nil
}
