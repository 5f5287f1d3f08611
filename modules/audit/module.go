// Package audit provides the "audit" plugin: a type-level processor
// with one generic type parameter. The target type is discovered only
// at configuration time, through a type alias; every type whose base
// chain reaches it is stamped with an audit marker.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// PluginName is the alias the configuration uses for this plugin.
const PluginName = "audit"

// DefaultMarker is the marker stamped on matching types.
const DefaultMarker = "audited"

// Module implements the registry.Plugin interface for this package.
type Module struct{}

// Name returns the plugin name.
func (m *Module) Name() string { return PluginName }

// BuildImage synthesizes the plugin's structural image.
func (m *Module) BuildImage() *image.Assembly {
	return &image.Assembly{Name: PluginName, Version: "1.0"}
}

// Config carries the optional marker-name override.
type Config struct {
	Marker string `weave:"marker,optional"`
}

// Register registers the generic auditor component.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("TypeAuditor", &registry.RegisteredComponent{
		Level:      image.KindType,
		TypeParams: 1,
		NewConfig:  func() any { return new(Config) },
		New: func(spec registry.ComponentSpec) (registry.Processor, error) {
			if len(spec.TypeArgs) != 1 {
				return nil, fmt.Errorf("TypeAuditor requires exactly one type argument")
			}
			cfg := spec.Config.(*Config)
			marker := cfg.Marker
			if marker == "" {
				marker = DefaultMarker
			}
			return &processor{
				logger: spec.Logger,
				target: spec.TypeArgs[0].Name,
				marker: marker,
			}, nil
		},
	})
}

type processor struct {
	logger *slog.Logger
	target string
	marker string
}

// Process stamps the type when its base chain reaches the target type.
func (p *processor) Process(ctx context.Context, node image.Node) error {
	t := node.(*image.TypeDef)
	asm := t.Module.Assembly

	// Guards against cyclic base chains: nothing in the wire format
	// forbids them, and an unbounded walk would hang the run.
	seen := make(map[string]bool)
	for base := t.Base; base != ""; {
		if seen[base] {
			p.logger.Error("Base chain is cyclic; type skipped.", "source", t, "base", base)
			return nil
		}
		seen[base] = true
		if base == p.target {
			t.AddMarker(image.Marker{Name: p.marker, Args: map[string]string{"base": p.target}})
			p.logger.Info("Type audited.", "source", t, "base", p.target)
			return nil
		}
		next, ok := asm.Type(base)
		if !ok {
			// Base lives outside this assembly; the chain ends here.
			return nil
		}
		base = next.Base
	}
	return nil
}
