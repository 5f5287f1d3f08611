// Package rename provides the "refactor" plugin: a method-level
// processor driven by the declarative `rename` marker. A marked method
// is renamed in place, or duplicated under the new name when the
// marker asks for a duplicate.
package rename

import (
	"context"
	"log/slog"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/inject"
	"github.com/vk/weavergo/internal/registry"
)

// PluginName is the alias the configuration uses for this plugin.
const PluginName = "refactor"

// MarkerName is the method marker this processor reacts to. Its "to"
// argument names the new method name; "duplicate" set to "true" keeps
// the original and adds a clone.
const MarkerName = "rename"

// Module implements the registry.Plugin interface for this package.
type Module struct{}

// Name returns the plugin name.
func (m *Module) Name() string { return PluginName }

// BuildImage synthesizes the plugin's structural image. The plugin
// exposes no callees; the image only declares its identity.
func (m *Module) BuildImage() *image.Assembly {
	return &image.Assembly{Name: PluginName, Version: "1.0"}
}

// Register registers the rename component.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("MethodRenamer", &registry.RegisteredComponent{
		Level: image.KindMethod,
		New: func(spec registry.ComponentSpec) (registry.Processor, error) {
			return &processor{logger: spec.Logger, policy: inject.MarkerPolicy{Marker: MarkerName}}, nil
		},
	})
}

type processor struct {
	logger *slog.Logger
	policy inject.Policy
}

// Process applies the rename marker of one method. A marker without a
// target name is logged against the method and recovered locally.
func (p *processor) Process(ctx context.Context, node image.Node) error {
	m := node.(*image.Method)
	if !p.policy.ShouldInject(inject.Site{Method: m}) {
		return nil
	}
	mk, _ := m.Marker(MarkerName)
	to := mk.Arg("to")
	if to == "" {
		p.logger.Error("Rename marker without a target name; skipping.", "source", m)
		return nil
	}

	if mk.Arg("duplicate") == "true" {
		clone := m.Clone()
		clone.Name = to
		clone.RemoveMarker(MarkerName)
		m.Type.AddMethod(clone)
		p.logger.Info("Method duplicated.", "source", m, "duplicate", to)
		return nil
	}

	from := m.Name
	m.Name = to
	m.RemoveMarker(MarkerName)
	p.logger.Info("Method renamed.", "source", m, "from", from)
	return nil
}
