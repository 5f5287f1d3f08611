// Package stamp provides the "stamp" plugin: an assembly-level
// processor that records which tool processed the image as a marker on
// the assembly node.
package stamp

import (
	"context"
	"log/slog"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// PluginName is the alias the configuration uses for this plugin.
const PluginName = "stamp"

// MarkerName is the marker stamped on processed assemblies.
const MarkerName = "processed-by"

// Module implements the registry.Plugin interface for this package.
type Module struct{}

// Name returns the plugin name.
func (m *Module) Name() string { return PluginName }

// BuildImage synthesizes the plugin's structural image.
func (m *Module) BuildImage() *image.Assembly {
	return &image.Assembly{Name: PluginName, Version: "1.0"}
}

// Config names the tool recorded on the assembly.
type Config struct {
	Tool    string `weave:"tool"`
	Version string `weave:"version,optional"`
}

// Register registers the stamping component.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("AssemblyStamp", &registry.RegisteredComponent{
		Level:     image.KindAssembly,
		NewConfig: func() any { return new(Config) },
		New: func(spec registry.ComponentSpec) (registry.Processor, error) {
			return &processor{logger: spec.Logger, cfg: spec.Config.(*Config)}, nil
		},
	})
}

type processor struct {
	logger *slog.Logger
	cfg    *Config
}

// Process stamps the assembly node.
func (p *processor) Process(ctx context.Context, node image.Node) error {
	a := node.(*image.Assembly)
	a.AddMarker(image.Marker{Name: MarkerName, Args: map[string]string{
		"tool":    p.cfg.Tool,
		"version": p.cfg.Version,
	}})
	p.logger.Info("Assembly stamped.", "source", a, "tool", p.cfg.Tool)
	return nil
}
