// Package nullcheck provides the "validation" plugin: a method-level
// processor that injects a guard call before the first use of every
// parameter carrying the not-null marker, plus the Guard handling
// service the injected calls target.
package nullcheck

import (
	"reflect"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// PluginName is the alias the configuration uses for this plugin.
const PluginName = "validation"

// Module implements the registry.Plugin interface for this package.
type Module struct{}

// Name returns the plugin name.
func (m *Module) Name() string { return PluginName }

// Guard is the handling service backing instance-call dispatch. A
// process-wide instance receives every injected check.
type Guard struct {
	Checked int
	Nulls   int
}

// Check records one checked value. The injected call reaches this
// method in instance-call mode.
func (g *Guard) Check(value any) {
	g.Checked++
	if value == nil {
		g.Nulls++
	}
}

// RequireNotNull is the static-call entry point of the guard.
func RequireNotNull(value any) {
	defaultGuard.Check(value)
}

// defaultGuard is the process-wide instance used by the static entry point.
var defaultGuard = &Guard{}

// BuildImage synthesizes the plugin's structural image: the Guard type
// and its two handling methods, as injection callees.
func (m *Module) BuildImage() *image.Assembly {
	asm := &image.Assembly{Name: PluginName, Version: "1.0"}
	mod := asm.AddModule(&image.Module{Name: "validation"})
	guard := mod.AddType(&image.TypeDef{Name: "Guard"})

	static := guard.AddMethod(&image.Method{Name: "RequireNotNull", Static: true})
	static.AddParam(&image.Parameter{Name: "value", TypeName: PluginName + "::Any"})

	instance := guard.AddMethod(&image.Method{Name: "Check"})
	instance.AddParam(&image.Parameter{Name: "value", TypeName: PluginName + "::Any"})

	return asm
}

// Register registers the component and the Guard runtime type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterType(&registry.RuntimeType{
		Name:   "Guard",
		GoType: reflect.TypeOf(Guard{}),
		New:    func() any { return &Guard{} },
	})
	r.RegisterComponent("NullCheckInjector", &registry.RegisteredComponent{
		Level:     image.KindMethod,
		NewConfig: func() any { return new(Config) },
		New:       newProcessor,
	})
}
