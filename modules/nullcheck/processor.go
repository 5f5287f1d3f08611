package nullcheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/inject"
	"github.com/vk/weavergo/internal/registry"
)

// Processor is the method-level null-check injector. One instance is
// shared by all methods of a run; its binding cache is keyed by the
// parameter type's qualified name so each distinct type builds its
// specialized injector exactly once.
type Processor struct {
	cfg    *Config
	logger *slog.Logger
	policy inject.Policy
	cache  *inject.BindingCache
}

// newProcessor is the component factory registered with the engine.
func newProcessor(spec registry.ComponentSpec) (registry.Processor, error) {
	cfg := spec.Config.(*Config)

	callee, err := resolveHandler(cfg, spec.Image)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:    cfg,
		logger: spec.Logger,
		policy: inject.MarkerPolicy{Marker: cfg.Marker},
	}
	p.cache = inject.NewBindingCache(func(argType string) (*inject.Binding, error) {
		p.logger.Debug("Building specialized handler binding.", "arg_type", argType, "mode", cfg.mode.String())
		if cfg.mode == inject.ModeInstance {
			return inject.NewInstanceBinding(argType, cfg.service, callee)
		}
		return inject.NewStaticBinding(argType, callee)
	})
	return p, nil
}

// resolveHandler locates the guard method the injected calls target.
func resolveHandler(cfg *Config, pluginImage *image.Assembly) (*image.Method, error) {
	if cfg.mode == inject.ModeInstance {
		m, ok := cfg.service.Method(cfg.Handler)
		if !ok {
			return nil, fmt.Errorf("handling service %s has no method %q", cfg.service.QualifiedName(), cfg.Handler)
		}
		return m, nil
	}

	dot := strings.LastIndex(cfg.Handler, ".")
	if dot < 0 {
		return nil, fmt.Errorf("static handler %q must be of the form \"Type.Method\"", cfg.Handler)
	}
	typeName, methodName := cfg.Handler[:dot], cfg.Handler[dot+1:]
	t, ok := pluginImage.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("plugin image %q has no type %q", pluginImage.Name, typeName)
	}
	m, ok := t.Method(methodName)
	if !ok {
		return nil, fmt.Errorf("type %s has no method %q", t.QualifiedName(), methodName)
	}
	return m, nil
}

// HasState reports whether the injected routine needs a persistent
// service instance.
func (p *Processor) HasState() bool {
	return p.cfg.mode == inject.ModeInstance
}

// Process injects a guard call for every marked parameter of the
// method. Policy violations (value-typed parameter, bodiless method)
// are logged against their source location and recovered locally so
// one bad annotation does not abort the whole rewrite; binding and
// edit failures abort the run.
func (p *Processor) Process(ctx context.Context, node image.Node) error {
	m := node.(*image.Method)

	for _, param := range m.Params {
		if !p.policy.ShouldInject(inject.Site{Method: m, Param: param}) {
			continue
		}
		if param.ValueType {
			p.logger.Error("Value-typed parameter cannot be null-checked; skipping.", "source", param)
			continue
		}
		if m.Body == nil {
			p.logger.Error("Method has no body to rewrite; skipping.", "source", m)
			continue
		}

		binding, err := p.cache.For(param.TypeName)
		if err != nil {
			return err
		}
		if err := binding.Inject(m, param); err != nil {
			return err
		}
		p.logger.Info("Null-check injected.", "source", param, "mode", p.cfg.mode.String())
	}
	return nil
}
