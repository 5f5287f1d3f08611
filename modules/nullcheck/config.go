package nullcheck

import (
	"fmt"
	"reflect"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/inject"
	"github.com/vk/weavergo/internal/registry"
)

// DefaultMarker is the parameter marker that triggers injection when
// the configuration does not override it.
const DefaultMarker = "notnull"

// Config is the component's configuration. Mode selects static-call or
// instance-call dispatch; the two are mutually exclusive with the
// service alias: static-call forbids it, instance-call requires it.
type Config struct {
	// Mode is "static" or "instance".
	Mode string `weave:"mode"`
	// Handler names the guard method: "Type.Method" inside the plugin
	// image for static dispatch, or a method name on the handling
	// service for instance dispatch.
	Handler string `weave:"handler"`
	// Service is the type alias of the handling-service type.
	Service string `weave:"service,optional"`
	// Marker overrides the parameter marker that triggers injection.
	Marker string `weave:"marker,optional"`

	mode    inject.Mode
	service *image.TypeDef
}

// Finalize implements registry.ConfigFinalizer: it parses the mode,
// enforces the mode/service exclusivity, and resolves the service
// alias for instance dispatch.
func (c *Config) Finalize(res registry.TypeResolver) error {
	mode, err := inject.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	c.mode = mode
	if c.Marker == "" {
		c.Marker = DefaultMarker
	}

	switch mode {
	case inject.ModeStatic:
		if c.Service != "" {
			return fmt.Errorf("static-call mode must not configure a handling service (got %q)", c.Service)
		}
	case inject.ModeInstance:
		if c.Service == "" {
			return fmt.Errorf("instance-call mode requires a handling service")
		}
		c.service, err = res.Resolve(c.Service)
		if err != nil {
			return err
		}
		// Instance dispatch needs the service's runtime form; check at
		// configuration time that it actually exposes the handler, so a
		// typo fails the run before any method is rewritten.
		rt, err := res.ResolveRuntime(c.Service)
		if err != nil {
			return err
		}
		if rt.GoType != nil {
			if _, ok := reflect.PointerTo(rt.GoType).MethodByName(c.Handler); !ok {
				return fmt.Errorf("handling service %q (%s) has no method %q", c.Service, rt.GoType.String(), c.Handler)
			}
		}
	}
	return nil
}
