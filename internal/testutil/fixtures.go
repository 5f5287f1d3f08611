// Package testutil provides shared helpers for weavergo tests: fixture
// image builders, recording plugins, a small body interpreter, and a
// full rewrite harness.
package testutil

import (
	"github.com/vk/weavergo/internal/image"
)

// ServiceAssembly builds the standard fixture image used across tests:
// assembly "app" with one module "main" and one type "Service" exposing
// a single method. The method takes one reference-typed parameter "o"
// of type "app::Order" and its body loads the parameter once, discards
// it, and returns.
func ServiceAssembly(paramMarkers ...image.Marker) *image.Assembly {
	asm := &image.Assembly{Name: "app", Version: "1.0"}
	mod := asm.AddModule(&image.Module{Name: "main"})
	mod.AddType(&image.TypeDef{Name: "Order"})
	svc := mod.AddType(&image.TypeDef{Name: "Service"})

	m := svc.AddMethod(&image.Method{Name: "Handle"})
	p := m.AddParam(&image.Parameter{Name: "o", TypeName: "app::Order"})
	for _, mk := range paramMarkers {
		p.AddMarker(mk)
	}
	m.Body = image.NewBody(
		image.LoadArg(0),
		image.Instr(image.OpPop),
		image.Instr(image.OpRet),
	)
	return asm
}

// FixtureMethod returns the Handle method of a ServiceAssembly fixture.
func FixtureMethod(asm *image.Assembly) *image.Method {
	t, ok := asm.Type("Service")
	if !ok {
		panic("fixture assembly has no Service type")
	}
	m, ok := t.Method("Handle")
	if !ok {
		panic("fixture Service type has no Handle method")
	}
	return m
}

// NotNull returns the standard not-null parameter marker.
func NotNull() image.Marker {
	return image.Marker{Name: "notnull"}
}

// BranchingMethod builds a method whose body contains a conditional
// branch over the parameter, for tests that assert branch targets
// survive instruction-stream edits:
//
//	ldarg 0
//	brnull -> ret
//	ldarg 0
//	pop
//	ret        <- branch target
func BranchingMethod() *image.Method {
	asm := ServiceAssembly()
	m := FixtureMethod(asm)

	ret := image.Instr(image.OpRet)
	m.Body = image.NewBody(
		image.LoadArg(0),
		&image.Instruction{Op: image.OpBranchIfNull, Target: ret},
		image.LoadArg(0),
		image.Instr(image.OpPop),
		ret,
	)
	return m
}
