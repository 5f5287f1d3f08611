package testutil

import (
	"fmt"

	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/registry"
)

// Host supplies the outside world to Exec: Go functions behind the
// method-reference table, keyed by MethodRef.Qualified(), and service
// instances behind the type-reference table, keyed by
// TypeRef.Qualified().
type Host struct {
	Funcs    map[string]func(recv any, args []any) any
	Services map[string]any
}

// ServicesOf constructs one fresh instance of every runtime type the
// plugin registers, keyed the way ldsvc instructions reference them,
// so tests can execute instance-dispatch bodies against real service
// objects.
func ServicesOf(p registry.Plugin) map[string]any {
	r := registry.New()
	p.Register(r)
	services := make(map[string]any)
	for _, rt := range r.Types() {
		if rt.New == nil {
			continue
		}
		services[p.Name()+"::"+rt.Name] = rt.New()
	}
	return services
}

// Exec interprets a method body against the host, with args bound to
// the method's parameters. It exists so behavior tests can observe what
// a rewritten method actually does rather than inspect its instruction
// stream. Exception regions are ignored; the interpreter covers only
// the instruction set the engine emits.
func Exec(m *image.Method, host Host, args ...any) (any, error) {
	if m.Body == nil {
		return nil, fmt.Errorf("cannot execute %s: no body", m.QualifiedName())
	}
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("executing %s: got %d arguments, want %d", m.QualifiedName(), len(args), len(m.Params))
	}

	b := m.Body
	locals := make([]any, len(m.Locals))
	var stack []any
	push := func(v any) { stack = append(stack, v) }
	pop := func() any {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for pc := 0; pc < len(b.Instrs); pc++ {
		in := b.Instrs[pc]
		switch in.Op {
		case image.OpNop:
		case image.OpRet:
			if m.ReturnsValue {
				return pop(), nil
			}
			return nil, nil
		case image.OpLoadArg:
			push(args[in.A])
		case image.OpLoadLocal:
			push(locals[in.A])
		case image.OpStoreLocal:
			locals[in.A] = pop()
		case image.OpLoadNull:
			push(nil)
		case image.OpLoadInt:
			push(in.I64)
		case image.OpLoadStr:
			push(in.Str)
		case image.OpPop:
			pop()
		case image.OpCall, image.OpCallVirt:
			callArgs := make([]any, in.Method.ParamCount)
			for i := in.Method.ParamCount - 1; i >= 0; i-- {
				callArgs[i] = pop()
			}
			var recv any
			if in.Op == image.OpCallVirt {
				recv = pop()
			}
			fn, ok := host.Funcs[in.Method.Qualified()]
			if !ok {
				return nil, fmt.Errorf("executing %s: no host function for %s", m.QualifiedName(), in.Method.Qualified())
			}
			ret := fn(recv, callArgs)
			if in.Method.ReturnsValue {
				push(ret)
			}
		case image.OpLoadService:
			svc, ok := host.Services[in.Type.Qualified()]
			if !ok {
				return nil, fmt.Errorf("executing %s: no host service for %s", m.QualifiedName(), in.Type.Qualified())
			}
			push(svc)
		case image.OpBranch:
			pc = b.Index(in.Target) - 1
		case image.OpBranchIfNull:
			if pop() == nil {
				pc = b.Index(in.Target) - 1
			}
		case image.OpBranchIfNotNull:
			if pop() != nil {
				pc = b.Index(in.Target) - 1
			}
		default:
			return nil, fmt.Errorf("executing %s: unsupported opcode %s", m.QualifiedName(), in.Op)
		}
	}
	return nil, fmt.Errorf("executing %s: fell off the end of the body", m.QualifiedName())
}
