package inject

import (
	"fmt"
	"strings"

	"github.com/vk/weavergo/internal/image"
)

// Site is one candidate injection site: a method and the triggering
// context within it (for parameter-triggered injections, the
// parameter).
type Site struct {
	Method *image.Method
	Param  *image.Parameter
}

// Policy decides whether a call should be injected at a site.
type Policy interface {
	ShouldInject(s Site) bool
}

// MarkerPolicy injects when the triggering node carries a named
// marker. This is the declarative, metadata-driven policy.
type MarkerPolicy struct {
	Marker string
}

func (p MarkerPolicy) ShouldInject(s Site) bool {
	if s.Param != nil {
		return s.Param.HasMarker(p.Marker)
	}
	return s.Method.HasMarker(p.Marker)
}

// NamePrefixPolicy injects when the triggering node's name carries a
// recognized prefix.
type NamePrefixPolicy struct {
	Prefix string
}

func (p NamePrefixPolicy) ShouldInject(s Site) bool {
	if s.Param != nil {
		return strings.HasPrefix(s.Param.Name, p.Prefix)
	}
	return strings.HasPrefix(s.Method.Name, p.Prefix)
}

// ArgKind discriminates call-argument descriptors.
type ArgKind int

const (
	// ArgParam loads the triggering (or another) parameter's current value.
	ArgParam ArgKind = iota
	// ArgLocal loads a local variable's current value.
	ArgLocal
	// ArgIntLiteral materializes an integer constant.
	ArgIntLiteral
	// ArgStrLiteral materializes a string constant.
	ArgStrLiteral
)

// Arg describes one argument to synthesize for an injected call,
// independent of the target's concrete type.
type Arg struct {
	Kind  ArgKind
	Param *image.Parameter
	Local int
	Int   int64
	Str   string
}

// ParamArg describes "load this parameter's current value".
func ParamArg(p *image.Parameter) Arg { return Arg{Kind: ArgParam, Param: p} }

// LocalArg describes "load the local at this index".
func LocalArg(index int) Arg { return Arg{Kind: ArgLocal, Local: index} }

// IntArg describes an integer literal argument.
func IntArg(v int64) Arg { return Arg{Kind: ArgIntLiteral, Int: v} }

// StrArg describes a string literal argument.
func StrArg(s string) Arg { return Arg{Kind: ArgStrLiteral, Str: s} }

// Decision is the computed outcome for one injection site: the callee
// reference (already imported into the target assembly), an optional
// service receiver for instance calls, and the ordered arguments.
type Decision struct {
	Callee   *image.MethodRef
	Receiver *image.TypeRef
	Args     []Arg
}

// instruction materializes one argument descriptor.
func (a Arg) instruction() (*image.Instruction, error) {
	switch a.Kind {
	case ArgParam:
		return image.LoadArg(a.Param.Index), nil
	case ArgLocal:
		return &image.Instruction{Op: image.OpLoadLocal, A: a.Local}, nil
	case ArgIntLiteral:
		return &image.Instruction{Op: image.OpLoadInt, I64: a.Int}, nil
	case ArgStrLiteral:
		return &image.Instruction{Op: image.OpLoadStr, Str: a.Str}, nil
	default:
		return nil, fmt.Errorf("unknown argument kind %d", a.Kind)
	}
}

// InsertionPoint computes where the injected sequence goes: before the
// first use of the triggering parameter, or at the start of the body
// when the parameter is never used. A nil parameter targets the body
// start.
func InsertionPoint(m *image.Method, p *image.Parameter) *image.Instruction {
	if m.Body == nil || len(m.Body.Instrs) == 0 {
		return nil
	}
	if p != nil {
		if first := m.Body.FirstUseOfArg(p.Index); first != nil {
			return first
		}
	}
	return m.Body.Instrs[0]
}

// Apply performs the instruction-stream edit for a decision: it
// materializes the receiver (for instance calls) and each argument,
// issues the call, and discards the return value per the void-discard
// convention. The edited body is verified before Apply returns; a
// verification failure is fatal to the run.
func Apply(m *image.Method, d Decision, before *image.Instruction) error {
	if m.Body == nil {
		return fmt.Errorf("cannot inject into %s: method has no body", m.QualifiedName())
	}
	if d.Callee == nil {
		return fmt.Errorf("cannot inject into %s: no callee resolved", m.QualifiedName())
	}

	var seq []*image.Instruction
	callOp := image.OpCall
	if d.Receiver != nil {
		seq = append(seq, &image.Instruction{Op: image.OpLoadService, Type: d.Receiver})
		callOp = image.OpCallVirt
	}
	for _, arg := range d.Args {
		in, err := arg.instruction()
		if err != nil {
			return err
		}
		seq = append(seq, in)
	}
	seq = append(seq, &image.Instruction{Op: callOp, Method: d.Callee})
	if d.Callee.ReturnsValue {
		seq = append(seq, image.Instr(image.OpPop))
	}

	if err := m.Body.InsertBefore(before, seq...); err != nil {
		return &image.EditError{Method: m.QualifiedName(), Reason: err.Error()}
	}
	return image.VerifyBody(m)
}
