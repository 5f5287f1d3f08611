package image

import "fmt"

// EditError reports a structurally invalid method body. It indicates a
// latent bug in whatever produced the edit, so callers must treat it as
// fatal rather than write out a corrupt image.
type EditError struct {
	Method string
	At     int
	Reason string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("invalid instruction stream in %s at index %d: %s", e.Method, e.At, e.Reason)
}

// stackEffect returns the pop and push counts of an instruction.
func stackEffect(in *Instruction) (pops, pushes int) {
	switch in.Op {
	case OpLoadArg, OpLoadLocal, OpLoadNull, OpLoadInt, OpLoadStr, OpLoadService:
		return 0, 1
	case OpStoreLocal, OpPop, OpBranchIfNull, OpBranchIfNotNull:
		return 1, 0
	case OpCall, OpCallVirt:
		pops = in.Method.ParamCount
		if in.Op == OpCallVirt {
			pops++
		}
		if in.Method.ReturnsValue {
			pushes = 1
		}
		return pops, pushes
	case OpRet:
		return 0, 0
	default:
		return 0, 0
	}
}

// VerifyBody checks a method body after an edit: operand validity,
// branch and region targets inside the stream, and stack-depth balance
// at every instruction boundary. A method without a body verifies
// trivially.
func VerifyBody(m *Method) error {
	if m.Body == nil {
		return nil
	}
	b := m.Body
	fail := func(at int, format string, args ...any) error {
		return &EditError{Method: m.QualifiedName(), At: at, Reason: fmt.Sprintf(format, args...)}
	}

	index := make(map[*Instruction]int, len(b.Instrs))
	for i, in := range b.Instrs {
		index[in] = i
	}

	// Expected entry depths seeded by branch edges, checked as the
	// linear walk reaches each instruction. entry records the depth
	// each instruction was actually walked with, so backward branches
	// re-entering an already-walked target at a conflicting depth are
	// rejected as well.
	expected := make(map[*Instruction]int)
	entry := make(map[*Instruction]int)
	depth := 0
	known := true // false after an unconditional terminator

	for i, in := range b.Instrs {
		if want, ok := expected[in]; ok {
			if known && depth != want {
				return fail(i, "stack depth mismatch at branch target: fallthrough %d, branch %d", depth, want)
			}
			depth = want
			known = true
		}
		if !known {
			// Unreachable without a recorded branch edge; treat as a
			// fresh frame.
			depth = 0
			known = true
		}
		entry[in] = depth

		switch in.Op {
		case OpLoadArg:
			if in.A < 0 || in.A >= len(m.Params) {
				return fail(i, "ldarg index %d out of range", in.A)
			}
		case OpLoadLocal, OpStoreLocal:
			if in.A < 0 || in.A >= len(m.Locals) {
				return fail(i, "local index %d out of range", in.A)
			}
		case OpCall, OpCallVirt:
			if in.Method == nil {
				return fail(i, "call without a method reference")
			}
		case OpLoadService:
			if in.Type == nil {
				return fail(i, "ldsvc without a type reference")
			}
		case OpBranch, OpBranchIfNull, OpBranchIfNotNull:
			if in.Target == nil {
				return fail(i, "branch without a target")
			}
			if _, ok := index[in.Target]; !ok {
				return fail(i, "branch target is not part of the instruction stream")
			}
		}

		pops, pushes := stackEffect(in)
		if depth < pops {
			return fail(i, "stack underflow: depth %d, need %d", depth, pops)
		}
		depth = depth - pops + pushes

		switch in.Op {
		case OpRet:
			want := 0
			if m.ReturnsValue {
				want = 1
			}
			if depth != want {
				return fail(i, "return with stack depth %d, want %d", depth, want)
			}
			known = false
		case OpBranch:
			if err := expect(expected, entry, index, in.Target, depth, m, i); err != nil {
				return err
			}
			known = false
		case OpBranchIfNull, OpBranchIfNotNull:
			if err := expect(expected, entry, index, in.Target, depth, m, i); err != nil {
				return err
			}
		}
	}

	if known && len(b.Instrs) > 0 {
		last := b.Instrs[len(b.Instrs)-1]
		if last.Op != OpRet && last.Op != OpBranch {
			return fail(len(b.Instrs)-1, "instruction stream falls off the end of the body")
		}
	}

	for ri, r := range b.Regions {
		for _, bound := range []*Instruction{r.Start, r.Handler} {
			if bound == nil {
				return fail(0, "exception region %d has an unset boundary", ri)
			}
			if _, ok := index[bound]; !ok {
				return fail(0, "exception region %d boundary is not part of the instruction stream", ri)
			}
		}
		if r.End != nil {
			if _, ok := index[r.End]; !ok {
				return fail(0, "exception region %d end is not part of the instruction stream", ri)
			}
		}
	}
	return nil
}

func expect(expected, entry, index map[*Instruction]int, target *Instruction, depth int, m *Method, at int) error {
	if got, ok := entry[target]; ok && got != depth {
		return &EditError{
			Method: m.QualifiedName(),
			At:     at,
			Reason: fmt.Sprintf("backward branch re-enters target %d at depth %d, walked at %d", index[target], depth, got),
		}
	}
	if want, ok := expected[target]; ok && want != depth {
		return &EditError{
			Method: m.QualifiedName(),
			At:     at,
			Reason: fmt.Sprintf("conflicting stack depths %d and %d at branch target %d", want, depth, index[target]),
		}
	}
	expected[target] = depth
	return nil
}
