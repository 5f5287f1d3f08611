package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifyFixture(instrs ...*Instruction) error {
	asm := buildAssembly()
	typ, _ := asm.Type("Service")
	m, _ := typ.Method("Handle")
	m.Body = NewBody(instrs...)
	return VerifyBody(m)
}

func TestVerifyBodyAcceptsBalancedStream(t *testing.T) {
	err := verifyFixture(
		LoadArg(0),
		Instr(OpPop),
		Instr(OpRet),
	)
	assert.NoError(t, err)
}

func TestVerifyBodyAcceptsBranches(t *testing.T) {
	m := branchingMethod()
	assert.NoError(t, VerifyBody(m))
}

func TestVerifyBodyNilBody(t *testing.T) {
	asm := buildAssembly()
	typ, _ := asm.Type("Service")
	m, _ := typ.Method("Handle")
	m.Body = nil
	assert.NoError(t, VerifyBody(m))
}

func TestVerifyBodyStackUnderflow(t *testing.T) {
	err := verifyFixture(
		Instr(OpPop),
		Instr(OpRet),
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, 0, editErr.At)
	assert.Contains(t, editErr.Reason, "underflow")
}

func TestVerifyBodyArgIndexOutOfRange(t *testing.T) {
	err := verifyFixture(
		LoadArg(3),
		Instr(OpPop),
		Instr(OpRet),
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Contains(t, editErr.Reason, "ldarg index 3")
}

func TestVerifyBodyLocalIndexOutOfRange(t *testing.T) {
	err := verifyFixture(
		&Instruction{Op: OpLoadLocal, A: 0},
		Instr(OpPop),
		Instr(OpRet),
	)
	assert.Error(t, err)
}

func TestVerifyBodyCallWithoutReference(t *testing.T) {
	err := verifyFixture(
		&Instruction{Op: OpCall},
		Instr(OpRet),
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Contains(t, editErr.Reason, "call without a method reference")
}

func TestVerifyBodyBranchTargetOutsideStream(t *testing.T) {
	err := verifyFixture(
		LoadArg(0),
		&Instruction{Op: OpBranchIfNull, Target: Instr(OpNop)},
		Instr(OpRet),
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Contains(t, editErr.Reason, "not part of the instruction stream")
}

func TestVerifyBodyReturnDepth(t *testing.T) {
	// Void method returning with a value still on the stack.
	err := verifyFixture(
		LoadArg(0),
		Instr(OpRet),
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Contains(t, editErr.Reason, "return with stack depth 1")
}

func TestVerifyBodyValueReturn(t *testing.T) {
	asm := buildAssembly()
	typ, _ := asm.Type("Service")
	m, _ := typ.Method("Handle")
	m.ReturnsValue = true
	m.Body = NewBody(
		LoadArg(0),
		Instr(OpRet),
	)
	assert.NoError(t, VerifyBody(m))
}

func TestVerifyBodyFallsOffEnd(t *testing.T) {
	err := verifyFixture(
		LoadArg(0),
		Instr(OpPop),
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Contains(t, editErr.Reason, "falls off the end")
}

func TestVerifyBodyBranchDepthMismatch(t *testing.T) {
	// The branch edge carries depth 1, the fallthrough reaches the
	// target with depth 0.
	target := Instr(OpPop)
	err := verifyFixture(
		LoadArg(0),
		LoadArg(0),
		&Instruction{Op: OpBranchIfNull, Target: target},
		Instr(OpPop),
		target,
		Instr(OpRet),
	)
	assert.Error(t, err)
}

func TestVerifyBodyBackwardBranchDepthGrowth(t *testing.T) {
	// The loop body pushes one value per iteration and never pops it,
	// so the branch re-enters its target one deeper than the linear
	// walk entered it.
	top := Instr(OpNop)
	err := verifyFixture(
		top,
		LoadArg(0),
		&Instruction{Op: OpBranch, Target: top},
	)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, 2, editErr.At)
	assert.Contains(t, editErr.Reason, "backward branch re-enters target 0 at depth 1")
}

func TestVerifyBodyAcceptsBalancedBackwardBranch(t *testing.T) {
	// A loop whose body leaves the stack where it found it re-enters
	// its target at the walked depth and verifies clean.
	top := LoadArg(0)
	err := verifyFixture(
		top,
		&Instruction{Op: OpBranchIfNotNull, Target: top},
		Instr(OpRet),
	)
	assert.NoError(t, err)
}

func TestVerifyBodyRegionBoundaries(t *testing.T) {
	asm := buildAssembly()
	typ, _ := asm.Type("Service")
	m, _ := typ.Method("Handle")
	body := NewBody(
		LoadArg(0),
		Instr(OpPop),
		Instr(OpRet),
	)
	body.Regions = append(body.Regions, &Region{
		Kind:    "catch",
		Start:   body.Instrs[0],
		Handler: Instr(OpNop), // not in the stream
	})
	m.Body = body

	err := VerifyBody(m)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Contains(t, editErr.Reason, "exception region")
}

func TestVerifyBodyCallStackEffects(t *testing.T) {
	ref := &MethodRef{Assembly: "validation", Type: "Guard", Name: "Check", ParamCount: 1, ReturnsValue: true}

	// call pops its argument and pushes the return value; the pop
	// discards it.
	err := verifyFixture(
		LoadArg(0),
		&Instruction{Op: OpCall, Method: ref},
		Instr(OpPop),
		Instr(OpRet),
	)
	assert.NoError(t, err)

	// callvirt additionally pops a receiver.
	typeRef := &TypeRef{Assembly: "validation", Name: "Guard"}
	err = verifyFixture(
		&Instruction{Op: OpLoadService, Type: typeRef},
		LoadArg(0),
		&Instruction{Op: OpCallVirt, Method: ref},
		Instr(OpPop),
		Instr(OpRet),
	)
	assert.NoError(t, err)
}
