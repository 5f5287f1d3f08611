package image

import "fmt"

// Opcode is one low-level operation of a method body.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpRet
	// OpLoadArg pushes the parameter at index A.
	OpLoadArg
	// OpLoadLocal pushes the local at index A.
	OpLoadLocal
	// OpStoreLocal pops into the local at index A.
	OpStoreLocal
	OpLoadNull
	// OpLoadInt pushes the I64 operand.
	OpLoadInt
	// OpLoadStr pushes the Str operand.
	OpLoadStr
	// OpPop discards the top of the stack.
	OpPop
	// OpCall invokes the Method operand, popping its arguments and
	// pushing its return value when it has one.
	OpCall
	// OpCallVirt is OpCall plus a receiver popped beneath the arguments.
	OpCallVirt
	// OpLoadService pushes the process-wide instance of the Type
	// operand. This is the instance-acquisition convention used by
	// instance-call handler bindings.
	OpLoadService
	// OpBranch jumps unconditionally to Target.
	OpBranch
	// OpBranchIfNull pops one value and jumps to Target when it is absent.
	OpBranchIfNull
	// OpBranchIfNotNull pops one value and jumps to Target when it is present.
	OpBranchIfNotNull
)

var opcodeNames = map[Opcode]string{
	OpNop:             "nop",
	OpRet:             "ret",
	OpLoadArg:         "ldarg",
	OpLoadLocal:       "ldloc",
	OpStoreLocal:      "stloc",
	OpLoadNull:        "ldnull",
	OpLoadInt:         "ldc.i8",
	OpLoadStr:         "ldstr",
	OpPop:             "pop",
	OpCall:            "call",
	OpCallVirt:        "callvirt",
	OpLoadService:     "ldsvc",
	OpBranch:          "br",
	OpBranchIfNull:    "brnull",
	OpBranchIfNotNull: "brnotnull",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Instruction is a single operation in a method body. Branch targets
// point at instructions directly; the codec translates them to stream
// indices on the wire.
type Instruction struct {
	Op Opcode

	// A holds the index operand of ldarg/ldloc/stloc.
	A int
	// I64 holds the ldc.i8 operand.
	I64 int64
	// Str holds the ldstr operand.
	Str string
	// Method holds the call/callvirt operand.
	Method *MethodRef
	// Type holds the ldsvc operand.
	Type *TypeRef
	// Target holds the branch operand.
	Target *Instruction
}

// Instr is a convenience constructor for operand-less instructions.
func Instr(op Opcode) *Instruction { return &Instruction{Op: op} }

// LoadArg builds a ldarg instruction for the given parameter index.
func LoadArg(index int) *Instruction { return &Instruction{Op: OpLoadArg, A: index} }

// Region is an exception-handling region. Its boundaries are
// instruction identities: Start is the first protected instruction,
// End the first instruction past the protected range, and Handler the
// first instruction of the handler.
type Region struct {
	Kind    string
	Start   *Instruction
	End     *Instruction
	Handler *Instruction
}

// Body is a method's instruction stream plus its exception regions.
type Body struct {
	Instrs  []*Instruction
	Regions []*Region
}

// NewBody builds a body from an instruction sequence.
func NewBody(instrs ...*Instruction) *Body {
	return &Body{Instrs: instrs}
}

// Index returns the stream position of an instruction, or -1 when the
// instruction does not belong to this body.
func (b *Body) Index(in *Instruction) int {
	for i, cur := range b.Instrs {
		if cur == in {
			return i
		}
	}
	return -1
}

// InsertBefore splices seq into the stream immediately before at. A nil
// at appends at the end of the stream. Because branches and regions
// reference instructions by identity, no retargeting is needed.
func (b *Body) InsertBefore(at *Instruction, seq ...*Instruction) error {
	if len(seq) == 0 {
		return nil
	}
	if at == nil {
		b.Instrs = append(b.Instrs, seq...)
		return nil
	}
	pos := b.Index(at)
	if pos < 0 {
		return fmt.Errorf("insertion point is not part of the instruction stream")
	}
	out := make([]*Instruction, 0, len(b.Instrs)+len(seq))
	out = append(out, b.Instrs[:pos]...)
	out = append(out, seq...)
	out = append(out, b.Instrs[pos:]...)
	b.Instrs = out
	return nil
}

// FirstUseOfArg returns the first instruction loading the parameter at
// the given index, or nil when the body never uses it.
func (b *Body) FirstUseOfArg(index int) *Instruction {
	for _, in := range b.Instrs {
		if in.Op == OpLoadArg && in.A == index {
			return in
		}
	}
	return nil
}

// Clone deep-copies a method, remapping branch targets and region
// boundaries onto the cloned instruction stream. Reference operands
// are shared; they belong to the assembly's import tables.
func (m *Method) Clone() *Method {
	out := &Method{
		Name:         m.Name,
		Static:       m.Static,
		ReturnsValue: m.ReturnsValue,
		Type:         m.Type,
	}
	out.Markers = append([]Marker(nil), m.Markers...)
	out.Locals = append([]Local(nil), m.Locals...)
	for _, p := range m.Params {
		cp := *p
		cp.Method = out
		cp.Markers = append([]Marker(nil), p.Markers...)
		out.Params = append(out.Params, &cp)
	}
	if m.Body == nil {
		return out
	}

	remap := make(map[*Instruction]*Instruction, len(m.Body.Instrs))
	body := &Body{Instrs: make([]*Instruction, 0, len(m.Body.Instrs))}
	for _, in := range m.Body.Instrs {
		ci := *in
		remap[in] = &ci
		body.Instrs = append(body.Instrs, &ci)
	}
	for _, in := range body.Instrs {
		if in.Target != nil {
			in.Target = remap[in.Target]
		}
	}
	for _, r := range m.Body.Regions {
		body.Regions = append(body.Regions, &Region{
			Kind:    r.Kind,
			Start:   remap[r.Start],
			End:     remap[r.End],
			Handler: remap[r.Handler],
		})
	}
	out.Body = body
	return out
}
