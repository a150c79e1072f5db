package vm

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/ir"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// local is one named, compile-time stack slot: slot is its offset from the
// owning frame's base at the moment it was declared. There is no store
// instruction in this bytecode (see opcodes.go) — a local's value sits
// permanently at frame.base+slot once pushed, and OpLoadLocal just rereads
// it. Anonymous bookkeeping values (a for-loop accumulator, a path step's
// in-progress filtered result) reserve a slot the same way, under the empty
// name, so later declarations still compute the correct offset.
type local struct {
	name string
	slot int
}

const (
	varLocal = iota
	varUpvalue
)

// compiler lowers one function body's ir.Expr tree into bytecode appended to
// a shared Chunk, the same one-chunk-many-entry-points layout as the
// teacher's Compiler. Jump operands are absolute chunk offsets rather than
// the teacher's relative jump lengths, matching how vm.go's dispatch already
// treats OpJump/OpJumpIfFalse/OpLoop targets.
type compiler struct {
	chunk    *Chunk
	desc     *FuncDesc
	locals   []local
	freeVars []string
}

func newCompiler(chunk *Chunk, desc *FuncDesc) *compiler {
	return &compiler{chunk: chunk, desc: desc, freeVars: desc.FreeVars}
}

func (c *compiler) declareLocal(name string) int {
	slot := len(c.locals)
	c.locals = append(c.locals, local{name: name, slot: slot})
	return slot
}

func (c *compiler) undeclareLocal() {
	c.locals = c.locals[:len(c.locals)-1]
}

// resolveVar finds name as a local of this function or a captured upvalue,
// searching locals from the innermost declaration outward.
func (c *compiler) resolveVar(name string) (kind int, idx int, ok bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return varLocal, c.locals[i].slot, true
		}
	}
	for i, fv := range c.freeVars {
		if fv == name {
			return varUpvalue, i, true
		}
	}
	return 0, 0, false
}

func (c *compiler) emitByte(b byte, span diagnostics.Span) {
	c.chunk.Write(b, span.Line, span.Col)
}

func (c *compiler) emitOp(op Opcode, span diagnostics.Span) {
	c.chunk.WriteOp(op, span.Line, span.Col)
}

func (c *compiler) emitU16(v int, span diagnostics.Span) {
	c.chunk.WriteU16(v, span.Line, span.Col)
}

func (c *compiler) here() int { return c.chunk.Len() }

// emitJump writes op followed by a placeholder 2-byte absolute target,
// returning the operand's offset for patchJump to fill in once the jump's
// destination is known.
func (c *compiler) emitJump(op Opcode, span diagnostics.Span) int {
	c.emitOp(op, span)
	offset := c.here()
	c.emitU16(0xffff, span)
	return offset
}

// patchJump overwrites the placeholder operand at offset with the chunk's
// current length, i.e. "jump to here".
func (c *compiler) patchJump(offset int) {
	c.chunk.PatchU16(offset, c.here())
}

// emitLoop emits an unconditional jump back to a previously recorded
// absolute offset.
func (c *compiler) emitLoop(target int, span diagnostics.Span) {
	c.emitOp(OpLoop, span)
	c.emitU16(target, span)
}

func (c *compiler) pushConstBool(b bool, span diagnostics.Span) {
	c.chunk.WriteConstant(xdm.Single(xdm.NewBoolean(b)), span.Line, span.Col)
}

func (c *compiler) pushEmpty(span diagnostics.Span) {
	c.chunk.WriteConstant(xdm.Empty, span.Line, span.Col)
}

// compileExpr lowers an ANF Expr (a Let chain terminating in a Return). tail
// is true when this Expr's eventual Return.Value sits in tail position of
// the enclosing function — propagated through Let bodies and If branches so
// a Return wrapping a StaticCall/DynamicCall anywhere in that chain compiles
// to OpTailCall.
func (c *compiler) compileExpr(e ir.Expr, tail bool) error {
	switch n := e.(type) {
	case *ir.Let:
		if err := c.compileAtom(n.Value, false); err != nil {
			return err
		}
		c.declareLocal(n.Var)
		if err := c.compileExpr(n.Body, tail); err != nil {
			return err
		}
		c.undeclareLocal()
		c.emitOp(OpPopBelow, n.SpanVal)
		c.emitByte(1, n.SpanVal)
		return nil
	case *ir.Return:
		return c.compileAtom(n.Value, tail)
	default:
		return diagnostics.New(diagnostics.XPVM0005, "unknown ir.Expr %T", e)
	}
}

func paramTypes(params []ir.Param) []xdmtype.SequenceType {
	out := make([]xdmtype.SequenceType, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// CompileProgram lowers a top-level body (a compiled query, stylesheet
// initial-template, or function declaration's outermost Expr) into a
// Program whose entry point is params-arity. LocalSlots is fixed at
// len(params): pushFrame's slot-prefill loop pre-fills up to LocalSlots
// beyond the pushed arguments, and since every further local this compiler
// declares grows the stack one slot at a time as it's reached (never
// pre-reserved), setting LocalSlots any higher would shift every local's
// computed offset out from under it.
func CompileProgram(name string, params []ir.Param, ret xdmtype.SequenceType, body ir.Expr) (*Program, error) {
	chunk := NewChunk()
	desc := &FuncDesc{Name: name, Params: paramTypes(params), Return: ret, Entry: 0, LocalSlots: len(params)}
	c := newCompiler(chunk, desc)
	for _, p := range params {
		c.declareLocal(p.Name)
	}
	if err := c.compileExpr(body, true); err != nil {
		return nil, err
	}
	c.emitOp(OpReturn, body.Span())
	chunk.AddFunc(desc)
	return &Program{Chunk: chunk, Entry: desc}, nil
}
