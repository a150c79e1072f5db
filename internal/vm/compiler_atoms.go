package vm

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/ir"
)

// binOpMap covers every ir.BinOpKind whose lowering is "compile Left,
// compile Right, emit one opcode" with no extra control flow. `and`/`or`
// short-circuit and the simple-map operator `!` iterate, so they're handled
// separately in compileBinOp before this table is consulted.
var binOpMap = map[ir.BinOpKind]Opcode{
	ir.OpAdd: OpAdd, ir.OpSub: OpSub, ir.OpMul: OpMul, ir.OpDiv: OpDiv, ir.OpIDiv: OpIDiv, ir.OpMod: OpMod,
	ir.OpEq: OpGeneralEq, ir.OpNe: OpGeneralNe, ir.OpLt: OpGeneralLt,
	ir.OpLe: OpGeneralLe, ir.OpGt: OpGeneralGt, ir.OpGe: OpGeneralGe,
	ir.OpValueEq: OpValueEq, ir.OpValueNe: OpValueNe, ir.OpValueLt: OpValueLt,
	ir.OpValueLe: OpValueLe, ir.OpValueGt: OpValueGt, ir.OpValueGe: OpValueGe,
	ir.OpIs: OpIs, ir.OpNodeBefore: OpNodeBefore, ir.OpNodeAfter: OpNodeAfter,
	ir.OpConcat:    OpStringConcat,
	ir.OpUnion:     OpUnion,
	ir.OpIntersect: OpIntersect,
	ir.OpExcept:    OpExcept,
	ir.OpRange:     OpRange,
	ir.OpSeq:       OpSeqConcat,
}

// compileAtom lowers one ir.Atom, leaving exactly one xdm.Sequence pushed.
// tail only matters for StaticCall/DynamicCall (and the If atom, which
// propagates it into its branches) — everywhere else it's unused, since no
// other atom kind can itself be the direct value of a tail Return.
func (c *compiler) compileAtom(a ir.Atom, tail bool) error {
	switch n := a.(type) {
	case *ir.Const:
		c.chunk.WriteConstant(n.Value, n.SpanVal.Line, n.SpanVal.Col)
		return nil

	case *ir.VarRef:
		kind, idx, ok := c.resolveVar(n.Name)
		if !ok {
			return diagnostics.New(diagnostics.XPST0008, "undefined variable $%s", n.Name)
		}
		if kind == varLocal {
			c.emitOp(OpLoadLocal, n.SpanVal)
		} else {
			c.emitOp(OpLoadUpvalue, n.SpanVal)
		}
		c.emitU16(idx, n.SpanVal)
		return nil

	case *ir.ContextItem:
		c.emitOp(OpContextItem, n.SpanVal)
		return nil
	case *ir.ContextPosition:
		c.emitOp(OpContextPosition, n.SpanVal)
		return nil
	case *ir.ContextSize:
		c.emitOp(OpContextSize, n.SpanVal)
		return nil

	case *ir.BinOp:
		return c.compileBinOp(n)
	case *ir.UnaryOp:
		return c.compileUnaryOp(n)
	case *ir.PathStep:
		return c.compilePathStep(n)

	case *ir.If:
		return c.compileIf(n, tail)
	case *ir.For:
		return c.compileFor(n)
	case *ir.Quantified:
		return c.compileQuantified(n)

	case *ir.Conversion:
		return c.compileConversion(n)
	case *ir.StaticCall:
		return c.compileStaticCall(n, tail)
	case *ir.DynamicCall:
		return c.compileDynamicCall(n, tail)
	case *ir.PartialApply:
		return c.compilePartialApply(n)
	case *ir.InlineFunc:
		return c.compileInlineFunc(n)

	case *ir.MapCtor:
		return c.compileMapCtor(n)
	case *ir.ArrayCtor:
		return c.compileArrayCtor(n)
	case *ir.Lookup:
		return c.compileLookup(n)

	default:
		return diagnostics.New(diagnostics.XPVM0005, "unknown ir.Atom %T", a)
	}
}

func (c *compiler) compileBinOp(n *ir.BinOp) error {
	switch n.Op {
	case ir.OpAnd:
		return c.compileAnd(n)
	case ir.OpOr:
		return c.compileOr(n)
	case ir.OpSimpleMap:
		return c.compileSimpleMap(n)
	}
	if err := c.compileAtom(n.Left, false); err != nil {
		return err
	}
	if err := c.compileAtom(n.Right, false); err != nil {
		return err
	}
	op, ok := binOpMap[n.Op]
	if !ok {
		return diagnostics.New(diagnostics.XPVM0005, "unmapped binary operator %d", n.Op)
	}
	c.emitOp(op, n.SpanVal)
	return nil
}

// compileAnd/compileOr short-circuit: OpJumpIfFalse reduces whatever's on
// top of the stack to its effective boolean value itself (boolOf), so
// neither operand needs an explicit OpEBV before branching on it — only the
// two paths converging on the final pushed result do.
func (c *compiler) compileAnd(n *ir.BinOp) error {
	if err := c.compileAtom(n.Left, false); err != nil {
		return err
	}
	jf := c.emitJump(OpJumpIfFalse, n.SpanVal)
	if err := c.compileAtom(n.Right, false); err != nil {
		return err
	}
	c.emitOp(OpEBV, n.SpanVal)
	jend := c.emitJump(OpJump, n.SpanVal)
	c.patchJump(jf)
	c.pushConstBool(false, n.SpanVal)
	c.patchJump(jend)
	return nil
}

func (c *compiler) compileOr(n *ir.BinOp) error {
	if err := c.compileAtom(n.Left, false); err != nil {
		return err
	}
	jf := c.emitJump(OpJumpIfFalse, n.SpanVal)
	c.pushConstBool(true, n.SpanVal)
	jend := c.emitJump(OpJump, n.SpanVal)
	c.patchJump(jf)
	if err := c.compileAtom(n.Right, false); err != nil {
		return err
	}
	c.emitOp(OpEBV, n.SpanVal)
	c.patchJump(jend)
	return nil
}

// compileSimpleMap lowers `left ! right`: iterate left, set the dynamic
// context to each item in turn, evaluate right, and concatenate the
// results — the same accumulator shape as compileFor, minus a named loop
// variable since right reads the context item directly.
func (c *compiler) compileSimpleMap(n *ir.BinOp) error {
	if err := c.compileAtom(n.Left, false); err != nil {
		return err
	}
	c.emitOp(OpIterNew, n.SpanVal)
	c.pushEmpty(n.SpanVal)
	c.declareLocal("")
	loopStart := c.here()
	c.emitOp(OpIterNext, n.SpanVal)
	jexit := c.emitJump(OpJumpIfFalse, n.SpanVal)
	c.emitOp(OpPushContext, n.SpanVal)
	if err := c.compileAtom(n.Right, false); err != nil {
		return err
	}
	c.emitOp(OpPopContext, n.SpanVal)
	c.emitOp(OpSeqConcat, n.SpanVal)
	c.emitLoop(loopStart, n.SpanVal)
	c.patchJump(jexit)
	c.undeclareLocal()
	c.emitOp(OpIterPop, n.SpanVal)
	return nil
}

func (c *compiler) compileUnaryOp(n *ir.UnaryOp) error {
	if err := c.compileAtom(n.Operand, false); err != nil {
		return err
	}
	switch n.Op {
	case ir.OpNeg:
		c.emitOp(OpNeg, n.SpanVal)
	case ir.OpNot:
		c.emitOp(OpNot, n.SpanVal)
	default:
		return diagnostics.New(diagnostics.XPVM0005, "unknown unary operator %d", n.Op)
	}
	return nil
}

// compileIf propagates tail into both branches: an If directly in tail
// position means whichever branch actually runs ends in a tail call too.
func (c *compiler) compileIf(n *ir.If, tail bool) error {
	if err := c.compileAtom(n.Cond, false); err != nil {
		return err
	}
	jelse := c.emitJump(OpJumpIfFalse, n.SpanVal)
	if err := c.compileExpr(n.Then, tail); err != nil {
		return err
	}
	jend := c.emitJump(OpJump, n.SpanVal)
	c.patchJump(jelse)
	if err := c.compileExpr(n.Else, tail); err != nil {
		return err
	}
	c.patchJump(jend)
	return nil
}

// compileFor lowers `for $v in source return body` with an accumulator
// local (anonymous, never resolvable by name) holding the concatenated
// result so far, growing by one OpSeqConcat per bound item.
func (c *compiler) compileFor(n *ir.For) error {
	if err := c.compileAtom(n.Source, false); err != nil {
		return err
	}
	c.emitOp(OpIterNew, n.SpanVal)
	c.pushEmpty(n.SpanVal)
	c.declareLocal("")
	loopStart := c.here()
	c.emitOp(OpIterNext, n.SpanVal)
	jexit := c.emitJump(OpJumpIfFalse, n.SpanVal)
	c.emitOp(OpIterCurrent, n.SpanVal)
	c.declareLocal(n.Var)
	if err := c.compileExpr(n.Body, false); err != nil {
		return err
	}
	c.undeclareLocal()
	c.emitOp(OpPopBelow, n.SpanVal)
	c.emitByte(1, n.SpanVal)
	c.emitOp(OpSeqConcat, n.SpanVal)
	c.emitLoop(loopStart, n.SpanVal)
	c.patchJump(jexit)
	c.undeclareLocal()
	c.emitOp(OpIterPop, n.SpanVal)
	return nil
}

// compileQuantified lowers `some`/`every $v in source satisfies test`,
// short-circuiting as soon as the quantifier's outcome is determined: a
// true test ends a `some`, a false test ends an `every`.
func (c *compiler) compileQuantified(n *ir.Quantified) error {
	if err := c.compileAtom(n.Source, false); err != nil {
		return err
	}
	c.emitOp(OpIterNew, n.SpanVal)
	loopStart := c.here()
	c.emitOp(OpIterNext, n.SpanVal)
	jexit := c.emitJump(OpJumpIfFalse, n.SpanVal)
	c.emitOp(OpIterCurrent, n.SpanVal)
	c.declareLocal(n.Var)
	if err := c.compileExpr(n.Test, false); err != nil {
		return err
	}
	c.undeclareLocal()
	c.emitOp(OpPopBelow, n.SpanVal)
	c.emitByte(1, n.SpanVal)
	c.emitOp(OpEBV, n.SpanVal)

	if n.Kind == ir.QuantSome {
		jshort := c.emitJump(OpJumpIfFalse, n.SpanVal)
		c.emitOp(OpIterPop, n.SpanVal)
		c.pushConstBool(true, n.SpanVal)
		jdone := c.emitJump(OpJump, n.SpanVal)
		c.patchJump(jshort)
		c.emitLoop(loopStart, n.SpanVal)
		c.patchJump(jexit)
		c.emitOp(OpIterPop, n.SpanVal)
		c.pushConstBool(false, n.SpanVal)
		c.patchJump(jdone)
		return nil
	}

	jshort := c.emitJump(OpJumpIfFalse, n.SpanVal)
	c.emitLoop(loopStart, n.SpanVal)
	c.patchJump(jshort)
	c.emitOp(OpIterPop, n.SpanVal)
	c.pushConstBool(false, n.SpanVal)
	jdone := c.emitJump(OpJump, n.SpanVal)
	c.patchJump(jexit)
	c.emitOp(OpIterPop, n.SpanVal)
	c.pushConstBool(true, n.SpanVal)
	c.patchJump(jdone)
	return nil
}

// compilePathStep compiles its context, applies the axis/test in one
// OpAxisStep (ir.Axis and vm.Axis share identical ordinal values), then
// filters the resulting sequence through each predicate in turn.
func (c *compiler) compilePathStep(n *ir.PathStep) error {
	if err := c.compileAtom(n.Context, false); err != nil {
		return err
	}
	testIdx := c.chunk.AddNodeTest(n.Test)
	c.emitOp(OpAxisStep, n.SpanVal)
	c.emitByte(byte(n.Axis), n.SpanVal)
	c.emitU16(testIdx, n.SpanVal)
	for _, pred := range n.Predicates {
		if err := c.compilePredicate(pred, n.SpanVal); err != nil {
			return err
		}
	}
	return nil
}

// compilePredicate filters the sequence on top of the stack through one
// predicate, replacing it with the kept-items subsequence. Each candidate's
// dynamic context (item/position/size) is pushed from the predicate's own
// iterator frame before evaluating the predicate expression, so `.`,
// position(), and last() inside it read that candidate.
func (c *compiler) compilePredicate(pred ir.Expr, span diagnostics.Span) error {
	c.emitOp(OpIterNew, span)
	c.pushEmpty(span)
	c.declareLocal("")
	loopStart := c.here()
	c.emitOp(OpIterNext, span)
	jexit := c.emitJump(OpJumpIfFalse, span)
	c.emitOp(OpPushContext, span)
	if err := c.compileExpr(pred, false); err != nil {
		return err
	}
	c.emitOp(OpPredicateKeep, span)
	c.emitOp(OpPopContext, span)
	jskip := c.emitJump(OpJumpIfFalse, span)
	c.emitOp(OpIterCurrent, span)
	c.emitOp(OpSeqConcat, span)
	jloop := c.emitJump(OpJump, span)
	c.patchJump(jskip)
	c.patchJump(jloop)
	c.emitLoop(loopStart, span)
	c.patchJump(jexit)
	c.undeclareLocal()
	c.emitOp(OpIterPop, span)
	return nil
}

func (c *compiler) compileConversion(n *ir.Conversion) error {
	if err := c.compileAtom(n.Source, false); err != nil {
		return err
	}
	idx := c.chunk.AddSeqType(n.Target)
	var op Opcode
	switch n.Kind {
	case ir.ConvCast:
		op = OpCastAs
	case ir.ConvCastable:
		op = OpCastableAs
	case ir.ConvTreat:
		op = OpTreatAs
	case ir.ConvInstanceOf:
		op = OpInstanceOf
	default:
		return diagnostics.New(diagnostics.XPVM0005, "unknown conversion kind %d", n.Kind)
	}
	c.emitOp(op, n.SpanVal)
	c.emitU16(idx, n.SpanVal)
	return nil
}

func (c *compiler) emitCallOp(tail bool, argc int, span diagnostics.Span) {
	if tail {
		c.emitOp(OpTailCall, span)
	} else {
		c.emitOp(OpCall, span)
	}
	c.emitByte(byte(argc), span)
}

// compileStaticCall resolves the callee by name at runtime (OpResolveFunc)
// rather than baking in a FuncDesc pointer, since the target may be a
// standard-library function the VM's resolver, not this Chunk, owns.
func (c *compiler) compileStaticCall(n *ir.StaticCall, tail bool) error {
	nameIdx := c.chunk.AddFuncName(n.Name)
	c.emitOp(OpResolveFunc, n.SpanVal)
	c.emitU16(nameIdx, n.SpanVal)
	c.emitByte(byte(len(n.Args)), n.SpanVal)
	for _, a := range n.Args {
		if err := c.compileAtom(a, false); err != nil {
			return err
		}
	}
	c.emitCallOp(tail, len(n.Args), n.SpanVal)
	return nil
}

func (c *compiler) compileDynamicCall(n *ir.DynamicCall, tail bool) error {
	if err := c.compileAtom(n.Fn, false); err != nil {
		return err
	}
	for _, a := range n.Args {
		if err := c.compileAtom(a, false); err != nil {
			return err
		}
	}
	c.emitCallOp(tail, len(n.Args), n.SpanVal)
	return nil
}

// compilePartialApply pushes the callee, then one value per argument
// position (a placeholder pushes xdm.Empty, discarded by OpPartialApply and
// re-requested from the eventual caller), matching execPartialApply's flags
// byte layout.
func (c *compiler) compilePartialApply(n *ir.PartialApply) error {
	if err := c.compileAtom(n.Fn, false); err != nil {
		return err
	}
	flags := make([]byte, len(n.Args))
	for i, a := range n.Args {
		if a.Placeholder {
			flags[i] = 1
			c.pushEmpty(n.SpanVal)
			continue
		}
		if err := c.compileAtom(a.Value, false); err != nil {
			return err
		}
	}
	c.emitOp(OpPartialApply, n.SpanVal)
	c.emitByte(byte(len(n.Args)), n.SpanVal)
	for _, f := range flags {
		c.emitByte(f, n.SpanVal)
	}
	return nil
}

// compileInlineFunc lowers a closure literal: the captured free variables
// are pushed here, resolved against THIS compiler's own scope, immediately
// before OpMakeClosure; the body is compiled by a fresh compiler whose
// locals start at the parameters and whose freeVars is Desc.FreeVars, so a
// VarRef inside the body that isn't a parameter or inner Let resolves as an
// upvalue instead of a local. The body is emitted inline in the shared
// chunk but skipped over by an unconditional jump, since OpCall/OpTailCall
// reach it only by explicitly setting frame.pc to Desc.Entry.
func (c *compiler) compileInlineFunc(n *ir.InlineFunc) error {
	for _, fv := range n.FreeVars {
		kind, idx, ok := c.resolveVar(fv)
		if !ok {
			return diagnostics.New(diagnostics.XPST0008, "undefined free variable $%s", fv)
		}
		if kind == varLocal {
			c.emitOp(OpLoadLocal, n.SpanVal)
		} else {
			c.emitOp(OpLoadUpvalue, n.SpanVal)
		}
		c.emitU16(idx, n.SpanVal)
	}

	skip := c.emitJump(OpJump, n.SpanVal)
	desc := &FuncDesc{
		Name:       n.Name,
		Params:     paramTypes(n.Params),
		Return:     n.Return,
		FreeVars:   n.FreeVars,
		Entry:      c.here(),
		LocalSlots: len(n.Params),
	}
	inner := newCompiler(c.chunk, desc)
	for _, p := range n.Params {
		inner.declareLocal(p.Name)
	}
	if err := inner.compileExpr(n.Body, true); err != nil {
		return err
	}
	inner.emitOp(OpReturn, n.SpanVal)
	c.patchJump(skip)

	fnIdx := c.chunk.AddFunc(desc)
	c.emitOp(OpMakeClosure, n.SpanVal)
	c.emitU16(fnIdx, n.SpanVal)
	return nil
}

func (c *compiler) compileMapCtor(n *ir.MapCtor) error {
	for _, e := range n.Entries {
		if err := c.compileAtom(e.Key, false); err != nil {
			return err
		}
		if err := c.compileAtom(e.Value, false); err != nil {
			return err
		}
	}
	c.emitOp(OpMakeMap, n.SpanVal)
	c.emitU16(len(n.Entries), n.SpanVal)
	return nil
}

// compileArrayCtor: a curly constructor has exactly one content expression,
// flattened into one array member per item by OpArrayAppend; a square
// constructor has one member sequence per listed expression.
func (c *compiler) compileArrayCtor(n *ir.ArrayCtor) error {
	if n.IsCurly {
		if err := c.compileAtom(n.Members[0], false); err != nil {
			return err
		}
		c.emitOp(OpArrayAppend, n.SpanVal)
		return nil
	}
	for _, m := range n.Members {
		if err := c.compileAtom(m, false); err != nil {
			return err
		}
	}
	c.emitOp(OpMakeArray, n.SpanVal)
	c.emitU16(len(n.Members), n.SpanVal)
	return nil
}

func (c *compiler) compileLookup(n *ir.Lookup) error {
	if err := c.compileAtom(n.Target, false); err != nil {
		return err
	}
	if n.IsWildcard {
		c.emitOp(OpLookupWildcard, n.SpanVal)
		return nil
	}
	if err := c.compileAtom(n.Key, false); err != nil {
		return err
	}
	c.emitOp(OpLookup, n.SpanVal)
	return nil
}
