package vm

import (
	"context"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/xdm"
)

// checkInterval is how many instructions the VM executes between
// context-cancellation checks, grounded on the teacher's executeWithDebugger
// opsSinceCheck/checkInterval pattern — spec.md §5's "step budget / external
// cancel signal check".
const checkInterval = 1000

// Program is an immutable compiled unit: its code lives in Chunk, and Entry
// names the FuncDesc to invoke for top-level evaluation.
type Program struct {
	Chunk *Chunk
	Entry *FuncDesc
}

// VM is a single-threaded, synchronous stack machine executing one Program
// against one DynamicContext. A VM is never shared between goroutines; the
// CLI's batch mode and the RPC server each construct a fresh VM (and
// DynamicContext/DocumentSet) per concurrent evaluation, sharing only the
// immutable Program and StaticContext (spec.md §5).
type VM struct {
	stack      []xdm.Sequence
	iterStack  []iterFrame
	frames     []CallFrame
	ctxStack   []dynSnapshot

	static  *runtimectx.StaticContext
	dynamic *runtimectx.DynamicContext

	resolver FunctionResolver

	opsSinceCheck int

	// activeCtx is the context.Context passed to the in-progress Run call,
	// kept on the VM so Invoke (called from inside a NativeCallable, which
	// has no ctx parameter of its own) can still honor cancellation on
	// re-entrant calls.
	activeCtx context.Context
}

// FunctionResolver looks up the implementation behind a static function
// call by expanded name and arity — either a standard-library Descriptor
// adapter (C8) or a user-defined FuncDesc compiled into the same Program.
type FunctionResolver interface {
	Resolve(uri, local string, arity int) (xdm.Callable, bool)
}

// New constructs a VM ready to run prog against dyn/static, resolving
// static calls through resolver.
func New(static *runtimectx.StaticContext, dyn *runtimectx.DynamicContext, resolver FunctionResolver) *VM {
	return &VM{
		stack:    make([]xdm.Sequence, 0, 64),
		static:   static,
		dynamic:  dyn,
		resolver: resolver,
	}
}

func (m *VM) push(s xdm.Sequence) { m.stack = append(m.stack, s) }

func (m *VM) pop() xdm.Sequence {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v
}

func (m *VM) peek(depthFromTop int) xdm.Sequence {
	return m.stack[len(m.stack)-1-depthFromTop]
}

func (m *VM) typeError(format string, args ...interface{}) error {
	return diagnostics.New(diagnostics.XPTY0004, format, args...)
}

func (m *VM) currentFrame() *CallFrame {
	return &m.frames[len(m.frames)-1]
}

// Run executes prog's entry function to completion, returning the resulting
// sequence (the value left on top of the stack when the outermost frame
// returns).
func (m *VM) Run(ctx context.Context, prog *Program, args []xdm.Sequence) (xdm.Sequence, error) {
	m.activeCtx = ctx
	fn := &NamedFunction{Desc: prog.Entry, Chunk: prog.Chunk}
	m.frames = append(m.frames, CallFrame{fn: fn, chunk: prog.Chunk, pc: prog.Entry.Entry, base: 0})
	for _, a := range args {
		m.push(a)
	}
	if err := m.loop(ctx); err != nil {
		return xdm.Empty, err
	}
	if len(m.stack) == 0 {
		return xdm.Empty, nil
	}
	return m.stack[len(m.stack)-1], nil
}

// loop is the fetch-dispatch-advance execution loop (spec.md §4.3): no
// instruction prefetch, no branch prediction, re-entrant (a built-in that
// invokes a user function pushes a new frame and the same loop resumes it).
func (m *VM) loop(ctx context.Context) error {
	for len(m.frames) > 0 {
		if err := m.checkCancellation(ctx); err != nil {
			return err
		}
		frame := m.currentFrame()
		if frame.pc >= len(frame.chunk.Code) {
			return m.execReturn()
		}
		op := Opcode(frame.chunk.Code[frame.pc])
		frame.pc++
		if err := m.dispatch(op, frame); err != nil {
			return err
		}
		if len(m.frames) == 0 {
			return nil
		}
	}
	return nil
}

func (m *VM) checkCancellation(ctx context.Context) error {
	m.opsSinceCheck++
	if m.opsSinceCheck < checkInterval {
		return nil
	}
	m.opsSinceCheck = 0
	select {
	case <-ctx.Done():
		return diagnostics.New(diagnostics.XPVM0002, "evaluation cancelled: %v", ctx.Err())
	default:
		return nil
	}
}

func (m *VM) dispatch(op Opcode, frame *CallFrame) error {
	switch op {
	case OpConst:
		idx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		m.push(frame.chunk.Constants[idx])
		return nil
	case OpLoadLocal:
		slot := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		m.push(m.stack[frame.base+slot])
		return nil
	case OpLoadUpvalue:
		idx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execLoadUpvalue(frame, idx)
	case OpContextItem:
		m.push(m.dynamic.ContextItem)
		return nil
	case OpContextPosition:
		m.push(xdm.Single(xdm.NewIntegerFromInt64(int64(m.dynamic.ContextPosition))))
		return nil
	case OpContextSize:
		m.push(xdm.Single(xdm.NewIntegerFromInt64(int64(m.dynamic.ContextSize))))
		return nil
	case OpResolveFunc:
		idx := frame.chunk.ReadU16(frame.pc)
		arity := int(frame.chunk.Code[frame.pc+2])
		frame.pc += 3
		return m.execResolveFunc(frame.chunk.FuncNames[idx], arity)
	case OpPop:
		m.pop()
		return nil
	case OpPopBelow:
		n := int(frame.chunk.Code[frame.pc])
		frame.pc++
		return m.execPopBelow(n)
	case OpDup:
		m.push(m.peek(0))
		return nil

	case OpAdd, OpSub, OpMul, OpDiv, OpIDiv, OpMod:
		return m.execArith(op)
	case OpNeg:
		return m.execNeg()
	case OpGeneralEq, OpGeneralNe, OpGeneralLt, OpGeneralLe, OpGeneralGt, OpGeneralGe:
		return m.execGeneralComparison(op)
	case OpValueEq, OpValueNe, OpValueLt, OpValueLe, OpValueGt, OpValueGe:
		return m.execValueComparison(op)
	case OpIs, OpNodeBefore, OpNodeAfter:
		return m.execNodeComparison(op)
	case OpStringConcat:
		return m.execStringConcat()
	case OpUnion, OpIntersect, OpExcept:
		return m.execNodeSetOp(op)
	case OpRange:
		return m.execRange()
	case OpSeqConcat:
		right := m.pop()
		left := m.pop()
		m.push(xdm.Concat(left, right))
		return nil
	case OpEBV:
		return m.execEBV()
	case OpNot:
		return m.execNot()

	case OpJump:
		target := frame.chunk.ReadU16(frame.pc)
		frame.pc = target
		return nil
	case OpJumpIfFalse:
		target := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		b, err := boolOf(m.pop())
		if err != nil {
			return err
		}
		if !b {
			frame.pc = target
		}
		return nil
	case OpLoop:
		target := frame.chunk.ReadU16(frame.pc)
		frame.pc = target
		return nil
	case OpCall:
		argc := int(frame.chunk.Code[frame.pc])
		frame.pc++
		return m.execCall(argc, false)
	case OpTailCall:
		argc := int(frame.chunk.Code[frame.pc])
		frame.pc++
		return m.execCall(argc, true)
	case OpReturn:
		return m.execReturn()
	case OpMakeClosure:
		fnIdx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execMakeClosure(frame, fnIdx)
	case OpPartialApply:
		argc := int(frame.chunk.Code[frame.pc])
		flags := frame.chunk.Code[frame.pc+1 : frame.pc+1+argc]
		frame.pc += 1 + argc
		return m.execPartialApply(argc, flags)

	case OpIterNew:
		return m.execIterNew()
	case OpIterNext:
		return m.execIterNext()
	case OpIterCurrent:
		return m.execIterCurrent()
	case OpIterPop:
		return m.execIterPop()
	case OpIterPosition:
		return m.execIterPosition()
	case OpIterSize:
		return m.execIterSize()
	case OpPushContext:
		return m.execPushContext()
	case OpPopContext:
		return m.execPopContext()

	case OpAxisStep:
		axis := Axis(frame.chunk.Code[frame.pc])
		testIdx := frame.chunk.ReadU16(frame.pc + 1)
		frame.pc += 3
		return m.execAxisStep(axis, frame.chunk.NodeTests[testIdx])
	case OpPredicateKeep:
		return m.execPredicateKeep()

	case OpAtomize:
		return m.execAtomize()
	case OpCastAs:
		idx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execCastAs(frame.chunk.SeqTypes[idx])
	case OpCastableAs:
		idx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execCastableAs(frame.chunk.SeqTypes[idx])
	case OpTreatAs:
		idx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execTreatAs(frame.chunk.SeqTypes[idx])
	case OpInstanceOf:
		idx := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execInstanceOf(frame.chunk.SeqTypes[idx])

	case OpMakeMap:
		n := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execMakeMap(n)
	case OpMakeArray:
		n := frame.chunk.ReadU16(frame.pc)
		frame.pc += 2
		return m.execMakeArray(n)
	case OpArrayAppend:
		return m.execArrayAppend()
	case OpLookup:
		return m.execLookup()
	case OpLookupWildcard:
		return m.execLookupWildcard()

	default:
		return diagnostics.New(diagnostics.XPVM0005, "unimplemented opcode %s", op)
	}
}

func (m *VM) execPopBelow(n int) error {
	top := m.pop()
	m.stack = m.stack[:len(m.stack)-n]
	m.push(top)
	return nil
}
