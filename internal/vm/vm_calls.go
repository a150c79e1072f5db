package vm

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdm"
)

// NativeCallable is implemented by standard-library function adapters (C8):
// a function with no bytecode body, invoked directly by the VM instead of
// pushing a CallFrame. User-defined functions and inline function literals
// are NamedFunction/Closure instead.
type NativeCallable interface {
	xdm.Callable
	Invoke(args []xdm.Sequence) (xdm.Sequence, error)
}

func singletonCallable(s xdm.Sequence) (xdm.Callable, bool) {
	if s.Len() != 1 {
		return nil, false
	}
	c, ok := s.At(0).(xdm.Callable)
	return c, ok
}

// execResolveFunc pushes the Callable bound to a static call's name and
// arity, looked up through the VM's resolver (either a stdlib Descriptor
// adapter or a user-defined function compiled into the same Program).
func (m *VM) execResolveFunc(fn name.Expanded, arity int) error {
	callee, ok := m.resolver.Resolve(fn.URI, fn.Local, arity)
	if !ok {
		return diagnostics.New(diagnostics.XPST0017, "no function matches %s#%d", fn, arity)
	}
	m.push(xdm.Single(callee))
	return nil
}

// execCall pops argc arguments (in reverse push order) and the callee
// below them, then dispatches per the callee's concrete kind.
func (m *VM) execCall(argc int, tail bool) error {
	args := make([]xdm.Sequence, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	calleeSeq := m.pop()
	callee, ok := singletonCallable(calleeSeq)
	if !ok {
		return m.typeError("attempted to call a value that is not a function")
	}
	return m.invokeCallable(callee, args, tail)
}

func (m *VM) invokeCallable(fn xdm.Callable, args []xdm.Sequence, tail bool) error {
	switch v := fn.(type) {
	case *NamedFunction:
		return m.pushFrame(v.Desc, v.Chunk, v, args, tail)
	case *Closure:
		return m.pushFrame(v.Desc, v.Chunk, v, args, tail)
	case *PartialApplication:
		full := v.materialize(args)
		return m.invokeCallable(v.Underlying, full, tail)
	case NativeCallable:
		result, err := v.Invoke(args)
		if err != nil {
			return err
		}
		m.push(result)
		return nil
	default:
		return m.typeError("value is not callable")
	}
}

// pushFrame begins a new activation of desc. When tail is true and a caller
// frame exists, the caller's frame is reused in place (its locals discarded
// down to its own base) instead of growing the frame stack — proper tail
// calls, so recursive XPath/XSLT function definitions don't exhaust the Go
// stack, per spec.md §4.3's recursion-depth note.
func (m *VM) pushFrame(desc *FuncDesc, chunk *Chunk, fn xdm.Callable, args []xdm.Sequence, tail bool) error {
	if len(args) != desc.Arity() {
		return diagnostics.New(diagnostics.XPTY0004, "function %s expects %d argument(s), got %d", desc.Name, desc.Arity(), len(args))
	}
	if tail && len(m.frames) > 0 {
		cur := m.currentFrame()
		base := cur.base
		m.stack = m.stack[:base]
		for _, a := range args {
			m.push(a)
		}
		for i := len(args); i < desc.LocalSlots; i++ {
			m.push(xdm.Empty)
		}
		m.frames[len(m.frames)-1] = CallFrame{fn: fn, chunk: chunk, pc: desc.Entry, base: base}
		return nil
	}
	base := len(m.stack)
	for _, a := range args {
		m.push(a)
	}
	for i := len(args); i < desc.LocalSlots; i++ {
		m.push(xdm.Empty)
	}
	m.frames = append(m.frames, CallFrame{fn: fn, chunk: chunk, pc: desc.Entry, base: base})
	return nil
}

// execReturn unwinds the current frame, leaving its single return value on
// top of the stack at the caller's level.
func (m *VM) execReturn() error {
	if len(m.frames) == 0 {
		return nil
	}
	frame := m.frames[len(m.frames)-1]
	var ret xdm.Sequence
	if len(m.stack) > frame.base {
		ret = m.pop()
	}
	if len(m.stack) > frame.base {
		m.stack = m.stack[:frame.base]
	}
	m.frames = m.frames[:len(m.frames)-1]
	m.push(ret)
	return nil
}

// execMakeClosure builds a Closure over FuncDesc fnIdx, snapshotting
// len(Desc.FreeVars) values the compiler has already pushed onto the value
// stack in FreeVars order immediately before this instruction.
func (m *VM) execMakeClosure(frame *CallFrame, fnIdx int) error {
	desc := frame.chunk.Funcs[fnIdx]
	n := len(desc.FreeVars)
	captured := make([]xdm.Sequence, n)
	for i := n - 1; i >= 0; i-- {
		captured[i] = m.pop()
	}
	m.push(xdm.Single(&Closure{Desc: desc, Chunk: frame.chunk, Captured: captured}))
	return nil
}

// execLoadUpvalue reads a captured free variable of the closure currently
// executing; only valid inside a Closure's own body.
func (m *VM) execLoadUpvalue(frame *CallFrame, idx int) error {
	c, ok := frame.fn.(*Closure)
	if !ok {
		return m.typeError("upvalue reference outside a closure body")
	}
	if idx < 0 || idx >= len(c.Captured) {
		return diagnostics.New(diagnostics.XPVM0005, "upvalue index %d out of range", idx)
	}
	m.push(c.Captured[idx])
	return nil
}

// execPartialApply builds a PartialApplication from the callee plus argc
// stack values: flags[i] true marks a `?` placeholder position (pushed as
// xdm.Empty by the compiler, which is discarded and re-requested from the
// caller at call time), false marks a fixed bound argument.
func (m *VM) execPartialApply(argc int, flags []byte) error {
	values := make([]xdm.Sequence, argc)
	for i := argc - 1; i >= 0; i-- {
		values[i] = m.pop()
	}
	calleeSeq := m.pop()
	callee, ok := singletonCallable(calleeSeq)
	if !ok {
		return m.typeError("attempted partial application of a value that is not a function")
	}
	bound := make([]boundArg, argc)
	for i := 0; i < argc; i++ {
		if flags[i] != 0 {
			bound[i] = boundArg{placeholder: true}
		} else {
			bound[i] = boundArg{value: values[i]}
		}
	}
	m.push(xdm.Single(&PartialApplication{Underlying: callee, Bound: bound}))
	return nil
}
