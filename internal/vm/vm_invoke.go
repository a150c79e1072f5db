package vm

import (
	"github.com/arborxml/xpvm/internal/xdm"
)

// Invoke calls fn with args and drives it to completion by resuming the
// same fetch-dispatch-advance loop Run uses, rather than a separate
// execution path — the entry point standard-library higher-order functions
// (fn:for-each, fn:filter, fn:fold-left) use to call back into a
// user-supplied function item from inside their own NativeCallable.Invoke,
// per spec.md §4.3's "the VM must be re-entrant: a built-in function that
// itself invokes a user function pushes a new frame and resumes." Reuses
// the ctx captured by the in-progress Run call, since a NativeCallable's
// Invoke has no context.Context parameter of its own.
func (m *VM) Invoke(fn xdm.Callable, args []xdm.Sequence) (xdm.Sequence, error) {
	depth := len(m.frames)
	if err := m.invokeCallable(fn, args, false); err != nil {
		return xdm.Empty, err
	}
	if len(m.frames) > depth {
		if err := m.runUntil(depth); err != nil {
			return xdm.Empty, err
		}
	}
	return m.pop(), nil
}

// runUntil resumes dispatch until the frame stack unwinds back to depth,
// used by Invoke to drive a nested call that pushFrame started partway
// through an outer frame's own execution.
func (m *VM) runUntil(depth int) error {
	for len(m.frames) > depth {
		if err := m.checkCancellation(m.activeCtx); err != nil {
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
	}
	return nil
}
