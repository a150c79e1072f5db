package vm

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// dynSnapshot is one saved (ContextItem, ContextPosition, ContextSize)
// triple, pushed by OpPushContext and restored by OpPopContext around a
// path step's predicate or a simple map's right operand.
type dynSnapshot struct {
	item xdm.Sequence
	pos  int
	size int
}

// execPushContext reads the item, position, and size straight off the
// iterator the compiler just advanced, rather than through the value
// stack — the context triple is VM-global state, not a stack value.
func (m *VM) execPushContext() error {
	top, err := m.topIter()
	if err != nil {
		return err
	}
	item, ok := top.it.Current()
	if !ok {
		return diagnostics.New(diagnostics.XPVM0005, "push context requires an advanced iterator")
	}
	m.ctxStack = append(m.ctxStack, dynSnapshot{
		item: m.dynamic.ContextItem,
		pos:  m.dynamic.ContextPosition,
		size: m.dynamic.ContextSize,
	})
	m.dynamic.ContextItem = xdm.Single(item)
	m.dynamic.ContextPosition = top.it.Position()
	m.dynamic.ContextSize = top.it.Size()
	return nil
}

func (m *VM) execPopContext() error {
	n := len(m.ctxStack)
	if n == 0 {
		return diagnostics.New(diagnostics.XPVM0005, "context stack underflow")
	}
	saved := m.ctxStack[n-1]
	m.ctxStack = m.ctxStack[:n-1]
	m.dynamic.ContextItem = saved.item
	m.dynamic.ContextPosition = saved.pos
	m.dynamic.ContextSize = saved.size
	return nil
}
