package vm

import (
	"github.com/arborxml/xpvm/internal/ir"
	"github.com/arborxml/xpvm/internal/xdm"
)

// matchesTest reports whether h satisfies the node test: wildcard node()
// always matches; otherwise kind must match (AnyKind in the test means "any
// kind reachable by this axis") and, if a name is given, the expanded name
// must match exactly.
func matchesTest(h xdm.NodeHandle, test ir.NodeTest) bool {
	if test.IsAny {
		return true
	}
	if h.Kind() != test.Kind {
		return false
	}
	if test.Name.Local == "" {
		return true
	}
	uri, local := h.Name()
	return uri == test.Name.URI && local == test.Name.Local
}

// execAxisStep pops a node sequence (the step's context nodes), applies
// axis+test to every context node in turn, concatenates the results, and
// pushes the combined sequence — spec.md §4.2's "axis step, node-test"
// path-navigation instruction pair collapsed into one opcode since the test
// is applied inline rather than as a separate filtering pass.
func (m *VM) execAxisStep(axis Axis, test ir.NodeTest) error {
	ctxSeq := m.pop()
	items := ctxSeq.Items()
	var out []xdm.Item
	for _, item := range items {
		node, ok := item.(xdm.Node)
		if !ok {
			return m.typeError("axis step requires a node context item")
		}
		for _, h := range stepAxis(node.Handle, axis) {
			if matchesTest(h, test) {
				out = append(out, xdm.NewNode(h))
			}
		}
	}
	m.push(xdm.FromSlice(out))
	return nil
}
