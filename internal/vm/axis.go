package vm

import "github.com/arborxml/xpvm/internal/xdm"

// Axis enumerates the XPath axes an OpAxisStep instruction can name,
// mirroring internal/ir.Axis (kept as a distinct byte-sized type here since
// bytecode operands are raw bytes, not ir.Atom values).
type Axis byte

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisDescendantOrSelf
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisFollowing
	AxisFollowingSibling
	AxisPreceding
	AxisPrecedingSibling
	AxisAttribute
	AxisSelf
	AxisNamespace
)

// stepAxis computes every node reachable from n via axis, composed from the
// structural primitives xdm.NodeHandle exposes (Parent/Children/Attributes/
// Namespaces) — the VM never depends on the concrete tree adapter.
func stepAxis(n xdm.NodeHandle, axis Axis) []xdm.NodeHandle {
	switch axis {
	case AxisChild:
		return n.Children()
	case AxisAttribute:
		return n.Attributes()
	case AxisNamespace:
		return n.Namespaces()
	case AxisSelf:
		return []xdm.NodeHandle{n}
	case AxisParent:
		if p, ok := n.Parent(); ok {
			return []xdm.NodeHandle{p}
		}
		return nil
	case AxisAncestor:
		return ancestors(n, false)
	case AxisAncestorOrSelf:
		return ancestors(n, true)
	case AxisDescendant:
		return descendants(n, false)
	case AxisDescendantOrSelf:
		return descendants(n, true)
	case AxisFollowingSibling:
		return siblings(n, true)
	case AxisPrecedingSibling:
		return siblings(n, false)
	case AxisFollowing:
		return followingOrPreceding(n, true)
	case AxisPreceding:
		return followingOrPreceding(n, false)
	default:
		return nil
	}
}

func ancestors(n xdm.NodeHandle, includeSelf bool) []xdm.NodeHandle {
	var out []xdm.NodeHandle
	if includeSelf {
		out = append(out, n)
	}
	cur := n
	for {
		p, ok := cur.Parent()
		if !ok {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

func descendants(n xdm.NodeHandle, includeSelf bool) []xdm.NodeHandle {
	var out []xdm.NodeHandle
	if includeSelf {
		out = append(out, n)
	}
	var walk func(h xdm.NodeHandle)
	walk = func(h xdm.NodeHandle) {
		for _, c := range h.Children() {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

func siblings(n xdm.NodeHandle, following bool) []xdm.NodeHandle {
	p, ok := n.Parent()
	if !ok {
		return nil
	}
	children := p.Children()
	idx := -1
	for i, c := range children {
		if c.Identity() == n.Identity() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if following {
		return children[idx+1:]
	}
	// preceding-sibling is in reverse document order.
	out := make([]xdm.NodeHandle, idx)
	for i := 0; i < idx; i++ {
		out[i] = children[idx-1-i]
	}
	return out
}

func root(n xdm.NodeHandle) xdm.NodeHandle {
	cur := n
	for {
		p, ok := cur.Parent()
		if !ok {
			return cur
		}
		cur = p
	}
}

// followingOrPreceding walks the whole document in document order (via a
// full descendant-or-self traversal from the root) and filters to nodes
// strictly after/before n, excluding n's own descendants (for following) or
// ancestors (for preceding) per the axis definitions.
func followingOrPreceding(n xdm.NodeHandle, following bool) []xdm.NodeHandle {
	all := descendants(root(n), true)
	_, npre := n.DocumentOrderKey()
	anc := ancestorSet(n)
	desc := descendantSet(n)
	var out []xdm.NodeHandle
	for _, h := range all {
		_, pre := h.DocumentOrderKey()
		if following {
			if pre > npre && !desc[h.Identity()] {
				out = append(out, h)
			}
		} else {
			if pre < npre && !anc[h.Identity()] {
				out = append(out, h)
			}
		}
	}
	return out
}

func ancestorSet(n xdm.NodeHandle) map[uint64]bool {
	m := map[uint64]bool{}
	for _, a := range ancestors(n, false) {
		m[a.Identity()] = true
	}
	return m
}

func descendantSet(n xdm.NodeHandle) map[uint64]bool {
	m := map[uint64]bool{}
	for _, d := range descendants(n, false) {
		m[d.Identity()] = true
	}
	return m
}
