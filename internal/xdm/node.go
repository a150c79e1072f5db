package xdm

import "github.com/arborxml/xpvm/internal/xdmtype"

// NodeHandle is the minimal surface the C3 Node item needs from the C10 tree
// adapter; kept as an interface so internal/xdm never imports internal/tree
// (which would create an import cycle, since tree constructs xdm.Node
// values) and so it stays swappable per spec.md §6 ("an external library
// supplies mutable node trees").
type NodeHandle interface {
	Kind() xdmtype.NodeKind
	Name() (uri, local string)
	StringValue() string
	TypedValue() []Atomic // the node's typed value, used by atomization
	DocumentOrderKey() (docIndex int, preorder int64)
	Identity() uint64 // stable handle identity within its owning document set

	// Structural navigation, used by the VM's axis-step evaluation
	// (internal/vm composes these primitives into the thirteen XPath axes
	// rather than depending on the tree adapter directly).
	Parent() (NodeHandle, bool)
	Children() []NodeHandle
	Attributes() []NodeHandle
	Namespaces() []NodeHandle
}

// Node is the XDM node item: an opaque handle into an external tree,
// augmented with nothing else — identity and ordering are delegated
// entirely to the handle, per spec.md's "back-reference to the owning
// document set for identity and document-order comparisons".
type Node struct {
	Handle NodeHandle
}

func NewNode(h NodeHandle) Node { return Node{Handle: h} }

func (n Node) ItemKind() ItemKind { return KindNode }

func (n Node) XDMType() xdmtype.ItemType {
	uri, local := n.Handle.Name()
	return xdmtype.NodeItem(n.Handle.Kind(), uri, local)
}

func (n Node) Inspect() string {
	uri, local := n.Handle.Name()
	if local == "" {
		return "node()"
	}
	if uri == "" {
		return "node(" + local + ")"
	}
	return "node({" + uri + "}" + local + ")"
}

func (n Node) Hash() uint32 {
	id := n.Handle.Identity()
	return uint32(id ^ (id >> 32))
}

// ValueEqual for nodes is "is the node identity" (the `is` operator uses
// this directly; general equality between nodes in a `,`-joined sequence
// falls back to atomization before `eq` is ever applied to them).
func (n Node) ValueEqual(other Item) bool {
	o, ok := other.(Node)
	if !ok {
		return false
	}
	return n.Handle.Identity() == o.Handle.Identity()
}

// DocumentOrderLess reports whether n precedes o in document order, total
// within one document set (spec.md §3 invariant).
func DocumentOrderLess(n, o Node) bool {
	nd, np := n.Handle.DocumentOrderKey()
	od, op := o.Handle.DocumentOrderKey()
	if nd != od {
		return nd < od
	}
	return np < op
}
