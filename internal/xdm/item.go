// Package xdm implements the XQuery/XPath Data Model value model (C3):
// atomic, node, function, map, and array items, and the sequence that is
// the universal result type of every expression.
package xdm

import "github.com/arborxml/xpvm/internal/xdmtype"

// ItemKind discriminates the dynamic-type tag every Item carries, mirroring
// the teacher's ObjectType string-constant discriminator but kept as a small
// enum since the lattice here is closed and finite.
type ItemKind uint8

const (
	KindAtomic ItemKind = iota
	KindNode
	KindFunction
	KindMap
	KindArray
)

// Item is the universal interface implemented by every XDM value that can
// appear in a Sequence. The method set mirrors the teacher's Object
// interface (Type/Inspect/RuntimeType/Hash) one-for-one, renamed to XDM
// vocabulary.
type Item interface {
	ItemKind() ItemKind
	Inspect() string              // debug/display string, not fn:string
	XDMType() xdmtype.ItemType     // dynamic item type for instance-of/matching
	Hash() uint32                  // used by map keys and distinct-values
}

// Equatable is implemented by items whose XPath value-equality (used by maps
// and `eq`) is cheaper or more precise than a generic comparison; atomics
// implement it directly.
type Equatable interface {
	ValueEqual(other Item) bool
}
