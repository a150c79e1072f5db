package xdmtype

import "fmt"

// Occurrence is the occurrence indicator of a SequenceType.
type Occurrence uint8

const (
	ExactlyOne Occurrence = iota
	Optional              // ?
	ZeroOrMore            // *
	OneOrMore             // +
)

func (o Occurrence) String() string {
	switch o {
	case Optional:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	default:
		return ""
	}
}

// Allows reports whether a sequence of the given length satisfies o.
func (o Occurrence) Allows(length int) bool {
	switch o {
	case ExactlyOne:
		return length == 1
	case Optional:
		return length == 0 || length == 1
	case ZeroOrMore:
		return true
	case OneOrMore:
		return length >= 1
	default:
		return false
	}
}

// NodeKind enumerates the XDM node kinds.
type NodeKind uint8

const (
	AnyKind NodeKind = iota
	DocumentKind
	ElementKind
	AttributeKind
	TextKind
	CommentKind
	ProcessingInstructionKind
	NamespaceKind
)

// ItemTypeKind discriminates the ItemType sum type.
type ItemTypeKind uint8

const (
	KindItem ItemTypeKind = iota // item()
	KindAtomic
	KindNode
	KindFunction
	KindMap
	KindArray
)

// ItemType is the item-type half of a SequenceType. Exactly one of the
// type-specific fields is meaningful, selected by Kind.
type ItemType struct {
	Kind ItemTypeKind

	Atomic AtomicType // KindAtomic

	NodeKind NodeKind // KindNode
	NodeName string   // KindNode, optional (empty = any name)
	NodeURI  string   // KindNode, optional

	Params []SequenceType // KindFunction
	Return *SequenceType  // KindFunction

	MapKey   AtomicType    // KindMap
	MapValue *SequenceType // KindMap

	ArrayElem *SequenceType // KindArray
}

// Item is the universal item() type.
var Item = ItemType{Kind: KindItem}

// AtomicItem builds an atomic(T) item type.
func AtomicItem(t AtomicType) ItemType { return ItemType{Kind: KindAtomic, Atomic: t} }

// NodeItem builds a node(kind, name?) item type. name == "" means any name.
func NodeItem(kind NodeKind, uri, local string) ItemType {
	return ItemType{Kind: KindNode, NodeKind: kind, NodeURI: uri, NodeName: local}
}

func (it ItemType) String() string {
	switch it.Kind {
	case KindItem:
		return "item()"
	case KindAtomic:
		return it.Atomic.String()
	case KindNode:
		if it.NodeKind == AnyKind {
			return "node()"
		}
		name := nodeKindNames[it.NodeKind]
		if it.NodeName != "" {
			return fmt.Sprintf("%s(%s)", name, it.NodeName)
		}
		return name + "()"
	case KindFunction:
		return "function(*)"
	case KindMap:
		return fmt.Sprintf("map(%s, %s)", it.MapKey, it.MapValue)
	case KindArray:
		return fmt.Sprintf("array(%s)", it.ArrayElem)
	default:
		return "?"
	}
}

var nodeKindNames = map[NodeKind]string{
	AnyKind:                   "node",
	DocumentKind:              "document-node",
	ElementKind:               "element",
	AttributeKind:             "attribute",
	TextKind:                  "text",
	CommentKind:               "comment",
	ProcessingInstructionKind: "processing-instruction",
	NamespaceKind:             "namespace-node",
}

// SequenceType is (item-type, occurrence).
type SequenceType struct {
	Item       ItemType
	Occurrence Occurrence
}

// EmptySequenceType is zero-or-more item(), the loosest sequence type; it
// also matches the empty sequence.
var EmptySequenceType = SequenceType{Item: Item, Occurrence: ZeroOrMore}

func (st SequenceType) String() string {
	return st.Item.String() + st.Occurrence.String()
}

// IsItemSubtype reports the XPath 3.1 item-type subtype relation. This is
// intentionally structural (not nominal) for node()/item(); atomic subtyping
// delegates to the C2 lattice.
func IsItemSubtype(a, b ItemType) bool {
	if b.Kind == KindItem {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindItem:
		return true
	case KindAtomic:
		return IsSubtype(a.Atomic, b.Atomic)
	case KindNode:
		if b.NodeKind != AnyKind && a.NodeKind != b.NodeKind {
			return false
		}
		if b.NodeName != "" && (a.NodeName != b.NodeName || a.NodeURI != b.NodeURI) {
			return false
		}
		return true
	case KindFunction:
		// Structural function subtyping is not modeled beyond arity/shape
		// equality for this CORE; treat as equal-or-any.
		return len(a.Params) == len(b.Params)
	case KindMap:
		return IsSubtype(a.MapKey, b.MapKey)
	case KindArray:
		return true
	default:
		return false
	}
}
