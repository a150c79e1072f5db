package xpath

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdmtype"
	"github.com/arborxml/xpvm/internal/xpath/ast"
)

var defaultSeqType = xdmtype.SequenceType{Item: xdmtype.Item, Occurrence: xdmtype.ZeroOrMore}

// emptySequenceItemType matches no real item value (its Kind is outside
// xdmtype's enumerated ItemTypeKind range), so pairing it with an Optional
// occurrence makes the resulting SequenceType match only the empty
// sequence in matchesSequenceType/itemMatchesType — the closest
// representation of empty-sequence() the frozen Occurrence enum allows,
// since none of its four values mean "exactly zero" on their own.
var emptySequenceItemType = xdmtype.ItemType{Kind: xdmtype.ItemTypeKind(0xff)}

func emptySequenceType() xdmtype.SequenceType {
	return xdmtype.SequenceType{Item: emptySequenceItemType, Occurrence: xdmtype.Optional}
}

func occurrence(b byte) xdmtype.Occurrence {
	switch b {
	case '?':
		return xdmtype.Optional
	case '*':
		return xdmtype.ZeroOrMore
	case '+':
		return xdmtype.OneOrMore
	default:
		return xdmtype.ExactlyOne
	}
}

func kindTestKind(kind string) (xdmtype.NodeKind, error) {
	switch kind {
	case "node":
		return xdmtype.AnyKind, nil
	case "document-node":
		return xdmtype.DocumentKind, nil
	case "element":
		return xdmtype.ElementKind, nil
	case "attribute":
		return xdmtype.AttributeKind, nil
	case "text":
		return xdmtype.TextKind, nil
	case "comment":
		return xdmtype.CommentKind, nil
	case "processing-instruction":
		return xdmtype.ProcessingInstructionKind, nil
	case "namespace-node":
		return xdmtype.NamespaceKind, nil
	default:
		return 0, diagnostics.New(diagnostics.XPST0003, "unknown kind test %q", kind)
	}
}

// nodeTestToItemType lowers a `SequenceType.Node` kind test (used by
// instance-of/treat/cast targets and inline-function annotations) to an
// xdmtype.ItemType. A named kind test ("element(x)") only ever constrains
// the local name here: NodeTest carries no namespace for a named kind test,
// a simplification shared with buildNodeTest's axis-step handling.
func nodeTestToItemType(nt ast.NodeTest) (xdmtype.ItemType, error) {
	kind, err := kindTestKind(nt.Kind)
	if err != nil {
		return xdmtype.ItemType{}, err
	}
	return xdmtype.NodeItem(kind, "", nt.Local), nil
}

// toSequenceType lowers an ast.SequenceType (cast/castable/treat/instance-of
// target, inline function param/return annotation) to its xdmtype form.
func (b *builder) toSequenceType(st ast.SequenceType) (xdmtype.SequenceType, error) {
	if st.EmptySequence {
		return emptySequenceType(), nil
	}
	if st.Item {
		return xdmtype.SequenceType{Item: xdmtype.Item, Occurrence: occurrence(st.Occurrence)}, nil
	}
	if st.Node != nil {
		it, err := nodeTestToItemType(*st.Node)
		if err != nil {
			return xdmtype.SequenceType{}, err
		}
		return xdmtype.SequenceType{Item: it, Occurrence: occurrence(st.Occurrence)}, nil
	}
	at, ok := xdmtype.LookupAtomicType(st.Atomic)
	if !ok {
		return xdmtype.SequenceType{}, diagnostics.New(diagnostics.XPST0051, "unknown type %q", st.Atomic)
	}
	return xdmtype.SequenceType{Item: xdmtype.AtomicItem(at), Occurrence: occurrence(st.Occurrence)}, nil
}
