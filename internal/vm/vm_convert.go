package vm

import (
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

func (m *VM) execAtomize() error {
	v := m.pop()
	a, err := convert.Atomize(v)
	if err != nil {
		return err
	}
	m.push(a)
	return nil
}

// execCastAs implements `cast as`: atomizes, requires a singleton (unless
// target allows zero), and casts to the target atomic type.
func (m *VM) execCastAs(target xdmtype.SequenceType) error {
	v := m.pop()
	if v.IsEmpty() {
		if target.Occurrence == xdmtype.Optional || target.Occurrence == xdmtype.ZeroOrMore {
			m.push(xdm.Empty)
			return nil
		}
		return diagnostics.New(diagnostics.FORG0001, "cannot cast the empty sequence to %s", target)
	}
	a, err := convert.AtomizeToSingle(v)
	if err != nil {
		return err
	}
	if target.Item.Kind != xdmtype.KindAtomic {
		return diagnostics.New(diagnostics.XPST0080, "cast target must be an atomic type")
	}
	casted, err := convert.CastAtomic(a, target.Item.Atomic)
	if err != nil {
		return err
	}
	m.push(xdm.Single(casted))
	return nil
}

// execCastableAs is execCastAs's boolean-returning, non-erroring sibling.
func (m *VM) execCastableAs(target xdmtype.SequenceType) error {
	v := m.pop()
	if v.IsEmpty() {
		ok := target.Occurrence == xdmtype.Optional || target.Occurrence == xdmtype.ZeroOrMore
		m.push(xdm.Single(xdm.NewBoolean(ok)))
		return nil
	}
	a, err := convert.AtomizeToSingle(v)
	if err != nil || target.Item.Kind != xdmtype.KindAtomic {
		m.push(xdm.Single(xdm.NewBoolean(false)))
		return nil
	}
	_, castErr := convert.CastAtomic(a, target.Item.Atomic)
	m.push(xdm.Single(xdm.NewBoolean(castErr == nil)))
	return nil
}

// execTreatAs verifies the dynamic type without converting it (`treat as`
// never changes the value, unlike `cast as`).
func (m *VM) execTreatAs(target xdmtype.SequenceType) error {
	v := m.pop()
	if !matchesSequenceType(v, target) {
		return diagnostics.New(diagnostics.XPTY0004, "value does not match the treat target type %s", target)
	}
	m.push(v)
	return nil
}

func (m *VM) execInstanceOf(target xdmtype.SequenceType) error {
	v := m.pop()
	m.push(xdm.Single(xdm.NewBoolean(matchesSequenceType(v, target))))
	return nil
}

func matchesSequenceType(v xdm.Sequence, target xdmtype.SequenceType) bool {
	if !target.Occurrence.Allows(v.Len()) {
		return false
	}
	for _, it := range v.Items() {
		if !itemMatchesType(it, target.Item) {
			return false
		}
	}
	return true
}

func itemMatchesType(it xdm.Item, target xdmtype.ItemType) bool {
	if target.Kind == xdmtype.KindItem {
		return true
	}
	switch v := it.(type) {
	case xdm.Atomic:
		return target.Kind == xdmtype.KindAtomic && xdmtype.IsSubtype(v.Tag, target.Atomic)
	case xdm.Node:
		if target.Kind != xdmtype.KindNode {
			return false
		}
		if target.NodeKind != xdmtype.AnyKind && v.Handle.Kind() != target.NodeKind {
			return false
		}
		if target.NodeName != "" {
			uri, local := v.Handle.Name()
			if local != target.NodeName || uri != target.NodeURI {
				return false
			}
		}
		return true
	case xdm.Map:
		return target.Kind == xdmtype.KindMap
	case xdm.Array:
		return target.Kind == xdmtype.KindArray
	case xdm.Callable:
		return target.Kind == xdmtype.KindFunction
	default:
		return false
	}
}
