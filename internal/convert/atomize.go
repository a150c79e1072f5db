// Package convert implements the XDM atomization procedure, effective
// boolean value, numeric type promotion, and the function conversion rules
// (C4 / spec.md §4.4). These are small pure functions operating on the C3
// value model; the VM (C7) calls them at argument-binding and operator-
// evaluation time the same way the teacher's vm_ops.go dispatches arithmetic
// by switching on the dynamic type of its operands.
package convert

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// Atomize applies the XDM atomization procedure to every item of seq,
// concatenating the results in order:
//   - an atomic item atomizes to itself
//   - a node atomizes to its typed value (one or more atomics)
//   - an array atomizes by atomizing each member sequence in turn
//   - a map or function item has no typed value: atomizing one is a type
//     error (FOTY0013 in the full spec; reported here as XPTY0004 since this
//     CORE does not model the function/map-specific code separately)
func Atomize(seq xdm.Sequence) (xdm.Sequence, error) {
	if seq.IsEmpty() {
		return xdm.Empty, nil
	}
	if seq.Len() == 1 {
		return atomizeItem(seq.At(0))
	}
	parts := make([]xdm.Sequence, 0, seq.Len())
	it := seq.NewIterator()
	for {
		item, ok := it.Next()
		if !ok {
			break
		}
		part, err := atomizeItem(item)
		if err != nil {
			return xdm.Empty, err
		}
		parts = append(parts, part)
	}
	return xdm.Concat(parts...), nil
}

func atomizeItem(item xdm.Item) (xdm.Sequence, error) {
	switch v := item.(type) {
	case xdm.Atomic:
		return xdm.Single(v), nil
	case xdm.Node:
		atoms := v.Handle.TypedValue()
		items := make([]xdm.Item, len(atoms))
		for i, a := range atoms {
			items[i] = a
		}
		return xdm.FromSlice(items), nil
	case xdm.Array:
		parts := make([]xdm.Sequence, 0, v.Size())
		for _, member := range v.Members() {
			part, err := Atomize(member)
			if err != nil {
				return xdm.Empty, err
			}
			parts = append(parts, part)
		}
		return xdm.Concat(parts...), nil
	default:
		// Map or function item.
		return xdm.Empty, diagnostics.New(diagnostics.XPTY0004,
			"a map or function item has no typed value and cannot be atomized")
	}
}

// AtomizeToSingle atomizes seq and additionally enforces it yields exactly
// one atomic item, which is the shape most binary operators and casts need
// (spec.md §4.4: "atomize, then check cardinality").
func AtomizeToSingle(seq xdm.Sequence) (xdm.Atomic, error) {
	atomized, err := Atomize(seq)
	if err != nil {
		return xdm.Atomic{}, err
	}
	if atomized.Len() != 1 {
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPTY0004,
			"expected a single atomic value, got a sequence of length %d", atomized.Len())
	}
	return atomized.At(0).(xdm.Atomic), nil
}

// AtomizeOptional is AtomizeToSingle but also accepts the empty sequence,
// returning (Atomic{}, false, nil) in that case.
func AtomizeOptional(seq xdm.Sequence) (xdm.Atomic, bool, error) {
	atomized, err := Atomize(seq)
	if err != nil {
		return xdm.Atomic{}, false, err
	}
	if atomized.IsEmpty() {
		return xdm.Atomic{}, false, nil
	}
	if atomized.Len() != 1 {
		return xdm.Atomic{}, false, diagnostics.New(diagnostics.XPTY0004,
			"expected zero or one atomic value, got a sequence of length %d", atomized.Len())
	}
	a, _ := atomized.At(0).(xdm.Atomic)
	return a, true, nil
}

// requiredAtomicType reports whether st names a single atomic item type,
// used by ConvertArgument to decide whether atomization applies at all (a
// parameter typed node()* never atomizes its arguments).
func requiredAtomicType(st xdmtype.SequenceType) (xdmtype.AtomicType, bool) {
	if st.Item.Kind != xdmtype.KindAtomic {
		return 0, false
	}
	return st.Item.Atomic, true
}
