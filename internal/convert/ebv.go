package convert

import (
	"math"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// EffectiveBooleanValue implements fn:boolean's conversion rules (spec.md
// §4.4), used by every `if`, predicate, and `and`/`or` operand:
//   - empty sequence -> false
//   - first item is a node -> true (regardless of what follows)
//   - a singleton boolean -> its value
//   - a singleton string/untypedAtomic/anyURI -> false iff zero-length
//   - a singleton numeric -> false iff zero or NaN
//   - anything else (maps, arrays, functions, or a sequence of length > 1
//     whose first item is not a node) is a type error
func EffectiveBooleanValue(seq xdm.Sequence) (bool, error) {
	if seq.IsEmpty() {
		return false, nil
	}
	first := seq.At(0)
	if _, ok := first.(xdm.Node); ok {
		return true, nil
	}
	if seq.Len() > 1 {
		return false, diagnostics.New(diagnostics.FORG0006,
			"effective boolean value is undefined for a sequence of more than one item whose first item is not a node")
	}
	atom, ok := first.(xdm.Atomic)
	if !ok {
		return false, diagnostics.New(diagnostics.FORG0006,
			"effective boolean value is undefined for a map or function item")
	}
	switch {
	case atom.Tag == xdmtype.Boolean:
		return atom.Bool, nil
	case atom.Tag == xdmtype.String || atom.Tag == xdmtype.UntypedAtomic || atom.Tag == xdmtype.AnyURI:
		return len(atom.Str) != 0, nil
	case xdmtype.IsNumeric(atom.Tag):
		f, _ := numericAsFloat64(atom)
		return f != 0 && !math.IsNaN(f), nil
	default:
		return false, diagnostics.New(diagnostics.FORG0006,
			"effective boolean value is undefined for %s", atom.Tag)
	}
}
