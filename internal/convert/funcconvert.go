package convert

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// ConvertArgument applies the XPath function conversion rules (spec.md
// §4.4) to bind an actual argument sequence to a formal parameter of type
// want:
//
//  1. If want's item type is atomic, atomize the argument.
//  2. Every xs:untypedAtomic item remaining is cast: to xs:double if want's
//     item type is numeric, otherwise to want's item type directly.
//  3. Numeric type promotion widens xs:float/xs:decimal/xs:integer values to
//     xs:double when want is xs:double, and xs:decimal/xs:integer to
//     xs:float when want is xs:float.
//  4. xs:anyURI values promote to xs:string when want is xs:string.
//  5. The resulting sequence's cardinality is checked against want's
//     occurrence indicator.
func ConvertArgument(arg xdm.Sequence, want xdmtype.SequenceType) (xdm.Sequence, error) {
	converted := arg
	if atomicTarget, isAtomic := requiredAtomicType(want); isAtomic {
		atomized, err := Atomize(arg)
		if err != nil {
			return xdm.Empty, err
		}
		items := atomized.Items()
		out := make([]xdm.Item, len(items))
		for i, it := range items {
			a := it.(xdm.Atomic)
			converted, err := convertSingleAtomic(a, atomicTarget)
			if err != nil {
				return xdm.Empty, err
			}
			out[i] = converted
		}
		converted = xdm.FromSlice(out)
	}
	if !want.Occurrence.Allows(converted.Len()) {
		return xdm.Empty, diagnostics.New(diagnostics.XPTY0004,
			"argument has %d items, which does not satisfy occurrence indicator %q",
			converted.Len(), want.Occurrence.String())
	}
	return converted, nil
}

// convertSingleAtomic applies rules 2-4 to one atomized item.
func convertSingleAtomic(a xdm.Atomic, target xdmtype.AtomicType) (xdm.Atomic, error) {
	if a.Tag == xdmtype.UntypedAtomic {
		if xdmtype.IsNumeric(target) {
			return CastAtomic(a, xdmtype.Double)
		}
		return CastAtomic(a, target)
	}
	if xdmtype.IsNumeric(a.Tag) && xdmtype.IsNumeric(target) {
		rank := xdmtype.PromotionRank(target)
		if xdmtype.PromotionRank(a.Tag) <= rank && (target == xdmtype.Double || target == xdmtype.Float) {
			return PromoteTo(a, rank)
		}
	}
	if a.Tag == xdmtype.AnyURI && target == xdmtype.String {
		return xdm.NewString(a.Str), nil
	}
	if xdmtype.IsSubtype(a.Tag, target) {
		return a, nil
	}
	return xdm.Atomic{}, diagnostics.New(diagnostics.XPTY0004,
		"argument of type %s does not match required type %s", a.Tag, target)
}
