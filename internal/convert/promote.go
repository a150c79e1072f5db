package convert

import (
	"math/big"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// numericAsFloat64 widens any numeric atomic to a float64, used where exact
// precision doesn't matter (effective boolean value, hashing).
func numericAsFloat64(a xdm.Atomic) (float64, bool) {
	switch {
	case xdmtype.IsSubtype(a.Tag, xdmtype.Integer):
		if a.Int == nil {
			return 0, true
		}
		f := new(big.Float).SetInt(a.Int)
		v, _ := f.Float64()
		return v, true
	case a.Tag == xdmtype.Decimal:
		return a.Dec.Float64(), true
	case a.Tag == xdmtype.Float:
		return float64(a.Flt32), true
	case a.Tag == xdmtype.Double:
		return a.Flt64, true
	default:
		return 0, false
	}
}

// PromoteNumericPair implements the numeric promotion used before a binary
// arithmetic or comparison operator combines two operands: both are widened
// to the higher rank on the integer -> decimal -> float -> double chain
// (spec.md §4.4/§4.7). Two xs:float operands, or an xs:float with a
// lower-ranked operand, stay xs:float.
func PromoteNumericPair(a, b xdm.Atomic) (xdm.Atomic, xdm.Atomic, error) {
	if !xdmtype.IsNumeric(a.Tag) || !xdmtype.IsNumeric(b.Tag) {
		return a, b, diagnostics.New(diagnostics.XPTY0004, "operands to a numeric operator must both be numeric")
	}
	ra, rb := xdmtype.PromotionRank(a.Tag), xdmtype.PromotionRank(b.Tag)
	target := ra
	if rb > target {
		target = rb
	}
	pa, err := PromoteTo(a, target)
	if err != nil {
		return a, b, err
	}
	pb, err := PromoteTo(b, target)
	if err != nil {
		return a, b, err
	}
	return pa, pb, nil
}

// PromoteTo widens a to the numeric rank named by target (0=integer kept as
// decimal for uniform arithmetic, 1=decimal, 2=float, 3=double).
func PromoteTo(a xdm.Atomic, target int) (xdm.Atomic, error) {
	rank := xdmtype.PromotionRank(a.Tag)
	if rank < 0 {
		return a, diagnostics.New(diagnostics.XPTY0004, "%s is not numeric", a.Tag)
	}
	if rank == target {
		if target == 0 {
			// Integers participate in arithmetic as decimals so + - * /
			// share one code path; the result is re-narrowed to integer by
			// the caller when both original operands were integer subtypes.
			return xdm.NewDecimal(xdm.NewDecimalFromInt(a.Int)), nil
		}
		return a, nil
	}
	switch target {
	case 1: // decimal
		if rank == 0 {
			return xdm.NewDecimal(xdm.NewDecimalFromInt(a.Int)), nil
		}
	case 2: // float
		switch rank {
		case 0:
			f := new(big.Float).SetInt(a.Int)
			v, _ := f.Float32()
			return xdm.NewFloat(v), nil
		case 1:
			return xdm.NewFloat(float32(a.Dec.Float64())), nil
		}
	case 3: // double
		switch rank {
		case 0:
			f := new(big.Float).SetInt(a.Int)
			v, _ := f.Float64()
			return xdm.NewDouble(v), nil
		case 1:
			return xdm.NewDouble(a.Dec.Float64()), nil
		case 2:
			return xdm.NewDouble(float64(a.Flt32)), nil
		}
	}
	return a, diagnostics.New(diagnostics.XPTY0004, "cannot promote %s to rank %d", a.Tag, target)
}
