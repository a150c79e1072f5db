package stdlib

import (
	"math"
	"math/big"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// numericFuncs binds fn:abs/ceiling/floor/round and the math: namespace,
// per spec.md §4.6's "arithmetic (abs, round, math:sqrt, ...)".
func numericFuncs() []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:abs($arg as xs:numeric?) as xs:numeric?", numericUnary(func(f float64) float64 { return math.Abs(f) }, absInteger)),
		newDescriptor("fn:ceiling($arg as xs:numeric?) as xs:numeric?", numericUnary(math.Ceil, identityInteger)),
		newDescriptor("fn:floor($arg as xs:numeric?) as xs:numeric?", numericUnary(math.Floor, identityInteger)),
		newDescriptor("fn:round($arg as xs:numeric?) as xs:numeric?", numericUnary(roundHalfUp, identityInteger)),
		newDescriptor("math:pi() as xs:double", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewDouble(math.Pi)), nil
		}),
		newDescriptor("math:sqrt($arg as xs:double?) as xs:double?", mathUnary(math.Sqrt)),
		newDescriptor("math:exp($arg as xs:double?) as xs:double?", mathUnary(math.Exp)),
		newDescriptor("math:log($arg as xs:double?) as xs:double?", mathUnary(math.Log)),
		newDescriptor("math:sin($arg as xs:double?) as xs:double?", mathUnary(math.Sin)),
		newDescriptor("math:cos($arg as xs:double?) as xs:double?", mathUnary(math.Cos)),
		newDescriptor("math:pow($x as xs:double?, $y as xs:double) as xs:double?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			if args[0].IsEmpty() {
				return xdm.Empty, nil
			}
			x, err := requireAtomic(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			y, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(xdm.NewDouble(math.Pow(floatOf(x), floatOf(y)))), nil
		}),
	}
}

func floatOf(a xdm.Atomic) float64 {
	switch a.Tag {
	case xdmtype.Double:
		return a.Flt64
	case xdmtype.Float:
		return float64(a.Flt32)
	case xdmtype.Decimal:
		return a.Dec.Float64()
	default:
		if a.Int != nil {
			f := new(big.Float).SetInt(a.Int)
			v, _ := f.Float64()
			return v
		}
		return 0
	}
}

func mathUnary(f func(float64) float64) Impl {
	return func(args []xdm.Sequence) (xdm.Sequence, error) {
		if args[0].IsEmpty() {
			return xdm.Empty, nil
		}
		a, err := requireAtomic(args[0])
		if err != nil {
			return xdm.Empty, err
		}
		return xdm.Single(xdm.NewDouble(f(floatOf(a)))), nil
	}
}

func roundHalfUp(f float64) float64 { return math.Floor(f + 0.5) }

func identityInteger(i *big.Int) *big.Int { return i }
func absInteger(i *big.Int) *big.Int      { return new(big.Int).Abs(i) }

// numericUnary preserves the argument's atomic type: integers round-trip
// through intFn exactly (no float precision loss), everything else goes
// through the float function and is recast to its original tag.
func numericUnary(floatFn func(float64) float64, intFn func(*big.Int) *big.Int) Impl {
	return func(args []xdm.Sequence) (xdm.Sequence, error) {
		if args[0].IsEmpty() {
			return xdm.Empty, nil
		}
		a, err := requireAtomic(args[0])
		if err != nil {
			return xdm.Empty, err
		}
		if xdmtype.IsSubtype(a.Tag, xdmtype.Integer) {
			return xdm.Single(xdm.Atomic{Tag: a.Tag, Int: intFn(a.Int)}), nil
		}
		result := floatFn(floatOf(a))
		switch a.Tag {
		case xdmtype.Double:
			return xdm.Single(xdm.NewDouble(result)), nil
		case xdmtype.Float:
			return xdm.Single(xdm.NewFloat(float32(result))), nil
		case xdmtype.Decimal:
			d, ok := xdm.NewDecimalFromFloat(result)
			if !ok {
				return xdm.Empty, diagnostics.New(diagnostics.FOCA0001, "result out of decimal range")
			}
			return xdm.Single(xdm.NewDecimal(d)), nil
		default:
			return xdm.Empty, diagnostics.New(diagnostics.XPTY0004, "expected a numeric value, got %s", a.Tag)
		}
	}
}
