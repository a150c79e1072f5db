package vm

import (
	"math"
	"math/big"

	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// execArith implements the six arithmetic operators (+ - * div idiv mod).
// Both operands atomize first; an empty operand on either side makes the
// whole expression the empty sequence, per spec.md §4.4's arithmetic rules.
func (m *VM) execArith(op Opcode) error {
	right := m.pop()
	left := m.pop()
	if left.IsEmpty() || right.IsEmpty() {
		m.push(xdm.Empty)
		return nil
	}
	la, err := convert.AtomizeToSingle(left)
	if err != nil {
		return err
	}
	ra, err := convert.AtomizeToSingle(right)
	if err != nil {
		return err
	}
	result, err := arithCompute(op, la, ra)
	if err != nil {
		return err
	}
	m.push(xdm.Single(result))
	return nil
}

func arithCompute(op Opcode, la, ra xdm.Atomic) (xdm.Atomic, error) {
	bothInt := xdmtype.IsSubtype(la.Tag, xdmtype.Integer) && xdmtype.IsSubtype(ra.Tag, xdmtype.Integer)
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		pa, pb, err := convert.PromoteNumericPair(la, ra)
		if err != nil {
			return xdm.Atomic{}, err
		}
		return arithOnPromoted(op, pa, pb, bothInt)
	case OpIDiv:
		return arithIDiv(la, ra)
	case OpMod:
		return arithMod(la, ra)
	default:
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPVM0005, "not an arithmetic opcode")
	}
}

func arithOnPromoted(op Opcode, pa, pb xdm.Atomic, bothInt bool) (xdm.Atomic, error) {
	switch pa.Tag {
	case xdmtype.Decimal:
		var res xdm.Decimal
		switch op {
		case OpAdd:
			res = pa.Dec.Add(pb.Dec)
		case OpSub:
			res = pa.Dec.Sub(pb.Dec)
		case OpMul:
			res = pa.Dec.Mul(pb.Dec)
		case OpDiv:
			q, ok := pa.Dec.Div(pb.Dec)
			if !ok {
				return xdm.Atomic{}, diagnostics.New(diagnostics.FOAR0001, "division by zero")
			}
			res = q
			return xdm.NewDecimal(res), nil
		}
		if bothInt {
			if i, ok := res.BigInt(); ok {
				return xdm.NewInteger(i), nil
			}
		}
		return xdm.NewDecimal(res), nil
	case xdmtype.Float:
		af, bf := float64(pa.Flt32), float64(pb.Flt32)
		rf, err := applyFloatOp(op, af, bf)
		if err != nil {
			return xdm.Atomic{}, err
		}
		return xdm.NewFloat(float32(rf)), nil
	case xdmtype.Double:
		af, bf := pa.Flt64, pb.Flt64
		rf, err := applyFloatOp(op, af, bf)
		if err != nil {
			return xdm.Atomic{}, err
		}
		return xdm.NewDouble(rf), nil
	default:
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPTY0004, "unexpected promoted numeric tag %s", pa.Tag)
	}
}

// applyFloatOp never errors on division by zero: IEEE 754 semantics give
// +-Inf or NaN, which is the correct xs:float/xs:double result.
func applyFloatOp(op Opcode, a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		return a / b, nil
	default:
		return 0, diagnostics.New(diagnostics.XPVM0005, "not a float arithmetic opcode")
	}
}

// arithIDiv implements integer division truncating toward zero; the
// result is always xs:integer (spec.md's fn:idiv). Both operands convert to
// exact rationals first so large integers never lose precision through a
// float64 detour.
func arithIDiv(la, ra xdm.Atomic) (xdm.Atomic, error) {
	ra64, rb64, err := decimalPair(la, ra)
	if err != nil {
		return xdm.Atomic{}, err
	}
	if rb64.Sign() == 0 {
		return xdm.Atomic{}, diagnostics.New(diagnostics.FOAR0001, "division by zero")
	}
	q := new(big.Rat).Quo(ra64, rb64)
	trunc := new(big.Int).Quo(q.Num(), q.Denom())
	return xdm.NewInteger(trunc), nil
}

// arithMod implements the truncating remainder (fn:mod): a - (a idiv b) * b,
// preserving the sign of the dividend, computed over exact rationals.
func arithMod(la, ra xdm.Atomic) (xdm.Atomic, error) {
	ra64, rb64, err := decimalPair(la, ra)
	if err != nil {
		return xdm.Atomic{}, err
	}
	if rb64.Sign() == 0 {
		return xdm.Atomic{}, diagnostics.New(diagnostics.FOAR0001, "division by zero")
	}
	q := new(big.Rat).Quo(ra64, rb64)
	truncQ := new(big.Int).Quo(q.Num(), q.Denom())
	truncRat := new(big.Rat).SetInt(truncQ)
	rem := new(big.Rat).Sub(ra64, new(big.Rat).Mul(truncRat, rb64))

	bothInt := xdmtype.IsSubtype(la.Tag, xdmtype.Integer) && xdmtype.IsSubtype(ra.Tag, xdmtype.Integer)
	if bothInt {
		return xdm.NewInteger(new(big.Int).Set(rem.Num())), nil
	}
	return xdm.NewDecimal(xdm.NewDecimalFromRat(rem)), nil
}

// decimalPair widens both operands to exact big.Rat values, rejecting
// non-numeric operands and NaN floats (which have no rational value).
func decimalPair(la, ra xdm.Atomic) (*big.Rat, *big.Rat, error) {
	a, err := toRat(la)
	if err != nil {
		return nil, nil, err
	}
	b, err := toRat(ra)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func toRat(a xdm.Atomic) (*big.Rat, error) {
	switch {
	case xdmtype.IsSubtype(a.Tag, xdmtype.Integer):
		if a.Int == nil {
			return new(big.Rat), nil
		}
		return new(big.Rat).SetInt(a.Int), nil
	case a.Tag == xdmtype.Decimal:
		return new(big.Rat).Set(a.Dec.Rat()), nil
	case a.Tag == xdmtype.Float:
		if math.IsNaN(float64(a.Flt32)) || math.IsInf(float64(a.Flt32), 0) {
			return nil, diagnostics.New(diagnostics.FOAR0002, "operand is NaN or infinite")
		}
		r, _ := new(big.Rat).SetString(bigFloatString(float64(a.Flt32)))
		return r, nil
	case a.Tag == xdmtype.Double:
		if math.IsNaN(a.Flt64) || math.IsInf(a.Flt64, 0) {
			return nil, diagnostics.New(diagnostics.FOAR0002, "operand is NaN or infinite")
		}
		r, _ := new(big.Rat).SetString(bigFloatString(a.Flt64))
		return r, nil
	default:
		return nil, diagnostics.New(diagnostics.XPTY0004, "%s is not numeric", a.Tag)
	}
}

func bigFloatString(f float64) string {
	return big.NewFloat(f).Text('f', -1)
}

// execNeg implements unary minus, propagating empty and preserving the
// operand's numeric subtype (unary minus never changes rank).
func (m *VM) execNeg() error {
	v := m.pop()
	if v.IsEmpty() {
		m.push(xdm.Empty)
		return nil
	}
	a, err := convert.AtomizeToSingle(v)
	if err != nil {
		return err
	}
	switch {
	case xdmtype.IsSubtype(a.Tag, xdmtype.Integer):
		m.push(xdm.Single(xdm.NewDerivedInteger(a.Tag, new(big.Int).Neg(a.Int))))
	case a.Tag == xdmtype.Decimal:
		m.push(xdm.Single(xdm.NewDecimal(a.Dec.Neg())))
	case a.Tag == xdmtype.Float:
		m.push(xdm.Single(xdm.NewFloat(-a.Flt32)))
	case a.Tag == xdmtype.Double:
		m.push(xdm.Single(xdm.NewDouble(-a.Flt64)))
	default:
		return diagnostics.New(diagnostics.XPTY0004, "unary minus requires a numeric operand, got %s", a.Tag)
	}
	return nil
}
