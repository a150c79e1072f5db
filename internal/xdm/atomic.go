package xdm

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/big"

	"github.com/arborxml/xpvm/internal/xdmtype"
)

// Atomic is an item carrying a single tag from the C2 lattice plus a value
// in the appropriate host representation. Exactly one of the typed fields is
// meaningful, selected by Tag; this mirrors the VM's tagged Value union
// (C7) one level up, at the XDM-item level rather than the stack-cell level.
type Atomic struct {
	Tag xdmtype.AtomicType

	Str   string   // String, AnyURI, QName (as a Clark-notation string), UntypedAtomic
	Bool  bool     // Boolean
	Int   *big.Int // Integer and all 12 derived integer types
	Dec   Decimal  // Decimal
	Flt32 float32  // Float
	Flt64 float64  // Double
	Bin   []byte   // HexBinary, Base64Binary
	Time  TimeValue // all date/time/duration types; see time.go
}

func NewString(s string) Atomic         { return Atomic{Tag: xdmtype.String, Str: s} }
func NewUntypedAtomic(s string) Atomic  { return Atomic{Tag: xdmtype.UntypedAtomic, Str: s} }
func NewBoolean(b bool) Atomic          { return Atomic{Tag: xdmtype.Boolean, Bool: b} }
func NewAnyURI(s string) Atomic         { return Atomic{Tag: xdmtype.AnyURI, Str: s} }
func NewQName(clark string) Atomic      { return Atomic{Tag: xdmtype.QName, Str: clark} }
func NewHexBinary(b []byte) Atomic      { return Atomic{Tag: xdmtype.HexBinary, Bin: b} }
func NewBase64Binary(b []byte) Atomic   { return Atomic{Tag: xdmtype.Base64Binary, Bin: b} }
func NewDouble(f float64) Atomic        { return Atomic{Tag: xdmtype.Double, Flt64: f} }
func NewFloat(f float32) Atomic         { return Atomic{Tag: xdmtype.Float, Flt32: f} }
func NewDecimal(d Decimal) Atomic       { return Atomic{Tag: xdmtype.Decimal, Dec: d} }

// NewInteger builds a plain xs:integer. Use NewDerivedInteger for a derived
// subtype (xs:int, xs:long, ...).
func NewInteger(i *big.Int) Atomic {
	return Atomic{Tag: xdmtype.Integer, Int: i}
}

func NewIntegerFromInt64(i int64) Atomic {
	return Atomic{Tag: xdmtype.Integer, Int: big.NewInt(i)}
}

func NewDerivedInteger(tag xdmtype.AtomicType, i *big.Int) Atomic {
	return Atomic{Tag: tag, Int: i}
}

func (a Atomic) ItemKind() ItemKind { return KindAtomic }

func (a Atomic) XDMType() xdmtype.ItemType { return xdmtype.AtomicItem(a.Tag) }

func (a Atomic) Inspect() string {
	return fmt.Sprintf("%s(%s)", a.Tag, a.displayValue())
}

func (a Atomic) displayValue() string {
	switch {
	case xdmtype.IsSubtype(a.Tag, xdmtype.Integer):
		if a.Int == nil {
			return "0"
		}
		return a.Int.String()
	case a.Tag == xdmtype.Decimal:
		return a.Dec.String()
	case a.Tag == xdmtype.Float:
		return formatFloat32(a.Flt32)
	case a.Tag == xdmtype.Double:
		return formatFloat64(a.Flt64)
	case a.Tag == xdmtype.Boolean:
		return fmt.Sprintf("%t", a.Bool)
	case a.Tag == xdmtype.HexBinary || a.Tag == xdmtype.Base64Binary:
		return fmt.Sprintf("%d bytes", len(a.Bin))
	default:
		return a.Str
	}
}

func formatFloat64(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	default:
		return fmt.Sprintf("%g", f)
	}
}

func formatFloat32(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "NaN"
	case math.IsInf(float64(f), 1):
		return "INF"
	case math.IsInf(float64(f), -1):
		return "-INF"
	default:
		return fmt.Sprintf("%g", f)
	}
}

// Hash implements value-equal hashing: numerically-equal atomics of
// different tags (1 eq 1.0e0) must hash identically so they collide in a
// map's bucket and fall through to ValueEqual.
func (a Atomic) Hash() uint32 {
	switch {
	case xdmtype.IsNumeric(a.Tag):
		f, ok := a.asFloat64()
		if !ok {
			return 0
		}
		bits := math.Float64bits(f)
		return uint32(bits ^ (bits >> 32))
	case a.Tag == xdmtype.Boolean:
		if a.Bool {
			return 1
		}
		return 0
	default:
		h := fnv.New32a()
		h.Write([]byte(a.Str))
		return h.Sum32()
	}
}

func (a Atomic) asFloat64() (float64, bool) {
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

// ValueEqual implements XPath atomic value-equality (the `eq` operator's
// semantics), including cross-type numeric comparison and NaN handling.
func (a Atomic) ValueEqual(other Item) bool {
	b, ok := other.(Atomic)
	if !ok {
		return false
	}
	switch {
	case xdmtype.IsNumeric(a.Tag) && xdmtype.IsNumeric(b.Tag):
		af, aok := a.asFloat64()
		bf, bok := b.asFloat64()
		if !aok || !bok {
			return false
		}
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false // NaN eq NaN is false
		}
		return af == bf
	case a.Tag == xdmtype.Boolean && b.Tag == xdmtype.Boolean:
		return a.Bool == b.Bool
	case (a.Tag == xdmtype.HexBinary || a.Tag == xdmtype.Base64Binary) &&
		(b.Tag == xdmtype.HexBinary || b.Tag == xdmtype.Base64Binary):
		return string(a.Bin) == string(b.Bin)
	default:
		return a.Str == b.Str
	}
}
