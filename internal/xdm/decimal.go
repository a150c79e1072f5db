package xdm

import (
	"math/big"
	"strconv"
	"strings"
)

// Decimal is an arbitrary-precision decimal value, represented exactly as a
// rational (big.Rat) to avoid silent precision loss across chained
// arithmetic; string formatting rounds to a bounded number of fractional
// digits only at the presentation boundary (fn:string, xs:string cast).
type Decimal struct {
	r *big.Rat
}

// MaxFractionDigits bounds the number of fractional digits rendered by
// String; this is the implementation-defined precision bound spec.md §4.7
// allows for xs:decimal.
const MaxFractionDigits = 18

// NewDecimalFromString parses an XSD decimal lexical form.
func NewDecimalFromString(s string) (Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, false
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Decimal{}, false
	}
	return Decimal{r: r}, true
}

// NewDecimalFromInt builds a Decimal from an integer.
func NewDecimalFromInt(i *big.Int) Decimal {
	return Decimal{r: new(big.Rat).SetInt(i)}
}

// NewDecimalFromRat wraps an already-computed exact rational, used by
// callers (fn:mod's rational remainder) that build up a big.Rat themselves
// instead of going through the lexical parser.
func NewDecimalFromRat(r *big.Rat) Decimal {
	return Decimal{r: new(big.Rat).Set(r)}
}

// NewDecimalFromInt64 builds a Decimal from an int64.
func NewDecimalFromInt64(i int64) Decimal {
	return Decimal{r: new(big.Rat).SetInt64(i)}
}

// NewDecimalFromFloat builds the closest Decimal to an IEEE double; callers
// should have already rejected NaN/Inf (xs:decimal has no such values).
func NewDecimalFromFloat(f float64) (Decimal, bool) {
	r := new(big.Rat)
	if _, ok := r.SetString(trimFloat(f)); !ok {
		return Decimal{}, false
	}
	return Decimal{r: r}, true
}

func trimFloat(f float64) string {
	// 'f' formatting (never exponential) so big.Rat.SetString accepts it.
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (d Decimal) Rat() *big.Rat { return d.r }

func (d Decimal) Add(o Decimal) Decimal { return Decimal{r: new(big.Rat).Add(d.r, o.r)} }
func (d Decimal) Sub(o Decimal) Decimal { return Decimal{r: new(big.Rat).Sub(d.r, o.r)} }
func (d Decimal) Mul(o Decimal) Decimal { return Decimal{r: new(big.Rat).Mul(d.r, o.r)} }

// Div divides d by o; ok is false on division by zero (FOAR0001 upstream).
func (d Decimal) Div(o Decimal) (Decimal, bool) {
	if o.r.Sign() == 0 {
		return Decimal{}, false
	}
	return Decimal{r: new(big.Rat).Quo(d.r, o.r)}, true
}

func (d Decimal) Neg() Decimal { return Decimal{r: new(big.Rat).Neg(d.r)} }

func (d Decimal) Cmp(o Decimal) int { return d.r.Cmp(o.r) }
func (d Decimal) Sign() int         { return d.r.Sign() }

func (d Decimal) IsInteger() bool { return d.r.IsInt() }

func (d Decimal) Float64() float64 {
	f, _ := d.r.Float64()
	return f
}

func (d Decimal) BigInt() (*big.Int, bool) {
	if !d.r.IsInt() {
		return nil, false
	}
	return new(big.Int).Set(d.r.Num()), true
}

func (d Decimal) String() string {
	if d.r == nil {
		return "0"
	}
	return d.r.FloatString(MaxFractionDigits)
}
