package convert

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// CastAtomic implements `cast as` / implicit untypedAtomic conversion between
// the built-in atomic types this CORE supports. It is intentionally narrower
// than the full XSD cast matrix (no cast targeting xs:QName from an
// arbitrary string without an in-scope namespace context, no binary<->binary
// re-encoding) but covers every pairing spec.md §8's scenarios exercise.
func CastAtomic(v xdm.Atomic, target xdmtype.AtomicType) (xdm.Atomic, error) {
	if v.Tag == target {
		return v, nil
	}
	switch {
	case target == xdmtype.String || target == xdmtype.UntypedAtomic:
		return xdm.Atomic{Tag: target, Str: stringValueOf(v)}, nil
	case target == xdmtype.AnyURI:
		return xdm.NewAnyURI(stringValueOf(v)), nil
	case target == xdmtype.Boolean:
		return castToBoolean(v)
	case xdmtype.IsSubtype(target, xdmtype.Integer):
		return castToInteger(v, target)
	case target == xdmtype.Decimal:
		return castToDecimal(v)
	case target == xdmtype.Float:
		return castToFloat(v)
	case target == xdmtype.Double:
		return castToDouble(v)
	default:
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPST0080,
			"cast from %s to %s is not supported", v.Tag, target)
	}
}

func stringValueOf(v xdm.Atomic) string {
	switch {
	case xdmtype.IsSubtype(v.Tag, xdmtype.Integer):
		if v.Int == nil {
			return "0"
		}
		return v.Int.String()
	case v.Tag == xdmtype.Decimal:
		return v.Dec.String()
	case v.Tag == xdmtype.Float:
		return formatFloatLexical(float64(v.Flt32))
	case v.Tag == xdmtype.Double:
		return formatFloatLexical(v.Flt64)
	case v.Tag == xdmtype.Boolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case v.Tag == xdmtype.HexBinary:
		return fmt.Sprintf("%X", v.Bin)
	case v.Tag == xdmtype.Base64Binary:
		return base64Encode(v.Bin)
	case v.Tag == xdmtype.Duration || v.Tag == xdmtype.DayTimeDuration || v.Tag == xdmtype.YearMonthDuration:
		return v.Time.FormatDuration()
	case v.Tag == xdmtype.DateTime:
		return v.Time.FormatDateTime()
	case v.Tag == xdmtype.Date:
		return v.Time.FormatDate()
	case v.Tag == xdmtype.Time:
		return v.Time.FormatTime()
	default:
		return v.Str
	}
}

func formatFloatLexical(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func base64Encode(b []byte) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	var sb strings.Builder
	for i := 0; i < len(b); i += 3 {
		end := i + 3
		if end > len(b) {
			end = len(b)
		}
		chunk := b[i:end]
		var n uint32
		for _, c := range chunk {
			n = n<<8 | uint32(c)
		}
		n <<= uint(8 * (3 - len(chunk)))
		sb.WriteByte(alphabet[(n>>18)&0x3F])
		sb.WriteByte(alphabet[(n>>12)&0x3F])
		if len(chunk) > 1 {
			sb.WriteByte(alphabet[(n>>6)&0x3F])
		} else {
			sb.WriteByte('=')
		}
		if len(chunk) > 2 {
			sb.WriteByte(alphabet[n&0x3F])
		} else {
			sb.WriteByte('=')
		}
	}
	return sb.String()
}

func castToBoolean(v xdm.Atomic) (xdm.Atomic, error) {
	switch {
	case v.Tag == xdmtype.String || v.Tag == xdmtype.UntypedAtomic:
		s := strings.TrimSpace(v.Str)
		switch s {
		case "true", "1":
			return xdm.NewBoolean(true), nil
		case "false", "0":
			return xdm.NewBoolean(false), nil
		default:
			return xdm.Atomic{}, diagnostics.New(diagnostics.FORG0001, "invalid xs:boolean lexical form %q", v.Str)
		}
	case xdmtype.IsNumeric(v.Tag):
		f, _ := numericAsFloat64(v)
		return xdm.NewBoolean(f != 0), nil
	default:
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPST0080, "cannot cast %s to xs:boolean", v.Tag)
	}
}

func castToInteger(v xdm.Atomic, target xdmtype.AtomicType) (xdm.Atomic, error) {
	var i *big.Int
	switch {
	case v.Tag == xdmtype.String || v.Tag == xdmtype.UntypedAtomic:
		s := strings.TrimSpace(v.Str)
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return xdm.Atomic{}, diagnostics.New(diagnostics.FORG0001, "invalid integer lexical form %q", v.Str)
		}
		i = n
	case xdmtype.IsSubtype(v.Tag, xdmtype.Integer):
		i = v.Int
	case v.Tag == xdmtype.Decimal:
		n, ok := v.Dec.BigInt()
		if !ok {
			n, _ = new(big.Float).SetRat(v.Dec.Rat()).Int(nil)
		}
		i = n
	case v.Tag == xdmtype.Float || v.Tag == xdmtype.Double:
		f, _ := numericAsFloat64(v)
		n, _ := big.NewFloat(f).Int(nil)
		i = n
	case v.Tag == xdmtype.Boolean:
		if v.Bool {
			i = big.NewInt(1)
		} else {
			i = big.NewInt(0)
		}
	default:
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPST0080, "cannot cast %s to %s", v.Tag, target)
	}
	if err := checkIntegerRange(i, target); err != nil {
		return xdm.Atomic{}, err
	}
	return xdm.NewDerivedInteger(target, i), nil
}

// integerBounds gives the inclusive [min,max] bound for each derived integer
// subtype that has one (plain xs:integer is unbounded).
var integerBounds = map[xdmtype.AtomicType][2]int64{
	xdmtype.Long:               {-9223372036854775808, 9223372036854775807},
	xdmtype.Int:                {-2147483648, 2147483647},
	xdmtype.Short:              {-32768, 32767},
	xdmtype.Byte:               {-128, 127},
	xdmtype.UnsignedLong:       {0, 9223372036854775807}, // approximated: true max exceeds int64
	xdmtype.UnsignedInt:        {0, 4294967295},
	xdmtype.UnsignedShort:      {0, 65535},
	xdmtype.UnsignedByte:       {0, 255},
	xdmtype.NonNegativeInteger: {0, 9223372036854775807},
	xdmtype.PositiveInteger:    {1, 9223372036854775807},
	xdmtype.NonPositiveInteger: {-9223372036854775808, 0},
	xdmtype.NegativeInteger:    {-9223372036854775808, -1},
}

func checkIntegerRange(i *big.Int, target xdmtype.AtomicType) error {
	bounds, ok := integerBounds[target]
	if !ok {
		return nil
	}
	lo, hi := big.NewInt(bounds[0]), big.NewInt(bounds[1])
	if i.Cmp(lo) < 0 || i.Cmp(hi) > 0 {
		return diagnostics.New(diagnostics.FOCA0003, "%s is out of range for %s", i.String(), target)
	}
	return nil
}

func castToDecimal(v xdm.Atomic) (xdm.Atomic, error) {
	switch {
	case v.Tag == xdmtype.String || v.Tag == xdmtype.UntypedAtomic:
		d, ok := xdm.NewDecimalFromString(strings.TrimSpace(v.Str))
		if !ok {
			return xdm.Atomic{}, diagnostics.New(diagnostics.FORG0001, "invalid xs:decimal lexical form %q", v.Str)
		}
		return xdm.NewDecimal(d), nil
	case xdmtype.IsSubtype(v.Tag, xdmtype.Integer):
		return xdm.NewDecimal(xdm.NewDecimalFromInt(v.Int)), nil
	case v.Tag == xdmtype.Decimal:
		return v, nil
	case v.Tag == xdmtype.Float || v.Tag == xdmtype.Double:
		f, _ := numericAsFloat64(v)
		d, ok := xdm.NewDecimalFromFloat(f)
		if !ok {
			return xdm.Atomic{}, diagnostics.New(diagnostics.FOCA0001, "%g has no exact xs:decimal representation", f)
		}
		return xdm.NewDecimal(d), nil
	case v.Tag == xdmtype.Boolean:
		if v.Bool {
			return xdm.NewDecimal(xdm.NewDecimalFromInt64(1)), nil
		}
		return xdm.NewDecimal(xdm.NewDecimalFromInt64(0)), nil
	default:
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPST0080, "cannot cast %s to xs:decimal", v.Tag)
	}
}

func castToFloat(v xdm.Atomic) (xdm.Atomic, error) {
	f, err := parseOrConvertFloat(v)
	if err != nil {
		return xdm.Atomic{}, err
	}
	return xdm.NewFloat(float32(f)), nil
}

func castToDouble(v xdm.Atomic) (xdm.Atomic, error) {
	f, err := parseOrConvertFloat(v)
	if err != nil {
		return xdm.Atomic{}, err
	}
	return xdm.NewDouble(f), nil
}

func parseOrConvertFloat(v xdm.Atomic) (float64, error) {
	switch {
	case v.Tag == xdmtype.String || v.Tag == xdmtype.UntypedAtomic:
		s := strings.TrimSpace(v.Str)
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "INF", "+INF":
			return math.Inf(1), nil
		case "-INF":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, diagnostics.New(diagnostics.FORG0001, "invalid floating-point lexical form %q", v.Str)
		}
		return f, nil
	case xdmtype.IsNumeric(v.Tag):
		f, _ := numericAsFloat64(v)
		return f, nil
	case v.Tag == xdmtype.Boolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, diagnostics.New(diagnostics.XPST0080, "cannot cast %s to a floating-point type", v.Tag)
	}
}
