package stdlib

import (
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// constructorTargets lists the primitive atomic types spec.md §4.6 requires
// a constructor function for ("constructors for every primitive atomic
// type"), each registered as `xs:<name>($arg as xs:anyAtomicType?) as
// xs:<name>?` per the XPath 3.1 constructor-function rule: a constructor
// function's semantics are exactly its `cast as` semantics.
var constructorTargets = []struct {
	local string
	tag   xdmtype.AtomicType
}{
	{"string", xdmtype.String},
	{"boolean", xdmtype.Boolean},
	{"decimal", xdmtype.Decimal},
	{"float", xdmtype.Float},
	{"double", xdmtype.Double},
	{"integer", xdmtype.Integer},
	{"nonPositiveInteger", xdmtype.NonPositiveInteger},
	{"negativeInteger", xdmtype.NegativeInteger},
	{"long", xdmtype.Long},
	{"int", xdmtype.Int},
	{"short", xdmtype.Short},
	{"byte", xdmtype.Byte},
	{"nonNegativeInteger", xdmtype.NonNegativeInteger},
	{"unsignedLong", xdmtype.UnsignedLong},
	{"unsignedInt", xdmtype.UnsignedInt},
	{"unsignedShort", xdmtype.UnsignedShort},
	{"unsignedByte", xdmtype.UnsignedByte},
	{"positiveInteger", xdmtype.PositiveInteger},
	{"anyURI", xdmtype.AnyURI},
	{"hexBinary", xdmtype.HexBinary},
	{"base64Binary", xdmtype.Base64Binary},
	{"dateTime", xdmtype.DateTime},
	{"date", xdmtype.Date},
	{"time", xdmtype.Time},
	{"duration", xdmtype.Duration},
	{"dayTimeDuration", xdmtype.DayTimeDuration},
	{"yearMonthDuration", xdmtype.YearMonthDuration},
}

func constructorFuncs() []*Descriptor {
	out := make([]*Descriptor, len(constructorTargets))
	for i, t := range constructorTargets {
		target := t.tag
		out[i] = newDescriptor(
			"xs:"+t.local+"($arg as xs:anyAtomicType?) as xs:"+t.local+"?",
			func(args []xdm.Sequence) (xdm.Sequence, error) {
				if args[0].IsEmpty() {
					return xdm.Empty, nil
				}
				a, err := requireAtomic(args[0])
				if err != nil {
					return xdm.Empty, err
				}
				cast, err := convert.CastAtomic(a, target)
				if err != nil {
					return xdm.Empty, err
				}
				return xdm.Single(cast), nil
			},
		)
	}
	return out
}
