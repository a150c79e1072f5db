// Package xdmtype implements the closed XML Schema atomic type lattice and
// XPath 3.1 SequenceType matching (C2). The lattice is known statically, so
// is-subtype answers in O(1) via a precomputed ancestor bitset per type.
package xdmtype

// AtomicType identifies one node of the built-in atomic type lattice.
type AtomicType uint8

const (
	AnyAtomicType AtomicType = iota
	UntypedAtomic

	// numeric union and its members
	Numeric
	Decimal
	Float
	Double

	Integer
	NonPositiveInteger
	NegativeInteger
	Long
	Int
	Short
	Byte
	NonNegativeInteger
	UnsignedLong
	UnsignedInt
	UnsignedShort
	UnsignedByte
	PositiveInteger

	String
	Boolean
	AnyURI
	QName
	HexBinary
	Base64Binary

	Duration
	DayTimeDuration
	YearMonthDuration
	DateTime
	Date
	Time
	GYearMonth
	GYear
	GMonthDay
	GDay
	GMonth

	numAtomicTypes
)

var typeNames = map[AtomicType]string{
	AnyAtomicType:      "xs:anyAtomicType",
	UntypedAtomic:      "xs:untypedAtomic",
	Numeric:            "numeric",
	Decimal:            "xs:decimal",
	Float:              "xs:float",
	Double:             "xs:double",
	Integer:            "xs:integer",
	NonPositiveInteger: "xs:nonPositiveInteger",
	NegativeInteger:    "xs:negativeInteger",
	Long:               "xs:long",
	Int:                "xs:int",
	Short:              "xs:short",
	Byte:               "xs:byte",
	NonNegativeInteger: "xs:nonNegativeInteger",
	UnsignedLong:       "xs:unsignedLong",
	UnsignedInt:        "xs:unsignedInt",
	UnsignedShort:      "xs:unsignedShort",
	UnsignedByte:       "xs:unsignedByte",
	PositiveInteger:    "xs:positiveInteger",
	String:             "xs:string",
	Boolean:            "xs:boolean",
	AnyURI:             "xs:anyURI",
	QName:              "xs:QName",
	HexBinary:          "xs:hexBinary",
	Base64Binary:       "xs:base64Binary",
	Duration:           "xs:duration",
	DayTimeDuration:    "xs:dayTimeDuration",
	YearMonthDuration:  "xs:yearMonthDuration",
	DateTime:           "xs:dateTime",
	Date:               "xs:date",
	Time:               "xs:time",
	GYearMonth:         "xs:gYearMonth",
	GYear:              "xs:gYear",
	GMonthDay:          "xs:gMonthDay",
	GDay:               "xs:gDay",
	GMonth:             "xs:gMonth",
}

func (t AtomicType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "xs:?unknown"
}

var namesByText map[string]AtomicType

func init() {
	namesByText = make(map[string]AtomicType, len(typeNames))
	for t, n := range typeNames {
		namesByText[n] = t
	}
}

// LookupAtomicType resolves a QName's lexical form ("xs:integer") to its
// AtomicType, for front ends parsing cast/castable/treat/instance-of type
// names. Reports false for anything outside the built-in xs: lattice.
func LookupAtomicType(qname string) (AtomicType, bool) {
	t, ok := namesByText[qname]
	return t, ok
}

// parentOf records the immediate parent of every node in the lattice; the
// root (AnyAtomicType) has no parent.
var parentOf = map[AtomicType]AtomicType{
	UntypedAtomic:      AnyAtomicType,
	Numeric:            AnyAtomicType,
	Decimal:            Numeric,
	Float:              Numeric,
	Double:             Numeric,
	Integer:            Decimal,
	NonPositiveInteger: Integer,
	NegativeInteger:    NonPositiveInteger,
	Long:               Integer,
	Int:                Long,
	Short:              Int,
	Byte:               Short,
	NonNegativeInteger: Integer,
	UnsignedLong:       NonNegativeInteger,
	UnsignedInt:        UnsignedLong,
	UnsignedShort:      UnsignedInt,
	UnsignedByte:       UnsignedShort,
	PositiveInteger:    NonNegativeInteger,
	String:             AnyAtomicType,
	Boolean:            AnyAtomicType,
	AnyURI:             AnyAtomicType,
	QName:              AnyAtomicType,
	HexBinary:          AnyAtomicType,
	Base64Binary:       AnyAtomicType,
	Duration:           AnyAtomicType,
	DayTimeDuration:    Duration,
	YearMonthDuration:  Duration,
	DateTime:           AnyAtomicType,
	Date:               AnyAtomicType,
	Time:               AnyAtomicType,
	GYearMonth:         AnyAtomicType,
	GYear:              AnyAtomicType,
	GMonthDay:          AnyAtomicType,
	GDay:               AnyAtomicType,
	GMonth:             AnyAtomicType,
}

// ancestorBits[t] has bit i set iff AtomicType(i) is t or an ancestor of t.
var ancestorBits [numAtomicTypes]uint64

func init() {
	for t := AtomicType(0); t < numAtomicTypes; t++ {
		cur := t
		ancestorBits[t] |= 1 << uint(t)
		for {
			p, ok := parentOf[cur]
			if !ok {
				break
			}
			ancestorBits[t] |= 1 << uint(p)
			cur = p
		}
	}
}

// IsSubtype reports whether a is the same type as b or a proper descendant
// of b in the lattice. Constant time via the precomputed bitset.
func IsSubtype(a, b AtomicType) bool {
	if int(b) >= 64 {
		return a == b
	}
	return ancestorBits[a]&(1<<uint(b)) != 0
}

// Parent returns the immediate supertype of t, and false if t is the root.
func Parent(t AtomicType) (AtomicType, bool) {
	p, ok := parentOf[t]
	return p, ok
}

// IsNumeric reports whether t is a subtype of the synthetic numeric union.
func IsNumeric(t AtomicType) bool { return IsSubtype(t, Numeric) }

// IsDerivedInteger reports whether t is one of the 12 derived integer types
// (i.e. a proper descendant of Integer) rather than Integer itself.
func IsDerivedInteger(t AtomicType) bool {
	return t != Integer && IsSubtype(t, Integer)
}

// PromotionRank orders the numeric promotion chain integer -> decimal ->
// float -> double; -1 for non-numeric types.
func PromotionRank(t AtomicType) int {
	switch {
	case IsSubtype(t, Integer):
		return 0
	case t == Decimal:
		return 1
	case t == Float:
		return 2
	case t == Double:
		return 3
	default:
		return -1
	}
}
