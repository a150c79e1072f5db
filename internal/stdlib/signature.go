// Package stdlib implements the standard function library (fn:, math:,
// map:, array:) as a FunctionResolver the VM (C7) consults for every
// OpResolveFunc it executes.
package stdlib

import (
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// stdPrefixes binds the fixed set of prefixes a signature literal may use,
// mirroring name.NewNamespaceContext's built-in bindings — this parser only
// ever sees compile-time literal signatures written against the standard
// function namespaces, never user-authored QNames.
var stdPrefixes = map[string]string{
	"fn":    "http://www.w3.org/2005/xpath-functions",
	"xs":    "http://www.w3.org/2001/XMLSchema",
	"math":  "http://www.w3.org/2005/xpath-functions/math",
	"map":   "http://www.w3.org/2005/xpath-functions/map",
	"array": "http://www.w3.org/2005/xpath-functions/array",
}

var atomicTypeByName = map[string]xdmtype.AtomicType{
	"anyAtomicType":      xdmtype.AnyAtomicType,
	"untypedAtomic":      xdmtype.UntypedAtomic,
	"decimal":            xdmtype.Decimal,
	"float":              xdmtype.Float,
	"double":             xdmtype.Double,
	"integer":            xdmtype.Integer,
	"nonPositiveInteger": xdmtype.NonPositiveInteger,
	"negativeInteger":    xdmtype.NegativeInteger,
	"long":               xdmtype.Long,
	"int":                xdmtype.Int,
	"short":              xdmtype.Short,
	"byte":               xdmtype.Byte,
	"nonNegativeInteger": xdmtype.NonNegativeInteger,
	"unsignedLong":       xdmtype.UnsignedLong,
	"unsignedInt":        xdmtype.UnsignedInt,
	"unsignedShort":      xdmtype.UnsignedShort,
	"unsignedByte":       xdmtype.UnsignedByte,
	"positiveInteger":    xdmtype.PositiveInteger,
	"string":             xdmtype.String,
	"boolean":            xdmtype.Boolean,
	"anyURI":             xdmtype.AnyURI,
	"QName":              xdmtype.QName,
	"hexBinary":          xdmtype.HexBinary,
	"base64Binary":       xdmtype.Base64Binary,
	"duration":           xdmtype.Duration,
	"dayTimeDuration":    xdmtype.DayTimeDuration,
	"yearMonthDuration":  xdmtype.YearMonthDuration,
	"dateTime":           xdmtype.DateTime,
	"date":               xdmtype.Date,
	"time":               xdmtype.Time,
	"gYearMonth":         xdmtype.GYearMonth,
	"gYear":              xdmtype.GYear,
	"gMonthDay":          xdmtype.GMonthDay,
	"gDay":               xdmtype.GDay,
	"gMonth":             xdmtype.GMonth,
	"numeric":            xdmtype.Numeric,
}

// wildcardSeq is the occurrence-agnostic item()* used to fill in a generic
// map/array/function element type that the signature grammar does not
// itself narrow (`map(*)`, `array(*)`, `function(*)`) — the resolver only
// needs these for display and for ConvertArgument's occurrence check, never
// for structural item-type matching, so an approximate wildcard is enough.
var wildcardSeq = xdmtype.SequenceType{Item: xdmtype.Item, Occurrence: xdmtype.ZeroOrMore}

// sigParser is a small hand-rolled recursive-descent parser over the fixed,
// compile-time-literal signature grammar used to register standard
// functions. It panics on malformed input rather than returning an error,
// the same way regexp.MustCompile does for a bad pattern: every signature
// string is an author-controlled literal, never program input.
type sigParser struct {
	src string
	pos int
}

func (p *sigParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *sigParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *sigParser) expect(b byte) {
	if p.peek() != b {
		panic("stdlib: signature parse error, expected " + string(b) + " in " + p.src)
	}
	p.pos++
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (p *sigParser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		panic("stdlib: signature parse error, expected identifier in " + p.src)
	}
	return p.src[start:p.pos]
}

func (p *sigParser) expectWord(word string) {
	p.skipSpace()
	if p.pos+len(word) > len(p.src) || p.src[p.pos:p.pos+len(word)] != word {
		panic("stdlib: signature parse error, expected \"" + word + "\" in " + p.src)
	}
	p.pos += len(word)
}

// parseName parses a `prefix:local` function name.
func (p *sigParser) parseName() name.Expanded {
	prefix := p.parseIdent()
	p.expect(':')
	local := p.parseIdent()
	uri, ok := stdPrefixes[prefix]
	if !ok {
		panic("stdlib: unknown namespace prefix " + prefix + " in " + p.src)
	}
	return name.Expanded{URI: uri, Local: local, Prefix: prefix}
}

// parseOccurrence consumes a trailing ?, *, or + if present.
func (p *sigParser) parseOccurrence() xdmtype.Occurrence {
	switch p.peek() {
	case '?':
		p.pos++
		return xdmtype.Optional
	case '*':
		p.pos++
		return xdmtype.ZeroOrMore
	case '+':
		p.pos++
		return xdmtype.OneOrMore
	default:
		return xdmtype.ExactlyOne
	}
}

// parseItemType parses one of: `item()`, `node()`, `element()`,
// `attribute()`, `text()`, `document-node()`, `map(*)`, `array(*)`,
// `function(*)`, `function(T, ...) as R`, or an atomic type reference
// `xs:name`.
func (p *sigParser) parseItemType() xdmtype.ItemType {
	first := p.parseIdent()
	if p.peek() == ':' {
		p.pos++
		local := p.parseIdent()
		t, ok := atomicTypeByName[local]
		if !ok {
			panic("stdlib: unknown atomic type " + first + ":" + local + " in " + p.src)
		}
		return xdmtype.AtomicItem(t)
	}
	if p.peek() != '(' {
		panic("stdlib: signature parse error near " + first + " in " + p.src)
	}
	p.pos++
	// a parenthesized kind test used here is empty or `*`, except a typed
	// function test, which lists its parameter types and a return type
	if first == "function" && p.peek() != '*' && p.peek() != ')' {
		var params []xdmtype.SequenceType
		for p.peek() != ')' {
			p.skipSpace()
			params = append(params, p.parseSequenceType())
			if p.peek() == ',' {
				p.pos++
			}
		}
		p.pos++
		p.expectWord("as")
		p.skipSpace()
		r := p.parseSequenceType()
		return xdmtype.ItemType{Kind: xdmtype.KindFunction, Params: params, Return: &r}
	}
	if p.peek() == '*' {
		p.pos++
	}
	p.expect(')')
	switch first {
	case "item":
		return xdmtype.Item
	case "node":
		return xdmtype.NodeItem(xdmtype.AnyKind, "", "")
	case "element":
		return xdmtype.NodeItem(xdmtype.ElementKind, "", "")
	case "attribute":
		return xdmtype.NodeItem(xdmtype.AttributeKind, "", "")
	case "text":
		return xdmtype.NodeItem(xdmtype.TextKind, "", "")
	case "comment":
		return xdmtype.NodeItem(xdmtype.CommentKind, "", "")
	case "document-node":
		return xdmtype.NodeItem(xdmtype.DocumentKind, "", "")
	case "map":
		v := wildcardSeq
		return xdmtype.ItemType{Kind: xdmtype.KindMap, MapKey: xdmtype.AnyAtomicType, MapValue: &v}
	case "array":
		v := wildcardSeq
		return xdmtype.ItemType{Kind: xdmtype.KindArray, ArrayElem: &v}
	case "function":
		r := wildcardSeq
		return xdmtype.ItemType{Kind: xdmtype.KindFunction, Return: &r}
	default:
		panic("stdlib: unknown item type " + first + "() in " + p.src)
	}
}

func (p *sigParser) parseSequenceType() xdmtype.SequenceType {
	item := p.parseItemType()
	occ := p.parseOccurrence()
	return xdmtype.SequenceType{Item: item, Occurrence: occ}
}

// parseSignature parses a declarative signature string, e.g.
//
//	fn:upper-case($arg as xs:string?) as xs:string
//	fn:concat($arg1 as xs:anyAtomicType?, $arg2 as xs:anyAtomicType?) as xs:string
//	fn:true() as xs:boolean
//
// into the function's expanded name, formal parameter types in declaration
// order, and return type. Parameter names are consumed for readability only
// — arguments bind positionally, never by name.
func parseSignature(sig string) (name.Expanded, []xdmtype.SequenceType, xdmtype.SequenceType) {
	p := &sigParser{src: sig}
	fn := p.parseName()
	p.expect('(')
	var params []xdmtype.SequenceType
	p.skipSpace()
	if p.peek() != ')' {
		for {
			p.skipSpace()
			p.expect('$')
			p.parseIdent()
			p.expectWord("as")
			p.skipSpace()
			params = append(params, p.parseSequenceType())
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
	}
	p.expect(')')
	p.expectWord("as")
	p.skipSpace()
	ret := p.parseSequenceType()
	return fn, params, ret
}
