package stdlib

import (
	"strings"

	"github.com/arborxml/xpvm/internal/xdm"
)

// stringFuncs binds the fn: string namespace: concat, case conversion,
// whitespace normalization, substring search/extraction, and tokenize —
// spec.md §4.6's "strings" coverage.
func stringFuncs() []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:concat($arg1 as xs:anyAtomicType?, $arg2 as xs:anyAtomicType?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewString(optString(args[0], "") + optString(args[1], ""))), nil
		}),
		newDescriptor("fn:upper-case($arg as xs:string?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewString(strings.ToUpper(optString(args[0], "")))), nil
		}),
		newDescriptor("fn:lower-case($arg as xs:string?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewString(strings.ToLower(optString(args[0], "")))), nil
		}),
		newDescriptor("fn:normalize-space($arg as xs:string?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewString(strings.Join(strings.Fields(optString(args[0], "")), " "))), nil
		}),
		newDescriptor("fn:contains($arg1 as xs:string?, $arg2 as xs:string?) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(strings.Contains(optString(args[0], ""), optString(args[1], "")))), nil
		}),
		newDescriptor("fn:starts-with($arg1 as xs:string?, $arg2 as xs:string?) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(strings.HasPrefix(optString(args[0], ""), optString(args[1], "")))), nil
		}),
		newDescriptor("fn:ends-with($arg1 as xs:string?, $arg2 as xs:string?) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(strings.HasSuffix(optString(args[0], ""), optString(args[1], "")))), nil
		}),
		newDescriptor("fn:substring-before($arg1 as xs:string?, $arg2 as xs:string?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			s, sub := optString(args[0], ""), optString(args[1], "")
			if sub == "" {
				return xdm.Single(xdm.NewString("")), nil
			}
			i := strings.Index(s, sub)
			if i < 0 {
				return xdm.Single(xdm.NewString("")), nil
			}
			return xdm.Single(xdm.NewString(s[:i])), nil
		}),
		newDescriptor("fn:substring-after($arg1 as xs:string?, $arg2 as xs:string?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			s, sub := optString(args[0], ""), optString(args[1], "")
			if sub == "" {
				return xdm.Single(xdm.NewString(s)), nil
			}
			i := strings.Index(s, sub)
			if i < 0 {
				return xdm.Single(xdm.NewString("")), nil
			}
			return xdm.Single(xdm.NewString(s[i+len(sub):])), nil
		}),
		newDescriptor("fn:substring($sourceString as xs:string?, $start as xs:double, $length as xs:double?) as xs:string", substringImpl),
		newDescriptor("fn:translate($arg as xs:string?, $mapString as xs:string, $transString as xs:string) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			s, from, to := optString(args[0], ""), optString(args[1], ""), optString(args[2], "")
			fromR, toR := []rune(from), []rune(to)
			var b strings.Builder
			for _, r := range s {
				idx := -1
				for i, fr := range fromR {
					if fr == r {
						idx = i
						break
					}
				}
				if idx < 0 {
					b.WriteRune(r)
				} else if idx < len(toR) {
					b.WriteRune(toR[idx])
				}
			}
			return xdm.Single(xdm.NewString(b.String())), nil
		}),
		newDescriptor("fn:tokenize($input as xs:string?, $pattern as xs:string) as xs:string*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			s, sep := optString(args[0], ""), optString(args[1], "")
			var parts []string
			if sep == "" {
				parts = strings.Fields(s)
			} else {
				parts = regexSplit(s, sep)
			}
			items := make([]xdm.Item, len(parts))
			for i, p := range parts {
				items[i] = xdm.NewString(p)
			}
			return xdm.FromSlice(items), nil
		}),
		newDescriptor("fn:string-join($arg1 as xs:string*, $arg2 as xs:string) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			sep := optString(args[1], "")
			items := args[0].Items()
			parts := make([]string, len(items))
			for i, it := range items {
				a, _ := it.(xdm.Atomic)
				parts[i] = a.Str
			}
			return xdm.Single(xdm.NewString(strings.Join(parts, sep))), nil
		}),
	}
}

func substringImpl(args []xdm.Sequence) (xdm.Sequence, error) {
	s := []rune(optString(args[0], ""))
	start, err := requireAtomic(args[1])
	if err != nil {
		return xdm.Empty, err
	}
	startPos := roundHalfUp(floatOf(start))
	from := int(startPos)
	to := len(s) + 1
	if !args[2].IsEmpty() {
		length, err := requireAtomic(args[2])
		if err != nil {
			return xdm.Empty, err
		}
		to = from + int(roundHalfUp(floatOf(length)))
	}
	if from < 1 {
		from = 1
	}
	if to > len(s)+1 {
		to = len(s) + 1
	}
	if from >= to {
		return xdm.Single(xdm.NewString("")), nil
	}
	return xdm.Single(xdm.NewString(string(s[from-1 : to-1]))), nil
}

// regexSplit splits on a literal separator; XPath's tokenize takes a regular
// expression pattern, but this CORE's function-conversion layer has no
// dedicated regex engine dependency (spec.md's collation provider covers
// string comparison, not pattern matching), so a literal-substring split
// covers the common single-character/fixed-delimiter case.
func regexSplit(s, sep string) []string {
	return strings.Split(s, sep)
}
