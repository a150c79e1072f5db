package stdlib

import (
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/xdm"
)

// accessorFuncs binds fn:data, fn:string, fn:string-length, fn:boolean,
// fn:not — the atomization/EBV-facing accessors, per spec.md §4.6.
func accessorFuncs() []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:data($arg as item()*) as xs:anyAtomicType*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return convert.Atomize(args[0])
		}),
		newDescriptor("fn:string($arg as item()?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewString(stringValueOf(args[0]))), nil
		}),
		newDescriptor("fn:string-length($arg as xs:string?) as xs:integer", func(args []xdm.Sequence) (xdm.Sequence, error) {
			s := singleString(args[0])
			return xdm.Single(xdm.NewIntegerFromInt64(int64(len([]rune(s))))), nil
		}),
		newDescriptor("fn:boolean($arg as item()*) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			b, err := convert.EffectiveBooleanValue(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(xdm.NewBoolean(b)), nil
		}),
		newDescriptor("fn:not($arg as item()*) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			b, err := convert.EffectiveBooleanValue(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(xdm.NewBoolean(!b)), nil
		}),
		newDescriptor("fn:true() as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(true)), nil
		}),
		newDescriptor("fn:false() as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(false)), nil
		}),
	}
}

// stringValueOf implements fn:string's item-to-string rule: nodes yield
// their string-value, atomics their canonical lexical form via cast to
// xs:string, and the empty sequence yields "".
func stringValueOf(arg xdm.Sequence) string {
	it, ok := arg.First()
	if !ok {
		return ""
	}
	switch v := it.(type) {
	case xdm.Node:
		return v.Handle.StringValue()
	case xdm.Atomic:
		s, err := convert.CastAtomic(v, stringTag)
		if err != nil {
			return v.Inspect()
		}
		return s.Str
	default:
		return it.Inspect()
	}
}

func singleString(arg xdm.Sequence) string {
	it, ok := arg.First()
	if !ok {
		return ""
	}
	a, ok := it.(xdm.Atomic)
	if !ok {
		return ""
	}
	return a.Str
}
