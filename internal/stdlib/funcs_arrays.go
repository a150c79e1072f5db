package stdlib

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// arrayFuncs binds the array: namespace over xdm.Array's immutable
// Get/Put/Append, per spec.md §4.6's "map/array operations" coverage.
func arrayFuncs(invoke Invoker) []*Descriptor {
	return []*Descriptor{
		newDescriptor("array:size($array as array(*)) as xs:integer", func(args []xdm.Sequence) (xdm.Sequence, error) {
			a, err := requireArray(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(xdm.NewIntegerFromInt64(int64(a.Size()))), nil
		}),
		newDescriptor("array:get($array as array(*), $position as xs:integer) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			a, err := requireArray(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			pos, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			v, ok := a.Get(int(pos.Int.Int64()))
			if !ok {
				return xdm.Empty, diagnostics.New(diagnostics.FOAR0001, "array position %d out of bounds", pos.Int.Int64())
			}
			return v, nil
		}),
		newDescriptor("array:put($array as array(*), $position as xs:integer, $member as item()*) as array(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			a, err := requireArray(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			pos, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			out, ok := a.Put(int(pos.Int.Int64()), args[2])
			if !ok {
				return xdm.Empty, diagnostics.New(diagnostics.FOAR0001, "array position %d out of bounds", pos.Int.Int64())
			}
			return xdm.Single(out), nil
		}),
		newDescriptor("array:append($array as array(*), $member as item()*) as array(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			a, err := requireArray(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(a.Append(args[1])), nil
		}),
		newDescriptor("array:flatten($input as item()*) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			var out []xdm.Item
			flattenInto(args[0], &out)
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("array:reverse($array as array(*)) as array(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			a, err := requireArray(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			members := a.Members()
			out := make([]xdm.Sequence, len(members))
			for i, m := range members {
				out[len(members)-1-i] = m
			}
			return xdm.Single(xdm.NewArray(out)), nil
		}),
		newDescriptor("array:for-each($array as array(*), $action as function(item()*) as item()*) as array(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			a, err := requireArray(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			fn, err := requireCallable(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			members := a.Members()
			out := make([]xdm.Sequence, len(members))
			for i, m := range members {
				r, err := invoke(fn, []xdm.Sequence{m})
				if err != nil {
					return xdm.Empty, err
				}
				out[i] = r
			}
			return xdm.Single(xdm.NewArray(out)), nil
		}),
	}
}

func requireArray(seq xdm.Sequence) (xdm.Array, error) {
	it, ok := seq.First()
	if !ok {
		return xdm.Array{}, diagnostics.New(diagnostics.XPTY0004, "expected a single array")
	}
	a, ok := it.(xdm.Array)
	if !ok {
		return xdm.Array{}, diagnostics.New(diagnostics.XPTY0004, "expected an array, got %v", it.Inspect())
	}
	return a, nil
}

// flattenInto implements fn:array:flatten's recursive rule: arrays expand
// member-by-member, everything else passes through unchanged.
func flattenInto(seq xdm.Sequence, out *[]xdm.Item) {
	for _, it := range seq.Items() {
		if a, ok := it.(xdm.Array); ok {
			for _, m := range a.Members() {
				flattenInto(m, out)
			}
			continue
		}
		*out = append(*out, it)
	}
}
