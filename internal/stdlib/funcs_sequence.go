package stdlib

import (
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// sequenceFuncs binds count/empty/exists/reverse/subsequence/
// distinct-values plus the higher-order for-each/filter/fold-left, per
// spec.md §4.6's "sequences" coverage and §4.3's requirement that a
// built-in invoking a user function re-enters the VM through the same
// Callable surface as a static call.
func sequenceFuncs(invoke Invoker) []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:count($arg as item()*) as xs:integer", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewIntegerFromInt64(int64(args[0].Len()))), nil
		}),
		newDescriptor("fn:empty($arg as item()*) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(args[0].IsEmpty())), nil
		}),
		newDescriptor("fn:exists($arg as item()*) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return xdm.Single(xdm.NewBoolean(!args[0].IsEmpty())), nil
		}),
		newDescriptor("fn:reverse($arg as item()*) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			items := args[0].Items()
			out := make([]xdm.Item, len(items))
			for i, it := range items {
				out[len(items)-1-i] = it
			}
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:subsequence($sourceSeq as item()*, $startingLoc as xs:double, $length as xs:double?) as item()*", subsequenceImpl),
		newDescriptor("fn:distinct-values($arg as xs:anyAtomicType*) as xs:anyAtomicType*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			items := args[0].Items()
			var out []xdm.Item
			for _, it := range items {
				a := it.(xdm.Atomic)
				dup := false
				for _, seen := range out {
					if seen.(xdm.Atomic).ValueEqual(a) {
						dup = true
						break
					}
				}
				if !dup {
					out = append(out, a)
				}
			}
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:index-of($seqParam as xs:anyAtomicType*, $srchParam as xs:anyAtomicType) as xs:integer*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			target, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			var out []xdm.Item
			for i, it := range args[0].Items() {
				if it.(xdm.Atomic).ValueEqual(target) {
					out = append(out, xdm.NewIntegerFromInt64(int64(i+1)))
				}
			}
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:insert-before($target as item()*, $position as xs:integer, $inserts as item()*) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			pos, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			p := int(pos.Int.Int64())
			target := args[0].Items()
			if p < 1 {
				p = 1
			}
			if p > len(target)+1 {
				p = len(target) + 1
			}
			out := make([]xdm.Item, 0, len(target)+args[2].Len())
			out = append(out, target[:p-1]...)
			out = append(out, args[2].Items()...)
			out = append(out, target[p-1:]...)
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:remove($target as item()*, $position as xs:integer) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			pos, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			p := int(pos.Int.Int64())
			target := args[0].Items()
			if p < 1 || p > len(target) {
				return xdm.FromSlice(target), nil
			}
			out := make([]xdm.Item, 0, len(target)-1)
			out = append(out, target[:p-1]...)
			out = append(out, target[p:]...)
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:for-each($seq as item()*, $action as function(item()) as item()*) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			fn, err := requireCallable(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			var out []xdm.Item
			for _, it := range args[0].Items() {
				r, err := invoke(fn, []xdm.Sequence{xdm.Single(it)})
				if err != nil {
					return xdm.Empty, err
				}
				out = append(out, r.Items()...)
			}
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:filter($seq as item()*, $f as function(item()) as xs:boolean) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			fn, err := requireCallable(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			var out []xdm.Item
			for _, it := range args[0].Items() {
				r, err := invoke(fn, []xdm.Sequence{xdm.Single(it)})
				if err != nil {
					return xdm.Empty, err
				}
				keep, err := convert.EffectiveBooleanValue(r)
				if err != nil {
					return xdm.Empty, err
				}
				if keep {
					out = append(out, it)
				}
			}
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("fn:fold-left($seq as item()*, $zero as item()*, $f as function(item()*, item()) as item()*) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			fn, err := requireCallable(args[2])
			if err != nil {
				return xdm.Empty, err
			}
			acc := args[1]
			for _, it := range args[0].Items() {
				acc, err = invoke(fn, []xdm.Sequence{acc, xdm.Single(it)})
				if err != nil {
					return xdm.Empty, err
				}
			}
			return acc, nil
		}),
	}
}

// Invoker calls a Callable (a user closure passed into a higher-order
// standard function) and returns its result, re-entering the VM's own call
// machinery rather than duplicating it here — bound at registry
// construction time to the owning VM's (*vm.VM).Invoke method.
type Invoker func(fn xdm.Callable, args []xdm.Sequence) (xdm.Sequence, error)

func requireCallable(seq xdm.Sequence) (xdm.Callable, error) {
	it, ok := seq.First()
	if !ok {
		return nil, diagnostics.New(diagnostics.XPTY0004, "expected a function item")
	}
	fn, ok := it.(xdm.Callable)
	if !ok {
		return nil, diagnostics.New(diagnostics.XPTY0004, "expected a function item")
	}
	return fn, nil
}

func subsequenceImpl(args []xdm.Sequence) (xdm.Sequence, error) {
	items := args[0].Items()
	start, err := requireAtomic(args[1])
	if err != nil {
		return xdm.Empty, err
	}
	from := int(roundHalfUp(floatOf(start)))
	to := len(items) + 1
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
	if to > len(items)+1 {
		to = len(items) + 1
	}
	if from >= to {
		return xdm.Empty, nil
	}
	return xdm.FromSlice(items[from-1 : to-1]), nil
}
