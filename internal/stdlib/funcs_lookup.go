package stdlib

import "github.com/arborxml/xpvm/internal/xdm"

// functionLookupFuncs binds fn:function-lookup, the mechanism a
// NamedFunctionRef (`prefix:local#arity`) or a partial application of a
// named (non-inline) function lowers to: it resolves a callee against this
// same registry without invoking it, producing a function-item value usable
// wherever a DynamicCall or PartialApply expects one.
func functionLookupFuncs(r *Registry) []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:function-lookup($name as xs:QName, $arity as xs:integer) as function(*)?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			clark := optString(args[0], "")
			uri, local := splitClark(clark)
			arity, ok := atomicArg(args[1])
			if !ok || arity.Int == nil {
				return xdm.Empty, nil
			}
			d, found := r.Resolve(uri, local, int(arity.Int.Int64()))
			if !found {
				return xdm.Empty, nil
			}
			return xdm.Single(d), nil
		}),
	}
}
