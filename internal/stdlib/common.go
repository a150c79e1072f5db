package stdlib

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

const stringTag = xdmtype.String

// atomicArg extracts the single xs:anyAtomicType argument ConvertArgument
// already coerced into place; every Impl in this package trusts its
// Descriptor's Params to have made this safe.
func atomicArg(seq xdm.Sequence) (xdm.Atomic, bool) {
	it, ok := seq.First()
	if !ok {
		return xdm.Atomic{}, false
	}
	a, ok := it.(xdm.Atomic)
	return a, ok
}

func requireAtomic(seq xdm.Sequence) (xdm.Atomic, error) {
	a, ok := atomicArg(seq)
	if !ok {
		return xdm.Atomic{}, diagnostics.New(diagnostics.XPTY0004, "expected a single atomic value")
	}
	return a, nil
}

func optString(seq xdm.Sequence, dflt string) string {
	a, ok := atomicArg(seq)
	if !ok {
		return dflt
	}
	return a.Str
}
