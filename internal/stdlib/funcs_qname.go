package stdlib

import (
	"strings"

	"github.com/arborxml/xpvm/internal/xdm"
)

// qnameFuncs binds fn:QName and its three accessors, operating on the
// Clark-notation string xdm.Atomic uses to represent xs:QName (atomic.go's
// "QName (as a Clark-notation string)" comment).
func qnameFuncs() []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:QName($paramURI as xs:string?, $paramName as xs:string) as xs:QName", func(args []xdm.Sequence) (xdm.Sequence, error) {
			uri := optString(args[0], "")
			qn := optString(args[1], "")
			local := qn
			if i := strings.IndexByte(qn, ':'); i >= 0 {
				local = qn[i+1:]
			}
			return xdm.Single(xdm.NewQName(clarkName(uri, local))), nil
		}),
		newDescriptor("fn:local-name-from-QName($arg as xs:QName?) as xs:string?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			clark := optString(args[0], "")
			if clark == "" {
				return xdm.Empty, nil
			}
			_, local := splitClark(clark)
			return xdm.Single(xdm.NewString(local)), nil
		}),
		newDescriptor("fn:namespace-uri-from-QName($arg as xs:QName?) as xs:anyURI?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			clark := optString(args[0], "")
			if clark == "" {
				return xdm.Empty, nil
			}
			uri, _ := splitClark(clark)
			return xdm.Single(xdm.NewAnyURI(uri)), nil
		}),
	}
}

func splitClark(clark string) (uri, local string) {
	if len(clark) > 0 && clark[0] == '{' {
		if i := strings.IndexByte(clark, '}'); i >= 0 {
			return clark[1:i], clark[i+1:]
		}
	}
	return "", clark
}
