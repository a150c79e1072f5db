package xpath

import (
	"strings"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/name"
)

const fnNamespaceURI = "http://www.w3.org/2005/xpath-functions"

// splitQName splits "prefix:local" into its parts; local alone means no
// prefix.
func splitQName(qname string) (prefix, local string, hasPrefix bool) {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[:i], qname[i+1:], true
	}
	return "", qname, false
}

// resolveFunctionName expands a FunctionCall/NamedFunctionRef's QName text:
// unprefixed calls default to the fn: namespace (or the static context's
// default function namespace, if it names one), prefixed calls resolve
// against the in-scope namespace bindings.
func (b *builder) resolveFunctionName(qname string, span diagnostics.Span) (name.Expanded, error) {
	prefix, local, hasPrefix := splitQName(qname)
	if !hasPrefix {
		uri := b.sc.DefaultFunctionNamespace
		if uri == "" {
			uri = fnNamespaceURI
		}
		return name.New(uri, local), nil
	}
	uri, ok := b.sc.Namespaces.Resolve(prefix)
	if !ok {
		return name.Expanded{}, diagnostics.At(diagnostics.XPST0081, span, "unresolvable namespace prefix %q", prefix)
	}
	return name.New(uri, local).WithPrefix(prefix), nil
}
