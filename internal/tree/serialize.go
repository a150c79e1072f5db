package tree

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// Serialize renders a node handle back to XML text via
// xmlquery.Node.OutputXML, for fn:serialize and the CLI's result printer.
// Only handles produced by this package can be serialized this way; any
// other xdm.NodeHandle implementation is rejected rather than guessed at.
func Serialize(n xdm.Node) (string, error) {
	switch h := n.Handle.(type) {
	case handle:
		return h.xn.OutputXML(true), nil
	case attrHandle:
		return h.attr.Name.Local + `="` + h.attr.Value + `"`, nil
	case nsHandle:
		if h.prefix == "" {
			return `xmlns="` + h.uri + `"`, nil
		}
		return `xmlns:` + h.prefix + `="` + h.uri + `"`, nil
	default:
		return "", diagnostics.New(diagnostics.FODC0002, "node not backed by internal/tree, cannot serialize")
	}
}
