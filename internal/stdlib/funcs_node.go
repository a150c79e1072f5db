package stdlib

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// nodeFuncs binds root/local-name/namespace-uri/name/node-name, per
// spec.md §4.6's "nodes (root, parent, local-name, namespace-uri)" — built
// entirely against xdm.NodeHandle so this package never depends on the C10
// tree adapter concretely.
func nodeFuncs() []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:root($arg as node()?) as node()?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			n, ok := nodeArg(args[0])
			if !ok {
				return xdm.Empty, nil
			}
			cur := n
			for {
				p, ok := cur.Handle.Parent()
				if !ok {
					return xdm.Single(cur), nil
				}
				cur = xdm.NewNode(p)
			}
		}),
		newDescriptor("fn:local-name($arg as node()?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			n, ok := nodeArg(args[0])
			if !ok {
				return xdm.Single(xdm.NewString("")), nil
			}
			_, local := n.Handle.Name()
			return xdm.Single(xdm.NewString(local)), nil
		}),
		newDescriptor("fn:namespace-uri($arg as node()?) as xs:anyURI", func(args []xdm.Sequence) (xdm.Sequence, error) {
			n, ok := nodeArg(args[0])
			if !ok {
				return xdm.Single(xdm.NewAnyURI("")), nil
			}
			uri, _ := n.Handle.Name()
			return xdm.Single(xdm.NewAnyURI(uri)), nil
		}),
		newDescriptor("fn:name($arg as node()?) as xs:string", func(args []xdm.Sequence) (xdm.Sequence, error) {
			n, ok := nodeArg(args[0])
			if !ok {
				return xdm.Single(xdm.NewString("")), nil
			}
			_, local := n.Handle.Name()
			return xdm.Single(xdm.NewString(local)), nil
		}),
		newDescriptor("fn:node-name($arg as node()?) as xs:QName?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			n, ok := nodeArg(args[0])
			if !ok {
				return xdm.Empty, nil
			}
			uri, local := n.Handle.Name()
			if local == "" {
				return xdm.Empty, nil
			}
			return xdm.Single(xdm.NewQName(clarkName(uri, local))), nil
		}),
	}
}

func nodeArg(seq xdm.Sequence) (xdm.Node, bool) {
	it, ok := seq.First()
	if !ok {
		return xdm.Node{}, false
	}
	n, ok := it.(xdm.Node)
	return n, ok
}

func requireNode(seq xdm.Sequence) (xdm.Node, error) {
	n, ok := nodeArg(seq)
	if !ok {
		return xdm.Node{}, diagnostics.New(diagnostics.XPTY0004, "expected a single node")
	}
	return n, nil
}

func clarkName(uri, local string) string {
	if uri == "" {
		return local
	}
	return "{" + uri + "}" + local
}
