package tree

import (
	"github.com/antchfx/xmlquery"

	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// handle wraps one xmlquery.Node that corresponds directly to an XDM
// document/element/text/comment node (everything except the synthetic
// attribute/namespace pseudo-nodes, which get their own wrapper below since
// xmlquery stores attributes as a plain []Attribute on the owning element
// rather than as nodes of their own).
type handle struct {
	xn  *xmlquery.Node
	doc *document
}

func newHandle(xn *xmlquery.Node, doc *document) handle {
	return handle{xn: xn, doc: doc}
}

func (h handle) Kind() xdmtype.NodeKind {
	switch h.xn.Type {
	case xmlquery.DocumentNode:
		return xdmtype.DocumentKind
	case xmlquery.ElementNode:
		return xdmtype.ElementKind
	case xmlquery.TextNode, xmlquery.CharDataNode:
		return xdmtype.TextKind
	case xmlquery.CommentNode:
		return xdmtype.CommentKind
	default:
		// Declaration/notation nodes have no clean XDM counterpart and are
		// filtered out of Children, so this arm is only ever reached if a
		// caller constructs a handle directly over one.
		return xdmtype.ProcessingInstructionKind
	}
}

func (h handle) Name() (uri, local string) {
	if h.xn.Type != xmlquery.ElementNode {
		return "", ""
	}
	return h.xn.NamespaceURI, h.xn.Data
}

// StringValue is the node's string-value: an element/document node
// concatenates the character data of every descendant text node (exactly
// what InnerText computes), everything else uses its own Data.
func (h handle) StringValue() string {
	switch h.xn.Type {
	case xmlquery.ElementNode, xmlquery.DocumentNode:
		return h.xn.InnerText()
	default:
		return h.xn.Data
	}
}

func (h handle) TypedValue() []xdm.Atomic {
	return []xdm.Atomic{xdm.NewUntypedAtomic(h.StringValue())}
}

func (h handle) DocumentOrderKey() (docIndex int, preorder int64) {
	return h.doc.index, h.doc.preorderOf(h.xn)
}

func (h handle) Identity() uint64 {
	return identityKey(h.doc.index, h.doc.preorderOf(h.xn))
}

func identityKey(docIndex int, key int64) uint64 {
	return uint64(docIndex)<<48 ^ uint64(key)
}

func (h handle) Parent() (xdm.NodeHandle, bool) {
	if h.xn.Parent == nil {
		return nil, false
	}
	return newHandle(h.xn.Parent, h.doc), true
}

func (h handle) Children() []xdm.NodeHandle {
	var out []xdm.NodeHandle
	for c := h.xn.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode, xmlquery.TextNode, xmlquery.CharDataNode, xmlquery.CommentNode:
			out = append(out, newHandle(c, h.doc))
		}
	}
	return out
}

func (h handle) Attributes() []xdm.NodeHandle {
	if h.xn.Type != xmlquery.ElementNode {
		return nil
	}
	var out []xdm.NodeHandle
	for i, a := range h.xn.Attr {
		if isNamespaceAttr(a) {
			continue
		}
		out = append(out, attrHandle{owner: h.xn, doc: h.doc, attr: a, index: i})
	}
	return out
}

func (h handle) Namespaces() []xdm.NodeHandle {
	if h.xn.Type != xmlquery.ElementNode {
		return nil
	}
	var out []xdm.NodeHandle
	n := 0
	for _, a := range h.xn.Attr {
		if !isNamespaceAttr(a) {
			continue
		}
		prefix := a.Name.Local
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			prefix = ""
		}
		out = append(out, nsHandle{owner: h.xn, doc: h.doc, prefix: prefix, uri: a.Value, index: n})
		n++
	}
	return out
}

// isNamespaceAttr reports whether attr is an xmlns/xmlns:prefix declaration
// rather than a real attribute: xmlquery keeps namespace declarations in
// the same Attr slice as ordinary attributes, distinguished by name.
func isNamespaceAttr(a xmlquery.Attribute) bool {
	return a.Name.Space == "xmlns" || a.Name.Local == "xmlns"
}

// attrHandle represents one attribute as a synthetic pseudo-node, ordered
// immediately after its owning element and before any of its children.
type attrHandle struct {
	owner *xmlquery.Node
	doc   *document
	attr  xmlquery.Attribute
	index int
}

func (a attrHandle) Kind() xdmtype.NodeKind { return xdmtype.AttributeKind }

func (a attrHandle) Name() (uri, local string) {
	uri = a.attr.NamespaceURI
	if uri == "" {
		uri = a.attr.Name.Space
	}
	return uri, a.attr.Name.Local
}

func (a attrHandle) StringValue() string          { return a.attr.Value }
func (a attrHandle) TypedValue() []xdm.Atomic     { return []xdm.Atomic{xdm.NewUntypedAtomic(a.attr.Value)} }
func (a attrHandle) Children() []xdm.NodeHandle   { return nil }
func (a attrHandle) Attributes() []xdm.NodeHandle { return nil }
func (a attrHandle) Namespaces() []xdm.NodeHandle { return nil }

func (a attrHandle) Parent() (xdm.NodeHandle, bool) {
	return newHandle(a.owner, a.doc), true
}

func (a attrHandle) DocumentOrderKey() (docIndex int, preorder int64) {
	return a.doc.index, attrKey(a.doc.preorderOf(a.owner), a.index)
}

func (a attrHandle) Identity() uint64 {
	_, key := a.DocumentOrderKey()
	return identityKey(a.doc.index, key)
}

// nsHandle represents one in-scope namespace binding as a pseudo-node.
type nsHandle struct {
	owner  *xmlquery.Node
	doc    *document
	prefix string
	uri    string
	index  int
}

func (n nsHandle) Kind() xdmtype.NodeKind         { return xdmtype.NamespaceKind }
func (n nsHandle) Name() (uri, local string)      { return "", n.prefix }
func (n nsHandle) StringValue() string            { return n.uri }
func (n nsHandle) TypedValue() []xdm.Atomic       { return []xdm.Atomic{xdm.NewUntypedAtomic(n.uri)} }
func (n nsHandle) Children() []xdm.NodeHandle     { return nil }
func (n nsHandle) Attributes() []xdm.NodeHandle   { return nil }
func (n nsHandle) Namespaces() []xdm.NodeHandle   { return nil }

func (n nsHandle) Parent() (xdm.NodeHandle, bool) {
	return newHandle(n.owner, n.doc), true
}

func (n nsHandle) DocumentOrderKey() (docIndex int, preorder int64) {
	attrCount := len(n.owner.Attr) // upper bound on real attributes is fine, only relative order among namespaces/attrs of the same owner matters
	return n.doc.index, nsKey(n.doc.preorderOf(n.owner), attrCount, n.index)
}

func (n nsHandle) Identity() uint64 {
	_, key := n.DocumentOrderKey()
	return identityKey(n.doc.index, key)
}
