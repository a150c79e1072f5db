// Package tree adapts antchfx/xmlquery's mutable node tree to the
// xdm.NodeHandle / runtimectx.DocumentSet surfaces the VM and standard
// library consume, so internal/xdm and internal/vm never import xmlquery
// directly.
package tree

import (
	"bytes"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// document owns one parsed xmlquery tree plus the bookkeeping needed to
// hand out stable identities and a total document order over it: xmlquery
// node pointers are stable for the lifetime of a parse, so identity is
// (document index, a preorder-derived key) rather than anything recomputed
// per query.
type document struct {
	index   int
	root    *xmlquery.Node
	baseURI string

	once     sync.Once
	preorder map[*xmlquery.Node]int64
}

// preorderOf assigns every element/text/comment/declaration node of the
// document a key that increases strictly in document order, shifted left
// to leave room for an owning element's attribute/namespace pseudo-nodes
// to sort immediately after it and before its first real child.
func (d *document) preorderOf(n *xmlquery.Node) int64 {
	d.once.Do(d.buildPreorder)
	return d.preorder[n]
}

const preorderSubBits = 20

func (d *document) buildPreorder() {
	d.preorder = make(map[*xmlquery.Node]int64)
	var counter int64
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		d.preorder[n] = counter << preorderSubBits
		counter++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
}

// attrKey/nsKey derive an attribute/namespace pseudo-node's order key from
// its owning element's key: sub-index 0 is the element itself, so any
// positive sub-index sorts after the element and (since a real child's key
// uses the next preorder counter value, landing in a different top range
// entirely) before every one of its children.
func attrKey(ownerKey int64, i int) int64 { return ownerKey | int64(i+1) }
func nsKey(ownerKey int64, attrCount, i int) int64 { return ownerKey | int64(attrCount+i+1) }

// DocumentSet owns every document loaded in one evaluation (the initial
// context document and any document fn:doc looks up by URI), assigning each a
// document index used for cross-document order comparisons, and
// implements runtimectx.DocumentSet.
type DocumentSet struct {
	mu    sync.Mutex
	docs  []*document
	byURI map[string]int
}

// NewDocumentSet returns an empty set.
func NewDocumentSet() *DocumentSet {
	return &DocumentSet{byURI: make(map[string]int)}
}

// Load parses source and registers it under baseURI (a synthetic
// urn:uuid: URI is minted when the caller has none, so every loaded
// document is still addressable by ByURI).
func (ds *DocumentSet) Load(source []byte, baseURI string) (xdm.Sequence, error) {
	root, err := xmlquery.Parse(bytes.NewReader(source))
	if err != nil {
		return xdm.Empty, diagnostics.Wrap(diagnostics.FODC0002, err, "parsing document")
	}
	if baseURI == "" {
		baseURI = "urn:uuid:" + uuid.NewString()
	}

	ds.mu.Lock()
	idx := len(ds.docs)
	d := &document{index: idx, root: root, baseURI: baseURI}
	ds.docs = append(ds.docs, d)
	ds.byURI[baseURI] = idx
	ds.mu.Unlock()

	return xdm.Single(xdm.NewNode(newHandle(root, d))), nil
}

// ByURI returns a previously loaded document's root node by base URI.
func (ds *DocumentSet) ByURI(uri string) (xdm.Sequence, bool) {
	ds.mu.Lock()
	idx, ok := ds.byURI[uri]
	ds.mu.Unlock()
	if !ok {
		return xdm.Empty, false
	}
	d := ds.docs[idx]
	return xdm.Single(xdm.NewNode(newHandle(d.root, d))), true
}
