package tree_test

import (
	"testing"

	"github.com/arborxml/xpvm/internal/tree"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

func loadDoc(t *testing.T, xml, baseURI string) xdm.NodeHandle {
	t.Helper()
	ds := tree.NewDocumentSet()
	seq, err := ds.Load([]byte(xml), baseURI)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	item, ok := seq.First()
	if !ok {
		t.Fatal("Load returned an empty sequence")
	}
	return item.(xdm.Node).Handle
}

func rootElement(t *testing.T, doc xdm.NodeHandle) xdm.NodeHandle {
	t.Helper()
	children := doc.Children()
	if len(children) == 0 {
		t.Fatal("document has no children")
	}
	return children[0]
}

func TestLoadAssignsSyntheticBaseURIWhenEmpty(t *testing.T) {
	ds := tree.NewDocumentSet()
	if _, err := ds.Load([]byte(`<root/>`), ""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := ds.ByURI(""); ok {
		t.Fatal("expected the empty base URI itself not to resolve")
	}
}

func TestByURIRoundTrips(t *testing.T) {
	ds := tree.NewDocumentSet()
	loaded, err := ds.Load([]byte(`<root><child/></root>`), "urn:test:doc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := ds.ByURI("urn:test:doc")
	if !ok {
		t.Fatal("expected ByURI to find the document just loaded")
	}
	loadedNode, _ := loaded.First()
	gotNode, _ := got.First()
	if loadedNode.(xdm.Node).Handle.Identity() != gotNode.(xdm.Node).Handle.Identity() {
		t.Fatal("ByURI returned a handle with a different identity than Load")
	}
}

func TestByURIMissing(t *testing.T) {
	ds := tree.NewDocumentSet()
	if _, ok := ds.ByURI("urn:nope"); ok {
		t.Fatal("expected ByURI to report not-found for an unregistered URI")
	}
}

func TestDocumentKindAndRootElement(t *testing.T) {
	doc := loadDoc(t, `<root id="1">text</root>`, "urn:test:kind")
	if doc.Kind() != xdmtype.DocumentKind {
		t.Fatalf("got kind %v, want DocumentKind", doc.Kind())
	}
	root := rootElement(t, doc)
	if root.Kind() != xdmtype.ElementKind {
		t.Fatalf("got kind %v, want ElementKind", root.Kind())
	}
	_, local := root.Name()
	if local != "root" {
		t.Fatalf("got local name %q, want \"root\"", local)
	}
}

func TestStringValueConcatenatesDescendantText(t *testing.T) {
	doc := loadDoc(t, `<root>a<child>b</child>c</root>`, "urn:test:sv")
	root := rootElement(t, doc)
	if got := root.StringValue(); got != "abc" {
		t.Fatalf("got %q, want \"abc\"", got)
	}
}

func TestAttributesExcludeNamespaceDeclarations(t *testing.T) {
	doc := loadDoc(t, `<root xmlns:ns="urn:ns" ns:id="1" plain="2"/>`, "urn:test:attrs")
	root := rootElement(t, doc)
	attrs := root.Attributes()
	if len(attrs) != 2 {
		t.Fatalf("got %d attributes, want 2 (namespace declaration excluded): %#v", len(attrs), attrs)
	}
	for _, a := range attrs {
		if a.Kind() != xdmtype.AttributeKind {
			t.Fatalf("attribute has kind %v, want AttributeKind", a.Kind())
		}
	}
}

func TestNamespacesReportsDeclarations(t *testing.T) {
	doc := loadDoc(t, `<root xmlns:ns="urn:ns" ns:id="1"/>`, "urn:test:ns")
	root := rootElement(t, doc)
	nss := root.Namespaces()
	if len(nss) != 1 {
		t.Fatalf("got %d namespace nodes, want 1: %#v", len(nss), nss)
	}
	if nss[0].Kind() != xdmtype.NamespaceKind {
		t.Fatalf("got kind %v, want NamespaceKind", nss[0].Kind())
	}
	if nss[0].StringValue() != "urn:ns" {
		t.Fatalf("got uri %q, want \"urn:ns\"", nss[0].StringValue())
	}
}

func TestParentRoundTrips(t *testing.T) {
	doc := loadDoc(t, `<root><child/></root>`, "urn:test:parent")
	root := rootElement(t, doc)
	child := root.Children()[0]
	parent, ok := child.Parent()
	if !ok {
		t.Fatal("expected child to have a parent")
	}
	if parent.Identity() != root.Identity() {
		t.Fatal("child's parent identity doesn't match root's identity")
	}
	_, ok = doc.Parent()
	if ok {
		t.Fatal("expected the document node to have no parent")
	}
}

func TestDocumentOrderIsMonotonic(t *testing.T) {
	doc := loadDoc(t, `<root><a/><b/></root>`, "urn:test:order")
	root := rootElement(t, doc)
	children := root.Children()
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	_, aKey := children[0].DocumentOrderKey()
	_, bKey := children[1].DocumentOrderKey()
	if !(aKey < bKey) {
		t.Fatalf("expected a's order key (%d) to precede b's (%d)", aKey, bKey)
	}
}

func TestAttributeOrdersBeforeChildren(t *testing.T) {
	doc := loadDoc(t, `<root id="1"><child/></root>`, "urn:test:attr-order")
	root := rootElement(t, doc)
	attr := root.Attributes()[0]
	child := root.Children()[0]
	_, attrKey := attr.DocumentOrderKey()
	_, childKey := child.DocumentOrderKey()
	if !(attrKey < childKey) {
		t.Fatalf("expected attribute's order key (%d) to precede its sibling child's (%d)", attrKey, childKey)
	}
}

func TestIdentityIsStableAndDistinct(t *testing.T) {
	doc := loadDoc(t, `<root><a/><b/></root>`, "urn:test:identity")
	root := rootElement(t, doc)
	children := root.Children()
	if children[0].Identity() == children[1].Identity() {
		t.Fatal("expected distinct nodes to have distinct identities")
	}
	// Re-fetching root's children should report the same identities.
	again := root.Children()
	if children[0].Identity() != again[0].Identity() {
		t.Fatal("expected re-fetching children to preserve identity")
	}
}
