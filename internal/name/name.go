// Package name implements expanded names and namespace bindings (C1).
package name

import "fmt"

// Expanded is an immutable (namespace-URI, local-name) pair plus an optional
// non-identifying prefix. Equality ignores the prefix.
type Expanded struct {
	URI    string
	Local  string
	Prefix string // informational only; never compared
}

// New builds an expanded name with no prefix.
func New(uri, local string) Expanded {
	return Expanded{URI: uri, Local: local}
}

// WithPrefix returns a copy of n carrying the given informational prefix.
func (n Expanded) WithPrefix(prefix string) Expanded {
	n.Prefix = prefix
	return n
}

// Equal compares by (URI, Local) only, per spec: "Equality ignores prefix."
func (n Expanded) Equal(other Expanded) bool {
	return n.URI == other.URI && n.Local == other.Local
}

// String renders a Clark-notation-ish display form for diagnostics.
func (n Expanded) String() string {
	if n.URI == "" {
		return n.Local
	}
	if n.Prefix != "" {
		return fmt.Sprintf("%s:%s", n.Prefix, n.Local)
	}
	return fmt.Sprintf("{%s}%s", n.URI, n.Local)
}

// key is the interning key; prefix is deliberately excluded.
type key struct {
	uri   string
	local string
}

// Registry interns expanded names. Intern identity is not observable to
// callers (spec.md §3): it exists purely so repeated lookups of the same
// (URI, local) pair share storage instead of reallocating.
type Registry struct {
	table map[key]Expanded
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{table: make(map[key]Expanded, 64)}
}

// Intern returns the canonical Expanded for (uri, local), creating it with
// the given prefix on first sight. Later calls with a different prefix still
// return the first-seen value untouched (prefix is informational).
func (r *Registry) Intern(uri, local, prefix string) Expanded {
	k := key{uri, local}
	if n, ok := r.table[k]; ok {
		return n
	}
	n := Expanded{URI: uri, Local: local, Prefix: prefix}
	r.table[k] = n
	return n
}

// NamespaceContext is a chain of prefix -> URI bindings, supporting lexical
// nesting (a child context shadows its parent's bindings).
type NamespaceContext struct {
	parent   *NamespaceContext
	bindings map[string]string // prefix -> URI
}

// NewNamespaceContext creates a root context with the fixed XML namespaces.
func NewNamespaceContext() *NamespaceContext {
	return &NamespaceContext{
		bindings: map[string]string{
			"xml":  "http://www.w3.org/XML/1998/namespace",
			"xs":   "http://www.w3.org/2001/XMLSchema",
			"fn":   "http://www.w3.org/2005/xpath-functions",
			"math": "http://www.w3.org/2005/xpath-functions/math",
			"map":  "http://www.w3.org/2005/xpath-functions/map",
			"array": "http://www.w3.org/2005/xpath-functions/array",
			"xsl":  "http://www.w3.org/1999/XSL/Transform",
		},
	}
}

// Child returns a new nested context whose bindings shadow the parent's.
func (nc *NamespaceContext) Child() *NamespaceContext {
	return &NamespaceContext{parent: nc, bindings: make(map[string]string)}
}

// Bind adds or overrides a prefix -> URI binding in this (innermost) scope.
func (nc *NamespaceContext) Bind(prefix, uri string) {
	nc.bindings[prefix] = uri
}

// Resolve walks outward from this scope to find the URI bound to prefix.
func (nc *NamespaceContext) Resolve(prefix string) (string, bool) {
	for c := nc; c != nil; c = c.parent {
		if uri, ok := c.bindings[prefix]; ok {
			return uri, true
		}
	}
	return "", false
}
