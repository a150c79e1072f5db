// Package runtimectx implements the static and dynamic evaluation contexts
// the VM (C7) consults: in-scope namespaces and function signatures on the
// static side, and context item/position/size, variable bindings, the
// document set, collations, and the implicit timezone/current date-time on
// the dynamic side (spec.md §4.3).
package runtimectx

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/arborxml/xpvm/internal/diagnostics"
)

// CollationProvider resolves a collation URI to a comparison function over
// strings. The default (Unicode codepoint) collation never fails to
// resolve; named collations are resolved through golang.org/x/text/collate.
type CollationProvider interface {
	// Compare returns <0, 0, >0 per strings.Compare's convention, using the
	// collation named by uri. An unresolvable uri is FOCH0002.
	Compare(uri, a, b string) (int, error)
}

// UnicodeCodepointURI is the default collation's well-known identifier.
const UnicodeCodepointURI = "http://www.w3.org/2005/xpath-functions/collation/codepoint"

// textCollationProvider is the production CollationProvider: codepoint
// comparison by default, plus any BCP-47-tagged collation resolved via
// golang.org/x/text/collate on first use and cached.
type textCollationProvider struct {
	cache map[string]*collate.Collator
}

// NewCollationProvider returns the default provider, backed by
// golang.org/x/text/collate for every URI beyond the built-in codepoint
// collation.
func NewCollationProvider() CollationProvider {
	return &textCollationProvider{cache: make(map[string]*collate.Collator)}
}

func (p *textCollationProvider) Compare(uri, a, b string) (int, error) {
	if uri == "" || uri == UnicodeCodepointURI {
		return strings.Compare(a, b), nil
	}
	col, ok := p.cache[uri]
	if !ok {
		tag, err := languageTagFromCollationURI(uri)
		if err != nil {
			return 0, err
		}
		col = collate.New(tag)
		p.cache[uri] = col
	}
	return col.CompareString(a, b), nil
}

// languageTagFromCollationURI accepts either a bare BCP-47 tag
// ("de", "fr-CA") or a URI ending in one ("...collation/de") as the
// collation identifier, since spec.md leaves the URI scheme
// implementation-defined beyond the mandatory codepoint collation.
func languageTagFromCollationURI(uri string) (language.Tag, error) {
	tagStr := uri
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		tagStr = uri[i+1:]
	}
	tag, err := language.Parse(tagStr)
	if err != nil {
		return language.Und, diagnostics.New(diagnostics.FOCH0002, "unsupported collation %q", uri)
	}
	return tag, nil
}
