package xslt_test

import (
	"errors"
	"testing"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xslt"
)

const simpleStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="root">
    <out><xsl:value-of select="@id"/></out>
  </xsl:template>
</xsl:stylesheet>`

func parseOrFail(t *testing.T, source string, load xslt.Loader) *xslt.Stylesheet {
	t.Helper()
	ss, err := xslt.Parse([]byte(source), "", load)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ss
}

func expectParseError(t *testing.T, source string, load xslt.Loader, code diagnostics.Code) {
	t.Helper()
	_, err := xslt.Parse([]byte(source), "", load)
	if err == nil {
		t.Fatalf("expected error %s, got none", code)
	}
	var de *diagnostics.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected a *diagnostics.Error, got %T: %v", err, err)
	}
	if de.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, de.Code, err)
	}
}

func TestParseTemplateMatchAndBody(t *testing.T) {
	ss := parseOrFail(t, simpleStylesheet, nil)
	if len(ss.Templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(ss.Templates))
	}
	tmpl := ss.Templates[0]
	if tmpl.Match != "root" {
		t.Fatalf("expected match %q, got %q", "root", tmpl.Match)
	}
	if tmpl.MatchAST == nil {
		t.Fatal("expected MatchAST to be populated")
	}
	if len(tmpl.Body) != 1 {
		t.Fatalf("expected 1 body instruction (the literal <out>), got %d", len(tmpl.Body))
	}
	le, ok := tmpl.Body[0].(*xslt.LiteralElement)
	if !ok {
		t.Fatalf("expected *LiteralElement, got %T", tmpl.Body[0])
	}
	if le.Name != "out" {
		t.Fatalf("expected element name %q, got %q", "out", le.Name)
	}
	if len(le.Body) != 1 {
		t.Fatalf("expected 1 child instruction, got %d", len(le.Body))
	}
	vo, ok := le.Body[0].(xslt.ValueOf)
	if !ok {
		t.Fatalf("expected ValueOf, got %T", le.Body[0])
	}
	if vo.Select != "@id" {
		t.Fatalf("expected select %q, got %q", "@id", vo.Select)
	}
}

func TestParseNamedTemplateWithParams(t *testing.T) {
	source := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="greet">
    <xsl:param name="who" select="'world'"/>
    <xsl:text>hello </xsl:text>
    <xsl:value-of select="$who"/>
  </xsl:template>
</xsl:stylesheet>`
	ss := parseOrFail(t, source, nil)
	tmpl := ss.Templates[0]
	if tmpl.Name != "greet" {
		t.Fatalf("expected name %q, got %q", "greet", tmpl.Name)
	}
	if len(tmpl.Params) != 1 || tmpl.Params[0].Name != "who" || tmpl.Params[0].Select != "'world'" {
		t.Fatalf("unexpected params: %+v", tmpl.Params)
	}
	if len(tmpl.Body) != 2 {
		t.Fatalf("expected 2 body instructions (text + value-of), got %d: %+v", len(tmpl.Body), tmpl.Body)
	}
}

func TestParseChooseAndForEach(t *testing.T) {
	source := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="/">
    <xsl:for-each select="item">
      <xsl:choose>
        <xsl:when test="@big"><big/></xsl:when>
        <xsl:otherwise><small/></xsl:otherwise>
      </xsl:choose>
    </xsl:for-each>
  </xsl:template>
</xsl:stylesheet>`
	ss := parseOrFail(t, source, nil)
	fe, ok := ss.Templates[0].Body[0].(*xslt.ForEach)
	if !ok {
		t.Fatalf("expected *ForEach, got %T", ss.Templates[0].Body[0])
	}
	if fe.Select != "item" {
		t.Fatalf("expected select %q, got %q", "item", fe.Select)
	}
	choose, ok := fe.Body[0].(*xslt.Choose)
	if !ok {
		t.Fatalf("expected *Choose, got %T", fe.Body[0])
	}
	if len(choose.Whens) != 1 || choose.Whens[0].Test != "@big" {
		t.Fatalf("unexpected whens: %+v", choose.Whens)
	}
	if len(choose.Otherwise) != 1 {
		t.Fatalf("expected 1 otherwise instruction, got %d", len(choose.Otherwise))
	}
}

func TestParseRejectsMissingRoot(t *testing.T) {
	expectParseError(t, `<not-a-stylesheet/>`, nil, diagnostics.XPST0003)
}

func TestParseRejectsBadMatchPattern(t *testing.T) {
	source := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="((("><out/></xsl:template>
</xsl:stylesheet>`
	expectParseError(t, source, nil, diagnostics.XPST0003)
}

func TestParseRejectsUnsupportedInstruction(t *testing.T) {
	source := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="/"><xsl:copy-of select="."/></xsl:template>
</xsl:stylesheet>`
	expectParseError(t, source, nil, diagnostics.XPST0003)
}

func TestParseIncludeMergesTemplates(t *testing.T) {
	included := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="shared"><shared/></xsl:template>
</xsl:stylesheet>`
	main := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:include href="lib.xsl"/>
  <xsl:template match="/"><xsl:call-template name="shared"/></xsl:template>
</xsl:stylesheet>`

	load := func(href string) ([]byte, error) {
		if href != "lib.xsl" {
			t.Fatalf("unexpected href %q", href)
		}
		return []byte(included), nil
	}
	ss := parseOrFail(t, main, load)
	if len(ss.Templates) != 2 {
		t.Fatalf("expected 2 templates after include, got %d", len(ss.Templates))
	}
	var names []string
	for _, tmpl := range ss.Templates {
		if tmpl.Name != "" {
			names = append(names, tmpl.Name)
		}
	}
	if len(names) != 1 || names[0] != "shared" {
		t.Fatalf("expected included template to keep its name %q, got %v", "shared", names)
	}
}

func TestParseIncludeRenamesOnCollision(t *testing.T) {
	included := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="dup"><from-lib/></xsl:template>
</xsl:stylesheet>`
	main := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template name="dup"><from-main/></xsl:template>
  <xsl:include href="lib.xsl"/>
</xsl:stylesheet>`

	load := func(href string) ([]byte, error) { return []byte(included), nil }
	ss := parseOrFail(t, main, load)
	if len(ss.Templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(ss.Templates))
	}
	if ss.Templates[0].Name != "dup" {
		t.Fatalf("expected the including module's own template to keep its name, got %q", ss.Templates[0].Name)
	}
	if ss.Templates[1].Name == "dup" {
		t.Fatal("expected the included, colliding template to be renamed")
	}
}

func TestParseIncludeWithoutLoaderFails(t *testing.T) {
	main := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:include href="lib.xsl"/>
</xsl:stylesheet>`
	expectParseError(t, main, nil, diagnostics.XPST0003)
}

func TestParseIncludeCycleFails(t *testing.T) {
	var load xslt.Loader
	load = func(href string) ([]byte, error) {
		return []byte(`<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:include href="` + href + `"/>
</xsl:stylesheet>`), nil
	}
	main := `<xsl:stylesheet version="3.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:include href="self.xsl"/>
</xsl:stylesheet>`
	expectParseError(t, main, load, diagnostics.XPST0003)
}
