package xslt

import (
	"bytes"
	"strconv"

	"github.com/antchfx/xmlquery"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/utils"
	"github.com/arborxml/xpvm/internal/xpath/parser"
)

// Loader fetches the bytes of an xsl:include/xsl:import target, given its
// href already resolved against the including module's base URI.
type Loader func(resolvedHref string) ([]byte, error)

// Parse reads a stylesheet document and builds its Stylesheet AST. Match
// patterns are parsed eagerly (via the same internal/xpath/parser grammar
// general XPath queries use) so a malformed pattern is reported at load
// time rather than the first time a node reaches that template; test and
// select expressions are kept as text and compiled when first evaluated.
// load resolves xsl:include/xsl:import hrefs; it may
// be nil if the stylesheet document is known to contain neither.
func Parse(source []byte, baseURI string, load Loader) (*Stylesheet, error) {
	return parseModule(source, baseURI, load, map[string]bool{})
}

func parseModule(source []byte, baseURI string, load Loader, visiting map[string]bool) (*Stylesheet, error) {
	root, err := xmlquery.Parse(bytes.NewReader(source))
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.XPST0003, err, "parsing stylesheet")
	}
	top := firstElement(root)
	if top == nil || !isXSL(top) || (top.Data != "stylesheet" && top.Data != "transform") {
		return nil, diagnostics.New(diagnostics.XPST0003, "stylesheet document has no xsl:stylesheet/xsl:transform root element")
	}

	ss := &Stylesheet{Version: attr(top, "version"), BaseURI: baseURI}
	for c := top.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode || !isXSL(c) {
			continue
		}
		switch c.Data {
		case "include", "import":
			included, err := loadModule(c, baseURI, load, visiting)
			if err != nil {
				return nil, err
			}
			existing := make(map[string]bool, len(ss.Templates))
			for _, t := range ss.Templates {
				if t.Name != "" {
					existing[t.Name] = true
				}
			}
			alias := utils.ExtractModuleName(utils.ResolveHref(baseURI, attr(c, "href")))
			for _, t := range included.Templates {
				if t.Name != "" && existing[t.Name] {
					t.Name = utils.QualifiedMemberName(alias, t.Name)
				}
			}
			ss.Templates = append(ss.Templates, included.Templates...)
		case "template":
			tmpl, err := parseTemplate(c)
			if err != nil {
				return nil, err
			}
			ss.Templates = append(ss.Templates, tmpl)
		}
	}
	return ss, nil
}

// loadModule resolves and parses one xsl:include/xsl:import target. The
// caller qualifies any returned named template that collides with a name
// already declared in a sibling module (XSLT 3.0 §3.7.3's import-precedence
// rules go further than this; a straight rename is this minimal
// implementation's substitute).
func loadModule(n *xmlquery.Node, baseURI string, load Loader, visiting map[string]bool) (*Stylesheet, error) {
	href := attr(n, "href")
	if href == "" {
		return nil, diagnostics.New(diagnostics.XPST0003, "xsl:%s has no href", n.Data)
	}
	if load == nil {
		return nil, diagnostics.New(diagnostics.XPST0003, "xsl:%s href %q but no module loader configured", n.Data, href)
	}
	resolved := utils.ResolveHref(baseURI, href)
	if visiting[resolved] {
		return nil, diagnostics.New(diagnostics.XPST0003, "circular xsl:include/xsl:import on %q", resolved)
	}
	visiting[resolved] = true
	defer delete(visiting, resolved)

	data, err := load(resolved)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.XPST0003, err, "loading xsl:%s href %q", n.Data, href)
	}
	return parseModule(data, resolved, load, visiting)
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func isXSL(n *xmlquery.Node) bool {
	return n.NamespaceURI == Namespace || n.Prefix == "xsl"
}

func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

func parseTemplate(n *xmlquery.Node) (*Template, error) {
	t := &Template{Match: attr(n, "match"), Name: attr(n, "name")}
	if t.Match != "" {
		e, err := parser.ParseNamed(t.Match, "")
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.XPST0003, err, "parsing match pattern %q", t.Match)
		}
		t.MatchAST = e
	}
	if p := attr(n, "priority"); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.XPST0003, err, "parsing template priority %q", p)
		}
		t.Priority, t.HasPriority = v, true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && isXSL(c) && c.Data == "param" {
			param := Param{Name: attr(c, "name"), Select: attr(c, "select")}
			if param.Select == "" {
				body, err := parseInstructions(c)
				if err != nil {
					return nil, err
				}
				param.Default = body
			}
			t.Params = append(t.Params, param)
			continue
		}
		break
	}

	body, err := parseInstructions(n)
	if err != nil {
		return nil, err
	}
	t.Body = body
	return t, nil
}

// parseInstructions builds the instruction list for n's children, skipping
// the xsl:param children parseTemplate already consumed.
func parseInstructions(n *xmlquery.Node) ([]Instruction, error) {
	var out []Instruction
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if c.Data != "" {
				out = append(out, LiteralText{Value: c.Data})
			}
		case xmlquery.ElementNode:
			if isXSL(c) && c.Data == "param" && isXSL(n) && n.Data == "template" {
				continue
			}
			instr, err := parseElement(c)
			if err != nil {
				return nil, err
			}
			if instr != nil {
				out = append(out, instr)
			}
		}
	}
	return out, nil
}

func parseElement(n *xmlquery.Node) (Instruction, error) {
	if !isXSL(n) {
		return parseLiteralElement(n)
	}
	switch n.Data {
	case "value-of":
		return ValueOf{Select: attr(n, "select"), SeparatorText: attr(n, "separator")}, nil
	case "text":
		return Text{Value: n.InnerText()}, nil
	case "apply-templates":
		return ApplyTemplates{Select: attr(n, "select")}, nil
	case "call-template":
		return CallTemplate{Name: attr(n, "name")}, nil
	case "sequence":
		return Sequence{Select: attr(n, "select")}, nil
	case "for-each":
		body, err := parseInstructions(n)
		if err != nil {
			return nil, err
		}
		return &ForEach{Select: attr(n, "select"), Body: body}, nil
	case "if":
		body, err := parseInstructions(n)
		if err != nil {
			return nil, err
		}
		return &If{Test: attr(n, "test"), Body: body}, nil
	case "choose":
		return parseChoose(n)
	case "variable", "param":
		v := &Variable{Name: attr(n, "name"), Select: attr(n, "select")}
		if v.Select == "" {
			body, err := parseInstructions(n)
			if err != nil {
				return nil, err
			}
			v.Body = body
		}
		return v, nil
	default:
		return nil, diagnostics.New(diagnostics.XPST0003, "unsupported xsl: instruction %q", n.Data)
	}
}

func parseChoose(n *xmlquery.Node) (Instruction, error) {
	c := &Choose{}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode || !isXSL(child) {
			continue
		}
		switch child.Data {
		case "when":
			body, err := parseInstructions(child)
			if err != nil {
				return nil, err
			}
			c.Whens = append(c.Whens, &When{Test: attr(child, "test"), Body: body})
		case "otherwise":
			body, err := parseInstructions(child)
			if err != nil {
				return nil, err
			}
			c.Otherwise = body
		}
	}
	return c, nil
}

func parseLiteralElement(n *xmlquery.Node) (Instruction, error) {
	le := &LiteralElement{Name: qualifiedName(n)}
	for _, a := range n.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		le.Attrs = append(le.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}
	body, err := parseInstructions(n)
	if err != nil {
		return nil, err
	}
	le.Body = body
	return le, nil
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix == "" {
		return n.Data
	}
	return n.Prefix + ":" + n.Data
}
