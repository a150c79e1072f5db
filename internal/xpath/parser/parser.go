// Package parser implements a recursive-descent, precedence-climbing parser
// for the XPath 3.1 expression grammar, consuming internal/xpath/lexer's
// token stream and producing internal/xpath/ast nodes. It follows the
// standard grammar's precedence chain directly rather than a generated
// table: Expr -> ExprSingle -> OrExpr -> AndExpr -> ComparisonExpr ->
// StringConcatExpr -> RangeExpr -> AdditiveExpr -> MultiplicativeExpr ->
// UnionExpr -> IntersectExceptExpr -> InstanceofExpr -> TreatExpr ->
// CastableExpr -> CastExpr -> UnaryExpr -> ValueExpr (SimpleMapExpr) ->
// PathExpr -> StepExpr -> PostfixExpr -> PrimaryExpr.
package parser

import (
	"strconv"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xpath/ast"
	"github.com/arborxml/xpvm/internal/xpath/lexer"
	"github.com/arborxml/xpvm/internal/xpath/token"
)

type Parser struct {
	lx       *lexer.Lexer
	file     string
	tok      token.Token
	peekTok  token.Token
	havePeek bool
}

func New(src, file string) *Parser {
	p := &Parser{lx: lexer.New(src), file: file}
	p.tok = p.lx.Next()
	return p
}

// Parse scans and parses a complete XPath expression, requiring the token
// stream to be fully consumed (no trailing garbage).
func Parse(src string) (ast.Expr, error) {
	return ParseNamed(src, "")
}

func ParseNamed(src, file string) (ast.Expr, error) {
	p := New(src, file)
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.tok.Is(token.EOF) {
		return nil, p.errorf("unexpected trailing input %q", p.tok.Text)
	}
	return e, nil
}

func (p *Parser) advance() {
	if p.havePeek {
		p.tok = p.peekTok
		p.havePeek = false
		return
	}
	p.tok = p.lx.Next()
}

func (p *Parser) peek() token.Token {
	if !p.havePeek {
		p.peekTok = p.lx.Next()
		p.havePeek = true
	}
	return p.peekTok
}

func (p *Parser) span() diagnostics.Span {
	return diagnostics.Span{File: p.file, Line: p.tok.Line, Col: p.tok.Col, EndLine: p.tok.Line, EndCol: p.tok.Col}
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return diagnostics.At(diagnostics.XPST0003, p.span(), format, args...)
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, error) {
	if !p.tok.Is(k) {
		return token.Token{}, p.errorf("expected %s, found %q", what, p.tok.Text)
	}
	t := p.tok
	p.advance()
	return t, nil
}

// ---- Expr : ExprSingle ("," ExprSingle)* ----

func (p *Parser) parseExpr() (ast.Expr, error) {
	start := p.span()
	first, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	if !p.tok.Is(token.Comma) {
		return first, nil
	}
	items := []ast.Expr{first}
	for p.tok.Is(token.Comma) {
		p.advance()
		e, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return &ast.Seq{Base: ast.Base{SpanVal: start}, Items: items}, nil
}

// ---- ExprSingle : ForExpr | LetExpr | QuantifiedExpr | IfExpr | OrExpr ----

func (p *Parser) parseExprSingle() (ast.Expr, error) {
	switch {
	case p.tok.IsName("for") && p.peek().Is(token.Dollar):
		return p.parseForExpr()
	case p.tok.IsName("let") && p.peek().Is(token.Dollar):
		return p.parseLetExpr()
	case (p.tok.IsName("some") || p.tok.IsName("every")) && p.peek().Is(token.Dollar):
		return p.parseQuantifiedExpr()
	case p.tok.IsName("if") && p.peek().Is(token.LParen):
		return p.parseIfExpr()
	default:
		return p.parseOrExpr()
	}
}

func (p *Parser) parseForBindings(keyword string) ([]ast.ForBinding, error) {
	var bindings []ast.ForBinding
	for {
		if _, err := p.expect(token.Dollar, "$"); err != nil {
			return nil, err
		}
		name, err := p.expect(token.Name, "variable name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Name /* "in" */, "'in'"); err != nil {
			return nil, err
		}
		src, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ast.ForBinding{Var: name.Text, Source: src})
		if !p.tok.Is(token.Comma) {
			break
		}
		p.advance()
	}
	return bindings, nil
}

func (p *Parser) parseForExpr() (ast.Expr, error) {
	start := p.span()
	p.advance() // "for"
	bindings, err := p.parseForBindings("in")
	if err != nil {
		return nil, err
	}
	if !p.tok.IsName("return") {
		return nil, p.errorf("expected 'return', found %q", p.tok.Text)
	}
	p.advance()
	body, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	return &ast.ForExpr{Base: ast.Base{SpanVal: start}, Bindings: bindings, Return: body}, nil
}

func (p *Parser) parseLetExpr() (ast.Expr, error) {
	start := p.span()
	p.advance() // "let"
	var bindings []ast.LetBinding
	for {
		if _, err := p.expect(token.Dollar, "$"); err != nil {
			return nil, err
		}
		name, err := p.expect(token.Name, "variable name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Assign, "':='"); err != nil {
			return nil, err
		}
		val, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ast.LetBinding{Var: name.Text, Value: val})
		if p.tok.Is(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if !p.tok.IsName("return") {
		return nil, p.errorf("expected 'return', found %q", p.tok.Text)
	}
	p.advance()
	body, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	return &ast.LetExpr{Base: ast.Base{SpanVal: start}, Bindings: bindings, Return: body}, nil
}

func (p *Parser) parseQuantifiedExpr() (ast.Expr, error) {
	start := p.span()
	every := p.tok.IsName("every")
	p.advance()
	bindings, err := p.parseForBindings("in")
	if err != nil {
		return nil, err
	}
	if !p.tok.IsName("satisfies") {
		return nil, p.errorf("expected 'satisfies', found %q", p.tok.Text)
	}
	p.advance()
	test, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	return &ast.QuantifiedExpr{Base: ast.Base{SpanVal: start}, Every: every, Bindings: bindings, Test: test}, nil
}

func (p *Parser) parseIfExpr() (ast.Expr, error) {
	start := p.span()
	p.advance() // "if"
	if _, err := p.expect(token.LParen, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen, ")"); err != nil {
		return nil, err
	}
	if !p.tok.IsName("then") {
		return nil, p.errorf("expected 'then', found %q", p.tok.Text)
	}
	p.advance()
	thenE, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	if !p.tok.IsName("else") {
		return nil, p.errorf("expected 'else', found %q", p.tok.Text)
	}
	p.advance()
	elseE, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	return &ast.IfExpr{Base: ast.Base{SpanVal: start}, Cond: cond, Then: thenE, Else: elseE}, nil
}

// ---- binary precedence levels ----

func (p *Parser) parseOrExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.IsName("or") {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseComparisonExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.IsName("and") {
		p.advance()
		right, err := p.parseComparisonExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

var valueCompareOps = map[string]bool{"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true}

func (p *Parser) generalCompareOp() (string, bool) {
	switch p.tok.Kind {
	case token.Eq:
		return "=", true
	case token.Ne:
		return "!=", true
	case token.Lt:
		return "<", true
	case token.Le:
		return "<=", true
	case token.Gt:
		return ">", true
	case token.Ge:
		return ">=", true
	}
	return "", false
}

func (p *Parser) parseComparisonExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseStringConcatExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == token.Name && valueCompareOps[p.tok.Text] {
		op := p.tok.Text
		p.advance()
		right, err := p.parseStringConcatExpr()
		if err != nil {
			return nil, err
		}
		return &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: op, Left: left, Right: right}, nil
	}
	if p.tok.IsName("is") {
		p.advance()
		right, err := p.parseStringConcatExpr()
		if err != nil {
			return nil, err
		}
		return &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "is", Left: left, Right: right}, nil
	}
	if p.tok.Is(token.LtLt) || p.tok.Is(token.GtGt) {
		op := p.tok.Text
		p.advance()
		right, err := p.parseStringConcatExpr()
		if err != nil {
			return nil, err
		}
		return &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: op, Left: left, Right: right}, nil
	}
	if op, ok := p.generalCompareOp(); ok {
		p.advance()
		right, err := p.parseStringConcatExpr()
		if err != nil {
			return nil, err
		}
		return &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseStringConcatExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseRangeExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Is(token.Bar2) {
		p.advance()
		right, err := p.parseRangeExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRangeExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseAdditiveExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.IsName("to") {
		p.advance()
		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}
		return &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "to", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditiveExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseMultiplicativeExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Is(token.Plus) || p.tok.Is(token.Minus) {
		op := p.tok.Text
		p.advance()
		right, err := p.parseMultiplicativeExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicativeExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseUnionExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.tok.Is(token.Star):
			op = "*"
		case p.tok.IsName("div"):
			op = "div"
		case p.tok.IsName("idiv"):
			op = "idiv"
		case p.tok.IsName("mod"):
			op = "mod"
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnionExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnionExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseIntersectExceptExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Is(token.Pipe) || p.tok.IsName("union") {
		p.advance()
		right, err := p.parseIntersectExceptExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "union", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseIntersectExceptExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parseInstanceofExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.IsName("intersect") || p.tok.IsName("except") {
		op := p.tok.Text
		p.advance()
		right, err := p.parseInstanceofExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseInstanceofExpr() (ast.Expr, error) {
	start := p.span()
	operand, err := p.parseTreatExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.IsName("instance") {
		p.advance()
		if !p.tok.IsName("of") {
			return nil, p.errorf("expected 'of' after 'instance'")
		}
		p.advance()
		target, err := p.parseSequenceType()
		if err != nil {
			return nil, err
		}
		return &ast.ConversionExpr{Base: ast.Base{SpanVal: start}, Kind: "instanceof", Operand: operand, Target: target}, nil
	}
	return operand, nil
}

func (p *Parser) parseTreatExpr() (ast.Expr, error) {
	start := p.span()
	operand, err := p.parseCastableExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.IsName("treat") {
		p.advance()
		if !p.tok.IsName("as") {
			return nil, p.errorf("expected 'as' after 'treat'")
		}
		p.advance()
		target, err := p.parseSequenceType()
		if err != nil {
			return nil, err
		}
		return &ast.ConversionExpr{Base: ast.Base{SpanVal: start}, Kind: "treat", Operand: operand, Target: target}, nil
	}
	return operand, nil
}

func (p *Parser) parseCastableExpr() (ast.Expr, error) {
	start := p.span()
	operand, err := p.parseCastExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.IsName("castable") {
		p.advance()
		if !p.tok.IsName("as") {
			return nil, p.errorf("expected 'as' after 'castable'")
		}
		p.advance()
		target, err := p.parseSingleType()
		if err != nil {
			return nil, err
		}
		return &ast.ConversionExpr{Base: ast.Base{SpanVal: start}, Kind: "castable", Operand: operand, Target: target}, nil
	}
	return operand, nil
}

func (p *Parser) parseCastExpr() (ast.Expr, error) {
	start := p.span()
	operand, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.IsName("cast") {
		p.advance()
		if !p.tok.IsName("as") {
			return nil, p.errorf("expected 'as' after 'cast'")
		}
		p.advance()
		target, err := p.parseSingleType()
		if err != nil {
			return nil, err
		}
		return &ast.ConversionExpr{Base: ast.Base{SpanVal: start}, Kind: "cast", Operand: operand, Target: target}, nil
	}
	return operand, nil
}

// parseSingleType parses `AtomicType "?"?` for cast/castable targets.
func (p *Parser) parseSingleType() (ast.SequenceType, error) {
	name, err := p.expect(token.Name, "type name")
	if err != nil {
		return ast.SequenceType{}, err
	}
	st := ast.SequenceType{Atomic: name.Text}
	if p.tok.Is(token.Question) {
		p.advance()
		st.Occurrence = '?'
	}
	return st, nil
}

// parseSequenceType parses `("empty-sequence" "(" ")") | (ItemType OccurrenceIndicator?)`.
func (p *Parser) parseSequenceType() (ast.SequenceType, error) {
	if p.tok.IsName("empty-sequence") && p.peek().Is(token.LParen) {
		p.advance()
		p.advance()
		if _, err := p.expect(token.RParen, ")"); err != nil {
			return ast.SequenceType{}, err
		}
		return ast.SequenceType{EmptySequence: true}, nil
	}
	st, err := p.parseItemType()
	if err != nil {
		return ast.SequenceType{}, err
	}
	switch {
	case p.tok.Is(token.Question):
		p.advance()
		st.Occurrence = '?'
	case p.tok.Is(token.Star):
		p.advance()
		st.Occurrence = '*'
	case p.tok.Is(token.Plus):
		p.advance()
		st.Occurrence = '+'
	}
	return st, nil
}

var kindTestNames = map[string]bool{
	"element": true, "attribute": true, "text": true, "comment": true,
	"processing-instruction": true, "document-node": true, "node": true,
	"namespace-node": true, "item": true,
}

// parseItemType parses an ItemType: a kind test, `item()`, or an atomic type
// QName.
func (p *Parser) parseItemType() (ast.SequenceType, error) {
	if p.tok.Kind == token.Name && kindTestNames[p.tok.Text] && p.peek().Is(token.LParen) {
		if p.tok.Text == "item" {
			p.advance()
			p.advance()
			if _, err := p.expect(token.RParen, ")"); err != nil {
				return ast.SequenceType{}, err
			}
			return ast.SequenceType{Item: true}, nil
		}
		test, err := p.parseKindTest()
		if err != nil {
			return ast.SequenceType{}, err
		}
		return ast.SequenceType{Node: &test}, nil
	}
	name, err := p.expect(token.Name, "type name")
	if err != nil {
		return ast.SequenceType{}, err
	}
	return ast.SequenceType{Atomic: name.Text}, nil
}

func (p *Parser) parseUnaryExpr() (ast.Expr, error) {
	start := p.span()
	if p.tok.Is(token.Minus) || p.tok.Is(token.Plus) {
		op := p.tok.Text
		p.advance()
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: ast.Base{SpanVal: start}, Op: op, Operand: operand}, nil
	}
	return p.parseSimpleMapExpr()
}

func (p *Parser) parseSimpleMapExpr() (ast.Expr, error) {
	start := p.span()
	left, err := p.parsePathExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Is(token.Bang) {
		p.advance()
		right, err := p.parsePathExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinExpr{Base: ast.Base{SpanVal: start}, Op: "!", Left: left, Right: right}
	}
	return left, nil
}

// ---- PathExpr : ("/" RelativePathExpr?) | ("//" RelativePathExpr) | RelativePathExpr ----

func (p *Parser) parsePathExpr() (ast.Expr, error) {
	start := p.span()
	if p.tok.Is(token.Slash) {
		p.advance()
		if p.atStepStart() {
			steps, err := p.parseRelativeSteps()
			if err != nil {
				return nil, err
			}
			return &ast.PathExpr{Base: ast.Base{SpanVal: start}, Absolute: true, Steps: steps}, nil
		}
		return &ast.PathExpr{Base: ast.Base{SpanVal: start}, Absolute: true}, nil
	}
	if p.tok.Is(token.SlashSlash) {
		p.advance()
		steps, err := p.parseRelativeSteps()
		if err != nil {
			return nil, err
		}
		return &ast.PathExpr{Base: ast.Base{SpanVal: start}, Absolute: true, LeadingDescOrSelf: true, Steps: steps}, nil
	}
	steps, err := p.parseRelativeSteps()
	if err != nil {
		return nil, err
	}
	if len(steps) == 1 && steps[0].Axis == "" {
		// A bare PostfixExpr with no axis step syntax: return the wrapped
		// primary expression directly so filters/calls aren't forced
		// through PathExpr/Step plumbing.
		return steps[0].Predicates[0], nil
	}
	return &ast.PathExpr{Base: ast.Base{SpanVal: start}, Steps: steps}, nil
}

// atStepStart reports whether the upcoming tokens can begin a RelativePathExpr,
// distinguishing a bare leading "/" (root) from "/" followed by steps.
func (p *Parser) atStepStart() bool {
	switch p.tok.Kind {
	case token.EOF, token.RParen, token.RBrack, token.RBrace, token.Comma:
		return false
	}
	if p.tok.Kind == token.Name {
		switch p.tok.Text {
		case "return", "then", "else", "satisfies", "in", "to", "and", "or",
			"div", "idiv", "mod", "union", "intersect", "except", "instance",
			"of", "treat", "as", "castable", "cast", "eq", "ne", "lt", "le",
			"gt", "ge":
			return false
		}
	}
	return true
}

func (p *Parser) parseRelativeSteps() ([]ast.Step, error) {
	first, err := p.parseStepExpr()
	if err != nil {
		return nil, err
	}
	steps := []ast.Step{first}
	for {
		if p.tok.Is(token.Slash) {
			p.advance()
			s, err := p.parseStepExpr()
			if err != nil {
				return nil, err
			}
			steps = append(steps, s)
			continue
		}
		if p.tok.Is(token.SlashSlash) {
			p.advance()
			steps = append(steps, ast.Step{Axis: "descendant-or-self", Test: ast.NodeTest{Kind: "node"}})
			s, err := p.parseStepExpr()
			if err != nil {
				return nil, err
			}
			steps = append(steps, s)
			continue
		}
		break
	}
	return steps, nil
}

var axisNames = map[string]string{
	"child": "child", "descendant": "descendant", "descendant-or-self": "descendant-or-self",
	"parent": "parent", "ancestor": "ancestor", "ancestor-or-self": "ancestor-or-self",
	"following": "following", "following-sibling": "following-sibling",
	"preceding": "preceding", "preceding-sibling": "preceding-sibling",
	"attribute": "attribute", "self": "self", "namespace": "namespace",
}

// parseStepExpr parses an AxisStep (ForwardStep/ReverseStep with a node
// test, or the "." / ".." abbreviations) or, failing that, a PostfixExpr
// wrapped in a Step{Axis: "", Predicates: [primary]} marker so the caller
// can unwrap a lone PostfixExpr back into a plain Expr.
func (p *Parser) parseStepExpr() (ast.Step, error) {
	start := p.span()
	if p.tok.Kind == token.Name && axisNames[p.tok.Text] != "" && p.peek().Is(token.ColonColon) {
		axis := axisNames[p.tok.Text]
		p.advance()
		p.advance()
		test, err := p.parseNodeTest()
		if err != nil {
			return ast.Step{}, err
		}
		preds, err := p.parsePredicates()
		if err != nil {
			return ast.Step{}, err
		}
		return ast.Step{Base: ast.Base{SpanVal: start}, Axis: axis, Test: test, Predicates: preds}, nil
	}
	if p.tok.Is(token.At) {
		p.advance()
		test, err := p.parseNodeTest()
		if err != nil {
			return ast.Step{}, err
		}
		preds, err := p.parsePredicates()
		if err != nil {
			return ast.Step{}, err
		}
		return ast.Step{Base: ast.Base{SpanVal: start}, Axis: "attribute", Test: test, Predicates: preds}, nil
	}
	if p.tok.Is(token.DotDot) {
		p.advance()
		preds, err := p.parsePredicates()
		if err != nil {
			return ast.Step{}, err
		}
		return ast.Step{Base: ast.Base{SpanVal: start}, Axis: "parent", Test: ast.NodeTest{Kind: "node"}, Predicates: preds}, nil
	}
	if p.tok.Is(token.Dot) && !p.peekLooksLikeNumber() {
		p.advance()
		preds, err := p.parsePredicates()
		if err != nil {
			return ast.Step{}, err
		}
		return ast.Step{Base: ast.Base{SpanVal: start}, Axis: "self", Test: ast.NodeTest{Kind: "node"}, Predicates: preds}, nil
	}
	if p.atNodeTestStart() {
		test, err := p.parseNodeTest()
		if err != nil {
			return ast.Step{}, err
		}
		preds, err := p.parsePredicates()
		if err != nil {
			return ast.Step{}, err
		}
		return ast.Step{Base: ast.Base{SpanVal: start}, Axis: "child", Test: test, Predicates: preds}, nil
	}
	// Not an axis step: parse a PostfixExpr and carry it through as a
	// zero-axis marker step.
	e, err := p.parsePostfixExpr()
	if err != nil {
		return ast.Step{}, err
	}
	return ast.Step{Base: ast.Base{SpanVal: start}, Predicates: []ast.Expr{e}}, nil
}

// peekLooksLikeNumber is unused in practice (the lexer never splits "." off
// a number), kept only to document the lexer's contract with this parser.
func (p *Parser) peekLooksLikeNumber() bool { return false }

func (p *Parser) atNodeTestStart() bool {
	switch p.tok.Kind {
	case token.Star:
		return true
	case token.Name:
		if kindTestNames[p.tok.Text] && p.peek().Is(token.LParen) {
			return true
		}
		// a name followed by "(", "#" or "{" starts a function call, a named
		// function reference, an inline function or a map/array constructor
		next := p.peek()
		return !next.Is(token.LParen) && !next.Is(token.Hash) && !next.Is(token.LBrace)
	}
	return false
}

func (p *Parser) parseKindTest() (ast.NodeTest, error) {
	kind, err := p.expect(token.Name, "kind test name")
	if err != nil {
		return ast.NodeTest{}, err
	}
	if _, err := p.expect(token.LParen, "("); err != nil {
		return ast.NodeTest{}, err
	}
	nt := ast.NodeTest{Kind: kind.Text}
	if p.tok.Kind == token.Name && kind.Text != "node" {
		name, err := p.expect(token.Name, "name")
		if err != nil {
			return ast.NodeTest{}, err
		}
		nt.Local = name.Text
	}
	if _, err := p.expect(token.RParen, ")"); err != nil {
		return ast.NodeTest{}, err
	}
	return nt, nil
}

func (p *Parser) parseNodeTest() (ast.NodeTest, error) {
	if p.tok.Kind == token.Name && kindTestNames[p.tok.Text] && p.peek().Is(token.LParen) {
		if p.tok.Text == "item" {
			return ast.NodeTest{}, p.errorf("'item()' is not a valid node test")
		}
		return p.parseKindTest()
	}
	return p.parseNameTest()
}

// parseNameTest parses "*", "prefix:*", "*:local", or "prefix:local".
func (p *Parser) parseNameTest() (ast.NodeTest, error) {
	if p.tok.Is(token.Star) {
		p.advance()
		if p.tok.Is(token.Colon) {
			p.advance()
			local, err := p.expect(token.Name, "local name")
			if err != nil {
				return ast.NodeTest{}, err
			}
			return ast.NodeTest{PrefixWildcard: true, Local: local.Text}, nil
		}
		return ast.NodeTest{Any: true}, nil
	}
	name, err := p.expect(token.Name, "name test")
	if err != nil {
		return ast.NodeTest{}, err
	}
	prefix, local, hasPrefix := splitQName(name.Text)
	if hasPrefix {
		if local == "*" {
			return ast.NodeTest{Prefix: prefix, LocalWildcard: true}, nil
		}
		return ast.NodeTest{Prefix: prefix, Local: local}, nil
	}
	if p.tok.Is(token.Colon) && p.peek().Is(token.Star) {
		p.advance()
		p.advance()
		return ast.NodeTest{Prefix: name.Text, LocalWildcard: true}, nil
	}
	return ast.NodeTest{Local: local}, nil
}

// splitQName splits lexer-scanned "prefix:local" text; single names pass
// through with hasPrefix=false.
func splitQName(s string) (prefix, local string, hasPrefix bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return "", s, false
}

func (p *Parser) parsePredicates() ([]ast.Expr, error) {
	var preds []ast.Expr
	for p.tok.Is(token.LBrack) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBrack, "]"); err != nil {
			return nil, err
		}
		preds = append(preds, e)
	}
	return preds, nil
}

// ---- PostfixExpr : PrimaryExpr (Predicate | ArgumentList | Lookup)* ----

func (p *Parser) parsePostfixExpr() (ast.Expr, error) {
	start := p.span()
	e, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.tok.Is(token.LBrack):
			preds, err := p.parsePredicates()
			if err != nil {
				return nil, err
			}
			e = &ast.FilterExpr{Base: ast.Base{SpanVal: start}, Primary: e, Predicates: preds}
		case p.tok.Is(token.LParen):
			args, err := p.parseArgumentList()
			if err != nil {
				return nil, err
			}
			e = &ast.DynamicCall{Base: ast.Base{SpanVal: start}, Fn: e, Args: args}
		case p.tok.Is(token.Question):
			p.advance()
			lk := &ast.Lookup{Base: ast.Base{SpanVal: start}, Target: e}
			if p.tok.Is(token.Star) {
				p.advance()
				lk.Wildcard = true
			} else {
				key, err := p.parseLookupKey()
				if err != nil {
					return nil, err
				}
				lk.Key = key
			}
			e = lk
		default:
			return e, nil
		}
	}
}

func (p *Parser) parseLookupKey() (ast.Expr, error) {
	start := p.span()
	switch p.tok.Kind {
	case token.Name:
		name := p.tok.Text
		p.advance()
		return &ast.StringLiteral{Base: ast.Base{SpanVal: start}, Value: name}, nil
	case token.Number:
		return p.parseNumericLiteral()
	case token.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.errorf("expected lookup key, found %q", p.tok.Text)
}

func (p *Parser) parseArgumentList() ([]ast.Expr, error) {
	if _, err := p.expect(token.LParen, "("); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.tok.Is(token.RParen) {
		for {
			if p.tok.Is(token.Question) && (p.peek().Is(token.Comma) || p.peek().Is(token.RParen)) {
				args = append(args, nil)
				p.advance()
			} else {
				e, err := p.parseExprSingle()
				if err != nil {
					return nil, err
				}
				args = append(args, e)
			}
			if p.tok.Is(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RParen, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

// ---- PrimaryExpr ----

func (p *Parser) parsePrimaryExpr() (ast.Expr, error) {
	start := p.span()
	switch {
	case p.tok.Is(token.String):
		s := p.tok.Text
		p.advance()
		return &ast.StringLiteral{Base: ast.Base{SpanVal: start}, Value: s}, nil
	case p.tok.Is(token.Number):
		return p.parseNumericLiteral()
	case p.tok.Is(token.Dollar):
		p.advance()
		name, err := p.expect(token.Name, "variable name")
		if err != nil {
			return nil, err
		}
		return &ast.VarRef{Base: ast.Base{SpanVal: start}, Name: name.Text}, nil
	case p.tok.Is(token.LParen):
		p.advance()
		if p.tok.Is(token.RParen) {
			p.advance()
			return &ast.Seq{Base: ast.Base{SpanVal: start}}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.tok.Is(token.Dot):
		p.advance()
		return &ast.ContextItem{Base: ast.Base{SpanVal: start}}, nil
	case p.tok.Is(token.Question):
		p.advance()
		lk := &ast.Lookup{Base: ast.Base{SpanVal: start}}
		if p.tok.Is(token.Star) {
			p.advance()
			lk.Wildcard = true
		} else {
			key, err := p.parseLookupKey()
			if err != nil {
				return nil, err
			}
			lk.Key = key
		}
		return lk, nil
	case p.tok.IsName("function") && p.peek().Is(token.LParen):
		return p.parseInlineFunction()
	case p.tok.IsName("map") && p.peek().Is(token.LBrace):
		return p.parseMapConstructor()
	case p.tok.IsName("array") && p.peek().Is(token.LBrace):
		return p.parseCurlyArrayConstructor()
	case p.tok.Is(token.LBrack):
		return p.parseSquareArrayConstructor()
	case p.tok.Kind == token.Name:
		return p.parseNameStartingPrimary()
	}
	return nil, p.errorf("unexpected token %q", p.tok.Text)
}

func (p *Parser) parseNumericLiteral() (ast.Expr, error) {
	start := p.span()
	text := p.tok.Text
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return nil, p.errorf("invalid numeric literal %q", text)
	}
	p.advance()
	return &ast.NumericLiteral{Base: ast.Base{SpanVal: start}, Text: text}, nil
}

// parseNameStartingPrimary handles a bare Name token at PrimaryExpr
// position: a named function reference ("prefix:local#2"), a function
// call ("prefix:local(...)"), or a variable-free QName used as a string
// constructor target is not legal here, so anything else is an error.
func (p *Parser) parseNameStartingPrimary() (ast.Expr, error) {
	start := p.span()
	name := p.tok.Text
	p.advance()
	if p.tok.Is(token.Hash) {
		p.advance()
		arity, err := p.expect(token.Number, "arity")
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(arity.Text)
		if convErr != nil {
			return nil, p.errorf("invalid arity %q", arity.Text)
		}
		return &ast.NamedFunctionRef{Base: ast.Base{SpanVal: start}, Name: name, Arity: n}, nil
	}
	if p.tok.Is(token.LParen) {
		args, err := p.parseArgumentList()
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{Base: ast.Base{SpanVal: start}, Name: name, Args: args}, nil
	}
	return nil, p.errorf("unexpected name %q in expression position", name)
}

func (p *Parser) parseInlineFunction() (ast.Expr, error) {
	start := p.span()
	p.advance() // "function"
	if _, err := p.expect(token.LParen, "("); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.tok.Is(token.RParen) {
		for {
			if _, err := p.expect(token.Dollar, "$"); err != nil {
				return nil, err
			}
			name, err := p.expect(token.Name, "parameter name")
			if err != nil {
				return nil, err
			}
			param := ast.Param{Name: name.Text}
			if p.tok.IsName("as") {
				p.advance()
				st, err := p.parseSequenceType()
				if err != nil {
					return nil, err
				}
				param.Type = &st
			}
			params = append(params, param)
			if p.tok.Is(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RParen, ")"); err != nil {
		return nil, err
	}
	var ret *ast.SequenceType
	if p.tok.IsName("as") {
		p.advance()
		st, err := p.parseSequenceType()
		if err != nil {
			return nil, err
		}
		ret = &st
	}
	if _, err := p.expect(token.LBrace, "{"); err != nil {
		return nil, err
	}
	var body ast.Expr
	if !p.tok.Is(token.RBrace) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body = e
	}
	if _, err := p.expect(token.RBrace, "}"); err != nil {
		return nil, err
	}
	return &ast.InlineFunction{Base: ast.Base{SpanVal: start}, Params: params, Return: ret, Body: body}, nil
}

func (p *Parser) parseMapConstructor() (ast.Expr, error) {
	start := p.span()
	p.advance() // "map"
	p.advance() // "{"
	var entries []ast.MapEntry
	if !p.tok.Is(token.RBrace) {
		for {
			key, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Colon, ":"); err != nil {
				return nil, err
			}
			val, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			entries = append(entries, ast.MapEntry{Key: key, Value: val})
			if p.tok.Is(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RBrace, "}"); err != nil {
		return nil, err
	}
	return &ast.MapConstructor{Base: ast.Base{SpanVal: start}, Entries: entries}, nil
}

func (p *Parser) parseCurlyArrayConstructor() (ast.Expr, error) {
	start := p.span()
	p.advance() // "array"
	p.advance() // "{"
	var members []ast.Expr
	if !p.tok.Is(token.RBrace) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		members = []ast.Expr{e}
	}
	if _, err := p.expect(token.RBrace, "}"); err != nil {
		return nil, err
	}
	return &ast.ArrayConstructor{Base: ast.Base{SpanVal: start}, IsCurly: true, Members: members}, nil
}

func (p *Parser) parseSquareArrayConstructor() (ast.Expr, error) {
	start := p.span()
	p.advance() // "["
	var members []ast.Expr
	if !p.tok.Is(token.RBrack) {
		for {
			e, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			members = append(members, e)
			if p.tok.Is(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RBrack, "]"); err != nil {
		return nil, err
	}
	return &ast.ArrayConstructor{Base: ast.Base{SpanVal: start}, IsCurly: false, Members: members}, nil
}
