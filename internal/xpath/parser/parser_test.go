package parser_test

import (
	"testing"

	"github.com/arborxml/xpvm/internal/xpath/ast"
	"github.com/arborxml/xpvm/internal/xpath/parser"
)

func parseOK(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parsing %q: %v", src, err)
	}
	return e
}

func TestParserNumericAndStringLiterals(t *testing.T) {
	e := parseOK(t, "42")
	n, ok := e.(*ast.NumericLiteral)
	if !ok || n.Text != "42" {
		t.Fatalf("got %#v", e)
	}
	e = parseOK(t, `'hi'`)
	s, ok := e.(*ast.StringLiteral)
	if !ok || s.Value != "hi" {
		t.Fatalf("got %#v", e)
	}
}

func TestParserArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 must bind as 1 + (2 * 3), not (1 + 2) * 3.
	e := parseOK(t, "1 + 2 * 3")
	top, ok := e.(*ast.BinExpr)
	if !ok || top.Op != "+" {
		t.Fatalf("got %#v", e)
	}
	right, ok := top.Right.(*ast.BinExpr)
	if !ok || right.Op != "*" {
		t.Fatalf("expected right side to be a '*' node, got %#v", top.Right)
	}
	if _, ok := top.Left.(*ast.NumericLiteral); !ok {
		t.Fatalf("expected left side to be a literal, got %#v", top.Left)
	}
}

func TestParserUnaryMinus(t *testing.T) {
	e := parseOK(t, "-5")
	u, ok := e.(*ast.UnaryExpr)
	if !ok || u.Op != "-" {
		t.Fatalf("got %#v", e)
	}
}

func TestParserComparisonOperators(t *testing.T) {
	for _, op := range []string{"=", "!=", "<", "<=", ">", ">=", "eq", "ne", "lt", "le", "gt", "ge"} {
		e := parseOK(t, "1 "+op+" 2")
		b, ok := e.(*ast.BinExpr)
		if !ok || b.Op != op {
			t.Fatalf("operator %q: got %#v", op, e)
		}
	}
}

func TestParserIfExpr(t *testing.T) {
	e := parseOK(t, "if (1) then 2 else 3")
	ifx, ok := e.(*ast.IfExpr)
	if !ok {
		t.Fatalf("got %#v", e)
	}
	if _, ok := ifx.Then.(*ast.NumericLiteral); !ok {
		t.Fatalf("then branch: got %#v", ifx.Then)
	}
	if _, ok := ifx.Else.(*ast.NumericLiteral); !ok {
		t.Fatalf("else branch: got %#v", ifx.Else)
	}
}

func TestParserForExpr(t *testing.T) {
	e := parseOK(t, "for $x in (1, 2, 3) return $x")
	f, ok := e.(*ast.ForExpr)
	if !ok || len(f.Bindings) != 1 || f.Bindings[0].Var != "x" {
		t.Fatalf("got %#v", e)
	}
	if _, ok := f.Return.(*ast.VarRef); !ok {
		t.Fatalf("return: got %#v", f.Return)
	}
}

func TestParserLetExpr(t *testing.T) {
	e := parseOK(t, "let $x := 1, $y := 2 return $x + $y")
	l, ok := e.(*ast.LetExpr)
	if !ok || len(l.Bindings) != 2 {
		t.Fatalf("got %#v", e)
	}
	if l.Bindings[0].Var != "x" || l.Bindings[1].Var != "y" {
		t.Fatalf("bindings: %#v", l.Bindings)
	}
}

func TestParserFunctionCall(t *testing.T) {
	e := parseOK(t, "concat('a', 'b')")
	c, ok := e.(*ast.FunctionCall)
	if !ok || c.Name != "concat" || len(c.Args) != 2 {
		t.Fatalf("got %#v", e)
	}
}

func TestParserPathExprAbsoluteAndRelative(t *testing.T) {
	e := parseOK(t, "/a/b")
	p, ok := e.(*ast.PathExpr)
	if !ok || !p.Absolute || len(p.Steps) != 2 {
		t.Fatalf("got %#v", e)
	}
	if p.Steps[0].Test.Local != "a" || p.Steps[1].Test.Local != "b" {
		t.Fatalf("steps: %#v", p.Steps)
	}

	e = parseOK(t, "a//b")
	p, ok = e.(*ast.PathExpr)
	if !ok || p.Absolute {
		t.Fatalf("got %#v", e)
	}
	if len(p.Steps) != 3 {
		t.Fatalf("expected an explicit descendant-or-self step inserted for '//', got %d steps: %#v", len(p.Steps), p.Steps)
	}
	if p.Steps[1].Axis != "descendant-or-self" {
		t.Fatalf("expected middle step axis descendant-or-self, got %q", p.Steps[1].Axis)
	}
}

func TestParserPredicates(t *testing.T) {
	e := parseOK(t, "a[@id = '1']")
	p, ok := e.(*ast.PathExpr)
	if !ok || len(p.Steps) != 1 {
		t.Fatalf("got %#v", e)
	}
	if len(p.Steps[0].Predicates) != 1 {
		t.Fatalf("expected one predicate, got %#v", p.Steps[0].Predicates)
	}
}

func TestParserAxisStep(t *testing.T) {
	e := parseOK(t, "child::foo")
	p, ok := e.(*ast.PathExpr)
	if !ok || len(p.Steps) != 1 || p.Steps[0].Axis != "child" || p.Steps[0].Test.Local != "foo" {
		t.Fatalf("got %#v", e)
	}

	e = parseOK(t, "parent::node()")
	p, ok = e.(*ast.PathExpr)
	if !ok || len(p.Steps) != 1 || p.Steps[0].Axis != "parent" || p.Steps[0].Test.Kind != "node" {
		t.Fatalf("got %#v", e)
	}
}

func TestParserAttributeAxisShorthand(t *testing.T) {
	e := parseOK(t, "@id")
	p, ok := e.(*ast.PathExpr)
	if !ok || len(p.Steps) != 1 || p.Steps[0].Axis != "attribute" {
		t.Fatalf("got %#v", e)
	}
}

func TestParserWildcardNameTests(t *testing.T) {
	e := parseOK(t, "*")
	p, ok := e.(*ast.PathExpr)
	if !ok || len(p.Steps) != 1 || !p.Steps[0].Test.Any {
		t.Fatalf("got %#v", e)
	}

	e = parseOK(t, "ns:*")
	p, ok = e.(*ast.PathExpr)
	if !ok || len(p.Steps) != 1 || p.Steps[0].Test.Prefix != "ns" || !p.Steps[0].Test.LocalWildcard {
		t.Fatalf("got %#v", e)
	}
}

func TestParserSequenceAndUnion(t *testing.T) {
	e := parseOK(t, "1, 2, 3")
	s, ok := e.(*ast.Seq)
	if !ok || len(s.Items) != 3 {
		t.Fatalf("got %#v", e)
	}

	e = parseOK(t, "a | b")
	b, ok := e.(*ast.BinExpr)
	if !ok || b.Op != "union" {
		t.Fatalf("got %#v", e)
	}
}

func TestParserInlineFunction(t *testing.T) {
	e := parseOK(t, "function($x as xs:integer) as xs:integer { $x + 1 }")
	f, ok := e.(*ast.InlineFunction)
	if !ok || len(f.Params) != 1 || f.Params[0].Name != "x" {
		t.Fatalf("got %#v", e)
	}
	if f.Return == nil || f.Return.Atomic != "xs:integer" {
		t.Fatalf("return type: %#v", f.Return)
	}
}

func TestParserMapAndArrayConstructors(t *testing.T) {
	e := parseOK(t, `map{ 'a': 1, 'b': 2 }`)
	m, ok := e.(*ast.MapConstructor)
	if !ok || len(m.Entries) != 2 {
		t.Fatalf("got %#v", e)
	}

	e = parseOK(t, `[1, 2, 3]`)
	a, ok := e.(*ast.ArrayConstructor)
	if !ok || a.IsCurly || len(a.Members) != 3 {
		t.Fatalf("got %#v", e)
	}
}

func TestParserCastAndInstanceOf(t *testing.T) {
	e := parseOK(t, "1 cast as xs:string")
	c, ok := e.(*ast.ConversionExpr)
	if !ok || c.Kind != "cast" || c.Target.Atomic != "xs:string" {
		t.Fatalf("got %#v", e)
	}

	e = parseOK(t, "1 instance of xs:integer")
	c, ok = e.(*ast.ConversionExpr)
	if !ok || c.Kind != "instanceof" {
		t.Fatalf("got %#v", e)
	}
}

func TestParserRejectsUnexpectedToken(t *testing.T) {
	if _, err := parser.Parse("1 +"); err == nil {
		t.Fatal("expected a parse error for a dangling operator")
	}
}

func TestParserRejectsUnbalancedParens(t *testing.T) {
	if _, err := parser.Parse("(1 + 2"); err == nil {
		t.Fatal("expected a parse error for an unclosed paren")
	}
}
