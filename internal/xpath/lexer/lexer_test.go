package lexer_test

import (
	"testing"

	"github.com/arborxml/xpvm/internal/xpath/lexer"
	"github.com/arborxml/xpvm/internal/xpath/token"
)

func scanAll(src string) []token.Token {
	l := lexer.New(src)
	var out []token.Token
	for {
		tok := l.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func assertKinds(t *testing.T, src string, want []token.Kind) {
	t.Helper()
	got := kinds(scanAll(src))
	if len(got) != len(want) {
		t.Fatalf("scanning %q: got %d tokens %v, want %d %v", src, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("scanning %q: token %d = %v, want %v", src, i, got[i], want[i])
		}
	}
}

func TestLexerPunctuation(t *testing.T) {
	assertKinds(t, "//a[@b]", []token.Kind{
		token.SlashSlash, token.Name, token.LBrack, token.At, token.Name, token.RBrack, token.EOF,
	})
}

func TestLexerAxisSeparatorVsQName(t *testing.T) {
	assertKinds(t, "child::foo", []token.Kind{
		token.Name, token.ColonColon, token.Name, token.EOF,
	})
	assertKinds(t, "fn:concat", []token.Kind{
		token.Name, token.EOF,
	})
}

func TestLexerNumberShapes(t *testing.T) {
	for _, src := range []string{"1", "1.5", "1.5e10", "1.5E-3", ".5"} {
		toks := scanAll(src)
		if len(toks) != 2 || toks[0].Kind != token.Number || toks[0].Text != src {
			t.Errorf("scanning %q: got %v", src, toks)
		}
	}
}

func TestLexerDotVsDotDotVsNumber(t *testing.T) {
	assertKinds(t, ".", []token.Kind{token.Dot, token.EOF})
	assertKinds(t, "..", []token.Kind{token.DotDot, token.EOF})
	assertKinds(t, ".5", []token.Kind{token.Number, token.EOF})
}

func TestLexerStringEscapes(t *testing.T) {
	toks := scanAll(`'it''s'`)
	if toks[0].Kind != token.String || toks[0].Text != "it's" {
		t.Fatalf("got %+v, want String \"it's\"", toks[0])
	}
	toks = scanAll(`"a""b"`)
	if toks[0].Kind != token.String || toks[0].Text != `a"b` {
		t.Fatalf("got %+v, want String a\"b", toks[0])
	}
}

func TestLexerTwoCharOperators(t *testing.T) {
	cases := map[string]token.Kind{
		"<=": token.Le,
		">=": token.Ge,
		"!=": token.Ne,
		"<<": token.LtLt,
		">>": token.GtGt,
		":=": token.Assign,
		"||": token.Bar2,
	}
	for src, want := range cases {
		toks := scanAll(src)
		if toks[0].Kind != want {
			t.Errorf("scanning %q: got %v, want %v", src, toks[0].Kind, want)
		}
	}
	// a lone first character still scans as its own single-char token
	assertKinds(t, "<", []token.Kind{token.Lt, token.EOF})
	assertKinds(t, "=", []token.Kind{token.Eq, token.EOF})
}

func TestLexerComments(t *testing.T) {
	assertKinds(t, "1 (: a comment :) + 2", []token.Kind{
		token.Number, token.Plus, token.Number, token.EOF,
	})
}

func TestLexerNestedComments(t *testing.T) {
	assertKinds(t, "1 (: outer (: inner :) still outer :) + 2", []token.Kind{
		token.Number, token.Plus, token.Number, token.EOF,
	})
}

func TestLexerLineColTracking(t *testing.T) {
	toks := scanAll("a\nbb")
	if toks[0].Line != 1 || toks[0].Col != 1 {
		t.Errorf("first token at %d:%d, want 1:1", toks[0].Line, toks[0].Col)
	}
	if toks[1].Line != 2 || toks[1].Col != 1 {
		t.Errorf("second token at %d:%d, want 2:1", toks[1].Line, toks[1].Col)
	}
}

func TestLexerIllegalRune(t *testing.T) {
	toks := scanAll("~")
	if toks[0].Kind != token.Illegal || toks[0].Text != "~" {
		t.Fatalf("got %+v, want Illegal \"~\"", toks[0])
	}
}
