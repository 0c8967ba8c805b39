package lexer_test

import (
	"testing"

	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/source"
	"qlower/internal/token"
)

func lexAll(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.qasm", []byte(src))
	bag := diag.NewBag(16)
	lx := lexer.New(fs.Get(id), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	return lx.All(), bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexerKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "header",
			src:  "OPENQASM 3.0;",
			want: []token.Kind{token.KwOpenQASM, token.FloatLit, token.Semicolon, token.EOF},
		},
		{
			name: "range loop",
			src:  "for int i in [0:2:n] {}",
			want: []token.Kind{
				token.KwFor, token.KwInt, token.Ident, token.KwIn,
				token.LBracket, token.IntLit, token.Colon, token.IntLit, token.Colon, token.Ident, token.RBracket,
				token.LBrace, token.RBrace, token.EOF,
			},
		},
		{
			name: "measure arrow",
			src:  "measure q[0] -> c[0];",
			want: []token.Kind{
				token.KwMeasure, token.Ident, token.LBracket, token.IntLit, token.RBracket,
				token.Arrow, token.Ident, token.LBracket, token.IntLit, token.RBracket, token.Semicolon, token.EOF,
			},
		},
		{
			name: "compound operators",
			src:  "i += 1; j -= 2; a <= b && c != d || !e",
			want: []token.Kind{
				token.Ident, token.PlusAssign, token.IntLit, token.Semicolon,
				token.Ident, token.MinusAssign, token.IntLit, token.Semicolon,
				token.Ident, token.LtEq, token.Ident, token.AndAnd, token.Ident, token.BangEq, token.Ident,
				token.OrOr, token.Bang, token.Ident, token.EOF,
			},
		},
		{
			name: "comments are trivia",
			src:  "// line\n/* block */ h q;",
			want: []token.Kind{token.Ident, token.Ident, token.Semicolon, token.EOF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, bag := lexAll(t, tt.src)
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %+v", bag.Items())
			}
			got := kinds(toks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("token %d: got %v, want %v (all: %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestLeadingTrivia(t *testing.T) {
	toks, _ := lexAll(t, "  // c\nh")
	lead := toks[0].Leading
	if len(lead) != 3 {
		t.Fatalf("leading = %+v", lead)
	}
	if lead[0].Kind != token.TriviaSpace || lead[1].Kind != token.TriviaLineComment || lead[2].Kind != token.TriviaNewline {
		t.Fatalf("leading kinds = %v %v %v", lead[0].Kind, lead[1].Kind, lead[2].Kind)
	}
}

func TestIdentifierNFC(t *testing.T) {
	toks, _ := lexAll(t, "the\u0301ta")
	if toks[0].Kind != token.Ident || toks[0].Text != "th\u00e9ta" {
		t.Fatalf("got %v %q", toks[0].Kind, toks[0].Text)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src  string
		code diag.Code
	}{
		{"\"open", diag.LexUnterminatedString},
		{"/* open", diag.LexUnterminatedBlock},
		{"1e+", diag.LexBadNumber},
		{"12ab", diag.LexBadNumber},
		{"#", diag.LexUnknownChar},
	}
	for _, tt := range tests {
		_, bag := lexAll(t, tt.src)
		if bag.Len() == 0 || bag.Items()[0].Code != tt.code {
			t.Fatalf("%q: diagnostics %+v, want %v", tt.src, bag.Items(), tt.code)
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	fs := source.NewFileSet()
	lx := lexer.New(fs.Get(fs.AddVirtual("p", []byte("x y"))), lexer.Options{})
	if lx.Peek().Text != "x" || lx.Peek().Text != "x" || lx.Next().Text != "x" || lx.Next().Text != "y" {
		t.Fatal("peek/next mismatch")
	}
	if lx.Next().Kind != token.EOF || lx.Next().Kind != token.EOF {
		t.Fatal("EOF must be sticky")
	}
}

func TestUnknownCharacterMessage(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"#", `"#" (U+0023)`},
		{"\u0301", "\"\u0301\" (U+0301)"},
	}
	for _, tt := range tests {
		_, bag := lexAll(t, tt.src)
		if bag.Len() == 0 {
			t.Fatalf("%q: no diagnostics", tt.src)
		}
		d := bag.Items()[0]
		if d.Code != diag.LexUnknownChar || d.Message != tt.want {
			t.Errorf("%q: got %s %q, want %q", tt.src, d.Code.ID(), d.Message, tt.want)
		}
	}
}
