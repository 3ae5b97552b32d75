package lexer

import (
	"testing"

	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/token"
)

func newTestLexer(input string) *Lexer {
	return New("<test>", []byte(input), symbol.New())
}

// TestNextTokenPunctuationAndKeywords exercises the same kind of sequence
// the teacher's TestNextToken table covered, translated to Smile's token
// kinds: keywords, identifiers, numbers, and delimiters in one pass.
func TestNextTokenPunctuationAndKeywords(t *testing.T) {
	input := `var x = 5
if x then 1 else 2
(a, b) [1] { }`

	tests := []token.Kind{
		token.Var, token.AlphaName, token.Equal, token.Integer32,
		token.If, token.AlphaName, token.Then, token.Integer32, token.Else, token.Integer32,
		token.LeftParen, token.AlphaName, token.Comma, token.AlphaName, token.RightParen,
		token.LeftBracket, token.Integer32, token.RightBracket,
		token.LeftBrace, token.RightBrace,
		token.EOI,
	}

	l := newTestLexer(input)
	for i, want := range tests {
		got := l.Next()
		if got.Kind != want {
			t.Fatalf("token[%d]: want kind %v, got %v (text %q)", i, want, got.Kind, got.Payload.Text)
		}
	}
}

func TestUngetSymmetry(t *testing.T) {
	l := newTestLexer("foo bar baz")

	first := l.Next()
	l.Unget()
	again := l.Next()
	if first.Kind != again.Kind || first.Payload.Sym != again.Payload.Sym {
		t.Fatalf("next(); unget(); next() did not return the same token: %+v vs %+v", first, again)
	}
}

func TestUngetMultipleLevels(t *testing.T) {
	l := newTestLexer("a b c d")
	a := l.Next()
	b := l.Next()
	c := l.Next()
	l.Unget()
	l.Unget()
	l.Unget()
	if got := l.Next(); got.Payload.Sym != a.Payload.Sym {
		t.Fatalf("after 3 ungets, expected token 'a' again, got %+v", got)
	}
	if got := l.Next(); got.Payload.Sym != b.Payload.Sym {
		t.Fatalf("expected token 'b', got %+v", got)
	}
	if got := l.Next(); got.Payload.Sym != c.Payload.Sym {
		t.Fatalf("expected token 'c', got %+v", got)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := newTestLexer("alpha beta")
	peeked := l.Peek()
	actual := l.Next()
	if peeked.Kind != actual.Kind || peeked.Payload.Sym != actual.Payload.Sym {
		t.Fatalf("Peek() token did not match the following Next(): %+v vs %+v", peeked, actual)
	}
}

func TestIdentifierRoundTrip(t *testing.T) {
	syms := symbol.New()
	for _, id := range []string{"x", "fooBar", "snake_case", "has-hyphen", "trailing?", "bang!"} {
		l := New("<test>", []byte(id), syms)
		tok := l.Next()
		if tok.Kind != token.AlphaName {
			t.Fatalf("identifier %q: expected AlphaName, got %v", id, tok.Kind)
		}
		if got := syms.GetName(tok.Payload.Sym); got != id {
			t.Fatalf("identifier round trip failed: lexed %q, GetName returned %q", id, got)
		}
	}
}

func TestNumericLiteralsAcrossBases(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
		value int64
	}{
		{"42", token.Integer32, 42},
		{"0x2A", token.Integer32, 42},
		{"0b101010", token.Integer32, 42},
		{"0o52", token.Integer32, 42},
		{"42L", token.Integer64, 42},
		{"42t", token.Byte, 42},
		{"42s", token.Integer16, 42},
	}
	for _, tt := range tests {
		l := newTestLexer(tt.input)
		tok := l.Next()
		if tok.Kind != tt.kind {
			t.Fatalf("%q: expected kind %v, got %v", tt.input, tt.kind, tok.Kind)
		}
		if tok.Payload.Int != tt.value {
			t.Fatalf("%q: expected value %d, got %d", tt.input, tt.value, tok.Payload.Int)
		}
	}
}

func TestRealLiteralWithXSuffixIsAnError(t *testing.T) {
	l := newTestLexer("3.14x")
	tok := l.Next()
	if tok.Kind != token.Error {
		t.Fatalf("expected an Error token for 'x' suffix on a real literal, got %v", tok.Kind)
	}
}

func TestDynStringWithInterpolationPlaceholder(t *testing.T) {
	l := newTestLexer(`"hello {name}!"`)
	tok := l.Next()
	if tok.Kind != token.DynString {
		t.Fatalf("expected DynString, got %v", tok.Kind)
	}
	if tok.Payload.Text != "hello {name}!" {
		t.Fatalf("expected literal placeholder preserved, got %q", tok.Payload.Text)
	}
}

func TestRawStringHasNoEscapeProcessing(t *testing.T) {
	l := newTestLexer(`'a\nb'`)
	tok := l.Next()
	if tok.Kind != token.RawString {
		t.Fatalf("expected RawString, got %v", tok.Kind)
	}
	if tok.Payload.Text != `a\nb` {
		t.Fatalf("raw string must not interpret escapes, got %q", tok.Payload.Text)
	}
}

func TestCharLiteral(t *testing.T) {
	l := newTestLexer(`'x'`)
	tok := l.Next()
	if tok.Kind != token.Char {
		t.Fatalf("expected Char, got %v", tok.Kind)
	}
	if tok.Payload.Char != 'x' {
		t.Fatalf("expected char 'x', got %q", tok.Payload.Char)
	}
}

func TestEqualWithoutWhitespace(t *testing.T) {
	l := newTestLexer("x=1")
	l.Next() // x
	eq := l.Next()
	if eq.Kind != token.EqualWithoutWhitespace {
		t.Fatalf("expected EqualWithoutWhitespace for 'x=1', got %v", eq.Kind)
	}

	l2 := newTestLexer("x = 1")
	l2.Next() // x
	eq2 := l2.Next()
	if eq2.Kind != token.Equal {
		t.Fatalf("expected Equal for 'x = 1', got %v", eq2.Kind)
	}
}

func TestRegexLoanword(t *testing.T) {
	l := newTestLexer(`#/a+b/i`)
	tok := l.Next()
	if tok.Kind != token.LoanwordRegex {
		t.Fatalf("expected LoanwordRegex, got %v", tok.Kind)
	}
	if tok.Payload.Ptr == nil {
		t.Fatal("expected a compiled regex pointer in the token payload")
	}
}

func TestConsOperator(t *testing.T) {
	l := newTestLexer("##")
	tok := l.Next()
	if tok.Kind != token.DoubleHash {
		t.Fatalf("expected DoubleHash for '##', got %v", tok.Kind)
	}
}

func TestLineCommentSkipped(t *testing.T) {
	l := newTestLexer("1 // comment\n2")
	first := l.Next()
	second := l.Next()
	if first.Payload.Int != 1 || second.Payload.Int != 2 {
		t.Fatalf("line comment was not skipped correctly: %+v, %+v", first, second)
	}
}

func TestRulerCommentSkipped(t *testing.T) {
	l := newTestLexer("1\n-----\n2")
	first := l.Next()
	second := l.Next()
	if first.Payload.Int != 1 || second.Payload.Int != 2 {
		t.Fatalf("ruler comment was not skipped correctly: %+v, %+v", first, second)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := newTestLexer(`"unterminated`)
	tok := l.Next()
	if tok.Kind != token.Error {
		t.Fatalf("expected Error for unterminated string, got %v", tok.Kind)
	}
}
