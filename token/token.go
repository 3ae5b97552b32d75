// Package token defines the lexical token kinds produced by the Smile lexer.
//
// Tokens are the smallest units of meaning in the language, produced by the
// lexer during the lexical analysis phase. Each token carries a Kind, the
// source Position it was read from, and a Payload selected by that Kind:
// an interned symbol, a numeric value, text for literals and errors, or a
// pointer for complex loanwords such as a compiled regex.
//
// Key components:
//   - [Kind]: the closed enumeration of token kinds
//   - [Token]: a single lexical token with its position and payload
//   - [Position]: a source-location record attached to tokens, AST nodes, and diagnostics
//   - [LookupKeyword]: keyword recognition used by the lexer's identifier path
package token

import "github.com/smile-lang/smile/symbol"

// Kind identifies the lexical category of a Token.
//
//go:generate stringer -type=Kind
type Kind int

//nolint:revive
const (
	Error Kind = iota
	None
	EOI

	AlphaName
	PunctName
	UnknownAlphaName
	UnknownPunctName
	KnownName

	Char
	Uni
	Byte
	Integer16
	Integer32
	Integer64
	Integer128
	Real32
	Real64
	Real128
	Float32
	Float64
	Float128

	RawString
	LongRawString
	DynString
	LongDynString

	LeftBrace
	RightBrace
	LeftParen
	RightParen
	LeftBracket
	RightBracket
	Bar
	Equal
	EqualWithoutWhitespace
	Backtick
	DoubleHash
	Dot
	DotDot
	DotDotDot
	Colon
	Comma
	Semicolon
	At
	AtAt
	SuperEq
	SuperNe
	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	// Keywords.
	If
	Unless
	Then
	Else
	While
	Until
	Do
	Return
	Var
	Auto
	Const
	Try
	Catch
	Till
	When
	New
	And
	Or
	Not
	Is
	Typeof

	// Loanwords.
	LoanwordInclude
	LoanwordRegex
	LoanwordXML
	LoanwordJSON
	LoanwordBrk
	LoanwordSyntax
)

// keywords maps a reserved identifier spelling to its keyword Kind.
var keywords = map[string]Kind{
	"if":     If,
	"unless": Unless,
	"then":   Then,
	"else":   Else,
	"while":  While,
	"until":  Until,
	"do":     Do,
	"return": Return,
	"var":    Var,
	"auto":   Auto,
	"const":  Const,
	"try":    Try,
	"catch":  Catch,
	"till":   Till,
	"when":   When,
	"new":    New,
	"and":    And,
	"or":     Or,
	"not":    Not,
	"is":     Is,
	"typeof": Typeof,
}

// builtinLoanwords maps a loanword name (the identifier following a bare `#`)
// to its dedicated Kind. Loanwords not in this table lex as a generic
// LoanwordSyntax-adjacent name that the parser resolves against the scope's
// loanword table.
var builtinLoanwords = map[string]Kind{
	"include": LoanwordInclude,
	"syntax":  LoanwordSyntax,
	"brk":     LoanwordBrk,
	"json":    LoanwordJSON,
	"xml":     LoanwordXML,
	"html":    LoanwordXML,
}

// LookupKeyword reports whether ident is a reserved keyword, returning its
// Kind. Otherwise ok is false and the identifier should be lexed as a name.
func LookupKeyword(ident string) (kind Kind, ok bool) {
	kind, ok = keywords[ident]
	return
}

// LookupLoanword reports whether name (the text after a bare `#`) names one
// of the built-in loanwords.
func LookupLoanword(name string) (kind Kind, ok bool) {
	kind, ok = builtinLoanwords[name]
	return
}

// Position is a LexerPosition: the file, line, and column at which a token,
// AST node, or diagnostic was produced, plus the byte offset of the start of
// that line and the token's byte length.
type Position struct {
	Filename       string
	Line           int
	Column         int
	LineStartOffset int
	Length         int
}

// String renders the position as "filename:line:column", or as
// "<input>:0:0" when Filename is empty.
func (p Position) String() string {
	if p.Filename == "" {
		return "<input>:0:0"
	}
	return p.Filename + ":" + itoa(p.Line) + ":" + itoa(p.Column)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Payload is the per-token value union selected by Kind. Only the field(s)
// relevant to the token's Kind are populated; the rest are zero.
type Payload struct {
	Sym      symbol.Symbol // AlphaName / PunctName / KnownName
	Int      int64         // Byte / Integer16/32/64
	Float    float64       // Float32/64, Real32/64
	Char     rune          // Char / Uni
	Text     string        // number/string literal text, unknown-name text, error message
	Ptr      any           // complex loanwords (e.g. *regexp2.Regexp for LoanwordRegex)
	HasDot   bool          // numeric literal contained a decimal point
}

// Token is a single lexical token: its Kind, source Position, and Payload.
//
// Two flags supplement spec.md's token shape, carried over from the
// original lexer's TokenStruct: IsFirstOnLine records whether this was the
// first non-whitespace token on its source line (used by statement-level
// parsing to decide whether a newline terminates an expression), and
// HasEscapes records whether an identifier or string token's spelling
// contained backslash escapes (the parser does not consult it).
type Token struct {
	Kind         Kind
	Pos          Position
	Payload      Payload
	IsFirstOnLine bool
	HasEscapes    bool
}

// Text returns the token's literal text payload, used for literals, unknown
// names, and error messages.
func (t Token) Text() string { return t.Payload.Text }

// IsKeyword reports whether kind is one of the reserved keyword kinds.
func IsKeyword(kind Kind) bool {
	return kind >= If && kind <= Typeof
}

// IsLoanword reports whether kind is one of the built-in loanword kinds.
func IsLoanword(kind Kind) bool {
	return kind >= LoanwordInclude && kind <= LoanwordSyntax
}
