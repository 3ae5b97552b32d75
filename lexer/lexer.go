// Package lexer implements Smile's lexical analyzer: a byte stream in, a
// stream of [token.Token] values out.
//
// The lexer classifies whitespace and comments, identifiers and keywords,
// multi-base numeric literals, the several string/char literal forms,
// punctuation (including the EqualWithoutWhitespace disambiguation), and
// `#`-prefixed loanwords including regex literals compiled through
// dlclark/regexp2. It never signals an error through a Go error return —
// malformed input produces a token.Error token carrying an English message,
// and it is the parser's job to observe and react to that.
//
// A 16-slot ring buffer of recently produced tokens backs up to 15 levels
// of Unget, matching the original lexer's fixed-size lookback window.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/token"
)

// ungetSlots is the size of the token ring buffer, supporting up to
// ungetSlots-1 levels of Unget.
const ungetSlots = 16

// Lexer turns a byte buffer into a stream of tokens.
type Lexer struct {
	input    []byte
	filename string
	syms     *symbol.Table

	pos       int // byte offset of the next unread byte
	line      int
	column    int
	lineStart int

	atLineStart bool // true until the first non-whitespace token on this line is produced

	tokenBuffer [ungetSlots]token.Token
	tokenIndex  int // next free slot; Unget moves this back
	ungetCount  int
}

// New creates a Lexer over input, attributing positions to filename
// starting at line 1, column 1.
func New(filename string, input []byte, syms *symbol.Table) *Lexer {
	return &Lexer{
		input:       input,
		filename:    filename,
		syms:        syms,
		line:        1,
		column:      1,
		atLineStart: true,
	}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.input) }

func (l *Lexer) cur() byte {
	if l.eof() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) at(offset int) byte {
	i := l.pos + offset
	if i < 0 || i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// advance consumes one byte, tracking line/column. \r, \n, \r\n, and \n\r
// each count as exactly one line break.
func (l *Lexer) advance() byte {
	ch := l.cur()
	l.pos++
	switch ch {
	case '\n':
		if l.at(0) == '\r' {
			l.pos++
		}
		l.newline()
	case '\r':
		if l.at(0) == '\n' {
			l.pos++
		}
		l.newline()
	default:
		l.column++
	}
	return ch
}

func (l *Lexer) newline() {
	l.line++
	l.column = 1
	l.lineStart = l.pos
}

func (l *Lexer) startPos() token.Position {
	return token.Position{
		Filename:        l.filename,
		Line:            l.line,
		Column:          l.column,
		LineStartOffset: l.lineStart,
	}
}

// Next returns the next token, consulting the unget ring buffer first.
func (l *Lexer) Next() token.Token {
	if l.ungetCount > 0 {
		l.ungetCount--
		tok := l.tokenBuffer[l.tokenIndex&(ungetSlots-1)]
		l.tokenIndex++
		return tok
	}
	tok := l.lex()
	l.tokenBuffer[l.tokenIndex&(ungetSlots-1)] = tok
	l.tokenIndex++
	return tok
}

// Unget pushes the most recently returned token back onto the stream, up to
// ungetSlots-1 levels deep. Ungetting past the buffer's capacity panics —
// that is a caller bug, not a recoverable lex error.
func (l *Lexer) Unget() {
	if l.ungetCount >= ungetSlots-1 {
		panic("lexer: unget buffer exhausted")
	}
	l.tokenIndex--
	l.ungetCount++
}

// Peek returns the next token without consuming it: Next() followed by
// Unget().
func (l *Lexer) Peek() token.Token {
	tok := l.Next()
	l.Unget()
	return tok
}

func (l *Lexer) errorTok(start token.Position, message string) token.Token {
	start.Length = l.pos - (start.LineStartOffset + start.Column - 1)
	return token.Token{Kind: token.Error, Pos: start, Payload: token.Payload{Text: message}}
}

func (l *Lexer) simpleTok(start token.Position, kind token.Kind) token.Token {
	start.Length = l.pos - (start.LineStartOffset + start.Column - 1)
	return token.Token{Kind: kind, Pos: start, IsFirstOnLine: l.consumeLineStartFlag()}
}

func (l *Lexer) consumeLineStartFlag() bool {
	first := l.atLineStart
	l.atLineStart = false
	return first
}

// lex classifies and consumes exactly one token starting at l.pos,
// following the dispatch order of spec.md §4.2.
func (l *Lexer) lex() token.Token {
	for {
		if l.skipWhitespaceAndNewlines() {
			continue
		}
		if l.skipComment() {
			continue
		}
		if l.skipRuler() {
			continue
		}
		break
	}

	if l.eof() {
		return l.simpleTok(l.startPos(), token.EOI)
	}

	start := l.startPos()
	ch := l.cur()

	switch {
	case ch == '.':
		return l.lexDot(start)
	case isIdentStart(ch):
		return l.lexIdentifier(start)
	case isDigit(ch):
		return l.lexNumber(start, false)
	case ch == '"':
		return l.lexDynString(start)
	case ch == '\'':
		return l.lexRawOrChar(start)
	case ch == '#':
		return l.lexHash(start)
	default:
		return l.lexPunctuation(start)
	}
}

// skipWhitespaceAndNewlines consumes run(s) of \x00..\x20 (except treating
// newlines specially) and reports whether it consumed anything.
func (l *Lexer) skipWhitespaceAndNewlines() bool {
	consumed := false
	for !l.eof() {
		ch := l.cur()
		if ch == '\n' || ch == '\r' {
			l.advance()
			l.atLineStart = true
			consumed = true
			continue
		}
		if ch <= 0x20 {
			l.advance()
			consumed = true
			continue
		}
		break
	}
	return consumed
}

// skipComment consumes a `//` line comment or a nestable `/* ... */` block
// comment. It does not consume a bare `/` that begins a punctuation name.
func (l *Lexer) skipComment() bool {
	if l.cur() != '/' {
		return false
	}
	switch l.at(1) {
	case '/':
		l.advance()
		l.advance()
		for !l.eof() && l.cur() != '\n' && l.cur() != '\r' {
			l.advance()
		}
		return true
	case '*':
		l.advance()
		l.advance()
		depth := 1
		for !l.eof() && depth > 0 {
			if l.cur() == '/' && l.at(1) == '*' {
				l.advance()
				l.advance()
				depth++
				continue
			}
			if l.cur() == '*' && l.at(1) == '/' {
				l.advance()
				l.advance()
				depth--
				continue
			}
			l.advance()
		}
		return true
	default:
		return false
	}
}

// skipRuler consumes a "ruler" comment: five or more consecutive '=' or '-'
// characters, to end of line.
func (l *Lexer) skipRuler() bool {
	ch := l.cur()
	if ch != '=' && ch != '-' {
		return false
	}
	run := 0
	for l.at(run) == ch {
		run++
	}
	if run < 5 {
		return false
	}
	for !l.eof() && l.cur() != '\n' && l.cur() != '\r' {
		l.advance()
	}
	return true
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || isAlpha(ch)
}

func isAlpha(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }

func isIdentCont(ch byte) bool {
	switch ch {
	case '_', '$', '\'', '"', '!', '?', '~':
		return true
	}
	return isAlpha(ch) || isDigit(ch)
}

// lexDot disambiguates '.', DOT/DOTDOT/DOTDOTDOT, or a leading-dot real
// literal (a '.' immediately followed by a digit).
func (l *Lexer) lexDot(start token.Position) token.Token {
	if isDigit(l.at(1)) {
		return l.lexNumber(start, true)
	}
	l.advance()
	if l.cur() == '.' {
		l.advance()
		if l.cur() == '.' {
			l.advance()
			return l.simpleTok(start, token.DotDotDot)
		}
		return l.simpleTok(start, token.DotDot)
	}
	return l.simpleTok(start, token.Dot)
}

// lexIdentifier reads an identifier (with hyphenated-name continuation: a
// trailing '-' followed immediately by another identifier char restarts the
// scan) and classifies it as a keyword or a plain name.
func (l *Lexer) lexIdentifier(start token.Position) token.Token {
	begin := l.pos
	for isIdentCont(l.cur()) {
		l.advance()
	}
	for l.cur() == '-' && isIdentCont(l.at(1)) {
		l.advance()
		for isIdentCont(l.cur()) {
			l.advance()
		}
	}
	text := string(l.input[begin:l.pos])
	tok := l.simpleTok(start, token.AlphaName)

	if kind, ok := token.LookupKeyword(text); ok {
		tok.Kind = kind
		tok.Payload.Text = text
		return tok
	}

	sym := l.syms.GetOrCreate(text)
	tok.Payload.Sym = sym
	tok.Payload.Text = text
	// Kind re-classification (KNOWN vs UNKNOWN) depends on whether the
	// current parse scope has declared this name; the lexer has no scope
	// access, so it always emits AlphaName and leaves KnownName/
	// UnknownAlphaName reclassification to the parser, which calls
	// Reclassify after checking parsescope.Scope.IsDeclared.
	return tok
}

// Reclassify converts an AlphaName token into KnownName or
// UnknownAlphaName based on whether the parser's current scope has a
// declaration for its symbol. Called by the parser, not during lexing
// proper, since the lexer itself has no scope access (spec.md §4.2 point 5).
func Reclassify(tok token.Token, declared bool) token.Token {
	if tok.Kind != token.AlphaName {
		return tok
	}
	if declared {
		tok.Kind = token.KnownName
	} else {
		tok.Kind = token.UnknownAlphaName
	}
	return tok
}

// lexNumber reads a numeric literal: optional base prefix, digit groups
// with '\'', '"', '_' separators, optional fractional part and exponent,
// optional type suffix.
func (l *Lexer) lexNumber(start token.Position, leadingDot bool) token.Token {
	begin := l.pos
	base := 10
	isReal := leadingDot

	if !leadingDot && l.cur() == '0' {
		switch l.at(1) {
		case 'x', 'X':
			base = 16
			l.advance()
			l.advance()
		case 'b', 'B':
			base = 2
			l.advance()
			l.advance()
		case 'o', 'O':
			base = 8
			l.advance()
			l.advance()
		default:
			if isDigit(l.at(1)) {
				base = 8
			}
		}
	}

	digitRun := func() {
		for isDigitInBase(l.cur(), base) || l.cur() == '\'' || l.cur() == '"' || l.cur() == '_' {
			l.advance()
		}
	}
	digitRun()

	if !leadingDot && base == 10 && l.cur() == '.' && isDigit(l.at(1)) {
		isReal = true
		l.advance()
		digitRun()
	} else if leadingDot {
		digitRun()
	}

	if base == 10 && (l.cur() == 'e' || l.cur() == 'E') {
		save := l.pos
		peek := 1
		if l.at(1) == '+' || l.at(1) == '-' {
			peek = 2
		}
		if isDigit(l.at(peek)) {
			isReal = true
			l.advance()
			if l.cur() == '+' || l.cur() == '-' {
				l.advance()
			}
			digitRun()
		} else {
			l.pos = save
		}
	}

	text := stripSeparators(string(l.input[begin:l.pos]))

	var suffix byte
	switch l.cur() {
	case 't', 's', 'L', 'x', 'f', 'd':
		suffix = l.cur()
		l.advance()
	}

	tok := l.simpleTok(start, token.Integer32)
	tok.Payload.Text = text
	tok.Payload.HasDot = isReal

	if isReal && suffix == 'x' {
		return l.errorTok(start, "'x' (int128) suffix is not valid on a real literal")
	}

	kind, value, fvalue := classifyNumeric(text, base, isReal, suffix)
	tok.Kind = kind
	tok.Payload.Int = value
	tok.Payload.Float = fvalue
	return tok
}

func isDigitInBase(ch byte, base int) bool {
	switch base {
	case 2:
		return ch == '0' || ch == '1'
	case 8:
		return '0' <= ch && ch <= '7'
	case 16:
		return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
	default:
		return isDigit(ch)
	}
}

func stripSeparators(s string) string {
	if !strings.ContainsAny(s, "'\"_") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '"' || s[i] == '_' {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// classifyNumeric parses text (already separator-stripped) in the given
// base and returns the token kind and decoded value per the suffix table in
// spec.md §4.2 point 6 / §6.
func classifyNumeric(text string, base int, isReal bool, suffix byte) (token.Kind, int64, float64) {
	prefixLen := 0
	switch base {
	case 16, 2, 8:
		if len(text) >= 2 && text[0] == '0' && (text[1] < '0' || text[1] > '9') {
			prefixLen = 2
		}
	}
	digits := text[prefixLen:]

	if isReal {
		f := parseFloatBestEffort(digits)
		if suffix == 'f' {
			return token.Float32, 0, f
		}
		if suffix == 'd' {
			return token.Float64, 0, f
		}
		return token.Real64, 0, f
	}

	n := parseIntBestEffort(digits, base)
	switch suffix {
	case 't':
		return token.Byte, n, 0
	case 's':
		return token.Integer16, n, 0
	case 'L':
		return token.Integer64, n, 0
	case 'x':
		return token.Integer128, n, 0
	case 'f':
		return token.Float32, 0, float64(n)
	case 'd':
		return token.Float64, 0, float64(n)
	default:
		return token.Integer32, n, 0
	}
}

func parseIntBestEffort(digits string, base int) int64 {
	var n int64
	for i := 0; i < len(digits); i++ {
		d := digitValue(digits[i])
		if d < 0 || d >= base {
			continue
		}
		n = n*int64(base) + int64(d)
	}
	return n
}

func digitValue(ch byte) int {
	switch {
	case isDigit(ch):
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'F':
		return int(ch-'A') + 10
	default:
		return -1
	}
}

func parseFloatBestEffort(digits string) float64 {
	intPart, fracPart, expPart := digits, "", ""
	if i := strings.IndexByte(digits, 'e'); i >= 0 {
		expPart = digits[i+1:]
		digits = digits[:i]
	} else if i := strings.IndexByte(digits, 'E'); i >= 0 {
		expPart = digits[i+1:]
		digits = digits[:i]
	}
	intPart, fracPart, _ = strings.Cut(digits, ".")

	var whole float64
	for i := 0; i < len(intPart); i++ {
		if isDigit(intPart[i]) {
			whole = whole*10 + float64(intPart[i]-'0')
		}
	}
	var frac float64
	scale := 1.0
	for i := 0; i < len(fracPart); i++ {
		if isDigit(fracPart[i]) {
			scale /= 10
			frac += float64(fracPart[i]-'0') * scale
		}
	}
	value := whole + frac

	if expPart != "" {
		neg := false
		if expPart[0] == '+' || expPart[0] == '-' {
			neg = expPart[0] == '-'
			expPart = expPart[1:]
		}
		var exp int
		for i := 0; i < len(expPart); i++ {
			if isDigit(expPart[i]) {
				exp = exp*10 + int(expPart[i]-'0')
			}
		}
		for i := 0; i < exp; i++ {
			if neg {
				value /= 10
			} else {
				value *= 10
			}
		}
	}
	return value
}

// lexDynString reads a `"..."` dynamic string or `"""..."""` long dynamic
// string. Interpolation placeholders are left in the returned text for the
// parser's dynamic-string splitter to find; only backslash escapes and the
// closing quote(s) are interpreted here.
func (l *Lexer) lexDynString(start token.Position) token.Token {
	long := l.at(1) == '"' && l.at(2) == '"'
	if long {
		l.advance()
		l.advance()
		l.advance()
	} else {
		l.advance()
	}

	var b strings.Builder
	hasEscapes := false
	for {
		if l.eof() {
			return l.errorTok(start, "unterminated string literal")
		}
		if l.cur() == '"' {
			if !long {
				l.advance()
				break
			}
			if l.at(1) == '"' && l.at(2) == '"' {
				l.advance()
				l.advance()
				l.advance()
				break
			}
			b.WriteByte(l.advance())
			continue
		}
		if l.cur() == '\\' {
			hasEscapes = true
			l.advance()
			ch, ok, msg := l.readEscape()
			if !ok {
				return l.errorTok(start, msg)
			}
			b.WriteRune(ch)
			continue
		}
		if !long && (l.cur() == '\n' || l.cur() == '\r') {
			return l.errorTok(start, "disallowed control character inside single-line string")
		}
		b.WriteByte(l.advance())
	}

	kind := token.DynString
	if long {
		kind = token.LongDynString
	}
	tok := l.simpleTok(start, kind)
	tok.Payload.Text = b.String()
	tok.HasEscapes = hasEscapes
	return tok
}

// lexRawOrChar reads `'...'`/`''...''` raw strings (no escape processing)
// or a `'c'` char/Uni literal.
func (l *Lexer) lexRawOrChar(start token.Position) token.Token {
	long := l.at(1) == '\''
	if long {
		l.advance()
		l.advance()
	} else {
		l.advance()
	}

	var b strings.Builder
	for {
		if l.eof() {
			return l.errorTok(start, "unterminated string literal")
		}
		if l.cur() == '\'' {
			if !long {
				l.advance()
				break
			}
			if l.at(1) == '\'' {
				l.advance()
				l.advance()
				break
			}
		}
		b.WriteByte(l.advance())
	}

	text := b.String()
	if !long && utf8.RuneCountInString(text) == 1 {
		r, _ := utf8.DecodeRuneInString(text)
		tok := l.simpleTok(start, token.Char)
		if r > 0x7F {
			tok.Kind = token.Uni
		}
		tok.Payload.Char = r
		return tok
	}

	kind := token.RawString
	if long {
		kind = token.LongRawString
	}
	tok := l.simpleTok(start, kind)
	tok.Payload.Text = text
	return tok
}

// readEscape interprets one backslash escape sequence (the backslash
// itself has already been consumed) and returns the decoded rune.
func (l *Lexer) readEscape() (rune, bool, string) {
	if l.eof() {
		return 0, false, "unterminated escape sequence"
	}
	switch l.cur() {
	case 'a':
		l.advance()
		return '\a', true, ""
	case 'b':
		l.advance()
		return '\b', true, ""
	case 't':
		l.advance()
		return '\t', true, ""
	case 'n':
		l.advance()
		return '\n', true, ""
	case 'v':
		l.advance()
		return '\v', true, ""
	case 'f':
		l.advance()
		return '\f', true, ""
	case 'r':
		l.advance()
		return '\r', true, ""
	case 'e':
		l.advance()
		return 0x1B, true, ""
	case '\\':
		l.advance()
		return '\\', true, ""
	case '\'':
		l.advance()
		return '\'', true, ""
	case '"':
		l.advance()
		return '"', true, ""
	case 'x':
		l.advance()
		return l.readHexEscape(2)
	case 'u':
		l.advance()
		return l.readUnicodeEscape()
	default:
		if isDigit(l.cur()) {
			return l.readDecimalEscape()
		}
		return 0, false, "bad escape sequence"
	}
}

func (l *Lexer) readHexEscape(digits int) (rune, bool, string) {
	var v int
	for i := 0; i < digits; i++ {
		d := digitValue(l.cur())
		if d < 0 || d >= 16 {
			return 0, false, "bad escape sequence"
		}
		v = v*16 + d
		l.advance()
	}
	return rune(v), true, ""
}

// readUnicodeEscape reads `\uHHHH..;`: one or more hex digits terminated by
// a semicolon.
func (l *Lexer) readUnicodeEscape() (rune, bool, string) {
	var v int
	count := 0
	for {
		d := digitValue(l.cur())
		if d < 0 || d >= 16 {
			break
		}
		v = v*16 + d
		count++
		l.advance()
	}
	if count == 0 || l.cur() != ';' {
		return 0, false, "bad escape sequence"
	}
	l.advance()
	return rune(v), true, ""
}

// readDecimalEscape reads `\DDD`: up to three decimal digits, whose value
// must not exceed 255.
func (l *Lexer) readDecimalEscape() (rune, bool, string) {
	v := 0
	count := 0
	for count < 3 && isDigit(l.cur()) {
		v = v*10 + int(l.cur()-'0')
		l.advance()
		count++
	}
	if v > 255 {
		return 0, false, "decimal escape out of range (must be <= 255)"
	}
	return rune(v), true, ""
}

// lexHash dispatches `##` (cons), `#!` (hashbang comment), `#/.../flags`
// (regex loanword), and `#name` (named loanword).
func (l *Lexer) lexHash(start token.Position) token.Token {
	l.advance() // consume '#'

	switch l.cur() {
	case '#':
		l.advance()
		return l.simpleTok(start, token.DoubleHash)
	case '!':
		l.advance()
		for !l.eof() && l.cur() != '\n' && l.cur() != '\r' {
			l.advance()
		}
		return l.lex()
	case '/':
		return l.lexRegexLoanword(start)
	default:
		return l.lexNamedLoanword(start)
	}
}

func (l *Lexer) lexRegexLoanword(start token.Position) token.Token {
	l.advance() // consume '/'
	begin := l.pos
	for {
		if l.eof() {
			return l.errorTok(start, "unterminated regex literal")
		}
		if l.cur() == '\\' {
			l.advance()
			if !l.eof() {
				l.advance()
			}
			continue
		}
		if l.cur() == '/' {
			break
		}
		l.advance()
	}
	pattern := string(l.input[begin:l.pos])
	l.advance() // consume closing '/'

	flagsBegin := l.pos
	for isAlpha(l.cur()) {
		l.advance()
	}
	flags := string(l.input[flagsBegin:l.pos])

	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		default:
			return l.errorTok(start, "unknown regex flag '"+string(f)+"'")
		}
	}

	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return l.errorTok(start, "invalid regex literal: "+err.Error())
	}

	tok := l.simpleTok(start, token.LoanwordRegex)
	tok.Payload.Ptr = re
	tok.Payload.Text = pattern
	return tok
}

func (l *Lexer) lexNamedLoanword(start token.Position) token.Token {
	begin := l.pos
	for isIdentCont(l.cur()) {
		l.advance()
	}
	name := string(l.input[begin:l.pos])
	if name == "" {
		return l.errorTok(start, "expected a loanword name after '#'")
	}
	tok := l.simpleTok(start, token.LoanwordSyntax)
	tok.Payload.Text = name
	if kind, ok := token.LookupLoanword(name); ok {
		tok.Kind = kind
		return tok
	}
	// Unrecognized loanwords are not lexer errors: user code may have
	// registered its own via `#syntax`/`#include`; the parser resolves the
	// name against the scope's loanword table.
	return tok
}

// lexPunctuation reads one of the fixed single/multi-character punctuation
// tokens, applying the EqualWithoutWhitespace disambiguation to '='.
func (l *Lexer) lexPunctuation(start token.Position) token.Token {
	precededByNonWhitespace := l.pos > 0 && !isWhitespaceByte(l.input[l.pos-1])
	ch := l.advance()

	switch ch {
	case '{':
		return l.simpleTok(start, token.LeftBrace)
	case '}':
		return l.simpleTok(start, token.RightBrace)
	case '(':
		return l.simpleTok(start, token.LeftParen)
	case ')':
		return l.simpleTok(start, token.RightParen)
	case '[':
		return l.simpleTok(start, token.LeftBracket)
	case ']':
		return l.simpleTok(start, token.RightBracket)
	case '|':
		return l.simpleTok(start, token.Bar)
	case '`':
		return l.simpleTok(start, token.Backtick)
	case ':':
		return l.simpleTok(start, token.Colon)
	case ',':
		return l.simpleTok(start, token.Comma)
	case ';':
		return l.simpleTok(start, token.Semicolon)
	case '@':
		if l.cur() == '@' {
			l.advance()
			return l.simpleTok(start, token.AtAt)
		}
		return l.simpleTok(start, token.At)
	case '=':
		switch {
		case l.cur() == '=' && l.at(1) == '=':
			l.advance()
			l.advance()
			return l.simpleTok(start, token.SuperEq)
		case l.cur() == '=':
			l.advance()
			return l.simpleTok(start, token.Eq)
		case precededByNonWhitespace:
			return l.simpleTok(start, token.EqualWithoutWhitespace)
		default:
			return l.simpleTok(start, token.Equal)
		}
	case '!':
		switch {
		case l.cur() == '=' && l.at(1) == '=':
			l.advance()
			l.advance()
			return l.simpleTok(start, token.SuperNe)
		case l.cur() == '=':
			l.advance()
			return l.simpleTok(start, token.Ne)
		}
	case '<':
		if l.cur() == '=' {
			l.advance()
			return l.simpleTok(start, token.Le)
		}
		return l.simpleTok(start, token.Lt)
	case '>':
		if l.cur() == '=' {
			l.advance()
			return l.simpleTok(start, token.Ge)
		}
		return l.simpleTok(start, token.Gt)
	}

	// Anything else made of punctuation characters forms a multi-char
	// operator name (PunctName), e.g. `+`, `*`, `**`, `+/`.
	if isPunctChar(ch) {
		begin := l.pos - 1
		for isPunctChar(l.cur()) {
			l.advance()
		}
		text := string(l.input[begin:l.pos])
		tok := l.simpleTok(start, token.PunctName)
		tok.Payload.Text = text
		tok.Payload.Sym = l.syms.GetOrCreate(text)
		return tok
	}

	return l.errorTok(start, "unexpected character '"+string(ch)+"'")
}

func isWhitespaceByte(ch byte) bool { return ch <= 0x20 }

func isPunctChar(ch byte) bool {
	switch ch {
	case '+', '-', '*', '/', '%', '^', '&', '~', '?', '\\':
		return true
	}
	return false
}
