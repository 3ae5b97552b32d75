package parser

import (
	"testing"

	"github.com/smile-lang/smile/diagnostic"
	"github.com/smile-lang/smile/parsescope"
	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/value"
)

func newTestParser(src string) (*Parser, *diagnostic.List) {
	syms := symbol.New()
	known := symbol.PreloadKnown(syms)
	root := parsescope.NewRoot()
	diags := &diagnostic.List{}
	return New("<test>", []byte(src), syms, known, root, diags), diags
}

func headSymbol(t *testing.T, a value.Arg, syms *symbol.Table) string {
	t.Helper()
	items, ok := value.ToSlice(a)
	if !ok || len(items) == 0 {
		t.Fatalf("expected a non-empty proper list, got %s", a.String())
	}
	sym, ok := value.AsSymbol(items[0])
	if !ok {
		t.Fatalf("expected the head to be a symbol, got %s", items[0].String())
	}
	return syms.GetName(sym)
}

func TestParseIntegerLiteral(t *testing.T) {
	p, diags := newTestParser("42")
	res := p.ParseExpr(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s)", res.Kind, res.Message)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	n, ok := value.AsInt32(res.Expr)
	if !ok || n != 42 {
		t.Fatalf("expected a width-preserving int32 42, got %v", res.Expr)
	}
}

func TestParseVarDeclaration(t *testing.T) {
	p, _ := newTestParser("var x = 5")
	res := p.ParseStmt(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s)", res.Kind, res.Message)
	}
	syms := p.syms
	if got := headSymbol(t, res.Expr, syms); got != "$set" {
		t.Fatalf("expected head $set, got %q", got)
	}
}

func TestParseIfThenElse(t *testing.T) {
	p, diags := newTestParser("if x then 1 else 2")
	p.scope.DeclareHere(p.syms.GetOrCreate("x"), parsescope.DeclVariable, parsescope.Position{})
	res := p.ParseStmt(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s) diags=%v", res.Kind, res.Message, diags.Messages())
	}
	if got := headSymbol(t, res.Expr, p.syms); got != "$if" {
		t.Fatalf("expected head $if, got %q", got)
	}
	items, _ := value.ToSlice(res.Expr)
	if len(items) != 4 {
		t.Fatalf("expected [$if cond then else], got %d items", len(items))
	}
}

func TestParseWhileDo(t *testing.T) {
	p, _ := newTestParser("while true do 1")
	p.scope.DeclareHere(p.syms.GetOrCreate("true"), parsescope.DeclVariable, parsescope.Position{})
	res := p.ParseStmt(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s)", res.Kind, res.Message)
	}
	if got := headSymbol(t, res.Expr, p.syms); got != "$while" {
		t.Fatalf("expected head $while, got %q", got)
	}
}

func TestParseFnLiteralDeclaresArgsInScope(t *testing.T) {
	p, diags := newTestParser("|x, y| x")
	res := p.ParseTerm(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s) diags=%v", res.Kind, res.Message, diags.Messages())
	}
	if got := headSymbol(t, res.Expr, p.syms); got != "$fn" {
		t.Fatalf("expected head $fn, got %q", got)
	}
}

func TestParseAdditionBuildsMethodCall(t *testing.T) {
	p, diags := newTestParser("1 + 2")
	res := p.ParseExpr(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s) diags=%v", res.Kind, res.Message, diags.Messages())
	}
	items, ok := value.ToSlice(res.Expr)
	if !ok || len(items) != 2 {
		t.Fatalf("expected a two-element call list [recv.op arg], got %s", res.Expr.String())
	}
	if got := headSymbol(t, items[0], p.syms); got != "$dot" {
		t.Fatalf("expected the callee to be a $dot form, got %q", got)
	}
}

func TestParseDynStringWithoutInterpolationReturnsVerbatim(t *testing.T) {
	p, _ := newTestParser(`"hello"`)
	res := p.ParseTerm(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s)", res.Kind, res.Message)
	}
	s, ok := value.AsString(res.Expr)
	if !ok || s != "hello" {
		t.Fatalf("expected string %q, got %v", "hello", res.Expr)
	}
}

func TestSplitDynStringHandlesEscapesAndPlaceholders(t *testing.T) {
	pieces := splitDynString(`a{x}b{{literal}}c\{d`)
	want := []dynStringPiece{
		{text: "a"},
		{text: "x", isExpr: true},
		{text: "b{literal}c{d"},
	}
	if len(pieces) != len(want) {
		t.Fatalf("expected %d pieces, got %d: %#v", len(want), len(pieces), pieces)
	}
	for i, p := range pieces {
		if p != want[i] {
			t.Fatalf("piece %d: expected %#v, got %#v", i, want[i], p)
		}
	}
}

func TestParseTillProducesFlagsBodyWhens(t *testing.T) {
	p, diags := newTestParser("till found do 1 when found: 2")
	res := p.ParseStmt(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s) diags=%v", res.Kind, res.Message, diags.Messages())
	}
	items, ok := value.ToSlice(res.Expr)
	if !ok || len(items) != 4 {
		t.Fatalf("expected [$till flags body whens], got %s", res.Expr.String())
	}
	if got := headSymbol(t, res.Expr, p.syms); got != "$till" {
		t.Fatalf("expected head $till, got %q", got)
	}
	flags, ok := value.ToSlice(items[1])
	if !ok || len(flags) != 1 {
		t.Fatalf("expected one flag, got %s", items[1].String())
	}
}

func TestParseErrorRecoveryContinuesAtNextStatement(t *testing.T) {
	p, diags := newTestParser("var = 1 var y = 2")
	res := p.ParseProgram()
	if res.Kind != ResultExpr {
		t.Fatalf("ParseProgram should never itself return an error, got %v", res.Kind)
	}
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for the malformed first declaration")
	}
}

func TestParseSyntaxDirectiveRegistersRule(t *testing.T) {
	p, diags := newTestParser("#syntax TERM : mylit : 42")
	res := p.ParseTerm(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s) diags=%v", res.Kind, res.Message, diags.Messages())
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	rules := p.scope.FindSyntaxRules(p.class.Term)
	if len(rules) != 1 {
		t.Fatalf("expected one TERM syntax rule registered, got %d", len(rules))
	}
	if len(rules[0].Pattern) != 1 || rules[0].Pattern[0].Terminal != p.syms.GetOrCreate("mylit") {
		t.Fatalf("expected a single 'mylit' terminal in the pattern, got %#v", rules[0].Pattern)
	}
	n, ok := value.AsInt32(rules[0].Template.(value.Arg))
	if !ok || n != 42 {
		t.Fatalf("expected the template to be the literal 42, got %v", rules[0].Template)
	}
}

func TestParseSyntaxDirectiveThenUsesRegisteredRule(t *testing.T) {
	p, diags := newTestParser("#syntax TERM : mylit : 42\nmylit")
	first := p.ParseTerm(ModeLineBreaksEnd)
	if first.Kind != ResultExpr || diags.HasErrors() {
		t.Fatalf("expected the #syntax directive to parse cleanly, got %v (%s) diags=%v", first.Kind, first.Message, diags.Messages())
	}
	second := p.ParseTerm(ModeLineBreaksEnd)
	if second.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr for 'mylit', got %v (%s) diags=%v", second.Kind, second.Message, diags.Messages())
	}
	n, ok := value.AsInt32(second.Expr)
	if !ok || n != 42 {
		t.Fatalf("expected the registered rule to expand 'mylit' to 42, got %v", second.Expr)
	}
}

func TestParseIncludeDirectiveRegistersLoanwordRule(t *testing.T) {
	p, diags := newTestParser("#include fancy-format")
	res := p.ParseTerm(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s) diags=%v", res.Kind, res.Message, diags.Messages())
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	target := p.syms.GetOrCreate("fancy-format")
	if p.scope.FindLoanwordRule(target) == nil {
		t.Fatalf("expected #include to register a loanword rule for 'fancy-format'")
	}
	if got := headSymbol(t, res.Expr, p.syms); got != "#include" {
		t.Fatalf("expected head #include, got %q", got)
	}
}

func TestCustomSyntaxRuleExpandsTemplate(t *testing.T) {
	p2, _ := newTestParser("unless-word")
	p2.scope.AddSyntaxRule(&parsescope.SyntaxRule{
		ClassSymbol: p2.class.Term,
		Pattern: []parsescope.PatternElem{
			{Terminal: p2.syms.GetOrCreate("unless-word")},
		},
		Template: value.Symbol(p2.syms.GetOrCreate("replaced")),
	})
	res := p2.ParseTerm(ModeLineBreaksEnd)
	if res.Kind != ResultExpr {
		t.Fatalf("expected ResultExpr, got %v (%s)", res.Kind, res.Message)
	}
	sym, ok := value.AsSymbol(res.Expr)
	if !ok || p2.syms.GetName(sym) != "replaced" {
		t.Fatalf("expected custom syntax to substitute 'replaced', got %v", res.Expr)
	}
}
