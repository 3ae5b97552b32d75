package compiler

import (
	"testing"

	"github.com/smile-lang/smile/code"
	"github.com/smile-lang/smile/compiledtables"
	"github.com/smile-lang/smile/diagnostic"
	"github.com/smile-lang/smile/parser"
	"github.com/smile-lang/smile/parsescope"
	"github.com/smile-lang/smile/symbol"
)

func compileSource(t *testing.T, src string) (*UserFunctionInfo, *compiledtables.Tables, *diagnostic.List) {
	t.Helper()
	syms := symbol.New()
	known := symbol.PreloadKnown(syms)
	root := parsescope.NewRoot()
	diags := &diagnostic.List{}
	p := parser.New("<test>", []byte(src), syms, known, root, diags)
	res := p.ParseProgram()
	if res.Kind != parser.ResultExpr {
		t.Fatalf("parse failed: %v (%s)", res.Kind, res.Message)
	}
	tables := compiledtables.New()
	c := New(syms, known, tables, diags)
	info := c.CompileProgram(res.Expr)
	return info, tables, diags
}

func opcodesOf(t *testing.T, seg *code.ByteCodeSegment) []code.Opcode {
	t.Helper()
	var ops []code.Opcode
	ins := seg.Instructions
	i := 0
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			t.Fatalf("bad opcode at offset %d: %v", i, err)
		}
		ops = append(ops, code.Opcode(ins[i]))
		_, read := code.ReadOperands(def, ins[i+1:])
		i += read + 1
	}
	return ops
}

func containsOp(ops []code.Opcode, want code.Opcode) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

// TestCompileIntegerLiteralEmitsLd32ThenRet exercises the literal from
// spec.md's Scenario 1 (`1 + 2` -> `Ld32 1; Ld32 2; Met1 "+"; Ret`): a
// suffix-less integer literal lexes Integer32 and must compile to Ld32, not
// the widest available opcode.
func TestCompileIntegerLiteralEmitsLd32ThenRet(t *testing.T) {
	info, _, diags := compileSource(t, "42")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	if !containsOp(ops, code.Ld32) {
		t.Fatalf("expected Ld32 among %v", ops)
	}
	if containsOp(ops, code.Ld64) {
		t.Fatalf("a plain Integer32 literal should never widen to Ld64, got %v", ops)
	}
	if ops[len(ops)-1] != code.Ret {
		t.Fatalf("expected the function to end in Ret, got %v", ops)
	}
}

// TestCompileAdditionMatchesScenario1Bytecode asserts spec.md's Scenario 1
// expected instruction sequence verbatim.
func TestCompileAdditionMatchesScenario1Bytecode(t *testing.T) {
	info, _, diags := compileSource(t, "1 + 2")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	want := []code.Opcode{code.Ld32, code.Ld32, code.Met1, code.Ret}
	if len(ops) != len(want) {
		t.Fatalf("expected %v, got %v", want, ops)
	}
	for i, op := range want {
		if ops[i] != op {
			t.Fatalf("expected %v, got %v", want, ops)
		}
	}
}

// indexOfOp returns the first index of op in ops, or -1.
func indexOfOp(ops []code.Opcode, op code.Opcode) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}

// TestCompileVarDeclarationEmitsNullLoc0ThenStLoc exercises spec.md's
// Scenario 2 (`var x = 42; x * 2`): the parser wraps the declaration in
// `[$scope [x] ...]`, so the compiler must reserve x's slot and emit
// NullLoc0 before the assignment's StLoc and the later read's LdLoc0, using
// Met1 (not a generic Call) for the multiplication.
func TestCompileVarDeclarationEmitsNullLoc0ThenStLoc(t *testing.T) {
	info, _, diags := compileSource(t, "var x = 42\nx * 2")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	nullLoc0, stLoc, ldLoc0, met1 := indexOfOp(ops, code.NullLoc0), indexOfOp(ops, code.StLoc), indexOfOp(ops, code.LdLoc0), indexOfOp(ops, code.Met1)
	if nullLoc0 < 0 || stLoc < 0 || ldLoc0 < 0 || met1 < 0 {
		t.Fatalf("expected NullLoc0, StLoc, LdLoc0 and Met1 all present, got %v", ops)
	}
	if !(nullLoc0 < stLoc && stLoc < ldLoc0 && ldLoc0 < met1) {
		t.Fatalf("expected NullLoc0 < StLoc < LdLoc0 < Met1, got %v", ops)
	}
	if ops[len(ops)-1] != code.Ret {
		t.Fatalf("expected the function to end in Ret, got %v", ops)
	}
	if info.NumVars != 1 {
		t.Fatalf("expected exactly one local variable slot, got %d", info.NumVars)
	}
}

func TestCompileIfThenElseEmitsConditionalBranch(t *testing.T) {
	info, _, diags := compileSource(t, "var x = 1\nif x then 1 else 2")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	if !containsOp(ops, code.Bf) {
		t.Fatalf("expected a Bf branch for the if's condition, got %v", ops)
	}
	if !containsOp(ops, code.Jmp) {
		t.Fatalf("expected a Jmp skipping the else branch, got %v", ops)
	}
}

func TestCompileWhileLoopEmitsBackwardJump(t *testing.T) {
	info, _, diags := compileSource(t, "var x = true\nwhile x do 1")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	if !containsOp(ops, code.Bf) || !containsOp(ops, code.Jmp) {
		t.Fatalf("expected both a loop-exit Bf and a backward Jmp, got %v", ops)
	}
}

func TestCompileAdditionUsesMet1MethodCall(t *testing.T) {
	info, _, diags := compileSource(t, "1 + 2")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	if !containsOp(ops, code.Met1) {
		t.Fatalf("expected a one-arg method call (Met1) for '+', got %v", ops)
	}
	if containsOp(ops, code.Call) {
		t.Fatalf("a dotted binary operator should not fall back to a generic Call, got %v", ops)
	}
}

func TestCompileFnLiteralProducesNestedUserFunctionInfo(t *testing.T) {
	info, tables, diags := compileSource(t, "|x| x")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	if !containsOp(ops, code.NewFn) {
		t.Fatalf("expected NewFn for the fn literal, got %v", ops)
	}
	nested, ok := tables.UserFunctionInfo(1).(*UserFunctionInfo)
	if !ok || nested.NumArgs != 1 {
		t.Fatalf("expected the pool's second entry to be a nested one-argument UserFunctionInfo, got %#v", nested)
	}
}

func TestCompileTillResolvesWhenBranchTarget(t *testing.T) {
	_, tables, diags := compileSource(t, "till found do 1 when found: 2")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	if len(tables.TillInfos) != 1 {
		t.Fatalf("expected one till-continuation-info entry, got %d", len(tables.TillInfos))
	}
	flags := tables.TillInfos[0].Flags
	if len(flags) != 1 {
		t.Fatalf("expected one flag, got %d", len(flags))
	}
	if flags[0].ResolvedTarget <= 0 {
		t.Fatalf("expected the when-handler's branch target to resolve to a nonzero pc, got %d", flags[0].ResolvedTarget)
	}
}

func TestCompileQuoteInternsObjectConstant(t *testing.T) {
	info, _, diags := compileSource(t, "`42")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Messages())
	}
	ops := opcodesOf(t, info.Segment)
	if !containsOp(ops, code.LdObj) {
		t.Fatalf("expected LdObj for a quoted literal, got %v", ops)
	}
}
