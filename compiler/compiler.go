// Package compiler lowers the s-expression AST the parser builds into
// linear [code.ByteCodeSegment] bytecode: one segment per function, the
// outermost program included, threading source-location and till-escape
// metadata into a shared [compiledtables.Tables].
//
// The compiler never panics on malformed input. Anything it cannot make
// sense of is reported through a [diagnostic.List] and compiled as a
// harmless LdNull, so a caller driving many top-level forms through one
// Compiler still gets bytecode for everything that did make sense.
package compiler

import (
	"math"

	"github.com/smile-lang/smile/code"
	"github.com/smile-lang/smile/compiledtables"
	"github.com/smile-lang/smile/diagnostic"
	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/token"
	"github.com/smile-lang/smile/value"
)

// UserFunctionInfo is the static shape of one compiled function: its
// argument/variable counts, the high-water stack size its frame must
// allocate, and its finished instructions. The compiler interns these by
// pointer identity into Tables as soon as it starts compiling the function
// body, so a till flag declared inside can record a [compiledtables.BranchTargetRef]
// against its eventual index before the body — and its final instruction
// count — are known.
type UserFunctionInfo struct {
	Name    string
	NumArgs int
	NumVars int

	// TempSize is the high-water mark of the function's operand stack,
	// the frame size a caller must reserve.
	TempSize int32

	Segment *code.ByteCodeSegment
}

// ilInstr is one not-yet-linearized instruction, or (when op is code.Label)
// a placeholder marking a jump target whose absolute pc is assigned only
// once the whole function's instructions are laid out.
type ilInstr struct {
	op        code.Opcode
	operands  []int
	target    *ilInstr // non-nil for branch ops; resolved to target.pc at linearization
	sourceLoc int32
	pc        int32
}

// funcCtx is the compiler's state for one function currently being
// compiled: its growing instruction list, its local symbol table, and its
// running/high-water stack depth.
type funcCtx struct {
	parent *funcCtx

	scope  *CompileScope
	instrs []*ilInstr

	stackDepth int32
	highWater  int32

	funcIndex    int32
	info         *UserFunctionInfo
	assignedName string
}

// tillFlagRef is where one active till flag's escape calls should jump:
// which TillContinuationInfo it belongs to and its position within that
// info's Flags slice.
type tillFlagRef struct {
	infoIndex int32
	offset    int
}

// Compiler compiles one module's worth of top-level forms against a shared
// symbol table, well-known-symbol handle, and constant-pool Tables.
type Compiler struct {
	syms   *symbol.Table
	known  *symbol.Known
	tables *compiledtables.Tables
	diags  *diagnostic.List

	fn *funcCtx

	// funcsByIndex parallels Tables' user-function-info pool so till branch
	// targets (recorded as instruction-list indices during compilation) can
	// be turned into absolute pcs once every function has been linearized.
	funcsByIndex []*funcCtx

	tillFlags []map[symbol.Symbol]tillFlagRef
}

// New creates a Compiler sharing syms, known, tables, and diags with the
// parser that produced the AST it will compile.
func New(syms *symbol.Table, known *symbol.Known, tables *compiledtables.Tables, diags *diagnostic.List) *Compiler {
	return &Compiler{syms: syms, known: known, tables: tables, diags: diags}
}

// CompileProgram compiles ast — normally a `[$scope [vars] stmt...]` form
// wrapping a file's top-level statements — as the outermost zero-argument
// function,
// resolves every till escape target recorded along the way, and returns the
// finished UserFunctionInfo.
func (c *Compiler) CompileProgram(ast value.Arg) *UserFunctionInfo {
	info := c.compileFunction(nil, ast, "<program>")
	c.tables.ResolveTillBranchTargets(func(ref *compiledtables.BranchTargetRef) int32 {
		if ref.FunctionIndex < 0 || ref.FunctionIndex >= len(c.funcsByIndex) {
			return 0
		}
		owner := c.funcsByIndex[ref.FunctionIndex]
		if owner == nil || ref.InstrIndex < 0 || ref.InstrIndex >= len(owner.instrs) {
			return 0
		}
		return owner.instrs[ref.InstrIndex].pc
	})
	return info
}

// compileFunction compiles one function body against a fresh CompileScope
// with args (already-interned parameter names, in order) bound, and returns
// its finished UserFunctionInfo.
func (c *Compiler) compileFunction(args []symbol.Symbol, body value.Arg, name string) *UserFunctionInfo {
	var outerScope *CompileScope
	if c.fn != nil {
		outerScope = c.fn.scope
	}
	fn := &funcCtx{parent: c.fn, scope: NewCompileScope(outerScope)}
	for _, a := range args {
		fn.scope.DefineArg(a)
	}

	info := &UserFunctionInfo{Name: name, NumArgs: len(args)}
	fn.info = info
	fn.funcIndex = c.tables.AddUserFunctionInfo(info)

	c.fn = fn
	c.funcsByIndex = growFuncs(c.funcsByIndex, fn.funcIndex, fn)

	c.compileNode(body)
	c.emit(c.posOf(body), code.Ret, -1)

	info.NumVars = fn.scope.NumVars()
	info.TempSize = fn.highWater
	info.Segment = c.linearize(fn)

	c.fn = fn.parent
	return info
}

func growFuncs(slice []*funcCtx, idx int32, fn *funcCtx) []*funcCtx {
	for int32(len(slice)) <= idx {
		slice = append(slice, nil)
	}
	slice[idx] = fn
	return slice
}

// posOf returns the source position a compiled node's list cell carries, or
// the zero Position for synthesized/atomic nodes.
func (c *Compiler) posOf(a value.Arg) token.Position {
	if l := value.AsList(a); l != nil && l.Pos != nil {
		return *l.Pos
	}
	return token.Position{}
}

// emit appends one fixed-operand instruction, recording its source location
// and adjusting the running/high-water stack depth by delta.
func (c *Compiler) emit(pos token.Position, op code.Opcode, delta int, operands ...int) *ilInstr {
	loc := c.tables.AddSourceLocation(compiledtables.SourceLocation{Pos: pos, AssignedName: c.fn.assignedName})
	instr := &ilInstr{op: op, operands: operands, sourceLoc: loc}
	c.fn.instrs = append(c.fn.instrs, instr)
	c.adjustStack(delta)
	return instr
}

// emitBranch appends a branch instruction whose operand — the target's
// absolute pc — is filled in only at linearization, once target's own
// position in the instruction stream is known.
func (c *Compiler) emitBranch(pos token.Position, op code.Opcode, delta int, target *ilInstr) *ilInstr {
	loc := c.tables.AddSourceLocation(compiledtables.SourceLocation{Pos: pos, AssignedName: c.fn.assignedName})
	instr := &ilInstr{op: op, target: target, sourceLoc: loc}
	c.fn.instrs = append(c.fn.instrs, instr)
	c.adjustStack(delta)
	return instr
}

// newLabel creates an unplaced jump-target marker. Call placeLabel once the
// compiler reaches the point it should mark.
func (c *Compiler) newLabel() *ilInstr { return &ilInstr{op: code.Label} }

// placeLabel marks l's position as the next instruction to be emitted.
func (c *Compiler) placeLabel(l *ilInstr) {
	c.fn.instrs = append(c.fn.instrs, l)
}

func (c *Compiler) adjustStack(delta int) {
	c.fn.stackDepth += int32(delta)
	if c.fn.stackDepth > c.fn.highWater {
		c.fn.highWater = c.fn.stackDepth
	}
}

// linearize assigns every instruction in fn its absolute byte offset,
// resolves branch targets against those offsets, and encodes the result
// into a ByteCodeSegment. Label markers occupy no bytes: their pc is the
// offset of whatever follows them.
func (c *Compiler) linearize(fn *funcCtx) *code.ByteCodeSegment {
	pc := int32(0)
	for _, instr := range fn.instrs {
		instr.pc = pc
		if instr.op == code.Label {
			continue
		}
		def, err := code.Lookup(byte(instr.op))
		if err != nil {
			continue
		}
		width := int32(1)
		for _, w := range def.OperandWidths {
			width += int32(w)
		}
		pc += width
	}

	seg := code.NewByteCodeSegment()
	for _, instr := range fn.instrs {
		if instr.op == code.Label {
			continue
		}
		operands := instr.operands
		if instr.target != nil {
			operands = []int{int(instr.target.pc)}
		}
		seg.Append(code.Make(instr.op, operands...), instr.sourceLoc)
	}
	return seg
}

// listItems returns node's elements and true when node is a proper list, or
// nil, false otherwise.
func listItems(node value.Arg) ([]value.Arg, bool) {
	return value.ToSlice(node)
}

// headForm returns node's head symbol and remaining elements when node is a
// non-empty proper list headed by a symbol.
func headForm(node value.Arg) (symbol.Symbol, []value.Arg, bool) {
	items, ok := listItems(node)
	if !ok || len(items) == 0 {
		return 0, nil, false
	}
	sym, ok := value.AsSymbol(items[0])
	if !ok {
		return 0, nil, false
	}
	return sym, items[1:], true
}

// compileNode compiles one AST node, leaving exactly one value on the
// operand stack.
func (c *Compiler) compileNode(node value.Arg) {
	pos := c.posOf(node)

	if sym, ok := value.AsSymbol(node); ok {
		c.compileSymbolRef(pos, sym)
		return
	}
	if node.IsNull() {
		c.emit(pos, code.LdNull, 1)
		return
	}
	if b, ok := value.AsByte(node); ok {
		c.emit(pos, code.Ld8, 1, int(b))
		return
	}
	if n, ok := value.AsInt16(node); ok {
		c.emit(pos, code.Ld16, 1, int(n))
		return
	}
	if n, ok := value.AsInt32(node); ok {
		c.emit(pos, code.Ld32, 1, int(n))
		return
	}
	if n, ok := value.AsInt64(node); ok {
		c.emit(pos, code.Ld64, 1, int(n))
		return
	}
	if f, ok := value.AsFloat32(node); ok {
		c.emit(pos, code.Ld32, 1, int(math.Float32bits(f)))
		return
	}
	if f, ok := value.AsReal32(node); ok {
		c.emit(pos, code.Ld32, 1, int(math.Float32bits(f)))
		return
	}
	if f, ok := value.AsFloat64(node); ok {
		c.emit(pos, code.Ld64, 1, int(math.Float64bits(f)))
		return
	}
	if f, ok := value.AsReal64(node); ok {
		c.emit(pos, code.Ld64, 1, int(math.Float64bits(f)))
		return
	}
	if ch, ok := value.AsChar(node); ok {
		c.emit(pos, code.Ld32, 1, int(ch))
		return
	}
	if b, ok := value.AsBool(node); ok {
		v := 0
		if b {
			v = 1
		}
		c.emit(pos, code.LdBool, 1, v)
		return
	}
	if s, ok := value.AsString(node); ok {
		idx := c.tables.AddString(s)
		c.emit(pos, code.LdStr, 1, int(idx))
		return
	}

	sym, rest, ok := headForm(node)
	if !ok {
		c.diags.Errorf(pos, "cannot compile malformed expression %s", node.String())
		c.emit(pos, code.LdNull, 1)
		return
	}

	switch sym {
	case c.known.Set:
		c.compileSet(pos, rest)
	case c.known.OpSet:
		c.compileOpSet(pos, rest)
	case c.known.If:
		c.compileIf(pos, rest)
	case c.known.While:
		c.compileWhile(pos, rest)
	case c.known.Till:
		c.compileTill(pos, rest)
	case c.known.Catch:
		c.compileCatch(pos, rest)
	case c.known.Return:
		c.compileReturn(pos, rest)
	case c.known.Fn:
		c.compileFn(pos, rest)
	case c.known.Quote:
		c.compileQuote(pos, rest)
	case c.known.Prog1:
		c.compileProg1(pos, rest)
	case c.known.ProgN:
		c.compileProgN(pos, rest)
	case c.known.Scope:
		c.compileScope(pos, rest)
	case c.known.New:
		c.compileNew(pos, rest)
	case c.known.Dot:
		c.compileDot(pos, rest)
	case c.known.Index:
		c.compileIndex(pos, rest)
	case c.known.Is:
		c.compileBinaryOp(pos, rest, code.Is, -1)
	case c.known.TypeOf:
		c.compileUnaryOp(pos, rest, code.TypeOf, 0)
	case c.known.Eq:
		c.compileBinaryOp(pos, rest, code.SuperEq, -1)
	case c.known.Ne:
		c.compileBinaryOp(pos, rest, code.SuperNe, -1)
	case c.known.And:
		c.compileAnd(pos, rest)
	case c.known.Or:
		c.compileOr(pos, rest)
	case c.known.Not:
		c.compileUnaryOp(pos, rest, code.Not, 0)
	default:
		c.compileCall(pos, node)
	}
}

func (c *Compiler) compileSymbolRef(pos token.Position, sym symbol.Symbol) {
	if local, depth, ok := c.fn.scope.Resolve(sym); ok {
		if depth > 0 {
			local.ReadFromNested = true
			c.emit(pos, code.LdX, 1, depth, local.Index)
			return
		}
		if local.Kind == LocalArg {
			c.emitLdArg(pos, local.Index)
		} else {
			c.emitLdLoc(pos, local.Index)
		}
		return
	}
	idx := c.tables.AddString(c.syms.GetName(sym))
	c.emit(pos, code.LdGlobal, 1, int(idx))
}

func (c *Compiler) emitLdArg(pos token.Position, index int) {
	switch index {
	case 0:
		c.emit(pos, code.LdArg0, 1)
	case 1:
		c.emit(pos, code.LdArg1, 1)
	case 2:
		c.emit(pos, code.LdArg2, 1)
	case 3:
		c.emit(pos, code.LdArg3, 1)
	default:
		c.emit(pos, code.LdArg, 1, index)
	}
}

func (c *Compiler) emitLdLoc(pos token.Position, index int) {
	switch index {
	case 0:
		c.emit(pos, code.LdLoc0, 1)
	case 1:
		c.emit(pos, code.LdLoc1, 1)
	case 2:
		c.emit(pos, code.LdLoc2, 1)
	case 3:
		c.emit(pos, code.LdLoc3, 1)
	default:
		c.emit(pos, code.LdLoc, 1, index)
	}
}

// compileStore compiles an assignment to a bare-symbol lvalue, leaving the
// stored value on the stack (so `$set`/`$opset` remain usable as
// expressions): it duplicates the freshly computed value before popping the
// duplicate into the target slot.
//
// The parser erases the distinction between `var x = ...` and a plain
// `x = ...` into the same `[$set x ...]` shape (parsescope tracks the
// declaration kind, not the compiler). This compiler resolves that by
// auto-vivifying a new local slot the first time a function assigns a name
// it has never seen before, reserving LdGlobal/StGlobal for names a
// function only ever reads — e.g. a reference to a prelude builtin.
func (c *Compiler) compileStore(pos token.Position, sym symbol.Symbol) {
	c.emit(pos, code.Dup1, 1)
	if local, depth, ok := c.fn.scope.Resolve(sym); ok {
		if depth > 0 {
			local.WriteFromNested = true
			c.emit(pos, code.StX, -1, depth, local.Index)
			return
		}
		if local.Kind == LocalArg {
			c.emit(pos, code.StArg, -1, local.Index)
		} else {
			c.emit(pos, code.StLoc, -1, local.Index)
		}
		return
	}
	local := c.fn.scope.DefineVar(sym)
	c.emit(pos, code.StLoc, -1, local.Index)
}

// compileAssignTo compiles a store to any assignable lvalue form: a bare
// name, a `[$dot recv prop]`, or a `[$index recv key]`. The value to store
// must already be on the stack.
func (c *Compiler) compileAssignTo(pos token.Position, lvalue value.Arg) {
	if sym, ok := value.AsSymbol(lvalue); ok {
		c.compileStore(pos, sym)
		return
	}
	if formSym, items, ok := headForm(lvalue); ok && formSym == c.known.Dot && len(items) == 2 {
		c.compileNode(items[0])
		name, ok := value.AsSymbol(items[1])
		if !ok {
			c.diags.Errorf(pos, "dotted assignment target must be a property name")
			c.emit(pos, code.Pop2, -2)
			c.emit(pos, code.LdNull, 1)
			return
		}
		idx := c.tables.AddString(c.syms.GetName(name))
		// StProp (unlike StpProp) re-pushes the stored value, so $set on a
		// dotted lvalue stays usable as an expression: pops recv+value,
		// pushes value back.
		c.emit(pos, code.StProp, -1, int(idx))
		return
	}
	if formSym, items, ok := headForm(lvalue); ok && formSym == c.known.Index && len(items) == 2 {
		c.compileNode(items[0])
		c.compileNode(items[1])
		// StMember pops recv+key+value, pushes value back.
		c.emit(pos, code.StMember, -2)
		return
	}
	c.diags.Errorf(pos, "cannot assign to %s", lvalue.String())
	c.emit(pos, code.Pop1, -1)
	c.emit(pos, code.LdNull, 1)
}

func (c *Compiler) compileSet(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$set requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	name, simple := value.AsSymbol(items[0])
	prevName := c.fn.assignedName
	if simple {
		c.fn.assignedName = c.syms.GetName(name)
	}
	c.compileNode(items[1])
	c.fn.assignedName = prevName
	c.compileAssignTo(pos, items[0])
}

// compileOpSet compiles `[$opset op lvalue rvalue]` — a compound assignment
// such as `x += 1` — as loading the current value, invoking the one-arg
// method named by op, then assigning the result back.
func (c *Compiler) compileOpSet(pos token.Position, items []value.Arg) {
	if len(items) != 3 {
		c.diags.Errorf(pos, "$opset requires exactly 3 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	opSym, ok := value.AsSymbol(items[0])
	if !ok {
		c.diags.Errorf(pos, "$opset operator must be a symbol")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[1]) // current value of lvalue
	c.compileNode(items[2]) // rhs
	idx := c.tables.AddString(c.syms.GetName(opSym))
	c.emit(pos, code.Met1, -1, int(idx))
	c.compileAssignTo(pos, items[1])
}

func (c *Compiler) compileIf(pos token.Position, items []value.Arg) {
	if len(items) != 3 {
		c.diags.Errorf(pos, "$if requires exactly 3 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	elseLabel := c.newLabel()
	endLabel := c.newLabel()
	c.emitBranch(pos, code.Bf, -1, elseLabel)
	base := c.fn.stackDepth
	c.compileNode(items[1])
	c.emitBranch(pos, code.Jmp, 0, endLabel)
	c.placeLabel(elseLabel)
	c.fn.stackDepth = base
	c.compileNode(items[2])
	c.placeLabel(endLabel)
	c.fn.stackDepth = base + 1
}

func (c *Compiler) compileWhile(pos token.Position, items []value.Arg) {
	if len(items) != 3 {
		c.diags.Errorf(pos, "$while requires exactly 3 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	if !items[0].IsNull() {
		c.compileNode(items[0])
		c.emit(pos, code.Pop1, -1)
	}
	startLabel := c.newLabel()
	endLabel := c.newLabel()
	c.placeLabel(startLabel)
	c.compileNode(items[1])
	c.emitBranch(pos, code.Bf, -1, endLabel)
	base := c.fn.stackDepth
	c.compileNode(items[2])
	c.emit(pos, code.Pop1, -1)
	c.emitBranch(pos, code.Jmp, 0, startLabel)
	c.placeLabel(endLabel)
	c.fn.stackDepth = base
	c.emit(pos, code.LdNull, 1)
}

func (c *Compiler) compileTill(pos token.Position, items []value.Arg) {
	if len(items) != 3 {
		c.diags.Errorf(pos, "$till requires exactly 3 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	flagArgs, _ := listItems(items[0])
	info := &compiledtables.TillContinuationInfo{OwningFunction: int(c.fn.funcIndex)}
	flagSyms := make([]symbol.Symbol, 0, len(flagArgs))
	for _, fa := range flagArgs {
		fsym, ok := value.AsSymbol(fa)
		if !ok {
			continue
		}
		flagSyms = append(flagSyms, fsym)
		info.Flags = append(info.Flags, compiledtables.TillFlag{Name: c.syms.GetName(fsym)})
	}
	infoIdx := c.tables.AddTillContinuationInfo(info)

	flagMap := make(map[symbol.Symbol]tillFlagRef, len(flagSyms))
	for i, fsym := range flagSyms {
		flagMap[fsym] = tillFlagRef{infoIndex: infoIdx, offset: i}
	}
	c.tillFlags = append(c.tillFlags, flagMap)

	base := c.fn.stackDepth
	c.emit(pos, code.NewTill, 1, int(infoIdx))
	c.emit(pos, code.Pop1, -1)

	c.compileNode(items[1])
	endLabel := c.newLabel()
	c.emitBranch(pos, code.Jmp, 0, endLabel)

	whenArgs, _ := listItems(items[2])
	for _, w := range whenArgs {
		pair, ok := listItems(w)
		if !ok || len(pair) != 2 {
			continue
		}
		fsym, ok := value.AsSymbol(pair[0])
		if !ok {
			continue
		}
		handlerLabel := c.newLabel()
		c.placeLabel(handlerLabel)
		if ref, ok := flagMap[fsym]; ok && ref.offset < len(info.Flags) {
			info.Flags[ref.offset].BranchTarget = &compiledtables.BranchTargetRef{
				FunctionIndex: int(c.fn.funcIndex),
				InstrIndex:    len(c.fn.instrs) - 1,
			}
		}
		c.fn.stackDepth = base
		c.compileNode(pair[1])
		c.emitBranch(pos, code.Jmp, 0, endLabel)
	}

	c.placeLabel(endLabel)
	c.fn.stackDepth = base + 1
	c.tillFlags = c.tillFlags[:len(c.tillFlags)-1]
}

func (c *Compiler) lookupTillFlag(sym symbol.Symbol) (tillFlagRef, bool) {
	for i := len(c.tillFlags) - 1; i >= 0; i-- {
		if ref, ok := c.tillFlags[i][sym]; ok {
			return ref, true
		}
	}
	return tillFlagRef{}, false
}

// compileCatch compiles `[$catch body handlers]` by reusing the till
// mechanism: each handler clause is a flag-like branch target that runtime
// exception dispatch (outside this compiler's scope) selects by matching a
// raised exception against the handler's kind expression, named in
// TillFlag.Name for that purpose.
func (c *Compiler) compileCatch(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$catch requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	info := &compiledtables.TillContinuationInfo{OwningFunction: int(c.fn.funcIndex)}
	handlers, _ := listItems(items[1])
	for _, h := range handlers {
		pair, ok := listItems(h)
		if !ok || len(pair) != 2 {
			continue
		}
		info.Flags = append(info.Flags, compiledtables.TillFlag{Name: pair[0].String()})
	}
	infoIdx := c.tables.AddTillContinuationInfo(info)

	base := c.fn.stackDepth
	c.emit(pos, code.NewTill, 1, int(infoIdx))
	c.emit(pos, code.Pop1, -1)

	c.compileNode(items[0])
	endLabel := c.newLabel()
	c.emitBranch(pos, code.Jmp, 0, endLabel)

	for i, h := range handlers {
		pair, ok := listItems(h)
		if !ok || len(pair) != 2 {
			continue
		}
		handlerLabel := c.newLabel()
		c.placeLabel(handlerLabel)
		if i < len(info.Flags) {
			info.Flags[i].BranchTarget = &compiledtables.BranchTargetRef{
				FunctionIndex: int(c.fn.funcIndex),
				InstrIndex:    len(c.fn.instrs) - 1,
			}
		}
		c.fn.stackDepth = base
		c.compileNode(pair[1])
		c.emitBranch(pos, code.Jmp, 0, endLabel)
	}

	c.placeLabel(endLabel)
	c.fn.stackDepth = base + 1
}

func (c *Compiler) compileReturn(pos token.Position, items []value.Arg) {
	if len(items) == 0 {
		c.emit(pos, code.Ret0, 0)
		return
	}
	c.compileNode(items[0])
	c.emit(pos, code.Ret, -1)
}

func (c *Compiler) compileFn(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$fn requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	argNodes, _ := listItems(items[0])
	argSyms := make([]symbol.Symbol, 0, len(argNodes))
	for _, a := range argNodes {
		if s, ok := value.AsSymbol(a); ok {
			argSyms = append(argSyms, s)
		}
	}
	info := c.compileFunction(argSyms, items[1], "<fn>")
	idx := c.tables.AddUserFunctionInfo(info)
	c.emit(pos, code.NewFn, 1, int(idx))
}

func (c *Compiler) compileQuote(pos token.Position, items []value.Arg) {
	if len(items) != 1 {
		c.diags.Errorf(pos, "$quote requires exactly 1 operand")
		c.emit(pos, code.LdNull, 1)
		return
	}
	idx := c.tables.AddObject(items[0])
	c.emit(pos, code.LdObj, 1, int(idx))
}

func (c *Compiler) compileProg1(pos token.Position, items []value.Arg) {
	if len(items) == 0 {
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	for _, it := range items[1:] {
		c.compileNode(it)
		c.emit(pos, code.Pop1, -1)
	}
}

func (c *Compiler) compileProgN(pos token.Position, items []value.Arg) {
	if len(items) == 0 {
		c.emit(pos, code.LdNull, 1)
		return
	}
	for i, it := range items {
		c.compileNode(it)
		if i < len(items)-1 {
			c.emit(pos, code.Pop1, -1)
		}
	}
}

// compileScope compiles `[$scope [vars] body...]`: each var is added to the
// enclosing function's local-variable array via DefineVar and initialized
// with NullLoc0 before the body compiles exactly as $progn would. A var
// entry is either a bare symbol or a `[sym auto]`/`[sym set-once]` pair; the
// compiler doesn't distinguish those declaration qualifiers once the slot
// is reserved.
func (c *Compiler) compileScope(pos token.Position, items []value.Arg) {
	if len(items) == 0 {
		c.diags.Errorf(pos, "$scope requires a variable list")
		c.emit(pos, code.LdNull, 1)
		return
	}
	varNodes, _ := listItems(items[0])
	for _, v := range varNodes {
		sym, ok := scopeVarSymbol(v)
		if !ok {
			continue
		}
		local := c.fn.scope.DefineVar(sym)
		c.emit(pos, code.NullLoc0, 0, local.Index)
	}
	c.compileProgN(pos, items[1:])
}

// scopeVarSymbol extracts the declared name from one $scope var entry.
func scopeVarSymbol(v value.Arg) (symbol.Symbol, bool) {
	if sym, ok := value.AsSymbol(v); ok {
		return sym, true
	}
	pair, ok := listItems(v)
	if !ok || len(pair) == 0 {
		return 0, false
	}
	return value.AsSymbol(pair[0])
}

func (c *Compiler) compileNew(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$new requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	c.emit(pos, code.NewObject, 0)
	members, _ := listItems(items[1])
	for _, m := range members {
		pair, ok := listItems(m)
		if !ok || len(pair) != 2 {
			continue
		}
		name, ok := value.AsSymbol(pair[0])
		if !ok {
			continue
		}
		c.emit(pos, code.Dup1, 1)
		c.compileNode(pair[1])
		idx := c.tables.AddString(c.syms.GetName(name))
		c.emit(pos, code.StpProp, -2, int(idx))
	}
}

func (c *Compiler) compileDot(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$dot requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	name, ok := value.AsSymbol(items[1])
	if !ok {
		c.diags.Errorf(pos, "$dot member name must be a symbol")
		c.emit(pos, code.Pop1, -1)
		c.emit(pos, code.LdNull, 1)
		return
	}
	switch name {
	case c.known.A:
		c.emit(pos, code.LdA, 0)
	case c.known.D:
		c.emit(pos, code.LdD, 0)
	case c.known.Start:
		c.emit(pos, code.LdStart, 0)
	case c.known.End:
		c.emit(pos, code.LdEnd, 0)
	case c.known.Count:
		c.emit(pos, code.LdCount, 0)
	case c.known.Length:
		c.emit(pos, code.LdLength, 0)
	default:
		idx := c.tables.AddString(c.syms.GetName(name))
		c.emit(pos, code.LdProp, 0, int(idx))
	}
}

func (c *Compiler) compileIndex(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$index requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	c.compileNode(items[1])
	c.emit(pos, code.LdMember, -1)
}

func (c *Compiler) compileBinaryOp(pos token.Position, items []value.Arg, op code.Opcode, delta int) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "operator requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	c.compileNode(items[1])
	c.emit(pos, op, delta)
}

func (c *Compiler) compileUnaryOp(pos token.Position, items []value.Arg, op code.Opcode, delta int) {
	if len(items) != 1 {
		c.diags.Errorf(pos, "operator requires exactly 1 operand")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	c.emit(pos, op, delta)
}

func (c *Compiler) compileAnd(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$and requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	c.emit(pos, code.Dup1, 1)
	falseLabel := c.newLabel()
	c.emitBranch(pos, code.Bf, -1, falseLabel)
	c.emit(pos, code.Pop1, -1)
	c.compileNode(items[1])
	endLabel := c.newLabel()
	c.emitBranch(pos, code.Jmp, 0, endLabel)
	c.placeLabel(falseLabel)
	c.placeLabel(endLabel)
}

func (c *Compiler) compileOr(pos token.Position, items []value.Arg) {
	if len(items) != 2 {
		c.diags.Errorf(pos, "$or requires exactly 2 operands")
		c.emit(pos, code.LdNull, 1)
		return
	}
	c.compileNode(items[0])
	c.emit(pos, code.Dup1, 1)
	trueLabel := c.newLabel()
	c.emitBranch(pos, code.Bt, -1, trueLabel)
	c.emit(pos, code.Pop1, -1)
	c.compileNode(items[1])
	endLabel := c.newLabel()
	c.emitBranch(pos, code.Jmp, 0, endLabel)
	c.placeLabel(trueLabel)
	c.placeLabel(endLabel)
}

// compileCall compiles an ordinary application node `[callee arg...]`. When
// callee is a bare symbol naming a currently active till flag and there is
// exactly one argument, it lowers to a TillEsc escape rather than a Call
// (marking the till's continuation as needed when the escape comes from a
// nested function). When callee is a `[$dot recv prop]`
// form, it lowers to the receiver-first Met0/Met1/MetN method-call opcodes
// instead of loading the property and calling it indirectly.
func (c *Compiler) compileCall(pos token.Position, node value.Arg) {
	items, ok := listItems(node)
	if !ok || len(items) == 0 {
		c.diags.Errorf(pos, "cannot compile malformed call %s", node.String())
		c.emit(pos, code.LdNull, 1)
		return
	}
	callee := items[0]
	args := items[1:]

	if sym, ok := value.AsSymbol(callee); ok {
		if ref, found := c.lookupTillFlag(sym); found && len(args) == 1 {
			if info := c.tables.TillInfos[ref.infoIndex]; info.OwningFunction != int(c.fn.funcIndex) {
				info.RealContinuationNeeded = true
			}
			c.compileNode(args[0])
			c.emit(pos, code.TillEsc, -1, int(ref.infoIndex), ref.offset)
			return
		}
	}

	if dotSym, dotItems, ok := headForm(callee); ok && dotSym == c.known.Dot && len(dotItems) == 2 {
		name, nameOK := value.AsSymbol(dotItems[1])
		if nameOK {
			c.compileNode(dotItems[0])
			for _, a := range args {
				c.compileNode(a)
			}
			idx := c.tables.AddString(c.syms.GetName(name))
			switch len(args) {
			case 0:
				c.emit(pos, code.Met0, 0, int(idx))
			case 1:
				c.emit(pos, code.Met1, -1, int(idx))
			default:
				c.emit(pos, code.MetN, -len(args), int(idx), len(args))
			}
			return
		}
	}

	c.compileNode(callee)
	for _, a := range args {
		c.compileNode(a)
	}
	c.emit(pos, code.Call, -len(args), len(args))
}
