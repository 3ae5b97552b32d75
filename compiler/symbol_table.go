package compiler

import "github.com/smile-lang/smile/symbol"

// LocalKind distinguishes a compiled function's two local storage classes:
// its arguments (addressed by LdArg/StArg) and its ordinary variables
// (addressed by LdLoc/StLoc).
type LocalKind int

//nolint:revive
const (
	LocalArg LocalKind = iota
	LocalVar
)

// CompiledLocalSymbol records one name's binding within a [CompileScope]:
// which storage class it lives in, its slot index, and whether it is ever
// read or written from a nested function — set by the compiler the first time
// it resolves the name (through [CompileScope.Resolve]) across a function
// boundary, so the owning frame knows it must box the slot rather than leave
// it inline.
type CompiledLocalSymbol struct {
	Name  symbol.Symbol
	Kind  LocalKind
	Index int

	ReadFromNested  bool
	WriteFromNested bool
}

// CompileScope is one function's local symbol table. $fn introduces a new
// CompileScope with Outer pointing at the enclosing function's scope; $scope
// only adds variables to the current function's scope, since Smile's
// closure depth tracks function frames, not lexical blocks.
type CompileScope struct {
	Outer *CompileScope

	locals map[symbol.Symbol]*CompiledLocalSymbol

	numArgs int
	numVars int
}

// NewCompileScope creates a scope for one function body, nested inside outer
// (nil for the outermost program function).
func NewCompileScope(outer *CompileScope) *CompileScope {
	return &CompileScope{Outer: outer, locals: make(map[symbol.Symbol]*CompiledLocalSymbol)}
}

// DefineArg binds name as the scope's next argument slot.
func (s *CompileScope) DefineArg(name symbol.Symbol) *CompiledLocalSymbol {
	sym := &CompiledLocalSymbol{Name: name, Kind: LocalArg, Index: s.numArgs}
	s.numArgs++
	s.locals[name] = sym
	return sym
}

// DefineVar binds name as the scope's next ordinary-variable slot.
func (s *CompileScope) DefineVar(name symbol.Symbol) *CompiledLocalSymbol {
	sym := &CompiledLocalSymbol{Name: name, Kind: LocalVar, Index: s.numVars}
	s.numVars++
	s.locals[name] = sym
	return sym
}

// Resolve looks up name in s, then in each enclosing scope in turn. depth is
// the number of function-scope boundaries crossed to find it: 0 means name
// is local to s itself. Resolve does not itself mark the nested-access
// flags — the caller does that once it knows whether the access is a read
// or a write.
func (s *CompileScope) Resolve(name symbol.Symbol) (sym *CompiledLocalSymbol, depth int, ok bool) {
	for scope := s; scope != nil; scope = scope.Outer {
		if found, has := scope.locals[name]; has {
			return found, depth, true
		}
		depth++
	}
	return nil, 0, false
}

// NumArgs reports how many argument slots s has defined.
func (s *CompileScope) NumArgs() int { return s.numArgs }

// NumVars reports how many variable slots s has defined.
func (s *CompileScope) NumVars() int { return s.numVars }
