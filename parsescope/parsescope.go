// Package parsescope implements Smile's compile-time scope tree: the chain
// of per-scope declaration tables the parser builds and the compiler later
// walks to resolve symbols to frame slots.
//
// A Scope is a Lisp-1 declaration table (one namespace per scope) plus
// pointers into copy-on-write syntax and loanword rule tables. Some scope
// kinds are "pseudo-scopes" — they exist to delimit parsing but delegate
// variable declarations to their nearest non-pseudo ancestor, mirroring a
// function's argument scope not being a variable-declaration boundary of
// its own.
package parsescope

import (
	"strconv"

	"github.com/smile-lang/smile/symbol"
)

// Kind identifies what a Scope was opened for, governing which
// declarations are legal within it and how Declare redirects.
type Kind int

//nolint:revive
const (
	Outermost Kind = iota
	Function
	ScopeDecl
	PostCondition
	TillDo
	Syntax
	Explicit
)

var scopeKindNames = [...]string{
	Outermost:     "outermost",
	Function:      "function",
	ScopeDecl:     "scope",
	PostCondition: "post-condition",
	TillDo:        "till-do",
	Syntax:        "syntax",
	Explicit:      "explicit",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(scopeKindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return scopeKindNames[k]
}

// DeclKind is the kind of thing a name was declared as.
type DeclKind int

//nolint:revive
const (
	DeclArgument DeclKind = iota
	DeclVariable
	DeclConst
	DeclAuto
	DeclSetOnceConst
	DeclSetOnceAuto
	DeclPrimitive
	DeclTillFlag
	DeclInclude
)

var declKindNames = [...]string{
	DeclArgument:     "argument",
	DeclVariable:     "var",
	DeclConst:        "const",
	DeclAuto:         "auto",
	DeclSetOnceConst: "set-once-const",
	DeclSetOnceAuto:  "set-once-auto",
	DeclPrimitive:    "primitive",
	DeclTillFlag:     "till-flag",
	DeclInclude:      "include",
}

func (k DeclKind) String() string {
	if int(k) < 0 || int(k) >= len(declKindNames) {
		return "DeclKind(" + strconv.Itoa(int(k)) + ")"
	}
	return declKindNames[k]
}

// Position is the minimal source-location shape a Decl records; callers
// pass token.Position values here, but parsescope doesn't need to import
// the token package's full token shape, only this much of it.
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return p.Filename + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Decl is a single name's declaration in one scope.
type Decl struct {
	Symbol   symbol.Symbol
	Kind     DeclKind
	ScopeIdx int // the declaring scope's position in its parent chain, for debugging
	Pos      Position
}

// SyntaxTable and LoanwordTable are reference-counted copy-on-write maps
// keyed by class-symbol: for syntax, the non-terminal being extended; for
// loanwords, the word following '#'. Forking happens in Scope.AddSyntaxRule /
// Scope.AddLoanwordRule whenever a table's refcount exceeds one, so that a
// child scope's extensions never mutate a parent's table.
type SyntaxTable struct {
	refcount *int
	rules    map[symbol.Symbol][]*SyntaxRule
}

type LoanwordTable struct {
	refcount *int
	rules    map[symbol.Symbol]*LoanwordRule
}

// SyntaxRule is one registered custom-syntax pattern for a class-symbol.
// Pattern is a mix of fixed terminal symbols and Nonterminal references;
// the parser matches a rule's Pattern against the token stream and
// substitutes captures into Template.
type SyntaxRule struct {
	ClassSymbol symbol.Symbol
	Pattern     []PatternElem
	Template    any // an AST fragment with placeholders, built by the parser
	Pos         Position
}

// PatternElem is one element of a SyntaxRule's pattern: either a fixed
// terminal (Terminal != 0, Nonterm the zero value) or a nonterminal
// reference with an optional repeat/separator.
type PatternElem struct {
	Terminal symbol.Symbol
	Nonterm  symbol.Symbol
	Repeat   Repeat
	Sep      symbol.Symbol
}

// Repeat is a pattern element's repetition modifier.
type Repeat int

//nolint:revive
const (
	RepeatOne Repeat = iota
	RepeatStar
	RepeatPlus
	RepeatOptional
)

// LoanwordRule is one registered `#name` loanword handler.
type LoanwordRule struct {
	Name symbol.Symbol
	Pos  Position
}

func newSyntaxTable() *SyntaxTable {
	count := 1
	return &SyntaxTable{refcount: &count, rules: make(map[symbol.Symbol][]*SyntaxRule)}
}

func newLoanwordTable() *LoanwordTable {
	count := 1
	return &LoanwordTable{refcount: &count, rules: make(map[symbol.Symbol]*LoanwordRule)}
}

func (s *SyntaxTable) share() *SyntaxTable {
	*s.refcount++
	return s
}

func (l *LoanwordTable) share() *LoanwordTable {
	*l.refcount++
	return l
}

// fork returns a private, independently-mutable copy of s if more than one
// scope currently shares it; otherwise returns s itself.
func (s *SyntaxTable) fork() *SyntaxTable {
	if *s.refcount <= 1 {
		return s
	}
	*s.refcount--
	rules := make(map[symbol.Symbol][]*SyntaxRule, len(s.rules))
	for k, v := range s.rules {
		cp := make([]*SyntaxRule, len(v))
		copy(cp, v)
		rules[k] = cp
	}
	count := 1
	return &SyntaxTable{refcount: &count, rules: rules}
}

func (l *LoanwordTable) fork() *LoanwordTable {
	if *l.refcount <= 1 {
		return l
	}
	*l.refcount--
	rules := make(map[symbol.Symbol]*LoanwordRule, len(l.rules))
	for k, v := range l.rules {
		rules[k] = v
	}
	count := 1
	return &LoanwordTable{refcount: &count, rules: rules}
}

// Lookup returns the syntax rules registered for classSym, searching only
// this table (the caller is responsible for walking to child/parent tables
// as needed — Scope.FindSyntaxRules does that).
func (s *SyntaxTable) Lookup(classSym symbol.Symbol) []*SyntaxRule {
	return s.rules[classSym]
}

// Lookup returns the loanword rule registered for name, or nil.
func (l *LoanwordTable) Lookup(name symbol.Symbol) *LoanwordRule {
	return l.rules[name]
}

// Scope is one node of the parse-time scope tree.
type Scope struct {
	Parent *Scope
	Kind   Kind

	symbolDict map[symbol.Symbol]int
	decls      []*Decl

	syntaxTable   *SyntaxTable
	loanwordTable *LoanwordTable

	// Reexport records whether this scope's #include-d syntax/loanword
	// rules propagate to scopes that in turn include *this* scope — an
	// original_source detail (parsescope.h's `reexport` field) the
	// distilled spec omits; supplemented here per SPEC_FULL.md §5. Nothing
	// in this package or the parser reads it, so setting it changes no
	// lookup.
	Reexport bool

	depth int
}

// NewRoot creates the one outermost scope, with fresh (unshared) syntax and
// loanword tables.
func NewRoot() *Scope {
	return &Scope{
		Kind:          Outermost,
		symbolDict:    make(map[symbol.Symbol]int),
		syntaxTable:   newSyntaxTable(),
		loanwordTable: newLoanwordTable(),
	}
}

// NewChild creates a child of parent with the given Kind, sharing parent's
// syntax/loanword tables copy-on-write.
func NewChild(parent *Scope, kind Kind) *Scope {
	return &Scope{
		Parent:        parent,
		Kind:          kind,
		symbolDict:    make(map[symbol.Symbol]int),
		syntaxTable:   parent.syntaxTable.share(),
		loanwordTable: parent.loanwordTable.share(),
		depth:         parent.depth + 1,
	}
}

// IsPseudoScope reports whether s delegates variable declarations to its
// nearest non-pseudo ancestor instead of declaring in itself.
func (s *Scope) IsPseudoScope() bool {
	return s.Kind == Function || s.Kind == PostCondition || s.Kind == TillDo
}

// FindDeclarationHere returns the Decl for sym if it was declared directly
// in s (ignoring ancestors), or nil.
func (s *Scope) FindDeclarationHere(sym symbol.Symbol) *Decl {
	idx, ok := s.symbolDict[sym]
	if !ok {
		return nil
	}
	return s.decls[idx]
}

// FindDeclaration walks s and its ancestors, returning the first Decl found
// for sym, or nil if it is undeclared anywhere in the chain.
func (s *Scope) FindDeclaration(sym symbol.Symbol) *Decl {
	for cur := s; cur != nil; cur = cur.Parent {
		if d := cur.FindDeclarationHere(sym); d != nil {
			return d
		}
	}
	return nil
}

// IsDeclared reports whether sym has a declaration anywhere in s's ancestor
// chain (including s itself). This is what the parser calls to decide
// whether an identifier token should be reclassified KnownName vs.
// UnknownAlphaName.
func (s *Scope) IsDeclared(sym symbol.Symbol) bool {
	return s.FindDeclaration(sym) != nil
}

// IsDeclaredHere reports whether sym was declared directly in s.
func (s *Scope) IsDeclaredHere(sym symbol.Symbol) bool {
	_, ok := s.symbolDict[sym]
	return ok
}

// DeclarationCount returns how many names are declared directly in s.
func (s *Scope) DeclarationCount() int {
	return len(s.symbolDict)
}

// Decls returns every declaration made directly in s, in declaration order.
func (s *Scope) Decls() []*Decl {
	return s.decls
}

// redeclarationCompatible reports whether redeclaring sym as newKind is
// allowed given its existing kind — the same name may be redeclared with
// an identical kind (idempotent), but conflicting kinds (e.g. var then
// const) are an error.
func redeclarationCompatible(existing, newKind DeclKind) bool {
	return existing == newKind
}

// DeclareHere appends a new declaration for sym directly in s, returning an
// error if sym is already declared in s with an incompatible kind.
func (s *Scope) DeclareHere(sym symbol.Symbol, kind DeclKind, pos Position) (*Decl, error) {
	if idx, ok := s.symbolDict[sym]; ok {
		existing := s.decls[idx]
		if !redeclarationCompatible(existing.Kind, kind) {
			return nil, &RedeclarationError{Symbol: sym, Existing: existing.Kind, New: kind, Pos: pos}
		}
		return existing, nil
	}
	decl := &Decl{Symbol: sym, Kind: kind, ScopeIdx: s.depth, Pos: pos}
	s.symbolDict[sym] = len(s.decls)
	s.decls = append(s.decls, decl)
	return decl, nil
}

// Declare walks up through pseudo-scopes (function/post-condition/till-do)
// to find the nearest scope that actually owns variable declarations, then
// declares sym there.
func (s *Scope) Declare(sym symbol.Symbol, kind DeclKind, pos Position) (*Decl, error) {
	target := s
	for target.IsPseudoScope() {
		target = target.Parent
	}
	return target.DeclareHere(sym, kind, pos)
}

// RedeclarationError reports an incompatible redeclaration of a name within
// a single non-pseudo scope.
type RedeclarationError struct {
	Symbol   symbol.Symbol
	Existing DeclKind
	New      DeclKind
	Pos      Position
}

func (e *RedeclarationError) Error() string {
	return "incompatible redeclaration in the same scope"
}

// AddSyntaxRule registers rule under its ClassSymbol in s's syntax table,
// forking the table first if it is currently shared with other scopes.
func (s *Scope) AddSyntaxRule(rule *SyntaxRule) {
	s.syntaxTable = s.syntaxTable.fork()
	s.syntaxTable.rules[rule.ClassSymbol] = append(s.syntaxTable.rules[rule.ClassSymbol], rule)
}

// AddLoanwordRule registers rule under its Name in s's loanword table,
// forking first if shared.
func (s *Scope) AddLoanwordRule(rule *LoanwordRule) {
	s.loanwordTable = s.loanwordTable.fork()
	s.loanwordTable.rules[rule.Name] = rule
}

// FindSyntaxRules returns the syntax rules registered for classSym, walking
// only s's own (possibly shared) table — syntax rules are scope-local by
// design; a syntax rule declared in a parent is visible because child
// scopes start by sharing the parent's table, not because lookup walks
// ancestors.
func (s *Scope) FindSyntaxRules(classSym symbol.Symbol) []*SyntaxRule {
	return s.syntaxTable.Lookup(classSym)
}

// FindLoanwordRule returns the loanword rule registered for name, or nil.
func (s *Scope) FindLoanwordRule(name symbol.Symbol) *LoanwordRule {
	return s.loanwordTable.Lookup(name)
}
