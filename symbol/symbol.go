// Package symbol implements Smile's interned-string symbol table.
//
// A Symbol is a 32-bit index into a process-wide (or, for tests, per-Table)
// dense array of strings. Symbol 0 is reserved for the empty string. Once a
// symbol has been allocated its id is stable for the table's lifetime, so
// two symbols can be compared for equality by integer comparison alone.
package symbol

// Symbol is an interned string's 32-bit id. The zero Symbol names the empty
// string.
type Symbol uint32

// initialCapacity is the symbol table's starting array size; Table doubles
// it whenever more room is needed.
const initialCapacity = 1024

// Table interns strings to dense Symbol ids. Symbol 0 is always the empty
// string, preallocated by New.
type Table struct {
	names []string
	ids   map[string]Symbol
}

// New creates an empty symbol table with symbol 0 preloaded as the empty
// string.
func New() *Table {
	t := &Table{
		names: make([]string, 1, initialCapacity),
		ids:   make(map[string]Symbol, initialCapacity),
	}
	t.names[0] = ""
	t.ids[""] = 0
	return t
}

// GetOrCreate interns name, returning its existing Symbol if already
// present or allocating a new one otherwise. Two calls with byte-identical
// names always return the same Symbol; byte-different names never collide.
func (t *Table) GetOrCreate(name string) Symbol {
	if sym, ok := t.ids[name]; ok {
		return sym
	}
	sym := Symbol(len(t.names))
	if int(sym) >= cap(t.names) {
		grown := make([]string, len(t.names), cap(t.names)*2)
		copy(grown, t.names)
		t.names = grown
	}
	t.names = append(t.names, name)
	t.ids[name] = sym
	return sym
}

// GetName returns the string a Symbol was interned from. Calling it with a
// Symbol never returned by this Table is a programming error and panics,
// matching the original's out-of-bounds-is-fatal convention for internal
// table corruption.
func (t *Table) GetName(sym Symbol) string {
	return t.names[sym]
}

// GetNoCreate returns the Symbol for name without interning it, and 0 (the
// empty-string symbol) if name has never been interned — the caller
// distinguishes "never interned" from "interned as empty string" by testing
// name == "" itself, mirroring the original's convention that symbol 0
// always denotes the empty string.
func (t *Table) GetNoCreate(name string) Symbol {
	return t.ids[name]
}

// Len reports how many symbols (including the empty-string symbol 0) have
// been interned.
func (t *Table) Len() int {
	return len(t.names)
}

// Known is a table of well-known symbols preloaded at startup so the lexer,
// parser, and compiler can compare names by Symbol equality instead of
// string comparison. It is built once per Table via PreloadKnown.
type Known struct {
	// Special forms.
	Set, OpSet, If, While, Till, Catch, Return, Fn, Quote, Prog1, ProgN, Scope,
	New, Dot, Index, Is, TypeOf, Eq, Ne, And, Or, Not Symbol

	// Dotted property names with dedicated opcodes (spec.md §4.7.4).
	A, D, Start, End, Count, Length Symbol
}

// coreSpecialForms is the set of well-known symbol spellings the compiler
// and parser compare against by Symbol identity. Order doesn't matter; each
// name is simply interned once up front.
var coreSpecialForms = []string{
	"$set", "$opset", "$if", "$while", "$till", "$catch", "$return", "$fn",
	"$quote", "$prog1", "$progn", "$scope", "$new", "$dot", "$index",
	"$is", "$typeof", "$eq", "$ne", "$and", "$or", "$not",
	"a", "d", "start", "end", "count", "length",
}

// PreloadKnown interns every well-known symbol name up front and returns a
// Known handle exposing each as a Symbol field, so later code never has to
// call GetOrCreate("$if") and friends at runtime.
func PreloadKnown(t *Table) *Known {
	for _, name := range coreSpecialForms {
		t.GetOrCreate(name)
	}
	k := &Known{
		Set:    t.GetOrCreate("$set"),
		OpSet:  t.GetOrCreate("$opset"),
		If:     t.GetOrCreate("$if"),
		While:  t.GetOrCreate("$while"),
		Till:   t.GetOrCreate("$till"),
		Catch:  t.GetOrCreate("$catch"),
		Return: t.GetOrCreate("$return"),
		Fn:     t.GetOrCreate("$fn"),
		Quote:  t.GetOrCreate("$quote"),
		Prog1:  t.GetOrCreate("$prog1"),
		ProgN:  t.GetOrCreate("$progn"),
		Scope:  t.GetOrCreate("$scope"),
		New:    t.GetOrCreate("$new"),
		Dot:    t.GetOrCreate("$dot"),
		Index:  t.GetOrCreate("$index"),
		Is:     t.GetOrCreate("$is"),
		TypeOf: t.GetOrCreate("$typeof"),
		Eq:     t.GetOrCreate("$eq"),
		Ne:     t.GetOrCreate("$ne"),
		And:    t.GetOrCreate("$and"),
		Or:     t.GetOrCreate("$or"),
		Not:    t.GetOrCreate("$not"),
		A:      t.GetOrCreate("a"),
		D:      t.GetOrCreate("d"),
		Start:  t.GetOrCreate("start"),
		End:    t.GetOrCreate("end"),
		Count:  t.GetOrCreate("count"),
		Length: t.GetOrCreate("length"),
	}
	return k
}
