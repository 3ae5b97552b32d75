// Package closure implements Smile's two-piece closure representation:
// [Info], the static shape shared by every activation of one function, and
// [Closure], the small per-activation runtime frame that points back at it.
//
// A global closure (Kind Global) has no arguments and no temp stack; its
// variables live in a VarDict keyed by symbol. A local closure (Kind Local)
// has a contiguous variables array laid out as arguments, then locals, then
// a temporary evaluation stack whose high-water mark Info.TempSize records.
package closure

import "github.com/smile-lang/smile/symbol"

// Kind distinguishes a global closure (name-addressed variables, no frame)
// from a local closure (offset-addressed variables, fixed-size frame).
type Kind int

//nolint:revive
const (
	Global Kind = iota
	Local
)

// VarInfo is one global variable's metadata: its name, its declaration
// kind, and (for globals) its current value.
type VarInfo struct {
	Name  symbol.Symbol
	Kind  symbol.Symbol // a declaration-kind marker symbol, e.g. $var / $const
	Value any           // holds a value.Arg; typed any to avoid an import cycle
}

// VarDict is a symbol-keyed dictionary of VarInfo, used by global closures
// to store their variables by name and by local closures purely for
// debugging (see Info.VariableNames).
type VarDict struct {
	entries map[symbol.Symbol]*VarInfo
}

// NewVarDict creates an empty VarDict.
func NewVarDict() *VarDict {
	return &VarDict{entries: make(map[symbol.Symbol]*VarInfo)}
}

// Get returns the VarInfo for name, or nil if undefined.
func (d *VarDict) Get(name symbol.Symbol) *VarInfo {
	return d.entries[name]
}

// Set stores info under its own Name.
func (d *VarDict) Set(info *VarInfo) {
	d.entries[info.Name] = info
}

// Has reports whether name has an entry.
func (d *VarDict) Has(name symbol.Symbol) bool {
	_, ok := d.entries[name]
	return ok
}

// Info is the static, per-function shape shared by every activation
// (Closure) of that function.
type Info struct {
	Kind Kind

	NumArgs int
	NumVars int
	// TempSize is the maximum number of temp-stack slots this function's
	// compiled body ever needs simultaneously; the compiler's stack-delta
	// tracking computes it as a high-water mark.
	TempSize int32

	Parent *Info // the lexically enclosing function's Info, if any
	Global *Info // the nearest enclosing global Info

	// Variables is the global VarDict (populated, used as the actual
	// variable store) for a Global closure, or nil for a Local closure.
	Variables *VarDict

	// VariableNames is an ordered array of local variable names, in stack
	// order, used only for debugging a Local closure's frame.
	VariableNames []symbol.Symbol
}

// NewGlobalInfo creates the static Info for a global closure, with a fresh
// VarDict and the given parent (nil for the outermost module).
func NewGlobalInfo(parent *Info) *Info {
	info := &Info{Kind: Global, Parent: parent, Variables: NewVarDict()}
	info.Global = info
	return info
}

// NewLocalInfo creates the static Info for a local (function) closure.
// global must be the nearest enclosing global Info; parent is the
// lexically enclosing function's Info (nil if this function is declared
// directly at module scope).
func NewLocalInfo(parent, global *Info, numArgs, numVars int) *Info {
	return &Info{
		Kind:    Local,
		NumArgs: numArgs,
		NumVars: numVars,
		Parent:  parent,
		Global:  global,
	}
}

// Closure is the small runtime activation frame pointing back at its
// static Info.
type Closure struct {
	Parent *Closure
	Global *Closure

	Info *Info

	// StackTop is the current offset of the top of the temp-variable
	// region; zero for global closures, which have no temp stack.
	StackTop int32

	// Variables is the inline args+locals+temp array for a Local closure
	// (sized Info.NumArgs+Info.NumVars+Info.TempSize); nil for Global
	// closures, which use Info.Variables instead.
	Variables []any

	// Non-local return linkage: the caller's closure/segment/pc to resume
	// on Ret, captured when this local closure was created for a call.
	ReturnClosure *Closure
	ReturnSegment any // a *code.ByteCodeSegment; typed any to avoid a cycle
	ReturnPC      int

	// UnwindInfo chains the active try/catch regions enclosing this
	// activation, innermost first.
	UnwindInfo *UnwindInfo
}

// UnwindInfo is one entry in a closure's active-exception-handler chain.
type UnwindInfo struct {
	Next    *UnwindInfo
	Handler any // handler dispatch data, owned by the compiler/runtime
}

// NewGlobal allocates the runtime closure for a global Info.
func NewGlobal(info *Info, parent *Closure) *Closure {
	c := &Closure{Info: info, Parent: parent}
	c.Global = c
	return c
}

// NewLocal allocates the runtime closure for a local Info's activation, with
// a Variables array sized for args+locals+temp.
func NewLocal(info *Info, parent *Closure) *Closure {
	size := info.NumArgs + info.NumVars + int(info.TempSize)
	c := &Closure{
		Info:      info,
		Parent:    parent,
		Variables: make([]any, size),
	}
	if parent != nil {
		c.Global = parent.Global
	}
	return c
}

// ancestorAtDepth walks scopeDepth parent pointers from c, special-casing
// the shallow depths (0..3) the way the original's inline macros do and
// falling back to a loop for anything deeper.
func ancestorAtDepth(c *Closure, scopeDepth int) *Closure {
	switch scopeDepth {
	case 0:
		return c
	case 1:
		return c.Parent
	case 2:
		return c.Parent.Parent
	case 3:
		return c.Parent.Parent.Parent
	default:
		for ; scopeDepth > 0; scopeDepth-- {
			c = c.Parent
		}
		return c
	}
}

// GetVariableInScope reads the local variable at (scopeDepth, index):
// scope-depth 0 is c's own frame, each increment walks one Parent pointer.
func GetVariableInScope(c *Closure, scopeDepth, index int) any {
	return ancestorAtDepth(c, scopeDepth).Variables[index]
}

// SetVariableInScope writes the local variable at (scopeDepth, index).
func SetVariableInScope(c *Closure, scopeDepth, index int, value any) {
	ancestorAtDepth(c, scopeDepth).Variables[index] = value
}

// GetGlobalVariable reads a global variable by name, returning (value,
// true), or (nil, false) if undefined — callers treat an undefined global
// read as Null per spec.md §4.6.
func GetGlobalVariable(c *Closure, name symbol.Symbol) (any, bool) {
	info := c.Global.Info.Variables.Get(name)
	if info == nil {
		return nil, false
	}
	return info.Value, true
}

// HasGlobalVariable reports whether name is defined on c's nearest global
// closure.
func HasGlobalVariable(c *Closure, name symbol.Symbol) bool {
	return c.Global.Info.Variables.Has(name)
}

// SetGlobalVariable writes a global variable by name, creating it if it does
// not already exist. A created entry's Kind is left as the zero Symbol; no
// declaration-kind marker is recorded for it.
func SetGlobalVariable(c *Closure, name symbol.Symbol, value any) {
	dict := c.Global.Info.Variables
	if info := dict.Get(name); info != nil {
		info.Value = value
		return
	}
	dict.Set(&VarInfo{Name: name, Value: value})
}

// PushTemp pushes value onto c's temp stack and returns the new StackTop.
func PushTemp(c *Closure, value any) int32 {
	c.Variables[c.Info.NumArgs+c.Info.NumVars+int(c.StackTop)] = value
	c.StackTop++
	return c.StackTop
}

// PopTemp pops and returns the top of c's temp stack.
func PopTemp(c *Closure) any {
	c.StackTop--
	return c.Variables[c.Info.NumArgs+c.Info.NumVars+int(c.StackTop)]
}

// PopCount discards count values from the top of c's temp stack.
func PopCount(c *Closure, count int32) {
	c.StackTop -= count
}
