// Package compiledtables implements the module-wide constant pools a
// [Tables] value collects during compilation: deduplicated strings,
// user-function-infos, constant objects, and source-location records, plus
// the append-only till-continuation-info table and its post-pass branch
// target resolution.
package compiledtables

import "github.com/smile-lang/smile/token"

// SourceLocation is one entry in the source-location pool: the file
// position a subtree of the AST came from, plus the symbol name the
// compiler was in the middle of assigning when it entered that subtree (set
// when compiling the right-hand side of a `[$set name ...]`).
type SourceLocation struct {
	Pos          token.Position
	AssignedName string
}

// TillFlag is one flag declared by a till form: its name and the
// branch-target instruction reference for its `when` clause, recorded
// before the owning function's instructions are linearized.
type TillFlag struct {
	Name           string
	BranchTarget   *BranchTargetRef
	ResolvedTarget int32 // filled in by ResolveTillBranchTargets
}

// BranchTargetRef is an intrusive reference from a till flag to the
// instruction that begins its handler, expressed as an index into a
// per-function instruction list rather than a pointer — the translation
// spec.md §9 calls for under Go's ownership discipline.
type BranchTargetRef struct {
	FunctionIndex int // which UserFunctionInfo's segment owns the target
	InstrIndex    int // index of the target instruction within that function's linear instruction list
}

// TillContinuationInfo is the static data for one `till` escape
// continuation.
type TillContinuationInfo struct {
	OwningFunction int // index into UserFunctionInfos
	Flags          []TillFlag

	// RealContinuationNeeded records whether any flag is ever referenced
	// from a nested function (requiring a heap-allocated continuation
	// object rather than a stack slot) — an original_source detail
	// (compiler.h's TillContinuationInfo.realContinuationNeeded)
	// supplemented per SPEC_FULL.md §5.
	RealContinuationNeeded bool
}

// Tables holds every deduplicating constant pool for one compiled module.
type Tables struct {
	strings     []string
	stringIndex map[string]int32

	userFunctionInfos []any // *compiler.UserFunctionInfo; any avoids an import cycle
	ufiIndex          map[any]int32

	objects     []any // value.Arg constants; any avoids an import cycle
	objectIndex map[any]int32

	sourceLocations []SourceLocation

	TillInfos []*TillContinuationInfo
}

// New creates an empty Tables.
func New() *Tables {
	return &Tables{
		stringIndex: make(map[string]int32),
		ufiIndex:    make(map[any]int32),
		objectIndex: make(map[any]int32),
	}
}

// AddString interns s, returning its pool index. Two equal strings share
// one slot.
func (t *Tables) AddString(s string) int32 {
	if idx, ok := t.stringIndex[s]; ok {
		return idx
	}
	idx := int32(len(t.strings))
	t.strings = append(t.strings, s)
	t.stringIndex[s] = idx
	return idx
}

// String returns the pooled string at idx.
func (t *Tables) String(idx int32) string { return t.strings[idx] }

// NumStrings reports the string pool's current size.
func (t *Tables) NumStrings() int { return len(t.strings) }

// AddUserFunctionInfo interns ufi by identity (pointer equality), returning
// its pool index.
func (t *Tables) AddUserFunctionInfo(ufi any) int32 {
	if idx, ok := t.ufiIndex[ufi]; ok {
		return idx
	}
	idx := int32(len(t.userFunctionInfos))
	t.userFunctionInfos = append(t.userFunctionInfos, ufi)
	t.ufiIndex[ufi] = idx
	return idx
}

// UserFunctionInfo returns the pooled entry at idx.
func (t *Tables) UserFunctionInfo(idx int32) any { return t.userFunctionInfos[idx] }

// NumUserFunctionInfos reports the user-function-info pool's current size.
func (t *Tables) NumUserFunctionInfos() int { return len(t.userFunctionInfos) }

// AddObject interns obj by identity, returning its pool index. Used for
// `$quote`d constant AST fragments and other literal objects the compiler
// embeds by reference.
func (t *Tables) AddObject(obj any) int32 {
	if idx, ok := t.objectIndex[obj]; ok {
		return idx
	}
	idx := int32(len(t.objects))
	t.objects = append(t.objects, obj)
	t.objectIndex[obj] = idx
	return idx
}

// Object returns the pooled entry at idx.
func (t *Tables) Object(idx int32) any { return t.objects[idx] }

// NumObjects reports the constant-object pool's current size.
func (t *Tables) NumObjects() int { return len(t.objects) }

// AddSourceLocation appends (never dedups) a source-location record,
// returning its index.
func (t *Tables) AddSourceLocation(loc SourceLocation) int32 {
	idx := int32(len(t.sourceLocations))
	t.sourceLocations = append(t.sourceLocations, loc)
	return idx
}

// SourceLocation returns the pooled entry at idx.
func (t *Tables) SourceLocation(idx int32) SourceLocation { return t.sourceLocations[idx] }

// AddTillContinuationInfo appends info, returning its index.
func (t *Tables) AddTillContinuationInfo(info *TillContinuationInfo) int32 {
	idx := int32(len(t.TillInfos))
	t.TillInfos = append(t.TillInfos, info)
	return idx
}

// InstructionIndexResolver maps a BranchTargetRef to the absolute pc its
// referenced instruction received at linearization. The compiler supplies
// this after laying out every function's segment.
type InstructionIndexResolver func(ref *BranchTargetRef) int32

// ResolveTillBranchTargets walks every TillContinuationInfo and replaces
// each flag's branch-target instruction reference with the absolute pc
// that instruction received at linearization, using resolve to perform the
// lookup. Must run after every function's segment has been laid out.
func (t *Tables) ResolveTillBranchTargets(resolve InstructionIndexResolver) {
	for _, info := range t.TillInfos {
		for i := range info.Flags {
			flag := &info.Flags[i]
			if flag.BranchTarget != nil {
				flag.ResolvedTarget = resolve(flag.BranchTarget)
			}
		}
	}
}
