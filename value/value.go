// Package value implements Smile's uniform runtime value representation:
// the kind taxonomy, the boxed/unboxed SmileArg duality, and the cons-cell
// (List) and Pair aggregates the parser builds its AST from.
//
// Every runtime value carries a Kind identifying its variant. Kinds
// partition into unboxed primitives, their boxed (heap-allocated) wrapper
// counterparts, special aggregates, opaque handles, large numerics, ranges,
// raw buffers, and parser-internal kinds. A boxed value shares a common
// Object header: the Kind (with flag bits), a VTable pointer for method
// dispatch, and a Base pointer for prototype-style inheritance. Smile's
// dynamic dispatch is expressed here as a tagged union with an explicit
// Kind discriminant, per the translation spec.md §9 calls for in a
// statically-typed reimplementation, rather than a C-style VTable.
package value

import (
	"fmt"
	"strconv"

	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/token"
)

// Kind identifies a value's variant. The low bits select the variant; the
// high bits (see the Security* constants) carry mutability flags orthogonal
// to the variant itself.
type Kind uint16

// variant mask/shift: Kind values below kindFlagBase are plain variant
// codes; bits at or above it are security/flag bits ORed onto a variant.
const kindFlagBase = 1 << 12

//nolint:revive
const (
	KindNull Kind = iota

	// Unboxed primitives. A SmileArg whose Object is the sentinel unboxed
	// instance of one of these kinds carries its value in Payload instead.
	KindByte
	KindInt16
	KindInt32
	KindInt64
	KindBool
	KindChar
	KindUni
	KindFloat32
	KindFloat64
	KindSymbol
	KindReal32
	KindReal64

	// Boxed counterparts: heap cells wrapping the same payload plus an
	// Object header, used whenever a primitive needs identity or is stored
	// somewhere that requires a pointer (e.g. a List element).
	KindBoxedByte
	KindBoxedInt16
	KindBoxedInt32
	KindBoxedInt64
	KindBoxedBool
	KindBoxedChar
	KindBoxedUni
	KindBoxedFloat32
	KindBoxedFloat64
	KindBoxedSymbol
	KindBoxedReal32
	KindBoxedReal64

	// Special aggregates.
	KindList
	KindPrimitive
	KindUserObject
	KindString
	KindPair

	// Opaque handles.
	KindFunction
	KindClosure
	KindMacro
	KindFacade
	KindTillContinuation
	KindHandle

	// Large numerics.
	KindInteger128
	KindBigInt
	KindFloat128
	KindBigFloat
	KindReal128
	KindBigReal
	KindTimestamp

	// Ranges.
	KindByteRange
	KindInteger16Range
	KindInteger32Range
	KindInteger64Range
	KindReal64Range

	// Raw buffers.
	KindByteArray

	// Parser-internal kinds.
	KindSyntax
	KindNonterminal
	KindLoanword
	KindParseDecl
	KindParseMessage
)

// Security bits mark a boxed Object's mutability status. They are ORed onto
// the variant's low bits and masked off with VariantOf / SecurityOf.
const (
	SecurityReadOnly  Kind = kindFlagBase << iota
	SecurityWritable
	SecurityAppendable
	SecurityUnfrozen
)

const variantMask = kindFlagBase - 1

// VariantOf strips any security bits, returning the plain variant code.
func VariantOf(k Kind) Kind { return k & variantMask }

// SecurityOf returns only the security bits set on k.
func SecurityOf(k Kind) Kind { return k &^ variantMask }

// IsUnboxed reports whether k's variant is one of the unboxed primitive
// kinds (KindByte .. KindReal64).
func IsUnboxed(k Kind) bool {
	v := VariantOf(k)
	return v >= KindByte && v <= KindReal64
}

// IsBoxedPrimitive reports whether k's variant is a boxed wrapper of one of
// the unboxed primitive kinds.
func IsBoxedPrimitive(k Kind) bool {
	v := VariantOf(k)
	return v >= KindBoxedByte && v <= KindBoxedReal64
}

// unboxedOf maps a boxed primitive kind to its unboxed counterpart, and vice
// versa via boxedOf. The two enumerations are laid out in matching order.
func unboxedOf(k Kind) Kind {
	return KindByte + (VariantOf(k) - KindBoxedByte)
}

func boxedOf(k Kind) Kind {
	return KindBoxedByte + (VariantOf(k) - KindByte)
}

// Object is the common header every boxed (heap-allocated) value shares:
// its Kind, a VTable for method dispatch, and a Base pointer used for
// Smile's prototype-style inheritance (method lookup walks Base until a
// matching property is found).
type Object struct {
	Kind  Kind
	VTable VTable
	Base  *Object

	// Payload mirrors the unboxed payload this object was boxed from, or
	// holds an aggregate's own data (List/Pair fields live on List/Pair
	// directly; this covers boxed primitives and opaque handles).
	Payload Payload
}

// VTable is the method-dispatch table consulted when a property lookup on
// an Object's own fields misses and must walk Base. A nil VTable means the
// object declares no methods of its own.
type VTable map[symbol.Symbol]*Object

// Payload is the data a boxed primitive or opaque handle carries, mirroring
// token.Payload's shape so boxing/unboxing is a straight copy.
type Payload struct {
	Int   int64
	Float float64
	Char  rune
	Sym   symbol.Symbol
	Text  string
	Ptr   any
}

// Arg is SmileArg: the uniform argument/stack-slot value. Exactly one of
// its two halves is authoritative at any time — see Boxed/Unboxed.
type Arg struct {
	// Obj is the object pointer half. When Obj.Kind is unboxed, Obj is the
	// shared sentinel instance for that kind and Payload is authoritative.
	// When Obj.Kind is boxed (or any non-primitive kind), Obj is the
	// authoritative owned heap cell and Payload is ignored.
	Obj *Object

	// Payload is the unboxed half, authoritative only when Obj.Kind is one
	// of the unboxed primitive kinds.
	Payload Payload
}

// unboxedSentinels holds one shared *Object per unboxed primitive kind, used
// as Arg.Obj whenever Payload is authoritative, so an unboxed Arg never
// needs its own allocation.
var unboxedSentinels = func() map[Kind]*Object {
	m := make(map[Kind]*Object, 12)
	for k := KindByte; k <= KindReal64; k++ {
		m[k] = &Object{Kind: k}
	}
	return m
}()

// FromUnboxed builds an Arg for an unboxed primitive kind with the given
// payload, backed by the kind's shared sentinel object.
func FromUnboxed(kind Kind, payload Payload) Arg {
	sentinel, ok := unboxedSentinels[VariantOf(kind)]
	if !ok {
		panic(fmt.Sprintf("value: %v is not an unboxed primitive kind", kind))
	}
	return Arg{Obj: sentinel, Payload: payload}
}

// FromObject builds an Arg wrapping an already-boxed (or aggregate) Object.
func FromObject(obj *Object) Arg {
	return Arg{Obj: obj}
}

// IsUnboxed reports whether a is in its unboxed state (Obj is a primitive
// sentinel and Payload is authoritative).
func (a Arg) IsUnboxed() bool {
	return IsUnboxed(a.Obj.Kind)
}

// Box converts an unboxed Arg into an owned heap Object carrying the same
// payload, returning an Arg wrapping it. Boxing an already-boxed Arg is a
// no-op that returns a itself.
func (a Arg) Box() Arg {
	if !a.IsUnboxed() {
		return a
	}
	return FromObject(&Object{Kind: boxedOf(a.Obj.Kind), Payload: a.Payload})
}

// Unbox extracts an Arg's payload and swaps in the kind's shared unboxed
// sentinel, returning an Arg in unboxed state. Unboxing an Arg already in
// unboxed state is a no-op that returns a itself.
func (a Arg) Unbox() Arg {
	if a.IsUnboxed() {
		return a
	}
	if !IsBoxedPrimitive(a.Obj.Kind) {
		panic(fmt.Sprintf("value: %v cannot be unboxed, it is not a boxed primitive", a.Obj.Kind))
	}
	return FromUnboxed(unboxedOf(a.Obj.Kind), a.Obj.Payload)
}

// Null is the shared singleton Null value; every Arg built from it has
// Kind KindNull.
var Null = FromObject(&Object{Kind: KindNull})

// IsNull reports whether a is the Null value.
func (a Arg) IsNull() bool { return a.Obj.Kind == KindNull }

// List is a Lisp-style cons cell: Car/Cdr, where Cdr is itself a List
// (possibly Null-terminated) or, for an improper list, some other Arg. An
// empty list is represented by the Null Arg, not a nil *List.
//
// Pos, when non-nil, is the LexerPosition of the source text that produced
// this cell; cells synthesized by the compiler (rather than parsed) leave
// it nil.
type List struct {
	Car Arg
	Cdr Arg
	Pos *token.Position

	frozen bool
}

// NewList allocates a cons cell wrapped in an Arg of kind KindList.
func NewList(car, cdr Arg, pos *token.Position) Arg {
	l := &List{Car: car, Cdr: cdr, Pos: pos}
	return FromObject(&Object{Kind: KindList, Payload: Payload{Ptr: l}})
}

// AsList returns the *List a List-kind Arg wraps, or nil if a is Null or
// not a list.
func AsList(a Arg) *List {
	if a.Obj.Kind != KindList {
		return nil
	}
	l, _ := a.Obj.Payload.Ptr.(*List)
	return l
}

// Freeze marks l immutable; further attempts to mutate it (not enforced by
// this package directly, but consulted by callers before a Set*) should
// check IsFrozen first.
func (l *List) Freeze() { l.frozen = true }

// IsFrozen reports whether l has been frozen.
func (l *List) IsFrozen() bool { return l.frozen }

// ListOf builds a proper list (Null-terminated) from the given Args, each
// cell carrying no position (use NewList with a position for parsed cells). It is the
// inverse of ToSlice.
func ListOf(items ...Arg) Arg {
	result := Null
	for i := len(items) - 1; i >= 0; i-- {
		result = NewList(items[i], result, nil)
	}
	return result
}

// ToSlice flattens a proper list into a slice of its elements. If the list
// is improper (its final Cdr is not Null), ok is false.
func ToSlice(a Arg) (items []Arg, ok bool) {
	for {
		if a.IsNull() {
			return items, true
		}
		l := AsList(a)
		if l == nil {
			return items, false
		}
		items = append(items, l.Car)
		a = l.Cdr
	}
}

// Len returns the length of a proper list, or -1 if a is improper.
func Len(a Arg) int {
	items, ok := ToSlice(a)
	if !ok {
		return -1
	}
	return len(items)
}

// Pair is an ordered two-element value distinct from a cons cell, used for
// syntactic pairs such as custom-syntax rule substitutions.
type Pair struct {
	Left  Arg
	Right Arg
	Pos   *token.Position
}

// NewPair allocates a Pair wrapped in an Arg of kind KindPair.
func NewPair(left, right Arg, pos *token.Position) Arg {
	p := &Pair{Left: left, Right: right, Pos: pos}
	return FromObject(&Object{Kind: KindPair, Payload: Payload{Ptr: p}})
}

// AsPair returns the *Pair a Pair-kind Arg wraps, or nil otherwise.
func AsPair(a Arg) *Pair {
	if a.Obj.Kind != KindPair {
		return nil
	}
	p, _ := a.Obj.Payload.Ptr.(*Pair)
	return p
}

// Symbol builds an Arg for a bare symbol reference.
func Symbol(sym symbol.Symbol) Arg {
	return FromUnboxed(KindSymbol, Payload{Sym: sym})
}

// AsSymbol returns the Symbol a Symbol-kind Arg carries and true, or the
// zero Symbol and false if a is not a symbol.
func AsSymbol(a Arg) (symbol.Symbol, bool) {
	if VariantOf(a.Obj.Kind) != KindSymbol {
		return 0, false
	}
	if a.IsUnboxed() {
		return a.Payload.Sym, true
	}
	return a.Obj.Payload.Sym, true
}

// Byte builds an Arg for an unboxed 8-bit integer.
func Byte(n byte) Arg {
	return FromUnboxed(KindByte, Payload{Int: int64(n)})
}

// AsByte returns the byte a Byte-kind Arg carries and true, or 0, false.
func AsByte(a Arg) (byte, bool) {
	if VariantOf(a.Obj.Kind) != KindByte || !a.IsUnboxed() {
		return 0, false
	}
	return byte(a.Payload.Int), true
}

// Int16 builds an Arg for an unboxed 16-bit integer.
func Int16(n int16) Arg {
	return FromUnboxed(KindInt16, Payload{Int: int64(n)})
}

// AsInt16 returns the int16 an Int16-kind Arg carries and true, or 0, false.
func AsInt16(a Arg) (int16, bool) {
	if VariantOf(a.Obj.Kind) != KindInt16 || !a.IsUnboxed() {
		return 0, false
	}
	return int16(a.Payload.Int), true
}

// Int32 builds an Arg for an unboxed 32-bit integer.
func Int32(n int32) Arg {
	return FromUnboxed(KindInt32, Payload{Int: int64(n)})
}

// AsInt32 returns the int32 an Int32-kind Arg carries and true, or 0, false.
func AsInt32(a Arg) (int32, bool) {
	if VariantOf(a.Obj.Kind) != KindInt32 || !a.IsUnboxed() {
		return 0, false
	}
	return int32(a.Payload.Int), true
}

// Bool builds an Arg for an unboxed boolean.
func Bool(b bool) Arg {
	var i int64
	if b {
		i = 1
	}
	return FromUnboxed(KindBool, Payload{Int: i})
}

// AsBool returns the bool a Bool-kind Arg carries and true, or false, false.
func AsBool(a Arg) (bool, bool) {
	if VariantOf(a.Obj.Kind) != KindBool || !a.IsUnboxed() {
		return false, false
	}
	return a.Payload.Int != 0, true
}

// Int64 builds an Arg for an unboxed 64-bit integer.
func Int64(n int64) Arg {
	return FromUnboxed(KindInt64, Payload{Int: n})
}

// AsInt64 returns the int64 an Int64-kind Arg carries and true, or 0, false.
func AsInt64(a Arg) (int64, bool) {
	if VariantOf(a.Obj.Kind) != KindInt64 || !a.IsUnboxed() {
		return 0, false
	}
	return a.Payload.Int, true
}

// Float64 builds an Arg for an unboxed 64-bit float.
func Float64(f float64) Arg {
	return FromUnboxed(KindFloat64, Payload{Float: f})
}

// AsFloat64 returns the float64 a Float64-kind Arg carries and true, or 0, false.
func AsFloat64(a Arg) (float64, bool) {
	if VariantOf(a.Obj.Kind) != KindFloat64 || !a.IsUnboxed() {
		return 0, false
	}
	return a.Payload.Float, true
}

// Float32 builds an Arg for an unboxed 32-bit float.
func Float32(f float32) Arg {
	return FromUnboxed(KindFloat32, Payload{Float: float64(f)})
}

// AsFloat32 returns the float32 a Float32-kind Arg carries and true, or 0, false.
func AsFloat32(a Arg) (float32, bool) {
	if VariantOf(a.Obj.Kind) != KindFloat32 || !a.IsUnboxed() {
		return 0, false
	}
	return float32(a.Payload.Float), true
}

// Real32 builds an Arg for an unboxed 32-bit decimal real.
func Real32(f float32) Arg {
	return FromUnboxed(KindReal32, Payload{Float: float64(f)})
}

// AsReal32 returns the float32 a Real32-kind Arg carries and true, or 0, false.
func AsReal32(a Arg) (float32, bool) {
	if VariantOf(a.Obj.Kind) != KindReal32 || !a.IsUnboxed() {
		return 0, false
	}
	return float32(a.Payload.Float), true
}

// Real64 builds an Arg for an unboxed 64-bit decimal real.
func Real64(f float64) Arg {
	return FromUnboxed(KindReal64, Payload{Float: f})
}

// AsReal64 returns the float64 a Real64-kind Arg carries and true, or 0, false.
func AsReal64(a Arg) (float64, bool) {
	if VariantOf(a.Obj.Kind) != KindReal64 || !a.IsUnboxed() {
		return 0, false
	}
	return a.Payload.Float, true
}

// Char builds an Arg for an unboxed character.
func Char(r rune) Arg {
	return FromUnboxed(KindChar, Payload{Char: r})
}

// AsChar returns the rune a Char-kind Arg carries and true, or 0, false.
func AsChar(a Arg) (rune, bool) {
	if VariantOf(a.Obj.Kind) != KindChar || !a.IsUnboxed() {
		return 0, false
	}
	return a.Payload.Char, true
}

// Str builds an Arg for a boxed String object. Smile strings are always
// boxed — there is no unboxed string primitive.
func Str(s string) Arg {
	return FromObject(&Object{Kind: KindString, Payload: Payload{Text: s}})
}

// AsString returns the string a String-kind Arg carries and true, or "", false.
func AsString(a Arg) (string, bool) {
	if a.Obj.Kind != KindString {
		return "", false
	}
	return a.Obj.Payload.Text, true
}

// String renders an Arg for debugging/inspection, matching the style of
// Inspect methods elsewhere in this corpus rather than implementing the
// fmt.Stringer contract strictly (nested lists print recursively).
func (a Arg) String() string {
	switch VariantOf(a.Obj.Kind) {
	case KindNull:
		return "null"
	case KindBool:
		b, _ := AsBool(a)
		return strconv.FormatBool(b)
	case KindInt32:
		n, _ := AsInt32(a)
		return strconv.FormatInt(int64(n), 10)
	case KindSymbol:
		return "<symbol>"
	case KindString:
		s, _ := AsString(a)
		return strconv.Quote(s)
	case KindList:
		items, ok := ToSlice(a)
		if !ok {
			return "<improper-list>"
		}
		out := "["
		for i, it := range items {
			if i > 0 {
				out += " "
			}
			out += it.String()
		}
		return out + "]"
	case KindPair:
		p := AsPair(a)
		return "(" + p.Left.String() + " . " + p.Right.String() + ")"
	default:
		return fmt.Sprintf("<%v>", a.Obj.Kind)
	}
}
