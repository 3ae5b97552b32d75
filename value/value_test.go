package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxUnboxRoundTrip(t *testing.T) {
	original := Int32(42)
	require.True(t, original.IsUnboxed())

	boxed := original.Box()
	assert.False(t, boxed.IsUnboxed())
	assert.Equal(t, KindBoxedInt32, boxed.Obj.Kind)

	unboxed := boxed.Unbox()
	assert.True(t, unboxed.IsUnboxed())
	n, ok := AsInt32(unboxed)
	require.True(t, ok)
	assert.Equal(t, int32(42), n)
}

func TestBoxIsIdempotent(t *testing.T) {
	boxed := Int32(7).Box()
	assert.Equal(t, boxed, boxed.Box())
}

func TestUnboxIsIdempotent(t *testing.T) {
	unboxed := Int32(7)
	assert.Equal(t, unboxed, unboxed.Unbox())
}

func TestArgInvariantExactlyOneHalfAuthoritative(t *testing.T) {
	unboxed := Int32(1)
	assert.True(t, IsUnboxed(unboxed.Obj.Kind))

	boxedStr := Str("hello")
	assert.False(t, IsUnboxed(boxedStr.Obj.Kind))
}

func TestListOfAndToSlice(t *testing.T) {
	l := ListOf(Int32(1), Int32(2), Int32(3))
	items, ok := ToSlice(l)
	require.True(t, ok)
	require.Len(t, items, 3)
	for i, want := range []int32{1, 2, 3} {
		got, _ := AsInt32(items[i])
		assert.Equal(t, want, got)
	}
}

func TestEmptyListIsNull(t *testing.T) {
	l := ListOf()
	assert.True(t, l.IsNull())
	assert.Equal(t, 0, Len(l))
}

func TestImproperListReportsNotOK(t *testing.T) {
	improper := NewList(Int32(1), Int32(2), nil)
	_, ok := ToSlice(improper)
	assert.False(t, ok)
	assert.Equal(t, -1, Len(improper))
}

func TestProgn4ElementList(t *testing.T) {
	// Mirrors spec.md's cons/list well-formedness property: a parsed
	// "$progn a b c" must be a proper list of length 4.
	l := ListOf(Symbol(0), Int32(1), Int32(2), Int32(3))
	assert.Equal(t, 4, Len(l))
}

func TestPairDistinctFromList(t *testing.T) {
	p := NewPair(Int32(1), Int32(2), nil)
	assert.Equal(t, KindPair, p.Obj.Kind)
	assert.Nil(t, AsList(p))
	assert.NotNil(t, AsPair(p))
}

func TestNullSingleton(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.False(t, Int32(0).IsNull())
}
