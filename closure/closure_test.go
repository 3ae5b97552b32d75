package closure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalVariableUndefinedReadReportsFalse(t *testing.T) {
	info := NewGlobalInfo(nil)
	c := NewGlobal(info, nil)

	_, ok := GetGlobalVariable(c, 1)
	assert.False(t, ok, "reading an undefined global must report not-found so the caller can substitute Null")
}

func TestGlobalVariableSetThenGet(t *testing.T) {
	info := NewGlobalInfo(nil)
	c := NewGlobal(info, nil)

	SetGlobalVariable(c, 7, "hello")
	v, ok := GetGlobalVariable(c, 7)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.True(t, HasGlobalVariable(c, 7))
}

func TestLocalVariableDepth0IsOwnFrame(t *testing.T) {
	info := NewLocalInfo(nil, nil, 1, 1)
	c := NewLocal(info, nil)

	SetVariableInScope(c, 0, 0, "arg0")
	assert.Equal(t, "arg0", GetVariableInScope(c, 0, 0))
}

func TestLocalVariableDepthWalksParents(t *testing.T) {
	outerInfo := NewLocalInfo(nil, nil, 0, 1)
	outer := NewLocal(outerInfo, nil)
	SetVariableInScope(outer, 0, 0, "outer-local")

	innerInfo := NewLocalInfo(outerInfo, nil, 0, 0)
	inner := NewLocal(innerInfo, outer)

	assert.Equal(t, "outer-local", GetVariableInScope(inner, 1, 0),
		"a nested function must reach its parent's locals via scope-depth 1")
}

func TestLocalVariableDeepWalkBeyondInlinedDepths(t *testing.T) {
	var frames []*Closure
	var parent *Closure
	for i := 0; i < 6; i++ {
		info := NewLocalInfo(nil, nil, 0, 1)
		c := NewLocal(info, parent)
		SetVariableInScope(c, 0, 0, i)
		frames = append(frames, c)
		parent = c
	}
	deepest := frames[len(frames)-1]
	assert.Equal(t, 0, GetVariableInScope(deepest, 5, 0),
		"depth beyond the inlined 0..3 cases must still walk correctly")
}

func TestTempStackPushPopBalance(t *testing.T) {
	info := NewLocalInfo(nil, nil, 0, 0)
	info.TempSize = 2
	c := NewLocal(info, nil)

	PushTemp(c, "a")
	PushTemp(c, "b")
	assert.Equal(t, "b", PopTemp(c))
	assert.Equal(t, "a", PopTemp(c))
	assert.Equal(t, int32(0), c.StackTop)
}

func TestPopCountDiscardsMultiple(t *testing.T) {
	info := NewLocalInfo(nil, nil, 0, 0)
	info.TempSize = 3
	c := NewLocal(info, nil)

	PushTemp(c, 1)
	PushTemp(c, 2)
	PushTemp(c, 3)
	PopCount(c, 2)
	assert.Equal(t, int32(1), c.StackTop)
}
