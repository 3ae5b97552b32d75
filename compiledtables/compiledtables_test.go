package compiledtables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStringDedupsByContent(t *testing.T) {
	tbl := New()
	a := tbl.AddString("hello")
	b := tbl.AddString("hello")
	c := tbl.AddString("world")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hello", tbl.String(a))
}

func TestAddUserFunctionInfoDedupsByIdentity(t *testing.T) {
	tbl := New()
	type ufi struct{ name string }
	f1 := &ufi{name: "f"}
	f2 := &ufi{name: "f"} // distinct identity, equal contents

	i1 := tbl.AddUserFunctionInfo(f1)
	i2 := tbl.AddUserFunctionInfo(f1)
	i3 := tbl.AddUserFunctionInfo(f2)

	assert.Equal(t, i1, i2)
	assert.NotEqual(t, i1, i3)
}

func TestSourceLocationsAreNotDeduped(t *testing.T) {
	tbl := New()
	i1 := tbl.AddSourceLocation(SourceLocation{AssignedName: "x"})
	i2 := tbl.AddSourceLocation(SourceLocation{AssignedName: "x"})
	assert.NotEqual(t, i1, i2, "source locations are appended, not deduplicated")
}

func TestResolveTillBranchTargets(t *testing.T) {
	tbl := New()
	info := &TillContinuationInfo{
		Flags: []TillFlag{
			{Name: "found", BranchTarget: &BranchTargetRef{FunctionIndex: 0, InstrIndex: 3}},
		},
	}
	tbl.AddTillContinuationInfo(info)

	tbl.ResolveTillBranchTargets(func(ref *BranchTargetRef) int32 {
		return int32(ref.InstrIndex * 10)
	})

	require.Len(t, tbl.TillInfos, 1)
	assert.Equal(t, int32(30), tbl.TillInfos[0].Flags[0].ResolvedTarget)
}
