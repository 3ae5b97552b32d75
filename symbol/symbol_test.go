package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateIdentity(t *testing.T) {
	tbl := New()

	a1 := tbl.GetOrCreate("alpha")
	a2 := tbl.GetOrCreate("alpha")
	assert.Equal(t, a1, a2, "interning the same string twice must yield the same symbol")

	b := tbl.GetOrCreate("beta")
	assert.NotEqual(t, a1, b, "different strings must intern to different symbols")
}

func TestEmptyStringIsSymbolZero(t *testing.T) {
	tbl := New()
	assert.Equal(t, Symbol(0), tbl.GetOrCreate(""))
	assert.Equal(t, "", tbl.GetName(0))
}

func TestGetNameRoundTrip(t *testing.T) {
	tbl := New()
	for _, name := range []string{"x", "foo-bar", "$set", "till"} {
		sym := tbl.GetOrCreate(name)
		assert.Equal(t, name, tbl.GetName(sym))
	}
}

func TestGetNoCreate(t *testing.T) {
	tbl := New()
	require.Equal(t, Symbol(0), tbl.GetNoCreate("never-interned"))

	sym := tbl.GetOrCreate("now-interned")
	assert.Equal(t, sym, tbl.GetNoCreate("now-interned"))
}

func TestGrowthPastInitialCapacity(t *testing.T) {
	tbl := New()
	seen := make(map[Symbol]bool)
	for i := 0; i < initialCapacity*2+5; i++ {
		sym := tbl.GetOrCreate(string(rune('a')) + itoaTest(i))
		assert.False(t, seen[sym], "symbol ids must stay unique across growth")
		seen[sym] = true
	}
	assert.Equal(t, initialCapacity*2+5+1, tbl.Len())
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

func TestPreloadKnown(t *testing.T) {
	tbl := New()
	known := PreloadKnown(tbl)

	assert.Equal(t, "$if", tbl.GetName(known.If))
	assert.Equal(t, "$set", tbl.GetName(known.Set))
	assert.Equal(t, known.If, tbl.GetOrCreate("$if"), "preloading must not re-intern a fresh symbol")
}
