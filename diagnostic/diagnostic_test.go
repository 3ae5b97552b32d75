package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smile-lang/smile/token"
)

func TestListPreservesOrder(t *testing.T) {
	var l List
	l.Add(Info, token.Position{}, "first")
	l.Add(Error, token.Position{}, "second")
	l.Add(Warning, token.Position{}, "third")

	msgs := l.Messages()
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "third", msgs[2].Text)
}

func TestHasErrorsConsidersFatalAsError(t *testing.T) {
	var l List
	l.Add(Warning, token.Position{}, "just a warning")
	assert.False(t, l.HasErrors())

	l.Add(Fatal, token.Position{}, "boom")
	assert.True(t, l.HasErrors())
}

func TestErrorfFormats(t *testing.T) {
	var l List
	l.Errorf(token.Position{Line: 3}, "unexpected %s", "token")
	assert.Equal(t, "unexpected token", l.Messages()[0].Text)
	assert.Equal(t, Error, l.Messages()[0].Severity)
}
