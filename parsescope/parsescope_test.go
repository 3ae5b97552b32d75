package parsescope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smile-lang/smile/symbol"
)

func TestScopeLookupFindsAncestorDeclaration(t *testing.T) {
	syms := symbol.New()
	name := syms.GetOrCreate("x")

	root := NewRoot()
	_, err := root.Declare(name, DeclVariable, Position{})
	require.NoError(t, err)

	child := NewChild(root, ScopeDecl)

	decl := child.FindDeclaration(name)
	require.NotNil(t, decl)
	assert.Equal(t, DeclVariable, decl.Kind)
}

func TestScopeLookupChildShadowsParent(t *testing.T) {
	syms := symbol.New()
	name := syms.GetOrCreate("x")

	root := NewRoot()
	_, err := root.Declare(name, DeclVariable, Position{})
	require.NoError(t, err)

	child := NewChild(root, ScopeDecl)
	_, err = child.DeclareHere(name, DeclConst, Position{})
	require.NoError(t, err)

	childDecl := child.FindDeclaration(name)
	require.NotNil(t, childDecl)
	assert.Equal(t, DeclConst, childDecl.Kind)

	rootDecl := root.FindDeclaration(name)
	require.NotNil(t, rootDecl)
	assert.Equal(t, DeclVariable, rootDecl.Kind, "declaring in child must not mutate parent's declaration")
}

func TestPseudoScopeDelegatesDeclaration(t *testing.T) {
	syms := symbol.New()
	name := syms.GetOrCreate("arg")

	root := NewRoot()
	fnScope := NewChild(root, Function)

	decl, err := fnScope.Declare(name, DeclArgument, Position{})
	require.NoError(t, err)
	assert.NotNil(t, decl)

	assert.False(t, fnScope.IsDeclaredHere(name), "pseudo-scope must delegate, not declare in itself")
	assert.True(t, root.IsDeclaredHere(name), "declaration must land in the nearest non-pseudo ancestor")
}

func TestIncompatibleRedeclarationIsError(t *testing.T) {
	syms := symbol.New()
	name := syms.GetOrCreate("x")

	root := NewRoot()
	_, err := root.DeclareHere(name, DeclVariable, Position{})
	require.NoError(t, err)

	_, err = root.DeclareHere(name, DeclConst, Position{})
	assert.Error(t, err)
}

func TestSyntaxTableForksOnWrite(t *testing.T) {
	syms := symbol.New()
	classSym := syms.GetOrCreate("EXPR")

	root := NewRoot()
	childA := NewChild(root, Explicit)
	childB := NewChild(root, Explicit)

	childA.AddSyntaxRule(&SyntaxRule{ClassSymbol: classSym})

	assert.Len(t, childA.FindSyntaxRules(classSym), 1)
	assert.Len(t, childB.FindSyntaxRules(classSym), 0, "forking on write must not leak into sibling scopes")
	assert.Len(t, root.FindSyntaxRules(classSym), 0, "forking on write must not leak into the parent scope")
}

func TestIsDeclaredWalksWholeChain(t *testing.T) {
	syms := symbol.New()
	name := syms.GetOrCreate("y")

	root := NewRoot()
	mid := NewChild(root, ScopeDecl)
	leaf := NewChild(mid, ScopeDecl)

	assert.False(t, leaf.IsDeclared(name))
	_, err := root.DeclareHere(name, DeclVariable, Position{})
	require.NoError(t, err)
	assert.True(t, leaf.IsDeclared(name))
}
