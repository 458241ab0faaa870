package typeutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/parser"
	"github.com/adlang/adlc/resolve"
)

func mustResolve(t *testing.T, src string) *resolve.LoadedAdl {
	t.Helper()

	mod, err := parser.ParseFile("demo.adl", strings.NewReader(src))
	require.NoError(t, err)

	loaded, err := resolve.Resolve([]*ast.Module{mod})
	require.NoError(t, err)

	return loaded
}

func TestExpandTypes_FollowsAliasAndNewTypeChain(t *testing.T) {
	loaded := mustResolve(t, `module demo {
struct Pair<A, B> { A v1; B v2; }
type IntPair = Pair<Int32, Int32>;
newtype Wrapped = IntPair;
}
`)

	wrapped := loaded.AllDecls["demo.Wrapped"]
	require.NotNil(t, wrapped)

	expanded := ExpandTypes(wrapped.TypeExpr, loaded.AllDecls)
	require.Equal(t, resolve.RefScoped, expanded.Ref.Kind)
	assert.Equal(t, resolve.ScopedName("demo.Pair"), expanded.Ref.Scoped)
	require.Len(t, expanded.Parameters, 2)
	assert.Equal(t, "Int32", expanded.Parameters[0].Ref.Primitive)
}

func TestTypeExprToString(t *testing.T) {
	loaded := mustResolve(t, `module demo {
struct Pair<A, B> { A v1; B v2; }
type IntPair = Pair<Int32, Int32>;
}
`)

	intPair := loaded.AllDecls["demo.IntPair"]
	require.NotNil(t, intPair)

	assert.Equal(t, "Pair<Int32, Int32>", TypeExprToString(intPair.TypeExpr))
}

func TestMonomorphicDecl_NoTypeParamsLeft(t *testing.T) {
	loaded := mustResolve(t, `module demo {
struct Pair<A, B> { A v1; B v2; }
struct User { Pair<Int32, String> coords; }
}
`)

	pair := loaded.AllDecls["demo.Pair"]
	require.NotNil(t, pair)

	user := loaded.AllDecls["demo.User"]
	require.NotNil(t, user)

	args := user.Fields[0].Type.Parameters

	mono := NewMonomorphizer(loaded.AllDecls)
	inst, err := mono.MonomorphicDecl(pair, args)
	require.NoError(t, err)

	assert.Equal(t, resolve.ScopedName("Pair_Int32_String"), inst.Name)
	require.Len(t, inst.Fields, 2)

	var walk func(te *resolve.TypeExpr)
	walk = func(te *resolve.TypeExpr) {
		assert.NotEqual(t, resolve.RefTypeParam, te.Ref.Kind)
		for _, p := range te.Parameters {
			walk(p)
		}
	}
	for _, f := range inst.Fields {
		walk(f.Type)
	}
}

func TestMonomorphicDecl_Memoized(t *testing.T) {
	loaded := mustResolve(t, `module demo {
struct Pair<A, B> { A v1; B v2; }
struct User { Pair<Int32, Int32> a; Pair<Int32, Int32> b; }
}
`)

	pair := loaded.AllDecls["demo.Pair"]
	user := loaded.AllDecls["demo.User"]

	mono := NewMonomorphizer(loaded.AllDecls)
	inst1, err := mono.MonomorphicDecl(pair, user.Fields[0].Type.Parameters)
	require.NoError(t, err)
	inst2, err := mono.MonomorphicDecl(pair, user.Fields[1].Type.Parameters)
	require.NoError(t, err)

	assert.Same(t, inst1, inst2)
}

func TestMonomorphicDecl_ArityMismatch(t *testing.T) {
	loaded := mustResolve(t, `module demo {
struct Pair<A, B> { A v1; B v2; }
}
`)

	pair := loaded.AllDecls["demo.Pair"]

	mono := NewMonomorphizer(loaded.AllDecls)
	_, err := mono.MonomorphicDecl(pair, nil)
	assert.Error(t, err)
}

func TestCompilerVersionSatisfies(t *testing.T) {
	assert.True(t, CompilerVersionSatisfies("v1.4.0", "v1.4.0"))
	assert.True(t, CompilerVersionSatisfies("v1.4.0", "v1.5.0"))
	assert.False(t, CompilerVersionSatisfies("v1.4.0", "v1.3.9"))
}
