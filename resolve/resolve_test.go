package resolve

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/parser"
	"github.com/adlang/adlc/token"
)

// ignoreTypeExprPos drops the Pos field from the comparison: cmp.Diff would
// otherwise fail on source-location differences that are irrelevant to
// whether two resolved TypeExpr trees have the same shape (e.g. a misplaced
// RefScoped vs a misplaced Parameters entry, which testify's reflect-based
// assert.Equal diffs far less legibly).
var ignoreTypeExprPos = cmpopts.IgnoreFields(TypeExpr{}, "Pos")

func mustParse(t *testing.T, file, src string) *ast.Module {
	t.Helper()

	mod, err := parser.ParseFile(file, strings.NewReader(src))
	require.NoError(t, err)

	return mod
}

// TestResolve_S1NestedGenerics mirrors the nested-generics scenario: an
// alias over a saturated generic struct application resolves with no free
// parameters left.
func TestResolve_S1NestedGenerics(t *testing.T) {
	mod := mustParse(t, "demo.adl", `module demo {
struct Pair<A, B> { A v1; B v2; }
type IntPair = Pair<Int32, Int32>;
}
`)

	loaded, err := Resolve([]*ast.Module{mod})
	require.NoError(t, err)

	intPair := loaded.AllDecls["demo.IntPair"]
	require.NotNil(t, intPair)
	require.Equal(t, ast.DeclTypeDef, intPair.Kind)

	te := intPair.TypeExpr
	require.Equal(t, RefScoped, te.Ref.Kind)
	assert.Equal(t, ScopedName("demo.Pair"), te.Ref.Scoped)
	require.Len(t, te.Parameters, 2)
	assert.Equal(t, RefPrimitive, te.Parameters[0].Ref.Kind)
	assert.Equal(t, "Int32", te.Parameters[0].Ref.Primitive)
}

// TestResolve_S1NestedGenerics_TypeExprShape deep-compares the resolved
// IntPair TypeExpr tree against its expected shape with cmp.Diff, the
// pack's idiom for catching a misplaced node in a recursive structure that
// a coarse assert.Equal diff would render unreadably.
func TestResolve_S1NestedGenerics_TypeExprShape(t *testing.T) {
	mod := mustParse(t, "demo.adl", `module demo {
struct Pair<A, B> { A v1; B v2; }
type IntPair = Pair<Int32, Int32>;
}
`)

	loaded, err := Resolve([]*ast.Module{mod})
	require.NoError(t, err)

	intPair := loaded.AllDecls["demo.IntPair"]
	require.NotNil(t, intPair)

	want := &TypeExpr{
		Ref: TypeRef{Kind: RefScoped, Scoped: ScopedName("demo.Pair")},
		Parameters: []*TypeExpr{
			{Ref: TypeRef{Kind: RefPrimitive, Primitive: "Int32"}, Parameters: []*TypeExpr{}},
			{Ref: TypeRef{Kind: RefPrimitive, Primitive: "Int32"}, Parameters: []*TypeExpr{}},
		},
	}

	if diff := cmp.Diff(want, intPair.TypeExpr, ignoreTypeExprPos); diff != "" {
		t.Errorf("IntPair TypeExpr mismatch (-want +got):\n%s", diff)
	}
}

// TestResolve_S2AliasCycle mirrors the alias-cycle scenario.
func TestResolve_S2AliasCycle(t *testing.T) {
	mod := mustParse(t, "demo.adl", `module demo {
type A = B;
type B = A;
}
`)

	_, err := Resolve([]*ast.Module{mod})
	require.Error(t, err)

	var perr *token.PosError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, token.TypeAliasCycle, perr.Kind)
}

// TestResolve_S3DefaultMismatch mirrors the default-value mismatch
// scenario.
func TestResolve_S3DefaultMismatch(t *testing.T) {
	mod := mustParse(t, "demo.adl", `module demo {
struct S { Int32 n = "hello"; }
}
`)

	_, err := Resolve([]*ast.Module{mod})
	require.Error(t, err)

	var perr *token.PosError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, token.DefaultValueMismatch, perr.Kind)
}

// TestResolve_S5UnionDefault mirrors the union-default scenario: both the
// bare string (void arm) and the single-key object forms are accepted, and
// a two-key object is rejected.
func TestResolve_S5UnionDefault(t *testing.T) {
	t.Run("void arm shorthand accepted", func(t *testing.T) {
		mod := mustParse(t, "demo.adl", `module demo {
union U { Void a; Int32 b; } = "a";
}
`)
		_, err := Resolve([]*ast.Module{mod})
		require.NoError(t, err)
	})

	t.Run("single key object accepted", func(t *testing.T) {
		mod := mustParse(t, "demo.adl", `module demo {
union U { Void a; Int32 b; } = {"b": 7};
}
`)
		_, err := Resolve([]*ast.Module{mod})
		require.NoError(t, err)
	})

	t.Run("void arm object-null form accepted", func(t *testing.T) {
		mod := mustParse(t, "demo.adl", `module demo {
union U { Void a; Int32 b; } = {"a": null};
}
`)
		_, err := Resolve([]*ast.Module{mod})
		require.NoError(t, err)
	})

	t.Run("two keys rejected", func(t *testing.T) {
		mod := mustParse(t, "demo.adl", `module demo {
union U { Void a; Int32 b; } = {"a": 0, "b": 1};
}
`)
		_, err := Resolve([]*ast.Module{mod})
		require.Error(t, err)

		var perr *token.PosError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, token.DefaultValueMismatch, perr.Kind)
	})
}

func TestResolve_ArityMismatch(t *testing.T) {
	mod := mustParse(t, "demo.adl", `module demo {
struct Pair<A, B> { A v1; B v2; }
struct Bad { Pair<Int32> p; }
}
`)

	_, err := Resolve([]*ast.Module{mod})
	require.Error(t, err)

	var perr *token.PosError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, token.ArityMismatch, perr.Kind)
}

func TestResolve_UnknownType(t *testing.T) {
	mod := mustParse(t, "demo.adl", `module demo {
struct S { Ghost g; }
}
`)

	_, err := Resolve([]*ast.Module{mod})
	require.Error(t, err)

	var perr *token.PosError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, token.UnknownType, perr.Kind)
}

func TestResolve_CrossModuleImport(t *testing.T) {
	a := mustParse(t, "a.adl", `module a {
struct Id { Int64 value; }
}
`)
	b := mustParse(t, "b.adl", `module b {
import a.Id;

struct Wrapper { Id id; }
}
`)

	loaded, err := Resolve([]*ast.Module{a, b})
	require.NoError(t, err)

	wrapper := loaded.AllDecls["b.Wrapper"]
	require.NotNil(t, wrapper)
	require.Len(t, wrapper.Fields, 1)
	assert.Equal(t, ScopedName("a.Id"), wrapper.Fields[0].Type.Ref.Scoped)
}
