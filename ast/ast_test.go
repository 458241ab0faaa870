package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlang/adlc/token"
)

func TestModuleName_StringAndPath(t *testing.T) {
	mn := ModuleName{Parts: []Ident{{Value: "foo"}, {Value: "bar"}, {Value: "baz"}}}
	assert.Equal(t, "foo.bar.baz", mn.String())
	assert.Equal(t, "foo/bar/baz.adl", mn.Path())
}

func TestAnnotations_SetOverwritesAndReportsOverwrite(t *testing.T) {
	ann := NewAnnotations()

	overwrote := ann.Set("sys.annotations.Doc", token.Pos{}, &Literal{Kind: LitString, Str: "first"})
	assert.False(t, overwrote)

	overwrote = ann.Set("sys.annotations.Doc", token.Pos{}, &Literal{Kind: LitString, Str: "second"})
	assert.True(t, overwrote)

	v, ok := ann.Get("sys.annotations.Doc")
	require.True(t, ok)
	assert.Equal(t, "second", v.Str)
}

func TestAnnotations_GetMissingReturnsFalse(t *testing.T) {
	ann := NewAnnotations()
	_, ok := ann.Get("sys.annotations.Missing")
	assert.False(t, ok)
}

func TestDecl_FieldAndArity(t *testing.T) {
	d := &Decl{
		Name:       Ident{Value: "Pair"},
		TypeParams: []Ident{{Value: "A"}, {Value: "B"}},
		Fields: []*Field{
			{Name: Ident{Value: "v1"}},
			{Name: Ident{Value: "v2"}},
		},
	}

	assert.Equal(t, 2, d.Arity())
	require.NotNil(t, d.Field("v1"))
	assert.Nil(t, d.Field("missing"))
}

func TestDecl_ScopedName(t *testing.T) {
	d := &Decl{Module: "demo.person", Name: Ident{Value: "Person"}}
	assert.Equal(t, "demo.person.Person", d.ScopedName())

	d2 := &Decl{Name: Ident{Value: "Person"}}
	assert.Equal(t, "Person", d2.ScopedName())
}

func TestModule_DeclLookup(t *testing.T) {
	mod := &Module{
		Name: ModuleName{Parts: []Ident{{Value: "demo"}}},
		Decls: []*Decl{
			{Name: Ident{Value: "Person"}},
		},
	}

	require.NotNil(t, mod.Decl("Person"))
	assert.Nil(t, mod.Decl("Missing"))
}

func TestPrimitiveArityAndBounds(t *testing.T) {
	assert.True(t, IsPrimitive("Vector"))
	assert.False(t, IsPrimitive("NotAPrimitive"))
	assert.Equal(t, 1, PrimitiveArity["Vector"])
	assert.Equal(t, 0, PrimitiveArity["Bool"])

	lo, hi, ok := IntegerBounds("Int8")
	require.True(t, ok)
	assert.Equal(t, int64(-128), lo)
	assert.Equal(t, int64(127), hi)

	_, _, ok = IntegerBounds("Word64")
	assert.False(t, ok)

	assert.True(t, IsIntegerPrimitive("Word64"))
	assert.False(t, IsIntegerPrimitive("String"))
}
