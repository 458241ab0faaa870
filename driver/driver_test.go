package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/parser"
	"github.com/adlang/adlc/resolve"
)

func mustLoad(t *testing.T, modules map[string]string) *resolve.LoadedAdl {
	t.Helper()

	var parsed []*ast.Module
	for file, src := range modules {
		mod, err := parser.ParseFile(file, strings.NewReader(src))
		require.NoError(t, err)
		parsed = append(parsed, mod)
	}

	loaded, err := resolve.Resolve(parsed)
	require.NoError(t, err)

	return loaded
}

func TestDriver_DeclsOrderedByModuleThenSource(t *testing.T) {
	loaded := mustLoad(t, map[string]string{
		"demo.adl": `module demo {
struct Person { String name; Int32 age = 0; }
struct Address { String street; }
}
`,
	})

	d := New(loaded, PackageMapping{RootPackage: "com.acme.gen"})

	pairs := d.Decls()
	require.Len(t, pairs, 2)
	assert.Equal(t, "demo.Person", string(pairs[0].Decl.Name))
	assert.Equal(t, "demo.Address", string(pairs[1].Decl.Name))
	assert.Equal(t, "demo", pairs[0].Module.Name)
}

func TestDriver_PackagePathRootAndOverride(t *testing.T) {
	m := PackageMapping{
		RootPackage:        "com.acme.gen",
		PerModuleOverrides: map[string]string{"sys.types": "com.acme.sys"},
	}
	d := New(&resolve.LoadedAdl{}, m)

	assert.Equal(t, "com.acme.gen.demo.person", d.PackagePath("demo.person"))
	assert.Equal(t, "com.acme.sys", d.PackagePath("sys.types"))
}

func TestDriver_PackagePathNoRoot(t *testing.T) {
	d := New(&resolve.LoadedAdl{}, PackageMapping{})
	assert.Equal(t, "demo.person", d.PackagePath("demo.person"))
}

func TestDriver_ResolveUnknownErrors(t *testing.T) {
	loaded := mustLoad(t, map[string]string{
		"demo.adl": `module demo { struct Person { String name; } }`,
	})
	d := New(loaded, PackageMapping{})

	decl, err := d.Resolve("demo.Person")
	require.NoError(t, err)
	assert.Equal(t, "demo.Person", string(decl.Name))

	_, err = d.Resolve("demo.Missing")
	assert.Error(t, err)
}

func TestDriver_AnnotationAccessors(t *testing.T) {
	loaded := mustLoad(t, map[string]string{
		"demo.adl": `module demo {
annotation Person sys.annotations.Doc "a person";
struct Person { String name; }
}
`,
	})
	d := New(loaded, PackageMapping{})

	person := loaded.AllDecls["demo.Person"]
	require.NotNil(t, person)

	doc, ok, err := GetString(person.Annotations, "sys.annotations.Doc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a person", doc)

	_, ok, err = GetBool(person.Annotations, "sys.annotations.Doc")
	assert.False(t, ok)
	var shapeErr *AnnotationShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "boolean", shapeErr.Want)

	_, ok, err = GetString(person.Annotations, "sys.annotations.Missing")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestDriver_AllDeclsAndModules(t *testing.T) {
	loaded := mustLoad(t, map[string]string{
		"demo.adl": `module demo { struct Person { String name; } }`,
	})
	d := New(loaded, PackageMapping{})

	assert.Contains(t, d.AllDecls(), resolve.ScopedName("demo.Person"))
	require.Len(t, d.Modules(), 1)
	assert.Equal(t, "demo", d.Modules()[0].Name)
}
