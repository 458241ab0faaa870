package sidecar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/parser"
)

func parseFixture(t *testing.T, dir, name, src string) *ast.Module {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	mod, err := parser.ParseFile(path, strings.NewReader(src))
	require.NoError(t, err)
	mod.File = path

	return mod
}

// TestMerge_S4 exercises the scenario from the scoped spec: a struct with no
// annotations gets a JavaTable annotation overlaid from a sidecar.
func TestMerge_S4(t *testing.T) {
	dir := t.TempDir()

	mod := parseFixture(t, dir, "demo.adl", `module demo {
struct Person { String name; }
}
`)

	sidecarPath := filepath.Join(dir, "demo.adl-java")
	sidecarSrc := `{
		"Person": {
			"annotations": {
				"adlc.config.java.JavaTable": {"tableName": "people"}
			}
		}
	}`
	require.NoError(t, os.WriteFile(sidecarPath, []byte(sidecarSrc), 0o644))

	warnings, err := Merge(mod, []string{"adl-java"})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	person := mod.Decl("Person")
	require.NotNil(t, person)

	lit, ok := person.Annotations.Get("adlc.config.java.JavaTable")
	require.True(t, ok)
	require.Equal(t, ast.LitObject, lit.Kind)
	assert.Equal(t, "people", lit.ObjectValues["tableName"].Str)
}

func TestMerge_UnknownDeclWarns(t *testing.T) {
	dir := t.TempDir()

	mod := parseFixture(t, dir, "demo.adl", `module demo {
struct Person { String name; }
}
`)

	sidecarPath := filepath.Join(dir, "demo.adl-java")
	require.NoError(t, os.WriteFile(sidecarPath, []byte(`{"Ghost": {"annotations": {"a.b.C": 1}}}`), 0o644))

	warnings, err := Merge(mod, []string{"adl-java"})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "Ghost")
}

func TestMerge_LastWriterWins(t *testing.T) {
	dir := t.TempDir()

	mod := parseFixture(t, dir, "demo.adl", `module demo {
struct Person { String name; }
}
`)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.adl-java"), []byte(`{"Person": {"annotations": {"a.b.Tag": "first"}}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.adl-ts"), []byte(`{"Person": {"annotations": {"a.b.Tag": "second"}}}`), 0o644))

	_, err := Merge(mod, []string{"adl-java", "adl-ts"})
	require.NoError(t, err)

	lit, ok := mod.Decl("Person").Annotations.Get("a.b.Tag")
	require.True(t, ok)
	assert.Equal(t, "second", lit.Str)
}

func TestMerge_NoSidecarIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	mod := parseFixture(t, dir, "demo.adl", `module demo {
struct Person { String name; }
}
`)

	warnings, err := Merge(mod, []string{"adl-java"})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestMerge_FieldAnnotations(t *testing.T) {
	dir := t.TempDir()

	mod := parseFixture(t, dir, "demo.adl", `module demo {
struct Person { String name; }
}
`)

	sidecarSrc := `{"Person": {"fields": {"name": {"annotations": {"a.b.MaxLen": 255}}}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.adl-java"), []byte(sidecarSrc), 0o644))

	_, err := Merge(mod, []string{"adl-java"})
	require.NoError(t, err)

	field := mod.Decl("Person").Field("name")
	require.NotNil(t, field)

	lit, ok := field.Annotations.Get("a.b.MaxLen")
	require.True(t, ok)
	assert.Equal(t, "255", lit.Number)
	assert.Equal(t, ast.LitInt, lit.Kind)
}
