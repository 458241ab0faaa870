package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesFileAndManifestEntry(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Options{OutDir: dir})
	require.NoError(t, err)

	require.NoError(t, w.Write("pkg/model.go", []byte("package pkg\n")))

	got, err := os.ReadFile(filepath.Join(dir, "pkg", "model.go"))
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(got))

	entries := w.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "pkg/model.go", entries[0].Path)
	assert.Equal(t, SHA256Hex([]byte("package pkg\n")), entries[0].SHA256Hex)
}

func TestWrite_DuplicatePathInOneRunErrors(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Options{OutDir: dir})
	require.NoError(t, err)

	require.NoError(t, w.Write("a.go", []byte("one")))
	assert.Error(t, w.Write("a.go", []byte("two")))
}

func TestWrite_NoOverwriteSkipsIdenticalContent(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("same"), 0o644))

	w, err := New(Options{OutDir: dir, NoOverwrite: true})
	require.NoError(t, err)

	require.NoError(t, w.Write("a.go", []byte("same")))
	assert.Len(t, w.Entries(), 1)
}

func TestWrite_NoOverwriteStillWritesDifferingContent(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("old"), 0o644))

	w, err := New(Options{OutDir: dir, NoOverwrite: true})
	require.NoError(t, err)

	require.NoError(t, w.Write("a.go", []byte("new")))

	got, err := os.ReadFile(filepath.Join(dir, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestFlush_WritesSortedManifest(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Options{OutDir: dir, TotalSummary: true})
	require.NoError(t, err)

	require.NoError(t, w.Write("b.go", []byte("b")))
	require.NoError(t, w.Write("a.go", []byte("a")))

	require.NoError(t, w.Flush("manifest.txt"))

	got, err := os.ReadFile(filepath.Join(dir, "manifest.txt"))
	require.NoError(t, err)

	assert.Contains(t, string(got), "a.go "+SHA256Hex([]byte("a")))
	assert.Contains(t, string(got), "b.go "+SHA256Hex([]byte("b")))
	assert.Contains(t, string(got), "# total 2 files")

	aIdx := indexOf(string(got), "a.go")
	bIdx := indexOf(string(got), "b.go")
	assert.Less(t, aIdx, bIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
