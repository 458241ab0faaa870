// Package writer implements the File Writer & Manifest (spec §4.6): it
// writes generated output files atomically and accumulates a manifest of
// their relative paths and content hashes.
//
// Grounded on _examples/termfx-morfx/internal/util/file.go's
// WriteFileAtomic (temp file in the target directory, then os.Rename) and
// SHA1Hex/SHA1FileHex pattern, generalized from SHA-1 to SHA-256 per spec
// §4.6.
package writer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Options configures a Writer.
type Options struct {
	// OutDir is the root directory every Write path is relative to.
	OutDir string

	// NoOverwrite, when true, makes Write skip the file write (success, not
	// an error; the manifest entry is still recorded) whenever the target
	// already holds byte-identical content. A
	// differing target is still written (atomically), same as when
	// NoOverwrite is unset.
	NoOverwrite bool

	// RunID, when true, stamps the manifest with a random
	// github.com/google/uuid run identifier header line.
	RunID bool

	// TotalSummary, when true, appends a trailing "# total <n> files" line
	// to the flushed manifest.
	TotalSummary bool
}

// Entry is one manifest line: an output-relative path and the hex SHA-256
// of the bytes written there.
type Entry struct {
	Path string
	SHA256Hex string
}

// Writer accumulates Write calls into a manifest, flushed with Flush.
type Writer struct {
	opts    Options
	entries []Entry
	seen    map[string]bool
}

// New returns a Writer rooted at opts.OutDir. OutDir is created if it
// doesn't already exist.
func New(opts Options) (*Writer, error) {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("writer: create out dir: %w", err)
	}

	return &Writer{opts: opts, seen: map[string]bool{}}, nil
}

// Write atomically writes data to relPath (relative to OutDir), recording it
// in the manifest. A relPath written twice in one run is an error, whether
// or not the bytes differ and regardless of NoOverwrite — the manifest has
// at most one entry per path.
func (w *Writer) Write(relPath string, data []byte) error {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	full := filepath.Join(w.opts.OutDir, filepath.FromSlash(relPath))

	sum := sha256.Sum256(data)
	hexSum := hex.EncodeToString(sum[:])

	if w.seen[relPath] {
		return fmt.Errorf("writer: %s written more than once in this run", relPath)
	}

	if existing, err := os.ReadFile(full); err == nil {
		if w.opts.NoOverwrite && string(existing) == string(data) {
			w.record(relPath, hexSum)
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("writer: stat %s: %w", relPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("writer: create dir for %s: %w", relPath, err)
	}

	if err := writeFileAtomic(full, data, 0o644); err != nil {
		return fmt.Errorf("writer: write %s: %w", relPath, err)
	}

	w.record(relPath, hexSum)

	return nil
}

func (w *Writer) record(relPath, hexSum string) {
	w.seen[relPath] = true
	w.entries = append(w.entries, Entry{Path: relPath, SHA256Hex: hexSum})
}

// Entries returns the accumulated manifest entries, sorted by path.
func (w *Writer) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

// Flush writes the accumulated manifest to manifestPath (relative to
// OutDir), one "<path> <sha256-hex>" line per entry in sorted order.
func (w *Writer) Flush(manifestPath string) error {
	var b strings.Builder

	if w.opts.RunID {
		fmt.Fprintf(&b, "# run %s\n", uuid.New().String())
	}

	entries := w.Entries()
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s\n", e.Path, e.SHA256Hex)
	}

	if w.opts.TotalSummary {
		fmt.Fprintf(&b, "# total %d files\n", len(entries))
	}

	full := filepath.Join(w.opts.OutDir, filepath.FromSlash(manifestPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("writer: create dir for manifest: %w", err)
	}

	if err := writeFileAtomic(full, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writer: write manifest: %w", err)
	}

	return nil
}

// writeFileAtomic writes data to path by creating a temp file in path's
// directory and renaming it into place, so a reader never observes a
// partially-written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// SHA256Hex hashes data and returns its hex digest, exposed for callers
// (e.g. the driver) that need to compare content against a manifest without
// going through Write.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256FileHex hashes a file's content.
func SHA256FileHex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
