// Package stdlib embeds the always-on-search-path standard library modules
// (sys.types, sys.adlast, sys.annotations, sys.dynamic) as ADL source text,
// the same //go:embed mechanism the teacher uses for its parser test
// fixture (parser/parser_test.go's "//go:embed test.tadl").
package stdlib

import (
	"embed"
	"path"
	"strings"
)

//go:embed sys/*.adl
var fs embed.FS

// dottedNames lists every embedded module's dotted name; its path under fs
// is derived from the name by Sources.
var dottedNames = []string{
	"sys.types",
	"sys.adlast",
	"sys.annotations",
	"sys.dynamic",
}

// Sources returns the embedded standard library keyed by dotted module
// name, suitable for loader.Options.Stdlib.
func Sources() map[string]string {
	out := make(map[string]string, len(dottedNames))

	for _, name := range dottedNames {
		rel := strings.ReplaceAll(name, ".", "/") + ".adl"

		data, err := fs.ReadFile(path.Clean(rel))
		if err != nil {
			panic("stdlib: embedded module missing: " + name + ": " + err.Error())
		}

		out[name] = string(data)
	}

	return out
}
