// Package sidecar implements the Annotation Merger (spec §4.3): it
// discovers "<module-file>.<ext>" JSON overlay files next to a parsed
// module and merges their annotation declarations onto the module's decls
// and fields.
//
// Grounded on the teacher's habit of keeping diagnostic construction pure
// and deferring printing to a caller (PosError values / Explain are never
// invoked inside ast or parser); the merger follows the same discipline by
// returning warnings instead of logging them.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/token"
)

// Warning is a soft, non-fatal finding produced while merging sidecars,
// e.g. a sidecar targeting a decl or field that does not exist locally.
type Warning struct {
	File    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.File, w.Message)
}

// sidecarDoc is the top-level JSON shape from spec §4.3:
//
//	{ "<decl-name>": { "annotations": {...}, "fields": { "<field>": {"annotations": {...}} } } }
type sidecarDoc map[string]sidecarDecl

type sidecarDecl struct {
	Annotations map[string]json.RawMessage    `json:"annotations"`
	Fields      map[string]sidecarFieldObject `json:"fields"`
}

type sidecarFieldObject struct {
	Annotations map[string]json.RawMessage `json:"annotations"`
}

// Merge discovers and applies every sidecar file for mod's backing source
// file, in the order given by exts (outer loop) — last-writer-wins between
// sidecars, per spec's resolved open question (scoped to the owning file;
// unknown local decl/field names warn rather than fail).
func Merge(mod *ast.Module, exts []string) ([]Warning, error) {
	var warnings []Warning

	base := strings.TrimSuffix(mod.File, ".adl")

	for _, ext := range exts {
		path := base + "." + strings.TrimPrefix(ext, ".")

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return warnings, token.NewPosError(token.NewNode(token.Pos{File: path}, token.Pos{File: path}), err.Error()).
				WithKind(token.IOError)
		}

		var doc sidecarDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return warnings, token.NewPosError(token.NewNode(token.Pos{File: path}, token.Pos{File: path}), err.Error()).
				WithKind(token.AnnotationShapeError)
		}

		fileWarnings, err := applyDoc(mod, path, doc)
		warnings = append(warnings, fileWarnings...)
		if err != nil {
			return warnings, err
		}
	}

	return warnings, nil
}

func applyDoc(mod *ast.Module, path string, doc sidecarDoc) ([]Warning, error) {
	var warnings []Warning

	// Deterministic iteration: sort decl names so merge order (and any
	// diagnostics produced) doesn't depend on Go's randomized map order.
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := doc[name]

		decl := mod.Decl(name)
		if decl == nil {
			warnings = append(warnings, Warning{
				File:    path,
				Message: fmt.Sprintf("sidecar targets unknown decl %q", name),
			})
			continue
		}

		if err := applyAnnotations(&decl.Annotations, decl.Pos, entry.Annotations); err != nil {
			return warnings, wrapShapeError(path, name, err)
		}

		fieldNames := make([]string, 0, len(entry.Fields))
		for fname := range entry.Fields {
			fieldNames = append(fieldNames, fname)
		}
		sort.Strings(fieldNames)

		for _, fname := range fieldNames {
			field := decl.Field(fname)
			if field == nil {
				warnings = append(warnings, Warning{
					File:    path,
					Message: fmt.Sprintf("sidecar targets unknown field %q on decl %q", fname, name),
				})
				continue
			}

			if err := applyAnnotations(&field.Annotations, field.Pos, entry.Fields[fname].Annotations); err != nil {
				return warnings, wrapShapeError(path, name+"."+fname, err)
			}
		}
	}

	return warnings, nil
}

func applyAnnotations(dst *ast.Annotations, pos token.Pos, raw map[string]json.RawMessage) error {
	if raw == nil {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lit, err := decodeLiteral(raw[key], pos)
		if err != nil {
			return fmt.Errorf("annotation %q: %w", key, err)
		}

		dst.Set(key, pos, lit)
	}

	return nil
}

func wrapShapeError(path, target string, err error) error {
	return token.NewPosError(token.NewNode(token.Pos{File: path}, token.Pos{File: path}),
		fmt.Sprintf("%s: %s", target, err.Error())).WithKind(token.AnnotationShapeError)
}

// decodeLiteral converts a raw JSON value into an ast.Literal, preserving
// the exact decimal text of numbers the same way the parser's own JSON
// sub-grammar does, so a sidecar-supplied integer default never loses
// precision to a float round-trip.
func decodeLiteral(raw json.RawMessage, pos token.Pos) (*ast.Literal, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return literalFromValue(v, pos)
}

func literalFromValue(v interface{}, pos token.Pos) (*ast.Literal, error) {
	switch t := v.(type) {
	case nil:
		return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitNull}, nil
	case bool:
		return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitBool, Bool: t}, nil
	case string:
		return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitString, Str: t}, nil
	case json.Number:
		text := t.String()
		if strings.ContainsAny(text, ".eE") {
			return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitFloat, Number: text}, nil
		}

		return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitInt, Number: text}, nil
	case []interface{}:
		arr := make([]*ast.Literal, len(t))
		for i, elem := range t {
			lit, err := literalFromValue(elem, pos)
			if err != nil {
				return nil, err
			}
			arr[i] = lit
		}

		return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitArray, Array: arr}, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := make(map[string]*ast.Literal, len(t))
		for _, k := range keys {
			lit, err := literalFromValue(t[k], pos)
			if err != nil {
				return nil, err
			}
			values[k] = lit
		}

		return &ast.Literal{Pos: pos, EndPos: pos, Kind: ast.LitObject, ObjectKeys: keys, ObjectValues: values}, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", v)
	}
}
