// Package driver implements the Backend Driver Interface (spec §4.7): the
// contract the core exposes to backend code generators. A backend is
// handed a *Driver built from a *resolve.LoadedAdl and drives it through
// ordered iteration, a total resolver, package-path mapping, and annotation
// accessors; the values it receives are package resolve's Module/Decl types
// and package ast's Annotations/Literal types.
//
// Grounded on ast.GoGenerate's {Module, Output, Imports, Require} config-
// struct shape: a plain value a backend constructs and passes in, never a
// DSL or a hidden global. PackageMapping generalizes that one-Go-target
// shape to "any target name plus a per-module override map".
package driver

import (
	"fmt"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/resolve"
)

// DeclPair is one (ResolvedModule, Decl) step of the backend iteration
// order: modules in topological order (dependencies first, as produced by
// package loader and preserved through package resolve), decls within a
// module in declaration order.
type DeclPair struct {
	Module *resolve.Module
	Decl   *resolve.Decl
}

// PackageMapping is the configuration object a backend supplies to map an
// ADL ModuleName to its target-language package path. RootPackage is the
// fallback; PerModuleOverrides takes precedence for specific modules,
// mirroring ast.GoGenerate.Module generalized from "one Go module string"
// to "a root plus named overrides".
type PackageMapping struct {
	// RootPackage is prefixed (dot-joined) to every ADL module's dotted
	// name when no override applies, e.g. RootPackage "com.acme.gen" turns
	// module "demo.person" into package path "com.acme.gen.demo.person".
	RootPackage string

	// PerModuleOverrides replaces the computed path entirely for the named
	// ADL module (keyed by the module's dotted name, e.g. "sys.types").
	PerModuleOverrides map[string]string
}

// PackagePath returns moduleName's target-language package path under m.
func (m PackageMapping) PackagePath(moduleName string) string {
	if m.PerModuleOverrides != nil {
		if override, ok := m.PerModuleOverrides[moduleName]; ok {
			return override
		}
	}

	if m.RootPackage == "" {
		return moduleName
	}

	return m.RootPackage + "." + moduleName
}

// Driver is the read-only view a backend receives of one completed resolve
// pass. It is built once by the caller (the out-of-scope CLI/backend
// binary) and never mutated afterward; per spec §5, the resolved graph and
// resolver function are shared freely across backends without locking.
type Driver struct {
	loaded  *resolve.LoadedAdl
	mapping PackageMapping
}

// New builds a Driver over loaded, wiring mapping as the backend's package
// path configuration.
func New(loaded *resolve.LoadedAdl, mapping PackageMapping) *Driver {
	return &Driver{loaded: loaded, mapping: mapping}
}

// Decls returns the ordered (module, decl) sequence a backend walks to
// emit one file (or one fragment) per declaration: modules in the loader's
// topological order, decls within each module in source order.
func (d *Driver) Decls() []DeclPair {
	var out []DeclPair

	for _, m := range d.loaded.Modules {
		for _, decl := range m.Decls {
			out = append(out, DeclPair{Module: m, Decl: decl})
		}
	}

	return out
}

// Modules returns the loaded modules in topological order, without
// flattening to per-decl pairs — useful for a backend that emits one file
// per module rather than one per decl.
func (d *Driver) Modules() []*resolve.Module {
	return d.loaded.Modules
}

// Resolve is the total ScopedName -> Decl function spec §3/§4.7 requires:
// it errors on an unknown name rather than returning a zero value.
func (d *Driver) Resolve(name resolve.ScopedName) (*resolve.Decl, error) {
	return d.loaded.Resolver(name)
}

// AllDecls exposes the flat registry backing Resolve, for callers (e.g.
// package typeutil's Monomorphizer) that need the whole map rather than
// one lookup at a time.
func (d *Driver) AllDecls() map[resolve.ScopedName]*resolve.Decl {
	return d.loaded.AllDecls
}

// PackagePath maps an ADL module name to its target-language package path
// under the Driver's configured PackageMapping.
func (d *Driver) PackagePath(moduleName string) string {
	return d.mapping.PackagePath(moduleName)
}

// GetAnnotation returns the raw Literal value of the annotation named by
// scopedName (e.g. "sys.annotations.Doc"), if present. The core never
// interprets the value's shape; per spec §9, each backend parses its own
// annotations and fails with AnnotationShapeError on mismatch.
func GetAnnotation(annotations ast.Annotations, scopedName string) (*ast.Literal, bool) {
	return annotations.Get(scopedName)
}

// AnnotationShapeError is returned by the String/Bool convenience
// accessors when an annotation is present but not shaped as expected,
// corresponding to spec §7's AnnotationShapeError kind.
type AnnotationShapeError struct {
	ScopedName string
	Want       string
	Got        *ast.Literal
}

func (e *AnnotationShapeError) Error() string {
	return fmt.Sprintf("driver: annotation %s: expected %s, got %s", e.ScopedName, e.Want, literalKind(e.Got))
}

func literalKind(l *ast.Literal) string {
	if l == nil {
		return "<missing>"
	}

	switch l.Kind {
	case ast.LitNull:
		return "null"
	case ast.LitInt:
		return "integer"
	case ast.LitFloat:
		return "float"
	case ast.LitString:
		return "string"
	case ast.LitBool:
		return "boolean"
	case ast.LitArray:
		return "array"
	case ast.LitObject:
		return "object"
	default:
		return "unknown"
	}
}

// GetString is the string-typed convenience accessor spec §4.7 names:
// present + LitString -> (value, true, nil); present + wrong shape ->
// ("", false, *AnnotationShapeError); absent -> ("", false, nil).
func GetString(annotations ast.Annotations, scopedName string) (string, bool, error) {
	lit, ok := annotations.Get(scopedName)
	if !ok {
		return "", false, nil
	}

	if lit.Kind != ast.LitString {
		return "", false, &AnnotationShapeError{ScopedName: scopedName, Want: "string", Got: lit}
	}

	return lit.Str, true, nil
}

// GetBool is the boolean-typed convenience accessor, mirroring GetString.
func GetBool(annotations ast.Annotations, scopedName string) (bool, bool, error) {
	lit, ok := annotations.Get(scopedName)
	if !ok {
		return false, false, nil
	}

	if lit.Kind != ast.LitBool {
		return false, false, &AnnotationShapeError{ScopedName: scopedName, Want: "boolean", Got: lit}
	}

	return lit.Bool, true, nil
}
