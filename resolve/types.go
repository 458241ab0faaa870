// Package resolve implements the Resolver & Type Checker (spec §4.4): it
// walks an already-loaded, sidecar-merged set of unresolved *ast.Module
// values (as produced by package loader, in topological order) and
// produces an immutable *LoadedAdl whose every TypeExpr has been
// normalised to one of the three canonical TypeRef forms — primitive,
// type parameter, or fully-qualified scoped reference.
//
// Grounded on the teacher's parser/validate.go validateContextPath: a
// scope-chain chase that accumulates token.ErrDetail entries ("declared
// here" / "used here") onto a single token.PosError, generalized from one
// scope kind (context path segments) to the five-deep chain spec §4.4
// describes (type parameters, primitives, local decls, imports, stdlib).
package resolve

import (
	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/token"
)

// ScopedName is the canonical "module.Decl" identity of any declaration,
// globally unique across a loaded set.
type ScopedName string

// RefKind distinguishes the three canonical forms spec §3 requires every
// resolved TypeRef to take.
type RefKind int

const (
	RefPrimitive RefKind = iota
	RefTypeParam
	RefScoped
)

// TypeRef is the resolved head of a TypeExpr.
type TypeRef struct {
	Kind      RefKind
	Primitive string    // set when Kind == RefPrimitive
	TypeParam string    // set when Kind == RefTypeParam
	Scoped    ScopedName // set when Kind == RefScoped
}

// TypeExpr is a resolved, recursive type application: a TypeRef applied to
// zero or more resolved parameters.
type TypeExpr struct {
	Pos token.Pos

	Ref        TypeRef
	Parameters []*TypeExpr
}

func (t *TypeExpr) Begin() token.Pos { return t.Pos }
func (t *TypeExpr) End() token.Pos   { return t.Pos }

// Arity reports the resolved head's declared parameter count, independent
// of how many parameters were actually supplied (use len(Parameters) for
// that) — callers doing a kind check compare the two.
func (t *TypeExpr) Arity(allDecls map[ScopedName]*Decl) int {
	switch t.Ref.Kind {
	case RefPrimitive:
		return ast.PrimitiveArity[t.Ref.Primitive]
	case RefTypeParam:
		return 0
	case RefScoped:
		if d, ok := allDecls[t.Ref.Scoped]; ok {
			return d.Arity()
		}
		return 0
	default:
		return 0
	}
}

// Field is one resolved struct/union member.
type Field struct {
	Pos token.Pos

	Name        string
	Type        *TypeExpr
	Default     *ast.Literal
	Annotations ast.Annotations
}

// Decl is one fully resolved declaration.
type Decl struct {
	Pos token.Pos

	Name   ScopedName
	Module string
	Kind   ast.DeclKind

	TypeParams []string

	// Fields holds struct/union members, in declaration order.
	Fields []*Field

	// TypeExpr is populated for TypeDef (the alias RHS) and NewType (the
	// underlying representation).
	TypeExpr *TypeExpr

	// Default is populated for NewType (required shape) and optionally for
	// Union (the void-arm/single-key-object shorthand); nil for Struct and
	// TypeDef.
	Default *ast.Literal

	Annotations ast.Annotations
	Version     *uint32
}

func (d *Decl) Begin() token.Pos { return d.Pos }
func (d *Decl) End() token.Pos   { return d.Pos }

// Arity returns the declared type-parameter count.
func (d *Decl) Arity() int { return len(d.TypeParams) }

// Field looks up a field by name, or returns nil.
func (d *Decl) Field(name string) *Field {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// Module is one resolved module: its declared name and the decls it
// contributes, in source order.
type Module struct {
	Name  string
	Decls []*Decl
}

// LoadedAdl is the immutable result of a full resolve pass: every loaded
// module, in the topological order it was given, plus a flat registry of
// every decl reachable from any of them.
type LoadedAdl struct {
	Modules  []*Module
	AllDecls map[ScopedName]*Decl
}

// Resolver is the total ScopedName -> Decl function spec §3 describes:
// it errors on an unknown name instead of returning a zero value.
func (l *LoadedAdl) Resolver(name ScopedName) (*Decl, error) {
	d, ok := l.AllDecls[name]
	if !ok {
		return nil, token.NewPosError(token.NewNode(token.Pos{}, token.Pos{}),
			"unknown declaration "+string(name)).WithKind(token.UnknownType)
	}

	return d, nil
}
