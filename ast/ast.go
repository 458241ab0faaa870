// Package ast holds the concrete, unresolved syntax tree produced by the
// parser. Every node embeds its source span and implements token.Node, the
// same Begin()/End() convention the teacher attaches to every grammar node.
package ast

import (
	"strings"

	"github.com/adlang/adlc/token"
)

// Ident is a single identifier occurrence.
type Ident struct {
	Value      string
	Pos, EndPos token.Pos
}

func (n *Ident) Begin() token.Pos { return n.Pos }
func (n *Ident) End() token.Pos   { return n.EndPos }
func (n *Ident) String() string   { return n.Value }

// ModuleName is an ordered, non-empty sequence of identifiers, e.g.
// "foo.bar.baz".
type ModuleName struct {
	Parts       []Ident
	Pos, EndPos token.Pos
}

func (n *ModuleName) Begin() token.Pos { return n.Pos }
func (n *ModuleName) End() token.Pos   { return n.EndPos }

// String renders the dotted form.
func (n *ModuleName) String() string {
	parts := make([]string, len(n.Parts))
	for i, p := range n.Parts {
		parts[i] = p.Value
	}

	return strings.Join(parts, ".")
}

// Path maps a ModuleName to its on-disk ".adl" location relative to a
// search-path root.
func (n *ModuleName) Path() string {
	parts := make([]string, len(n.Parts))
	for i, p := range n.Parts {
		parts[i] = p.Value
	}

	return strings.Join(parts, "/") + ".adl"
}

// ScopedName is a (ModuleName, Identifier) pair, written "a.b.c.Name" in
// source with the last segment being the Identifier.
type ScopedName struct {
	Module      ModuleName
	Name        Ident
	Pos, EndPos token.Pos
}

func (n *ScopedName) Begin() token.Pos { return n.Pos }
func (n *ScopedName) End() token.Pos   { return n.EndPos }

func (n *ScopedName) String() string {
	if len(n.Module.Parts) == 0 {
		return n.Name.Value
	}

	return n.Module.String() + "." + n.Name.Value
}

// TypeRefKind distinguishes the three canonical forms a resolved TypeRef can
// take, and the fourth, pre-resolution form ("bare identifier") the parser
// produces before the resolver runs.
type TypeRefKind int

const (
	// RefName is an unresolved bare name or scoped name as written by the
	// programmer; the resolver rewrites every RefName into one of the
	// three kinds below.
	RefName TypeRefKind = iota
	RefPrimitive
	RefTypeParam
	RefScoped
)

// TypeExpr is a recursive type expression: a head (TypeRef) applied to zero
// or more parameters.
type TypeExpr struct {
	Pos, EndPos token.Pos

	RefKind TypeRefKind

	// Name is populated when RefKind == RefName (parser output) or
	// RefTypeParam (resolver output): the bare identifier text.
	Name string

	// Primitive is populated when RefKind == RefPrimitive.
	Primitive string

	// Scoped is populated when RefKind == RefScoped.
	Scoped ScopedName

	// NameModule carries the module qualifier the programmer wrote before
	// resolution, if any (e.g. "sys.types.Pair"); empty for a bare name.
	NameModule ModuleName

	Parameters []*TypeExpr
}

func (n *TypeExpr) Begin() token.Pos { return n.Pos }
func (n *TypeExpr) End() token.Pos   { return n.EndPos }

// HeadString renders just the head (no parameters) for diagnostics.
func (n *TypeExpr) HeadString() string {
	switch n.RefKind {
	case RefPrimitive:
		return n.Primitive
	case RefTypeParam:
		return n.Name
	case RefScoped:
		return n.Scoped.String()
	default:
		if len(n.NameModule.Parts) > 0 {
			return n.NameModule.String() + "." + n.Name
		}

		return n.Name
	}
}

// Literal is the JSON-shaped value used for default values, annotation
// values, and sidecar payloads.
type Literal struct {
	Pos, EndPos token.Pos

	Kind LiteralKind

	// Number holds the exact source text of an Int/Float literal so no
	// precision is lost before the resolver interprets it against a
	// concrete target type.
	Number string
	Str    string
	Bool   bool
	Array  []*Literal
	// Object preserves declaration order; ObjectKeys gives that order,
	// ObjectValues maps key -> value.
	ObjectKeys   []string
	ObjectValues map[string]*Literal
}

func (n *Literal) Begin() token.Pos { return n.Pos }
func (n *Literal) End() token.Pos   { return n.EndPos }

// LiteralKind is the JSON value discriminator.
type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitInt
	LitFloat
	LitString
	LitBool
	LitArray
	LitObject
)

// Annotations is an ordered key-unique mapping from ScopedName (rendered as
// a string key for simplicity) to Literal value.
type Annotations struct {
	Keys   []string
	Values map[string]*Literal
	// Pos records where each key was attached, for duplicate-key
	// diagnostics; keyed by the same string as Keys/Values.
	KeyPos map[string]token.Pos
}

// NewAnnotations returns an empty Annotations value.
func NewAnnotations() Annotations {
	return Annotations{Values: map[string]*Literal{}, KeyPos: map[string]token.Pos{}}
}

// Set adds or overwrites an annotation. overwrote reports whether a prior
// value existed for key.
func (a *Annotations) Set(key string, pos token.Pos, value *Literal) (overwrote bool) {
	if a.Values == nil {
		a.Values = map[string]*Literal{}
		a.KeyPos = map[string]token.Pos{}
	}

	if _, ok := a.Values[key]; !ok {
		a.Keys = append(a.Keys, key)
	} else {
		overwrote = true
	}

	a.Values[key] = value
	a.KeyPos[key] = pos

	return overwrote
}

// Get returns the annotation value for key, if present.
func (a *Annotations) Get(key string) (*Literal, bool) {
	if a.Values == nil {
		return nil, false
	}

	v, ok := a.Values[key]
	return v, ok
}

// Field is one struct/union member.
type Field struct {
	Pos, EndPos token.Pos

	Annotations Annotations
	Name        Ident
	Type        *TypeExpr
	Default     *Literal
}

func (n *Field) Begin() token.Pos { return n.Pos }
func (n *Field) End() token.Pos   { return n.EndPos }

// DeclKind distinguishes the four declaration bodies.
type DeclKind int

const (
	DeclStruct DeclKind = iota
	DeclUnion
	DeclTypeDef
	DeclNewType
)

// Decl is one top-level declaration: struct, union, type alias, or newtype.
type Decl struct {
	Pos, EndPos token.Pos

	Module      string // owning ModuleName, dotted form; set by the loader
	Kind        DeclKind
	Name        Ident
	Version     *uint32
	Annotations Annotations
	TypeParams  []Ident

	// Struct/Union
	Fields []*Field

	// TypeDef/NewType
	TypeExpr *TypeExpr

	// Default is the decl-level default literal: required shape for
	// NewType, optional shorthand for Union (the void-arm/single-key-
	// object forms spec's union-default scenario exercises), unused for
	// Struct/TypeDef.
	Default *Literal
}

func (n *Decl) Begin() token.Pos { return n.Pos }
func (n *Decl) End() token.Pos   { return n.EndPos }

// ScopedName returns the fully-qualified name of this decl.
func (n *Decl) ScopedName() string {
	if n.Module == "" {
		return n.Name.Value
	}

	return n.Module + "." + n.Name.Value
}

// Import is either a whole-module import ("a.b.*") or a single scoped-name
// import ("a.b.Name").
type Import struct {
	Pos, EndPos token.Pos

	Whole  bool
	Module ModuleName
	Name   Ident // zero value when Whole
}

func (n *Import) Begin() token.Pos { return n.Pos }
func (n *Import) End() token.Pos   { return n.EndPos }

// Module is one parsed ".adl" file's content: its own declared name, the
// imports it lists, and the declarations it contains, in source order.
type Module struct {
	Pos, EndPos token.Pos

	Name    ModuleName
	Imports []*Import
	Decls   []*Decl

	// File is the path the module was parsed from, for diagnostics and
	// sidecar discovery.
	File string
}

func (n *Module) Begin() token.Pos { return n.Pos }
func (n *Module) End() token.Pos   { return n.EndPos }

// Decl looks up a local declaration by name, or returns nil.
func (n *Module) Decl(name string) *Decl {
	for _, d := range n.Decls {
		if d.Name.Value == name {
			return d
		}
	}

	return nil
}

// Field looks up a field by name, or returns nil.
func (n *Decl) Field(name string) *Field {
	for _, f := range n.Fields {
		if f.Name.Value == name {
			return f
		}
	}

	return nil
}

// Arity returns the declared type-parameter count, used by kind checking.
func (n *Decl) Arity() int {
	return len(n.TypeParams)
}
