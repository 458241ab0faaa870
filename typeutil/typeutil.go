// Package typeutil provides stateless helpers over a resolved *resolve.Decl/
// *resolve.TypeExpr graph: one-level and full alias expansion, monomorphic
// instantiation of a generic decl for a concrete set of type arguments, and
// diagnostic rendering.
//
// Grounded on ast/generator.go and ast/sql.go's traversal style: every
// function here is a pure value-in, value-out transform over plain structs,
// never a method on hidden global state.
package typeutil

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/resolve"
)

// ExpandTypeAlias performs a single substitution step: if te's head names a
// TypeDef decl, it returns the alias's right-hand side with the TypeDef's
// type parameters bound to te's parameters. Any other head (primitive, type
// parameter, NewType, Struct, Union) is returned unchanged.
func ExpandTypeAlias(te *resolve.TypeExpr, allDecls map[resolve.ScopedName]*resolve.Decl) *resolve.TypeExpr {
	if te.Ref.Kind != resolve.RefScoped {
		return te
	}

	d, ok := allDecls[te.Ref.Scoped]
	if !ok || d.Kind != ast.DeclTypeDef {
		return te
	}

	return substitute(d.TypeExpr, d.TypeParams, te.Parameters)
}

// ExpandNewType performs a single substitution step over a NewType's
// underlying representation, the same way ExpandTypeAlias does for TypeDef.
func ExpandNewType(te *resolve.TypeExpr, allDecls map[resolve.ScopedName]*resolve.Decl) *resolve.TypeExpr {
	if te.Ref.Kind != resolve.RefScoped {
		return te
	}

	d, ok := allDecls[te.Ref.Scoped]
	if !ok || d.Kind != ast.DeclNewType {
		return te
	}

	return substitute(d.TypeExpr, d.TypeParams, te.Parameters)
}

// ExpandTypes follows TypeDef and NewType chains, repeatedly applying
// ExpandTypeAlias/ExpandNewType, until te's head names a primitive, a type
// parameter, a Struct, or a Union — the terminal shapes backend drivers and
// default-value checking both need to reach.
func ExpandTypes(te *resolve.TypeExpr, allDecls map[resolve.ScopedName]*resolve.Decl) *resolve.TypeExpr {
	for {
		if te.Ref.Kind != resolve.RefScoped {
			return te
		}

		d, ok := allDecls[te.Ref.Scoped]
		if !ok || (d.Kind != ast.DeclTypeDef && d.Kind != ast.DeclNewType) {
			return te
		}

		te = substitute(d.TypeExpr, d.TypeParams, te.Parameters)
	}
}

// substitute clones body, replacing every RefTypeParam bound by params/args
// with the corresponding argument; unbound references (shouldn't occur once
// the resolver has run) pass through unchanged.
func substitute(body *resolve.TypeExpr, params []string, args []*resolve.TypeExpr) *resolve.TypeExpr {
	bind := make(map[string]*resolve.TypeExpr, len(params))
	for i, p := range params {
		if i < len(args) {
			bind[p] = args[i]
		}
	}

	var walk func(te *resolve.TypeExpr) *resolve.TypeExpr
	walk = func(te *resolve.TypeExpr) *resolve.TypeExpr {
		if te.Ref.Kind == resolve.RefTypeParam {
			if sub, ok := bind[te.Ref.TypeParam]; ok {
				return sub
			}
		}

		clone := &resolve.TypeExpr{Pos: te.Pos, Ref: te.Ref}
		for _, p := range te.Parameters {
			clone.Parameters = append(clone.Parameters, walk(p))
		}

		return clone
	}

	return walk(body)
}

// ScopedNamesEqual compares two scoped names for identity; a thin wrapper
// kept so callers never compare resolve.ScopedName values with a bare ==
// scattered across the codebase.
func ScopedNamesEqual(a, b resolve.ScopedName) bool {
	return a == b
}

// TypeExprToString renders te in ADL source notation, e.g.
// "Vector<Pair<Int32, Int32>>", for diagnostics and generated-code comments.
func TypeExprToString(te *resolve.TypeExpr) string {
	var head string

	switch te.Ref.Kind {
	case resolve.RefPrimitive:
		head = te.Ref.Primitive
	case resolve.RefTypeParam:
		head = te.Ref.TypeParam
	case resolve.RefScoped:
		head = string(te.Ref.Scoped)
	}

	if len(te.Parameters) == 0 {
		return head
	}

	parts := make([]string, len(te.Parameters))
	for i, p := range te.Parameters {
		parts[i] = TypeExprToString(p)
	}

	return head + "<" + strings.Join(parts, ", ") + ">"
}

// CompilerVersionSatisfies reports whether actual (the running compiler's
// own version) meets a decl's sys.annotations.MinCompilerVersion
// requirement. Both arguments must already be validated semver strings
// (resolve's applyVersionAnnotations rejects anything semver.IsValid
// refuses before a Decl ever reaches here).
func CompilerVersionSatisfies(required, actual string) bool {
	return semver.Compare(actual, required) >= 0
}

// Monomorphizer instantiates a generic Decl against a concrete list of type
// arguments, memoizing by the computed name so repeated requests for the
// same instantiation (e.g. Pair<Int32, Int32> referenced from two different
// fields) return the identical *resolve.Decl value.
type Monomorphizer struct {
	allDecls map[resolve.ScopedName]*resolve.Decl
	cache    map[string]*resolve.Decl
}

// NewMonomorphizer returns a Monomorphizer backed by allDecls, the full
// resolved declaration registry a LoadedAdl carries.
func NewMonomorphizer(allDecls map[resolve.ScopedName]*resolve.Decl) *Monomorphizer {
	return &Monomorphizer{allDecls: allDecls, cache: map[string]*resolve.Decl{}}
}

// MonomorphicName computes the instantiation's generated name: the generic
// decl's bare name followed by each type argument's head, underscore-joined
// (e.g. "Pair_Int32_Int32"). Nested generic arguments recurse the same way.
func MonomorphicName(d *resolve.Decl, args []*resolve.TypeExpr) string {
	bare := string(d.Name)
	if i := strings.LastIndexByte(bare, '.'); i >= 0 {
		bare = bare[i+1:]
	}

	var b strings.Builder
	b.WriteString(bare)

	for _, a := range args {
		b.WriteByte('_')
		b.WriteString(monomorphicArgName(a))
	}

	return b.String()
}

func monomorphicArgName(te *resolve.TypeExpr) string {
	var head string

	switch te.Ref.Kind {
	case resolve.RefPrimitive:
		head = te.Ref.Primitive
	case resolve.RefTypeParam:
		head = te.Ref.TypeParam
	case resolve.RefScoped:
		name := string(te.Ref.Scoped)
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		head = name
	}

	for _, p := range te.Parameters {
		head += "_" + monomorphicArgName(p)
	}

	return head
}

// MonomorphicDecl returns the Decl obtained by substituting d's type
// parameters with args throughout its Fields/TypeExpr, under the generated
// name MonomorphicName(d, args). Spec's testable property 6: the returned
// Decl's body contains no RefTypeParam node, since every one of d's type
// parameters is bound by construction (len(args) must equal d.Arity(), the
// same arity check the resolver already performed at the call site that
// produced args).
func (m *Monomorphizer) MonomorphicDecl(d *resolve.Decl, args []*resolve.TypeExpr) (*resolve.Decl, error) {
	if len(args) != d.Arity() {
		return nil, fmt.Errorf("typeutil: %s expects %d type argument(s), got %d", d.Name, d.Arity(), len(args))
	}

	name := MonomorphicName(d, args)
	if cached, ok := m.cache[name]; ok {
		return cached, nil
	}

	out := &resolve.Decl{
		Pos:         d.Pos,
		Name:        resolve.ScopedName(name),
		Module:      d.Module,
		Kind:        d.Kind,
		Annotations: d.Annotations,
		Version:     d.Version,
	}

	// Registered under the computed name before the body is filled in.
	// Generic decls referenced from the body are substituted, not
	// instantiated: MonomorphicDecl does not call itself.
	m.cache[name] = out

	for _, f := range d.Fields {
		out.Fields = append(out.Fields, &resolve.Field{
			Pos:         f.Pos,
			Name:        f.Name,
			Type:        substitute(f.Type, d.TypeParams, args),
			Default:     f.Default,
			Annotations: f.Annotations,
		})
	}

	if d.TypeExpr != nil {
		out.TypeExpr = substitute(d.TypeExpr, d.TypeParams, args)
	}

	out.Default = d.Default

	return out, nil
}
