package resolve

import (
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/mod/semver"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/token"
)

// stdlibModuleOrder fixes the fallback search order for step 3's
// "standard library" scope, lowest precedence, first name defined wins.
var stdlibModuleOrder = []string{"sys.types", "sys.adlast", "sys.annotations", "sys.dynamic"}

// Resolve runs the six-step sequence from spec §4.4 over modules, which
// must already be in topological (dependencies-first) order — exactly
// the shape loader.Load returns. It returns the full resolved closure, or
// the first error encountered (the core does not recover from semantic
// errors; spec §7's propagation policy).
func Resolve(modules []*ast.Module) (*LoadedAdl, error) {
	moduleByName := make(map[string]*ast.Module, len(modules))
	for _, m := range modules {
		moduleByName[m.Name.String()] = m
	}

	resolvedByName := make(map[string]*Module, len(modules))
	allDecls := make(map[ScopedName]*Decl)

	order := make([]*Module, 0, len(modules))

	for _, m := range modules {
		rm, err := resolveModule(m, moduleByName, resolvedByName, allDecls)
		if err != nil {
			return nil, err
		}

		resolvedByName[m.Name.String()] = rm
		order = append(order, rm)
	}

	if err := checkAliasCycles(allDecls); err != nil {
		return nil, err
	}

	if err := checkDefaults(modules, allDecls); err != nil {
		return nil, err
	}

	return &LoadedAdl{Modules: order, AllDecls: allDecls}, nil
}

func resolveModule(mod *ast.Module, moduleByName map[string]*ast.Module, resolvedByName map[string]*Module, allDecls map[ScopedName]*Decl) (*Module, error) {
	// Step 1: local binding table, duplicate-name check.
	local := make(map[string]*Decl, len(mod.Decls))
	localAst := make(map[string]*ast.Decl, len(mod.Decls))

	for _, ad := range mod.Decls {
		if _, dup := localAst[ad.Name.Value]; dup {
			return nil, token.NewPosError(ad, fmt.Sprintf("duplicate declaration %q", ad.Name.Value)).
				WithKind(token.DuplicateDecl)
		}
		localAst[ad.Name.Value] = ad

		if err := checkTypeParamsUnique(ad); err != nil {
			return nil, err
		}

		rd := &Decl{
			Pos:         ad.Pos,
			Name:        ScopedName(mod.Name.String() + "." + ad.Name.Value),
			Module:      mod.Name.String(),
			Kind:        ad.Kind,
			TypeParams:  identValues(ad.TypeParams),
			Annotations: ad.Annotations,
		}

		local[ad.Name.Value] = rd
		allDecls[rd.Name] = rd
	}

	if err := applyVersionAnnotations(local); err != nil {
		return nil, err
	}

	// Step 2: import table. Whole-module imports expose every decl of the
	// target; scoped imports expose exactly one.
	imports := make(map[string]ScopedName)

	for _, imp := range mod.Imports {
		depName := imp.Module.String()

		dep, ok := moduleByName[depName]
		if !ok {
			return nil, token.NewPosError(imp, fmt.Sprintf("import of unknown module %q", depName)).
				WithKind(token.UnknownImport)
		}

		if imp.Whole {
			for _, d := range dep.Decls {
				imports[d.Name.Value] = ScopedName(depName + "." + d.Name.Value)
			}

			continue
		}

		if dep.Decl(imp.Name.Value) == nil {
			return nil, token.NewPosError(imp, fmt.Sprintf("module %q has no declaration %q", depName, imp.Name.Value)).
				WithKind(token.UnknownImport)
		}

		imports[imp.Name.Value] = ScopedName(depName + "." + imp.Name.Value)
	}

	stdlibIdx := buildStdlibIndex(resolvedByName)

	// Steps 3-4: resolve type expressions and kind-check every decl body.
	rm := &Module{Name: mod.Name.String()}

	for _, ad := range mod.Decls {
		rd := local[ad.Name.Value]
		typeParams := boolSet(rd.TypeParams)

		switch ad.Kind {
		case ast.DeclStruct, ast.DeclUnion:
			fields := make([]*Field, 0, len(ad.Fields))
			seen := map[string]bool{}

			for _, af := range ad.Fields {
				if seen[af.Name.Value] {
					return nil, token.NewPosError(af, fmt.Sprintf("duplicate field %q", af.Name.Value)).
						WithKind(token.DuplicateDecl)
				}
				seen[af.Name.Value] = true

				rte, err := resolveTypeExpr(af.Type, typeParams, local, imports, stdlibIdx, moduleByName, allDecls)
				if err != nil {
					return nil, err
				}

				fields = append(fields, &Field{
					Pos:         af.Pos,
					Name:        af.Name.Value,
					Type:        rte,
					Default:     af.Default,
					Annotations: af.Annotations,
				})
			}

			if ad.Kind == ast.DeclUnion && len(fields) == 0 {
				return nil, token.NewPosError(ad, "union must have at least one field").WithKind(token.ParseError)
			}

			rd.Fields = fields
			rd.Default = ad.Default

		case ast.DeclTypeDef, ast.DeclNewType:
			rte, err := resolveTypeExpr(ad.TypeExpr, typeParams, local, imports, stdlibIdx, moduleByName, allDecls)
			if err != nil {
				return nil, err
			}

			// A TypeDef's free variables are required to appear in its own
			// typeParams (data model invariant 3); resolveTypeExpr already
			// enforces this structurally, since a bare name that isn't one
			// of typeParams and doesn't name a primitive/local/import/
			// stdlib decl fails as UnknownType above — there is no path
			// left for a truly free, unbound variable to reach here.
			rd.TypeExpr = rte
			rd.Default = ad.Default
		}

		rm.Decls = append(rm.Decls, rd)
	}

	return rm, nil
}

// checkTypeParamsUnique enforces data-model invariant 6 (typeParam names
// unique within a decl).
func checkTypeParamsUnique(ad *ast.Decl) error {
	seen := map[string]bool{}
	for _, tp := range ad.TypeParams {
		if seen[tp.Value] {
			return token.NewPosError(&tp, fmt.Sprintf("duplicate type parameter %q", tp.Value)).
				WithKind(token.DuplicateDecl)
		}
		seen[tp.Value] = true
	}

	return nil
}

func identValues(idents []ast.Ident) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = id.Value
	}

	return out
}

func boolSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}

	return out
}

// buildStdlibIndex flattens the already-resolved standard library modules
// into a single bare-name -> ScopedName fallback table, in
// stdlibModuleOrder precedence (first name defined wins).
func buildStdlibIndex(resolvedByName map[string]*Module) map[string]ScopedName {
	idx := map[string]ScopedName{}

	for _, name := range stdlibModuleOrder {
		m, ok := resolvedByName[name]
		if !ok {
			continue
		}

		for _, d := range m.Decls {
			local := string(d.Name[len(name)+1:])
			if _, exists := idx[local]; !exists {
				idx[local] = d.Name
			}
		}
	}

	return idx
}

// resolveTypeExpr implements step 3 (name resolution, "first hit wins"
// scope chain) and step 4 (kind/arity check) for one TypeExpr, recursing
// into its parameters.
func resolveTypeExpr(te *ast.TypeExpr, typeParams map[string]bool, local map[string]*Decl, imports map[string]ScopedName, stdlibIdx map[string]ScopedName, moduleByName map[string]*ast.Module, allDecls map[ScopedName]*Decl) (*TypeExpr, error) {
	var ref TypeRef

	if len(te.NameModule.Parts) > 0 {
		modName := te.NameModule.String()

		depMod, ok := moduleByName[modName]
		if !ok {
			return nil, token.NewPosError(te, fmt.Sprintf("unknown type %s.%s", modName, te.Name)).
				WithKind(token.UnknownType)
		}

		if depMod.Decl(te.Name) == nil {
			return nil, token.NewPosError(te, fmt.Sprintf("unknown type %s.%s", modName, te.Name)).
				WithKind(token.UnknownType)
		}

		ref = TypeRef{Kind: RefScoped, Scoped: ScopedName(modName + "." + te.Name)}
	} else {
		switch {
		case typeParams[te.Name]:
			ref = TypeRef{Kind: RefTypeParam, TypeParam: te.Name}
		case ast.IsPrimitive(te.Name):
			ref = TypeRef{Kind: RefPrimitive, Primitive: te.Name}
		case local[te.Name] != nil:
			ref = TypeRef{Kind: RefScoped, Scoped: local[te.Name].Name}
		default:
			if sn, ok := imports[te.Name]; ok {
				ref = TypeRef{Kind: RefScoped, Scoped: sn}
			} else if sn, ok := stdlibIdx[te.Name]; ok {
				ref = TypeRef{Kind: RefScoped, Scoped: sn}
			} else {
				return nil, token.NewPosError(te, fmt.Sprintf("unknown type %q", te.Name)).
					WithKind(token.UnknownType)
			}
		}
	}

	params := make([]*TypeExpr, 0, len(te.Parameters))
	for _, p := range te.Parameters {
		rp, err := resolveTypeExpr(p, typeParams, local, imports, stdlibIdx, moduleByName, allDecls)
		if err != nil {
			return nil, err
		}
		params = append(params, rp)
	}

	rte := &TypeExpr{Pos: te.Pos, Ref: ref, Parameters: params}

	expectedArity := rte.Arity(allDecls)
	if expectedArity != len(params) {
		return nil, token.NewPosError(te, fmt.Sprintf("%s expects %d type argument(s), got %d", rte.Ref.headString(), expectedArity, len(params))).
			WithKind(token.ArityMismatch)
	}

	return rte, nil
}

func (r TypeRef) headString() string {
	switch r.Kind {
	case RefPrimitive:
		return r.Primitive
	case RefTypeParam:
		return r.TypeParam
	case RefScoped:
		return string(r.Scoped)
	default:
		return "?"
	}
}

// applyVersionAnnotations reads sys.annotations.Version (a Word32 literal)
// off each decl's merged annotations into its Version field.
func applyVersionAnnotations(local map[string]*Decl) error {
	names := make([]string, 0, len(local))
	for n := range local {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		d := local[n]

		if lit, ok := d.Annotations.Get("sys.annotations.Version"); ok {
			if lit.Kind != ast.LitInt {
				return token.NewPosError(lit, "sys.annotations.Version must be an integer literal").
					WithKind(token.AnnotationShapeError)
			}

			v, err := parseWord32(lit.Number)
			if err != nil {
				return token.NewPosError(lit, "sys.annotations.Version: "+err.Error()).
					WithKind(token.AnnotationShapeError)
			}

			d.Version = &v
		}

		if minLit, ok := d.Annotations.Get("sys.annotations.MinCompilerVersion"); ok {
			if minLit.Kind != ast.LitString || !semver.IsValid(minLit.Str) {
				return token.NewPosError(minLit, "sys.annotations.MinCompilerVersion must be a valid semantic version (e.g. \"v1.4.0\")").
					WithKind(token.AnnotationShapeError)
			}
		}
	}

	return nil
}

func parseWord32(text string) (uint32, error) {
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q does not fit in a Word32", text)
	}

	return uint32(v), nil
}
