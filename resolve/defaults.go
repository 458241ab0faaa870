package resolve

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/token"
)

// checkDefaults implements step 6: recursively verify every Literal
// (field defaults and newtype defaults) conforms to its declared TypeExpr
// after alias expansion. Runs once over the whole loaded set, after
// checkAliasCycles has guaranteed alias expansion terminates.
func checkDefaults(modules []*ast.Module, allDecls map[ScopedName]*Decl) error {
	for _, mod := range modules {
		for _, ad := range mod.Decls {
			d := allDecls[ScopedName(mod.Name.String()+"."+ad.Name.Value)]
			if d == nil {
				continue
			}

			switch d.Kind {
			case ast.DeclStruct, ast.DeclUnion:
				for _, f := range d.Fields {
					if f.Default == nil {
						continue
					}

					if err := checkLiteral(f.Default, f.Type, allDecls, f.Name); err != nil {
						return err
					}
				}

				// A union's decl-level default has no TypeExpr to expand
				// against; it's checked directly against the union's own
				// fields, the same shape a field-level union default uses.
				if d.Kind == ast.DeclUnion && d.Default != nil {
					if err := checkUnionLiteral(d.Default, d, allDecls, string(d.Name)); err != nil {
						return err
					}
				}

			case ast.DeclNewType:
				if d.Default == nil {
					continue
				}

				if err := checkLiteral(d.Default, d.TypeExpr, allDecls, string(d.Name)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// expandForCheck follows TypeDef and NewType chains (substituting bound
// type parameters along the way) until it reaches a primitive or a
// struct/union decl — the two terminal shapes spec §4.4's default rules
// dispatch on.
func expandForCheck(te *TypeExpr, allDecls map[ScopedName]*Decl) *TypeExpr {
	for te.Ref.Kind == RefScoped {
		d, ok := allDecls[te.Ref.Scoped]
		if !ok || (d.Kind != ast.DeclTypeDef && d.Kind != ast.DeclNewType) {
			return te
		}

		te = substitute(d.TypeExpr, d.TypeParams, te.Parameters)
	}

	return te
}

// substitute clones body, replacing every RefTypeParam matching one of
// params[i] with args[i].
func substitute(body *TypeExpr, params []string, args []*TypeExpr) *TypeExpr {
	bind := make(map[string]*TypeExpr, len(params))
	for i, p := range params {
		if i < len(args) {
			bind[p] = args[i]
		}
	}

	var walk func(te *TypeExpr) *TypeExpr
	walk = func(te *TypeExpr) *TypeExpr {
		if te.Ref.Kind == RefTypeParam {
			if sub, ok := bind[te.Ref.TypeParam]; ok {
				return sub
			}
		}

		clone := &TypeExpr{Pos: te.Pos, Ref: te.Ref}
		for _, p := range te.Parameters {
			clone.Parameters = append(clone.Parameters, walk(p))
		}

		return clone
	}

	return walk(body)
}

func checkLiteral(lit *ast.Literal, te *TypeExpr, allDecls map[ScopedName]*Decl, path string) error {
	rte := expandForCheck(te, allDecls)

	if rte.Ref.Kind == RefTypeParam {
		// A default on a still-generic field can't be checked structurally
		// without a concrete binding; accepted as-is.
		return nil
	}

	if rte.Ref.Kind == RefPrimitive && rte.Ref.Primitive == "Nullable" {
		if lit.Kind == ast.LitNull {
			return nil
		}

		return checkLiteral(lit, rte.Parameters[0], allDecls, path)
	}

	if lit.Kind == ast.LitNull && !(rte.Ref.Kind == RefPrimitive && rte.Ref.Primitive == "Json") {
		return mismatch(path, rte, lit, "null is only valid for Nullable<T> or Json")
	}

	if rte.Ref.Kind == RefPrimitive {
		return checkPrimitiveLiteral(lit, rte, allDecls, path)
	}

	d, ok := allDecls[rte.Ref.Scoped]
	if !ok {
		return mismatch(path, rte, lit, "unresolved type")
	}

	switch d.Kind {
	case ast.DeclStruct:
		return checkStructLiteral(lit, d, allDecls, path)
	case ast.DeclUnion:
		return checkUnionLiteral(lit, d, allDecls, path)
	default:
		return mismatch(path, rte, lit, "unsupported default target")
	}
}

func checkPrimitiveLiteral(lit *ast.Literal, te *TypeExpr, allDecls map[ScopedName]*Decl, path string) error {
	name := te.Ref.Primitive

	switch name {
	case "Bool":
		if lit.Kind != ast.LitBool {
			return mismatch(path, te, lit, "expected Bool")
		}
	case "String", "TypeToken":
		if lit.Kind != ast.LitString {
			return mismatch(path, te, lit, "expected String")
		}
	case "Bytes":
		if lit.Kind != ast.LitString {
			return mismatch(path, te, lit, "expected base64-encoded String")
		}
		if _, err := base64.StdEncoding.DecodeString(lit.Str); err != nil {
			return mismatch(path, te, lit, "invalid base64: "+err.Error())
		}
	case "Float", "Double":
		if lit.Kind != ast.LitFloat && lit.Kind != ast.LitInt {
			return mismatch(path, te, lit, "expected a number")
		}
	case "Json":
		// Any literal shape is a valid Json default.
	case "Int8", "Int16", "Int32", "Int64", "Word8", "Word16", "Word32", "Word64":
		if lit.Kind != ast.LitInt {
			return mismatch(path, te, lit, "expected integer literal for "+name)
		}
		if err := checkIntegerBounds(name, lit.Number); err != nil {
			return mismatch(path, te, lit, err.Error())
		}
	case "Vector":
		if lit.Kind != ast.LitArray {
			return mismatch(path, te, lit, "expected array for Vector")
		}
		for i, elem := range lit.Array {
			if err := checkLiteral(elem, te.Parameters[0], allDecls, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "StringMap":
		if lit.Kind != ast.LitObject {
			return mismatch(path, te, lit, "expected object for StringMap")
		}
		for _, k := range lit.ObjectKeys {
			if err := checkLiteral(lit.ObjectValues[k], te.Parameters[0], allDecls, path+"."+k); err != nil {
				return err
			}
		}
	case "Void":
		return mismatch(path, te, lit, "Void has no valid default literal")
	default:
		return mismatch(path, te, lit, "unsupported primitive "+name)
	}

	return nil
}

func checkIntegerBounds(name, text string) error {
	if name == "Word64" {
		return checkUint64(text)
	}

	lo, hi, ok := ast.IntegerBounds(name)
	if !ok {
		return nil
	}

	v, err := parseSignedDecimal(text)
	if err != nil {
		return err
	}

	if v < lo || v > hi {
		return fmt.Errorf("%s out of range for %s [%d, %d]", text, name, lo, hi)
	}

	return nil
}

func checkUint64(text string) error {
	_, err := parseUnsignedDecimal(text)
	if err != nil {
		return fmt.Errorf("%s is not a valid Word64", text)
	}

	return nil
}

func checkStructLiteral(lit *ast.Literal, d *Decl, allDecls map[ScopedName]*Decl, path string) error {
	if lit.Kind != ast.LitObject {
		return mismatch(path, nil, lit, "expected object for struct "+string(d.Name))
	}

	for _, k := range lit.ObjectKeys {
		f := d.Field(k)
		if f == nil {
			return mismatch(path, nil, lit, fmt.Sprintf("struct %s has no field %q", d.Name, k))
		}

		if err := checkLiteral(lit.ObjectValues[k], f.Type, allDecls, path+"."+k); err != nil {
			return err
		}
	}

	for _, f := range d.Fields {
		if _, present := lit.ObjectValues[f.Name]; present {
			continue
		}

		if f.Default == nil {
			return mismatch(path, nil, lit, fmt.Sprintf("field %q has no default and is missing from the literal", f.Name))
		}
	}

	return nil
}

func checkUnionLiteral(lit *ast.Literal, d *Decl, allDecls map[ScopedName]*Decl, path string) error {
	if lit.Kind == ast.LitString {
		f := d.Field(lit.Str)
		if f == nil || f.Type.Ref.Kind != RefPrimitive || f.Type.Ref.Primitive != "Void" {
			return mismatch(path, nil, lit, fmt.Sprintf("union %s has no Void-typed arm %q", d.Name, lit.Str))
		}

		return nil
	}

	if lit.Kind != ast.LitObject {
		return mismatch(path, nil, lit, "expected object or bare string for union "+string(d.Name))
	}

	if len(lit.ObjectKeys) != 1 {
		return mismatch(path, nil, lit, "union literal must have exactly one key")
	}

	key := lit.ObjectKeys[0]

	f := d.Field(key)
	if f == nil {
		return mismatch(path, nil, lit, fmt.Sprintf("union %s has no field %q", d.Name, key))
	}

	value := lit.ObjectValues[key]

	// Spec §9's resolved open question: a Void-typed arm's object form
	// ("{"a": null}") is accepted alongside the bare-string shorthand
	// ("a"), since a Void field has no literal of its own to check the
	// null against.
	if value.Kind == ast.LitNull && f.Type.Ref.Kind == RefPrimitive && f.Type.Ref.Primitive == "Void" {
		return nil
	}

	return checkLiteral(value, f.Type, allDecls, path+"."+key)
}

func mismatch(path string, te *TypeExpr, lit *ast.Literal, reason string) error {
	expected := "?"
	if te != nil {
		expected = te.Ref.headString()
	}

	return token.NewPosError(lit, fmt.Sprintf("default value mismatch at %q: expected %s: %s", path, expected, reason)).
		WithKind(token.DefaultValueMismatch)
}

func parseSignedDecimal(text string) (int64, error) {
	return strconv.ParseInt(text, 10, 64)
}

func parseUnsignedDecimal(text string) (uint64, error) {
	return strconv.ParseUint(text, 10, 64)
}
