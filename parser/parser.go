// Package parser converts ADL source text into an unresolved *ast.Module.
// Parsing is single-pass and single-file, matching spec's "no I/O beyond the
// caller-supplied byte buffer" requirement; module loading and transitive
// import resolution live one layer up, in package loader.
package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adlang/adlc/ast"
	"github.com/adlang/adlc/lexer"
	"github.com/adlang/adlc/token"
)

// Parser holds one token of lookahead over a lexer.Lexer.
type parser struct {
	file string
	lex  *lexer.Lexer
	tok  lexer.Token

	// pendingDoc collects consecutive "///" doc lines until the next
	// non-doc token is attached to a decl or field.
	pendingDoc    []string
	pendingDocPos token.Pos

	// standaloneAnnotations accumulates `annotation declRef name value;`
	// statements; they are applied once the whole module has been parsed
	// so they can reference a decl declared anywhere in the file.
	standaloneAnnotations []standaloneAnnotation
}

// ParseFile parses one ADL source file into an unresolved module AST.
func ParseFile(filename string, r io.Reader) (*ast.Module, error) {
	p := &parser{file: filename, lex: lexer.New(filename, r)}

	if err := p.advance(); err != nil {
		return nil, err
	}

	return p.parseModule()
}

func (p *parser) advance() error {
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return &token.PosError{
				Kind:    token.ParseError,
				Details: []token.ErrDetail{token.NewErrDetail(token.NewNode(token.Pos{File: p.file}, token.Pos{File: p.file}), err.Error())},
			}
		}

		if tok.Kind == lexer.DocLine {
			if len(p.pendingDoc) == 0 {
				p.pendingDocPos = tok.Pos
			}
			p.pendingDoc = append(p.pendingDoc, tok.Value)
			continue
		}

		p.tok = tok
		return nil
	}
}

// takeDoc returns and clears accumulated doc lines, joined the way the
// teacher's doc sugar aggregates contiguous comment lines.
func (p *parser) takeDoc() string {
	if len(p.pendingDoc) == 0 {
		return ""
	}

	doc := strings.Join(p.pendingDoc, "\n")
	p.pendingDoc = nil

	return doc
}

func (p *parser) expect(kind lexer.Kind) (lexer.Token, error) {
	if p.tok.Kind != kind {
		return lexer.Token{}, unexpectedToken(p.tok, kind)
	}

	tok := p.tok
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}

	return tok, nil
}

func (p *parser) at(kind lexer.Kind) bool {
	return p.tok.Kind == kind
}

func (p *parser) ident() (ast.Ident, error) {
	tok, err := p.expect(lexer.Ident)
	if err != nil {
		return ast.Ident{}, err
	}

	return ast.Ident{Value: tok.Value, Pos: tok.Pos, EndPos: tok.End}, nil
}

// dottedPath reads ident ('.' ident)* greedily, stopping before a trailing
// ".*" (which the caller, parseImport, handles itself).
func (p *parser) dottedPath() ([]ast.Ident, error) {
	first, err := p.ident()
	if err != nil {
		return nil, err
	}

	parts := []ast.Ident{first}

	for p.at(lexer.Dot) {
		// Peeking two tokens ahead would need extra lookahead machinery;
		// instead consume the dot and check what follows. If it's '*' we
		// back out by letting the caller see it (parseImport checks for
		// Star right after calling dottedPath only when it already knows
		// from context; for typeExpr/scoped-name contexts '*' never
		// follows so this is unambiguous there).
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.at(lexer.Star) {
			// put the dot "back" conceptually: caller handles Star itself.
			return parts, errStarFollows
		}

		next, err := p.ident()
		if err != nil {
			return nil, err
		}

		parts = append(parts, next)
	}

	return parts, nil
}

// errStarFollows is a sentinel used only inside dottedPath/parseImport to
// signal "a trailing '.*' follows"; it never escapes the parser package.
var errStarFollows = fmt.Errorf("internal: dotted path followed by '.*'")

func (p *parser) moduleName(parts []ast.Ident) ast.ModuleName {
	if len(parts) == 0 {
		return ast.ModuleName{}
	}

	return ast.ModuleName{Parts: parts, Pos: parts[0].Pos, EndPos: parts[len(parts)-1].EndPos}
}

func (p *parser) parseModule() (*ast.Module, error) {
	start := p.tok.Pos

	if _, err := p.expect(lexer.KeywordModule); err != nil {
		return nil, err
	}

	parts, err := p.dottedPath()
	if err == errStarFollows {
		return nil, unexpectedToken(p.tok, lexer.LBrace)
	} else if err != nil {
		return nil, err
	}

	name := p.moduleName(parts)

	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}

	mod := &ast.Module{Name: name, File: p.file, Pos: start}

	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		if p.at(lexer.KeywordImport) {
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}

			mod.Imports = append(mod.Imports, imp)
			continue
		}

		decl, err := p.parseDecl()
		if err != nil {
			return nil, err
		}

		if decl != nil {
			decl.Module = name.String()
			mod.Decls = append(mod.Decls, decl)
		}
	}

	end, err := p.expect(lexer.RBrace)
	if err != nil {
		return nil, err
	}

	mod.EndPos = end.End

	if err := p.applyStandaloneAnnotations(mod); err != nil {
		return nil, err
	}

	return mod, nil
}

// applyStandaloneAnnotations overlays every `annotation decl[.field] key
// value;` statement collected while parsing onto the decl/field it names.
// Per spec §4.3/§9, scoping is to the owning file: referencing an unknown
// local decl is a hard parse-time error here (unlike sidecar overlays,
// which are a different, file-external mechanism and only warn).
func (p *parser) applyStandaloneAnnotations(mod *ast.Module) error {
	for _, sa := range p.standaloneAnnotations {
		decl := mod.Decl(sa.declName.Value)
		if decl == nil {
			return token.NewPosError(&sa.declName, "annotation targets unknown declaration "+strconv.Quote(sa.declName.Value)).
				WithKind(token.ParseError)
		}

		if sa.fieldName == nil {
			decl.Annotations.Set(sa.key, sa.pos, sa.value)
			continue
		}

		field := decl.Field(sa.fieldName.Value)
		if field == nil {
			return token.NewPosError(sa.fieldName, "annotation targets unknown field "+strconv.Quote(sa.fieldName.Value)+" of "+sa.declName.Value).
				WithKind(token.ParseError)
		}

		field.Annotations.Set(sa.key, sa.pos, sa.value)
	}

	return nil
}

func (p *parser) parseImport() (*ast.Import, error) {
	start := p.tok.Pos

	if _, err := p.expect(lexer.KeywordImport); err != nil {
		return nil, err
	}

	parts, err := p.dottedPath()

	imp := &ast.Import{Pos: start}

	if err == errStarFollows {
		if err := p.advance(); err != nil { // consume Star
			return nil, err
		}

		imp.Whole = true
		imp.Module = p.moduleName(parts)
	} else if err != nil {
		return nil, err
	} else {
		if len(parts) < 2 {
			return nil, token.NewPosError(tokenNode{p.tok}, "scoped import must name a module and a declaration").
				WithKind(token.ParseError)
		}

		imp.Whole = false
		imp.Module = p.moduleName(parts[:len(parts)-1])
		imp.Name = parts[len(parts)-1]
	}

	end, err := p.expect(lexer.Semicolon)
	if err != nil {
		return nil, err
	}

	imp.EndPos = end.End

	return imp, nil
}

// parseAnnotations reads zero or more "@scopedname jsonLiteral" inline
// annotations, plus any accumulated "///" doc lines, which always win a
// slot under the well-known key sys.annotations.Doc.
func (p *parser) parseAnnotations() (ast.Annotations, error) {
	ann := ast.NewAnnotations()

	for p.at(lexer.At) {
		pos := p.tok.Pos

		if err := p.advance(); err != nil {
			return ann, err
		}

		parts, err := p.dottedPath()
		if err == errStarFollows {
			return ann, unexpectedToken(p.tok, lexer.String)
		} else if err != nil {
			return ann, err
		}

		key := joinIdents(parts)

		lit, err := p.parseLiteral()
		if err != nil {
			return ann, err
		}

		ann.Set(key, pos, lit)
	}

	docPos := p.pendingDocPos
	if doc := p.takeDoc(); doc != "" {
		ann.Set("sys.annotations.Doc", docPos, &ast.Literal{Kind: ast.LitString, Str: doc})
	}

	return ann, nil
}

func joinIdents(parts []ast.Ident) string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Value
	}

	return strings.Join(names, ".")
}

func (p *parser) parseDecl() (*ast.Decl, error) {
	ann, err := p.parseAnnotations()
	if err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case lexer.KeywordStruct, lexer.KeywordUnion:
		return p.parseStructOrUnion(ann)
	case lexer.KeywordType:
		return p.parseTypeDef(ann)
	case lexer.KeywordNewtype:
		return p.parseNewType(ann)
	case lexer.KeywordAnnotation:
		return nil, p.parseStandaloneAnnotation()
	default:
		return nil, unexpectedToken(p.tok, lexer.KeywordStruct, lexer.KeywordUnion, lexer.KeywordType, lexer.KeywordNewtype, lexer.KeywordAnnotation)
	}
}

func (p *parser) parseStructOrUnion(ann ast.Annotations) (*ast.Decl, error) {
	start := p.tok.Pos

	kind := ast.DeclStruct
	if p.tok.Kind == lexer.KeywordUnion {
		kind = ast.DeclUnion
	}

	if err := p.advance(); err != nil {
		return nil, err
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	typeParams, err := p.parseTypeParamsOpt()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}

	var fields []*ast.Field
	for !p.at(lexer.RBrace) {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}

		fields = append(fields, f)
	}

	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}

	if kind == ast.DeclUnion && len(fields) == 0 {
		return nil, token.NewPosError(tokenNode{lexer.Token{Pos: start}}, "union must declare at least one field",
			token.NewErrDetail(&name, "declared here")).WithKind(token.ParseError)
	}

	// A union may carry a decl-level default, the void-arm-by-name or
	// single-key-object shorthand (spec's union-default scenario); struct
	// never does.
	var def *ast.Literal
	if kind == ast.DeclUnion && p.at(lexer.Equals) {
		if err := p.advance(); err != nil {
			return nil, err
		}

		def, err = p.parseLiteral()
		if err != nil {
			return nil, err
		}
	}

	end, err := p.expect(lexer.Semicolon)
	if err != nil {
		return nil, err
	}

	return &ast.Decl{
		Pos: start, EndPos: end.End,
		Kind: kind, Name: name, TypeParams: typeParams,
		Fields: fields, Annotations: ann, Default: def,
	}, nil
}

func (p *parser) parseTypeDef(ann ast.Annotations) (*ast.Decl, error) {
	start := p.tok.Pos

	if err := p.advance(); err != nil {
		return nil, err
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	typeParams, err := p.parseTypeParamsOpt()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.Equals); err != nil {
		return nil, err
	}

	te, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	end, err := p.expect(lexer.Semicolon)
	if err != nil {
		return nil, err
	}

	return &ast.Decl{
		Pos: start, EndPos: end.End,
		Kind: ast.DeclTypeDef, Name: name, TypeParams: typeParams,
		TypeExpr: te, Annotations: ann,
	}, nil
}

func (p *parser) parseNewType(ann ast.Annotations) (*ast.Decl, error) {
	start := p.tok.Pos

	if err := p.advance(); err != nil {
		return nil, err
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	typeParams, err := p.parseTypeParamsOpt()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.Equals); err != nil {
		return nil, err
	}

	te, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	var def *ast.Literal
	if p.at(lexer.Equals) {
		if err := p.advance(); err != nil {
			return nil, err
		}

		def, err = p.parseLiteral()
		if err != nil {
			return nil, err
		}
	}

	end, err := p.expect(lexer.Semicolon)
	if err != nil {
		return nil, err
	}

	return &ast.Decl{
		Pos: start, EndPos: end.End,
		Kind: ast.DeclNewType, Name: name, TypeParams: typeParams,
		TypeExpr: te, Default: def, Annotations: ann,
	}, nil
}

// parseStandaloneAnnotation parses `annotation declRef scopedname
// jsonLiteral ;` and queues it for applyStandaloneAnnotations, which runs
// once the whole module is parsed. declRef is `ident ('.' ident)?` (decl, or
// decl.field).
func (p *parser) parseStandaloneAnnotation() error {
	if err := p.advance(); err != nil {
		return err
	}

	declName, err := p.ident()
	if err != nil {
		return err
	}

	var fieldName *ast.Ident

	if p.at(lexer.Dot) {
		if err := p.advance(); err != nil {
			return err
		}

		f, err := p.ident()
		if err != nil {
			return err
		}

		fieldName = &f
	}

	keyParts, err := p.dottedPath()
	if err == errStarFollows {
		return unexpectedToken(p.tok, lexer.String)
	} else if err != nil {
		return err
	}

	key := joinIdents(keyParts)

	lit, err := p.parseLiteral()
	if err != nil {
		return err
	}

	if _, err := p.expect(lexer.Semicolon); err != nil {
		return err
	}

	p.standaloneAnnotations = append(p.standaloneAnnotations, standaloneAnnotation{
		declName: declName, fieldName: fieldName, key: key, pos: declName.Pos, value: lit,
	})

	return nil
}

type standaloneAnnotation struct {
	declName  ast.Ident
	fieldName *ast.Ident
	key       string
	pos       token.Pos
	value     *ast.Literal
}

func (p *parser) parseTypeParamsOpt() ([]ast.Ident, error) {
	if !p.at(lexer.LAngle) {
		return nil, nil
	}

	if err := p.advance(); err != nil {
		return nil, err
	}

	var params []ast.Ident

	for {
		id, err := p.ident()
		if err != nil {
			return nil, err
		}

		params = append(params, id)

		if p.at(lexer.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}

		break
	}

	if _, err := p.expect(lexer.RAngle); err != nil {
		return nil, err
	}

	return params, nil
}

func (p *parser) parseField() (*ast.Field, error) {
	ann, err := p.parseAnnotations()
	if err != nil {
		return nil, err
	}

	start := p.tok.Pos

	te, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	var def *ast.Literal
	if p.at(lexer.Equals) {
		if err := p.advance(); err != nil {
			return nil, err
		}

		def, err = p.parseLiteral()
		if err != nil {
			return nil, err
		}
	}

	end, err := p.expect(lexer.Semicolon)
	if err != nil {
		return nil, err
	}

	return &ast.Field{
		Pos: start, EndPos: end.End,
		Annotations: ann, Name: name, Type: te, Default: def,
	}, nil
}

func (p *parser) parseTypeExpr() (*ast.TypeExpr, error) {
	start := p.tok.Pos

	parts, err := p.dottedPath()
	if err == errStarFollows {
		return nil, unexpectedToken(p.tok, lexer.LAngle)
	} else if err != nil {
		return nil, err
	}

	te := &ast.TypeExpr{Pos: start, RefKind: ast.RefName}

	if len(parts) == 1 {
		te.Name = parts[0].Value
		te.EndPos = parts[0].EndPos
	} else {
		te.Name = parts[len(parts)-1].Value
		te.NameModule = p.moduleName(parts[:len(parts)-1])
		te.EndPos = parts[len(parts)-1].EndPos
	}

	if p.at(lexer.LAngle) {
		if err := p.advance(); err != nil {
			return nil, err
		}

		for {
			param, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}

			te.Parameters = append(te.Parameters, param)

			if p.at(lexer.Comma) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}

			break
		}

		end, err := p.expect(lexer.RAngle)
		if err != nil {
			return nil, err
		}

		te.EndPos = end.End
	}

	return te, nil
}

// parseLiteral reads one JSON-shaped value per spec §4.1/§6 jsonLiteral.
func (p *parser) parseLiteral() (*ast.Literal, error) {
	start := p.tok.Pos

	switch p.tok.Kind {
	case lexer.KeywordNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitNull, Pos: start, EndPos: start}, nil

	case lexer.KeywordTrue, lexer.KeywordFalse:
		v := p.tok.Kind == lexer.KeywordTrue
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitBool, Bool: v, Pos: start, EndPos: start}, nil

	case lexer.Int:
		v := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitInt, Number: v, Pos: start, EndPos: start}, nil

	case lexer.Float:
		v := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitFloat, Number: v, Pos: start, EndPos: start}, nil

	case lexer.String:
		v := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitString, Str: v, Pos: start, EndPos: start}, nil

	case lexer.LBracket:
		return p.parseArrayLiteral()

	case lexer.LBrace:
		return p.parseObjectLiteral()

	default:
		return nil, unexpectedToken(p.tok, lexer.KeywordNull, lexer.KeywordTrue, lexer.KeywordFalse, lexer.Int, lexer.Float, lexer.String, lexer.LBracket, lexer.LBrace)
	}
}

func (p *parser) parseArrayLiteral() (*ast.Literal, error) {
	start := p.tok.Pos

	if err := p.advance(); err != nil {
		return nil, err
	}

	lit := &ast.Literal{Kind: ast.LitArray, Pos: start}

	if p.at(lexer.RBracket) {
		end, err := p.expect(lexer.RBracket)
		if err != nil {
			return nil, err
		}
		lit.EndPos = end.End
		return lit, nil
	}

	for {
		elem, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}

		lit.Array = append(lit.Array, elem)

		if p.at(lexer.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}

		break
	}

	end, err := p.expect(lexer.RBracket)
	if err != nil {
		return nil, err
	}

	lit.EndPos = end.End

	return lit, nil
}

func (p *parser) parseObjectLiteral() (*ast.Literal, error) {
	start := p.tok.Pos

	if err := p.advance(); err != nil {
		return nil, err
	}

	lit := &ast.Literal{Kind: ast.LitObject, Pos: start, ObjectValues: map[string]*ast.Literal{}}

	if p.at(lexer.RBrace) {
		end, err := p.expect(lexer.RBrace)
		if err != nil {
			return nil, err
		}
		lit.EndPos = end.End
		return lit, nil
	}

	for {
		keyTok, err := p.expect(lexer.String)
		if err != nil {
			return nil, err
		}

		if _, ok := lit.ObjectValues[keyTok.Value]; ok {
			return nil, token.NewPosError(tokenNode{keyTok}, "duplicate object key "+strconv.Quote(keyTok.Value)).
				WithKind(token.ParseError)
		}

		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}

		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}

		lit.ObjectKeys = append(lit.ObjectKeys, keyTok.Value)
		lit.ObjectValues[keyTok.Value] = val

		if p.at(lexer.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}

		break
	}

	end, err := p.expect(lexer.RBrace)
	if err != nil {
		return nil, err
	}

	lit.EndPos = end.End

	return lit, nil
}
