// Package lexer turns ADL source text into a stream of positioned tokens.
//
// The scanner is hand-written rather than table-driven: ADL needs a feature
// a pure regex lexer cannot express cleanly (nested block comments), so the
// whole token stream is produced by one
// rune-at-a-time scan loop instead, in the same style the teacher's token
// package used for its own two-grammar markup language.
package lexer

import "fmt"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Float
	String
	DocLine

	KeywordModule
	KeywordStruct
	KeywordUnion
	KeywordType
	KeywordNewtype
	KeywordImport
	KeywordAnnotation
	KeywordTrue
	KeywordFalse
	KeywordNull

	LBrace   // {
	RBrace   // }
	LBracket // [
	RBracket // ]
	LAngle   // <
	RAngle   // >
	LParen   // (
	RParen   // )
	Semicolon
	Comma
	Equals
	Dot
	Star
	At
	Colon
)

var kindNames = map[Kind]string{
	EOF:               "EOF",
	Ident:              "identifier",
	Int:                "integer literal",
	Float:              "float literal",
	String:             "string literal",
	DocLine:            "doc comment",
	KeywordModule:      "'module'",
	KeywordStruct:      "'struct'",
	KeywordUnion:       "'union'",
	KeywordType:        "'type'",
	KeywordNewtype:     "'newtype'",
	KeywordImport:      "'import'",
	KeywordAnnotation:  "'annotation'",
	KeywordTrue:        "'true'",
	KeywordFalse:       "'false'",
	KeywordNull:        "'null'",
	LBrace:             "'{'",
	RBrace:             "'}'",
	LBracket:           "'['",
	RBracket:           "']'",
	LAngle:             "'<'",
	RAngle:             "'>'",
	LParen:             "'('",
	RParen:             "')'",
	Semicolon:          "';'",
	Comma:              "','",
	Equals:             "'='",
	Dot:                "'.'",
	Star:               "'*'",
	At:                 "'@'",
	Colon:              "':'",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"module":     KeywordModule,
	"struct":     KeywordStruct,
	"union":      KeywordUnion,
	"type":       KeywordType,
	"newtype":    KeywordNewtype,
	"import":     KeywordImport,
	"annotation": KeywordAnnotation,
	"true":       KeywordTrue,
	"false":      KeywordFalse,
	"null":       KeywordNull,
}
