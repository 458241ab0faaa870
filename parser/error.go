package parser

import (
	"strings"

	"github.com/adlang/adlc/lexer"
	"github.com/adlang/adlc/token"
)

// tokenNode adapts a lexer.Token into a token.Node so it can be plugged
// straight into token.PosError/token.NewErrDetail.
type tokenNode struct {
	tok lexer.Token
}

func (n tokenNode) Begin() token.Pos { return n.tok.Pos }
func (n tokenNode) End() token.Pos   { return n.tok.End }

// unexpectedToken builds a ParseError describing that got appeared where
// one of want was expected, mirroring the teacher's UnexpectedTokenError
// message shape ("unexpected X, expected Y or Z").
func unexpectedToken(got lexer.Token, want ...lexer.Kind) *token.PosError {
	names := make([]string, len(want))
	for i, k := range want {
		names[i] = k.String()
	}

	expected := joinExpected(names)

	msg := "unexpected " + got.Kind.String() + ", expected " + expected

	return token.NewPosError(tokenNode{got}, msg).WithKind(token.ParseError)
}

func joinExpected(names []string) string {
	if len(names) == 0 {
		return "nothing"
	}

	if len(names) == 1 {
		return names[0]
	}

	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}
