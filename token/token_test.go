package token

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPos_StringAndIsZero(t *testing.T) {
	p := Pos{File: "demo.adl", Line: 3, Col: 5}
	assert.Equal(t, "demo.adl:3:5", p.String())
	assert.False(t, p.IsZero())
	assert.True(t, (Pos{}).IsZero())
}

func TestPosError_ErrorIncludesKindAndCause(t *testing.T) {
	node := NewNode(Pos{File: "demo.adl", Line: 1, Col: 1}, Pos{File: "demo.adl", Line: 1, Col: 5})
	err := NewPosError(node, "unexpected token").WithKind(ParseError)

	assert.Contains(t, err.Error(), "ParseError")
	assert.Contains(t, err.Error(), "unexpected token")

	wrapped := err.SetCause(fmt.Errorf("underlying"))
	assert.Contains(t, wrapped.Error(), "underlying")
}

func TestPosError_UnwrapAndErrorsAs(t *testing.T) {
	cause := errors.New("root cause")
	node := NewNode(Pos{File: "demo.adl", Line: 1, Col: 1}, Pos{File: "demo.adl", Line: 1, Col: 1})
	err := NewPosError(node, "bad").WithKind(UnknownType).SetCause(cause)

	var posErr *PosError
	require.ErrorAs(t, err, &posErr)
	assert.Equal(t, UnknownType, posErr.Kind)
	assert.True(t, errors.Is(err, cause))
}

func TestOneLine_FormatsFileLineColKindMessage(t *testing.T) {
	node := NewNode(Pos{File: "demo.adl", Line: 4, Col: 2}, Pos{File: "demo.adl", Line: 4, Col: 6})
	err := NewPosError(node, "unknown type Foo").WithKind(UnknownType)

	assert.Equal(t, "demo.adl:4:2: UnknownType: unknown type Foo", OneLine(err))
}

func TestOneLine_NonPosErrorFallsBackToPlainMessage(t *testing.T) {
	err := errors.New("plain failure")
	assert.Equal(t, "plain failure", OneLine(err))
}

func TestExplain_NonPosErrorRendersPlainMessage(t *testing.T) {
	err := errors.New("plain failure")
	assert.Equal(t, "plain failure", Explain(err))
}
