package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	l := NewLexer(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestLexerOperators(t *testing.T) {
	toks := lexAll(t, "a >= 10 && b != 'x' || !c")
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{IDENT, GE, NUMBER, AND, IDENT, NEQ, STRING, OR, BANG, IDENT, EOF}, types)
}

func TestLexerDurationLiteral(t *testing.T) {
	toks := lexAll(t, "1w3d8h")
	require.Len(t, toks, 2)
	assert.Equal(t, DURATION, toks[0].Type)
	assert.Equal(t, "1w3d8h", toks[0].Literal)
}

func TestLexerDoesNotMistakeIdentPrefixForUnit(t *testing.T) {
	toks := lexAll(t, "5msg")
	// "5" then identifier "msg", not a duration "5ms" followed by "g".
	require.Len(t, toks, 3)
	assert.Equal(t, NUMBER, toks[0].Type)
	assert.Equal(t, IDENT, toks[1].Type)
	assert.Equal(t, "msg", toks[1].Literal)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := lexAll(t, `"line\nbreak"`)
	require.Len(t, toks, 2)
	assert.Equal(t, "line\nbreak", toks[0].Literal)
}

func TestLexerEllipsisVsDot(t *testing.T) {
	toks := lexAll(t, "a...b a.b")
	assert.Equal(t, ELLIPSIS, toks[1].Type)
	assert.Equal(t, DOT, toks[4].Type)
}
