package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"troll/internal/token"
)

func scanAll(src string) []token.Token {
	s := New(src)
	var toks []token.Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScanArithmetic(t *testing.T) {
	toks := scanAll("3 + 4 * 2")
	assert.Equal(t, []token.Kind{
		token.INTEGER, token.PLUS, token.INTEGER, token.TIMES, token.INTEGER, token.EOF,
	}, kinds(toks))
}

func TestScanDieKeywords(t *testing.T) {
	toks := scanAll("3 D 6")
	require.Len(t, toks, 4)
	assert.Equal(t, token.DIE, toks[1].Kind)
	assert.Equal(t, "D", toks[1].Lexeme)
}

func TestScanMultiCharOperators(t *testing.T) {
	cases := []struct {
		src  string
		want token.Kind
	}{
		{"--", token.SET_MINUS},
		{"..", token.DOT_DOT},
		{"||", token.HCONC},
		{"<|", token.VCONCL},
		{"|>", token.VCONCR},
		{"<>", token.VCONCC},
		{"=/=", token.NEQ},
		{"<=", token.LE},
		{">=", token.GE},
		{":=", token.ASSIGN},
		{"%1", token.FIRST},
		{"%2", token.SECOND},
	}
	for _, c := range cases {
		toks := scanAll(c.src)
		require.GreaterOrEqual(t, len(toks), 1, c.src)
		assert.Equal(t, c.want, toks[0].Kind, c.src)
	}
}

func TestScanStringLiteral(t *testing.T) {
	toks := scanAll(`"hello world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Lexeme)
}

func TestScanUnterminatedStringIsError(t *testing.T) {
	toks := scanAll(`"oops`)
	assert.Equal(t, token.ERROR, toks[0].Kind)
}

func TestScanRealLiteral(t *testing.T) {
	toks := scanAll("0.15")
	require.Equal(t, token.REAL, toks[0].Kind)
	assert.Equal(t, "0.15", toks[0].Lexeme)
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll("sum choose myvar")
	assert.Equal(t, token.SUM, toks[0].Kind)
	assert.Equal(t, token.CHOOSE, toks[1].Kind)
	assert.Equal(t, token.IDENTIFIER, toks[2].Kind)
}

func TestScanLineNumbersAdvanceOnNewline(t *testing.T) {
	toks := scanAll("1\n+\n2")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[2].Line)
}

func TestScanLineComment(t *testing.T) {
	toks := scanAll("1 // trailing comment\n+ 2")
	assert.Equal(t, []token.Kind{token.INTEGER, token.PLUS, token.INTEGER, token.EOF}, kinds(toks))
}
