package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moonrailgun/reqcraft/pkg/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeIdentifiersAndSymbols(t *testing.T) {
	toks, err := New("t.rqc", []byte(`category a { prefix "/a" }`)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, []token.Kind{
		token.Ident, token.Ident, token.Symbol,
		token.Ident, token.String, token.Symbol, token.EOF,
	}, kinds(toks))
	require.Equal(t, "/a", toks[4].Text)
}

func TestTokenizeURLIsOneToken(t *testing.T) {
	toks, err := New("t.rqc", []byte(`ws http://localhost:3000/stream {`)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, token.Ident, toks[1].Kind)
	require.Equal(t, "http://localhost:3000/stream", toks[1].Text)
}

func TestTokenizePathWithPlaceholder(t *testing.T) {
	toks, err := New("t.rqc", []byte(`api /users/{id} {`)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, "/users/{id}", toks[1].Text)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := New("t.rqc", []byte(`"a\"b\\c\n\t\r"`)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, "a\"b\\c\n\t\r", toks[0].Text)
}

func TestTokenizeInvalidEscape(t *testing.T) {
	_, err := New("t.rqc", []byte(`"bad\qescape"`)).Tokenize()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, InvalidEscape, lexErr.Kind)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := New("t.rqc", []byte(`"never closed`)).Tokenize()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, UnterminatedString, lexErr.Kind)
}

func TestTokenizeUnterminatedBlockComment(t *testing.T) {
	_, err := New("t.rqc", []byte(`/* never closed`)).Tokenize()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, UnterminatedBlockComment, lexErr.Kind)
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := New("t.rqc", []byte(`1 2.5 -3 -4.25`)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, "1", toks[0].Text)
	require.True(t, toks[0].IsInt)
	require.Equal(t, "2.5", toks[1].Text)
	require.False(t, toks[1].IsInt)
	require.Equal(t, "-3", toks[2].Text)
	require.True(t, toks[2].IsInt)
	require.Equal(t, "-4.25", toks[3].Text)
	require.False(t, toks[3].IsInt)
}

func TestDocCommentPreserved(t *testing.T) {
	src := "// creates a widget\napi /widgets {"
	toks, err := New("t.rqc", []byte(src)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, token.LineComment, toks[0].Kind)
	require.Equal(t, "// creates a widget", toks[0].Text)
}

func TestBlockCommentDoesNotNest(t *testing.T) {
	src := "/* outer /* inner */ still_here */"
	toks, err := New("t.rqc", []byte(src)).Tokenize()
	require.NoError(t, err)
	require.Equal(t, token.BlockComment, toks[0].Kind)
	require.Equal(t, "/* outer /* inner */", toks[0].Text)
}
