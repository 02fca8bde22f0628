package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/scc/internal/diag"
	"github.com/tinyrange/scc/internal/lexer"
)

type tokenCase struct {
	kind lexer.Kind
	lit  string
}

// lexBody lexes src with its NUL sentinel and strips INI and EOF.
func lexBody(t *testing.T, src string) []lexer.Token {
	t.Helper()
	toks, err := lexer.Lex([]byte(src + "\x00"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 2)
	require.Equal(t, lexer.INI, toks[0].Kind, "stream must open with INI")
	require.Equal(t, lexer.EOF, toks[len(toks)-1].Kind, "stream must close with EOF")
	return toks[1 : len(toks)-1]
}

func checkTokens(t *testing.T, src string, want []tokenCase) {
	t.Helper()
	got := lexBody(t, src)
	if !assert.Len(t, got, len(want)) {
		for i, tok := range got {
			t.Logf("  [%d] %s", i, tok)
		}
		return
	}
	for i, w := range want {
		assert.Equal(t, w.kind, got[i].Kind, "token[%d] kind (lit %q)", i, got[i].Lit)
		assert.Equal(t, w.lit, got[i].Lit, "token[%d] lexeme", i)
	}
}

func TestPunctuation(t *testing.T) {
	cases := []struct {
		in   string
		kind lexer.Kind
	}{
		{"+", lexer.PUNCT},
		{"-", lexer.PUNCT},
		{"*", lexer.PUNCT},
		{"/", lexer.PUNCT},
		{";", lexer.PUNCT},
		{"(", lexer.PUNCT},
		{")", lexer.PUNCT},
		{"{", lexer.PUNCT},
		{"}", lexer.PUNCT},
		{",", lexer.PUNCT},
		{"=", lexer.PUNCT},
		{"==", lexer.EQ},
		{"!=", lexer.NEQ},
		{"<", lexer.LT},
		{"<=", lexer.LE},
		{">", lexer.GT},
		{">=", lexer.GE},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			checkTokens(t, c.in, []tokenCase{{c.kind, c.in}})
		})
	}
}

func TestTwoCharBeforeOneChar(t *testing.T) {
	checkTokens(t, "a<=b>=c==d!=e<f>g=h", []tokenCase{
		{lexer.IDENT, "a"}, {lexer.LE, "<="},
		{lexer.IDENT, "b"}, {lexer.GE, ">="},
		{lexer.IDENT, "c"}, {lexer.EQ, "=="},
		{lexer.IDENT, "d"}, {lexer.NEQ, "!="},
		{lexer.IDENT, "e"}, {lexer.LT, "<"},
		{lexer.IDENT, "f"}, {lexer.GT, ">"},
		{lexer.IDENT, "g"}, {lexer.PUNCT, "="},
		{lexer.IDENT, "h"},
	})
}

func TestKeywords(t *testing.T) {
	checkTokens(t, "int return if else for returned iff", []tokenCase{
		{lexer.TYPE, "int"},
		{lexer.RETURN, "return"},
		{lexer.IF, "if"},
		{lexer.ELSE, "else"},
		{lexer.FOR, "for"},
		{lexer.IDENT, "returned"},
		{lexer.IDENT, "iff"},
	})
}

func TestElseIf(t *testing.T) {
	t.Run("single space", func(t *testing.T) {
		checkTokens(t, "else if", []tokenCase{{lexer.ELIF, "else if"}})
	})
	t.Run("newline and tabs", func(t *testing.T) {
		checkTokens(t, "else\n\t if (", []tokenCase{{lexer.ELIF, "else if"}, {lexer.PUNCT, "("}})
	})
	t.Run("else block", func(t *testing.T) {
		checkTokens(t, "else {", []tokenCase{{lexer.ELSE, "else"}, {lexer.PUNCT, "{"}})
	})
	t.Run("identifier starting with if", func(t *testing.T) {
		checkTokens(t, "else iffy", []tokenCase{{lexer.ELSE, "else"}, {lexer.IDENT, "iffy"}})
	})
	t.Run("else at end of input", func(t *testing.T) {
		checkTokens(t, "else", []tokenCase{{lexer.ELSE, "else"}})
	})
}

func TestElseIfStart(t *testing.T) {
	for _, src := range []string{"x else if", "x else   if", "x else\n\t\tif"} {
		toks := lexBody(t, src)
		require.Len(t, toks, 2)
		elif := toks[1]
		require.Equal(t, lexer.ELIF, elif.Kind)
		assert.Equal(t, 2, elif.Start(), "%q", src)
		assert.Equal(t, len(src), elif.Pos, "%q", src)
	}
}

func TestNumbers(t *testing.T) {
	toks := lexBody(t, "0 7 42 1234567")
	want := []int64{0, 7, 42, 1234567}
	require.Len(t, toks, len(want))
	for i, v := range want {
		assert.Equal(t, lexer.NUM, toks[i].Kind)
		assert.Equal(t, v, toks[i].Val)
	}
}

func TestPositions(t *testing.T) {
	src := "int main(){ return 42; }"
	toks, err := lexer.Lex([]byte(src + "\x00"))
	require.NoError(t, err)

	wantPos := []int{0, 3, 8, 9, 10, 11, 18, 21, 22, 24, 24}
	require.Len(t, toks, len(wantPos))
	for i, p := range wantPos {
		assert.Equal(t, p, toks[i].Pos, "token[%d] %s", i, toks[i])
	}
	ret := toks[6]
	assert.Equal(t, lexer.RETURN, ret.Kind)
	assert.Equal(t, 12, ret.Start())
	num := toks[7]
	assert.Equal(t, 19, num.Start())
	assert.Equal(t, "42", src[num.Start():num.Pos])
}

func TestStopsAtNUL(t *testing.T) {
	toks, err := lexer.Lex([]byte("a\x00 @@@"))
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, lexer.EOF, toks[2].Kind)
	assert.Equal(t, 1, toks[2].Pos)
}

func TestMissingNULIsTolerated(t *testing.T) {
	toks, err := lexer.Lex([]byte("a + 1"))
	require.NoError(t, err)
	assert.Equal(t, lexer.EOF, toks[len(toks)-1].Kind)
	assert.Len(t, toks, 5)
}

func TestLexErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		pos  int
		lex  string
	}{
		{"lone bang", "a ! b", 2, "!"},
		{"unknown byte", "a @ b", 2, "@"},
		{"percent", "1 % 2", 2, "%"},
		{"underscore", "int _x", 4, "_"},
		{"overflowing literal", "99999999999999999999", 0, "99999999999999999999"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := lexer.Lex([]byte(c.src + "\x00"))
			require.Error(t, err)
			var de *diag.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, diag.LexError, de.Kind)
			assert.Equal(t, c.pos, de.Pos)
			assert.Equal(t, c.lex, de.Lexeme)
		})
	}
}

func TestNextAfterEOF(t *testing.T) {
	l := lexer.New([]byte("\x00"))
	for i := 0; i < 3; i++ {
		tok, err := l.Next()
		require.NoError(t, err)
		assert.Equal(t, lexer.EOF, tok.Kind)
	}
}
