package lexer

import (
	"strconv"

	"github.com/tinyrange/scc/internal/diag"
)

var keywords = map[string]Kind{
	"return": RETURN,
	"if":     IF,
	"else":   ELSE,
	"for":    FOR,
	"int":    TYPE,
}

// twoChar maps the first byte of a two-byte comparison to its kind.
var twoChar = map[byte]Kind{'=': EQ, '!': NEQ, '<': LE, '>': GE}

type Lexer struct {
	src []byte
	i   int
}

// New returns a lexer over src. src is expected to end in a NUL byte; lexing
// stops at the first NUL or at the end of the buffer, whichever comes first.
func New(src []byte) *Lexer {
	return &Lexer{src: src}
}

// Lex tokenizes src into a stream opening with INI and closing with EOF.
func Lex(src []byte) ([]Token, error) {
	l := New(src)
	toks := []Token{{Kind: INI}}
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) ch() byte {
	if l.i >= len(l.src) {
		return 0
	}
	return l.src[l.i]
}

func (l *Lexer) peek() byte {
	if l.i+1 >= len(l.src) {
		return 0
	}
	return l.src[l.i+1]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isAlpha(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func (l *Lexer) skipSpace() {
	for isSpace(l.ch()) {
		l.i++
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	c := l.ch()
	switch {
	case c == 0:
		return Token{Kind: EOF, Pos: l.i}, nil
	case isDigit(c):
		return l.number()
	case isAlpha(c):
		return l.word(), nil
	}

	start := l.i
	switch c {
	case '=', '!', '<', '>':
		if l.peek() == '=' {
			l.i += 2
			return Token{Kind: twoChar[c], Lit: string(l.src[start:l.i]), Pos: l.i}, nil
		}
		l.i++
		switch c {
		case '=':
			return Token{Kind: PUNCT, Lit: "=", Pos: l.i}, nil
		case '<':
			return Token{Kind: LT, Lit: "<", Pos: l.i}, nil
		case '>':
			return Token{Kind: GT, Lit: ">", Pos: l.i}, nil
		}
		return Token{}, diag.Errorf(diag.LexError, start, "!", "expected '=' after '!'")
	case '+', '-', '*', '/', ';', '(', ')', '{', '}', ',':
		l.i++
		return Token{Kind: PUNCT, Lit: string(c), Pos: l.i}, nil
	}
	return Token{}, diag.Errorf(diag.LexError, start, string(c), "invalid byte %q", c)
}

func (l *Lexer) number() (Token, error) {
	start := l.i
	for isDigit(l.ch()) {
		l.i++
	}
	lit := string(l.src[start:l.i])
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return Token{}, diag.Errorf(diag.LexError, start, lit, "integer literal out of range")
	}
	return Token{Kind: NUM, Val: v, Lit: lit, Pos: l.i}, nil
}

func (l *Lexer) word() Token {
	start := l.i
	for isAlpha(l.ch()) {
		l.i++
	}
	lit := string(l.src[start:l.i])
	k, ok := keywords[lit]
	if !ok {
		return Token{Kind: IDENT, Lit: lit, Pos: l.i}
	}
	if k == ELSE {
		// "else if" is a single token; look past the whitespace for "if".
		j := l.i
		for j < len(l.src) && isSpace(l.src[j]) {
			j++
		}
		if j+2 <= len(l.src) && string(l.src[j:j+2]) == "if" && (j+2 == len(l.src) || !isAlpha(l.src[j+2])) {
			l.i = j + 2
			return Token{Kind: ELIF, Lit: "else if", Pos: l.i, Gap: l.i - start - len("else if")}
		}
	}
	return Token{Kind: k, Lit: lit, Pos: l.i}
}
