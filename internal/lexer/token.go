package lexer

import "fmt"

type Kind int

const (
	// Sentinels
	INI Kind = iota
	EOF

	NUM
	PUNCT
	IDENT

	// Keywords
	RETURN
	IF
	ELIF // else if
	ELSE
	FOR
	TYPE // int

	// Comparison
	EQ  // ==
	NEQ // !=
	LT  // <
	LE  // <=
	GT  // >
	GE  // >=
)

var kindNames = [...]string{
	INI:    "INI",
	EOF:    "EOF",
	NUM:    "NUM",
	PUNCT:  "PUNCT",
	IDENT:  "IDENT",
	RETURN: "RETURN",
	IF:     "IF",
	ELIF:   "ELIF",
	ELSE:   "ELSE",
	FOR:    "FOR",
	TYPE:   "TYPE",
	EQ:     "EQ",
	NEQ:    "NEQ",
	LT:     "LT",
	LE:     "LE",
	GT:     "GT",
	GE:     "GE",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexeme. Val is meaningful only for NUM. Pos is the offset just
// past the last byte consumed for the token. Gap counts source bytes consumed
// but not present in Lit, which only happens for ELIF.
type Token struct {
	Kind Kind
	Val  int64
	Lit  string
	Pos  int
	Gap  int
}

// Start is the offset of the token's first byte.
func (t Token) Start() int { return t.Pos - len(t.Lit) - t.Gap }

func (t Token) Is(k Kind) bool { return t.Kind == k }

// IsPunct reports whether t is the punctuator s.
func (t Token) IsPunct(s string) bool { return t.Kind == PUNCT && t.Lit == s }

func (t Token) String() string {
	switch t.Kind {
	case NUM:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Val)
	case INI, EOF:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Lit)
	}
}
