package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a compile error.
type Kind int

const (
	LexError Kind = iota
	ParseError
	UndeclaredSymbol
	SymbolRedeclared
	ArityError
	IOError
	CodegenError
)

var kindNames = [...]string{
	LexError:         "LexError",
	ParseError:       "ParseError",
	UndeclaredSymbol: "UndeclaredSymbol",
	SymbolRedeclared: "SymbolRedeclared",
	ArityError:       "ArityError",
	IOError:          "IOError",
	CodegenError:     "CodegenError",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// NoPos marks an error with no source location.
const NoPos = -1

// Error is a fatal diagnostic. Pos is the byte offset of the start of Lexeme
// in the source, or NoPos.
type Error struct {
	Kind     Kind
	Pos      int
	Lexeme   string
	Expected string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Pos != NoPos {
		fmt.Fprintf(&b, " at offset %d", e.Pos)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Expected != "" {
		fmt.Fprintf(&b, " (expected %s)", e.Expected)
	}
	if e.Lexeme != "" {
		fmt.Fprintf(&b, " near %q", e.Lexeme)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of kind k at pos.
func Errorf(k Kind, pos int, lexeme string, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Pos: pos, Lexeme: lexeme, Msg: fmt.Sprintf(format, args...)}
}

// Expect builds a ParseError naming the production that was expected.
func Expect(pos int, lexeme, expected string) *Error {
	return &Error{Kind: ParseError, Pos: pos, Lexeme: lexeme, Expected: expected, Msg: "unexpected token"}
}

// IO wraps err as an IOError.
func IO(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: IOError, Pos: NoPos, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// ExcerptWidth is the number of bytes shown on each side of an error offset.
const ExcerptWidth = 20

// Excerpt returns the source text around pos, clipped to ExcerptWidth bytes on
// each side and to the enclosing line, and the column of pos within it.
func Excerpt(src []byte, pos int) (string, int) {
	if pos < 0 {
		return "", 0
	}
	src = trimNUL(src)
	if pos > len(src) {
		pos = len(src)
	}
	lo := pos - ExcerptWidth
	if lo < 0 {
		lo = 0
	}
	for i := pos - 1; i >= lo; i-- {
		if src[i] == '\n' {
			lo = i + 1
			break
		}
	}
	hi := pos + ExcerptWidth
	if hi > len(src) {
		hi = len(src)
	}
	for i := pos; i < hi; i++ {
		if src[i] == '\n' {
			hi = i
			break
		}
	}
	return strings.ReplaceAll(string(src[lo:hi]), "\t", " "), pos - lo
}

// Render formats err for a user: kind, message, offending lexeme, an excerpt
// of src and a caret line under the lexeme.
func Render(err error, src []byte) string {
	var de *Error
	if !errors.As(err, &de) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString(de.Error())
	b.WriteByte('\n')
	if de.Pos == NoPos || src == nil {
		return b.String()
	}
	text, col := Excerpt(src, de.Pos)
	span := len(de.Lexeme)
	if span == 0 {
		span = 1
	}
	if col+span > len(text) && len(text) > col {
		span = len(text) - col
	}
	fmt.Fprintf(&b, "    %s\n", text)
	fmt.Fprintf(&b, "    %s%s\n", strings.Repeat(" ", col), strings.Repeat("^", span))
	return b.String()
}

func trimNUL(src []byte) []byte {
	for i, c := range src {
		if c == 0 {
			return src[:i]
		}
	}
	return src
}
