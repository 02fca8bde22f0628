package types

// Kind is the closed set of types the compiler records. Only Int carries
// semantics today; None and Unknown mark nodes that have no value type or
// have not been typed yet.
type Kind int

const (
	None Kind = iota
	Unknown
	Int64
)

// Type is a minimal description of a value's type.
type Type struct {
	K Kind
}

func NoneT() Type    { return Type{K: None} }
func UnknownT() Type { return Type{K: Unknown} }
func Int() Type      { return Type{K: Int64} }

// Size returns the size in bytes for this type on our target.
func (t Type) Size() int {
	switch t.K {
	case Int64:
		return 8
	default:
		return 0
	}
}

func (t Type) IsInteger() bool { return t.K == Int64 }

func (t Type) String() string {
	switch t.K {
	case None:
		return "none"
	case Int64:
		return "int"
	default:
		return "unknown"
	}
}

// FromKeyword maps a type keyword to its Type.
func FromKeyword(kw string) Type {
	if kw == "int" {
		return Int()
	}
	return UnknownT()
}
