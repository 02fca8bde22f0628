package ast

import (
	"fmt"

	"github.com/tinyrange/scc/internal/types"
)

type Kind int

const (
	// Leaves
	Num Kind = iota
	Ident

	// Unary wrappers; the child is L.
	Expr
	Stmt
	Stmt2
	Return
	IfCond
	Else

	// Binary; children are L and R.
	Add
	Sub
	Mul
	Div
	Eq
	Neq
	Lt
	Le
	Gt
	Ge

	Assign // L = Ident, R = value
	Decl   // Name, R = initializer, Type, Scope

	If     // Cond, Body
	Elsif  // Cond, Body
	IfStmt // IfNode, ElsifNode?, ElseNode?
	For    // Init, Cond, Step, Body

	Block  // Stmts
	FnCall // Name, Args
	FnRoot // Stmts
)

var kindNames = [...]string{
	Num: "NUM", Ident: "IDENT",
	Expr: "EXPR", Stmt: "STMT", Stmt2: "STMT2", Return: "RETURN", IfCond: "IFCOND", Else: "ELSE",
	Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV",
	Eq: "EQ", Neq: "NEQ", Lt: "LT", Le: "LE", Gt: "GT", Ge: "GE",
	Assign: "ASSIGN", Decl: "DECL",
	If: "IF", Elsif: "ELSIF", IfStmt: "IFSTMT", For: "FOR",
	Block: "BLOCK", FnCall: "FNCALL", FnRoot: "FNROOT",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBinary reports whether k carries L and R operands.
func (k Kind) IsBinary() bool { return k >= Add && k <= Ge }

// IsCompare reports whether k produces a 0/1 truth value.
func (k Kind) IsCompare() bool { return k >= Eq && k <= Ge }

// IsWrapper reports whether k carries a single child in L.
func (k Kind) IsWrapper() bool { return k >= Expr && k <= Else }

// Node is a tagged AST node; Kind selects which fields are live. Each node
// owns its children outright.
type Node struct {
	Kind Kind
	Pos  int // source offset of the node's first token

	Val   int64      // Num
	Name  string     // Ident, Decl, FnCall
	Scope string     // Ident: scope resolved against; Decl, Block: own scope
	Type  types.Type // Ident, Decl

	L, R *Node

	Cond, Body       *Node // If, Elsif, For
	Init, Step       *Node // For
	IfNode, ElseNode *Node // IfStmt
	ElsifNode        *Node // IfStmt

	Stmts []*Node // Block, FnRoot
	Args  []*Node // FnCall
}

func NewNum(v int64, pos int) *Node { return &Node{Kind: Num, Val: v, Pos: pos} }

func NewIdent(name string, pos int) *Node {
	return &Node{Kind: Ident, Name: name, Pos: pos, Type: types.UnknownT()}
}

func NewUnary(k Kind, child *Node, pos int) *Node { return &Node{Kind: k, L: child, Pos: pos} }

func NewBinary(k Kind, l, r *Node, pos int) *Node { return &Node{Kind: k, L: l, R: r, Pos: pos} }

// Param is a function parameter.
type Param struct {
	Name string
	Type types.Type
	Pos  int
}

// Local is a resolved local-variable slot; Offset is positive and the slot
// lives at -Offset(%rbp).
type Local struct {
	Offset int
	Type   types.Type
}

// Function is one parsed function. Locals, LVSize and ArgsSize are filled by
// the resolver.
type Function struct {
	Name   string
	Pos    int
	Params []Param
	Root   *Node

	Locals   map[string]Local
	LVSize   int
	ArgsSize int
}

// Identity is the key of a local in Function.Locals.
func Identity(symbol, scope string) string { return symbol + scope }

// Walk calls fn for n and every node below it in evaluation order. If fn
// returns false the children of that node are skipped.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Children returns the non-nil direct children of n in evaluation order.
func Children(n *Node) []*Node {
	var out []*Node
	add := func(cs ...*Node) {
		for _, c := range cs {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch n.Kind {
	case Block, FnRoot:
		add(n.Stmts...)
	case FnCall:
		add(n.Args...)
	case If, Elsif:
		add(n.Cond, n.Body)
	case IfStmt:
		add(n.IfNode, n.ElsifNode, n.ElseNode)
	case For:
		add(n.Init, n.Cond, n.Step, n.Body)
	default:
		add(n.L, n.R)
	}
	return out
}
