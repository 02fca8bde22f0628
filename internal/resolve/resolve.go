// Package resolve labels every block of a function with its scope path,
// binds each identifier use to the innermost visible declaration and lays
// out the function's stack frame.
//
// A scope label is a string of "_k" segments, one per nesting level: the
// function body is "_1", its second nested block "_1_2", the first block
// inside that "_1_2_1". A local's identity is its symbol followed by the label
// of the scope that declares it, so "x_1_2" and "x_1" are distinct slots.
package resolve

import (
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set"

	"github.com/tinyrange/scc/internal/ast"
	"github.com/tinyrange/scc/internal/diag"
	"github.com/tinyrange/scc/internal/types"
)

// SlotSize is the stack space taken by every local and parameter.
const SlotSize = 8

// BodyScope is the label of a function body; parameters live there too.
const BodyScope = "_1"

// Resolve resolves every function in order and stops at the first error.
func Resolve(fns []*ast.Function) error {
	for _, fn := range fns {
		if err := ResolveFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

type resolver struct {
	fn       *ast.Function
	labels   []string // scope label stack; top is the current scope
	children []int    // blocks seen so far directly inside each open scope
	declared mapset.Set
	offset   int
	sites    int
}

// ResolveFunction annotates fn in place and fills fn.Locals, fn.LVSize and
// fn.ArgsSize.
func ResolveFunction(fn *ast.Function) error {
	r := &resolver{
		fn:       fn,
		labels:   []string{BodyScope},
		children: []int{0},
		declared: mapset.NewSet(),
	}
	fn.Locals = map[string]ast.Local{}

	for _, p := range fn.Params {
		if !r.declared.Add(ast.Identity(p.Name, BodyScope)) {
			return diag.Errorf(diag.SymbolRedeclared, p.Pos, p.Name, "parameter %s declared twice in %s", p.Name, fn.Name)
		}
	}
	if fn.Root != nil {
		fn.Root.Scope = BodyScope
		for _, s := range fn.Root.Stmts {
			if err := r.node(s); err != nil {
				return err
			}
		}
	}
	for _, p := range fn.Params {
		r.offset += SlotSize
		fn.Locals[ast.Identity(p.Name, BodyScope)] = ast.Local{Offset: r.offset, Type: p.Type}
	}
	fn.LVSize = r.sites * SlotSize
	fn.ArgsSize = len(fn.Params) * SlotSize
	return nil
}

func (r *resolver) scope() string { return r.labels[len(r.labels)-1] }

func (r *resolver) enterBlock(n *ast.Node) {
	top := len(r.children) - 1
	r.children[top]++
	label := r.scope() + "_" + strconv.Itoa(r.children[top])
	r.labels = append(r.labels, label)
	r.children = append(r.children, 0)
	n.Scope = label
}

func (r *resolver) leaveBlock() {
	r.labels = r.labels[:len(r.labels)-1]
	r.children = r.children[:len(r.children)-1]
}

// Lookup returns the label of the innermost scope, starting at label and
// walking outwards, for which has(symbol+scope) holds.
func Lookup(symbol, label string, has func(identity string) bool) (string, bool) {
	for l := label; l != ""; l = parent(l) {
		if has(ast.Identity(symbol, l)) {
			return l, true
		}
	}
	return "", false
}

func parent(label string) string {
	i := strings.LastIndex(label, "_")
	if i < 0 {
		return ""
	}
	return label[:i]
}

func (r *resolver) node(n *ast.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.Num:
		return nil
	case ast.Ident:
		r.sites++
		scope, ok := Lookup(n.Name, r.scope(), func(id string) bool { return r.declared.Contains(id) })
		if !ok {
			return diag.Errorf(diag.UndeclaredSymbol, n.Pos, n.Name, "%s is not declared in %s", n.Name, r.fn.Name)
		}
		n.Scope = scope
		n.Type = types.Int()
		return nil
	case ast.Decl:
		// The initializer cannot see the name being declared.
		if err := r.node(n.R); err != nil {
			return err
		}
		r.sites++
		scope := r.scope()
		id := ast.Identity(n.Name, scope)
		if !r.declared.Add(id) {
			return diag.Errorf(diag.SymbolRedeclared, n.Pos, n.Name, "%s redeclared in scope %s", n.Name, scope)
		}
		r.offset += SlotSize
		r.fn.Locals[id] = ast.Local{Offset: r.offset, Type: n.Type}
		n.Scope = scope
		return nil
	case ast.Block:
		r.enterBlock(n)
		defer r.leaveBlock()
		for _, s := range n.Stmts {
			if err := r.node(s); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range ast.Children(n) {
		if err := r.node(c); err != nil {
			return err
		}
	}
	return nil
}
