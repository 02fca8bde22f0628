package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented tree of fn to w.
func Fprint(w io.Writer, fn *Function) error {
	var params []string
	for _, p := range fn.Params {
		params = append(params, p.Type.String()+" "+p.Name)
	}
	if _, err := fmt.Fprintf(w, "func %s(%s)\n", fn.Name, strings.Join(params, ", ")); err != nil {
		return err
	}
	return fprintNode(w, fn.Root, 1)
}

func fprintNode(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describe(n)); err != nil {
		return err
	}
	for _, c := range Children(n) {
		if err := fprintNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func describe(n *Node) string {
	switch n.Kind {
	case Num:
		return fmt.Sprintf("kind: %s, val: %d", n.Kind, n.Val)
	case Ident:
		if n.Scope != "" {
			return fmt.Sprintf("kind: %s, name: %s, scope: %s", n.Kind, n.Name, n.Scope)
		}
		return fmt.Sprintf("kind: %s, name: %s", n.Kind, n.Name)
	case Decl:
		return fmt.Sprintf("kind: %s, name: %s, type: %s, scope: %s", n.Kind, n.Name, n.Type, n.Scope)
	case FnCall:
		return fmt.Sprintf("kind: %s, name: %s, args: %d", n.Kind, n.Name, len(n.Args))
	case Block:
		return fmt.Sprintf("kind: %s, scope: %s", n.Kind, n.Scope)
	default:
		return fmt.Sprintf("kind: %s", n.Kind)
	}
}
