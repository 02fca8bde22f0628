package compiler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"

	"github.com/tinyrange/scc/internal/ast"
	"github.com/tinyrange/scc/internal/lexer"
)

var localsDumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// DumpTokens writes toks as a table.
func DumpTokens(w io.Writer, toks []lexer.Token) error {
	if _, err := fmt.Fprintln(w, "////////TOKEN DEBUG START////////"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Kind", "Lexeme", "Value", "Start", "Pos"})
	table.SetAutoFormatHeaders(false)
	for i, t := range toks {
		val := ""
		if t.Kind == lexer.NUM {
			val = strconv.FormatInt(t.Val, 10)
		}
		table.Append([]string{strconv.Itoa(i), t.Kind.String(), t.Lit, val, strconv.Itoa(t.Start()), strconv.Itoa(t.Pos)})
	}
	table.Render()
	_, err := fmt.Fprintln(w, "////////TOKEN DEBUG END////////")
	return err
}

// DumpFunctions writes the node tree and the resolved local table of each
// function.
func DumpFunctions(w io.Writer, fns []*ast.Function) error {
	if _, err := fmt.Fprintln(w, "////////NODE DEBUG START////////"); err != nil {
		return err
	}
	for _, fn := range fns {
		if err := ast.Fprint(w, fn); err != nil {
			return err
		}
		if fn.Locals != nil {
			if _, err := fmt.Fprintf(w, "locals of %s (lv_size %d, args_size %d):\n", fn.Name, fn.LVSize, fn.ArgsSize); err != nil {
				return err
			}
			localsDumper.Fdump(w, fn.Locals)
		}
	}
	_, err := fmt.Fprintln(w, "////////NODE DEBUG END////////")
	return err
}
