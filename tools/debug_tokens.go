package main

import (
	"fmt"
	"os"

	"github.com/tinyrange/scc/internal/compiler"
	lx "github.com/tinyrange/scc/internal/lexer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: debug_tokens <file>")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	toks, err := lx.Lex(compiler.Terminate(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := compiler.DumpTokens(os.Stdout, toks); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
