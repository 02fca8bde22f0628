// Package compiler wires the passes together: lexer, parser, resolver and
// x86-64 code generator. Each pass runs to completion before the next one
// starts and the first error aborts the compile.
package compiler

import (
	"io"

	"github.com/tliron/commonlog"

	"github.com/tinyrange/scc/internal/ast"
	"github.com/tinyrange/scc/internal/codegen/x86_64"
	"github.com/tinyrange/scc/internal/lexer"
	"github.com/tinyrange/scc/internal/parser"
	"github.com/tinyrange/scc/internal/resolve"
)

var log = commonlog.GetLogger("scc.compiler")

type Options struct {
	// Debug, when set, receives token, node and local-table dumps.
	Debug io.Writer
}

// Result is what the front end produced for one translation unit.
type Result struct {
	Tokens    []lexer.Token
	Functions []*ast.Function
}

// Terminate returns src with the NUL sentinel the lexer expects.
func Terminate(src []byte) []byte {
	if len(src) > 0 && src[len(src)-1] == 0 {
		return src
	}
	out := make([]byte, len(src)+1)
	copy(out, src)
	return out
}

// Compile translates src and writes the assembly to w.
func Compile(src []byte, w io.Writer, opts Options) (*Result, error) {
	res, err := Frontend(src, opts)
	if err != nil {
		return res, err
	}
	if err := x86_64.Emit(w, res.Functions); err != nil {
		return res, err
	}
	log.Debugf("emitted %d functions", len(res.Functions))
	return res, nil
}

// Frontend runs every pass except code generation.
func Frontend(src []byte, opts Options) (*Result, error) {
	src = Terminate(src)
	res := &Result{}

	toks, err := lexer.Lex(src)
	if err != nil {
		return res, err
	}
	res.Tokens = toks
	log.Debugf("lexed %d tokens", len(toks))
	if opts.Debug != nil {
		if err := DumpTokens(opts.Debug, toks); err != nil {
			return res, err
		}
	}

	fns, err := parser.Parse(toks)
	if err != nil {
		return res, err
	}
	res.Functions = fns
	log.Debugf("parsed %d functions", len(fns))

	if err := resolve.Resolve(fns); err != nil {
		return res, err
	}
	for _, fn := range fns {
		log.Debugf("%s: %d locals, lv_size %d, args_size %d", fn.Name, len(fn.Locals), fn.LVSize, fn.ArgsSize)
	}
	if opts.Debug != nil {
		if err := DumpFunctions(opts.Debug, fns); err != nil {
			return res, err
		}
	}
	return res, nil
}
