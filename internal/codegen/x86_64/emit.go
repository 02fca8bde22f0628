package x86_64

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/tinyrange/scc/internal/ast"
	"github.com/tinyrange/scc/internal/diag"
	"github.com/tinyrange/scc/internal/resolve"
)

var argRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// frameState tracks where the emitter is relative to the current function's
// frame. Transitions are strictly Outside -> InPrologue -> InBody ->
// InEpilogue -> Outside.
type frameState int

const (
	Outside frameState = iota
	InPrologue
	InBody
	InEpilogue
)

func (s frameState) String() string {
	return [...]string{"Outside", "InPrologue", "InBody", "InEpilogue"}[s]
}

type emitter struct {
	w     io.Writer
	err   error
	label int
	fn    *ast.Function
	state frameState
}

// Emit writes AT&T syntax x86_64 assembly for System V AMD64 to w. Every
// expression is lowered stack-machine style: its value ends up pushed on the
// runtime stack.
func Emit(w io.Writer, fns []*ast.Function) error {
	e := &emitter{w: w}
	e.printf(".text")
	for _, f := range fns {
		if err := e.emitFunc(f); err != nil {
			return err
		}
	}
	return e.err
}

// EmitModule returns the assembly for fns as a string.
func EmitModule(fns []*ast.Function) (string, error) {
	var b strings.Builder
	if err := Emit(&b, fns); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *emitter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	if _, err := fmt.Fprintf(e.w, format+"\n", args...); err != nil {
		e.err = diag.IO(err, "writing assembly")
	}
}

func (e *emitter) ins(format string, args ...interface{}) {
	e.printf("  "+format, args...)
}

func (e *emitter) transition(to frameState) error {
	if to != (e.state+1)%4 {
		return diag.Errorf(diag.CodegenError, e.fn.Pos, e.fn.Name, "frame state %s cannot move to %s", e.state, to)
	}
	e.state = to
	return nil
}

func (e *emitter) nextLabel() int {
	e.label++
	return e.label
}

func (e *emitter) fail(n *ast.Node, format string, args ...interface{}) error {
	return diag.Errorf(diag.CodegenError, n.Pos, n.Name, "%s node: %s", n.Kind, fmt.Sprintf(format, args...))
}

func align(n, a int) int { return (n + (a - 1)) &^ (a - 1) }

// FrameSize is the stack space reserved below %rbp for fn.
func FrameSize(fn *ast.Function) int { return align(fn.LVSize+fn.ArgsSize, 16) }

func (e *emitter) emitFunc(f *ast.Function) error {
	e.fn = f
	if err := e.transition(InPrologue); err != nil {
		return err
	}
	if len(f.Params) > len(argRegs) {
		return diag.Errorf(diag.ArityError, f.Pos, f.Name, "%s has %d parameters, at most %d are supported", f.Name, len(f.Params), len(argRegs))
	}
	if f.Locals == nil {
		return diag.Errorf(diag.CodegenError, f.Pos, f.Name, "function %s was not resolved", f.Name)
	}
	e.printf(".global %s", f.Name)
	e.printf("%s:", f.Name)
	e.ins("pushq %%rbp")
	e.ins("movq %%rsp, %%rbp")
	e.ins("sub $%d, %%rsp", FrameSize(f))
	for i, p := range f.Params {
		l, ok := f.Locals[ast.Identity(p.Name, resolve.BodyScope)]
		if !ok {
			return diag.Errorf(diag.UndeclaredSymbol, p.Pos, p.Name, "parameter %s has no slot", p.Name)
		}
		e.ins("mov %s, %d(%%rbp)", argRegs[i], -l.Offset)
	}

	if err := e.transition(InBody); err != nil {
		return err
	}
	if f.Root == nil {
		return diag.Errorf(diag.CodegenError, f.Pos, f.Name, "function %s has no body", f.Name)
	}
	if err := e.gen(f.Root); err != nil {
		return err
	}

	if err := e.transition(InEpilogue); err != nil {
		return err
	}
	e.epilogue()
	if err := e.transition(Outside); err != nil {
		return err
	}
	return e.err
}

// epilogue returns the value on top of the stack.
func (e *emitter) epilogue() {
	e.ins("pop %%rax")
	e.ins("mov %%rbp, %%rsp")
	e.ins("pop %%rbp")
	e.ins("ret")
}

func (e *emitter) slot(n *ast.Node, symbol, scope string) (int, error) {
	l, ok := e.fn.Locals[ast.Identity(symbol, scope)]
	if !ok {
		return 0, diag.Errorf(diag.UndeclaredSymbol, n.Pos, symbol, "%s (scope %q) has no stack slot in %s", symbol, scope, e.fn.Name)
	}
	return l.Offset, nil
}

// store pops a value and an address and writes the value through it.
func (e *emitter) store() {
	e.ins("pop %%rax")
	e.ins("pop %%rdi")
	e.ins("mov %%rax, (%%rdi)")
}

var setcc = map[ast.Kind]string{
	ast.Eq:  "sete",
	ast.Neq: "setne",
	ast.Lt:  "setl",
	ast.Le:  "setle",
	// Gt and Ge compare with swapped operands.
	ast.Gt: "setl",
	ast.Ge: "setle",
}

func (e *emitter) gen(n *ast.Node) error {
	if n == nil {
		return diag.Errorf(diag.CodegenError, diag.NoPos, "", "missing subexpression in %s", e.fn.Name)
	}
	switch n.Kind {
	case ast.Num:
		if n.Val < math.MinInt32 || n.Val > math.MaxInt32 {
			e.ins("movabs $%d, %%rax", n.Val)
			e.ins("push %%rax")
		} else {
			e.ins("push $%d", n.Val)
		}
	case ast.Ident:
		off, err := e.slot(n, n.Name, n.Scope)
		if err != nil {
			return err
		}
		e.ins("mov %d(%%rbp), %%rax", -off)
		e.ins("push %%rax")
	case ast.Expr, ast.Stmt, ast.Stmt2, ast.IfCond, ast.Else:
		if n.L == nil {
			return e.fail(n, "missing child")
		}
		return e.gen(n.L)
	case ast.Return:
		if e.state != InBody {
			return e.fail(n, "return outside function body")
		}
		if n.L == nil {
			return e.fail(n, "missing value")
		}
		if err := e.gen(n.L); err != nil {
			return err
		}
		e.epilogue()
	case ast.Assign:
		if n.L == nil || n.L.Kind != ast.Ident {
			return e.fail(n, "left side is not an identifier")
		}
		off, err := e.slot(n.L, n.L.Name, n.L.Scope)
		if err != nil {
			return err
		}
		e.ins("lea %d(%%rbp), %%rax", -off)
		e.ins("push %%rax")
		if err := e.gen(n.R); err != nil {
			return err
		}
		e.store()
	case ast.Decl:
		off, err := e.slot(n, n.Name, n.Scope)
		if err != nil {
			return err
		}
		e.ins("lea %d(%%rbp), %%rax", -off)
		e.ins("push %%rax")
		if err := e.gen(n.R); err != nil {
			return err
		}
		e.store()
	case ast.Add, ast.Sub, ast.Mul, ast.Div:
		if err := e.operands(n); err != nil {
			return err
		}
		switch n.Kind {
		case ast.Add:
			e.ins("add %%rdi, %%rax")
		case ast.Sub:
			e.ins("sub %%rdi, %%rax")
		case ast.Mul:
			e.ins("imul %%rdi, %%rax")
		case ast.Div:
			e.ins("cqo")
			e.ins("idiv %%rdi")
		}
		e.ins("push %%rax")
	case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		if err := e.operands(n); err != nil {
			return err
		}
		if n.Kind == ast.Gt || n.Kind == ast.Ge {
			e.ins("cmp %%rax, %%rdi")
		} else {
			e.ins("cmp %%rdi, %%rax")
		}
		e.ins("%s %%al", setcc[n.Kind])
		e.ins("movzb %%al, %%rax")
		e.ins("push %%rax")
	case ast.Block, ast.FnRoot:
		for _, s := range n.Stmts {
			if err := e.gen(s); err != nil {
				return err
			}
		}
	case ast.IfStmt:
		return e.genIfStmt(n)
	case ast.If, ast.Elsif:
		return e.genBranch(n, -1)
	case ast.For:
		return e.genFor(n)
	case ast.FnCall:
		return e.genCall(n)
	default:
		return e.fail(n, "cannot lower")
	}
	return e.err
}

// operands evaluates L then R and leaves L in %rax and R in %rdi.
func (e *emitter) operands(n *ast.Node) error {
	if n.L == nil || n.R == nil {
		return e.fail(n, "missing operand")
	}
	if err := e.gen(n.L); err != nil {
		return err
	}
	if err := e.gen(n.R); err != nil {
		return err
	}
	e.ins("pop %%rdi")
	e.ins("pop %%rax")
	return nil
}

// truthTest pops a condition and jumps to target unless it equals 1.
func (e *emitter) truthTest(target string) {
	e.ins("pop %%rax")
	e.ins("mov $1, %%rdi")
	e.ins("cmp %%rdi, %%rax")
	e.ins("jne %s", target)
}

func (e *emitter) genIfStmt(n *ast.Node) error {
	if n.IfNode == nil {
		return e.fail(n, "missing if branch")
	}
	end := -1
	if n.ElsifNode != nil || n.ElseNode != nil {
		end = e.nextLabel()
	}
	if err := e.genBranch(n.IfNode, end); err != nil {
		return err
	}
	if n.ElsifNode != nil {
		// The elsif branch can only be followed by else.
		elsifEnd := end
		if n.ElseNode == nil {
			elsifEnd = -1
		}
		if err := e.genBranch(n.ElsifNode, elsifEnd); err != nil {
			return err
		}
	}
	if n.ElseNode != nil {
		if err := e.gen(n.ElseNode); err != nil {
			return err
		}
	}
	if end >= 0 {
		e.printf(".L_IF_END%d:", end)
	}
	return e.err
}

// genBranch lowers an If or Elsif. When end >= 0 the taken branch jumps to
// .L_IF_END<end> so later branches of the chain are skipped.
func (e *emitter) genBranch(n *ast.Node, end int) error {
	if n.Cond == nil || n.Body == nil {
		return e.fail(n, "missing condition or body")
	}
	l := e.nextLabel()
	if err := e.gen(n.Cond); err != nil {
		return err
	}
	e.truthTest(fmt.Sprintf(".L%d", l))
	if err := e.gen(n.Body); err != nil {
		return err
	}
	if end >= 0 {
		e.ins("jmp .L_IF_END%d", end)
	}
	e.printf(".L%d:", l)
	return e.err
}

func (e *emitter) genFor(n *ast.Node) error {
	if n.Init == nil || n.Cond == nil || n.Step == nil || n.Body == nil {
		return e.fail(n, "incomplete for statement")
	}
	l := e.nextLabel()
	if err := e.gen(n.Init); err != nil {
		return err
	}
	e.printf(".L_FOR_START%d:", l)
	if err := e.gen(n.Cond); err != nil {
		return err
	}
	e.truthTest(fmt.Sprintf(".L_FOR_END%d", l))
	if err := e.gen(n.Body); err != nil {
		return err
	}
	if err := e.gen(n.Step); err != nil {
		return err
	}
	e.ins("jmp .L_FOR_START%d", l)
	e.printf(".L_FOR_END%d:", l)
	return e.err
}

func (e *emitter) genCall(n *ast.Node) error {
	if len(n.Args) > len(argRegs) {
		return diag.Errorf(diag.ArityError, n.Pos, n.Name, "call to %s with %d arguments, at most %d are supported", n.Name, len(n.Args), len(argRegs))
	}
	// Evaluate every argument before loading any register so nested calls
	// cannot clobber arguments already in place.
	for _, a := range n.Args {
		if err := e.gen(a); err != nil {
			return err
		}
	}
	for i := len(n.Args) - 1; i >= 0; i-- {
		e.ins("pop %s", argRegs[i])
	}
	// Realign %rsp to 16 bytes for the call and restore it afterwards; the
	// two saved copies make 8(%rsp) the original %rsp either way.
	e.ins("push %%rsp")
	e.ins("pushq (%%rsp)")
	e.ins("and $-16, %%rsp")
	e.ins("call %s", n.Name)
	e.ins("mov 8(%%rsp), %%rsp")
	e.ins("push %%rax")
	return e.err
}
