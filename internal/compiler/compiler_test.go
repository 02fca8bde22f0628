package compiler_test

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/scc/internal/asmsim"
	"github.com/tinyrange/scc/internal/compiler"
	"github.com/tinyrange/scc/internal/diag"
)

type program struct {
	name string
	src  string
	want int
}

var scenarios = []program{
	{"constant", "int main(){ return 42; }", 42},
	{"precedence", "int main(){ return 2*(3+4)-1; }", 13},
	{"locals", "int main(){ int a=3; int b=4; return a*b+2; }", 14},
	{"for loop", "int main(){ int a=0; for(int i=0; i<5; i=i+1;) { a = a+i; } return a; }", 10},
	{"if else", "int main(){ int a=7; if(a>=5){ return 1; } else { return 0; } }", 1},
	{"call", "int add(int x, int y){ return x+y; } int main(){ return add(20, 22); }", 42},
}

var programs = []program{
	{"nested calls", "int add(int x, int y){ return x+y; } int main(){ return add(add(1,2), add(3,4)); }", 10},
	{"call with odd stack depth", "int add(int x, int y){ return x+y; } int main(){ return 1 + add(2, 3); }", 6},
	{"recursion", "int fib(int n){ if (n < 2) { return n; } return fib(n-1) + fib(n-2); } int main(){ return fib(10); }", 55},
	{"else if chain", `
		int cls(int n){ if (n < 0) { return 1; } else if (n == 0) { return 2; } else { return 3; } }
		int main(){ return cls(0-5)*100 + cls(0)*10 + cls(7); }`, 123},
	{"else if without else", `
		int f(int n){ int r = 9; if (n == 1) { r = 1; } else if (n == 2) { r = 2; } return r; }
		int main(){ return f(1)*100 + f(2)*10 + f(3); }`, 129},
	{"truncating division", "int main(){ return (0-7)/2 + 10; }", 7},
	{"comparisons", "int main(){ return (3<5) + (5<3)*2 + (4==4)*4 + (4!=4)*8 + (5>=5)*16 + (6>5)*32 + (5<=4)*64; }", 53},
	{"shadowing", "int main(){ int x = 1; int y = 0; { int x = x + 10; y = x * 2; } return x + y; }", 23},
	{"six arguments", `
		int f(int a, int b, int c, int d, int e, int g){ return a*1+b*2+c*3+d*4+e*5+g*6; }
		int main(){ return f(1,2,3,4,5,6); }`, 91},
	{"nested loops", "int main(){ int s = 0; for(int i=0; i<4; i=i+1;) { for(int j=0; j<i; j=j+1;) { s = s + j; } } return s; }", 4},
	{"condition must equal one", "int main(){ if (2) { return 1; } return 0; }", 0},
	{"trailing expression statement", "int main(){ 5; }", 5},
	{"forward call", "int main(){ return twice(21); } int twice(int v){ return v*2; }", 42},
	{"exit status wraps", "int main(){ return 300; }", 44},
}

func compile(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	_, err := compiler.Compile([]byte(src), &out, compiler.Options{})
	require.NoError(t, err)
	return out.String()
}

func TestScenariosSimulated(t *testing.T) {
	for _, p := range append(scenarios, programs...) {
		t.Run(p.name, func(t *testing.T) {
			v, err := asmsim.Run(compile(t, p.src), "main")
			require.NoError(t, err)
			assert.Equal(t, p.want, asmsim.ExitCode(v))
		})
	}
}

func TestScenariosHost(t *testing.T) {
	cc := hostCC(t)
	for _, p := range append(scenarios, programs...) {
		t.Run(p.name, func(t *testing.T) {
			assert.Equal(t, p.want, runHost(t, cc, compile(t, p.src)))
		})
	}
}

// hostCC returns the host C compiler driver, skipping the test when the host
// cannot assemble and run x86-64 code.
func hostCC(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skipf("host is %s/%s, not linux/amd64", runtime.GOOS, runtime.GOARCH)
	}
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("cc not found in PATH")
	}
	return cc
}

func runHost(t *testing.T, cc, asm string) int {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "gen.s")
	bin := filepath.Join(dir, "prog")
	require.NoError(t, os.WriteFile(src, []byte(asm), 0o644))
	out, err := exec.Command(cc, "-o", bin, src).CombinedOutput()
	require.NoError(t, err, "%s", out)
	err = exec.Command(bin).Run()
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	require.True(t, errors.As(err, &ee), "running %s: %v", bin, err)
	return ee.ExitCode()
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		src  string
		kind diag.Kind
	}{
		{"int main(){ return 1 @ 2; }", diag.LexError},
		{"int main(){ return 1 }", diag.ParseError},
		{"int main(){ return x; }", diag.UndeclaredSymbol},
		{"int main(){ int x = 1; int x = 2; return x; }", diag.SymbolRedeclared},
		{"int main(){ return f(1,2,3,4,5,6,7); }", diag.ArityError},
	}
	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			var out bytes.Buffer
			_, err := compiler.Compile([]byte(c.src), &out, compiler.Options{})
			require.Error(t, err)
			kind, ok := diag.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, c.kind, kind)
			assert.Zero(t, out.Len(), "no assembly is written after a failed pass")
		})
	}
}

func TestTerminate(t *testing.T) {
	assert.Equal(t, []byte("ab\x00"), compiler.Terminate([]byte("ab")))
	in := []byte("ab\x00")
	assert.Equal(t, in, compiler.Terminate(in))
	assert.Equal(t, []byte{0}, compiler.Terminate(nil))
}

func TestDebugDump(t *testing.T) {
	var dbg, out bytes.Buffer
	res, err := compiler.Compile([]byte("int main(){ int a = 2; return a*3; }"), &out, compiler.Options{Debug: &dbg})
	require.NoError(t, err)
	require.Len(t, res.Functions, 1)

	text := dbg.String()
	for _, marker := range []string{
		"////////TOKEN DEBUG START////////",
		"////////TOKEN DEBUG END////////",
		"////////NODE DEBUG START////////",
		"////////NODE DEBUG END////////",
	} {
		assert.Contains(t, text, marker)
	}
	assert.Less(t, strings.Index(text, "TOKEN DEBUG END"), strings.Index(text, "NODE DEBUG START"))
	assert.Contains(t, text, "func main()")
	assert.Contains(t, text, "kind: DECL, name: a, type: int, scope: _1")
	assert.Contains(t, text, "kind: IDENT, name: a, scope: _1")
	assert.Contains(t, text, `"a_1"`)
	assert.Contains(t, text, "lv_size 16, args_size 0")
	assert.NotContains(t, out.String(), "DEBUG")
}

func TestFrontendKeepsTokensOnParseError(t *testing.T) {
	res, err := compiler.Frontend([]byte("int main(){ return 1 }"), compiler.Options{})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Tokens)
	assert.Empty(t, res.Functions)
}
