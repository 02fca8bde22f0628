package asmsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse(`.text
.global main
main:   # entry
  pushq %rbp
  movq %rsp, %rbp
  mov 8(%rsp), %rsp
  movzx %al, %rax
  ret
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, p.Globals)
	assert.Equal(t, 0, p.Labels["main"])
	require.Len(t, p.Instrs, 5)
	assert.Equal(t, Instr{Op: "push", Args: []string{"%rbp"}, Line: 4}, p.Instrs[0])
	assert.Equal(t, []string{"8(%rsp)", "%rsp"}, p.Instrs[2].Args)
	assert.Equal(t, "movzb", p.Instrs[3].Op)
	assert.Nil(t, p.Instrs[4].Args)
}

func TestParseDuplicateLabel(t *testing.T) {
	_, err := Parse("a:\n  ret\na:\n  ret\n")
	assert.Error(t, err)
}

func TestRunArithmetic(t *testing.T) {
	src := `
f:
  push $7
  push $-3
  pop %rdi
  pop %rax
  cqo
  idiv %rdi
  push %rax
  pop %rax
  ret
`
	v, err := Run(src, "f")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v, "idiv truncates toward zero")
}

func TestRunArguments(t *testing.T) {
	src := `
sub3:
  mov %rdi, %rax
  sub %rsi, %rax
  sub %rdx, %rax
  ret
`
	v, err := Run(src, "sub3", 10, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestSetcc(t *testing.T) {
	cases := []struct {
		op   string
		a, b int64
		want int64
	}{
		{"sete", 3, 3, 1},
		{"setne", 3, 3, 0},
		{"setl", 2, 3, 1},
		{"setl", 3, 2, 0},
		{"setle", 3, 3, 1},
		{"setg", 4, 3, 1},
		{"setge", 2, 3, 0},
	}
	for _, c := range cases {
		t.Run(c.op, func(t *testing.T) {
			src := "f:\n  mov $-1, %rax\n  cmp %rsi, %rdi\n  " + c.op + " %al\n  movzb %al, %rax\n  ret\n"
			v, err := Run(src, "f", c.a, c.b)
			require.NoError(t, err)
			assert.Equal(t, c.want, v)
		})
	}
}

func TestLoopAndJumps(t *testing.T) {
	src := `
sum:
  mov $0, %rax
  mov $0, %rcx
.Lloop:
  cmp %rdi, %rcx
  jge .Ldone
  add %rcx, %rax
  add $1, %rcx
  jmp .Lloop
.Ldone:
  ret
`
	v, err := Run(src, "sum", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)
}

func TestCallAlignment(t *testing.T) {
	callee := "g:\n  mov $9, %rax\n  ret\n"

	aligned := "f:\n  push %rbp\n  call g\n  pop %rbp\n  ret\n" + callee
	v, err := Run(aligned, "f")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)

	misaligned := "f:\n  call g\n  ret\n" + callee
	_, err = Run(misaligned, "f")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misaligned")

	p, err := Parse(misaligned)
	require.NoError(t, err)
	m := NewMachine(p)
	m.CheckAlign = false
	v, err = m.Call("f")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestRealignSequence(t *testing.T) {
	// The code generator realigns %rsp around calls with this sequence;
	// both parities of the incoming stack must round trip.
	for _, pad := range []struct{ push, pop string }{
		{"", ""},
		{"  push $0\n", "  pop %rcx\n"},
	} {
		src := "f:\n  push %rbp\n" + pad.push +
			"  mov %rsp, %rbx\n" +
			"  push %rsp\n  pushq (%rsp)\n  and $-16, %rsp\n  call g\n  mov 8(%rsp), %rsp\n" +
			"  cmp %rbx, %rsp\n  sete %al\n  movzb %al, %rax\n  mov %rbx, %rsp\n" + pad.pop + "  pop %rbp\n  ret\n" +
			"g:\n  ret\n"
		v, err := Run(src, "f")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v, "pad %q", pad.push)
	}
}

func TestErrors(t *testing.T) {
	t.Run("divide by zero", func(t *testing.T) {
		_, err := Run("f:\n  mov $1, %rax\n  mov $0, %rdi\n  cqo\n  idiv %rdi\n  ret\n", "f")
		assert.ErrorIs(t, err, ErrDivideError)
	})
	t.Run("step limit", func(t *testing.T) {
		p, err := Parse("f:\n  jmp f\n")
		require.NoError(t, err)
		m := NewMachine(p)
		m.MaxSteps = 100
		_, err = m.Call("f")
		assert.ErrorIs(t, err, ErrStepLimit)
		assert.Equal(t, 100, m.Steps())
	})
	t.Run("missing entry", func(t *testing.T) {
		_, err := Run("f:\n  ret\n", "main")
		assert.Error(t, err)
	})
	t.Run("undefined label", func(t *testing.T) {
		_, err := Run("f:\n  jmp .Lnowhere\n", "f")
		assert.Error(t, err)
	})
	t.Run("unsupported instruction", func(t *testing.T) {
		_, err := Run("f:\n  xchg %rax, %rdi\n  ret\n", "f")
		assert.Error(t, err)
	})
	t.Run("too many arguments", func(t *testing.T) {
		_, err := Run("f:\n  ret\n", "f", 1, 2, 3, 4, 5, 6, 7)
		assert.Error(t, err)
	})
	t.Run("unaligned load", func(t *testing.T) {
		_, err := Run("f:\n  mov 4(%rsp), %rax\n  ret\n", "f")
		assert.Error(t, err)
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 42, ExitCode(42))
	assert.Equal(t, 0, ExitCode(256))
	assert.Equal(t, 255, ExitCode(-1))
}
