package asmsim

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// StackTop is the initial %rsp; it is 16-byte aligned.
	StackTop int64 = 0x7fff0000
	// codeBase offsets return addresses so they never look like stack data.
	codeBase int64 = 0x400000
	haltAddr int64 = -1

	DefaultMaxSteps = 10_000_000
)

var (
	ErrStepLimit   = errors.New("asmsim: step limit exceeded")
	ErrDivideError = errors.New("asmsim: divide error")
)

var regNames = []string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

var argRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// Machine is a single-threaded interpreter over a Program.
type Machine struct {
	prog  *Program
	regs  map[string]int64
	mem   map[int64]int64
	cmpA  int64 // destination operand of the last cmp
	cmpB  int64 // source operand of the last cmp
	pc    int
	steps int

	// MaxSteps bounds execution; zero means DefaultMaxSteps.
	MaxSteps int
	// CheckAlign makes every call fail unless %rsp is 16-byte aligned.
	CheckAlign bool
}

func NewMachine(p *Program) *Machine {
	return &Machine{prog: p, regs: map[string]int64{}, mem: map[int64]int64{}, CheckAlign: true}
}

// Run parses src and calls entry with args, returning the %rax it leaves.
func Run(src, entry string, args ...int64) (int64, error) {
	p, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return NewMachine(p).Call(entry, args...)
}

// ExitCode truncates a returned value the way a process exit status does.
func ExitCode(v int64) int { return int(uint8(v)) }

// Steps is the number of instructions executed by the last Call.
func (m *Machine) Steps() int { return m.steps }

// Call runs entry as if called from a System V caller with args in the
// integer argument registers.
func (m *Machine) Call(entry string, args ...int64) (int64, error) {
	if len(args) > len(argRegs) {
		return 0, fmt.Errorf("asmsim: %d arguments, at most %d supported", len(args), len(argRegs))
	}
	start, ok := m.prog.Labels[entry]
	if !ok {
		return 0, fmt.Errorf("asmsim: no symbol %s", entry)
	}
	for _, r := range regNames {
		m.regs[r] = 0
	}
	for i, a := range args {
		m.regs[argRegs[i]] = a
	}
	m.regs["rsp"] = StackTop
	m.push(haltAddr)
	m.pc = start
	m.steps = 0
	limit := m.MaxSteps
	if limit == 0 {
		limit = DefaultMaxSteps
	}
	for {
		if m.steps >= limit {
			return 0, ErrStepLimit
		}
		m.steps++
		if m.pc < 0 || m.pc >= len(m.prog.Instrs) {
			return 0, fmt.Errorf("asmsim: pc %d out of program", m.pc)
		}
		in := m.prog.Instrs[m.pc]
		halted, err := m.step(in)
		if err != nil {
			return 0, fmt.Errorf("line %d: %s: %w", in.Line, in, err)
		}
		if halted {
			return m.regs["rax"], nil
		}
	}
}

func (m *Machine) push(v int64) {
	m.regs["rsp"] -= 8
	m.mem[m.regs["rsp"]] = v
}

func (m *Machine) pop() int64 {
	v := m.mem[m.regs["rsp"]]
	m.regs["rsp"] += 8
	return v
}

func (m *Machine) want(in Instr, n int) error {
	if len(in.Args) != n {
		return fmt.Errorf("want %d operands, got %d", n, len(in.Args))
	}
	return nil
}

func (m *Machine) step(in Instr) (bool, error) {
	next := m.pc + 1
	switch in.Op {
	case "push":
		if err := m.want(in, 1); err != nil {
			return false, err
		}
		v, err := m.read(in.Args[0])
		if err != nil {
			return false, err
		}
		m.push(v)
	case "pop":
		if err := m.want(in, 1); err != nil {
			return false, err
		}
		if err := m.write(in.Args[0], m.pop()); err != nil {
			return false, err
		}
	case "mov", "movabs":
		if err := m.want(in, 2); err != nil {
			return false, err
		}
		v, err := m.read(in.Args[0])
		if err != nil {
			return false, err
		}
		if err := m.write(in.Args[1], v); err != nil {
			return false, err
		}
	case "movzb":
		if err := m.want(in, 2); err != nil {
			return false, err
		}
		v, err := m.read(in.Args[0])
		if err != nil {
			return false, err
		}
		if err := m.write(in.Args[1], v&0xff); err != nil {
			return false, err
		}
	case "lea":
		if err := m.want(in, 2); err != nil {
			return false, err
		}
		addr, err := m.address(in.Args[0])
		if err != nil {
			return false, err
		}
		if err := m.write(in.Args[1], addr); err != nil {
			return false, err
		}
	case "add", "sub", "imul", "and":
		if err := m.want(in, 2); err != nil {
			return false, err
		}
		src, err := m.read(in.Args[0])
		if err != nil {
			return false, err
		}
		dst, err := m.read(in.Args[1])
		if err != nil {
			return false, err
		}
		var v int64
		switch in.Op {
		case "add":
			v = dst + src
		case "sub":
			v = dst - src
		case "imul":
			v = dst * src
		case "and":
			v = dst & src
		}
		if err := m.write(in.Args[1], v); err != nil {
			return false, err
		}
	case "cqo":
		if m.regs["rax"] < 0 {
			m.regs["rdx"] = -1
		} else {
			m.regs["rdx"] = 0
		}
	case "idiv":
		if err := m.want(in, 1); err != nil {
			return false, err
		}
		d, err := m.read(in.Args[0])
		if err != nil {
			return false, err
		}
		a := m.regs["rax"]
		if d == 0 || (a == math.MinInt64 && d == -1) {
			return false, ErrDivideError
		}
		m.regs["rax"], m.regs["rdx"] = a/d, a%d
	case "cmp":
		if err := m.want(in, 2); err != nil {
			return false, err
		}
		src, err := m.read(in.Args[0])
		if err != nil {
			return false, err
		}
		dst, err := m.read(in.Args[1])
		if err != nil {
			return false, err
		}
		m.cmpA, m.cmpB = dst, src
	case "sete", "setne", "setl", "setle", "setg", "setge":
		if err := m.want(in, 1); err != nil {
			return false, err
		}
		var b int64
		if m.cond(strings.TrimPrefix(in.Op, "set")) {
			b = 1
		}
		if err := m.write(in.Args[0], b); err != nil {
			return false, err
		}
	case "jmp", "je", "jne", "jl", "jle", "jg", "jge":
		if err := m.want(in, 1); err != nil {
			return false, err
		}
		if in.Op == "jmp" || m.cond(strings.TrimPrefix(in.Op, "j")) {
			t, ok := m.prog.Labels[in.Args[0]]
			if !ok {
				return false, fmt.Errorf("undefined label %s", in.Args[0])
			}
			next = t
		}
	case "call":
		if err := m.want(in, 1); err != nil {
			return false, err
		}
		t, ok := m.prog.Labels[in.Args[0]]
		if !ok {
			return false, fmt.Errorf("undefined function %s", in.Args[0])
		}
		if m.CheckAlign && m.regs["rsp"]%16 != 0 {
			return false, fmt.Errorf("call with misaligned %%rsp %#x", m.regs["rsp"])
		}
		m.push(codeBase + int64(next))
		next = t
	case "ret":
		addr := m.pop()
		if addr == haltAddr {
			return true, nil
		}
		next = int(addr - codeBase)
	default:
		return false, fmt.Errorf("unsupported instruction %s", in.Op)
	}
	m.pc = next
	return false, nil
}

func (m *Machine) cond(cc string) bool {
	a, b := m.cmpA, m.cmpB
	switch cc {
	case "e":
		return a == b
	case "ne":
		return a != b
	case "l":
		return a < b
	case "le":
		return a <= b
	case "g":
		return a > b
	case "ge":
		return a >= b
	}
	return false
}

func (m *Machine) reg(name string) (string, bool) {
	name = strings.TrimPrefix(name, "%")
	if name == "al" {
		return name, true
	}
	_, ok := m.regs[name]
	return name, ok
}

func isMem(op string) bool { return strings.HasSuffix(op, ")") }

// address computes the effective address of off(%reg) or (%reg).
func (m *Machine) address(op string) (int64, error) {
	i := strings.IndexByte(op, '(')
	if i < 0 || !strings.HasSuffix(op, ")") {
		return 0, fmt.Errorf("bad memory operand %q", op)
	}
	r, ok := m.reg(op[i+1 : len(op)-1])
	if !ok || r == "al" {
		return 0, fmt.Errorf("bad base register in %q", op)
	}
	var off int64
	if i > 0 {
		v, err := strconv.ParseInt(op[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad displacement in %q", op)
		}
		off = v
	}
	return m.regs[r] + off, nil
}

func (m *Machine) load(addr int64) (int64, error) {
	if addr%8 != 0 {
		return 0, fmt.Errorf("unaligned load at %#x", addr)
	}
	return m.mem[addr], nil
}

func (m *Machine) read(op string) (int64, error) {
	switch {
	case strings.HasPrefix(op, "$"):
		v, err := strconv.ParseInt(op[1:], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad immediate %q", op)
		}
		return v, nil
	case strings.HasPrefix(op, "%"):
		r, ok := m.reg(op)
		if !ok {
			return 0, fmt.Errorf("unknown register %s", op)
		}
		if r == "al" {
			return m.regs["rax"] & 0xff, nil
		}
		return m.regs[r], nil
	case isMem(op):
		addr, err := m.address(op)
		if err != nil {
			return 0, err
		}
		return m.load(addr)
	}
	return 0, fmt.Errorf("bad operand %q", op)
}

func (m *Machine) write(op string, v int64) error {
	switch {
	case strings.HasPrefix(op, "%"):
		r, ok := m.reg(op)
		if !ok {
			return fmt.Errorf("unknown register %s", op)
		}
		if r == "al" {
			m.regs["rax"] = m.regs["rax"]&^0xff | v&0xff
			return nil
		}
		m.regs[r] = v
		return nil
	case isMem(op):
		addr, err := m.address(op)
		if err != nil {
			return err
		}
		if addr%8 != 0 {
			return fmt.Errorf("unaligned store at %#x", addr)
		}
		m.mem[addr] = v
		return nil
	}
	return fmt.Errorf("cannot write to %q", op)
}
