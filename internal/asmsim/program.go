// Package asmsim executes the subset of AT&T x86-64 assembly produced by the
// code generator. It exists so programs can be checked end to end on hosts
// without an x86-64 assembler and linker.
package asmsim

import (
	"bufio"
	"fmt"
	"strings"
)

// Instr is one decoded instruction line.
type Instr struct {
	Op   string
	Args []string
	Line int
}

func (in Instr) String() string {
	return in.Op + " " + strings.Join(in.Args, ", ")
}

// Program is an assembled translation unit.
type Program struct {
	Instrs  []Instr
	Labels  map[string]int
	Globals []string
}

// suffixed maps size-suffixed mnemonics to their base form.
var suffixed = map[string]string{
	"pushq": "push", "popq": "pop", "movq": "mov", "leaq": "lea",
	"addq": "add", "subq": "sub", "imulq": "imul", "idivq": "idiv",
	"cmpq": "cmp", "andq": "and", "movzbq": "movzb", "movzx": "movzb",
	"movabsq": "movabs", "callq": "call", "retq": "ret",
}

// Parse decodes assembly text.
func Parse(src string) (*Program, error) {
	p := &Program{Labels: map[string]int{}}
	sc := bufio.NewScanner(strings.NewReader(src))
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasSuffix(text, ":") {
			name := strings.TrimSuffix(text, ":")
			if _, dup := p.Labels[name]; dup {
				return nil, fmt.Errorf("line %d: label %s defined twice", line, name)
			}
			p.Labels[name] = len(p.Instrs)
			continue
		}
		if strings.HasPrefix(text, ".") {
			fields := strings.Fields(text)
			if (fields[0] == ".global" || fields[0] == ".globl") && len(fields) > 1 {
				p.Globals = append(p.Globals, fields[1])
			}
			continue
		}
		op, rest := text, ""
		if i := strings.IndexAny(text, " \t"); i >= 0 {
			op, rest = text[:i], strings.TrimSpace(text[i:])
		}
		if base, ok := suffixed[op]; ok {
			op = base
		}
		in := Instr{Op: op, Line: line}
		if rest != "" {
			for _, a := range splitArgs(rest) {
				in.Args = append(in.Args, strings.TrimSpace(a))
			}
		}
		p.Instrs = append(p.Instrs, in)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// splitArgs splits on commas outside parentheses.
func splitArgs(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
