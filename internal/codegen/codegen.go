// Package codegen lowers stack-machine IR into i386 assembly text: it
// places each virtual stack value in a register or spill slot, selects
// instructions per opcode, wraps the body in a frame-managing prologue and
// epilogue, and renders the final module.
package codegen

import (
	"fmt"
	"strings"

	"stackc/internal/ir"
	"stackc/internal/x86"
)

const (
	entryLabel = "main"
	readLabel  = "rt_read"
	writeLabel = "rt_write"
)

// cmpSuffixes maps comparison operators to setCC suffixes. Operands are
// compared as second-minus-first, so the suffix matches the source-level
// operator directly.
var cmpSuffixes = map[string]string{
	"==": "e",
	"!=": "ne",
	"<=": "le",
	"<":  "l",
	">=": "ge",
	">":  "g",
}

// Compile translates a whole stack-machine program into one assembly
// module. Any error aborts immediately; there is no partial output.
func Compile(prog []ir.Instr) (string, error) {
	env := Env{}
	var body []x86.Instr
	for _, instr := range prog {
		var err error
		env, body, err = step(env, body, instr)
		if err != nil {
			return "", fmt.Errorf("compiling %s: %w", instr, err)
		}
	}
	return emitModule(env, wrapFunction(env, body)), nil
}

// step lowers one IR instruction, threading the allocation environment.
func step(env Env, code []x86.Instr, instr ir.Instr) (Env, []x86.Instr, error) {
	switch i := instr.(type) {
	case ir.Const:
		d, env := env.Allocate()
		return env, append(code, mov(x86.Immediate{Value: i.Value}, d)...), nil

	case ir.Read:
		d, env := env.Allocate()
		code = append(code, x86.Call{Label: readLabel})
		return env, append(code, mov(x86.Scratch0, d)...), nil

	case ir.Write:
		s, env, err := env.Pop()
		if err != nil {
			return env, nil, err
		}
		// The trailing pop only rebalances the hardware stack pointer;
		// the popped value is discarded.
		code = append(code,
			x86.Push{Op: s},
			x86.Call{Label: writeLabel},
			x86.Pop{Op: x86.Scratch0},
		)
		return env, code, nil

	case ir.Load:
		env = env.AddGlobal(i.Name)
		d, env := env.Allocate()
		return env, append(code, mov(x86.Memory{Name: GlobalLoc(i.Name)}, d)...), nil

	case ir.Store:
		env = env.AddGlobal(i.Name)
		s, env, err := env.Pop()
		if err != nil {
			return env, nil, err
		}
		return env, append(code, mov(s, x86.Memory{Name: GlobalLoc(i.Name)})...), nil

	case ir.Binop:
		return stepBinop(env, code, i.Op)
	}
	panic(fmt.Sprintf("codegen: unhandled IR instruction %T", instr))
}

// stepBinop lowers a binary operator. Every case computes into the scratch
// register, writes the result back into second's storage (dead after the
// pops), and finally moves it into the freshly allocated destination.
func stepBinop(env Env, code []x86.Instr, op string) (Env, []x86.Instr, error) {
	first, second, env, err := env.Pop2()
	if err != nil {
		return env, nil, err
	}
	d, env := env.Allocate()

	switch op {
	case "+", "-", "*":
		code = append(code, mov(second, x86.Scratch0)...)
		code = append(code,
			x86.Binop{Op: op, Src: first, Dst: x86.Scratch0},
			x86.Mov{Src: x86.Scratch0, Dst: second},
		)

	case "/", "%":
		code = append(code, mov(second, x86.Scratch0)...)
		code = append(code, x86.Cltd{}, x86.IDiv{Divisor: first})
		result := x86.Scratch0 // quotient
		if op == "%" {
			result = x86.Scratch1 // remainder
		}
		code = append(code, x86.Mov{Src: result, Dst: second})

	case "&&", "!!":
		code = append(code, normalizeBool(first)...)
		code = append(code, normalizeBool(second)...)
		// Scratch0 still holds second's normalized value, so combining
		// there keeps memory-to-memory forms out even when both
		// operands live in spill slots.
		code = append(code,
			x86.Binop{Op: op, Src: first, Dst: x86.Scratch0},
			x86.Mov{Src: x86.Scratch0, Dst: second},
		)

	default:
		suffix, ok := cmpSuffixes[op]
		if !ok {
			return env, nil, fmt.Errorf("unsupported binary operator %q", op)
		}
		code = append(code,
			x86.Mov{Src: second, Dst: x86.Scratch1},
			x86.Binop{Op: "^", Src: x86.Scratch0, Dst: x86.Scratch0},
			x86.Binop{Op: "cmp", Src: first, Dst: x86.Scratch1},
			x86.Set{Suffix: suffix, Reg: x86.Scratch0Byte},
			x86.Mov{Src: x86.Scratch0, Dst: second},
		)
	}
	return env, append(code, mov(second, d)...), nil
}

// normalizeBool rewrites an operand's storage to a canonical 0/1 value via
// the scratch register.
func normalizeBool(p x86.Operand) []x86.Instr {
	return []x86.Instr{
		x86.Binop{Op: "^", Src: x86.Scratch0, Dst: x86.Scratch0},
		x86.Binop{Op: "cmp", Src: x86.Immediate{Value: 0}, Dst: p},
		x86.Set{Suffix: "ne", Reg: x86.Scratch0Byte},
		x86.Mov{Src: x86.Scratch0, Dst: p},
	}
}

// mov emits a move from src to dst. The target has no memory-to-memory
// move, so transfers where neither side is a register go through the
// scratch register. Moves onto the same operand vanish.
func mov(src, dst x86.Operand) []x86.Instr {
	if src == dst {
		return nil
	}
	if isRegister(src) || isRegister(dst) {
		return []x86.Instr{x86.Mov{Src: src, Dst: dst}}
	}
	return []x86.Instr{
		x86.Mov{Src: src, Dst: x86.Scratch0},
		x86.Mov{Src: x86.Scratch0, Dst: dst},
	}
}

func isRegister(op x86.Operand) bool {
	_, ok := op.(x86.Register)
	return ok
}

// wrapFunction brackets the generated body with the entry function's
// prologue and epilogue. The frame is sized by the spill high-water mark,
// known only once the whole body has been generated.
func wrapFunction(env Env, body []x86.Instr) []x86.Instr {
	frame := x86.Immediate{Value: x86.WordSize * env.MaxSpills()}
	code := []x86.Instr{
		x86.Push{Op: x86.FrameBase},
		x86.Mov{Src: x86.StackPtr, Dst: x86.FrameBase},
		x86.Binop{Op: "-", Src: frame, Dst: x86.StackPtr},
	}
	code = append(code, body...)
	return append(code,
		x86.Mov{Src: x86.FrameBase, Dst: x86.StackPtr},
		x86.Pop{Op: x86.FrameBase},
		x86.Binop{Op: "^", Src: x86.Scratch0, Dst: x86.Scratch0},
		x86.Ret{},
	)
}

// emitModule renders the data section (one zero-initialized word per
// referenced global, sorted) and the text section.
func emitModule(env Env, code []x86.Instr) string {
	var b strings.Builder
	b.WriteString("\t.data\n")
	for _, name := range env.Globals() {
		fmt.Fprintf(&b, "%s:\t.int\t0\n", GlobalLoc(name))
	}
	b.WriteString("\t.text\n")
	fmt.Fprintf(&b, "\t.globl\t%s\n", entryLabel)
	fmt.Fprintf(&b, "%s:\n", entryLabel)
	for _, instr := range code {
		b.WriteString(instr.String())
		b.WriteByte('\n')
	}
	return b.String()
}
