// Package ir defines the stack-machine intermediate representation consumed
// by the code generator, plus a parser for its textual listing form.
//
// The machine is a pure evaluation stack: CONST/READ/LD push one value,
// WRITE/ST pop one, BINOP pops two and pushes the result.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"stackc/internal/diag"
)

// Instr is one stack-machine instruction. The vocabulary is closed;
// consumers switch exhaustively over the concrete types below.
type Instr interface {
	String() string
	instr()
}

// Const pushes an integer literal.
type Const struct {
	Value int
}

// Read pushes one integer read from standard input.
type Read struct{}

// Write pops one value and prints it to standard output.
type Write struct{}

// Load pushes the current value of a global variable.
type Load struct {
	Name string
}

// Store pops one value into a global variable.
type Store struct {
	Name string
}

// Binop pops two values, applies Op, and pushes the result.
type Binop struct {
	Op string
}

func (Const) instr() {}
func (Read) instr()  {}
func (Write) instr() {}
func (Load) instr()  {}
func (Store) instr() {}
func (Binop) instr() {}

func (i Const) String() string { return fmt.Sprintf("CONST %d", i.Value) }
func (Read) String() string    { return "READ" }
func (Write) String() string   { return "WRITE" }
func (i Load) String() string  { return "LD " + i.Name }
func (i Store) String() string { return "ST " + i.Name }
func (i Binop) String() string { return "BINOP " + i.Op }

// Parse reads a textual IR listing, one instruction per line. Blank lines
// and lines starting with '#' are skipped. Parse checks arity and integer
// syntax only; operator membership for BINOP is the code generator's
// concern.
func Parse(src string) ([]Instr, error) {
	var prog []Instr
	for n, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		instr, err := parseLine(n+1, line)
		if err != nil {
			return nil, err
		}
		prog = append(prog, instr)
	}
	return prog, nil
}

func parseLine(n int, line string) (Instr, error) {
	fields := strings.Fields(line)
	mnemonic := fields[0]
	arg := func() (string, error) {
		if len(fields) != 2 {
			return "", diag.Errorf(n, "%s expects exactly 1 operand, got %d", mnemonic, len(fields)-1)
		}
		return fields[1], nil
	}

	switch mnemonic {
	case "CONST":
		s, err := arg()
		if err != nil {
			return nil, err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, diag.Errorf(n, "CONST operand %q is not an integer", s)
		}
		return Const{Value: v}, nil
	case "READ":
		if len(fields) != 1 {
			return nil, diag.Errorf(n, "READ takes no operand")
		}
		return Read{}, nil
	case "WRITE":
		if len(fields) != 1 {
			return nil, diag.Errorf(n, "WRITE takes no operand")
		}
		return Write{}, nil
	case "LD":
		name, err := arg()
		if err != nil {
			return nil, err
		}
		return Load{Name: name}, nil
	case "ST":
		name, err := arg()
		if err != nil {
			return nil, err
		}
		return Store{Name: name}, nil
	case "BINOP":
		op, err := arg()
		if err != nil {
			return nil, err
		}
		return Binop{Op: op}, nil
	default:
		return nil, diag.Errorf(n, "unknown instruction %q", mnemonic)
	}
}
