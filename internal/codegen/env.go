package codegen

import (
	"errors"
	"sort"

	"stackc/internal/x86"
)

// globalPrefix decorates source-level names before they reach the data
// section, keeping them clear of assembler and runtime symbols.
const globalPrefix = "global_"

// errUnderflow reports a pop from an empty symbolic stack: the IR producer
// consumed more values than it pushed.
var errUnderflow = errors.New("symbolic stack underflow")

// Env tracks which physical resource backs each live value of the IR
// evaluation stack, the spill-depth high-water mark, and the set of global
// names the program references.
//
// Env is an immutable value: every operation returns a new Env and never
// modifies the receiver or any Env it was derived from. Slice backing
// arrays are shared between derived values but never written in place.
type Env struct {
	stack   []x86.Operand // live values, top last
	spills  int           // high-water mark, monotonic per derivation chain
	globals []string      // distinct referenced names, insertion order
}

// Allocate assigns the next operand after the current stack top and pushes
// it: the first UsableRegisters values live in hard registers, everything
// deeper spills to frame slots with strictly increasing indices.
func (e Env) Allocate() (x86.Operand, Env) {
	op, spills := e.nextSlot()
	stack := make([]x86.Operand, len(e.stack)+1)
	copy(stack, e.stack)
	stack[len(e.stack)] = op
	return op, Env{stack: stack, spills: spills, globals: e.globals}
}

func (e Env) nextSlot() (x86.Operand, int) {
	if len(e.stack) == 0 {
		return x86.Register{Index: 0}, e.spills
	}
	switch top := e.stack[len(e.stack)-1].(type) {
	case x86.Spill:
		return x86.Spill{Index: top.Index + 1}, max(e.spills, top.Index+2)
	case x86.Register:
		if top.Index+1 < x86.UsableRegisters {
			return x86.Register{Index: top.Index + 1}, e.spills
		}
	}
	return x86.Spill{Index: 0}, max(e.spills, 1)
}

// Pop removes and returns the top of the symbolic stack.
func (e Env) Pop() (x86.Operand, Env, error) {
	if len(e.stack) == 0 {
		return nil, e, errUnderflow
	}
	top := e.stack[len(e.stack)-1]
	next := e
	next.stack = e.stack[:len(e.stack)-1]
	return top, next, nil
}

// Pop2 pops twice: first is the most recently pushed value, second the one
// beneath it. For non-commutative operators second is the left operand.
func (e Env) Pop2() (first, second x86.Operand, next Env, err error) {
	first, next, err = e.Pop()
	if err != nil {
		return nil, nil, e, err
	}
	second, next, err = next.Pop()
	if err != nil {
		return nil, nil, e, err
	}
	return first, second, next, nil
}

// AddGlobal records a referenced global name. Adding a name twice is a
// no-op.
func (e Env) AddGlobal(name string) Env {
	for _, g := range e.globals {
		if g == name {
			return e
		}
	}
	globals := make([]string, len(e.globals)+1)
	copy(globals, e.globals)
	globals[len(e.globals)] = name
	next := e
	next.globals = globals
	return next
}

// Globals returns the referenced global names, sorted.
func (e Env) Globals() []string {
	out := make([]string, len(e.globals))
	copy(out, e.globals)
	sort.Strings(out)
	return out
}

// MaxSpills is the deepest simultaneous spill count seen so far; it sizes
// the stack frame once generation finishes.
func (e Env) MaxSpills() int { return e.spills }

// Live returns a copy of the symbolic stack, bottom first.
func (e Env) Live() []x86.Operand {
	out := make([]x86.Operand, len(e.stack))
	copy(out, e.stack)
	return out
}

// GlobalLoc mangles a source-level global name into its data-section
// symbol. The mapping is fixed: equal names always produce equal symbols.
func GlobalLoc(name string) string { return globalPrefix + name }
