// Package x86 is the machine-level vocabulary of the back-end: operands,
// instructions, and their rendering as AT&T-syntax i386 assembly.
package x86

import "fmt"

// WordSize is the width of every value the back-end manipulates.
const WordSize = 4

// registerNames is the full physical register file, in fixed order. The
// first UsableRegisters entries form the allocatable window; everything
// after is reserved and referenced only through the named values below.
var registerNames = [...]string{
	"%ebx", "%ecx", "%esi", "%edi", // allocatable
	"%eax", "%edx", // scratch pair (also quotient/remainder for idivl)
	"%ebp", "%esp", // frame base, hardware stack pointer
}

// UsableRegisters is the size of the allocatable register window.
const UsableRegisters = 4

// Reserved registers. The allocator never produces these indices.
var (
	Scratch0  = Register{Index: 4} // %eax
	Scratch1  = Register{Index: 5} // %edx
	FrameBase = Register{Index: 6} // %ebp
	StackPtr  = Register{Index: 7} // %esp
)

// Scratch0Byte is the byte view of Scratch0, the target of setCC.
const Scratch0Byte = "%al"

// Operand is one machine operand. The vocabulary is closed; the renderer
// and the code generator switch exhaustively over the concrete types.
type Operand interface {
	String() string
	operand()
}

// Register is a physical register, by index into the register file.
type Register struct {
	Index int
}

// Spill is a stack-frame slot at a fixed offset below the frame base.
type Spill struct {
	Index int
}

// Memory is a named word-sized memory cell (a mangled global).
type Memory struct {
	Name string
}

// Immediate is an integer literal operand.
type Immediate struct {
	Value int
}

func (Register) operand()  {}
func (Spill) operand()     {}
func (Memory) operand()    {}
func (Immediate) operand() {}

func (o Register) String() string  { return registerNames[o.Index] }
func (o Spill) String() string     { return fmt.Sprintf("-%d(%%ebp)", (o.Index+1)*WordSize) }
func (o Memory) String() string    { return o.Name }
func (o Immediate) String() string { return fmt.Sprintf("$%d", o.Value) }

// binopMnemonics maps IR-level binary opcodes to i386 mnemonics. "cmp" is
// the generator-internal opcode for flag-producing comparison.
var binopMnemonics = map[string]string{
	"+":   "addl",
	"-":   "subl",
	"*":   "imull",
	"&&":  "andl",
	"!!":  "orl",
	"^":   "xorl",
	"cmp": "cmpl",
}

// Instr is one machine instruction; String renders it as a single line of
// assembly, tab-indented, AT&T operand order.
type Instr interface {
	String() string
	instr()
}

// Mov copies Src into Dst. At most one of the two may be a memory operand.
type Mov struct {
	Src, Dst Operand
}

// Binop applies a two-operand ALU instruction: Dst := Dst <op> Src.
type Binop struct {
	Op       string
	Src, Dst Operand
}

// IDiv is signed division of %edx:%eax by Divisor; the quotient lands in
// %eax and the remainder in %edx.
type IDiv struct {
	Divisor Operand
}

// Cltd sign-extends %eax into %edx:%eax ahead of IDiv.
type Cltd struct{}

// Set materializes a flag into a byte register: set<Suffix> Reg.
type Set struct {
	Suffix string
	Reg    string
}

// Push pushes an operand onto the hardware stack.
type Push struct {
	Op Operand
}

// Pop pops the hardware stack into an operand.
type Pop struct {
	Op Operand
}

// Call calls a label.
type Call struct {
	Label string
}

// Ret returns from the current function.
type Ret struct{}

func (Mov) instr()   {}
func (Binop) instr() {}
func (IDiv) instr()  {}
func (Cltd) instr()  {}
func (Set) instr()   {}
func (Push) instr()  {}
func (Pop) instr()   {}
func (Call) instr()  {}
func (Ret) instr()   {}

func (i Mov) String() string { return fmt.Sprintf("\tmovl\t%s, %s", i.Src, i.Dst) }

func (i Binop) String() string {
	mnemonic, ok := binopMnemonics[i.Op]
	if !ok {
		// Only reachable through a generator bug: the code generator
		// rejects unknown IR operators before any instruction is built.
		panic(fmt.Sprintf("x86: no mnemonic for binary operator %q", i.Op))
	}
	return fmt.Sprintf("\t%s\t%s, %s", mnemonic, i.Src, i.Dst)
}

func (i IDiv) String() string { return fmt.Sprintf("\tidivl\t%s", i.Divisor) }
func (Cltd) String() string   { return "\tcltd" }
func (i Set) String() string  { return fmt.Sprintf("\tset%s\t%s", i.Suffix, i.Reg) }
func (i Push) String() string { return fmt.Sprintf("\tpushl\t%s", i.Op) }
func (i Pop) String() string  { return fmt.Sprintf("\tpopl\t%s", i.Op) }
func (i Call) String() string { return fmt.Sprintf("\tcall\t%s", i.Label) }
func (Ret) String() string    { return "\tret" }
