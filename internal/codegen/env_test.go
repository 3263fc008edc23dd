package codegen

import (
	"errors"
	"reflect"
	"testing"

	"stackc/internal/x86"
)

func TestAllocatePolicyFillsRegistersThenSpills(t *testing.T) {
	env := Env{}
	want := []x86.Operand{
		x86.Register{Index: 0},
		x86.Register{Index: 1},
		x86.Register{Index: 2},
		x86.Register{Index: 3},
		x86.Spill{Index: 0},
		x86.Spill{Index: 1},
		x86.Spill{Index: 2},
	}
	for i, w := range want {
		var op x86.Operand
		op, env = env.Allocate()
		if op != w {
			t.Fatalf("allocation %d: got %v, want %v", i, op, w)
		}
	}
	if env.MaxSpills() != 3 {
		t.Fatalf("MaxSpills=%d, want 3", env.MaxSpills())
	}
}

func TestAllocateNeverAliasesLiveValues(t *testing.T) {
	env := Env{}
	seen := map[x86.Operand]bool{}
	for i := 0; i < 12; i++ {
		var op x86.Operand
		op, env = env.Allocate()
		if seen[op] {
			t.Fatalf("operand %v assigned twice among live values", op)
		}
		seen[op] = true
	}
}

func TestMaxSpillsIsHighWaterMark(t *testing.T) {
	env := Env{}
	for i := 0; i < 6; i++ {
		_, env = env.Allocate()
	}
	if env.MaxSpills() != 2 {
		t.Fatalf("MaxSpills=%d, want 2", env.MaxSpills())
	}
	// Draining the stack must not lower the mark.
	for i := 0; i < 6; i++ {
		var err error
		_, env, err = env.Pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
	}
	if env.MaxSpills() != 2 {
		t.Fatalf("MaxSpills after drain=%d, want 2", env.MaxSpills())
	}
	// Shallow reuse stays within registers and keeps the mark.
	_, env = env.Allocate()
	if env.MaxSpills() != 2 {
		t.Fatalf("MaxSpills after reuse=%d, want 2", env.MaxSpills())
	}
}

func TestPushPopRoundTripRestoresStack(t *testing.T) {
	env := Env{}
	for i := 0; i < 3; i++ {
		_, env = env.Allocate()
	}
	before := env.Live()

	next := env
	for i := 0; i < 5; i++ {
		_, next = next.Allocate()
	}
	for i := 0; i < 5; i++ {
		var err error
		_, next, err = next.Pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
	}
	if !reflect.DeepEqual(next.Live(), before) {
		t.Fatalf("round trip changed stack: got %v, want %v", next.Live(), before)
	}
	// The original value must be untouched as well.
	if !reflect.DeepEqual(env.Live(), before) {
		t.Fatalf("original environment mutated: %v", env.Live())
	}
}

func TestPopUnderflow(t *testing.T) {
	_, _, err := Env{}.Pop()
	if !errors.Is(err, errUnderflow) {
		t.Fatalf("expected underflow error, got %v", err)
	}

	env := Env{}
	_, env = env.Allocate()
	if _, _, _, err := env.Pop2(); !errors.Is(err, errUnderflow) {
		t.Fatalf("expected underflow from one-deep Pop2, got %v", err)
	}
}

func TestPop2Ordering(t *testing.T) {
	env := Env{}
	a, env := env.Allocate() // deeper: left operand
	b, env := env.Allocate() // top: right operand
	first, second, env, err := env.Pop2()
	if err != nil {
		t.Fatalf("Pop2: %v", err)
	}
	if first != b || second != a {
		t.Fatalf("Pop2 = (%v, %v), want (%v, %v)", first, second, b, a)
	}
	if len(env.Live()) != 0 {
		t.Fatalf("expected empty stack, got %v", env.Live())
	}
}

func TestEnvIsPersistent(t *testing.T) {
	base := Env{}
	for i := 0; i < x86.UsableRegisters; i++ {
		_, base = base.Allocate()
	}

	// Two derivations from the same full-window environment must both
	// get the first spill slot, independently.
	opA, envA := base.Allocate()
	opB, envB := base.Allocate()
	if opA != (x86.Spill{Index: 0}) || opB != (x86.Spill{Index: 0}) {
		t.Fatalf("expected both branches to spill to slot 0, got %v and %v", opA, opB)
	}
	_, envA = envA.Allocate()
	if got := envB.Live(); len(got) != x86.UsableRegisters+1 {
		t.Fatalf("sibling environment affected: %v", got)
	}
	if base.MaxSpills() != 0 {
		t.Fatalf("base high-water mark mutated: %d", base.MaxSpills())
	}
	_ = envA
}

func TestAddGlobalIsIdempotent(t *testing.T) {
	env := Env{}
	env = env.AddGlobal("y")
	env = env.AddGlobal("x")
	env = env.AddGlobal("y")
	env = env.AddGlobal("x")
	want := []string{"x", "y"}
	if got := env.Globals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Globals=%v, want %v", got, want)
	}
}

func TestGlobalLoc(t *testing.T) {
	if got := GlobalLoc("counter"); got != "global_counter" {
		t.Fatalf("GlobalLoc=%q", got)
	}
	if GlobalLoc("x") != GlobalLoc("x") {
		t.Fatalf("GlobalLoc must be stable across calls")
	}
}
