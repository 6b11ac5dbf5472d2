package ntl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

func span(start, end int) diag.Span {
	return diag.Span{File: "inc.rhdl", Start: start, End: end}
}

// incObject adds one to a 2-bit input.
func incObject() *Object {
	obj := NewObject("inc")
	a := obj.AddInput("a", 2, rhif.Data, span(0, 1))
	one := obj.AddLiterals([]typedbits.Bit{typedbits.One, typedbits.Zero}, span(4, 5))
	sum := obj.AddRegisters("sum", 2, span(2, 5))
	obj.Emit(Vector{Op: typedbits.Add, Lhs: sum, Arg1: a, Arg2: one}, span(2, 5))
	msb := obj.AddRegister("", span(6, 7))
	obj.Emit(Binary{Op: Xor, Lhs: msb, Arg1: sum[1], Arg2: a[0]}, span(6, 7))
	obj.Outputs = []Wire{sum[0], msb}
	return obj
}

func TestDump(t *testing.T) {
	want := `ntl inc {
  input data a {r0, r1}
  l0 = 1
  l1 = 0
  r0 // a[0]
  r1 // a[1]
  r2 // sum[0]
  r3 // sum[1]
  {r2, r3} <- {r0, r1} + {l0, l1}
  r4 <- r3 ^ r0
  output {r2, r4}
}
`
	if diff := cmp.Diff(want, incObject().Dump()); diff != "" {
		t.Errorf("Dump() mismatch (-want +got):\n%s", diff)
	}
}

func TestCaseString(t *testing.T) {
	c := Case{
		Lhs:          []Wire{symtab.Reg(3)},
		Discriminant: []Wire{symtab.Reg(0), symtab.Reg(1)},
		Table: []CaseEntry{
			{Arg: CaseArgument{Key: []typedbits.Bit{typedbits.Zero, typedbits.One}}, Value: []Wire{symtab.Lit(0)}},
			{Arg: CaseArgument{Wild: true}, Value: []Wire{symtab.Reg(2)}},
		},
	}
	assert.Equal(t, "{r3} <- case {r0, r1} {10 => {l0}, _ => {r2}}", OpString(c))
}

func TestHashIsStructural(t *testing.T) {
	a, b := incObject(), incObject()
	assert.Equal(t, a.Hash(), b.Hash())

	c := a.Clone()
	c.Ops[1].Op = Binary{Op: And, Lhs: symtab.Reg(4), Arg1: symtab.Reg(3), Arg2: symtab.Reg(0)}
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, b.Hash(), a.Hash(), "clone must not alias the original")

	d := a.Clone()
	d.Inputs[0].Wires[0] = symtab.Reg(9)
	assert.Equal(t, symtab.Reg(0), a.Inputs[0].Wires[0], "clone copies input wires")
}

func TestCheckSymbols(t *testing.T) {
	require.NoError(t, incObject().CheckSymbols())

	obj := incObject()
	obj.Emit(Not{Lhs: symtab.Reg(0), Arg: symtab.Reg(2)}, span(0, 0))
	assert.ErrorContains(t, obj.CheckSymbols(), "input wire")

	obj = incObject()
	obj.Emit(Not{Lhs: symtab.Lit(0), Arg: symtab.Reg(2)}, span(0, 0))
	assert.ErrorContains(t, obj.CheckSymbols(), "not a register")

	obj = incObject()
	obj.Symbols.RemoveRegister(3)
	assert.Error(t, obj.CheckSymbols())
}

func TestRename(t *testing.T) {
	op := incObject().Ops[0].Op
	f := func(w Wire) Wire {
		if w.IsRegister() {
			return symtab.Reg(symtab.RegisterID(w.ID) + 10)
		}
		return w
	}

	all := Rename(op, f)
	assert.Equal(t, []Wire{symtab.Reg(12), symtab.Reg(13)}, Writes(all))
	assert.Equal(t, []Wire{symtab.Reg(10), symtab.Reg(11), symtab.Lit(0), symtab.Lit(1)}, Reads(all))

	reads := RenameReads(op, f)
	assert.Equal(t, []Wire{symtab.Reg(2), symtab.Reg(3)}, Writes(reads))
	assert.Equal(t, []Wire{symtab.Reg(10), symtab.Reg(11), symtab.Lit(0), symtab.Lit(1)}, Reads(reads))

	assert.Equal(t, []Wire{symtab.Reg(0), symtab.Reg(1), symtab.Lit(0), symtab.Lit(1)}, Reads(op), "original is untouched")
}
