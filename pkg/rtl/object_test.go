package rtl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

func span(start, end int) diag.Span {
	return diag.Span{File: "mix.rhdl", Start: start, End: end}
}

func mixObject() *Object {
	b8 := kind.Bits{Width: 8}
	obj := NewObject("mix")
	a := obj.AddArgument(b8, "a", rhif.Data, span(0, 1))
	ck := obj.AddArgument(kind.Bits{Width: 1}, "clk", rhif.Clock, span(2, 5))
	hi := obj.AddRegister(kind.Bits{Width: 4}, "hi", span(6, 10))
	obj.Emit(Index{Lhs: hi, Arg: a, Start: 4, End: 8}, span(6, 10))
	w := obj.AddRegister(kind.Signed{Width: 12}, "", span(11, 12))
	obj.Emit(Cast{Lhs: w, Arg: a, Len: 12, Kind: Signed}, span(11, 12))
	k := obj.AddLiteral(typedbits.FromUint64(kind.Bits{Width: 4}, 3), span(13, 14))
	r := obj.AddRegister(b8, "", span(15, 20))
	obj.Emit(Case{Lhs: r, Discriminant: hi, Table: []CaseEntry{
		{Arg: CaseArgument{Literal: k}, Value: a},
		{Arg: CaseArgument{Wild: true}, Value: a},
	}}, span(15, 20))
	obj.Emit(Comment{Text: "tail"}, span(0, 0))
	s := obj.AddRegister(b8, "", span(21, 22))
	obj.Emit(BlackBox{Lhs: s, Name: "dff", Args: []Operand{ck, r}, Synchronous: true}, span(21, 22))
	obj.Return = s
	return obj
}

func TestDump(t *testing.T) {
	want := `rtl mix {
  arg data r0
  arg clock r1
  l0 = 3_b4
  r0: b8 // a
  r1: b1 // clk
  r2: b4 // hi
  r3: s12
  r4: b8
  r5: b8
  r2 <- r0[4..8]
  r3 <- r0 as signed 12
  r4 <- case r2 {l0 => r0, _ => r0}
  // tail
  r5 <- blackbox sync dff(r1, r4)
  return r5
}
`
	if diff := cmp.Diff(want, mixObject().Dump()); diff != "" {
		t.Errorf("Dump() mismatch (-want +got):\n%s", diff)
	}
}

func TestHashIsStructural(t *testing.T) {
	a, b := mixObject(), mixObject()
	assert.Equal(t, a.Hash(), b.Hash())

	c := a.Clone()
	c.Ops[1].Op = Cast{Lhs: symtab.Reg(3), Arg: symtab.Reg(0), Len: 12, Kind: Resize}
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, b.Hash(), a.Hash(), "clone must not alias the original")

	d := a.Clone()
	d.Symbols.SetRegisterLoc(2, span(6, 9))
	assert.NotEqual(t, a.Hash(), d.Hash(), "spans are part of the structure")
}

func TestCheckSymbols(t *testing.T) {
	require.NoError(t, mixObject().CheckSymbols())

	obj := mixObject()
	obj.Symbols.RemoveRegister(2)
	assert.Error(t, obj.CheckSymbols())

	obj = mixObject()
	obj.AddRegister(kind.Array{Base: kind.Bits{Width: 1}, Size: 2}, "", span(0, 0))
	assert.ErrorContains(t, obj.CheckSymbols(), "non-flat")
}

func TestReadsIncludeCaseKeys(t *testing.T) {
	obj := mixObject()
	c := obj.Ops[2].Op

	assert.Equal(t, []Operand{symtab.Reg(2), symtab.Lit(0), symtab.Reg(0), symtab.Reg(0)}, Reads(c))

	renamed := RenameReads(c, func(o Operand) Operand {
		if o == symtab.Reg(0) {
			return symtab.Reg(9)
		}
		return o
	})
	assert.Equal(t, []Operand{symtab.Reg(2), symtab.Lit(0), symtab.Reg(9), symtab.Reg(9)}, Reads(renamed))
	assert.Equal(t, symtab.Reg(4), Lhs(renamed))
}

func TestWriters(t *testing.T) {
	obj := mixObject()
	obj.Emit(Assign{Lhs: symtab.Reg(4), Rhs: symtab.Reg(0)}, span(0, 0))

	w := obj.Writers()
	assert.Equal(t, 2, w[symtab.Reg(4)])
	assert.Equal(t, 1, w[symtab.Reg(5)])
	assert.True(t, obj.IsArgument(symtab.Reg(1)))
	assert.False(t, obj.IsArgument(symtab.Reg(2)))
}
