package ntlopt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/ntlvm"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

const (
	O = typedbits.One
	Z = typedbits.Zero
)

func at(n int) diag.Span { return diag.Span{File: "k.rhdl", Start: n, End: n + 1} }

func TestConstantFold(t *testing.T) {
	obj := ntl.NewObject("fold")
	x := obj.AddInput("x", 1, rhif.Data, at(0))[0]
	one, zero := obj.AddLiteral(O, at(1)), obj.AddLiteral(Z, at(2))

	r := obj.AddRegisters("r", 6, at(3))
	obj.Emit(ntl.Binary{Op: ntl.And, Lhs: r[0], Arg1: one, Arg2: one}, at(3))
	obj.Emit(ntl.Binary{Op: ntl.And, Lhs: r[1], Arg1: x, Arg2: zero}, at(4))
	obj.Emit(ntl.Binary{Op: ntl.Xor, Lhs: r[2], Arg1: one, Arg2: x}, at(5))
	obj.Emit(ntl.Binary{Op: ntl.Or, Lhs: r[3], Arg1: x, Arg2: zero}, at(6))
	obj.Emit(ntl.Select{Lhs: r[4], Cond: zero, TrueValue: x, FalseValue: one}, at(7))
	obj.Emit(ntl.Case{Lhs: r[5:6], Discriminant: []ntl.Wire{one, zero}, Table: []ntl.CaseEntry{
		{Arg: ntl.CaseArgument{Key: []typedbits.Bit{Z, Z}}, Value: []ntl.Wire{zero}},
		{Arg: ntl.CaseArgument{Key: []typedbits.Bit{O, Z}}, Value: []ntl.Wire{x}},
	}}, at(8))
	obj.Outputs = r

	res, err := ConstantFold(obj)
	require.NoError(t, err)
	require.Len(t, res.Ops, 6)

	a0 := res.Ops[0].Op.(ntl.Assign)
	b, ok := res.Bit(a0.Rhs)
	require.True(t, ok)
	assert.Equal(t, O, b)
	assert.Equal(t, at(3), res.Span(a0.Rhs), "folded literals keep the opcode span")

	assert.Equal(t, ntl.Assign{Lhs: r[1], Rhs: zero}, res.Ops[1].Op)
	assert.Equal(t, ntl.Not{Lhs: r[2], Arg: x}, res.Ops[2].Op)
	assert.Equal(t, ntl.Assign{Lhs: r[3], Rhs: x}, res.Ops[3].Op)
	assert.Equal(t, ntl.Assign{Lhs: r[4], Rhs: one}, res.Ops[4].Op)
	assert.Equal(t, ntl.Assign{Lhs: r[5], Rhs: x}, res.Ops[5].Op)

	again, err := ConstantFold(res)
	require.NoError(t, err)
	assert.Equal(t, res.Hash(), again.Hash())

	for _, v := range []typedbits.Bit{Z, O} {
		args := []typedbits.TypedBits{{Kind: kind.Bits{Width: 1}, Bits: []typedbits.Bit{v}}}
		want, err := ntlvm.Run(obj, args, nil)
		require.NoError(t, err)
		got, err := ntlvm.Run(res, args, nil)
		require.NoError(t, err)
		assert.Equal(t, want.Bits, got.Bits)
	}
}

func TestRemoveExtraRegisters(t *testing.T) {
	obj := ntl.NewObject("copies")
	in := obj.AddInput("in", 2, rhif.Data, at(0))
	one := obj.AddLiteral(O, at(1))

	a := obj.AddRegister("", at(2))
	obj.Emit(ntl.Not{Lhs: a, Arg: in[0]}, at(2))
	b := obj.AddRegister("", at(3))
	obj.Emit(ntl.Assign{Lhs: b, Rhs: a}, at(3))
	c := obj.AddRegister("c", at(4))
	obj.Emit(ntl.Assign{Lhs: c, Rhs: b}, at(4))

	d := obj.AddRegister("d", at(5))
	obj.Emit(ntl.Assign{Lhs: d, Rhs: in[1]}, at(5))
	e := obj.AddRegister("e", at(6))
	obj.Emit(ntl.Assign{Lhs: e, Rhs: one}, at(6))

	f := obj.AddRegister("f", at(7))
	obj.Emit(ntl.Binary{Op: ntl.And, Lhs: f, Arg1: c, Arg2: d}, at(7))
	obj.Outputs = []ntl.Wire{c, e, f}

	res, err := RemoveExtraRegisters(obj)
	require.NoError(t, err)

	require.Len(t, res.Ops, 2)
	not := res.Ops[0].Op.(ntl.Not)
	assert.Equal(t, in[0], not.Arg)
	assert.Equal(t, ntl.Binary{Op: ntl.And, Lhs: f, Arg1: not.Lhs, Arg2: in[1]}, res.Ops[1].Op, "pinned input represents its class")
	assert.Equal(t, []ntl.Wire{not.Lhs, one, f}, res.Outputs, "pinned literal represents its class")
	assert.Equal(t, b, not.Lhs)
	assert.Equal(t, "c", res.WireName(not.Lhs), "an unnamed representative adopts the lowest named member")

	for _, w := range []ntl.Wire{b, c, d, e, a} {
		if w != not.Lhs {
			assert.False(t, res.Symbols.Resolves(w), "%s merged", w)
		}
	}

	again, err := RemoveExtraRegisters(res)
	require.NoError(t, err)
	assert.Equal(t, res.Hash(), again.Hash())
}

func TestRemoveExtraRegistersSkipsMultipleWriters(t *testing.T) {
	obj := ntl.NewObject("pins")
	in := obj.AddInput("in", 1, rhif.Data, at(0))
	one := obj.AddLiteral(O, at(1))

	r := obj.AddRegister("r", at(2))
	obj.Emit(ntl.Assign{Lhs: r, Rhs: in[0]}, at(2))
	obj.Emit(ntl.Assign{Lhs: r, Rhs: one}, at(3))
	obj.Outputs = []ntl.Wire{r}

	res, err := RemoveExtraRegisters(obj)
	require.NoError(t, err)
	assert.Equal(t, obj.Ops, res.Ops, "a register with two writers is left alone")

	// the input represents the copied register
	w := ntl.NewObject("two")
	x := w.AddInput("x", 1, rhif.Data, at(0))[0]
	lit := w.AddLiteral(Z, at(1))
	s := w.AddRegister("s", at(2))
	w.Emit(ntl.Assign{Lhs: s, Rhs: x}, at(2))
	u := w.AddRegister("u", at(3))
	w.Emit(ntl.Binary{Op: ntl.Or, Lhs: u, Arg1: s, Arg2: lit}, at(3))
	w.Outputs = []ntl.Wire{u}

	res, err = RemoveExtraRegisters(w)
	require.NoError(t, err)
	assert.Equal(t, []ntl.Located{{Op: ntl.Binary{Op: ntl.Or, Lhs: u, Arg1: x, Arg2: lit}, Loc: at(3)}}, res.Ops)
}

func TestDeadCodeElimination(t *testing.T) {
	obj := ntl.NewObject("dce")
	x := obj.AddInput("x", 2, rhif.Data, at(0))
	lit := obj.AddLiteral(O, at(1))
	unused := obj.AddLiteral(Z, at(2))

	dead := obj.AddRegister("dead", at(3))
	obj.Emit(ntl.Binary{Op: ntl.And, Lhs: dead, Arg1: x[0], Arg2: unused}, at(3))
	obj.Emit(ntl.Comment{Text: "keep"}, at(4))
	obj.Emit(ntl.BlackBox{Name: "probe", Args: [][]ntl.Wire{{x[1]}}}, at(5))
	sum := obj.AddRegisters("sum", 2, at(6))
	obj.Emit(ntl.Vector{Op: typedbits.Add, Lhs: sum, Arg1: x, Arg2: []ntl.Wire{lit, lit}}, at(6))
	obj.Outputs = sum[1:]

	res, err := DeadCodeElimination(obj)
	require.NoError(t, err)

	require.Len(t, res.Ops, 3)
	assert.IsType(t, ntl.Comment{}, res.Ops[0].Op)
	assert.IsType(t, ntl.BlackBox{}, res.Ops[1].Op)
	assert.IsType(t, ntl.Vector{}, res.Ops[2].Op, "a vector is kept whole when one bit is live")

	assert.False(t, res.Symbols.Resolves(dead))
	assert.False(t, res.Symbols.Resolves(unused))
	assert.True(t, res.Symbols.Resolves(sum[0]))
	assert.True(t, res.Symbols.Resolves(x[0]))
}

func TestDriver(t *testing.T) {
	// out = (a & 1) ^ (b | 0), with a copy chain on the way out
	obj := ntl.NewObject("k")
	a := obj.AddInput("a", 1, rhif.Data, at(0))[0]
	b := obj.AddInput("b", 1, rhif.Data, at(1))[0]
	one, zero := obj.AddLiteral(O, at(2)), obj.AddLiteral(Z, at(3))

	p := obj.AddRegister("", at(4))
	obj.Emit(ntl.Binary{Op: ntl.And, Lhs: p, Arg1: a, Arg2: one}, at(4))
	q := obj.AddRegister("", at(5))
	obj.Emit(ntl.Binary{Op: ntl.Or, Lhs: q, Arg1: b, Arg2: zero}, at(5))
	r := obj.AddRegister("", at(6))
	obj.Emit(ntl.Binary{Op: ntl.Xor, Lhs: r, Arg1: p, Arg2: q}, at(6))
	out := obj.AddRegister("out", at(7))
	obj.Emit(ntl.Assign{Lhs: out, Rhs: r}, at(7))
	obj.Outputs = []ntl.Wire{out}

	res, err := Driver(0).Run(context.Background(), obj)
	require.NoError(t, err)

	require.Len(t, res.Ops, 1, res.Dump())
	x := res.Ops[0].Op.(ntl.Binary)
	assert.Equal(t, ntl.Xor, x.Op)
	assert.Equal(t, a, x.Arg1)
	assert.Equal(t, b, x.Arg2)
	assert.Equal(t, "out", res.WireName(x.Lhs))
	assert.Equal(t, 0, res.Symbols.NumLiterals())

	for _, v := range []uint64{0, 1, 2, 3} {
		args := []typedbits.TypedBits{
			typedbits.FromUint64(kind.Bits{Width: 1}, v&1),
			typedbits.FromUint64(kind.Bits{Width: 1}, v>>1),
		}
		want, err := ntlvm.Run(obj, args, nil)
		require.NoError(t, err)
		got, err := ntlvm.Run(res, args, nil)
		require.NoError(t, err)
		assert.Equal(t, want.Bits, got.Bits)
	}
}
