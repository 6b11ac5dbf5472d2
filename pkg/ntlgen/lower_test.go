package ntlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/ntlvm"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/rtlvm"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

var (
	b1 = kind.Bits{Width: 1}
	b3 = kind.Bits{Width: 3}
	b8 = kind.Bits{Width: 8}
	s8 = kind.Signed{Width: 8}
)

func sp(n int) diag.Span { return diag.Span{File: "k.rhdl", Start: n, End: n + 1} }

var samples = []int64{0, 1, 2, 5, 7, 64, 100, 127, -1, -2, -100, -128}

func requireEquivalent(t *testing.T, src *rtl.Object, inputs [][]typedbits.TypedBits, models rtlvm.Models) *ntl.Object {
	t.Helper()

	obj, err := Lower(src)
	require.NoError(t, err)
	require.NoError(t, obj.CheckSymbols(), obj.Dump())

	for _, args := range inputs {
		want, err := rtlvm.Run(src, args, models)
		require.NoError(t, err)
		got, err := ntlvm.Run(obj, args, models)
		require.NoError(t, err, obj.Dump())
		require.True(t, typedbits.SameBits(want.Bits, got.Bits), "args %v: rtl %s, ntl %s", args, want.BinaryString(), got.BinaryString())
	}

	return obj
}

func TestLowerArithmetic(t *testing.T) {
	src := rtl.NewObject("arith")
	a := src.AddArgument(s8, "a", rhif.Data, sp(0))
	b := src.AddArgument(s8, "b", rhif.Data, sp(1))
	n := src.AddArgument(b3, "n", rhif.Data, sp(2))

	var parts []rtl.Operand
	bin := func(op typedbits.BinaryOp, k kind.Kind, x, y rtl.Operand) {
		r := src.AddRegister(k, op.Name(), sp(3))
		src.Emit(rtl.Binary{Op: op, Lhs: r, Arg1: x, Arg2: y}, sp(3))
		parts = append(parts, r)
	}
	un := func(op typedbits.UnaryOp, k kind.Kind) {
		r := src.AddRegister(k, op.Name(), sp(4))
		src.Emit(rtl.Unary{Op: op, Lhs: r, Arg1: a}, sp(4))
		parts = append(parts, r)
	}

	bin(typedbits.Add, s8, a, b)
	bin(typedbits.Sub, s8, a, b)
	bin(typedbits.Mul, s8, a, b)
	bin(typedbits.Lt, b1, a, b)
	bin(typedbits.Ge, b1, a, b)
	bin(typedbits.Eq, b1, a, b)
	bin(typedbits.Shr, s8, a, n)
	bin(typedbits.Shl, s8, a, n)
	bin(typedbits.BitAnd, s8, a, b)
	bin(typedbits.BitXor, s8, a, b)
	un(typedbits.Neg, s8)
	un(typedbits.Not, s8)
	un(typedbits.All, b1)
	un(typedbits.Any, b1)
	un(typedbits.Xor, b1)

	width := 0
	for _, p := range parts {
		width += src.Width(p)
	}
	out := src.AddRegister(kind.Bits{Width: width}, "", sp(5))
	src.Emit(rtl.Concat{Lhs: out, Args: parts}, sp(5))
	src.Return = out

	var inputs [][]typedbits.TypedBits
	for i, x := range samples {
		for _, y := range samples {
			inputs = append(inputs, []typedbits.TypedBits{
				typedbits.FromInt64(s8, x),
				typedbits.FromInt64(s8, y),
				typedbits.FromUint64(b3, uint64(i%8)),
			})
		}
	}

	obj := requireEquivalent(t, src, inputs, nil)

	var vectors, gates int
	for _, lop := range obj.Ops {
		switch o := lop.Op.(type) {
		case ntl.Vector:
			vectors++
			if o.Op != typedbits.Shr && o.Op != typedbits.Shl {
				assert.True(t, o.Signed, "%s", ntl.OpString(o))
			}
		case ntl.Binary, ntl.Not:
			gates++
		}
	}
	assert.Equal(t, 8, vectors)
	assert.Equal(t, 24, gates, "bitwise operations are split per bit")
}

func TestLowerDataMovement(t *testing.T) {
	src := rtl.NewObject("move")
	x := src.AddArgument(b8, "x", rhif.Data, sp(0))
	c := src.AddArgument(b1, "c", rhif.Data, sp(1))

	mid := src.AddRegister(kind.Bits{Width: 4}, "mid", sp(2))
	src.Emit(rtl.Index{Lhs: mid, Arg: x, Start: 2, End: 6}, sp(2))

	sx := src.AddRegister(kind.Signed{Width: 4}, "", sp(3))
	src.Emit(rtl.Cast{Lhs: sx, Arg: mid, Len: 4, Kind: rtl.Signed}, sp(3))
	wide := src.AddRegister(kind.Signed{Width: 8}, "", sp(4))
	src.Emit(rtl.Cast{Lhs: wide, Arg: sx, Len: 8, Kind: rtl.Resize}, sp(4))
	zext := src.AddRegister(kind.Bits{Width: 8}, "", sp(5))
	src.Emit(rtl.Cast{Lhs: zext, Arg: mid, Len: 8, Kind: rtl.Unsigned}, sp(5))
	narrow := src.AddRegister(kind.Bits{Width: 2}, "", sp(6))
	src.Emit(rtl.Cast{Lhs: narrow, Arg: x, Len: 2, Kind: rtl.Unsigned}, sp(6))

	spliced := src.AddRegister(b8, "", sp(7))
	src.Emit(rtl.Splice{Lhs: spliced, Orig: x, Start: 3, End: 5, Value: narrow}, sp(7))

	sel := src.AddRegister(b8, "", sp(8))
	src.Emit(rtl.Select{Lhs: sel, Cond: c, TrueValue: spliced, FalseValue: zext}, sp(8))

	k := func(v uint64) rtl.Operand { return src.AddLiteral(typedbits.FromUint64(kind.Bits{Width: 2}, v), sp(9)) }
	picked := src.AddRegister(b8, "", sp(9))
	src.Emit(rtl.Case{Lhs: picked, Discriminant: narrow, Table: []rtl.CaseEntry{
		{Arg: rtl.CaseArgument{Literal: k(0)}, Value: sel},
		{Arg: rtl.CaseArgument{Literal: k(1)}, Value: wide},
		{Arg: rtl.CaseArgument{Wild: true}, Value: x},
	}}, sp(9))

	out := src.AddRegister(kind.Bits{Width: 16}, "", sp(10))
	src.Emit(rtl.Concat{Lhs: out, Args: []rtl.Operand{picked, wide}}, sp(10))
	src.Return = out

	var inputs [][]typedbits.TypedBits
	for v := uint64(0); v < 256; v += 7 {
		for _, cv := range []uint64{0, 1} {
			inputs = append(inputs, []typedbits.TypedBits{typedbits.FromUint64(b8, v), typedbits.FromUint64(b1, cv)})
		}
	}

	obj := requireEquivalent(t, src, inputs, nil)

	require.Len(t, obj.Inputs, 2)
	assert.Equal(t, "x", obj.Inputs[0].Name)
	assert.Len(t, obj.Inputs[0].Wires, 8)
	assert.Equal(t, "mid[3]", obj.WireName(obj.Ops[3].Op.(ntl.Assign).Lhs))
}

func TestLowerBlackBox(t *testing.T) {
	src := rtl.NewObject("bb")
	clk := src.AddArgument(b1, "clk", rhif.Clock, sp(0))
	d := src.AddArgument(b8, "d", rhif.Data, sp(1))
	q := src.AddRegister(b8, "q", sp(2))
	src.Emit(rtl.BlackBox{Lhs: q, Name: "dff", Args: []rtl.Operand{clk, d}, Synchronous: true}, sp(2))
	src.Return = q

	models := rtlvm.Models{"dff": func(args []typedbits.TypedBits) (typedbits.TypedBits, error) {
		return args[1], nil
	}}

	obj := requireEquivalent(t, src, [][]typedbits.TypedBits{
		{typedbits.FromUint64(b1, 1), typedbits.FromUint64(b8, 42)},
	}, models)

	bb := obj.Ops[0].Op.(ntl.BlackBox)
	assert.True(t, bb.Synchronous)
	require.Len(t, bb.Args, 2)
	assert.Len(t, bb.Args[1], 8)
	assert.Equal(t, rhif.Clock, obj.Inputs[0].Role)
}

func TestLowerRejectsWidthMismatch(t *testing.T) {
	src := rtl.NewObject("bad")
	x := src.AddArgument(b8, "x", rhif.Data, sp(0))
	r := src.AddRegister(b3, "", sp(1))
	src.Emit(rtl.Assign{Lhs: r, Rhs: x}, sp(1))
	src.Return = r

	_, err := Lower(src)
	assert.True(t, diag.IsICE(err), "%v", err)
}
