package rtlopt

import (
	"context"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/rtlvm"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

var b8 = kind.Bits{Width: 8}

func at(start, end int) diag.Span {
	return diag.Span{File: "k.rhdl", Start: start, End: end}
}

func shiftObject(k kind.Kind, op typedbits.BinaryOp, amount int) *rtl.Object {
	obj := rtl.NewObject("shift")
	x := obj.AddArgument(k, "x", rhif.Data, at(0, 1))
	n := obj.AddLiteral(typedbits.FromUint64(b8, uint64(amount)), at(5, 6))
	r := obj.AddRegister(k, "r", at(0, 6))
	obj.Emit(rtl.Binary{Op: op, Lhs: r, Arg1: x, Arg2: n}, at(0, 6))
	obj.Return = r
	return obj
}

// nativeShift computes the reference result of a w-bit shift using 256-bit
// integers.
func nativeShift(op typedbits.BinaryOp, w, k int, signed bool, x *uint256.Int) *uint256.Int {
	one := uint256.NewInt(1)
	mask := new(uint256.Int).Sub(new(uint256.Int).Lsh(one, uint(w)), one)

	if op == typedbits.Shl {
		return new(uint256.Int).And(new(uint256.Int).Lsh(x, uint(k)), mask)
	}

	negative := new(uint256.Int).Rsh(x, uint(w-1)).Uint64()&1 == 1
	if signed && negative {
		sx := new(uint256.Int).Or(x, new(uint256.Int).Not(mask))
		return new(uint256.Int).And(new(uint256.Int).SRsh(sx, uint(k)), mask)
	}
	return new(uint256.Int).Rsh(x, uint(k))
}

func shiftInputs(w int) []*uint256.Int {
	one := uint256.NewInt(1)
	ones := new(uint256.Int).Sub(new(uint256.Int).Lsh(one, uint(w)), one)

	inputs := []*uint256.Int{new(uint256.Int), ones}
	for i := 0; i < w; i++ {
		inputs = append(inputs, new(uint256.Int).Lsh(one, uint(i)))
	}
	return inputs
}

func TestLowerShiftByConstantExhaustive(t *testing.T) {
	maxWidth := 128
	if testing.Short() {
		maxWidth = 24
	}

	for _, signed := range []bool{false, true} {
		for _, op := range []typedbits.BinaryOp{typedbits.Shl, typedbits.Shr} {
			for w := 1; w <= maxWidth; w++ {
				var k kind.Kind = kind.Bits{Width: w}
				if signed {
					k = kind.Signed{Width: w}
				}

				for amt := 0; amt < w; amt++ {
					obj, err := LowerShiftByConstant(shiftObject(k, op, amt))
					require.NoError(t, err)

					for _, lop := range obj.Ops {
						if b, ok := lop.Op.(rtl.Binary); ok {
							require.False(t, b.Op.IsShift(), "shift left in %s", obj.Dump())
						}
					}

					for _, x := range shiftInputs(w) {
						got, err := rtlvm.Run(obj, []typedbits.TypedBits{typedbits.FromUint256(k, x)}, nil)
						require.NoError(t, err)

						want := typedbits.FromUint256(k, nativeShift(op, w, amt, signed, x))
						if !typedbits.SameBits(got.Bits, want.Bits) {
							t.Fatalf("%s %s %d on %s: got %s, want %s", k, op, amt, x.Hex(), got.BinaryString(), want.BinaryString())
						}
					}
				}
			}
		}
	}
}

func TestLowerShiftOutOfRange(t *testing.T) {
	tests := []struct {
		k    kind.Kind
		op   typedbits.BinaryOp
		x    int64
		want string
	}{
		{b8, typedbits.Shl, 0xff, "00000000"},
		{b8, typedbits.Shr, 0xff, "00000000"},
		{kind.Signed{Width: 8}, typedbits.Shr, -2, "11111111"},
		{kind.Signed{Width: 8}, typedbits.Shr, 2, "00000000"},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s %s", tc.k, tc.op), func(t *testing.T) {
			obj, err := LowerShiftByConstant(shiftObject(tc.k, tc.op, 200))
			require.NoError(t, err)

			got, err := rtlvm.Run(obj, []typedbits.TypedBits{typedbits.FromInt64(tc.k, tc.x)}, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.BinaryString())
		})
	}
}

func TestLowerShiftKeepsDynamicShift(t *testing.T) {
	obj := rtl.NewObject("shift")
	x := obj.AddArgument(b8, "x", rhif.Data, at(0, 1))
	n := obj.AddArgument(kind.Bits{Width: 3}, "n", rhif.Data, at(2, 3))
	r := obj.AddRegister(b8, "", at(0, 3))
	obj.Emit(rtl.Binary{Op: typedbits.Shl, Lhs: r, Arg1: x, Arg2: n}, at(0, 3))
	obj.Return = r

	res, err := LowerShiftByConstant(obj)
	require.NoError(t, err)
	assert.Equal(t, obj.Hash(), res.Hash())
}

func TestLowerIndexAll(t *testing.T) {
	obj := rtl.NewObject("idx")
	x := obj.AddArgument(b8, "x", rhif.Data, at(0, 1))
	whole := obj.AddRegister(b8, "", at(2, 3))
	obj.Emit(rtl.Index{Lhs: whole, Arg: x, Start: 0, End: 8}, at(2, 3))
	part := obj.AddRegister(kind.Bits{Width: 4}, "", at(4, 5))
	obj.Emit(rtl.Index{Lhs: part, Arg: whole, Start: 0, End: 4}, at(4, 5))
	obj.Return = part

	res, err := LowerIndexAll(obj)
	require.NoError(t, err)

	assert.Equal(t, rtl.Assign{Lhs: whole, Rhs: x}, res.Ops[0].Op)
	assert.Equal(t, obj.Ops[1].Op, res.Ops[1].Op)
}

func TestConstantPropagation(t *testing.T) {
	obj := rtl.NewObject("k")
	x := obj.AddArgument(b8, "x", rhif.Data, at(0, 1))
	a := obj.AddLiteral(typedbits.FromUint64(b8, 6), at(2, 3))
	b := obj.AddLiteral(typedbits.FromUint64(b8, 7), at(4, 5))
	p := obj.AddRegister(b8, "", at(2, 5))
	obj.Emit(rtl.Binary{Op: typedbits.Mul, Lhs: p, Arg1: a, Arg2: b}, at(2, 5))

	d := obj.AddLiteral(typedbits.FromUint64(kind.Bits{Width: 2}, 1), at(6, 7))
	k0 := obj.AddLiteral(typedbits.FromUint64(kind.Bits{Width: 2}, 0), at(8, 9))
	r := obj.AddRegister(b8, "", at(6, 12))
	obj.Emit(rtl.Case{Lhs: r, Discriminant: d, Table: []rtl.CaseEntry{
		{Arg: rtl.CaseArgument{Literal: k0}, Value: p},
		{Arg: rtl.CaseArgument{Wild: true}, Value: x},
	}}, at(6, 12))
	obj.Return = r

	res, err := ConstantPropagation(obj)
	require.NoError(t, err)

	folded := res.Ops[0].Op.(rtl.Assign)
	v, ok := res.Literal(folded.Rhs)
	require.True(t, ok)
	n, _ := v.ToUint64()
	assert.Equal(t, uint64(42), n)

	assert.Equal(t, rtl.Assign{Lhs: r, Rhs: x}, res.Ops[1].Op)
}

func TestRemoveExtraRegistersIdempotent(t *testing.T) {
	obj := rtl.NewObject("k")
	x := obj.AddArgument(b8, "x", rhif.Data, at(0, 1))
	a := obj.AddRegister(b8, "a", at(2, 10))
	obj.Emit(rtl.Unary{Op: typedbits.Not, Lhs: a, Arg1: x}, at(2, 10))
	b := obj.AddRegister(b8, "b", at(11, 13))
	obj.Emit(rtl.Assign{Lhs: b, Rhs: a}, at(11, 13))
	c := obj.AddRegister(b8, "", at(14, 30))
	obj.Emit(rtl.Assign{Lhs: c, Rhs: b}, at(14, 30))
	obj.Return = c

	once, err := RemoveExtraRegisters(obj)
	require.NoError(t, err)
	require.Len(t, once.Ops, 1)
	assert.Equal(t, a, once.Return)
	assert.Equal(t, "a_then_b", once.RegisterName(a))
	assert.Equal(t, at(11, 13), once.Span(a))

	twice, err := RemoveExtraRegisters(once)
	require.NoError(t, err)
	assert.Equal(t, once.Hash(), twice.Hash())
}

func TestDriver(t *testing.T) {
	// r = (x << 2) + (3 * 4), with a dead temporary
	obj := rtl.NewObject("k")
	x := obj.AddArgument(b8, "x", rhif.Data, at(0, 1))
	two := obj.AddLiteral(typedbits.FromUint64(b8, 2), at(2, 3))
	sh := obj.AddRegister(b8, "", at(0, 3))
	obj.Emit(rtl.Binary{Op: typedbits.Shl, Lhs: sh, Arg1: x, Arg2: two}, at(0, 3))
	three := obj.AddLiteral(typedbits.FromUint64(b8, 3), at(4, 5))
	four := obj.AddLiteral(typedbits.FromUint64(b8, 4), at(6, 7))
	c := obj.AddRegister(b8, "", at(4, 7))
	obj.Emit(rtl.Binary{Op: typedbits.Mul, Lhs: c, Arg1: three, Arg2: four}, at(4, 7))
	dead := obj.AddRegister(b8, "", at(8, 9))
	obj.Emit(rtl.Unary{Op: typedbits.Neg, Lhs: dead, Arg1: x}, at(8, 9))
	r := obj.AddRegister(b8, "r", at(10, 11))
	obj.Emit(rtl.Binary{Op: typedbits.Add, Lhs: r, Arg1: sh, Arg2: c}, at(10, 11))
	obj.Return = r

	res, err := Driver(0).Run(context.Background(), obj)
	require.NoError(t, err)

	for _, lop := range res.Ops {
		switch o := lop.Op.(type) {
		case rtl.Binary:
			assert.Equal(t, typedbits.Add, o.Op)
		case rtl.Unary:
			t.Errorf("dead negation survived: %s", res.Dump())
		}
	}

	for _, v := range []uint64{0, 1, 5, 63, 64, 255} {
		args := []typedbits.TypedBits{typedbits.FromUint64(b8, v)}
		want, err := rtlvm.Run(obj, args, nil)
		require.NoError(t, err)
		got, err := rtlvm.Run(res, args, nil)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "x=%d: %s vs %s", v, want, got)
	}
}
