package ntlvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

func u(w int, v uint64) typedbits.TypedBits { return typedbits.FromUint64(kind.Bits{Width: w}, v) }

func TestGates(t *testing.T) {
	const (
		O = typedbits.One
		Z = typedbits.Zero
		X = typedbits.Unknown
	)

	tests := []struct {
		name    string
		op      func(a, b, c ntl.Wire) ntl.OpCode
		a, b, c typedbits.Bit
		want    typedbits.Bit
	}{
		{"and", func(a, b, _ ntl.Wire) ntl.OpCode { return ntl.Binary{Op: ntl.And, Arg1: a, Arg2: b} }, O, O, Z, O},
		{"and zero dominates", func(a, b, _ ntl.Wire) ntl.OpCode { return ntl.Binary{Op: ntl.And, Arg1: a, Arg2: b} }, Z, X, Z, Z},
		{"or one dominates", func(a, b, _ ntl.Wire) ntl.OpCode { return ntl.Binary{Op: ntl.Or, Arg1: a, Arg2: b} }, X, O, Z, O},
		{"xor unknown", func(a, b, _ ntl.Wire) ntl.OpCode { return ntl.Binary{Op: ntl.Xor, Arg1: a, Arg2: b} }, X, O, Z, X},
		{"not", func(a, _, _ ntl.Wire) ntl.OpCode { return ntl.Not{Arg: a} }, Z, Z, Z, O},
		{"select true", func(a, b, c ntl.Wire) ntl.OpCode { return ntl.Select{Cond: a, TrueValue: b, FalseValue: c} }, O, O, Z, O},
		{"select unknown agreeing", func(a, b, c ntl.Wire) ntl.OpCode { return ntl.Select{Cond: a, TrueValue: b, FalseValue: c} }, X, Z, Z, Z},
		{"select unknown differing", func(a, b, c ntl.Wire) ntl.OpCode { return ntl.Select{Cond: a, TrueValue: b, FalseValue: c} }, X, O, Z, X},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obj := ntl.NewObject("gate")
			in := obj.AddInput("x", 3, rhif.Data, diag.Span{})
			out := obj.AddRegister("", diag.Span{})
			op := ntl.Rename(tc.op(in[0], in[1], in[2]), func(w ntl.Wire) ntl.Wire {
				if w.IsNone() {
					return out
				}
				return w
			})
			obj.Emit(op, diag.Span{})
			obj.Outputs = []ntl.Wire{out}

			arg := typedbits.TypedBits{Kind: kind.Bits{Width: 3}, Bits: []typedbits.Bit{tc.a, tc.b, tc.c}}
			got, err := Run(obj, []typedbits.TypedBits{arg}, nil)
			require.NoError(t, err)
			assert.Equal(t, []typedbits.Bit{tc.want}, got.Bits)
		})
	}
}

func vectorObject(op typedbits.BinaryOp, w, outW int, signed bool) *ntl.Object {
	obj := ntl.NewObject("vec")
	a := obj.AddInput("a", w, rhif.Data, diag.Span{})
	b := obj.AddInput("b", w, rhif.Data, diag.Span{})
	r := obj.AddRegisters("r", outW, diag.Span{})
	obj.Emit(ntl.Vector{Op: op, Lhs: r, Arg1: a, Arg2: b, Signed: signed}, diag.Span{})
	obj.Outputs = r
	return obj
}

func TestVector(t *testing.T) {
	tests := []struct {
		name   string
		op     typedbits.BinaryOp
		signed bool
		outW   int
		a, b   uint64
		want   uint64
	}{
		{"add wraps", typedbits.Add, false, 4, 9, 9, 2},
		{"sub", typedbits.Sub, false, 4, 3, 5, 14},
		{"mul", typedbits.Mul, false, 4, 3, 5, 15},
		{"unsigned lt", typedbits.Lt, false, 1, 0b1111, 1, 0},
		{"signed lt", typedbits.Lt, true, 1, 0b1111, 1, 1},
		{"shift right arithmetic", typedbits.Shr, true, 4, 0b1000, 2, 0b1110},
		{"shift right logical", typedbits.Shr, false, 4, 0b1000, 2, 0b0010},
		{"shift left", typedbits.Shl, false, 4, 0b0011, 3, 0b1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Run(vectorObject(tc.op, 4, tc.outW, tc.signed), []typedbits.TypedBits{u(4, tc.a), u(4, tc.b)}, nil)
			require.NoError(t, err)
			n, ok := got.ToUint64()
			require.True(t, ok)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestReductionAndCase(t *testing.T) {
	obj := ntl.NewObject("red")
	a := obj.AddInput("a", 2, rhif.Data, diag.Span{})
	nz := obj.AddRegisters("nz", 1, diag.Span{})
	obj.Emit(ntl.Unary{Op: typedbits.Any, Lhs: nz, Arg: a}, diag.Span{})
	r := obj.AddRegisters("r", 2, diag.Span{})
	obj.Emit(ntl.Case{Lhs: r, Discriminant: a, Table: []ntl.CaseEntry{
		{Arg: ntl.CaseArgument{Key: []typedbits.Bit{typedbits.One, typedbits.Zero}}, Value: obj.AddLiterals(u(2, 3).Bits, diag.Span{})},
		{Arg: ntl.CaseArgument{Wild: true}, Value: []ntl.Wire{nz[0], nz[0]}},
	}}, diag.Span{})
	obj.Outputs = r

	for in, want := range map[uint64]string{0: "00", 1: "11", 2: "11", 3: "11"} {
		got, err := Run(obj, []typedbits.TypedBits{u(2, in)}, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got.BinaryString(), "a=%d", in)
	}

	got, err := Run(obj, []typedbits.TypedBits{typedbits.Unknowns(kind.Bits{Width: 2})}, nil)
	require.NoError(t, err)
	assert.Equal(t, "xx", got.BinaryString())
}

func TestBlackBoxModel(t *testing.T) {
	obj := ntl.NewObject("bb")
	a := obj.AddInput("a", 3, rhif.Data, diag.Span{})
	r := obj.AddRegisters("r", 3, diag.Span{})
	obj.Emit(ntl.BlackBox{Lhs: r, Name: "rev", Args: [][]ntl.Wire{a}}, diag.Span{})
	obj.Outputs = r

	models := Models{"rev": func(args []typedbits.TypedBits) (typedbits.TypedBits, error) {
		b := args[0].Bits
		return typedbits.FromBits(kind.Bits{Width: 3}, []typedbits.Bit{b[2], b[1], b[0]})
	}}

	got, err := Run(obj, []typedbits.TypedBits{u(3, 0b001)}, models)
	require.NoError(t, err)
	assert.Equal(t, "100", got.BinaryString())

	got, err = Run(obj, []typedbits.TypedBits{u(3, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "xxx", got.BinaryString())
}

func TestRunChecksArguments(t *testing.T) {
	obj := vectorObject(typedbits.Add, 4, 4, false)

	_, err := Run(obj, []typedbits.TypedBits{u(4, 1)}, nil)
	assert.ErrorContains(t, err, "takes 2 arguments")

	_, err = Run(obj, []typedbits.TypedBits{u(4, 1), u(3, 1)}, nil)
	assert.ErrorContains(t, err, "has 3 bits, want 4")
}
