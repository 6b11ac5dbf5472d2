package rhifvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

var (
	b8    = kind.Bits{Width: 8}
	b2    = kind.Bits{Width: 2}
	point = kind.Struct{Name: "Point", Fields: []kind.Field{
		{Name: "x", Kind: b8},
		{Name: "y", Kind: b8},
	}}
)

func u8(v uint64) typedbits.TypedBits { return typedbits.FromUint64(b8, v) }

func TestRunAdd(t *testing.T) {
	obj := rhif.NewObject("add")
	a := obj.AddArgument(b8, "a", rhif.Data, diag.Span{})
	b := obj.AddArgument(b8, "b", rhif.Data, diag.Span{})
	r := obj.AddRegister(b8, "", diag.Span{})
	obj.Emit(rhif.Binary{Op: typedbits.Add, Lhs: r, Arg1: a, Arg2: b}, diag.Span{})
	obj.Return = r

	got, err := Run(obj, []typedbits.TypedBits{u8(20), u8(10)}, nil)
	require.NoError(t, err)
	v, _ := got.ToUint64()
	assert.Equal(t, uint64(30), v)
}

func TestRunAggregates(t *testing.T) {
	arr := kind.Array{Base: point, Size: 4}

	obj := rhif.NewObject("agg")
	x := obj.AddArgument(b8, "x", rhif.Data, diag.Span{})
	i := obj.AddArgument(b2, "i", rhif.Data, diag.Span{})

	p := obj.AddRegister(point, "p", diag.Span{})
	obj.Emit(rhif.Struct{
		Lhs:      p,
		Fields:   []rhif.FieldValue{{Name: "y", Value: x}},
		Template: typedbits.Zeros(point),
	}, diag.Span{})

	a := obj.AddRegister(arr, "a", diag.Span{})
	obj.Emit(rhif.Repeat{Lhs: a, Value: p, Len: 4}, diag.Span{})

	// a[i].y + 1
	e := obj.AddRegister(b8, "", diag.Span{})
	obj.Emit(rhif.Index{Lhs: e, Arg: a, Path: kind.Path{kind.DynamicIndex{Slot: i}, kind.Member{Name: "y"}}}, diag.Span{})
	one := obj.AddLiteral(u8(1), diag.Span{})
	r := obj.AddRegister(b8, "", diag.Span{})
	obj.Emit(rhif.Binary{Op: typedbits.Add, Lhs: r, Arg1: e, Arg2: one}, diag.Span{})
	obj.Return = r

	got, err := Run(obj, []typedbits.TypedBits{u8(41), typedbits.FromUint64(b2, 3)}, nil)
	require.NoError(t, err)
	v, _ := got.ToUint64()
	assert.Equal(t, uint64(42), v)

	idx := typedbits.Unknowns(b2)
	got, err = Run(obj, []typedbits.TypedBits{u8(41), idx}, nil)
	require.NoError(t, err)
	assert.Equal(t, "xxxxxxxx", got.BinaryString())
}

func TestRunEnumAndCase(t *testing.T) {
	en := kind.Enum{Name: "Cmd", Variants: []kind.Variant{
		{Name: "Idle", Discriminant: 0, Payload: kind.Empty{}},
		{Name: "Load", Discriminant: 1, Payload: b8},
	}, Layout: kind.Layout{Width: 1}}

	obj := rhif.NewObject("cmd")
	x := obj.AddArgument(b8, "x", rhif.Data, diag.Span{})

	load, err := typedbits.EnumValue(en, "Load")
	require.NoError(t, err)

	c := obj.AddRegister(en, "c", diag.Span{})
	obj.Emit(rhif.Enum{Lhs: c, Variant: "Load", Fields: []rhif.FieldValue{{Name: "0", Value: x}}, Template: load}, diag.Span{})

	d := obj.AddRegister(en.DiscriminantKind(), "", diag.Span{})
	obj.Emit(rhif.Index{Lhs: d, Arg: c, Path: kind.Path{kind.Discriminant{}}}, diag.Span{})

	zero := obj.AddLiteral(typedbits.FromUint64(kind.Bits{Width: 1}, 0), diag.Span{})
	payload := obj.AddRegister(b8, "", diag.Span{})
	obj.Emit(rhif.Index{Lhs: payload, Arg: c, Path: kind.Path{kind.EnumPayload{Variant: "Load"}}}, diag.Span{})

	r := obj.AddRegister(b8, "", diag.Span{})
	obj.Emit(rhif.Case{Lhs: r, Discriminant: d, Table: []rhif.CaseEntry{
		{Arg: rhif.CaseArgument{Literal: zero}, Value: obj.AddLiteral(u8(0), diag.Span{})},
		{Arg: rhif.CaseArgument{Wild: true}, Value: payload},
	}}, diag.Span{})
	obj.Return = r

	got, err := Run(obj, []typedbits.TypedBits{u8(99)}, nil)
	require.NoError(t, err)
	v, _ := got.ToUint64()
	assert.Equal(t, uint64(99), v)
}

func TestRunExec(t *testing.T) {
	inc := rhif.NewObject("inc")
	a := inc.AddArgument(b8, "a", rhif.Data, diag.Span{})
	r := inc.AddRegister(b8, "", diag.Span{})
	inc.Emit(rhif.Binary{Op: typedbits.Add, Lhs: r, Arg1: a, Arg2: inc.AddLiteral(u8(1), diag.Span{})}, diag.Span{})
	inc.Return = r

	top := rhif.NewObject("top")
	x := top.AddArgument(b8, "x", rhif.Data, diag.Span{})
	top.Externals[0] = rhif.External{Name: "inc", Object: inc}
	top.Externals[1] = rhif.External{Name: "reg", BlackBox: &rhif.BlackBox{Name: "reg", Args: []kind.Kind{b8}, Ret: b8, Synchronous: true}}
	y := top.AddRegister(b8, "", diag.Span{})
	top.Emit(rhif.Exec{Lhs: y, ID: 0, Args: []rhif.Slot{x}}, diag.Span{})
	z := top.AddRegister(b8, "", diag.Span{})
	top.Emit(rhif.Exec{Lhs: z, ID: 1, Args: []rhif.Slot{y}}, diag.Span{})
	top.Return = z

	got, err := Run(top, []typedbits.TypedBits{u8(5)}, nil)
	require.NoError(t, err)
	assert.False(t, got.IsKnown(), "black box without a model is unknown")

	models := Models{"reg": func(args []typedbits.TypedBits) (typedbits.TypedBits, error) {
		return args[0], nil
	}}
	got, err = Run(top, []typedbits.TypedBits{u8(5)}, models)
	require.NoError(t, err)
	v, _ := got.ToUint64()
	assert.Equal(t, uint64(6), v)
}

func TestRunReadBeforeWrite(t *testing.T) {
	obj := rhif.NewObject("bad")
	r := obj.AddRegister(b8, "", diag.Span{})
	s := obj.AddRegister(b8, "", diag.Span{})
	obj.Emit(rhif.Assign{Lhs: s, Rhs: r}, diag.Span{})
	obj.Return = s

	_, err := Run(obj, nil, nil)
	assert.Error(t, err)
}

func TestCaseMatchesEnumByDiscriminant(t *testing.T) {
	en := kind.Enum{Name: "Cmd", Variants: []kind.Variant{
		{Name: "Idle", Discriminant: 0, Payload: kind.Empty{}},
		{Name: "Load", Discriminant: 1, Payload: b8},
	}, Layout: kind.Layout{Width: 1}}

	key, err := typedbits.EnumValue(en, "Load")
	require.NoError(t, err)
	v, err := key.SplicePath(kind.Path{kind.EnumPayload{Variant: "Load"}}, u8(7))
	require.NoError(t, err)

	assert.True(t, CaseMatches(key, v), "payload is ignored")

	idle, err := typedbits.EnumValue(en, "Idle")
	require.NoError(t, err)
	assert.False(t, CaseMatches(idle, v))
	assert.False(t, CaseMatches(u8(1), u8(2)))
}
