package kernelyaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rhifvm"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

var b8 = kind.Bits{Width: 8}

const addDoc = `kernels:
  - name: add
    args: [{name: a, kind: b8}, {name: b, kind: b8}]
    regs: [{name: sum, kind: b8}]
    ops:
      - {op: add, lhs: sum, args: [a, b]}
    return: sum
`

func u8(v uint64) typedbits.TypedBits { return typedbits.FromUint64(b8, v) }

func text(doc string, s diag.Span) string { return doc[s.Start:s.End] }

func TestParseAdd(t *testing.T) {
	objs, err := Parse("add.yaml", []byte(addDoc))
	require.NoError(t, err)
	require.Len(t, objs, 1)

	obj := objs[0]
	assert.Equal(t, "add", obj.Name)
	require.Len(t, obj.Arguments, 2)
	require.Len(t, obj.Ops, 1)
	assert.Equal(t, "sum", obj.RegisterName(obj.Return))

	loc := obj.Ops[0].Loc
	assert.Equal(t, "add.yaml", loc.File)
	assert.Equal(t, "{op: add, lhs: sum, args: [a, b]}", text(addDoc, loc))

	v, err := rhifvm.Run(obj, []typedbits.TypedBits{u8(20), u8(10)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "30_b8", v.String())
}

func TestParseKind(t *testing.T) {
	types := map[string]kind.Kind{
		"Point": kind.Struct{Name: "Point", Fields: []kind.Field{{Name: "x", Kind: b8}}},
	}

	tests := []struct {
		in   string
		want kind.Kind
		err  string
	}{
		{in: "b8", want: b8},
		{in: "s12", want: kind.Signed{Width: 12}},
		{in: "()", want: kind.Empty{}},
		{in: "[b8; 4]", want: kind.Array{Base: b8, Size: 4}},
		{in: "(b8, s4,)", want: kind.Tuple{Elements: []kind.Kind{b8, kind.Signed{Width: 4}}}},
		{in: "Signal<[b8; 2], red>", want: kind.Signal{Inner: kind.Array{Base: b8, Size: 2}, Color: kind.Red}},
		{in: "Point", want: types["Point"]},
		{in: "b0", err: "unknown kind"},
		{in: "q8", err: "unknown kind"},
		{in: "[b8 4]", err: "expected ';'"},
		{in: "b8 b8", err: "unexpected"},
		{in: "Signal<b8, mauve>", err: "unknown domain color"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in, types)
			if tt.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, kind.Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseLiteral(t *testing.T) {
	state := kind.Enum{Name: "State", Variants: []kind.Variant{
		{Name: "Idle", Discriminant: 0, Payload: kind.Empty{}},
		{Name: "Run", Discriminant: 1, Payload: b8},
	}, Layout: kind.Layout{Width: 1}}
	types := map[string]kind.Kind{"State": state}

	tests := []struct {
		in   string
		bits string
		kind kind.Kind
		err  string
	}{
		{in: "200_b8", bits: "11001000", kind: b8},
		{in: "0xff_b8", bits: "11111111", kind: b8},
		{in: "0b101_b3", bits: "101", kind: kind.Bits{Width: 3}},
		{in: "-3_s8", bits: "11111101", kind: kind.Signed{Width: 8}},
		{in: "-128_s8", bits: "10000000", kind: kind.Signed{Width: 8}},
		{in: "127_s8", bits: "01111111", kind: kind.Signed{Width: 8}},
		{in: "State::Run", bits: "000000001", kind: state},
		{in: "256_b8", err: "does not fit"},
		{in: "128_s8", err: "does not fit"},
		{in: "-129_s8", err: "does not fit"},
		{in: "-1_b8", err: "negative value"},
		{in: "0b102_b3", err: "binary digit"},
		{in: "3_State", err: "not a numeric kind"},
		{in: "State::Stop", err: "no variant"},
		{in: "b8::X", err: "not an enum"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLiteral(tt.in, types)
			if tt.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bits, got.BinaryString())
			assert.True(t, kind.Equal(tt.kind, got.Kind), "kind %s", got.Kind)
		})
	}

	lit, err := ParseLiteral("42", nil)
	require.NoError(t, err)
	assert.True(t, kind.IsIntegerLiteral(lit.Kind))
	v, ok := lit.ToInt64()
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestParsePath(t *testing.T) {
	i := symtab.Reg(3)
	reg := func(name string) (symtab.Ref, error) {
		if name == "i" {
			return i, nil
		}
		return symtab.Ref{}, assert.AnError
	}

	got, err := parsePath(".x[2][i]#Run.0.val()#", reg)
	require.NoError(t, err)

	want := kind.Path{
		kind.Member{Name: "x"},
		kind.Index{Index: 2},
		kind.DynamicIndex{Slot: i},
		kind.EnumPayload{Variant: "Run"},
		kind.TupleIndex{Index: 0},
		kind.SignalValue{},
		kind.Discriminant{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	_, err = parsePath("[j]", reg)
	require.Error(t, err)

	_, err = parsePath("x", reg)
	require.Error(t, err)
}

const stepDoc = `types:
  - name: State
    enum:
      variants:
        - {name: Idle, discriminant: 0}
        - {name: Run, discriminant: 1, kind: b8}
  - name: Pair
    struct:
      - {name: lo, kind: b8}
      - {name: hi, kind: b8}
kernels:
  - name: step
    args:
      - {name: s, kind: State}
    regs:
      - {name: p, kind: b8}
      - {name: r, kind: b8}
      - {name: pair, kind: Pair}
    ops:
      - {op: index, lhs: p, args: [s], path: "#Run"}
      - op: case
        lhs: r
        args: [s]
        table:
          - {key: "State::Idle", value: 0_b8}
          - {key: _, value: p}
      - {op: struct, lhs: pair, fields: [{name: lo, value: r}, {name: hi, value: 0xa5_b8}]}
    return: pair
`

func TestParseAggregates(t *testing.T) {
	objs, err := Parse("step.yaml", []byte(stepDoc))
	require.NoError(t, err)

	obj := objs[0]
	state := obj.Kind(symtab.Reg(obj.Arguments[0].Reg)).(kind.Enum)
	assert.Equal(t, 1, state.Layout.Width, "width fits the widest discriminant")

	run, err := typedbits.EnumValue(state, "Run")
	require.NoError(t, err)
	run, err = run.SplicePath(kind.Path{kind.EnumPayload{Variant: "Run"}}, u8(7))
	require.NoError(t, err)
	idle, err := typedbits.EnumValue(state, "Idle")
	require.NoError(t, err)

	require.Len(t, obj.Ops, 3)
	assert.IsType(t, rhif.Case{}, obj.Ops[1].Op)
	assert.Equal(t, "op: case", text(stepDoc, obj.Ops[1].Loc))

	v, err := rhifvm.Run(obj, []typedbits.TypedBits{run}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1010010100000111", v.BinaryString())

	v, err = rhifvm.Run(obj, []typedbits.TypedBits{idle}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1010010100000000", v.BinaryString())
}

func TestParseCalls(t *testing.T) {
	doc := `black_boxes:
  - {name: dff, args: [b8], ret: b8, sync: true}
kernels:
  - name: top
    args: [{name: clk, kind: b1, role: clock}, {name: x, kind: b8}]
    regs: [{name: q, kind: b8}, {name: y, kind: b8}]
    ops:
      - {op: exec, lhs: q, call: dff, args: [x]}
      - {op: exec, lhs: y, call: inc, args: [q]}
      - {op: exec, call: dff, args: [y]}
    return: y
`
	objs, err := Parse("top.yaml", []byte(doc))
	require.NoError(t, err)

	obj := objs[0]
	assert.Equal(t, rhif.Clock, obj.Arguments[0].Role)
	require.Len(t, obj.Externals, 2)

	dff := obj.Externals[0]
	require.NotNil(t, dff.BlackBox)
	assert.True(t, dff.BlackBox.Synchronous)

	inc := obj.Externals[1]
	assert.Equal(t, "inc", inc.Name)
	assert.Nil(t, inc.BlackBox)
	assert.Nil(t, inc.Object)

	last := obj.Ops[2].Op.(rhif.Exec)
	assert.True(t, last.Lhs.IsNone())
	assert.Equal(t, rhif.FuncID(0), last.ID)
}

func TestParseErrors(t *testing.T) {
	kernel := func(ops string) string {
		return "kernels:\n  - name: k\n    args: [{name: a, kind: b8}]\n    regs: [{name: r, kind: b8}]\n    ops:\n" + ops
	}

	tests := []struct {
		name  string
		doc   string
		class diag.Class
		msg   string
		at    string
	}{
		{
			name:  "unknown register",
			doc:   kernel("      - {op: add, lhs: r, args: [a, z]}\n"),
			class: diag.LegalityError,
			msg:   "unknown register z",
			at:    "{op: add, lhs: r, args: [a, z]}",
		},
		{
			name:  "literal overflow",
			doc:   kernel("      - {op: add, lhs: r, args: [a, 300_b8]}\n"),
			class: diag.TypeError,
			msg:   "does not fit",
			at:    "{op: add, lhs: r, args: [a, 300_b8]}",
		},
		{
			name:  "arity",
			doc:   kernel("      - {op: select, lhs: r, args: [a]}\n"),
			class: diag.LegalityError,
			msg:   "select takes 3 operands",
		},
		{
			name:  "unknown opcode",
			doc:   kernel("      - {op: frobnicate, lhs: r, args: [a]}\n"),
			class: diag.LegalityError,
			msg:   "unknown opcode frobnicate",
		},
		{
			name:  "bad kind",
			doc:   "kernels:\n  - name: k\n    args: [{name: a, kind: z8}]\n",
			class: diag.LegalityError,
			msg:   "unknown kind z8",
		},
		{
			name:  "duplicate kernel",
			doc:   "kernels:\n  - name: k\n  - name: k\n",
			class: diag.LegalityError,
			msg:   "declared twice",
		},
		{
			name:  "bad role",
			doc:   "kernels:\n  - name: k\n    args: [{name: a, kind: b1, role: enable}]\n",
			class: diag.LegalityError,
			msg:   "unknown role",
		},
		{
			name:  "enum overflow",
			doc:   "types:\n  - name: E\n    enum: {width: 1, variants: [{name: A, discriminant: 2}]}\n",
			class: diag.LegalityError,
			msg:   "does not fit in 1 bits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("k.yaml", []byte(tt.doc))
			require.Error(t, err)

			c, ok := diag.ClassOf(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tt.class, c, "%v", err)
			assert.Contains(t, err.Error(), tt.msg)

			if tt.at != "" {
				e := err.(*diag.Error)
				assert.Equal(t, tt.at, text(tt.doc, e.Spans()[0]))
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.yaml")
	require.NoError(t, os.WriteFile(path, []byte(addDoc), 0o644))

	objs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, path, objs[0].Ops[0].Loc.File)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestGoldenDumps pins the RHIF text of the kernels shared with the CLI tests.
// Run with -update to rewrite the fixtures.
func TestGoldenDumps(t *testing.T) {
	objs, err := Load("../../testdata/kernels/calls.yaml")
	require.NoError(t, err)
	require.Len(t, objs, 3)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, obj := range objs {
		t.Run(obj.Name, func(t *testing.T) {
			g.Assert(t, obj.Name, []byte(obj.Dump()))
		})
	}
}
