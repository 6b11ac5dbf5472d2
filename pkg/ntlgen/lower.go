// Package ntlgen bit-blasts RTL objects into NTL netlists. Every RTL operand
// becomes one wire per bit. Bitwise operations, selects and all data movement
// become per-bit opcodes; arithmetic, comparisons, reductions and cases stay
// vector opcodes over those wires.
package ntlgen

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Lower translates an RTL object into a new NTL object.
func Lower(src *rtl.Object) (*ntl.Object, error) {
	g := &gen{
		src:   src,
		dst:   ntl.NewObject(src.Name),
		wires: make(map[rtl.Operand][]ntl.Wire),
	}

	for _, a := range src.Arguments {
		o := symtab.Reg(a.Reg)
		g.wires[o] = g.dst.AddInput(src.RegisterName(o), src.Width(o), a.Role, src.Span(o))
	}

	for _, lop := range src.Ops {
		if err := g.op(lop); err != nil {
			return nil, err
		}
	}

	g.dst.Outputs = g.bits(src.Return)

	return g.dst, nil
}

type gen struct {
	src   *rtl.Object
	dst   *ntl.Object
	wires map[rtl.Operand][]ntl.Wire
	zero  map[diag.Span]ntl.Wire
}

// bits returns the wires of an operand, allocating them on first use.
func (g *gen) bits(o rtl.Operand) []ntl.Wire {
	if o.IsNone() {
		return nil
	}
	if ws, ok := g.wires[o]; ok {
		return ws
	}

	var ws []ntl.Wire
	if v, ok := g.src.Literal(o); ok {
		ws = g.dst.AddLiterals(v.Bits, g.src.Span(o))
	} else {
		ws = g.dst.AddRegisters(g.src.RegisterName(o), g.src.Width(o), g.src.Span(o))
	}

	g.wires[o] = ws
	return ws
}

// zeroBit returns a constant zero wire, one per span.
func (g *gen) zeroBit(loc diag.Span) ntl.Wire {
	if g.zero == nil {
		g.zero = make(map[diag.Span]ntl.Wire)
	}
	if w, ok := g.zero[loc]; ok {
		return w
	}
	w := g.dst.AddLiteral(typedbits.Zero, loc)
	g.zero[loc] = w
	return w
}

func (g *gen) emit(op ntl.OpCode, loc diag.Span) {
	g.dst.Emit(op, loc)
}

func (g *gen) copyBits(lhs, rhs []ntl.Wire, loc diag.Span) {
	for i := range lhs {
		g.emit(ntl.Assign{Lhs: lhs[i], Rhs: rhs[i]}, loc)
	}
}

func (g *gen) signed(o rtl.Operand) bool {
	return kind.IsSigned(g.src.Kind(o))
}

func (g *gen) op(lop rtl.Located) error {
	loc := lop.Loc

	switch o := lop.Op.(type) {
	case rtl.Comment:
		g.emit(ntl.Comment{Text: o.Text}, loc)

	case rtl.Assign:
		lhs, rhs := g.bits(o.Lhs), g.bits(o.Rhs)
		if len(lhs) != len(rhs) {
			return g.ice("assign of %d bits to %d bits", len(rhs), len(lhs))
		}
		g.copyBits(lhs, rhs, loc)

	case rtl.Binary:
		lhs, a, b := g.bits(o.Lhs), g.bits(o.Arg1), g.bits(o.Arg2)
		if op, ok := logicOp(o.Op); ok {
			if len(a) != len(lhs) || len(b) != len(lhs) {
				return g.ice("%s over %d, %d bits into %d bits", o.Op, len(a), len(b), len(lhs))
			}
			for i := range lhs {
				g.emit(ntl.Binary{Op: op, Lhs: lhs[i], Arg1: a[i], Arg2: b[i]}, loc)
			}
			return nil
		}
		g.emit(ntl.Vector{Op: o.Op, Lhs: lhs, Arg1: a, Arg2: b, Signed: g.signed(o.Arg1)}, loc)

	case rtl.Unary:
		lhs, a := g.bits(o.Lhs), g.bits(o.Arg1)
		if o.Op == typedbits.Not {
			for i := range lhs {
				g.emit(ntl.Not{Lhs: lhs[i], Arg: a[i]}, loc)
			}
			return nil
		}
		g.emit(ntl.Unary{Op: o.Op, Lhs: lhs, Arg: a, Signed: g.signed(o.Arg1)}, loc)

	case rtl.Select:
		lhs, c := g.bits(o.Lhs), g.bits(o.Cond)
		t, f := g.bits(o.TrueValue), g.bits(o.FalseValue)
		if len(c) != 1 {
			return g.ice("select condition of %d bits", len(c))
		}
		for i := range lhs {
			g.emit(ntl.Select{Lhs: lhs[i], Cond: c[0], TrueValue: t[i], FalseValue: f[i]}, loc)
		}

	case rtl.Index:
		lhs, a := g.bits(o.Lhs), g.bits(o.Arg)
		if o.Start < 0 || o.End > len(a) || o.End-o.Start != len(lhs) {
			return g.ice("index [%d, %d) of %d bits into %d bits", o.Start, o.End, len(a), len(lhs))
		}
		g.copyBits(lhs, a[o.Start:o.End], loc)

	case rtl.Splice:
		lhs, orig, v := g.bits(o.Lhs), g.bits(o.Orig), g.bits(o.Value)
		if len(orig) != len(lhs) || o.End-o.Start != len(v) || o.End > len(lhs) {
			return g.ice("splice of %d bits into [%d, %d) of %d bits", len(v), o.Start, o.End, len(orig))
		}
		for i := range lhs {
			rhs := orig[i]
			if i >= o.Start && i < o.End {
				rhs = v[i-o.Start]
			}
			g.emit(ntl.Assign{Lhs: lhs[i], Rhs: rhs}, loc)
		}

	case rtl.Concat:
		lhs := g.bits(o.Lhs)
		var all []ntl.Wire
		for _, a := range o.Args {
			all = append(all, g.bits(a)...)
		}
		if len(all) != len(lhs) {
			return g.ice("concat of %d bits into %d bits", len(all), len(lhs))
		}
		g.copyBits(lhs, all, loc)

	case rtl.Cast:
		lhs, a := g.bits(o.Lhs), g.bits(o.Arg)
		for i := range lhs {
			var rhs ntl.Wire
			switch {
			case i < len(a):
				rhs = a[i]
			case g.signed(o.Arg) && len(a) > 0:
				rhs = a[len(a)-1]
			default:
				rhs = g.zeroBit(loc)
			}
			g.emit(ntl.Assign{Lhs: lhs[i], Rhs: rhs}, loc)
		}

	case rtl.Case:
		table := make([]ntl.CaseEntry, len(o.Table))
		for i, e := range o.Table {
			arg := ntl.CaseArgument{Wild: e.Arg.Wild}
			if !e.Arg.Wild {
				v, ok := g.src.Literal(e.Arg.Literal)
				if !ok {
					return g.ice("case key %s is not a literal", e.Arg.Literal)
				}
				arg.Key = append([]typedbits.Bit(nil), v.Bits...)
			}
			table[i] = ntl.CaseEntry{Arg: arg, Value: g.bits(e.Value)}
		}
		g.emit(ntl.Case{Lhs: g.bits(o.Lhs), Discriminant: g.bits(o.Discriminant), Table: table}, loc)

	case rtl.BlackBox:
		args := make([][]ntl.Wire, len(o.Args))
		for i, a := range o.Args {
			args[i] = g.bits(a)
		}
		g.emit(ntl.BlackBox{Lhs: g.bits(o.Lhs), Name: o.Name, Args: args, Synchronous: o.Synchronous}, loc)

	default:
		return g.ice("ntlgen: unknown opcode %T", lop.Op)
	}

	return nil
}

func (g *gen) ice(format string, args ...any) error {
	return diag.Internal(g.src.Dump(), format, args...)
}

func logicOp(op typedbits.BinaryOp) (ntl.LogicOp, bool) {
	switch op {
	case typedbits.BitAnd:
		return ntl.And, true
	case typedbits.BitOr:
		return ntl.Or, true
	case typedbits.BitXor:
		return ntl.Xor, true
	}
	return 0, false
}
