// Package rtlgen lowers RHIF objects to RTL. Symbolic paths become bit
// ranges, aggregates are built with concatenation and splicing, dynamic
// indices become cases over every legal index value and calls to sibling
// objects are inlined.
package rtlgen

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// MaxInlineDepth bounds nested inlining. Deeper call chains are rejected as
// recursive.
const MaxInlineDepth = 64

// Lower translates a checked RHIF object into a new RTL object.
func Lower(src *rhif.Object) (*rtl.Object, error) {
	dst := rtl.NewObject(src.Name)

	a := NewRegAllocator(dst, src, "")
	a.MapParams()

	g := &gen{dst: dst}
	if err := g.body(a, 0); err != nil {
		return nil, err
	}

	dst.Return = a.Map(src.Return)

	return dst, nil
}

type gen struct {
	dst *rtl.Object
}

func (g *gen) emit(op rtl.OpCode, loc diag.Span) {
	g.dst.Emit(op, loc)
}

func (g *gen) body(a *RegAllocator, depth int) error {
	for _, lop := range a.src.Ops {
		if err := g.op(a, lop, depth); err != nil {
			return err
		}
	}
	return nil
}

func (g *gen) op(a *RegAllocator, lop rhif.Located, depth int) error {
	loc := lop.Loc
	src := a.src

	switch o := lop.Op.(type) {
	case rhif.Noop:
	case rhif.Comment:
		g.emit(rtl.Comment{Text: o.Text}, loc)

	case rhif.Assign:
		g.emit(rtl.Assign{Lhs: a.Map(o.Lhs), Rhs: a.Map(o.Rhs)}, loc)
	case rhif.Retime:
		g.emit(rtl.Assign{Lhs: a.Map(o.Lhs), Rhs: a.Map(o.Arg)}, loc)

	case rhif.Binary:
		g.emit(rtl.Binary{Op: o.Op, Lhs: a.Map(o.Lhs), Arg1: a.Map(o.Arg1), Arg2: a.Map(o.Arg2)}, loc)
	case rhif.Unary:
		g.emit(rtl.Unary{Op: o.Op, Lhs: a.Map(o.Lhs), Arg1: a.Map(o.Arg1)}, loc)
	case rhif.Select:
		g.emit(rtl.Select{Lhs: a.Map(o.Lhs), Cond: a.Map(o.Cond), TrueValue: a.Map(o.TrueValue), FalseValue: a.Map(o.FalseValue)}, loc)

	case rhif.Index:
		k := src.Kind(o.Arg)
		arg := a.Map(o.Arg)
		return g.expand(a, loc, k, o.Path, a.Map(o.Lhs), func(p kind.Path, into rtl.Operand) error {
			start, end, _, err := kind.BitRange(k, p)
			if err != nil {
				return diag.Internal(src.Dump(), "index %s of %s: %v", p, k, err)
			}
			g.emit(rtl.Index{Lhs: into, Arg: arg, Start: start, End: end}, loc)
			return nil
		})

	case rhif.Splice:
		k := src.Kind(o.Orig)
		orig, subst := a.Map(o.Orig), a.Map(o.Subst)
		return g.expand(a, loc, k, o.Path, a.Map(o.Lhs), func(p kind.Path, into rtl.Operand) error {
			start, end, _, err := kind.BitRange(k, p)
			if err != nil {
				return diag.Internal(src.Dump(), "splice %s of %s: %v", p, k, err)
			}
			g.emit(rtl.Splice{Lhs: into, Orig: orig, Start: start, End: end, Value: subst}, loc)
			return nil
		})

	case rhif.Concat:
		g.emit(rtl.Concat{Lhs: a.Map(o.Lhs), Args: a.MapAll(o.Args)}, loc)
	case rhif.Tuple:
		g.emit(rtl.Concat{Lhs: a.Map(o.Lhs), Args: a.MapAll(o.Fields)}, loc)
	case rhif.Array:
		g.emit(rtl.Concat{Lhs: a.Map(o.Lhs), Args: a.MapAll(o.Elements)}, loc)
	case rhif.Repeat:
		v := a.Map(o.Value)
		args := make([]rtl.Operand, o.Len)
		for i := range args {
			args[i] = v
		}
		g.emit(rtl.Concat{Lhs: a.Map(o.Lhs), Args: args}, loc)

	case rhif.Struct:
		base := o.Rest
		paths := make([]kind.Path, len(o.Fields))
		for i, f := range o.Fields {
			p, err := rhif.FieldPath(o.Template.Kind, f.Name)
			if err != nil {
				return diag.Internal(src.Dump(), "%v", err)
			}
			paths[i] = p
		}
		return g.build(a, loc, o.Lhs, base, o.Template, o.Fields, paths)

	case rhif.Enum:
		paths := make([]kind.Path, len(o.Fields))
		for i, f := range o.Fields {
			p, err := rhif.EnumFieldPath(o.Template.Kind, o.Variant, f.Name)
			if err != nil {
				return diag.Internal(src.Dump(), "%v", err)
			}
			paths[i] = p
		}
		return g.build(a, loc, o.Lhs, rhif.Slot{}, o.Template, o.Fields, paths)

	case rhif.Case:
		return g.lowerCase(a, loc, o)

	case rhif.Exec:
		return g.exec(a, loc, o, depth)

	case rhif.AsBits:
		g.emit(rtl.Cast{Lhs: a.Map(o.Lhs), Arg: a.Map(o.Arg), Len: o.Len, Kind: rtl.Unsigned}, loc)
	case rhif.AsSigned:
		g.emit(rtl.Cast{Lhs: a.Map(o.Lhs), Arg: a.Map(o.Arg), Len: o.Len, Kind: rtl.Signed}, loc)
	case rhif.Resize:
		g.emit(rtl.Cast{Lhs: a.Map(o.Lhs), Arg: a.Map(o.Arg), Len: o.Len, Kind: rtl.Resize}, loc)

	default:
		return diag.Internal(src.Dump(), "rtlgen: unknown opcode %T", lop.Op)
	}

	return nil
}

// build writes lhs as base (or the template when base is None) with every
// field spliced in at its path.
func (g *gen) build(a *RegAllocator, loc diag.Span, lhs, base rhif.Slot, template typedbits.TypedBits, fields []rhif.FieldValue, paths []kind.Path) error {
	var cur rtl.Operand
	if base.IsNone() {
		cur = g.dst.AddLiteral(Flatten(template), loc)
	} else {
		cur = a.Map(base)
	}

	out := a.Map(lhs)

	if len(fields) == 0 {
		g.emit(rtl.Assign{Lhs: out, Rhs: cur}, loc)
		return nil
	}

	for i, f := range fields {
		start, end, _, err := kind.BitRange(template.Kind, paths[i])
		if err != nil {
			return diag.Internal(a.src.Dump(), "field %s of %s: %v", f.Name, template.Kind, err)
		}

		next := out
		if i < len(fields)-1 {
			next = a.Fresh(template.Kind, loc)
		}
		g.emit(rtl.Splice{Lhs: next, Orig: cur, Start: start, End: end, Value: a.Map(f.Value)}, loc)
		cur = next
	}

	return nil
}

// expand lowers an access along p. Static paths produce a single access
// written to into. Each dynamic index becomes a case over its legal values
// whose arms hold the access for that value; the last arm is the wildcard,
// so out-of-range indices select the last element.
func (g *gen) expand(a *RegAllocator, loc diag.Span, k kind.Kind, p kind.Path, into rtl.Operand, each func(kind.Path, rtl.Operand) error) error {
	dyn := p.Dynamic()
	if len(dyn) == 0 {
		return each(p, into)
	}

	bounds, err := kind.DynamicBounds(k, p)
	if err != nil {
		return diag.Internal(a.src.Dump(), "dynamic path %s of %s: %v", p, k, err)
	}

	return g.expandLevel(a, loc, p, dyn, bounds, nil, into, each)
}

func (g *gen) expandLevel(a *RegAllocator, loc diag.Span, p kind.Path, dyn []rhif.Slot, bounds, values []int, into rtl.Operand, each func(kind.Path, rtl.Operand) error) error {
	level := len(values)
	if level == len(dyn) {
		return each(p.Substitute(values), into)
	}

	idx := a.Map(dyn[level])
	ik := g.dst.Kind(idx)

	n := bounds[level]
	if w := ik.BitWidth(); w < 62 && 1<<uint(w) < n {
		n = 1 << uint(w)
	}

	table := make([]rtl.CaseEntry, 0, n)
	for i := 0; i < n; i++ {
		arm := g.dst.AddRegister(g.dst.Kind(into), "", loc)
		if err := g.expandLevel(a, loc, p, dyn, bounds, append(values[:level:level], i), arm, each); err != nil {
			return err
		}

		arg := rtl.CaseArgument{Wild: true}
		if i < n-1 {
			arg = rtl.CaseArgument{Literal: g.dst.AddLiteral(typedbits.FromUint64(ik, uint64(i)), loc)}
		}
		table = append(table, rtl.CaseEntry{Arg: arg, Value: arm})
	}

	g.emit(rtl.Case{Lhs: into, Discriminant: idx, Table: table}, loc)
	return nil
}

// lowerCase flattens case keys. A case still switching on a whole enum value
// switches on its discriminant bits instead.
func (g *gen) lowerCase(a *RegAllocator, loc diag.Span, o rhif.Case) error {
	dk := a.src.Kind(o.Discriminant)
	disc := a.Map(o.Discriminant)

	en, isEnum := kind.Strip(dk).(kind.Enum)
	if isEnum {
		start, end := en.DiscriminantRange()
		d := g.dst.AddRegister(kind.Flat(en.DiscriminantKind()), "", loc)
		g.emit(rtl.Index{Lhs: d, Arg: disc, Start: start, End: end}, loc)
		disc = d
	}

	table := make([]rtl.CaseEntry, len(o.Table))
	for i, e := range o.Table {
		arg := rtl.CaseArgument{Wild: e.Arg.Wild}
		if !e.Arg.Wild {
			if isEnum {
				v, _ := a.src.Literal(e.Arg.Literal)
				d, err := v.Path(kind.Path{kind.Discriminant{}})
				if err != nil {
					return diag.Internal(a.src.Dump(), "case key %s: %v", v, err)
				}
				arg.Literal = g.dst.AddLiteral(Flatten(d), a.src.Span(e.Arg.Literal))
			} else {
				arg.Literal = a.Map(e.Arg.Literal)
			}
		}
		table[i] = rtl.CaseEntry{Arg: arg, Value: a.Map(e.Value)}
	}

	g.emit(rtl.Case{Lhs: a.Map(o.Lhs), Discriminant: disc, Table: table}, loc)
	return nil
}

// exec inlines a sibling object or instantiates a black box.
func (g *gen) exec(a *RegAllocator, loc diag.Span, o rhif.Exec, depth int) error {
	ext, ok := a.src.Externals[o.ID]
	if !ok {
		return diag.Internal(a.src.Dump(), "call to unknown external f%d", o.ID)
	}

	switch {
	case ext.BlackBox != nil:
		g.emit(rtl.BlackBox{
			Lhs:         a.Map(o.Lhs),
			Name:        ext.BlackBox.Name,
			Args:        a.MapAll(o.Args),
			Synchronous: ext.BlackBox.Synchronous,
		}, loc)
		return nil

	case ext.Object != nil:
		if depth >= MaxInlineDepth {
			return diag.Legality(loc, "call to %s nests more than %d levels deep; recursive kernels cannot be synthesized", ext.Name, MaxInlineDepth)
		}

		callee := ext.Object
		if len(callee.Arguments) != len(o.Args) {
			return diag.Internal(a.src.Dump(), "%s takes %d arguments, %d given", ext.Name, len(callee.Arguments), len(o.Args))
		}

		ca := NewRegAllocator(g.dst, callee, ext.Name)

		g.emit(rtl.Comment{Text: "inline " + ext.Name}, loc)
		for i, arg := range callee.Arguments {
			g.emit(rtl.Assign{Lhs: ca.Map(symtab.Reg(arg.Reg)), Rhs: a.Map(o.Args[i])}, loc)
		}

		if err := g.body(ca, depth+1); err != nil {
			return err
		}

		if !o.Lhs.IsNone() {
			g.emit(rtl.Assign{Lhs: a.Map(o.Lhs), Rhs: ca.Map(callee.Return)}, loc)
		}
		return nil
	}

	return diag.Internal(a.src.Dump(), "call to unresolved external %s", ext.Name)
}
