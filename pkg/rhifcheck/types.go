package rhifcheck

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

var bit = kind.Bits{Width: 1}

// Types verifies that the operand kinds of every opcode are consistent with
// each other and with the kind written. Signal wrappers are ignored here;
// domains are checked by ClockDomains.
func Types(obj *rhif.Object) error {
	for _, lop := range obj.Ops {
		if err := checkOp(obj, lop); err != nil {
			return err
		}
	}

	for _, a := range obj.Arguments {
		if a.Role == rhif.Data {
			continue
		}
		if k := obj.Kind(symtab.Reg(a.Reg)); !kind.EqualStripped(k, bit) {
			return diag.Type(obj.Symbols.RegisterLoc(a.Reg), "%s input must be a single bit, found %s", a.Role, k)
		}
	}

	return nil
}

type checker struct {
	obj *rhif.Object
	loc diag.Span
}

func (c checker) kind(s rhif.Slot) kind.Kind {
	return c.obj.Kind(s)
}

// same requires want and the kind of s to agree up to signal wrappers.
func (c checker) same(s rhif.Slot, want kind.Kind, what string) error {
	got := c.kind(s)
	if kind.EqualStripped(got, want) {
		return nil
	}
	return diag.Type(slotSpan(c.obj, c.loc, s), "%s: expected %s, found %s", what, kind.Strip(want), kind.Strip(got))
}

func (c checker) width(s rhif.Slot, want int, what string) error {
	if got := c.kind(s).BitWidth(); got != want {
		return diag.Type(slotSpan(c.obj, c.loc, s), "%s: expected %d bits, found %d", what, want, got)
	}
	return nil
}

func checkOp(obj *rhif.Object, lop rhif.Located) error {
	c := checker{obj: obj, loc: lop.Loc}

	switch o := lop.Op.(type) {
	case rhif.Noop, rhif.Comment:
		return nil

	case rhif.Assign:
		return c.same(o.Rhs, c.kind(o.Lhs), "assignment")

	case rhif.Binary:
		if o.Op.IsShift() {
			if kind.IsSigned(c.kind(o.Arg2)) {
				return diag.Type(slotSpan(obj, lop.Loc, o.Arg2), "shift amount must be unsigned, found %s", kind.Strip(c.kind(o.Arg2)))
			}
			return c.same(o.Lhs, c.kind(o.Arg1), "shift result")
		}
		if err := c.same(o.Arg2, c.kind(o.Arg1), "operands of "+o.Op.String()); err != nil {
			return err
		}
		if o.Op.IsComparison() {
			return c.same(o.Lhs, bit, "comparison result")
		}
		return c.same(o.Lhs, c.kind(o.Arg1), "result of "+o.Op.String())

	case rhif.Unary:
		if o.Op.IsReduction() {
			return c.same(o.Lhs, bit, "reduction result")
		}
		return c.same(o.Lhs, c.kind(o.Arg1), "result of "+o.Op.String())

	case rhif.Select:
		if err := c.same(o.Cond, bit, "select condition"); err != nil {
			return err
		}
		if err := c.same(o.TrueValue, c.kind(o.Lhs), "select true arm"); err != nil {
			return err
		}
		return c.same(o.FalseValue, c.kind(o.Lhs), "select false arm")

	case rhif.Index:
		sub, err := kind.SubKind(c.kind(o.Arg), o.Path)
		if err != nil {
			return diag.Type(opSpan(obj, lop.Loc, o.Arg), "%v", err)
		}
		if err := c.indices(o.Path); err != nil {
			return err
		}
		return c.same(o.Lhs, sub, "index result")

	case rhif.Splice:
		sub, err := kind.SubKind(c.kind(o.Orig), o.Path)
		if err != nil {
			return diag.Type(opSpan(obj, lop.Loc, o.Orig), "%v", err)
		}
		if err := c.indices(o.Path); err != nil {
			return err
		}
		if err := c.same(o.Subst, sub, "spliced value"); err != nil {
			return err
		}
		return c.same(o.Lhs, c.kind(o.Orig), "splice result")

	case rhif.Concat:
		w := 0
		for _, s := range o.Args {
			w += c.kind(s).BitWidth()
		}
		return c.width(o.Lhs, w, "concatenation")

	case rhif.Repeat:
		return c.width(o.Lhs, c.kind(o.Value).BitWidth()*o.Len, "repeat")

	case rhif.Struct:
		if err := c.same(o.Lhs, o.Template.Kind, "struct"); err != nil {
			return err
		}
		if !o.Rest.IsNone() {
			if err := c.same(o.Rest, o.Template.Kind, "struct rest"); err != nil {
				return err
			}
		}
		for _, f := range o.Fields {
			p, err := rhif.FieldPath(o.Template.Kind, f.Name)
			if err != nil {
				return diag.Type(lop.Loc, "%v", err)
			}
			fk, _ := kind.SubKind(o.Template.Kind, p)
			if err := c.same(f.Value, fk, "field "+f.Name); err != nil {
				return err
			}
		}
		return nil

	case rhif.Tuple:
		tu, ok := kind.Strip(c.kind(o.Lhs)).(kind.Tuple)
		if !ok || len(tu.Elements) != len(o.Fields) {
			return diag.Type(opSpan(obj, lop.Loc, o.Lhs), "tuple of %d elements written to %s", len(o.Fields), c.kind(o.Lhs))
		}
		for i, s := range o.Fields {
			if err := c.same(s, tu.Elements[i], "tuple element"); err != nil {
				return err
			}
		}
		return nil

	case rhif.Array:
		arr, ok := kind.Strip(c.kind(o.Lhs)).(kind.Array)
		if !ok || arr.Size != len(o.Elements) {
			return diag.Type(opSpan(obj, lop.Loc, o.Lhs), "array of %d elements written to %s", len(o.Elements), c.kind(o.Lhs))
		}
		for _, s := range o.Elements {
			if err := c.same(s, arr.Base, "array element"); err != nil {
				return err
			}
		}
		return nil

	case rhif.Enum:
		if err := c.same(o.Lhs, o.Template.Kind, "enum"); err != nil {
			return err
		}
		for _, f := range o.Fields {
			p, err := rhif.EnumFieldPath(o.Template.Kind, o.Variant, f.Name)
			if err != nil {
				return diag.Type(lop.Loc, "%v", err)
			}
			fk, _ := kind.SubKind(o.Template.Kind, p)
			if err := c.same(f.Value, fk, "field "+f.Name); err != nil {
				return err
			}
		}
		return nil

	case rhif.Case:
		dk := c.kind(o.Discriminant)
		for _, e := range o.Table {
			if !e.Arg.Wild {
				if !e.Arg.Literal.IsLiteral() {
					return diag.Type(lop.Loc, "case key %s is not a literal", e.Arg.Literal)
				}
				if err := c.same(e.Arg.Literal, dk, "case key"); err != nil {
					return err
				}
			}
			if err := c.same(e.Value, c.kind(o.Lhs), "case arm"); err != nil {
				return err
			}
		}
		return nil

	case rhif.Exec:
		return c.exec(o)

	case rhif.AsBits:
		if !kind.IsPrimitive(c.kind(o.Arg)) {
			return diag.Type(slotSpan(obj, lop.Loc, o.Arg), "cast of non-primitive %s", c.kind(o.Arg))
		}
		return c.same(o.Lhs, kind.Bits{Width: o.Len}, "as_bits result")

	case rhif.AsSigned:
		if !kind.IsPrimitive(c.kind(o.Arg)) {
			return diag.Type(slotSpan(obj, lop.Loc, o.Arg), "cast of non-primitive %s", c.kind(o.Arg))
		}
		return c.same(o.Lhs, kind.Signed{Width: o.Len}, "as_signed result")

	case rhif.Resize:
		ak := c.kind(o.Arg)
		if !kind.IsPrimitive(ak) {
			return diag.Type(slotSpan(obj, lop.Loc, o.Arg), "resize of non-primitive %s", ak)
		}
		var want kind.Kind = kind.Bits{Width: o.Len}
		if kind.IsSigned(ak) {
			want = kind.Signed{Width: o.Len}
		}
		return c.same(o.Lhs, want, "resize result")

	case rhif.Retime:
		if err := c.same(o.Arg, c.kind(o.Lhs), "retime"); err != nil {
			return err
		}
		if got := kind.ColorOf(c.kind(o.Lhs)); got != o.Color {
			return diag.Type(opSpan(obj, lop.Loc, o.Lhs), "retime to %s written to a value in domain %s", o.Color, got)
		}
		return nil
	}

	return diag.Internal(obj.Dump(), "unknown opcode %T", lop.Op)
}

func (c checker) indices(p kind.Path) error {
	for _, s := range p.Dynamic() {
		if !kind.IsUnsigned(c.kind(s)) {
			return diag.Type(slotSpan(c.obj, c.loc, s), "array index must be unsigned, found %s", c.kind(s))
		}
	}
	return nil
}

func (c checker) exec(o rhif.Exec) error {
	ext := c.obj.Externals[o.ID]

	var args []kind.Kind
	var ret kind.Kind

	switch {
	case ext.Object != nil:
		for _, a := range ext.Object.Arguments {
			args = append(args, ext.Object.Symbols.Register(a.Reg).Kind)
		}
		ret = ext.Object.Kind(ext.Object.Return)
	case ext.BlackBox != nil:
		args, ret = ext.BlackBox.Args, ext.BlackBox.Ret
	default:
		return diag.Type(c.loc, "call to unresolved function %s", ext.Name)
	}

	if len(args) != len(o.Args) {
		return diag.Type(c.loc, "%s takes %d arguments, %d given", ext.Name, len(args), len(o.Args))
	}
	for i, s := range o.Args {
		if err := c.same(s, args[i], ext.Name+" argument"); err != nil {
			return err
		}
	}

	if ret == nil {
		ret = kind.Empty{}
	}
	return c.same(o.Lhs, ret, ext.Name+" result")
}
