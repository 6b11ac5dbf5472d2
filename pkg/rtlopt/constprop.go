package rtlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/rtlvm"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// ConstantPropagation folds opcodes whose operands are all literals, and
// selects and cases whose condition is a known literal.
func ConstantPropagation(in *rtl.Object) (*rtl.Object, error) {
	obj := in.Clone()

	for i, lop := range obj.Ops {
		lhs := rtl.Lhs(lop.Op)
		if lhs.IsNone() {
			continue
		}

		switch o := lop.Op.(type) {
		case rtl.BlackBox:
			continue
		case rtl.Assign:
			v, ok := obj.Literal(o.Rhs)
			if !ok || kind.Equal(v.Kind, obj.Kind(lhs)) {
				continue
			}
			r, err := v.Retyped(obj.Kind(lhs))
			if err != nil {
				continue
			}
			obj.Ops[i].Op = rtl.Assign{Lhs: lhs, Rhs: obj.AddLiteral(r, obj.Span(o.Rhs))}
			continue
		case rtl.Select:
			if c, ok := obj.Literal(o.Cond); ok && c.IsKnown() && len(c.Bits) == 1 {
				chosen := o.FalseValue
				if c.Bits[0] == typedbits.One {
					chosen = o.TrueValue
				}
				obj.Ops[i].Op = rtl.Assign{Lhs: lhs, Rhs: chosen}
				continue
			}
		case rtl.Case:
			if d, ok := obj.Literal(o.Discriminant); ok && d.IsKnown() {
				if v, ok := chooseCase(obj, o, d); ok {
					obj.Ops[i].Op = rtl.Assign{Lhs: lhs, Rhs: v}
					continue
				}
			}
		}

		if !allLiterals(rtl.Reads(lop.Op)) {
			continue
		}

		v, err := rtlvm.Eval(obj, lop.Op, func(o rtl.Operand) (typedbits.TypedBits, error) {
			if o.IsNone() {
				return typedbits.Zeros(kind.Bits{}), nil
			}
			v, _ := obj.Literal(o)
			return v, nil
		})
		if err != nil {
			continue
		}

		obj.Ops[i].Op = rtl.Assign{Lhs: lhs, Rhs: obj.AddLiteral(v, lop.Loc)}
	}

	return obj, nil
}

func allLiterals(os []rtl.Operand) bool {
	for _, o := range os {
		if o.IsRegister() {
			return false
		}
	}
	return true
}

func chooseCase(obj *rtl.Object, o rtl.Case, d typedbits.TypedBits) (rtl.Operand, bool) {
	for _, e := range o.Table {
		if e.Arg.Wild {
			return e.Value, true
		}
		key, ok := obj.Literal(e.Arg.Literal)
		if !ok || !key.IsKnown() {
			return rtl.Operand{}, false
		}
		if typedbits.SameBits(key.Bits, d.Bits) {
			return e.Value, true
		}
	}
	return rtl.Operand{}, false
}
