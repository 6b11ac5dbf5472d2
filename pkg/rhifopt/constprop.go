package rhifopt

import (
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rhifvm"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// ConstantPropagation replaces every opcode whose operands are all literals
// by an assignment of a literal holding its value. A select with a known
// condition and a case with a known discriminant become assignments of the
// chosen value. Opcodes that fail to evaluate are left alone.
func ConstantPropagation(in *rhif.Object) (*rhif.Object, error) {
	obj := in.Clone()

	for i, lop := range obj.Ops {
		lhs := rhif.Lhs(lop.Op)
		if lhs.IsNone() {
			continue
		}

		switch o := lop.Op.(type) {
		case rhif.Exec:
			continue
		case rhif.Assign:
			// retype literal copies so that coalescing can merge them;
			// only signal wrappers may change, never the value's kind
			v, ok := obj.Literal(o.Rhs)
			if !ok || kind.Equal(v.Kind, obj.Kind(lhs)) || !kind.EqualStripped(v.Kind, obj.Kind(lhs)) {
				continue
			}
			r, err := v.Retyped(obj.Kind(lhs))
			if err != nil {
				continue
			}
			obj.Ops[i].Op = rhif.Assign{Lhs: lhs, Rhs: obj.AddLiteral(r, obj.Span(o.Rhs))}
			continue
		case rhif.Select:
			if c, ok := obj.Literal(o.Cond); ok && c.IsKnown() && len(c.Bits) == 1 {
				chosen := o.FalseValue
				if c.Bits[0] == typedbits.One {
					chosen = o.TrueValue
				}
				obj.Ops[i].Op = rhif.Assign{Lhs: lhs, Rhs: chosen}
				continue
			}
		case rhif.Case:
			if d, ok := obj.Literal(o.Discriminant); ok && d.IsKnown() {
				if v, ok := chooseCase(obj, o, d); ok {
					obj.Ops[i].Op = rhif.Assign{Lhs: lhs, Rhs: v}
					continue
				}
			}
		}

		if !allLiterals(rhif.Reads(lop.Op)) {
			continue
		}

		v, err := rhifvm.Eval(obj, lop.Op, func(s rhif.Slot) (typedbits.TypedBits, error) {
			if s.IsNone() {
				return typedbits.TypedBits{Kind: kind.Empty{}}, nil
			}
			v, _ := obj.Literal(s)
			return v, nil
		})
		if err != nil {
			continue
		}

		obj.Ops[i].Op = rhif.Assign{Lhs: lhs, Rhs: obj.AddLiteral(v, lop.Loc)}
	}

	return obj, nil
}

func allLiterals(ss []rhif.Slot) bool {
	for _, s := range ss {
		if s.IsRegister() {
			return false
		}
	}
	return true
}

func chooseCase(obj *rhif.Object, o rhif.Case, d typedbits.TypedBits) (rhif.Slot, bool) {
	for _, e := range o.Table {
		if e.Arg.Wild {
			return e.Value, true
		}
		key, ok := obj.Literal(e.Arg.Literal)
		if !ok || !key.IsKnown() {
			return rhif.Slot{}, false
		}
		if rhifvm.CaseMatches(key, d) {
			return e.Value, true
		}
	}
	return rhif.Slot{}, false
}
