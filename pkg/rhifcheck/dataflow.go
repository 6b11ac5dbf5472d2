package rhifcheck

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// maxCaseWidth is the widest discriminant for which a case without a
// wildcard can be proven exhaustive by enumeration.
const maxCaseWidth = 16

// DataFlow verifies that every register is written exactly once before it
// is read, that the return value is driven, and that every case without a
// wildcard covers all values of its discriminant.
func DataFlow(obj *rhif.Object) error {
	written := make(map[rhif.Slot]bool)
	for _, a := range obj.Arguments {
		written[symtab.Reg(a.Reg)] = true
	}

	// registers holding the discriminant of an enum value
	discriminantOf := make(map[rhif.Slot]kind.Enum)

	for _, lop := range obj.Ops {
		for _, s := range rhif.Reads(lop.Op) {
			if s.IsRegister() && !written[s] {
				return diag.Legality(slotSpan(obj, lop.Loc, s), "%s is read before it is written", describe(obj, s))
			}
		}

		lhs := rhif.Lhs(lop.Op)
		if lhs.IsRegister() {
			if written[lhs] {
				if obj.IsArgument(lhs) {
					return diag.Legality(opSpan(obj, lop.Loc, lhs), "argument %s is written", describe(obj, lhs))
				}
				return diag.Legality(opSpan(obj, lop.Loc, lhs), "%s is written more than once", describe(obj, lhs))
			}
			written[lhs] = true
		}

		switch o := lop.Op.(type) {
		case rhif.Index:
			if len(o.Path) == 1 {
				if _, ok := o.Path[0].(kind.Discriminant); ok {
					if en, ok := kind.Strip(obj.Kind(o.Arg)).(kind.Enum); ok {
						discriminantOf[o.Lhs] = en
					}
				}
			}
		case rhif.Case:
			if err := exhaustive(obj, lop.Loc, o, discriminantOf); err != nil {
				return err
			}
		}
	}

	if obj.Return.IsRegister() && !written[obj.Return] {
		return diag.Legality(obj.Span(obj.Return), "return value %s is never written", describe(obj, obj.Return))
	}

	return nil
}

func describe(obj *rhif.Object, s rhif.Slot) string {
	if n := obj.RegisterName(s); n != "" {
		return s.String() + " (" + n + ")"
	}
	return s.String()
}

func exhaustive(obj *rhif.Object, loc diag.Span, o rhif.Case, discriminantOf map[rhif.Slot]kind.Enum) error {
	covered := make(map[string]bool)
	for _, e := range o.Table {
		if e.Arg.Wild {
			return nil
		}
		if v, ok := obj.Literal(e.Arg.Literal); ok {
			covered[v.BinaryString()] = true
		}
	}

	dk := kind.Strip(obj.Kind(o.Discriminant))

	var required []typedbits.TypedBits

	en, fromEnum := discriminantOf[o.Discriminant]

	switch {
	case isEnum(dk):
		for _, v := range dk.(kind.Enum).Variants {
			ev, err := typedbits.EnumValue(dk.(kind.Enum), v.Name)
			if err != nil {
				return diag.Internal(obj.Dump(), "%v", err)
			}
			d, _ := ev.Path(kind.Path{kind.Discriminant{}})
			required = append(required, d)
		}
		// keys of an enum case are full values: compare discriminants only
		covered = make(map[string]bool)
		for _, e := range o.Table {
			if v, ok := obj.Literal(e.Arg.Literal); ok {
				if d, err := v.Path(kind.Path{kind.Discriminant{}}); err == nil {
					covered[d.BinaryString()] = true
				}
			}
		}
	case fromEnum:
		for _, v := range en.Variants {
			required = append(required, typedbits.FromInt64(dk, v.Discriminant))
		}
	default:
		w := dk.BitWidth()
		if w > maxCaseWidth {
			return diag.Legality(loc, "case over %s needs a wildcard arm", dk)
		}
		for i := uint64(0); i < 1<<uint(w); i++ {
			required = append(required, typedbits.FromUint64(dk, i))
		}
	}

	for _, r := range required {
		if !covered[r.BinaryString()] {
			return diag.Legality(loc, "case over %s does not cover %s", obj.Kind(o.Discriminant), r)
		}
	}

	return nil
}

func isEnum(k kind.Kind) bool {
	_, ok := k.(kind.Enum)
	return ok
}
