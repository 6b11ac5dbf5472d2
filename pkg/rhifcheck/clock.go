package rhifcheck

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

// ClockDomains verifies that no opcode combines values from two different
// clock domains. Constant-colored values combine with anything. Calls to
// black boxes are the only crossing points and are exempt. Retime only
// places a constant into a domain, or restates the domain a value already
// has.
func ClockDomains(obj *rhif.Object) error {
	for _, lop := range obj.Ops {
		switch o := lop.Op.(type) {
		case rhif.Retime:
			c := kind.ColorOf(obj.Kind(o.Arg))
			if c == kind.Constant || c == o.Color {
				continue
			}
			return diag.Clock(
				diag.Label{Span: slotSpan(obj, lop.Loc, o.Arg), Note: "this value is in domain " + c.String()},
				diag.Label{Span: opSpan(obj, lop.Loc, o.Lhs), Note: "retimed to domain " + o.Color.String()},
				"retime cannot move a value from domain %s to %s; use a crossing black box", c, o.Color)
		case rhif.Exec:
			if obj.Externals[o.ID].BlackBox != nil {
				continue
			}
		}

		slots := append([]rhif.Slot{rhif.Lhs(lop.Op)}, rhif.Reads(lop.Op)...)

		var first rhif.Slot
		firstColor := kind.Constant

		for _, s := range slots {
			if s.IsNone() {
				continue
			}
			c := kind.ColorOf(obj.Kind(s))
			if c == kind.Constant {
				continue
			}
			if firstColor == kind.Constant {
				first, firstColor = s, c
				continue
			}
			if !kind.Compatible(firstColor, c) {
				return diag.Clock(
					diag.Label{Span: slotSpan(obj, lop.Loc, first), Note: "this value is in domain " + firstColor.String()},
					diag.Label{Span: slotSpan(obj, lop.Loc, s), Note: "this value is in domain " + c.String()},
					"%s mixes clock domains %s and %s", rhif.OpString(lop.Op), firstColor, c)
			}
		}
	}

	return nil
}
