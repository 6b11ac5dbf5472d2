package rhifcheck

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

// RolledTypes rejects ALU opcodes applied to anything other than the two
// primitive numeric kinds, optionally wrapped in a signal.
func RolledTypes(obj *rhif.Object) error {
	for _, lop := range obj.Ops {
		var args []rhif.Slot

		switch o := lop.Op.(type) {
		case rhif.Binary:
			args = []rhif.Slot{o.Arg1, o.Arg2}
		case rhif.Unary:
			args = []rhif.Slot{o.Arg1}
		default:
			continue
		}

		for _, s := range args {
			k := obj.Kind(s)
			if !kind.IsPrimitive(k) {
				return diag.Legality(slotSpan(obj, lop.Loc, s),
					"arithmetic on %s is not allowed: only bits and signed values may reach ALU operations", k)
			}
		}
	}

	return nil
}
