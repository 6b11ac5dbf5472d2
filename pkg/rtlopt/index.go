package rtlopt

import "github.com/raymyers/ralph-hdl/pkg/rtl"

// LowerIndexAll rewrites an index that selects every bit of its argument
// into a plain assignment.
func LowerIndexAll(in *rtl.Object) (*rtl.Object, error) {
	obj := in.Clone()

	for i, lop := range obj.Ops {
		ix, ok := lop.Op.(rtl.Index)
		if !ok {
			continue
		}
		if ix.Start == 0 && ix.End == obj.Width(ix.Arg) && obj.Width(ix.Lhs) == ix.End {
			obj.Ops[i].Op = rtl.Assign{Lhs: ix.Lhs, Rhs: ix.Arg}
		}
	}

	return obj, nil
}
