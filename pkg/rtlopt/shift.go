// Package rtlopt implements the RTL rewrite passes.
package rtlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// LowerShiftByConstant rewrites shifts by a fully known amount into
// slicing and concatenation.
//
// x << k keeps the low W-k bits of x and concatenates k zero bits below
// them. x >> k extends x by k bits (sign extension iff x is signed) and
// keeps bits [k, W+k). Amounts of W or more produce all zeros for a left
// shift and all fill bits for a right shift.
func LowerShiftByConstant(in *rtl.Object) (*rtl.Object, error) {
	obj := in.Clone()

	var ops []rtl.Located
	for _, lop := range obj.Ops {
		b, ok := lop.Op.(rtl.Binary)
		if !ok || !b.Op.IsShift() {
			ops = append(ops, lop)
			continue
		}

		amt, ok := obj.Literal(b.Arg2)
		if !ok {
			ops = append(ops, lop)
			continue
		}
		k, ok := typedbits.ShiftAmount(amt)
		if !ok {
			ops = append(ops, lop)
			continue
		}

		for _, op := range lowerShift(obj, b, k, lop) {
			ops = append(ops, rtl.Located{Op: op, Loc: lop.Loc})
		}
	}
	obj.Ops = ops

	return obj, nil
}

func lowerShift(obj *rtl.Object, b rtl.Binary, k int, lop rtl.Located) []rtl.OpCode {
	w := obj.Width(b.Arg1)
	lk := obj.Kind(b.Lhs)

	if k == 0 {
		return []rtl.OpCode{rtl.Assign{Lhs: b.Lhs, Rhs: b.Arg1}}
	}

	if b.Op == typedbits.Shl {
		if k >= w {
			zero := obj.AddLiteral(typedbits.Zeros(lk), lop.Loc)
			return []rtl.OpCode{rtl.Assign{Lhs: b.Lhs, Rhs: zero}}
		}
		low := obj.AddRegister(kind.Bits{Width: w - k}, "", lop.Loc)
		zeros := obj.AddLiteral(typedbits.Zeros(kind.Bits{Width: k}), lop.Loc)
		return []rtl.OpCode{
			rtl.Index{Lhs: low, Arg: b.Arg1, Start: 0, End: w - k},
			rtl.Concat{Lhs: b.Lhs, Args: []rtl.Operand{zeros, low}},
		}
	}

	if k > w {
		k = w
	}

	var ek kind.Kind = kind.Bits{Width: w + k}
	if kind.IsSigned(lk) {
		ek = kind.Signed{Width: w + k}
	}
	ext := obj.AddRegister(ek, "", lop.Loc)

	return []rtl.OpCode{
		rtl.Cast{Lhs: ext, Arg: b.Arg1, Len: w + k, Kind: castFor(lk)},
		rtl.Index{Lhs: b.Lhs, Arg: ext, Start: k, End: w + k},
	}
}

// castFor returns the cast that extends by the signedness of k.
func castFor(k kind.Kind) rtl.CastKind {
	if kind.IsSigned(k) {
		return rtl.Signed
	}
	return rtl.Unsigned
}
