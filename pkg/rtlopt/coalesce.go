package rtlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// RemoveExtraRegisters coalesces copies between operands of the same kind,
// merging names as "rhs_then_lhs" and keeping the shorter span.
func RemoveExtraRegisters(in *rtl.Object) (*rtl.Object, error) {
	obj := in.Clone()

	writers := obj.Writers()
	copies := make(map[rtl.Operand]rtl.Operand)

	for _, lop := range obj.Ops {
		a, ok := lop.Op.(rtl.Assign)
		if !ok || !a.Lhs.IsRegister() || a.Lhs == a.Rhs || a.Rhs.IsNone() {
			continue
		}
		if writers[a.Lhs] != 1 || obj.IsArgument(a.Lhs) {
			continue
		}
		if a.Rhs.IsRegister() && writers[a.Rhs] > 1 {
			continue
		}
		if !kind.Equal(obj.Kind(a.Lhs), obj.Kind(a.Rhs)) {
			continue
		}
		copies[a.Lhs] = a.Rhs
	}

	resolved := symtab.ResolveChains(copies)

	for _, lop := range obj.Ops {
		if a, ok := lop.Op.(rtl.Assign); ok {
			if to, ok := resolved[a.Lhs]; ok {
				mergeInto(obj, to, a.Lhs)
			}
		}
	}

	rename := func(o rtl.Operand) rtl.Operand {
		if to, ok := resolved[o]; ok {
			return to
		}
		return o
	}

	ops := obj.Ops[:0:0]
	for _, lop := range obj.Ops {
		if a, ok := lop.Op.(rtl.Assign); ok {
			if _, ok := resolved[a.Lhs]; ok || a.Lhs == a.Rhs {
				continue
			}
		}
		lop.Op = rtl.RenameReads(lop.Op, rename)
		ops = append(ops, lop)
	}
	obj.Ops = ops
	obj.Return = rename(obj.Return)

	for from := range resolved {
		obj.Symbols.RemoveRegister(symtab.RegisterID(from.ID))
	}

	return obj, nil
}

func mergeInto(obj *rtl.Object, to, from rtl.Operand) {
	toID, ok := to.RegisterID()
	if !ok {
		return
	}
	fromID := symtab.RegisterID(from.ID)

	tr := obj.Symbols.Register(toID)
	fr := obj.Symbols.Register(fromID)

	switch {
	case fr.Name == "" || fr.Name == tr.Name:
	case tr.Name == "":
		tr.Name = fr.Name
	default:
		tr.Name = tr.Name + "_then_" + fr.Name
	}
	obj.Symbols.SetRegister(toID, tr)
	obj.Symbols.SetRegisterLoc(toID, diag.Shorter(obj.Symbols.RegisterLoc(toID), obj.Symbols.RegisterLoc(fromID)))
}
