package rhifopt

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// RemoveExtraRegisters coalesces plain copies. For every assignment
// lhs <- rhs of equal kinds where lhs has no other writer and is not an
// argument, reads of lhs are renamed to rhs and the assignment is dropped.
// When both registers carry different names the survivor is renamed
// "rhs_then_lhs"; it keeps the shorter of the two source spans.
func RemoveExtraRegisters(in *rhif.Object) (*rhif.Object, error) {
	obj := in.Clone()

	copies := buildCopyMap(obj)
	if len(copies) == 0 {
		return dropSelfAssigns(obj), nil
	}

	resolved := symtab.ResolveChains(copies)

	for _, lop := range obj.Ops {
		a, ok := lop.Op.(rhif.Assign)
		if !ok {
			continue
		}
		to, ok := resolved[a.Lhs]
		if !ok {
			continue
		}
		mergeInto(obj, to, a.Lhs)
	}

	rename := func(s rhif.Slot) rhif.Slot {
		if to, ok := resolved[s]; ok {
			return to
		}
		return s
	}

	ops := obj.Ops[:0:0]
	for _, lop := range obj.Ops {
		if a, ok := lop.Op.(rhif.Assign); ok {
			if _, ok := resolved[a.Lhs]; ok {
				continue
			}
		}
		lop.Op = rhif.RenameReads(lop.Op, rename)
		ops = append(ops, lop)
	}
	obj.Ops = ops
	obj.Return = rename(obj.Return)

	for from := range resolved {
		obj.Symbols.RemoveRegister(symtab.RegisterID(from.ID))
	}

	return dropSelfAssigns(obj), nil
}

// buildCopyMap collects the coalescable assignments as lhs -> rhs. A copy
// of a register whose writer comes later is kept, so that renaming never
// turns a read before the write into a valid one.
func buildCopyMap(obj *rhif.Object) map[rhif.Slot]rhif.Slot {
	writers := obj.Writers()
	copies := make(map[rhif.Slot]rhif.Slot)
	written := make(map[rhif.Slot]bool)

	for _, lop := range obj.Ops {
		lhs := rhif.Lhs(lop.Op)
		a, ok := lop.Op.(rhif.Assign)
		if ok && copyable(obj, a, writers, written) {
			copies[a.Lhs] = a.Rhs
		}
		if !lhs.IsNone() {
			written[lhs] = true
		}
	}

	return copies
}

func copyable(obj *rhif.Object, a rhif.Assign, writers map[rhif.Slot]int, written map[rhif.Slot]bool) bool {
	if !a.Lhs.IsRegister() || a.Lhs == a.Rhs || a.Rhs.IsNone() {
		return false
	}
	if writers[a.Lhs] != 1 || obj.IsArgument(a.Lhs) {
		return false
	}
	if a.Rhs.IsRegister() && !obj.IsArgument(a.Rhs) && (writers[a.Rhs] != 1 || !written[a.Rhs]) {
		return false
	}
	return kind.Equal(obj.Kind(a.Lhs), obj.Kind(a.Rhs))
}

// mergeInto carries the name and span of from over to the register to.
func mergeInto(obj *rhif.Object, to, from rhif.Slot) {
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

func dropSelfAssigns(obj *rhif.Object) *rhif.Object {
	ops := obj.Ops[:0:0]
	for _, lop := range obj.Ops {
		if a, ok := lop.Op.(rhif.Assign); ok && a.Lhs == a.Rhs {
			continue
		}
		ops = append(ops, lop)
	}
	obj.Ops = ops
	return obj
}
