package rhifopt

import (
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// DeadCodeElimination removes opcodes whose result is never read and is not
// the return value, then drops registers and literals no longer mentioned.
// Calls to black boxes with an empty result are kept for their effects.
func DeadCodeElimination(in *rhif.Object) (*rhif.Object, error) {
	obj := in.Clone()

	live := map[rhif.Slot]bool{obj.Return: true}
	keep := make([]bool, len(obj.Ops))

	for i := len(obj.Ops) - 1; i >= 0; i-- {
		op := obj.Ops[i].Op
		lhs := rhif.Lhs(op)

		switch o := op.(type) {
		case rhif.Noop:
			continue
		case rhif.Comment:
			keep[i] = true
			continue
		case rhif.Exec:
			if lhs.IsNone() && obj.Externals[o.ID].BlackBox != nil {
				keep[i] = true
			}
		}

		if lhs.IsRegister() && live[lhs] {
			keep[i] = true
		}
		if !keep[i] {
			continue
		}

		for _, s := range rhif.Reads(op) {
			live[s] = true
		}
	}

	ops := obj.Ops[:0:0]
	for i, lop := range obj.Ops {
		if keep[i] {
			ops = append(ops, lop)
		}
	}
	obj.Ops = ops

	used := map[rhif.Slot]bool{obj.Return: true}
	for _, a := range obj.Arguments {
		used[symtab.Reg(a.Reg)] = true
	}
	for _, lop := range obj.Ops {
		used[rhif.Lhs(lop.Op)] = true
		for _, s := range rhif.Reads(lop.Op) {
			used[s] = true
		}
	}

	for _, id := range obj.Symbols.RegisterIDs() {
		if !used[symtab.Reg(id)] {
			obj.Symbols.RemoveRegister(id)
		}
	}
	for _, id := range obj.Symbols.LiteralIDs() {
		if !used[symtab.Lit(id)] {
			obj.Symbols.RemoveLiteral(id)
		}
	}

	return obj, nil
}
