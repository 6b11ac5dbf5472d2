package rtlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// DeadCodeElimination removes opcodes whose result never reaches the return
// operand, then drops unreferenced registers and literals. Comments and
// black boxes without a result are kept.
func DeadCodeElimination(in *rtl.Object) (*rtl.Object, error) {
	obj := in.Clone()

	live := map[rtl.Operand]bool{obj.Return: true}
	keep := make([]bool, len(obj.Ops))

	for i := len(obj.Ops) - 1; i >= 0; i-- {
		op := obj.Ops[i].Op
		lhs := rtl.Lhs(op)

		switch op.(type) {
		case rtl.Comment:
			keep[i] = true
			continue
		case rtl.BlackBox:
			keep[i] = lhs.IsNone()
		}

		if lhs.IsRegister() && live[lhs] {
			keep[i] = true
		}
		if !keep[i] {
			continue
		}
		for _, o := range rtl.Reads(op) {
			live[o] = true
		}
	}

	ops := obj.Ops[:0:0]
	for i, lop := range obj.Ops {
		if keep[i] {
			ops = append(ops, lop)
		}
	}
	obj.Ops = ops

	used := map[rtl.Operand]bool{obj.Return: true}
	for _, a := range obj.Arguments {
		used[symtab.Reg(a.Reg)] = true
	}
	for _, lop := range obj.Ops {
		used[rtl.Lhs(lop.Op)] = true
		for _, o := range rtl.Reads(lop.Op) {
			used[o] = true
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
