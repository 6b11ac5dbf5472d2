package ntlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// DeadCodeElimination removes opcodes none of whose wires reach an output,
// then drops unreferenced register and literal wires. Comments and black
// boxes without outputs are kept.
func DeadCodeElimination(in *ntl.Object) (*ntl.Object, error) {
	obj := in.Clone()

	live := make(map[ntl.Wire]bool)
	for _, w := range obj.Outputs {
		live[w] = true
	}

	keep := make([]bool, len(obj.Ops))
	for i := len(obj.Ops) - 1; i >= 0; i-- {
		op := obj.Ops[i].Op
		writes := ntl.Writes(op)

		switch op.(type) {
		case ntl.Comment:
			keep[i] = true
			continue
		case ntl.BlackBox:
			keep[i] = len(writes) == 0
		}

		for _, w := range writes {
			if live[w] {
				keep[i] = true
			}
		}
		if !keep[i] {
			continue
		}
		for _, w := range ntl.Reads(op) {
			live[w] = true
		}
	}

	ops := obj.Ops[:0:0]
	for i, lop := range obj.Ops {
		if keep[i] {
			ops = append(ops, lop)
		}
	}
	obj.Ops = ops

	used := make(map[ntl.Wire]bool)
	mark := func(ws []ntl.Wire) {
		for _, w := range ws {
			used[w] = true
		}
	}
	mark(obj.Outputs)
	for _, in := range obj.Inputs {
		mark(in.Wires)
	}
	for _, lop := range obj.Ops {
		mark(ntl.Reads(lop.Op))
		mark(ntl.Writes(lop.Op))
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
