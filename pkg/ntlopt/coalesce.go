package ntlopt

import (
	"sort"

	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/unionfind"
)

// RemoveExtraRegisters unions the two sides of every wire-to-wire copy and
// rewrites each wire to the representative of its class. Literal and input
// wires are pinned: a class containing one is represented by it, and two
// pinned wires are never merged. Copies that become self-assignments are
// deleted.
func RemoveExtraRegisters(in *ntl.Object) (*ntl.Object, error) {
	obj := in.Clone()

	inputs := obj.InputWires()
	pinned := func(w ntl.Wire) bool {
		_, ok := inputs[w]
		return w.IsLiteral() || ok
	}

	writers := obj.Writers()
	uf := unionfind.New[ntl.Wire]()

	for _, lop := range obj.Ops {
		for _, w := range ntl.Reads(lop.Op) {
			uf.Add(w)
		}
		for _, w := range ntl.Writes(lop.Op) {
			uf.Add(w)
		}

		a, ok := lop.Op.(ntl.Assign)
		if !ok || writers[a.Lhs] != 1 || a.Rhs.IsNone() {
			continue
		}
		if a.Rhs.IsRegister() && writers[a.Rhs] > 1 {
			continue
		}

		rl, rr := uf.Find(a.Lhs), uf.Find(a.Rhs)
		pl, pr := pinned(rl), pinned(rr)
		switch {
		case rl == rr:
		case pl && pr:
		case pl:
			uf.UnionInto(rl, rr)
		case pr:
			uf.UnionInto(rr, rl)
		default:
			uf.Union(rl, rr)
		}
	}

	rep := func(w ntl.Wire) ntl.Wire {
		if w.IsNone() {
			return w
		}
		return uf.Find(w)
	}

	merged := make(map[ntl.Wire]bool)
	for root, members := range uf.Classes() {
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		for _, m := range members {
			if m != root {
				merged[m] = true
				adoptName(obj, root, m)
			}
		}
	}

	ops := obj.Ops[:0:0]
	for _, lop := range obj.Ops {
		lop.Op = ntl.Rename(lop.Op, rep)
		if a, ok := lop.Op.(ntl.Assign); ok && a.Lhs == a.Rhs {
			continue
		}
		ops = append(ops, lop)
	}
	obj.Ops = ops

	for i := range obj.Outputs {
		obj.Outputs[i] = rep(obj.Outputs[i])
	}

	for w := range merged {
		if id, ok := w.RegisterID(); ok {
			obj.Symbols.RemoveRegister(id)
		}
	}

	return obj, nil
}

// adoptName gives an unnamed register representative the name of a merged
// member. Members are visited by ascending id, so the lowest named id wins.
func adoptName(obj *ntl.Object, root, m ntl.Wire) {
	rid, ok := root.RegisterID()
	if !ok || obj.Symbols.Register(rid).Name != "" {
		return
	}
	mid, ok := m.RegisterID()
	if !ok {
		return
	}
	if name := obj.Symbols.Register(mid).Name; name != "" {
		obj.Symbols.SetRegister(rid, ntl.Register{Name: name})
	}
}
