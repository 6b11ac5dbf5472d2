// Package ntlopt implements the NTL rewrites: constant folding, extra
// register removal and dead code elimination.
package ntlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/ntlvm"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// ConstantFold replaces opcodes whose inputs are all constant bits with
// assignments of the computed bits. Selects and cases with a constant
// condition become copies of the chosen value, and gates with one constant
// input are simplified.
func ConstantFold(in *ntl.Object) (*ntl.Object, error) {
	obj := in.Clone()

	ops := obj.Ops[:0:0]
	for _, lop := range obj.Ops {
		for _, op := range fold(obj, lop) {
			ops = append(ops, ntl.Located{Op: op, Loc: lop.Loc})
		}
	}
	obj.Ops = ops

	return obj, nil
}

func fold(obj *ntl.Object, lop ntl.Located) []ntl.OpCode {
	keep := []ntl.OpCode{lop.Op}

	switch o := lop.Op.(type) {
	case ntl.Comment, ntl.BlackBox, ntl.Assign:
		return keep
	case ntl.Select:
		if o.TrueValue == o.FalseValue {
			return []ntl.OpCode{ntl.Assign{Lhs: o.Lhs, Rhs: o.TrueValue}}
		}
		if c, ok := obj.Bit(o.Cond); ok && c != typedbits.Unknown {
			rhs := o.FalseValue
			if c == typedbits.One {
				rhs = o.TrueValue
			}
			return []ntl.OpCode{ntl.Assign{Lhs: o.Lhs, Rhs: rhs}}
		}
	case ntl.Case:
		if d, ok := constant(obj, o.Discriminant); ok {
			for _, e := range o.Table {
				if e.Arg.Wild || typedbits.SameBits(e.Arg.Key, d) {
					return copies(o.Lhs, e.Value)
				}
			}
		}
	case ntl.Binary:
		if op, ok := simplify(obj, o); ok {
			return []ntl.OpCode{op}
		}
	}

	if !allConstant(obj, ntl.Reads(lop.Op)) {
		return keep
	}

	bits, err := ntlvm.Eval(lop.Op, func(w ntl.Wire) (typedbits.Bit, error) {
		b, _ := obj.Bit(w)
		return b, nil
	})
	if err != nil {
		return keep
	}

	lhs := ntl.Writes(lop.Op)
	return copies(lhs, obj.AddLiterals(bits, lop.Loc))
}

// simplify rewrites a gate with exactly one constant input.
func simplify(obj *ntl.Object, o ntl.Binary) (ntl.OpCode, bool) {
	x, c := o.Arg1, o.Arg2
	b, ok := obj.Bit(c)
	if !ok {
		x, c = o.Arg2, o.Arg1
		if b, ok = obj.Bit(c); !ok {
			return nil, false
		}
	}
	if _, ok := obj.Bit(x); ok || b == typedbits.Unknown {
		return nil, false
	}

	switch {
	case o.Op == ntl.And && b == typedbits.Zero, o.Op == ntl.Or && b == typedbits.One:
		return ntl.Assign{Lhs: o.Lhs, Rhs: c}, true
	case o.Op == ntl.Xor && b == typedbits.One:
		return ntl.Not{Lhs: o.Lhs, Arg: x}, true
	}
	return ntl.Assign{Lhs: o.Lhs, Rhs: x}, true
}

func copies(lhs, rhs []ntl.Wire) []ntl.OpCode {
	r := make([]ntl.OpCode, len(lhs))
	for i := range lhs {
		r[i] = ntl.Assign{Lhs: lhs[i], Rhs: rhs[i]}
	}
	return r
}

func constant(obj *ntl.Object, ws []ntl.Wire) ([]typedbits.Bit, bool) {
	r := make([]typedbits.Bit, len(ws))
	for i, w := range ws {
		b, ok := obj.Bit(w)
		if !ok || b == typedbits.Unknown {
			return nil, false
		}
		r[i] = b
	}
	return r, true
}

func allConstant(obj *ntl.Object, ws []ntl.Wire) bool {
	for _, w := range ws {
		if _, ok := obj.Bit(w); !ok {
			return false
		}
	}
	return true
}
