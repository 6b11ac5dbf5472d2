// Package ntlvm is a reference interpreter for NTL objects. It is the
// simulation back end for compiled kernels.
package ntlvm

import (
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/rhifvm"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Models maps black box names to models. Black box arguments are passed as
// unsigned values.
type Models = rhifvm.Models

// Run executes obj on args and returns the output wires as an unsigned
// value, LSB first.
func Run(obj *ntl.Object, args []typedbits.TypedBits, models Models) (typedbits.TypedBits, error) {
	if err := obj.CheckSymbols(); err != nil {
		return typedbits.TypedBits{}, errors.Wrap(err, "object %s is incomplete", obj.Name)
	}
	if len(args) != len(obj.Inputs) {
		return typedbits.TypedBits{}, errors.New("%s takes %d arguments, got %d", obj.Name, len(obj.Inputs), len(args))
	}

	regs := make(map[symtab.RegisterID]typedbits.Bit)

	read := func(w ntl.Wire) (typedbits.Bit, error) {
		switch {
		case w.IsLiteral():
			return obj.Symbols.Literal(symtab.LiteralID(w.ID)), nil
		case w.IsRegister():
			b, ok := regs[symtab.RegisterID(w.ID)]
			if !ok {
				return typedbits.Unknown, errors.New("read of %s before write", w)
			}
			return b, nil
		}
		return typedbits.Zero, nil
	}

	for i, in := range obj.Inputs {
		if len(args[i].Bits) != len(in.Wires) {
			return typedbits.TypedBits{}, errors.New("argument %d (%s) has %d bits, want %d", i, in.Name, len(args[i].Bits), len(in.Wires))
		}
		for j, w := range in.Wires {
			regs[symtab.RegisterID(w.ID)] = args[i].Bits[j]
		}
	}

	for i, lop := range obj.Ops {
		var bits []typedbits.Bit
		var err error

		switch o := lop.Op.(type) {
		case ntl.Comment:
			continue
		case ntl.BlackBox:
			bits, err = blackBox(o, read, models)
		default:
			bits, err = Eval(lop.Op, read)
		}
		if err != nil {
			return typedbits.TypedBits{}, errors.Wrap(err, "%s: op %d (%s)", obj.Name, i, ntl.OpString(lop.Op))
		}

		for j, w := range ntl.Writes(lop.Op) {
			regs[symtab.RegisterID(w.ID)] = bits[j]
		}
	}

	out, err := readAll(obj.Outputs, read)
	if err != nil {
		return typedbits.TypedBits{}, err
	}

	return typedbits.TypedBits{Kind: kind.Bits{Width: len(out)}, Bits: out}, nil
}

func blackBox(o ntl.BlackBox, read func(ntl.Wire) (typedbits.Bit, error), models Models) ([]typedbits.Bit, error) {
	f, ok := models[o.Name]
	if !ok {
		r := make([]typedbits.Bit, len(o.Lhs))
		for i := range r {
			r[i] = typedbits.Unknown
		}
		return r, nil
	}

	args := make([]typedbits.TypedBits, len(o.Args))
	for i, a := range o.Args {
		bits, err := readAll(a, read)
		if err != nil {
			return nil, err
		}
		args[i] = vector(bits, false)
	}

	v, err := f(args)
	if err != nil {
		return nil, err
	}
	if len(v.Bits) != len(o.Lhs) {
		return nil, errors.New("black box %s returned %d bits, want %d", o.Name, len(v.Bits), len(o.Lhs))
	}
	return v.Bits, nil
}

// Eval computes the bits an opcode writes, one per written wire, reading
// wires through read. BlackBox and Comment are not handled.
func Eval(op ntl.OpCode, read func(ntl.Wire) (typedbits.Bit, error)) ([]typedbits.Bit, error) {
	one := func(w ntl.Wire, f func(typedbits.Bit) typedbits.Bit) ([]typedbits.Bit, error) {
		b, err := read(w)
		if err != nil {
			return nil, err
		}
		return []typedbits.Bit{f(b)}, nil
	}

	switch o := op.(type) {
	case ntl.Assign:
		return one(o.Rhs, func(b typedbits.Bit) typedbits.Bit { return b })
	case ntl.Not:
		return one(o.Arg, typedbits.NotBit)
	case ntl.Binary:
		v, err := readAll([]ntl.Wire{o.Arg1, o.Arg2}, read)
		if err != nil {
			return nil, err
		}
		return []typedbits.Bit{typedbits.Logic(o.Op.BinaryOp(), v[0], v[1])}, nil
	case ntl.Select:
		v, err := readAll([]ntl.Wire{o.Cond, o.TrueValue, o.FalseValue}, read)
		if err != nil {
			return nil, err
		}
		return []typedbits.Bit{selectBit(v[0], v[1], v[2])}, nil
	case ntl.Vector:
		return evalVector(o, read)
	case ntl.Unary:
		a, err := readAll(o.Arg, read)
		if err != nil {
			return nil, err
		}
		r, err := typedbits.Unary(o.Op, vector(a, o.Signed))
		if err != nil {
			return nil, err
		}
		return fit(r.Bits, len(o.Lhs))
	case ntl.Case:
		return evalCase(o, read)
	}

	return nil, errors.New("cannot evaluate %T", op)
}

func evalVector(o ntl.Vector, read func(ntl.Wire) (typedbits.Bit, error)) ([]typedbits.Bit, error) {
	a, err := readAll(o.Arg1, read)
	if err != nil {
		return nil, err
	}
	b, err := readAll(o.Arg2, read)
	if err != nil {
		return nil, err
	}

	bk := o.Signed && !o.Op.IsShift()

	r, err := typedbits.Binary(o.Op, vector(a, o.Signed), vector(b, bk))
	if err != nil {
		return nil, err
	}
	return fit(r.Bits, len(o.Lhs))
}

func evalCase(o ntl.Case, read func(ntl.Wire) (typedbits.Bit, error)) ([]typedbits.Bit, error) {
	d, err := readAll(o.Discriminant, read)
	if err != nil {
		return nil, err
	}

	if !known(d) {
		r := make([]typedbits.Bit, len(o.Lhs))
		for i := range r {
			r[i] = typedbits.Unknown
		}
		return r, nil
	}

	for _, e := range o.Table {
		if e.Arg.Wild || typedbits.SameBits(e.Arg.Key, d) {
			return readAll(e.Value, read)
		}
	}

	return nil, errors.New("no case matches %s", vector(d, false))
}

// selectBit is a ternary multiplexer: an unknown condition yields the common
// value of both inputs, or unknown.
func selectBit(c, t, f typedbits.Bit) typedbits.Bit {
	switch c {
	case typedbits.One:
		return t
	case typedbits.Zero:
		return f
	}
	if t == f {
		return t
	}
	return typedbits.Unknown
}

func readAll(ws []ntl.Wire, read func(ntl.Wire) (typedbits.Bit, error)) ([]typedbits.Bit, error) {
	r := make([]typedbits.Bit, len(ws))
	for i, w := range ws {
		b, err := read(w)
		if err != nil {
			return nil, err
		}
		r[i] = b
	}
	return r, nil
}

func vector(bits []typedbits.Bit, signed bool) typedbits.TypedBits {
	var k kind.Kind = kind.Bits{Width: len(bits)}
	if signed {
		k = kind.Signed{Width: len(bits)}
	}
	return typedbits.TypedBits{Kind: k, Bits: bits}
}

func known(bits []typedbits.Bit) bool {
	for _, b := range bits {
		if b == typedbits.Unknown {
			return false
		}
	}
	return true
}

func fit(bits []typedbits.Bit, n int) ([]typedbits.Bit, error) {
	if len(bits) != n {
		return nil, errors.New("result has %d bits, opcode writes %d", len(bits), n)
	}
	return bits, nil
}
