// Package rtlvm is a reference interpreter for RTL objects.
package rtlvm

import (
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/rhifvm"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Models maps black box names to models.
type Models = rhifvm.Models

// Run executes obj on args and returns the value of its return operand.
func Run(obj *rtl.Object, args []typedbits.TypedBits, models Models) (typedbits.TypedBits, error) {
	if err := obj.CheckSymbols(); err != nil {
		return typedbits.TypedBits{}, errors.Wrap(err, "object %s is incomplete", obj.Name)
	}
	if len(args) != len(obj.Arguments) {
		return typedbits.TypedBits{}, errors.New("%s takes %d arguments, got %d", obj.Name, len(obj.Arguments), len(args))
	}

	regs := make(map[symtab.RegisterID]typedbits.TypedBits)

	read := func(o rtl.Operand) (typedbits.TypedBits, error) {
		switch {
		case o.IsLiteral():
			return obj.Symbols.Literal(symtab.LiteralID(o.ID)), nil
		case o.IsRegister():
			v, ok := regs[symtab.RegisterID(o.ID)]
			if !ok {
				return typedbits.TypedBits{}, errors.New("read of %s before write", o)
			}
			return v, nil
		}
		return typedbits.Zeros(obj.Kind(o)), nil
	}

	for i, a := range obj.Arguments {
		v, err := args[i].Retyped(obj.Symbols.Register(a.Reg).Kind)
		if err != nil {
			return typedbits.TypedBits{}, errors.Wrap(err, "argument %d", i)
		}
		regs[a.Reg] = v
	}

	for i, lop := range obj.Ops {
		var v typedbits.TypedBits
		var err error

		switch o := lop.Op.(type) {
		case rtl.Comment:
			continue
		case rtl.BlackBox:
			v, err = blackBox(obj, o, read, models)
		default:
			v, err = Eval(obj, lop.Op, read)
		}
		if err != nil {
			return typedbits.TypedBits{}, errors.Wrap(err, "%s: op %d (%s)", obj.Name, i, rtl.OpString(lop.Op))
		}

		if id, ok := rtl.Lhs(lop.Op).RegisterID(); ok {
			regs[id] = v
		}
	}

	return read(obj.Return)
}

func blackBox(obj *rtl.Object, o rtl.BlackBox, read func(rtl.Operand) (typedbits.TypedBits, error), models Models) (typedbits.TypedBits, error) {
	args := make([]typedbits.TypedBits, len(o.Args))
	for i, a := range o.Args {
		v, err := read(a)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		args[i] = v
	}

	k := obj.Kind(o.Lhs)

	f, ok := models[o.Name]
	if !ok {
		return typedbits.Unknowns(k), nil
	}

	v, err := f(args)
	if err != nil {
		return typedbits.TypedBits{}, err
	}
	return v.Retyped(k)
}

// Eval computes the value an opcode writes, reading operands through val.
// The result carries the kind of the opcode's lhs. BlackBox and Comment are
// not handled.
func Eval(obj *rtl.Object, op rtl.OpCode, val func(rtl.Operand) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
	r, err := eval(op, val)
	if err != nil {
		return typedbits.TypedBits{}, err
	}
	return r.Retyped(obj.Kind(rtl.Lhs(op)))
}

func eval(op rtl.OpCode, val func(rtl.Operand) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
	vals := func(os ...rtl.Operand) ([]typedbits.TypedBits, error) {
		r := make([]typedbits.TypedBits, len(os))
		for i, o := range os {
			v, err := val(o)
			if err != nil {
				return nil, err
			}
			r[i] = v
		}
		return r, nil
	}

	switch o := op.(type) {
	case rtl.Assign:
		return val(o.Rhs)
	case rtl.Binary:
		v, err := vals(o.Arg1, o.Arg2)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Binary(o.Op, v[0], v[1])
	case rtl.Unary:
		a, err := val(o.Arg1)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Unary(o.Op, a)
	case rtl.Select:
		v, err := vals(o.Cond, o.TrueValue, o.FalseValue)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return rhifvm.Select(v[0], v[1], v[2])
	case rtl.Index:
		a, err := val(o.Arg)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return a.Slice(o.Start, o.End)
	case rtl.Splice:
		v, err := vals(o.Orig, o.Value)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		if len(v[1].Bits) != o.End-o.Start {
			return typedbits.TypedBits{}, errors.New("splice of %d bits into [%d, %d)", len(v[1].Bits), o.Start, o.End)
		}
		return v[0].Splice(o.Start, v[1].Bits)
	case rtl.Concat:
		v, err := vals(o.Args...)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Concat(v...), nil
	case rtl.Cast:
		a, err := val(o.Arg)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		switch o.Kind {
		case rtl.Signed:
			return a.AsSigned(o.Len), nil
		case rtl.Resize:
			return a.Resize(o.Len), nil
		}
		return a.AsBits(o.Len), nil
	case rtl.Case:
		return evalCase(o, val)
	}

	return typedbits.TypedBits{}, errors.New("cannot evaluate %T", op)
}

func evalCase(o rtl.Case, val func(rtl.Operand) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
	d, err := val(o.Discriminant)
	if err != nil {
		return typedbits.TypedBits{}, err
	}

	for _, e := range o.Table {
		if !e.Arg.Wild {
			key, err := val(e.Arg.Literal)
			if err != nil {
				return typedbits.TypedBits{}, err
			}
			if !d.IsKnown() {
				v, err := val(e.Value)
				if err != nil {
					return typedbits.TypedBits{}, err
				}
				return typedbits.Unknowns(v.Kind), nil
			}
			if !typedbits.SameBits(key.Bits, d.Bits) {
				continue
			}
		}
		return val(e.Value)
	}

	return typedbits.TypedBits{}, errors.New("no case matches %s", d)
}
