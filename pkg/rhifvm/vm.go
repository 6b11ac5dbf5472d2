// Package rhifvm is a reference interpreter for RHIF objects. It executes
// opcodes in order against concrete typed values and is used to check that
// rewrites preserve behavior.
package rhifvm

import (
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

type (
	// Model computes the output of a black box from its inputs.
	Model func(args []typedbits.TypedBits) (typedbits.TypedBits, error)

	// Models maps black box names to models. Black boxes without a model
	// produce unknown bits.
	Models map[string]Model
)

// Run executes obj on args and returns the value of its return slot.
func Run(obj *rhif.Object, args []typedbits.TypedBits, models Models) (typedbits.TypedBits, error) {
	if err := obj.CheckSymbols(); err != nil {
		return typedbits.TypedBits{}, errors.Wrap(err, "object %s is incomplete", obj.Name)
	}
	if len(args) != len(obj.Arguments) {
		return typedbits.TypedBits{}, errors.New("%s takes %d arguments, got %d", obj.Name, len(obj.Arguments), len(args))
	}

	m := &machine{obj: obj, regs: make(map[symtab.RegisterID]typedbits.TypedBits), models: models}

	for i, a := range obj.Arguments {
		if err := m.write(symtab.Reg(a.Reg), args[i]); err != nil {
			return typedbits.TypedBits{}, errors.Wrap(err, "argument %d", i)
		}
	}

	for i, lop := range obj.Ops {
		if err := m.exec(lop.Op); err != nil {
			return typedbits.TypedBits{}, errors.Wrap(err, "%s: op %d (%s)", obj.Name, i, rhif.OpString(lop.Op))
		}
	}

	return m.read(obj.Return)
}

type machine struct {
	obj    *rhif.Object
	regs   map[symtab.RegisterID]typedbits.TypedBits
	models Models
}

func (m *machine) read(s rhif.Slot) (typedbits.TypedBits, error) {
	switch {
	case s.IsLiteral():
		return m.obj.Symbols.Literal(symtab.LiteralID(s.ID)), nil
	case s.IsRegister():
		v, ok := m.regs[symtab.RegisterID(s.ID)]
		if !ok {
			return typedbits.TypedBits{}, errors.New("read of %s before write", s)
		}
		return v, nil
	}
	return typedbits.TypedBits{Kind: kind.Empty{}}, nil
}

func (m *machine) write(s rhif.Slot, v typedbits.TypedBits) error {
	id, ok := s.RegisterID()
	if !ok {
		if s.IsNone() {
			return nil
		}
		return errors.New("write to %s", s)
	}

	v, err := v.Retyped(m.obj.Kind(s))
	if err != nil {
		return errors.Wrap(err, "write to %s", s)
	}

	m.regs[id] = v
	return nil
}

func (m *machine) exec(op rhif.OpCode) error {
	switch o := op.(type) {
	case rhif.Noop, rhif.Comment:
		return nil
	case rhif.Exec:
		v, err := m.call(o)
		if err != nil {
			return err
		}
		return m.write(o.Lhs, v)
	}

	v, err := Eval(m.obj, op, m.read)
	if err != nil {
		return err
	}

	return m.write(rhif.Lhs(op), v)
}

func (m *machine) call(o rhif.Exec) (typedbits.TypedBits, error) {
	ext := m.obj.Externals[o.ID]

	args := make([]typedbits.TypedBits, len(o.Args))
	for i, s := range o.Args {
		v, err := m.read(s)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		args[i] = v
	}

	switch {
	case ext.Object != nil:
		return Run(ext.Object, args, m.models)
	case ext.BlackBox != nil:
		if f, ok := m.models[ext.BlackBox.Name]; ok {
			return f(args)
		}
		return typedbits.Unknowns(ext.BlackBox.Ret), nil
	}

	return typedbits.TypedBits{}, errors.New("call to unresolved external %s", ext.Name)
}

// Eval computes the value an opcode writes, reading operands through val.
// Exec, Noop and Comment are not handled.
func Eval(obj *rhif.Object, op rhif.OpCode, val func(rhif.Slot) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
	r, err := eval(op, val)
	if err != nil {
		return typedbits.TypedBits{}, err
	}

	if l := rhif.Lhs(op); !l.IsNone() {
		return r.Retyped(obj.Kind(l))
	}

	return r, nil
}

func eval(op rhif.OpCode, val func(rhif.Slot) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
	vals := func(ss []rhif.Slot) ([]typedbits.TypedBits, error) {
		r := make([]typedbits.TypedBits, len(ss))
		for i, s := range ss {
			v, err := val(s)
			if err != nil {
				return nil, err
			}
			r[i] = v
		}
		return r, nil
	}

	switch o := op.(type) {
	case rhif.Assign:
		return val(o.Rhs)
	case rhif.Retime:
		return val(o.Arg)
	case rhif.Binary:
		v, err := vals([]rhif.Slot{o.Arg1, o.Arg2})
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Binary(o.Op, v[0], v[1])
	case rhif.Unary:
		a, err := val(o.Arg1)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Unary(o.Op, a)
	case rhif.Select:
		v, err := vals([]rhif.Slot{o.Cond, o.TrueValue, o.FalseValue})
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return Select(v[0], v[1], v[2])
	case rhif.Index:
		a, err := val(o.Arg)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		p, known, err := staticPath(o.Path, val)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		if !known {
			sub, err := kind.SubKind(a.Kind, o.Path)
			if err != nil {
				return typedbits.TypedBits{}, err
			}
			return typedbits.Unknowns(sub), nil
		}
		return a.Path(p)
	case rhif.Splice:
		v, err := vals([]rhif.Slot{o.Orig, o.Subst})
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		p, known, err := staticPath(o.Path, val)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		if !known {
			return typedbits.Unknowns(v[0].Kind), nil
		}
		return v[0].SplicePath(p, v[1])
	case rhif.Concat:
		v, err := vals(o.Args)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Concat(v...), nil
	case rhif.Tuple:
		v, err := vals(o.Fields)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Concat(v...), nil
	case rhif.Array:
		v, err := vals(o.Elements)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return typedbits.Concat(v...), nil
	case rhif.Repeat:
		v, err := val(o.Value)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return v.Repeat(o.Len), nil
	case rhif.Struct:
		r := o.Template
		if !o.Rest.IsNone() {
			rest, err := val(o.Rest)
			if err != nil {
				return typedbits.TypedBits{}, err
			}
			r = rest
		}
		for _, f := range o.Fields {
			p, err := rhif.FieldPath(o.Template.Kind, f.Name)
			if err != nil {
				return typedbits.TypedBits{}, err
			}
			if r, err = splice(r, p, f.Value, val); err != nil {
				return typedbits.TypedBits{}, err
			}
		}
		return r, nil
	case rhif.Enum:
		r := o.Template
		for _, f := range o.Fields {
			p, err := rhif.EnumFieldPath(o.Template.Kind, o.Variant, f.Name)
			if err != nil {
				return typedbits.TypedBits{}, err
			}
			if r, err = splice(r, p, f.Value, val); err != nil {
				return typedbits.TypedBits{}, err
			}
		}
		return r, nil
	case rhif.Case:
		return evalCase(o, val)
	case rhif.AsBits:
		a, err := val(o.Arg)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return a.AsBits(o.Len), nil
	case rhif.AsSigned:
		a, err := val(o.Arg)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return a.AsSigned(o.Len), nil
	case rhif.Resize:
		a, err := val(o.Arg)
		if err != nil {
			return typedbits.TypedBits{}, err
		}
		return a.Resize(o.Len), nil
	}

	return typedbits.TypedBits{}, errors.New("cannot evaluate %T", op)
}

func splice(r typedbits.TypedBits, p kind.Path, s rhif.Slot, val func(rhif.Slot) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
	v, err := val(s)
	if err != nil {
		return typedbits.TypedBits{}, err
	}
	return r.SplicePath(p, v)
}

// Select merges t and f under a ternary condition bit. An unknown
// condition keeps only the bits on which both sides agree.
func Select(c, t, f typedbits.TypedBits) (typedbits.TypedBits, error) {
	if len(c.Bits) != 1 {
		return typedbits.TypedBits{}, errors.New("select condition of kind %s", c.Kind)
	}
	if len(t.Bits) != len(f.Bits) {
		return typedbits.TypedBits{}, errors.New("select arms differ in width: %s vs %s", t.Kind, f.Kind)
	}

	switch c.Bits[0] {
	case typedbits.One:
		return t, nil
	case typedbits.Zero:
		return f, nil
	}

	r := typedbits.Zeros(t.Kind)
	for i := range r.Bits {
		if t.Bits[i] == f.Bits[i] {
			r.Bits[i] = t.Bits[i]
		} else {
			r.Bits[i] = typedbits.Unknown
		}
	}
	return r, nil
}

// staticPath substitutes the values of dynamic indices. known is false when
// an index has unknown bits.
func staticPath(p kind.Path, val func(rhif.Slot) (typedbits.TypedBits, error)) (_ kind.Path, known bool, _ error) {
	dyn := p.Dynamic()
	if len(dyn) == 0 {
		return p, true, nil
	}

	values := make([]int, len(dyn))
	for i, s := range dyn {
		v, err := val(s)
		if err != nil {
			return nil, false, err
		}
		if !v.IsKnown() {
			return nil, false, nil
		}
		n, ok := v.ToUint64()
		if !ok {
			return nil, false, errors.New("index %s out of range", v)
		}
		values[i] = int(n)
	}

	return p.Substitute(values), true, nil
}

func evalCase(o rhif.Case, val func(rhif.Slot) (typedbits.TypedBits, error)) (typedbits.TypedBits, error) {
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
			if !CaseMatches(key, d) {
				continue
			}
		}
		return val(e.Value)
	}

	return typedbits.TypedBits{}, errors.New("no case matches %s", d)
}

// CaseMatches reports whether a case key selects discriminant d. Enum
// values match on their discriminant bits only.
func CaseMatches(key, d typedbits.TypedBits) bool {
	if _, ok := kind.Strip(d.Kind).(kind.Enum); ok {
		kd, err := key.Path(kind.Path{kind.Discriminant{}})
		if err != nil {
			return false
		}
		dd, err := d.Path(kind.Path{kind.Discriminant{}})
		if err != nil {
			return false
		}
		return typedbits.SameBits(kd.Bits, dd.Bits)
	}
	return typedbits.SameBits(key.Bits, d.Bits)
}
