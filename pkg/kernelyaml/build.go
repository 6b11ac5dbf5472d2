package kernelyaml

import (
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

type builder struct {
	src   *source
	types map[string]kind.Kind
	boxes map[string]*rhif.BlackBox

	obj   *rhif.Object
	regs  map[string]rhif.Slot
	calls map[string]rhif.FuncID
}

func (b *builder) kernel(lk located[kernelSpec]) (*rhif.Object, error) {
	k := lk.Value
	at := b.src.span(lk.Line, lk.Column)

	if k.Name == "" {
		return nil, diag.Legality(at, "kernel without a name")
	}

	b.obj = rhif.NewObject(k.Name)
	b.regs = make(map[string]rhif.Slot)
	b.calls = make(map[string]rhif.FuncID)

	for _, la := range k.Args {
		if err := b.declare(la, true); err != nil {
			return nil, err
		}
	}
	for _, lr := range k.Regs {
		if err := b.declare(lr, false); err != nil {
			return nil, err
		}
	}

	for _, lop := range k.Ops {
		loc := b.src.span(lop.Line, lop.Column)

		op, err := b.op(lop.Value, loc)
		if err != nil {
			var d *diag.Error
			if errors.As(err, &d) {
				return nil, err
			}
			return nil, diag.Legality(loc, "%s: %v", k.Name, err)
		}

		b.obj.Emit(op, loc)
	}

	if k.Return != "" {
		r, err := b.operand(k.Return, at)
		if err != nil {
			return nil, diag.Legality(at, "%s: return: %v", k.Name, err)
		}
		b.obj.Return = r
	}

	return b.obj, nil
}

func (b *builder) declare(lr located[regSpec], arg bool) error {
	r := lr.Value
	at := b.src.span(lr.Line, lr.Column)

	if !isIdent(r.Name) {
		return diag.Legality(at, "bad register name %q", r.Name)
	}
	if _, dup := b.regs[r.Name]; dup {
		return diag.Legality(at, "register %s is declared twice", r.Name)
	}

	k, err := ParseKind(r.Kind, b.types)
	if err != nil {
		return diag.Legality(at, "register %s: %v", r.Name, err)
	}

	if !arg {
		if r.Role != "" {
			return diag.Legality(at, "register %s: only arguments have a role", r.Name)
		}
		b.regs[r.Name] = b.obj.AddRegister(k, r.Name, at)
		return nil
	}

	var role rhif.Role
	switch r.Role {
	case "", "data":
	case "clock":
		role = rhif.Clock
	case "reset":
		role = rhif.Reset
	default:
		return diag.Legality(at, "argument %s: unknown role %q", r.Name, r.Role)
	}

	b.regs[r.Name] = b.obj.AddArgument(k, r.Name, role, at)

	return nil
}

func isIdent(s string) bool {
	p := &scanner{s: s}
	return s != "" && p.ident() == s
}

// operand resolves a register name or interns a literal located at loc.
func (b *builder) operand(s string, loc diag.Span) (rhif.Slot, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return rhif.Slot{}, errors.New("missing operand")
	}

	if r, ok := b.regs[s]; ok {
		return r, nil
	}

	if c := s[0]; c == '-' || c >= '0' && c <= '9' || strings.Contains(s, "::") {
		v, err := ParseLiteral(s, b.types)
		if err != nil {
			return rhif.Slot{}, diag.Type(loc, "%v", err)
		}
		return b.obj.AddLiteral(v, loc), nil
	}

	return rhif.Slot{}, errors.New("unknown register %s", s)
}

func (b *builder) operands(ss []string, loc diag.Span) ([]rhif.Slot, error) {
	r := make([]rhif.Slot, len(ss))
	for i, s := range ss {
		v, err := b.operand(s, loc)
		if err != nil {
			return nil, err
		}
		r[i] = v
	}
	return r, nil
}

func (b *builder) register(name string) (rhif.Slot, error) {
	r, ok := b.regs[name]
	if !ok {
		return rhif.Slot{}, errors.New("unknown register %s", name)
	}
	return r, nil
}

func (b *builder) fields(fs []fieldValueSpec, loc diag.Span) ([]rhif.FieldValue, error) {
	r := make([]rhif.FieldValue, len(fs))
	for i, f := range fs {
		v, err := b.operand(f.Value, loc)
		if err != nil {
			return nil, errors.Wrap(err, "field %s", f.Name)
		}
		r[i] = rhif.FieldValue{Name: f.Name, Value: v}
	}
	return r, nil
}

// arity is the operand count of opcodes with a fixed one.
var arity = map[string]int{
	"assign":    1,
	"select":    3,
	"index":     1,
	"splice":    2,
	"repeat":    1,
	"case":      1,
	"as_bits":   1,
	"as_signed": 1,
	"resize":    1,
	"retime":    1,
}

func (b *builder) op(o opSpec, loc diag.Span) (rhif.OpCode, error) {
	if n, ok := arity[o.Op]; ok && len(o.Args) != n {
		return nil, errors.New("%s takes %d operands, got %d", o.Op, n, len(o.Args))
	}

	switch o.Op {
	case "noop":
		return rhif.Noop{}, nil
	case "comment":
		return rhif.Comment{Text: o.Text}, nil
	}

	if o.Op == "exec" && o.Call == "" {
		return nil, errors.New("exec without a callee")
	}

	// calls may discard their result
	var lhs rhif.Slot
	if o.Lhs != "" || o.Op != "exec" {
		var err error
		if lhs, err = b.register(o.Lhs); err != nil {
			return nil, errors.Wrap(err, "%s lhs", o.Op)
		}
	}

	args, err := b.operands(o.Args, loc)
	if err != nil {
		return nil, err
	}

	switch o.Op {
	case "assign":
		return rhif.Assign{Lhs: lhs, Rhs: args[0]}, nil

	case "select":
		return rhif.Select{Lhs: lhs, Cond: args[0], TrueValue: args[1], FalseValue: args[2]}, nil

	case "index", "splice":
		path, err := parsePath(o.Path, b.register)
		if err != nil {
			return nil, err
		}
		if o.Op == "index" {
			return rhif.Index{Lhs: lhs, Arg: args[0], Path: path}, nil
		}
		return rhif.Splice{Lhs: lhs, Orig: args[0], Path: path, Subst: args[1]}, nil

	case "concat":
		return rhif.Concat{Lhs: lhs, Args: args}, nil

	case "repeat":
		return rhif.Repeat{Lhs: lhs, Value: args[0], Len: o.Len}, nil

	case "tuple":
		return rhif.Tuple{Lhs: lhs, Fields: args}, nil

	case "array":
		return rhif.Array{Lhs: lhs, Elements: args}, nil

	case "struct":
		fs, err := b.fields(o.Fields, loc)
		if err != nil {
			return nil, err
		}
		var rest rhif.Slot
		if o.Rest != "" {
			if rest, err = b.operand(o.Rest, loc); err != nil {
				return nil, err
			}
		}
		return rhif.Struct{Lhs: lhs, Fields: fs, Rest: rest, Template: typedbits.Zeros(b.obj.Kind(lhs))}, nil

	case "enum":
		en, ok := kind.Strip(b.obj.Kind(lhs)).(kind.Enum)
		if !ok {
			return nil, errors.New("enum lhs %s is not an enum", o.Lhs)
		}
		tmpl, err := typedbits.EnumValue(en, o.Variant)
		if err != nil {
			return nil, err
		}
		fs, err := b.fields(o.Fields, loc)
		if err != nil {
			return nil, err
		}
		return rhif.Enum{Lhs: lhs, Variant: o.Variant, Fields: fs, Template: tmpl}, nil

	case "case":
		table := make([]rhif.CaseEntry, len(o.Table))
		for i, e := range o.Table {
			v, err := b.operand(e.Value, loc)
			if err != nil {
				return nil, err
			}
			table[i].Value = v

			if e.Key == "_" {
				table[i].Arg.Wild = true
				continue
			}
			if table[i].Arg.Literal, err = b.operand(e.Key, loc); err != nil {
				return nil, err
			}
			if !table[i].Arg.Literal.IsLiteral() {
				return nil, errors.New("case key %s is not a literal", e.Key)
			}
		}
		return rhif.Case{Lhs: lhs, Discriminant: args[0], Table: table}, nil

	case "exec":
		return rhif.Exec{Lhs: lhs, ID: b.call(o.Call), Args: args}, nil

	case "as_bits":
		return rhif.AsBits{Lhs: lhs, Arg: args[0], Len: o.Len}, nil
	case "as_signed":
		return rhif.AsSigned{Lhs: lhs, Arg: args[0], Len: o.Len}, nil
	case "resize":
		return rhif.Resize{Lhs: lhs, Arg: args[0], Len: o.Len}, nil

	case "retime":
		c, err := kind.ParseColor(o.Color)
		if err != nil {
			return nil, err
		}
		return rhif.Retime{Lhs: lhs, Arg: args[0], Color: c}, nil
	}

	switch len(args) {
	case 1:
		if op, ok := typedbits.ParseUnaryOp(o.Op); ok {
			return rhif.Unary{Op: op, Lhs: lhs, Arg1: args[0]}, nil
		}
	case 2:
		if op, ok := typedbits.ParseBinaryOp(o.Op); ok {
			return rhif.Binary{Op: op, Lhs: lhs, Arg1: args[0], Arg2: args[1]}, nil
		}
	}

	return nil, errors.New("unknown opcode %s with %d operands", o.Op, len(args))
}

// call returns the call site id of a callee, declaring it on first use.
// Names that are not black boxes are left for the driver to resolve.
func (b *builder) call(name string) rhif.FuncID {
	if id, ok := b.calls[name]; ok {
		return id
	}

	id := rhif.FuncID(len(b.calls))
	b.calls[name] = id
	b.obj.Externals[id] = rhif.External{Name: name, BlackBox: b.boxes[name]}

	return id
}
