package rhif

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Slot is a reference to a literal or register of the object's table.
type Slot = symtab.Ref

// FuncID identifies a cross-object call site target.
type FuncID int

// OpCode is the interface for all RHIF opcodes.
type OpCode interface {
	implOpCode()
}

// Noop does nothing.
type Noop struct{}

// Assign copies Rhs to Lhs.
type Assign struct {
	Lhs, Rhs Slot
}

// Binary applies an ALU operation.
type Binary struct {
	Op         typedbits.BinaryOp
	Lhs        Slot
	Arg1, Arg2 Slot
}

// Unary applies an ALU operation to one operand.
type Unary struct {
	Op   typedbits.UnaryOp
	Lhs  Slot
	Arg1 Slot
}

// Select is Lhs = Cond ? TrueValue : FalseValue.
type Select struct {
	Lhs                   Slot
	Cond                  Slot
	TrueValue, FalseValue Slot
}

// Index projects Arg along Path.
type Index struct {
	Lhs  Slot
	Arg  Slot
	Path kind.Path
}

// Splice copies Orig with the value at Path replaced by Subst.
type Splice struct {
	Lhs   Slot
	Orig  Slot
	Path  kind.Path
	Subst Slot
}

// Concat joins Args LSB first into an unsigned value.
type Concat struct {
	Lhs  Slot
	Args []Slot
}

// Repeat concatenates Len copies of Value.
type Repeat struct {
	Lhs   Slot
	Value Slot
	Len   int
}

// FieldValue assigns a value to a named member.
type FieldValue struct {
	Name  string
	Value Slot
}

// Struct builds a struct from Template, then Rest (if any), then Fields.
type Struct struct {
	Lhs      Slot
	Fields   []FieldValue
	Rest     Slot
	Template typedbits.TypedBits
}

// Tuple builds a tuple.
type Tuple struct {
	Lhs    Slot
	Fields []Slot
}

// Array builds an array.
type Array struct {
	Lhs      Slot
	Elements []Slot
}

// Enum builds a value of Variant from Template, which carries the
// discriminant, then writes Fields into the payload.
type Enum struct {
	Lhs      Slot
	Variant  string
	Fields   []FieldValue
	Template typedbits.TypedBits
}

// CaseArgument is a case table key: a literal, or the wildcard.
type CaseArgument struct {
	Wild    bool
	Literal Slot
}

// CaseEntry is one row of a case table.
type CaseEntry struct {
	Arg   CaseArgument
	Value Slot
}

// Case selects the value of the first entry matching Discriminant.
type Case struct {
	Lhs          Slot
	Discriminant Slot
	Table        []CaseEntry
}

// Exec calls an external object or black box.
type Exec struct {
	Lhs  Slot
	ID   FuncID
	Args []Slot
}

// AsBits resizes Arg to Len bits and reinterprets it as unsigned.
type AsBits struct {
	Lhs, Arg Slot
	Len      int
}

// AsSigned resizes Arg to Len bits and reinterprets it as signed.
type AsSigned struct {
	Lhs, Arg Slot
	Len      int
}

// Resize changes the width of Arg keeping its signedness.
type Resize struct {
	Lhs, Arg Slot
	Len      int
}

// Retime moves Arg into clock domain Color.
type Retime struct {
	Lhs, Arg Slot
	Color    kind.Color
}

// Comment carries text through to dumps.
type Comment struct {
	Text string
}

func (Noop) implOpCode()     {}
func (Assign) implOpCode()   {}
func (Binary) implOpCode()   {}
func (Unary) implOpCode()    {}
func (Select) implOpCode()   {}
func (Index) implOpCode()    {}
func (Splice) implOpCode()   {}
func (Concat) implOpCode()   {}
func (Repeat) implOpCode()   {}
func (Struct) implOpCode()   {}
func (Tuple) implOpCode()    {}
func (Array) implOpCode()    {}
func (Enum) implOpCode()     {}
func (Case) implOpCode()     {}
func (Exec) implOpCode()     {}
func (AsBits) implOpCode()   {}
func (AsSigned) implOpCode() {}
func (Resize) implOpCode()   {}
func (Retime) implOpCode()   {}
func (Comment) implOpCode()  {}

// Located pairs an opcode with the source span it came from.
type Located struct {
	Op  OpCode
	Loc diag.Span
}

// Lhs returns the slot an opcode writes, or the empty slot.
func Lhs(op OpCode) Slot {
	switch o := op.(type) {
	case Assign:
		return o.Lhs
	case Binary:
		return o.Lhs
	case Unary:
		return o.Lhs
	case Select:
		return o.Lhs
	case Index:
		return o.Lhs
	case Splice:
		return o.Lhs
	case Concat:
		return o.Lhs
	case Repeat:
		return o.Lhs
	case Struct:
		return o.Lhs
	case Tuple:
		return o.Lhs
	case Array:
		return o.Lhs
	case Enum:
		return o.Lhs
	case Case:
		return o.Lhs
	case Exec:
		return o.Lhs
	case AsBits:
		return o.Lhs
	case AsSigned:
		return o.Lhs
	case Resize:
		return o.Lhs
	case Retime:
		return o.Lhs
	}
	return Slot{}
}

// Reads returns every slot an opcode reads, including dynamic path indices
// and case table literals.
func Reads(op OpCode) []Slot {
	switch o := op.(type) {
	case Assign:
		return []Slot{o.Rhs}
	case Binary:
		return []Slot{o.Arg1, o.Arg2}
	case Unary:
		return []Slot{o.Arg1}
	case Select:
		return []Slot{o.Cond, o.TrueValue, o.FalseValue}
	case Index:
		return append([]Slot{o.Arg}, o.Path.Dynamic()...)
	case Splice:
		return append([]Slot{o.Orig, o.Subst}, o.Path.Dynamic()...)
	case Concat:
		return append([]Slot(nil), o.Args...)
	case Repeat:
		return []Slot{o.Value}
	case Struct:
		r := make([]Slot, 0, len(o.Fields)+1)
		for _, f := range o.Fields {
			r = append(r, f.Value)
		}
		if !o.Rest.IsNone() {
			r = append(r, o.Rest)
		}
		return r
	case Tuple:
		return append([]Slot(nil), o.Fields...)
	case Array:
		return append([]Slot(nil), o.Elements...)
	case Enum:
		r := make([]Slot, 0, len(o.Fields))
		for _, f := range o.Fields {
			r = append(r, f.Value)
		}
		return r
	case Case:
		r := []Slot{o.Discriminant}
		for _, e := range o.Table {
			if !e.Arg.Wild {
				r = append(r, e.Arg.Literal)
			}
			r = append(r, e.Value)
		}
		return r
	case Exec:
		return append([]Slot(nil), o.Args...)
	case AsBits:
		return []Slot{o.Arg}
	case AsSigned:
		return []Slot{o.Arg}
	case Resize:
		return []Slot{o.Arg}
	case Retime:
		return []Slot{o.Arg}
	}
	return nil
}

// RenameReads returns op with every read slot replaced by f(slot). The
// written slot is left alone.
func RenameReads(op OpCode, f func(Slot) Slot) OpCode {
	fields := func(fs []FieldValue) []FieldValue {
		r := make([]FieldValue, len(fs))
		for i, x := range fs {
			r[i] = FieldValue{Name: x.Name, Value: f(x.Value)}
		}
		return r
	}
	slots := func(ss []Slot) []Slot {
		r := make([]Slot, len(ss))
		for i, s := range ss {
			r[i] = f(s)
		}
		return r
	}

	switch o := op.(type) {
	case Assign:
		o.Rhs = f(o.Rhs)
		return o
	case Binary:
		o.Arg1, o.Arg2 = f(o.Arg1), f(o.Arg2)
		return o
	case Unary:
		o.Arg1 = f(o.Arg1)
		return o
	case Select:
		o.Cond, o.TrueValue, o.FalseValue = f(o.Cond), f(o.TrueValue), f(o.FalseValue)
		return o
	case Index:
		o.Arg = f(o.Arg)
		o.Path = o.Path.MapSlots(f)
		return o
	case Splice:
		o.Orig, o.Subst = f(o.Orig), f(o.Subst)
		o.Path = o.Path.MapSlots(f)
		return o
	case Concat:
		o.Args = slots(o.Args)
		return o
	case Repeat:
		o.Value = f(o.Value)
		return o
	case Struct:
		o.Fields = fields(o.Fields)
		if !o.Rest.IsNone() {
			o.Rest = f(o.Rest)
		}
		return o
	case Tuple:
		o.Fields = slots(o.Fields)
		return o
	case Array:
		o.Elements = slots(o.Elements)
		return o
	case Enum:
		o.Fields = fields(o.Fields)
		return o
	case Case:
		o.Discriminant = f(o.Discriminant)
		table := make([]CaseEntry, len(o.Table))
		for i, e := range o.Table {
			table[i] = CaseEntry{Arg: e.Arg, Value: f(e.Value)}
			if !e.Arg.Wild {
				table[i].Arg.Literal = f(e.Arg.Literal)
			}
		}
		o.Table = table
		return o
	case Exec:
		o.Args = slots(o.Args)
		return o
	case AsBits:
		o.Arg = f(o.Arg)
		return o
	case AsSigned:
		o.Arg = f(o.Arg)
		return o
	case Resize:
		o.Arg = f(o.Arg)
		return o
	case Retime:
		o.Arg = f(o.Arg)
		return o
	}
	return op
}
