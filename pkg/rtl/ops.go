// Package rtl defines the RTL tier: a flattened, operand-level IR. Every
// operand is a plain unsigned or signed bit vector, paths have been resolved
// to bit ranges and every cast states its kind explicitly.
package rtl

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Operand is a reference to a literal or register of the object's table.
type Operand = symtab.Ref

// OpCode is the interface for all RTL opcodes.
type OpCode interface {
	implOpCode()
}

// Assign copies the bits of Rhs to Lhs. Both have the same width.
type Assign struct {
	Lhs, Rhs Operand
}

// Binary applies an ALU operation.
type Binary struct {
	Op         typedbits.BinaryOp
	Lhs        Operand
	Arg1, Arg2 Operand
}

// Unary applies an ALU operation to one operand.
type Unary struct {
	Op   typedbits.UnaryOp
	Lhs  Operand
	Arg1 Operand
}

// Select is Lhs = Cond ? TrueValue : FalseValue.
type Select struct {
	Lhs                   Operand
	Cond                  Operand
	TrueValue, FalseValue Operand
}

// Index copies bits [Start, End) of Arg to Lhs.
type Index struct {
	Lhs        Operand
	Arg        Operand
	Start, End int
}

// Splice copies Orig with bits [Start, End) replaced by Value.
type Splice struct {
	Lhs        Operand
	Orig       Operand
	Start, End int
	Value      Operand
}

// Concat joins Args LSB first.
type Concat struct {
	Lhs  Operand
	Args []Operand
}

// CastKind tells how a cast extends or reinterprets its argument.
type CastKind int

const (
	// Unsigned produces an unsigned result, extending by the argument's
	// own signedness.
	Unsigned CastKind = iota
	// Signed produces a signed result, extending by the argument's own
	// signedness.
	Signed
	// Resize keeps the argument's signedness.
	Resize
)

func (c CastKind) String() string {
	switch c {
	case Signed:
		return "signed"
	case Resize:
		return "resize"
	}
	return "unsigned"
}

// Cast changes the width of Arg to Len.
type Cast struct {
	Lhs  Operand
	Arg  Operand
	Len  int
	Kind CastKind
}

// CaseArgument is a case table key: a literal or the wildcard.
type CaseArgument struct {
	Wild    bool
	Literal Operand
}

// CaseEntry is one arm of a case table.
type CaseEntry struct {
	Arg   CaseArgument
	Value Operand
}

// Case selects the value of the first arm whose key equals Discriminant.
type Case struct {
	Lhs          Operand
	Discriminant Operand
	Table        []CaseEntry
}

// BlackBox instantiates an opaque primitive. Lhs may be None.
type BlackBox struct {
	Lhs         Operand
	Name        string
	Args        []Operand
	Synchronous bool
}

// Comment is carried through to the netlist.
type Comment struct {
	Text string
}

func (Assign) implOpCode()   {}
func (Binary) implOpCode()   {}
func (Unary) implOpCode()    {}
func (Select) implOpCode()   {}
func (Index) implOpCode()    {}
func (Splice) implOpCode()   {}
func (Concat) implOpCode()   {}
func (Cast) implOpCode()     {}
func (Case) implOpCode()     {}
func (BlackBox) implOpCode() {}
func (Comment) implOpCode()  {}

// Located pairs an opcode with the source span it came from.
type Located struct {
	Op  OpCode
	Loc diag.Span
}

// Lhs returns the operand written by op, or None.
func Lhs(op OpCode) Operand {
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
	case Cast:
		return o.Lhs
	case Case:
		return o.Lhs
	case BlackBox:
		return o.Lhs
	}
	return Operand{}
}

// Reads returns the operands read by op, including case keys.
func Reads(op OpCode) []Operand {
	switch o := op.(type) {
	case Assign:
		return []Operand{o.Rhs}
	case Binary:
		return []Operand{o.Arg1, o.Arg2}
	case Unary:
		return []Operand{o.Arg1}
	case Select:
		return []Operand{o.Cond, o.TrueValue, o.FalseValue}
	case Index:
		return []Operand{o.Arg}
	case Splice:
		return []Operand{o.Orig, o.Value}
	case Concat:
		return append([]Operand(nil), o.Args...)
	case Cast:
		return []Operand{o.Arg}
	case Case:
		r := []Operand{o.Discriminant}
		for _, e := range o.Table {
			if !e.Arg.Wild {
				r = append(r, e.Arg.Literal)
			}
			r = append(r, e.Value)
		}
		return r
	case BlackBox:
		return append([]Operand(nil), o.Args...)
	}
	return nil
}

// RenameReads returns op with every read operand passed through f.
func RenameReads(op OpCode, f func(Operand) Operand) OpCode {
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
		return o
	case Splice:
		o.Orig, o.Value = f(o.Orig), f(o.Value)
		return o
	case Concat:
		o.Args = mapOperands(o.Args, f)
		return o
	case Cast:
		o.Arg = f(o.Arg)
		return o
	case Case:
		o.Discriminant = f(o.Discriminant)
		table := make([]CaseEntry, len(o.Table))
		for i, e := range o.Table {
			if !e.Arg.Wild {
				e.Arg.Literal = f(e.Arg.Literal)
			}
			e.Value = f(e.Value)
			table[i] = e
		}
		o.Table = table
		return o
	case BlackBox:
		o.Args = mapOperands(o.Args, f)
		return o
	}
	return op
}

func mapOperands(ss []Operand, f func(Operand) Operand) []Operand {
	r := make([]Operand, len(ss))
	for i, s := range ss {
		r[i] = f(s)
	}
	return r
}
