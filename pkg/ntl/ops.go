// Package ntl defines the NTL tier: a netlist of single-bit wires. Bitwise
// operations act on one wire each; arithmetic, comparisons, reductions, cases
// and black boxes take vectors of wires, LSB first.
package ntl

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Wire is a reference to a literal bit or a register bit.
type Wire = symtab.Ref

// OpCode is the interface for all NTL opcodes.
type OpCode interface {
	implOpCode()
}

// LogicOp enumerates the single-bit gates.
type LogicOp int

const (
	And LogicOp = iota
	Or
	Xor
)

func (op LogicOp) String() string {
	switch op {
	case And:
		return "&"
	case Or:
		return "|"
	}
	return "^"
}

// BinaryOp returns the ALU operation computing op.
func (op LogicOp) BinaryOp() typedbits.BinaryOp {
	switch op {
	case And:
		return typedbits.BitAnd
	case Or:
		return typedbits.BitOr
	}
	return typedbits.BitXor
}

// Assign copies one bit.
type Assign struct {
	Lhs, Rhs Wire
}

// Not inverts one bit.
type Not struct {
	Lhs, Arg Wire
}

// Binary is a two-input gate.
type Binary struct {
	Op         LogicOp
	Lhs        Wire
	Arg1, Arg2 Wire
}

// Vector is a multi-bit arithmetic, comparison or shift operation. Signed
// tells how Arg1 (and Arg2, except for shifts) are interpreted. Comparisons
// write a single wire.
type Vector struct {
	Op         typedbits.BinaryOp
	Lhs        []Wire
	Arg1, Arg2 []Wire
	Signed     bool
}

// Unary is negation or a reduction of a vector.
type Unary struct {
	Op     typedbits.UnaryOp
	Lhs    []Wire
	Arg    []Wire
	Signed bool
}

// Select is a one-bit multiplexer.
type Select struct {
	Lhs                   Wire
	Cond                  Wire
	TrueValue, FalseValue Wire
}

// CaseArgument is a constant key or the wildcard.
type CaseArgument struct {
	Wild bool
	Key  []typedbits.Bit
}

// CaseEntry is one row of a case table.
type CaseEntry struct {
	Arg   CaseArgument
	Value []Wire
}

// Case selects the value of the first entry whose key equals Discriminant.
type Case struct {
	Lhs          []Wire
	Discriminant []Wire
	Table        []CaseEntry
}

// BlackBox instantiates an opaque primitive. Synchronous black boxes hold
// state: their outputs do not depend combinationally on their inputs.
type BlackBox struct {
	Lhs         []Wire
	Name        string
	Args        [][]Wire
	Synchronous bool
}

// Comment carries text through to the emitter.
type Comment struct {
	Text string
}

func (Assign) implOpCode()   {}
func (Not) implOpCode()      {}
func (Binary) implOpCode()   {}
func (Vector) implOpCode()   {}
func (Unary) implOpCode()    {}
func (Select) implOpCode()   {}
func (Case) implOpCode()     {}
func (BlackBox) implOpCode() {}
func (Comment) implOpCode()  {}

// Located is an opcode with the span it was lowered from.
type Located struct {
	Op  OpCode
	Loc diag.Span
}

// Writes returns the wires written by op.
func Writes(op OpCode) []Wire {
	switch o := op.(type) {
	case Assign:
		return []Wire{o.Lhs}
	case Not:
		return []Wire{o.Lhs}
	case Binary:
		return []Wire{o.Lhs}
	case Vector:
		return o.Lhs
	case Unary:
		return o.Lhs
	case Select:
		return []Wire{o.Lhs}
	case Case:
		return o.Lhs
	case BlackBox:
		return o.Lhs
	}
	return nil
}

// Reads returns the wires read by op.
func Reads(op OpCode) []Wire {
	switch o := op.(type) {
	case Assign:
		return []Wire{o.Rhs}
	case Not:
		return []Wire{o.Arg}
	case Binary:
		return []Wire{o.Arg1, o.Arg2}
	case Vector:
		return append(append([]Wire(nil), o.Arg1...), o.Arg2...)
	case Unary:
		return append([]Wire(nil), o.Arg...)
	case Select:
		return []Wire{o.Cond, o.TrueValue, o.FalseValue}
	case Case:
		r := append([]Wire(nil), o.Discriminant...)
		for _, e := range o.Table {
			r = append(r, e.Value...)
		}
		return r
	case BlackBox:
		var r []Wire
		for _, a := range o.Args {
			r = append(r, a...)
		}
		return r
	}
	return nil
}

// Rename returns op with every wire, read or written, passed through f.
func Rename(op OpCode, f func(Wire) Wire) OpCode {
	return rename(op, f, f)
}

// RenameReads returns op with every read wire passed through f.
func RenameReads(op OpCode, f func(Wire) Wire) OpCode {
	return rename(op, func(w Wire) Wire { return w }, f)
}

func rename(op OpCode, wf, rf func(Wire) Wire) OpCode {
	switch o := op.(type) {
	case Assign:
		o.Lhs, o.Rhs = wf(o.Lhs), rf(o.Rhs)
		return o
	case Not:
		o.Lhs, o.Arg = wf(o.Lhs), rf(o.Arg)
		return o
	case Binary:
		o.Lhs, o.Arg1, o.Arg2 = wf(o.Lhs), rf(o.Arg1), rf(o.Arg2)
		return o
	case Vector:
		o.Lhs, o.Arg1, o.Arg2 = mapWires(o.Lhs, wf), mapWires(o.Arg1, rf), mapWires(o.Arg2, rf)
		return o
	case Unary:
		o.Lhs, o.Arg = mapWires(o.Lhs, wf), mapWires(o.Arg, rf)
		return o
	case Select:
		o.Lhs, o.Cond, o.TrueValue, o.FalseValue = wf(o.Lhs), rf(o.Cond), rf(o.TrueValue), rf(o.FalseValue)
		return o
	case Case:
		o.Lhs, o.Discriminant = mapWires(o.Lhs, wf), mapWires(o.Discriminant, rf)
		table := make([]CaseEntry, len(o.Table))
		for i, e := range o.Table {
			table[i] = CaseEntry{Arg: e.Arg, Value: mapWires(e.Value, rf)}
		}
		o.Table = table
		return o
	case BlackBox:
		o.Lhs = mapWires(o.Lhs, wf)
		args := make([][]Wire, len(o.Args))
		for i, a := range o.Args {
			args[i] = mapWires(a, rf)
		}
		o.Args = args
		return o
	}
	return op
}

func mapWires(ws []Wire, f func(Wire) Wire) []Wire {
	r := make([]Wire, len(ws))
	for i, w := range ws {
		r[i] = f(w)
	}
	return r
}
