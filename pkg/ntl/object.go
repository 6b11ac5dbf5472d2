package ntl

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Register is the payload of a register wire.
type Register struct {
	Name string
}

// SymbolTable holds the literal bits and register wires of one object.
type SymbolTable = symtab.Table[typedbits.Bit, Register]

// Input is one argument of the kernel, LSB first.
type Input struct {
	Name  string
	Wires []Wire
	Role  rhif.Role
}

// Object is one kernel in NTL form.
type Object struct {
	Name    string
	Symbols SymbolTable
	Ops     []Located
	Inputs  []Input
	Outputs []Wire
}

// NewObject returns an empty object.
func NewObject(name string) *Object {
	return &Object{Name: name}
}

// Clone returns a copy that can be rewritten without affecting obj.
func (obj *Object) Clone() *Object {
	r := &Object{
		Name:    obj.Name,
		Symbols: obj.Symbols.Clone(),
		Ops:     append([]Located(nil), obj.Ops...),
		Outputs: append([]Wire(nil), obj.Outputs...),
		Inputs:  make([]Input, len(obj.Inputs)),
	}
	for i, in := range obj.Inputs {
		in.Wires = append([]Wire(nil), in.Wires...)
		r.Inputs[i] = in
	}
	return r
}

// Bit returns the value of a literal wire.
func (obj *Object) Bit(w Wire) (typedbits.Bit, bool) {
	id, ok := w.LiteralID()
	if !ok || !obj.Symbols.HasLiteral(id) {
		return typedbits.Unknown, false
	}
	return obj.Symbols.Literal(id), true
}

// Span returns the source span of a wire.
func (obj *Object) Span(w Wire) diag.Span {
	return obj.Symbols.Loc(w)
}

// WireName returns the name of a register wire.
func (obj *Object) WireName(w Wire) string {
	id, ok := w.RegisterID()
	if !ok || !obj.Symbols.HasRegister(id) {
		return ""
	}
	return obj.Symbols.Register(id).Name
}

// AddLiteral interns a constant bit.
func (obj *Object) AddLiteral(b typedbits.Bit, loc diag.Span) Wire {
	return symtab.Lit(obj.Symbols.PushLiteral(b, loc))
}

// AddLiterals interns the bits of a value.
func (obj *Object) AddLiterals(bits []typedbits.Bit, loc diag.Span) []Wire {
	r := make([]Wire, len(bits))
	for i, b := range bits {
		r[i] = obj.AddLiteral(b, loc)
	}
	return r
}

// AddRegister allocates a wire.
func (obj *Object) AddRegister(name string, loc diag.Span) Wire {
	return symtab.Reg(obj.Symbols.PushRegister(Register{Name: name}, loc))
}

// AddRegisters allocates n wires named name[0] .. name[n-1].
func (obj *Object) AddRegisters(name string, n int, loc diag.Span) []Wire {
	r := make([]Wire, n)
	for i := range r {
		bit := ""
		if name != "" {
			bit = fmt.Sprintf("%s[%d]", name, i)
		}
		r[i] = obj.AddRegister(bit, loc)
	}
	return r
}

// AddInput allocates the wires of an argument.
func (obj *Object) AddInput(name string, n int, role rhif.Role, loc diag.Span) []Wire {
	ws := obj.AddRegisters(name, n, loc)
	obj.Inputs = append(obj.Inputs, Input{Name: name, Wires: ws, Role: role})
	return ws
}

// Emit appends an opcode.
func (obj *Object) Emit(op OpCode, loc diag.Span) {
	obj.Ops = append(obj.Ops, Located{Op: op, Loc: loc})
}

// InputWires maps every input wire to the index of its input.
func (obj *Object) InputWires() map[Wire]int {
	r := make(map[Wire]int)
	for i, in := range obj.Inputs {
		for _, w := range in.Wires {
			r[w] = i
		}
	}
	return r
}

// Writers counts, for each register wire, how many opcodes write it.
func (obj *Object) Writers() map[Wire]int {
	r := make(map[Wire]int)
	for _, lop := range obj.Ops {
		for _, w := range Writes(lop.Op) {
			if w.IsRegister() {
				r[w]++
			}
		}
	}
	return r
}

// CheckSymbols verifies that every wire resolves in the table and that
// opcodes only write registers that are not inputs.
func (obj *Object) CheckSymbols() error {
	inputs := obj.InputWires()

	for i, in := range obj.Inputs {
		for _, w := range in.Wires {
			if !w.IsRegister() || !obj.Symbols.Resolves(w) {
				return errors.New("input %d (%s) references %s which is not a register", i, in.Name, w)
			}
		}
	}

	for _, w := range obj.Outputs {
		if !obj.Symbols.Resolves(w) {
			return errors.New("output references %s which is not in the symbol table", w)
		}
	}

	for i, lop := range obj.Ops {
		for _, w := range Reads(lop.Op) {
			if !obj.Symbols.Resolves(w) {
				return errors.New("op %d reads %s which is not in the symbol table", i, w)
			}
		}
		for _, w := range Writes(lop.Op) {
			if !w.IsRegister() || !obj.Symbols.Resolves(w) {
				return errors.New("op %d writes %s which is not a register", i, w)
			}
			if _, ok := inputs[w]; ok {
				return errors.New("op %d writes input wire %s", i, w)
			}
		}
	}

	return nil
}

// Dump returns the textual form of the object.
func (obj *Object) Dump() string {
	var b strings.Builder
	NewPrinter(&b).PrintObject(obj)
	return b.String()
}
