package rtl

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Register is the payload of a register entry. Kind is always Bits or
// Signed.
type Register struct {
	Kind kind.Kind
	Name string
}

// SymbolTable holds the literals and registers of one object.
type SymbolTable = symtab.Table[typedbits.TypedBits, Register]

// Argument is an input register with its role.
type Argument = rhif.Argument

// Object is one kernel in RTL form.
type Object struct {
	Name      string
	Symbols   SymbolTable
	Ops       []Located
	Arguments []Argument
	Return    Operand
}

// NewObject returns an empty object.
func NewObject(name string) *Object {
	return &Object{Name: name}
}

// Clone returns a copy that can be rewritten without affecting obj.
func (obj *Object) Clone() *Object {
	return &Object{
		Name:      obj.Name,
		Symbols:   obj.Symbols.Clone(),
		Ops:       append([]Located(nil), obj.Ops...),
		Arguments: append([]Argument(nil), obj.Arguments...),
		Return:    obj.Return,
	}
}

// Kind returns the kind of an operand; None has zero width.
func (obj *Object) Kind(o Operand) kind.Kind {
	switch {
	case o.IsLiteral():
		return obj.Symbols.Literal(symtab.LiteralID(o.ID)).Kind
	case o.IsRegister():
		return obj.Symbols.Register(symtab.RegisterID(o.ID)).Kind
	}
	return kind.Bits{}
}

// Width returns the bit width of an operand.
func (obj *Object) Width(o Operand) int {
	return obj.Kind(o).BitWidth()
}

// Span returns the source span of an operand.
func (obj *Object) Span(o Operand) diag.Span {
	return obj.Symbols.Loc(o)
}

// Literal returns the value of a literal operand.
func (obj *Object) Literal(o Operand) (typedbits.TypedBits, bool) {
	id, ok := o.LiteralID()
	if !ok || !obj.Symbols.HasLiteral(id) {
		return typedbits.TypedBits{}, false
	}
	return obj.Symbols.Literal(id), true
}

// RegisterName returns the human-readable name of a register operand.
func (obj *Object) RegisterName(o Operand) string {
	id, ok := o.RegisterID()
	if !ok || !obj.Symbols.HasRegister(id) {
		return ""
	}
	return obj.Symbols.Register(id).Name
}

// AddLiteral interns a literal.
func (obj *Object) AddLiteral(v typedbits.TypedBits, loc diag.Span) Operand {
	return symtab.Lit(obj.Symbols.PushLiteral(v, loc))
}

// AddRegister allocates a register.
func (obj *Object) AddRegister(k kind.Kind, name string, loc diag.Span) Operand {
	return symtab.Reg(obj.Symbols.PushRegister(Register{Kind: k, Name: name}, loc))
}

// AddArgument allocates a register and appends it to the arguments.
func (obj *Object) AddArgument(k kind.Kind, name string, role rhif.Role, loc diag.Span) Operand {
	o := obj.AddRegister(k, name, loc)
	obj.Arguments = append(obj.Arguments, Argument{Reg: symtab.RegisterID(o.ID), Role: role})
	return o
}

// Emit appends an opcode.
func (obj *Object) Emit(op OpCode, loc diag.Span) {
	obj.Ops = append(obj.Ops, Located{Op: op, Loc: loc})
}

// IsArgument reports whether o is an argument register.
func (obj *Object) IsArgument(o Operand) bool {
	id, ok := o.RegisterID()
	if !ok {
		return false
	}
	for _, a := range obj.Arguments {
		if a.Reg == id {
			return true
		}
	}
	return false
}

// Writers counts, for each register, how many opcodes write it.
func (obj *Object) Writers() map[Operand]int {
	r := make(map[Operand]int)
	for _, lop := range obj.Ops {
		if l := Lhs(lop.Op); l.IsRegister() {
			r[l]++
		}
	}
	return r
}

// CheckSymbols verifies that every operand resolves in the table and that
// every entry has a flat kind.
func (obj *Object) CheckSymbols() error {
	for _, id := range obj.Symbols.LiteralIDs() {
		if k := obj.Symbols.Literal(id).Kind; !isFlat(k) {
			return errors.New("literal l%d has non-flat kind %s", id, k)
		}
	}
	for _, id := range obj.Symbols.RegisterIDs() {
		if k := obj.Symbols.Register(id).Kind; !isFlat(k) {
			return errors.New("register r%d has non-flat kind %s", id, k)
		}
	}

	for _, a := range obj.Arguments {
		if !obj.Symbols.HasRegister(a.Reg) {
			return errors.New("argument r%d is not in the symbol table", a.Reg)
		}
	}

	if !obj.Symbols.Resolves(obj.Return) {
		return errors.New("return references %s which is not in the symbol table", obj.Return)
	}

	for i, lop := range obj.Ops {
		for _, o := range append(Reads(lop.Op), Lhs(lop.Op)) {
			if !obj.Symbols.Resolves(o) {
				return errors.New("op %s references %s which is not in the symbol table", strconv.Itoa(i), o)
			}
		}
	}

	return nil
}

func isFlat(k kind.Kind) bool {
	switch k.(type) {
	case kind.Bits, kind.Signed:
		return true
	}
	return false
}

// Dump returns the textual form of the object.
func (obj *Object) Dump() string {
	var b strings.Builder
	NewPrinter(&b).PrintObject(obj)
	return b.String()
}
