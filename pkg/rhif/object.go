// Package rhif defines the RHIF tier: a typed, tree-oriented IR whose
// opcodes operate on slots (literal or register references) and support
// aggregate construction, symbolic path indexing and cross-object calls.
package rhif

import (
	"sort"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Register is the payload of a register entry.
type Register struct {
	Kind kind.Kind
	Name string
}

// SymbolTable holds the literals and registers of one object.
type SymbolTable = symtab.Table[typedbits.TypedBits, Register]

// Role tells how an argument is driven.
type Role int

const (
	Data Role = iota
	Clock
	Reset
)

func (r Role) String() string {
	switch r {
	case Clock:
		return "clock"
	case Reset:
		return "reset"
	}
	return "data"
}

// Argument is an input register.
type Argument struct {
	Reg  symtab.RegisterID
	Role Role
}

// BlackBox is the signature of an opaque primitive. Synchronous black boxes
// hold state: their output does not depend combinationally on their inputs.
type BlackBox struct {
	Name        string
	Args        []kind.Kind
	Ret         kind.Kind
	Synchronous bool
}

// External is the target of an Exec: a compiled sibling object or a black
// box. Exactly one of Object and BlackBox is set once resolved.
type External struct {
	Name     string
	Object   *Object
	BlackBox *BlackBox
}

// Object is one kernel in RHIF form.
type Object struct {
	Name      string
	Symbols   SymbolTable
	Ops       []Located
	Arguments []Argument
	Return    Slot
	Externals map[FuncID]External
}

// Clone returns a copy that can be rewritten without affecting obj.
// Externals are shared: sibling objects are read-only.
func (obj *Object) Clone() *Object {
	r := &Object{
		Name:      obj.Name,
		Symbols:   obj.Symbols.Clone(),
		Ops:       append([]Located(nil), obj.Ops...),
		Arguments: append([]Argument(nil), obj.Arguments...),
		Return:    obj.Return,
	}
	if obj.Externals != nil {
		r.Externals = make(map[FuncID]External, len(obj.Externals))
		for id, e := range obj.Externals {
			r.Externals[id] = e
		}
	}
	return r
}

// Kind returns the kind of a slot. The empty slot has kind Empty.
func (obj *Object) Kind(s Slot) kind.Kind {
	switch {
	case s.IsLiteral():
		return obj.Symbols.Literal(symtab.LiteralID(s.ID)).Kind
	case s.IsRegister():
		return obj.Symbols.Register(symtab.RegisterID(s.ID)).Kind
	}
	return kind.Empty{}
}

// Span returns the source span of a slot.
func (obj *Object) Span(s Slot) diag.Span {
	return obj.Symbols.Loc(s)
}

// Literal returns the value of a literal slot.
func (obj *Object) Literal(s Slot) (typedbits.TypedBits, bool) {
	id, ok := s.LiteralID()
	if !ok || !obj.Symbols.HasLiteral(id) {
		return typedbits.TypedBits{}, false
	}
	return obj.Symbols.Literal(id), true
}

// RegisterName returns the human-readable name of a register slot.
func (obj *Object) RegisterName(s Slot) string {
	id, ok := s.RegisterID()
	if !ok || !obj.Symbols.HasRegister(id) {
		return ""
	}
	return obj.Symbols.Register(id).Name
}

// AddLiteral interns a literal.
func (obj *Object) AddLiteral(v typedbits.TypedBits, loc diag.Span) Slot {
	return symtab.Lit(obj.Symbols.PushLiteral(v, loc))
}

// AddRegister allocates a register.
func (obj *Object) AddRegister(k kind.Kind, name string, loc diag.Span) Slot {
	return symtab.Reg(obj.Symbols.PushRegister(Register{Kind: k, Name: name}, loc))
}

// IsArgument reports whether s is an argument register.
func (obj *Object) IsArgument(s Slot) bool {
	id, ok := s.RegisterID()
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

// ExternalIDs returns the call site ids in ascending order.
func (obj *Object) ExternalIDs() []FuncID {
	ids := make([]FuncID, 0, len(obj.Externals))
	for id := range obj.Externals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CheckSymbols verifies that every slot mentioned anywhere resolves in the
// table and every call site has an external.
func (obj *Object) CheckSymbols() error {
	check := func(s Slot, where string) error {
		if !obj.Symbols.Resolves(s) {
			return errors.New("%s references %s which is not in the symbol table", where, s)
		}
		return nil
	}

	for _, a := range obj.Arguments {
		if !obj.Symbols.HasRegister(a.Reg) {
			return errors.New("argument r%d is not in the symbol table", a.Reg)
		}
	}

	if err := check(obj.Return, "return"); err != nil {
		return err
	}

	for i, lop := range obj.Ops {
		where := "op " + strconv.Itoa(i)

		if err := check(Lhs(lop.Op), where); err != nil {
			return err
		}
		for _, s := range Reads(lop.Op) {
			if err := check(s, where); err != nil {
				return err
			}
		}

		if e, ok := lop.Op.(Exec); ok {
			if _, ok := obj.Externals[e.ID]; !ok {
				return errors.New("%s calls unknown external f%d", where, e.ID)
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

// Writers counts, for each register, how many opcodes write it.
func (obj *Object) Writers() map[Slot]int {
	r := make(map[Slot]int)
	for _, lop := range obj.Ops {
		if l := Lhs(lop.Op); l.IsRegister() {
			r[l]++
		}
	}
	return r
}

// NewObject returns an empty object.
func NewObject(name string) *Object {
	return &Object{Name: name, Externals: map[FuncID]External{}}
}

// AddArgument allocates a register and appends it to the arguments.
func (obj *Object) AddArgument(k kind.Kind, name string, role Role, loc diag.Span) Slot {
	s := obj.AddRegister(k, name, loc)
	obj.Arguments = append(obj.Arguments, Argument{Reg: symtab.RegisterID(s.ID), Role: role})
	return s
}

// Emit appends an opcode.
func (obj *Object) Emit(op OpCode, loc diag.Span) {
	obj.Ops = append(obj.Ops, Located{Op: op, Loc: loc})
}
