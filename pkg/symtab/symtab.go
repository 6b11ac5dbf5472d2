// Package symtab implements the arena-addressed symbol table shared by the
// RHIF, RTL and NTL tiers.
//
// A table holds two arenas, literals and registers, each addressed by a small
// integer id. Ids are never reused or moved: removing an entry leaves a
// tombstone so that references held by opcodes stay stable across passes.
package symtab

import (
	"fmt"

	"github.com/raymyers/ralph-hdl/pkg/diag"
)

// LiteralID addresses the literal arena.
type LiteralID int

// RegisterID addresses the register arena.
type RegisterID int

// Tag discriminates a Ref.
type Tag uint8

const (
	None Tag = iota
	Literal
	Register
)

// Ref is a tagged reference into one of the two arenas. It is called a Slot
// in RHIF, an Operand in RTL and a Wire in NTL. The zero Ref refers to
// nothing and is used for values of empty kind.
type Ref struct {
	Tag Tag
	ID  int
}

// Lit returns a reference to a literal.
func Lit(id LiteralID) Ref { return Ref{Tag: Literal, ID: int(id)} }

// Reg returns a reference to a register.
func Reg(id RegisterID) Ref { return Ref{Tag: Register, ID: int(id)} }

func (r Ref) IsNone() bool     { return r.Tag == None }
func (r Ref) IsLiteral() bool  { return r.Tag == Literal }
func (r Ref) IsRegister() bool { return r.Tag == Register }

// LiteralID returns the literal id if r is a literal.
func (r Ref) LiteralID() (LiteralID, bool) {
	return LiteralID(r.ID), r.Tag == Literal
}

// RegisterID returns the register id if r is a register.
func (r Ref) RegisterID() (RegisterID, bool) {
	return RegisterID(r.ID), r.Tag == Register
}

func (r Ref) String() string {
	switch r.Tag {
	case Literal:
		return fmt.Sprintf("l%d", r.ID)
	case Register:
		return fmt.Sprintf("r%d", r.ID)
	}
	return "()"
}

type entry[T any] struct {
	value T
	loc   diag.Span
	alive bool
}

// Table is a two-arena symbol table. L is the literal payload, R the
// register payload.
type Table[L, R any] struct {
	literals  []entry[L]
	registers []entry[R]
}

// PushLiteral appends a literal and returns its id.
func (t *Table[L, R]) PushLiteral(v L, loc diag.Span) LiteralID {
	t.literals = append(t.literals, entry[L]{value: v, loc: loc, alive: true})
	return LiteralID(len(t.literals) - 1)
}

// PushRegister appends a register and returns its id.
func (t *Table[L, R]) PushRegister(v R, loc diag.Span) RegisterID {
	t.registers = append(t.registers, entry[R]{value: v, loc: loc, alive: true})
	return RegisterID(len(t.registers) - 1)
}

// HasLiteral reports whether id names a live literal.
func (t *Table[L, R]) HasLiteral(id LiteralID) bool {
	return id >= 0 && int(id) < len(t.literals) && t.literals[id].alive
}

// HasRegister reports whether id names a live register.
func (t *Table[L, R]) HasRegister(id RegisterID) bool {
	return id >= 0 && int(id) < len(t.registers) && t.registers[id].alive
}

// Resolves reports whether ref names a live entry. The empty ref always
// resolves.
func (t *Table[L, R]) Resolves(ref Ref) bool {
	switch ref.Tag {
	case Literal:
		return t.HasLiteral(LiteralID(ref.ID))
	case Register:
		return t.HasRegister(RegisterID(ref.ID))
	case None:
		return true
	}
	return false
}

// Literal returns the payload of literal id. It panics on dangling ids;
// callers check completeness before evaluating.
func (t *Table[L, R]) Literal(id LiteralID) L {
	return t.literals[t.mustLiteral(id)].value
}

// Register returns the payload of register id.
func (t *Table[L, R]) Register(id RegisterID) R {
	return t.registers[t.mustRegister(id)].value
}

// SetLiteral replaces the payload of a literal.
func (t *Table[L, R]) SetLiteral(id LiteralID, v L) {
	t.literals[t.mustLiteral(id)].value = v
}

// SetRegister replaces the payload of a register.
func (t *Table[L, R]) SetRegister(id RegisterID, v R) {
	t.registers[t.mustRegister(id)].value = v
}

// LiteralLoc returns the source span a literal came from.
func (t *Table[L, R]) LiteralLoc(id LiteralID) diag.Span {
	return t.literals[t.mustLiteral(id)].loc
}

// RegisterLoc returns the source span a register came from.
func (t *Table[L, R]) RegisterLoc(id RegisterID) diag.Span {
	return t.registers[t.mustRegister(id)].loc
}

// SetRegisterLoc replaces the source span of a register.
func (t *Table[L, R]) SetRegisterLoc(id RegisterID, loc diag.Span) {
	t.registers[t.mustRegister(id)].loc = loc
}

// Loc returns the source span of whatever ref names.
func (t *Table[L, R]) Loc(ref Ref) diag.Span {
	switch {
	case ref.IsLiteral() && t.HasLiteral(LiteralID(ref.ID)):
		return t.literals[ref.ID].loc
	case ref.IsRegister() && t.HasRegister(RegisterID(ref.ID)):
		return t.registers[ref.ID].loc
	}
	return diag.Span{}
}

// RemoveLiteral tombstones a literal.
func (t *Table[L, R]) RemoveLiteral(id LiteralID) {
	t.literals[t.mustLiteral(id)].alive = false
}

// RemoveRegister tombstones a register.
func (t *Table[L, R]) RemoveRegister(id RegisterID) {
	t.registers[t.mustRegister(id)].alive = false
}

// LiteralIDs returns the ids of live literals in ascending order.
func (t *Table[L, R]) LiteralIDs() []LiteralID {
	var r []LiteralID
	for i, e := range t.literals {
		if e.alive {
			r = append(r, LiteralID(i))
		}
	}
	return r
}

// RegisterIDs returns the ids of live registers in ascending order.
func (t *Table[L, R]) RegisterIDs() []RegisterID {
	var r []RegisterID
	for i, e := range t.registers {
		if e.alive {
			r = append(r, RegisterID(i))
		}
	}
	return r
}

// NumLiterals returns the number of live literals.
func (t *Table[L, R]) NumLiterals() int { return len(t.LiteralIDs()) }

// NumRegisters returns the number of live registers.
func (t *Table[L, R]) NumRegisters() int { return len(t.RegisterIDs()) }

// Clone returns a shallow copy of the table: arenas are copied, payloads are
// not deep-copied. Passes treat payloads as immutable values.
func (t *Table[L, R]) Clone() Table[L, R] {
	return Table[L, R]{
		literals:  append([]entry[L](nil), t.literals...),
		registers: append([]entry[R](nil), t.registers...),
	}
}

func (t *Table[L, R]) mustLiteral(id LiteralID) LiteralID {
	if !t.HasLiteral(id) {
		panic(fmt.Sprintf("dangling literal l%d", id))
	}
	return id
}

func (t *Table[L, R]) mustRegister(id RegisterID) RegisterID {
	if !t.HasRegister(id) {
		panic(fmt.Sprintf("dangling register r%d", id))
	}
	return id
}
