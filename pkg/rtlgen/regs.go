// Register allocation for rtlgen.
// Tracks the RTL operand assigned to every RHIF slot of the object being
// lowered and hands out fresh temporaries. Every inlined callee gets its own
// allocator over the same destination object.

package rtlgen

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// RegAllocator maps the slots of one RHIF object to RTL operands.
type RegAllocator struct {
	dst    *rtl.Object
	src    *rhif.Object
	prefix string // prepended to register names of inlined callees
	slots  map[rhif.Slot]rtl.Operand
}

// NewRegAllocator creates an allocator lowering src into dst.
func NewRegAllocator(dst *rtl.Object, src *rhif.Object, prefix string) *RegAllocator {
	return &RegAllocator{
		dst:    dst,
		src:    src,
		prefix: prefix,
		slots:  make(map[rhif.Slot]rtl.Operand),
	}
}

// Fresh allocates an unnamed temporary of the flat form of k.
func (a *RegAllocator) Fresh(k kind.Kind, loc diag.Span) rtl.Operand {
	return a.dst.AddRegister(kind.Flat(k), "", loc)
}

// FreshN allocates n temporaries of the same kind.
func (a *RegAllocator) FreshN(n int, k kind.Kind, loc diag.Span) []rtl.Operand {
	regs := make([]rtl.Operand, n)
	for i := range regs {
		regs[i] = a.Fresh(k, loc)
	}
	return regs
}

// Map returns the operand for s, allocating it on first use. Literals are
// flattened; registers keep their name and span.
func (a *RegAllocator) Map(s rhif.Slot) rtl.Operand {
	if s.IsNone() {
		return rtl.Operand{}
	}
	if o, ok := a.slots[s]; ok {
		return o
	}

	var o rtl.Operand
	loc := a.src.Span(s)

	if v, ok := a.src.Literal(s); ok {
		o = a.dst.AddLiteral(Flatten(v), loc)
	} else {
		name := a.src.RegisterName(s)
		if name != "" && a.prefix != "" {
			name = a.prefix + "::" + name
		}
		o = a.dst.AddRegister(kind.Flat(a.src.Kind(s)), name, loc)
	}

	a.slots[s] = o
	return o
}

// MapAll maps a list of slots.
func (a *RegAllocator) MapAll(ss []rhif.Slot) []rtl.Operand {
	r := make([]rtl.Operand, len(ss))
	for i, s := range ss {
		r[i] = a.Map(s)
	}
	return r
}

// Lookup returns the operand already assigned to s.
func (a *RegAllocator) Lookup(s rhif.Slot) (rtl.Operand, bool) {
	o, ok := a.slots[s]
	return o, ok
}

// MapParams allocates the argument registers of the source object as
// arguments of the destination object.
func (a *RegAllocator) MapParams() []rtl.Operand {
	regs := make([]rtl.Operand, len(a.src.Arguments))
	for i, arg := range a.src.Arguments {
		s := symtab.Reg(arg.Reg)
		o := a.dst.AddArgument(kind.Flat(a.src.Kind(s)), a.src.RegisterName(s), arg.Role, a.src.Span(s))
		a.slots[s] = o
		regs[i] = o
	}
	return regs
}

// Flatten retypes a constant to the flat kind of the same width.
func Flatten(v typedbits.TypedBits) typedbits.TypedBits {
	return typedbits.TypedBits{Kind: kind.Flat(v.Kind), Bits: append([]typedbits.Bit(nil), v.Bits...)}
}
