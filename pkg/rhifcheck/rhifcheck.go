// Package rhifcheck verifies RHIF objects before and after optimization.
// Checks never rewrite; they return the first user-facing error found.
package rhifcheck

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

// Passes returns the checks in the order they run.
func Passes() []pass.Pass[*rhif.Object] {
	return []pass.Pass[*rhif.Object]{
		pass.Check("check for rolled types", RolledTypes),
		pass.Check("check types", Types),
		pass.Check("check clock domains", ClockDomains),
		pass.Check("check data flow", DataFlow),
	}
}

// opSpan prefers the span of the opcode, falling back to the span of slot.
func opSpan(obj *rhif.Object, loc diag.Span, s rhif.Slot) diag.Span {
	if !loc.IsZero() {
		return loc
	}
	return obj.Span(s)
}

// slotSpan prefers the span of slot, falling back to the span of the opcode.
func slotSpan(obj *rhif.Object, loc diag.Span, s rhif.Slot) diag.Span {
	if sp := obj.Span(s); !sp.IsZero() {
		return sp
	}
	return loc
}
