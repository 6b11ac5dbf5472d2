// Package rhifopt implements the RHIF rewrite passes. Each pass takes an
// object and returns a rewritten copy; the input is never modified.
package rhifopt

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// PrecastLiterals gives sentinel-kind integer literals the concrete kind of
// the other operand of the binary operation they appear in. The amount
// operand of a shift is always cast to an unsigned kind as wide as the
// shifted value. A literal whose value does not fit the new kind is a type
// error at the literal's span.
func PrecastLiterals(in *rhif.Object) (*rhif.Object, error) {
	obj := in.Clone()

	for i, lop := range obj.Ops {
		o, ok := lop.Op.(rhif.Binary)
		if !ok {
			continue
		}

		lit1, lit2 := isSentinel(obj, o.Arg1), isSentinel(obj, o.Arg2)
		if lit1 == lit2 {
			continue
		}

		var err error

		switch {
		case lit2 && o.Op.IsShift():
			k := kind.Strip(obj.Kind(o.Arg1))
			if !kind.IsPrimitive(k) {
				continue
			}
			o.Arg2, err = recast(obj, o.Arg2, kind.Bits{Width: k.BitWidth()})
		case lit2:
			k := kind.Strip(obj.Kind(o.Arg1))
			if !kind.IsPrimitive(k) {
				continue
			}
			o.Arg2, err = recast(obj, o.Arg2, k)
		case lit1:
			k := kind.Strip(obj.Kind(o.Arg2))
			if !kind.IsPrimitive(k) {
				continue
			}
			o.Arg1, err = recast(obj, o.Arg1, k)
		}

		if err != nil {
			return nil, err
		}

		obj.Ops[i].Op = o
	}

	return obj, nil
}

func isSentinel(obj *rhif.Object, s rhif.Slot) bool {
	v, ok := obj.Literal(s)
	return ok && kind.IsIntegerLiteral(v.Kind)
}

func recast(obj *rhif.Object, s rhif.Slot, to kind.Kind) (rhif.Slot, error) {
	v, _ := obj.Literal(s)
	loc := obj.Span(s)

	if !Fits(v, to) {
		return s, diag.Type(loc, "literal %s does not fit in %s", v, to)
	}

	var r typedbits.TypedBits
	if kind.IsSigned(to) {
		r = v.AsSigned(to.BitWidth())
	} else {
		r = v.AsBits(to.BitWidth())
	}

	return obj.AddLiteral(r, loc), nil
}

// Fits reports whether the value of v, read according to its own
// signedness, lies within the range of primitive kind to.
func Fits(v typedbits.TypedBits, to kind.Kind) bool {
	if !v.IsKnown() {
		return to.BitWidth() >= len(v.Bits)
	}

	n := to.BitWidth()
	w := len(v.Bits)
	negative := kind.IsSigned(v.Kind) && w > 0 && v.Bits[w-1] == typedbits.One

	if kind.IsSigned(to) {
		if n >= w {
			return kind.IsSigned(v.Kind) || n > w || w == 0 || v.Bits[w-1] == typedbits.Zero
		}
		if n == 0 {
			return false
		}
		// every dropped bit must equal the new sign bit
		fill := v.Bits[n-1]
		if !kind.IsSigned(v.Kind) && fill == typedbits.One {
			return false
		}
		for i := n; i < w; i++ {
			if v.Bits[i] != fill {
				return false
			}
		}
		return true
	}

	if negative {
		return false
	}
	for i := n; i < w; i++ {
		if v.Bits[i] != typedbits.Zero {
			return false
		}
	}
	return true
}
