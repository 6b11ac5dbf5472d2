package typedbits

import (
	"fmt"
	"math"

	"github.com/raymyers/ralph-hdl/pkg/kind"
)

// Binary evaluates a op b. Operands must have equal widths except for shifts,
// whose amount may have any width. Comparisons produce b1; everything else
// produces a value of a's kind.
func Binary(op BinaryOp, a, b TypedBits) (TypedBits, error) {
	if !op.IsShift() && len(a.Bits) != len(b.Bits) {
		return TypedBits{}, fmt.Errorf("operand widths differ for %s: %s vs %s", op, a.Kind, b.Kind)
	}

	signed := kind.IsSigned(a.Kind)

	switch op {
	case Add:
		return TypedBits{Kind: a.Kind, Bits: add(a.Bits, b.Bits, Zero)}, nil
	case Sub:
		return TypedBits{Kind: a.Kind, Bits: add(a.Bits, not(b.Bits), One)}, nil
	case Mul:
		return TypedBits{Kind: a.Kind, Bits: mul(a.Bits, b.Bits)}, nil
	case BitAnd, BitOr, BitXor:
		r := make([]Bit, len(a.Bits))
		for i := range r {
			r[i] = Logic(op, a.Bits[i], b.Bits[i])
		}
		return TypedBits{Kind: a.Kind, Bits: r}, nil
	case Shl, Shr:
		amt, ok := ShiftAmount(b)
		if !ok {
			return Unknowns(a.Kind), nil
		}
		if op == Shl {
			return TypedBits{Kind: a.Kind, Bits: shl(a.Bits, amt)}, nil
		}
		return TypedBits{Kind: a.Kind, Bits: shr(a.Bits, amt, signed)}, nil
	case Eq, Ne, Lt, Le, Gt, Ge:
		return TypedBits{Kind: kind.Bits{Width: 1}, Bits: []Bit{compare(op, a.Bits, b.Bits, signed)}}, nil
	}

	return TypedBits{}, fmt.Errorf("unknown binary op %d", op)
}

// Unary evaluates op a.
func Unary(op UnaryOp, a TypedBits) (TypedBits, error) {
	switch op {
	case Neg:
		zero := make([]Bit, len(a.Bits))
		return TypedBits{Kind: a.Kind, Bits: add(zero, not(a.Bits), One)}, nil
	case Not:
		return TypedBits{Kind: a.Kind, Bits: not(a.Bits)}, nil
	case All, Any, Xor:
		return TypedBits{Kind: kind.Bits{Width: 1}, Bits: []Bit{Reduce(op, a.Bits)}}, nil
	}
	return TypedBits{}, fmt.Errorf("unknown unary op %d", op)
}

// Logic applies a bitwise operation to a single pair of ternary bits.
func Logic(op BinaryOp, x, y Bit) Bit {
	switch op {
	case BitAnd:
		if x == Zero || y == Zero {
			return Zero
		}
		if x == One && y == One {
			return One
		}
	case BitOr:
		if x == One || y == One {
			return One
		}
		if x == Zero && y == Zero {
			return Zero
		}
	case BitXor:
		if x != Unknown && y != Unknown {
			return BitOf(x != y)
		}
	}
	return Unknown
}

// NotBit inverts a ternary bit.
func NotBit(x Bit) Bit {
	switch x {
	case Zero:
		return One
	case One:
		return Zero
	}
	return Unknown
}

// Reduce folds a vector to a single bit.
func Reduce(op UnaryOp, bits []Bit) Bit {
	switch op {
	case All:
		r := One
		for _, b := range bits {
			r = Logic(BitAnd, r, b)
		}
		return r
	case Any:
		r := Zero
		for _, b := range bits {
			r = Logic(BitOr, r, b)
		}
		return r
	case Xor:
		r := Zero
		for _, b := range bits {
			r = Logic(BitXor, r, b)
		}
		return r
	}
	return Unknown
}

// ShiftAmount returns the value of a shift amount, saturated to MaxInt32.
// ok is false when any bit is unknown.
func ShiftAmount(b TypedBits) (int, bool) {
	if !b.IsKnown() {
		return 0, false
	}
	amt := 0
	for i, x := range b.Bits {
		if x != One {
			continue
		}
		if i >= 31 {
			return math.MaxInt32, true
		}
		amt |= 1 << uint(i)
	}
	return amt, true
}

func known(bits ...[]Bit) bool {
	for _, v := range bits {
		for _, b := range v {
			if b == Unknown {
				return false
			}
		}
	}
	return true
}

func unknowns(n int) []Bit {
	r := make([]Bit, n)
	for i := range r {
		r[i] = Unknown
	}
	return r
}

func not(a []Bit) []Bit {
	r := make([]Bit, len(a))
	for i, b := range a {
		r[i] = NotBit(b)
	}
	return r
}

func add(a, b []Bit, carry Bit) []Bit {
	if !known(a, b) {
		return unknowns(len(a))
	}
	r := make([]Bit, len(a))
	c := carry == One
	for i := range a {
		x, y := a[i] == One, b[i] == One
		r[i] = BitOf(x != y != c)
		c = (x && y) || (c && (x != y))
	}
	return r
}

func mul(a, b []Bit) []Bit {
	if !known(a, b) {
		return unknowns(len(a))
	}
	acc := make([]Bit, len(a))
	for i := range b {
		if b[i] == One {
			acc = add(acc, shl(a, i), Zero)
		}
	}
	return acc
}

func shl(a []Bit, amt int) []Bit {
	r := make([]Bit, len(a))
	for i := range r {
		if i >= amt {
			r[i] = a[i-amt]
		}
	}
	return r
}

func shr(a []Bit, amt int, signed bool) []Bit {
	r := make([]Bit, len(a))
	fill := Zero
	if signed && len(a) > 0 {
		fill = a[len(a)-1]
	}
	for i := range r {
		if amt < len(a)-i {
			r[i] = a[i+amt]
		} else {
			r[i] = fill
		}
	}
	return r
}

// cmp returns -1, 0 or 1.
func cmp(a, b []Bit, signed bool) int {
	for i := len(a) - 1; i >= 0; i-- {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		less := x == Zero
		if signed && i == len(a)-1 {
			less = !less
		}
		if less {
			return -1
		}
		return 1
	}
	return 0
}

func compare(op BinaryOp, a, b []Bit, signed bool) Bit {
	if !known(a, b) {
		return Unknown
	}
	c := cmp(a, b, signed)
	switch op {
	case Eq:
		return BitOf(c == 0)
	case Ne:
		return BitOf(c != 0)
	case Lt:
		return BitOf(c < 0)
	case Le:
		return BitOf(c <= 0)
	case Gt:
		return BitOf(c > 0)
	case Ge:
		return BitOf(c >= 0)
	}
	return Unknown
}
