// Package typedbits implements typed constants made of ternary bits and the
// compile-time semantics of every ALU operation.
//
// Bits are stored LSB first. Unknown bits are propagated conservatively:
// bitwise operations use three-valued logic, arithmetic on any unknown input
// bit yields an all-unknown result.
package typedbits

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/raymyers/ralph-hdl/pkg/kind"
)

// Bit is a ternary bit.
type Bit uint8

const (
	Zero Bit = iota
	One
	Unknown
)

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	}
	return "x"
}

// BitOf converts a bool.
func BitOf(v bool) Bit {
	if v {
		return One
	}
	return Zero
}

// TypedBits is a value of a given kind.
type TypedBits struct {
	Kind kind.Kind
	Bits []Bit
}

// Zeros returns the all-zero value of k.
func Zeros(k kind.Kind) TypedBits {
	return TypedBits{Kind: k, Bits: make([]Bit, k.BitWidth())}
}

// Unknowns returns the all-unknown value of k.
func Unknowns(k kind.Kind) TypedBits {
	t := Zeros(k)
	for i := range t.Bits {
		t.Bits[i] = Unknown
	}
	return t
}

// FromBits wraps a bit slice with kind k.
func FromBits(k kind.Kind, bits []Bit) (TypedBits, error) {
	if len(bits) != k.BitWidth() {
		return TypedBits{}, fmt.Errorf("%d bits for kind %s of width %d", len(bits), k, k.BitWidth())
	}
	return TypedBits{Kind: k, Bits: append([]Bit(nil), bits...)}, nil
}

// FromUint64 builds a value of k from the low bits of v.
func FromUint64(k kind.Kind, v uint64) TypedBits {
	t := Zeros(k)
	for i := range t.Bits {
		if i < 64 && v&(1<<uint(i)) != 0 {
			t.Bits[i] = One
		}
	}
	return t
}

// FromInt64 builds a value of k from the two's complement bits of v,
// sign-extended to any width.
func FromInt64(k kind.Kind, v int64) TypedBits {
	t := Zeros(k)
	for i := range t.Bits {
		s := i
		if s > 63 {
			s = 63
		}
		if (v>>uint(s))&1 != 0 {
			t.Bits[i] = One
		}
	}
	return t
}

// FromUint256 builds a value of k from a 256-bit two's complement pattern.
// Bits above 255 replicate bit 255 for signed kinds and are zero otherwise.
func FromUint256(k kind.Kind, v *uint256.Int) TypedBits {
	t := Zeros(k)
	top := bitAt(v, 255) && kind.IsSigned(k)
	for i := range t.Bits {
		if i < 256 {
			t.Bits[i] = BitOf(bitAt(v, i))
		} else {
			t.Bits[i] = BitOf(top)
		}
	}
	return t
}

// ToUint256 returns the value as a 256-bit two's complement pattern,
// sign-extending signed kinds. ok is false when any bit is unknown or the
// value does not fit.
func (t TypedBits) ToUint256() (v *uint256.Int, ok bool) {
	if !t.IsKnown() {
		return nil, false
	}

	v = new(uint256.Int)
	for i, b := range t.Bits {
		if i >= 256 {
			if b != t.fillBit() {
				return nil, false
			}
			continue
		}
		if b == One {
			setBit(v, i)
		}
	}

	if t.fillBit() == One {
		for i := len(t.Bits); i < 256; i++ {
			setBit(v, i)
		}
	}

	return v, true
}

// ToUint64 returns the value interpreted as unsigned. ok is false when any
// bit is unknown or the value needs more than 64 bits.
func (t TypedBits) ToUint64() (uint64, bool) {
	var v uint64
	for i, b := range t.Bits {
		switch {
		case b == Unknown:
			return 0, false
		case b == One && i >= 64:
			return 0, false
		case b == One:
			v |= 1 << uint(i)
		}
	}
	return v, true
}

// ToInt64 returns the value interpreted according to its kind's signedness.
func (t TypedBits) ToInt64() (int64, bool) {
	if !t.IsKnown() {
		return 0, false
	}

	fill := t.fillBit()
	var v int64
	for i := 0; i < 64; i++ {
		b := fill
		if i < len(t.Bits) {
			b = t.Bits[i]
		}
		if b == One {
			v |= 1 << uint(i)
		}
	}
	for i := 64; i < len(t.Bits); i++ {
		if t.Bits[i] != BitOf(v < 0) {
			return 0, false
		}
	}
	if !kind.IsSigned(t.Kind) && v < 0 {
		return 0, false
	}
	return v, true
}

func (t TypedBits) fillBit() Bit {
	if kind.IsSigned(t.Kind) && len(t.Bits) > 0 {
		return t.Bits[len(t.Bits)-1]
	}
	return Zero
}

// IsKnown reports whether no bit is unknown.
func (t TypedBits) IsKnown() bool {
	for _, b := range t.Bits {
		if b == Unknown {
			return false
		}
	}
	return true
}

// Equal reports equality of kind and bits.
func (t TypedBits) Equal(o TypedBits) bool {
	return kind.Equal(t.Kind, o.Kind) && SameBits(t.Bits, o.Bits)
}

// SameBits compares two bit slices.
func SameBits(a, b []Bit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Retyped returns the same bits under a different kind of equal width.
func (t TypedBits) Retyped(k kind.Kind) (TypedBits, error) {
	return FromBits(k, t.Bits)
}

// BinaryString returns the bits MSB first.
func (t TypedBits) BinaryString() string {
	var b strings.Builder
	for i := len(t.Bits) - 1; i >= 0; i-- {
		b.WriteString(t.Bits[i].String())
	}
	return b.String()
}

func (t TypedBits) String() string {
	if kind.IsPrimitive(t.Kind) {
		if kind.IsSigned(t.Kind) {
			if v, ok := t.ToUint256(); ok && bitAt(v, 255) {
				n := new(uint256.Int).Neg(v)
				return "-" + n.Dec() + "_" + t.Kind.String()
			}
		}
		if v, ok := t.ToUint256(); ok {
			return v.Dec() + "_" + t.Kind.String()
		}
	}
	return "0b" + t.BinaryString() + "_" + t.Kind.String()
}

func bitAt(v *uint256.Int, i int) bool {
	return v[i/64]>>(uint(i)%64)&1 != 0
}

func setBit(v *uint256.Int, i int) {
	v[i/64] |= 1 << (uint(i) % 64)
}
