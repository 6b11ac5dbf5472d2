package typedbits

import (
	"fmt"

	"github.com/raymyers/ralph-hdl/pkg/kind"
)

// Extend returns bits resized to width n, truncating or extending with the
// sign bit when signed is set and with zeros otherwise.
func Extend(bits []Bit, n int, signed bool) []Bit {
	r := make([]Bit, n)
	fill := Zero
	if signed && len(bits) > 0 {
		fill = bits[len(bits)-1]
	}
	for i := range r {
		if i < len(bits) {
			r[i] = bits[i]
		} else {
			r[i] = fill
		}
	}
	return r
}

// Resize changes the width of a primitive value, keeping its signedness.
func (t TypedBits) Resize(n int) TypedBits {
	signed := kind.IsSigned(t.Kind)
	var k kind.Kind = kind.Bits{Width: n}
	if signed {
		k = kind.Signed{Width: n}
	}
	return TypedBits{Kind: k, Bits: Extend(t.Bits, n, signed)}
}

// AsBits resizes the value to n bits and reinterprets it as unsigned.
func (t TypedBits) AsBits(n int) TypedBits {
	return TypedBits{Kind: kind.Bits{Width: n}, Bits: Extend(t.Bits, n, kind.IsSigned(t.Kind))}
}

// AsSigned resizes the value to n bits and reinterprets it as signed.
func (t TypedBits) AsSigned(n int) TypedBits {
	return TypedBits{Kind: kind.Signed{Width: n}, Bits: Extend(t.Bits, n, kind.IsSigned(t.Kind))}
}

// Slice returns bits [start, end) as an unsigned value.
func (t TypedBits) Slice(start, end int) (TypedBits, error) {
	if start < 0 || end > len(t.Bits) || start > end {
		return TypedBits{}, fmt.Errorf("slice [%d, %d) out of range for width %d", start, end, len(t.Bits))
	}
	return TypedBits{Kind: kind.Bits{Width: end - start}, Bits: append([]Bit(nil), t.Bits[start:end]...)}, nil
}

// Splice returns a copy of t with bits [start, start+width(v)) replaced by v.
func (t TypedBits) Splice(start int, v []Bit) (TypedBits, error) {
	if start < 0 || start+len(v) > len(t.Bits) {
		return TypedBits{}, fmt.Errorf("splice [%d, %d) out of range for width %d", start, start+len(v), len(t.Bits))
	}
	r := append([]Bit(nil), t.Bits...)
	copy(r[start:], v)
	return TypedBits{Kind: t.Kind, Bits: r}, nil
}

// Path projects t along a static path.
func (t TypedBits) Path(p kind.Path) (TypedBits, error) {
	start, end, sub, err := kind.BitRange(t.Kind, p)
	if err != nil {
		return TypedBits{}, err
	}
	return TypedBits{Kind: sub, Bits: append([]Bit(nil), t.Bits[start:end]...)}, nil
}

// SplicePath returns a copy of t with the value at static path p replaced.
func (t TypedBits) SplicePath(p kind.Path, v TypedBits) (TypedBits, error) {
	start, end, _, err := kind.BitRange(t.Kind, p)
	if err != nil {
		return TypedBits{}, err
	}
	if end-start != len(v.Bits) {
		return TypedBits{}, fmt.Errorf("splice of %d bits into %d bit range %s", len(v.Bits), end-start, p)
	}
	return t.Splice(start, v.Bits)
}

// Concat joins values LSB first into an unsigned value.
func Concat(parts ...TypedBits) TypedBits {
	var bits []Bit
	for _, p := range parts {
		bits = append(bits, p.Bits...)
	}
	return TypedBits{Kind: kind.Bits{Width: len(bits)}, Bits: bits}
}

// Repeat concatenates n copies of t.
func (t TypedBits) Repeat(n int) TypedBits {
	parts := make([]TypedBits, n)
	for i := range parts {
		parts[i] = t
	}
	return Concat(parts...)
}

// Discriminant returns the discriminant of an enum value as a signed 64-bit
// integer.
func (t TypedBits) Discriminant() (int64, bool) {
	en, ok := kind.Strip(t.Kind).(kind.Enum)
	if !ok {
		return 0, false
	}
	d, err := t.Path(kind.Path{kind.Discriminant{}})
	if err != nil {
		return 0, false
	}
	d.Kind = en.DiscriminantKind()
	return d.ToInt64()
}

// EnumValue returns the value of kind en holding variant name with an
// all-zero payload.
func EnumValue(en kind.Enum, name string) (TypedBits, error) {
	v, ok := en.Variant(name)
	if !ok {
		return TypedBits{}, fmt.Errorf("enum %s has no variant %s", en.Name, name)
	}
	t := Zeros(en)
	start, _ := en.DiscriminantRange()
	return t.Splice(start, FromInt64(en.DiscriminantKind(), v.Discriminant).Bits)
}
