// Package kind defines the structural type descriptor attached to every value
// manipulated by the pipeline, the clock-domain color palette, and symbolic
// paths into aggregate values.
//
// Values are laid out LSB first. Struct and tuple members occupy consecutive
// bit ranges in declaration order, array element i starts at i*width(base),
// and enums place their discriminant at one end and the payload of the
// selected variant at the other. Signal wrappers add no bits.
package kind

import (
	"fmt"
	"strings"
)

// Kind is the interface for all kinds.
type Kind interface {
	implKind()
	BitWidth() int
	String() string
}

// Bits is a fixed-width unsigned bit vector.
type Bits struct {
	Width int
}

// Signed is a fixed-width two's complement bit vector.
type Signed struct {
	Width int
}

// Array is a fixed-size homogeneous aggregate.
type Array struct {
	Base Kind
	Size int
}

// Tuple is an anonymous heterogeneous aggregate.
type Tuple struct {
	Elements []Kind
}

// Field is a named struct member.
type Field struct {
	Name string
	Kind Kind
}

// Struct is a named heterogeneous aggregate.
type Struct struct {
	Name   string
	Fields []Field
}

// Alignment places the enum discriminant at the low or high end.
type Alignment int

const (
	AlignLSB Alignment = iota
	AlignMSB
)

// Layout describes how an enum discriminant is encoded.
type Layout struct {
	Width     int
	Alignment Alignment
	Signed    bool
}

// Variant is one enum alternative. Payload is Empty for unit variants.
type Variant struct {
	Name         string
	Discriminant int64
	Payload      Kind
}

// Enum is a tagged union.
type Enum struct {
	Name     string
	Variants []Variant
	Layout   Layout
}

// Signal wraps a value with the clock domain it belongs to.
type Signal struct {
	Inner Kind
	Color Color
}

// Empty is the zero-width kind.
type Empty struct{}

func (Bits) implKind()   {}
func (Signed) implKind() {}
func (Array) implKind()  {}
func (Tuple) implKind()  {}
func (Struct) implKind() {}
func (Enum) implKind()   {}
func (Signal) implKind() {}
func (Empty) implKind()  {}

func (k Bits) BitWidth() int   { return k.Width }
func (k Signed) BitWidth() int { return k.Width }
func (k Array) BitWidth() int  { return k.Base.BitWidth() * k.Size }
func (k Signal) BitWidth() int { return k.Inner.BitWidth() }
func (Empty) BitWidth() int    { return 0 }

func (k Tuple) BitWidth() int {
	w := 0
	for _, e := range k.Elements {
		w += e.BitWidth()
	}
	return w
}

func (k Struct) BitWidth() int {
	w := 0
	for _, f := range k.Fields {
		w += f.Kind.BitWidth()
	}
	return w
}

func (k Enum) BitWidth() int { return k.Layout.Width + k.PayloadWidth() }

// PayloadWidth is the width of the widest variant payload.
func (k Enum) PayloadWidth() int {
	w := 0
	for _, v := range k.Variants {
		if v.Payload == nil {
			continue
		}
		if pw := v.Payload.BitWidth(); pw > w {
			w = pw
		}
	}
	return w
}

// DiscriminantRange returns the bit range holding the discriminant.
func (k Enum) DiscriminantRange() (start, end int) {
	if k.Layout.Alignment == AlignMSB {
		return k.PayloadWidth(), k.BitWidth()
	}
	return 0, k.Layout.Width
}

// PayloadOffset returns the bit offset at which variant payloads start.
func (k Enum) PayloadOffset() int {
	if k.Layout.Alignment == AlignMSB {
		return 0
	}
	return k.Layout.Width
}

// DiscriminantKind returns the kind of the discriminant alone.
func (k Enum) DiscriminantKind() Kind {
	if k.Layout.Signed {
		return Signed{Width: k.Layout.Width}
	}
	return Bits{Width: k.Layout.Width}
}

// Variant looks up a variant by name.
func (k Enum) Variant(name string) (Variant, bool) {
	for _, v := range k.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByDiscriminant looks up a variant by its discriminant value.
func (k Enum) VariantByDiscriminant(d int64) (Variant, bool) {
	for _, v := range k.Variants {
		if v.Discriminant == d {
			return v, true
		}
	}
	return Variant{}, false
}

// Field looks up a struct field by name, returning its bit offset.
func (k Struct) Field(name string) (Field, int, bool) {
	off := 0
	for _, f := range k.Fields {
		if f.Name == name {
			return f, off, true
		}
		off += f.Kind.BitWidth()
	}
	return Field{}, 0, false
}

func (k Bits) String() string   { return fmt.Sprintf("b%d", k.Width) }
func (k Signed) String() string { return fmt.Sprintf("s%d", k.Width) }
func (k Array) String() string  { return fmt.Sprintf("[%s; %d]", k.Base, k.Size) }
func (k Signal) String() string { return fmt.Sprintf("Signal<%s, %s>", k.Inner, k.Color) }
func (Empty) String() string    { return "()" }

func (k Tuple) String() string {
	parts := make([]string, len(k.Elements))
	for i, e := range k.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (k Struct) String() string {
	parts := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		parts[i] = f.Name + ": " + f.Kind.String()
	}
	return k.Name + " {" + strings.Join(parts, ", ") + "}"
}

func (k Enum) String() string {
	parts := make([]string, len(k.Variants))
	for i, v := range k.Variants {
		if v.Payload == nil || v.Payload.BitWidth() == 0 {
			parts[i] = fmt.Sprintf("%s = %d", v.Name, v.Discriminant)
		} else {
			parts[i] = fmt.Sprintf("%s(%s) = %d", v.Name, v.Payload, v.Discriminant)
		}
	}
	return "enum " + k.Name + " {" + strings.Join(parts, ", ") + "}"
}

// IntegerLiteral is the sentinel kind the front end gives to integer
// literals written without a width annotation.
var IntegerLiteral Kind = Signed{Width: 128}

// IsIntegerLiteral reports whether k is the sentinel literal kind.
func IsIntegerLiteral(k Kind) bool {
	return Equal(k, IntegerLiteral)
}

// Strip removes any Signal wrappers.
func Strip(k Kind) Kind {
	for {
		s, ok := k.(Signal)
		if !ok {
			return k
		}
		k = s.Inner
	}
}

// ColorOf returns the domain of a signal-wrapped kind, Constant otherwise.
func ColorOf(k Kind) Color {
	if s, ok := k.(Signal); ok {
		return s.Color
	}
	return Constant
}

// IsSigned reports whether k, ignoring signal wrappers, is Signed.
func IsSigned(k Kind) bool {
	_, ok := Strip(k).(Signed)
	return ok
}

// IsUnsigned reports whether k, ignoring signal wrappers, is Bits.
func IsUnsigned(k Kind) bool {
	_, ok := Strip(k).(Bits)
	return ok
}

// IsPrimitive reports whether k is one of the two primitive numeric kinds,
// optionally wrapped in a signal.
func IsPrimitive(k Kind) bool {
	return IsSigned(k) || IsUnsigned(k)
}

// IsEmpty reports whether k carries no bits.
func IsEmpty(k Kind) bool {
	return k == nil || k.BitWidth() == 0
}

// Flat returns the primitive kind with the same width and signedness as k.
// Aggregates flatten to unsigned bits.
func Flat(k Kind) Kind {
	if IsSigned(k) {
		return Signed{Width: k.BitWidth()}
	}
	return Bits{Width: k.BitWidth()}
}

// Equal reports structural equality of two kinds.
func Equal(a, b Kind) bool {
	switch x := a.(type) {
	case Bits:
		y, ok := b.(Bits)
		return ok && x.Width == y.Width
	case Signed:
		y, ok := b.(Signed)
		return ok && x.Width == y.Width
	case Array:
		y, ok := b.(Array)
		return ok && x.Size == y.Size && Equal(x.Base, y.Base)
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case Struct:
		y, ok := b.(Struct)
		if !ok || x.Name != y.Name || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Kind, y.Fields[i].Kind) {
				return false
			}
		}
		return true
	case Enum:
		y, ok := b.(Enum)
		if !ok || x.Name != y.Name || x.Layout != y.Layout || len(x.Variants) != len(y.Variants) {
			return false
		}
		for i := range x.Variants {
			vx, vy := x.Variants[i], y.Variants[i]
			if vx.Name != vy.Name || vx.Discriminant != vy.Discriminant || !Equal(payload(vx), payload(vy)) {
				return false
			}
		}
		return true
	case Signal:
		y, ok := b.(Signal)
		return ok && x.Color == y.Color && Equal(x.Inner, y.Inner)
	case Empty:
		_, ok := b.(Empty)
		return ok || b == nil
	case nil:
		return b == nil || Equal(b, Empty{})
	}
	return false
}

// EqualStripped compares two kinds ignoring signal wrappers.
func EqualStripped(a, b Kind) bool {
	return Equal(Strip(a), Strip(b))
}

func payload(v Variant) Kind {
	if v.Payload == nil {
		return Empty{}
	}
	return v.Payload
}
