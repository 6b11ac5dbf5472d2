package kind

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// PathElement is one step of a Path.
type PathElement interface {
	implPathElement()
	String() string
}

// Member selects a struct field by name.
type Member struct{ Name string }

// TupleIndex selects a tuple element.
type TupleIndex struct{ Index int }

// Index selects an array element by constant index.
type Index struct{ Index int }

// DynamicIndex selects an array element by the run-time value of a slot.
type DynamicIndex struct{ Slot symtab.Ref }

// EnumPayload selects the payload of the named variant.
type EnumPayload struct{ Variant string }

// Discriminant selects the discriminant of an enum.
type Discriminant struct{}

// SignalValue unwraps a signal, dropping its color.
type SignalValue struct{}

func (Member) implPathElement()       {}
func (TupleIndex) implPathElement()   {}
func (Index) implPathElement()        {}
func (DynamicIndex) implPathElement() {}
func (EnumPayload) implPathElement()  {}
func (Discriminant) implPathElement() {}
func (SignalValue) implPathElement()  {}

func (e Member) String() string       { return "." + e.Name }
func (e TupleIndex) String() string   { return fmt.Sprintf(".%d", e.Index) }
func (e Index) String() string        { return fmt.Sprintf("[%d]", e.Index) }
func (e DynamicIndex) String() string { return fmt.Sprintf("[%s]", e.Slot) }
func (e EnumPayload) String() string  { return "#" + e.Variant }
func (Discriminant) String() string   { return "#" }
func (SignalValue) String() string    { return ".val()" }

// Path is a sequence of projections into an aggregate.
type Path []PathElement

func (p Path) String() string {
	var b strings.Builder
	for _, e := range p {
		b.WriteString(e.String())
	}
	return b.String()
}

// IsStatic reports whether p contains no dynamic indices.
func (p Path) IsStatic() bool {
	return len(p.Dynamic()) == 0
}

// Dynamic returns the slots used as dynamic indices, in path order.
func (p Path) Dynamic() []symtab.Ref {
	var r []symtab.Ref
	for _, e := range p {
		if d, ok := e.(DynamicIndex); ok {
			r = append(r, d.Slot)
		}
	}
	return r
}

// Substitute replaces dynamic indices, in order, by constant indices.
func (p Path) Substitute(values []int) Path {
	r := make(Path, len(p))
	n := 0
	for i, e := range p {
		if _, ok := e.(DynamicIndex); ok && n < len(values) {
			r[i] = Index{Index: values[n]}
			n++
			continue
		}
		r[i] = e
	}
	return r
}

// MapSlots rewrites the slots of dynamic indices.
func (p Path) MapSlots(f func(symtab.Ref) symtab.Ref) Path {
	if p.IsStatic() {
		return p
	}
	r := make(Path, len(p))
	for i, e := range p {
		if d, ok := e.(DynamicIndex); ok {
			r[i] = DynamicIndex{Slot: f(d.Slot)}
			continue
		}
		r[i] = e
	}
	return r
}

// SubKind returns the kind reached by following p from k. Projections
// through a signal keep its color on the result.
func SubKind(k Kind, p Path) (Kind, error) {
	_, _, sub, err := walk(k, p, false)
	return sub, err
}

// BitRange returns the half-open bit range [start, end) selected by the
// static path p within a value of kind k, and the kind found there.
func BitRange(k Kind, p Path) (start, end int, sub Kind, err error) {
	return walk(k, p, true)
}

// DynamicBounds returns, for each dynamic index of p in order, the number of
// legal index values (the size of the array being indexed).
func DynamicBounds(k Kind, p Path) ([]int, error) {
	var bounds []int
	cur := k
	for _, e := range p {
		if _, ok := e.(DynamicIndex); ok {
			arr, ok := Strip(cur).(Array)
			if !ok {
				return nil, fmt.Errorf("dynamic index into non-array kind %s", cur)
			}
			bounds = append(bounds, arr.Size)
		}
		next, err := SubKind(cur, Path{e})
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return bounds, nil
}

func walk(k Kind, p Path, static bool) (start, end int, sub Kind, err error) {
	offset := 0
	cur := k

	for _, e := range p {
		var color Color
		wrapped := false

		if s, ok := cur.(Signal); ok {
			if _, unwrap := e.(SignalValue); unwrap {
				cur = s.Inner
				continue
			}
			color, wrapped = s.Color, true
			cur = Strip(s)
		}

		var off int
		var next Kind

		switch e := e.(type) {
		case Member:
			st, ok := cur.(Struct)
			if !ok {
				return 0, 0, nil, fmt.Errorf("field %s of non-struct kind %s", e.Name, cur)
			}
			f, o, ok := st.Field(e.Name)
			if !ok {
				return 0, 0, nil, fmt.Errorf("struct %s has no field %s", st.Name, e.Name)
			}
			off, next = o, f.Kind
		case TupleIndex:
			tu, ok := cur.(Tuple)
			if !ok {
				return 0, 0, nil, fmt.Errorf("tuple index %d of non-tuple kind %s", e.Index, cur)
			}
			if e.Index < 0 || e.Index >= len(tu.Elements) {
				return 0, 0, nil, fmt.Errorf("tuple index %d out of range for %s", e.Index, cur)
			}
			for i := 0; i < e.Index; i++ {
				off += tu.Elements[i].BitWidth()
			}
			next = tu.Elements[e.Index]
		case Index:
			arr, ok := cur.(Array)
			if !ok {
				return 0, 0, nil, fmt.Errorf("index %d of non-array kind %s", e.Index, cur)
			}
			if e.Index < 0 || e.Index >= arr.Size {
				return 0, 0, nil, fmt.Errorf("index %d out of range for %s", e.Index, cur)
			}
			off, next = e.Index*arr.Base.BitWidth(), arr.Base
		case DynamicIndex:
			arr, ok := cur.(Array)
			if !ok {
				return 0, 0, nil, fmt.Errorf("dynamic index of non-array kind %s", cur)
			}
			if static {
				return 0, 0, nil, fmt.Errorf("bit range of dynamic path %s", p)
			}
			next = arr.Base
		case EnumPayload:
			en, ok := cur.(Enum)
			if !ok {
				return 0, 0, nil, fmt.Errorf("payload %s of non-enum kind %s", e.Variant, cur)
			}
			v, ok := en.Variant(e.Variant)
			if !ok {
				return 0, 0, nil, fmt.Errorf("enum %s has no variant %s", en.Name, e.Variant)
			}
			off, next = en.PayloadOffset(), payload(v)
		case Discriminant:
			en, ok := cur.(Enum)
			if !ok {
				// the discriminant of a non-enum value is the value itself
				next = cur
				break
			}
			off, _ = en.DiscriminantRange()
			next = en.DiscriminantKind()
		case SignalValue:
			next = cur
		default:
			return 0, 0, nil, fmt.Errorf("unknown path element %T", e)
		}

		if wrapped {
			next = Signal{Inner: next, Color: color}
		}

		offset += off
		cur = next
	}

	return offset, offset + cur.BitWidth(), cur, nil
}
