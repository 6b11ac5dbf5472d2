package rhifopt

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

// PrecomputeDiscriminants rewrites every case over an enum value into a
// case over the enum's discriminant. The discriminant is extracted into a
// new register just before the case and every table key is replaced by a
// literal holding only the key's discriminant.
func PrecomputeDiscriminants(in *rhif.Object) (*rhif.Object, error) {
	obj := in.Clone()
	obj.Ops = obj.Ops[:0:0]

	for _, lop := range in.Ops {
		o, ok := lop.Op.(rhif.Case)
		if !ok {
			obj.Ops = append(obj.Ops, lop)
			continue
		}

		dk := obj.Kind(o.Discriminant)
		if _, ok := kind.Strip(dk).(kind.Enum); !ok {
			obj.Ops = append(obj.Ops, lop)
			continue
		}

		path := kind.Path{kind.Discriminant{}}

		sub, err := kind.SubKind(dk, path)
		if err != nil {
			return nil, diag.Internal(in.Dump(), "discriminant of %s: %v", dk, err)
		}

		table := make([]rhif.CaseEntry, len(o.Table))
		for i, e := range o.Table {
			table[i] = e
			if e.Arg.Wild {
				continue
			}

			key, ok := obj.Literal(e.Arg.Literal)
			if !ok {
				return nil, diag.Type(lop.Loc, "case key %s is not a literal", e.Arg.Literal)
			}
			if !kind.EqualStripped(key.Kind, dk) {
				return nil, diag.Type(obj.Span(e.Arg.Literal), "case key of kind %s does not match %s", key.Kind, dk)
			}

			d, err := key.Path(path)
			if err != nil {
				return nil, diag.Internal(in.Dump(), "discriminant of case key %s: %v", key, err)
			}
			d, err = d.Retyped(kind.Strip(sub))
			if err != nil {
				return nil, diag.Internal(in.Dump(), "discriminant of case key %s: %v", key, err)
			}

			table[i].Arg.Literal = obj.AddLiteral(d, obj.Span(e.Arg.Literal))
		}

		r := obj.AddRegister(sub, "", obj.Span(o.Discriminant))
		obj.Ops = append(obj.Ops, rhif.Located{Op: rhif.Index{Lhs: r, Arg: o.Discriminant, Path: path}, Loc: lop.Loc})

		o.Discriminant = r
		o.Table = table
		obj.Ops = append(obj.Ops, rhif.Located{Op: o, Loc: lop.Loc})
	}

	return obj, nil
}
