package rhif

import (
	"strconv"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/kind"
)

// FieldPath returns the path of a named member inside a struct or tuple
// kind. Tuple members are named by their decimal index.
func FieldPath(k kind.Kind, name string) (kind.Path, error) {
	switch k := kind.Strip(k).(type) {
	case kind.Struct:
		if _, _, ok := k.Field(name); !ok {
			return nil, errors.New("struct %s has no field %s", k.Name, name)
		}
		return kind.Path{kind.Member{Name: name}}, nil
	case kind.Tuple:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(k.Elements) {
			return nil, errors.New("tuple %s has no element %s", k, name)
		}
		return kind.Path{kind.TupleIndex{Index: i}}, nil
	}
	return nil, errors.New("field %s of non-aggregate kind %s", name, k)
}

// EnumFieldPath returns the path of a payload member of an enum variant.
// A payload that is neither a struct nor a tuple is addressed as a whole by
// the name "0".
func EnumFieldPath(k kind.Kind, variant, name string) (kind.Path, error) {
	en, ok := kind.Strip(k).(kind.Enum)
	if !ok {
		return nil, errors.New("variant %s of non-enum kind %s", variant, k)
	}
	v, ok := en.Variant(variant)
	if !ok {
		return nil, errors.New("enum %s has no variant %s", en.Name, variant)
	}

	p := kind.Path{kind.EnumPayload{Variant: variant}}

	switch kind.Strip(v.Payload).(type) {
	case kind.Struct, kind.Tuple:
		sub, err := FieldPath(v.Payload, name)
		if err != nil {
			return nil, err
		}
		return append(p, sub...), nil
	}

	if name != "0" {
		return nil, errors.New("variant %s::%s has no field %s", en.Name, variant, name)
	}
	return p, nil
}
