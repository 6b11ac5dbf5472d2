// Package kernelyaml reads kernel descriptions written in YAML and builds
// RHIF objects from them. A file declares named types, black boxes and any
// number of kernels:
//
//	types:
//	  - name: Point
//	    struct: [{name: x, kind: b8}, {name: y, kind: b8}]
//	black_boxes:
//	  - {name: dff, args: [b8], ret: b8, sync: true}
//	kernels:
//	  - name: add
//	    args: [{name: a, kind: b8}, {name: b, kind: b8}]
//	    regs: [{name: sum, kind: b8}]
//	    ops:
//	      - {op: add, lhs: sum, args: [a, b]}
//	    return: sum
//
// Kinds are written b8, s12, [b8; 4], (b8, s4), Signal<b8, red>, () or a
// declared type name. Operands are register names or literals: 200_b8,
// -3_s8, 0xff_b8, 0b101_b3, a bare integer (the sentinel literal kind) or
// Enum::Variant. Paths chain .field, .0, [2], [reg], #Variant, # and .val().
//
// Spans are byte ranges of the YAML source: every opcode is located at its
// list entry.
package kernelyaml

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

type (
	fileSpec struct {
		Types      []located[typeSpec]     `yaml:"types"`
		BlackBoxes []located[blackBoxSpec] `yaml:"black_boxes"`
		Kernels    []located[kernelSpec]   `yaml:"kernels"`
	}

	typeSpec struct {
		Name   string      `yaml:"name"`
		Struct []fieldSpec `yaml:"struct"`
		Enum   *enumSpec   `yaml:"enum"`
	}

	fieldSpec struct {
		Name string `yaml:"name"`
		Kind string `yaml:"kind"`
	}

	enumSpec struct {
		Width    int           `yaml:"width"`
		Align    string        `yaml:"align"`
		Signed   bool          `yaml:"signed"`
		Variants []variantSpec `yaml:"variants"`
	}

	variantSpec struct {
		Name         string `yaml:"name"`
		Discriminant int64  `yaml:"discriminant"`
		Kind         string `yaml:"kind"`
	}

	blackBoxSpec struct {
		Name string   `yaml:"name"`
		Args []string `yaml:"args"`
		Ret  string   `yaml:"ret"`
		Sync bool     `yaml:"sync"`
	}

	kernelSpec struct {
		Name   string              `yaml:"name"`
		Args   []located[regSpec]  `yaml:"args"`
		Regs   []located[regSpec]  `yaml:"regs"`
		Ops    []located[opSpec]   `yaml:"ops"`
		Return string              `yaml:"return"`
	}

	regSpec struct {
		Name string `yaml:"name"`
		Kind string `yaml:"kind"`
		Role string `yaml:"role"`
	}

	opSpec struct {
		Op      string           `yaml:"op"`
		Lhs     string           `yaml:"lhs"`
		Args    []string         `yaml:"args"`
		Path    string           `yaml:"path"`
		Len     int              `yaml:"len"`
		Call    string           `yaml:"call"`
		Color   string           `yaml:"color"`
		Variant string           `yaml:"variant"`
		Fields  []fieldValueSpec `yaml:"fields"`
		Rest    string           `yaml:"rest"`
		Table   []caseSpec       `yaml:"table"`
		Text    string           `yaml:"text"`
	}

	fieldValueSpec struct {
		Name  string `yaml:"name"`
		Value string `yaml:"value"`
	}

	caseSpec struct {
		Key   string `yaml:"key"`
		Value string `yaml:"value"`
	}

	// located remembers where in the document a value was written.
	located[T any] struct {
		Value        T
		Line, Column int
	}
)

func (l *located[T]) UnmarshalYAML(n *yaml.Node) error {
	l.Line, l.Column = n.Line, n.Column
	return n.Decode(&l.Value)
}

// Load reads a kernel file.
func Load(path string) ([]*rhif.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read kernels")
	}

	return Parse(path, data)
}

// Parse builds one object per kernel of a YAML document. file names the
// document in spans.
func Parse(file string, data []byte) ([]*rhif.Object, error) {
	var doc fileSpec
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse %s", file)
	}

	src := newSource(file, data)

	types, err := declareTypes(src, doc.Types)
	if err != nil {
		return nil, err
	}

	boxes := make(map[string]*rhif.BlackBox, len(doc.BlackBoxes))
	for _, lb := range doc.BlackBoxes {
		bb, err := declareBlackBox(src, types, lb)
		if err != nil {
			return nil, err
		}
		if _, dup := boxes[bb.Name]; dup {
			return nil, diag.Legality(src.span(lb.Line, lb.Column), "black box %s is declared twice", bb.Name)
		}
		boxes[bb.Name] = bb
	}

	objs := make([]*rhif.Object, 0, len(doc.Kernels))
	seen := make(map[string]bool)

	for _, lk := range doc.Kernels {
		if seen[lk.Value.Name] {
			return nil, diag.Legality(src.span(lk.Line, lk.Column), "kernel %s is declared twice", lk.Value.Name)
		}
		seen[lk.Value.Name] = true

		b := &builder{src: src, types: types, boxes: boxes}

		obj, err := b.kernel(lk)
		if err != nil {
			return nil, err
		}

		objs = append(objs, obj)
	}

	return objs, nil
}

func declareTypes(src *source, specs []located[typeSpec]) (map[string]kind.Kind, error) {
	types := make(map[string]kind.Kind, len(specs))

	for _, lt := range specs {
		t := lt.Value
		at := src.span(lt.Line, lt.Column)

		if t.Name == "" {
			return nil, diag.Legality(at, "type without a name")
		}
		if _, dup := types[t.Name]; dup {
			return nil, diag.Legality(at, "type %s is declared twice", t.Name)
		}

		var k kind.Kind
		var err error

		switch {
		case t.Enum != nil && t.Struct != nil:
			return nil, diag.Legality(at, "type %s is both a struct and an enum", t.Name)
		case t.Enum != nil:
			k, err = enumKind(t.Name, *t.Enum, types)
		default:
			k, err = structKind(t.Name, t.Struct, types)
		}
		if err != nil {
			return nil, diag.Legality(at, "type %s: %v", t.Name, err)
		}

		types[t.Name] = k
	}

	return types, nil
}

func structKind(name string, fields []fieldSpec, types map[string]kind.Kind) (kind.Kind, error) {
	r := kind.Struct{Name: name}

	for _, f := range fields {
		k, err := ParseKind(f.Kind, types)
		if err != nil {
			return nil, errors.Wrap(err, "field %s", f.Name)
		}
		r.Fields = append(r.Fields, kind.Field{Name: f.Name, Kind: k})
	}

	return r, nil
}

func enumKind(name string, e enumSpec, types map[string]kind.Kind) (kind.Kind, error) {
	r := kind.Enum{Name: name, Layout: kind.Layout{Width: e.Width, Signed: e.Signed}}

	switch e.Align {
	case "", "lsb":
	case "msb":
		r.Layout.Alignment = kind.AlignMSB
	default:
		return nil, errors.New("unknown alignment %q", e.Align)
	}

	seen := make(map[int64]string)

	for _, v := range e.Variants {
		var payload kind.Kind = kind.Empty{}
		if v.Kind != "" {
			k, err := ParseKind(v.Kind, types)
			if err != nil {
				return nil, errors.Wrap(err, "variant %s", v.Name)
			}
			payload = k
		}

		if other, dup := seen[v.Discriminant]; dup {
			return nil, errors.New("variants %s and %s share discriminant %d", other, v.Name, v.Discriminant)
		}
		seen[v.Discriminant] = v.Name

		r.Variants = append(r.Variants, kind.Variant{Name: v.Name, Discriminant: v.Discriminant, Payload: payload})
	}

	if len(r.Variants) == 0 {
		return nil, errors.New("enum without variants")
	}

	if r.Layout.Width == 0 {
		r.Layout.Width = discriminantWidth(r.Variants, e.Signed)
	}

	for _, v := range r.Variants {
		if !fits(v.Discriminant, r.Layout.Width, e.Signed) {
			return nil, errors.New("discriminant %d of %s does not fit in %d bits", v.Discriminant, v.Name, r.Layout.Width)
		}
	}

	return r, nil
}

// discriminantWidth is the narrowest width holding every discriminant.
func discriminantWidth(vs []kind.Variant, signed bool) int {
	ds := make([]int64, len(vs))
	for i, v := range vs {
		ds[i] = v.Discriminant
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })

	w := 1
	for w < 64 && (!fits(ds[0], w, signed) || !fits(ds[len(ds)-1], w, signed)) {
		w++
	}
	return w
}

func fits(v int64, w int, signed bool) bool {
	if w >= 64 {
		return signed || v >= 0
	}
	if signed {
		lim := int64(1) << (w - 1)
		return v >= -lim && v < lim
	}
	return v >= 0 && v < int64(1)<<w
}

func declareBlackBox(src *source, types map[string]kind.Kind, lb located[blackBoxSpec]) (*rhif.BlackBox, error) {
	s := lb.Value
	at := src.span(lb.Line, lb.Column)

	bb := &rhif.BlackBox{Name: s.Name, Synchronous: s.Sync, Ret: kind.Empty{}}

	for i, a := range s.Args {
		k, err := ParseKind(a, types)
		if err != nil {
			return nil, diag.Legality(at, "black box %s argument %d: %v", s.Name, i, err)
		}
		bb.Args = append(bb.Args, k)
	}

	if s.Ret != "" {
		k, err := ParseKind(s.Ret, types)
		if err != nil {
			return nil, diag.Legality(at, "black box %s result: %v", s.Name, err)
		}
		bb.Ret = k
	}

	return bb, nil
}

// source maps YAML line and column positions to byte offsets.
type source struct {
	file  string
	data  []byte
	lines []int
}

func newSource(file string, data []byte) *source {
	s := &source{file: file, data: data, lines: []int{0}}
	for i, c := range data {
		if c == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}
	return s
}

// span covers from line:col to the end of that line.
func (s *source) span(line, col int) diag.Span {
	if line < 1 || line > len(s.lines) {
		return diag.Span{File: s.file}
	}

	start := s.lines[line-1] + col - 1
	end := len(s.data)
	if line < len(s.lines) {
		end = s.lines[line] - 1
	}
	if start > end {
		start = end
	}

	return diag.Span{File: s.file, Start: start, End: end}
}
