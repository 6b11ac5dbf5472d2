package ntl

import (
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

const hashDomain = "ralph-hdl/ntl/v1"

const (
	tagAssign byte = iota + 1
	tagNot
	tagBinary
	tagVector
	tagUnary
	tagSelect
	tagCase
	tagBlackBox
	tagComment
)

// Hash returns the structural hash of the object.
func (obj *Object) Hash() pass.Digest {
	h := pass.NewHasher(hashDomain)

	h.String(obj.Name)

	lits := obj.Symbols.LiteralIDs()
	h.Uint(uint64(len(lits)))
	for _, id := range lits {
		h.Int(int64(id)).Uint(uint64(obj.Symbols.Literal(id)))
		h.Span(obj.Symbols.LiteralLoc(id))
	}

	regs := obj.Symbols.RegisterIDs()
	h.Uint(uint64(len(regs)))
	for _, id := range regs {
		h.Int(int64(id)).String(obj.Symbols.Register(id).Name)
		h.Span(obj.Symbols.RegisterLoc(id))
	}

	h.Uint(uint64(len(obj.Inputs)))
	for _, in := range obj.Inputs {
		h.String(in.Name).Int(int64(in.Role)).Refs(in.Wires...)
	}

	h.Refs(obj.Outputs...)

	h.Uint(uint64(len(obj.Ops)))
	for _, lop := range obj.Ops {
		hashOp(h, lop.Op)
		h.Span(lop.Loc)
	}

	return h.Sum()
}

func hashOp(h *pass.Hasher, op OpCode) {
	switch o := op.(type) {
	case Assign:
		h.Tag(tagAssign).Refs(o.Lhs, o.Rhs)
	case Not:
		h.Tag(tagNot).Refs(o.Lhs, o.Arg)
	case Binary:
		h.Tag(tagBinary).Int(int64(o.Op)).Refs(o.Lhs, o.Arg1, o.Arg2)
	case Vector:
		h.Tag(tagVector).Int(int64(o.Op)).Bool(o.Signed).Refs(o.Lhs...).Refs(o.Arg1...).Refs(o.Arg2...)
	case Unary:
		h.Tag(tagUnary).Int(int64(o.Op)).Bool(o.Signed).Refs(o.Lhs...).Refs(o.Arg...)
	case Select:
		h.Tag(tagSelect).Refs(o.Lhs, o.Cond, o.TrueValue, o.FalseValue)
	case Case:
		h.Tag(tagCase).Refs(o.Lhs...).Refs(o.Discriminant...)
		h.Uint(uint64(len(o.Table)))
		for _, e := range o.Table {
			h.Bool(e.Arg.Wild)
			hashKey(h, e.Arg.Key)
			h.Refs(e.Value...)
		}
	case BlackBox:
		h.Tag(tagBlackBox).String(o.Name).Bool(o.Synchronous).Refs(o.Lhs...)
		h.Uint(uint64(len(o.Args)))
		for _, a := range o.Args {
			h.Refs(a...)
		}
	case Comment:
		h.Tag(tagComment).String(o.Text)
	}
}

func hashKey(h *pass.Hasher, bits []typedbits.Bit) {
	b := make([]byte, len(bits))
	for i, x := range bits {
		b[i] = byte(x)
	}
	h.Bytes(b)
}
