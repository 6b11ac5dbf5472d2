package rtl

import (
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

const hashDomain = "ralph-hdl/rtl/v1"

const (
	tagAssign byte = iota + 1
	tagBinary
	tagUnary
	tagSelect
	tagIndex
	tagSplice
	tagConcat
	tagCast
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
		h.Int(int64(id))
		rhif.HashBits(h, obj.Symbols.Literal(id))
		h.Span(obj.Symbols.LiteralLoc(id))
	}

	regs := obj.Symbols.RegisterIDs()
	h.Uint(uint64(len(regs)))
	for _, id := range regs {
		r := obj.Symbols.Register(id)
		h.Int(int64(id))
		rhif.HashKind(h, r.Kind)
		h.String(r.Name).Span(obj.Symbols.RegisterLoc(id))
	}

	h.Uint(uint64(len(obj.Arguments)))
	for _, a := range obj.Arguments {
		h.Int(int64(a.Reg)).Int(int64(a.Role))
	}

	h.Ref(obj.Return)

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
	case Binary:
		h.Tag(tagBinary).Int(int64(o.Op)).Refs(o.Lhs, o.Arg1, o.Arg2)
	case Unary:
		h.Tag(tagUnary).Int(int64(o.Op)).Refs(o.Lhs, o.Arg1)
	case Select:
		h.Tag(tagSelect).Refs(o.Lhs, o.Cond, o.TrueValue, o.FalseValue)
	case Index:
		h.Tag(tagIndex).Int(int64(o.Start)).Int(int64(o.End)).Refs(o.Lhs, o.Arg)
	case Splice:
		h.Tag(tagSplice).Int(int64(o.Start)).Int(int64(o.End)).Refs(o.Lhs, o.Orig, o.Value)
	case Concat:
		h.Tag(tagConcat).Ref(o.Lhs).Refs(o.Args...)
	case Cast:
		h.Tag(tagCast).Int(int64(o.Kind)).Int(int64(o.Len)).Refs(o.Lhs, o.Arg)
	case Case:
		h.Tag(tagCase).Refs(o.Lhs, o.Discriminant)
		h.Uint(uint64(len(o.Table)))
		for _, e := range o.Table {
			h.Bool(e.Arg.Wild).Ref(e.Arg.Literal).Ref(e.Value)
		}
	case BlackBox:
		h.Tag(tagBlackBox).String(o.Name).Bool(o.Synchronous).Ref(o.Lhs).Refs(o.Args...)
	case Comment:
		h.Tag(tagComment).String(o.Text)
	}
}
