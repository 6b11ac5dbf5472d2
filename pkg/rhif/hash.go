package rhif

import (
	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

const hashDomain = "ralph-hdl/rhif/v1"

// opcode tags
const (
	tagNoop byte = iota + 1
	tagAssign
	tagBinary
	tagUnary
	tagSelect
	tagIndex
	tagSplice
	tagConcat
	tagRepeat
	tagStruct
	tagTuple
	tagArray
	tagEnum
	tagCase
	tagExec
	tagAsBits
	tagAsSigned
	tagResize
	tagRetime
	tagComment
)

// Hash returns the structural hash of the object. It covers the live
// contents of both arenas, the opcode sequence, arguments, return slot and
// external names, never pointer identity.
func (obj *Object) Hash() pass.Digest {
	h := pass.NewHasher(hashDomain)

	h.String(obj.Name)

	lits := obj.Symbols.LiteralIDs()
	h.Uint(uint64(len(lits)))
	for _, id := range lits {
		h.Int(int64(id))
		HashBits(h, obj.Symbols.Literal(id))
		hashSpan(h, obj.Symbols.LiteralLoc(id))
	}

	regs := obj.Symbols.RegisterIDs()
	h.Uint(uint64(len(regs)))
	for _, id := range regs {
		r := obj.Symbols.Register(id)
		h.Int(int64(id))
		HashKind(h, r.Kind)
		h.String(r.Name)
		hashSpan(h, obj.Symbols.RegisterLoc(id))
	}

	h.Uint(uint64(len(obj.Arguments)))
	for _, a := range obj.Arguments {
		h.Int(int64(a.Reg)).Int(int64(a.Role))
	}

	hashSlot(h, obj.Return)

	ids := obj.ExternalIDs()
	h.Uint(uint64(len(ids)))
	for _, id := range ids {
		e := obj.Externals[id]
		h.Int(int64(id)).String(e.Name).Bool(e.BlackBox != nil)
	}

	h.Uint(uint64(len(obj.Ops)))
	for _, lop := range obj.Ops {
		hashOp(h, lop.Op)
		hashSpan(h, lop.Loc)
	}

	return h.Sum()
}

// HashKind writes a kind canonically.
func HashKind(h *pass.Hasher, k kind.Kind) {
	switch k := k.(type) {
	case kind.Bits:
		h.Tag(1).Int(int64(k.Width))
	case kind.Signed:
		h.Tag(2).Int(int64(k.Width))
	case kind.Array:
		h.Tag(3).Int(int64(k.Size))
		HashKind(h, k.Base)
	case kind.Tuple:
		h.Tag(4).Uint(uint64(len(k.Elements)))
		for _, e := range k.Elements {
			HashKind(h, e)
		}
	case kind.Struct:
		h.Tag(5).String(k.Name).Uint(uint64(len(k.Fields)))
		for _, f := range k.Fields {
			h.String(f.Name)
			HashKind(h, f.Kind)
		}
	case kind.Enum:
		h.Tag(6).String(k.Name)
		h.Int(int64(k.Layout.Width)).Int(int64(k.Layout.Alignment)).Bool(k.Layout.Signed)
		h.Uint(uint64(len(k.Variants)))
		for _, v := range k.Variants {
			h.String(v.Name).Int(v.Discriminant)
			HashKind(h, v.Payload)
		}
	case kind.Signal:
		h.Tag(7).Int(int64(k.Color))
		HashKind(h, k.Inner)
	default:
		h.Tag(0)
	}
}

// HashBits writes a typed constant canonically.
func HashBits(h *pass.Hasher, v typedbits.TypedBits) {
	HashKind(h, v.Kind)
	b := make([]byte, len(v.Bits))
	for i, x := range v.Bits {
		b[i] = byte(x)
	}
	h.Bytes(b)
}

func hashSpan(h *pass.Hasher, s diag.Span) {
	h.String(s.File).Int(int64(s.Start)).Int(int64(s.End))
}

func hashSlot(h *pass.Hasher, s symtab.Ref) {
	h.Tag(byte(s.Tag)).Int(int64(s.ID))
}

func hashSlots(h *pass.Hasher, ss []Slot) {
	h.Uint(uint64(len(ss)))
	for _, s := range ss {
		hashSlot(h, s)
	}
}

func hashPath(h *pass.Hasher, p kind.Path) {
	h.Uint(uint64(len(p)))
	for _, e := range p {
		switch e := e.(type) {
		case kind.Member:
			h.Tag(1).String(e.Name)
		case kind.TupleIndex:
			h.Tag(2).Int(int64(e.Index))
		case kind.Index:
			h.Tag(3).Int(int64(e.Index))
		case kind.DynamicIndex:
			h.Tag(4)
			hashSlot(h, e.Slot)
		case kind.EnumPayload:
			h.Tag(5).String(e.Variant)
		case kind.Discriminant:
			h.Tag(6)
		case kind.SignalValue:
			h.Tag(7)
		}
	}
}

func hashFields(h *pass.Hasher, fs []FieldValue) {
	h.Uint(uint64(len(fs)))
	for _, f := range fs {
		h.String(f.Name)
		hashSlot(h, f.Value)
	}
}

func hashOp(h *pass.Hasher, op OpCode) {
	switch o := op.(type) {
	case Noop:
		h.Tag(tagNoop)
	case Assign:
		h.Tag(tagAssign)
		hashSlots(h, []Slot{o.Lhs, o.Rhs})
	case Binary:
		h.Tag(tagBinary).Int(int64(o.Op))
		hashSlots(h, []Slot{o.Lhs, o.Arg1, o.Arg2})
	case Unary:
		h.Tag(tagUnary).Int(int64(o.Op))
		hashSlots(h, []Slot{o.Lhs, o.Arg1})
	case Select:
		h.Tag(tagSelect)
		hashSlots(h, []Slot{o.Lhs, o.Cond, o.TrueValue, o.FalseValue})
	case Index:
		h.Tag(tagIndex)
		hashSlots(h, []Slot{o.Lhs, o.Arg})
		hashPath(h, o.Path)
	case Splice:
		h.Tag(tagSplice)
		hashSlots(h, []Slot{o.Lhs, o.Orig, o.Subst})
		hashPath(h, o.Path)
	case Concat:
		h.Tag(tagConcat)
		hashSlot(h, o.Lhs)
		hashSlots(h, o.Args)
	case Repeat:
		h.Tag(tagRepeat).Int(int64(o.Len))
		hashSlots(h, []Slot{o.Lhs, o.Value})
	case Struct:
		h.Tag(tagStruct)
		hashSlots(h, []Slot{o.Lhs, o.Rest})
		hashFields(h, o.Fields)
		HashBits(h, o.Template)
	case Tuple:
		h.Tag(tagTuple)
		hashSlot(h, o.Lhs)
		hashSlots(h, o.Fields)
	case Array:
		h.Tag(tagArray)
		hashSlot(h, o.Lhs)
		hashSlots(h, o.Elements)
	case Enum:
		h.Tag(tagEnum).String(o.Variant)
		hashSlot(h, o.Lhs)
		hashFields(h, o.Fields)
		HashBits(h, o.Template)
	case Case:
		h.Tag(tagCase)
		hashSlots(h, []Slot{o.Lhs, o.Discriminant})
		h.Uint(uint64(len(o.Table)))
		for _, e := range o.Table {
			h.Bool(e.Arg.Wild)
			hashSlot(h, e.Arg.Literal)
			hashSlot(h, e.Value)
		}
	case Exec:
		h.Tag(tagExec).Int(int64(o.ID))
		hashSlot(h, o.Lhs)
		hashSlots(h, o.Args)
	case AsBits:
		h.Tag(tagAsBits).Int(int64(o.Len))
		hashSlots(h, []Slot{o.Lhs, o.Arg})
	case AsSigned:
		h.Tag(tagAsSigned).Int(int64(o.Len))
		hashSlots(h, []Slot{o.Lhs, o.Arg})
	case Resize:
		h.Tag(tagResize).Int(int64(o.Len))
		hashSlots(h, []Slot{o.Lhs, o.Arg})
	case Retime:
		h.Tag(tagRetime).Int(int64(o.Color))
		hashSlots(h, []Slot{o.Lhs, o.Arg})
	case Comment:
		h.Tag(tagComment).String(o.Text)
	}
}
