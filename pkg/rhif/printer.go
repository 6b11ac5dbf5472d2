package rhif

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// Printer writes objects in a human-readable form.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new RHIF printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintObject prints a complete object.
func (p *Printer) PrintObject(obj *Object) {
	fmt.Fprintf(p.w, "object %s {\n", obj.Name)

	for _, a := range obj.Arguments {
		fmt.Fprintf(p.w, "  arg %s %s\n", a.Role, symtab.Reg(a.Reg))
	}

	for _, id := range obj.ExternalIDs() {
		e := obj.Externals[id]
		switch {
		case e.BlackBox != nil:
			fmt.Fprintf(p.w, "  extern f%d = blackbox %s\n", id, e.Name)
		case e.Object != nil:
			fmt.Fprintf(p.w, "  extern f%d = %s\n", id, e.Name)
		default:
			fmt.Fprintf(p.w, "  extern f%d = %s (unresolved)\n", id, e.Name)
		}
	}

	for _, id := range obj.Symbols.LiteralIDs() {
		fmt.Fprintf(p.w, "  l%d = %s\n", id, obj.Symbols.Literal(id))
	}

	for _, id := range obj.Symbols.RegisterIDs() {
		r := obj.Symbols.Register(id)
		if r.Name != "" {
			fmt.Fprintf(p.w, "  r%d: %s // %s\n", id, r.Kind, r.Name)
		} else {
			fmt.Fprintf(p.w, "  r%d: %s\n", id, r.Kind)
		}
	}

	for _, lop := range obj.Ops {
		fmt.Fprintf(p.w, "  %s\n", OpString(lop.Op))
	}

	fmt.Fprintf(p.w, "  return %s\n", obj.Return)
	fmt.Fprintln(p.w, "}")
}

// OpString formats a single opcode.
func OpString(op OpCode) string {
	switch o := op.(type) {
	case Noop:
		return "nop"
	case Assign:
		return fmt.Sprintf("%s <- %s", o.Lhs, o.Rhs)
	case Binary:
		return fmt.Sprintf("%s <- %s %s %s", o.Lhs, o.Arg1, o.Op, o.Arg2)
	case Unary:
		return fmt.Sprintf("%s <- %s(%s)", o.Lhs, o.Op, o.Arg1)
	case Select:
		return fmt.Sprintf("%s <- %s ? %s : %s", o.Lhs, o.Cond, o.TrueValue, o.FalseValue)
	case Index:
		return fmt.Sprintf("%s <- %s%s", o.Lhs, o.Arg, o.Path)
	case Splice:
		return fmt.Sprintf("%s <- %s with %s = %s", o.Lhs, o.Orig, o.Path, o.Subst)
	case Concat:
		return fmt.Sprintf("%s <- {%s}", o.Lhs, slotList(o.Args))
	case Repeat:
		return fmt.Sprintf("%s <- [%s; %d]", o.Lhs, o.Value, o.Len)
	case Struct:
		parts := fieldList(o.Fields)
		if !o.Rest.IsNone() {
			parts = append(parts, ".."+o.Rest.String())
		}
		return fmt.Sprintf("%s <- %s {%s}", o.Lhs, o.Template.Kind, strings.Join(parts, ", "))
	case Tuple:
		return fmt.Sprintf("%s <- (%s)", o.Lhs, slotList(o.Fields))
	case Array:
		return fmt.Sprintf("%s <- [%s]", o.Lhs, slotList(o.Elements))
	case Enum:
		return fmt.Sprintf("%s <- %s {%s}", o.Lhs, o.Variant, strings.Join(fieldList(o.Fields), ", "))
	case Case:
		rows := make([]string, len(o.Table))
		for i, e := range o.Table {
			key := "_"
			if !e.Arg.Wild {
				key = e.Arg.Literal.String()
			}
			rows[i] = key + " => " + e.Value.String()
		}
		return fmt.Sprintf("%s <- case %s {%s}", o.Lhs, o.Discriminant, strings.Join(rows, ", "))
	case Exec:
		return fmt.Sprintf("%s <- f%d(%s)", o.Lhs, o.ID, slotList(o.Args))
	case AsBits:
		return fmt.Sprintf("%s <- %s as b%d", o.Lhs, o.Arg, o.Len)
	case AsSigned:
		return fmt.Sprintf("%s <- %s as s%d", o.Lhs, o.Arg, o.Len)
	case Resize:
		return fmt.Sprintf("%s <- %s resize %d", o.Lhs, o.Arg, o.Len)
	case Retime:
		return fmt.Sprintf("%s <- %s retime %s", o.Lhs, o.Arg, o.Color)
	case Comment:
		return "// " + o.Text
	}
	return "???"
}

func slotList(ss []Slot) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

func fieldList(fs []FieldValue) []string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.Name + ": " + f.Value.String()
	}
	return parts
}
