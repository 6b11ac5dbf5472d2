package rtl

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// Printer writes RTL objects in a human-readable form.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new RTL printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintObject prints a complete object.
func (p *Printer) PrintObject(obj *Object) {
	fmt.Fprintf(p.w, "rtl %s {\n", obj.Name)

	for _, a := range obj.Arguments {
		fmt.Fprintf(p.w, "  arg %s %s\n", a.Role, symtab.Reg(a.Reg))
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
	case Assign:
		return fmt.Sprintf("%s <- %s", o.Lhs, o.Rhs)
	case Binary:
		return fmt.Sprintf("%s <- %s %s %s", o.Lhs, o.Arg1, o.Op, o.Arg2)
	case Unary:
		return fmt.Sprintf("%s <- %s(%s)", o.Lhs, o.Op, o.Arg1)
	case Select:
		return fmt.Sprintf("%s <- %s ? %s : %s", o.Lhs, o.Cond, o.TrueValue, o.FalseValue)
	case Index:
		return fmt.Sprintf("%s <- %s[%d..%d]", o.Lhs, o.Arg, o.Start, o.End)
	case Splice:
		return fmt.Sprintf("%s <- %s with [%d..%d] = %s", o.Lhs, o.Orig, o.Start, o.End, o.Value)
	case Concat:
		return fmt.Sprintf("%s <- {%s}", o.Lhs, operandList(o.Args))
	case Cast:
		return fmt.Sprintf("%s <- %s as %s %d", o.Lhs, o.Arg, o.Kind, o.Len)
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
	case BlackBox:
		sync := ""
		if o.Synchronous {
			sync = " sync"
		}
		return fmt.Sprintf("%s <- blackbox%s %s(%s)", o.Lhs, sync, o.Name, operandList(o.Args))
	case Comment:
		return "// " + o.Text
	}
	return "???"
}

func operandList(ss []Operand) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}
