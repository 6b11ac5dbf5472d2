package ntl

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Printer writes NTL objects in a human-readable form.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new NTL printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintObject prints a complete object.
func (p *Printer) PrintObject(obj *Object) {
	fmt.Fprintf(p.w, "ntl %s {\n", obj.Name)

	for _, in := range obj.Inputs {
		fmt.Fprintf(p.w, "  input %s %s %s\n", in.Role, in.Name, wireList(in.Wires))
	}

	for _, id := range obj.Symbols.LiteralIDs() {
		fmt.Fprintf(p.w, "  l%d = %s\n", id, obj.Symbols.Literal(id))
	}

	for _, id := range obj.Symbols.RegisterIDs() {
		if n := obj.Symbols.Register(id).Name; n != "" {
			fmt.Fprintf(p.w, "  r%d // %s\n", id, n)
		}
	}

	for _, lop := range obj.Ops {
		fmt.Fprintf(p.w, "  %s\n", OpString(lop.Op))
	}

	fmt.Fprintf(p.w, "  output %s\n", wireList(obj.Outputs))
	fmt.Fprintln(p.w, "}")
}

// OpString formats a single opcode.
func OpString(op OpCode) string {
	switch o := op.(type) {
	case Assign:
		return fmt.Sprintf("%s <- %s", o.Lhs, o.Rhs)
	case Not:
		return fmt.Sprintf("%s <- !%s", o.Lhs, o.Arg)
	case Binary:
		return fmt.Sprintf("%s <- %s %s %s", o.Lhs, o.Arg1, o.Op, o.Arg2)
	case Vector:
		return fmt.Sprintf("%s <- %s %s %s%s", wireList(o.Lhs), wireList(o.Arg1), o.Op, wireList(o.Arg2), signedness(o.Signed))
	case Unary:
		return fmt.Sprintf("%s <- %s %s%s", wireList(o.Lhs), o.Op.Name(), wireList(o.Arg), signedness(o.Signed))
	case Select:
		return fmt.Sprintf("%s <- %s ? %s : %s", o.Lhs, o.Cond, o.TrueValue, o.FalseValue)
	case Case:
		rows := make([]string, len(o.Table))
		for i, e := range o.Table {
			key := "_"
			if !e.Arg.Wild {
				key = bitString(e.Arg.Key)
			}
			rows[i] = key + " => " + wireList(e.Value)
		}
		return fmt.Sprintf("%s <- case %s {%s}", wireList(o.Lhs), wireList(o.Discriminant), strings.Join(rows, ", "))
	case BlackBox:
		sync := ""
		if o.Synchronous {
			sync = " sync"
		}
		args := make([]string, len(o.Args))
		for i, a := range o.Args {
			args[i] = wireList(a)
		}
		return fmt.Sprintf("%s <- blackbox%s %s(%s)", wireList(o.Lhs), sync, o.Name, strings.Join(args, ", "))
	case Comment:
		return "// " + o.Text
	}
	return "???"
}

func signedness(signed bool) string {
	if signed {
		return " signed"
	}
	return ""
}

// bitString prints bits MSB first.
func bitString(bits []typedbits.Bit) string {
	var b strings.Builder
	for i := len(bits) - 1; i >= 0; i-- {
		b.WriteString(bits[i].String())
	}
	return b.String()
}

func wireList(ws []Wire) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = w.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
