// Package diag defines source spans and the error taxonomy shared by every
// tier of the pipeline.
//
// Four classes of error exist. Internal compiler errors (ICE) mean a pass
// broke an invariant the pipeline owns; they are always fatal and carry a
// dump of the offending object. Type, legality and clock errors are caused by
// the kernel being compiled and abort only that kernel.
package diag

import (
	"fmt"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

// Span is a byte range in a source file.
type Span struct {
	File  string
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d-%d", s.File, s.Start, s.End)
}

// Shorter returns whichever of a and b covers fewer bytes.
// A zero span never wins over a real one.
func Shorter(a, b Span) Span {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Len() < a.Len():
		return b
	}
	return a
}

// Class is the error taxonomy.
type Class int

const (
	ICE Class = iota
	TypeError
	LegalityError
	ClockError
)

func (c Class) String() string {
	names := []string{"internal compiler error", "type error", "legality error", "clock domain error"}
	if int(c) < len(names) {
		return names[c]
	}
	return "?"
}

// Label attaches a note to a span.
type Label struct {
	Span Span
	Note string
}

// Error is a structured compiler diagnostic.
type Error struct {
	Class   Class
	Message string
	Labels  []Label

	// ICE only
	Caller string
	Dump   string
}

func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s", e.Class, e.Message)

	for _, l := range e.Labels {
		if l.Note != "" {
			fmt.Fprintf(&b, "\n  --> %s: %s", l.Span, l.Note)
		} else {
			fmt.Fprintf(&b, "\n  --> %s", l.Span)
		}
	}

	if e.Caller != "" {
		fmt.Fprintf(&b, "\n  raised at %s", e.Caller)
	}

	return b.String()
}

// Spans returns the spans of all labels.
func (e *Error) Spans() []Span {
	r := make([]Span, len(e.Labels))
	for i, l := range e.Labels {
		r[i] = l.Span
	}
	return r
}

// Internal builds an ICE. dump is the textual form of the object involved,
// possibly empty.
func Internal(dump string, format string, args ...any) *Error {
	_, file, line := loc.Caller(1).NameFileLine()

	return &Error{
		Class:   ICE,
		Message: fmt.Sprintf(format, args...),
		Caller:  fmt.Sprintf("%s:%d", filepath.Base(file), line),
		Dump:    dump,
	}
}

// Type builds a type error reported at span.
func Type(span Span, format string, args ...any) *Error {
	return &Error{
		Class:   TypeError,
		Message: fmt.Sprintf(format, args...),
		Labels:  []Label{{Span: span}},
	}
}

// Legality builds a syntax/legality error reported at span.
func Legality(span Span, format string, args ...any) *Error {
	return &Error{
		Class:   LegalityError,
		Message: fmt.Sprintf(format, args...),
		Labels:  []Label{{Span: span}},
	}
}

// Clock builds a clock domain error naming both contributing spans.
func Clock(first, second Label, format string, args ...any) *Error {
	return &Error{
		Class:   ClockError,
		Message: fmt.Sprintf(format, args...),
		Labels:  []Label{first, second},
	}
}

// ClassOf returns the class of the first *Error in err's chain.
func ClassOf(err error) (Class, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Class, true
}

// IsICE reports whether err is, or wraps, an internal compiler error.
func IsICE(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ICE
}
