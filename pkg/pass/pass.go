// Package pass defines the pass protocol shared by every IR tier and the
// driver that runs an ordered list of passes to a fixed point.
//
// A pass consumes an object and returns the next one. The driver checks
// symbol table completeness after every single pass and compares the
// structural hash after every full sweep; the loop ends when a sweep leaves
// the hash unchanged.
package pass

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hdl/pkg/diag"
)

// DefaultMaxSweeps bounds every fixed-point loop unless configured otherwise.
const DefaultMaxSweeps = 64

// Object is what a pass operates on.
type Object interface {
	Hash() Digest
	CheckSymbols() error
	Dump() string
}

// Pass is a stateless rewrite or check of an object.
type Pass[T Object] interface {
	Run(T) (T, error)
	Description() string
}

// Func adapts a function to the Pass interface.
type Func[T Object] struct {
	Name string
	F    func(T) (T, error)
}

func (f Func[T]) Run(obj T) (T, error) { return f.F(obj) }
func (f Func[T]) Description() string  { return f.Name }

// Check adapts a function that only inspects an object.
func Check[T Object](name string, f func(T) error) Pass[T] {
	return Func[T]{Name: name, F: func(obj T) (T, error) {
		return obj, f(obj)
	}}
}

// Driver runs Passes in order until the object's hash stops changing.
type Driver[T Object] struct {
	Name      string
	Passes    []Pass[T]
	MaxSweeps int
}

// Run drives obj to a fixed point.
func (d Driver[T]) Run(ctx context.Context, obj T) (res T, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "pass loop", "tier", d.Name)
	defer tr.Finish("err", &err)

	limit := d.MaxSweeps
	if limit <= 0 {
		limit = DefaultMaxSweeps
	}

	if err = verify(obj, "input"); err != nil {
		return obj, err
	}

	prev := obj.Hash()

	for sweep := 1; ; sweep++ {
		if sweep > limit {
			return obj, diag.Internal(obj.Dump(), "%s pass loop did not reach a fixed point in %d sweeps", d.Name, limit)
		}

		obj, err = d.Sweep(ctx, obj)
		if err != nil {
			return obj, err
		}

		h := obj.Hash()

		tr.V("pass").Printw("sweep", "n", sweep, "hash", h.Short())

		if h == prev {
			tr.Printw("fixed point", "sweeps", sweep, "hash", h.Short())
			return obj, nil
		}

		prev = h
	}
}

// Sweep applies every pass once, in order.
func (d Driver[T]) Sweep(ctx context.Context, obj T) (T, error) {
	return Apply(ctx, obj, d.Passes...)
}

// Apply runs passes once each, checking symbol completeness after each.
func Apply[T Object](ctx context.Context, obj T, passes ...Pass[T]) (T, error) {
	tr := tlog.SpanFromContext(ctx)

	for _, p := range passes {
		next, err := p.Run(obj)
		if err != nil {
			return obj, errors.Wrap(err, "%s", p.Description())
		}

		if err := verify(next, p.Description()); err != nil {
			return next, err
		}

		if tr.If("dump_passes") {
			tr.Printw("after pass", "pass", p.Description(), "dump", next.Dump())
		}

		obj = next
	}

	return obj, nil
}

func verify(obj Object, after string) error {
	err := obj.CheckSymbols()
	if err == nil {
		return nil
	}

	return diag.Internal(obj.Dump(), "symbol table incomplete after %s: %v", after, err)
}
