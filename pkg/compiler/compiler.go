// Package compiler drives one kernel through every tier: RHIF optimization
// and checks, lowering to RTL and its optimization, bit-blasting to NTL and
// its optimization, and finally the critical path analysis.
package compiler

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/ntlgen"
	"github.com/raymyers/ralph-hdl/pkg/ntlgraph"
	"github.com/raymyers/ralph-hdl/pkg/ntlopt"
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/rhifcheck"
	"github.com/raymyers/ralph-hdl/pkg/rhifopt"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
	"github.com/raymyers/ralph-hdl/pkg/rtlgen"
	"github.com/raymyers/ralph-hdl/pkg/rtlopt"
)

type (
	// Resolver looks up already compiled kernels by name. Returned objects
	// are shared and must not be modified.
	Resolver interface {
		Resolve(name string) (*rhif.Object, bool)
	}

	// Siblings is the cache of compiled kernels that later compiles call
	// into. Safe for concurrent use.
	Siblings struct {
		mu   sync.RWMutex
		objs map[string]*rhif.Object
	}

	// Options configures Compile.
	Options struct {
		Config   Config
		Resolver Resolver
	}

	// Result holds the optimized object of every tier and the critical
	// path report.
	Result struct {
		RHIF  *rhif.Object
		RTL   *rtl.Object
		NTL   *ntl.Object
		Paths []ntlgraph.Path
	}

	// Outcome is the result of one kernel of a batch.
	Outcome struct {
		Name   string
		Result *Result
		Err    error
	}
)

// NewSiblings returns an empty cache.
func NewSiblings() *Siblings {
	return &Siblings{objs: make(map[string]*rhif.Object)}
}

// Add publishes a compiled kernel under its name.
func (s *Siblings) Add(obj *rhif.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objs[obj.Name] = obj
}

func (s *Siblings) Resolve(name string) (*rhif.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objs[name]
	return obj, ok
}

// Compile runs the whole pipeline on obj. The first error aborts the kernel
// and is returned as is.
func Compile(ctx context.Context, obj *rhif.Object, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile kernel", "name", obj.Name)
	defer tr.Finish("err", &err)

	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	obj, err = Resolve(obj, opts.Resolver)
	if err != nil {
		return nil, err
	}

	// Rewrites may drop or reorder the ops an error points at, so the input
	// is checked too. Literals are precast first so sentinel kinds agree.
	obj, err = pass.Apply(ctx, obj, append([]pass.Pass[*rhif.Object]{rhifopt.Precast()}, rhifcheck.Passes()...)...)
	if err != nil {
		return nil, err
	}

	res = &Result{}

	res.RHIF, err = rhifopt.Driver(cfg.MaxSweeps).Run(ctx, obj)
	if err != nil {
		return nil, err
	}

	if tr.If("dump_rhif") {
		tr.Printw("rhif", "dump", res.RHIF.Dump())
	}

	_, err = pass.Apply(ctx, res.RHIF, rhifcheck.Passes()...)
	if err != nil {
		return nil, err
	}

	lowered, err := rtlgen.Lower(res.RHIF)
	if err != nil {
		return nil, err
	}

	res.RTL, err = rtlopt.Driver(cfg.MaxSweeps).Run(ctx, lowered)
	if err != nil {
		return nil, err
	}

	if tr.If("dump_rtl") {
		tr.Printw("rtl", "dump", res.RTL.Dump())
	}

	blasted, err := ntlgen.Lower(res.RTL)
	if err != nil {
		return nil, err
	}

	res.NTL, err = ntlopt.Driver(cfg.MaxSweeps).Run(ctx, blasted)
	if err != nil {
		return nil, err
	}

	if tr.If("dump_ntl") {
		tr.Printw("ntl", "dump", res.NTL.Dump())
	}

	res.Paths, err = ntlgraph.CriticalPaths(res.NTL, ntlgraph.Build(res.NTL), cfg.Cost, cfg.CriticalPaths)
	if err != nil {
		return nil, err
	}

	tr.Printw("compiled", "ops", len(res.NTL.Ops), "inputs", len(res.NTL.Inputs), "outputs", len(res.NTL.Outputs))

	return res, nil
}

// Resolve binds every unresolved call of obj to a kernel from r. obj itself
// is returned when nothing needed binding.
func Resolve(obj *rhif.Object, r Resolver) (*rhif.Object, error) {
	var out *rhif.Object

	for _, id := range obj.ExternalIDs() {
		e := obj.Externals[id]
		if e.Object != nil || e.BlackBox != nil {
			continue
		}

		var sib *rhif.Object
		if r != nil {
			sib, _ = r.Resolve(e.Name)
		}
		if sib == nil {
			return nil, diag.Legality(callSpan(obj, id), "call to unknown kernel %s", e.Name)
		}

		if out == nil {
			out = obj.Clone()
		}

		e.Object = sib
		out.Externals[id] = e
	}

	if out == nil {
		return obj, nil
	}

	return out, nil
}

// InputKeys hashes every kernel of a batch before anything is compiled.
// A key covers the kernel, every kernel it calls and cfg, so it identifies
// the compile output.
func InputKeys(objs []*rhif.Object, cfg Config) map[string]pass.Digest {
	byName := make(map[string]*rhif.Object, len(objs))
	for _, obj := range objs {
		byName[obj.Name] = obj
	}

	fp := cfg.Fingerprint()
	keys := make(map[string]pass.Digest, len(objs))
	active := make(map[string]bool)

	var key func(obj *rhif.Object) pass.Digest
	key = func(obj *rhif.Object) pass.Digest {
		if k, ok := keys[obj.Name]; ok {
			return k
		}

		active[obj.Name] = true
		defer delete(active, obj.Name)

		h := pass.NewHasher("ralph-hdl/key/v1")
		d := obj.Hash()
		h.Bytes(d[:])

		for _, id := range obj.ExternalIDs() {
			e := obj.Externals[id]
			callee, inBatch := byName[e.Name]

			switch {
			case e.BlackBox != nil:
				h.Tag(2).String(e.BlackBox.Name).Bool(e.BlackBox.Synchronous)
			case e.Object != nil:
				h.Tag(1).String(e.Name)
				d := e.Object.Hash()
				h.Bytes(d[:])
			case inBatch && !active[e.Name]:
				k := key(callee)
				h.Tag(1).String(e.Name).Bytes(k[:])
			default:
				h.Tag(0).String(e.Name)
			}
		}

		h.Bytes(fp[:])

		k := h.Sum()
		keys[obj.Name] = k

		return k
	}

	for _, obj := range objs {
		key(obj)
	}

	return keys
}

// CompileAll compiles a batch of kernels, callees before callers, running
// up to jobs independent kernels at a time. A failing kernel fails its
// callers only. The returned error is reserved for a malformed batch.
func CompileAll(ctx context.Context, objs []*rhif.Object, cfg Config, jobs int) (_ []Outcome, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile batch", "kernels", len(objs), "jobs", jobs)
	defer tr.Finish("err", &err)

	index := make(map[string]int, len(objs))
	for i, obj := range objs {
		if _, dup := index[obj.Name]; dup {
			return nil, errors.New("kernel %s is defined twice", obj.Name)
		}
		index[obj.Name] = i
	}

	deps := make([][]int, len(objs))
	for i, obj := range objs {
		deps[i] = callees(obj, index)
	}

	levels, cyclic := schedule(deps)

	out := make([]Outcome, len(objs))
	for i, obj := range objs {
		out[i].Name = obj.Name
	}

	for _, i := range cyclic {
		obj := objs[i]
		out[i].Err = diag.Legality(callSpan(obj, firstCall(obj, index)), "kernel %s is on or behind a call cycle; recursive kernels cannot be synthesized", obj.Name)
	}

	if jobs < 1 {
		jobs = 1
	}

	siblings := NewSiblings()

	for n, level := range levels {
		tr.V("schedule").Printw("level", "n", n, "kernels", len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(jobs)

		for _, i := range level {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				for _, d := range deps[i] {
					if out[d].Err != nil {
						out[i].Err = errors.New("%s: callee %s failed", objs[i].Name, objs[d].Name)
						return nil
					}
				}

				res, err := Compile(gctx, objs[i], Options{Config: cfg, Resolver: siblings})
				if err != nil {
					out[i].Err = err
					return nil
				}

				out[i].Result = res
				siblings.Add(res.RHIF)

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// callees lists the batch indices of the kernels obj calls.
func callees(obj *rhif.Object, index map[string]int) []int {
	seen := make(map[int]bool)
	var r []int

	for _, id := range obj.ExternalIDs() {
		e := obj.Externals[id]
		if e.Object != nil || e.BlackBox != nil {
			continue
		}
		if j, ok := index[e.Name]; ok && !seen[j] {
			seen[j] = true
			r = append(r, j)
		}
	}

	sort.Ints(r)

	return r
}

// schedule groups kernels into levels whose members only call kernels of
// earlier levels. Kernels on or behind a call cycle are returned separately.
func schedule(deps [][]int) (levels [][]int, cyclic []int) {
	level := make([]int, len(deps))
	for i := range level {
		level[i] = -1
	}

	for placed := true; placed; {
		placed = false

	next:
		for i, ds := range deps {
			if level[i] >= 0 {
				continue
			}

			l := 0
			for _, d := range ds {
				if level[d] < 0 {
					continue next
				}
				if level[d]+1 > l {
					l = level[d] + 1
				}
			}

			level[i] = l
			placed = true
		}
	}

	for i, l := range level {
		if l < 0 {
			cyclic = append(cyclic, i)
			continue
		}
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], i)
	}

	return levels, cyclic
}

func firstCall(obj *rhif.Object, index map[string]int) rhif.FuncID {
	for _, id := range obj.ExternalIDs() {
		if _, ok := index[obj.Externals[id].Name]; ok {
			return id
		}
	}
	return -1
}

// callSpan is the span of the first call through id.
func callSpan(obj *rhif.Object, id rhif.FuncID) diag.Span {
	for _, lop := range obj.Ops {
		if e, ok := lop.Op.(rhif.Exec); ok && e.ID == id {
			return lop.Loc
		}
	}
	return diag.Span{}
}
