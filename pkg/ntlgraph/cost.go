package ntlgraph

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// Cost holds the per-opcode weights of the critical path analysis.
type Cost struct {
	Assign          int `yaml:"assign"`
	Not             int `yaml:"not"`
	Binary          int `yaml:"binary"`
	Select          int `yaml:"select"`
	VectorPerBit    int `yaml:"vector_per_bit"`
	MultiplyPerBit2 int `yaml:"multiply_per_bit2"`
	CasePerEntry    int `yaml:"case_per_entry"`
	BlackBox        int `yaml:"black_box"`
}

// DefaultCost makes copies free and every other gate cost one unit.
func DefaultCost() Cost {
	return Cost{
		Not:             1,
		Binary:          1,
		Select:          1,
		VectorPerBit:    1,
		MultiplyPerBit2: 1,
		CasePerEntry:    1,
		BlackBox:        1,
	}
}

// Of returns the cost of one opcode.
func (c Cost) Of(op ntl.OpCode) int {
	switch o := op.(type) {
	case ntl.Assign:
		return c.Assign
	case ntl.Not:
		return c.Not
	case ntl.Binary:
		return c.Binary
	case ntl.Select:
		return c.Select
	case ntl.Vector:
		w := len(o.Arg1)
		if o.Op == typedbits.Mul {
			return c.MultiplyPerBit2 * w * w
		}
		return c.VectorPerBit * w
	case ntl.Unary:
		return c.VectorPerBit * len(o.Arg)
	case ntl.Case:
		return c.CasePerEntry * len(o.Table)
	case ntl.BlackBox:
		return c.BlackBox
	}
	return 0
}

// Step is one node of a critical path.
type Step struct {
	Node  Node
	Cost  int
	Total int
	Span  diag.Span
	What  string
}

// Path is a chain of nodes from a source to a node of maximal accumulated
// cost.
type Path struct {
	Cost  int
	Steps []Step
}

func (p Path) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "critical path, cost %d:\n", p.Cost)
	for _, s := range p.Steps {
		fmt.Fprintf(&b, "  %4d +%-3d %-12s %s  %s\n", s.Total, s.Cost, s.Node, s.Span, s.What)
	}
	return b.String()
}

// CriticalPaths computes the maximum accumulated cost reaching every node in
// one topological traversal and backtracks up to n of the nodes tied at the
// global maximum, always following the most expensive incoming edge.
func CriticalPaths(obj *ntl.Object, g *Graph, cost Cost, n int) ([]Path, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	own := func(nd Node) int {
		if nd.Kind == Op {
			return cost.Of(obj.Ops[nd.Index].Op)
		}
		return 0
	}

	dist := make(map[Node]int, len(order))
	best := make(map[Node]Node, len(order))
	top := 0

	for _, nd := range order {
		d := 0
		for i, p := range g.Preds[nd] {
			if i == 0 || dist[p] > d {
				d = dist[p]
				best[nd] = p
			}
		}
		dist[nd] = d + own(nd)
		if dist[nd] > top {
			top = dist[nd]
		}
	}

	var paths []Path
	for _, nd := range order {
		if len(paths) >= n {
			break
		}
		if dist[nd] != top {
			continue
		}

		var steps []Step
		for cur := nd; ; {
			steps = append(steps, Step{Node: cur, Cost: own(cur), Total: dist[cur], Span: g.Spans[cur], What: describe(obj, cur)})
			p, ok := best[cur]
			if !ok {
				break
			}
			cur = p
		}
		for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
			steps[i], steps[j] = steps[j], steps[i]
		}

		paths = append(paths, Path{Cost: top, Steps: steps})
	}

	return paths, nil
}

func describe(obj *ntl.Object, n Node) string {
	switch n.Kind {
	case Op, BlackBoxState:
		return ntl.OpString(obj.Ops[n.Index].Op)
	}
	return obj.Inputs[n.Index].Name
}
