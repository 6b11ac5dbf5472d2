// Package ntlgraph builds the dependency graph of an NTL object and runs the
// analyses on it: combinational loop detection and critical path costing.
package ntlgraph

import (
	"fmt"
	"sort"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

// NodeKind tells what a node stands for.
type NodeKind int

const (
	Input NodeKind = iota
	Clock
	Reset
	Op
	// BlackBoxState is the output side of a synchronous black box. It has
	// no incoming edges.
	BlackBoxState
)

func (k NodeKind) String() string {
	switch k {
	case Input:
		return "input"
	case Clock:
		return "clock"
	case Reset:
		return "reset"
	case BlackBoxState:
		return "state"
	}
	return "op"
}

// Node is a source of wire values. Index is the input index for Input, Clock
// and Reset nodes and the opcode index otherwise.
type Node struct {
	Kind  NodeKind
	Index int
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%d)", n.Kind, n.Index)
}

// Graph has an edge from Y to X when opcode X reads a wire whose last writer
// in the object is Y. Clock and reset nodes have no edges.
type Graph struct {
	Nodes []Node
	Preds map[Node][]Node
	Succs map[Node][]Node
	Spans map[Node]diag.Span
}

// Build constructs the graph of obj.
func Build(obj *ntl.Object) *Graph {
	g := &Graph{
		Preds: make(map[Node][]Node),
		Succs: make(map[Node][]Node),
		Spans: make(map[Node]diag.Span),
	}

	writer := make(map[ntl.Wire]Node)

	for i, in := range obj.Inputs {
		n := Node{Kind: Input, Index: i}
		switch in.Role {
		case rhif.Clock:
			n.Kind = Clock
		case rhif.Reset:
			n.Kind = Reset
		}
		g.add(n, spanOf(obj, in.Wires))
		for _, w := range in.Wires {
			writer[w] = n
		}
	}

	for i, lop := range obj.Ops {
		n := Node{Kind: Op, Index: i}
		g.add(n, lop.Loc)

		if bb, ok := lop.Op.(ntl.BlackBox); ok && bb.Synchronous {
			n = Node{Kind: BlackBoxState, Index: i}
			g.add(n, lop.Loc)
		}
		for _, w := range ntl.Writes(lop.Op) {
			writer[w] = n
		}
	}

	for i, lop := range obj.Ops {
		n := Node{Kind: Op, Index: i}

		seen := make(map[Node]bool)
		for _, w := range ntl.Reads(lop.Op) {
			src, ok := writer[w]
			if !ok || src.Kind == Clock || src.Kind == Reset || seen[src] {
				continue
			}
			seen[src] = true
			g.Preds[n] = append(g.Preds[n], src)
			g.Succs[src] = append(g.Succs[src], n)
		}
	}

	return g
}

func (g *Graph) add(n Node, loc diag.Span) {
	g.Nodes = append(g.Nodes, n)
	g.Spans[n] = loc
}

func spanOf(obj *ntl.Object, ws []ntl.Wire) diag.Span {
	if len(ws) == 0 {
		return diag.Span{}
	}
	return obj.Span(ws[0])
}

// TopoOrder returns the nodes so that every node follows its predecessors.
// Nodes become ready in the order they were added. A cycle is a
// combinational loop and is reported as a legality error at the span of the
// first opcode on it.
func (g *Graph) TopoOrder() ([]Node, error) {
	indeg := make(map[Node]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indeg[n] = len(g.Preds[n])
	}

	pos := make(map[Node]int, len(g.Nodes))
	for i, n := range g.Nodes {
		pos[n] = i
	}

	var ready []Node
	for _, n := range g.Nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]Node, 0, len(g.Nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var next []Node
		for _, s := range g.Succs[n] {
			indeg[s]--
			if indeg[s] == 0 {
				next = append(next, s)
			}
		}
		sort.Slice(next, func(i, j int) bool { return pos[next[i]] < pos[next[j]] })
		ready = append(ready, next...)
	}

	if len(order) == len(g.Nodes) {
		return order, nil
	}

	var stuck []Node
	for _, n := range g.Nodes {
		if indeg[n] > 0 {
			stuck = append(stuck, n)
		}
	}
	return nil, diag.Legality(g.Spans[stuck[0]], "combinational loop: %d nodes cannot be ordered", len(stuck))
}
