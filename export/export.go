// Package export renders a dependency graph snapshot (or a restricted
// subgraph such as a cycle) into DOT or JSON, mirroring the node/edge
// intermediate-representation shape other exporters in this domain use
//.
package export

import (
	"fmt"

	"github.com/clgraph/clgraph/depgraph"
	"github.com/clgraph/clgraph/depgraph/view"
)

// GraphNode is one exported node: a stable ID plus display properties.
type GraphNode struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Kind       string                 `json:"kind"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// GraphEdge is one exported dependency arc.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the full exportable representation of a snapshot (or a
// restricted member/arc set, e.g. a single cycle subgraph).
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// FromSnapshot builds a Graph from every node and arc in s.
func FromSnapshot(s *view.Snapshot) *Graph {
	return FromSubset(s, allIndices(len(s.Nodes)), nil)
}

// FromSubset builds a Graph restricted to members (indices into
// s.Nodes) and, when succ is non-nil, restricted to exactly those arcs
// (as produced by algo.CycleSubgraph or algo.ImpliedBy) instead of
// s.Succ. Passing a nil succ uses every visible arc between kept nodes.
func FromSubset(s *view.Snapshot, members []int, succ map[int][]int) *Graph {
	keep := make(map[int]struct{}, len(members))
	for _, i := range members {
		keep[i] = struct{}{}
	}

	g := &Graph{}
	for _, i := range members {
		n := s.Nodes[i]
		g.Nodes = append(g.Nodes, graphNodeOf(n))
	}

	if succ != nil {
		for from, tos := range succ {
			for _, to := range tos {
				g.Edges = append(g.Edges, GraphEdge{Source: nodeID(s.Nodes[from]), Target: nodeID(s.Nodes[to])})
			}
		}
		return g
	}

	for _, i := range members {
		for _, j := range s.Succ[i] {
			if _, ok := keep[j]; !ok {
				continue
			}
			g.Edges = append(g.Edges, GraphEdge{Source: nodeID(s.Nodes[i]), Target: nodeID(s.Nodes[j])})
		}
	}
	return g
}

func graphNodeOf(n *depgraph.Node) GraphNode {
	return GraphNode{
		ID:   nodeID(n),
		Name: string(n.QualifiedName),
		Kind: n.Kind.String(),
		Properties: map[string]interface{}{
			"listMode": n.ListMode.String(),
			"hasMain":  n.HasMain,
		},
	}
}

func nodeID(n *depgraph.Node) string {
	return fmt.Sprintf("n%x", n.Hash)
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
