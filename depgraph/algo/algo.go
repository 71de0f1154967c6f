// Package algo implements the graph algorithms that run over a
// depgraph/view.Snapshot: strongly connected components, cycle
// subgraphs, transitive closure, reachability, edge density, and
// implied-by restriction
//
// TarjanSCC, CycleSubgraph, TransitiveClosure and ReachableFrom take a
// context.Context and check it once per outer loop iteration, so a
// caller can cancel an analysis over a very large classpath without the
// algorithm running to completion first. EdgeDensity and ImpliedBy are
// single passes over the snapshot and take no context.
package algo

import (
	"context"
	"errors"
	"sort"

	"github.com/clgraph/clgraph/depgraph/view"
)

// ErrCancelled is returned (wrapping ctx.Err()) when an algorithm
// notices its context was cancelled before finishing.
var ErrCancelled = errors.New("depgraph/algo: cancelled")

// EmptyGraphDensityError reports that EdgeDensity was asked to compute
// a density for a snapshot with fewer than two nodes, for which the
// metric is undefined (there is no pair to divide by).
type EmptyGraphDensityError struct {
	NodeCount int
}

func (e *EmptyGraphDensityError) Error() string {
	return "depgraph/algo: edge density undefined for graphs with fewer than two nodes"
}

// SCC is one strongly connected component: the indices (into the
// Snapshot's Nodes slice) of its members, ascending. Every node appears
// in exactly one SCC; a node with no cyclic relationship to any other
// node is reported as a component of size 1.
type SCC struct {
	Members []int
}

// TarjanSCC finds every strongly connected component of s, including
// size-1 components, sorted by descending size with ties broken by the
// smallest member index: Tarjan's linear-time algorithm, run iteratively per component (index,
// lowlink, and an explicit stack) the way gopls's metadata graph builds
// its import-cycle detector.
func TarjanSCC(ctx context.Context, s *view.Snapshot) ([]SCC, error) {
	n := len(s.Nodes)
	const unvisited = -1
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	var stack []int
	var sccs []SCC
	next := 0

	type frame struct {
		v       int
		succIdx int
	}

	for start := 0; start < n; start++ {
		if err := ctx.Err(); err != nil {
			return nil, wrapCancelled(err)
		}
		if index[start] != unvisited {
			continue
		}

		var work []frame
		work = append(work, frame{v: start})
		index[start] = next
		lowlink[start] = next
		next++
		stack = append(stack, start)
		onStack[start] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.v

			advanced := false
			for top.succIdx < len(s.Succ[v]) {
				w := s.Succ[v][top.succIdx]
				top.succIdx++
				if index[w] == unvisited {
					index[w] = next
					lowlink[w] = next
					next++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{v: w})
					advanced = true
					break
				} else if onStack[w] {
					if index[w] < lowlink[v] {
						lowlink[v] = index[w]
					}
				}
			}
			if advanced {
				continue
			}

			// v has no more successors to explore; pop it.
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[v]
				}
			}

			if lowlink[v] == index[v] {
				var members []int
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					members = append(members, top)
					if top == v {
						break
					}
				}
				sort.Ints(members)
				sccs = append(sccs, SCC{Members: members})
			}
		}
	}

	sort.Slice(sccs, func(i, j int) bool {
		if len(sccs[i].Members) != len(sccs[j].Members) {
			return len(sccs[i].Members) > len(sccs[j].Members)
		}
		return sccs[i].Members[0] < sccs[j].Members[0]
	})
	return sccs, nil
}

// CycleSubgraph restricts s to exactly the arcs that lie within some
// nontrivial strongly connected component: the part of the graph that
// actually participates in a cycle.
func CycleSubgraph(ctx context.Context, s *view.Snapshot) (members []int, succ map[int][]int, err error) {
	sccs, err := TarjanSCC(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	inSCC := make(map[int]int, len(s.Nodes))
	for i, scc := range sccs {
		if len(scc.Members) < 2 {
			continue
		}
		for _, m := range scc.Members {
			inSCC[m] = i
		}
	}

	succ = make(map[int][]int)
	for v, comp := range inSCC {
		if err := ctx.Err(); err != nil {
			return nil, nil, wrapCancelled(err)
		}
		for _, w := range s.Succ[v] {
			if otherComp, ok := inSCC[w]; ok && otherComp == comp {
				succ[v] = append(succ[v], w)
			}
		}
	}
	for v := range inSCC {
		members = append(members, v)
	}
	sort.Ints(members)
	return members, succ, nil
}

// TransitiveClosure returns, for every node index, the set of node
// indices reachable by following one or more successor arcs.
func TransitiveClosure(ctx context.Context, s *view.Snapshot) ([]map[int]struct{}, error) {
	n := len(s.Nodes)
	closure := make([]map[int]struct{}, n)
	for start := 0; start < n; start++ {
		if err := ctx.Err(); err != nil {
			return nil, wrapCancelled(err)
		}
		closure[start] = bfs(s.Succ, start, n)
	}
	return closure, nil
}

// ReachableFrom returns the set of node indices reachable from any of
// entries by following successor arcs (forward) or predecessor arcs
// (backward), inclusive of the entries themselves.
func ReachableFrom(ctx context.Context, s *view.Snapshot, entries []int, backward bool) (map[int]struct{}, error) {
	adj := s.Succ
	if backward {
		adj = s.Pred
	}
	visited := make(map[int]struct{})
	var queue []int
	for _, e := range entries {
		if _, ok := visited[e]; !ok {
			visited[e] = struct{}{}
			queue = append(queue, e)
		}
	}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, wrapCancelled(err)
		}
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if _, ok := visited[w]; !ok {
				visited[w] = struct{}{}
				queue = append(queue, w)
			}
		}
	}
	return visited, nil
}

// EdgeDensity is the ratio of actual visible arcs to the number of
// possible ordered pairs of distinct nodes.
func EdgeDensity(s *view.Snapshot) (float64, error) {
	n := len(s.Nodes)
	if n < 2 {
		return 0, &EmptyGraphDensityError{NodeCount: n}
	}
	edges := 0
	for _, succ := range s.Succ {
		edges += len(succ)
	}
	possible := float64(n) * float64(n-1)
	return float64(edges) / possible, nil
}

// ImpliedBy restricts s to the subgraph induced by keep: nodes not in
// keep are dropped, and an arc survives only if both endpoints do. It
// is used to answer "what would this graph look like if arcs only
// implied by node X were kept" style queries.
func ImpliedBy(s *view.Snapshot, keep map[int]struct{}) (nodes []int, succ map[int][]int) {
	succ = make(map[int][]int)
	for v := range keep {
		for _, w := range s.Succ[v] {
			if _, ok := keep[w]; ok {
				succ[v] = append(succ[v], w)
			}
		}
		nodes = append(nodes, v)
	}
	sort.Ints(nodes)
	for v := range succ {
		sort.Ints(succ[v])
	}
	return nodes, succ
}

// bfs computes the set of nodes reachable from start via one or more
// arcs. start itself is included only if some cycle leads back to it.
func bfs(succ [][]int, start, n int) map[int]struct{} {
	visited := make(map[int]struct{}, n)
	var queue []int
	for _, w := range succ[start] {
		if _, ok := visited[w]; !ok {
			visited[w] = struct{}{}
			queue = append(queue, w)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range succ[v] {
			if _, ok := visited[w]; !ok {
				visited[w] = struct{}{}
				queue = append(queue, w)
			}
		}
	}
	return visited
}

func wrapCancelled(err error) error {
	return errors.Join(ErrCancelled, err)
}
