// Package view computes the flat, indexed projection of a depgraph.Tree
// used by graph algorithms: an ordered node list plus adjacency indices,
// recomputed only when the tree's collapse state has actually changed
//.
package view

import (
	"sort"

	"github.com/clgraph/clgraph/depgraph"
)

// Snapshot is an immutable, indexed view of every currently-visible
// representative node and the visible arcs between them.
type Snapshot struct {
	Nodes []*depgraph.Node
	// Succ[i] holds the indices (into Nodes) of i's visible successors,
	// de-duplicated and self-loop free.
	Succ [][]int
	// Pred is the reverse of Succ, provided so algorithms that need
	// backward traversal (reachability, implied-by) don't recompute it.
	Pred [][]int

	index map[*depgraph.Node]int
	epoch int
}

// IndexOf returns n's position in Nodes, or -1 if n is not a node of
// this snapshot (e.g. it was collapsed away).
func (s *Snapshot) IndexOf(n *depgraph.Node) int {
	if i, ok := s.index[n]; ok {
		return i
	}
	return -1
}

// Build computes a fresh Snapshot from the representative image of every
// class leaf in tree: the visible node set is {depgraph.Rep(leaf) : leaf
// is a class}, a genuine partition of the classes, not every node for
// which Rep(n) == n (which would also admit untouched container nodes
// that merely happen to represent only themselves).
func Build(tree *depgraph.Tree) *Snapshot {
	seen := make(map[*depgraph.Node]struct{})
	var visible []*depgraph.Node
	for _, leaf := range tree.ClassNodes() {
		r := depgraph.Rep(leaf)
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			visible = append(visible, r)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].QualifiedName < visible[j].QualifiedName
	})

	index := make(map[*depgraph.Node]int, len(visible))
	for i, n := range visible {
		index[n] = i
	}

	succ := make([][]int, len(visible))
	predSet := make([]map[int]struct{}, len(visible))
	for i := range predSet {
		predSet[i] = make(map[int]struct{})
	}

	for i, n := range visible {
		seen := make(map[int]struct{})
		for _, target := range tree.VisibleSuccessors(n) {
			j, ok := index[target]
			if !ok || j == i {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			succ[i] = append(succ[i], j)
			predSet[j][i] = struct{}{}
		}
		sort.Ints(succ[i])
	}

	pred := make([][]int, len(visible))
	for i, set := range predSet {
		for j := range set {
			pred[i] = append(pred[i], j)
		}
		sort.Ints(pred[i])
	}

	return &Snapshot{
		Nodes: visible,
		Succ:  succ,
		Pred:  pred,
		index: index,
		epoch: tree.Epoch(),
	}
}

// BuildExpanded computes a Snapshot at class-leaf granularity, ignoring
// the tree's collapse state entirely: every class leaf is its own node,
// and arcs are the raw resolved references between them rather than the
// rep-folded arcs Build produces. depgraph/reach uses this so that
// reachability answers never change just because a caller collapsed a
// package for display purposes.
func BuildExpanded(tree *depgraph.Tree) *Snapshot {
	visible := tree.ClassNodes()
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].QualifiedName < visible[j].QualifiedName
	})

	index := make(map[*depgraph.Node]int, len(visible))
	for i, n := range visible {
		index[n] = i
	}

	succ := make([][]int, len(visible))
	predSet := make([]map[int]struct{}, len(visible))
	for i := range predSet {
		predSet[i] = make(map[int]struct{})
	}

	for i, n := range visible {
		for _, target := range tree.ClassSuccessors(n) {
			j, ok := index[target]
			if !ok {
				continue
			}
			succ[i] = append(succ[i], j)
			predSet[j][i] = struct{}{}
		}
		sort.Ints(succ[i])
	}

	pred := make([][]int, len(visible))
	for i, set := range predSet {
		for j := range set {
			pred[i] = append(pred[i], j)
		}
		sort.Ints(pred[i])
	}

	return &Snapshot{
		Nodes: visible,
		Succ:  succ,
		Pred:  pred,
		index: index,
		epoch: tree.Epoch(),
	}
}

// Stale reports whether tree's collapse state has changed since s was
// built, meaning a cached Snapshot should be discarded and rebuilt.
func (s *Snapshot) Stale(tree *depgraph.Tree) bool {
	return s.epoch != tree.Epoch()
}

// CachedBuild returns cached if it is still fresh for tree, or builds
// and returns a new Snapshot otherwise. Callers that hold a long-lived
// *Snapshot pointer should replace it with the (possibly identical)
// returned value.
func CachedBuild(tree *depgraph.Tree, cached *Snapshot) *Snapshot {
	if cached != nil && !cached.Stale(tree) {
		return cached
	}
	return Build(tree)
}
