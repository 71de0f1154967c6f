// Package reach implements the reference/reachability checker: finding
// class leaves and whole containers nothing on the classpath refers to,
// anchored at a set of entry points.
package reach

import (
	"context"

	"github.com/clgraph/clgraph/depgraph"
	"github.com/clgraph/clgraph/depgraph/algo"
	"github.com/clgraph/clgraph/depgraph/view"
	"github.com/clgraph/clgraph/name"
)

// EntryPoint describes why a class is treated as a root for
// reachability purposes rather than something that must itself be
// referenced to be considered live.
type EntryPoint struct {
	Node   *depgraph.Node
	Reason EntryReason
}

// EntryReason records which rule made a class an entry point.
type EntryReason int

const (
	// EntryExplicit marks a class named explicitly by the caller (a
	// known application entry class, e.g. passed on the command line).
	EntryExplicit EntryReason = iota
	// EntryMain marks a class carrying `public static void main(String[])`.
	EntryMain
	// EntryAnnotated marks a class carrying one of the configured
	// marker annotations (e.g. a framework's @Component, @Test).
	EntryAnnotated
)

// DetectEntryPoints walks every class leaf in tree and returns those
// that qualify as an entry point: explicitly named, or carrying a main
// method, or carrying one of markerAnnotations.
func DetectEntryPoints(tree *depgraph.Tree, explicit map[name.Name]struct{}, markerAnnotations map[name.Name]struct{}) []EntryPoint {
	var out []EntryPoint
	tree.WalkSubTree(tree.Root, func(n *depgraph.Node) bool {
		if n.Kind != depgraph.KindClass {
			return true
		}
		if _, ok := explicit[n.ClassName]; ok {
			out = append(out, EntryPoint{Node: n, Reason: EntryExplicit})
			return true
		}
		if n.HasMain {
			out = append(out, EntryPoint{Node: n, Reason: EntryMain})
			return true
		}
		for ann := range n.Annotations {
			if _, ok := markerAnnotations[ann]; ok {
				out = append(out, EntryPoint{Node: n, Reason: EntryAnnotated})
				break
			}
		}
		return true
	})
	return out
}

// UnreferencedClasses returns every class leaf in tree that is not
// forward-reachable (i.e. not depended on, directly or transitively)
// from any of the given entry points, and is not itself an entry point.
// Reachability always runs over the full class-leaf graph, independent
// of tree's current collapse state: collapsing a package for display
// must never change which classes are reported unreferenced.
func UnreferencedClasses(ctx context.Context, tree *depgraph.Tree, entries []EntryPoint) ([]*depgraph.Node, error) {
	s := view.BuildExpanded(tree)

	entryIdx := make([]int, 0, len(entries))
	entrySet := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if i := s.IndexOf(e.Node); i >= 0 {
			entryIdx = append(entryIdx, i)
			entrySet[i] = struct{}{}
		}
	}

	reachable, err := algo.ReachableFrom(ctx, s, entryIdx, false)
	if err != nil {
		return nil, err
	}

	var out []*depgraph.Node
	for i, n := range s.Nodes {
		if _, isEntry := entrySet[i]; isEntry {
			continue
		}
		if _, ok := reachable[i]; ok {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// UnreferencedArchives returns every top-level archive/directory
// container (a direct child of the tree root) that holds at least one
// class and none that is reachable from the entry points (entry points
// count as reachable). A container qualifies only when ALL of its class leaves are
// absent from the reachable set. Like UnreferencedClasses, this always
// runs over the full class-leaf graph regardless of collapse state.
func UnreferencedArchives(ctx context.Context, tree *depgraph.Tree, entries []EntryPoint) ([]*depgraph.Node, error) {
	s := view.BuildExpanded(tree)

	entryIdx := make([]int, 0, len(entries))
	for _, e := range entries {
		if i := s.IndexOf(e.Node); i >= 0 {
			entryIdx = append(entryIdx, i)
		}
	}
	reachable, err := algo.ReachableFrom(ctx, s, entryIdx, false)
	if err != nil {
		return nil, err
	}

	var out []*depgraph.Node
	for _, container := range tree.Root.Children() {
		if container.Kind != depgraph.KindContainer {
			continue
		}
		if containerIsUnreferenced(container, s, reachable) {
			out = append(out, container)
		}
	}
	return out, nil
}

func containerIsUnreferenced(container *depgraph.Node, s *view.Snapshot, reachable map[int]struct{}) bool {
	any := false
	all := true
	var walk func(*depgraph.Node)
	walk = func(n *depgraph.Node) {
		if n.Kind == depgraph.KindClass {
			any = true
			if i := s.IndexOf(n); i >= 0 {
				if _, ok := reachable[i]; ok {
					all = false
				}
			}
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(container)
	return any && all
}
