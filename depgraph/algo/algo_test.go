package algo

import (
	"context"
	"testing"

	"github.com/clgraph/clgraph/depgraph"
	"github.com/clgraph/clgraph/depgraph/view"
	"github.com/clgraph/clgraph/name"
)

func refs(names ...string) map[name.Name]struct{} {
	out := make(map[name.Name]struct{}, len(names))
	for _, n := range names {
		out[name.Name(n)] = struct{}{}
	}
	return out
}

// buildCyclicSnapshot builds A -> B -> C -> A (a 3-cycle) plus D, which
// depends on A but is not part of any cycle.
func buildCyclicSnapshot(t *testing.T) *view.Snapshot {
	t.Helper()
	tree := depgraph.NewTree()
	mustAdd := func(container, path string, r map[name.Name]struct{}) {
		if _, err := tree.AddClass(container, path, r); err != nil {
			t.Fatalf("AddClass %s/%s: %v", container, path, err)
		}
	}
	mustAdd("dir:/proj", "A", refs("B"))
	mustAdd("dir:/proj", "B", refs("C"))
	mustAdd("dir:/proj", "C", refs("A"))
	mustAdd("dir:/proj", "D", refs("A"))
	return view.Build(tree)
}

func findIndex(t *testing.T, s *view.Snapshot, qualified string) int {
	t.Helper()
	for i, n := range s.Nodes {
		if string(n.QualifiedName) == qualified {
			return i
		}
	}
	t.Fatalf("node %s not found in snapshot", qualified)
	return -1
}

func TestTarjanSCCFindsTheCycle(t *testing.T) {
	s := buildCyclicSnapshot(t)
	sccs, err := TarjanSCC(context.Background(), s)
	if err != nil {
		t.Fatalf("TarjanSCC: %v", err)
	}
	if len(sccs) != 2 {
		t.Fatalf("expected two SCCs (the 3-cycle, then D alone), got %d", len(sccs))
	}
	if len(sccs[0].Members) != 3 {
		t.Errorf("expected the cycle to have 3 members, got %d", len(sccs[0].Members))
	}
	d := findIndex(t, s, "dir:/proj.D")
	for _, m := range sccs[0].Members {
		if m == d {
			t.Errorf("did not expect D (not part of the cycle) in the SCC")
		}
	}
}

func TestCycleSubgraphOnlyKeepsCycleArcs(t *testing.T) {
	s := buildCyclicSnapshot(t)
	members, succ, err := CycleSubgraph(context.Background(), s)
	if err != nil {
		t.Fatalf("CycleSubgraph: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members in the cycle subgraph, got %d", len(members))
	}
	totalArcs := 0
	for _, ws := range succ {
		totalArcs += len(ws)
	}
	if totalArcs != 3 {
		t.Errorf("expected 3 arcs (the cycle itself), got %d", totalArcs)
	}
}

func TestTransitiveClosure(t *testing.T) {
	s := buildCyclicSnapshot(t)
	closure, err := TransitiveClosure(context.Background(), s)
	if err != nil {
		t.Fatalf("TransitiveClosure: %v", err)
	}
	a := findIndex(t, s, "dir:/proj.A")
	d := findIndex(t, s, "dir:/proj.D")
	// A is in a cycle, so it reaches everything in the cycle plus itself.
	if len(closure[a]) != 3 {
		t.Errorf("expected A to transitively reach 3 nodes, got %d", len(closure[a]))
	}
	// D reaches the whole cycle but nothing reaches back to D.
	if len(closure[d]) != 3 {
		t.Errorf("expected D to transitively reach 3 nodes, got %d", len(closure[d]))
	}
	if _, ok := closure[a][d]; ok {
		t.Error("did not expect A to reach D")
	}
}

func TestReachableFromForwardAndBackward(t *testing.T) {
	s := buildCyclicSnapshot(t)
	d := findIndex(t, s, "dir:/proj.D")

	forward, err := ReachableFrom(context.Background(), s, []int{d}, false)
	if err != nil {
		t.Fatalf("ReachableFrom forward: %v", err)
	}
	if len(forward) != 4 {
		t.Errorf("expected D plus the whole cycle to be forward-reachable, got %d", len(forward))
	}

	a := findIndex(t, s, "dir:/proj.A")
	backward, err := ReachableFrom(context.Background(), s, []int{a}, true)
	if err != nil {
		t.Fatalf("ReachableFrom backward: %v", err)
	}
	if _, ok := backward[d]; !ok {
		t.Error("expected D to be backward-reachable from A (D depends on A)")
	}
}

func TestEdgeDensityRejectsTinyGraphs(t *testing.T) {
	tree := depgraph.NewTree()
	if _, err := tree.AddClass("dir:/proj", "Solo", refs()); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	s := view.Build(tree)
	if _, err := EdgeDensity(s); err == nil {
		t.Fatal("expected EmptyGraphDensityError for a single-node graph")
	}
}

func TestEdgeDensityComputesRatio(t *testing.T) {
	s := buildCyclicSnapshot(t)
	density, err := EdgeDensity(s)
	if err != nil {
		t.Fatalf("EdgeDensity: %v", err)
	}
	n := len(s.Nodes)
	edges := 0
	for _, succ := range s.Succ {
		edges += len(succ)
	}
	want := float64(edges) / (float64(n) * float64(n-1))
	if density != want {
		t.Errorf("got density %v, want %v", density, want)
	}
	if edges != 4 {
		t.Errorf("expected 4 arcs (A->B, B->C, C->A, D->A), got %d", edges)
	}
}

func TestImpliedByRestrictsToKeptNodes(t *testing.T) {
	s := buildCyclicSnapshot(t)
	a := findIndex(t, s, "dir:/proj.A")
	b := findIndex(t, s, "dir:/proj.B")
	d := findIndex(t, s, "dir:/proj.D")

	keep := map[int]struct{}{a: {}, b: {}, d: {}}
	nodes, succ := ImpliedBy(s, keep)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 kept nodes, got %d", len(nodes))
	}
	// C is dropped, so A's arc to B survives but B's arc to C does not,
	// and D's arc to A survives.
	if len(succ[a]) != 1 || succ[a][0] != b {
		t.Errorf("expected A->B to survive, got %v", succ[a])
	}
	if len(succ[b]) != 0 {
		t.Errorf("expected B->C to be dropped since C is not kept, got %v", succ[b])
	}
	if len(succ[d]) != 1 || succ[d][0] != a {
		t.Errorf("expected D->A to survive, got %v", succ[d])
	}
}

func TestTarjanSCCHonorsCancellation(t *testing.T) {
	s := buildCyclicSnapshot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := TarjanSCC(ctx, s); err == nil {
		t.Fatal("expected TarjanSCC to report cancellation")
	}
}
