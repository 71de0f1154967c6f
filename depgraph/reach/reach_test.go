package reach

import (
	"context"
	"testing"

	"github.com/clgraph/clgraph/depgraph"
	"github.com/clgraph/clgraph/name"
)

func refs(names ...string) map[name.Name]struct{} {
	out := make(map[name.Name]struct{}, len(names))
	for _, n := range names {
		out[name.Name(n)] = struct{}{}
	}
	return out
}

// buildAppClasspath builds:
//   dir:/app  -> Main (HasMain), which references Used
//                Used
//                Dead (referenced by nothing)
//   jar:old_jar -> Orphan (referenced by nothing, whole archive unreferenced)
func buildAppClasspath(t *testing.T) *depgraph.Tree {
	t.Helper()
	tree := depgraph.NewTree()
	add := func(container, path string, r map[name.Name]struct{}) *depgraph.Node {
		n, err := tree.AddClass(container, path, r)
		if err != nil {
			t.Fatalf("AddClass %s/%s: %v", container, path, err)
		}
		return n
	}
	main := add("dir:/app", "Main", refs("Used"))
	main.HasMain = true
	add("dir:/app", "Used", refs())
	add("dir:/app", "Dead", refs())
	add("jar:old_jar", "Orphan", refs())

	return tree
}

func TestDetectEntryPointsFindsMain(t *testing.T) {
	tree := buildAppClasspath(t)
	entries := DetectEntryPoints(tree, nil, nil)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry point, got %d", len(entries))
	}
	if entries[0].Reason != EntryMain {
		t.Errorf("expected EntryMain, got %v", entries[0].Reason)
	}
	if string(entries[0].Node.ClassName) != "Main" {
		t.Errorf("expected Main to be the entry point, got %s", entries[0].Node.ClassName)
	}
}

func TestUnreferencedClasses(t *testing.T) {
	tree := buildAppClasspath(t)
	entries := DetectEntryPoints(tree, nil, nil)
	unreferenced, err := UnreferencedClasses(context.Background(), tree, entries)
	if err != nil {
		t.Fatalf("UnreferencedClasses: %v", err)
	}
	names := make(map[string]bool, len(unreferenced))
	for _, n := range unreferenced {
		names[string(n.ClassName)] = true
	}
	if !names["Dead"] {
		t.Error("expected Dead to be reported unreferenced")
	}
	if !names["Orphan"] {
		t.Error("expected Orphan to be reported unreferenced")
	}
	if names["Main"] || names["Used"] {
		t.Errorf("did not expect Main or Used to be reported unreferenced: %v", names)
	}
}

func TestUnreferencedClassesIgnoresCollapseState(t *testing.T) {
	tree := buildAppClasspath(t)
	entries := DetectEntryPoints(tree, nil, nil)
	before, err := UnreferencedClasses(context.Background(), tree, entries)
	if err != nil {
		t.Fatalf("UnreferencedClasses: %v", err)
	}

	app, ok := tree.Find("dir:/app")
	if !ok {
		t.Fatal("expected dir:/app package")
	}
	if err := tree.SetListMode(app, depgraph.LeafsCollapsed); err != nil {
		t.Fatalf("SetListMode: %v", err)
	}

	after, err := UnreferencedClasses(context.Background(), tree, entries)
	if err != nil {
		t.Fatalf("UnreferencedClasses after collapse: %v", err)
	}

	nameSet := func(nodes []*depgraph.Node) map[string]bool {
		out := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			out[string(n.ClassName)] = true
		}
		return out
	}
	beforeNames, afterNames := nameSet(before), nameSet(after)
	if len(beforeNames) != len(afterNames) {
		t.Fatalf("collapsing dir:/app changed the unreferenced set: before %v, after %v", beforeNames, afterNames)
	}
	for n := range beforeNames {
		if !afterNames[n] {
			t.Errorf("collapsing dir:/app changed the unreferenced set: %s present before, absent after", n)
		}
	}
}

func TestUnreferencedArchives(t *testing.T) {
	tree := buildAppClasspath(t)
	entries := DetectEntryPoints(tree, nil, nil)
	archives, err := UnreferencedArchives(context.Background(), tree, entries)
	if err != nil {
		t.Fatalf("UnreferencedArchives: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("expected exactly one unreferenced archive, got %d", len(archives))
	}
	if string(archives[0].SimpleName) != "jar:old_jar" {
		t.Errorf("expected jar:old_jar to be reported, got %s", archives[0].SimpleName)
	}
}
