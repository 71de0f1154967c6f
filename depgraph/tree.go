package depgraph

import (
	"strings"

	"github.com/clgraph/clgraph/name"
)

// Tree is the full hierarchy of containers and class leaves built from
// one classpath enumeration, plus the mutable collapse state projected
// over it.
//
// Raw arcs (Node.References) and tree structure never change after
// AddClass; only ListMode assignments mutate the tree, and only the
// projection (rep, VisibleSuccessors, VisiblePredecessors) reads them.
type Tree struct {
	Root *Node

	// epoch counts ListMode mutations; callers that cache a projection
	// (such as view.Snapshot) compare it to know when to recompute.
	epoch int

	// classIndex resolves a raw, container-agnostic class name (as found
	// in another class's References) to the node holding that class.
	classIndex map[name.Name]*Node
	classNodes []*Node
}

// NewTree creates an empty tree with an EXPANDED root container.
func NewTree() *Tree {
	root := &Node{Kind: KindContainer, ListMode: Expanded}
	return &Tree{
		Root:       root,
		classIndex: make(map[name.Name]*Node),
	}
}

// Epoch returns the current collapse-state generation counter.
func (t *Tree) Epoch() int { return t.epoch }

// ClassNodes returns every class leaf in the tree, in insertion order,
// regardless of the current collapse state.
func (t *Tree) ClassNodes() []*Node {
	out := make([]*Node, len(t.classNodes))
	copy(out, t.classNodes)
	return out
}

// AddClass inserts a class leaf found at classRelativePath (a
// "/"-separated path, as produced by classpath.Entry.RelativePath) within
// containerID (the container's display name, e.g. "dir:/home/user/project"
// or "jar:guava_jar"). Intermediate package containers are created as
// needed. references holds the raw, unresolved names the class's
// bytecode referenced.
func (t *Tree) AddClass(containerID, classRelativePath string, references map[name.Name]struct{}) (*Node, error) {
	segments := append([]string{containerID}, splitRelativePath(classRelativePath)...)
	if len(segments) < 2 {
		return nil, &ConflictingNodeKindError{QualifiedName: classRelativePath}
	}

	parent := t.Root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := parent.Child(seg)
		if !ok {
			child = newNode(parent, seg, KindContainer)
			child.ListMode = Expanded
			parent.addChild(child)
		} else if child.Kind != KindContainer {
			return nil, &ConflictingNodeKindError{QualifiedName: string(child.QualifiedName)}
		}
		parent = child
	}

	leafName := segments[len(segments)-1]
	if existing, ok := parent.Child(leafName); ok {
		return nil, &DuplicateClassError{QualifiedName: string(existing.QualifiedName)}
	}

	leaf := newNode(parent, leafName, KindClass)
	leaf.References = references
	leaf.ClassName = name.Name(strings.Join(splitRelativePath(classRelativePath), name.Separator))
	parent.addChild(leaf)

	// First occurrence of a class name wins, mirroring classloader
	// shadowing order: earlier classpath entries take precedence.
	if _, exists := t.classIndex[leaf.ClassName]; !exists {
		t.classIndex[leaf.ClassName] = leaf
	}
	t.classNodes = append(t.classNodes, leaf)
	return leaf, nil
}

func splitRelativePath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Find looks up a node by its dotted qualified name.
func (t *Tree) Find(qualified name.Name) (*Node, bool) {
	if qualified == "" {
		return t.Root, true
	}
	node := t.Root
	for _, seg := range name.Split(qualified) {
		child, ok := node.Child(seg)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// SetListMode changes n's projection mode. Setting COLLAPSED on the root
// is rejected: the root has no parent to fold its descendants into.
func (t *Tree) SetListMode(n *Node, mode ListMode) error {
	if n.IsRoot() && mode == Collapsed {
		return &InvalidCollapseError{Mode: mode}
	}
	n.ListMode = mode
	t.epoch++
	return nil
}

// WalkSubTree visits n and its visible descendants in pre-order,
// respecting collapse state: a COLLAPSED node's children are not
// visited, and a LEAFS_COLLAPSED node's class-leaf children are skipped.
// Traversal of a branch stops if visit returns false for it.
func (t *Tree) WalkSubTree(n *Node, visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	if n.ListMode == Collapsed {
		return
	}
	for _, child := range n.Children() {
		if n.ListMode == LeafsCollapsed && child.Kind == KindClass {
			continue
		}
		t.WalkSubTree(child, visit)
	}
}

// rep computes n's visible representative: the outermost ancestor whose
// collapse state subsumes n, or n itself if no ancestor does.
//
// Among ancestors a with ListMode == COLLAPSED, the outermost (closest
// to root) one is chosen: since that ancestor's own rep is itself (no
// shallower ancestor collapses it, by definition of "outermost"), this
// keeps rep(rep(n)) == rep(n). LEAFS_COLLAPSED only ever folds its
// direct class-leaf children, so it is checked only against n's
// immediate parent.
func rep(n *Node) *Node {
	var chain []*Node
	for a := n.Parent; a != nil; a = a.Parent {
		chain = append(chain, a)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].ListMode == Collapsed {
			return chain[i]
		}
	}
	if n.Parent != nil && n.Parent.ListMode == LeafsCollapsed && n.Kind == KindClass {
		return n.Parent
	}
	return n
}

// Rep exposes rep for callers outside the package (the indexed view and
// the reachability checker both need it).
func Rep(n *Node) *Node { return rep(n) }

func isDescendant(ancestor, n *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func classLeavesInSubtree(n *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.Kind == KindClass {
			out = append(out, cur)
			return
		}
		for _, c := range cur.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

// resolvedRefs returns the class nodes that c's raw references resolve
// to within this tree; names with no matching class are discarded, per
// the "unresolved references are dropped" rule.
func (t *Tree) resolvedRefs(c *Node) []*Node {
	var out []*Node
	for ref := range c.References {
		if target, ok := t.classIndex[ref]; ok {
			out = append(out, target)
		}
	}
	return out
}

// ClassSuccessors returns the class leaves that c directly references,
// excluding c itself, ignoring collapse state entirely. This is the
// full class-leaf granularity graph that reachability (depgraph/reach)
// runs over, since a SetListMode projection used for display must never
// change which classes are found unreferenced.
func (t *Tree) ClassSuccessors(c *Node) []*Node {
	seen := make(map[*Node]struct{})
	var out []*Node
	for _, target := range t.resolvedRefs(c) {
		if target == c {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// VisibleSuccessors returns the set of representative nodes that v's
// subtree depends on, excluding v itself (self-loops are suppressed).
func (t *Tree) VisibleSuccessors(v *Node) []*Node {
	seen := make(map[*Node]struct{})
	for _, c := range classLeavesInSubtree(v) {
		for _, target := range t.resolvedRefs(c) {
			r := rep(target)
			if r == v {
				continue
			}
			seen[r] = struct{}{}
		}
	}
	return nodeSetToSlice(seen)
}

// VisiblePredecessors returns the set of representative nodes that
// depend on something within v's subtree, excluding v itself.
func (t *Tree) VisiblePredecessors(v *Node) []*Node {
	seen := make(map[*Node]struct{})
	for _, c := range t.classNodes {
		for _, target := range t.resolvedRefs(c) {
			if !isDescendant(v, target) {
				continue
			}
			r := rep(c)
			if r == v {
				continue
			}
			seen[r] = struct{}{}
		}
	}
	return nodeSetToSlice(seen)
}

// ReasonPair is one concrete class-to-class arc explaining why a
// depends on b.
type ReasonPair struct {
	From *Node
	To   *Node
}

// DependencyReason returns every concrete class-leaf arc from a's
// subtree into b's subtree; empty when a does not depend on b.
func (t *Tree) DependencyReason(a, b *Node) []ReasonPair {
	var out []ReasonPair
	for _, c := range classLeavesInSubtree(a) {
		for _, target := range t.resolvedRefs(c) {
			if isDescendant(b, target) {
				out = append(out, ReasonPair{From: c, To: target})
			}
		}
	}
	return out
}

func nodeSetToSlice(set map[*Node]struct{}) []*Node {
	out := make([]*Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}
