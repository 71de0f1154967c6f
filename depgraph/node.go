// Package depgraph implements the hierarchical dependency model: the tree
// of containers and class leaves, mutable collapse state, and the
// projection that computes visible successors/predecessors with respect
// to that state.
package depgraph

import (
	"sort"

	"github.com/clgraph/clgraph/name"
)

// Kind discriminates the two Node variants. A tagged sum is used instead
// of an interface hierarchy per the "dynamic dispatch over Node variants"
// design note: only a handful of operations differ by variant, so a
// Kind field plus a switch at each site reads clearer than polymorphism.
type Kind int

const (
	KindContainer Kind = iota
	KindClass
)

func (k Kind) String() string {
	if k == KindClass {
		return "class"
	}
	return "container"
}

// ListMode controls how a container's descendants project into the
// visible graph.
type ListMode int

const (
	Expanded ListMode = iota
	LeafsCollapsed
	Collapsed
)

func (m ListMode) String() string {
	switch m {
	case LeafsCollapsed:
		return "LEAFS_COLLAPSED"
	case Collapsed:
		return "COLLAPSED"
	default:
		return "EXPANDED"
	}
}

// Node is one unit of the hierarchy: a container (root, archive,
// directory, package, package-set) or a class leaf.
type Node struct {
	Parent     *Node
	SimpleName string
	Kind       Kind
	ListMode   ListMode

	// QualifiedName is cached at construction time: Parent's qualified
	// name joined with SimpleName; the root's is empty.
	QualifiedName name.Name

	// ClassName is the container-agnostic fully qualified class name
	// (e.g. "P.Q"), meaningful only for Kind == KindClass. It is what
	// classfile.ClassInfo.References entries refer to, since bytecode
	// has no notion of which classpath container a class came from;
	// resolving a raw reference means looking this up, not QualifiedName.
	ClassName name.Name

	// Hash is a stable, collision-resistant identifier derived from
	// QualifiedName, used by the export package to produce deterministic
	// node IDs without leaking punctuation-unsafe qualified names into
	// e.g. DOT output.
	Hash uint64

	// References holds the raw, unresolved target names a class leaf's
	// bytecode referenced; empty and meaningless for containers.
	References map[name.Name]struct{}

	// HasMain flags a class leaf carrying `public static void main(String[])`.
	HasMain bool

	// Annotations holds the fully qualified annotation type names applied
	// to a class leaf.
	Annotations map[name.Name]struct{}

	children    []*Node
	childByName map[string]*Node
}

// IsRoot reports whether n is the tree root (no parent).
func (n *Node) IsRoot() bool { return n.Parent == nil }

// IsClass reports whether n is a class leaf.
func (n *Node) IsClass() bool { return n.Kind == KindClass }

// Children returns n's children ordered by simple name, as required by
// the "child simple names are unique per parent" invariant making a
// stable iteration order meaningful.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Child looks up an immediate child by simple name.
func (n *Node) Child(simpleName string) (*Node, bool) {
	c, ok := n.childByName[simpleName]
	return c, ok
}

func (n *Node) addChild(child *Node) {
	if n.childByName == nil {
		n.childByName = make(map[string]*Node)
	}
	n.childByName[child.SimpleName] = child
	n.children = append(n.children, child)
	sort.Slice(n.children, func(i, j int) bool {
		return n.children[i].SimpleName < n.children[j].SimpleName
	})
}

func newNode(parent *Node, simpleName string, kind Kind) *Node {
	qn := name.Join(parentQualifiedName(parent), simpleName)
	return &Node{
		Parent:        parent,
		SimpleName:    simpleName,
		Kind:          kind,
		QualifiedName: qn,
		Hash:          computeHash(string(qn)),
	}
}

func parentQualifiedName(parent *Node) name.Name {
	if parent == nil {
		return ""
	}
	return parent.QualifiedName
}
