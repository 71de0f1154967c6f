package depgraph

import "fmt"

// InvalidCollapseError reports an attempt to set COLLAPSED on the root
// node, which has no parent to roll its children up into.
type InvalidCollapseError struct {
	Mode ListMode
}

func (e *InvalidCollapseError) Error() string {
	return fmt.Sprintf("depgraph: root node cannot be set to %s", e.Mode)
}

// DuplicateClassError reports that AddClass was called twice for the
// same (container, relative path) pair.
type DuplicateClassError struct {
	QualifiedName string
}

func (e *DuplicateClassError) Error() string {
	return fmt.Sprintf("depgraph: class %s already present in tree", e.QualifiedName)
}

// ConflictingNodeKindError reports that a path already holds a node of
// the other kind: a class was added where a container path segment was
// expected, or vice versa.
type ConflictingNodeKindError struct {
	QualifiedName string
}

func (e *ConflictingNodeKindError) Error() string {
	return fmt.Sprintf("depgraph: %s is already a node of a conflicting kind", e.QualifiedName)
}
