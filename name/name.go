// Package name implements the dot-separated qualified-name model used
// throughout the dependency graph: splitting, joining, and computing a
// name relative to an ancestor.
package name

import "strings"

// Separator is the qualified-name segment separator.
const Separator = "."

// Name is a non-empty sequence of simple-name segments separated by ".".
// The zero value represents the root (empty) name.
type Name string

// Join appends a simple name segment to a qualified name. Joining onto
// the empty (root) name yields the segment unchanged.
func Join(qualified Name, simple string) Name {
	if qualified == "" {
		return Name(simple)
	}
	if simple == "" {
		return qualified
	}
	return qualified + Separator + Name(simple)
}

// Split breaks a qualified name into its ordered simple-name segments.
// The empty name splits into an empty slice.
func Split(n Name) []string {
	if n == "" {
		return nil
	}
	return strings.Split(string(n), Separator)
}

// FromSegments rebuilds a qualified name from ordered simple-name segments.
func FromSegments(segments []string) Name {
	return Name(strings.Join(segments, Separator))
}

// Simple returns the last segment of a qualified name, or "" for the root.
func Simple(n Name) string {
	segments := Split(n)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Parent returns the qualified name with its last segment removed, or ""
// when n is already a single segment or the root.
func Parent(n Name) Name {
	segments := Split(n)
	if len(segments) <= 1 {
		return ""
	}
	return FromSegments(segments[:len(segments)-1])
}

// RelativeTo returns n expressed relative to ancestor: the trailing
// segments of n that follow ancestor's segments. ok is false when
// ancestor is not a proper (or equal) prefix of n.
func RelativeTo(n, ancestor Name) (relative Name, ok bool) {
	if ancestor == "" {
		return n, true
	}
	nSegs := Split(n)
	aSegs := Split(ancestor)
	if len(aSegs) > len(nSegs) {
		return "", false
	}
	for i, seg := range aSegs {
		if nSegs[i] != seg {
			return "", false
		}
	}
	return FromSegments(nSegs[len(aSegs):]), true
}

// IsAncestor reports whether ancestor is a proper or equal prefix of n.
func IsAncestor(ancestor, n Name) bool {
	_, ok := RelativeTo(n, ancestor)
	return ok
}

// Internal converts an internal JVM binary-name form (slash separated,
// e.g. "java/lang/Object") to a dotted qualified Name.
func Internal(internalForm string) Name {
	return Name(strings.ReplaceAll(internalForm, "/", Separator))
}
