// Package engine wires classpath enumeration, bytecode extraction,
// filtering, and the dependency graph into the single entry point a
// caller uses to analyze a classpath.
package engine

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/clgraph/clgraph/classfile"
	"github.com/clgraph/clgraph/classpath"
	"github.com/clgraph/clgraph/depgraph"
	"github.com/clgraph/clgraph/depgraph/algo"
	"github.com/clgraph/clgraph/depgraph/reach"
	"github.com/clgraph/clgraph/depgraph/view"
	"github.com/clgraph/clgraph/filter"
	"github.com/clgraph/clgraph/internal/xlog"
	"github.com/clgraph/clgraph/name"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithFilter installs a pre-compiled Filter instead of filter.Default().
func WithFilter(f *filter.Filter) Option {
	return func(e *Engine) { e.filter = f }
}

// WithEntryClasses names classes that are always treated as entry
// points for reachability purposes, regardless of main-method or
// annotation detection.
func WithEntryClasses(classNames ...string) Option {
	return func(e *Engine) {
		for _, c := range classNames {
			e.explicitEntries[name.Name(c)] = struct{}{}
		}
	}
}

// WithMarkerAnnotations names fully qualified annotation types (e.g.
// "org.junit.Test") that make any class carrying them an entry point.
func WithMarkerAnnotations(annotationNames ...string) Option {
	return func(e *Engine) {
		for _, a := range annotationNames {
			e.markerAnnotations[name.Name(a)] = struct{}{}
		}
	}
}

// WithLogger overrides the engine's logger.
func WithLogger(l *xlog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine is the analysis façade: construct one with New, then call
// Analyze for each classpath to inspect.
type Engine struct {
	filter            *filter.Filter
	explicitEntries   map[name.Name]struct{}
	markerAnnotations map[name.Name]struct{}
	log               *xlog.Logger
}

// New builds an Engine, defaulting to filter.Default() and xlog.New(),
// which logs warnings and errors to standard error.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		explicitEntries:   make(map[name.Name]struct{}),
		markerAnnotations: make(map[name.Name]struct{}),
		log:               xlog.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.filter == nil {
		f, err := filter.Compile(filter.Default())
		if err != nil {
			return nil, &Error{Kind: ErrBadFilter, Err: err}
		}
		e.filter = f
	}
	return e, nil
}

// Result is one completed analysis of a classpath.
type Result struct {
	Tree    *depgraph.Tree
	Stats   *classpath.Stats
	Entries []reach.EntryPoint

	engine *Engine
	mu     sync.Mutex
	cached *view.Snapshot
}

// Snapshot returns the current indexed view of the result's tree,
// rebuilding it only if the tree's collapse state changed since the
// last call.
func (r *Result) Snapshot() *view.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = view.CachedBuild(r.Tree, r.cached)
	return r.cached
}

// SCCs returns every strongly connected component of the current
// snapshot, size-1 components included.
func (r *Result) SCCs(ctx context.Context) ([]algo.SCC, error) {
	sccs, err := algo.TarjanSCC(ctx, r.Snapshot())
	if err != nil {
		return nil, &Error{Kind: ErrCancelled, Err: err}
	}
	return sccs, nil
}

// UnreferencedClasses returns every class leaf unreachable from the
// result's detected entry points.
func (r *Result) UnreferencedClasses(ctx context.Context) ([]*depgraph.Node, error) {
	nodes, err := reach.UnreferencedClasses(ctx, r.Tree, r.Entries)
	if err != nil {
		return nil, &Error{Kind: ErrCancelled, Err: err}
	}
	return nodes, nil
}

// UnreferencedArchives returns every top-level container none of whose
// classes are reachable from the result's detected entry points.
func (r *Result) UnreferencedArchives(ctx context.Context) ([]*depgraph.Node, error) {
	nodes, err := reach.UnreferencedArchives(ctx, r.Tree, r.Entries)
	if err != nil {
		return nil, &Error{Kind: ErrCancelled, Err: err}
	}
	return nodes, nil
}

// SetListMode changes n's collapse projection; see depgraph.Tree.SetListMode.
func (r *Result) SetListMode(n *depgraph.Node, mode depgraph.ListMode) error {
	if err := r.Tree.SetListMode(n, mode); err != nil {
		return &Error{Kind: ErrInvalidCollapse, Err: err}
	}
	return nil
}

// Find looks up a node by its dotted qualified name.
func (r *Result) Find(qualified string) (*depgraph.Node, error) {
	n, ok := r.Tree.Find(name.Name(qualified))
	if !ok {
		return nil, &Error{Kind: ErrUnknownNode, Err: nil}
	}
	return n, nil
}

// Analyze enumerates classpathStr, extracts every class's bytecode
// references, and builds the dependency tree. Unreadable containers and
// malformed class files are reported as warnings (aggregated via
// multierr) rather than aborting the whole analysis; a caller that
// wants strict behavior can inspect the returned error even on success.
func (e *Engine) Analyze(ctx context.Context, classpathStr string) (*Result, error) {
	tree := depgraph.NewTree()
	var warnings error

	warn := func(err error) {
		e.log.Warn("classpath warning: %v", err)
		warnings = multierr.Append(warnings, err)
	}

	visit := func(ctx context.Context, entry classpath.Entry) error {
		rc, err := entry.Open()
		if err != nil {
			warn(err)
			return nil
		}
		defer rc.Close()

		info, err := classfile.Extract(rc)
		if err != nil {
			warn(&Error{Kind: ErrBadClassFile, Err: err})
			return nil
		}

		if e.filter.IsIgnoredClassName(info.Name) {
			return nil
		}

		filtered := make(map[name.Name]struct{}, len(info.References))
		for ref := range info.References {
			if e.filter.IsIgnoredClassName(ref) {
				continue
			}
			filtered[ref] = struct{}{}
		}

		node, err := tree.AddClass(entry.ContainerName, entry.RelativePath, filtered)
		if err != nil {
			warn(err)
			return nil
		}
		node.HasMain = info.HasMain
		node.Annotations = info.Annotations
		return nil
	}

	stats, err := classpath.Enumerate(ctx, classpathStr, e.filter, warn, visit)
	if err != nil {
		return nil, &Error{Kind: ErrCancelled, Err: err}
	}

	entries := reach.DetectEntryPoints(tree, e.explicitEntries, e.markerAnnotations)

	result := &Result{Tree: tree, Stats: stats, Entries: entries, engine: e}
	return result, warnings
}

