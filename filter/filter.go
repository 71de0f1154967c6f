// Package filter implements the three ordered rule sets that decide
// which sources are opened, which referenced classes are kept as arcs,
// and which elements are "in focus" (analyzed vs. taken for granted).
package filter

import (
	"fmt"
	"regexp"

	"github.com/clgraph/clgraph/name"
)

// Config is the plain, serializable configuration for a Filter. It is a
// value type (yaml-taggable, grounded on the struct-tag idiom used across
// analyzer/linage and analyzer/info) rather than a live Filter so that an
// external config-loading layer can read and write it without this
// package ever touching the filesystem.
type Config struct {
	IgnoredSources    []string `yaml:"ignoredSources,omitempty"`
	IgnoredClassNames []string `yaml:"ignoredClassNames,omitempty"`
	Focus             []string `yaml:"focus,omitempty"`
}

// Default returns the out-of-the-box configuration: java.* platform
// classes, module descriptors, and META-INF resources are ignored; JRE
// and build-resource paths are ignored as sources; only directory-backed
// containers are in focus.
func Default() Config {
	return Config{
		IgnoredClassNames: []string{
			`^java\..*`,
			`^javax\..*`,
			`.*\.module-info$`,
			`^module-info$`,
			`.*\bMETA-INF\b.*`,
		},
		IgnoredSources: []string{
			`(?i).*[/\\]jre[/\\].*`,
			`(?i).*[/\\](target|build|out)[/\\].*`,
		},
		Focus: []string{
			`^dir:.*`,
		},
	}
}

// Filter compiles a Config's rule sets and answers three questions:
// whether a source is ignored, whether a class name is ignored, and
// whether a node name is in focus.
type Filter struct {
	ignoredSources    []*regexp.Regexp
	ignoredClassNames []*regexp.Regexp
	focus             []*regexp.Regexp
}

// Compile compiles a Config into a usable Filter. An error is returned if
// any rule is not a valid regular expression.
func Compile(cfg Config) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.ignoredSources, err = compileAll(cfg.IgnoredSources); err != nil {
		return nil, fmt.Errorf("ignoredSources: %w", err)
	}
	if f.ignoredClassNames, err = compileAll(cfg.IgnoredClassNames); err != nil {
		return nil, fmt.Errorf("ignoredClassNames: %w", err)
	}
	if f.focus, err = compileAll(cfg.Focus); err != nil {
		return nil, fmt.Errorf("focus: %w", err)
	}
	return f, nil
}

// MustCompile is like Compile but panics on error; useful for Default().
func MustCompile(cfg Config) *Filter {
	f, err := Compile(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsIgnoredSource reports whether a container name should never be opened.
func (f *Filter) IsIgnoredSource(containerName string) bool {
	return anyMatch(f.ignoredSources, containerName)
}

// IsIgnoredClassName reports whether a qualified class name should be
// dropped both as a node and as a reference target.
func (f *Filter) IsIgnoredClassName(n name.Name) bool {
	return anyMatch(f.ignoredClassNames, string(n))
}

// IsInFocus reports whether a node name belongs to the project under
// analysis, as opposed to a dependency taken for granted.
func (f *Filter) IsInFocus(nodeName string) bool {
	return anyMatch(f.focus, nodeName)
}
