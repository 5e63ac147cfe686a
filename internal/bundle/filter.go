package bundle

import (
	"fmt"
	"path"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/frederic-klein/yamb/internal/modname"
)

// FilterList selects resource names by an ordered list of glob patterns.
// A pattern prefixed with "!" excludes, a trailing "/" selects a subtree
// and later patterns override earlier ones.
type FilterList struct {
	matcher *patternmatcher.PatternMatcher
	// include filters naming a single resource
	literals []string
}

// NewFilterList compiles filters. A filter whose last segment has no
// extension matches every one of fileTypes instead.
func NewFilterList(filters []string, fileTypes []string) (*FilterList, error) {
	var patterns, literals []string
	for _, f := range filters {
		exclude := strings.HasPrefix(f, "!")
		pattern := strings.TrimPrefix(strings.TrimPrefix(f, "!"), "/")
		if pattern == "" {
			return nil, fmt.Errorf("empty filter %q", f)
		}
		if !exclude && isLiteral(pattern) {
			literals = append(literals, pattern)
		}
		for _, p := range expandFileTypes(pattern, fileTypes) {
			if exclude {
				p = "!" + p
			}
			patterns = append(patterns, p)
		}
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return &FilterList{matcher: pm, literals: literals}, nil
}

// isLiteral reports whether pattern names one resource: no wildcards, no
// subtree and a file type of its own.
func isLiteral(pattern string) bool {
	return !strings.HasSuffix(pattern, "/") &&
		!strings.ContainsAny(pattern, "*?[") &&
		strings.Contains(path.Base(pattern), ".")
}

func expandFileTypes(pattern string, fileTypes []string) []string {
	if strings.HasSuffix(pattern, "/") || strings.ContainsAny(path.Base(pattern), ".*?[") {
		return []string{pattern}
	}
	out := make([]string, len(fileTypes))
	for i, t := range fileTypes {
		out[i] = pattern + t
	}
	return out
}

// Matches reports whether name is selected.
func (f *FilterList) Matches(name string) (bool, error) {
	return f.matcher.MatchesOrParentMatches(name)
}

// Select returns the selected names in input order. Debug variants are
// skipped when their canonical resource is among names.
func (f *FilterList) Select(names []string) ([]string, error) {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	var out []string
	for _, n := range names {
		if canonical, ok := modname.CanonicalFromDebugVariant(n); ok && present[canonical] {
			continue
		}
		ok, err := f.Matches(n)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", n, err)
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Missing returns the include filters naming a single resource that is not
// among names, in filter order.
func (f *FilterList) Missing(names []string) []string {
	var out []string
	for _, l := range f.literals {
		found := false
		for _, n := range names {
			if n == l || strings.HasPrefix(n, l+"/") {
				found = true
				break
			}
		}
		if !found {
			out = append(out, l)
		}
	}
	return out
}
