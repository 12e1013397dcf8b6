package engine

import (
	"fmt"
	"regexp"

	"binswap/internal/graph"
)

// Scope is a selection expression over target names: either an explicit
// set of names, or an inclusion regexp paired with an optional
// exclusion regexp. The zero Scope selects nothing.
type Scope struct {
	names   []string
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// ScopeFromNames builds an explicit-set scope.
func ScopeFromNames(names ...string) Scope {
	return Scope{names: names}
}

// ScopeFromPatterns builds a regex scope. The exclusion pattern may be
// empty, in which case nothing is excluded. Returns an error if either
// pattern does not compile.
func ScopeFromPatterns(include, exclude string) (Scope, error) {
	if include == "" {
		return Scope{}, fmt.Errorf("inclusion pattern must not be empty")
	}
	inc, err := regexp.Compile(include)
	if err != nil {
		return Scope{}, fmt.Errorf("invalid inclusion pattern %q: %w", include, err)
	}
	var exc *regexp.Regexp
	if exclude != "" {
		exc, err = regexp.Compile(exclude)
		if err != nil {
			return Scope{}, fmt.Errorf("invalid exclusion pattern %q: %w", exclude, err)
		}
	}
	return Scope{include: inc, exclude: exc}, nil
}

// IsZero reports whether the scope selects nothing by construction.
func (s Scope) IsZero() bool {
	return len(s.names) == 0 && s.include == nil
}

// ResolveScope resolves a scope against the graph into a concrete
// name -> target mapping.
//
// For an explicit-set scope the result is exactly the intersection of
// the requested names with existing targets: missing names are dropped
// silently. This is documented behavior, not an error - it is what
// makes re-running the same scope over an evolving target set
// idempotent. For a regex scope, names matching the inclusion pattern
// are kept, then names also matching the exclusion pattern (if any)
// are removed.
//
// An empty result is a valid, successful resolution. No side effects.
func ResolveScope(g *graph.Graph, scope Scope) map[string]*graph.Target {
	resolved := make(map[string]*graph.Target)

	if len(scope.names) > 0 {
		for _, name := range scope.names {
			if t, ok := g.Target(name); ok {
				resolved[name] = t
			}
		}
		return resolved
	}

	if scope.include == nil {
		return resolved
	}
	for name, t := range g.FindTargets() {
		if !scope.include.MatchString(name) {
			continue
		}
		if scope.exclude != nil && scope.exclude.MatchString(name) {
			continue
		}
		resolved[name] = t
	}
	return resolved
}
