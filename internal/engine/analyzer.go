package engine

import (
	"context"
	"sort"

	"binswap/internal/graph"
	"binswap/internal/patcher"
)

// ArtifactResolver maps a target's cache key to a binary artifact
// location. An error means "not built yet" or unreachable; either way
// the target cannot be substituted this run.
//
// The resolver is read-only from the engine's perspective.
type ArtifactResolver interface {
	ResolveArtifactPath(ctx context.Context, target, cacheKey string) (string, error)
}

// BinaryUser is a target that depends on at least one candidate for
// substitution, together with the intersection of its dependencies and
// the candidate set ("binary dependencies").
type BinaryUser struct {
	Target     *graph.Target
	BinaryDeps []string
}

// FindBinaryUsers scans every target in the graph - not just the
// candidates - and returns those whose dependencies intersect the
// candidate set. Targets with an empty intersection are dropped from
// further consideration. Binary dependencies are reported sorted;
// results are sorted by user name.
func FindBinaryUsers(g *graph.Graph, candidates map[string]*graph.Target) []BinaryUser {
	var users []BinaryUser
	for _, name := range g.TargetNames() {
		t, _ := g.Target(name)
		var deps []string
		for _, dep := range t.Dependencies {
			if _, ok := candidates[dep]; ok {
				deps = append(deps, dep)
			}
		}
		if len(deps) == 0 {
			continue
		}
		sort.Strings(deps)
		users = append(users, BinaryUser{Target: t, BinaryDeps: deps})
	}
	return users
}

// ResourceBundleExclusions returns the candidates that must be kept as
// source because a dynamic-framework binary user needs their
// resource-bundle output at build time.
//
// A dynamic framework loads resources relative to its own bundle when
// it is built, not when it is linked, so a candidate whose product name
// matches a bundle name expected by such a user cannot be replaced by a
// link-time binary without silently dropping the bundle.
//
// The exclusion set is recomputed from the current graph on every run;
// it is never cached across runs.
func ResourceBundleExclusions(users []BinaryUser, candidates map[string]*graph.Target) map[string]bool {
	excluded := make(map[string]bool)
	for _, user := range users {
		p := user.Target.Product
		if p == nil || p.Kind != graph.KindDynamicFramework {
			continue
		}
		for _, bundle := range user.Target.BundleNames() {
			for name, candidate := range candidates {
				if candidate.Product != nil && candidate.Product.Name == bundle {
					excluded[name] = true
				}
			}
		}
	}
	return excluded
}

// Analyze computes the final binarizable set and a substitution plan
// per binary user, resolving each binarized dependency's artifact
// through the resolver.
//
// The final set is always candidates minus the resource-bundle
// exclusions. A candidate in the final set with no resolvable artifact
// is fatal: Analyze returns an ARTIFACT_NOT_FOUND error before any
// mutation can begin, so no consumer is ever left partially bound.
//
// Plans are recorded in runCtx; cache keys must already be present
// there (the hash stage joins before analysis starts).
func Analyze(ctx context.Context, g *graph.Graph, candidates map[string]*graph.Target, resolver ArtifactResolver, runCtx *Context) (map[string]*graph.Target, error) {
	users := FindBinaryUsers(g, candidates)
	excluded := ResourceBundleExclusions(users, candidates)

	binarizable := make(map[string]*graph.Target, len(candidates))
	for name, t := range candidates {
		if !excluded[name] {
			binarizable[name] = t
		}
	}

	// Resolve artifacts once per binarizable target.
	paths := make(map[string]string, len(binarizable))
	for _, name := range sortedNames(binarizable) {
		key, _ := runCtx.CacheKey(name)
		path, err := resolver.ResolveArtifactPath(ctx, name, key)
		if err != nil {
			return nil, NewArtifactNotFoundError(name, key, err)
		}
		paths[name] = path
	}

	for _, user := range users {
		plan := &patcher.Plan{User: user.Target.Name}
		for _, dep := range user.BinaryDeps {
			if excluded[dep] {
				continue
			}
			t := binarizable[dep]
			plan.BinaryDeps = append(plan.BinaryDeps, dep)
			productName := dep
			if t.Product != nil {
				productName = t.Product.Name
			}
			plan.Products = append(plan.Products, patcher.BinaryProduct{
				Target:      dep,
				ProductName: productName,
				Path:        paths[dep],
			})
		}
		if len(plan.BinaryDeps) == 0 {
			// Every binarized dependency of this user was excluded.
			continue
		}
		runCtx.SetPlan(plan)
	}

	return binarizable, nil
}

func sortedNames(m map[string]*graph.Target) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
