package patcher

import (
	"fmt"

	"binswap/internal/graph"
)

// MutateGraph applies the graph-mutation phase: every binary user's
// dependency edges to binarized targets are replaced with direct
// references to the resolved binary products, then the final
// binarizable set is deleted from the graph.
//
// Both steps run to completion in order - consumers are fully repointed
// before any target is deleted, so a dangling dependency reference can
// never exist, even transiently in the persisted result. The
// binarizable targets' products carry their resolved paths for the
// duration of the mutation; deletion clears them.
//
// keepGroups controls whether cosmetic groups referencing deleted
// targets are left in place (true) or pruned (false). When
// deleteSources is false the deletion step is skipped entirely:
// consumers are repointed, the source targets stay, and their products
// keep their resolved binary paths.
//
// Returns the number of deleted targets.
func MutateGraph(g *graph.Graph, plans []*Plan, binarizable map[string]*graph.Target, keepGroups, deleteSources bool) (int, error) {
	for _, plan := range plans {
		user, ok := g.Target(plan.User)
		if !ok {
			return 0, fmt.Errorf("binary user %q no longer in graph", plan.User)
		}
		for _, product := range plan.Products {
			dep, ok := binarizable[product.Target]
			if !ok {
				return 0, fmt.Errorf("plan for %q references %q outside the binarizable set", plan.User, product.Target)
			}
			if dep.Product != nil {
				dep.Product.BinaryPath = product.Path
			}
			user.RemoveDependency(product.Target)
			user.AddBinary(product.Path)
		}
	}

	if !deleteSources {
		return 0, nil
	}

	names := make(map[string]bool, len(binarizable))
	for name := range binarizable {
		names[name] = true
	}
	if len(names) == 0 {
		return 0, nil
	}
	if err := g.DeleteTargets(names, keepGroups); err != nil {
		return 0, fmt.Errorf("delete substituted targets: %w", err)
	}
	return len(names), nil
}
