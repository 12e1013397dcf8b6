// Package engine implements the binary-substitution engine.
//
// The engine is the heart of binswap - it resolves a target scope,
// computes cache keys, finds binary users, excludes resource-bundle
// producers, and drives the patcher that rewrites the project graph.
//
// ARCHITECTURE:
//
// Staged Pipeline:
// A substitution run is a strict sequence of stages:
//
//	select -> hash -> analyze -> patch-files -> mutate-graph -> persist
//
// Within a stage, independent elements (targets to hash, files to
// patch) fan out over a bounded errgroup; a stage never starts before
// every unit of the previous stage has joined. This is what guarantees
// that file patching observes final binary-product bindings, and that
// graph mutation never races with read-only analysis.
//
// Derived State:
// Everything a run learns about a target (cache key, binary
// dependencies, resolved binary products) lives in a per-run Context
// side table keyed by target name, never on the persistent graph
// entities. The side table dies with the run, so no stale derived data
// can leak into a saved project or a later run.
//
// Resource-Bundle Exclusion:
// A dynamic framework loads its resource bundles relative to its own
// bundle at build time, not link time. If a candidate target produces a
// bundle one of its binarized consumers needs, substituting that
// candidate with a binary would silently drop the bundle from the
// build. The analyzer therefore recomputes the exclusion set from the
// current graph on every run and subtracts it from the binarizable set;
// exclusions are never cached across runs.
package engine
