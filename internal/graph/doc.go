// Package graph holds the project model: targets, products, and the
// project graph binswap reads, rewrites, and persists.
//
// The graph is the unit of persistence. It is loaded from a YAML project
// file, mutated in memory during a substitution run, and saved back as a
// whole. Identity of a target is its name within one graph snapshot;
// there is no cross-snapshot identity.
//
// Derived, per-run analysis state (binary users, exclusions, cache keys)
// does NOT live on these types. The engine keeps it in a side table for
// the duration of one run (see engine.Context) so that stale derived
// data can never leak into a persisted project file. The one exception
// is Product.BinaryPath: once a consumer is repointed at a cached
// artifact, the resolved path is part of the project state and is
// persisted with it.
package graph
