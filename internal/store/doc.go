// Package store provides the binary artifact store: a content-addressable
// mapping from cache keys to compiled artifacts.
//
// The local store is a directory-per-prefix CAS with a SQLite index.
// The index exists so that a target can also be resolved without a
// cache key (latest artifact recorded for it), which is what makes the
// engine's lower-level Mutate entry point usable without a hashing
// pass.
//
// The remote store layers a minio-backed object bucket over a local
// store: a miss in the local index falls through to the bucket, and a
// downloaded artifact is recorded locally so the next run resolves it
// without the network.
//
// From the engine's perspective both stores are read-only; Put exists
// for the external build step that produces artifacts, and for tests.
package store
