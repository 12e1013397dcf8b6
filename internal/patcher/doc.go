// Package patcher applies substitution plans: it rewrites text files
// that reference soon-to-be-removed source targets, repoints consumer
// targets at resolved binary products, and deletes the substituted
// targets from the graph.
//
// File patching and graph mutation are separate phases. File patching
// fans out over independent files with bounded parallelism; graph
// mutation runs single-threaded after every file write has joined, so
// the graph is never mutated while any analysis or file I/O is in
// flight.
package patcher
