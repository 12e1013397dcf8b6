package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"binswap/internal/graph"
)

// Domain prefix for content-addressed cache keys.
// Version suffix enables future algorithm migration.
const keyDomain = "binswap/target/v1"

// contentCacheSize bounds the per-run LRU of file content digests.
// Shared source files are hashed once per run, not once per owner.
const contentCacheSize = 4096

// Hasher computes deterministic cache keys for targets.
//
// A target's key covers (a) the content of every source file it owns,
// (b) the cache keys of its direct dependencies, and (c) the external
// build-flag list for the run, so a change anywhere below a target
// propagates upward into every consumer's key. Dependency keys are
// combined in sorted order, making the key independent of dependency
// enumeration order.
//
// Hasher is safe for concurrent use; computed keys are memoized per
// target for the lifetime of the Hasher, which is one run.
type Hasher struct {
	g     *graph.Graph
	flags []string

	content *lru.Cache[string, string]

	mu    sync.Mutex
	calls map[string]*hashCall
}

// hashCall memoizes one target's key computation so that concurrent
// consumers sharing a dependency compute it exactly once.
type hashCall struct {
	once sync.Once
	key  string
	err  error
}

// NewHasher creates a Hasher for one run over g with the given external
// build-flag list. The flag list is folded into every key verbatim, in
// the order supplied.
func NewHasher(g *graph.Graph, buildFlags []string) *Hasher {
	// Size is fixed; lru.New only errors on size <= 0.
	content, _ := lru.New[string, string](contentCacheSize)
	return &Hasher{
		g:       g,
		flags:   buildFlags,
		content: content,
		calls:   make(map[string]*hashCall),
	}
}

// HashTargets computes cache keys for every target in the mapping with
// bounded parallelism and records them in runCtx. The first failure
// cancels the remaining work and is returned as a HASH_COMPUTATION
// error; no partial keys are recorded for failed targets.
//
// The graph must be acyclic: a dependency cycle has no well-defined
// key. Load rejects cyclic project files, and HashTargets re-checks
// here so a programmatically built cycle fails instead of recursing
// into itself.
func (h *Hasher) HashTargets(ctx context.Context, targets map[string]*graph.Target, runCtx *Context, limit int) error {
	if cycle := h.g.FindCycle(); cycle != nil {
		return NewHashError(cycle[0], fmt.Errorf("dependency cycle: %s", strings.Join(cycle, " -> ")))
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(limit)

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := targets[name]
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key, err := h.CacheKey(t)
			if err != nil {
				return err
			}
			runCtx.SetCacheKey(t.Name, key)
			return nil
		})
	}
	return grp.Wait()
}

// CacheKey returns the cache key for a single target, computing it and
// the keys of its transitive dependencies on first use.
func (h *Hasher) CacheKey(t *graph.Target) (string, error) {
	h.mu.Lock()
	call, ok := h.calls[t.Name]
	if !ok {
		call = &hashCall{}
		h.calls[t.Name] = call
	}
	h.mu.Unlock()

	call.once.Do(func() {
		call.key, call.err = h.compute(t)
	})
	return call.key, call.err
}

// compute builds the digest for one target. Field layout:
//
//	domain 0x00 name flags... depKeys(sorted)... (path digest)...
//
// Every field is length-prefixed so field boundaries are unambiguous,
// and every string is NFC-normalized so byte-level encoding differences
// of the same logical name cannot split the cache.
func (h *Hasher) compute(t *graph.Target) (string, error) {
	depKeys := make([]string, 0, len(t.Dependencies))
	for _, depName := range t.Dependencies {
		dep, ok := h.g.Target(depName)
		if !ok {
			return "", NewHashError(t.Name, fmt.Errorf("unknown dependency %q", depName))
		}
		key, err := h.CacheKey(dep)
		if err != nil {
			return "", err
		}
		depKeys = append(depKeys, key)
	}
	sort.Strings(depKeys)

	sources := make([]string, len(t.Sources))
	copy(sources, t.Sources)
	sort.Strings(sources)

	hs := sha256.New()
	hs.Write([]byte(keyDomain))
	hs.Write([]byte{0x00})
	writeField(hs, norm.NFC.String(t.Name))

	writeCount(hs, len(h.flags))
	for _, flag := range h.flags {
		writeField(hs, norm.NFC.String(flag))
	}

	writeCount(hs, len(depKeys))
	for _, key := range depKeys {
		writeField(hs, key)
	}

	writeCount(hs, len(sources))
	for _, src := range sources {
		digest, err := h.contentDigest(src)
		if err != nil {
			return "", NewHashError(t.Name, err)
		}
		writeField(hs, norm.NFC.String(src))
		writeField(hs, digest)
	}

	return hex.EncodeToString(hs.Sum(nil)), nil
}

// contentDigest hashes one source file's content, consulting the
// per-run LRU so shared sources are read once.
func (h *Hasher) contentDigest(path string) (string, error) {
	if digest, ok := h.content.Get(path); ok {
		return digest, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	h.content.Add(path, digest)
	return digest, nil
}

// writeField writes a length-prefixed field. The 8-byte big-endian
// prefix prevents boundary ambiguity between adjacent fields.
func writeField(h hash.Hash, s string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(s)))
	h.Write(length[:])
	h.Write([]byte(s))
}

// writeCount writes an element count, so lists of different lengths
// can never collide with each other.
func writeCount(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
