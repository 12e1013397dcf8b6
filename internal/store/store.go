package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrArtifactNotFound means no artifact exists for the requested key or
// target: the binary has not been built yet. Distinct from I/O errors,
// which mean the store itself is unhealthy.
var ErrArtifactNotFound = errors.New("artifact not found")

// LocalStore is a content-addressable artifact store on the local
// filesystem with a SQLite index.
//
// Layout: <root>/index.db plus <root>/cas/<key[:2]>/<key> per artifact.
type LocalStore struct {
	db   *sql.DB
	root string
}

// Open creates or opens a local store rooted at dir.
//
// The index database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "cas"), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open artifact index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to artifact index: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent Put calls from the build step.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &LocalStore{db: db, root: dir}, nil
}

// Close closes the index database.
func (s *LocalStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// casPath returns the CAS location for a cache key.
func (s *LocalStore) casPath(cacheKey string) string {
	prefix := cacheKey
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.root, "cas", prefix, cacheKey)
}

// Put stores an artifact for (target, cacheKey) and records it in the
// index. Storing the same key again overwrites the previous content;
// content addressing makes that a no-op in practice.
//
// Returns the artifact's path inside the CAS.
func (s *LocalStore) Put(ctx context.Context, target, cacheKey string, content []byte) (string, error) {
	if cacheKey == "" {
		return "", fmt.Errorf("cache key must not be empty")
	}
	path := s.casPath(cacheKey)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create CAS directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (cache_key, target, path, size) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET target = excluded.target, path = excluded.path, size = excluded.size`,
		cacheKey, target, path, len(content))
	if err != nil {
		return "", fmt.Errorf("index artifact: %w", err)
	}
	return path, nil
}

// ResolveArtifactPath maps (target, cacheKey) to an artifact location.
//
// With a cache key the lookup is exact. With an empty key the most
// recently recorded artifact for the target is returned, which is the
// fallback used by callers that skipped the hashing stage. Either way
// an index hit whose file has vanished from the CAS counts as not
// found, never as a stale success.
func (s *LocalStore) ResolveArtifactPath(ctx context.Context, target, cacheKey string) (string, error) {
	var (
		path string
		err  error
	)
	if cacheKey != "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT path FROM artifacts WHERE cache_key = ?`, cacheKey).Scan(&path)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT path FROM artifacts WHERE target = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
			target).Scan(&path)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("target %s (key %q): %w", target, cacheKey, ErrArtifactNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query artifact index: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("indexed artifact %s missing from CAS: %w", path, ErrArtifactNotFound)
	}
	return path, nil
}
