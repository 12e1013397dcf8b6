// Package backup snapshots the persisted project file before a
// mutating run and restores it on demand.
//
// The engine takes a snapshot unconditionally at the start of every
// mutating run; deciding when to restore is caller policy, surfaced in
// the CLI as the restore command.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"binswap/internal/graph"
)

// Snapshot kinds. KindOriginal tags the pre-mutation state of a
// substitution run.
const KindOriginal = "original"

// Snapshot is one recorded copy of a project file.
type Snapshot struct {
	ID        string    `yaml:"id"`
	Kind      string    `yaml:"kind"`
	Project   string    `yaml:"project"`
	Path      string    `yaml:"path"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Coordinator stores snapshots under a backup directory, one copy plus
// one manifest per snapshot.
type Coordinator struct {
	dir string
}

// NewCoordinator creates a Coordinator writing to dir. The directory is
// created on first use.
func NewCoordinator(dir string) *Coordinator {
	return &Coordinator{dir: dir}
}

// Backup copies the project's persisted file into the backup directory,
// tagged with kind and a fresh snapshot ID.
//
// The graph's current on-disk state is what gets copied, not the
// in-memory graph: a backup taken before mutation must capture the
// state a restore should return to.
func (c *Coordinator) Backup(g *graph.Graph, kind string) error {
	_, err := c.Take(g.Path(), kind)
	return err
}

// Take snapshots an arbitrary project file path. Returns the snapshot
// record.
func (c *Coordinator) Take(projectPath, kind string) (Snapshot, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create backup directory: %w", err)
	}

	data, err := os.ReadFile(projectPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read project for backup: %w", err)
	}

	snap := Snapshot{
		ID:        uuid.NewString(),
		Kind:      kind,
		Project:   projectPath,
		CreatedAt: time.Now().UTC(),
	}
	snap.Path = filepath.Join(c.dir, fmt.Sprintf("%s-%s.yml", kind, snap.ID))

	if err := os.WriteFile(snap.Path, data, 0o644); err != nil {
		return Snapshot{}, fmt.Errorf("write backup copy: %w", err)
	}

	manifest, err := yaml.Marshal(&snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal backup manifest: %w", err)
	}
	if err := os.WriteFile(snap.Path+".manifest", manifest, 0o644); err != nil {
		return Snapshot{}, fmt.Errorf("write backup manifest: %w", err)
	}
	return snap, nil
}

// Restore replaces the live project file with the snapshot's copy.
func (c *Coordinator) Restore(snap Snapshot, projectPath string) error {
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		return fmt.Errorf("read backup copy: %w", err)
	}
	if err := os.WriteFile(projectPath, data, 0o644); err != nil {
		return fmt.Errorf("restore project file: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot of the given kind, found by
// scanning the manifests in the backup directory.
func (c *Coordinator) Latest(kind string) (Snapshot, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read backup directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".manifest") {
			continue
		}
		if !strings.HasPrefix(name, kind+"-") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			return Snapshot{}, fmt.Errorf("read backup manifest %s: %w", name, err)
		}
		var snap Snapshot
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return Snapshot{}, fmt.Errorf("parse backup manifest %s: %w", name, err)
		}
		snaps = append(snaps, snap)
	}
	if len(snaps) == 0 {
		return Snapshot{}, fmt.Errorf("no %q snapshots in %s", kind, c.dir)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps[0], nil
}
