package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project file format version. Bumped only on incompatible layout
// changes; Load rejects versions it does not understand.
const formatVersion = 1

// projectFile is the on-disk YAML layout of a project graph.
type projectFile struct {
	Version     int       `yaml:"version"`
	Substituted bool      `yaml:"substituted,omitempty"`
	Targets     []*Target `yaml:"targets"`
	Groups      []Group   `yaml:"groups,omitempty"`
}

// Load reads a project graph from a YAML file.
//
// Target order in the file is not significant; the in-memory graph
// indexes by name. Product kinds are validated on load so that the rest
// of the engine can switch over ProductKind exhaustively, and cyclic
// dependency graphs are rejected so every downstream traversal can
// assume a DAG.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}

	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse project file %s: %w", path, err)
	}
	if pf.Version != formatVersion {
		return nil, fmt.Errorf("unsupported project file version %d (want %d)", pf.Version, formatVersion)
	}

	g := New(path)
	g.substituted = pf.Substituted
	g.groups = pf.Groups
	for _, t := range pf.Targets {
		if t.Product != nil {
			if _, err := ParseProductKind(string(t.Product.Kind)); err != nil {
				return nil, fmt.Errorf("target %q: %w", t.Name, err)
			}
		}
		if err := g.AddTarget(t); err != nil {
			return nil, fmt.Errorf("project file %s: %w", path, err)
		}
	}
	if cycle := g.FindCycle(); cycle != nil {
		return nil, fmt.Errorf("project file %s: dependency cycle: %s", path, strings.Join(cycle, " -> "))
	}
	return g, nil
}

// Save writes the graph back to its project file.
//
// Targets are emitted in sorted name order so that saving an unchanged
// graph is byte-stable, which keeps backups and golden files
// comparable. The write goes through a temp file in the same directory
// followed by a rename, so a crashed save never truncates the project.
func (g *Graph) Save() error {
	pf := projectFile{
		Version:     formatVersion,
		Substituted: g.substituted,
		Groups:      g.groups,
	}
	for _, name := range g.TargetNames() {
		pf.Targets = append(pf.Targets, g.targets[name])
	}

	data, err := yaml.Marshal(&pf)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	dir := filepath.Dir(g.path)
	tmp, err := os.CreateTemp(dir, ".binswap-*.yml")
	if err != nil {
		return fmt.Errorf("create temp project file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write project file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close project file: %w", err)
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace project file: %w", err)
	}
	return nil
}
