// Package testutil provides graph builders and collaborator fakes
// shared by the engine, patcher, and cli tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"binswap/internal/graph"
)

// WriteSource writes a source file under dir and returns its path.
func WriteSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// BuildGraph assembles a graph from targets and saves it to
// <dir>/project.yml.
func BuildGraph(t *testing.T, dir string, targets ...*graph.Target) *graph.Graph {
	t.Helper()
	g := graph.New(filepath.Join(dir, "project.yml"))
	for _, target := range targets {
		if err := g.AddTarget(target); err != nil {
			t.Fatalf("add target %s: %v", target.Name, err)
		}
	}
	if err := g.Save(); err != nil {
		t.Fatalf("save graph: %v", err)
	}
	return g
}

// Framework builds a framework target with the given dependencies and
// source files.
func Framework(name string, deps []string, sources ...string) *graph.Target {
	return &graph.Target{
		Name:         name,
		Product:      &graph.Product{Kind: graph.KindFramework, Name: name},
		Dependencies: deps,
		Sources:      sources,
	}
}

// DynamicFramework builds a dynamic-framework target.
func DynamicFramework(name string, deps []string, sources ...string) *graph.Target {
	return &graph.Target{
		Name:         name,
		Product:      &graph.Product{Kind: graph.KindDynamicFramework, Name: name},
		Dependencies: deps,
		Sources:      sources,
	}
}

// StaticLibrary builds a static-library target.
func StaticLibrary(name string, deps []string, sources ...string) *graph.Target {
	return &graph.Target{
		Name:         name,
		Product:      &graph.Product{Kind: graph.KindStaticLibrary, Name: name},
		Dependencies: deps,
		Sources:      sources,
	}
}

// Bundle builds a resource-bundle target whose product is named
// productName.
func Bundle(name, productName string, sources ...string) *graph.Target {
	return &graph.Target{
		Name:    name,
		Product: &graph.Product{Kind: graph.KindBundle, Name: productName},
		Sources: sources,
	}
}
