package graph

import (
	"fmt"
	"sort"
	"strings"
)

// ProductKind is the closed set of build-output kinds a target can
// produce. Exhaustive switches over ProductKind are intentional: adding
// a kind should force every consumer to decide how to handle it.
type ProductKind string

const (
	// KindFramework is a statically linked framework.
	KindFramework ProductKind = "framework"

	// KindDynamicFramework is a dynamically linked framework. Dynamic
	// frameworks load their resource bundles relative to their own
	// bundle at build time, which is what forces bundle producers to
	// stay source-built (see engine resource-bundle exclusion).
	KindDynamicFramework ProductKind = "dynamic-framework"

	// KindStaticLibrary is a plain static library archive.
	KindStaticLibrary ProductKind = "static-library"

	// KindBundle is a resource bundle: its output is consumed at build
	// time, not linked against.
	KindBundle ProductKind = "bundle"

	// KindExecutable is a linked executable.
	KindExecutable ProductKind = "executable"
)

// ValidProductKinds defines the allowed product kinds.
var ValidProductKinds = map[ProductKind]bool{
	KindFramework:        true,
	KindDynamicFramework: true,
	KindStaticLibrary:    true,
	KindBundle:           true,
	KindExecutable:       true,
}

// ParseProductKind validates a raw kind string.
// Returns an error naming the allowed kinds if it is not one of them.
func ParseProductKind(s string) (ProductKind, error) {
	k := ProductKind(s)
	if !ValidProductKinds[k] {
		return "", fmt.Errorf("invalid product kind %q: must be one of framework, dynamic-framework, static-library, bundle, executable", s)
	}
	return k, nil
}

// Linkable reports whether the kind produces a link-time artifact.
// Bundles are the only kind consumed at build time instead.
func (k ProductKind) Linkable() bool {
	switch k {
	case KindFramework, KindDynamicFramework, KindStaticLibrary, KindExecutable:
		return true
	case KindBundle:
		return false
	default:
		return false
	}
}

// Product describes the build output of a target.
//
// BinaryPath is set only when substitution resolves a cached artifact
// for the product; it is empty in a freshly authored project file.
type Product struct {
	Kind ProductKind `yaml:"kind"`
	Name string      `yaml:"name"`

	// BinaryPath is the resolved location of a cached artifact for this
	// product. Set during substitution, cleared when the owning target
	// is deleted from the graph.
	BinaryPath string `yaml:"binary_path,omitempty"`
}

// Target is a buildable unit in the project graph.
type Target struct {
	Name string `yaml:"name"`

	// Product is the target's build output. Optional: aggregate targets
	// have none.
	Product *Product `yaml:"product,omitempty"`

	// Dependencies are names of targets this target builds against,
	// in declaration order.
	Dependencies []string `yaml:"dependencies,omitempty"`

	// Sources are the file references the target owns: source files,
	// resource directories, bundle references.
	Sources []string `yaml:"sources,omitempty"`

	// Settings are per-target build-settings files on disk. The file
	// patcher rewrites search-path references inside them when a
	// dependency is substituted.
	Settings []string `yaml:"settings,omitempty"`

	// Binaries are resolved artifact paths this target links against
	// directly, in place of dependencies that were substituted. Written
	// by the patcher during graph mutation and persisted.
	Binaries []string `yaml:"binaries,omitempty"`
}

// AddBinary records a binary artifact path the target links against.
// Duplicate paths are ignored.
func (t *Target) AddBinary(path string) {
	for _, existing := range t.Binaries {
		if existing == path {
			return
		}
	}
	t.Binaries = append(t.Binaries, path)
}

// DependsOn reports whether name is a direct dependency of the target.
func (t *Target) DependsOn(name string) bool {
	for _, dep := range t.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// RemoveDependency deletes name from the target's dependency list,
// preserving the order of the remaining entries. Removing a name that
// is not present is a no-op.
func (t *Target) RemoveDependency(name string) {
	deps := t.Dependencies[:0]
	for _, dep := range t.Dependencies {
		if dep != name {
			deps = append(deps, dep)
		}
	}
	t.Dependencies = deps
}

// BundleNames derives the resource-bundle names the target is expected
// to produce from its source references. A reference ending in
// ".bundle" contributes its base name without the extension.
//
// The result is sorted for deterministic iteration.
func (t *Target) BundleNames() []string {
	var names []string
	for _, src := range t.Sources {
		base := src
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		if name, ok := strings.CutSuffix(base, ".bundle"); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
