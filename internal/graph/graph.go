package graph

import (
	"fmt"
	"sort"
)

// Group is a cosmetic organizational structure over targets. Groups
// carry no build semantics; they exist so that project browsers can
// fold related targets together.
type Group struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members,omitempty"`
}

// Graph is an in-memory project graph: the full set of targets plus the
// cosmetic groups, with the substitution marker and the file path it
// was loaded from.
//
// Graph is not safe for concurrent mutation. The engine mutates it only
// in the strictly ordered graph-mutation stage, after all read-only
// analysis stages have joined.
type Graph struct {
	targets     map[string]*Target
	groups      []Group
	substituted bool
	path        string
}

// New creates an empty graph that persists to path.
func New(path string) *Graph {
	return &Graph{
		targets: make(map[string]*Target),
		path:    path,
	}
}

// Path returns the project file path the graph persists to.
func (g *Graph) Path() string {
	return g.path
}

// FindTargets returns the name -> target mapping for the whole graph.
// The returned map is the live index; callers must not mutate it.
func (g *Graph) FindTargets() map[string]*Target {
	return g.targets
}

// Target looks up a single target by name.
func (g *Graph) Target(name string) (*Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// TargetNames returns all target names, sorted.
func (g *Graph) TargetNames() []string {
	names := make([]string, 0, len(g.targets))
	for name := range g.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTarget inserts a target into the graph.
// Returns an error if a target with the same name already exists.
func (g *Graph) AddTarget(t *Target) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("target must have a name")
	}
	if _, exists := g.targets[t.Name]; exists {
		return fmt.Errorf("duplicate target %q", t.Name)
	}
	g.targets[t.Name] = t
	return nil
}

// AddGroup appends a cosmetic group.
func (g *Graph) AddGroup(grp Group) {
	g.groups = append(g.groups, grp)
}

// Groups returns the cosmetic groups.
func (g *Graph) Groups() []Group {
	return g.groups
}

// DeleteTargets removes every named target from the graph.
//
// Callers are responsible for repointing consumers first: deletion
// fails if any remaining target still depends on a deleted one, so a
// dangling dependency reference can never be produced. The deleted
// targets' resolved binary paths are cleared, since a deleted target's
// product no longer exists in the graph.
//
// When keepGroups is false, deleted names are also pruned from every
// group, and groups left empty are dropped. When true, groups are
// untouched.
func (g *Graph) DeleteTargets(names map[string]bool, keepGroups bool) error {
	for name := range names {
		if _, ok := g.targets[name]; !ok {
			return fmt.Errorf("cannot delete unknown target %q", name)
		}
	}
	for remaining, t := range g.targets {
		if names[remaining] {
			continue
		}
		for _, dep := range t.Dependencies {
			if names[dep] {
				return fmt.Errorf("cannot delete %q: target %q still depends on it", dep, remaining)
			}
		}
	}

	for name := range names {
		t := g.targets[name]
		if t.Product != nil {
			t.Product.BinaryPath = ""
		}
		delete(g.targets, name)
	}

	if !keepGroups {
		pruned := g.groups[:0]
		for _, grp := range g.groups {
			members := grp.Members[:0]
			for _, m := range grp.Members {
				if !names[m] {
					members = append(members, m)
				}
			}
			grp.Members = members
			if len(grp.Members) > 0 {
				pruned = append(pruned, grp)
			}
		}
		g.groups = pruned
	}
	return nil
}

// FindCycle returns one dependency cycle as the sequence of target
// names forming it, with the first name repeated at the end, or nil if
// the graph is acyclic. A self-dependency is a cycle of length one.
//
// Dependencies naming targets absent from the graph are skipped; they
// are a deletion-time concern, not a cycle.
func (g *Graph) FindCycle() []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(g.targets))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = inProgress
		stack = append(stack, name)
		for _, dep := range g.targets[name].Dependencies {
			if _, ok := g.targets[dep]; !ok {
				continue
			}
			switch state[dep] {
			case inProgress:
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), stack[start:]...), dep)
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return false
	}

	for _, name := range g.TargetNames() {
		if state[name] == unvisited && visit(name) {
			return cycle
		}
	}
	return nil
}

// IsAlreadySubstituted reports whether the project carries the
// substitution marker.
func (g *Graph) IsAlreadySubstituted() bool {
	return g.substituted
}

// MarkAsSubstituted sets the substitution marker. The marker is
// persisted with the project and guards against re-entrant runs.
func (g *Graph) MarkAsSubstituted() {
	g.substituted = true
}

// Equal reports whether two graphs describe the same project: same
// targets (including products, dependencies, sources, settings, and
// binary references), same groups in order, and same substitution
// marker. Persistence paths are not compared.
func Equal(a, b *Graph) bool {
	if a.substituted != b.substituted {
		return false
	}
	if len(a.targets) != len(b.targets) {
		return false
	}
	for name, at := range a.targets {
		bt, ok := b.targets[name]
		if !ok || !targetEqual(at, bt) {
			return false
		}
	}
	if len(a.groups) != len(b.groups) {
		return false
	}
	for i, ag := range a.groups {
		bg := b.groups[i]
		if ag.Name != bg.Name || !stringsEqual(ag.Members, bg.Members) {
			return false
		}
	}
	return true
}

func targetEqual(a, b *Target) bool {
	if a.Name != b.Name {
		return false
	}
	if (a.Product == nil) != (b.Product == nil) {
		return false
	}
	if a.Product != nil && *a.Product != *b.Product {
		return false
	}
	return stringsEqual(a.Dependencies, b.Dependencies) &&
		stringsEqual(a.Sources, b.Sources) &&
		stringsEqual(a.Settings, b.Settings) &&
		stringsEqual(a.Binaries, b.Binaries)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
