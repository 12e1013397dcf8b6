package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	g := New("project.yml")
	targets := []*Target{
		{Name: "Core", Product: &Product{Kind: KindFramework, Name: "Core"}},
		{Name: "UI", Product: &Product{Kind: KindFramework, Name: "UI"}, Dependencies: []string{"Core"}},
		{Name: "App", Product: &Product{Kind: KindExecutable, Name: "App"}, Dependencies: []string{"UI", "Core"}},
	}
	for _, target := range targets {
		require.NoError(t, g.AddTarget(target))
	}
	return g
}

func TestGraph_AddTarget_Duplicate(t *testing.T) {
	g := testGraph(t)
	err := g.AddTarget(&Target{Name: "Core"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate target")
}

func TestGraph_TargetNames_Sorted(t *testing.T) {
	g := testGraph(t)
	assert.Equal(t, []string{"App", "Core", "UI"}, g.TargetNames())
}

func TestGraph_DeleteTargets_RefusesDangling(t *testing.T) {
	g := testGraph(t)

	// Core is still depended on by UI and App.
	err := g.DeleteTargets(map[string]bool{"Core": true}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still depends on it")

	// Nothing was deleted.
	_, ok := g.Target("Core")
	assert.True(t, ok)
}

func TestGraph_DeleteTargets_Unknown(t *testing.T) {
	g := testGraph(t)
	err := g.DeleteTargets(map[string]bool{"Nope": true}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestGraph_DeleteTargets_ClearsBinaryPath(t *testing.T) {
	g := testGraph(t)
	app, _ := g.Target("App")
	app.RemoveDependency("UI")
	app.RemoveDependency("Core")
	ui, _ := g.Target("UI")
	ui.RemoveDependency("Core")
	ui.Product.BinaryPath = "/cas/ab/abc"
	core, _ := g.Target("Core")
	core.Product.BinaryPath = "/cas/cd/cde"

	require.NoError(t, g.DeleteTargets(map[string]bool{"UI": true, "Core": true}, false))

	assert.Empty(t, ui.Product.BinaryPath)
	assert.Empty(t, core.Product.BinaryPath)
	assert.Equal(t, []string{"App"}, g.TargetNames())
}

func TestGraph_DeleteTargets_PrunesGroups(t *testing.T) {
	g := testGraph(t)
	g.AddGroup(Group{Name: "Libs", Members: []string{"Core", "UI"}})
	g.AddGroup(Group{Name: "Apps", Members: []string{"App"}})

	ui, _ := g.Target("UI")
	ui.RemoveDependency("Core")
	app, _ := g.Target("App")
	app.RemoveDependency("Core")

	require.NoError(t, g.DeleteTargets(map[string]bool{"Core": true}, false))

	groups := g.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"UI"}, groups[0].Members)
	assert.Equal(t, []string{"App"}, groups[1].Members)
}

func TestGraph_DeleteTargets_DropsEmptyGroups(t *testing.T) {
	g := testGraph(t)
	g.AddGroup(Group{Name: "Solo", Members: []string{"UI"}})

	app, _ := g.Target("App")
	app.RemoveDependency("UI")

	require.NoError(t, g.DeleteTargets(map[string]bool{"UI": true}, false))
	assert.Empty(t, g.Groups())
}

func TestGraph_DeleteTargets_KeepGroups(t *testing.T) {
	g := testGraph(t)
	g.AddGroup(Group{Name: "Libs", Members: []string{"Core", "UI"}})

	ui, _ := g.Target("UI")
	ui.RemoveDependency("Core")
	app, _ := g.Target("App")
	app.RemoveDependency("Core")

	require.NoError(t, g.DeleteTargets(map[string]bool{"Core": true}, true))

	groups := g.Groups()
	require.Len(t, groups, 1)
	// Cosmetic structure untouched, including the stale member.
	assert.Equal(t, []string{"Core", "UI"}, groups[0].Members)
}

func TestGraph_Marker(t *testing.T) {
	g := testGraph(t)
	assert.False(t, g.IsAlreadySubstituted())
	g.MarkAsSubstituted()
	assert.True(t, g.IsAlreadySubstituted())
}

func TestEqual(t *testing.T) {
	a := testGraph(t)
	b := testGraph(t)
	assert.True(t, Equal(a, b))

	t.Run("marker differs", func(t *testing.T) {
		c := testGraph(t)
		c.MarkAsSubstituted()
		assert.False(t, Equal(a, c))
	})

	t.Run("dependency differs", func(t *testing.T) {
		c := testGraph(t)
		target, _ := c.Target("App")
		target.RemoveDependency("Core")
		assert.False(t, Equal(a, c))
	})

	t.Run("product differs", func(t *testing.T) {
		c := testGraph(t)
		target, _ := c.Target("Core")
		target.Product.BinaryPath = "/cas/ab/abc"
		assert.False(t, Equal(a, c))
	})

	t.Run("groups differ", func(t *testing.T) {
		c := testGraph(t)
		c.AddGroup(Group{Name: "Libs", Members: []string{"Core"}})
		assert.False(t, Equal(a, c))
	})

	t.Run("binaries differ", func(t *testing.T) {
		c := testGraph(t)
		target, _ := c.Target("App")
		target.AddBinary("/cas/ab/abc")
		assert.False(t, Equal(a, c))
	})
}

func TestGraph_FindCycle(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		g := testGraph(t)
		assert.Nil(t, g.FindCycle())
	})

	t.Run("two-node cycle", func(t *testing.T) {
		g := New("project.yml")
		require.NoError(t, g.AddTarget(&Target{Name: "A", Dependencies: []string{"B"}}))
		require.NoError(t, g.AddTarget(&Target{Name: "B", Dependencies: []string{"A"}}))

		cycle := g.FindCycle()
		require.NotNil(t, cycle)
		assert.Equal(t, []string{"A", "B", "A"}, cycle)
	})

	t.Run("self-dependency", func(t *testing.T) {
		g := New("project.yml")
		require.NoError(t, g.AddTarget(&Target{Name: "A", Dependencies: []string{"A"}}))

		assert.Equal(t, []string{"A", "A"}, g.FindCycle())
	})

	t.Run("cycle below an acyclic entry point", func(t *testing.T) {
		g := New("project.yml")
		require.NoError(t, g.AddTarget(&Target{Name: "App", Dependencies: []string{"B"}}))
		require.NoError(t, g.AddTarget(&Target{Name: "B", Dependencies: []string{"C"}}))
		require.NoError(t, g.AddTarget(&Target{Name: "C", Dependencies: []string{"B"}}))

		assert.Equal(t, []string{"B", "C", "B"}, g.FindCycle())
	})

	t.Run("unknown dependency is not a cycle", func(t *testing.T) {
		g := New("project.yml")
		require.NoError(t, g.AddTarget(&Target{Name: "A", Dependencies: []string{"Gone"}}))
		assert.Nil(t, g.FindCycle())
	})
}
