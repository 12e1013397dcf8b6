package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binswap/internal/graph"
	"binswap/internal/testutil"
)

// hashFixture builds Core <- Net in a temp dir with real source files.
func hashFixture(t *testing.T) *graph.Graph {
	t.Helper()
	dir := t.TempDir()
	coreSrc := testutil.WriteSource(t, dir, "core/main.c", "int core() { return 1; }\n")
	netSrc := testutil.WriteSource(t, dir, "net/main.c", "int net() { return 2; }\n")
	return testutil.BuildGraph(t, dir,
		testutil.Framework("Core", nil, coreSrc),
		testutil.Framework("Net", []string{"Core"}, netSrc),
	)
}

func keyOf(t *testing.T, g *graph.Graph, flags []string, name string) string {
	t.Helper()
	target, ok := g.Target(name)
	require.True(t, ok)
	key, err := NewHasher(g, flags).CacheKey(target)
	require.NoError(t, err)
	return key
}

func TestHasher_Deterministic(t *testing.T) {
	g := hashFixture(t)

	first := keyOf(t, g, []string{"-O2"}, "Net")
	second := keyOf(t, g, []string{"-O2"}, "Net")
	assert.Equal(t, first, second)
}

func TestHasher_SourceSensitivity(t *testing.T) {
	g := hashFixture(t)
	before := keyOf(t, g, nil, "Net")

	// Changing a dependency's source content propagates upward.
	core, _ := g.Target("Core")
	testutil.WriteSource(t, filepath.Dir(core.Sources[0]), "main.c", "int core() { return 99; }\n")

	after := keyOf(t, g, nil, "Net")
	assert.NotEqual(t, before, after)
}

func TestHasher_FlagSensitivity(t *testing.T) {
	g := hashFixture(t)
	assert.NotEqual(t,
		keyOf(t, g, []string{"-O2"}, "Core"),
		keyOf(t, g, []string{"-O0"}, "Core"))
}

func TestHasher_FlagOrderPreserved(t *testing.T) {
	g := hashFixture(t)
	// The flag list is folded in verbatim: order is significant.
	assert.NotEqual(t,
		keyOf(t, g, []string{"-a", "-b"}, "Core"),
		keyOf(t, g, []string{"-b", "-a"}, "Core"))
}

func TestHasher_DependencySensitivity(t *testing.T) {
	g := hashFixture(t)
	before := keyOf(t, g, nil, "Net")

	net, _ := g.Target("Net")
	net.RemoveDependency("Core")

	after := keyOf(t, g, nil, "Net")
	assert.NotEqual(t, before, after)
}

func TestHasher_DependencyOrderIndependent(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteSource(t, dir, "a.c", "a\n")
	b := testutil.WriteSource(t, dir, "b.c", "b\n")
	app := testutil.WriteSource(t, dir, "app.c", "app\n")

	forward := testutil.BuildGraph(t, filepath.Join(dir, "fwd"),
		testutil.Framework("A", nil, a),
		testutil.Framework("B", nil, b),
		testutil.Framework("App", []string{"A", "B"}, app),
	)
	reversed := testutil.BuildGraph(t, filepath.Join(dir, "rev"),
		testutil.Framework("A", nil, a),
		testutil.Framework("B", nil, b),
		testutil.Framework("App", []string{"B", "A"}, app),
	)

	assert.Equal(t,
		keyOf(t, forward, nil, "App"),
		keyOf(t, reversed, nil, "App"))
}

func TestHasher_UnreadableSource(t *testing.T) {
	dir := t.TempDir()
	g := testutil.BuildGraph(t, dir,
		testutil.Framework("Broken", nil, filepath.Join(dir, "missing.c")),
	)

	_, err := NewHasher(g, nil).CacheKey(mustTarget(t, g, "Broken"))
	require.Error(t, err)
	assert.True(t, IsHashError(err))
}

func TestHasher_UnknownDependency(t *testing.T) {
	dir := t.TempDir()
	g := testutil.BuildGraph(t, dir,
		&graph.Target{Name: "Orphan", Dependencies: []string{"Ghost"}},
	)

	_, err := NewHasher(g, nil).CacheKey(mustTarget(t, g, "Orphan"))
	require.Error(t, err)
	assert.True(t, IsHashError(err))
}

func TestHasher_HashTargets(t *testing.T) {
	g := hashFixture(t)
	runCtx := NewContext()

	err := NewHasher(g, []string{"-O2"}).HashTargets(context.Background(), g.FindTargets(), runCtx, 4)
	require.NoError(t, err)

	coreKey, ok := runCtx.CacheKey("Core")
	require.True(t, ok)
	netKey, ok := runCtx.CacheKey("Net")
	require.True(t, ok)
	assert.NotEqual(t, coreKey, netKey)
	assert.Equal(t, keyOf(t, g, []string{"-O2"}, "Core"), coreKey)
}

func TestHasher_HashTargets_CyclicGraphFails(t *testing.T) {
	dir := t.TempDir()
	g := testutil.BuildGraph(t, dir,
		&graph.Target{Name: "A", Dependencies: []string{"B"}},
		&graph.Target{Name: "B", Dependencies: []string{"A"}},
	)

	// Must return an error, not recurse into the cycle.
	err := NewHasher(g, nil).HashTargets(context.Background(), g.FindTargets(), NewContext(), 2)
	require.Error(t, err)
	assert.True(t, IsHashError(err))
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestHasher_HashTargets_FailurePropagates(t *testing.T) {
	dir := t.TempDir()
	g := testutil.BuildGraph(t, dir,
		testutil.Framework("Ok", nil, testutil.WriteSource(t, dir, "ok.c", "ok\n")),
		testutil.Framework("Broken", nil, filepath.Join(dir, "missing.c")),
	)

	err := NewHasher(g, nil).HashTargets(context.Background(), g.FindTargets(), NewContext(), 2)
	require.Error(t, err)
	assert.True(t, IsHashError(err))
}

func mustTarget(t *testing.T, g *graph.Graph, name string) *graph.Target {
	t.Helper()
	target, ok := g.Target(name)
	require.True(t, ok)
	return target
}
