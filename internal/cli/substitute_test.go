package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binswap/internal/engine"
	"binswap/internal/graph"
	"binswap/internal/store"
	"binswap/internal/testutil"
)

// substituteFixture lays out a project with A <- B on disk, plus a
// local store holding A's artifact under its real cache key.
type substituteFixture struct {
	project  string
	storeDir string
}

func newSubstituteFixture(t *testing.T) *substituteFixture {
	t.Helper()
	dir := t.TempDir()

	aSrc := testutil.WriteSource(t, dir, "a/main.c", "int a() { return 0; }\n")
	g := testutil.BuildGraph(t, dir,
		testutil.Framework("A", nil, aSrc),
		testutil.StaticLibrary("B", []string{"A"}, testutil.WriteSource(t, dir, "b/main.c", "int b() { return 1; }\n")),
	)

	// The artifact is keyed exactly as the engine will hash A.
	key, err := engine.NewHasher(g, nil).CacheKey(mustTarget(t, g, "A"))
	require.NoError(t, err)

	storeDir := filepath.Join(dir, "store")
	s, err := store.Open(storeDir)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Put(context.Background(), "A", key, []byte("prebuilt A"))
	require.NoError(t, err)

	return &substituteFixture{project: g.Path(), storeDir: storeDir}
}

func mustTarget(t *testing.T, g *graph.Graph, name string) *graph.Target {
	t.Helper()
	target, ok := g.Target(name)
	require.True(t, ok)
	return target
}

func TestSubstitute_TryMode(t *testing.T) {
	f := newSubstituteFixture(t)

	out, err := execute(t, "substitute", f.project, "--targets", "A", "--store", f.storeDir, "--try")
	require.NoError(t, err)
	assert.Contains(t, out, "would substitute")
	assert.Contains(t, out, "A")

	// Nothing was mutated.
	g, err := graph.Load(f.project)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, g.TargetNames())
	assert.False(t, g.IsAlreadySubstituted())
}

func TestSubstitute_TryMode_NoMatch(t *testing.T) {
	f := newSubstituteFixture(t)

	out, err := execute(t, "substitute", f.project, "--targets", "Ghost", "--store", f.storeDir, "--try")
	require.NoError(t, err)
	assert.Contains(t, out, "no targets matched")
}

func TestSubstitute_EndToEnd(t *testing.T) {
	f := newSubstituteFixture(t)

	_, err := execute(t, "substitute", f.project, "--targets", "A", "--store", f.storeDir)
	require.NoError(t, err)

	g, err := graph.Load(f.project)
	require.NoError(t, err)
	assert.True(t, g.IsAlreadySubstituted())

	_, ok := g.Target("A")
	assert.False(t, ok)
	b := mustTarget(t, g, "B")
	assert.Empty(t, b.Dependencies)
	require.Len(t, b.Binaries, 1)
}

func TestSubstitute_SecondRunFails(t *testing.T) {
	f := newSubstituteFixture(t)

	_, err := execute(t, "substitute", f.project, "--targets", "A", "--store", f.storeDir)
	require.NoError(t, err)

	_, err = execute(t, "substitute", f.project, "--targets", "A", "--store", f.storeDir)
	require.Error(t, err)
	assert.True(t, engine.IsAlreadySubstituted(err))
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSubstitute_MissingArtifact(t *testing.T) {
	f := newSubstituteFixture(t)

	// A different flag list changes the key; no artifact exists for it.
	_, err := execute(t, "substitute", f.project, "--targets", "A", "--store", f.storeDir, "--flag", "-O3")
	require.Error(t, err)
	assert.True(t, engine.IsArtifactNotFound(err))

	// The backup taken before the failed run restores the project.
	_, err = execute(t, "restore", f.project)
	require.NoError(t, err)
	g, err := graph.Load(f.project)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, g.TargetNames())
}

func TestSubstitute_ScopeFlagConflicts(t *testing.T) {
	f := newSubstituteFixture(t)

	_, err := execute(t, "substitute", f.project, "--targets", "A", "--include", "^A", "--store", f.storeDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHashCommand(t *testing.T) {
	f := newSubstituteFixture(t)

	out, err := execute(t, "hash", f.project, "--targets", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "A")
	// A sha256 hex digest plus the target name.
	assert.Regexp(t, `[0-9a-f]{64}  A`, out)
}
