package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binswap/internal/graph"
	"binswap/internal/testutil"
)

func projectFixture(t *testing.T) *graph.Graph {
	t.Helper()
	dir := t.TempDir()
	return testutil.BuildGraph(t, dir,
		testutil.Framework("Core", nil),
		testutil.StaticLibrary("Net", []string{"Core"}),
	)
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	g := projectFixture(t)
	coord := NewCoordinator(filepath.Join(t.TempDir(), "backups"))

	snap, err := coord.Take(g.Path(), KindOriginal)
	require.NoError(t, err)
	assert.Equal(t, KindOriginal, snap.Kind)
	assert.NotEmpty(t, snap.ID)

	// Restoring with no intervening mutation reproduces the original
	// target mapping exactly.
	require.NoError(t, coord.Restore(snap, g.Path()))
	restored, err := graph.Load(g.Path())
	require.NoError(t, err)
	assert.True(t, graph.Equal(g, restored))
}

func TestBackupRestore_UndoesMutation(t *testing.T) {
	g := projectFixture(t)
	coord := NewCoordinator(filepath.Join(t.TempDir(), "backups"))

	snap, err := coord.Take(g.Path(), KindOriginal)
	require.NoError(t, err)

	// Mutate and persist.
	net, _ := g.Target("Net")
	net.RemoveDependency("Core")
	g.MarkAsSubstituted()
	require.NoError(t, g.Save())

	require.NoError(t, coord.Restore(snap, g.Path()))
	restored, err := graph.Load(g.Path())
	require.NoError(t, err)

	assert.False(t, restored.IsAlreadySubstituted())
	restoredNet, _ := restored.Target("Net")
	assert.Equal(t, []string{"Core"}, restoredNet.Dependencies)
}

func TestBackup_EngineInterface(t *testing.T) {
	g := projectFixture(t)
	dir := filepath.Join(t.TempDir(), "backups")
	coord := NewCoordinator(dir)

	require.NoError(t, coord.Backup(g, KindOriginal))

	snap, err := coord.Latest(KindOriginal)
	require.NoError(t, err)
	assert.Equal(t, g.Path(), snap.Project)
}

func TestLatest_PicksNewest(t *testing.T) {
	g := projectFixture(t)
	coord := NewCoordinator(filepath.Join(t.TempDir(), "backups"))

	first, err := coord.Take(g.Path(), KindOriginal)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := coord.Take(g.Path(), KindOriginal)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	latest, err := coord.Latest(KindOriginal)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestLatest_NoSnapshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	_, err := NewCoordinator(dir).Latest(KindOriginal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no \"original\" snapshots")
}

func TestLatest_IgnoresOtherKinds(t *testing.T) {
	g := projectFixture(t)
	coord := NewCoordinator(filepath.Join(t.TempDir(), "backups"))

	_, err := coord.Take(g.Path(), "checkpoint")
	require.NoError(t, err)

	_, err = coord.Latest(KindOriginal)
	require.Error(t, err)
}

func TestBackup_MissingProjectFile(t *testing.T) {
	coord := NewCoordinator(filepath.Join(t.TempDir(), "backups"))
	_, err := coord.Take(filepath.Join(t.TempDir(), "absent.yml"), KindOriginal)
	require.Error(t, err)
}
