package patcher

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binswap/internal/graph"
)

func TestLinkagePreparer_AppendsSetting(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.cfg", "OTHER_LDFLAGS = $(inherited)\n")

	targets := map[string]*graph.Target{
		"A": {Name: "A", Settings: []string{settings}},
	}
	require.NoError(t, LinkagePreparer{}.Patch(targets))

	content, err := os.ReadFile(settings)
	require.NoError(t, err)
	assert.Equal(t, "OTHER_LDFLAGS = $(inherited)\nLINK_AGAINST_BINARY = YES\n", string(content))
}

func TestLinkagePreparer_Idempotent(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.cfg", "LINK_AGAINST_BINARY = YES\n")

	targets := map[string]*graph.Target{
		"A": {Name: "A", Settings: []string{settings}},
	}
	require.NoError(t, LinkagePreparer{}.Patch(targets))
	require.NoError(t, LinkagePreparer{}.Patch(targets))

	content, err := os.ReadFile(settings)
	require.NoError(t, err)
	assert.Equal(t, "LINK_AGAINST_BINARY = YES\n", string(content))
}

func TestLinkagePreparer_MissingSettingsFile(t *testing.T) {
	targets := map[string]*graph.Target{
		"A": {Name: "A", Settings: []string{"does/not/exist.cfg"}},
	}
	err := LinkagePreparer{}.Patch(targets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare linkage for A")
}

func TestLinkagePreparer_NoSettings(t *testing.T) {
	targets := map[string]*graph.Target{"A": {Name: "A"}}
	assert.NoError(t, LinkagePreparer{}.Patch(targets))
}
