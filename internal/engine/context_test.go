package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binswap/internal/patcher"
)

func TestContext_CacheKeyImmutablePerRun(t *testing.T) {
	runCtx := NewContext()
	runCtx.SetCacheKey("Core", "first")
	runCtx.SetCacheKey("Core", "second")

	key, ok := runCtx.CacheKey("Core")
	require.True(t, ok)
	assert.Equal(t, "first", key)
}

func TestContext_CacheKeyMissing(t *testing.T) {
	_, ok := NewContext().CacheKey("Nope")
	assert.False(t, ok)
}

func TestContext_PlansSortedByUser(t *testing.T) {
	runCtx := NewContext()
	runCtx.SetPlan(&patcher.Plan{User: "Zeta"})
	runCtx.SetPlan(&patcher.Plan{User: "Alpha"})
	runCtx.SetPlan(&patcher.Plan{User: "Mid"})

	plans := runCtx.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "Alpha", plans[0].User)
	assert.Equal(t, "Mid", plans[1].User)
	assert.Equal(t, "Zeta", plans[2].User)
}
