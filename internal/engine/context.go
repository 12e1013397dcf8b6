package engine

import (
	"sort"
	"sync"

	"binswap/internal/patcher"
)

// Pipeline stage names, reported through the observational sink and
// carried on SubstitutionError.Stage.
const (
	StageSelect  = "select"
	StageBackup  = "backup"
	StageLink    = "link-prepare"
	StageHash    = "hash"
	StageAnalyze = "analyze"
	StageResolve = "resolve-artifacts"
	StagePatch   = "patch-files"
	StageMutate  = "mutate-graph"
	StagePersist = "persist"
)

// Context is the per-run side table for derived state. Cache keys,
// binary-user plans, and exclusions live here - never on the graph's
// persistent entities - so nothing derived can outlive the run.
//
// Writes from concurrent stage units go through the mutex; each unit
// writes only its own target's entries, reads happen after the stage
// joins.
type Context struct {
	mu    sync.Mutex
	keys  map[string]string        // target name -> cache key
	plans map[string]*patcher.Plan // binary user name -> plan
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{
		keys:  make(map[string]string),
		plans: make(map[string]*patcher.Plan),
	}
}

// SetCacheKey records the cache key computed for a target. A key, once
// set, is immutable for the run; a second set for the same target is
// ignored.
func (c *Context) SetCacheKey(target, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, done := c.keys[target]; !done {
		c.keys[target] = key
	}
}

// CacheKey returns the cache key recorded for a target.
func (c *Context) CacheKey(target string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.keys[target]
	return key, ok
}

// SetPlan records the substitution plan for a binary user.
func (c *Context) SetPlan(p *patcher.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[p.User] = p
}

// Plan returns the plan recorded for a binary user.
func (c *Context) Plan(user string) (*patcher.Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.plans[user]
	return p, ok
}

// Plans returns all recorded plans sorted by user name, for
// deterministic iteration in the patch stages.
func (c *Context) Plans() []*patcher.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	users := make([]string, 0, len(c.plans))
	for user := range c.plans {
		users = append(users, user)
	}
	sort.Strings(users)
	plans := make([]*patcher.Plan, 0, len(users))
	for _, user := range users {
		plans = append(plans, c.plans[user])
	}
	return plans
}
