package driver

import (
	"sync"

	"retype/internal/cgraph"
	"retype/internal/diag"
	"retype/internal/project"
)

type calleeEntry struct {
	hash   project.Digest
	graph  *cgraph.Graph
	broken bool
	first  *diag.Diagnostic
}

// calleeCache holds solved graphs that callers instantiate, by function
// name. Graphs are never mutated after Put; callers instantiate clones.
type calleeCache struct {
	mu     sync.RWMutex
	byName map[string]calleeEntry
}

func newCalleeCache(capHint int) *calleeCache {
	return &calleeCache{byName: make(map[string]calleeEntry, capHint)}
}

func (c *calleeCache) get(name string) (calleeEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	return e, ok
}

func (c *calleeCache) put(name string, e calleeEntry) {
	c.mu.Lock()
	c.byName[name] = e
	c.mu.Unlock()
}
