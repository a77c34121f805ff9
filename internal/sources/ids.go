package sources

import (
	"encoding/json"
	"fmt"
	"sync"

	"repackhub/pkg/kvstore"
)

// Collection names used by the allocator cache and the kv store.
const (
	sourcesCollection = "sources"
	repacksCollection = "repacks"
)

// Allocator hands out monotonically increasing ids per collection. The
// first NextID call for a collection scans it once to find the current
// maximum; later calls just increment the cached value, so a whole
// ingestion batch costs a single scan.
//
// Any write path that creates ids without going through the allocator
// must call Invalidate afterwards, otherwise a later NextID could reuse
// an id from the stale cache.
type Allocator struct {
	mu   sync.Mutex
	last map[string]int
}

func NewAllocator() *Allocator {
	return &Allocator{last: make(map[string]int)}
}

// NextID returns the next id for the named collection, scanning sub for
// the current maximum only when the cache is cold. An empty collection
// yields 1.
func (a *Allocator) NextID(name string, sub kvstore.Sublevel) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if last, ok := a.last[name]; ok {
		a.last[name] = last + 1
		return last + 1, nil
	}

	maxID := 0
	err := sub.Iterate(func(_ string, value []byte) bool {
		var rec struct {
			ID int `json:"id"`
		}
		if json.Unmarshal(value, &rec) == nil && rec.ID > maxID {
			maxID = rec.ID
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("scan %s for max id: %w", name, err)
	}

	a.last[name] = maxID + 1
	return maxID + 1, nil
}

// Invalidate drops every cached maximum, forcing the next NextID call per
// collection to re-scan.
func (a *Allocator) Invalidate() {
	a.mu.Lock()
	a.last = make(map[string]int)
	a.mu.Unlock()
}
