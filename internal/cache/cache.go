// Package cache memoizes search results in a capacity-bounded FIFO.
//
// Eviction is strictly insertion-ordered: when the cache is full the
// oldest-inserted entry is dropped, regardless of how recently it was read.
// Re-putting an existing key replaces its value without refreshing its
// position in the eviction queue. This ordering is part of the contract,
// not an accident of map iteration.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/dshills/flashdeck/pkg/types"
)

// DefaultCapacity bounds the cache when no explicit capacity is given
const DefaultCapacity = 100

// entry is one cached query result set
type entry struct {
	key        string
	results    []*types.SearchResult
	insertedAt time.Time
}

// Cache is a bounded FIFO query-result cache, safe for concurrent use
type Cache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = oldest inserted
}

// New creates a cache bounded to capacity entries
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Key builds the deterministic cache key for a query and its filters.
// Semantically identical filter values always produce the same key.
func Key(query string, filters types.SearchFilters) string {
	return query + "\x00" + filters.Key()
}

// Get returns a copy of the cached results for key, or false on a miss
func (c *Cache) Get(key string) ([]*types.SearchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return copyResults(elem.Value.(*entry).results), true
}

// Put stores results under key, evicting the oldest-inserted entry when the
// cache is full. The stored copy is detached from the caller's slice.
func (c *Cache) Put(key string, results []*types.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := copyResults(results)

	if elem, ok := c.entries[key]; ok {
		// Replace in place; FIFO position is set at first insertion
		e := elem.Value.(*entry)
		e.results = stored
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}

	c.entries[key] = c.order.PushBack(&entry{
		key:        key,
		results:    stored,
		insertedAt: time.Now(),
	})
}

// Clear removes all cached entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// copyResults deep-copies a result slice so cached data can't be mutated
// through slices handed to or from callers
func copyResults(src []*types.SearchResult) []*types.SearchResult {
	dst := make([]*types.SearchResult, len(src))
	for i, r := range src {
		cp := &types.SearchResult{
			RelevanceScore: r.RelevanceScore,
			MatchedFields:  append([]types.FieldTag(nil), r.MatchedFields...),
		}

		if r.Card != nil {
			card := *r.Card
			card.Pronunciations = append([]string(nil), r.Card.Pronunciations...)
			cp.Card = &card
		}

		if r.Highlighted != nil {
			cp.Highlighted = make(map[types.FieldTag]string, len(r.Highlighted))
			for k, v := range r.Highlighted {
				cp.Highlighted[k] = v
			}
		}

		dst[i] = cp
	}
	return dst
}
