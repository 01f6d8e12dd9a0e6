package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/conhub/rde/internal/model"
)

type memoryEntry struct {
	key   string
	entry Entry
}

// MemoryCache is a process-local LRU cache with per-entry TTL, used by
// tests. Eviction is strict LRU once maxEntries is reached.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time

	order *list.List // front = most recently used
	items map[string]*list.Element
}

// NewMemoryCache returns an empty cache capped at maxEntries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		now:        time.Now,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (model.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return model.QueryResult{}, false
	}
	me := el.Value.(*memoryEntry)
	if c.now().Sub(me.entry.CreatedAt) > me.entry.TTL {
		c.order.Remove(el)
		delete(c.items, key)
		return model.QueryResult{}, false
	}

	c.order.MoveToFront(el)
	return me.entry.Value, true
}

func (c *MemoryCache) Put(_ context.Context, key string, value model.QueryResult, ttl time.Duration, sourceTypesTouched []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{Value: value, CreatedAt: c.now(), TTL: ttl, SourceTypesTouched: sourceTypesTouched}

	if el, ok := c.items[key]; ok {
		el.Value.(*memoryEntry).entry = entry
		c.order.MoveToFront(el)
		return nil
	}

	el := c.order.PushFront(&memoryEntry{key: key, entry: entry})
	c.items[key] = el

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, tenantID string, sourceTypes []model.ModalityHint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	touch := map[string]bool{}
	for _, tag := range Tags(tenantID, sourceTypes) {
		touch[tag] = true
	}

	var toRemove []*list.Element
	for el := c.order.Front(); el != nil; el = el.Next() {
		me := el.Value.(*memoryEntry)
		for _, st := range me.entry.SourceTypesTouched {
			if touch[st] {
				toRemove = append(toRemove, el)
				break
			}
		}
	}
	for _, el := range toRemove {
		c.order.Remove(el)
		delete(c.items, el.Value.(*memoryEntry).key)
	}
	return nil
}

func (c *MemoryCache) Size(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
