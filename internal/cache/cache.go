// Package cache provides the bounded result cache for compiled artifacts
// with least-recently-used eviction.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultCapacity bounds the number of compiled artifacts kept in memory
// when no explicit capacity is configured.
const DefaultCapacity = 200

// ResultCache maps cache keys to compiled output text (module or
// stylesheet). It is shared process-wide for the duration of a dev-server
// session and holds no file handles.
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	capacity int

	// LRU doubly-linked list with sentinel head and tail.
	head *entry
	tail *entry

	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	key   string
	value string
	prev  *entry
	next  *entry
}

// New creates a result cache. A non-positive capacity selects
// DefaultCapacity.
func New(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &ResultCache{
		entries:  make(map[string]*entry),
		capacity: capacity,
	}
	c.head = &entry{}
	c.tail = &entry{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the cached text for key. A hit promotes the entry to
// most-recently-used.
func (c *ResultCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}

	c.moveToFront(e)
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Has reports whether key is cached without touching recency.
func (c *ResultCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// Set stores text under key. An existing key refreshes recency without
// changing capacity accounting; a new key evicts the least-recently-used
// entry first when the cache is full.
func (c *ResultCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	if len(c.entries) >= c.capacity {
		lru := c.tail.prev
		if lru != c.head {
			c.removeFromList(lru)
			delete(c.entries, lru.key)
			atomic.AddInt64(&c.evictions, 1)
		}
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)
}

// Clear removes all entries and resets statistics. Invoked on dev-server
// (re)configuration.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// PurgePrefix removes every entry whose key starts with prefix and returns
// the number removed. Cache keys embed the component path as their prefix,
// so this invalidates all artifacts of one file on hot update.
func (c *ResultCache) PurgePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeFromList(e)
			delete(c.entries, key)
			purged++
		}
	}

	return purged
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit, miss and eviction counters.
func (c *ResultCache) Stats() (hits, misses, evictions int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), atomic.LoadInt64(&c.evictions)
}

func (c *ResultCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *ResultCache) removeFromList(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *ResultCache) moveToFront(e *entry) {
	c.removeFromList(e)
	c.addToFront(e)
}
