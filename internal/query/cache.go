package query

import (
	"sync"
	"sync/atomic"
	"time"
)

// cacheEntry is one attribute's materialized distinct-value set.
type cacheEntry struct {
	values        []string
	lastRefreshed time.Time
	ttl           time.Duration
}

func (e cacheEntry) stale() bool {
	if e.ttl <= 0 {
		return true
	}
	return time.Since(e.lastRefreshed) > e.ttl
}

// ValueCache is a process-wide, per-attribute materialization of
// cardinality-safe attribute values. Stale entries are still served
// while a refresh is in flight — at most one refresh per attribute runs
// concurrently, guarded by refreshing.
type ValueCache struct {
	entries   sync.Map // string -> cacheEntry
	refreshing sync.Map // string -> *atomic.Bool
}

// NewValueCache builds an empty cache.
func NewValueCache() *ValueCache {
	return &ValueCache{}
}

// Get returns the cached values for key, even if stale; callers decide
// whether staleness warrants triggering a refresh.
func (c *ValueCache) Get(key string) ([]string, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	return entry.values, true
}

// Set stores a freshly loaded value set.
func (c *ValueCache) Set(key string, values []string, ttl time.Duration) {
	c.entries.Store(key, cacheEntry{values: values, lastRefreshed: time.Now(), ttl: ttl})
}

// Stale reports whether key's cached entry (if any) is due for refresh.
func (c *ValueCache) Stale(key string) bool {
	v, ok := c.entries.Load(key)
	if !ok {
		return true
	}
	return v.(cacheEntry).stale()
}

// BeginRefresh claims the refresh slot for key, returning false if
// another refresh for the same key is already running.
func (c *ValueCache) BeginRefresh(key string) bool {
	flag, _ := c.refreshing.LoadOrStore(key, new(atomic.Bool))
	return flag.(*atomic.Bool).CompareAndSwap(false, true)
}

// EndRefresh releases the refresh slot for key.
func (c *ValueCache) EndRefresh(key string) {
	if flag, ok := c.refreshing.Load(key); ok {
		flag.(*atomic.Bool).Store(false)
	}
}
