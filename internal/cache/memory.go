package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the L1 tier: decoded samples kept in process memory and
// evicted least recently used first once capacity bytes are exceeded.
//
// Stored slices are shared with callers and must be treated as read-only.
type MemoryCache struct {
	mu sync.RWMutex

	capacity int64
	used     int64
	byKey    map[string]*list.Element
	lru      *list.List // front is most recently used

	onEvict func(key string, size int64)
	stats   Stats
}

type sample struct {
	key      string
	pcm      []byte
	storedAt time.Time
}

func (s *sample) size() int64 { return int64(len(s.pcm)) }

// NewMemoryCache creates a memory tier holding at most capacity bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		byKey:    make(map[string]*list.Element),
		lru:      list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// SetOnEvict registers fn to be called for every entry dropped to make room.
// fn runs with the cache lock held and must not call back into the cache.
func (c *MemoryCache) SetOnEvict(fn func(key string, size int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvict = fn
}

// Get returns the sample stored under key and marks it most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.lru.MoveToFront(elem)

	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return elem.Value.(*sample).pcm, true
}

// Put stores value under key, evicting older samples as needed. Values
// larger than the whole tier are rejected with ErrItemTooLarge.
func (c *MemoryCache) Put(key string, value []byte) error {
	need := int64(len(value))
	if need > c.capacity {
		return ErrItemTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byKey[key]; ok {
		c.unlinkLocked(elem)
	}
	for c.used+need > c.capacity {
		if !c.evictLocked() {
			break
		}
	}

	c.byKey[key] = c.lru.PushFront(&sample{key: key, pcm: value, storedAt: time.Now()})
	c.used += need
	return nil
}

// Delete drops key if present.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byKey[key]; ok {
		c.unlinkLocked(elem)
	}
	return nil
}

// Clear drops every sample. Statistics are kept.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.byKey)
	c.lru.Init()
	c.used = 0
	return nil
}

func (c *MemoryCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.used
}

func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.Size = c.used
	s.ItemCount = int64(len(c.byKey))
	s.HitRate = hitRate(s.Hits, s.Misses)
	return s
}

// evictLocked drops the least recently used sample. It reports false when
// the tier is already empty.
func (c *MemoryCache) evictLocked() bool {
	elem := c.lru.Back()
	if elem == nil {
		return false
	}
	s := c.unlinkLocked(elem)

	c.stats.Evictions++
	c.stats.LastEvict = time.Now()
	if c.onEvict != nil {
		c.onEvict(s.key, s.size())
	}
	return true
}

func (c *MemoryCache) unlinkLocked(elem *list.Element) *sample {
	s := c.lru.Remove(elem).(*sample)
	delete(c.byKey, s.key)
	c.used -= s.size()
	return s
}
