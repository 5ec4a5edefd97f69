package cache

// contains reports whether key is cached without touching recency.
func (c *MemoryCache) contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.byKey[key]
	return ok
}

func (dc *DiskCache) contains(key string) bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	_, ok := dc.entries[key]
	return ok
}
