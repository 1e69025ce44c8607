package transport

import (
	"bytes"
	"sync"
)

// Cache stores fetched documents by location.
type Cache interface {
	Get(location string) ([]byte, bool)
	Put(location string, data []byte)
}

// MemoryCache keeps fetched documents in memory for the lifetime of the
// process. It is safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get returns the document cached for location. The returned slice is a copy
// and may be modified by the caller.
func (c *MemoryCache) Get(location string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[location]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Put stores a copy of data for location, replacing any earlier entry.
func (c *MemoryCache) Put(location string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[location] = bytes.Clone(data)
}

// Len returns the number of cached documents.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
