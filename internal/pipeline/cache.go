package pipeline

import (
	"sync"
	"time"
)

// Constructor builds a pipeline handle. It is expensive: the worker loads
// multi-gigabyte weights.
type Constructor func() (*Pipeline, error)

type cacheEntry struct {
	pipe       *Pipeline
	lastUsedAt time.Time
}

// Cache keys constructed pipelines by model id and guarantees at most one
// construction per key for the process lifetime. There is no eviction: the
// loadable model set is small and fixed at deployment time, bounded by the
// memory the operator provisions.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
	}
}

// GetOrCreate returns the cached handle for modelID, invoking construct on
// first use. A failed construction caches nothing, so the next call retries.
func (c *Cache) GetOrCreate(modelID string, construct Constructor) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[modelID]; ok {
		entry.lastUsedAt = time.Now()
		return entry.pipe, nil
	}

	pipe, err := construct()
	if err != nil {
		return nil, err
	}

	c.entries[modelID] = &cacheEntry{
		pipe:       pipe,
		lastUsedAt: time.Now(),
	}

	return pipe, nil
}

// Loaded returns the model ids with a resident pipeline.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}

	return ids
}

func (c *Cache) LastUsed(modelID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[modelID]
	if !ok {
		return time.Time{}, false
	}

	return entry.lastUsedAt, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close shuts down every cached pipeline. Only called on process exit.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.entries {
		entry.pipe.Close()
	}
	c.entries = make(map[string]*cacheEntry)
}
