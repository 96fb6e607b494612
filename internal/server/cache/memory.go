package cache

import (
	"context"
	"sync"

	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// MemoryCache is a process-local EntryCache used for single-node
// deployments and tests. Access is single-key atomic under one mutex.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]models.FileEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]models.FileEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, userID string) ([]models.FileEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, ok := c.entries[userID]
	if !ok {
		return nil, false, nil
	}
	out := make([]models.FileEntry, len(entries))
	copy(out, entries)
	return out, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, userID string, entries []models.FileEntry) error {
	stored := make([]models.FileEntry, len(entries))
	copy(stored, entries)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = stored
	return nil
}

func (c *MemoryCache) Evict(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}
