// Package cache holds per-bot chunk sets in process memory so retrieval
// does not hit the database on every request.
package cache

import (
	"context"
	"sync"

	"github.com/botsmith-ai/botsmith/internal/domain"
)

// ChunkLoader loads a bot's full chunk set from persistent storage.
type ChunkLoader interface {
	LoadAll(ctx context.Context, botID string) ([]domain.Chunk, error)
}

// EmbeddingCache is a lazy, per-bot cache of embedded chunks. The first Get
// for a bot loads from storage; later Gets are served from memory until the
// entry is invalidated or overwritten by Warm.
type EmbeddingCache struct {
	loader ChunkLoader

	mu      sync.RWMutex
	entries map[string][]domain.Chunk
}

func NewEmbeddingCache(loader ChunkLoader) *EmbeddingCache {
	return &EmbeddingCache{
		loader:  loader,
		entries: make(map[string][]domain.Chunk),
	}
}

// Get returns the bot's chunks, loading them on first access. A load error
// leaves the cache unpopulated so the next Get retries.
func (c *EmbeddingCache) Get(ctx context.Context, botID string) ([]domain.Chunk, error) {
	c.mu.RLock()
	chunks, ok := c.entries[botID]
	c.mu.RUnlock()
	if ok {
		return chunks, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have loaded while we waited for the lock.
	if chunks, ok := c.entries[botID]; ok {
		return chunks, nil
	}

	chunks, err := c.loader.LoadAll(ctx, botID)
	if err != nil {
		return nil, err
	}
	c.entries[botID] = chunks
	return chunks, nil
}

// Warm loads the bot's chunks from storage unconditionally, replacing any
// cached entry. Used at startup and after a partition refresh.
func (c *EmbeddingCache) Warm(ctx context.Context, botID string) (int, error) {
	chunks, err := c.loader.LoadAll(ctx, botID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[botID] = chunks
	c.mu.Unlock()

	return len(chunks), nil
}

// Invalidate drops the cached entry for a bot. The next Get reloads.
func (c *EmbeddingCache) Invalidate(botID string) {
	c.mu.Lock()
	delete(c.entries, botID)
	c.mu.Unlock()
}

// Cached reports whether a bot's chunks are currently in memory.
func (c *EmbeddingCache) Cached(botID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[botID]
	return ok
}
