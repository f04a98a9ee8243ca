package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/botsmith-ai/botsmith/internal/botconfig"
)

// BotRegistry lists bots and their serving configuration.
type BotRegistry interface {
	ListBots() ([]string, error)
	LoadConfig(botID string) (*botconfig.BotConfig, error)
}

// ChunkCache preloads a bot's embedded chunks.
type ChunkCache interface {
	Warm(ctx context.Context, botID string) (int, error)
	Cached(botID string) bool
}

// WarmupTask preloads the embedding cache for every enabled bot so the first
// question after a restart does not pay the database load.
type WarmupTask struct {
	bots  BotRegistry
	cache ChunkCache
}

func NewWarmupTask(bots BotRegistry, cache ChunkCache) *WarmupTask {
	return &WarmupTask{
		bots:  bots,
		cache: cache,
	}
}

// Run warms each enabled bot's cache that is not yet in memory. Bots already
// cached keep their entry; a partition refresh warms its own cache. Per-bot
// failures are logged and do not stop the pass; only failing to list bots
// aborts.
func (t *WarmupTask) Run(ctx context.Context) error {
	botIDs, err := t.bots.ListBots()
	if err != nil {
		return fmt.Errorf("failed to list bots: %w", err)
	}

	for _, botID := range botIDs {
		if t.cache.Cached(botID) {
			continue
		}

		cfg, err := t.bots.LoadConfig(botID)
		if err != nil {
			log.Printf("warmup: skipping bot %s: %v", botID, err)
			continue
		}
		if !cfg.Enabled {
			continue
		}

		count, err := t.cache.Warm(ctx, botID)
		if err != nil {
			log.Printf("warmup: failed to warm bot %s: %v", botID, err)
			continue
		}
		log.Printf("warmup: bot %s cached %d chunks", botID, count)
	}

	return nil
}
