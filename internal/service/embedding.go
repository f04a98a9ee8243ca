package service

import (
	"context"
	"fmt"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/telemetry"
)

// EntryChunker turns a bot's knowledge entries into retrievable chunks.
type EntryChunker interface {
	Chunk(botID string) ([]domain.Chunk, error)
}

// EmbeddingClient generates embeddings for chunk text.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore persists a bot's chunk partition.
type ChunkStore interface {
	Exists(ctx context.Context, botID string) (bool, error)
	ReplaceAll(ctx context.Context, botID string, chunks []domain.Chunk) error
}

// CacheWarmer reloads a bot's cached chunks after storage changes.
type CacheWarmer interface {
	Warm(ctx context.Context, botID string) (int, error)
}

// EmbeddingService rebuilds one bot's chunk partition end to end: chunk the
// source entries, embed every chunk, then kill-and-fill the stored set.
type EmbeddingService struct {
	chunker EntryChunker
	client  EmbeddingClient
	store   ChunkStore
	cache   CacheWarmer
}

// NewEmbeddingService creates an EmbeddingService. cache may be nil when no
// in-process cache needs refreshing, as in the one-shot CLI.
func NewEmbeddingService(chunker EntryChunker, client EmbeddingClient, store ChunkStore, cache CacheWarmer) *EmbeddingService {
	return &EmbeddingService{
		chunker: chunker,
		client:  client,
		store:   store,
		cache:   cache,
	}
}

// Rebuild regenerates the bot's stored chunks and returns how many were
// written. Any embedding failure aborts the run before storage is touched,
// so a flaky provider cannot leave a half-embedded partition behind.
func (s *EmbeddingService) Rebuild(ctx context.Context, botID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.Rebuild", telemetry.SpanAttributes{
		BotID:     botID,
		Operation: "rebuild",
	})
	defer span.End()

	chunks, err := s.chunker.Chunk(botID)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk entries for bot %q: %w", botID, err)
	}

	for i := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, chunks[i].Text)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %q: %w", chunks[i].ID, err)
		}
		chunks[i].Embedding = embedding
	}

	if err := s.store.ReplaceAll(ctx, botID, chunks); err != nil {
		return 0, err
	}

	if s.cache != nil {
		if _, err := s.cache.Warm(ctx, botID); err != nil {
			return len(chunks), fmt.Errorf("chunks stored but cache refresh failed: %w", err)
		}
	}

	return len(chunks), nil
}

// HasEmbeddings reports whether the bot already has a stored chunk set.
func (s *EmbeddingService) HasEmbeddings(ctx context.Context, botID string) (bool, error) {
	return s.store.Exists(ctx, botID)
}
