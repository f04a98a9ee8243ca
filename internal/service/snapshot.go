package service

import (
	"context"
	"fmt"
	"time"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/storage"
)

// SnapshotStorage reads, writes, and removes per-bot chunk snapshots.
type SnapshotStorage interface {
	PutSnapshot(ctx context.Context, snapshot *storage.Snapshot) error
	GetSnapshot(ctx context.Context, botID string) (*storage.Snapshot, error)
	DeleteSnapshot(ctx context.Context, botID string) error
}

// SnapshotChunkStore is the slice of chunk persistence the snapshot flow
// needs.
type SnapshotChunkStore interface {
	LoadAll(ctx context.Context, botID string) ([]domain.Chunk, error)
	ReplaceAll(ctx context.Context, botID string, chunks []domain.Chunk) error
}

// SnapshotService exports a bot's embedded chunks to object storage and
// restores them, skipping the embedding API entirely on import.
type SnapshotService struct {
	chunks SnapshotChunkStore
	store  SnapshotStorage

	now func() time.Time
}

func NewSnapshotService(chunks SnapshotChunkStore, store SnapshotStorage) *SnapshotService {
	return &SnapshotService{
		chunks: chunks,
		store:  store,
		now:    time.Now,
	}
}

// Export writes the bot's current chunk set to storage and returns how many
// chunks it contained.
func (s *SnapshotService) Export(ctx context.Context, botID string) (int, error) {
	chunks, err := s.chunks.LoadAll(ctx, botID)
	if err != nil {
		return 0, fmt.Errorf("failed to load chunks for bot %q: %w", botID, err)
	}

	snapshot := &storage.Snapshot{
		BotID:      botID,
		ExportedAt: s.now().UTC(),
		Chunks:     chunks,
	}
	if err := s.store.PutSnapshot(ctx, snapshot); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

// Import replaces the bot's stored chunks with the snapshot's contents. The
// snapshot's bot id must match the target partition.
func (s *SnapshotService) Import(ctx context.Context, botID string) (int, error) {
	snapshot, err := s.store.GetSnapshot(ctx, botID)
	if err != nil {
		return 0, err
	}
	if snapshot.BotID != botID {
		return 0, fmt.Errorf("snapshot belongs to bot %q, not %q", snapshot.BotID, botID)
	}

	if err := s.chunks.ReplaceAll(ctx, botID, snapshot.Chunks); err != nil {
		return 0, err
	}

	return len(snapshot.Chunks), nil
}

// Delete removes the bot's stored snapshot. The database partition is left
// untouched.
func (s *SnapshotService) Delete(ctx context.Context, botID string) error {
	return s.store.DeleteSnapshot(ctx, botID)
}
