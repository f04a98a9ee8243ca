package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// insertBatchSize bounds how many rows go into one pgx batch during a
// kill-and-fill run.
const insertBatchSize = 25

// ChunkRepository persists embedded chunks, partitioned by bot_id. Every
// statement is scoped to one partition; rows belonging to other bots are
// never touched.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

// Exists reports whether any chunk row is present for the bot.
func (r *ChunkRepository) Exists(ctx context.Context, botID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bot_chunks WHERE bot_id = $1)`,
		botID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ReplaceAll deletes every chunk for the bot and inserts the new set
// (kill-and-fill). Delete and insert run as separate batches, not one
// transaction: a failure mid-run can leave the partition partially written,
// an accepted operational risk of the refresh pipeline.
func (r *ChunkRepository) ReplaceAll(ctx context.Context, botID string, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if err := domain.ValidateChunk(&c); err != nil {
			return fmt.Errorf("invalid chunk %q: %w", c.ID, err)
		}
		if c.BotID != botID {
			return fmt.Errorf("chunk %q belongs to bot %q, not %q", c.ID, c.BotID, botID)
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM bot_chunks WHERE bot_id = $1`, botID); err != nil {
		return fmt.Errorf("failed to clear chunks for bot %q: %w", botID, err)
	}

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			batch.Queue(
				`INSERT INTO bot_chunks (id, bot_id, category, heading, content, embedding, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				c.ID, c.BotID, c.Category, c.Heading, c.Text, pgvector.NewVector(c.Embedding), createdAt,
			)
		}

		results := r.db.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert chunk %q: %w", chunks[i].ID, err)
			}
		}
		if err := results.Close(); err != nil {
			return err
		}
	}

	return nil
}

// LoadAll reads one bot's full chunk set, embeddings included. Used to
// populate the in-process cache.
func (r *ChunkRepository) LoadAll(ctx context.Context, botID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, bot_id, category, heading, content, embedding, created_at
		 FROM bot_chunks WHERE bot_id = $1 ORDER BY id`,
		botID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := make([]domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		var heading *string
		var embedding pgvector.Vector
		if err := rows.Scan(&c.ID, &c.BotID, &c.Category, &heading, &c.Text, &embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		if heading != nil {
			c.Heading = *heading
		}
		c.Embedding = embedding.Slice()
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the number of chunks stored for a bot.
func (r *ChunkRepository) Count(ctx context.Context, botID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bot_chunks WHERE bot_id = $1`,
		botID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
