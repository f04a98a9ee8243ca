package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatLogRepository stores completed chat interactions for later review.
type ChatLogRepository struct {
	pool *pgxpool.Pool
}

func NewChatLogRepository(pool *pgxpool.Pool) *ChatLogRepository {
	return &ChatLogRepository{pool: pool}
}

// Create writes one chat log row. Sources are stored as JSON.
func (r *ChatLogRepository) Create(ctx context.Context, entry *domain.ChatLog) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	sources := entry.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO chat_logs (id, bot_id, question, response, sources, source_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, entry.BotID, entry.Question, entry.Response, sourcesJSON, len(sources), createdAt,
	)
	return err
}

// ListByBot returns the most recent chat logs for a bot, newest first.
func (r *ChatLogRepository) ListByBot(ctx context.Context, botID string, limit int) ([]*domain.ChatLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, bot_id, question, response, sources, created_at
		 FROM chat_logs WHERE bot_id = $1 ORDER BY created_at DESC LIMIT $2`,
		botID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ChatLog
	for rows.Next() {
		var entry domain.ChatLog
		var sourcesJSON []byte
		if err := rows.Scan(&entry.ID, &entry.BotID, &entry.Question, &entry.Response, &sourcesJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &entry.Sources); err != nil {
				return nil, err
			}
		}
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
