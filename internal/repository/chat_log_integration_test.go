//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChatLogTest(t *testing.T) (context.Context, *ChatLogRepository) {
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() {
		_ = pc.Terminate(ctx)
	})

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	return ctx, NewChatLogRepository(pool)
}

func TestChatLogRepository_CreateAndList(t *testing.T) {
	ctx, repo := setupChatLogTest(t)

	err := repo.Create(ctx, &domain.ChatLog{
		BotID:    "resume-bot",
		Question: "Where did you work?",
		Response: "I worked at Acme.",
		Sources: []domain.Source{
			{Category: "Work", Similarity: 0.91},
			{Category: "Education", Similarity: 0.52},
		},
	})
	require.NoError(t, err)

	logs, err := repo.ListByBot(ctx, "resume-bot", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "resume-bot", entry.BotID)
	assert.Equal(t, "Where did you work?", entry.Question)
	assert.Equal(t, "I worked at Acme.", entry.Response)
	require.Len(t, entry.Sources, 2)
	assert.Equal(t, "Work", entry.Sources[0].Category)
	assert.InDelta(t, 0.91, entry.Sources[0].Similarity, 0.0001)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestChatLogRepository_Create_NoSources(t *testing.T) {
	ctx, repo := setupChatLogTest(t)

	err := repo.Create(ctx, &domain.ChatLog{
		BotID:    "resume-bot",
		Question: "What is your favourite colour?",
		Response: "I can only answer questions about this resume.",
	})
	require.NoError(t, err)

	logs, err := repo.ListByBot(ctx, "resume-bot", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Empty(t, logs[0].Sources)
}

func TestChatLogRepository_ListByBot_NewestFirstAndScoped(t *testing.T) {
	ctx, repo := setupChatLogTest(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &domain.ChatLog{
			BotID:     "resume-bot",
			Question:  q,
			Response:  "answer " + q,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.ChatLog{
		BotID:    "other-bot",
		Question: "other question",
		Response: "other answer",
	}))

	logs, err := repo.ListByBot(ctx, "resume-bot", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Question)
	assert.Equal(t, "second", logs[1].Question)
}
