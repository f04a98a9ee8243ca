//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/botsmith-ai/botsmith/internal/api/handlers"
	"github.com/botsmith-ai/botsmith/internal/botconfig"
	"github.com/botsmith-ai/botsmith/internal/cache"
	"github.com/botsmith-ai/botsmith/internal/chunker"
	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/repository"
	"github.com/botsmith-ai/botsmith/internal/server"
	"github.com/botsmith-ai/botsmith/internal/service"
	"github.com/botsmith-ai/botsmith/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// TestEnv holds the full stack: a real Postgres container, the wired services,
// and an HTTP server running the production router. Only the OpenAI calls are
// scripted.
type TestEnv struct {
	Ctx       context.Context
	Pool      *pgxpool.Pool
	Server    *httptest.Server
	BotsDir   string
	Embedder  *scriptedEmbedder
	Completer *scriptedCompleter
	EmbedSvc  *service.EmbeddingService
}

// scriptedEmbedder returns fixed vectors per keyword so retrieval behaves
// deterministically without the embedding API. Texts mentioning guitars land
// near the guitar axis, everything else near the work axis.
type scriptedEmbedder struct{}

func axisEmbedding(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func (e *scriptedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "guitar") {
		return axisEmbedding(1), nil
	}
	return axisEmbedding(0), nil
}

// scriptedCompleter replays a canned response, word by word when streaming.
type scriptedCompleter struct {
	Response string

	// LastMessages records the message sequence of the most recent call so
	// tests can assert on the assembled prompt.
	LastMessages []domain.ChatMessage
}

func (c *scriptedCompleter) Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	c.LastMessages = messages
	return c.Response, nil
}

func (c *scriptedCompleter) CompleteStream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage, onFragment func(string) error) (string, error) {
	c.LastMessages = messages
	for _, fragment := range strings.SplitAfter(c.Response, " ") {
		if err := onFragment(fragment); err != nil {
			return "", err
		}
	}
	return c.Response, nil
}

// SetupEnv starts Postgres, writes a bots directory with one enabled and one
// disabled bot, and serves the production router over HTTP.
func SetupEnv(t *testing.T) *TestEnv {
	t.Helper()
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	botsDir := t.TempDir()
	writeBot(t, botsDir, "resume-bot", true)
	writeBot(t, botsDir, "dormant-bot", false)

	bots := botconfig.NewLoader(botsDir)
	chunkRepo := repository.NewChunkRepository(pool)
	chatLogRepo := repository.NewChatLogRepository(pool)
	chunkCache := cache.NewEmbeddingCache(chunkRepo)

	embedder := &scriptedEmbedder{}
	completer := &scriptedCompleter{Response: "I spent five years at Acme Corp."}

	retrievalSvc := service.NewRetrievalService(embedder, chunkCache)
	chatSvc := service.NewChatService(bots, retrievalSvc, completer, chatLogRepo)
	embedSvc := service.NewEmbeddingService(chunker.New(bots), embedder, chunkRepo, chunkCache)

	chatHandler := handlers.NewChatHandler(chatSvc, bots, chunkCache, true)
	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{ChatHandler: chatHandler}))
	t.Cleanup(srv.Close)

	return &TestEnv{
		Ctx:       ctx,
		Pool:      pool,
		Server:    srv,
		BotsDir:   botsDir,
		Embedder:  embedder,
		Completer: completer,
		EmbedSvc:  embedSvc,
	}
}

func writeBot(t *testing.T, root, botID string, enabled bool) {
	t.Helper()
	dir := filepath.Join(root, botID)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0755))

	configYML := fmt.Sprintf(`bot:
  enabled: %t
  name: ResumeBot
  personality: friendly
  rag:
    top_k: 3
    similarity_threshold: 0.4
suggestions:
  - "What do you do for work?"
  - "Do you play any instruments?"
`, enabled)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(configYML), 0644))

	promptYML := `prompt: "You are ResumeBot. Today is {current_date}."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.yml"), []byte(promptYML), 0644))

	dataYML := `entries:
  - id: work1
    category: Work
    heading: Acme Corp
    content: Five years as a backend engineer at Acme Corp.
  - id: hobby1
    category: Hobbies
    heading: Guitar
    content: Plays guitar in a weekend band.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "entries.yml"), []byte(dataYML), 0644))
}
