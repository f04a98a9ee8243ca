package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/botsmith-ai/botsmith/internal/api/handlers"
	"github.com/botsmith-ai/botsmith/internal/botconfig"
	"github.com/botsmith-ai/botsmith/internal/cache"
	"github.com/botsmith-ai/botsmith/internal/config"
	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/jobs"
	"github.com/botsmith-ai/botsmith/internal/openai"
	"github.com/botsmith-ai/botsmith/internal/repository"
	"github.com/botsmith-ai/botsmith/internal/server"
	"github.com/botsmith-ai/botsmith/internal/service"
	"github.com/botsmith-ai/botsmith/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chatbot API server",
		Long:  "Start the botsmith API server serving every enabled bot",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-warmup", false, "Skip the periodic embedding cache warmer")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	chatLogRepo := repository.NewChatLogRepository(pool)
	bots := botconfig.NewLoader(cfg.BotsDir)
	chunkCache := cache.NewEmbeddingCache(chunkRepo)

	var embedder service.QueryEmbedder
	var completer service.ChatCompleter
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		completer = openai.NewChatClient(openai.ChatConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.ChatModel,
		})
	} else {
		log.Println("OPENAI_API_KEY not set, chat requests will be refused")
		embedder = &unavailableEmbedder{}
		completer = &unavailableCompleter{}
	}

	retrievalSvc := service.NewRetrievalService(embedder, chunkCache)
	chatSvc := service.NewChatService(bots, retrievalSvc, completer, chatLogRepo)

	var warmupWorker *jobs.Worker
	noWarmup, _ := cmd.Flags().GetBool("no-warmup")
	if !noWarmup && cfg.WarmupInterval > 0 {
		warmupWorker = jobs.NewWorker(jobs.NewWarmupTask(bots, chunkCache), cfg.WarmupInterval)
		go warmupWorker.Start(ctx)
		log.Println("warmup worker started")
	}

	chatHandler := handlers.NewChatHandler(chatSvc, bots, chunkCache, cfg.HasOpenAI())

	router := server.NewRouter(server.RouterConfig{
		ChatHandler: chatHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if warmupWorker != nil {
		warmupWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type unavailableEmbedder struct{}

func (e *unavailableEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

type unavailableCompleter struct{}

func (c *unavailableCompleter) Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	return "", domain.ErrCompletionUnavailable
}

func (c *unavailableCompleter) CompleteStream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage, onFragment func(string) error) (string, error) {
	return "", domain.ErrCompletionUnavailable
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
