package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/botsmith-ai/botsmith/internal/botconfig"
	"github.com/botsmith-ai/botsmith/internal/chunker"
	"github.com/botsmith-ai/botsmith/internal/config"
	"github.com/botsmith-ai/botsmith/internal/openai"
	"github.com/botsmith-ai/botsmith/internal/repository"
	"github.com/botsmith-ai/botsmith/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func EmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Manage bot embeddings",
		Long:  "Rebuild the stored embeddings for one or all bots",
	}

	cmd.AddCommand(EmbedRebuildCmd())

	return cmd
}

func EmbedRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild [bot-id]",
		Short: "Rebuild embeddings for a bot",
		Long:  "Chunk a bot's knowledge entries, embed them, and replace its stored chunk set",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEmbedRebuild,
	}

	cmd.Flags().Bool("all", false, "Rebuild every bot under the bots directory")
	cmd.Flags().BoolP("force", "f", false, "Rebuild even when embeddings already exist")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runEmbedRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	all, _ := cmd.Flags().GetBool("all")
	force, _ := cmd.Flags().GetBool("force")
	outputFormat, _ := cmd.Flags().GetString("output")

	if all == (len(args) == 1) {
		return fmt.Errorf("specify either a bot id or --all")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY not set; cannot generate embeddings")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	bots := botconfig.NewLoader(cfg.BotsDir)
	chunkRepo := repository.NewChunkRepository(pool)
	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	embedSvc := service.NewEmbeddingService(chunker.New(bots), embeddingClient, chunkRepo, nil)

	var botIDs []string
	if all {
		botIDs, err = bots.ListBots()
		if err != nil {
			return err
		}
	} else {
		botIDs = args
	}

	results := make(map[string]int, len(botIDs))
	for _, botID := range botIDs {
		if !force {
			exists, err := embedSvc.HasEmbeddings(ctx, botID)
			if err != nil {
				return err
			}
			if exists {
				if outputFormat != "json" {
					fmt.Printf("%s: embeddings already exist, skipping (use --force to rebuild)\n", botID)
				}
				continue
			}
		}

		count, err := embedSvc.Rebuild(ctx, botID)
		if err != nil {
			return fmt.Errorf("failed to rebuild bot %q: %w", botID, err)
		}
		results[botID] = count
		if outputFormat != "json" {
			fmt.Printf("%s: stored %d chunks\n", botID, count)
		}
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(jsonBytes))
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
