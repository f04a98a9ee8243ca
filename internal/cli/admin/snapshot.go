package admin

import (
	"context"
	"fmt"

	"github.com/botsmith-ai/botsmith/internal/config"
	"github.com/botsmith-ai/botsmith/internal/repository"
	"github.com/botsmith-ai/botsmith/internal/service"
	"github.com/botsmith-ai/botsmith/internal/storage"
	"github.com/spf13/cobra"
)

func SnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export and import embedding snapshots",
		Long:  "Move a bot's embedded chunks to and from S3-compatible storage without re-embedding",
	}

	cmd.AddCommand(SnapshotExportCmd())
	cmd.AddCommand(SnapshotImportCmd())
	cmd.AddCommand(SnapshotDeleteCmd())

	return cmd
}

func SnapshotExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <bot-id>",
		Short: "Export a bot's chunks to object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0], func(ctx context.Context, svc *service.SnapshotService, botID string) (string, error) {
				count, err := svc.Export(ctx, botID)
				return fmt.Sprintf("exported %d chunks", count), err
			})
		},
	}
}

func SnapshotImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <bot-id>",
		Short: "Restore a bot's chunks from object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0], func(ctx context.Context, svc *service.SnapshotService, botID string) (string, error) {
				count, err := svc.Import(ctx, botID)
				return fmt.Sprintf("imported %d chunks", count), err
			})
		},
	}
}

func SnapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <bot-id>",
		Short: "Remove a bot's snapshot from object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0], func(ctx context.Context, svc *service.SnapshotService, botID string) (string, error) {
				return "snapshot deleted", svc.Delete(ctx, botID)
			})
		},
	}
}

func runSnapshot(botID string, op func(context.Context, *service.SnapshotService, string) (string, error)) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasS3() {
		return fmt.Errorf("S3 snapshot storage not configured (set S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY)")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := storage.NewSnapshotStore(ctx, storage.SnapshotStoreConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}

	svc := service.NewSnapshotService(repository.NewChunkRepository(pool), store)

	msg, err := op(ctx, svc, botID)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", botID, msg)
	return nil
}
