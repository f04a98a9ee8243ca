// Package storage persists bot chunk snapshots to S3-compatible object
// storage so a partition can be exported and restored without re-embedding.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/botsmith-ai/botsmith/internal/domain"
)

// SnapshotStoreConfig holds configuration for SnapshotStore
type SnapshotStoreConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// Snapshot is one bot's full chunk set at a point in time, embeddings
// included.
type Snapshot struct {
	BotID      string         `json:"bot_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Chunks     []domain.Chunk `json:"chunks"`
}

// SnapshotStore reads and writes per-bot chunk snapshots in an S3 bucket
// (including S3-compatible services such as RustFS).
type SnapshotStore struct {
	client *s3.Client
	bucket string
}

// NewSnapshotStore creates a new SnapshotStore with the given configuration
func NewSnapshotStore(ctx context.Context, cfg SnapshotStoreConfig) (*SnapshotStore, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &SnapshotStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func snapshotKey(botID string) string {
	return fmt.Sprintf("snapshots/%s.json", botID)
}

// PutSnapshot writes one bot's snapshot, overwriting any previous one.
func (s *SnapshotStore) PutSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if snapshot.BotID == "" {
		return fmt.Errorf("snapshot has no bot id")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(snapshotKey(snapshot.BotID)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot for bot %q: %w", snapshot.BotID, err)
	}

	return nil
}

// GetSnapshot reads one bot's snapshot.
func (s *SnapshotStore) GetSnapshot(ctx context.Context, botID string) (*Snapshot, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(snapshotKey(botID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for bot %q: %w", botID, err)
	}
	defer output.Body.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(output.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for bot %q: %w", botID, err)
	}

	return &snapshot, nil
}

// DeleteSnapshot removes one bot's snapshot from storage
func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, botID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(snapshotKey(botID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for bot %q: %w", botID, err)
	}

	return nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *SnapshotStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
