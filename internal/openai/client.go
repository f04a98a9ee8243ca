// Package openai wraps the OpenAI API for query/chunk embeddings and chat
// completions. Both the resume bots' retrieval path and the offline embedding
// pipeline go through this client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings.
	// All of a bot's chunks and its query embeddings must come from the same model.
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the OpenAI embedding API
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

type embeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// CreateEmbeddings calls the OpenAI API to create a single embedding
func (a *embeddingAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := openai.EmbeddingModel(cfg.EmbeddingModel)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api: &embeddingAdapter{
			client: openai.NewClient(cfg.APIKey),
			model:  model,
		},
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}
