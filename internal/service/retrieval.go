package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/botsmith-ai/botsmith/internal/domain"
)

const (
	// noContextSentinel is handed to the model when retrieval comes back
	// empty so it can answer honestly instead of inventing facts.
	noContextSentinel = "No relevant information found."

	contextBlockSeparator = "\n\n---\n\n"
)

// QueryEmbedder generates an embedding for a retrieval query.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkProvider supplies a bot's embedded chunk set, typically from the
// in-process cache.
type ChunkProvider interface {
	Get(ctx context.Context, botID string) ([]domain.Chunk, error)
}

// RetrievalParams controls how many chunks come back and how similar they
// must be to the query.
type RetrievalParams struct {
	TopK                int
	SimilarityThreshold float64
}

// RetrievalService scores a bot's chunks against a query embedding and
// returns the best matches.
type RetrievalService struct {
	embedder QueryEmbedder
	chunks   ChunkProvider
}

func NewRetrievalService(embedder QueryEmbedder, chunks ChunkProvider) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		chunks:   chunks,
	}
}

// Retrieve embeds the query, scores every chunk of the bot by cosine
// similarity, and returns up to TopK results at or above the threshold,
// ordered by descending similarity. Equal scores keep their stored order.
func (s *RetrievalService) Retrieve(ctx context.Context, botID, query string, params RetrievalParams) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.RetrievalResult{}, nil
	}

	queryEmbedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := s.chunks.Get(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for bot %q: %w", botID, err)
	}

	results := make([]domain.RetrievalResult, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		similarity, err := cosineSimilarity(queryEmbedding, chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %q: %w", chunk.ID, err)
		}
		if similarity < params.SimilarityThreshold {
			continue
		}
		results = append(results, domain.RetrievalResult{
			ID:         chunk.ID,
			Category:   chunk.Category,
			Heading:    chunk.Heading,
			Text:       chunk.Text,
			Similarity: similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if params.TopK > 0 && len(results) > params.TopK {
		results = results[:params.TopK]
	}
	return results, nil
}

// FormatContext renders retrieval results as labelled blocks for the model
// prompt. Empty input yields a sentinel line rather than an empty string.
func FormatContext(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return noContextSentinel
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		category := strings.ToUpper(r.Category)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", category, r.Text))
	}
	return strings.Join(blocks, contextBlockSeparator)
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// A zero-magnitude vector on either side scores 0 rather than dividing
// by zero.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
