package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockChunkProvider struct {
	mock.Mock
}

func (m *MockChunkProvider) Get(ctx context.Context, botID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

// unitChunk builds a chunk whose cosine similarity against the [1, 0] query
// vector equals x.
func unitChunk(id, category, text string, x float64) domain.Chunk {
	y := math.Sqrt(1 - x*x)
	return domain.Chunk{
		ID:        id,
		BotID:     "resume-bot",
		Category:  category,
		Text:      text,
		Embedding: []float32{float32(x), float32(y)},
	}
}

var queryVector = []float32{1, 0}

func TestRetrievalService_Retrieve_RanksAndFilters(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	embedder.On("GenerateEmbedding", mock.Anything, "where did you work").Return(queryVector, nil)
	provider.On("Get", mock.Anything, "resume-bot").Return([]domain.Chunk{
		unitChunk("c-low", "Hobbies", "low", 0.3),
		unitChunk("c-high", "Work", "high", 0.8),
		unitChunk("c-mid", "Education", "mid", 0.5),
	}, nil)

	svc := NewRetrievalService(embedder, provider)
	results, err := svc.Retrieve(context.Background(), "resume-bot", "where did you work", RetrievalParams{
		TopK:                2,
		SimilarityThreshold: 0.4,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c-high", results[0].ID)
	assert.InDelta(t, 0.8, results[0].Similarity, 0.001)
	assert.Equal(t, "c-mid", results[1].ID)
	assert.InDelta(t, 0.5, results[1].Similarity, 0.001)
}

func TestRetrievalService_Retrieve_ThresholdIsInclusive(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVector, nil)
	provider.On("Get", mock.Anything, "resume-bot").Return([]domain.Chunk{
		unitChunk("c-exact", "Work", "exact", 0.4),
	}, nil)

	svc := NewRetrievalService(embedder, provider)
	results, err := svc.Retrieve(context.Background(), "resume-bot", "query", RetrievalParams{
		TopK:                5,
		SimilarityThreshold: 0.4,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c-exact", results[0].ID)
}

func TestRetrievalService_Retrieve_RaisingThresholdNeverAddsResults(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	chunks := []domain.Chunk{
		unitChunk("a", "Work", "a", 0.9),
		unitChunk("b", "Work", "b", 0.6),
		unitChunk("c", "Work", "c", 0.45),
		unitChunk("d", "Work", "d", 0.2),
	}
	embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVector, nil)
	provider.On("Get", mock.Anything, "resume-bot").Return(chunks, nil)

	svc := NewRetrievalService(embedder, provider)

	prev := len(chunks) + 1
	for _, threshold := range []float64{0.0, 0.3, 0.5, 0.7, 0.95} {
		results, err := svc.Retrieve(context.Background(), "resume-bot", "query", RetrievalParams{
			TopK:                10,
			SimilarityThreshold: threshold,
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), prev, "threshold %v", threshold)
		prev = len(results)
	}
}

func TestRetrievalService_Retrieve_TopKTruncates(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVector, nil)
	provider.On("Get", mock.Anything, "resume-bot").Return([]domain.Chunk{
		unitChunk("a", "Work", "a", 0.9),
		unitChunk("b", "Work", "b", 0.8),
		unitChunk("c", "Work", "c", 0.7),
		unitChunk("d", "Work", "d", 0.6),
	}, nil)

	svc := NewRetrievalService(embedder, provider)
	results, err := svc.Retrieve(context.Background(), "resume-bot", "query", RetrievalParams{
		TopK:                3,
		SimilarityThreshold: 0.0,
	})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[2].ID)
}

func TestRetrievalService_Retrieve_EmptyQuery(t *testing.T) {
	svc := NewRetrievalService(new(MockQueryEmbedder), new(MockChunkProvider))

	results, err := svc.Retrieve(context.Background(), "resume-bot", "   ", RetrievalParams{TopK: 5})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrievalService_Retrieve_SkipsChunksWithoutEmbedding(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVector, nil)
	provider.On("Get", mock.Anything, "resume-bot").Return([]domain.Chunk{
		{ID: "no-embedding", BotID: "resume-bot", Category: "Work", Text: "text"},
		unitChunk("ok", "Work", "ok", 0.9),
	}, nil)

	svc := NewRetrievalService(embedder, provider)
	results, err := svc.Retrieve(context.Background(), "resume-bot", "query", RetrievalParams{TopK: 5})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].ID)
}

func TestRetrievalService_Retrieve_DimensionMismatch(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVector, nil)
	provider.On("Get", mock.Anything, "resume-bot").Return([]domain.Chunk{
		{ID: "bad", BotID: "resume-bot", Category: "Work", Text: "text", Embedding: []float32{1, 2, 3}},
	}, nil)

	svc := NewRetrievalService(embedder, provider)
	_, err := svc.Retrieve(context.Background(), "resume-bot", "query", RetrievalParams{TopK: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRetrievalService_Retrieve_EmbedderError(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	provider := new(MockChunkProvider)

	embedder.On("GenerateEmbedding", mock.Anything, "query").Return(nil, errors.New("api down"))

	svc := NewRetrievalService(embedder, provider)
	_, err := svc.Retrieve(context.Background(), "resume-bot", "query", RetrievalParams{TopK: 5})

	require.Error(t, err)
	provider.AssertNotCalled(t, "Get")
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero left", []float32{0, 0}, []float32{1, 2}, 0.0},
		{"zero right", []float32{1, 2}, []float32{0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 0.0001)
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "No relevant information found.", FormatContext(nil))
	assert.Equal(t, "No relevant information found.", FormatContext([]domain.RetrievalResult{}))
}

func TestFormatContext_Blocks(t *testing.T) {
	out := FormatContext([]domain.RetrievalResult{
		{Category: "Work", Text: "Built backend services at Acme."},
		{Category: "Education", Text: "BSc in computer science."},
	})

	expected := "[WORK]\nBuilt backend services at Acme.\n\n---\n\n[EDUCATION]\nBSc in computer science."
	assert.Equal(t, expected, out)
}
