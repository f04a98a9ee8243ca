package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is assigned to entries that do not declare one.
const DefaultCategory = "General"

// Chunk is the atomic retrievable unit: one rendered knowledge entry plus its
// embedding vector, partitioned by bot.
type Chunk struct {
	ID        string    `json:"id"` // "<bot_id>_<entry_id>", unique within the partition
	BotID     string    `json:"bot_id"`
	Category  string    `json:"category"`
	Heading   string    `json:"heading,omitempty"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChunk creates a Chunk for an entry, composing the row ID from the bot and
// entry identifiers.
func NewChunk(botID, entryID, category, heading, text string) *Chunk {
	if category == "" {
		category = DefaultCategory
	}
	return &Chunk{
		ID:       ChunkID(botID, entryID),
		BotID:    botID,
		Category: category,
		Heading:  heading,
		Text:     text,
	}
}

// ChunkID composes the stable partition-scoped chunk identifier.
func ChunkID(botID, entryID string) string {
	return fmt.Sprintf("%s_%s", botID, entryID)
}

// ValidateChunk validates a Chunk before persistence.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if c.BotID == "" {
		return fmt.Errorf("chunk BotID is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk Text cannot be empty")
	}
	return nil
}

// RetrievalResult is one scored match from a retrieval call. It exists only
// for the duration of the request that produced it.
type RetrievalResult struct {
	ID         string
	Category   string
	Heading    string
	Text       string
	Similarity float64
}

// Source is the caller-visible reduction of a RetrievalResult. Chunk text is
// never echoed back to the client.
type Source struct {
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
}
