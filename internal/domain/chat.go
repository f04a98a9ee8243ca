package domain

import "time"

// Chat message roles, passed through verbatim to the completion service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatLog records one completed chat interaction for a bot.
type ChatLog struct {
	ID        string
	BotID     string
	Question  string
	Response  string
	Sources   []Source
	CreatedAt time.Time
}
