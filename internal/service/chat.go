package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/telemetry"
)

// userContentTemplate wraps the retrieved context and the question into the
// single user turn handed to the model.
const userContentTemplate = `## Relevant Context:
%s

## User Question:
%s

Remember: Keep your response short and conversational. Write in PLAIN TEXT ONLY - do not use ** or any markdown. If you can't answer from the context, say so politely.`

const currentDatePlaceholder = "{current_date}"

// PromptSource loads a bot's system prompt template.
type PromptSource interface {
	LoadPrompt(botID string) (string, error)
}

// ContextRetriever finds the chunks most relevant to a user question.
type ContextRetriever interface {
	Retrieve(ctx context.Context, botID, query string, params RetrievalParams) ([]domain.RetrievalResult, error)
}

// ChatCompleter generates model responses, whole or streamed.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error)
	CompleteStream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage, onFragment func(string) error) (string, error)
}

// ChatLogStore records completed interactions.
type ChatLogStore interface {
	Create(ctx context.Context, entry *domain.ChatLog) error
}

// ChatInput is one question to one bot, with optional prior turns.
type ChatInput struct {
	BotID   string
	Message string
	History []domain.ChatMessage
	Params  RetrievalParams
}

// ChatOutput is the generated answer plus which categories informed it.
type ChatOutput struct {
	Response string          `json:"response"`
	Sources  []domain.Source `json:"sources"`
}

// ChatService orchestrates one chat turn: retrieve context, assemble the
// prompt, call the model, log the exchange. Prompt templates are cached per
// bot for the life of the process.
type ChatService struct {
	prompts   PromptSource
	retriever ContextRetriever
	completer ChatCompleter
	logs      ChatLogStore

	mu          sync.RWMutex
	promptCache map[string]string

	now func() time.Time
}

// NewChatService creates a ChatService. logs may be nil to disable chat
// logging.
func NewChatService(prompts PromptSource, retriever ContextRetriever, completer ChatCompleter, logs ChatLogStore) *ChatService {
	return &ChatService{
		prompts:     prompts,
		retriever:   retriever,
		completer:   completer,
		logs:        logs,
		promptCache: make(map[string]string),
		now:         time.Now,
	}
}

// Generate answers one question and returns the full response.
func (s *ChatService) Generate(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Generate", telemetry.SpanAttributes{
		BotID:     input.BotID,
		Operation: "chat",
	})
	defer span.End()

	prepared, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	response, err := s.completer.Complete(ctx, prepared.systemPrompt, prepared.messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
	}

	s.logInteraction(ctx, input, response, prepared.sources)
	return &ChatOutput{Response: response, Sources: prepared.sources}, nil
}

// GenerateStream answers one question, invoking onFragment for each piece of
// text as the model produces it. The returned output carries the accumulated
// response.
func (s *ChatService) GenerateStream(ctx context.Context, input ChatInput, onFragment func(string) error) (*ChatOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.GenerateStream", telemetry.SpanAttributes{
		BotID:     input.BotID,
		Operation: "chat_stream",
	})
	defer span.End()

	prepared, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	response, err := s.completer.CompleteStream(ctx, prepared.systemPrompt, prepared.messages, onFragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
	}

	s.logInteraction(ctx, input, response, prepared.sources)
	return &ChatOutput{Response: response, Sources: prepared.sources}, nil
}

type preparedTurn struct {
	systemPrompt string
	messages     []domain.ChatMessage
	sources      []domain.Source
}

func (s *ChatService) prepare(ctx context.Context, input ChatInput) (*preparedTurn, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	results, err := s.retriever.Retrieve(ctx, input.BotID, message, input.Params)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := s.systemPrompt(input.BotID)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(input.History)+1)
	messages = append(messages, input.History...)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: fmt.Sprintf(userContentTemplate, FormatContext(results), message),
	})

	sources := make([]domain.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, domain.Source{
			Category:   r.Category,
			Similarity: r.Similarity,
		})
	}

	return &preparedTurn{
		systemPrompt: systemPrompt,
		messages:     messages,
		sources:      sources,
	}, nil
}

// systemPrompt returns the bot's system prompt with the current date
// substituted. The raw template is cached; the date is injected per call so
// long-lived processes do not serve a stale day.
func (s *ChatService) systemPrompt(botID string) (string, error) {
	s.mu.RLock()
	template, ok := s.promptCache[botID]
	s.mu.RUnlock()

	if !ok {
		loaded, err := s.prompts.LoadPrompt(botID)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.promptCache[botID] = loaded
		s.mu.Unlock()
		template = loaded
	}

	currentDate := s.now().Format("January 2, 2006")
	return strings.ReplaceAll(template, currentDatePlaceholder, currentDate), nil
}

// InvalidatePrompt drops a bot's cached prompt template so the next request
// rereads it.
func (s *ChatService) InvalidatePrompt(botID string) {
	s.mu.Lock()
	delete(s.promptCache, botID)
	s.mu.Unlock()
}

func (s *ChatService) logInteraction(ctx context.Context, input ChatInput, response string, sources []domain.Source) {
	if s.logs == nil {
		return
	}
	err := s.logs.Create(ctx, &domain.ChatLog{
		BotID:    input.BotID,
		Question: strings.TrimSpace(input.Message),
		Response: response,
		Sources:  sources,
	})
	if err != nil {
		log.Printf("failed to log chat for bot %s: %v", input.BotID, err)
	}
}
