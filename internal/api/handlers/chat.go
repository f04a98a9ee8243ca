package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/botsmith-ai/botsmith/internal/api"
	"github.com/botsmith-ai/botsmith/internal/botconfig"
	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatGenerator interface {
	Generate(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
	GenerateStream(ctx context.Context, input service.ChatInput, onFragment func(string) error) (*service.ChatOutput, error)
}

type BotConfigSource interface {
	LoadConfig(botID string) (*botconfig.BotConfig, error)
}

type WarmupCache interface {
	Warm(ctx context.Context, botID string) (int, error)
}

// ChatHandler serves the per-bot endpoints: chat, streaming chat, frontend
// config, suggestions, and cache warmup.
type ChatHandler struct {
	chat    ChatGenerator
	configs BotConfigSource
	warmer  WarmupCache

	// providersReady is false when no completion provider API key is
	// configured; chat requests are refused up front rather than failing
	// mid-pipeline.
	providersReady bool
}

func NewChatHandler(chat ChatGenerator, configs BotConfigSource, warmer WarmupCache, providersReady bool) *ChatHandler {
	return &ChatHandler{
		chat:           chat,
		configs:        configs,
		warmer:         warmer,
		providersReady: providersReady,
	}
}

type ChatRequest struct {
	Message             string               `json:"message"`
	SessionID           string               `json:"session_id,omitempty"`
	ConversationHistory []domain.ChatMessage `json:"conversation_history,omitempty"`
}

type ChatResponse struct {
	Response string          `json:"response"`
	Sources  []domain.Source `json:"sources"`
}

type BotConfigResponse struct {
	Enabled     bool   `json:"enabled"`
	Name        string `json:"name"`
	Personality string `json:"personality"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type WarmupResponse struct {
	Status     string `json:"status"`
	Embeddings int    `json:"embeddings,omitempty"`
}

// resolveBot loads the bot's config and rejects unknown or disabled bots.
func (h *ChatHandler) resolveBot(w http.ResponseWriter, r *http.Request) (string, *botconfig.BotConfig, bool) {
	botID := chi.URLParam(r, "botID")
	cfg, err := h.configs.LoadConfig(botID)
	if err != nil {
		if errors.Is(err, domain.ErrBotConfigNotFound) {
			api.Error(w, http.StatusNotFound, "bot not found")
			return "", nil, false
		}
		api.HandleError(w, err)
		return "", nil, false
	}
	if !cfg.Enabled {
		api.Error(w, http.StatusNotFound, "bot not found")
		return "", nil, false
	}
	return botID, cfg, true
}

func (h *ChatHandler) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	if !h.providersReady {
		api.Error(w, http.StatusServiceUnavailable, "completion provider not configured")
		return nil, false
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

// Chat handles POST /{botID}/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	botID, cfg, ok := h.resolveBot(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	out, err := h.chat.Generate(r.Context(), service.ChatInput{
		BotID:   botID,
		Message: req.Message,
		History: req.ConversationHistory,
		Params: service.RetrievalParams{
			TopK:                cfg.RAG.TopK,
			SimilarityThreshold: cfg.RAG.SimilarityThreshold,
		},
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Response: out.Response,
		Sources:  out.Sources,
	})
}

type streamEvent struct {
	Delta   string          `json:"delta,omitempty"`
	Done    bool            `json:"done,omitempty"`
	Sources []domain.Source `json:"sources,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ChatStream handles POST /{botID}/chat/stream, emitting the response as
// server-sent events: one event per text fragment, then a final done event
// carrying the sources.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	botID, cfg, ok := h.resolveBot(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	started := false
	out, err := h.chat.GenerateStream(r.Context(), service.ChatInput{
		BotID:   botID,
		Message: req.Message,
		History: req.ConversationHistory,
		Params: service.RetrievalParams{
			TopK:                cfg.RAG.TopK,
			SimilarityThreshold: cfg.RAG.SimilarityThreshold,
		},
	}, func(fragment string) error {
		started = true
		return writeStreamEvent(w, flusher, streamEvent{Delta: fragment})
	})
	if err != nil {
		if !started {
			// Headers not flushed yet, a plain error response still works.
			api.HandleError(w, err)
			return
		}
		_ = writeStreamEvent(w, flusher, streamEvent{Error: "stream interrupted"})
		return
	}

	_ = writeStreamEvent(w, flusher, streamEvent{Done: true, Sources: out.Sources})
}

func writeStreamEvent(w http.ResponseWriter, flusher http.Flusher, event streamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// Config handles GET /{botID}/config. Load failures degrade to a disabled
// bot so the frontend can hide the widget instead of erroring.
func (h *ChatHandler) Config(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")

	cfg, err := h.configs.LoadConfig(botID)
	if err != nil {
		log.Printf("config load failed for bot %s: %v", botID, err)
		api.Success(w, http.StatusOK, BotConfigResponse{
			Enabled:     false,
			Name:        botID,
			Personality: botconfig.DefaultPersonality,
		})
		return
	}

	api.Success(w, http.StatusOK, BotConfigResponse{
		Enabled:     cfg.Enabled,
		Name:        cfg.Name,
		Personality: cfg.Personality,
	})
}

// Suggestions handles GET /{botID}/suggestions
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")

	suggestions := []string{}
	if cfg, err := h.configs.LoadConfig(botID); err == nil {
		suggestions = append(suggestions, cfg.Suggestions...)
	}

	api.Success(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

// Warmup handles GET /{botID}/warmup, preloading the bot's embedding cache
// so the first real question does not pay the load.
func (h *ChatHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")

	count, err := h.warmer.Warm(r.Context(), botID)
	if err != nil {
		log.Printf("warmup failed for bot %s: %v", botID, err)
		api.Success(w, http.StatusOK, WarmupResponse{Status: "error"})
		return
	}

	api.Success(w, http.StatusOK, WarmupResponse{Status: "warm", Embeddings: count})
}
