package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/botsmith-ai/botsmith/internal/botconfig"
	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/botsmith-ai/botsmith/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatGenerator struct {
	mock.Mock
}

func (m *MockChatGenerator) Generate(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatOutput), args.Error(1)
}

func (m *MockChatGenerator) GenerateStream(ctx context.Context, input service.ChatInput, onFragment func(string) error) (*service.ChatOutput, error) {
	args := m.Called(ctx, input, onFragment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	out := args.Get(0).(*service.ChatOutput)
	if onFragment != nil {
		for _, fragment := range strings.SplitAfter(out.Response, " ") {
			if err := onFragment(fragment); err != nil {
				return nil, err
			}
		}
	}
	return out, args.Error(1)
}

type MockBotConfigSource struct {
	mock.Mock
}

func (m *MockBotConfigSource) LoadConfig(botID string) (*botconfig.BotConfig, error) {
	args := m.Called(botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*botconfig.BotConfig), args.Error(1)
}

type MockWarmupCache struct {
	mock.Mock
}

func (m *MockWarmupCache) Warm(ctx context.Context, botID string) (int, error) {
	args := m.Called(ctx, botID)
	return args.Int(0), args.Error(1)
}

func enabledBotConfig() *botconfig.BotConfig {
	return &botconfig.BotConfig{
		Enabled:     true,
		Name:        "ResumeBot",
		Personality: "friendly",
		RAG: botconfig.RAGConfig{
			TopK:                5,
			SimilarityThreshold: 0.4,
		},
		Suggestions: []string{"Where did you work?", "What are your skills?"},
	}
}

func requestWithBot(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("botID", "resume-bot")
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func chatBody(t *testing.T, message string) []byte {
	t.Helper()
	body, err := json.Marshal(ChatRequest{Message: message})
	require.NoError(t, err)
	return body
}

func TestChatHandler_Chat_Success(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)
	chat.On("Generate", mock.Anything, mock.MatchedBy(func(input service.ChatInput) bool {
		return input.BotID == "resume-bot" &&
			input.Message == "Where did you work?" &&
			input.Params.TopK == 5 &&
			input.Params.SimilarityThreshold == 0.4
	})).Return(&service.ChatOutput{
		Response: "I worked at Acme.",
		Sources:  []domain.Source{{Category: "Work", Similarity: 0.91}},
	}, nil)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", chatBody(t, "Where did you work?")))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data ChatResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "I worked at Acme.", envelope.Data.Response)
	require.Len(t, envelope.Data.Sources, 1)
	assert.Equal(t, "Work", envelope.Data.Sources[0].Category)
}

func TestChatHandler_Chat_EmptyMessage(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)
	chat.On("Generate", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyMessage)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", chatBody(t, "   ")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Chat_UnknownBot(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(nil, domain.ErrBotConfigNotFound)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", chatBody(t, "hello")))

	assert.Equal(t, http.StatusNotFound, w.Code)
	chat.AssertNotCalled(t, "Generate")
}

func TestChatHandler_Chat_DisabledBot(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	cfg := enabledBotConfig()
	cfg.Enabled = false
	configs.On("LoadConfig", "resume-bot").Return(cfg, nil)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", chatBody(t, "hello")))

	assert.Equal(t, http.StatusNotFound, w.Code)
	chat.AssertNotCalled(t, "Generate")
}

func TestChatHandler_Chat_ProvidersNotConfigured(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), false)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", chatBody(t, "hello")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	chat.AssertNotCalled(t, "Generate")
}

func TestChatHandler_Chat_InvalidBody(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Chat_CompletionUnavailable(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)
	chat.On("Generate", mock.Anything, mock.Anything).Return(nil, domain.ErrCompletionUnavailable)

	w := httptest.NewRecorder()
	handler.Chat(w, requestWithBot(http.MethodPost, "/resume-bot/chat", chatBody(t, "hello")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatHandler_ChatStream_Success(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)
	chat.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Return(&service.ChatOutput{
		Response: "I worked at Acme.",
		Sources:  []domain.Source{{Category: "Work", Similarity: 0.91}},
	}, nil)

	w := httptest.NewRecorder()
	handler.ChatStream(w, requestWithBot(http.MethodPost, "/resume-bot/chat/stream", chatBody(t, "Where did you work?")))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var deltas []string
	doneSeen := false
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event streamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		if event.Done {
			doneSeen = true
			require.Len(t, event.Sources, 1)
			assert.Equal(t, "Work", event.Sources[0].Category)
			continue
		}
		deltas = append(deltas, event.Delta)
	}

	assert.True(t, doneSeen)
	assert.Equal(t, "I worked at Acme.", strings.Join(deltas, ""))
}

func TestChatHandler_ChatStream_ErrorBeforeFirstFragment(t *testing.T) {
	chat := new(MockChatGenerator)
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(chat, configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)
	chat.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrCompletionUnavailable)

	w := httptest.NewRecorder()
	handler.ChatStream(w, requestWithBot(http.MethodPost, "/resume-bot/chat/stream", chatBody(t, "hello")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatHandler_Config_Success(t *testing.T) {
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(new(MockChatGenerator), configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)

	w := httptest.NewRecorder()
	handler.Config(w, requestWithBot(http.MethodGet, "/resume-bot/config", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data BotConfigResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Enabled)
	assert.Equal(t, "ResumeBot", envelope.Data.Name)
	assert.Equal(t, "friendly", envelope.Data.Personality)
}

func TestChatHandler_Config_LoadFailureDegradesToDisabled(t *testing.T) {
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(new(MockChatGenerator), configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(nil, domain.ErrBotConfigNotFound)

	w := httptest.NewRecorder()
	handler.Config(w, requestWithBot(http.MethodGet, "/resume-bot/config", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data BotConfigResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Enabled)
	assert.Equal(t, "resume-bot", envelope.Data.Name)
	assert.Equal(t, "friendly", envelope.Data.Personality)
}

func TestChatHandler_Suggestions(t *testing.T) {
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(new(MockChatGenerator), configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(enabledBotConfig(), nil)

	w := httptest.NewRecorder()
	handler.Suggestions(w, requestWithBot(http.MethodGet, "/resume-bot/suggestions", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data SuggestionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"Where did you work?", "What are your skills?"}, envelope.Data.Suggestions)
}

func TestChatHandler_Suggestions_LoadFailureReturnsEmpty(t *testing.T) {
	configs := new(MockBotConfigSource)
	handler := NewChatHandler(new(MockChatGenerator), configs, new(MockWarmupCache), true)

	configs.On("LoadConfig", "resume-bot").Return(nil, domain.ErrBotConfigNotFound)

	w := httptest.NewRecorder()
	handler.Suggestions(w, requestWithBot(http.MethodGet, "/resume-bot/suggestions", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data SuggestionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data.Suggestions)
}

func TestChatHandler_Warmup(t *testing.T) {
	warmer := new(MockWarmupCache)
	handler := NewChatHandler(new(MockChatGenerator), new(MockBotConfigSource), warmer, true)

	warmer.On("Warm", mock.Anything, "resume-bot").Return(12, nil)

	w := httptest.NewRecorder()
	handler.Warmup(w, requestWithBot(http.MethodGet, "/resume-bot/warmup", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data WarmupResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "warm", envelope.Data.Status)
	assert.Equal(t, 12, envelope.Data.Embeddings)
}

func TestChatHandler_Warmup_Error(t *testing.T) {
	warmer := new(MockWarmupCache)
	handler := NewChatHandler(new(MockChatGenerator), new(MockBotConfigSource), warmer, true)

	warmer.On("Warm", mock.Anything, "resume-bot").Return(0, assert.AnError)

	w := httptest.NewRecorder()
	handler.Warmup(w, requestWithBot(http.MethodGet, "/resume-bot/warmup", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data WarmupResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "error", envelope.Data.Status)
}
