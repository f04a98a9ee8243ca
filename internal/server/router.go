package server

import (
	"net/http"

	"github.com/botsmith-ai/botsmith/internal/api"
	"github.com/botsmith-ai/botsmith/internal/api/handlers"
	"github.com/botsmith-ai/botsmith/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	ChatHandler *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/{botID}", func(r chi.Router) {
		r.Use(middleware.BotID)

		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Post("/chat/stream", cfg.ChatHandler.ChatStream)
		r.Get("/config", cfg.ChatHandler.Config)
		r.Get("/suggestions", cfg.ChatHandler.Suggestions)
		r.Get("/warmup", cfg.ChatHandler.Warmup)
	})

	return r
}
