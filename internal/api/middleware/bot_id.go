package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const BotIDKey contextKey = "bot_id"

// BotID copies the bot identifier from the route into the request context so
// logging and telemetry can pick it up without re-parsing the URL.
func BotID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		botID := chi.URLParam(r, "botID")
		if botID != "" {
			ctx := context.WithValue(r.Context(), BotIDKey, botID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// GetBotID returns the bot ID from context.
func GetBotID(ctx context.Context) string {
	botID, _ := ctx.Value(BotIDKey).(string)
	return botID
}
