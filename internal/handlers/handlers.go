// Package handlers exposes the game engine over a thin JSON HTTP API.
// Handlers decode, delegate to the engine and encode; no game logic
// lives here.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jwebster45206/galgame-engine/internal/engine"
	"github.com/jwebster45206/galgame-engine/internal/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewRouter wires every API route.
func NewRouter(e *engine.Engine, store storage.Storage, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", NewHealthHandler(store, logger).ServeHTTP)

	game := NewGameHandler(e, logger)
	r.Route("/v1/game", func(r chi.Router) {
		r.Post("/message", game.Message)
		r.Post("/choice", game.Choice)
		r.Post("/reaction", game.Reaction)
		r.Post("/reset", game.Reset)
		r.Post("/exit", game.Exit)
		r.Post("/character", game.SelectCharacter)
		r.Get("/status", game.Status)
		r.Get("/export", game.Export)
		r.Post("/import", game.Import)
	})

	chars := NewCharacterHandler(e, logger)
	r.Route("/v1/characters", func(r chi.Router) {
		r.Get("/", chars.List)
		r.Post("/", chars.Create)
		r.Get("/{id}", chars.Get)
		r.Put("/{id}", chars.Update)
		r.Delete("/{id}", chars.Delete)
	})

	return r
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}
