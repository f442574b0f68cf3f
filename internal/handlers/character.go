package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/galgame-engine/internal/engine"
	"github.com/jwebster45206/galgame-engine/pkg/game"
)

type CharacterHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewCharacterHandler(e *engine.Engine, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{engine: e, logger: logger}
}

// requesterID identifies the calling user. Body user_id wins for
// writes; reads take it from the query string.
func requesterID(r *http.Request) string {
	return r.URL.Query().Get("user_id")
}

type CharacterRequest struct {
	UserID    string          `json:"user_id"`
	Character *game.Character `json:"character"`
}

func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Character == nil {
		writeError(w, h.logger, http.StatusBadRequest, "user_id and character are required")
		return
	}

	char, result, err := h.engine.CreateCharacter(r.Context(), req.UserID, req.Character)
	if err != nil {
		h.logger.Error("Character create failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create character")
		return
	}
	if !result.Success {
		writeError(w, h.logger, http.StatusBadRequest, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, char)
}

func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	char, err := h.engine.GetCharacter(r.Context(), requesterID(r), id)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
		return
	}
	if char == nil {
		writeError(w, h.logger, http.StatusNotFound, "Character not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, char)
}

func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	chars, err := h.engine.ListCharacters(r.Context(), requesterID(r))
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list characters")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, chars)
}

func (h *CharacterHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Character == nil {
		writeError(w, h.logger, http.StatusBadRequest, "user_id and character are required")
		return
	}
	req.Character.ID = chi.URLParam(r, "id")

	char, result, err := h.engine.UpdateCharacter(r.Context(), req.UserID, req.Character)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to update character")
		return
	}
	if !result.Success {
		status := http.StatusForbidden
		if result.Reason == "character not found" {
			status = http.StatusNotFound
		}
		writeError(w, h.logger, status, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, char)
}

func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := requesterID(r)
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := h.engine.DeleteCharacter(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete character")
		return
	}
	if !result.Success {
		status := http.StatusForbidden
		if result.Reason == "character not found" {
			status = http.StatusNotFound
		}
		writeError(w, h.logger, status, result.Reason)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
