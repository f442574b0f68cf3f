package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/galgame-engine/internal/engine"
)

type GameHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewGameHandler(e *engine.Engine, logger *slog.Logger) *GameHandler {
	return &GameHandler{engine: e, logger: logger}
}

// scopeUser is the addressing pair every game request carries.
type scopeUser struct {
	Scope  string `json:"scope"`
	UserID string `json:"user_id"`
}

func (s scopeUser) validate() string {
	if s.UserID == "" {
		return "user_id is required"
	}
	return ""
}

type MessageRequest struct {
	scopeUser
	Text      string   `json:"text"`
	ImageRefs []string `json:"image_refs,omitempty"`
}

// MessageResponse wraps a turn result. When the character offered
// options or an event, OfferID identifies the pending choice for a
// later /choice call.
type MessageResponse struct {
	*engine.TurnResult
	OfferID string `json:"offer_id,omitempty"`
}

// Message runs one player turn.
func (h *GameHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}
	if req.Text == "" && len(req.ImageRefs) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "text is required")
		return
	}

	turn, err := h.engine.SendMessage(r.Context(), req.Scope, req.UserID, req.Text, req.ImageRefs)
	if err != nil {
		h.logger.Error("Turn failed", "scope", req.Scope, "user_id", req.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to process message")
		return
	}

	resp := MessageResponse{TurnResult: turn}
	if turn.Event != nil || len(turn.Options) > 0 {
		resp.OfferID = uuid.New().String()
		h.engine.OfferChoice(req.Scope, req.UserID, resp.OfferID, turn)
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

type ChoiceRequest struct {
	scopeUser
	OfferID     string `json:"offer_id,omitempty"`
	OptionIndex int    `json:"option_index,omitempty"`
	Text        string `json:"text,omitempty"`
}

// Choice resolves a pending option or event. Without an offer id the
// user's newest pending choice in the scope is used.
func (h *GameHandler) Choice(w http.ResponseWriter, r *http.Request) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}

	var (
		turn   *engine.TurnResult
		result *engine.EventResult
		err    error
	)
	if req.OfferID != "" {
		turn, result, err = h.engine.ResolveChoiceByOrigin(r.Context(), req.Scope, req.UserID, req.OfferID, req.OptionIndex, req.Text)
	} else {
		turn, result, err = h.engine.ResolveChoiceByUser(r.Context(), req.Scope, req.UserID, req.OptionIndex, req.Text)
	}
	if err != nil {
		h.logger.Error("Choice resolution failed", "scope", req.Scope, "user_id", req.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to resolve choice")
		return
	}
	if result != nil && !result.Success {
		writeError(w, h.logger, http.StatusConflict, result.Reason)
		return
	}
	if turn != nil {
		resp := MessageResponse{TurnResult: turn}
		if turn.Event != nil || len(turn.Options) > 0 {
			resp.OfferID = uuid.New().String()
			h.engine.OfferChoice(req.Scope, req.UserID, resp.OfferID, turn)
		}
		writeJSON(w, h.logger, http.StatusOK, resp)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

type ReactionRequest struct {
	scopeUser
	Emoji string `json:"emoji"`
}

func (h *GameHandler) Reaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}

	turn, result, err := h.engine.HandleReaction(r.Context(), req.Scope, req.UserID, req.Emoji)
	if err != nil {
		h.logger.Error("Reaction failed", "scope", req.Scope, "user_id", req.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to process reaction")
		return
	}
	if !result.Success {
		writeError(w, h.logger, http.StatusBadRequest, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{TurnResult: turn})
}

func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req scopeUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}

	result, err := h.engine.ResetSession(r.Context(), req.Scope, req.UserID)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to reset session")
		return
	}
	if !result.Success {
		writeError(w, h.logger, http.StatusNotFound, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *GameHandler) Exit(w http.ResponseWriter, r *http.Request) {
	var req scopeUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}

	result, err := h.engine.ExitGame(r.Context(), req.Scope, req.UserID)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to exit game")
		return
	}
	if !result.Success {
		writeError(w, h.logger, http.StatusConflict, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

type SelectCharacterRequest struct {
	scopeUser
	CharacterID string `json:"character_id"`
}

func (h *GameHandler) SelectCharacter(w http.ResponseWriter, r *http.Request) {
	var req SelectCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}
	if req.CharacterID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "character_id is required")
		return
	}

	result, err := h.engine.SelectCharacter(r.Context(), req.Scope, req.UserID, req.CharacterID)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to select character")
		return
	}
	if !result.Success {
		writeError(w, h.logger, http.StatusNotFound, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}

	status, err := h.engine.GetStatus(r.Context(), scope, userID)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load status")
		return
	}
	if status == nil {
		writeError(w, h.logger, http.StatusNotFound, "No session found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, status)
}

func (h *GameHandler) Export(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}

	doc, err := h.engine.Export(r.Context(), scope, userID)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to export session")
		return
	}
	if doc == nil {
		writeError(w, h.logger, http.StatusNotFound, "No session found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

type ImportRequest struct {
	scopeUser
	Document *engine.ExportDocument `json:"document"`
}

func (h *GameHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}

	result, err := h.engine.Import(r.Context(), req.Scope, req.UserID, req.Document)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to import session")
		return
	}
	if !result.Success {
		writeError(w, h.logger, http.StatusBadRequest, result.Reason)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}
