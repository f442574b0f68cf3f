package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwebster45206/galgame-engine/internal/config"
	"github.com/jwebster45206/galgame-engine/internal/engine"
	"github.com/jwebster45206/galgame-engine/internal/services"
	"github.com/jwebster45206/galgame-engine/internal/storage"
	"github.com/jwebster45206/galgame-engine/pkg/game"
)

func testRouter(t *testing.T, replies ...string) (http.Handler, *storage.MockStorage) {
	t.Helper()
	store := storage.NewMockStorage()
	llm := services.NewMockLLMService(replies...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.GameConfig{InitialGold: 100, MaxGold: 10000, HistoryWindow: 6, CharBudget: 24000, Model: "test-model", MaxTokens: 2048}
	e := engine.New(store, llm, nil, nil, nil, cfg, logger)
	return NewRouter(e, store, logger), store
}

func seedSession(t *testing.T, store *storage.MockStorage, scope, userID string) *game.Session {
	t.Helper()
	sess := game.NewSession(scope, userID, "")
	sess.Gold = 100
	sess.InGame = true
	sess.Settings.Environment = game.Environment{Name: "苏婉晴", World: "现代都市", Scene: "咖啡馆"}
	if err := store.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return sess
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMessageEndpoint(t *testing.T) {
	router, store := testRouter(t, "[好感度:+5]她看着你。")
	seedSession(t, store, "private", "u1")

	w := postJSON(t, router, "/v1/game/message", map[string]any{
		"scope": "private", "user_id": "u1", "text": "你好",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp MessageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AffectionDelta != 5 {
		t.Errorf("expected affection delta 5, got %d", resp.AffectionDelta)
	}
	if resp.Affection != 15 {
		t.Errorf("expected affection 15, got %d", resp.Affection)
	}
	if !strings.Contains(resp.Narrative, "她看着你") {
		t.Errorf("unexpected narrative: %q", resp.Narrative)
	}
}

func TestMessageValidation(t *testing.T) {
	router, _ := testRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing user", map[string]any{"scope": "private", "text": "hi"}},
		{"missing text", map[string]any{"scope": "private", "user_id": "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/v1/game/message", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestOptionOfferAndChoice(t *testing.T) {
	router, store := testRouter(t,
		"[选项1:留下来帮忙][选项2:先告辞]她看着你。",
		"[好感度:+2]她很高兴你留下来。",
	)
	seedSession(t, store, "private", "u2")

	w := postJSON(t, router, "/v1/game/message", map[string]any{
		"scope": "private", "user_id": "u2", "text": "打烊了吗？",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var offer MessageResponse
	if err := json.NewDecoder(w.Body).Decode(&offer); err != nil {
		t.Fatalf("failed to decode offer: %v", err)
	}
	if offer.OfferID == "" {
		t.Fatal("expected an offer id when options are present")
	}
	if len(offer.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(offer.Options))
	}

	w = postJSON(t, router, "/v1/game/choice", map[string]any{
		"scope": "private", "user_id": "u2", "offer_id": offer.OfferID, "option_index": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resolved MessageResponse
	if err := json.NewDecoder(w.Body).Decode(&resolved); err != nil {
		t.Fatalf("failed to decode resolution: %v", err)
	}
	if resolved.AffectionDelta != 2 {
		t.Errorf("expected affection delta 2, got %d", resolved.AffectionDelta)
	}
}

func TestChoiceWithoutPendingOffer(t *testing.T) {
	router, _ := testRouter(t)
	w := postJSON(t, router, "/v1/game/choice", map[string]any{
		"scope": "private", "user_id": "u3", "option_index": 1,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestReactionUnknownEmoji(t *testing.T) {
	router, store := testRouter(t)
	seedSession(t, store, "private", "u4")

	w := postJSON(t, router, "/v1/game/reaction", map[string]any{
		"scope": "private", "user_id": "u4", "emoji": "mystery",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	router, store := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/game/status?scope=private&user_id=nobody", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}

	seedSession(t, store, "private", "u5")
	req = httptest.NewRequest(http.MethodGet, "/v1/game/status?scope=private&user_id=u5", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status engine.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !status.InGame || status.Gold != 100 {
		t.Errorf("unexpected status: in_game=%v gold=%d", status.InGame, status.Gold)
	}
}

func TestResetEndpoint(t *testing.T) {
	router, store := testRouter(t)
	seedSession(t, store, "private", "u6")

	w := postJSON(t, router, "/v1/game/reset", map[string]any{
		"scope": "private", "user_id": "u6",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	sess, err := store.GetSession(context.Background(), "private", "u6")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if sess.InGame {
		t.Error("expected session out of game after reset")
	}
}

func TestExportImportEndpoints(t *testing.T) {
	router, store := testRouter(t)
	sess := seedSession(t, store, "private", "u7")
	sess.Affection = 66
	if err := store.SaveSession(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/game/export?scope=private&user_id=u7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc engine.ExportDocument
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode export: %v", err)
	}
	if doc.Affection != 66 {
		t.Errorf("expected affection 66 in export, got %d", doc.Affection)
	}

	w = postJSON(t, router, "/v1/game/import", map[string]any{
		"scope": "private", "user_id": "u8", "document": doc,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	imported, err := store.GetSession(context.Background(), "private", "u8")
	if err != nil || imported == nil {
		t.Fatalf("expected imported session, got %v err=%v", imported, err)
	}
	if imported.Affection != 66 {
		t.Errorf("expected affection 66 after import, got %d", imported.Affection)
	}
}

func TestCharacterEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	w := postJSON(t, router, "/v1/characters/", CharacterRequest{
		UserID:    "alice",
		Character: &game.Character{Name: "白毛侦探", IsPublic: true},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created game.Character
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode character: %v", err)
	}
	if created.ID == "" || created.CreatedBy != "alice" {
		t.Errorf("unexpected character: %+v", created)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/characters/?user_id=bob", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w2.Code)
	}
	var list []game.Character
	if err := json.NewDecoder(w2.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 public character, got %d", len(list))
	}

	// Deleting as a non-creator is forbidden.
	req = httptest.NewRequest(http.MethodDelete, "/v1/characters/"+created.ID+"?user_id=bob", nil)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req)
	if w3.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w3.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/characters/"+created.ID+"?user_id=alice", nil)
	w4 := httptest.NewRecorder()
	router.ServeHTTP(w4, req)
	if w4.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w4.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, store := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if health.Status != "healthy" || health.Components["storage"] != "healthy" {
		t.Errorf("unexpected health: %+v", health)
	}

	store.SetPingError(errors.New("redis down"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when storage is down, got %d", w.Code)
	}
}
