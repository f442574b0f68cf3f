package engine

import (
	"context"
	"time"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// ExportDocument is a portable snapshot of one session: environment,
// progress, economy and history. The character's secret is withheld
// unless the player has already discovered it.
type ExportDocument struct {
	Version     int              `json:"version"`
	CharacterID string           `json:"character_id,omitempty"`
	Environment game.Environment `json:"environment"`
	State       game.GameState   `json:"state"`

	Affection       int         `json:"affection"`
	Trust           int         `json:"trust"`
	Gold            int         `json:"gold"`
	Relationship    string      `json:"relationship"`
	Items           []game.Item `json:"items,omitempty"`
	TriggeredEvents []string    `json:"triggered_events,omitempty"`

	History    []game.HistoryEntry `json:"history,omitempty"`
	ExportedAt time.Time           `json:"exported_at"`
}

const (
	exportVersion = 1

	// exportHistoryLimit caps how much dialogue travels with a snapshot.
	exportHistoryLimit = 200
)

// Export snapshots the caller's session. Returns nil when no session
// exists.
func (e *Engine) Export(ctx context.Context, scope, userID string) (*ExportDocument, error) {
	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	history, err := e.storage.GetRecentHistory(ctx, sess.ID, exportHistoryLimit)
	if err != nil {
		return nil, err
	}

	env := sess.Settings.Environment
	if len(sess.Settings.State.RevealedSecrets) == 0 {
		env.Secret = ""
	}

	return &ExportDocument{
		Version:         exportVersion,
		CharacterID:     sess.CharacterID,
		Environment:     env,
		State:           sess.Settings.State,
		Affection:       sess.Affection,
		Trust:           sess.Trust,
		Gold:            sess.Gold,
		Relationship:    sess.Relationship,
		Items:           sess.Items,
		TriggeredEvents: sess.TriggeredEvents,
		History:         history,
		ExportedAt:      time.Now(),
	}, nil
}

// Import replaces the target user's session in the given scope with the
// document's snapshot. An existing session and its history are
// discarded first.
func (e *Engine) Import(ctx context.Context, scope, userID string, doc *ExportDocument) (game.Result, error) {
	if doc == nil || doc.Environment.IsEmpty() {
		return game.Fail("import document has no environment"), nil
	}

	unlock := e.lockSession(game.SessionKey(scope, userID))
	defer unlock()

	existing, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return game.Result{}, err
	}
	sess := game.NewSession(scope, userID, doc.CharacterID)
	if existing != nil {
		if err := e.storage.ClearHistory(ctx, existing.ID); err != nil {
			return game.Result{}, err
		}
		// The store keeps one row per (scope, user) and preserves its
		// id on save; history must land under that same id.
		sess.ID = existing.ID
	}
	sess.Settings.Environment = doc.Environment
	sess.Settings.State = doc.State
	sess.Affection = doc.Affection
	sess.Trust = doc.Trust
	sess.Gold = doc.Gold
	sess.Relationship = doc.Relationship
	if sess.Relationship == "" {
		sess.Relationship = game.LevelFor(game.AffectionLevels, sess.Affection).Name
	}
	sess.Items = doc.Items
	sess.TriggeredEvents = doc.TriggeredEvents
	sess.InGame = true

	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return game.Result{}, err
	}
	for _, entry := range doc.History {
		if err := e.storage.AppendHistory(ctx, sess.ID, entry); err != nil {
			return game.Result{}, err
		}
	}

	e.logger.Info("Session imported", "scope", scope, "user_id", userID, "session_id", sess.ID)
	return game.OK(), nil
}
