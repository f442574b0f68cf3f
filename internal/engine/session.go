package engine

import (
	"context"
	"fmt"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// Status is a read-only snapshot of a session for status displays.
type Status struct {
	InGame       bool             `json:"in_game"`
	CharacterID  string           `json:"character_id,omitempty"`
	Name         string           `json:"name,omitempty"`
	Affection    int              `json:"affection"`
	Trust        int              `json:"trust"`
	Gold         int              `json:"gold"`
	Relationship string           `json:"relationship"`
	TrustLevel   string           `json:"trust_level"`
	Items        []game.Item      `json:"items,omitempty"`
	Environment  game.Environment `json:"environment"`
	State        game.GameState   `json:"state"`
}

// GetStatus returns the current session snapshot, or nil when the user
// has never started a game in this scope.
func (e *Engine) GetStatus(ctx context.Context, scope, userID string) (*Status, error) {
	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	env := sess.Settings.Environment
	if len(sess.Settings.State.RevealedSecrets) == 0 {
		env.Secret = ""
	}

	return &Status{
		InGame:       sess.InGame,
		CharacterID:  sess.CharacterID,
		Name:         env.Name,
		Affection:    sess.Affection,
		Trust:        sess.Trust,
		Gold:         sess.Gold,
		Relationship: sess.Relationship,
		TrustLevel:   game.LevelFor(game.TrustLevels, sess.Trust).Name,
		Items:        sess.Items,
		Environment:  env,
		State:        sess.Settings.State,
	}, nil
}

// ExitGame leaves game mode without touching progress. A later message
// in the same scope resumes where the player left off.
func (e *Engine) ExitGame(ctx context.Context, scope, userID string) (game.Result, error) {
	unlock := e.lockSession(game.SessionKey(scope, userID))
	defer unlock()

	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return game.Result{}, err
	}
	if sess == nil {
		return game.Fail("no active session"), nil
	}
	if !sess.InGame {
		return game.Fail("not in game"), nil
	}
	sess.InGame = false
	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return game.Result{}, err
	}
	return game.OK(), nil
}

// ResetSession wipes history and progress but keeps the character
// binding. The next message re-runs the bootstrap from scratch.
func (e *Engine) ResetSession(ctx context.Context, scope, userID string) (game.Result, error) {
	unlock := e.lockSession(game.SessionKey(scope, userID))
	defer unlock()

	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return game.Result{}, err
	}
	if sess == nil {
		return game.Fail("no session to reset"), nil
	}

	if err := e.storage.ClearHistory(ctx, sess.ID); err != nil {
		return game.Result{}, fmt.Errorf("failed to clear history: %w", err)
	}
	sess.ResetProgress()
	if e.cfg.InitialGold > 0 {
		sess.Gold = e.cfg.InitialGold
	}
	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return game.Result{}, err
	}

	e.logger.Info("Session reset", "scope", scope, "user_id", userID)
	return game.OK(), nil
}

// SelectCharacter binds a character to the session and resets progress
// so the next message bootstraps into the new character's world.
func (e *Engine) SelectCharacter(ctx context.Context, scope, userID, characterID string) (game.Result, error) {
	unlock := e.lockSession(game.SessionKey(scope, userID))
	defer unlock()

	char, err := e.storage.GetCharacter(ctx, characterID)
	if err != nil {
		return game.Result{}, err
	}
	if char == nil {
		return game.Fail("character not found"), nil
	}
	if !char.IsPublic && char.CreatedBy != userID {
		return game.Fail("character is private"), nil
	}

	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return game.Result{}, err
	}
	if sess == nil {
		sess = game.NewSession(scope, userID, characterID)
		if e.cfg.InitialGold > 0 {
			sess.Gold = e.cfg.InitialGold
		}
	} else {
		if err := e.storage.ClearHistory(ctx, sess.ID); err != nil {
			return game.Result{}, fmt.Errorf("failed to clear history: %w", err)
		}
		sess.CharacterID = characterID
		sess.ResetProgress()
		if e.cfg.InitialGold > 0 {
			sess.Gold = e.cfg.InitialGold
		}
	}

	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return game.Result{}, err
	}
	return game.OK(), nil
}
