package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
	"github.com/jwebster45206/galgame-engine/pkg/game"
	"github.com/jwebster45206/galgame-engine/pkg/parser"
	"github.com/jwebster45206/galgame-engine/pkg/prompts"
)

// bootstrap runs the two-phase character generation and returns the
// opening narrative. Phase 1 generates the environment from the fixed
// bootstrap prompt; phase 2 generates the opening scene, whose parsed
// directives seed the game state. The caller holds the session lock.
func (e *Engine) bootstrap(ctx context.Context, sess *game.Session) (string, error) {
	opts, _ := e.resolveChatOptions(ctx, sess.Scope)

	// Phase 1: environment generation.
	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: prompts.BootstrapPrompt},
		{Role: chat.ChatRoleUser, Content: "请生成角色与世界设定。"},
	}
	resp, err := e.callLLM(ctx, sess.Scope, sess.UserID, "bootstrap_env", messages, opts)
	if err != nil {
		return "", fmt.Errorf("environment generation failed: %w", err)
	}

	b := parser.ParseBootstrap(resp.Text())
	if b.IsEmpty() {
		return "", fmt.Errorf("environment generation returned no recognizable fields")
	}
	sess.Settings.Environment = game.Environment{
		Name:          b.Name,
		World:         b.World,
		Identity:      b.Identity,
		Personality:   b.Personality,
		Likes:         b.Likes,
		Dislikes:      b.Dislikes,
		Background:    b.Background,
		Secret:        b.Secret,
		Scene:         b.Scene,
		MeetingReason: b.MeetingReason,
		Greeting:      b.Greeting,
	}

	// Phase 2: opening scene, parsed with the normal grammar.
	messages = []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: prompts.BuildOpeningPrompt(sess.Settings.Environment) + prompts.GrammarPrompt},
		{Role: chat.ChatRoleUser, Content: "（游戏开始）"},
	}
	resp, err = e.callLLM(ctx, sess.Scope, sess.UserID, "bootstrap_opening", messages, opts)
	if err != nil {
		return "", fmt.Errorf("opening generation failed: %w", err)
	}

	parsed := parser.Parse(resp.Text())
	openingResult := &TurnResult{SessionID: sess.ID}
	e.applyParsed(sess, parsed, openingResult)

	if sess.Settings.State.CurrentScene == "" {
		sess.Settings.State.CurrentScene = sess.Settings.Environment.Scene
	}

	opening := parsed.CleanText
	if opening == "" {
		opening = sess.Settings.Environment.Greeting
	}

	sess.InGame = true

	// The bootstrap persists on its own so a later turn failure cannot
	// lose the generated environment.
	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return "", err
	}
	if opening != "" {
		entry := game.HistoryEntry{
			Role:      game.HistoryRoleCharacter,
			Content:   opening,
			Timestamp: time.Now(),
		}
		if err := e.storage.AppendHistory(ctx, sess.ID, entry); err != nil {
			return "", err
		}
	}

	e.logger.Info("Session bootstrapped",
		"scope", sess.Scope,
		"user_id", sess.UserID,
		"character_name", sess.Settings.Environment.Name)

	return opening, nil
}
