package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
	"github.com/jwebster45206/galgame-engine/pkg/game"
	"github.com/jwebster45206/galgame-engine/pkg/parser"
	"github.com/jwebster45206/galgame-engine/pkg/prompts"
)

// TurnResult is what one player turn produced.
type TurnResult struct {
	SessionID    uuid.UUID `json:"session_id"`
	Narrative    string    `json:"narrative"`
	Opening      string    `json:"opening,omitempty"` // set when this turn ran the bootstrap
	Bootstrapped bool      `json:"bootstrapped,omitempty"`

	AffectionDelta int    `json:"affection_delta"`
	TrustDelta     int    `json:"trust_delta"`
	GoldDelta      int    `json:"gold_delta"`
	Affection      int    `json:"affection"`
	Trust          int    `json:"trust"`
	Gold           int    `json:"gold"`
	Relationship   string `json:"relationship"`
	LevelChanged   bool   `json:"level_changed,omitempty"`

	ItemsGained  []game.Item          `json:"items_gained,omitempty"`
	Options      []parser.Option      `json:"options,omitempty"`
	Event        *parser.EventOffer   `json:"event,omitempty"`
	EventOptions []parser.EventOption `json:"event_options,omitempty"`
}

// SendMessage runs one player turn. On first contact (or after reset)
// the two-phase bootstrap runs before the message is processed. Economy
// deltas are applied only after a successful, fully parsed LLM reply.
func (e *Engine) SendMessage(ctx context.Context, scope, userID, text string, imageRefs []string) (*TurnResult, error) {
	unlock := e.lockSession(game.SessionKey(scope, userID))
	defer unlock()

	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = game.NewSession(scope, userID, "")
		if e.cfg.InitialGold > 0 {
			sess.Gold = e.cfg.InitialGold
		}
	}

	result := &TurnResult{SessionID: sess.ID}

	if !sess.InGame || sess.Settings.Environment.IsEmpty() {
		opening, err := e.bootstrap(ctx, sess)
		if err != nil {
			return nil, fmt.Errorf("bootstrap failed: %w", err)
		}
		result.Bootstrapped = true
		result.Opening = opening
	}

	var char *game.Character
	if sess.CharacterID != "" {
		char, err = e.storage.GetCharacter(ctx, sess.CharacterID)
		if err != nil {
			return nil, err
		}
	}

	window := e.historyWindow()
	history, err := e.storage.GetRecentHistory(ctx, sess.ID, window)
	if err != nil {
		return nil, err
	}

	messages, err := prompts.New().
		WithSession(sess).
		WithCharacter(char).
		WithHistory(history).
		WithHistoryWindow(window).
		WithPlayerTurn(text, imageRefs).
		Build()
	if err != nil {
		return nil, err
	}

	opts, budget := e.resolveChatOptions(ctx, scope)
	messages = chat.TruncateToBudget(messages, budget)

	resp, err := e.callLLM(ctx, scope, userID, "game_turn", messages, opts)
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	parsed := parser.Parse(resp.Text())
	e.applyParsed(sess, parsed, result)

	// A named event the session has already been through is silently
	// dropped; only narrative and numeric deltas remain.
	if parsed.Event != nil && !sess.HasTriggered(parsed.Event.Name) {
		result.Event = parsed.Event
		result.EventOptions = parsed.EventOptions
	}

	now := time.Now()
	entries := []game.HistoryEntry{
		{Role: game.HistoryRolePlayer, Content: text, Timestamp: now},
		{
			Role:            game.HistoryRoleCharacter,
			Content:         parsed.CleanText,
			AffectionChange: result.AffectionDelta,
			TrustChange:     result.TrustDelta,
			GoldChange:      result.GoldDelta,
			Timestamp:       now,
		},
	}

	// All economy fields for the turn land in one session write.
	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := e.storage.AppendHistory(ctx, sess.ID, entries...); err != nil {
		return nil, err
	}

	result.Narrative = parsed.CleanText
	return result, nil
}

// applyParsed folds parsed directives into the session and fills the
// turn result. Each directive kind is handled explicitly.
func (e *Engine) applyParsed(sess *game.Session, parsed *parser.Response, result *TurnResult) {
	gs := &sess.Settings.State

	if parsed.Scene != "" {
		gs.CurrentScene = parsed.Scene
		gs.AddPlace(parsed.Scene)
	}
	if parsed.Task != "" {
		gs.CurrentTask = parsed.Task
	}
	if parsed.Clue != "" {
		gs.AddClue(parsed.Clue)
	}
	if parsed.Plot != "" {
		gs.AddPlot(parsed.Plot)
	}
	for _, d := range parsed.Discoveries {
		gs.AddDiscovery(d.Category, d.Content)
		switch d.Category {
		case "人物":
			gs.AddNPC(d.Content)
		case "地点":
			gs.AddPlace(d.Content)
		case "秘密":
			gs.RevealSecret(d.Content)
		}
	}

	for _, grant := range parsed.Items {
		item := game.Item{
			Name:        grant.Name,
			Type:        itemType(grant.Type),
			Description: grant.Description,
		}
		game.AddItem(sess, item)
		result.ItemsGained = append(result.ItemsGained, item)
	}

	if parsed.AffectionChange != 0 {
		change := game.UpdateAffection(sess, parsed.AffectionChange)
		result.AffectionDelta = parsed.AffectionChange
		result.LevelChanged = change.Changed()
	}
	if parsed.TrustChange != 0 {
		game.UpdateTrust(sess, parsed.TrustChange)
		result.TrustDelta = parsed.TrustChange
	}
	if parsed.GoldChange != 0 {
		game.UpdateGold(sess, parsed.GoldChange, e.cfg.MaxGold)
		result.GoldDelta = parsed.GoldChange
	}

	result.Affection = sess.Affection
	result.Trust = sess.Trust
	result.Gold = sess.Gold
	result.Relationship = sess.Relationship
	result.Options = parsed.Options
}

// reactionMessages maps reaction emoji to synthesized player turns.
var reactionMessages = map[string]string{
	"heart":    "（玩家对你比了一个爱心）",
	"thumbsup": "（玩家对你竖起大拇指表示赞许）",
	"rose":     "（玩家送给你一朵玫瑰）",
	"clap":     "（玩家为你鼓掌）",
	"laugh":    "（玩家被你逗笑了）",
	"cry":      "（玩家难过得快哭了）",
	"angry":    "（玩家看起来有些生气）",
}

// HandleReaction runs a turn from a reaction emoji. Unknown emoji are
// a recoverable caller-input condition, not an error.
func (e *Engine) HandleReaction(ctx context.Context, scope, userID, emojiName string) (*TurnResult, game.Result, error) {
	synthesized, ok := reactionMessages[emojiName]
	if !ok {
		return nil, game.Fail("unknown reaction: " + emojiName), nil
	}
	result, err := e.SendMessage(ctx, scope, userID, synthesized, nil)
	if err != nil {
		return nil, game.Result{}, err
	}
	return result, game.OK(), nil
}

func (e *Engine) historyWindow() int {
	if e.cfg.HistoryWindow > 0 {
		return e.cfg.HistoryWindow
	}
	return prompts.DefaultHistoryWindow
}

// itemType accepts both the Chinese tag vocabulary and the stored
// English names. Anything unrecognized becomes a gift.
func itemType(raw string) game.ItemType {
	switch raw {
	case "钥匙", string(game.ItemTypeKey):
		return game.ItemTypeKey
	case "消耗品", string(game.ItemTypeConsumable):
		return game.ItemTypeConsumable
	case "线索", string(game.ItemTypeClue):
		return game.ItemTypeClue
	case "礼物", string(game.ItemTypeGift):
		return game.ItemTypeGift
	default:
		return game.ItemTypeGift
	}
}
