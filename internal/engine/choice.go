package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/galgame-engine/pkg/game"
	"github.com/jwebster45206/galgame-engine/pkg/parser"
	"github.com/jwebster45206/galgame-engine/pkg/pending"
)

const (
	eventResultSuccess = "success"
	eventResultFail    = "fail"
)

// EventResult reports the outcome of resolving an offered event.
type EventResult struct {
	game.Result
	EventName      string `json:"event_name"`
	Outcome        string `json:"outcome,omitempty"` // "success" or "fail"
	ChosenOption   string `json:"chosen_option,omitempty"`
	AffectionDelta int    `json:"affection_delta"`
	Affection      int    `json:"affection"`
	Relationship   string `json:"relationship"`
}

// OfferChoice records a choice the character just offered so later
// out-of-band input can be correlated back to it. originMessageID is
// the transport id of the message that carried the offer.
func (e *Engine) OfferChoice(scope, userID, originMessageID string, turn *TurnResult) {
	if originMessageID == "" || turn == nil {
		return
	}
	choice := &pending.Choice{
		Scope:           normalizedScope(scope),
		OriginMessageID: originMessageID,
		UserID:          userID,
	}

	switch {
	case turn.Event != nil:
		choice.Kind = pending.KindEvent
		choice.Event = turn.Event
		choice.EventOptions = turn.EventOptions
	case len(turn.Options) > 0:
		choice.Kind = pending.KindOption
		choice.Options = turn.Options
	default:
		return
	}
	e.pending.Save(choice)
}

// ResolveChoiceByOrigin resolves a pending choice identified by the
// message that offered it. Free text or an option index selects the
// option. Expired or unknown offers are a recoverable condition.
func (e *Engine) ResolveChoiceByOrigin(ctx context.Context, scope, userID, originMessageID string, optionIndex int, freeText string) (*TurnResult, *EventResult, error) {
	choice := e.pending.GetByOrigin(normalizedScope(scope), originMessageID)
	if choice == nil {
		return nil, &EventResult{Result: game.Fail("no pending choice for this message")}, nil
	}
	return e.resolveChoice(ctx, scope, userID, choice, optionIndex, freeText)
}

// ResolveChoiceByUser resolves the newest pending choice a user has in
// a scope, used when the player replies with free text instead of
// addressing the offer message.
func (e *Engine) ResolveChoiceByUser(ctx context.Context, scope, userID string, optionIndex int, freeText string) (*TurnResult, *EventResult, error) {
	choice := e.pending.FindByUser(normalizedScope(scope), userID)
	if choice == nil {
		return nil, &EventResult{Result: game.Fail("no pending choice for this user")}, nil
	}
	return e.resolveChoice(ctx, scope, userID, choice, optionIndex, freeText)
}

func (e *Engine) resolveChoice(ctx context.Context, scope, userID string, choice *pending.Choice, optionIndex int, freeText string) (*TurnResult, *EventResult, error) {
	// The offer stays pending if someone else tries to answer it.
	if choice.UserID != userID {
		return nil, &EventResult{Result: game.Fail("choice belongs to another player")}, nil
	}

	switch choice.Kind {
	case pending.KindEvent:
		result, err := e.ResolveEventChoice(ctx, scope, userID, *choice.Event, choice.EventOptions, optionIndex, freeText)
		// Keep the offer on failure so the player can retry within the TTL.
		if err == nil && result.Success {
			e.pending.Remove(choice.Scope, choice.OriginMessageID)
		}
		return nil, result, err
	default:
		text := freeText
		if opt := matchOption(choice.Options, optionIndex, freeText); opt != nil {
			text = opt.Text
		}
		if text == "" {
			return nil, &EventResult{Result: game.Fail("no option selected")}, nil
		}
		turn, err := e.SendMessage(ctx, scope, userID, text, nil)
		if err != nil {
			return nil, nil, err
		}
		e.pending.Remove(choice.Scope, choice.OriginMessageID)
		return turn, &EventResult{Result: game.OK()}, nil
	}
}

// ResolveEventChoice resolves an offered event: one uniform draw in
// [0,100), success iff draw < successRate. The chosen option's success
// or fail delta applies; with no resolvable choice the first option is
// used. The event name joins triggeredEvents either way, so it can
// never be offered again.
func (e *Engine) ResolveEventChoice(ctx context.Context, scope, userID string, event parser.EventOffer, options []parser.EventOption, optionIndex int, freeText string) (*EventResult, error) {
	unlock := e.lockSession(game.SessionKey(scope, userID))
	defer unlock()

	sess, err := e.storage.GetSession(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &EventResult{Result: game.Fail("session not initialized")}, nil
	}
	if sess.HasTriggered(event.Name) {
		return &EventResult{Result: game.Fail("event already triggered"), EventName: event.Name}, nil
	}

	chosen := matchEventOption(options, optionIndex, freeText)

	draw := e.randInt(100)
	success := draw < event.SuccessRate

	delta := 0
	chosenText := ""
	if chosen != nil {
		chosenText = chosen.Text
		if success {
			delta = chosen.SuccessDelta
		} else {
			delta = chosen.FailDelta
		}
	}

	change := game.UpdateAffection(sess, delta)
	sess.MarkTriggered(event.Name)

	outcome := eventResultFail
	if success {
		outcome = eventResultSuccess
	}

	entry := game.HistoryEntry{
		Role:            game.HistoryRoleCharacter,
		Content:         fmt.Sprintf("【事件·%s】%s", event.Name, event.Description),
		EventType:       event.Name,
		EventResult:     outcome,
		AffectionChange: delta,
		Timestamp:       time.Now(),
	}

	if err := e.storage.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := e.storage.AppendHistory(ctx, sess.ID, entry); err != nil {
		return nil, err
	}

	return &EventResult{
		Result:         game.OK(),
		EventName:      event.Name,
		Outcome:        outcome,
		ChosenOption:   chosenText,
		AffectionDelta: delta,
		Affection:      change.New,
		Relationship:   change.NewLevel.Name,
	}, nil
}

func matchOption(options []parser.Option, index int, freeText string) *parser.Option {
	for i := range options {
		if index > 0 && options[i].Index == index {
			return &options[i]
		}
	}
	if freeText != "" {
		for i := range options {
			if strings.Contains(freeText, options[i].Text) || strings.Contains(options[i].Text, freeText) {
				return &options[i]
			}
		}
	}
	return nil
}

func matchEventOption(options []parser.EventOption, index int, freeText string) *parser.EventOption {
	for i := range options {
		if index > 0 && options[i].Index == index {
			return &options[i]
		}
	}
	if freeText != "" {
		for i := range options {
			if strings.Contains(freeText, options[i].Text) || strings.Contains(options[i].Text, freeText) {
				return &options[i]
			}
		}
	}
	if len(options) > 0 {
		return &options[0]
	}
	return nil
}

func normalizedScope(scope string) string {
	if scope == "" {
		return game.ScopePrivate
	}
	return scope
}
