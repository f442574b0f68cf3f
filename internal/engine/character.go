package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// CreateCharacter stores a new character card owned by creatorID.
func (e *Engine) CreateCharacter(ctx context.Context, creatorID string, char *game.Character) (*game.Character, game.Result, error) {
	if strings.TrimSpace(char.Name) == "" {
		return nil, game.Fail("character name is required"), nil
	}
	if char.ID == "" {
		char.ID = uuid.New().String()
	}
	char.CreatedBy = creatorID
	now := time.Now()
	char.CreatedAt = now
	char.UpdatedAt = now

	if err := e.storage.SaveCharacter(ctx, char); err != nil {
		return nil, game.Result{}, err
	}
	return char, game.OK(), nil
}

// UpdateCharacter applies changes to an existing card. Only the creator
// may modify it.
func (e *Engine) UpdateCharacter(ctx context.Context, requesterID string, char *game.Character) (*game.Character, game.Result, error) {
	existing, err := e.storage.GetCharacter(ctx, char.ID)
	if err != nil {
		return nil, game.Result{}, err
	}
	if existing == nil {
		return nil, game.Fail("character not found"), nil
	}
	if existing.CreatedBy != requesterID {
		return nil, game.Fail("only the creator can modify a character"), nil
	}

	existing.Name = char.Name
	existing.Description = char.Description
	existing.PromptTemplate = char.PromptTemplate
	existing.InitialMessage = char.InitialMessage
	existing.IsPublic = char.IsPublic
	existing.UpdatedAt = time.Now()

	if err := e.storage.SaveCharacter(ctx, existing); err != nil {
		return nil, game.Result{}, err
	}
	return existing, game.OK(), nil
}

// DeleteCharacter removes a card. Only the creator may delete it.
func (e *Engine) DeleteCharacter(ctx context.Context, requesterID, characterID string) (game.Result, error) {
	existing, err := e.storage.GetCharacter(ctx, characterID)
	if err != nil {
		return game.Result{}, err
	}
	if existing == nil {
		return game.Fail("character not found"), nil
	}
	if existing.CreatedBy != requesterID {
		return game.Fail("only the creator can delete a character"), nil
	}
	if err := e.storage.DeleteCharacter(ctx, characterID); err != nil {
		return game.Result{}, err
	}
	return game.OK(), nil
}

// GetCharacter fetches one card, enforcing visibility.
func (e *Engine) GetCharacter(ctx context.Context, requesterID, characterID string) (*game.Character, error) {
	char, err := e.storage.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if char == nil {
		return nil, nil
	}
	if !char.IsPublic && char.CreatedBy != requesterID {
		return nil, nil
	}
	return char, nil
}

// ListCharacters returns every card visible to the requester: public
// cards plus the requester's own.
func (e *Engine) ListCharacters(ctx context.Context, requesterID string) ([]game.Character, error) {
	return e.storage.ListCharacters(ctx, requesterID)
}
