package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// Character operations (Redis-backed). Characters are JSON documents
// with a set index for listing.

func (r *RedisStorage) SaveCharacter(ctx context.Context, c *game.Character) error {
	if c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, characterKeyPrefix+c.ID, string(data), 0)
	pipe.SAdd(ctx, characterIndexKey, c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save character", "character_id", c.ID, "error", err)
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetCharacter(ctx context.Context, id string) (*game.Character, error) {
	data, err := r.client.Get(ctx, characterKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load character", "character_id", id, "error", err)
		return nil, fmt.Errorf("failed to load character: %w", err)
	}

	var c game.Character
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &c, nil
}

func (r *RedisStorage) DeleteCharacter(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, characterKeyPrefix+id)
	pipe.SRem(ctx, characterIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete character", "character_id", id, "error", err)
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListCharacters(ctx context.Context, requesterID string) ([]game.Character, error) {
	ids, err := r.client.SMembers(ctx, characterIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	characters := make([]game.Character, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			// Index can lag a delete; drop the stale member.
			r.client.SRem(ctx, characterIndexKey, id)
			continue
		}
		if c.IsPublic || c.CreatedBy == requesterID {
			characters = append(characters, *c)
		}
	}

	sort.Slice(characters, func(i, j int) bool {
		return characters[i].ID < characters[j].ID
	})
	return characters, nil
}
