package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// Session operations (Redis-backed). Sessions are keyed by the
// (scope, user) pair, never by character, so switching characters
// updates the same document in place.

func (r *RedisStorage) GetSession(ctx context.Context, scope, userID string) (*game.Session, error) {
	key := sessionKeyPrefix + game.SessionKey(scope, userID)
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load session", "key", key, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s game.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		r.logger.Error("Failed to unmarshal session", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, s *game.Session) error {
	s.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKeyPrefix + s.Key()
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save session", "key", key, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, scope, userID string) error {
	s, err := r.GetSession(ctx, scope, userID)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	keys := []string{
		sessionKeyPrefix + s.Key(),
		historyKeyPrefix + s.ID.String(),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("Failed to delete session", "keys", keys, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
