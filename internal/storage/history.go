package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// History operations (Redis-backed). Each session's history is an
// append-only list; entries keep their insertion order, so list order
// is chronological.

func (r *RedisStorage) AppendHistory(ctx context.Context, sessionID uuid.UUID, entries ...game.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	key := historyKeyPrefix + sessionID.String()
	values := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal history entry: %w", err)
		}
		values = append(values, string(data))
	}

	if err := r.client.RPush(ctx, key, values...).Err(); err != nil {
		r.logger.Error("Failed to append history", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetRecentHistory(ctx context.Context, sessionID uuid.UUID, n int) ([]game.HistoryEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	key := historyKeyPrefix + sessionID.String()
	raw, err := r.client.LRange(ctx, key, int64(-n), -1).Result()
	if err != nil {
		r.logger.Error("Failed to load history", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	entries := make([]game.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry game.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			r.logger.Warn("Skipping malformed history entry", "session_id", sessionID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *RedisStorage) ClearHistory(ctx context.Context, sessionID uuid.UUID) error {
	key := historyKeyPrefix + sessionID.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to clear history", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
