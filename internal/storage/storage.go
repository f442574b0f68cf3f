package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// Storage is the persistence boundary for sessions, characters and
// history. Lookups return nil (not an error) when the entity does not
// exist. Implementations must be safe for concurrent use across
// different session keys; per-key turn serialization is the engine's
// responsibility.
type Storage interface {
	// Ping tests the backend connection
	Ping(ctx context.Context) error

	// Close closes the backend connection
	Close() error

	// GetSession retrieves the session for a (scope, user) pair.
	// Returns nil if no session exists yet.
	GetSession(ctx context.Context, scope, userID string) (*game.Session, error)

	// SaveSession upserts a session. There is at most one session per
	// (scope, user) pair.
	SaveSession(ctx context.Context, s *game.Session) error

	// DeleteSession removes a session and its history
	DeleteSession(ctx context.Context, scope, userID string) error

	// AppendHistory appends entries to a session's history log
	AppendHistory(ctx context.Context, sessionID uuid.UUID, entries ...game.HistoryEntry) error

	// GetRecentHistory returns the most recent n entries in
	// chronological order
	GetRecentHistory(ctx context.Context, sessionID uuid.UUID, n int) ([]game.HistoryEntry, error)

	// ClearHistory wipes a session's history log
	ClearHistory(ctx context.Context, sessionID uuid.UUID) error

	// SaveCharacter upserts an authored character
	SaveCharacter(ctx context.Context, c *game.Character) error

	// GetCharacter retrieves a character by id. Returns nil if absent.
	GetCharacter(ctx context.Context, id string) (*game.Character, error)

	// DeleteCharacter removes a character by id
	DeleteCharacter(ctx context.Context, id string) error

	// ListCharacters returns public characters plus the requester's
	// private ones
	ListCharacters(ctx context.Context, requesterID string) ([]game.Character, error)
}
