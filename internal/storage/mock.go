package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// MockStorage is an in-memory Storage implementation for testing.
type MockStorage struct {
	mu         sync.RWMutex
	sessions   map[string]*game.Session
	characters map[string]*game.Character
	history    map[uuid.UUID][]game.HistoryEntry
	pingError  error
	saveError  error
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:   make(map[string]*game.Session),
		characters: make(map[string]*game.Character),
		history:    make(map[uuid.UUID][]game.HistoryEntry),
	}
}

// SetPingError configures ping to fail.
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures session saves to fail.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) GetSession(ctx context.Context, scope, userID string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[game.SessionKey(scope, userID)]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockStorage) SaveSession(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	s.UpdatedAt = time.Now()
	copied := *s
	m.sessions[s.Key()] = &copied
	return nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, scope, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := game.SessionKey(scope, userID)
	if s, ok := m.sessions[key]; ok {
		delete(m.history, s.ID)
	}
	delete(m.sessions, key)
	return nil
}

func (m *MockStorage) AppendHistory(ctx context.Context, sessionID uuid.UUID, entries ...game.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[sessionID] = append(m.history[sessionID], entries...)
	return nil
}

func (m *MockStorage) GetRecentHistory(ctx context.Context, sessionID uuid.UUID, n int) ([]game.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.history[sessionID]
	if n <= 0 || len(all) == 0 {
		return nil, nil
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]game.HistoryEntry, len(all))
	copy(out, all)
	return out, nil
}

func (m *MockStorage) ClearHistory(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, sessionID)
	return nil
}

// HistoryLen reports how many history entries a session has; test helper.
func (m *MockStorage) HistoryLen(sessionID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history[sessionID])
}

func (m *MockStorage) SaveCharacter(ctx context.Context, c *game.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	copied := *c
	m.characters[c.ID] = &copied
	return nil
}

func (m *MockStorage) GetCharacter(ctx context.Context, id string) (*game.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *MockStorage) DeleteCharacter(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.characters, id)
	return nil
}

func (m *MockStorage) ListCharacters(ctx context.Context, requesterID string) ([]game.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []game.Character
	for _, c := range m.characters {
		if c.IsPublic || c.CreatedBy == requesterID {
			out = append(out, *c)
		}
	}
	return out, nil
}
