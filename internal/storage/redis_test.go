package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRedisStorage(mr.Addr(), logger), mr
}

func TestRedisStorage_SessionRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	loaded, err := store.GetSession(ctx, "group1", "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded != nil {
		t.Fatal("Expected nil for missing session")
	}

	sess := game.NewSession("group1", "u1", "char1")
	sess.Settings.Environment.Name = "绫音"
	game.UpdateAffection(sess, 30)
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err = store.GetSession(ctx, "group1", "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected session to be found")
	}
	if loaded.ID != sess.ID {
		t.Errorf("Expected id %s, got %s", sess.ID, loaded.ID)
	}
	if loaded.Affection != 40 || loaded.Relationship != "acquainted" {
		t.Errorf("Unexpected economy state: affection=%d relationship=%q", loaded.Affection, loaded.Relationship)
	}
	if loaded.Settings.Environment.Name != "绫音" {
		t.Errorf("Expected environment persisted, got %q", loaded.Settings.Environment.Name)
	}
}

func TestRedisStorage_SessionUpsertedByScopeUser(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	sess := game.NewSession("group1", "u1", "char1")
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// Switching character updates the same (scope, user) record.
	sess.CharacterID = "char2"
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err := store.GetSession(ctx, "group1", "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded.CharacterID != "char2" {
		t.Errorf("Expected character switched in place, got %q", loaded.CharacterID)
	}
}

func TestRedisStorage_HistoryWindow(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	sessionID := uuid.New()

	for i := 0; i < 10; i++ {
		err := store.AppendHistory(ctx, sessionID, game.HistoryEntry{
			Role:    game.HistoryRolePlayer,
			Content: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}

	entries, err := store.GetRecentHistory(ctx, sessionID, 3)
	if err != nil {
		t.Fatalf("GetRecentHistory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	// Most recent 3, chronological order on return
	if entries[0].Content != "h" || entries[2].Content != "j" {
		t.Errorf("Unexpected window order: %q %q %q", entries[0].Content, entries[1].Content, entries[2].Content)
	}
}

func TestRedisStorage_DeleteSessionRemovesHistory(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	sess := game.NewSession("g", "u1", "")
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := store.AppendHistory(ctx, sess.ID, game.HistoryEntry{Role: game.HistoryRolePlayer, Content: "hi"}); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	if err := store.DeleteSession(ctx, "g", "u1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	loaded, _ := store.GetSession(ctx, "g", "u1")
	if loaded != nil {
		t.Error("Expected session deleted")
	}
	entries, _ := store.GetRecentHistory(ctx, sess.ID, 10)
	if len(entries) != 0 {
		t.Errorf("Expected history deleted, got %d entries", len(entries))
	}
}

func TestRedisStorage_CharacterVisibility(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	public := &game.Character{ID: "c1", Name: "公开角色", CreatedBy: "alice", IsPublic: true}
	private := &game.Character{ID: "c2", Name: "私有角色", CreatedBy: "alice", IsPublic: false}
	for _, c := range []*game.Character{public, private} {
		if err := store.SaveCharacter(ctx, c); err != nil {
			t.Fatalf("SaveCharacter failed: %v", err)
		}
	}

	aliceList, err := store.ListCharacters(ctx, "alice")
	if err != nil {
		t.Fatalf("ListCharacters failed: %v", err)
	}
	if len(aliceList) != 2 {
		t.Errorf("Expected creator to see both characters, got %d", len(aliceList))
	}

	bobList, err := store.ListCharacters(ctx, "bob")
	if err != nil {
		t.Fatalf("ListCharacters failed: %v", err)
	}
	if len(bobList) != 1 || bobList[0].ID != "c1" {
		t.Errorf("Expected other users to see only public characters, got %+v", bobList)
	}
}

func TestRedisStorage_DeleteCharacter(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	c := &game.Character{ID: "c1", Name: "x", CreatedBy: "alice", IsPublic: true}
	if err := store.SaveCharacter(ctx, c); err != nil {
		t.Fatalf("SaveCharacter failed: %v", err)
	}
	if err := store.DeleteCharacter(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCharacter failed: %v", err)
	}

	loaded, err := store.GetCharacter(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if loaded != nil {
		t.Error("Expected character deleted")
	}
	list, _ := store.ListCharacters(ctx, "alice")
	if len(list) != 0 {
		t.Errorf("Expected empty listing after delete, got %d", len(list))
	}
}
