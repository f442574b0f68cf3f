package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// MySQLConfig holds connection settings for the relational backend.
type MySQLConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// MySQLStorage implements Storage on MySQL via gorm. Variable-shape
// fields (items, settings) are serialized JSON columns so that schema
// evolution inside the blob stays backward compatible.
type MySQLStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Storage = (*MySQLStorage)(nil)

type sessionRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	Scope           string `gorm:"size:128;uniqueIndex:idx_scope_user"`
	UserID          string `gorm:"size:128;uniqueIndex:idx_scope_user"`
	CharacterID     string `gorm:"size:64;index"`
	Affection       int
	Trust           int
	Gold            int
	Relationship    string `gorm:"size:32"`
	InGame          bool
	Items           string `gorm:"type:json"`
	TriggeredEvents string `gorm:"type:json"`
	Settings        string `gorm:"type:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (sessionRow) TableName() string { return "galgame_sessions" }

type characterRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"size:128"`
	Description    string `gorm:"type:text"`
	PromptTemplate string `gorm:"type:text"`
	InitialMessage string `gorm:"type:text"`
	CreatedBy      string `gorm:"size:128;index"`
	IsPublic       bool   `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (characterRow) TableName() string { return "galgame_characters" }

type historyRow struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	SessionID       string `gorm:"size:36;index"`
	Role            string `gorm:"size:16"`
	Content         string `gorm:"type:text"`
	EventType       string `gorm:"size:128"`
	EventResult     string `gorm:"size:16"`
	AffectionChange int
	TrustChange     int
	GoldChange      int
	Timestamp       time.Time
}

func (historyRow) TableName() string { return "galgame_history" }

// NewMySQLStorage opens the database, configures the pool and applies
// migrations.
func NewMySQLStorage(cfg MySQLConfig, logger *slog.Logger) (*MySQLStorage, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&sessionRow{}, &characterRow{}, &historyRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &MySQLStorage{db: db, logger: logger}, nil
}

func (s *MySQLStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return nil
}

func (s *MySQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *MySQLStorage) GetSession(ctx context.Context, scope, userID string) (*game.Session, error) {
	if scope == "" {
		scope = game.ScopePrivate
	}
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("scope = ? AND user_id = ?", scope, userID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return rowToSession(&row)
}

func (s *MySQLStorage) SaveSession(ctx context.Context, sess *game.Session) error {
	sess.UpdatedAt = time.Now()
	row, err := sessionToRow(sess)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing sessionRow
		err := tx.Where("scope = ? AND user_id = ?", row.Scope, row.UserID).First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			return tx.Create(row).Error
		case err != nil:
			return err
		default:
			// One session per (scope, user); keep the existing row id.
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			return tx.Save(row).Error
		}
	})
}

func (s *MySQLStorage) DeleteSession(ctx context.Context, scope, userID string) error {
	if scope == "" {
		scope = game.ScopePrivate
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		err := tx.Where("scope = ? AND user_id = ?", scope, userID).First(&row).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", row.ID).Delete(&historyRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
}

func (s *MySQLStorage) AppendHistory(ctx context.Context, sessionID uuid.UUID, entries ...game.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{
			SessionID:       sessionID.String(),
			Role:            e.Role,
			Content:         e.Content,
			EventType:       e.EventType,
			EventResult:     e.EventResult,
			AffectionChange: e.AffectionChange,
			TrustChange:     e.TrustChange,
			GoldChange:      e.GoldChange,
			Timestamp:       e.Timestamp,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *MySQLStorage) GetRecentHistory(ctx context.Context, sessionID uuid.UUID, n int) ([]game.HistoryEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []historyRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Order("id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	// Reverse into chronological order.
	entries := make([]game.HistoryEntry, len(rows))
	for i, row := range rows {
		entries[len(rows)-1-i] = game.HistoryEntry{
			Role:            row.Role,
			Content:         row.Content,
			EventType:       row.EventType,
			EventResult:     row.EventResult,
			AffectionChange: row.AffectionChange,
			TrustChange:     row.TrustChange,
			GoldChange:      row.GoldChange,
			Timestamp:       row.Timestamp,
		}
	}
	return entries, nil
}

func (s *MySQLStorage) ClearHistory(ctx context.Context, sessionID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Delete(&historyRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *MySQLStorage) SaveCharacter(ctx context.Context, c *game.Character) error {
	if c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()

	row := characterRow{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		PromptTemplate: c.PromptTemplate,
		InitialMessage: c.InitialMessage,
		CreatedBy:      c.CreatedBy,
		IsPublic:       c.IsPublic,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (s *MySQLStorage) GetCharacter(ctx context.Context, id string) (*game.Character, error) {
	var row characterRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	c := rowToCharacter(&row)
	return &c, nil
}

func (s *MySQLStorage) DeleteCharacter(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&characterRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}

func (s *MySQLStorage) ListCharacters(ctx context.Context, requesterID string) ([]game.Character, error) {
	var rows []characterRow
	err := s.db.WithContext(ctx).
		Where("is_public = ? OR created_by = ?", true, requesterID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	characters := make([]game.Character, len(rows))
	for i := range rows {
		characters[i] = rowToCharacter(&rows[i])
	}
	return characters, nil
}

func sessionToRow(s *game.Session) (*sessionRow, error) {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}
	events, err := json.Marshal(s.TriggeredEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal triggered events: %w", err)
	}
	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return &sessionRow{
		ID:              s.ID.String(),
		Scope:           s.Scope,
		UserID:          s.UserID,
		CharacterID:     s.CharacterID,
		Affection:       s.Affection,
		Trust:           s.Trust,
		Gold:            s.Gold,
		Relationship:    s.Relationship,
		InGame:          s.InGame,
		Items:           string(items),
		TriggeredEvents: string(events),
		Settings:        string(settings),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func rowToSession(row *sessionRow) (*game.Session, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", row.ID, err)
	}

	s := &game.Session{
		ID:           id,
		Scope:        row.Scope,
		UserID:       row.UserID,
		CharacterID:  row.CharacterID,
		Affection:    row.Affection,
		Trust:        row.Trust,
		Gold:         row.Gold,
		Relationship: row.Relationship,
		InGame:       row.InGame,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Items != "" {
		if err := json.Unmarshal([]byte(row.Items), &s.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}
	if row.TriggeredEvents != "" {
		if err := json.Unmarshal([]byte(row.TriggeredEvents), &s.TriggeredEvents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal triggered events: %w", err)
		}
	}
	if row.Settings != "" {
		if err := json.Unmarshal([]byte(row.Settings), &s.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	return s, nil
}

func rowToCharacter(row *characterRow) game.Character {
	return game.Character{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		PromptTemplate: row.PromptTemplate,
		InitialMessage: row.InitialMessage,
		CreatedBy:      row.CreatedBy,
		IsPublic:       row.IsPublic,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
