package game

import (
	"time"

	"github.com/google/uuid"
)

// ScopePrivate is the scope used for direct (non-group) play.
const ScopePrivate = "private"

// Defaults applied when a session is first created.
const (
	DefaultAffection = 10
	DefaultTrust     = 10
	DefaultGold      = 100
)

// PlotHistoryLimit bounds the stored plot log; older entries roll off.
const PlotHistoryLimit = 10

type ItemType string

const (
	ItemTypeKey        ItemType = "key"
	ItemTypeGift       ItemType = "gift"
	ItemTypeConsumable ItemType = "consumable"
	ItemTypeClue       ItemType = "clue"
)

// Item is a single inventory entry. Key items stay in the inventory
// after use and are only flagged; every other type is removed on use.
type Item struct {
	Name        string    `json:"name"`
	Type        ItemType  `json:"type"`
	Description string    `json:"description,omitempty"`
	ObtainedAt  time.Time `json:"obtained_at"`
	Used        bool      `json:"used"`
}

// Environment is the AI-generated persona and world around the
// portrayed character, produced once by the bootstrap phase.
type Environment struct {
	Name          string `json:"name"`
	World         string `json:"world"`
	Identity      string `json:"identity"`
	Personality   string `json:"personality"`
	Likes         string `json:"likes"`
	Dislikes      string `json:"dislikes"`
	Background    string `json:"background"`
	Secret        string `json:"secret"`
	MeetingReason string `json:"meeting_reason"`
	Scene         string `json:"scene"`
	Greeting      string `json:"greeting"`
}

// IsEmpty reports whether the environment has not been generated yet.
func (e *Environment) IsEmpty() bool {
	return e == nil || (e.Name == "" && e.World == "" && e.Identity == "")
}

// GameState is the incrementally discovered world knowledge for one
// session. It only grows; reset is the sole way to shrink it.
type GameState struct {
	CurrentScene    string              `json:"current_scene,omitempty"`
	CurrentTask     string              `json:"current_task,omitempty"`
	Clues           []string            `json:"clues,omitempty"`
	KnownNPCs       []string            `json:"known_npcs,omitempty"`
	VisitedPlaces   []string            `json:"visited_places,omitempty"`
	PlotHistory     []string            `json:"plot_history,omitempty"`
	RevealedSecrets []string            `json:"revealed_secrets,omitempty"`
	DiscoveredInfo  map[string][]string `json:"discovered_info,omitempty"`
}

// AddPlot appends a plot entry, keeping only the most recent
// PlotHistoryLimit entries.
func (gs *GameState) AddPlot(entry string) {
	if entry == "" {
		return
	}
	gs.PlotHistory = append(gs.PlotHistory, entry)
	if len(gs.PlotHistory) > PlotHistoryLimit {
		gs.PlotHistory = gs.PlotHistory[len(gs.PlotHistory)-PlotHistoryLimit:]
	}
}

// AddClue records a clue once.
func (gs *GameState) AddClue(clue string) {
	gs.Clues = appendUnique(gs.Clues, clue)
}

// AddNPC records a known NPC once.
func (gs *GameState) AddNPC(name string) {
	gs.KnownNPCs = appendUnique(gs.KnownNPCs, name)
}

// AddPlace records a visited place once.
func (gs *GameState) AddPlace(place string) {
	gs.VisitedPlaces = appendUnique(gs.VisitedPlaces, place)
}

// AddDiscovery records a category → content discovery once per content.
func (gs *GameState) AddDiscovery(category, content string) {
	if category == "" || content == "" {
		return
	}
	if gs.DiscoveredInfo == nil {
		gs.DiscoveredInfo = make(map[string][]string)
	}
	gs.DiscoveredInfo[category] = appendUnique(gs.DiscoveredInfo[category], content)
}

// RevealSecret records that a secret has been discovered. Once any
// secret is revealed, the environment's secret is included in prompts
// and exports.
func (gs *GameState) RevealSecret(secret string) {
	gs.RevealedSecrets = appendUnique(gs.RevealedSecrets, secret)
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// Settings is the per-session blob holding the generated environment
// and the accumulated game state.
type Settings struct {
	Environment Environment `json:"environment"`
	State       GameState   `json:"game_state"`
}

// Session is the persistent relationship economy between one player,
// identified by (scope, user), and the portrayed character. There is at
// most one session per (scope, user) pair; switching characters updates
// the same session in place.
type Session struct {
	ID              uuid.UUID `json:"id"`
	Scope           string    `json:"scope"`
	UserID          string    `json:"user_id"`
	CharacterID     string    `json:"character_id,omitempty"`
	Affection       int       `json:"affection"`
	Trust           int       `json:"trust"`
	Gold            int       `json:"gold"`
	Items           []Item    `json:"items,omitempty"`
	Relationship    string    `json:"relationship"`
	TriggeredEvents []string  `json:"triggered_events,omitempty"`
	InGame          bool      `json:"in_game"`
	Settings        Settings  `json:"settings"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SessionKey is the serialization key for a (scope, user) pair. An
// empty scope means private play.
func SessionKey(scope, userID string) string {
	if scope == "" {
		scope = ScopePrivate
	}
	return scope + ":" + userID
}

// NewSession creates a session with default economy values.
func NewSession(scope, userID, characterID string) *Session {
	if scope == "" {
		scope = ScopePrivate
	}
	now := time.Now()
	return &Session{
		ID:           uuid.New(),
		Scope:        scope,
		UserID:       userID,
		CharacterID:  characterID,
		Affection:    DefaultAffection,
		Trust:        DefaultTrust,
		Gold:         DefaultGold,
		Relationship: LevelFor(AffectionLevels, DefaultAffection).Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Key returns the session's serialization key.
func (s *Session) Key() string {
	return SessionKey(s.Scope, s.UserID)
}

// HasTriggered reports whether the named event has already fired for
// this session. Triggered events can never fire again.
func (s *Session) HasTriggered(event string) bool {
	for _, e := range s.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// MarkTriggered records the named event as fired.
func (s *Session) MarkTriggered(event string) {
	if event == "" || s.HasTriggered(event) {
		return
	}
	s.TriggeredEvents = append(s.TriggeredEvents, event)
}

// ResetProgress wipes the session back to first-contact defaults,
// keeping identity and character assignment.
func (s *Session) ResetProgress() {
	s.Affection = DefaultAffection
	s.Trust = DefaultTrust
	s.Gold = DefaultGold
	s.Items = nil
	s.Relationship = LevelFor(AffectionLevels, DefaultAffection).Name
	s.TriggeredEvents = nil
	s.InGame = false
	s.Settings = Settings{}
	s.UpdatedAt = time.Now()
}

// Character is an authored character definition. It is deleted only by
// its creator; private characters are listed only to their creator.
type Character struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	PromptTemplate string    `json:"prompt_template,omitempty"`
	InitialMessage string    `json:"initial_message,omitempty"`
	CreatedBy      string    `json:"created_by"`
	IsPublic       bool      `json:"is_public"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	HistoryRolePlayer    = "player"
	HistoryRoleCharacter = "character"
)

// HistoryEntry is one half of a turn, append-only per session.
type HistoryEntry struct {
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	EventType       string    `json:"event_type,omitempty"`
	EventResult     string    `json:"event_result,omitempty"`
	AffectionChange int       `json:"affection_change,omitempty"`
	TrustChange     int       `json:"trust_change,omitempty"`
	GoldChange      int       `json:"gold_change,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Result is the outcome of a recoverable domain operation. Expected
// caller-input problems (item not found, character not owned) are
// reported here rather than as errors.
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// OK is a successful Result.
func OK() Result { return Result{Success: true} }

// Fail is a failed Result with a reason.
func Fail(reason string) Result { return Result{Success: false, Reason: reason} }
