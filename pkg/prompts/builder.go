package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
	"github.com/jwebster45206/galgame-engine/pkg/game"
)

// DefaultHistoryWindow is the number of history entries carried into
// the prompt when the caller does not override it.
const DefaultHistoryWindow = 6

// Builder constructs the message array for one turn using a fluent
// interface. It keeps prompt assembly separate from state management.
type Builder struct {
	session        *game.Session
	character      *game.Character
	history        []game.HistoryEntry
	historySummary string
	playerText     string
	imageRefs      []string
	historyWindow  int
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{historyWindow: DefaultHistoryWindow}
}

// WithSession sets the session whose state drives the system prompt.
func (b *Builder) WithSession(s *game.Session) *Builder {
	b.session = s
	return b
}

// WithCharacter sets the authored character (may be nil for the
// built-in default persona).
func (b *Builder) WithCharacter(c *game.Character) *Builder {
	b.character = c
	return b
}

// WithHistory sets the recent history window, oldest first.
func (b *Builder) WithHistory(entries []game.HistoryEntry) *Builder {
	b.history = entries
	return b
}

// WithHistorySummary sets the long-term summary rendered into the
// system prompt.
func (b *Builder) WithHistorySummary(summary string) *Builder {
	b.historySummary = summary
	return b
}

// WithPlayerTurn sets the new player message and any image references.
func (b *Builder) WithPlayerTurn(text string, imageRefs []string) *Builder {
	b.playerText = text
	b.imageRefs = imageRefs
	return b
}

// WithHistoryWindow overrides how many history entries are carried.
func (b *Builder) WithHistoryWindow(n int) *Builder {
	b.historyWindow = n
	return b
}

// Build assembles system prompt, windowed history and the player turn.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.session == nil {
		return nil, fmt.Errorf("session is required")
	}

	messages := []chat.ChatMessage{{
		Role:    chat.ChatRoleSystem,
		Content: BuildSystemPrompt(b.character, b.session, b.historySummary),
	}}

	history := b.history
	if b.historyWindow > 0 && len(history) > b.historyWindow {
		history = history[len(history)-b.historyWindow:]
	}
	for _, entry := range history {
		role := chat.ChatRoleUser
		if entry.Role == game.HistoryRoleCharacter {
			role = chat.ChatRoleAgent
		}
		messages = append(messages, chat.ChatMessage{Role: role, Content: entry.Content})
	}

	if b.playerText != "" || len(b.imageRefs) > 0 {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleUser,
			Content: playerTurnContent(b.playerText, b.imageRefs),
		})
	}

	return messages, nil
}

// playerTurnContent renders image references as a textual note after
// the player text; the engine does not ship binary content upstream.
func playerTurnContent(text string, imageRefs []string) string {
	if len(imageRefs) == 0 {
		return text
	}
	note := "（玩家发送了图片：" + strings.Join(imageRefs, "、") + "）"
	if text == "" {
		return note
	}
	return text + "\n" + note
}
