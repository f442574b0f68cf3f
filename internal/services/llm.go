package services

import (
	"context"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
)

// LLMService defines the interface for the external chat model.
type LLMService interface {
	// SendMessageWithHistory generates a reply to the given message
	// sequence. Options may override the model, temperature and token
	// limit for this single call.
	SendMessageWithHistory(ctx context.Context, messages []chat.ChatMessage, opts chat.ChatOptions) (*chat.ChatResponse, error)
}
