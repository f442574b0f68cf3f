package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
)

// MockLLMService is a scripted LLMService for testing. Replies are
// returned in order; when the script runs out, the last reply repeats.
type MockLLMService struct {
	SendFunc func(ctx context.Context, messages []chat.ChatMessage, opts chat.ChatOptions) (*chat.ChatResponse, error)

	// Track calls for assertions
	Calls []SendCall

	script []string
	next   int
	err    error
	mu     sync.Mutex
}

type SendCall struct {
	Messages []chat.ChatMessage
	Opts     chat.ChatOptions
}

var _ LLMService = (*MockLLMService)(nil)

// NewMockLLMService creates a mock that replies with the given texts
// in order.
func NewMockLLMService(replies ...string) *MockLLMService {
	return &MockLLMService{script: replies}
}

// SetError makes every subsequent call fail.
func (m *MockLLMService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Enqueue appends more scripted replies.
func (m *MockLLMService) Enqueue(replies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
}

func (m *MockLLMService) SendMessageWithHistory(ctx context.Context, messages []chat.ChatMessage, opts chat.ChatOptions) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, SendCall{Messages: messages, Opts: opts})

	if m.SendFunc != nil {
		return m.SendFunc(ctx, messages, opts)
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) == 0 {
		return nil, fmt.Errorf("mock llm has no scripted reply")
	}

	idx := m.next
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.next++

	return &chat.ChatResponse{
		Content: []chat.ContentBlock{{Type: "text", Text: m.script[idx]}},
		Model:   "mock",
		Usage:   chat.Usage{InputTokens: chat.TotalChars(messages), OutputTokens: len(m.script[idx])},
	}, nil
}
