package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// UsageRecord describes one LLM invocation for accounting.
type UsageRecord struct {
	Channel    string        `json:"channel"`
	Model      string        `json:"model"`
	Duration   time.Duration `json:"duration"`
	Success    bool          `json:"success"`
	Source     string        `json:"source"`
	Scope      string        `json:"scope,omitempty"`
	UserID     string        `json:"user_id,omitempty"`
	InputSize  int           `json:"input_size,omitempty"`
	OutputSize int           `json:"output_size,omitempty"`
}

// UsageRecorder receives a record after every LLM invocation. Recording
// is fire-and-forget: a recorder failure never fails the turn.
type UsageRecorder interface {
	Record(ctx context.Context, record UsageRecord) error
}

// SlogUsageRecorder logs usage records as structured log lines.
type SlogUsageRecorder struct {
	logger *slog.Logger
}

var _ UsageRecorder = (*SlogUsageRecorder)(nil)

func NewSlogUsageRecorder(logger *slog.Logger) *SlogUsageRecorder {
	return &SlogUsageRecorder{logger: logger}
}

func (r *SlogUsageRecorder) Record(ctx context.Context, record UsageRecord) error {
	r.logger.Info("llm usage",
		"channel", record.Channel,
		"model", record.Model,
		"duration_ms", record.Duration.Milliseconds(),
		"success", record.Success,
		"source", record.Source,
		"scope", record.Scope,
		"user_id", record.UserID)
	return nil
}

// MockUsageRecorder collects records for assertions in tests.
type MockUsageRecorder struct {
	mu      sync.Mutex
	Records []UsageRecord
	err     error
}

var _ UsageRecorder = (*MockUsageRecorder)(nil)

func NewMockUsageRecorder() *MockUsageRecorder {
	return &MockUsageRecorder{}
}

// SetError makes subsequent Record calls fail, for verifying that
// recorder failures never fail a turn.
func (m *MockUsageRecorder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockUsageRecorder) Record(ctx context.Context, record UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.Records = append(m.Records, record)
	return nil
}

// Len reports how many records were accepted.
func (m *MockUsageRecorder) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}
