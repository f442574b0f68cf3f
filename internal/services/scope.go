package services

import (
	"context"
	"sync"
)

// ScopeConfig is the set of per-scope overrides a deployment may carry
// for one chat group. Nil pointer fields mean "no override"; resolution
// is scope-override > global game setting > built-in default.
type ScopeConfig struct {
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens    int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	CharBudget   int      `yaml:"char_budget,omitempty" json:"char_budget,omitempty"`
	ToolsEnabled *bool    `yaml:"tools_enabled,omitempty" json:"tools_enabled,omitempty"`
}

// ScopeConfigProvider resolves per-scope overrides. A nil result with
// a nil error means the scope has no overrides.
type ScopeConfigProvider interface {
	GetScopeConfig(ctx context.Context, scope string) (*ScopeConfig, error)
}

// StaticScopeConfig is a ScopeConfigProvider backed by a fixed map,
// typically loaded from the YAML config file.
type StaticScopeConfig struct {
	mu     sync.RWMutex
	scopes map[string]ScopeConfig
}

var _ ScopeConfigProvider = (*StaticScopeConfig)(nil)

// NewStaticScopeConfig creates a provider from a scope → overrides map.
func NewStaticScopeConfig(scopes map[string]ScopeConfig) *StaticScopeConfig {
	if scopes == nil {
		scopes = make(map[string]ScopeConfig)
	}
	return &StaticScopeConfig{scopes: scopes}
}

func (s *StaticScopeConfig) GetScopeConfig(ctx context.Context, scope string) (*ScopeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.scopes[scope]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// SetScopeConfig replaces the overrides for one scope.
func (s *StaticScopeConfig) SetScopeConfig(scope string, cfg ScopeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[scope] = cfg
}
