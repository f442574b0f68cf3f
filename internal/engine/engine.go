// Package engine sequences player turns end to end: it loads session
// state, assembles prompts, calls the LLM, parses the reply, applies
// economy mutations and persists the result. Turns for the same
// (scope, user) pair are serialized; different pairs run concurrently.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jwebster45206/galgame-engine/internal/config"
	"github.com/jwebster45206/galgame-engine/internal/services"
	"github.com/jwebster45206/galgame-engine/internal/storage"
	"github.com/jwebster45206/galgame-engine/pkg/chat"
	"github.com/jwebster45206/galgame-engine/pkg/pending"
)

// Engine is the turn orchestrator.
type Engine struct {
	storage storage.Storage
	llm     services.LLMService
	scopes  services.ScopeConfigProvider
	usage   services.UsageRecorder
	pending *pending.Cache
	cfg     config.GameConfig
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// randInt draws a uniform value in [0, n); overridable in tests.
	randInt func(n int) int
}

// New creates an engine. scopes and usage may be nil, in which case no
// per-scope overrides apply and usage is not recorded.
func New(
	store storage.Storage,
	llm services.LLMService,
	scopes services.ScopeConfigProvider,
	usage services.UsageRecorder,
	pendingCache *pending.Cache,
	cfg config.GameConfig,
	logger *slog.Logger,
) *Engine {
	if pendingCache == nil {
		pendingCache = pending.NewCache(0, 0)
	}
	return &Engine{
		storage: store,
		llm:     llm,
		scopes:  scopes,
		usage:   usage,
		pending: pendingCache,
		cfg:     cfg,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
		randInt: rand.IntN,
	}
}

// Pending exposes the pending-choice correlation surface to callers.
func (e *Engine) Pending() *pending.Cache {
	return e.pending
}

// lockSession acquires the per-session mutex, creating it on first
// use. Two overlapping turns for the same (scope, user) pair must not
// interleave their read-modify-write economy updates.
func (e *Engine) lockSession(key string) func() {
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// resolveChatOptions applies scope-override > game setting > built-in
// default and returns the call options plus the outbound char budget.
func (e *Engine) resolveChatOptions(ctx context.Context, scope string) (chat.ChatOptions, int) {
	opts := chat.ChatOptions{
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	}
	budget := e.cfg.CharBudget

	if e.scopes == nil {
		return opts, budget
	}
	override, err := e.scopes.GetScopeConfig(ctx, scope)
	if err != nil {
		e.logger.Warn("Scope config lookup failed, using defaults", "scope", scope, "error", err)
		return opts, budget
	}
	if override == nil {
		return opts, budget
	}

	if override.Model != "" {
		opts.Model = override.Model
	}
	if override.Temperature != nil {
		opts.Temperature = override.Temperature
	}
	if override.MaxTokens > 0 {
		opts.MaxTokens = override.MaxTokens
	}
	if override.CharBudget > 0 {
		budget = override.CharBudget
	}
	return opts, budget
}

// callLLM performs the single outbound LLM call of a turn and records
// usage fire-and-forget. A recorder failure never fails the turn.
func (e *Engine) callLLM(ctx context.Context, scope, userID, source string, messages []chat.ChatMessage, opts chat.ChatOptions) (*chat.ChatResponse, error) {
	start := time.Now()
	resp, err := e.llm.SendMessageWithHistory(ctx, messages, opts)
	duration := time.Since(start)

	if e.usage != nil {
		record := services.UsageRecord{
			Channel:   "galgame",
			Model:     opts.Model,
			Duration:  duration,
			Success:   err == nil,
			Source:    source,
			Scope:     scope,
			UserID:    userID,
			InputSize: chat.TotalChars(messages),
		}
		if resp != nil {
			record.OutputSize = len(resp.Text())
		}
		go func() {
			if recErr := e.usage.Record(context.Background(), record); recErr != nil {
				e.logger.Debug("Usage recording failed", "error", recErr)
			}
		}()
	}

	return resp, err
}
