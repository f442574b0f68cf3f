package services

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/galgame-engine/pkg/chat"
)

const DefaultOpenAIMaxTokens = 2048

// OpenAIService implements LLMService for OpenAI-compatible endpoints.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

var _ LLMService = (*OpenAIService)(nil)

// NewOpenAIService creates the client. baseURL may be empty for the
// official endpoint, or point at a compatible provider.
func NewOpenAIService(apiKey, baseURL, modelName string, logger *slog.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		logger:    logger,
	}
}

func (o *OpenAIService) SendMessageWithHistory(ctx context.Context, messages []chat.ChatMessage, opts chat.ChatOptions) (*chat.ChatResponse, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chat options: %w", err)
	}

	model := o.modelName
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := DefaultOpenAIMaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from model %s", model)
	}

	o.logger.Debug("OpenAI call complete",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return &chat.ChatResponse{
		Content: []chat.ContentBlock{{Type: "text", Text: resp.Choices[0].Message.Content}},
		Model:   resp.Model,
		Usage: chat.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
