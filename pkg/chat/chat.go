package chat

import "fmt"

const (
	ChatRoleUser   = "user"      // player
	ChatRoleAgent  = "assistant" // portrayed character
	ChatRoleSystem = "system"    // game master / prompt assembler
)

// ChatMessage is a single message in the conversation sent to the LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ContentBlock is one block of a model reply. Text is the only block
// type the engine consumes; other types are passed through untouched.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage reports token consumption for a single LLM call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is the provider-neutral reply from an LLM call.
type ChatResponse struct {
	Content []ContentBlock `json:"content"`
	Model   string         `json:"model,omitempty"`
	Usage   Usage          `json:"usage"`
}

// Text concatenates the text blocks of the response.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	var out string
	for _, block := range r.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

// ChatOptions carries per-call overrides for an LLM request.
type ChatOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

func (o ChatOptions) Validate() error {
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", *o.Temperature)
	}
	if o.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative, got %d", o.MaxTokens)
	}
	return nil
}

// TotalChars returns the combined character length of a message slice.
// The orchestrator uses this to enforce the outbound text budget.
func TotalChars(messages []ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += len([]rune(m.Content))
	}
	return total
}

// TruncateToBudget drops the oldest non-system messages until the total
// character count fits the budget. The system prompt and the final
// message are never dropped.
func TruncateToBudget(messages []ChatMessage, budget int) []ChatMessage {
	if budget <= 0 || TotalChars(messages) <= budget {
		return messages
	}

	kept := make([]ChatMessage, 0, len(messages))
	var droppable []int
	for i, m := range messages {
		kept = append(kept, m)
		if m.Role != ChatRoleSystem && i != len(messages)-1 {
			droppable = append(droppable, i)
		}
	}

	drop := make(map[int]bool)
	total := TotalChars(messages)
	for _, i := range droppable {
		if total <= budget {
			break
		}
		drop[i] = true
		total -= len([]rune(messages[i].Content))
	}

	out := kept[:0]
	for i, m := range messages {
		if !drop[i] {
			out = append(out, m)
		}
	}
	return out
}
