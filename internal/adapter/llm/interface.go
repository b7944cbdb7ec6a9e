// Package llm provides an abstraction over chat completion backends.
package llm

import "context"

// Roles used in completion requests.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior message of a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider independent chat completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	JSON        bool // ask the backend for a JSON object reply
	Temperature *float64
	MaxTokens   int
}

// CompletionResponse is the normalized reply of a backend.
type CompletionResponse struct {
	Text  string
	Model string
	Usage *Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMClient defines the interface for chat completion backends.
type LLMClient interface {
	// Complete sends a single non-streaming completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Ensure the backends implement LLMClient.
var (
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*GeminiClient)(nil)
	_ LLMClient = (*MockClient)(nil)
	_ LLMClient = FuncClient(nil)
)
