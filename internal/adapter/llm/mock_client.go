package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockClient is a deterministic LLMClient for local development and demos.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name implements LLMClient.
func (m *MockClient) Name() string { return "mock" }

// Complete returns a canned reply. JSON requests get a quiz or study plan
// shaped object depending on the system prompt.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := m.generateMockResponse(req)
	return &CompletionResponse{
		Text:  text,
		Model: "mock-tutor",
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(text) / 4,
			TotalTokens:      m.estimateTokens(req) + len(text)/4,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *CompletionRequest) string {
	system := strings.ToLower(req.System)
	if req.JSON && strings.Contains(system, "quiz") {
		return mockQuizJSON()
	}
	if req.JSON && strings.Contains(system, "study plan") {
		return mockPlanJSON()
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the tutor."
	}
	return fmt.Sprintf("[MOCK] You asked: %q. Here is a mock explanation.", truncate(lastUserMessage, 100))
}

func mockQuizJSON() string {
	quiz := map[string]interface{}{
		"questions": []map[string]interface{}{
			{
				"q":       "Which data structure follows LIFO order?",
				"options": []string{"Queue", "Stack", "Heap", "Graph"},
				"answer":  "Stack",
				"why":     "The last element pushed onto a stack is the first one popped.",
			},
			{
				"q":       "Which data structure follows FIFO order?",
				"options": []string{"Queue", "Stack", "Tree", "Trie"},
				"answer":  "Queue",
				"why":     "Elements leave a queue in the order they arrived.",
			},
			{
				"q":       "What is the worst case lookup time of a balanced BST?",
				"options": []string{"O(1)", "O(log n)", "O(n)", "O(n^2)"},
				"answer":  "O(log n)",
				"why":     "A balanced tree keeps its height logarithmic in the number of nodes.",
			},
		},
	}
	data, _ := json.Marshal(quiz)
	return string(data)
}

func mockPlanJSON() string {
	days := make([]map[string]interface{}, 0, 7)
	for i := 1; i <= 7; i++ {
		days = append(days, map[string]interface{}{
			"day":     i,
			"minutes": 30 + i*5,
			"topics":  []string{fmt.Sprintf("Mock topic for day %d", i)},
		})
	}
	data, _ := json.Marshal(map[string]interface{}{"plan": days})
	return string(data)
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *CompletionRequest) int {
	total := len(req.System) / 4
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// FuncClient adapts a function to LLMClient. Tests use it to script replies.
type FuncClient func(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

// Name implements LLMClient.
func (f FuncClient) Name() string { return "func" }

// Complete implements LLMClient.
func (f FuncClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}
