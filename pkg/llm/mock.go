package llm

import (
	"context"
)

// MockClient is a configurable mock for testing completion-driven flows.
// Set CompleteFunc for full control, or Responses to script a sequence of
// outputs across successive calls.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked. If nil, scripted
	// Responses are used instead.
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Responses are returned in order across calls. The last response is
	// repeated once the script runs out.
	Responses []string

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification.
	CompleteCalls int
	Prompts       []string
	SystemPrompts []string
}

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{
		Responses: responses,
		ModelName: "mock-model",
	}
}

// Complete implements CompletionClient.
func (m *MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	idx := m.CompleteCalls
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, userPrompt)
	m.SystemPrompts = append(m.SystemPrompts, systemPrompt)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt)
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Model implements CompletionClient.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Reset clears call tracking.
func (m *MockClient) Reset() {
	m.CompleteCalls = 0
	m.Prompts = nil
	m.SystemPrompts = nil
}
