// Package llm provides the completion-service boundary for SQL generation.
package llm

import (
	"context"
)

// CompletionClient is the outbound boundary to the text-completion service.
// The pipeline treats it as an opaque text generator; implementations return
// a *Error classified as retryable (service unavailable) or permanent
// (service rejected) on failure.
// Use this interface for dependency injection to enable mocking in tests.
type CompletionClient interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Model returns the configured model name.
	Model() string
}

// Ensure implementations satisfy CompletionClient at compile time.
var (
	_ CompletionClient = (*OpenAIClient)(nil)
	_ CompletionClient = (*AnthropicClient)(nil)
	_ CompletionClient = (*MockClient)(nil)
)
