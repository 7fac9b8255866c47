package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClient creates a completion client for the configured provider.
// An empty provider defaults to "openai", which also covers local
// OpenAI-compatible endpoints (vLLM, Ollama, LM Studio).
func NewClient(cfg *Config, logger *zap.Logger) (CompletionClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}
