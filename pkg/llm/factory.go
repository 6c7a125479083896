package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider string // "anthropic" or "openai"
	Endpoint string // Optional base URL override
	Model    string
	APIKey   string
}

// NewClient creates the LLM client for the configured provider.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	case "openai":
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
