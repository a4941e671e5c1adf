package llm

import (
	"fmt"
	"strings"
)

// NewClient creates a raw collaborator client based on the provided
// configuration. Most callers want NewExtractor instead, which layers
// caching, rate limiting, and retries on top.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
