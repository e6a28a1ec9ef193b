package llm

import (
	"fmt"
	"strings"
)

// ProviderConfig selects and configures the model backing schedule
// generation. The planner only needs single-shot text completion, so
// one provider is active per process.
type ProviderConfig struct {
	Provider  string // anthropic, openai, or ollama
	APIKey    string
	AuthToken string // OAuth bearer token, anthropic only
	Model     string
	BaseURL   string // ollama only
}

// Model used when an ollama config leaves Model empty.
const defaultOllamaModel = "llama3.1"

// NewClient builds the provider named in cfg, matching the name
// case-insensitively. Callers should wrap the result in a RetryClient
// before handing it to the generator.
func NewClient(cfg ProviderConfig) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.AuthToken, cfg.Model), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, ""), nil
	case "ollama":
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOpenAIClient("ollama", model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want anthropic, openai, or ollama)", cfg.Provider)
	}
}
