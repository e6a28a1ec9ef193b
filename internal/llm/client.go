package llm

import "context"

// Client is a single-shot text generation transport. The planner builds
// one prompt per round and expects one text completion back.
type Client interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}
