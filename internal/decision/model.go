package decision

import (
	"context"
)

// Model is the contract every LLM backend satisfies: given a rendered
// system and user prompt plus a token budget, produce raw text (expected
// to be JSON shaped by the caller's requested schema).
type Model interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}
