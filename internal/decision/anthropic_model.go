package decision

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var _ Model = (*AnthropicModel)(nil)

// AnthropicModel backs decisions with the anthropic-sdk-go client. It is
// the primary model for every decision type; OpenAIModel is the secondary
// fallback when this model errors or times out.
type AnthropicModel struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicModel builds a Model backed by the given API key and model
// name.
func NewAnthropicModel(apiKey string, model anthropic.Model) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic model: api key is required")
	}
	if model == "" {
		model = anthropic.ModelClaude3_5HaikuLatest
	}
	return &AnthropicModel{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (m *AnthropicModel) Name() string { return "anthropic:" + string(m.model) }

// Complete sends a single-turn message with systemPrompt as the system
// block and userPrompt as the sole user message, returning the first text
// block of the reply.
func (m *AnthropicModel) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	for _, block := range resp.Content {
		if block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic completion: response contained no text block")
}
