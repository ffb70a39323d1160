package decision

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var _ Model = (*OpenAIModel)(nil)

// OpenAIModel backs decisions with the openai-go/v3 client. It serves as
// the secondary model, dispatched only when AnthropicModel errors or
// exceeds its stage timeout.
type OpenAIModel struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIModel builds a Model backed by the given API key and chat
// model name.
func NewOpenAIModel(apiKey string, model openai.ChatModel) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, errors.New("openai model: api key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIModel{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (m *OpenAIModel) Name() string { return "openai:" + string(m.model) }

// Complete sends a single chat completion turn and returns the first
// choice's message content.
func (m *OpenAIModel) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
