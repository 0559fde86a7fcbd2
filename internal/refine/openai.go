package refine

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates an OpenAI-compatible provider reported as name.
func NewOpenAIProvider(cfg ProviderConfig, name string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
		name:   name,
	}
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return p.name }
