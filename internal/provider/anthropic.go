package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider using the Anthropic Messages API
type AnthropicProvider struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropic creates an Anthropic provider with the given API key and model.
// An empty apiKey falls back to the SDK's environment resolution.
func NewAnthropic(apiKey, model string) *AnthropicProvider {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Complete sends the prompts to the Messages API and returns the text content.
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	msg, err := p.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Op: "messages.new", Err: err}
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return stripFences(text), nil
}

// Describe returns the provider and model identifiers
func (p *AnthropicProvider) Describe() Description {
	return Description{Provider: "anthropic", Model: string(p.model)}
}
