package provider

import (
	"context"
	"fmt"
)

// ProviderType identifies which LLM provider to use
type ProviderType string

const (
	// ProviderAnthropic uses the hosted Anthropic Messages API
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderOpenAI uses an OpenAI-compatible chat completions endpoint
	ProviderOpenAI ProviderType = "openai"

	// ProviderLocal uses a local OpenAI-compatible server (vLLM, LM Studio).
	// Same wire protocol as ProviderOpenAI; only the base URL differs.
	ProviderLocal ProviderType = "local"
)

// Options tunes a single completion call
type Options struct {
	// Temperature is the sampling temperature
	Temperature float64

	// MaxTokens caps the completion length
	MaxTokens int
}

// Description identifies a provider for diagnostics
type Description struct {
	Provider string
	Model    string
}

func (d Description) String() string {
	return fmt.Sprintf("%s (%s)", d.Provider, d.Model)
}

// Provider is the uniform text-completion capability consumed by the review
// engine. Implementations return raw model text; callers own the parsing.
// No retries happen at this layer; retry policy is injected by callers.
type Provider interface {
	// Complete sends a system and user prompt and returns the raw
	// completion text. Network and API failures surface as *ProviderError.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)

	// Describe returns the provider and model identifiers
	Describe() Description
}

// ProviderError wraps failures reaching or using a provider.
// Callers distinguish infrastructure failure from malformed model output
// by this type: malformed output is never a ProviderError.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
