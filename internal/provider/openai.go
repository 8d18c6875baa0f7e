package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider implements Provider against any OpenAI-compatible chat
// completions endpoint. It serves both the hosted API and local servers
// (vLLM, LM Studio); the two differ only in base URL and API key.
type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// NewOpenAI creates a provider for the hosted OpenAI API or, with a custom
// baseURL, for any compatible local server.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	name := "openai"
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	} else if baseURL != defaultOpenAIBaseURL {
		name = "local"
	}
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAIProvider{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete posts a chat completion request and returns the first choice text.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.name, Op: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Op: "chat completion", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Op: "read response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return "", &ProviderError{
			Provider: p.name,
			Op:       "chat completion",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ProviderError{Provider: p.name, Op: "decode response", Err: err}
	}
	if parsed.Error != nil {
		return "", &ProviderError{
			Provider: p.name,
			Op:       "chat completion",
			Err:      fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{
			Provider: p.name,
			Op:       "chat completion",
			Err:      fmt.Errorf("no choices in response"),
		}
	}

	return stripFences(parsed.Choices[0].Message.Content), nil
}

// Describe returns the provider and model identifiers
func (p *OpenAIProvider) Describe() Description {
	return Description{Provider: p.name, Model: p.model}
}

// stripFences removes a surrounding markdown code fence from model output.
// Models routinely wrap JSON in ```json fences despite instructions not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
