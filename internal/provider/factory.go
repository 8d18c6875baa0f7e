package provider

import (
	"fmt"
	"time"
)

// Config holds provider construction parameters
type Config struct {
	// Type specifies which provider to use (defaults to "anthropic" if empty)
	Type ProviderType

	// Model is the model identifier sent to the provider
	Model string

	// BaseURL overrides the API endpoint (required for "local")
	BaseURL string

	// APIKey authenticates hosted providers; may be empty for local servers
	APIKey string

	// Timeout bounds each completion call
	Timeout time.Duration
}

// FromConfig creates a Provider from the given configuration.
// If cfg.Type is empty, defaults to Anthropic.
// Returns an error for unknown provider types.
func FromConfig(cfg Config) (Provider, error) {
	switch cfg.Type {
	case ProviderAnthropic, "":
		return NewAnthropic(cfg.APIKey, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case ProviderLocal:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("local provider requires a base URL")
		}
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}
