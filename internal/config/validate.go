package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	switch cfg.Provider.Type {
	case ProviderAnthropic, ProviderOpenAI, ProviderLocal:
		// Valid
	default:
		errs = append(errs, &ValidationError{
			Field:   "provider.type",
			Value:   cfg.Provider.Type,
			Message: "must be one of: anthropic, openai, local",
		})
	}

	if cfg.Provider.Model == "" {
		errs = append(errs, &ValidationError{
			Field:   "provider.model",
			Value:   cfg.Provider.Model,
			Message: "must not be empty",
		})
	}

	if cfg.Provider.Type == ProviderLocal && cfg.Provider.BaseURL == "" {
		errs = append(errs, &ValidationError{
			Field:   "provider.base_url",
			Value:   cfg.Provider.BaseURL,
			Message: "required for local provider",
		})
	}

	if cfg.Provider.MaxTokens < 1 {
		errs = append(errs, &ValidationError{
			Field:   "provider.max_tokens",
			Value:   cfg.Provider.MaxTokens,
			Message: "must be at least 1",
		})
	}

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, &ValidationError{
			Field:   "retry.max_attempts",
			Value:   cfg.Retry.MaxAttempts,
			Message: "must be at least 1 (1 = no retry)",
		})
	}

	if cfg.Hosting.BaseURL == "" {
		errs = append(errs, &ValidationError{
			Field:   "hosting.base_url",
			Value:   cfg.Hosting.BaseURL,
			Message: "must not be empty",
		})
	}

	if cfg.Hosting.Namespace == "" {
		errs = append(errs, &ValidationError{
			Field:   "hosting.namespace",
			Value:   cfg.Hosting.Namespace,
			Message: "must not be empty",
		})
	}

	// Every timeout must be a valid Go duration string
	durations := []struct {
		field string
		value string
	}{
		{"provider.timeout", cfg.Provider.Timeout},
		{"hosting.timeout", cfg.Hosting.Timeout},
		{"retry.initial_backoff", cfg.Retry.InitialBackoff},
		{"eval.scenario_timeout", cfg.Eval.ScenarioTimeout},
		{"eval.test_timeout", cfg.Eval.TestTimeout},
		{"serve.shutdown_timeout", cfg.Serve.ShutdownTimeout},
		{"serve.review_timeout", cfg.Serve.ReviewTimeout},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.value); err != nil {
			errs = append(errs, &ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
