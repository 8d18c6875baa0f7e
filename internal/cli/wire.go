package cli

import (
	"fmt"
	"os"

	"github.com/revbench/revbench/internal/config"
	"github.com/revbench/revbench/internal/events"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/provider"
)

// loadConfig reads configuration from the app's config root
func (a *App) loadConfig() (*config.Config, error) {
	return config.LoadConfig(a.configRoot)
}

// newBus creates the event bus with the log handler attached
func (a *App) newBus() *events.Bus {
	bus := events.NewBus()
	bus.Subscribe(events.LogHandler(events.LogConfig{
		Writer:         os.Stderr,
		IncludePayload: a.verbose,
	}))
	return bus
}

// buildProvider constructs the completion provider from config
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	timeout, err := cfg.ProviderTimeout()
	if err != nil {
		return nil, fmt.Errorf("provider timeout: %w", err)
	}

	return provider.FromConfig(provider.Config{
		Type:    provider.ProviderType(cfg.Provider.Type),
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.APIKey(),
		Timeout: timeout,
	})
}

// buildRetryPolicy constructs the shared retry strategy from config
func buildRetryPolicy(cfg *config.Config) (provider.RetryPolicy, error) {
	if cfg.Retry.MaxAttempts <= 1 {
		return provider.NoRetry, nil
	}

	backoff, err := cfg.InitialBackoff()
	if err != nil {
		return provider.NoRetry, fmt.Errorf("retry backoff: %w", err)
	}

	policy := provider.DefaultRetryPolicy
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.InitialBackoff = backoff
	if cfg.Retry.BackoffMultiply > 0 {
		policy.BackoffMultiply = cfg.Retry.BackoffMultiply
	}
	return policy, nil
}

// buildHosting constructs the GitLab client, or the in-memory fake when
// offline mode is requested.
func buildHosting(cfg *config.Config, offline bool) (hosting.Client, error) {
	if offline {
		return hosting.NewFake(), nil
	}

	token := cfg.HostingToken()
	if token == "" {
		return nil, fmt.Errorf("hosting token not set; export %s or use --offline", cfg.Hosting.TokenEnv)
	}

	timeout, err := cfg.HostingTimeout()
	if err != nil {
		return nil, fmt.Errorf("hosting timeout: %w", err)
	}

	return hosting.NewGitLab(cfg.Hosting.BaseURL, token, cfg.Hosting.Namespace, timeout), nil
}

// providerOptions maps config tuning onto completion options
func providerOptions(cfg *config.Config) provider.Options {
	return provider.Options{
		Temperature: cfg.Provider.Temperature,
		MaxTokens:   cfg.Provider.MaxTokens,
	}
}
