package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderType represents a supported LLM provider for agent completions.
type ProviderType string

const (
	// ProviderAnthropic uses the hosted Anthropic Messages API.
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderOpenAI uses an OpenAI-compatible chat completions endpoint.
	ProviderOpenAI ProviderType = "openai"

	// ProviderLocal uses a local OpenAI-compatible server (vLLM, LM Studio).
	// Wire-identical to ProviderOpenAI; only the base URL differs.
	ProviderLocal ProviderType = "local"
)

// ProviderConfig holds settings for agent provider selection.
type ProviderConfig struct {
	// Type is the provider type: "anthropic" (default), "openai" or "local"
	Type ProviderType `yaml:"type"`

	// Model is the model identifier sent to the provider
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint (required for "local")
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in config files.
	APIKeyEnv string `yaml:"api_key_env"`

	// Temperature is the sampling temperature for completions
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the completion length
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds each completion call
	Timeout string `yaml:"timeout"`
}

// RetryConfig is the injectable retry strategy for external calls.
// MaxAttempts of 1 means no retries.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (1 = no retry)
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff is the delay before the first retry
	InitialBackoff string `yaml:"initial_backoff"`

	// BackoffMultiply is the factor applied after each attempt
	BackoffMultiply float64 `yaml:"backoff_multiply"`
}

// HostingConfig identifies the code hosting service (GitLab-compatible).
type HostingConfig struct {
	// BaseURL is the API root, e.g. "https://gitlab.com"
	BaseURL string `yaml:"base_url"`

	// TokenEnv names the environment variable holding the access token
	TokenEnv string `yaml:"token_env"`

	// Namespace is the group/namespace evaluation projects are created in
	Namespace string `yaml:"namespace"`

	// Timeout bounds each hosting API call
	Timeout string `yaml:"timeout"`
}

// EvalConfig controls the scenario evaluation suite.
type EvalConfig struct {
	// ScenariosDir is the directory containing scenario YAML files
	ScenariosDir string `yaml:"scenarios_dir"`

	// WorkBase is the directory where scenario working trees are created.
	// Empty means a fresh temp directory per run.
	WorkBase string `yaml:"work_base,omitempty"`

	// ScenarioTimeout is the wall-clock budget per scenario
	ScenarioTimeout string `yaml:"scenario_timeout"`

	// TestTimeout bounds each test command execution
	TestTimeout string `yaml:"test_timeout"`

	// KeepWorkdirs disables cleanup of scenario working trees
	KeepWorkdirs bool `yaml:"keep_workdirs"`
}

// ServeConfig controls the webhook server.
type ServeConfig struct {
	// Addr is the HTTP listen address
	Addr string `yaml:"addr"`

	// ShutdownTimeout is the grace period for in-flight reviews on stop
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	// ReviewTimeout bounds one webhook-triggered review cycle
	ReviewTimeout string `yaml:"review_timeout"`

	// CTOInstructions is the standing review brief applied to every live MR
	CTOInstructions string `yaml:"cto_instructions,omitempty"`
}

// Config holds all configuration for revbench.
// It is immutable after creation via LoadConfig().
type Config struct {
	// Provider contains agent provider selection and tuning
	Provider ProviderConfig `yaml:"provider"`

	// Hosting identifies the merge-request hosting service
	Hosting HostingConfig `yaml:"hosting"`

	// Retry is the shared retry strategy for provider and hosting calls
	Retry RetryConfig `yaml:"retry"`

	// Eval contains evaluation suite settings
	Eval EvalConfig `yaml:"eval"`

	// Serve contains webhook server settings
	Serve ServeConfig `yaml:"serve"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// ProviderTimeout parses the provider timeout as a Duration.
func (c *Config) ProviderTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Provider.Timeout)
}

// HostingTimeout parses the hosting timeout as a Duration.
func (c *Config) HostingTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Hosting.Timeout)
}

// ScenarioTimeout parses the per-scenario budget as a Duration.
func (c *Config) ScenarioTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Eval.ScenarioTimeout)
}

// TestTimeout parses the test command timeout as a Duration.
func (c *Config) TestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Eval.TestTimeout)
}

// ShutdownTimeout parses the serve shutdown grace period as a Duration.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Serve.ShutdownTimeout)
}

// ReviewTimeout parses the webhook review cycle budget as a Duration.
func (c *Config) ReviewTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Serve.ReviewTimeout)
}

// InitialBackoff parses the retry initial backoff as a Duration.
func (c *Config) InitialBackoff() (time.Duration, error) {
	return time.ParseDuration(c.Retry.InitialBackoff)
}

// APIKey resolves the provider API key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

// HostingToken resolves the hosting access token from the configured
// environment variable.
func (c *Config) HostingToken() string {
	if c.Hosting.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Hosting.TokenEnv)
}

// LoadConfig loads configuration from the given root directory.
// It applies defaults, then file values, then environment overrides,
// then validates.
//
// A missing config file is not an error; defaults apply.
func LoadConfig(root string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := filepath.Join(root, ".revbench.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	// Resolve relative scenario dir against the root
	if cfg.Eval.ScenariosDir != "" && !filepath.IsAbs(cfg.Eval.ScenariosDir) {
		cfg.Eval.ScenariosDir = filepath.Join(root, cfg.Eval.ScenariosDir)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
