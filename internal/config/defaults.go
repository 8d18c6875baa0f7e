package config

const (
	DefaultProviderModel    = "claude-sonnet-4-5"
	DefaultProviderTimeout  = "2m"
	DefaultTemperature      = 0.1
	DefaultMaxTokens        = 4000
	DefaultAPIKeyEnv        = "ANTHROPIC_API_KEY"
	DefaultLocalBaseURL     = "http://localhost:6655/v1"
	DefaultHostingBaseURL   = "https://gitlab.com"
	DefaultHostingTokenEnv  = "GITLAB_TOKEN"
	DefaultHostingTimeout   = "30s"
	DefaultNamespace        = "revbench-eval"
	DefaultScenariosDir     = "scenarios"
	DefaultScenarioTimeout  = "10m"
	DefaultTestTimeout      = "60s"
	DefaultServeAddr        = ":8466"
	DefaultShutdownTimeout  = "30s"
	DefaultReviewTimeout    = "10m"
	DefaultLogLevel         = "info"
	DefaultRetryAttempts    = 1 // no retries unless configured
	DefaultInitialBackoff   = "1s"
	DefaultBackoffMultiply  = 2.0
)

// DefaultProviderType is the default provider when none is specified
var DefaultProviderType = ProviderAnthropic

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:        DefaultProviderType,
			Model:       DefaultProviderModel,
			APIKeyEnv:   DefaultAPIKeyEnv,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultProviderTimeout,
		},
		Hosting: HostingConfig{
			BaseURL:   DefaultHostingBaseURL,
			TokenEnv:  DefaultHostingTokenEnv,
			Namespace: DefaultNamespace,
			Timeout:   DefaultHostingTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts:     DefaultRetryAttempts,
			InitialBackoff:  DefaultInitialBackoff,
			BackoffMultiply: DefaultBackoffMultiply,
		},
		Eval: EvalConfig{
			ScenariosDir:    DefaultScenariosDir,
			ScenarioTimeout: DefaultScenarioTimeout,
			TestTimeout:     DefaultTestTimeout,
		},
		Serve: ServeConfig{
			Addr:            DefaultServeAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
			ReviewTimeout:   DefaultReviewTimeout,
		},
		LogLevel: DefaultLogLevel,
	}
}
