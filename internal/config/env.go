package config

import "os"

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "REVBENCH_PROVIDER",
		apply: func(c *Config, v string) {
			c.Provider.Type = ProviderType(v)
		},
	},
	{
		envVar: "REVBENCH_MODEL",
		apply: func(c *Config, v string) {
			c.Provider.Model = v
		},
	},
	{
		envVar: "REVBENCH_PROVIDER_URL",
		apply: func(c *Config, v string) {
			c.Provider.BaseURL = v
		},
	},
	{
		envVar: "REVBENCH_HOSTING_URL",
		apply: func(c *Config, v string) {
			c.Hosting.BaseURL = v
		},
	},
	{
		envVar: "REVBENCH_NAMESPACE",
		apply: func(c *Config, v string) {
			c.Hosting.Namespace = v
		},
	},
	{
		envVar: "REVBENCH_SCENARIOS_DIR",
		apply: func(c *Config, v string) {
			c.Eval.ScenariosDir = v
		},
	},
	{
		envVar: "REVBENCH_SERVE_ADDR",
		apply: func(c *Config, v string) {
			c.Serve.Addr = v
		},
	},
	{
		envVar: "REVBENCH_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
