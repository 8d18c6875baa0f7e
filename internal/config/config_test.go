package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, validateConfig(cfg))

	assert.Equal(t, ProviderAnthropic, cfg.Provider.Type)
	assert.Equal(t, DefaultProviderModel, cfg.Provider.Model)
	assert.Equal(t, DefaultServeAddr, cfg.Serve.Addr)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultProviderModel, cfg.Provider.Model)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `provider:
  type: local
  model: qwen-coder
  base_url: http://localhost:6655/v1
eval:
  scenarios_dir: my-scenarios
log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".revbench.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ProviderLocal, cfg.Provider.Type)
	assert.Equal(t, "qwen-coder", cfg.Provider.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Relative scenario dirs resolve against the config root
	assert.Equal(t, filepath.Join(dir, "my-scenarios"), cfg.Eval.ScenariosDir)
	// Untouched sections keep their defaults
	assert.Equal(t, DefaultHostingBaseURL, cfg.Hosting.BaseURL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("REVBENCH_MODEL", "claude-opus-4-1")
	t.Setenv("REVBENCH_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "claude-opus-4-1", cfg.Provider.Model)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.Type = "mystery"
	cfg.Provider.Model = ""
	cfg.Eval.TestTimeout = "soon"
	cfg.LogLevel = "loud"

	err := validateConfig(cfg)
	require.Error(t, err)

	for _, fragment := range []string{
		"provider.type",
		"provider.model",
		"eval.test_timeout",
		"log_level",
	} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestValidateLocalProviderRequiresBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.Type = ProviderLocal
	cfg.Provider.BaseURL = ""

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider.base_url")
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("TEST_REVBENCH_KEY", "sk-test")

	cfg := DefaultConfig()
	cfg.Provider.APIKeyEnv = "TEST_REVBENCH_KEY"
	assert.Equal(t, "sk-test", cfg.APIKey())

	cfg.Provider.APIKeyEnv = ""
	assert.Empty(t, cfg.APIKey())
}

func TestDurationAccessors(t *testing.T) {
	cfg := DefaultConfig()

	d, err := cfg.ScenarioTimeout()
	require.NoError(t, err)
	assert.Equal(t, "10m0s", d.String())

	d, err = cfg.ShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, "30s", d.String())

	d, err = cfg.ReviewTimeout()
	require.NoError(t, err)
	assert.Equal(t, "10m0s", d.String())
}
