package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
host = "0.0.0.0"
port = 8787
log_level = "info"
request_timeout = 60
max_retries = 3
max_tokens_limit = "request"
min_tokens_limit = "ignore"

[tokens]
alice = "team-a"

[provider.anthropic]
api_key = "sk-ant-test"
base_url = "https://api.anthropic.com/v1"

[provider.azure-gpt]
api_key = "azure-key"
base_url = "https://my-resource.openai.azure.com"
api_version = "2024-06-01"

[[backend]]
model = "anthropic:claude-3-opus-20240229"
vision = true
thinking = true

[[backend]]
model = "azure-gpt:gpt-5-mini"
context = 200000
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8787, cfg.Port)
	assert.Equal(t, "request", cfg.MaxTokensLimit)
	assert.True(t, cfg.AuthEnabled())
	assert.True(t, cfg.IsValidToken("alice"))
	assert.False(t, cfg.IsValidToken("mallory"))

	require.Len(t, cfg.Backend, 2)
	assert.Equal(t, DefaultContextWindow, cfg.Backend[0].Context)
	assert.Equal(t, 200000, cfg.Backend[1].Context)

	azure := cfg.Provider["azure-gpt"]
	assert.Equal(t, "2024-06-01", azure.APIVersion)
}

func TestLoadDefaultsWhenUnset(t *testing.T) {
	path := writeTempConfig(t, `host = "localhost"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultRequestTimeoutSeconds, cfg.RequestTimeout)
	assert.Equal(t, "", cfg.MaxTokensLimit)
	assert.False(t, cfg.AuthEnabled())
	assert.True(t, cfg.IsValidToken("anything"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
