package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/marketmind/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 5000, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.True(t, cfg.Gateway.Metrics)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "Financial Insights Agent", cfg.Agent.Name)
	assert.Equal(t, DefaultSystemPrompt, cfg.Agent.SystemPrompt)
	assert.Equal(t, "offline", cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.PluginTimeout())
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL())
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "offline", cfg.Agent.Model, "model follows provider")
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
gateway:
  port: 9999
  bind: lan
  allowedOrigins:
    - http://localhost:5173
logging:
  level: debug
  consoleStyle: json
agent:
  name: Desk Agent
  fallbacks: [offline]
  plugins:
    - id: crypto
    - id: news
      enabled: false
llm:
  provider: anthropic
  apiKey: sk-test
  model: claude-sonnet-4-5
dispatch:
  pluginTimeoutMs: 250
cache:
  backend: redis
  redisAddr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "lan", cfg.Gateway.Bind)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
	assert.Equal(t, "Desk Agent", cfg.Agent.Name)
	assert.Equal(t, "anthropic", cfg.Agent.Model)
	assert.Equal(t, []string{"offline"}, cfg.Agent.Fallbacks)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.PluginTimeout())
	assert.Equal(t, 4, cfg.Dispatch.MaxConcurrency)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 30, cfg.Cache.TTLSeconds)

	require.Len(t, cfg.Agent.Plugins, 2)
	assert.True(t, cfg.Agent.Plugins[0].IsEnabled())
	assert.False(t, cfg.Agent.Plugins[1].IsEnabled())
	assert.Empty(t, Validate(&cfg))
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MARKETMIND_GATEWAY_PORT", "12345")
	t.Setenv("MARKETMIND_LOG_LEVEL", "TRACE")
	t.Setenv("MARKETMIND_LLM_PROVIDER", "OpenAI")
	t.Setenv("MARKETMIND_LLM_API_KEY", "sk-env")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.Gateway.Port)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "openai", cfg.Agent.Model)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

func TestLoadExpandsSecrets(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-from-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
llm:
  provider: anthropic
  apiKey: ${TEST_ANTHROPIC_KEY}
agent:
  plugins:
    - id: stock
      credential: ${UNSET_MARKETMIND_VAR}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "${UNSET_MARKETMIND_VAR}", cfg.Agent.Plugins[0].Credential)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MM_A", "alpha")
	assert.Equal(t, "alpha-x", expandEnvVars("${MM_A}-x"))
	assert.Equal(t, "${MM_NOPE}", expandEnvVars("${MM_NOPE}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestResolvePlugins(t *testing.T) {
	assert.Equal(t, domain.DefaultPlugins(), AgentConfig{}.ResolvePlugins())

	off := false
	a := AgentConfig{Plugins: []PluginConfig{
		{ID: "news", Enabled: &off},
		{ID: "crypto", Credential: "key"},
		{ID: "onchain", DisplayName: "On-chain Analytics"},
	}}
	got := a.ResolvePlugins()
	require.Len(t, got, 3)
	assert.Equal(t, domain.Plugin{ID: "news", DisplayName: "News & Events", Enabled: false}, got[0])
	assert.Equal(t, domain.Plugin{ID: "crypto", DisplayName: "Crypto Prices", Enabled: true, Credential: "key"}, got[1])
	assert.Equal(t, "On-chain Analytics", got[2].DisplayName)
}

func TestDomainConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.Model = "offline"
	dc := cfg.Agent.DomainConfig()
	assert.Equal(t, "Financial Insights Agent", dc.Name)
	assert.Equal(t, "offline", dc.Model)
	assert.Len(t, dc.Plugins, 4)
}

func TestLoadRawAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	Key{"cache", "backend"}.Set(raw, "memory")
	require.NoError(t, SaveRaw(path, raw))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Backend)

	raw, err = LoadRaw(path)
	require.NoError(t, err)
	val, ok := Key{"cache", "backend"}.Get(raw)
	assert.True(t, ok)
	assert.Equal(t, "memory", val)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Message: "bad"}
	assert.Equal(t, "config: bad", err.Error())
}
