package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	for _, dotted := range []string{"gateway", "gateway.port", "agent.plugins"} {
		k, err := ParseKey(dotted)
		require.NoError(t, err, dotted)
		assert.Equal(t, dotted, k.String())
	}

	for _, bad := range []string{"", "gateway..port", ".gateway", "gateway.", "llm.apiKey", "cache.redisPassword"} {
		_, err := ParseKey(bad)
		var ce *ConfigError
		assert.ErrorAs(t, err, &ce, bad)
	}
}

func TestKeyGet(t *testing.T) {
	raw := map[string]any{
		"dispatch": map[string]any{"pluginTimeoutMs": 5000},
		"simple":   "value",
	}

	v, ok := Key{"dispatch", "pluginTimeoutMs"}.Get(raw)
	assert.True(t, ok)
	assert.Equal(t, 5000, v)

	v, ok = Key{"simple"}.Get(raw)
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	for _, k := range []Key{{"nope"}, {"dispatch", "nope"}, {"simple", "sub"}} {
		_, ok := k.Get(raw)
		assert.False(t, ok, k.String())
	}
}

func TestKeySet(t *testing.T) {
	raw := map[string]any{"store": "sqlite"}

	Key{"llm", "provider"}.Set(raw, "anthropic")
	Key{"store", "backend"}.Set(raw, "memory")

	assert.Equal(t, map[string]any{
		"llm":   map[string]any{"provider": "anthropic"},
		"store": map[string]any{"backend": "memory"},
	}, raw)
}

func TestKeyUnset(t *testing.T) {
	raw := map[string]any{
		"cache": map[string]any{"backend": "memory", "ttlSeconds": 60},
	}

	assert.True(t, Key{"cache", "ttlSeconds"}.Unset(raw))
	assert.Equal(t, map[string]any{"cache": map[string]any{"backend": "memory"}}, raw)

	assert.False(t, Key{"cache", "ttlSeconds"}.Unset(raw))
	assert.False(t, Key{"a", "b"}.Unset(raw))
	assert.False(t, Key{"cache", "backend", "x"}.Unset(raw))
}
