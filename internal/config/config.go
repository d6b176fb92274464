package config

import (
	"fmt"
	"time"

	"github.com/soyeahso/marketmind/internal/domain"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultSystemPrompt is the prompt of the seeded financial insights agent.
const DefaultSystemPrompt = "You are a financial insights agent with access to real-time market data through MCP plugins. " +
	"Your goal is to provide accurate, up-to-date information about financial markets, cryptocurrency prices, and related news. " +
	"Always specify the source and timestamp of your data."

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port:    5000,
			Bind:    "loopback",
			Metrics: true,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Agent: AgentConfig{
			Name:         "Financial Insights Agent",
			SystemPrompt: DefaultSystemPrompt,
			MaxTokens:    1024,
		},
		LLM: LLMConfig{
			Provider: "offline",
		},
		Dispatch: DispatchConfig{
			PluginTimeoutMs: 5000,
			MaxConcurrency:  4,
		},
		Cache: CacheConfig{
			Backend:    "none",
			TTLSeconds: 30,
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
	}
}

// PluginTimeout returns the per-plugin bounded wait.
func (d DispatchConfig) PluginTimeout() time.Duration {
	return time.Duration(d.PluginTimeoutMs) * time.Millisecond
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ResolvePlugins resolves the configured plugin list against the built-in catalog.
// An empty list means every built-in plugin, enabled. Listed plugins keep the
// configured order; unknown ids are carried through so validation and the
// registry can report them.
func (a AgentConfig) ResolvePlugins() []domain.Plugin {
	if len(a.Plugins) == 0 {
		return domain.DefaultPlugins()
	}
	names := make(map[string]string)
	for _, p := range domain.DefaultPlugins() {
		names[p.ID] = p.DisplayName
	}
	out := make([]domain.Plugin, 0, len(a.Plugins))
	for _, pc := range a.Plugins {
		name := pc.DisplayName
		if name == "" {
			name = names[pc.ID]
		}
		out = append(out, domain.Plugin{
			ID:          pc.ID,
			DisplayName: name,
			Enabled:     pc.IsEnabled(),
			Credential:  pc.Credential,
		})
	}
	return out
}

// DomainConfig converts the agent section into the immutable agent configuration.
func (a AgentConfig) DomainConfig() domain.AgentConfig {
	return domain.AgentConfig{
		Name:         a.Name,
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
		Plugins:      a.ResolvePlugins(),
	}
}
