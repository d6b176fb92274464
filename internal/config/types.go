package config

// Config is the root configuration for marketmind.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Agent    AgentConfig    `yaml:"agent,omitempty"`
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Dispatch DispatchConfig `yaml:"dispatch,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket API server.
type GatewayConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	Metrics        bool     `yaml:"metrics,omitempty"` // expose /metrics
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// AgentConfig defines the agent served by the gateway and used by `ask`.
type AgentConfig struct {
	Name         string         `yaml:"name,omitempty"`
	Model        string         `yaml:"model,omitempty"`
	Fallbacks    []string       `yaml:"fallbacks,omitempty"`
	SystemPrompt string         `yaml:"systemPrompt,omitempty"`
	MaxTokens    int            `yaml:"maxTokens,omitempty"`
	Temperature  *float64       `yaml:"temperature,omitempty"`
	Plugins      []PluginConfig `yaml:"plugins,omitempty"`
}

// PluginConfig enables or disables a data plugin and carries its credential.
type PluginConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"displayName,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"` // defaults to true
	Credential  string `yaml:"credential,omitempty"`
}

// IsEnabled reports the effective enabled flag.
func (p PluginConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// LLMConfig selects the language-generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"` // "offline" | "anthropic" | "openai" | "ollama"
	APIKey   string `yaml:"apiKey,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"` // ollama base URL
}

// DispatchConfig bounds plugin invocation.
type DispatchConfig struct {
	PluginTimeoutMs    int `yaml:"pluginTimeoutMs,omitempty"`
	MaxConcurrency     int `yaml:"maxConcurrency,omitempty"`
	RateLimitPerMinute int `yaml:"rateLimitPerMinute,omitempty"` // 0 disables
}

// CacheConfig configures the data-source read-through cache.
type CacheConfig struct {
	Backend       string `yaml:"backend,omitempty"` // "none" | "memory" | "redis"
	TTLSeconds    int    `yaml:"ttlSeconds,omitempty"`
	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       int    `yaml:"redisDb,omitempty"`
}

// StoreConfig selects chat-history persistence.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" | "memory"
	Path    string `yaml:"path,omitempty"`    // defaults to <data>/marketmind.db
}
