package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.customBindHost",
			Message: "required when bind is custom",
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Agent validation
	if cfg.Agent.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxTokens",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Agent.MaxTokens),
		})
	}
	if t := cfg.Agent.Temperature; t != nil && (*t < 0 || *t > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "agent.temperature",
			Message: fmt.Sprintf("must be 0-2, got %v", *t),
		})
	}
	seen := make(map[string]bool)
	for i, p := range cfg.Agent.Plugins {
		path := fmt.Sprintf("agent.plugins[%d].id", i)
		switch {
		case p.ID == "":
			issues = append(issues, ValidationIssue{Path: path, Message: "id is required"})
		case seen[p.ID]:
			issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf("duplicate plugin %q", p.ID)})
		}
		seen[p.ID] = true
	}

	// LLM validation
	validProviders := []string{"offline", "anthropic", "openai", "ollama"}
	if cfg.LLM.Provider != "" && !slices.Contains(validProviders, cfg.LLM.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "llm.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.LLM.Provider),
		})
	}
	if (cfg.LLM.Provider == "anthropic" || cfg.LLM.Provider == "openai") && cfg.LLM.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "llm.apiKey",
			Message: fmt.Sprintf("required for provider %s", cfg.LLM.Provider),
		})
	}

	// Dispatch validation
	if cfg.Dispatch.PluginTimeoutMs <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "dispatch.pluginTimeoutMs",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Dispatch.PluginTimeoutMs),
		})
	}
	if cfg.Dispatch.MaxConcurrency < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "dispatch.maxConcurrency",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Dispatch.MaxConcurrency),
		})
	}
	if cfg.Dispatch.RateLimitPerMinute < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "dispatch.rateLimitPerMinute",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Dispatch.RateLimitPerMinute),
		})
	}

	// Cache validation
	validCaches := []string{"none", "memory", "redis"}
	if cfg.Cache.Backend != "" && !slices.Contains(validCaches, cfg.Cache.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "cache.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validCaches, cfg.Cache.Backend),
		})
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisAddr == "" {
		issues = append(issues, ValidationIssue{
			Path:    "cache.redisAddr",
			Message: "required when backend is redis",
		})
	}
	if cfg.Cache.Backend != "none" && cfg.Cache.Backend != "" && cfg.Cache.TTLSeconds <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "cache.ttlSeconds",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Cache.TTLSeconds),
		})
	}

	// Store validation
	validStores := []string{"sqlite", "memory"}
	if cfg.Store.Backend != "" && !slices.Contains(validStores, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Store.Backend),
		})
	}

	return issues
}
