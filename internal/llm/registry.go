package llm

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/logging"
)

// ProviderError is returned when a generation provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code when the provider reported one (401, 429, 500, ...)
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// providerError wraps err, pulling out a status code when one is available.
func providerError(provider string, code int, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Message: err.Error(), Code: code, Err: err}
}

// Registry manages provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered generation provider")
}

// Alias maps a model name to a provider.
// e.g., Alias("sonnet", "anthropic") means "sonnet" resolves to the anthropic provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[strings.ToLower(model)] = provider
}

// SetFallback sets the provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	if provider, ok := r.aliases[strings.ToLower(model)]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no generation provider for model %q", model)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Provider names accepted in llm.provider.
const (
	ProviderOffline   = "offline"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

var providerAliases = map[string][]string{
	ProviderAnthropic: {"claude", "sonnet", "opus", "haiku", "claude-sonnet", "claude-haiku"},
	ProviderOpenAI:    {"gpt", "gpt-4o", "gpt-4o-mini", "chatgpt"},
	ProviderOllama:    {"llama", "llama3", "mistral", "nous-hermes", "nous-hermes2"},
}

// NewRegistryFromConfig builds a Registry from the llm config section.
// The offline provider is always registered so it can serve as a fallback
// model; the configured provider becomes the default for unknown models.
func NewRegistryFromConfig(cfg config.LLMConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)
	reg.Register(ProviderOffline, NewOfflineClient())

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderOffline:
		provider = ProviderOffline
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: anthropic provider requires an api key")
		}
		reg.Register(ProviderAnthropic, NewAnthropicClient(cfg.APIKey, cfg.Model))
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: openai provider requires an api key")
		}
		reg.Register(ProviderOpenAI, NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.Endpoint))
	case ProviderOllama:
		reg.Register(ProviderOllama, NewOllamaClient(cfg.Endpoint, cfg.Model))
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	for _, alias := range providerAliases[provider] {
		reg.Alias(alias, provider)
	}
	reg.SetFallback(provider)
	return reg, nil
}
