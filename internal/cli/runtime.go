package cli

import (
	"fmt"

	"github.com/soyeahso/marketmind/internal/agent"
	"github.com/soyeahso/marketmind/internal/cache"
	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/datasource"
	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/hooks"
	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
	"github.com/soyeahso/marketmind/internal/orchestrator"
	"github.com/soyeahso/marketmind/internal/plugin"
	"github.com/soyeahso/marketmind/internal/synth"
	"golang.org/x/time/rate"
)

// runtime holds the shared collaborators behind serve and ask.
type runtime struct {
	cfg       config.Config
	hooks     *hooks.Manager
	metrics   *metrics.Metrics
	sources   *datasource.Set
	catalog   *plugin.Registry
	providers *llm.Registry
	cache     cache.Store
}

// buildRuntime wires data sources, the optional cache and rate guard, the
// plugin catalog and the generation providers. m may be nil.
func buildRuntime(cfg config.Config, m *metrics.Metrics, log *logging.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:     cfg,
		hooks:   hooks.NewManager(log),
		metrics: m,
		sources: datasource.NewSet(datasource.Options{}),
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	rt.cache = store

	providers, err := llm.NewRegistryFromConfig(cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	rt.providers = providers

	watchPartialData(rt.hooks, log)

	rt.catalog = plugin.NewRegistry(rt.hooks, log)
	available := rt.sources.Sources()

	// Plugins without their own credential share the demo quota.
	shared := cache.NewLimiter(cfg.Dispatch.RateLimitPerMinute)
	for _, p := range cfg.Agent.ResolvePlugins() {
		src, ok := available[p.ID]
		if ok {
			limiter := shared
			if p.Credential != "" {
				limiter = cache.NewLimiter(cfg.Dispatch.RateLimitPerMinute)
			}
			src = rt.wrap(p.ID, src, limiter, log)
		} else {
			log.Warn().Str("plugin", p.ID).Msg("no data source for plugin")
		}
		if err := rt.catalog.Register(p, src); err != nil {
			return nil, err
		}
	}

	log.Info().
		Strs("plugins", rt.catalog.List()).
		Strs("providers", providers.List()).
		Str("cache", cfg.Cache.Backend).
		Msg("runtime ready")
	return rt, nil
}

// wrap applies the read-through cache inside the rate guard, so cache hits
// do not spend quota.
func (rt *runtime) wrap(id string, src plugin.DataSource, limiter *rate.Limiter, log *logging.Logger) plugin.DataSource {
	if rt.cache != nil {
		src = cache.Decorate(id, src, rt.cache, rt.cfg.Cache.TTL(), log)
	}
	return cache.Limit(id, src, limiter)
}

// agentDeps is the template every agent is built from.
func (rt *runtime) agentDeps() agent.Deps {
	return agent.Deps{
		Catalog:   rt.catalog,
		Providers: rt.providers,
		Fallbacks: rt.cfg.Agent.Fallbacks,
		Dispatch: orchestrator.Options{
			PluginTimeout:  rt.cfg.Dispatch.PluginTimeout(),
			MaxConcurrency: rt.cfg.Dispatch.MaxConcurrency,
		},
		Synth: synth.Options{
			MaxTokens:   rt.cfg.Agent.MaxTokens,
			Temperature: rt.cfg.Agent.Temperature,
		},
		Hooks:   rt.hooks,
		Metrics: rt.metrics,
	}
}

// configuredAgent builds the agent defined in the config file.
func (rt *runtime) configuredAgent(model string, log *logging.Logger) (*agent.Agent, error) {
	cfg := rt.cfg.Agent.DomainConfig()
	if model != "" {
		cfg.Model = model
	}
	return agent.New(cfg, rt.agentDeps(), log)
}

func (rt *runtime) Close() {
	rt.catalog.CloseAll()
	if rt.cache != nil {
		rt.cache.Close()
	}
}

// enabledIDs lists the configured plugin ids that are switched on.
func enabledIDs(plugins []domain.Plugin) []string {
	var ids []string
	for _, p := range plugins {
		if p.Enabled {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
