package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/hooks"
	"github.com/soyeahso/marketmind/internal/logging"
)

type entry struct {
	plugin domain.Plugin
	source DataSource
}

// Registry holds plugin records and their data sources. It is safe for
// concurrent use; reads never block each other.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]entry
	order   []string // insertion order for deterministic listing and shutdown
	hooks   *hooks.Manager
	log     *logging.Logger
}

// NewRegistry creates a plugin registry. hm may be nil.
func NewRegistry(hm *hooks.Manager, log *logging.Logger) *Registry {
	return &Registry{
		plugins: make(map[string]entry),
		hooks:   hm,
		log:     log.Sub("plugins"),
	}
}

// Register adds a plugin and the source that serves it. src may be nil for
// plugins that are listed but have no backing implementation yet.
func (r *Registry) Register(p domain.Plugin, src DataSource) error {
	if p.ID == "" {
		return fmt.Errorf("plugin id is required")
	}

	r.mu.Lock()
	if _, exists := r.plugins[p.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("plugin already registered: %s", p.ID)
	}
	r.plugins[p.ID] = entry{plugin: p, source: src}
	r.order = append(r.order, p.ID)
	r.mu.Unlock()

	r.log.Info().
		Str("id", p.ID).
		Str("name", p.Name()).
		Bool("enabled", p.Enabled).
		Bool("bound", src != nil).
		Msg("plugin registered")

	r.hooks.Emit(context.Background(), hooks.EventPluginRegistered, map[string]any{
		"id":      p.ID,
		"enabled": p.Enabled,
	})
	return nil
}

// Configure replaces the record of an already registered plugin, keeping
// its data source.
func (r *Registry) Configure(p domain.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.plugins[p.ID]
	if !ok {
		return fmt.Errorf("plugin not registered: %s", p.ID)
	}
	e.plugin = p
	r.plugins[p.ID] = e
	r.log.Info().Str("id", p.ID).Bool("enabled", p.Enabled).Msg("plugin reconfigured")
	return nil
}

// IsEnabled reports whether id is registered and enabled.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[id]
	return ok && e.plugin.Enabled
}

// Get returns the plugin record for id.
func (r *Registry) Get(id string) (domain.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[id]
	return e.plugin, ok
}

// Source returns the data source bound to id.
func (r *Registry) Source(id string) (DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[id]
	if !ok || e.source == nil {
		return nil, false
	}
	return e.source, true
}

// ListEnabled returns the enabled plugins in registration order.
func (r *Registry) ListEnabled() []domain.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Plugin, 0, len(r.order))
	for _, id := range r.order {
		if p := r.plugins[id].plugin; p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// List returns all plugin IDs in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// CloseAll closes every bound data source in reverse registration order.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		src := r.plugins[id].source
		if src == nil {
			continue
		}
		r.log.Debug().Str("id", id).Msg("closing plugin source")
		if err := src.Close(); err != nil {
			r.log.Error().Err(err).Str("id", id).Msg("plugin close error")
		}
	}
}

// Info returns summary information about all registered plugins.
func (r *Registry) Info() []PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]PluginInfo, 0, len(r.order))
	for _, id := range r.order {
		e := r.plugins[id]
		infos = append(infos, PluginInfo{
			ID:      e.plugin.ID,
			Name:    e.plugin.Name(),
			Enabled: e.plugin.Enabled,
			Bound:   e.source != nil,
		})
	}
	return infos
}

// PluginInfo holds summary data about a plugin. Credentials are never included.
type PluginInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Bound   bool   `json:"bound"`
}
