package domain

import "slices"

// Plugin ids understood by the classifier and the built-in data sources.
const (
	PluginCrypto        = "crypto"
	PluginStock         = "stock"
	PluginMarketSummary = "market-summary"
	PluginNews          = "news"
)

// PluginPriority is the fixed dispatch and formatting order for plugins.
var PluginPriority = []string{PluginCrypto, PluginStock, PluginMarketSummary, PluginNews}

// PriorityOf returns the position of id in PluginPriority, or len(PluginPriority)
// for ids outside the built-in set so they sort last.
func PriorityOf(id string) int {
	if i := slices.Index(PluginPriority, id); i >= 0 {
		return i
	}
	return len(PluginPriority)
}

// Plugin is a named, independently enablable data provider.
type Plugin struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Credential  string `json:"-" yaml:"credential,omitempty"`
}

// Name returns the display name, falling back to the id.
func (p Plugin) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// AgentConfig is the fixed configuration of one agent instance.
type AgentConfig struct {
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"systemPrompt"`
	Plugins      []Plugin `json:"plugins"`
}

// Clone returns a deep copy so the caller cannot mutate a running agent's config.
func (c AgentConfig) Clone() AgentConfig {
	out := c
	out.Plugins = slices.Clone(c.Plugins)
	return out
}

// DefaultPlugins returns the four built-in plugins, all enabled.
func DefaultPlugins() []Plugin {
	return []Plugin{
		{ID: PluginCrypto, DisplayName: "Crypto Prices", Enabled: true},
		{ID: PluginStock, DisplayName: "Stock Prices", Enabled: true},
		{ID: PluginMarketSummary, DisplayName: "Market Summary", Enabled: true},
		{ID: PluginNews, DisplayName: "News & Events", Enabled: true},
	}
}
