package domain

import "time"

// Parameter names extracted by the intent classifier.
const (
	ParamSymbol      = "symbol"
	ParamStockSymbol = "stockSymbol"
	ParamDays        = "days"
	ParamTopic       = "topic"
	ParamSentiment   = "sentiment"
	ParamLimit       = "limit"
	ParamQuery       = "query"
)

// QueryIntent is the set of plugins and parameters inferred from a query.
// TargetPlugins is ordered by PluginPriority and holds no duplicates.
type QueryIntent struct {
	TargetPlugins []string          `json:"targetPlugins"`
	Params        map[string]string `json:"params,omitempty"`
}

// Empty reports whether no plugin was matched.
func (q QueryIntent) Empty() bool { return len(q.TargetPlugins) == 0 }

// DataFetchResult is the outcome of invoking one plugin during a dispatch.
type DataFetchResult struct {
	PluginID  string    `json:"pluginId"`
	Success   bool      `json:"success"`
	Payload   Record    `json:"payload,omitempty"`
	Err       *Error    `json:"-"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Source identifies a plugin result that contributed to a response.
type Source struct {
	PluginID  string    `json:"pluginId"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// AgentResponse is the provenance-tagged answer returned to callers.
// MCPDataUsed is true iff UsedSources is non-empty.
type AgentResponse struct {
	Text        string   `json:"text"`
	MCPDataUsed bool     `json:"mcpDataUsed"`
	UsedSources []Source `json:"usedSources"`
}
