package domain

import "time"

// Chat roles stored with each message.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// User is a persisted account. Only the demo user exists in practice.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// StoredAgent is the persisted form of an agent definition.
// Plugins lists the plugin ids the agent may use.
type StoredAgent struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	BaseModel    string   `json:"baseModel"`
	SystemPrompt string   `json:"systemPrompt"`
	Plugins      []string `json:"plugins"`
	UserID       int64    `json:"userId"`
}

// AgentConfig resolves the stored agent against the known plugin catalog.
// Catalog plugins not listed by the agent are carried as disabled so the
// classifier can still target them while dispatch skips them.
func (a StoredAgent) AgentConfig(catalog []Plugin) AgentConfig {
	enabled := make(map[string]bool, len(a.Plugins))
	for _, id := range a.Plugins {
		enabled[id] = true
	}
	plugins := make([]Plugin, 0, len(catalog))
	for _, p := range catalog {
		p.Enabled = p.Enabled && enabled[p.ID]
		plugins = append(plugins, p)
	}
	return AgentConfig{
		Name:         a.Name,
		Model:        a.BaseModel,
		SystemPrompt: a.SystemPrompt,
		Plugins:      plugins,
	}
}

// AgentUpdate carries optional fields for a partial agent update.
type AgentUpdate struct {
	Name         *string  `json:"name,omitempty"`
	BaseModel    *string  `json:"baseModel,omitempty"`
	SystemPrompt *string  `json:"systemPrompt,omitempty"`
	Plugins      []string `json:"plugins,omitempty"`
	UserID       *int64   `json:"userId,omitempty"`
}

// ChatMessage is one persisted chat turn.
type ChatMessage struct {
	ID          int64     `json:"id"`
	AgentID     int64     `json:"agentId"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	MCPDataUsed bool      `json:"mcpDataUsed"`
	Timestamp   time.Time `json:"timestamp"`
}
