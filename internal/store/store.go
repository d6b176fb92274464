// Package store persists users, agents and chat history.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/logging"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract shared by the SQLite and in-memory backends.
type Store interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	CountUsers(ctx context.Context) (int, error)

	GetAgent(ctx context.Context, id int64) (domain.StoredAgent, error)
	ListAgents(ctx context.Context) ([]domain.StoredAgent, error)
	CreateAgent(ctx context.Context, a domain.StoredAgent) (domain.StoredAgent, error)
	UpdateAgent(ctx context.Context, id int64, upd domain.AgentUpdate) (domain.StoredAgent, error)
	DeleteAgent(ctx context.Context, id int64) (bool, error)

	GetChatMessage(ctx context.Context, id int64) (domain.ChatMessage, error)
	// ListChatMessagesByAgent returns the agent's messages oldest first.
	ListChatMessagesByAgent(ctx context.Context, agentID int64) ([]domain.ChatMessage, error)
	CreateChatMessage(ctx context.Context, m domain.ChatMessage) (domain.ChatMessage, error)

	Close() error
}

// Open creates the configured backend. path is only used by sqlite.
func Open(cfg config.StoreConfig, path string, log *logging.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(path, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Demo data created by Seed.
const (
	DemoUsername  = "demo_user"
	DemoPassword  = "password123"
	DemoAgentName = "Financial Insights Agent"
	DemoBaseModel = "Nous-Hermes 2 Yi 34B"
)

// Seed creates the demo user and the default agent when no users exist.
// It is run once at startup and is a no-op on an initialized store.
func Seed(ctx context.Context, s Store) error {
	n, err := s.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		return nil
	}

	user, err := s.CreateUser(ctx, domain.User{Username: DemoUsername, Password: DemoPassword})
	if err != nil {
		return fmt.Errorf("creating demo user: %w", err)
	}

	_, err = s.CreateAgent(ctx, domain.StoredAgent{
		Name:         DemoAgentName,
		BaseModel:    DemoBaseModel,
		SystemPrompt: config.DefaultSystemPrompt,
		Plugins:      append([]string(nil), domain.PluginPriority...),
		UserID:       user.ID,
	})
	if err != nil {
		return fmt.Errorf("creating demo agent: %w", err)
	}
	return nil
}

func validateUser(u domain.User) error {
	if strings.TrimSpace(u.Username) == "" {
		return domain.Errorf(domain.KindInvalidInput, "store.createUser", "username is required")
	}
	return nil
}

func validateAgent(op string, a domain.StoredAgent) error {
	if strings.TrimSpace(a.Name) == "" {
		return domain.Errorf(domain.KindInvalidInput, op, "name is required")
	}
	if strings.TrimSpace(a.BaseModel) == "" {
		return domain.Errorf(domain.KindInvalidInput, op, "baseModel is required")
	}
	return nil
}

func validateMessage(m domain.ChatMessage) error {
	if m.Role != domain.RoleUser && m.Role != domain.RoleAgent {
		return domain.Errorf(domain.KindInvalidInput, "store.createChatMessage", "role must be %q or %q", domain.RoleUser, domain.RoleAgent)
	}
	if m.AgentID <= 0 {
		return domain.Errorf(domain.KindInvalidInput, "store.createChatMessage", "agentId is required")
	}
	return nil
}

func applyUpdate(a domain.StoredAgent, upd domain.AgentUpdate) domain.StoredAgent {
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.BaseModel != nil {
		a.BaseModel = *upd.BaseModel
	}
	if upd.SystemPrompt != nil {
		a.SystemPrompt = *upd.SystemPrompt
	}
	if upd.Plugins != nil {
		a.Plugins = append([]string(nil), upd.Plugins...)
	}
	if upd.UserID != nil {
		a.UserID = *upd.UserID
	}
	return a
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}
