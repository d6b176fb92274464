package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/soyeahso/marketmind/internal/domain"
)

// Memory is an in-process Store. Data is lost on exit.
type Memory struct {
	mu       sync.RWMutex
	users    map[int64]domain.User
	agents   map[int64]domain.StoredAgent
	messages map[int64]domain.ChatMessage
	nextID   struct{ user, agent, message int64 }
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]domain.User),
		agents:   make(map[int64]domain.StoredAgent),
		messages: make(map[int64]domain.ChatMessage),
	}
}

func (m *Memory) GetUser(_ context.Context, id int64) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, notFound("user", id)
	}
	return u, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, notFound("user", username)
}

func (m *Memory) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	if err := validateUser(u); err != nil {
		return domain.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return domain.User{}, domain.Errorf(domain.KindInvalidInput, "store.createUser", "username %q is taken", u.Username)
		}
	}
	m.nextID.user++
	u.ID = m.nextID.user
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) CountUsers(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func cloneAgent(a domain.StoredAgent) domain.StoredAgent {
	a.Plugins = append([]string{}, a.Plugins...)
	return a
}

func (m *Memory) GetAgent(_ context.Context, id int64) (domain.StoredAgent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return domain.StoredAgent{}, notFound("agent", id)
	}
	return cloneAgent(a), nil
}

func (m *Memory) ListAgents(context.Context) ([]domain.StoredAgent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.StoredAgent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, cloneAgent(a))
	}
	slices.SortFunc(out, func(a, b domain.StoredAgent) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) CreateAgent(_ context.Context, a domain.StoredAgent) (domain.StoredAgent, error) {
	if err := validateAgent("store.createAgent", a); err != nil {
		return domain.StoredAgent{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID.agent++
	a.ID = m.nextID.agent
	a = cloneAgent(a)
	m.agents[a.ID] = a
	return cloneAgent(a), nil
}

func (m *Memory) UpdateAgent(_ context.Context, id int64, upd domain.AgentUpdate) (domain.StoredAgent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.agents[id]
	if !ok {
		return domain.StoredAgent{}, notFound("agent", id)
	}
	a := applyUpdate(current, upd)
	if err := validateAgent("store.updateAgent", a); err != nil {
		return domain.StoredAgent{}, err
	}
	m.agents[id] = cloneAgent(a)
	return cloneAgent(a), nil
}

// DeleteAgent removes the agent and its chat history.
func (m *Memory) DeleteAgent(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return false, nil
	}
	delete(m.agents, id)
	for mid, msg := range m.messages {
		if msg.AgentID == id {
			delete(m.messages, mid)
		}
	}
	return true, nil
}

func (m *Memory) GetChatMessage(_ context.Context, id int64) (domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	if !ok {
		return domain.ChatMessage{}, notFound("chat message", id)
	}
	return msg, nil
}

func (m *Memory) ListChatMessagesByAgent(_ context.Context, agentID int64) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.ChatMessage{}
	for _, msg := range m.messages {
		if msg.AgentID == agentID {
			out = append(out, msg)
		}
	}
	slices.SortFunc(out, func(a, b domain.ChatMessage) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) CreateChatMessage(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if err := validateMessage(msg); err != nil {
		return domain.ChatMessage{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[msg.AgentID]; !ok {
		return domain.ChatMessage{}, domain.Errorf(domain.KindInvalidInput, "store.createChatMessage", "agent %d does not exist", msg.AgentID)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC()
	m.nextID.message++
	msg.ID = m.nextID.message
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *Memory) Close() error { return nil }
