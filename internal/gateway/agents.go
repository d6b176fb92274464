package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/soyeahso/marketmind/internal/domain"
)

// ChatRequest is the body of POST /api/chat and of every /ws frame.
// A zero AgentID selects the configured agent.
type ChatRequest struct {
	Query   string `json:"query"`
	AgentID int64  `json:"agentId,omitempty"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.deps.Store.ListAgents(r.Context())
	if err != nil {
		s.writeError(w, err, "fetching agents")
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err, "fetching agent")
		return
	}
	a, err := s.deps.Store.GetAgent(r.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Agent not found"})
			return
		}
		s.writeError(w, err, "fetching agent")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var in domain.StoredAgent
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, err, "creating agent")
		return
	}
	in.ID = 0
	a, err := s.deps.Store.CreateAgent(r.Context(), in)
	if err != nil {
		s.writeError(w, err, "creating agent")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err, "updating agent")
		return
	}
	var upd domain.AgentUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		s.writeError(w, err, "updating agent")
		return
	}
	a, err := s.deps.Store.UpdateAgent(r.Context(), id, upd)
	if err != nil {
		s.writeError(w, err, "updating agent")
		return
	}
	s.forgetAgent(id)
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err, "deleting agent")
		return
	}
	ok, err := s.deps.Store.DeleteAgent(r.Context(), id)
	if err != nil {
		s.writeError(w, err, "deleting agent")
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Agent not found"})
		return
	}
	s.forgetAgent(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err, "fetching messages")
		return
	}
	msgs, err := s.deps.Store.ListChatMessagesByAgent(r.Context(), id)
	if err != nil {
		s.writeError(w, err, "fetching messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var in domain.ChatMessage
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, err, "creating message")
		return
	}
	in.ID = 0
	m, err := s.deps.Store.CreateChatMessage(r.Context(), in)
	if err != nil {
		s.writeError(w, err, "creating message")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err, "processing query")
		return
	}
	resp, err := s.chat(r.Context(), req)
	if err != nil {
		s.writeError(w, err, "processing query")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// chat answers one query with the requested agent. It is shared by
// POST /api/chat and the WebSocket loop.
func (s *Server) chat(ctx context.Context, req ChatRequest) (domain.AgentResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return domain.AgentResponse{}, domain.Errorf(domain.KindInvalidInput, "gateway.chat", "query is required")
	}
	a, err := s.agentFor(ctx, req.AgentID)
	if err != nil {
		return domain.AgentResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	return a.ProcessQuery(ctx, req.Query)
}
