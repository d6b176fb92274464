// Package gateway serves the marketmind REST API and the WebSocket chat.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/marketmind/internal/agent"
	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/datasource"
	"github.com/soyeahso/marketmind/internal/hooks"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
	"github.com/soyeahso/marketmind/internal/store"
	"github.com/soyeahso/marketmind/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

const (
	// chatTimeout bounds one query, plugins and generation included.
	chatTimeout = 2 * time.Minute
	writeWait   = 10 * time.Second
	maxFrame    = 64 * 1024
)

// Deps are the collaborators the gateway serves from.
type Deps struct {
	Store   store.Store
	Sources *datasource.Set

	// Agent is the template every served agent is built from. Recorder and
	// AgentID are filled in per stored agent.
	Agent agent.Deps
}

// Server is the marketmind HTTP + WebSocket server.
type Server struct {
	cfg     config.Config
	deps    Deps
	log     *logging.Logger
	clients *connSet
	version string

	hooks   *hooks.Manager
	metrics *metrics.Metrics

	mu     sync.Mutex
	agents map[int64]*agent.Agent // stored agent id → agent; 0 is the configured agent
	gen    map[int64]uint64       // bumped by forgetAgent

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithMetrics enables request counting and, when configured, GET /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new gateway server.
func New(cfg config.Config, deps Deps, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		log:     log.Sub("gateway"),
		clients: newConnSet(log.Sub("chat")),
		version: version.Version,
		agents:  make(map[int64]*agent.Agent),
		gen:     make(map[int64]uint64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Gateway.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.deps.Sources == nil {
		s.deps.Sources = datasource.NewSet(datasource.Options{})
	}
	if s.deps.Agent.Hooks == nil {
		s.deps.Agent.Hooks = s.hooks
	}
	if s.deps.Agent.Metrics == nil {
		s.deps.Agent.Metrics = s.metrics
	}
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// If no origins are configured, only same-origin (no Origin header) or non-browser
// clients are allowed. If origins are configured, the Origin must match one of them.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Same-origin or non-browser clients
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.Gateway.AllowedOrigins, s.metrics)
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Gateway)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: chatTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Bool("metrics", s.metricsExposed()).
		Msg("gateway server ready")

	s.hooks.Emit(ctx, hooks.EventGatewayStart, map[string]any{
		"addr": ln.Addr().String(),
	})

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		s.hooks.Emit(context.Background(), hooks.EventGatewayStop, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.closeAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

func (s *Server) metricsExposed() bool {
	return s.metrics != nil && s.cfg.Gateway.Metrics
}

// agentFor returns the agent serving id, building and caching it on first
// use. id 0 selects the agent defined in the config file; any other id is
// loaded from the store and records its chat history there.
func (s *Server) agentFor(ctx context.Context, id int64) (*agent.Agent, error) {
	s.mu.Lock()
	a, ok := s.agents[id]
	gen := s.gen[id]
	s.mu.Unlock()
	if ok {
		return a, nil
	}

	deps := s.deps.Agent
	var cfg = s.cfg.Agent.DomainConfig()
	if id != 0 {
		if s.deps.Store == nil {
			return nil, fmt.Errorf("agent %d: %w", id, store.ErrNotFound)
		}
		stored, err := s.deps.Store.GetAgent(ctx, id)
		if err != nil {
			return nil, err
		}
		cfg = stored.AgentConfig(s.cfg.Agent.ResolvePlugins())
		deps.Recorder = s.deps.Store
		deps.AgentID = id
	}

	a, err := agent.New(cfg, deps, s.log)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.agents[id]; ok {
		return cached, nil
	}
	// An edit landed while this agent was being built; serve it for this
	// request but don't cache it.
	if s.gen[id] == gen {
		s.agents[id] = a
	}
	return a, nil
}

// forgetAgent drops a cached agent after its stored definition changed.
func (s *Server) forgetAgent(id int64) {
	s.mu.Lock()
	delete(s.agents, id)
	s.gen[id]++
	s.mu.Unlock()
}
