// Package agent is the query facade: it classifies a query, dispatches it
// to the agent's enabled plugins and synthesizes the answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/hooks"
	"github.com/soyeahso/marketmind/internal/intent"
	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
	"github.com/soyeahso/marketmind/internal/orchestrator"
	"github.com/soyeahso/marketmind/internal/plugin"
	"github.com/soyeahso/marketmind/internal/synth"
)

// ChatRecorder persists conversation turns. Implemented by the store.
type ChatRecorder interface {
	CreateChatMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
}

// Deps are the collaborators an Agent is built from.
type Deps struct {
	// Catalog holds every available data source keyed by plugin id.
	// The agent's own plugin list decides which of them it may use.
	Catalog *plugin.Registry

	// Providers resolves the agent's model; Fallbacks are tried in order
	// on retryable provider errors.
	Providers *llm.Registry
	Fallbacks []string

	Dispatch orchestrator.Options
	Synth    synth.Options

	Hooks   *hooks.Manager
	Metrics *metrics.Metrics

	// Recorder and AgentID enable history write-through. Both are optional.
	Recorder ChatRecorder
	AgentID  int64
}

// Agent answers queries for one fixed configuration. It is safe for
// concurrent use; queries share no mutable state.
type Agent struct {
	cfg      domain.AgentConfig
	plugins  *plugin.Registry
	orch     *orchestrator.Orchestrator
	synth    *synth.Synthesizer
	hooks    *hooks.Manager
	metrics  *metrics.Metrics
	recorder ChatRecorder
	agentID  int64
	log      *logging.Logger
}

// New builds an agent. Plugins listed in cfg but missing from the catalog
// are registered without a source and fail when dispatched.
func New(cfg domain.AgentConfig, deps Deps, log *logging.Logger) (*Agent, error) {
	if deps.Providers == nil {
		return nil, domain.Errorf(domain.KindInternalFailure, "agent.new", "no generation providers")
	}
	cfg = cfg.Clone()

	reg := plugin.NewRegistry(nil, log)
	for _, p := range cfg.Plugins {
		var src plugin.DataSource
		if deps.Catalog != nil {
			src, _ = deps.Catalog.Source(p.ID)
		}
		if err := reg.Register(p, src); err != nil {
			return nil, domain.NewError(domain.KindInternalFailure, "agent.new", err)
		}
	}

	if deps.Dispatch.Metrics == nil {
		deps.Dispatch.Metrics = deps.Metrics
	}
	if deps.Synth.Metrics == nil {
		deps.Synth.Metrics = deps.Metrics
	}

	gen := newModelChain(deps.Providers, cfg.Model, deps.Fallbacks, log)
	return &Agent{
		cfg:      cfg,
		plugins:  reg,
		orch:     orchestrator.New(deps.Dispatch, log),
		synth:    synth.New(gen, deps.Synth, log),
		hooks:    deps.Hooks,
		metrics:  deps.Metrics,
		recorder: deps.Recorder,
		agentID:  deps.AgentID,
		log:      log.Sub("agent").With("agent", cfg.Name),
	}, nil
}

// Config returns a copy of the agent's configuration.
func (a *Agent) Config() domain.AgentConfig {
	return a.cfg.Clone()
}

// Plugins lists the agent's plugin records.
func (a *Agent) Plugins() []plugin.PluginInfo {
	return a.plugins.Info()
}

// ProcessQuery answers query. Empty input fails with InvalidInput, a failed
// generation with GenerationFailure and any plumbing fault with
// InternalFailure. Plugin failures never fail the query.
func (a *Agent) ProcessQuery(ctx context.Context, query string) (resp domain.AgentResponse, err error) {
	const op = "agent.processQuery"
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("query panicked")
			resp, err = domain.AgentResponse{}, domain.Errorf(domain.KindInternalFailure, op, "unexpected fault: %v", r)
		}
		a.finish(ctx, query, start, resp, err)
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return domain.AgentResponse{}, domain.Errorf(domain.KindInvalidInput, op, "query is empty")
	}

	a.hooks.Emit(ctx, hooks.EventQueryReceived, map[string]any{"query": query})
	a.record(ctx, domain.RoleUser, query, false)

	in := intent.Classify(query)
	a.log.Debug().Strs("targets", in.TargetPlugins).Interface("params", in.Params).Msg("query classified")

	results, err := a.orch.Dispatch(ctx, in, a.plugins)
	if err != nil {
		return domain.AgentResponse{}, a.internal(op, err)
	}
	a.hooks.Emit(ctx, hooks.EventDispatchComplete, map[string]any{
		"targets":   in.TargetPlugins,
		"attempted": len(results),
		"succeeded": orchestrator.Succeeded(results),
	})

	resp, err = a.synth.Synthesize(ctx, query, in, results, a.cfg)
	if err != nil {
		return domain.AgentResponse{}, a.internal(op, err)
	}

	a.record(ctx, domain.RoleAgent, resp.Text, resp.MCPDataUsed)
	return resp, nil
}

// internal keeps classified errors and marks anything else as a plumbing fault.
func (a *Agent) internal(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(domain.KindInternalFailure, op, err)
}

func (a *Agent) finish(ctx context.Context, query string, start time.Time, resp domain.AgentResponse, err error) {
	took := time.Since(start)
	if err != nil {
		kind := domain.KindOf(err)
		a.metrics.ObserveQuery(string(kind), took)
		a.log.Warn().Err(err).Str("kind", string(kind)).Dur("took", took).Msg("query failed")
		a.hooks.Emit(ctx, hooks.EventQueryFailed, map[string]any{
			"query": query,
			"kind":  string(kind),
			"error": err.Error(),
		})
		return
	}
	a.metrics.ObserveQuery("success", took)
	a.log.Info().
		Bool("mcpDataUsed", resp.MCPDataUsed).
		Int("sources", len(resp.UsedSources)).
		Dur("took", took).
		Msg("query answered")
	a.hooks.Emit(ctx, hooks.EventResponseReady, map[string]any{
		"query":       query,
		"mcpDataUsed": resp.MCPDataUsed,
		"sources":     len(resp.UsedSources),
	})
}

// record writes one turn through to history. Failures are logged only.
func (a *Agent) record(ctx context.Context, role, content string, mcpDataUsed bool) {
	if a.recorder == nil || a.agentID == 0 {
		return
	}
	_, err := a.recorder.CreateChatMessage(ctx, domain.ChatMessage{
		AgentID:     a.agentID,
		Role:        role,
		Content:     content,
		MCPDataUsed: mcpDataUsed,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		a.log.Warn().Err(err).Str("role", role).Msg("failed to record chat message")
	}
}
