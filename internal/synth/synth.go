// Package synth turns dispatch results into the agent's answer. It decides
// what the generator is shown and derives the provenance metadata from the
// fetch results, never from the generated text.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
)

// UnavailableNotice is guaranteed to appear in an answer when every
// targeted plugin failed or was skipped.
const UnavailableNotice = "Live data could not be retrieved"

const citationInstruction = "Answer using the live data provided with the question. " +
	"For every figure or headline you use, cite its source name and timestamp, " +
	"for example \"(Crypto Prices, as of 2026-03-10T12:00:00Z)\". " +
	"If the data does not cover part of the question, say so."

const unavailableInstruction = "Live data for this question could not be retrieved. " +
	"Begin your answer with the sentence \"" + UnavailableNotice + ".\" " +
	"Do not guess current figures; you may explain what the user can try instead."

// Mode describes how a response was produced.
type Mode string

const (
	ModeGenerative  Mode = "generative"
	ModeGrounded    Mode = "grounded"
	ModeUnavailable Mode = "unavailable"
)

// Options configures generation requests.
type Options struct {
	MaxTokens   int
	Temperature *float64
	Metrics     *metrics.Metrics
}

// Synthesizer assembles prompts and calls the generator.
type Synthesizer struct {
	gen  llm.Client
	opts Options
	log  *logging.Logger
}

// New creates a Synthesizer backed by gen.
func New(gen llm.Client, opts Options, log *logging.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, opts: opts, log: log.Sub("synth")}
}

// ModeFor reports which synthesis mode applies to a dispatch.
func ModeFor(intent domain.QueryIntent, results []domain.DataFetchResult) Mode {
	for _, r := range results {
		if r.Success {
			return ModeGrounded
		}
	}
	if len(results) == 0 && intent.Empty() {
		return ModeGenerative
	}
	return ModeUnavailable
}

// Synthesize produces the response for query. intent is the classification
// that led to results; it separates "nothing matched" from "everything
// matched was skipped".
func (s *Synthesizer) Synthesize(ctx context.Context, query string, intent domain.QueryIntent,
	results []domain.DataFetchResult, cfg domain.AgentConfig) (domain.AgentResponse, error) {

	if s.gen == nil {
		return domain.AgentResponse{}, domain.Errorf(domain.KindInternalFailure, "synth", "no generator configured")
	}

	mode := ModeFor(intent, results)
	names := displayNames(cfg.Plugins)

	req := llm.CompletionRequest{
		Model:       cfg.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}

	var used []domain.Source
	switch mode {
	case ModeGenerative:
		req.System = cfg.SystemPrompt
		req.Messages = []llm.Message{{Role: llm.RoleUser, Content: query}}

	case ModeGrounded:
		req.System = joinPrompt(cfg.SystemPrompt, citationInstruction)
		req.Messages = []llm.Message{{Role: llm.RoleUser, Content: groundedPrompt(query, results, names)}}
		for _, r := range results {
			if r.Success {
				used = append(used, domain.Source{PluginID: r.PluginID, FetchedAt: r.FetchedAt})
			}
		}

	case ModeUnavailable:
		req.System = joinPrompt(cfg.SystemPrompt, unavailableInstruction)
		req.Messages = []llm.Message{{Role: llm.RoleUser, Content: unavailablePrompt(query, unavailableNames(intent, results, names))}}
	}

	resp, err := s.gen.Complete(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("generator returned no response")
	}
	if err != nil {
		s.opts.Metrics.ObserveGeneration(cfg.Model, err, 0, 0)
		s.log.Error().Err(err).Str("model", cfg.Model).Str("mode", string(mode)).Msg("generation failed")
		return domain.AgentResponse{}, domain.NewError(domain.KindGenerationFailure, "synth.generate", err)
	}
	s.opts.Metrics.ObserveGeneration(cfg.Model, nil, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	text := strings.TrimSpace(resp.Content)
	switch mode {
	case ModeGenerative:
		if text == "" {
			return domain.AgentResponse{}, domain.Errorf(domain.KindGenerationFailure, "synth.generate", "empty response")
		}
	case ModeGrounded:
		if !cites(text, used, names) {
			text = appendFooter(text, used, names)
		}
	case ModeUnavailable:
		if !strings.Contains(strings.ToLower(text), strings.ToLower(UnavailableNotice)) {
			text = joinParagraphs(fmt.Sprintf("%s for %s.",
				UnavailableNotice, strings.Join(unavailableNames(intent, results, names), ", ")), text)
		}
	}

	s.log.Debug().
		Str("mode", string(mode)).
		Int("sources", len(used)).
		Int("outputTokens", resp.Usage.OutputTokens).
		Msg("response synthesized")

	return domain.AgentResponse{
		Text:        text,
		MCPDataUsed: len(used) > 0,
		UsedSources: used,
	}, nil
}

func displayNames(plugins []domain.Plugin) map[string]string {
	out := make(map[string]string, len(plugins))
	for _, p := range plugins {
		out[p.ID] = p.Name()
	}
	return out
}

func nameOf(id string, names map[string]string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

func groundedPrompt(query string, results []domain.DataFetchResult, names map[string]string) string {
	var b strings.Builder
	b.WriteString("Live data:\n")
	var failed []string
	for _, r := range results {
		if !r.Success {
			failed = append(failed, nameOf(r.PluginID, names))
			continue
		}
		body := r.Payload.Summary() + "\nlast updated " + r.Payload.LastUpdated().UTC().Format(time.RFC3339)
		b.WriteString("\n")
		b.WriteString(llm.FormatContextEntry(nameOf(r.PluginID, names), r.FetchedAt, body))
		b.WriteString("\n")
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "\nUnavailable right now: %s\n", strings.Join(failed, ", "))
	}
	fmt.Fprintf(&b, "\nQuestion: %s", query)
	return b.String()
}

func unavailablePrompt(query string, sources []string) string {
	return fmt.Sprintf("No live data is available from: %s\n\nQuestion: %s", strings.Join(sources, ", "), query)
}

// unavailableNames lists the sources that were asked for but produced nothing.
func unavailableNames(intent domain.QueryIntent, results []domain.DataFetchResult, names map[string]string) []string {
	var out []string
	if len(results) > 0 {
		for _, r := range results {
			out = append(out, nameOf(r.PluginID, names))
		}
		return out
	}
	for _, id := range intent.TargetPlugins {
		out = append(out, nameOf(id, names))
	}
	if len(out) == 0 {
		out = append(out, "the requested sources")
	}
	return out
}

// cites reports whether text names at least one used source together with
// a timestamp or date of one of them.
func cites(text string, used []domain.Source, names map[string]string) bool {
	lower := strings.ToLower(text)
	var named, dated bool
	for _, src := range used {
		if strings.Contains(lower, strings.ToLower(nameOf(src.PluginID, names))) {
			named = true
		}
		at := src.FetchedAt.UTC()
		if strings.Contains(text, at.Format(time.RFC3339)) || strings.Contains(text, at.Format(time.DateOnly)) {
			dated = true
		}
	}
	return named && dated
}

func appendFooter(text string, used []domain.Source, names map[string]string) string {
	parts := make([]string, 0, len(used))
	for _, src := range used {
		parts = append(parts, fmt.Sprintf("%s (%s)", nameOf(src.PluginID, names), src.FetchedAt.UTC().Format(time.RFC3339)))
	}
	return joinParagraphs(text, "Sources: "+strings.Join(parts, "; "))
}

func joinPrompt(base, instruction string) string {
	return joinParagraphs(strings.TrimSpace(base), instruction)
}

func joinParagraphs(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
