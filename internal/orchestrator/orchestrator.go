// Package orchestrator fans a classified query out to the enabled plugins
// and collects one result per attempted plugin. A failing, hanging or
// panicking plugin never affects the others.
package orchestrator

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
	"github.com/soyeahso/marketmind/internal/plugin"
)

// DefaultPluginTimeout bounds a single plugin fetch when no timeout is configured.
const DefaultPluginTimeout = 5 * time.Second

// Registry is the view of the plugin registry that dispatch needs.
type Registry interface {
	IsEnabled(id string) bool
	Source(id string) (plugin.DataSource, bool)
}

// pluginParams lists the parameters each built-in plugin consumes.
// Plugins not listed here receive every extracted parameter.
var pluginParams = map[string][]string{
	domain.PluginCrypto:        {domain.ParamSymbol, domain.ParamDays},
	domain.PluginStock:         {domain.ParamStockSymbol},
	domain.PluginMarketSummary: {},
	domain.PluginNews:          {domain.ParamTopic, domain.ParamSentiment, domain.ParamLimit, domain.ParamQuery},
}

// Options configures an Orchestrator.
type Options struct {
	PluginTimeout  time.Duration
	MaxConcurrency int // <= 0 means unbounded
	Metrics        *metrics.Metrics
}

// Orchestrator dispatches intents to data sources.
type Orchestrator struct {
	opts Options
	now  func() time.Time
	log  *logging.Logger
}

// New creates an orchestrator.
func New(opts Options, log *logging.Logger) *Orchestrator {
	if opts.PluginTimeout <= 0 {
		opts.PluginTimeout = DefaultPluginTimeout
	}
	return &Orchestrator{opts: opts, now: time.Now, log: log.Sub("dispatch")}
}

type job struct {
	id  string
	src plugin.DataSource
}

// Dispatch attempts every targeted plugin that is registered and enabled,
// concurrently, and returns after all of them have finished or timed out.
// Results follow plugin priority order. Absent and disabled plugins are
// skipped without a result. The only error is an InternalFailure for a
// missing registry; plugin failures are reported inside the results.
func (o *Orchestrator) Dispatch(ctx context.Context, intent domain.QueryIntent, reg Registry) ([]domain.DataFetchResult, error) {
	if reg == nil {
		return nil, domain.Errorf(domain.KindInternalFailure, "dispatch", "no plugin registry")
	}

	targets := slices.Clone(intent.TargetPlugins)
	slices.SortStableFunc(targets, func(a, b string) int {
		return domain.PriorityOf(a) - domain.PriorityOf(b)
	})

	seen := make(map[string]bool, len(targets))
	jobs := make([]job, 0, len(targets))
	for _, id := range targets {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !reg.IsEnabled(id) {
			o.log.Debug().Str("plugin", id).Msg("skipping absent or disabled plugin")
			o.opts.Metrics.ObserveFetch(id, metrics.StatusSkipped, 0)
			continue
		}
		src, _ := reg.Source(id)
		jobs = append(jobs, job{id: id, src: src})
	}

	results := make([]domain.DataFetchResult, len(jobs))
	var g errgroup.Group
	if o.opts.MaxConcurrency > 0 {
		g.SetLimit(o.opts.MaxConcurrency)
	}
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = o.fetch(ctx, j, intent.Params)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

type outcome struct {
	rec domain.Record
	err error
}

func (o *Orchestrator) fetch(ctx context.Context, j job, params map[string]string) domain.DataFetchResult {
	start := o.now()
	op := j.id + ".fetch"

	if j.src == nil {
		return o.fail(j.id, start, metrics.StatusError,
			domain.Errorf(domain.KindSourceUnavailable, op, "no data source bound"))
	}

	fctx, cancel := context.WithTimeout(ctx, o.opts.PluginTimeout)
	defer cancel()

	// Buffered so a source that returns after the deadline does not leak.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: domain.Errorf(domain.KindSourceUnavailable, op, "plugin panicked: %v", r)}
			}
		}()
		rec, err := j.src.Fetch(fctx, selectParams(j.id, params))
		done <- outcome{rec: rec, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-fctx.Done():
		status := metrics.StatusTimeout
		err := domain.Errorf(domain.KindSourceUnavailable, op, "no response within %s", o.opts.PluginTimeout)
		if ctx.Err() != nil {
			status = metrics.StatusError
			err = domain.NewError(domain.KindSourceUnavailable, op, ctx.Err())
		}
		return o.fail(j.id, start, status, err)
	}

	if out.err != nil {
		return o.fail(j.id, start, metrics.StatusError, classify(op, out.err))
	}
	if out.rec == nil || out.rec.LastUpdated().IsZero() {
		return o.fail(j.id, start, metrics.StatusError,
			domain.Errorf(domain.KindSourceUnavailable, op, "malformed payload: missing timestamp"))
	}

	now := o.now()
	o.opts.Metrics.ObserveFetch(j.id, metrics.StatusSuccess, now.Sub(start))
	o.log.Debug().
		Str("plugin", j.id).
		Str("kind", out.rec.Kind()).
		Dur("took", now.Sub(start)).
		Msg("plugin fetch succeeded")

	// A payload older than this dispatch (a cache hit) is stamped with its
	// own update time.
	fetchedAt := now
	if u := out.rec.LastUpdated(); u.Before(now) {
		fetchedAt = u
	}
	return domain.DataFetchResult{
		PluginID:  j.id,
		Success:   true,
		Payload:   out.rec,
		FetchedAt: fetchedAt,
	}
}

func (o *Orchestrator) fail(id string, start time.Time, status string, err *domain.Error) domain.DataFetchResult {
	now := o.now()
	o.opts.Metrics.ObserveFetch(id, status, now.Sub(start))
	o.log.Warn().
		Err(err).
		Str("plugin", id).
		Str("kind", string(err.Kind)).
		Msg("plugin fetch failed")

	return domain.DataFetchResult{
		PluginID:  id,
		Success:   false,
		Err:       err,
		FetchedAt: now,
	}
}

// classify keeps a source's own error kind and treats anything
// unclassified as the source being unavailable.
func classify(op string, err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.NewError(domain.KindSourceUnavailable, op, err)
}

func selectParams(id string, params map[string]string) map[string]string {
	keys, known := pluginParams[id]
	if !known {
		return maps.Clone(params)
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := params[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Succeeded counts the successful results.
func Succeeded(results []domain.DataFetchResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
