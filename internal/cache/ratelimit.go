package cache

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/plugin"
)

// NewLimiter returns a limiter allowing perMinute fetches with a burst of
// the same size, or nil when perMinute is not positive.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

type limited struct {
	id      string
	src     plugin.DataSource
	limiter *rate.Limiter
}

// Limit wraps src so fetches beyond the limiter's quota fail fast with a
// SourceUnavailable error. A nil limiter returns src unchanged.
func Limit(pluginID string, src plugin.DataSource, limiter *rate.Limiter) plugin.DataSource {
	if limiter == nil {
		return src
	}
	return &limited{id: pluginID, src: src, limiter: limiter}
}

func (l *limited) Fetch(ctx context.Context, params map[string]string) (domain.Record, error) {
	if !l.limiter.Allow() {
		return nil, domain.Errorf(domain.KindSourceUnavailable, l.id+".fetch", "rate limit exceeded")
	}
	return l.src.Fetch(ctx, params)
}

func (l *limited) Close() error {
	return l.src.Close()
}
