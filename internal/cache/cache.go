// Package cache provides a read-through cache and a rate guard that wrap
// plugin data sources.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/plugin"
)

// Store is a byte-oriented key/value store with per-entry expiry.
type Store interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// New builds the store selected by cfg. It returns nil for backend "none".
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "redis":
		r, err := NewRedis(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

type envelope struct {
	Kind   string          `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// Key builds the cache key for a plugin fetch. Parameters are sorted so
// equal parameter sets share a key.
func Key(pluginID string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("marketmind:")
	b.WriteString(pluginID)
	for _, k := range keys {
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.ToUpper(params[k]))
	}
	return b.String()
}

type cached struct {
	id    string
	src   plugin.DataSource
	store Store
	ttl   time.Duration
	log   *logging.Logger
}

// Decorate wraps src so successful fetches are served from store for ttl.
// Cached records keep their original update time. Store failures degrade
// to a direct fetch.
func Decorate(pluginID string, src plugin.DataSource, store Store, ttl time.Duration, log *logging.Logger) plugin.DataSource {
	return &cached{id: pluginID, src: src, store: store, ttl: ttl, log: log.Sub("cache")}
}

func (c *cached) Fetch(ctx context.Context, params map[string]string) (domain.Record, error) {
	key := Key(c.id, params)

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	case ok:
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil {
			if rec, err := domain.DecodeRecord(env.Kind, env.Record); err == nil {
				c.log.Trace().Str("key", key).Msg("cache hit")
				return rec, nil
			}
		}
		c.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	rec, err := c.src.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(rec)
	if err == nil {
		data, err = json.Marshal(envelope{Kind: rec.Kind(), Record: raw})
	}
	if err == nil {
		err = c.store.Set(ctx, key, data, c.ttl)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return rec, nil
}

func (c *cached) Close() error {
	return c.src.Close()
}
