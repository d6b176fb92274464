// Package datasource implements the demo market-data plugins. Values come
// from fixed base tables with a small random jitter; nothing here calls an
// external API.
package datasource

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/plugin"
)

// Options carries the randomness and clock shared by every source.
// Zero values select math/rand/v2 and time.Now.
type Options struct {
	// Rand returns a value in [0, 1). Returning 0.5 removes all jitter.
	Rand func() float64
	Now  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// jitter scales v by a factor in [1-spread/2, 1+spread/2).
func (o Options) jitter(v float64, spread float64) float64 {
	return v * (1 + (o.Rand()-0.5)*spread)
}

// Set bundles one instance of every built-in source.
type Set struct {
	Crypto *Crypto
	Stock  *Stock
	Market *Market
	News   *News
}

// NewSet builds all built-in sources with shared options.
func NewSet(opts Options) *Set {
	return &Set{
		Crypto: NewCrypto(opts),
		Stock:  NewStock(opts),
		Market: NewMarket(opts),
		News:   NewNews(opts),
	}
}

// Sources maps plugin ids to the sources that serve them.
func (s *Set) Sources() map[string]plugin.DataSource {
	return map[string]plugin.DataSource{
		domain.PluginCrypto:        s.Crypto,
		domain.PluginStock:         s.Stock,
		domain.PluginMarketSummary: s.Market,
		domain.PluginNews:          s.News,
	}
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

func normalizeSymbol(op, raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(s) {
		return "", domain.Errorf(domain.KindInvalidSymbol, op, "invalid symbol %q", raw)
	}
	return s, nil
}

// seeded returns a generator that is stable per symbol, so unknown
// tickers get consistent base values across calls.
func seeded(symbol string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1))
}

func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewError(domain.KindSourceUnavailable, op, err)
	}
	return nil
}

// intParam parses params[key], returning def when absent.
func intParam(op string, params map[string]string, key string, def, lo, hi int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, domain.Errorf(domain.KindInvalidInput, op, "%s must be an integer in [%d, %d], got %q", key, lo, hi, raw)
	}
	return n, nil
}

func dec(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}
