package datasource

import (
	"context"

	"github.com/soyeahso/marketmind/internal/domain"
)

var (
	topGainers = []string{"SOL", "AVAX", "DOT", "LINK", "ADA"}
	topLosers  = []string{"DOGE", "SHIB", "LTC", "UNI", "MATIC"}
)

// Market serves the aggregate crypto market overview.
type Market struct {
	opts Options
}

// NewMarket creates a market summary source.
func NewMarket(opts Options) *Market {
	return &Market{opts: opts.withDefaults()}
}

// Summary returns the current market overview.
func (m *Market) Summary(ctx context.Context) (domain.MarketSummary, error) {
	if err := checkContext(ctx, "market.summary"); err != nil {
		return domain.MarketSummary{}, err
	}

	sentiment := "Neutral"
	if m.opts.Rand() > 0.5 {
		sentiment = "Bullish"
	}
	return domain.MarketSummary{
		TotalMarketCap:  dec(2.62+(m.opts.Rand()-0.5)*0.1, 2),
		BTCDominance:    dec(51.3+(m.opts.Rand()-0.5), 1),
		TopGainers:      append([]string(nil), topGainers...),
		TopLosers:       append([]string(nil), topLosers...),
		MarketSentiment: sentiment,
		Updated:         m.opts.Now().UTC(),
	}, nil
}

// Fetch serves the market-summary plugin. It takes no parameters.
func (m *Market) Fetch(ctx context.Context, _ map[string]string) (domain.Record, error) {
	return m.Summary(ctx)
}

func (m *Market) Close() error { return nil }
