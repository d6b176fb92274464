package datasource

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/soyeahso/marketmind/internal/domain"
)

type stockQuote struct {
	price, changePercent, volume float64
}

var stockBase = map[string]stockQuote{
	"AAPL":  {188.62, 1.2, 53.4},
	"MSFT":  {412.65, -0.5, 21.3},
	"GOOGL": {165.10, 0.8, 18.7},
	"AMZN":  {178.15, 1.9, 32.1},
}

var hundred = decimal.NewFromInt(100)

// Stock serves equity quotes.
type Stock struct {
	opts Options
}

// NewStock creates a stock price source.
func NewStock(opts Options) *Stock {
	return &Stock{opts: opts.withDefaults()}
}

// Quote returns the current quote for symbol. Change is derived from the
// jittered price so that change = price * changePercent / 100 holds.
func (s *Stock) Quote(ctx context.Context, symbol string) (domain.StockPrice, error) {
	const op = "stock.quote"
	if err := checkContext(ctx, op); err != nil {
		return domain.StockPrice{}, err
	}
	sym, err := normalizeSymbol(op, symbol)
	if err != nil {
		return domain.StockPrice{}, err
	}

	q, ok := stockBase[sym]
	if !ok {
		r := seeded(sym)
		q = stockQuote{
			price:         50 + r.Float64()*200,
			changePercent: -2 + r.Float64()*4,
			volume:        r.Float64() * 30,
		}
	}

	price := dec(s.opts.jitter(q.price, 0.002), 2)
	pct := dec(q.changePercent, 2)
	return domain.StockPrice{
		Symbol:        sym,
		Price:         price,
		Change:        price.Mul(pct).Div(hundred).Round(2),
		ChangePercent: pct,
		Volume:        dec(q.volume, 1),
		Updated:       s.opts.Now().UTC(),
	}, nil
}

// Fetch serves the stock plugin.
func (s *Stock) Fetch(ctx context.Context, params map[string]string) (domain.Record, error) {
	symbol := params[domain.ParamStockSymbol]
	if symbol == "" {
		symbol = "AAPL"
	}
	return s.Quote(ctx, symbol)
}

func (s *Stock) Close() error { return nil }
