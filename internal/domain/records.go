package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Record is a domain payload returned by a data source. Every record carries
// the time its data was last updated.
type Record interface {
	Kind() string
	LastUpdated() time.Time
	Summary() string
}

// CryptoPrice is a spot quote for one cryptocurrency.
// Volume24h is in billions of USD, MarketCap in trillions.
type CryptoPrice struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
	Volume24h decimal.Decimal `json:"volume24h"`
	MarketCap decimal.Decimal `json:"marketCap"`
	Updated   time.Time       `json:"lastUpdated"`
}

func (c CryptoPrice) Kind() string           { return "crypto_price" }
func (c CryptoPrice) LastUpdated() time.Time { return c.Updated }

func (c CryptoPrice) Summary() string {
	return fmt.Sprintf("%s price $%s (%s%% 24h), 24h volume $%sB, market cap $%sT",
		c.Symbol, money(c.Price), signed(c.Change24h), c.Volume24h.StringFixed(2), c.MarketCap.StringFixed(2))
}

// HistoricalPoint is one daily sample of a price history.
type HistoricalPoint struct {
	Date   string          `json:"date"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// CryptoHistory is a daily price series, oldest first.
type CryptoHistory struct {
	Symbol  string            `json:"symbol"`
	Days    int               `json:"days"`
	Points  []HistoricalPoint `json:"points"`
	Updated time.Time         `json:"lastUpdated"`
}

func (h CryptoHistory) Kind() string           { return "crypto_history" }
func (h CryptoHistory) LastUpdated() time.Time { return h.Updated }

func (h CryptoHistory) Summary() string {
	if len(h.Points) == 0 {
		return fmt.Sprintf("%s history: no data", h.Symbol)
	}
	first, last := h.Points[0], h.Points[len(h.Points)-1]
	change := decimal.Zero
	if !first.Price.IsZero() {
		change = last.Price.Sub(first.Price).Div(first.Price).Mul(decimal.NewFromInt(100))
	}
	return fmt.Sprintf("%s over %d days: $%s on %s to $%s on %s (%s%%)",
		h.Symbol, h.Days, money(first.Price), first.Date, money(last.Price), last.Date, signed(change))
}

// StockPrice is a quote for one equity. Change is absolute, ChangePercent relative.
// Volume is in millions of shares.
type StockPrice struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Volume        decimal.Decimal `json:"volume"`
	Updated       time.Time       `json:"lastUpdated"`
}

func (s StockPrice) Kind() string           { return "stock_price" }
func (s StockPrice) LastUpdated() time.Time { return s.Updated }

func (s StockPrice) Summary() string {
	return fmt.Sprintf("%s price $%s (%s, %s%%), volume %sM",
		s.Symbol, money(s.Price), signed(s.Change), signed(s.ChangePercent), s.Volume.StringFixed(1))
}

// MarketSummary is an aggregate view of the crypto market.
// TotalMarketCap is in trillions of USD, BTCDominance a percentage.
type MarketSummary struct {
	TotalMarketCap  decimal.Decimal `json:"totalMarketCap"`
	BTCDominance    decimal.Decimal `json:"btcDominance"`
	TopGainers      []string        `json:"topGainers"`
	TopLosers       []string        `json:"topLosers"`
	MarketSentiment string          `json:"marketSentiment"`
	Updated         time.Time       `json:"lastUpdated"`
}

func (m MarketSummary) Kind() string           { return "market_summary" }
func (m MarketSummary) LastUpdated() time.Time { return m.Updated }

func (m MarketSummary) Summary() string {
	return fmt.Sprintf("total market cap $%sT, BTC dominance %s%%, sentiment %s, top gainers %s, top losers %s",
		m.TotalMarketCap.StringFixed(2), m.BTCDominance.StringFixed(1), m.MarketSentiment,
		strings.Join(m.TopGainers, ", "), strings.Join(m.TopLosers, ", "))
}

// Sentiment labels attached to news items.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// NewsItem is a single headline.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Category    string    `json:"category"`
	Sentiment   string    `json:"sentiment,omitempty"`
}

// NewsFeed is a list of headlines for one topic.
type NewsFeed struct {
	Topic   string     `json:"topic"`
	Items   []NewsItem `json:"items"`
	Updated time.Time  `json:"lastUpdated"`
}

func (n NewsFeed) Kind() string           { return "news_feed" }
func (n NewsFeed) LastUpdated() time.Time { return n.Updated }

func (n NewsFeed) Summary() string {
	if len(n.Items) == 0 {
		return fmt.Sprintf("no %s headlines", n.Topic)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s headlines:", len(n.Items), n.Topic)
	for _, it := range n.Items {
		fmt.Fprintf(&b, "\n  - %s (%s, %s)", it.Title, it.Source, it.PublishedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func money(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func signed(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

// DecodeRecord rebuilds a record from its Kind and JSON encoding.
func DecodeRecord(kind string, data []byte) (Record, error) {
	var (
		rec Record
		err error
	)
	switch kind {
	case "crypto_price":
		var v CryptoPrice
		err = json.Unmarshal(data, &v)
		rec = v
	case "crypto_history":
		var v CryptoHistory
		err = json.Unmarshal(data, &v)
		rec = v
	case "stock_price":
		var v StockPrice
		err = json.Unmarshal(data, &v)
		rec = v
	case "market_summary":
		var v MarketSummary
		err = json.Unmarshal(data, &v)
		rec = v
	case "news_feed":
		var v NewsFeed
		err = json.Unmarshal(data, &v)
		rec = v
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return rec, nil
}
