package datasource

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/soyeahso/marketmind/internal/domain"
)

// DefaultNewsLimit is the number of headlines returned when no limit is given.
const DefaultNewsLimit = 5

// MaxNewsLimit bounds any limit parameter.
const MaxNewsLimit = 50

// Topics understood by the news source.
const (
	TopicCrypto  = "cryptocurrency"
	TopicFinance = "finance"
)

type headline struct {
	title, summary, source, category, sentiment string
}

var cryptoHeadlines = []headline{
	{
		"Bitcoin Breaks $70,000 Resistance Level",
		"Bitcoin has surged above $70,000 for the first time since its last all-time high, signaling strong bullish momentum in the crypto market.",
		"CryptoNews", "cryptocurrency", domain.SentimentPositive,
	},
	{
		"Ethereum Upgrade Postponed After Security Vulnerability Found",
		"The highly anticipated Ethereum network upgrade has been delayed after researchers discovered a potential security flaw in the implementation.",
		"BlockchainDaily", "cryptocurrency", domain.SentimentNegative,
	},
	{
		"Major Bank Announces Crypto Custody Service for Institutional Clients",
		"One of the world's largest financial institutions has unveiled plans to offer cryptocurrency custody services to its institutional clients, marking another milestone in crypto adoption.",
		"FinanceToday", "cryptocurrency", domain.SentimentPositive,
	},
	{
		"New Regulatory Framework for Cryptocurrencies Proposed",
		"Lawmakers have introduced a comprehensive bill aimed at providing regulatory clarity for the cryptocurrency industry, addressing issues from taxation to stablecoin oversight.",
		"CryptoInsider", "regulation", domain.SentimentNeutral,
	},
	{
		"NFT Market Shows Signs of Recovery After Year-Long Slump",
		"The non-fungible token market is showing renewed activity after a prolonged downturn, with trading volumes increasing across major platforms.",
		"ArtTechWeekly", "nft", domain.SentimentPositive,
	},
}

var financeHeadlines = []headline{
	{
		"Federal Reserve Signals Potential Rate Cut",
		"The Federal Reserve has indicated it may consider reducing interest rates in the coming months as inflation shows signs of cooling.",
		"EconomicTimes", "finance", domain.SentimentPositive,
	},
	{
		"Tech Stocks Rally on Strong Earnings Reports",
		"Technology sector shares surged today following better-than-expected quarterly earnings from several major companies.",
		"MarketWatch", "stocks", domain.SentimentPositive,
	},
	{
		"Oil Prices Drop Amid Concerns Over Demand",
		"Crude oil prices have fallen sharply as market analysts express concerns about future demand in the face of economic uncertainty.",
		"EnergyDaily", "commodities", domain.SentimentNegative,
	},
	{
		"Housing Market Cools as Mortgage Rates Remain Elevated",
		"The residential real estate market continues to show signs of slowing as higher mortgage rates dampen buyer demand.",
		"PropertyInsider", "real-estate", domain.SentimentNegative,
	},
	{
		"Major Merger Announced in Healthcare Sector",
		"Two leading healthcare companies have announced plans to merge in a deal valued at over $30 billion, pending regulatory approval.",
		"BusinessWeek", "mergers", domain.SentimentNeutral,
	},
}

var trendingTopics = []string{
	"Bitcoin",
	"Ethereum",
	"Federal Reserve",
	"Inflation",
	"Tech stocks",
	"AI",
	"Oil prices",
	"Interest rates",
	"NFTs",
	"DeFi",
}

var whitespace = regexp.MustCompile(`\s+`)

// News serves headlines, search, sentiment filtering and trending topics.
type News struct {
	opts Options
}

// NewNews creates a news source.
func NewNews(opts Options) *News {
	return &News{opts: opts.withDefaults()}
}

// IsCryptoTopic reports whether topic selects the crypto headline table.
func IsCryptoTopic(topic string) bool {
	t := strings.ToLower(topic)
	return strings.Contains(t, "crypto") || strings.Contains(t, "bitcoin") || strings.Contains(t, "ethereum")
}

// ValidSentiment reports whether s is a sentiment label news items carry.
func ValidSentiment(s string) bool {
	switch s {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
		return true
	}
	return false
}

func (n *News) item(h headline, now time.Time) domain.NewsItem {
	slug := whitespace.ReplaceAllString(strings.ToLower(h.title), "-")
	age := time.Duration(int(n.opts.Rand()*24)) * time.Hour
	return domain.NewsItem{
		Title:       h.title,
		Summary:     h.summary,
		URL:         "https://example.com/news/" + url.QueryEscape(slug),
		Source:      h.source,
		PublishedAt: now.Add(-age),
		Category:    h.category,
		Sentiment:   h.sentiment,
	}
}

func (n *News) render(table []headline, limit int, keep func(headline) bool) []domain.NewsItem {
	now := n.opts.Now().UTC()
	items := make([]domain.NewsItem, 0, min(limit, len(table)))
	for _, h := range table {
		if len(items) == limit {
			break
		}
		if keep == nil || keep(h) {
			items = append(items, n.item(h, now))
		}
	}
	return items
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultNewsLimit
	}
	return min(limit, MaxNewsLimit)
}

func topicLabel(topic string) string {
	if IsCryptoTopic(topic) {
		return TopicCrypto
	}
	return TopicFinance
}

func topicTable(topic string) []headline {
	if IsCryptoTopic(topic) {
		return cryptoHeadlines
	}
	return financeHeadlines
}

// Latest returns up to limit headlines for topic.
func (n *News) Latest(ctx context.Context, topic string, limit int) (domain.NewsFeed, error) {
	if err := checkContext(ctx, "news.latest"); err != nil {
		return domain.NewsFeed{}, err
	}
	return domain.NewsFeed{
		Topic:   topicLabel(topic),
		Items:   n.render(topicTable(topic), clampLimit(limit), nil),
		Updated: n.opts.Now().UTC(),
	}, nil
}

// Search returns headlines from every topic whose title or summary
// contains query, case-insensitively.
func (n *News) Search(ctx context.Context, query string, limit int) (domain.NewsFeed, error) {
	const op = "news.search"
	if err := checkContext(ctx, op); err != nil {
		return domain.NewsFeed{}, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return domain.NewsFeed{}, domain.Errorf(domain.KindInvalidInput, op, "search query is required")
	}

	all := append(append([]headline(nil), cryptoHeadlines...), financeHeadlines...)
	items := n.render(all, clampLimit(limit), func(h headline) bool {
		return strings.Contains(strings.ToLower(h.title), q) || strings.Contains(strings.ToLower(h.summary), q)
	})
	return domain.NewsFeed{
		Topic:   query,
		Items:   items,
		Updated: n.opts.Now().UTC(),
	}, nil
}

// BySentiment returns headlines for topic carrying the given sentiment.
func (n *News) BySentiment(ctx context.Context, topic, sentiment string, limit int) (domain.NewsFeed, error) {
	const op = "news.sentiment"
	if err := checkContext(ctx, op); err != nil {
		return domain.NewsFeed{}, err
	}
	if !ValidSentiment(sentiment) {
		return domain.NewsFeed{}, domain.Errorf(domain.KindInvalidInput, op, "sentiment must be positive, negative or neutral, got %q", sentiment)
	}

	items := n.render(topicTable(topic), clampLimit(limit), func(h headline) bool {
		return h.sentiment == sentiment
	})
	return domain.NewsFeed{
		Topic:   topicLabel(topic),
		Items:   items,
		Updated: n.opts.Now().UTC(),
	}, nil
}

// Trending returns the current trending topics.
func (n *News) Trending(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx, "news.trending"); err != nil {
		return nil, err
	}
	return append([]string(nil), trendingTopics...), nil
}

// Fetch serves the news plugin. A query parameter searches, a sentiment
// parameter filters, otherwise the latest headlines for topic are returned.
func (n *News) Fetch(ctx context.Context, params map[string]string) (domain.Record, error) {
	limit, err := intParam("news.fetch", params, domain.ParamLimit, DefaultNewsLimit, 1, MaxNewsLimit)
	if err != nil {
		return nil, err
	}
	topic := params[domain.ParamTopic]
	if topic == "" {
		topic = TopicCrypto
	}

	switch {
	case params[domain.ParamQuery] != "":
		return n.Search(ctx, params[domain.ParamQuery], limit)
	case params[domain.ParamSentiment] != "":
		return n.BySentiment(ctx, topic, params[domain.ParamSentiment], limit)
	default:
		return n.Latest(ctx, topic, limit)
	}
}

func (n *News) Close() error { return nil }
