package intent

// Crypto tickers that are safe to match in any case.
var cryptoTickers = map[string]string{
	"btc":   "BTC",
	"eth":   "ETH",
	"bnb":   "BNB",
	"xrp":   "XRP",
	"doge":  "DOGE",
	"avax":  "AVAX",
	"ltc":   "LTC",
	"matic": "MATIC",
	"shib":  "SHIB",
}

// Crypto tickers that are also English words; these only match when the
// query writes them in upper case.
var cryptoTickersStrict = map[string]string{
	"SOL":  "SOL",
	"ADA":  "ADA",
	"DOT":  "DOT",
	"LINK": "LINK",
	"UNI":  "UNI",
}

var cryptoNames = map[string]string{
	"bitcoin":   "BTC",
	"bitcoins":  "BTC",
	"ethereum":  "ETH",
	"ether":     "ETH",
	"binance":   "BNB",
	"solana":    "SOL",
	"ripple":    "XRP",
	"cardano":   "ADA",
	"dogecoin":  "DOGE",
	"avalanche": "AVAX",
	"polkadot":  "DOT",
	"chainlink": "LINK",
	"litecoin":  "LTC",
	"uniswap":   "UNI",
	"polygon":   "MATIC",
	"shiba":     "SHIB",
}

var cryptoKeywords = set(
	"crypto", "cryptos", "cryptocurrency", "cryptocurrencies",
	"coin", "coins", "altcoin", "altcoins", "blockchain", "defi", "nft", "nfts",
)

var historyKeywords = set(
	"history", "historical", "chart", "trend", "trends", "performance",
)

var stockTickers = map[string]string{
	"aapl":  "AAPL",
	"msft":  "MSFT",
	"googl": "GOOGL",
	"goog":  "GOOGL",
	"amzn":  "AMZN",
	"tsla":  "TSLA",
	"nvda":  "NVDA",
}

var stockTickersStrict = map[string]string{
	"META": "META",
}

var stockNames = map[string]string{
	"apple":     "AAPL",
	"microsoft": "MSFT",
	"google":    "GOOGL",
	"alphabet":  "GOOGL",
	"amazon":    "AMZN",
	"tesla":     "TSLA",
	"nvidia":    "NVDA",
}

var stockKeywords = set(
	"stock", "stocks", "equity", "equities",
	"nasdaq", "nyse", "dow", "ticker",
)

// shareWords mean stock only beside a ticker, a company name or one of
// shareContext: "Tesla shares", "share price", but not "share a recipe".
var shareWords = set("share", "shares")

var shareContext = set("price", "prices", "value", "buyback", "buybacks", "dividend", "dividends")

var marketKeywords = set(
	"market", "markets", "sentiment", "dominance", "gainers", "losers",
	"overview", "movers",
)

var newsKeywords = set(
	"news", "headline", "headlines", "article", "articles", "stories",
	"trending", "regulation", "regulations",
)

// newsQualifiers ask for news only about a named asset ("what's happening
// with ETH", "the latest on Tesla") and never when a price is wanted.
var newsQualifiers = set("latest", "happening", "updates")

var priceWords = set("price", "prices", "quote", "quotes", "worth", "cost", "value", "trading")

// newsCountNouns are nouns a count can precede, as in "3 headlines".
var newsCountNouns = set("news", "headline", "headlines", "article", "articles", "stories")

var sentimentWords = map[string]string{
	"positive":    "positive",
	"good":        "positive",
	"bullish":     "positive",
	"optimistic":  "positive",
	"negative":    "negative",
	"bad":         "negative",
	"bearish":     "negative",
	"pessimistic": "negative",
	"neutral":     "neutral",
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
