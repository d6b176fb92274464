// Package intent maps a free-form query to the plugins that can answer it
// and the parameters they need. Classification is pure keyword and ticker
// matching; it performs no I/O.
package intent

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/soyeahso/marketmind/internal/domain"
)

// Defaults applied when a plugin matches but the query names no value.
const (
	DefaultCryptoSymbol = "BTC"
	DefaultStockSymbol  = "AAPL"
	DefaultHistoryDays  = 7
	DefaultNewsLimit    = 5
	MaxNewsLimit        = 20
)

type token struct {
	raw   string
	lower string
}

func tokenize(q string) []token {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := make([]token, len(fields))
	for i, f := range fields {
		toks[i] = token{raw: f, lower: strings.ToLower(f)}
	}
	return toks
}

// Classify returns the plugins relevant to query, ordered by
// domain.PluginPriority, with the parameters extracted for them.
// A query matching nothing yields an empty intent.
func Classify(query string) domain.QueryIntent {
	toks := tokenize(query)
	params := make(map[string]string)
	var targets []string

	crypto := matchCrypto(toks, params)
	if crypto {
		targets = append(targets, domain.PluginCrypto)
	}
	if matchStock(toks, params) {
		targets = append(targets, domain.PluginStock)
	}
	if matchAny(toks, marketKeywords) {
		targets = append(targets, domain.PluginMarketSummary)
	}
	if matchNews(toks, crypto, params) {
		targets = append(targets, domain.PluginNews)
	}

	if len(targets) == 0 {
		return domain.QueryIntent{}
	}
	return domain.QueryIntent{TargetPlugins: targets, Params: params}
}

func matchAny(toks []token, words map[string]bool) bool {
	for _, t := range toks {
		if words[t.lower] {
			return true
		}
	}
	return false
}

func matchCrypto(toks []token, params map[string]string) bool {
	matched := false
	for _, t := range toks {
		sym := lookup(t, cryptoTickers, cryptoTickersStrict, cryptoNames)
		if sym != "" {
			matched = true
			if params[domain.ParamSymbol] == "" {
				params[domain.ParamSymbol] = sym
			}
			continue
		}
		if cryptoKeywords[t.lower] {
			matched = true
		}
	}
	if !matched {
		return false
	}
	if params[domain.ParamSymbol] == "" {
		params[domain.ParamSymbol] = DefaultCryptoSymbol
	}
	if days, ok := historyDays(toks); ok {
		params[domain.ParamDays] = strconv.Itoa(days)
	}
	return true
}

func matchStock(toks []token, params map[string]string) bool {
	matched := false
	for i, t := range toks {
		if shareWords[t.lower] {
			if shareInContext(toks, i) {
				matched = true
			}
			continue
		}
		sym := lookup(t, stockTickers, stockTickersStrict, stockNames)
		if sym != "" {
			matched = true
			if params[domain.ParamStockSymbol] == "" {
				params[domain.ParamStockSymbol] = sym
			}
			continue
		}
		if stockKeywords[t.lower] {
			matched = true
		}
	}
	if matched && params[domain.ParamStockSymbol] == "" {
		params[domain.ParamStockSymbol] = DefaultStockSymbol
	}
	return matched
}

func shareInContext(toks []token, i int) bool {
	for _, j := range []int{i - 1, i + 1} {
		if j < 0 || j >= len(toks) {
			continue
		}
		if shareContext[toks[j].lower] || lookup(toks[j], stockTickers, stockTickersStrict, stockNames) != "" {
			return true
		}
	}
	return false
}

// qualifiedNews reports a news qualifier followed within three words by a
// crypto or stock entity, in a query that does not ask for a price.
func qualifiedNews(toks []token) bool {
	if matchAny(toks, priceWords) {
		return false
	}
	for i, t := range toks {
		if !newsQualifiers[t.lower] {
			continue
		}
		for j := i + 1; j < len(toks) && j <= i+3; j++ {
			if namesAsset(toks[j]) {
				return true
			}
		}
	}
	return false
}

func namesAsset(t token) bool {
	return lookup(t, cryptoTickers, cryptoTickersStrict, cryptoNames) != "" ||
		lookup(t, stockTickers, stockTickersStrict, stockNames) != "" ||
		cryptoKeywords[t.lower]
}

func matchNews(toks []token, crypto bool, params map[string]string) bool {
	if !matchAny(toks, newsKeywords) && !qualifiedNews(toks) {
		return false
	}

	topic := "finance"
	if crypto || cryptoMentioned(toks) {
		topic = "cryptocurrency"
	}
	params[domain.ParamTopic] = topic

	for _, t := range toks {
		if s, ok := sentimentWords[t.lower]; ok {
			params[domain.ParamSentiment] = s
			break
		}
	}

	params[domain.ParamLimit] = strconv.Itoa(newsLimit(toks))
	return true
}

// lookup resolves a token against a case-insensitive ticker table, an
// upper-case-only ticker table and a name table.
func lookup(t token, tickers, strict, names map[string]string) string {
	if s, ok := tickers[t.lower]; ok {
		return s
	}
	if s, ok := strict[t.raw]; ok {
		return s
	}
	return names[t.lower]
}

func cryptoMentioned(toks []token) bool {
	for _, t := range toks {
		if strings.Contains(t.lower, "crypto") || strings.Contains(t.lower, "bitcoin") || strings.Contains(t.lower, "ethereum") {
			return true
		}
	}
	return false
}

// historyDays finds a history window: "past 30 days", "last week",
// "10 days", or a bare history keyword.
func historyDays(toks []token) (int, bool) {
	for i, t := range toks {
		var next string
		if i+1 < len(toks) {
			next = toks[i+1].lower
		}

		if n, err := strconv.Atoi(t.lower); err == nil && (next == "day" || next == "days") {
			return clamp(n, 1, 365), true
		}
		if t.lower == "past" || t.lower == "last" {
			switch next {
			case "day":
				return 1, true
			case "week":
				return 7, true
			case "month":
				return 30, true
			case "year":
				return 365, true
			}
		}
	}
	if matchAny(toks, historyKeywords) {
		return DefaultHistoryDays, true
	}
	return 0, false
}

// newsLimit finds a requested count: "top 3" or "3 headlines".
func newsLimit(toks []token) int {
	for i, t := range toks {
		n, err := strconv.Atoi(t.lower)
		if err != nil {
			continue
		}
		if i > 0 && toks[i-1].lower == "top" {
			return clamp(n, 1, MaxNewsLimit)
		}
		if i+1 < len(toks) && newsCountNouns[toks[i+1].lower] {
			return clamp(n, 1, MaxNewsLimit)
		}
	}
	return DefaultNewsLimit
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
