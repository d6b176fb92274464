package synth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
)

var fetched = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testConfig() domain.AgentConfig {
	return domain.AgentConfig{
		Name:         "Financial Insights Agent",
		Model:        "offline",
		SystemPrompt: "You are a financial insights agent.",
		Plugins:      domain.DefaultPlugins(),
	}
}

func btcResult() domain.DataFetchResult {
	return domain.DataFetchResult{
		PluginID: domain.PluginCrypto,
		Success:  true,
		Payload: domain.CryptoPrice{
			Symbol:    "BTC",
			Price:     decimal.RequireFromString("68223.45"),
			Change24h: decimal.RequireFromString("2.7"),
			Volume24h: decimal.RequireFromString("42.3"),
			MarketCap: decimal.RequireFromString("1.34"),
			Updated:   fetched.Add(-time.Minute),
		},
		FetchedAt: fetched,
	}
}

func failedResult(id string) domain.DataFetchResult {
	return domain.DataFetchResult{
		PluginID:  id,
		Err:       domain.Errorf(domain.KindSourceUnavailable, id+".fetch", "upstream down"),
		FetchedAt: fetched,
	}
}

func reply(text string) *llm.MockClient {
	return &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: text, Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}}, nil
		},
	}
}

func newSynth(gen llm.Client) *Synthesizer {
	return New(gen, Options{MaxTokens: 256}, logging.New(nil, "silent"))
}

func TestModeFor(t *testing.T) {
	crypto := domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}}
	tests := []struct {
		name    string
		intent  domain.QueryIntent
		results []domain.DataFetchResult
		want    Mode
	}{
		{"nothing matched", domain.QueryIntent{}, nil, ModeGenerative},
		{"matched but skipped", crypto, nil, ModeUnavailable},
		{"all failed", crypto, []domain.DataFetchResult{failedResult(domain.PluginCrypto)}, ModeUnavailable},
		{"one success", crypto, []domain.DataFetchResult{btcResult()}, ModeGrounded},
		{"partial", crypto, []domain.DataFetchResult{failedResult(domain.PluginNews), btcResult()}, ModeGrounded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModeFor(tt.intent, tt.results))
		})
	}
}

func TestSynthesize_Generative(t *testing.T) {
	gen := reply("Why did the bond break up with the stock? Too much volatility.")
	cfg := testConfig()

	resp, err := newSynth(gen).Synthesize(context.Background(), "Tell me a joke", domain.QueryIntent{}, nil, cfg)
	require.NoError(t, err)

	assert.False(t, resp.MCPDataUsed)
	assert.Empty(t, resp.UsedSources)
	assert.Equal(t, "Why did the bond break up with the stock? Too much volatility.", resp.Text)

	req := gen.LastCall()
	assert.Equal(t, cfg.SystemPrompt, req.System, "generative mode uses only the configured prompt")
	assert.Equal(t, "Tell me a joke", req.LastUserMessage())
	assert.Equal(t, "offline", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
}

func TestSynthesize_GroundedCitesSources(t *testing.T) {
	gen := reply("BTC is at $68,223.45 (Crypto Prices, as of 2026-03-10T12:00:00Z).")

	resp, err := newSynth(gen).Synthesize(context.Background(), "What is the price of BTC?",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}},
		[]domain.DataFetchResult{btcResult()}, testConfig())
	require.NoError(t, err)

	assert.True(t, resp.MCPDataUsed)
	assert.Equal(t, []domain.Source{{PluginID: domain.PluginCrypto, FetchedAt: fetched}}, resp.UsedSources)
	assert.NotContains(t, resp.Text, "Sources:", "no footer when the text already cites")

	req := gen.LastCall()
	assert.Contains(t, req.System, "You are a financial insights agent.")
	assert.Contains(t, req.System, "cite its source name and timestamp")
	prompt := req.LastUserMessage()
	assert.Contains(t, prompt, "[Crypto Prices | 2026-03-10T12:00:00Z]")
	assert.Contains(t, prompt, "BTC price $68,223.45")
	assert.Contains(t, prompt, "Question: What is the price of BTC?")
}

func TestSynthesize_GroundedAppendsFooter(t *testing.T) {
	gen := reply("Bitcoin is trading near sixty-eight thousand dollars.")

	resp, err := newSynth(gen).Synthesize(context.Background(), "btc?",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}},
		[]domain.DataFetchResult{btcResult()}, testConfig())
	require.NoError(t, err)

	assert.Equal(t, "Bitcoin is trading near sixty-eight thousand dollars.\n\nSources: Crypto Prices (2026-03-10T12:00:00Z)", resp.Text)
}

func TestSynthesize_PartialFailureOnlyUsesSuccesses(t *testing.T) {
	gen := reply("whatever")
	results := []domain.DataFetchResult{btcResult(), failedResult(domain.PluginNews)}

	resp, err := newSynth(gen).Synthesize(context.Background(), "bitcoin news",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto, domain.PluginNews}}, results, testConfig())
	require.NoError(t, err)

	require.Len(t, resp.UsedSources, 1)
	assert.Equal(t, domain.PluginCrypto, resp.UsedSources[0].PluginID)
	assert.Contains(t, gen.LastCall().LastUserMessage(), "Unavailable right now: News & Events")
	assert.Contains(t, resp.Text, "Sources: Crypto Prices")
}

func TestSynthesize_AllFailedStatesUnavailable(t *testing.T) {
	gen := reply("Bitcoin is usually volatile.")

	resp, err := newSynth(gen).Synthesize(context.Background(), "What is the price of BTC?",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}},
		[]domain.DataFetchResult{failedResult(domain.PluginCrypto)}, testConfig())
	require.NoError(t, err)

	assert.False(t, resp.MCPDataUsed)
	assert.Empty(t, resp.UsedSources)
	assert.True(t, len(resp.Text) > 0)
	assert.Contains(t, resp.Text, UnavailableNotice+" for Crypto Prices.")
	assert.Contains(t, resp.Text, "Bitcoin is usually volatile.")
	assert.Contains(t, gen.LastCall().System, "Do not guess current figures")
}

func TestSynthesize_SkippedPluginsStateUnavailable(t *testing.T) {
	gen := reply("")

	resp, err := newSynth(gen).Synthesize(context.Background(), "What is the price of BTC?",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}}, nil, testConfig())
	require.NoError(t, err)

	assert.False(t, resp.MCPDataUsed)
	assert.Equal(t, UnavailableNotice+" for Crypto Prices.", resp.Text)
}

func TestSynthesize_UnavailableNoticeNotDuplicated(t *testing.T) {
	gen := reply("Live data could not be retrieved. Try again in a minute.")

	resp, err := newSynth(gen).Synthesize(context.Background(), "btc",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}},
		[]domain.DataFetchResult{failedResult(domain.PluginCrypto)}, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "Live data could not be retrieved. Try again in a minute.", resp.Text)
}

func TestSynthesize_GenerationFailure(t *testing.T) {
	boom := errors.New("provider exploded")
	gen := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, boom
	}}
	m := metrics.New()
	s := New(gen, Options{Metrics: m}, logging.New(nil, "silent"))

	_, err := s.Synthesize(context.Background(), "btc",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}},
		[]domain.DataFetchResult{btcResult()}, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, gen.Calls, 1, "generation is not retried")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("offline", metrics.StatusError)))
}

func TestSynthesize_EmptyGenerativeResponseFails(t *testing.T) {
	_, err := newSynth(reply("   ")).Synthesize(context.Background(), "hello", domain.QueryIntent{}, nil, testConfig())
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
}

func TestSynthesize_NilResponseFails(t *testing.T) {
	gen := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, nil
	}}
	_, err := newSynth(gen).Synthesize(context.Background(), "hello", domain.QueryIntent{}, nil, testConfig())
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
}

func TestSynthesize_NoGenerator(t *testing.T) {
	_, err := newSynth(nil).Synthesize(context.Background(), "hello", domain.QueryIntent{}, nil, testConfig())
	assert.ErrorIs(t, err, domain.ErrInternalFailure)
}

func TestSynthesize_WithOfflineGenerator(t *testing.T) {
	resp, err := newSynth(llm.NewOfflineClient()).Synthesize(context.Background(), "What is the price of BTC?",
		domain.QueryIntent{TargetPlugins: []string{domain.PluginCrypto}},
		[]domain.DataFetchResult{btcResult()}, testConfig())
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "From Crypto Prices, as of 2026-03-10T12:00:00Z:")
	assert.Contains(t, resp.Text, "BTC price $68,223.45")
	assert.NotContains(t, resp.Text, "Sources:")
}
