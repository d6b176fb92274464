package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/marketmind/internal/agent"
	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/datasource"
	"github.com/soyeahso/marketmind/internal/domain"
	"github.com/soyeahso/marketmind/internal/hooks"
	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/metrics"
	"github.com/soyeahso/marketmind/internal/plugin"
	"github.com/soyeahso/marketmind/internal/store"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	srv   *Server
	ts    *httptest.Server
	store store.Store
}

func newFixture(t *testing.T, providers *llm.Registry, opts ...ServerOption) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")
	cfg := config.Defaults()

	set := datasource.NewSet(datasource.Options{
		Rand: func() float64 { return 0.5 },
		Now:  func() time.Time { return fixedNow },
	})
	catalog := plugin.NewRegistry(nil, log)
	sources := set.Sources()
	for _, p := range domain.DefaultPlugins() {
		require.NoError(t, catalog.Register(p, sources[p.ID]))
	}

	if providers == nil {
		var err error
		providers, err = llm.NewRegistryFromConfig(cfg.LLM, log)
		require.NoError(t, err)
	}

	st := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), st))

	srv := New(cfg, Deps{
		Store:   st,
		Sources: set,
		Agent: agent.Deps{
			Catalog:   catalog,
			Providers: providers,
		},
	}, log, opts...)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, ts: ts, store: st}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (f *fixture) send(t *testing.T, method, path string, v any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	req, err := http.NewRequest(method, f.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[HealthResponse](t, body).Status)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestNotFoundEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/nonexistent")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, body).Message, "/nonexistent")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil, WithMetrics(metrics.New()))

	f.get(t, "/health")
	resp, body := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "marketmind_http_requests_total")
}

func TestMetricsEndpointAbsentWithoutMetrics(t *testing.T) {
	f := newFixture(t, nil)

	resp, _ := f.get(t, "/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCryptoPrice(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/api/mcp/crypto/btc", "/api/mcp/financial/crypto/BTC"} {
		resp, body := f.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		got := decode[domain.CryptoPrice](t, body)
		assert.Equal(t, "BTC", got.Symbol)
		assert.Equal(t, "68223.45", got.Price.StringFixed(2))
		assert.True(t, fixedNow.Equal(got.Updated))
	}
}

func TestCryptoPriceInvalidSymbol(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/api/mcp/crypto/NOT-A-SYMBOL")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(decode[ErrorResponse](t, body).Message, "Error fetching crypto data:"))
}

func TestCryptoHistory(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.get(t, "/api/mcp/financial/crypto/ETH/history")
	assert.Len(t, decode[domain.CryptoHistory](t, body).Points, 8)

	_, body = f.get(t, "/api/mcp/financial/crypto/ETH/history?days=3")
	assert.Len(t, decode[domain.CryptoHistory](t, body).Points, 4)

	resp, _ := f.get(t, "/api/mcp/financial/crypto/ETH/history?days=9999")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStockAndMarketSummary(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/api/mcp/financial/stock/MSFT")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stock := decode[domain.StockPrice](t, body)
	assert.Equal(t, "MSFT", stock.Symbol)
	assert.True(t, stock.Change.IsNegative())

	resp, body = f.get(t, "/api/mcp/financial/market-summary")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[domain.MarketSummary](t, body).TopGainers)
}

func TestNewsEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.get(t, "/api/mcp/news")
	feed := decode[domain.NewsFeed](t, body)
	assert.Equal(t, datasource.TopicCrypto, feed.Topic)
	assert.Len(t, feed.Items, datasource.DefaultNewsLimit)

	_, body = f.get(t, "/api/mcp/news?topic=stocks&limit=2")
	feed = decode[domain.NewsFeed](t, body)
	assert.Equal(t, datasource.TopicFinance, feed.Topic)
	assert.Len(t, feed.Items, 2)

	_, body = f.get(t, "/api/mcp/news/sentiment?topic=crypto&sentiment=positive")
	for _, it := range decode[domain.NewsFeed](t, body).Items {
		assert.Equal(t, domain.SentimentPositive, it.Sentiment)
	}

	_, body = f.get(t, "/api/mcp/news/trending")
	assert.NotEmpty(t, decode[[]string](t, body))
}

func TestNewsValidation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/api/mcp/news/search", "Query parameter is required"},
		{"/api/mcp/news/search?query=%20", "Query parameter is required"},
		{"/api/mcp/news/sentiment?topic=crypto&sentiment=angry", "Topic and valid sentiment (positive, negative, neutral) parameters are required"},
		{"/api/mcp/news/sentiment?sentiment=positive", "Topic and valid sentiment (positive, negative, neutral) parameters are required"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := f.get(t, tt.path)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, decode[ErrorResponse](t, body).Message)
		})
	}
}

func TestPluginsEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.get(t, "/api/plugins")
	infos := decode[[]plugin.PluginInfo](t, body)
	require.Len(t, infos, 4)
	assert.Equal(t, "Crypto Prices", infos[0].Name)
	assert.True(t, infos[0].Bound)
}

func TestAgentCRUD(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.get(t, "/api/agents")
	agents := decode[[]domain.StoredAgent](t, body)
	require.Len(t, agents, 1)
	assert.Equal(t, store.DemoAgentName, agents[0].Name)

	resp, body := f.get(t, "/api/agents/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Agent not found", decode[ErrorResponse](t, body).Message)

	resp, _ = f.get(t, "/api/agents/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.send(t, http.MethodPost, "/api/agents", domain.StoredAgent{
		Name:      "News Bot",
		BaseModel: "offline",
		Plugins:   []string{domain.PluginNews},
		UserID:    agents[0].UserID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[domain.StoredAgent](t, body)
	assert.NotZero(t, created.ID)

	resp, _ = f.send(t, http.MethodPost, "/api/agents", domain.StoredAgent{BaseModel: "offline"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	name := "Headline Bot"
	resp, body = f.send(t, http.MethodPatch, fmt.Sprintf("/api/agents/%d", created.ID), domain.AgentUpdate{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, name, decode[domain.StoredAgent](t, body).Name)

	resp, _ = f.send(t, http.MethodDelete, fmt.Sprintf("/api/agents/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.send(t, http.MethodDelete, fmt.Sprintf("/api/agents/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessages(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.send(t, http.MethodPost, "/api/messages", domain.ChatMessage{
		AgentID: 1,
		Role:    domain.RoleUser,
		Content: "hello",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotZero(t, decode[domain.ChatMessage](t, body).ID)

	resp, _ = f.send(t, http.MethodPost, "/api/messages", domain.ChatMessage{AgentID: 1, Role: "robot"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = f.get(t, "/api/agents/1/messages")
	msgs := decode[[]domain.ChatMessage](t, body)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestChatWithConfiguredAgent(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.send(t, http.MethodPost, "/api/chat", ChatRequest{Query: "What's the BTC price?"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	got := decode[domain.AgentResponse](t, body)
	assert.True(t, got.MCPDataUsed)
	require.Len(t, got.UsedSources, 1)
	assert.Equal(t, domain.PluginCrypto, got.UsedSources[0].PluginID)
	assert.Contains(t, got.Text, "Crypto Prices")
	assert.Contains(t, got.Text, fixedNow.Format(time.RFC3339))
}

func TestChatWithStoredAgentRecordsHistory(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.send(t, http.MethodPost, "/api/chat", ChatRequest{Query: "latest crypto news", AgentID: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, decode[domain.AgentResponse](t, body).MCPDataUsed)

	msgs, err := f.store.ListChatMessagesByAgent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAgent, msgs[1].Role)
	assert.True(t, msgs[1].MCPDataUsed)
}

func TestChatSeesAgentUpdates(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.send(t, http.MethodPost, "/api/chat", ChatRequest{Query: "What's the BTC price?", AgentID: 1})
	assert.True(t, decode[domain.AgentResponse](t, body).MCPDataUsed)

	resp, _ := f.send(t, http.MethodPatch, "/api/agents/1", domain.AgentUpdate{Plugins: []string{domain.PluginNews}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = f.send(t, http.MethodPost, "/api/chat", ChatRequest{Query: "What's the BTC price?", AgentID: 1})
	got := decode[domain.AgentResponse](t, body)
	assert.False(t, got.MCPDataUsed)
	assert.Contains(t, got.Text, "Live data could not be retrieved")
}

// racingStore applies an edit between reading an agent and returning it,
// the way a PATCH landing mid-build would.
type racingStore struct {
	store.Store
	edit func()
}

func (r *racingStore) GetAgent(ctx context.Context, id int64) (domain.StoredAgent, error) {
	a, err := r.Store.GetAgent(ctx, id)
	if r.edit != nil {
		r.edit()
		r.edit = nil
	}
	return a, err
}

func TestAgentForSkipsCachingStaleBuild(t *testing.T) {
	f := newFixture(t, nil)
	racing := &racingStore{Store: f.store}
	f.srv.deps.Store = racing

	renamed := "Renamed"
	racing.edit = func() {
		_, err := f.store.UpdateAgent(context.Background(), 1, domain.AgentUpdate{Name: &renamed})
		require.NoError(t, err)
		f.srv.forgetAgent(1)
	}

	stale, err := f.srv.agentFor(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEqual(t, renamed, stale.Config().Name)

	f.srv.mu.Lock()
	_, cached := f.srv.agents[1]
	f.srv.mu.Unlock()
	assert.False(t, cached)

	fresh, err := f.srv.agentFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, renamed, fresh.Config().Name)

	again, err := f.srv.agentFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Same(t, fresh, again)
}

func TestChatErrors(t *testing.T) {
	log := logging.New(nil, "silent")
	broken := llm.NewRegistry(log)
	broken.Register("broken", &llm.MockClient{
		ProviderName: "broken",
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("model unavailable")
		},
	})
	broken.SetFallback("broken")

	tests := []struct {
		name      string
		providers *llm.Registry
		req       ChatRequest
		want      int
	}{
		{"empty query", nil, ChatRequest{Query: "   "}, http.StatusBadRequest},
		{"unknown agent", nil, ChatRequest{Query: "BTC price", AgentID: 42}, http.StatusNotFound},
		{"generation failure", broken, ChatRequest{Query: "BTC price"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.providers)
			resp, body := f.send(t, http.MethodPost, "/api/chat", tt.req)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decode[ErrorResponse](t, body).Message)
		})
	}
}

func TestChatMalformedBody(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := http.Post(f.ts.URL+"/api/chat", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidSymbol, http.StatusBadRequest},
		{domain.ErrSourceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrGenerationFailure, http.StatusBadGateway},
		{domain.ErrInternalFailure, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("agent 3: %w", store.ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func dialWS(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketChat(t *testing.T) {
	f := newFixture(t, nil)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(ChatRequest{Query: "How is AAPL doing?"}))
	var resp domain.AgentResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.True(t, resp.MCPDataUsed)
	assert.Contains(t, resp.Text, "Stock Prices")

	require.NoError(t, conn.WriteJSON(ChatRequest{Query: ""}))
	var errResp ErrorResponse
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Contains(t, errResp.Message, "query is required")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	errResp = ErrorResponse{}
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Contains(t, errResp.Message, "invalid frame")

	assert.Eventually(t, func() bool { return f.srv.clients.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t, nil)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCheckWebSocketOrigin(t *testing.T) {
	check := checkWebSocketOrigin([]string{"http://app.local"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "http://app.local")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://other.local")
	assert.False(t, check(req))
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		cfg  config.GatewayConfig
		want string
	}{
		{config.GatewayConfig{Port: 5000, Bind: "loopback"}, "127.0.0.1:5000"},
		{config.GatewayConfig{Port: 5000, Bind: "lan"}, "0.0.0.0:5000"},
		{config.GatewayConfig{Port: 5000, Bind: "custom", CustomBindHost: "10.0.0.2"}, "10.0.0.2:5000"},
		{config.GatewayConfig{Port: 5000, Bind: "custom"}, "0.0.0.0:5000"},
		{config.GatewayConfig{Port: 5000}, "127.0.0.1:5000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveBindAddr(tt.cfg))
	}
}

func TestStartEmitsLifecycleHooks(t *testing.T) {
	hm := hooks.NewManager(logging.New(nil, "silent"))
	started := make(chan string, 1)
	stopped := make(chan struct{}, 1)
	hm.On(hooks.EventGatewayStart, "test", func(_ context.Context, p hooks.Payload) error {
		started <- fmt.Sprint(p.Data["addr"])
		return nil
	})
	hm.On(hooks.EventGatewayStop, "test", func(context.Context, hooks.Payload) error {
		stopped <- struct{}{}
		return nil
	})

	cfg := config.Defaults()
	cfg.Gateway.Port = 0
	providers, err := llm.NewRegistryFromConfig(cfg.LLM, logging.New(nil, "silent"))
	require.NoError(t, err)
	srv := New(cfg, Deps{Store: store.NewMemory(), Agent: agent.Deps{Providers: providers}},
		logging.New(nil, "silent"), WithHooks(hm))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case addr := <-started:
		assert.True(t, strings.HasPrefix(addr, "127.0.0.1:"))
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not start")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("gateway did not stop")
	}
	<-stopped
}
