package gateway

import (
	"net/http"
	"strings"

	"github.com/soyeahso/marketmind/internal/datasource"
	"github.com/soyeahso/marketmind/internal/plugin"
)

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.metricsExposed() {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Market data
	mux.HandleFunc("GET /api/mcp/crypto/{symbol}", s.handleCryptoPrice)
	mux.HandleFunc("GET /api/mcp/financial/crypto/{symbol}", s.handleCryptoPrice)
	mux.HandleFunc("GET /api/mcp/financial/crypto/{symbol}/history", s.handleCryptoHistory)
	mux.HandleFunc("GET /api/mcp/financial/stock/{symbol}", s.handleStockPrice)
	mux.HandleFunc("GET /api/mcp/financial/market-summary", s.handleMarketSummary)
	mux.HandleFunc("GET /api/mcp/news", s.handleLatestNews)
	mux.HandleFunc("GET /api/mcp/news/search", s.handleSearchNews)
	mux.HandleFunc("GET /api/mcp/news/sentiment", s.handleNewsBySentiment)
	mux.HandleFunc("GET /api/mcp/news/trending", s.handleTrendingTopics)
	mux.HandleFunc("GET /api/plugins", s.handlePlugins)

	// Agents and chat
	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents", s.handleCreateAgent)
	mux.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("PATCH /api/agents/{id}", s.handleUpdateAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", s.handleDeleteAgent)
	mux.HandleFunc("GET /api/agents/{id}/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/messages", s.handleCreateMessage)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) handleCryptoPrice(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Sources.Crypto.Price(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err, "fetching crypto data")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleCryptoHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	data, err := s.deps.Sources.Crypto.History(r.Context(), r.PathValue("symbol"), days)
	if err != nil {
		s.writeError(w, err, "fetching crypto history")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleStockPrice(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Sources.Stock.Quote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err, "fetching stock data")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleMarketSummary(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Sources.Market.Summary(r.Context())
	if err != nil {
		s.writeError(w, err, "fetching market summary")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleLatestNews(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = datasource.TopicCrypto
	}
	data, err := s.deps.Sources.News.Latest(r.Context(), topic, queryInt(r, "limit", datasource.DefaultNewsLimit))
	if err != nil {
		s.writeError(w, err, "fetching news data")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleSearchNews(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		badRequest(w, "Query parameter is required")
		return
	}
	data, err := s.deps.Sources.News.Search(r.Context(), query, queryInt(r, "limit", datasource.DefaultNewsLimit))
	if err != nil {
		s.writeError(w, err, "searching news")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleNewsBySentiment(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	sentiment := r.URL.Query().Get("sentiment")
	if topic == "" || !datasource.ValidSentiment(sentiment) {
		badRequest(w, "Topic and valid sentiment (positive, negative, neutral) parameters are required")
		return
	}
	data, err := s.deps.Sources.News.BySentiment(r.Context(), topic, sentiment, queryInt(r, "limit", datasource.DefaultNewsLimit))
	if err != nil {
		s.writeError(w, err, "fetching news by sentiment")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleTrendingTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.deps.Sources.News.Trending(r.Context())
	if err != nil {
		s.writeError(w, err, "fetching trending topics")
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	infos := []plugin.PluginInfo{}
	if s.deps.Agent.Catalog != nil {
		infos = s.deps.Agent.Catalog.Info()
	}
	writeJSON(w, http.StatusOK, infos)
}
