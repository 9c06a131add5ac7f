package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"portfolio-simulator/config"
	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/services"
	"portfolio-simulator/internal/storage"
)

type tradeFixture struct {
	ledger *services.Ledger
	engine *services.Engine
	prices *cache.MemCache
	router *gin.Engine
}

// newTradeFixture wires an unstarted engine over in-memory state so
// handlers see cached prices without any timers running.
func newTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemStore()
	prices := cache.NewMemCache()
	ledger := services.NewLedger(context.Background(), store, prices, 10000, 15000)
	achievements := services.NewAchievementService(context.Background(), store, ledger, prices)

	sim := services.NewSimulator()
	simSource := services.NewSimSource(sim, prices, 24)
	feed := services.NewChartFeed(simSource, sim, prices, 24)
	market := config.Market{
		WindowLength:     24,
		LiveQuoteRefresh: time.Hour,
		SimQuoteRefresh:  time.Hour,
		LiveChartTick:    time.Hour,
		SimChartTick:     time.Hour,
	}
	engine := services.NewEngine(market, feed, simSource, simSource, prices, nil, nil, nil)

	handler := NewPortfolioHandler(ledger, engine, achievements, prices)
	router := gin.New()
	router.GET("/api/portfolio", handler.GetPortfolio)
	router.POST("/api/trades", handler.PlaceTrade)
	router.GET("/api/transactions", handler.GetTransactions)
	router.GET("/api/achievements", handler.GetAchievements)

	return &tradeFixture{ledger: ledger, engine: engine, prices: prices, router: router}
}

func (f *tradeFixture) cachePrice(t *testing.T, symbol string, price float64) {
	t.Helper()
	err := f.prices.Set(context.Background(), models.Quote{
		Symbol: symbol, Price: price, Volume: 500000, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func (f *tradeFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	return doJSON(f.router, method, path, body)
}

func TestPlaceTradeBuy(t *testing.T) {
	f := newTradeFixture(t)
	f.cachePrice(t, "AAPL", 150)

	w := f.do(http.MethodPost, "/api/trades", gin.H{"symbol": "aapl", "side": "BUY", "shares": 10})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var resp struct {
		Transaction models.Transaction   `json:"transaction"`
		Unlocked    []models.Achievement `json:"unlocked"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Transaction.Symbol != "AAPL" || resp.Transaction.Shares != 10 {
		t.Errorf("transaction = %+v", resp.Transaction)
	}
	if len(resp.Unlocked) == 0 || resp.Unlocked[0].ID != models.AchievementFirstTrade {
		t.Errorf("first trade badge not in response: %+v", resp.Unlocked)
	}

	if want := decimal.NewFromInt(8500); !f.ledger.Account().Cash.Equal(want) {
		t.Errorf("cash = %s, want %s", f.ledger.Account().Cash, want)
	}
}

func TestPlaceTradeValidation(t *testing.T) {
	f := newTradeFixture(t)
	f.cachePrice(t, "AAPL", 150)

	tests := []struct {
		name string
		body gin.H
	}{
		{"unknown symbol", gin.H{"symbol": "NOPE", "side": "BUY", "shares": 1}},
		{"bad side", gin.H{"symbol": "AAPL", "side": "HOLD", "shares": 1}},
		{"zero shares", gin.H{"symbol": "AAPL", "side": "BUY", "shares": 0}},
		{"negative shares", gin.H{"symbol": "AAPL", "side": "BUY", "shares": -5}},
		{"missing symbol", gin.H{"side": "BUY", "shares": 1}},
		{"insufficient funds", gin.H{"symbol": "AAPL", "side": "BUY", "shares": 1000}},
		{"sell without shares", gin.H{"symbol": "AAPL", "side": "SELL", "shares": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/trades", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body)
			}
		})
	}

	if got := len(f.ledger.Transactions()); got != 0 {
		t.Errorf("rejected trades recorded %d transactions", got)
	}
}

func TestGetPortfolioEnrichesHoldings(t *testing.T) {
	f := newTradeFixture(t)
	f.cachePrice(t, "AAPL", 150)

	if w := f.do(http.MethodPost, "/api/trades", gin.H{"symbol": "AAPL", "side": "BUY", "shares": 10}); w.Code != http.StatusOK {
		t.Fatalf("buy failed: %s", w.Body)
	}
	f.cachePrice(t, "AAPL", 160)

	w := f.do(http.MethodGet, "/api/portfolio", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Holdings []struct {
			Symbol       string  `json:"symbol"`
			CurrentPrice float64 `json:"currentPrice"`
			MarketValue  string  `json:"marketValue"`
		} `json:"holdings"`
		TotalValue        string `json:"totalValue"`
		ProfitLossPercent string `json:"profitLossPercent"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Holdings) != 1 {
		t.Fatalf("holdings = %d, want 1", len(resp.Holdings))
	}
	h := resp.Holdings[0]
	if h.Symbol != "AAPL" || h.CurrentPrice != 160 {
		t.Errorf("holding = %+v", h)
	}
	if h.MarketValue != "1600" {
		t.Errorf("market value = %s, want 1600", h.MarketValue)
	}
	// 8500 cash plus 1600 position against a 10000 start is a 1% gain.
	if resp.TotalValue != "10100" {
		t.Errorf("total value = %s, want 10100", resp.TotalValue)
	}
	if resp.ProfitLossPercent != "1" {
		t.Errorf("profit/loss percent = %s, want 1", resp.ProfitLossPercent)
	}
}

func TestGetTransactionsOrder(t *testing.T) {
	f := newTradeFixture(t)
	f.cachePrice(t, "AAPL", 150)
	f.cachePrice(t, "MSFT", 300)

	for _, body := range []gin.H{
		{"symbol": "AAPL", "side": "BUY", "shares": 2},
		{"symbol": "MSFT", "side": "BUY", "shares": 1},
		{"symbol": "AAPL", "side": "SELL", "shares": 1},
	} {
		if w := f.do(http.MethodPost, "/api/trades", body); w.Code != http.StatusOK {
			t.Fatalf("trade %v failed: %s", body, w.Body)
		}
	}

	w := f.do(http.MethodGet, "/api/transactions", nil)
	var resp struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Transactions) != 3 {
		t.Fatalf("transactions = %d, want 3", len(resp.Transactions))
	}
	if resp.Transactions[0].Symbol != "AAPL" || resp.Transactions[0].Side != models.SideBuy {
		t.Errorf("oldest transaction = %+v", resp.Transactions[0])
	}
	if resp.Transactions[2].Side != models.SideSell {
		t.Errorf("newest transaction = %+v", resp.Transactions[2])
	}
}

func TestGetAchievementsListsCatalog(t *testing.T) {
	f := newTradeFixture(t)

	w := f.do(http.MethodGet, "/api/achievements", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Achievements []models.Achievement `json:"achievements"`
		Unlocked     []string             `json:"unlocked"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Achievements) != 4 {
		t.Errorf("catalog size = %d, want 4", len(resp.Achievements))
	}
	if len(resp.Unlocked) != 0 {
		t.Errorf("unlocked before any trade: %v", resp.Unlocked)
	}
}
