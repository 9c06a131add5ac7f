package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/services"
)

type PortfolioHandler struct {
	ledger       *services.Ledger
	engine       *services.Engine
	achievements *services.AchievementService
	prices       cache.PriceCache
}

func NewPortfolioHandler(ledger *services.Ledger, engine *services.Engine, achievements *services.AchievementService, prices cache.PriceCache) *PortfolioHandler {
	return &PortfolioHandler{
		ledger:       ledger,
		engine:       engine,
		achievements: achievements,
		prices:       prices,
	}
}

type holdingView struct {
	models.Holding
	CurrentPrice float64         `json:"currentPrice"`
	MarketValue  decimal.Decimal `json:"marketValue"`
}

// GetPortfolio returns the account, enriched holdings, total value and
// profit/loss percent.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	ctx := c.Request.Context()

	holdings := h.ledger.Holdings()
	views := make([]holdingView, 0, len(holdings))
	for _, holding := range holdings {
		view := holdingView{Holding: holding, MarketValue: decimal.Zero}
		if q, err := h.prices.Get(ctx, holding.Symbol); err == nil {
			view.CurrentPrice = q.Price
			view.MarketValue = decimal.NewFromFloat(q.Price).Mul(decimal.NewFromInt(holding.Shares))
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"account":           h.ledger.Account(),
		"holdings":          views,
		"totalValue":        h.ledger.Valuate(ctx),
		"profitLossPercent": h.ledger.ProfitLossPercent(ctx),
	})
}

type tradeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Side   string `json:"side" binding:"required"` // "BUY" or "SELL"
	Shares int64  `json:"shares" binding:"required,min=1"`
}

// PlaceTrade executes a buy or sell at the current price. Validation
// failures are the only user-facing errors; everything else in the data
// pipeline degrades silently to simulation.
func (h *PortfolioHandler) PlaceTrade(c *gin.Context) {
	ctx := c.Request.Context()

	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	symbol := strings.ToUpper(req.Symbol)
	if _, ok := models.FindInstrument(symbol); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown symbol: " + symbol})
		return
	}

	quote, err := h.engine.QuoteFor(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no price available for " + symbol})
		return
	}

	var tx models.Transaction
	switch models.TradeSide(strings.ToUpper(req.Side)) {
	case models.SideBuy:
		tx, err = h.ledger.ExecuteBuy(ctx, symbol, req.Shares, quote.Price)
	case models.SideSell:
		tx, err = h.ledger.ExecuteSell(ctx, symbol, req.Shares, quote.Price)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInsufficientFunds) ||
			errors.Is(err, services.ErrInsufficientShares) ||
			errors.Is(err, services.ErrInvalidShareCount) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": tx,
		"unlocked":    h.achievements.Evaluate(ctx),
	})
}

// GetTransactions returns the append-only trade log, oldest first.
func (h *PortfolioHandler) GetTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transactions": h.ledger.Transactions()})
}

// GetAchievements returns the badge catalog with unlock state.
func (h *PortfolioHandler) GetAchievements(c *gin.Context) {
	h.achievements.Evaluate(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"achievements": models.AchievementCatalog(),
		"unlocked":     h.achievements.Unlocked(),
	})
}
