package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/services"
)

type MarketHandler struct {
	engine *services.Engine
}

func NewMarketHandler(engine *services.Engine) *MarketHandler {
	return &MarketHandler{engine: engine}
}

type instrumentView struct {
	models.Instrument
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// GetInstruments returns the tradable catalog with last-known prices.
func (h *MarketHandler) GetInstruments(c *gin.Context) {
	ctx := c.Request.Context()

	list := make([]instrumentView, 0, len(models.Catalog()))
	for _, inst := range models.Catalog() {
		view := instrumentView{Instrument: inst}
		if q, err := h.engine.QuoteFor(ctx, inst.Symbol); err == nil {
			view.Price = q.Price
			view.Volume = q.Volume
		}
		list = append(list, view)
	}

	c.JSON(http.StatusOK, gin.H{"instruments": list})
}

// GetInstrument returns one catalog entry with its current quote.
func (h *MarketHandler) GetInstrument(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	inst, ok := models.FindInstrument(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol: " + symbol})
		return
	}

	quote, err := h.engine.QuoteFor(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"instrument": inst, "quote": quote})
}
