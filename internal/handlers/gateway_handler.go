package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-simulator/internal/services"
)

type GatewayHandler struct {
	gateway *services.Gateway
}

func NewGatewayHandler(gateway *services.Gateway) *GatewayHandler {
	return &GatewayHandler{gateway: gateway}
}

// Proxy maps ?endpoint=quote|candle onto the upstream provider and
// relays the response or a structured error.
func (h *GatewayHandler) Proxy(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Query("symbol")

	var (
		status int
		body   []byte
		err    error
	)

	switch c.Query("endpoint") {
	case "quote":
		status, body, err = h.gateway.Quote(ctx, symbol)
	case "candle":
		status, body, err = h.gateway.Candle(ctx, symbol, c.Query("resolution"), c.Query("from"), c.Query("to"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endpoint"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data"})
		return
	}

	if status >= http.StatusBadRequest {
		var upstream struct {
			Error string `json:"error"`
		}
		msg := "Failed to fetch data"
		if json.Unmarshal(body, &upstream) == nil && upstream.Error != "" {
			msg = upstream.Error
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Data(status, "application/json", body)
}
