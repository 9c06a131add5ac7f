package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/services"
	"portfolio-simulator/internal/storage"
)

type DashboardHandler struct {
	engine *services.Engine
	store  storage.Store
}

func NewDashboardHandler(engine *services.Engine, store storage.Store) *DashboardHandler {
	return &DashboardHandler{engine: engine, store: store}
}

// GetChart returns the current rolling sample window along with which
// mode is actually feeding it.
func (h *DashboardHandler) GetChart(c *gin.Context) {
	feed := h.engine.Feed()

	c.JSON(http.StatusOK, gin.H{
		"instrument": feed.Instrument(),
		"mode":       feed.Mode(),
		"activeMode": feed.Active(),
		"window":     feed.Window(),
	})
}

type dashboardRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Live   bool   `json:"live"`
}

// UpdateDashboard switches the selected instrument and data mode.
func (h *DashboardHandler) UpdateDashboard(c *gin.Context) {
	var req dashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	// Validate before touching engine state so a bad symbol cannot
	// flip the mode on a rejected request.
	if _, ok := models.FindInstrument(req.Symbol); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrUnknownSymbol.Error()})
		return
	}

	h.engine.SetMode(req.Live)
	if err := h.engine.SelectInstrument(req.Symbol); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"instrument": h.engine.Selected(),
		"live":       h.engine.LiveMode(),
	})
}

// GetTutorial reports whether the first-run tutorial has been completed.
func (h *DashboardHandler) GetTutorial(c *gin.Context) {
	complete := false
	raw, err := h.store.Get(c.Request.Context(), storage.KeyTutorial)
	if err == nil {
		complete = string(raw) == "true"
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"complete": complete})
}

type tutorialRequest struct {
	Complete bool `json:"complete"`
}

// PutTutorial records tutorial completion.
func (h *DashboardHandler) PutTutorial(c *gin.Context) {
	var req tutorialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	value := "false"
	if req.Complete {
		value = "true"
	}
	if err := h.store.Set(c.Request.Context(), storage.KeyTutorial, []byte(value)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"complete": req.Complete})
}
