package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolio-simulator/utils"
)

// RequestID stamps every request context with an id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithRequestID(c.Request.Context(), uuid.NewString())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CORS allows the browser dashboard to call the API from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
