package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 in the API's error envelope and logs
// it with the stack trace through the application logger
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			"error", recovered,
			"stack", string(debug.Stack()),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)

		response := gin.H{
			"error": gin.H{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "An internal server error occurred",
			},
		}
		if correlationID := GetCorrelationID(c); correlationID != "" {
			response["correlation_id"] = correlationID
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, response)
	})
}
