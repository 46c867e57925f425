package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is the HTTP header carrying the correlation ID
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key of the correlation ID
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

type correlationKey struct{}

// CorrelationID takes the caller's correlation ID or mints one. The ID is echoed
// back, stored on the gin context and on the request context so that settlement
// requests published by a handler carry it to the engine.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" || len(correlationID) > maxCorrelationIDLength {
			correlationID = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationKey{}, correlationID))

		c.Next()
	}
}

// GetCorrelationID returns the correlation ID of the request, or ""
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}

// CorrelationIDFromContext returns the correlation ID stored by CorrelationID, or ""
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
