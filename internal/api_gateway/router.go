package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anchor-settlement-engine/internal/api_gateway/handler"
	"github.com/anchor-settlement-engine/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/deposits/:id/settle", transactionHandler.Settle)

		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.GET("/:id/attempts", transactionHandler.GetAttempts)
		}

		v1.GET("/accounts/:address", accountHandler.GetByAddress)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
