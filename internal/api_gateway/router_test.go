package api_gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchor-settlement-engine/internal/api_gateway/service"
	"github.com/anchor-settlement-engine/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "development"},
		Server:      config.ServerConfig{Port: 8080},
	}
	var txService service.TransactionService
	var accService service.AccountService
	return NewServer(slog.Default(), cfg, txService, accService)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	server := testServer(t)

	t.Run("health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		server.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("metrics", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
		server.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "settlement_worker_pool_running")
	})
}

func TestRouter_RejectsBadIDsBeforeServices(t *testing.T) {
	server := testServer(t)

	for _, path := range []string{"/api/v1/transactions/nope", "/api/v1/transactions/nope/attempts"} {
		rr := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		server.Handler().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/deposits/"+uuid.NewString()[:8]+"/settle", nil)
	server.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
