package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := env.Do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"status": "healthy", "database": "ok"}`, w.Body.String())
	}
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	env := setupTestEnv(t)
	sqlDB, err := env.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := env.Do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	env.Do(t, http.MethodGet, "/health", "", nil)

	w := env.Do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	env := setupTestEnv(t)

	w := env.Do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "not found"}`, w.Body.String())
}
