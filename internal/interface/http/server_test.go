package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/interface/http/handlers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, Dependencies{
		HealthChecker: handlers.NewNoopHealthChecker(),
	})
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := doRequest(t, s, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_Root(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

func TestServer_UnconfiguredHandlersReturn501(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/leaderboard"},
		{http.MethodGet, "/api/v1/learners/l1/progress"},
		{http.MethodGet, "/api/v1/learners/l1/stats"},
		{http.MethodGet, "/api/v1/learners/l1/badges"},
		{http.MethodGet, "/api/v1/learners/l1/attempts"},
		{http.MethodGet, "/api/v1/learners/l1/rank"},
	}

	for _, tt := range paths {
		rec := doRequest(t, s, tt.method, tt.path)
		assert.Equal(t, http.StatusNotImplemented, rec.Code, tt.path)

		var body JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_implemented", body.Error.Code)
	}
}

func TestServer_SubmitRejectsMalformedIdempotencyKey(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/learners/l1/attempts", nil)
	req.Header.Set("Idempotency-Key", "not-a-uuid")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "invalid_request", body.Error.Code)
	assert.Contains(t, body.Error.Message, "Idempotency-Key")
}

func TestServer_RequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := NewServer(cfg, Dependencies{})

	for i := 0; i < 2; i++ {
		rec := doRequest(t, s, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
