package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamanbank/assistant/internal/log"
)

func TestNewServer_RequiresAssistant(t *testing.T) {
	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestReadyEndpoint_NoPool(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})

	w := postJSON(srv, "/api/v1/message", `{"user_id": 1, "text": "привет"}`)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	// dev mode must not set HSTS
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerRateLimitsMessages(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		Assistant: &fakeAssistant{},
		IsDev:     true,
		RateBurst: 2,
	})
	require.NoError(t, err)

	var last int
	for range 3 {
		w := postJSON(srv, "/api/v1/message", `{"user_id": 1, "text": "привет"}`)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
