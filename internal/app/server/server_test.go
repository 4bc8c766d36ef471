package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"backoffice/internal/domain/auth"
	"backoffice/internal/platform/config"
	"backoffice/internal/platform/metrics"
	"backoffice/internal/transport/http/api"
	"backoffice/internal/transport/http/middleware"
)

const testSecret = "router-test-secret"

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.NewStaticPermissions())).Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		api.Success(w, map[string]string{"tenant": user.TenantID}, middleware.GetRequestID(r.Context()))
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:          testSecret,
		MaxBodyBytes:       4096,
		MetricsEnabled:     true,
		RateLimitPerMinute: 100,
	}
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u1", TenantID: "t1", RoleName: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterHealthChecks(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	router := NewRouter(testConfig(), zaptest.NewLogger(t), metrics.New(), failing)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	healthy := NewRouter(testConfig(), zaptest.NewLogger(t), metrics.New(), func(context.Context) error { return nil })
	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAuthenticatesAPIRoutes(t *testing.T) {
	router := NewRouter(testConfig(), zaptest.NewLogger(t), metrics.New(), nil, pingRoutes{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleAccountant))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tenant":"t1"`)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterRecoversPanicsAndCountsRequests(t *testing.T) {
	collector := metrics.New()
	router := NewRouter(testConfig(), zaptest.NewLogger(t), collector, nil, pingRoutes{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.EqualValues(t, 1, env.Data["errorsTotal"])
}

func TestRouterWithoutMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	router := NewRouter(cfg, zaptest.NewLogger(t), metrics.New(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
