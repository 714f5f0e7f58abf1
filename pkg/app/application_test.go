package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kitchenrent/pkg/auth"
	"kitchenrent/pkg/config"
	"kitchenrent/pkg/contracts"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/middleware"
	"kitchenrent/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeFunc func(router *httprouter.Router)

func (f routeFunc) RegisterRoutes(router *httprouter.Router) { f(router) }

func ok(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
}

func testConfig(jwtSecret string) *config.Config {
	return &config.Config{
		Port:              "0",
		JWTSecret:         jwtSecret,
		RateLimitRequests: 100,
		RateLimitBurst:    10,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
		Log:               logger.New(logger.Config{Level: "error", Service: "test"}),
	}
}

func newTestApp(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	a := NewApplication(cfg)
	a.SetApp(Routes{
		Public: []contracts.Handler{routeFunc(func(r *httprouter.Router) {
			r.GET("/health", ok)
			r.POST("/api/v1/payments/webhook", ok)
		})},
		Protected: []contracts.Handler{routeFunc(func(r *httprouter.Router) {
			r.GET("/api/v1/reservations", ok)
			r.POST("/api/v1/reservations/id/:id/confirm", ok)
		})},
	})
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a.Handler()
}

func send(h http.Handler, method, target string, header map[string]string, body string) int {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestPublicRoutesSkipAuthentication(t *testing.T) {
	h := newTestApp(t, testConfig(""))

	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/health", nil, ""))
	// Provider callbacks are not JSON-typed by contract and carry no actor.
	assert.Equal(t, http.StatusOK, send(h, http.MethodPost, "/api/v1/payments/webhook",
		map[string]string{"Content-Type": "text/plain"}, "payload"))
}

func TestProtectedRoutesRequireActor(t *testing.T) {
	h := newTestApp(t, testConfig(""))

	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodGet, "/api/v1/reservations", nil, ""))
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/api/v1/reservations", map[string]string{
		middleware.ActorIDHeader:   "op-1",
		middleware.ActorRoleHeader: "operator",
	}, ""))
}

func TestJWTSecretSwitchesToBearerTokens(t *testing.T) {
	secret := strings.Repeat("s", 32)
	h := newTestApp(t, testConfig(secret))

	// Identity headers are ignored once tokens are required.
	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodGet, "/api/v1/reservations", map[string]string{
		middleware.ActorIDHeader:   "op-1",
		middleware.ActorRoleHeader: "operator",
	}, ""))

	token, err := auth.NewTokenManager(secret).Issue(model.Actor{ID: "cust-1", Role: model.RoleCustomer}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, send(h, http.MethodPost, "/api/v1/reservations/id/abc/confirm",
		map[string]string{"Authorization": "Bearer " + token}, ""))
}

func TestUnknownRouteFallsToProtectedChain(t *testing.T) {
	h := newTestApp(t, testConfig(""))
	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodGet, "/nope", nil, ""))
}
