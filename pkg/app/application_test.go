package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"buscharter/pkg/config"
	"buscharter/pkg/contracts"
	"buscharter/pkg/logger"
	"buscharter/pkg/middleware"
	"buscharter/pkg/tenant"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	calls int
}

func (h *echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scope := tenant.MustFromContext(r.Context())
		_, _ = io.WriteString(w, scope.TenantID+"/"+scope.ActorID)
	})
	router.POST("/api/v1/things", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"n":1}`)
	})
}

func newTestApp(t *testing.T, checks map[string]Check) (*Application, *echoHandler) {
	t.Helper()
	cfg := &config.Config{
		Log:               logger.New(logger.Config{Level: "error", Output: io.Discard, Service: "test"}),
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		ShutdownTimeout:   time.Second,
	}
	echo := &echoHandler{}
	a := NewApplication(cfg)
	a.SetApp(contracts.Handlers{echo}, checks)
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a, echo
}

func TestApplication_TenantScopeOnAPI(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set(middleware.TenantHeader, "po-sinar")
	req.Header.Set(middleware.ActorHeader, "admin")
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "po-sinar/admin", rec.Body.String())
}

func TestApplication_HealthSkipsTenant(t *testing.T) {
	a, _ := newTestApp(t, map[string]Check{
		"mongo": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mongo":"ok"`)
}

func TestApplication_ReadyReportsFailure(t *testing.T) {
	a, _ := newTestApp(t, map[string]Check{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"error"`)
	assert.Contains(t, rec.Body.String(), `"unavailable"`)
}

func TestApplication_IdempotentReplay(t *testing.T) {
	a, echo := newTestApp(t, nil)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/things", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.TenantHeader, "po-sinar")
		req.Header.Set("Idempotency-Key", "pay-1")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec
	}

	first := post()
	second := post()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, echo.calls)
}

func TestApplication_ShutdownRunsClosersInReverse(t *testing.T) {
	a, _ := newTestApp(t, nil)

	var order []string
	a.OnShutdown(func() { order = append(order, "publisher") })
	a.OnShutdown(func() { order = append(order, "mongo") })
	a.gracefulShutdown()

	assert.Equal(t, []string{"mongo", "publisher"}, order)
}
