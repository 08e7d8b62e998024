package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "crm_insights_backend/internal/http"
	"crm_insights_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct {
	allowAll bool
}

func (testConfig) GetHTTPAddr() string                      { return ":0" }
func (c testConfig) GetCORSAllowAll() bool                  { return c.allowAll }
func (testConfig) GetCORSOrigins() []string                 { return []string{"https://crm.example.com"} }
func (testConfig) GetCORSAllowCreds() bool                  { return true }
func (testConfig) GetRateLimitRPS() float64                 { return 100 }
func (testConfig) GetRateLimitBurst() int                   { return 100 }
func (testConfig) GetJWTAccessSecret() string               { return "test-secret" }
func (testConfig) GetInsightsRequestTimeout() time.Duration { return time.Second }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func TestHealthReflectsDatabase(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestEngine(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	newTestEngine(pinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestModuleRoutesRequireAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestEngine(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestEngine(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers on every response")
	}
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	conf := corsConfig(testConfig{allowAll: true})
	if !conf.AllowAllOrigins || conf.AllowCredentials {
		t.Fatalf("wildcard origins must not allow credentials: %+v", conf)
	}
	conf = corsConfig(testConfig{})
	if conf.AllowAllOrigins || len(conf.AllowOrigins) != 1 || !conf.AllowCredentials {
		t.Fatalf("unexpected explicit origin config: %+v", conf)
	}
}
