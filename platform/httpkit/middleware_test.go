package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newProtectedEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(testJWTConfig{})}, mw...)
	handlers = append(handlers, func(c *gin.Context) {
		id := GetIdentity(c)
		tenant, ok := id.TenantID()
		c.JSON(http.StatusOK, gin.H{"user": id.UserID().String(), "tenant": tenant.String(), "hasTenant": ok})
	})
	engine.GET("/whoami", handlers...)
	return engine
}

func TestAuthRequiredAcceptsAccessToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":       userID.String(),
		"type":      "access",
		"roles":     []string{"agent"},
		"tenant_id": tenantID.String(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newProtectedEngine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequiredRejectsRefreshToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":  uuid.New().String(),
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newProtectedEngine().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRequiredRejectsMissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	newProtectedEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAnyRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"manager allowed", []string{"manager"}, http.StatusOK},
		{"admin allowed", []string{"agent", "admin"}, http.StatusOK},
		{"agent forbidden", []string{"agent"}, http.StatusForbidden},
		{"no roles forbidden", nil, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token := signToken(t, jwt.MapClaims{
				"sub":   uuid.New().String(),
				"type":  "access",
				"roles": tc.roles,
				"exp":   time.Now().Add(time.Hour).Unix(),
			})
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			newProtectedEngine(RequireAnyRole("admin", "manager")).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestIPRateLimiterEvictsIdleLimiters(t *testing.T) {
	clock := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(1), 1, nil)
	limiter.now = func() time.Time { return clock }

	first := limiter.getLimiter("10.0.0.1")
	if !first.Allow() {
		t.Fatalf("expected first request to be allowed")
	}

	clock = clock.Add(5 * time.Minute)
	if got := limiter.getLimiter("10.0.0.1"); got != first {
		t.Fatalf("expected recently used limiter to be kept")
	}

	clock = clock.Add(limiterIdleTTL + time.Minute)
	limiter.getLimiter("10.0.0.2")

	if _, ok := limiter.limiters.Load("10.0.0.1"); ok {
		t.Fatalf("expected idle limiter to be evicted")
	}
	if _, ok := limiter.limiters.Load("10.0.0.2"); !ok {
		t.Fatalf("expected active limiter to be kept")
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/whoami", NewIPRateLimiter(rate.Limit(0.001), 1, nil).RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %v", codes)
	}
}
