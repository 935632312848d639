package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"offer-moderation/internal/handlers/admin"
	"offer-moderation/internal/handlers/driver"
	"offer-moderation/internal/repositories/memory"
	"offer-moderation/internal/services"

	"github.com/gin-gonic/gin"
)

func newTestRouter(checks map[string]HealthCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)

	offers := memory.NewOfferRepository()
	audit := services.NewAuditTrail(memory.NewAuditLogRepository(), nil, services.AuditRetryConfig{})
	locks := services.NewOfferLocks()

	return NewRouter(RouterConfig{
		AppVersion: "test",
		JWTSecret:  "secret",
		ModerationHandler: admin.NewOfferModerationHandler(
			services.NewModerationService(offers, audit, nil, locks, nil),
			services.NewStatisticsService(offers),
			false,
		),
		OfferHandler: driver.NewOfferHandler(services.NewOfferService(offers, audit, nil, locks, nil, "UZS")),
		HealthChecks: checks,
	})
}

func TestHealth(t *testing.T) {
	r := newTestRouter(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	r = newTestRouter(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("down") },
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestOfferRoutesRequireToken(t *testing.T) {
	r := newTestRouter(nil)

	for _, path := range []string{"/api/v1/admin/offers", "/api/v1/admin/offers/statistics", "/api/v1/driver/offers"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
