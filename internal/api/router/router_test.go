package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/portfolio-contact/internal/contact"
	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/internal/observability/metrics"
	"github.com/wolfman30/portfolio-contact/internal/ratelimit"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

const testAdminSecret = "test-secret"

func newTestRouter(t *testing.T, limiter ratelimit.Limiter, health func(context.Context) error) http.Handler {
	t.Helper()

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	dispatcher := notify.NewDispatcher(logger,
		notify.NewEmailChannel(notify.NewStubEmailSender(logger), "owner@example.com", logger),
		notify.NewWhatsAppChannel(notify.WhatsAppConfig{}, logger),
	).WithMetrics(metrics.NewNotificationMetrics(reg))
	svc := contact.NewService(contact.NewInMemoryRepository(), dispatcher, logger).
		WithMetrics(metrics.NewContactMetrics(reg))

	return New(&Config{
		Logger:             logger,
		ContactHandler:     contact.NewHandler(svc, logger),
		RateLimiter:        limiter,
		AdminAuthSecret:    testAdminSecret,
		MetricsHandler:     metrics.Handler(reg),
		CORSAllowedOrigins: []string{"https://portfolio.example"},
		HealthCheck:        health,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		check      func(context.Context) error
		wantCode   int
		wantStatus string
	}{
		{"no store check", nil, http.StatusOK, "ok"},
		{"store reachable", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"store down", func(context.Context) error { return errors.New("dial tcp 10.0.0.5:5432: connect: connection refused") }, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, nil, tt.check)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			var resp map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode health response: %v", err)
			}
			if resp["status"] != tt.wantStatus {
				t.Errorf("expected status %q, got %v", tt.wantStatus, resp["status"])
			}
			if _, ok := resp["error"]; ok {
				t.Errorf("expected store error to stay out of the response, got %v", resp["error"])
			}
		})
	}
}

func TestRouterContactSubmitAndMetrics(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"name":"Alice","email":"alice@example.com","subject":"Hi","message":"Test"}`
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://portfolio.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://portfolio.example" {
		t.Fatalf("expected CORS header on contact route")
	}

	var resp struct {
		Notifications []notify.Outcome `json:"notifications"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Notifications) != 2 || !resp.Notifications[0].Success || resp.Notifications[1].Error != "not configured" {
		t.Fatalf("unexpected notifications %+v", resp.Notifications)
	}

	mr := httptest.NewRecorder()
	router.ServeHTTP(mr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(mr.Body.String(), `portfolio_contact_submissions_total{result="created"} 1`) {
		t.Fatalf("expected submission counter in metrics output")
	}
}

func TestRouterRateLimitsContact(t *testing.T) {
	router := newTestRouter(t, ratelimit.NewMemoryLimiter(1, time.Hour), nil)
	body := `{"name":"Alice","email":"alice@example.com","subject":"Hi","message":"Test"}`

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
		req.Header.Set("X-Forwarded-For", "198.51.100.9")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [201 429], got %v", codes)
	}
}

func TestRouterAdminMessagesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contact/messages", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "site-owner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(testAdminSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/contact/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
