package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

type scriptedLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *scriptedLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		limiter    *scriptedLimiter
		wantStatus int
	}{
		{"allowed", &scriptedLimiter{allowed: true}, http.StatusCreated},
		{"exceeded", &scriptedLimiter{allowed: false}, http.StatusTooManyRequests},
		{"limiter down fails open", &scriptedLimiter{allowed: true, err: errors.New("redis down")}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RateLimit(tt.limiter, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			}))
			req := httptest.NewRequest(http.MethodPost, "/contact", nil)
			req.RemoteAddr = "198.51.100.23:40000"
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if len(tt.limiter.keys) != 1 || tt.limiter.keys[0] != "198.51.100.23" {
				t.Fatalf("expected limiter keyed by client IP, got %v", tt.limiter.keys)
			}
			if rec.Code == http.StatusTooManyRequests {
				var body map[string]any
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body["success"] != false || body["message"] == "" {
					t.Fatalf("unexpected body %v", body)
				}
			}
		})
	}
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	handler := RateLimit(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	for _, want := range []string{`"path":"/health"`, `"status":418`, `"request_id"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log line, got %s", want, out)
		}
	}
}
