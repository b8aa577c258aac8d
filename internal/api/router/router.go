package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/portfolio-contact/internal/contact"
	httpmiddleware "github.com/wolfman30/portfolio-contact/internal/http/middleware"
	"github.com/wolfman30/portfolio-contact/internal/ratelimit"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ContactHandler     *contact.Handler
	RateLimiter        ratelimit.Limiter
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// HealthCheck reports whether the backing store is reachable (optional).
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(logger))

	r.Get("/health", healthHandler(cfg.HealthCheck, logger))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ContactHandler != nil {
		r.Mount("/contact", cfg.ContactHandler.Routes(
			httpmiddleware.RateLimit(cfg.RateLimiter, logger),
			httpmiddleware.AdminJWT(cfg.AdminAuthSecret),
		))
	}

	return r
}

func healthHandler(check func(ctx context.Context) error, logger *logging.Logger) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(started).Round(time.Second).String(),
		}
		status := http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", "error", err)
				resp["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
