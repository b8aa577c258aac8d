package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/wolfman30/portfolio-contact/internal/ratelimit"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

const rateLimitMessage = "Too many contact form submissions from this IP, please try again later."

// RateLimit returns an HTTP middleware that rejects requests exceeding the
// limiter's budget for the client IP with 429 Too Many Requests. Limiter
// errors let the request through.
func RateLimit(limiter ratelimit.Limiter, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "error", err, "remote_ip", ip)
			}
			if !allowed {
				logger.Info("rate limit exceeded", "remote_ip", ip, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": rateLimitMessage,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers RemoteAddr as rewritten by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
