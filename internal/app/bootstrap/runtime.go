package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/portfolio-contact/internal/config"
	"github.com/wolfman30/portfolio-contact/internal/contact"
	"github.com/wolfman30/portfolio-contact/internal/ratelimit"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateLimiter prefers a Redis-backed limiter shared across instances and
// falls back to a per-process one.
func BuildRateLimiter(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) ratelimit.Limiter {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient != nil {
		logger.Info("contact rate limiting backed by redis", "limit", cfg.ContactRateLimit, "window", cfg.ContactRateWindow)
		return ratelimit.NewRedisLimiter(redisClient, cfg.ContactRateLimit, cfg.ContactRateWindow)
	}
	logger.Info("contact rate limiting in memory", "limit", cfg.ContactRateLimit, "window", cfg.ContactRateWindow)
	return ratelimit.NewMemoryLimiter(cfg.ContactRateLimit, cfg.ContactRateWindow)
}

// ConnectPostgresPool opens a pgx pool, or returns nil when url is empty or
// the database cannot be reached.
func ConnectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildRepository returns the Postgres store when a pool is available and the
// in-memory store otherwise.
func BuildRepository(pool *pgxpool.Pool, logger *logging.Logger) contact.Repository {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set or unreachable; contact submissions are kept in memory")
		return contact.NewInMemoryRepository()
	}
	return contact.NewPostgresRepository(pool)
}
