package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wolfman30/portfolio-contact/cmd/mainconfig"
	"github.com/wolfman30/portfolio-contact/internal/api/router"
	"github.com/wolfman30/portfolio-contact/internal/app/bootstrap"
	appconfig "github.com/wolfman30/portfolio-contact/internal/config"
	"github.com/wolfman30/portfolio-contact/internal/contact"
	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/internal/observability/metrics"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting portfolio contact API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leaves room for the notification timeout on top of the store writes.
		WriteTimeout: cfg.NotifyTimeout + 20*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildApp wires the stores, notification channels and HTTP routes. The
// returned cleanup releases pooled connections.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	reg := setupMetricsRegistry()

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil && cfg.DatabaseURL != "" && cfg.Env == "production" {
		return nil, nil, errors.New("postgres is required in production")
	}
	repo := bootstrap.BuildRepository(pool, logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	limiter := bootstrap.BuildRateLimiter(cfg, redisClient, logger)

	var ses notify.SESAPI
	if cfg.EmailProvider == "ses" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		ses = mainconfig.NewSESClient(awsCfg, cfg)
	}
	sender := bootstrap.BuildEmailSender(cfg, ses, logger)

	dispatcher := notify.NewDispatcher(logger, bootstrap.BuildChannels(cfg, sender, logger)...).
		WithTimeout(cfg.NotifyTimeout).
		WithMetrics(metrics.NewNotificationMetrics(reg))
	svc := contact.NewService(repo, dispatcher, logger).
		WithMetrics(metrics.NewContactMetrics(reg))

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; message management endpoints will reject all requests")
	}

	routerCfg := &router.Config{
		Logger:             logger,
		ContactHandler:     contact.NewHandler(svc, logger),
		RateLimiter:        limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metrics.Handler(reg),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if pool != nil {
		routerCfg.HealthCheck = pool.Ping
	}

	cleanup := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if pool != nil {
			pool.Close()
		}
	}
	return router.New(routerCfg), cleanup, nil
}

func setupMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
