package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickwarner/consentstudio/internal/api"
	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/config"
	"github.com/patrickwarner/consentstudio/internal/db"
	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/observability"
	"github.com/patrickwarner/consentstudio/internal/storage"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName, cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.Environment, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	normalizer := normalize.New(logger,
		normalize.WithCanvas(models.DeviceDesktop, cfg.Canvas.Desktop),
		normalize.WithCanvas(models.DeviceTablet, cfg.Canvas.Tablet),
		normalize.WithCanvas(models.DeviceMobile, cfg.Canvas.Mobile),
	)

	registry, closeRegistry, err := initRegistry(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	// Without TEMPLATE_STORE_URL this process is the template store, backed by
	// Postgres when configured and by memory otherwise.
	var (
		templates *storage.Service
		store     storage.TemplateStore
	)
	if cfg.TemplateStoreURL != "" {
		client := storage.NewClient(cfg.TemplateStoreURL, cfg.TemplateStoreTimeout, logger, metricsRegistry)
		if err := client.HealthCheck(ctx); err != nil {
			logger.Warn("template store not reachable yet", zap.String("url", cfg.TemplateStoreURL), zap.Error(err))
		}
		store = client
	} else {
		var repo storage.Repository = storage.NewMemoryRepository()
		if cfg.PostgresDSN != "" {
			pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
			if err != nil {
				return fmt.Errorf("failed to connect postgres: %w", err)
			}
			defer pg.Close()
			repo = pg
		} else {
			logger.Warn("POSTGRES_DSN not set, templates are kept in memory")
		}
		templates = storage.NewService(repo, normalizer, storage.ServiceConfig{
			PublicBaseURL:   cfg.PublicBaseURL,
			MaxPayloadBytes: cfg.MaxUploadBytes * 4,
		}, logger, metricsRegistry)
	}

	srvDeps := api.NewServer(logger, metricsRegistry, cfg, normalizer, templates, store, registry)
	r := srvDeps.Router()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := srvDeps.Limiter.Prune(10 * time.Minute); n > 0 {
					logger.Debug("pruned idle rate limit buckets", zap.Int("buckets", n))
				}
			}
		}
	}()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "consentstudio"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Banner studio running",
		zap.String("addr", addr),
		zap.String("asset_registry", cfg.AssetRegistry),
		zap.Bool("template_store", templates != nil))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	observability.LogSamplingStats(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// initRegistry builds the asset registry selected by ASSET_REGISTRY.
func initRegistry(ctx context.Context, logger *zap.Logger, cfg config.Config) (assets.Registry, func(), error) {
	switch cfg.AssetRegistry {
	case config.RegistryRedis:
		client, err := db.InitRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("pending assets kept in redis", zap.Duration("ttl", cfg.AssetTTL))
		return assets.NewRedisRegistry(client, cfg.AssetTTL), func() { db.CloseRedis(client) }, nil
	case config.RegistryMemory, "":
		return assets.NewMemoryRegistry(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown asset registry %q", cfg.AssetRegistry)
	}
}
