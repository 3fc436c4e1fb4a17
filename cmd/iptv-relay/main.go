package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.etcd.io/bbolt"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alorle/iptv-relay/cache"
	"github.com/alorle/iptv-relay/catalog"
	"github.com/alorle/iptv-relay/circuitbreaker"
	"github.com/alorle/iptv-relay/config"
	"github.com/alorle/iptv-relay/fetcher"
	"github.com/alorle/iptv-relay/internal/adapter/driven"
	"github.com/alorle/iptv-relay/internal/adapter/driver"
	"github.com/alorle/iptv-relay/internal/api"
	"github.com/alorle/iptv-relay/internal/application"
	"github.com/alorle/iptv-relay/logging"
	"github.com/alorle/iptv-relay/metrics"
	"github.com/alorle/iptv-relay/registry"
	"github.com/alorle/iptv-relay/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *printConfig {
		cfg.Print()
		return
	}

	logger := logging.New(cfg.Resilience.LogLevel, cfg.Resilience.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("iptv-relay stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting iptv-relay",
		"address", net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		"proxy_base", cfg.Proxy.BasePath,
		"relays", len(cfg.Fetch.Relays),
		"catalog_source", cfg.Catalog.SourceURL,
		"db_path", cfg.Storage.Path,
		"redis", cfg.Cache.RedisURL != "",
		"log_level", cfg.Resilience.LogLevel,
	)

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		// Tracing is optional; serve without it
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	// Open BoltDB
	db, err := bbolt.Open(cfg.Storage.Path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	snapshotRepo, err := driven.NewSnapshotBoltDBRepository(db)
	if err != nil {
		return fmt.Errorf("failed to create snapshot repository: %w", err)
	}

	newCatalogStore, cachePinger, closeCache, err := catalogStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	reg := registry.New(registry.WithMaxAge(cfg.Registry.MaxAge))
	if cfg.Registry.MaxAge > 0 {
		go sweepRegistry(ctx, reg, cfg.Registry.SweepInterval, logger)
	}

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	streamFetcher := newFetcher(cfg, client, cfg.Fetch.Headers, logger)
	// The catalog source expects its own client identification
	catalogFetcher := newFetcher(cfg, client, mergeHeaders(cfg.Fetch.Headers, cfg.Catalog.Headers), logger)

	interceptionService := application.NewInterceptionService(reg, streamFetcher, cfg.Proxy.BasePath, logger)
	catalogService := application.NewCatalogService(cfg.Catalog.SourceURL, cfg.CatalogProfiles(),
		catalogFetcher, snapshotRepo, newCatalogStore, logger)
	healthService := application.NewHealthService(snapshotRepo, cachePinger, reg, catalogService)

	swagger, err := api.GetSwagger()
	if err != nil {
		return fmt.Errorf("failed to load API description: %w", err)
	}

	router := driver.NewRouter(driver.RouterConfig{
		ProxyBase:      cfg.Proxy.BasePath,
		RateLimitRPS:   cfg.Resilience.RateLimitRPS,
		RateLimitBurst: cfg.Resilience.RateLimitBurst,
		Swagger:        swagger,
		Interception:   driver.NewInterceptionHTTPHandler(interceptionService, cfg.HTTP.SegmentWriteTimeout, logger),
		Catalog:        driver.NewCatalogHTTPHandler(catalogService, logger),
		Proxy:          driver.NewProxyHTTPHandler(interceptionService, cfg.HTTP.SegmentWriteTimeout, logger),
		Health:         driver.NewHealthHTTPHandler(healthService),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      otelhttp.NewHandler(router, "iptv-relay"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	go catalogService.Warm(ctx)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// catalogStores returns the catalog cache factory. With a Redis URL the
// catalogs are shared through Redis, otherwise each profile gets a memory
// store. The returned pinger is nil without Redis.
func catalogStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (application.CatalogStoreFactory, application.Pinger, func(), error) {
	if cfg.Cache.RedisURL == "" {
		factory := func(p catalog.Profile) cache.Store[catalog.Catalog] {
			return cache.NewMemoryStore[catalog.Catalog](p.TTL)
		}
		return factory, nil, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	health := cache.NewRedisStore[catalog.Catalog](client, "catalog", 0)
	if err := health.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, catalogs will be rebuilt until it recovers", "error", err)
	}

	factory := func(p catalog.Profile) cache.Store[catalog.Catalog] {
		return cache.NewRedisStore[catalog.Catalog](client, "catalog", p.TTL)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("error closing redis client", "error", err)
		}
	}
	return factory, health, closeFn, nil
}

func newFetcher(cfg *config.Config, client *http.Client, headers map[string]string, logger *slog.Logger) *fetcher.Fetcher {
	relays := make([]fetcher.Strategy, 0, len(cfg.Fetch.Relays))
	for _, rc := range cfg.RelayConfigs() {
		relays = append(relays, fetcher.NewRelayStrategy(client, rc))
	}

	return fetcher.New(fetcher.Config{
		TextTimeout:   cfg.Fetch.TextTimeout,
		BinaryTimeout: cfg.Fetch.BinaryTimeout,
		DocumentCache: cache.NewMemoryStore[fetcher.Resource](cfg.Cache.DocumentTTL),
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Resilience.CBFailureThreshold,
			Timeout:          cfg.Resilience.CBTimeout,
			HalfOpenRequests: cfg.Resilience.CBHalfOpenRequests,
		},
		Logger: logger,
	}, fetcher.NewDirectStrategy(client, headers), relays...)
}

func sweepRegistry(ctx context.Context, reg *registry.Registry, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := reg.Sweep(); removed > 0 {
				logger.Debug("expired resource handles removed", "count", removed)
			}
			metrics.SetRegistryHandles(reg.Len())
		}
	}
}

// mergeHeaders returns base overlaid with override
func mergeHeaders(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
