package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoflightlog/internal/api"
	"autoflightlog/internal/config"
	"autoflightlog/internal/database"
	"autoflightlog/internal/domain"
	"autoflightlog/internal/events"
	"autoflightlog/internal/logging"
	"autoflightlog/internal/metrics"
	"autoflightlog/internal/repository"
	"autoflightlog/internal/service"
	"autoflightlog/internal/syncer"
	"autoflightlog/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	store, db, err := initStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := initLocker(cfg, redisClient, logger)

	eventBus := events.NewEventBus()
	metrics.Subscribe(eventBus)

	executor := syncer.NewExecutor(store, store, nil, syncer.Options{
		DefaultIntervalMinutes: cfg.Sync.DefaultIntervalMinutes,
		MaxJitterMinutes:       cfg.Sync.MaxJitterMinutes,
		Events:                 eventBus,
	}, logging.Component(logger, "syncer"))

	scheduler := worker.NewScheduler(store, executor, locker, worker.SchedulerOptions{
		TickInterval: cfg.Sync.TickEvery(),
		Events:       eventBus,
	}, logging.Component(logger, "scheduler"))

	connectorService := service.NewConnectorService(store, executor, nil, logging.Component(logger, "connectors"))
	viewService := service.NewViewService(store, nil, logging.Component(logger, "views"))
	entryService := service.NewEntryService(store, eventBus, nil, logging.Component(logger, "entries")).
		WithExportFields(cfg.Exports.Fields).
		WithViews(viewService)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 5*time.Second)
	_, err = viewService.EnsureDefault(seedCtx)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed default view: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)

	if cfg.Sync.Enabled {
		go scheduler.Run(ctx)
		logger.Info().
			Str("owner_id", scheduler.OwnerID()).
			Dur("tick_interval", cfg.Sync.TickEvery()).
			Msg("Auto-sync scheduler started")
	} else {
		logger.Warn().Msg("Auto-sync is disabled in config; only manual syncs will run")
	}

	if cfg.Backup.Enabled && db != nil {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	var health func(context.Context) error
	if db != nil {
		health = db.Health
	}
	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Connectors: connectorService,
		Entries:    entryService,
		Views:      viewService,
		Scheduler:  scheduler,
		Health:     health,
	}, logger)

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

// initStore returns the SQLite store, or an in-memory one in offline mode.
// db is nil in offline mode.
func initStore(cfg *config.Config, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	if cfg.Sync.OfflineStore {
		logger.Warn().Msg("Offline store enabled; data is kept in memory only")
		return repository.NewMemoryStore(), nil, nil
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, nil, err
	}
	return db, db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-process lock")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initLocker prefers the shared Redis lock and falls back to an in-process
// one, which only protects against overlap inside this process.
func initLocker(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.Locker {
	ttl := cfg.Sync.LockTTLDuration()
	fallback := repository.NewMemoryLocker(ttl, nil)
	if client == nil {
		return fallback
	}
	primary := repository.NewRedisLocker(client, cfg.Sync.LockKey, ttl, nil)
	return repository.NewFailoverLocker(primary, fallback, nil, logging.Component(logger, "lock"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.Enabled || !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Bool("api", cfg.API.Enabled).Int("http_port", cfg.API.HTTP.Port).Msg("AutoFlightLog started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("AutoFlightLog stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
