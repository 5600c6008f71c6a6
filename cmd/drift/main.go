package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"drift/internal/api"
	"drift/internal/config"
	"drift/internal/connectivity"
	"drift/internal/events"
	"drift/internal/export"
	"drift/internal/logging"
	"drift/internal/metrics"
	"drift/internal/models"
	"drift/internal/queue"
	"drift/internal/reminder"
	"drift/internal/storage"
	"drift/internal/store"
	"drift/internal/sync"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, kvCloser, err := initStorage(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	if kvCloser != nil {
		defer (func(c io.Closer) { _ = c.Close() })(kvCloser)
	}

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	opQueue := queue.New(kv, &logger)
	if err := opQueue.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("queue snapshot unreadable, starting empty")
	}
	defer opQueue.WaitIdle()

	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.Timeout(), cfg.Server.RPS, cfg.Server.Burst, &logger)
	taskResource := api.Tasks(client)
	projectResource := api.Projects(client)

	monitor := connectivity.NewMonitor(false, &logger)
	probe := &connectivity.HTTPProvider{URL: cfg.Sync.ProbeURL}
	if probe.URL == "" {
		probe.URL = cfg.Server.BaseURL
	}
	go monitor.Run(ctx, probe, cfg.Sync.ProbeInterval(), nil)

	bus := events.NewEventBus()
	clock := clockwork.NewRealClock()
	taskStore := store.NewTaskStore(taskResource, opQueue, monitor, bus, &logger, clock)
	projectStore := store.NewProjectStore(projectResource, opQueue, monitor, bus, &logger, clock)

	coordinator := sync.NewCoordinator(opQueue, monitor, cfg.Sync.MaxAttempts, &logger)
	sync.RegisterStoreHandlers(coordinator, models.EntityTask, taskStore.Store)
	sync.RegisterStoreHandlers(coordinator, models.EntityProject, projectStore.Store)
	stopDrains := coordinator.Start(ctx)
	defer stopDrains()

	reconciler := reminder.NewReconciler(
		reminder.NewMemoryScheduler(),
		cfg.Reminders.Hour,
		cfg.Reminders.SettlePoll(),
		cfg.Reminders.SettleDeadline(),
		&logger,
		clock,
	)
	reconciler.Attach(ctx, bus)

	exporter := export.NewExporter(cfg.Exports.Path, &logger)
	handleExportSignal(ctx, exporter, taskStore, projectStore, &logger)

	// Cached state first, then the network once it answers.
	if err := taskStore.Fetch(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial task fetch")
	}
	if err := projectStore.Fetch(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial project fetch")
	}
	go func() {
		if err := coordinator.ProcessQueue(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("initial queue drain")
		}
	}()

	logger.Info().Msg("drift started")
	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "drift-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg.Storage.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			logger.Error().Err(err).Msg("create storage directory")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("create export directory")
		return err
	}
	return nil
}

// initStorage picks the durable KV per config. Redis gets an in-memory
// fallback so a broker outage degrades persistence instead of the app.
func initStorage(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (storage.KV, io.Closer, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		kv, err := storage.NewSQLiteKV(cfg.Storage.Path)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Storage.Path).Msg("open sqlite storage")
			return nil, nil, err
		}
		return kv, kv, nil

	case "redis":
		client := storage.NewRedisClient(cfg.Storage.Redis)
		if err := storage.Ping(ctx, client); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable")
		}
		kv := storage.NewFailoverKV(storage.NewRedisKV(client), storage.NewMemoryKV(), logger)
		return kv, client, nil

	case "memory":
		return storage.NewMemoryKV(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", port).Msg("metrics server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
}

// handleExportSignal writes the current snapshot to an Excel file on
// SIGUSR1.
func handleExportSignal(ctx context.Context, exporter *export.Exporter, tasks *store.TaskStore, projects *store.ProjectStore, logger *zerolog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(ch)
				return
			case <-ch:
				if _, err := exporter.Tasks(tasks.Records(), projects.Records()); err != nil {
					logger.Error().Err(err).Msg("export failed")
				}
			}
		}
	}()
}
