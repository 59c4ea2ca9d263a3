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

	"github.com/go-chi/chi/v5"

	"github.com/okian/clicker/internal/adapters/export"
	"github.com/okian/clicker/internal/adapters/http/api"
	"github.com/okian/clicker/internal/adapters/http/client"
	"github.com/okian/clicker/internal/adapters/http/site"
	"github.com/okian/clicker/internal/adapters/http/swagger"
	"github.com/okian/clicker/internal/adapters/prefs"
	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/adapters/ws"
	app "github.com/okian/clicker/internal/app"
	"github.com/okian/clicker/internal/config"
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/replay"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "clickerd failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("reinitialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	sink, err := openSink(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := newService(cfg, store, sink, log)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	live := ws.NewHandler(svc,
		ws.WithOriginPatterns(cfg.OriginPatterns()...),
		ws.WithLogger(log.Named("ws")),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(svc, live, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver),
			logger.String("export", cfg.ExportDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	live.Hub().CloseAll("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// openStore opens the document store selected by cfg.StoreDriver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return repository.NewMemoryStore(ctx), nil
	case "sqlite":
		s, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "http":
		return client.New(cfg.ScoreServerURL), nil
	default:
		return nil, fmt.Errorf("%w: store_driver %q", config.ErrUnknownDriver, cfg.StoreDriver)
	}
}

// openSink opens the export sink selected by cfg.ExportDriver.
func openSink(ctx context.Context, cfg *config.Config) (export.Sink, error) {
	switch cfg.ExportDriver {
	case "dir":
		return export.NewDirSink(cfg.ExportDir), nil
	case "s3":
		s, err := export.NewS3Sink(ctx, export.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: export_driver %q", config.ErrUnknownDriver, cfg.ExportDriver)
	}
}

func newService(cfg *config.Config, store repository.Store, sink export.Sink, log logger.Logger) *app.Service {
	bindings := capture.Bindings{Positive: cfg.KeyPositive, Negative: cfg.KeyNegative}
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithSink(sink),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithPublishedCacheSize(cfg.PublishedCacheSize),
		app.WithAppName(cfg.AppName),
		app.WithPublicBaseURL(cfg.PublicBaseURL),
		app.WithJudgeNameLimit(cfg.JudgeNameLimit),
		app.WithDefaultBindings(bindings),
		app.WithReplayOptions(
			replay.WithInterval(cfg.ReplayInterval()),
			replay.WithThreshold(cfg.JitterThreshold),
			replay.WithPreRoll(cfg.PreRollSeconds),
		),
	}
	if cfg.PrefsPath != "" {
		opts = append(opts, app.WithPrefs(prefs.Open(cfg.PrefsPath,
			prefs.WithDefaults(bindings),
			prefs.WithNameLimit(cfg.JudgeNameLimit),
			prefs.WithLogger(log.Named("prefs")),
		)), app.WithPrefsReadOnly())
	}
	return app.New(opts...)
}

// newRouter mounts the API, the live session endpoint, the API docs and the
// scoring page.
func newRouter(svc *app.Service, live http.Handler, log logger.Logger) chi.Router {
	r := api.NewServer(svc,
		api.WithLiveHandler(live),
		api.WithLogger(log.Named("http")),
	).Router()
	swagger.Register(r)
	site.Register(r)
	return r
}

// startServiceMetricsUpdater refreshes the queue and store gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.Stats(ctx)
	if n, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(n)
	}
	if n, ok := stats["storedDocuments"].(int); ok {
		metrics.UpdateStoredDocuments(n)
	}
	if n, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(n)
	}
}
