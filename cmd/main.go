package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/topicsink/internal/adapters/http/api"
	"github.com/okian/topicsink/internal/adapters/mq/broker"
	"github.com/okian/topicsink/internal/adapters/repository"
	app "github.com/okian/topicsink/internal/app"
	"github.com/okian/topicsink/internal/config"
	"github.com/okian/topicsink/internal/domain/classifier"
	"github.com/okian/topicsink/internal/domain/collection"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/okian/topicsink/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := setupLogging(cfg); err != nil {
		os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "topicsink exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// setupLogging applies the configured format and level. An invalid level
// falls back to info.
func setupLogging(cfg *config.Config) error {
	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// run wires the store, service, broker subscriber and HTTP ops server and
// blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithDatabase(cfg.MongoDatabase),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithCollectionPolicy(collection.Policy(cfg.CollectionPolicy)),
		app.WithOverflowPolicy(classifier.OverflowPolicy(cfg.OverflowPolicy)),
	}
	if store != nil {
		opts = append(opts, app.WithStore(store))
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	var sub *broker.Subscriber
	if svc.SinkActive() {
		sub = broker.NewSubscriber(svc,
			broker.WithBroker(cfg.MQTTBroker),
			broker.WithClientID(cfg.MQTTClientID),
			broker.WithCredentials(cfg.MQTTUsername, cfg.MQTTPassword),
			broker.WithTopics(cfg.MQTTTopics...),
			broker.WithQoS(byte(cfg.MQTTQoS)),
			broker.WithConnectTimeout(cfg.ConnectTimeout()),
			broker.WithLogger(log.Named("broker")),
		)
		if err := sub.Start(ctx); err != nil {
			_ = svc.Stop(ctx)
			closeStore(store)
			return fmt.Errorf("start subscriber: %w", err)
		}
	}

	srv := newHTTPServer(ctx, cfg.Addr, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop intake first, then drain, then release the store.
		if sub != nil {
			sub.Stop(shutdownCtx)
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
		}
		closeStore(store)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		log.Info(shutdownCtx, "server stopped")
		return nil
	})

	return g.Wait()
}

// openStore connects to the document store. A missing URI is not an error:
// the sink stays inactive and nil is returned.
func openStore(ctx context.Context, cfg *config.Config) (repository.DocumentStore, error) {
	log := logger.Get()
	if !cfg.SinkEnabled() {
		log.Warn(ctx, "ingestion disabled", logger.Error(config.ErrConfigurationMissing))
		return nil, nil
	}

	store, err := repository.Connect(ctx, cfg.MongoURI,
		repository.WithDatabase(cfg.MongoDatabase),
		repository.WithInsertTimeout(cfg.InsertTimeout()),
		repository.WithConnectTimeout(cfg.ConnectTimeout()),
		repository.WithMaxPoolSize(uint64(cfg.MongoMaxPoolSize)), //nolint:gosec // validated positive by the option
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info(ctx, "connected to document store", logger.String("database", store.Database()))
	return store, nil
}

func closeStore(store repository.DocumentStore) {
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logger.Get().Error(ctx, "store close failed", logger.Error(err))
	}
}

func newHTTPServer(ctx context.Context, addr string, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is cancelled.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
