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

	"github.com/okian/peerfeedback/internal/adapters/http/api"
	"github.com/okian/peerfeedback/internal/adapters/http/swagger"
	"github.com/okian/peerfeedback/internal/adapters/repository"
	"github.com/okian/peerfeedback/internal/adapters/repository/postgres"
	"github.com/okian/peerfeedback/internal/adapters/repository/sheets"
	app "github.com/okian/peerfeedback/internal/app"
	"github.com/okian/peerfeedback/internal/config"
	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/pkg/logger"
	"github.com/okian/peerfeedback/pkg/metrics"
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
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	metrics.Init(metricsOptions(cfg)...)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	svc := app.New(
		app.WithStore(store),
		app.WithLogger(log.Named("service")),
		app.WithReportRefresh(cfg.ReportRefresh()),
		app.WithMaxReportTargets(cfg.MaxReportTargets),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	if cfg.MetricsEnabled {
		go startSystemMetricsUpdater(ctx, metrics.SystemRefreshInterval())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store),
			logger.String("duplicatePolicy", cfg.DuplicatePolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// metricsOptions maps the metrics keys of cfg onto manager options.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	}
}

// newMux registers docs and business routes.
func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithSubmitRate(cfg.SubmitRatePerSec, cfg.SubmitBurst)).Register(ctx, mux)
	return mux
}

// openStore builds the gateway selected by cfg.Store. Seed users are loaded
// into the memory store and upserted into postgres.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	policy, err := repository.ParseDuplicatePolicy(cfg.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	var seed []model.User
	if cfg.SeedFile != "" {
		if seed, err = repository.LoadSeed(cfg.SeedFile); err != nil {
			return nil, err
		}
		log.Info(ctx, "loaded seed users", logger.String("file", cfg.SeedFile), logger.Int("users", len(seed)))
	}

	switch cfg.Store {
	case config.StoreMemory:
		st := repository.NewMemoryStore(repository.WithDuplicatePolicy(policy))
		if err := st.PutUsers(seed...); err != nil {
			return nil, err
		}
		return st, nil

	case config.StorePostgres:
		st, err := postgres.Open(ctx, cfg.PostgresDSN,
			postgres.WithDuplicatePolicy(policy),
			postgres.WithLogger(log.Named("postgres")),
		)
		if err != nil {
			return nil, err
		}
		if err := st.UpsertUsers(ctx, seed...); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil

	case config.StoreSheets:
		if len(seed) > 0 {
			log.Warn(ctx, "seed_file is ignored by the sheets store")
		}
		return sheets.New(cfg.SheetsURL,
			sheets.WithTimeout(cfg.SheetsTimeout()),
			sheets.WithLogger(log.Named("sheets")),
		)

	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

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
