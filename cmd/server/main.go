package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"barangayreport/internal/api"
	"barangayreport/internal/audit"
	"barangayreport/internal/config"
	"barangayreport/internal/db"
	"barangayreport/internal/logging"
	"barangayreport/internal/memo"
	"barangayreport/internal/metrics"
	"barangayreport/internal/report"
	"barangayreport/internal/service"
	"barangayreport/internal/store"
	"barangayreport/internal/telemetry"
	"barangayreport/internal/version"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	info := version.Current()
	logger.Info("starting", zap.String("version", info.Version), zap.String("commit", info.Commit))

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	sqdb, dialect, err := db.Open(ctx, db.Options{
		Driver:      cfg.DBDriver,
		DSN:         cfg.DBDSN,
		Path:        cfg.DBPath,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer sqdb.Close()
	if err := db.Migrate(ctx, sqdb, dialect, logger); err != nil {
		return err
	}

	st := store.New(sqdb, dialect)
	m := metrics.New(prometheus.DefaultRegisterer)
	rec := audit.NewRecorder(st, logger, m, audit.WithLimits(cfg.LogQueryDefaultLimit, cfg.LogQueryMaxLimit))
	accounts := service.New(cfg, st, rec, m, logger)
	if err := accounts.EnsureBootstrapAdmin(ctx); err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		DB:       sqdb,
		Dialect:  dialect,
		Accounts: accounts,
		Reports:  report.NewManager(st, rec, m, logger),
		Memos:    memo.NewWorkflow(st, rec, m, logger),
		Audit:    rec,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
	})

	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("db", string(dialect)))
		if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := hsrv.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}
