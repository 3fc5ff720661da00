package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/app"
	"github.com/Matt-Gary/Accounting-app/internal/config"
	"github.com/Matt-Gary/Accounting-app/internal/handler"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
	"github.com/Matt-Gary/Accounting-app/internal/scheduler"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "accounting-api")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("materialize_on_read", cfg.MaterializeOnRead),
		zap.String("materialize_cron", cfg.MaterializeCron),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("oracle_timeout", cfg.OracleTimeout),
		zap.Duration("quote_cache_ttl", cfg.QuoteCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("amqp_enabled", cfg.AMQPURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "accounting-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Services ---
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(startCtx, cfg, metrics, logger)
	startCancel()
	if err != nil {
		logger.Fatal("failed to wire services", zap.Error(err))
	}
	defer a.Close()

	// --- Scheduler ---
	var sched *scheduler.Scheduler
	if cfg.MaterializeCron != "" {
		sched, err = scheduler.New(cfg.MaterializeCron, a.Materializer, 5*time.Minute, logger)
		if err != nil {
			logger.Fatal("failed to configure scheduler", zap.Error(err))
		}
		sched.Start()
	} else if !cfg.MaterializeOnRead {
		logger.Warn("recurring expenses are neither materialized on read nor scheduled")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Ledger:       a.Ledger,
		Recurring:    a.Recurring,
		Materializer: a.Materializer,
		Portfolio:    a.Portfolio,
		Store:        a.Store,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
