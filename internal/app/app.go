// Package app wires configuration, adapters and services. It is shared by
// the API server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Matt-Gary/Accounting-app/internal/config"
	"github.com/Matt-Gary/Accounting-app/internal/infra/cache"
	"github.com/Matt-Gary/Accounting-app/internal/infra/client"
	"github.com/Matt-Gary/Accounting-app/internal/infra/events"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
	"github.com/Matt-Gary/Accounting-app/internal/infra/resilience"
	"github.com/Matt-Gary/Accounting-app/internal/infra/sqlite"
	"github.com/Matt-Gary/Accounting-app/internal/infra/supabase"
	"github.com/Matt-Gary/Accounting-app/internal/port"
	"github.com/Matt-Gary/Accounting-app/internal/service"

	"go.uber.org/zap"
)

// Store is a persistence backend that can report its health.
type Store interface {
	port.Store
	Ping(ctx context.Context) error
}

// App holds the wired services.
type App struct {
	Store        Store
	SQLite       *sqlite.Store // set only for the sqlite backend
	Materializer *service.Materializer
	Ledger       *service.LedgerService
	Recurring    *service.RecurringService
	Portfolio    *service.PortfolioService

	closers []func() error
}

// New builds the store, the price oracle client, the event publisher and
// the services on top of them.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*App, error) {
	a := &App{}

	rcfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store ---
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		a.Store, a.SQLite = s, s
		a.closers = append(a.closers, s.Close)
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, errors.New("SUPABASE_URL is required for the supabase backend")
		}
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		a.Store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			rcfg,
			logger,
		)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// --- Price oracle ---
	quoteCache := cache.New[float64](cfg.QuoteCacheTTL)
	a.closers = append(a.closers, func() error { quoteCache.Stop(); return nil })
	oracle := client.NewQuoteClient(
		httpClient,
		cfg.OracleURL,
		resilience.NewCircuitBreaker("price-oracle"),
		rcfg,
		quoteCache,
		metrics,
	)

	// --- Events ---
	var publisher port.EventPublisher = events.Noop{}
	if cfg.AMQPURL != "" {
		p, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			// Events are best effort; the ledger works without a broker.
			logger.Warn("AMQP unavailable, materialization events disabled", zap.Error(err))
		} else {
			publisher = p
			a.closers = append(a.closers, p.Close)
		}
	}

	// --- Services ---
	a.Materializer = service.NewMaterializer(a.Store, publisher, metrics, logger, cfg.MaxConcurrency)
	a.Ledger = service.NewLedgerService(a.Store, a.Materializer, cfg.MaterializeOnRead, metrics, logger)
	a.Recurring = service.NewRecurringService(a.Store, logger)
	a.Portfolio = service.NewPortfolioService(a.Store, oracle, cfg.OracleTimeout, metrics, logger)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
