package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// LedgerAPI serves period reads, expenses, earnings and closing days.
type LedgerAPI interface {
	Dashboard(ctx context.Context, p billing.Period, userID string) (*domain.Dashboard, error)
	MonthlyReport(ctx context.Context, p billing.Period, userID string) (*domain.MonthlyReport, error)
	CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error
	ListEarnings(ctx context.Context, p billing.Period, userID string) ([]domain.Earning, error)
	CreateEarning(ctx context.Context, e *domain.Earning) (*domain.Earning, error)
	ListClosingDays(ctx context.Context) ([]domain.ClosingDayOverride, error)
	GetClosingDay(ctx context.Context, p billing.Period) (*domain.ClosingDayOverride, error)
	SetClosingDay(ctx context.Context, p billing.Period, closingDay int) (*domain.ClosingDayOverride, error)
	DeleteClosingDay(ctx context.Context, p billing.Period) error
}

// RecurringAPI manages recurring templates.
type RecurringAPI interface {
	List(ctx context.Context, userID string) ([]domain.RecurringTemplate, error)
	Create(ctx context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error)
	Update(ctx context.Context, id string, patch domain.RecurringPatch) (*domain.RecurringUpdate, error)
	Delete(ctx context.Context, id string) (*domain.RecurringDeletion, error)
}

// MaterializerAPI triggers materialization by hand.
type MaterializerAPI interface {
	Materialize(ctx context.Context, p billing.Period, userID string) (*domain.MaterializeResult, error)
	MaterializeAll(ctx context.Context, p billing.Period) ([]domain.MaterializeResult, error)
}

// PortfolioAPI values and manages holdings.
type PortfolioAPI interface {
	Value(ctx context.Context, userID string) (*domain.Portfolio, error)
	Distribution(ctx context.Context, userID string, types []domain.InvestmentType) (*domain.Distribution, error)
	Create(ctx context.Context, inv *domain.Investment) (*domain.Investment, error)
	Update(ctx context.Context, id, userID string, patch domain.InvestmentPatch) (*domain.Investment, error)
	Delete(ctx context.Context, id, userID string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the router serves. Nil members disable their routes.
type Services struct {
	Ledger       LedgerAPI
	Recurring    RecurringAPI
	Materializer MaterializerAPI
	Portfolio    PortfolioAPI
	Store        Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/health", healthHandler(svcs.Store))
	r.Get("/readyz", readyzHandler(svcs.Store, logger))
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	if svcs.Ledger != nil {
		r.Get("/dashboard", dashboardHandler(svcs.Ledger, logger))
		r.Get("/report/monthly", monthlyReportHandler(svcs.Ledger, logger))

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", createExpenseHandler(svcs.Ledger, logger))
			r.Delete("/{id}", deleteExpenseHandler(svcs.Ledger, logger))
		})
		r.Route("/earnings", func(r chi.Router) {
			r.Get("/", listEarningsHandler(svcs.Ledger, logger))
			r.Post("/", createEarningHandler(svcs.Ledger, logger))
		})
		r.Route("/closing-days", func(r chi.Router) {
			r.Get("/", listClosingDaysHandler(svcs.Ledger, logger))
			r.Get("/{year}/{month}", getClosingDayHandler(svcs.Ledger, logger))
			r.Put("/{year}/{month}", setClosingDayHandler(svcs.Ledger, logger))
			r.Delete("/{year}/{month}", deleteClosingDayHandler(svcs.Ledger, logger))
		})
	}

	r.Route("/recurring-expenses", func(r chi.Router) {
		if svcs.Materializer != nil {
			r.Post("/materialize", materializeHandler(svcs.Materializer, logger))
		}
		if svcs.Recurring != nil {
			r.Get("/", listRecurringHandler(svcs.Recurring, logger))
			r.Post("/", createRecurringHandler(svcs.Recurring, logger))
			r.Put("/{id}", updateRecurringHandler(svcs.Recurring, logger))
			r.Delete("/{id}", deleteRecurringHandler(svcs.Recurring, logger))
		}
	})

	if svcs.Portfolio != nil {
		r.Route("/investments", func(r chi.Router) {
			r.Get("/", listInvestmentsHandler(svcs.Portfolio, logger))
			r.Post("/", createInvestmentHandler(svcs.Portfolio, logger))
			r.Get("/distribution", distributionHandler(svcs.Portfolio, logger))
			r.Put("/{id}", updateInvestmentHandler(svcs.Portfolio, logger))
			r.Delete("/{id}", deleteInvestmentHandler(svcs.Portfolio, logger))
		})
	}

	return r
}

// ============================================================
// Health
// ============================================================

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "accounting-api", Status: "healthy", LastChecked: now},
		}
		status := "ok"

		if store != nil {
			start := time.Now()
			err := store.Ping(r.Context())
			s := domain.ServiceHealth{Name: "store", Status: "healthy", LatencyMs: time.Since(start).Milliseconds(), LastChecked: now}
			if err != nil {
				s.Status = "degraded"
				status = "degraded"
			}
			services = append(services, s)
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: status, Services: services})
	}
}

func readyzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
