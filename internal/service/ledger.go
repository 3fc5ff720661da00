package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
	"github.com/Matt-Gary/Accounting-app/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LedgerService serves expenses, earnings, closing-day overrides and the
// period aggregations built from them.
type LedgerService struct {
	store             port.Store
	materializer      *Materializer
	materializeOnRead bool
	metrics           *observability.Metrics
	logger            *zap.Logger
	now               func() time.Time
}

// NewLedgerService creates the ledger service. When materializeOnRead is set,
// every period read first materializes recurring expenses for that period.
func NewLedgerService(store port.Store, materializer *Materializer, materializeOnRead bool, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:             store,
		materializer:      materializer,
		materializeOnRead: materializeOnRead,
		metrics:           metrics,
		logger:            logger,
		now:               time.Now,
	}
}

// WithClock replaces the clock. Intended for tests.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Dashboard aggregates the billing period p, optionally for one user.
func (s *LedgerService) Dashboard(ctx context.Context, p billing.Period, userID string) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Dashboard")
	defer span.End()
	span.SetAttributes(attribute.String("period", p.Key()), attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordRequestDuration("dashboard", time.Since(start))
		}
	}()

	if err := s.prepare(ctx, p, userID); err != nil {
		return nil, err
	}

	var (
		expenses []domain.Expense
		earnings []domain.Earning
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.periodExpenses(gCtx, p, userID)
		return err
	})
	g.Go(func() error {
		var err error
		earnings, err = s.periodEarnings(gCtx, p, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := aggregate(expenses, earnings)
	d.BillingPeriod = p.String()
	d.Month = int(p.Month)
	d.Year = p.Year
	d.GeneratedAt = s.now().UTC()
	return d, nil
}

// aggregate sums expenses by category label and user name and earnings by
// user name.
func aggregate(expenses []domain.Expense, earnings []domain.Earning) *domain.Dashboard {
	d := &domain.Dashboard{
		TotalSpent:       decimal.Zero,
		TotalEarned:      decimal.Zero,
		CategoryTotals:   map[string]decimal.Decimal{},
		UserSpendTotals:  map[string]decimal.Decimal{},
		UserEarnedTotals: map[string]decimal.Decimal{},
		Expenses:         expenses,
		Earnings:         earnings,
		ExpenseCount:     len(expenses),
	}
	for _, e := range expenses {
		d.TotalSpent = d.TotalSpent.Add(e.Amount)
		cat := firstNonEmpty(e.CategoryLabel, e.CategoryKey)
		d.CategoryTotals[cat] = d.CategoryTotals[cat].Add(e.Amount)
		user := firstNonEmpty(e.UserName, e.UserID)
		d.UserSpendTotals[user] = d.UserSpendTotals[user].Add(e.Amount)
	}
	for _, e := range earnings {
		d.TotalEarned = d.TotalEarned.Add(e.Amount)
		user := firstNonEmpty(e.UserName, e.UserID)
		d.UserEarnedTotals[user] = d.UserEarnedTotals[user].Add(e.Amount)
	}
	d.Balance = d.TotalEarned.Sub(d.TotalSpent)
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// MonthlyReport gathers the rows of the spreadsheet report for p.
func (s *LedgerService) MonthlyReport(ctx context.Context, p billing.Period, userID string) (*domain.MonthlyReport, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.MonthlyReport")
	defer span.End()

	if err := s.prepare(ctx, p, userID); err != nil {
		return nil, err
	}
	expenses, err := s.periodExpenses(ctx, p, userID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, &domain.ErrNotFound{Resource: "expenses", ID: p.String()}
	}
	earnings, err := s.periodEarnings(ctx, p, userID)
	if err != nil {
		return nil, err
	}
	return &domain.MonthlyReport{
		Month:    int(p.Month),
		Year:     p.Year,
		Expenses: expenses,
		Earnings: earnings,
	}, nil
}

// prepare materializes recurring expenses before a period read: for one
// user, or for every known user when no user filter is given.
func (s *LedgerService) prepare(ctx context.Context, p billing.Period, userID string) error {
	if !s.materializeOnRead || s.materializer == nil {
		return nil
	}
	if userID != "" {
		if _, err := s.materializer.Materialize(ctx, p, userID); err != nil {
			return fmt.Errorf("materialize: %w", err)
		}
		return nil
	}
	if _, err := s.materializer.MaterializeAll(ctx, p); err != nil {
		return fmt.Errorf("materialize: %w", err)
	}
	return nil
}

// lookupTable loads payment methods and closing-day overrides.
func (s *LedgerService) lookupTable(ctx context.Context) (*billing.Table, error) {
	var (
		methods   []domain.PaymentMethod
		overrides []domain.ClosingDayOverride
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		methods, err = s.store.ListPaymentMethods(gCtx)
		if err != nil {
			return fmt.Errorf("list payment methods: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		overrides, err = s.store.ListClosingDayOverrides(gCtx)
		if err != nil {
			return fmt.Errorf("list closing day overrides: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ms := make([]billing.Method, 0, len(methods))
	for _, pm := range methods {
		ms = append(ms, billing.Method{ID: pm.ID, IsCreditCard: pm.IsCreditCard, ClosingDay: pm.ClosingDay})
	}
	ov := make(map[billing.Period]int, len(overrides))
	for _, o := range overrides {
		ov[billing.Period{Month: time.Month(o.Month), Year: o.Year}] = o.ClosingDay
	}
	return billing.NewTable(ms, ov), nil
}

// periodExpenses fetches the wide candidate window and keeps the rows
// whose resolved billing period is p.
func (s *LedgerService) periodExpenses(ctx context.Context, p billing.Period, userID string) ([]domain.Expense, error) {
	table, err := s.lookupTable(ctx)
	if err != nil {
		return nil, err
	}
	from, until := table.QueryWindow(p)
	candidates, err := s.store.ListExpenses(ctx, domain.ExpenseFilter{
		From:   domain.DateOf(from),
		Until:  domain.DateOf(until),
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	out := make([]domain.Expense, 0, len(candidates))
	for _, e := range candidates {
		resolved, known := table.Resolve(e.SpentAt.Time, e.PaymentMethodID)
		if !known {
			s.logger.Warn("expense with unknown payment method, using calendar month",
				zap.String("expense_id", e.ID),
				zap.String("payment_method_id", e.PaymentMethodID),
			)
		}
		if resolved == p {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *LedgerService) periodEarnings(ctx context.Context, p billing.Period, userID string) ([]domain.Earning, error) {
	from, until := p.CalendarWindow()
	earnings, err := s.store.ListEarnings(ctx, domain.DateOf(from), domain.DateOf(until), userID)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return earnings, nil
}

// ============================================================
// Expenses & earnings
// ============================================================

func (s *LedgerService) CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.CreateExpense")
	defer span.End()

	if err := e.Validate(); err != nil {
		return nil, err
	}
	// Direct input never carries a template link.
	e.RecurringID, e.RecurringPeriod = nil, nil
	return s.store.CreateExpense(ctx, e)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "LedgerService.DeleteExpense")
	defer span.End()

	if id == "" {
		return &domain.ErrValidation{Field: "id", Message: "required"}
	}
	return s.store.DeleteExpense(ctx, id, userID)
}

// ListEarnings returns the earnings of calendar month p.
func (s *LedgerService) ListEarnings(ctx context.Context, p billing.Period, userID string) ([]domain.Earning, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.ListEarnings")
	defer span.End()
	return s.periodEarnings(ctx, p, userID)
}

func (s *LedgerService) CreateEarning(ctx context.Context, e *domain.Earning) (*domain.Earning, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.CreateEarning")
	defer span.End()

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateEarning(ctx, e)
}

// ============================================================
// Closing-day overrides
// ============================================================

func (s *LedgerService) ListClosingDays(ctx context.Context) ([]domain.ClosingDayOverride, error) {
	return s.store.ListClosingDayOverrides(ctx)
}

func (s *LedgerService) GetClosingDay(ctx context.Context, p billing.Period) (*domain.ClosingDayOverride, error) {
	return s.store.GetClosingDayOverride(ctx, int(p.Month), p.Year)
}

// SetClosingDay upserts the override for calendar month p.
func (s *LedgerService) SetClosingDay(ctx context.Context, p billing.Period, closingDay int) (*domain.ClosingDayOverride, error) {
	o := &domain.ClosingDayOverride{Month: int(p.Month), Year: p.Year, ClosingDay: closingDay}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	saved, err := s.store.UpsertClosingDayOverride(ctx, o)
	if err != nil {
		return nil, err
	}
	s.logger.Info("closing day override set",
		zap.String("period", p.String()),
		zap.Int("closing_day", closingDay),
	)
	return saved, nil
}

func (s *LedgerService) DeleteClosingDay(ctx context.Context, p billing.Period) error {
	ok, err := s.store.DeleteClosingDayOverride(ctx, int(p.Month), p.Year)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "closing_day_override", ID: strconv.Itoa(int(p.Month)) + "/" + strconv.Itoa(p.Year)}
	}
	return nil
}
