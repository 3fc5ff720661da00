package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
	"github.com/Matt-Gary/Accounting-app/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

// MaterializerStore is what the materializer needs from persistence.
type MaterializerStore interface {
	port.ReferenceStore
	port.RecurringStore
	port.ExpenseStore
}

// Materializer turns active recurring templates into concrete expenses,
// at most one per template and calendar month.
type Materializer struct {
	store          MaterializerStore
	events         port.EventPublisher
	metrics        *observability.Metrics
	logger         *zap.Logger
	maxConcurrency int
}

// NewMaterializer creates the materializer. events may be nil.
func NewMaterializer(store MaterializerStore, events port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger, maxConcurrency int) *Materializer {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Materializer{
		store:          store,
		events:         events,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Materialize creates the missing expenses of p for one user's active
// templates. Re-running it for the same period creates nothing.
func (m *Materializer) Materialize(ctx context.Context, p billing.Period, userID string) (*domain.MaterializeResult, error) {
	ctx, span := tracer.Start(ctx, "Materializer.Materialize")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("period", p.Key()))

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	}

	result := &domain.MaterializeResult{UserID: userID, Period: p.Key(), Created: []string{}}

	templates, err := m.store.ListRecurring(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	if len(templates) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}

	// Existing links are looked up by template id, not by the expense's
	// user, so a template whose user changed still sees its own rows.
	from, until := p.CalendarWindow()
	existing, err := m.store.ListExpenses(ctx, domain.ExpenseFilter{
		From:         domain.DateOf(from),
		Until:        domain.DateOf(until),
		RecurringIDs: ids,
	})
	if err != nil {
		return nil, fmt.Errorf("list materialized expenses: %w", err)
	}
	done := make(map[string]bool, len(existing))
	for _, e := range existing {
		if e.IsMaterialized() && p.Contains(e.SpentAt.Time) {
			done[*e.RecurringID] = true
		}
	}

	for i := range templates {
		t := &templates[i]
		target := domain.DateOf(p.Day(t.DayOfMonth))

		if isBackdated(target, t.CreatedAt) {
			result.Backdated++
			m.record(observability.OutcomeBackdated)
			continue
		}
		if done[t.ID] {
			result.Duplicates++
			m.record(observability.OutcomeDuplicate)
			continue
		}

		id, period := t.ID, p.Key()
		e := &domain.Expense{
			UserID:          t.UserID,
			Amount:          t.Amount,
			CategoryKey:     t.CategoryKey,
			PaymentMethodID: t.PaymentMethodID,
			SpentAt:         target,
			Comment:         t.MaterializedComment(),
			Currency:        string(domain.CurrencyBRL),
			RecurringID:     &id,
			RecurringPeriod: &period,
		}
		created, err := m.store.InsertMaterializedExpense(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("materialize template %s: %w", t.ID, err)
		}
		if !created {
			// Lost the race against a concurrent pass.
			result.Duplicates++
			m.record(observability.OutcomeDuplicate)
			continue
		}

		done[t.ID] = true
		result.Created = append(result.Created, e.ID)
		m.record(observability.OutcomeCreated)
		m.publish(ctx, e)
	}

	if len(result.Created) > 0 {
		m.logger.Info("recurring expenses materialized",
			zap.String("user_id", userID),
			zap.String("period", p.Key()),
			zap.Int("created", len(result.Created)),
		)
	}
	return result, nil
}

// MaterializeAll runs Materialize for every known profile with bounded
// concurrency. The first failure cancels the remaining users.
func (m *Materializer) MaterializeAll(ctx context.Context, p billing.Period) ([]domain.MaterializeResult, error) {
	ctx, span := tracer.Start(ctx, "Materializer.MaterializeAll")
	defer span.End()

	profiles, err := m.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	results := make([]domain.MaterializeResult, len(profiles))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxConcurrency)
	for i, prof := range profiles {
		g.Go(func() error {
			r, err := m.Materialize(gCtx, p, prof.ID)
			if err != nil {
				m.logger.Error("materialization failed",
					zap.String("user_id", prof.ID),
					zap.String("period", p.Key()),
					zap.Error(err),
				)
				return err
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// isBackdated reports whether target lies more than one day before the
// template's creation date.
func isBackdated(target domain.Date, createdAt time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	floor := domain.DateOf(createdAt.UTC()).AddDays(-1)
	return target.Before(floor.Time)
}

func (m *Materializer) record(outcome string) {
	if m.metrics != nil {
		m.metrics.IncrMaterialized(outcome)
	}
}

// publish is best effort: the expense is already stored.
func (m *Materializer) publish(ctx context.Context, e *domain.Expense) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishExpenseMaterialized(ctx, e); err != nil {
		m.logger.Warn("failed to publish expense.materialized",
			zap.String("expense_id", e.ID),
			zap.Error(err),
		)
	}
}
