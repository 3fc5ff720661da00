package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RecurringStore is what template management needs from persistence.
type RecurringStore interface {
	port.RecurringStore
	port.ExpenseStore
}

// RecurringService manages templates and keeps their linked expenses in
// step: edits reach the current month onward, deletion removes future
// expenses and detaches past ones.
type RecurringService struct {
	store  RecurringStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRecurringService(store RecurringStore, logger *zap.Logger) *RecurringService {
	return &RecurringService{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the clock. Intended for tests.
func (s *RecurringService) WithClock(now func() time.Time) *RecurringService {
	s.now = now
	return s
}

// currentMonthStart is the first day of the current calendar month. Linked
// expenses dated before it are history and are never rewritten.
func (s *RecurringService) currentMonthStart() domain.Date {
	now := s.now().UTC()
	return domain.NewDate(now.Year(), now.Month(), 1)
}

func (s *RecurringService) List(ctx context.Context, userID string) ([]domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "RecurringService.List")
	defer span.End()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	}
	return s.store.ListRecurring(ctx, userID, false)
}

func (s *RecurringService) Create(ctx context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "RecurringService.Create")
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, err
	}
	// The creation time anchors the backdating guard and is never taken
	// from the caller.
	r.ID = ""
	r.CreatedAt = s.now().UTC()
	return s.store.CreateRecurring(ctx, r)
}

// Update applies patch and propagates the changed fields to every linked
// expense dated on or after the first day of the current month.
func (s *RecurringService) Update(ctx context.Context, id string, patch domain.RecurringPatch) (*domain.RecurringUpdate, error) {
	ctx, span := tracer.Start(ctx, "RecurringService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", id))

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetRecurring(ctx, id); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateRecurring(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update recurring template: %w", err)
	}

	result := &domain.RecurringUpdate{RecurringTemplate: *updated}
	ep := patch.Propagation(updated)
	if ep.IsEmpty() {
		return result, nil
	}

	from := s.currentMonthStart()
	n, err := s.store.UpdateLinkedExpenses(ctx, id, from, ep)
	if err != nil {
		s.logger.Error("template updated but propagation failed",
			zap.String("recurring_id", id),
			zap.Error(err),
		)
		return nil, &domain.ErrPartialFailure{
			Operation: "update recurring expense",
			Step:      "propagate to linked expenses",
			Err:       err,
		}
	}
	result.PropagatedExpenses = n

	s.logger.Info("recurring template updated",
		zap.String("recurring_id", id),
		zap.String("from", from.String()),
		zap.Int("propagated", n),
	)
	return result, nil
}

// Delete removes linked expenses from the current month on, detaches the
// older ones and deletes the template only when nothing references it.
func (s *RecurringService) Delete(ctx context.Context, id string) (*domain.RecurringDeletion, error) {
	ctx, span := tracer.Start(ctx, "RecurringService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", id))

	if _, err := s.store.GetRecurring(ctx, id); err != nil {
		return nil, err
	}

	const op = "delete recurring expense"
	from := s.currentMonthStart()

	deleted, err := s.store.DeleteLinkedExpenses(ctx, id, from)
	if err != nil {
		return nil, fmt.Errorf("delete future linked expenses: %w", err)
	}

	unlinked, err := s.store.UnlinkExpenses(ctx, id)
	if err != nil {
		return nil, &domain.ErrPartialFailure{Operation: op, Step: "unlink past expenses", Err: err}
	}

	remaining, err := s.store.CountLinkedExpenses(ctx, id)
	if err != nil {
		return nil, &domain.ErrPartialFailure{Operation: op, Step: "verify no linked expenses remain", Err: err}
	}
	if remaining > 0 {
		s.logger.Warn("recurring template still referenced after unlink",
			zap.String("recurring_id", id),
			zap.Int("remaining", remaining),
		)
		return nil, &domain.ErrConflict{
			Message: fmt.Sprintf("recurring expense %s is still referenced by %d expenses", id, remaining),
		}
	}

	if err := s.store.DeleteRecurring(ctx, id); err != nil {
		return nil, &domain.ErrPartialFailure{Operation: op, Step: "delete template", Err: err}
	}

	s.logger.Info("recurring template deleted",
		zap.String("recurring_id", id),
		zap.Int("deleted_expenses", deleted),
		zap.Int("unlinked_expenses", unlinked),
	)
	return &domain.RecurringDeletion{ID: id, DeletedExpenses: deleted, UnlinkedExpenses: unlinked}, nil
}
