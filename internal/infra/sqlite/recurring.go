package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/google/uuid"
)

const recurringColumns = `id, user_id, amount, category_key, payment_method_id, day_of_month, description, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecurring(row scanner) (domain.RecurringTemplate, error) {
	var (
		r       domain.RecurringTemplate
		created string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Amount, &r.CategoryKey, &r.PaymentMethodID,
		&r.DayOfMonth, &r.Description, &r.Active, &created); err != nil {
		return r, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return r, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return r, nil
}

func (s *Store) ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListRecurring")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if userID != "" {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if activeOnly {
		where = append(where, "active = 1")
	}
	q := "SELECT " + recurringColumns + " FROM recurring_expenses"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	defer rows.Close()

	out := []domain.RecurringTemplate{}
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRecurring(ctx context.Context, id string) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetRecurring")
	defer span.End()

	row := s.db.QueryRowContext(ctx, "SELECT "+recurringColumns+" FROM recurring_expenses WHERE id = ?", id)
	r, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring: %w", err)
	}
	return &r, nil
}

func (s *Store) CreateRecurring(ctx context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateRecurring")
	defer span.End()

	out := *r
	out.ID = uuid.NewString()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO recurring_expenses (`+recurringColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.Amount.String(), out.CategoryKey, out.PaymentMethodID,
		out.DayOfMonth, out.Description, out.Active, out.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert recurring: %w", err)
	}
	return &out, nil
}

func (s *Store) UpdateRecurring(ctx context.Context, id string, p domain.RecurringPatch) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateRecurring")
	defer span.End()

	var (
		set  []string
		args []any
	)
	if p.UserID != nil {
		set = append(set, "user_id = ?")
		args = append(args, *p.UserID)
	}
	if p.Amount != nil {
		set = append(set, "amount = ?")
		args = append(args, p.Amount.String())
	}
	if p.CategoryKey != nil {
		set = append(set, "category_key = ?")
		args = append(args, *p.CategoryKey)
	}
	if p.PaymentMethodID != nil {
		set = append(set, "payment_method_id = ?")
		args = append(args, *p.PaymentMethodID)
	}
	if p.DayOfMonth != nil {
		set = append(set, "day_of_month = ?")
		args = append(args, *p.DayOfMonth)
	}
	if p.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Active != nil {
		set = append(set, "active = ?")
		args = append(args, *p.Active)
	}
	if len(set) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx,
			"UPDATE recurring_expenses SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, fmt.Errorf("update recurring: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
		}
	}
	return s.GetRecurring(ctx, id)
}

func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteRecurring")
	defer span.End()

	res, err := s.db.ExecContext(ctx, "DELETE FROM recurring_expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete recurring: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	return nil
}
