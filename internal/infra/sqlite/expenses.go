package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const expenseColumns = `e.id, e.user_id, e.amount, e.category_key, e.payment_method_id, e.spent_at,
	e.comment, e.currency, e.recurring_id, e.recurring_period,
	COALESCE(c.label, ''), COALESCE(pm.name, ''), COALESCE(p.name, '')`

const expenseJoins = `FROM expenses e
	LEFT JOIN categories c ON c.key = e.category_key
	LEFT JOIN payment_methods pm ON pm.id = e.payment_method_id
	LEFT JOIN profiles p ON p.id = e.user_id`

func scanExpense(rows *sql.Rows) (domain.Expense, error) {
	var (
		e         domain.Expense
		recurring sql.NullString
		period    sql.NullString
	)
	err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.CategoryKey, &e.PaymentMethodID, &e.SpentAt,
		&e.Comment, &e.Currency, &recurring, &period,
		&e.CategoryLabel, &e.PaymentMethodName, &e.UserName)
	if err != nil {
		return e, err
	}
	if recurring.Valid {
		e.RecurringID = &recurring.String
	}
	if period.Valid {
		e.RecurringPeriod = &period.String
	}
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, f domain.ExpenseFilter) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListExpenses")
	defer span.End()
	span.SetAttributes(
		attribute.String("from", f.From.String()),
		attribute.String("until", f.Until.String()),
	)

	if f.RecurringIDs != nil && len(f.RecurringIDs) == 0 {
		return []domain.Expense{}, nil
	}

	var (
		where []string
		args  []any
	)
	if !f.From.IsZero() {
		where = append(where, "e.spent_at >= ?")
		args = append(args, f.From.String())
	}
	if !f.Until.IsZero() {
		where = append(where, "e.spent_at < ?")
		args = append(args, f.Until.String())
	}
	if f.UserID != "" {
		where = append(where, "e.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.RecurringIDs != nil {
		where = append(where, "e.recurring_id IN ("+placeholders(len(f.RecurringIDs))+")")
		for _, id := range f.RecurringIDs {
			args = append(args, id)
		}
	}

	q := "SELECT " + expenseColumns + " " + expenseJoins
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.spent_at, e.id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateExpense")
	defer span.End()

	out := *e
	out.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO expenses
		(id, user_id, amount, category_key, payment_method_id, spent_at, comment, currency, recurring_id, recurring_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.Amount.String(), out.CategoryKey, out.PaymentMethodID, out.SpentAt.String(),
		out.Comment, out.Currency, out.RecurringID, out.RecurringPeriod)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	return &out, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteExpense")
	defer span.End()

	q := "DELETE FROM expenses WHERE id = ?"
	args := []any{id}
	if userID != "" {
		q += " AND user_id = ?"
		args = append(args, userID)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return nil
}

func (s *Store) InsertMaterializedExpense(ctx context.Context, e *domain.Expense) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.InsertMaterializedExpense")
	defer span.End()

	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `INSERT INTO expenses
		(id, user_id, amount, category_key, payment_method_id, spent_at, comment, currency, recurring_id, recurring_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (recurring_id, recurring_period) DO NOTHING`,
		id, e.UserID, e.Amount.String(), e.CategoryKey, e.PaymentMethodID, e.SpentAt.String(),
		e.Comment, e.Currency, e.RecurringID, e.RecurringPeriod)
	if err != nil {
		return false, fmt.Errorf("insert materialized expense: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	e.ID = id
	return true, nil
}

func (s *Store) UpdateLinkedExpenses(ctx context.Context, recurringID string, from domain.Date, p domain.ExpensePatch) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateLinkedExpenses")
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
	if p.Comment != nil {
		set = append(set, "comment = ?")
		args = append(args, *p.Comment)
	}
	if len(set) == 0 {
		return 0, nil
	}
	args = append(args, recurringID, from.String())

	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET "+strings.Join(set, ", ")+" WHERE recurring_id = ? AND spent_at >= ?", args...)
	if err != nil {
		return 0, fmt.Errorf("update linked expenses: %w", err)
	}
	return rowsAffected(res)
}

func (s *Store) DeleteLinkedExpenses(ctx context.Context, recurringID string, from domain.Date) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteLinkedExpenses")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE recurring_id = ? AND spent_at >= ?", recurringID, from.String())
	if err != nil {
		return 0, fmt.Errorf("delete linked expenses: %w", err)
	}
	return rowsAffected(res)
}

func (s *Store) UnlinkExpenses(ctx context.Context, recurringID string) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UnlinkExpenses")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET recurring_id = NULL, recurring_period = NULL WHERE recurring_id = ?", recurringID)
	if err != nil {
		return 0, fmt.Errorf("unlink expenses: %w", err)
	}
	return rowsAffected(res)
}

func (s *Store) CountLinkedExpenses(ctx context.Context, recurringID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE recurring_id = ?", recurringID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count linked expenses: %w", err)
	}
	return n, nil
}
