package sqlite

import (
	"context"
	"fmt"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) ListEarnings(ctx context.Context, from, until domain.Date, userID string) ([]domain.Earning, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListEarnings")
	defer span.End()

	q := `SELECT e.id, e.user_id, e.amount, e.description, e.earned_at, COALESCE(p.name, '')
		FROM earnings e LEFT JOIN profiles p ON p.id = e.user_id
		WHERE e.earned_at >= ? AND e.earned_at < ?`
	args := []any{from.String(), until.String()}
	if userID != "" {
		q += " AND e.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY e.earned_at, e.id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	defer rows.Close()

	out := []domain.Earning{}
	for rows.Next() {
		var e domain.Earning
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Description, &e.EarnedAt, &e.UserName); err != nil {
			return nil, fmt.Errorf("scan earning: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEarning(ctx context.Context, e *domain.Earning) (*domain.Earning, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateEarning")
	defer span.End()

	out := *e
	out.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO earnings (id, user_id, amount, description, earned_at) VALUES (?, ?, ?, ?, ?)",
		out.ID, out.UserID, out.Amount.String(), out.Description, out.EarnedAt.String())
	if err != nil {
		return nil, fmt.Errorf("insert earning: %w", err)
	}
	return &out, nil
}
