package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/google/uuid"
)

const investmentColumns = `id, user_id, type, symbol, name, quantity, cost_basis, currency`

func scanInvestment(row scanner) (domain.Investment, error) {
	var (
		inv    domain.Investment
		symbol sql.NullString
	)
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.Type, &symbol, &inv.Name,
		&inv.Quantity, &inv.CostBasis, &inv.Currency); err != nil {
		return inv, err
	}
	if symbol.Valid {
		inv.Symbol = &symbol.String
	}
	return inv, nil
}

func (s *Store) ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListInvestments")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+investmentColumns+" FROM investments WHERE user_id = ? ORDER BY name, id", userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	out := []domain.Investment{}
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) GetInvestment(ctx context.Context, id, userID string) (*domain.Investment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+investmentColumns+" FROM investments WHERE id = ? AND user_id = ?", id, userID)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "investment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get investment: %w", err)
	}
	return &inv, nil
}

func (s *Store) CreateInvestment(ctx context.Context, inv *domain.Investment) (*domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateInvestment")
	defer span.End()

	out := *inv
	out.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, "INSERT INTO investments ("+investmentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		out.ID, out.UserID, string(out.Type), out.Symbol, out.Name,
		out.Quantity.String(), out.CostBasis.String(), string(out.Currency))
	if err != nil {
		return nil, fmt.Errorf("insert investment: %w", err)
	}
	return &out, nil
}

func (s *Store) UpdateInvestment(ctx context.Context, inv *domain.Investment) (*domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateInvestment")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `UPDATE investments
		SET type = ?, symbol = ?, name = ?, quantity = ?, cost_basis = ?, currency = ?
		WHERE id = ? AND user_id = ?`,
		string(inv.Type), inv.Symbol, inv.Name, inv.Quantity.String(), inv.CostBasis.String(),
		string(inv.Currency), inv.ID, inv.UserID)
	if err != nil {
		return nil, fmt.Errorf("update investment: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &domain.ErrNotFound{Resource: "investment", ID: inv.ID}
	}
	out := *inv
	return &out, nil
}

func (s *Store) DeleteInvestment(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteInvestment")
	defer span.End()

	res, err := s.db.ExecContext(ctx, "DELETE FROM investments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "investment", ID: id}
	}
	return nil
}
