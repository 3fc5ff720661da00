package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
)

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, is_credit_card, closing_day FROM payment_methods ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	out := []domain.PaymentMethod{}
	for rows.Next() {
		var (
			pm      domain.PaymentMethod
			closing sql.NullInt64
		)
		if err := rows.Scan(&pm.ID, &pm.Name, &pm.IsCreditCard, &closing); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		pm.ClosingDay = int(closing.Int64)
		out = append(out, pm)
	}
	return out, rows.Err()
}

func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM profiles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []domain.Profile{}
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePaymentMethod inserts or replaces a payment method. Reference data is
// read-only over HTTP; this is used by the CLI seed command and tests.
func (s *Store) SavePaymentMethod(ctx context.Context, pm domain.PaymentMethod) error {
	var closing any
	if pm.ClosingDay > 0 {
		closing = pm.ClosingDay
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO payment_methods (id, name, is_credit_card, closing_day)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			is_credit_card = excluded.is_credit_card, closing_day = excluded.closing_day`,
		pm.ID, pm.Name, pm.IsCreditCard, closing)
	if err != nil {
		return fmt.Errorf("save payment method: %w", err)
	}
	return nil
}

// SaveProfile inserts or renames a profile.
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// SaveCategory inserts or relabels a category.
func (s *Store) SaveCategory(ctx context.Context, c domain.Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories (key, label) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET label = excluded.label`, c.Key, c.Label)
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func (s *Store) ListClosingDayOverrides(ctx context.Context) ([]domain.ClosingDayOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT month, year, closing_day FROM closing_day_overrides ORDER BY year, month")
	if err != nil {
		return nil, fmt.Errorf("list closing day overrides: %w", err)
	}
	defer rows.Close()

	out := []domain.ClosingDayOverride{}
	for rows.Next() {
		var o domain.ClosingDayOverride
		if err := rows.Scan(&o.Month, &o.Year, &o.ClosingDay); err != nil {
			return nil, fmt.Errorf("scan closing day override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetClosingDayOverride(ctx context.Context, month, year int) (*domain.ClosingDayOverride, error) {
	o := domain.ClosingDayOverride{Month: month, Year: year}
	err := s.db.QueryRowContext(ctx,
		"SELECT closing_day FROM closing_day_overrides WHERE month = ? AND year = ?", month, year).Scan(&o.ClosingDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "closing_day_override", ID: strconv.Itoa(month) + "/" + strconv.Itoa(year)}
	}
	if err != nil {
		return nil, fmt.Errorf("get closing day override: %w", err)
	}
	return &o, nil
}

func (s *Store) UpsertClosingDayOverride(ctx context.Context, o *domain.ClosingDayOverride) (*domain.ClosingDayOverride, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO closing_day_overrides (month, year, closing_day) VALUES (?, ?, ?)
		ON CONFLICT (month, year) DO UPDATE SET closing_day = excluded.closing_day`,
		o.Month, o.Year, o.ClosingDay)
	if err != nil {
		return nil, fmt.Errorf("upsert closing day override: %w", err)
	}
	out := *o
	return &out, nil
}

func (s *Store) DeleteClosingDayOverride(ctx context.Context, month, year int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM closing_day_overrides WHERE month = ? AND year = ?", month, year)
	if err != nil {
		return false, fmt.Errorf("delete closing day override: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
