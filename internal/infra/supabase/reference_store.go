package supabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
)

// ============================================================
// Reference data and closing-day overrides
// ============================================================

func (c *Client) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPaymentMethods")
	defer span.End()

	body, err := c.get(ctx, "payment_methods", newQuery().selectCols("id,name,is_credit_card,closing_day"))
	if err != nil {
		return nil, err
	}
	// closing_day is nullable.
	type row struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		IsCreditCard bool   `json:"is_credit_card"`
		ClosingDay   *int   `json:"closing_day"`
	}
	rows, err := decodeRows[row](body, "payment_methods")
	if err != nil {
		return nil, err
	}
	out := make([]domain.PaymentMethod, 0, len(rows))
	for _, r := range rows {
		pm := domain.PaymentMethod{ID: r.ID, Name: r.Name, IsCreditCard: r.IsCreditCard}
		if r.ClosingDay != nil {
			pm.ClosingDay = *r.ClosingDay
		}
		out = append(out, pm)
	}
	return out, nil
}

func (c *Client) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	body, err := c.get(ctx, "profiles", newQuery().selectCols("id,name").order("name.asc"))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Profile](body, "profiles")
}

const overridesTable = "closing_day_overrides"

func (c *Client) ListClosingDayOverrides(ctx context.Context) ([]domain.ClosingDayOverride, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClosingDayOverrides")
	defer span.End()

	body, err := c.get(ctx, overridesTable, newQuery().selectCols("month,year,closing_day").order("year.asc,month.asc"))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ClosingDayOverride](body, overridesTable)
}

func (c *Client) GetClosingDayOverride(ctx context.Context, month, year int) (*domain.ClosingDayOverride, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetClosingDayOverride")
	defer span.End()

	q := newQuery().selectCols("month,year,closing_day").eqInt("month", month).eqInt("year", year).limit(1)
	body, err := c.get(ctx, overridesTable, q)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.ClosingDayOverride](body, overridesTable)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "closing_day_override", ID: strconv.Itoa(month) + "/" + strconv.Itoa(year)}
	}
	return &rows[0], nil
}

// UpsertClosingDayOverride merges on the (month, year) unique key.
func (c *Client) UpsertClosingDayOverride(ctx context.Context, o *domain.ClosingDayOverride) (*domain.ClosingDayOverride, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertClosingDayOverride")
	defer span.End()

	body, err := c.insert(ctx, overridesTable+"?on_conflict=month,year", map[string]any{
		"month":       o.Month,
		"year":        o.Year,
		"closing_day": o.ClosingDay,
	}, "resolution=merge-duplicates,return=representation")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.ClosingDayOverride](body, overridesTable)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from %s upsert", overridesTable)
	}
	return &rows[0], nil
}

func (c *Client) DeleteClosingDayOverride(ctx context.Context, month, year int) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteClosingDayOverride")
	defer span.End()

	body, err := c.remove(ctx, overridesTable, newQuery().eqInt("month", month).eqInt("year", year))
	if err != nil {
		return false, err
	}
	n, err := countRows(body)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
