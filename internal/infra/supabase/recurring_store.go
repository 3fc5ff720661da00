package supabase

import (
	"context"
	"fmt"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Recurring expense templates
// ============================================================

const recurringTable = "recurring_expenses"

func (c *Client) ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRecurring")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	q := newQuery().order("created_at.asc")
	if userID != "" {
		q.eq("user_id", userID)
	}
	if activeOnly {
		q.eq("active", "true")
	}
	body, err := c.get(ctx, recurringTable, q)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.RecurringTemplate](body, "recurring_expenses")
}

func (c *Client) GetRecurring(ctx context.Context, id string) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRecurring")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", id))

	body, err := c.get(ctx, recurringTable, newQuery().eq("id", id).limit(1))
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.RecurringTemplate](body, "recurring_expense")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	return &rows[0], nil
}

func (c *Client) CreateRecurring(ctx context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateRecurring")
	defer span.End()

	body, err := c.insert(ctx, recurringTable, map[string]any{
		"user_id":           r.UserID,
		"amount":            r.Amount,
		"category_key":      r.CategoryKey,
		"payment_method_id": r.PaymentMethodID,
		"day_of_month":      r.DayOfMonth,
		"description":       r.Description,
		"active":            r.Active,
	}, "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.RecurringTemplate](body, "recurring_expense")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from recurring_expenses insert")
	}
	return &rows[0], nil
}

func (c *Client) UpdateRecurring(ctx context.Context, id string, p domain.RecurringPatch) (*domain.RecurringTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRecurring")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", id))

	data := map[string]any{}
	if p.UserID != nil {
		data["user_id"] = *p.UserID
	}
	if p.Amount != nil {
		data["amount"] = *p.Amount
	}
	if p.CategoryKey != nil {
		data["category_key"] = *p.CategoryKey
	}
	if p.PaymentMethodID != nil {
		data["payment_method_id"] = *p.PaymentMethodID
	}
	if p.DayOfMonth != nil {
		data["day_of_month"] = *p.DayOfMonth
	}
	if p.Description != nil {
		data["description"] = *p.Description
	}
	if p.Active != nil {
		data["active"] = *p.Active
	}
	if len(data) == 0 {
		return c.GetRecurring(ctx, id)
	}

	body, err := c.update(ctx, recurringTable, newQuery().eq("id", id), data)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.RecurringTemplate](body, "recurring_expense")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	return &rows[0], nil
}

func (c *Client) DeleteRecurring(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRecurring")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", id))

	body, err := c.remove(ctx, recurringTable, newQuery().eq("id", id))
	if err != nil {
		return err
	}
	n, err := countRows(body)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	return nil
}
