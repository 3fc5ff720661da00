package supabase

import (
	"context"
	"fmt"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

func investmentPayload(inv *domain.Investment) map[string]any {
	return map[string]any{
		"user_id":    inv.UserID,
		"type":       inv.Type,
		"symbol":     inv.Symbol,
		"name":       inv.Name,
		"quantity":   inv.Quantity,
		"cost_basis": inv.CostBasis,
		"currency":   inv.Currency,
	}
}

func (c *Client) ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvestments")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	body, err := c.get(ctx, "investments", newQuery().eq("user_id", userID).order("name.asc"))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Investment](body, "investments")
}

func (c *Client) GetInvestment(ctx context.Context, id, userID string) (*domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInvestment")
	defer span.End()

	body, err := c.get(ctx, "investments", newQuery().eq("id", id).eq("user_id", userID).limit(1))
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.Investment](body, "investment")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "investment", ID: id}
	}
	return &rows[0], nil
}

func (c *Client) CreateInvestment(ctx context.Context, inv *domain.Investment) (*domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateInvestment")
	defer span.End()

	body, err := c.insert(ctx, "investments", investmentPayload(inv), "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.Investment](body, "investment")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from investments insert")
	}
	return &rows[0], nil
}

func (c *Client) UpdateInvestment(ctx context.Context, inv *domain.Investment) (*domain.Investment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateInvestment")
	defer span.End()
	span.SetAttributes(attribute.String("investment.id", inv.ID))

	q := newQuery().eq("id", inv.ID).eq("user_id", inv.UserID)
	body, err := c.update(ctx, "investments", q, investmentPayload(inv))
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.Investment](body, "investment")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "investment", ID: inv.ID}
	}
	return &rows[0], nil
}

func (c *Client) DeleteInvestment(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteInvestment")
	defer span.End()

	body, err := c.remove(ctx, "investments", newQuery().eq("id", id).eq("user_id", userID))
	if err != nil {
		return err
	}
	n, err := countRows(body)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "investment", ID: id}
	}
	return nil
}
