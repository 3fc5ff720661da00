package supabase

import (
	"context"
	"fmt"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
)

type earningRow struct {
	domain.Earning
	Profiles *nameJoin `json:"profiles"`
}

func (c *Client) ListEarnings(ctx context.Context, from, until domain.Date, userID string) ([]domain.Earning, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListEarnings")
	defer span.End()

	q := newQuery().selectCols("*,profiles(name)").
		gte("earned_at", from.String()).
		lt("earned_at", until.String()).
		order("earned_at.asc")
	if userID != "" {
		q.eq("user_id", userID)
	}

	body, err := c.get(ctx, "earnings", q)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[earningRow](body, "earnings")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Earning, 0, len(rows))
	for _, r := range rows {
		e := r.Earning
		if r.Profiles != nil {
			e.UserName = r.Profiles.Name
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) CreateEarning(ctx context.Context, e *domain.Earning) (*domain.Earning, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateEarning")
	defer span.End()

	body, err := c.insert(ctx, "earnings", map[string]any{
		"user_id":     e.UserID,
		"amount":      e.Amount,
		"description": e.Description,
		"earned_at":   e.EarnedAt.String(),
	}, "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.Earning](body, "earning")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from earnings insert")
	}
	return &rows[0], nil
}
