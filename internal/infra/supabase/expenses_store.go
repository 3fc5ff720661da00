package supabase

import (
	"context"
	"fmt"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Expenses: CRUD and recurring links
// ============================================================

const expenseSelect = "*,categories(label),payment_methods(name,is_credit_card,closing_day),profiles(name)"

type labelJoin struct {
	Label string `json:"label"`
}

type nameJoin struct {
	Name string `json:"name"`
}

// expenseRow is an expenses row with its embedded joins.
type expenseRow struct {
	domain.Expense
	Categories     *labelJoin `json:"categories"`
	PaymentMethods *nameJoin  `json:"payment_methods"`
	Profiles       *nameJoin  `json:"profiles"`
}

func (r expenseRow) flatten() domain.Expense {
	e := r.Expense
	if r.Categories != nil {
		e.CategoryLabel = r.Categories.Label
	}
	if r.PaymentMethods != nil {
		e.PaymentMethodName = r.PaymentMethods.Name
	}
	if r.Profiles != nil {
		e.UserName = r.Profiles.Name
	}
	return e
}

func expensePayload(e *domain.Expense) map[string]any {
	return map[string]any{
		"user_id":           e.UserID,
		"amount":            e.Amount,
		"category_key":      e.CategoryKey,
		"payment_method_id": e.PaymentMethodID,
		"spent_at":          e.SpentAt.String(),
		"comment":           e.Comment,
		"currency":          e.Currency,
		"recurring_id":      e.RecurringID,
		"recurring_period":  e.RecurringPeriod,
	}
}

func (c *Client) ListExpenses(ctx context.Context, f domain.ExpenseFilter) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListExpenses")
	defer span.End()
	span.SetAttributes(
		attribute.String("from", f.From.String()),
		attribute.String("until", f.Until.String()),
	)

	if f.RecurringIDs != nil && len(f.RecurringIDs) == 0 {
		return []domain.Expense{}, nil
	}

	q := newQuery().selectCols(expenseSelect).order("spent_at.asc")
	if !f.From.IsZero() {
		q.gte("spent_at", f.From.String())
	}
	if !f.Until.IsZero() {
		q.lt("spent_at", f.Until.String())
	}
	if f.UserID != "" {
		q.eq("user_id", f.UserID)
	}
	if f.RecurringIDs != nil {
		q.in("recurring_id", f.RecurringIDs)
	}

	body, err := c.get(ctx, "expenses", q)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[expenseRow](body, "expenses")
	if err != nil {
		return nil, err
	}

	out := make([]domain.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.flatten())
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateExpense")
	defer span.End()

	body, err := c.insert(ctx, "expenses", expensePayload(e), "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[domain.Expense](body, "expense")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from expenses insert")
	}
	return &rows[0], nil
}

func (c *Client) DeleteExpense(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", id))

	q := newQuery().eq("id", id)
	if userID != "" {
		q.eq("user_id", userID)
	}
	body, err := c.remove(ctx, "expenses", q)
	if err != nil {
		return err
	}
	n, err := countRows(body)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return nil
}

// InsertMaterializedExpense relies on the unique constraint
// expenses(recurring_id, recurring_period): a duplicate comes back as an
// empty representation.
func (c *Client) InsertMaterializedExpense(ctx context.Context, e *domain.Expense) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertMaterializedExpense")
	defer span.End()
	if e.RecurringID != nil {
		span.SetAttributes(attribute.String("recurring.id", *e.RecurringID))
	}

	body, err := c.insert(ctx,
		"expenses?on_conflict=recurring_id,recurring_period",
		expensePayload(e),
		"resolution=ignore-duplicates,return=representation",
	)
	if err != nil {
		return false, err
	}
	rows, err := decodeRows[domain.Expense](body, "expense")
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	e.ID = rows[0].ID
	return true, nil
}

func expensePatchPayload(p domain.ExpensePatch) map[string]any {
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
	if p.Comment != nil {
		data["comment"] = *p.Comment
	}
	return data
}

func (c *Client) UpdateLinkedExpenses(ctx context.Context, recurringID string, from domain.Date, patch domain.ExpensePatch) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLinkedExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", recurringID))

	if patch.IsEmpty() {
		return 0, nil
	}
	q := newQuery().eq("recurring_id", recurringID).gte("spent_at", from.String())
	body, err := c.update(ctx, "expenses", q, expensePatchPayload(patch))
	if err != nil {
		return 0, err
	}
	return countRows(body)
}

func (c *Client) DeleteLinkedExpenses(ctx context.Context, recurringID string, from domain.Date) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteLinkedExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", recurringID))

	q := newQuery().eq("recurring_id", recurringID).gte("spent_at", from.String())
	body, err := c.remove(ctx, "expenses", q)
	if err != nil {
		return 0, err
	}
	return countRows(body)
}

func (c *Client) UnlinkExpenses(ctx context.Context, recurringID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UnlinkExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.id", recurringID))

	q := newQuery().eq("recurring_id", recurringID)
	body, err := c.update(ctx, "expenses", q, map[string]any{
		"recurring_id":     nil,
		"recurring_period": nil,
	})
	if err != nil {
		return 0, err
	}
	return countRows(body)
}

func (c *Client) CountLinkedExpenses(ctx context.Context, recurringID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountLinkedExpenses")
	defer span.End()

	body, err := c.get(ctx, "expenses", newQuery().selectCols("id").eq("recurring_id", recurringID))
	if err != nil {
		return 0, err
	}
	return countRows(body)
}
