package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecurringTemplate generates at most one expense per calendar month.
type RecurringTemplate struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	CategoryKey     string          `json:"category_key"`
	PaymentMethodID string          `json:"payment_method_id"`
	DayOfMonth      int             `json:"day_of_month"`
	Description     string          `json:"description"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (r *RecurringTemplate) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return &ErrValidation{Field: "user_id", Message: "required"}
	}
	if !r.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if r.CategoryKey == "" {
		return &ErrValidation{Field: "category_key", Message: "required"}
	}
	if r.PaymentMethodID == "" {
		return &ErrValidation{Field: "payment_method_id", Message: "required"}
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return &ErrValidation{Field: "day_of_month", Message: "must be between 1 and 31"}
	}
	return nil
}

// MaterializedComment is the comment written on generated expenses.
func (r *RecurringTemplate) MaterializedComment() string {
	return "Recurring: " + r.Description
}

// RecurringPatch is a partial update of a template. Nil fields are unchanged.
type RecurringPatch struct {
	UserID          *string          `json:"user_id,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	CategoryKey     *string          `json:"category_key,omitempty"`
	PaymentMethodID *string          `json:"payment_method_id,omitempty"`
	DayOfMonth      *int             `json:"day_of_month,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

func (p *RecurringPatch) Validate() error {
	if p.UserID != nil && strings.TrimSpace(*p.UserID) == "" {
		return &ErrValidation{Field: "user_id", Message: "must not be empty"}
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if p.CategoryKey != nil && *p.CategoryKey == "" {
		return &ErrValidation{Field: "category_key", Message: "must not be empty"}
	}
	if p.PaymentMethodID != nil && *p.PaymentMethodID == "" {
		return &ErrValidation{Field: "payment_method_id", Message: "must not be empty"}
	}
	if p.DayOfMonth != nil && (*p.DayOfMonth < 1 || *p.DayOfMonth > 31) {
		return &ErrValidation{Field: "day_of_month", Message: "must be between 1 and 31"}
	}
	return nil
}

// Propagation returns the expense changes implied by this template update.
// Day of month and active flag never touch existing expenses.
func (p *RecurringPatch) Propagation(updated *RecurringTemplate) ExpensePatch {
	var ep ExpensePatch
	if p.UserID != nil {
		ep.UserID = &updated.UserID
	}
	if p.Amount != nil {
		ep.Amount = &updated.Amount
	}
	if p.CategoryKey != nil {
		ep.CategoryKey = &updated.CategoryKey
	}
	if p.PaymentMethodID != nil {
		ep.PaymentMethodID = &updated.PaymentMethodID
	}
	if p.Description != nil {
		c := updated.MaterializedComment()
		ep.Comment = &c
	}
	return ep
}

// MaterializeResult summarizes one materialization pass.
type MaterializeResult struct {
	UserID     string   `json:"user_id"`
	Period     string   `json:"period"`
	Created    []string `json:"created"`
	Duplicates int      `json:"skipped_duplicates"`
	Backdated  int      `json:"skipped_backdated"`
}

// RecurringDeletion reports what deleting a template did to its expenses.
type RecurringDeletion struct {
	ID               string `json:"id"`
	DeletedExpenses  int    `json:"deleted_expenses"`
	UnlinkedExpenses int    `json:"unlinked_expenses"`
}

// RecurringUpdate is a template after an update, with the number of linked
// expenses that were rewritten to match it.
type RecurringUpdate struct {
	RecurringTemplate
	PropagatedExpenses int `json:"propagated_expenses"`
}
