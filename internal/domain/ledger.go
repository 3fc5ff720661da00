package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are emitted as JSON numbers, matching what PostgREST returns.
	decimal.MarshalJSONWithoutQuotes = true
}

// ============================================================
// Reference data
// ============================================================

// PaymentMethod is immutable reference data.
type PaymentMethod struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsCreditCard bool   `json:"is_credit_card"`
	ClosingDay   int    `json:"closing_day,omitempty"` // 0 = unset, resolves to 23
}

// Category labels an expense.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Profile is a user of the tracker. There is no authentication: the id is
// whatever the caller passes.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClosingDayOverride replaces every credit card's closing day for one calendar month.
type ClosingDayOverride struct {
	Month      int `json:"month"`
	Year       int `json:"year"`
	ClosingDay int `json:"closing_day"`
}

func (o *ClosingDayOverride) Validate() error {
	if o.Month < 1 || o.Month > 12 {
		return &ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	if o.Year < 1 {
		return &ErrValidation{Field: "year", Message: "required"}
	}
	if o.ClosingDay < 1 || o.ClosingDay > 31 {
		return &ErrValidation{Field: "closing_day", Message: "must be between 1 and 31"}
	}
	return nil
}

// ============================================================
// Expenses
// ============================================================

// Expense is a single outgoing transaction. RecurringID links a materialized
// expense back to its template; it does not own the template.
type Expense struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	CategoryKey     string          `json:"category_key"`
	PaymentMethodID string          `json:"payment_method_id"`
	SpentAt         Date            `json:"spent_at"`
	Comment         string          `json:"comment"`
	Currency        string          `json:"currency"`
	RecurringID     *string         `json:"recurring_id"`
	RecurringPeriod *string         `json:"recurring_period,omitempty"`

	// Joined, read-only.
	CategoryLabel     string `json:"category_label,omitempty"`
	PaymentMethodName string `json:"payment_method_name,omitempty"`
	UserName          string `json:"user_name,omitempty"`
}

// Validate checks the fields required to persist an expense and fills defaults.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return &ErrValidation{Field: "user_id", Message: "required"}
	}
	if !e.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if e.CategoryKey == "" {
		return &ErrValidation{Field: "category_key", Message: "required"}
	}
	if e.PaymentMethodID == "" {
		return &ErrValidation{Field: "payment_method_id", Message: "required"}
	}
	if e.SpentAt.IsZero() {
		return &ErrValidation{Field: "spent_at", Message: "required"}
	}
	if e.Currency == "" {
		e.Currency = string(CurrencyBRL)
	}
	return nil
}

// IsMaterialized reports whether the expense was generated from a template.
func (e *Expense) IsMaterialized() bool {
	return e.RecurringID != nil && *e.RecurringID != ""
}

// ExpensePatch carries the template fields propagated to linked expenses.
// Nil fields are left untouched.
type ExpensePatch struct {
	UserID          *string
	Amount          *decimal.Decimal
	CategoryKey     *string
	PaymentMethodID *string
	Comment         *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.UserID == nil && p.Amount == nil && p.CategoryKey == nil && p.PaymentMethodID == nil && p.Comment == nil
}

// ExpenseFilter selects expenses in a half-open date window.
type ExpenseFilter struct {
	From         Date
	Until        Date // exclusive
	UserID       string
	RecurringIDs []string // when set, only expenses linked to these templates
}

// ============================================================
// Earnings
// ============================================================

// Earning is income, always bucketed by calendar month.
type Earning struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	EarnedAt    Date            `json:"earned_at"`

	UserName string `json:"user_name,omitempty"`
}

func (e *Earning) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return &ErrValidation{Field: "user_id", Message: "required"}
	}
	if !e.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if e.EarnedAt.IsZero() {
		return &ErrValidation{Field: "earned_at", Message: "required"}
	}
	return nil
}

// ============================================================
// Dashboard
// ============================================================

// Dashboard aggregates one billing period.
type Dashboard struct {
	BillingPeriod    string                     `json:"billing_period"`
	Month            int                        `json:"month"`
	Year             int                        `json:"year"`
	TotalSpent       decimal.Decimal            `json:"total_spent"`
	TotalEarned      decimal.Decimal            `json:"total_earned"`
	Balance          decimal.Decimal            `json:"balance"`
	CategoryTotals   map[string]decimal.Decimal `json:"category_breakdown"`
	UserSpendTotals  map[string]decimal.Decimal `json:"user_breakdown"`
	UserEarnedTotals map[string]decimal.Decimal `json:"user_earnings_breakdown"`
	ExpenseCount     int                        `json:"expense_count"`
	Expenses         []Expense                  `json:"expenses"`
	Earnings         []Earning                  `json:"earnings"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}

// MonthlyReport is the input of the spreadsheet formatter.
type MonthlyReport struct {
	Month    int
	Year     int
	Expenses []Expense
	Earnings []Earning
}
