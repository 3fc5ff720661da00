// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the Supabase and SQLite adapters, the price oracle and the event bus.
package port

import (
	"context"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
)

// ReferenceStore serves read-mostly reference data.
type ReferenceStore interface {
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}

// ClosingDayStore manages per-month closing-day overrides.
type ClosingDayStore interface {
	ListClosingDayOverrides(ctx context.Context) ([]domain.ClosingDayOverride, error)
	GetClosingDayOverride(ctx context.Context, month, year int) (*domain.ClosingDayOverride, error)
	UpsertClosingDayOverride(ctx context.Context, o *domain.ClosingDayOverride) (*domain.ClosingDayOverride, error)
	DeleteClosingDayOverride(ctx context.Context, month, year int) (bool, error)
}

// ExpenseStore handles expenses, including the links to recurring templates.
type ExpenseStore interface {
	// ListExpenses returns expenses with joined labels, spent_at in [From, Until).
	ListExpenses(ctx context.Context, f domain.ExpenseFilter) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error

	// InsertMaterializedExpense ignores the insert when (recurring_id,
	// recurring_period) already exists and reports created=false.
	InsertMaterializedExpense(ctx context.Context, e *domain.Expense) (created bool, err error)

	UpdateLinkedExpenses(ctx context.Context, recurringID string, from domain.Date, patch domain.ExpensePatch) (int, error)
	DeleteLinkedExpenses(ctx context.Context, recurringID string, from domain.Date) (int, error)
	UnlinkExpenses(ctx context.Context, recurringID string) (int, error)
	CountLinkedExpenses(ctx context.Context, recurringID string) (int, error)
}

// RecurringStore handles recurring expense templates.
type RecurringStore interface {
	ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]domain.RecurringTemplate, error)
	GetRecurring(ctx context.Context, id string) (*domain.RecurringTemplate, error)
	CreateRecurring(ctx context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error)
	UpdateRecurring(ctx context.Context, id string, patch domain.RecurringPatch) (*domain.RecurringTemplate, error)
	DeleteRecurring(ctx context.Context, id string) error
}

// EarningStore handles earnings.
type EarningStore interface {
	// ListEarnings returns earnings with user names, earned_at in [from, until).
	ListEarnings(ctx context.Context, from, until domain.Date, userID string) ([]domain.Earning, error)
	CreateEarning(ctx context.Context, e *domain.Earning) (*domain.Earning, error)
}

// InvestmentStore handles holdings.
type InvestmentStore interface {
	ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error)
	GetInvestment(ctx context.Context, id, userID string) (*domain.Investment, error)
	CreateInvestment(ctx context.Context, inv *domain.Investment) (*domain.Investment, error)
	UpdateInvestment(ctx context.Context, inv *domain.Investment) (*domain.Investment, error)
	DeleteInvestment(ctx context.Context, id, userID string) error
}

// Store is the full persistence surface. Implemented by the Supabase and
// SQLite adapters.
type Store interface {
	ReferenceStore
	ClosingDayStore
	ExpenseStore
	RecurringStore
	EarningStore
	InvestmentStore
}

// PriceOracle returns the last traded price per symbol in one batched call.
// Unknown or delisted symbols are simply absent from the result; an error
// means the whole lookup failed.
type PriceOracle interface {
	Quotes(ctx context.Context, symbols []string) (map[string]float64, error)
}

// EventPublisher announces domain events to other consumers.
type EventPublisher interface {
	PublishExpenseMaterialized(ctx context.Context, e *domain.Expense) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
