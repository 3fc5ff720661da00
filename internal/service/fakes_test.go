package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/port"
)

var _ port.Store = (*fakeStore)(nil)

// fakeStore is an in-memory port.Store. The *Err fields inject failures.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	methods   []domain.PaymentMethod
	profiles  []domain.Profile
	overrides map[[2]int]int
	expenses  map[string]*domain.Expense
	templates map[string]*domain.RecurringTemplate
	earnings  []domain.Earning
	holdings  map[string]*domain.Investment

	unlinkErr     error
	propagateErr  error
	stickyLinks   bool // UnlinkExpenses pretends to succeed without unlinking
	insertIgnores bool // InsertMaterializedExpense always reports a conflict
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		overrides: map[[2]int]int{},
		expenses:  map[string]*domain.Expense{},
		templates: map[string]*domain.RecurringTemplate{},
		holdings:  map[string]*domain.Investment{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) ListPaymentMethods(context.Context) ([]domain.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PaymentMethod(nil), f.methods...), nil
}

func (f *fakeStore) ListProfiles(context.Context) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Profile(nil), f.profiles...), nil
}

func (f *fakeStore) ListClosingDayOverrides(context.Context) ([]domain.ClosingDayOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ClosingDayOverride{}
	for k, d := range f.overrides {
		out = append(out, domain.ClosingDayOverride{Month: k[0], Year: k[1], ClosingDay: d})
	}
	return out, nil
}

func (f *fakeStore) GetClosingDayOverride(_ context.Context, month, year int) (*domain.ClosingDayOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.overrides[[2]int{month, year}]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "closing_day_override", ID: fmt.Sprintf("%d/%d", month, year)}
	}
	return &domain.ClosingDayOverride{Month: month, Year: year, ClosingDay: d}, nil
}

func (f *fakeStore) UpsertClosingDayOverride(_ context.Context, o *domain.ClosingDayOverride) (*domain.ClosingDayOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[[2]int{o.Month, o.Year}] = o.ClosingDay
	out := *o
	return &out, nil
}

func (f *fakeStore) DeleteClosingDayOverride(_ context.Context, month, year int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := [2]int{month, year}
	_, ok := f.overrides[k]
	delete(f.overrides, k)
	return ok, nil
}

func (f *fakeStore) profileName(id string) string {
	for _, p := range f.profiles {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

func (f *fakeStore) ListExpenses(_ context.Context, flt domain.ExpenseFilter) ([]domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids map[string]bool
	if flt.RecurringIDs != nil {
		ids = map[string]bool{}
		for _, id := range flt.RecurringIDs {
			ids[id] = true
		}
	}
	out := []domain.Expense{}
	for _, e := range f.expenses {
		if !flt.From.IsZero() && e.SpentAt.Before(flt.From.Time) {
			continue
		}
		if !flt.Until.IsZero() && !e.SpentAt.Before(flt.Until.Time) {
			continue
		}
		if flt.UserID != "" && e.UserID != flt.UserID {
			continue
		}
		if ids != nil && (e.RecurringID == nil || !ids[*e.RecurringID]) {
			continue
		}
		c := *e
		c.UserName = f.profileName(e.UserID)
		c.CategoryLabel = e.CategoryKey
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpentAt.Equal(out[j].SpentAt.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].SpentAt.Before(out[j].SpentAt.Time)
	})
	return out, nil
}

func (f *fakeStore) CreateExpense(_ context.Context, e *domain.Expense) (*domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *e
	c.ID = f.nextID("exp")
	f.expenses[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || (userID != "" && e.UserID != userID) {
		return &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) InsertMaterializedExpense(_ context.Context, e *domain.Expense) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertIgnores {
		return false, nil
	}
	for _, x := range f.expenses {
		if x.RecurringID != nil && e.RecurringID != nil && *x.RecurringID == *e.RecurringID &&
			x.RecurringPeriod != nil && e.RecurringPeriod != nil && *x.RecurringPeriod == *e.RecurringPeriod {
			return false, nil
		}
	}
	c := *e
	c.ID = f.nextID("exp")
	f.expenses[c.ID] = &c
	e.ID = c.ID
	return true, nil
}

func (f *fakeStore) UpdateLinkedExpenses(_ context.Context, rid string, from domain.Date, p domain.ExpensePatch) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.propagateErr != nil {
		return 0, f.propagateErr
	}
	n := 0
	for _, e := range f.expenses {
		if e.RecurringID == nil || *e.RecurringID != rid || e.SpentAt.Before(from.Time) {
			continue
		}
		if p.UserID != nil {
			e.UserID = *p.UserID
		}
		if p.Amount != nil {
			e.Amount = *p.Amount
		}
		if p.CategoryKey != nil {
			e.CategoryKey = *p.CategoryKey
		}
		if p.PaymentMethodID != nil {
			e.PaymentMethodID = *p.PaymentMethodID
		}
		if p.Comment != nil {
			e.Comment = *p.Comment
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) DeleteLinkedExpenses(_ context.Context, rid string, from domain.Date) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, e := range f.expenses {
		if e.RecurringID != nil && *e.RecurringID == rid && !e.SpentAt.Before(from.Time) {
			delete(f.expenses, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UnlinkExpenses(_ context.Context, rid string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unlinkErr != nil {
		return 0, f.unlinkErr
	}
	n := 0
	for _, e := range f.expenses {
		if e.RecurringID != nil && *e.RecurringID == rid {
			if !f.stickyLinks {
				e.RecurringID, e.RecurringPeriod = nil, nil
			}
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountLinkedExpenses(_ context.Context, rid string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.expenses {
		if e.RecurringID != nil && *e.RecurringID == rid {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListRecurring(_ context.Context, userID string, activeOnly bool) ([]domain.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.RecurringTemplate{}
	for _, t := range f.templates {
		if userID != "" && t.UserID != userID {
			continue
		}
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetRecurring(_ context.Context, id string) (*domain.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	out := *t
	return &out, nil
}

func (f *fakeStore) CreateRecurring(_ context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *r
	if c.ID == "" {
		c.ID = f.nextID("rec")
	}
	f.templates[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeStore) UpdateRecurring(_ context.Context, id string, p domain.RecurringPatch) (*domain.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	if p.UserID != nil {
		t.UserID = *p.UserID
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryKey != nil {
		t.CategoryKey = *p.CategoryKey
	}
	if p.PaymentMethodID != nil {
		t.PaymentMethodID = *p.PaymentMethodID
	}
	if p.DayOfMonth != nil {
		t.DayOfMonth = *p.DayOfMonth
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
	out := *t
	return &out, nil
}

func (f *fakeStore) DeleteRecurring(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.templates[id]; !ok {
		return &domain.ErrNotFound{Resource: "recurring_expense", ID: id}
	}
	delete(f.templates, id)
	return nil
}

func (f *fakeStore) ListEarnings(_ context.Context, from, until domain.Date, userID string) ([]domain.Earning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Earning{}
	for _, e := range f.earnings {
		if e.EarnedAt.Before(from.Time) || !e.EarnedAt.Before(until.Time) {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		e.UserName = f.profileName(e.UserID)
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) CreateEarning(_ context.Context, e *domain.Earning) (*domain.Earning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *e
	c.ID = f.nextID("ern")
	f.earnings = append(f.earnings, c)
	return &c, nil
}

func (f *fakeStore) ListInvestments(_ context.Context, userID string) ([]domain.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Investment{}
	for _, inv := range f.holdings {
		if inv.UserID == userID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetInvestment(_ context.Context, id, userID string) (*domain.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.holdings[id]
	if !ok || inv.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "investment", ID: id}
	}
	out := *inv
	return &out, nil
}

func (f *fakeStore) CreateInvestment(_ context.Context, inv *domain.Investment) (*domain.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *inv
	if c.ID == "" {
		c.ID = f.nextID("inv")
	}
	f.holdings[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeStore) UpdateInvestment(_ context.Context, inv *domain.Investment) (*domain.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.holdings[inv.ID]; !ok || cur.UserID != inv.UserID {
		return nil, &domain.ErrNotFound{Resource: "investment", ID: inv.ID}
	}
	c := *inv
	f.holdings[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeStore) DeleteInvestment(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.holdings[id]; !ok || inv.UserID != userID {
		return &domain.ErrNotFound{Resource: "investment", ID: id}
	}
	delete(f.holdings, id)
	return nil
}

// --- oracle & events ---

type mockOracle struct {
	prices map[string]float64
	err    error
	calls  int
	got    []string
}

func (m *mockOracle) Quotes(_ context.Context, symbols []string) (map[string]float64, error) {
	m.calls++
	m.got = symbols
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]float64{}
	for _, s := range symbols {
		if p, ok := m.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (r *recordingPublisher) PublishExpenseMaterialized(_ context.Context, e *domain.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, e.ID)
	return r.err
}

var errBoom = errors.New("boom")
