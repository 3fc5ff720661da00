package billing

import "time"

// Method is the subset of a payment method the resolver needs.
type Method struct {
	ID           string
	IsCreditCard bool
	ClosingDay   int // 0 means unset
}

// Table holds the payment methods and per-month closing-day overrides
// relevant to one aggregation. It is built per request and passed explicitly.
type Table struct {
	methods   map[string]Method
	overrides map[Period]int
}

// NewTable builds a lookup table. overrides is keyed by calendar month.
func NewTable(methods []Method, overrides map[Period]int) *Table {
	t := &Table{
		methods:   make(map[string]Method, len(methods)),
		overrides: make(map[Period]int, len(overrides)),
	}
	for _, m := range methods {
		t.methods[m.ID] = m
	}
	for p, d := range overrides {
		if d >= 1 && d <= 31 {
			t.overrides[p] = d
		}
	}
	return t
}

// Method looks up a payment method by id.
func (t *Table) Method(id string) (Method, bool) {
	m, ok := t.methods[id]
	return m, ok
}

// ClosingDay returns the effective closing day of a method for the statement
// closing in calendar month p: the override for p if any, else the method's
// own closing day, else DefaultClosingDay.
func (t *Table) ClosingDay(m Method, p Period) int {
	if d, ok := t.overrides[p]; ok {
		return d
	}
	if m.ClosingDay >= 1 && m.ClosingDay <= 31 {
		return m.ClosingDay
	}
	return DefaultClosingDay
}

// Resolve returns the billing period of a transaction paid with methodID.
// Unknown methods are treated as non-credit-card; ok is false in that case.
func (t *Table) Resolve(spentAt time.Time, methodID string) (p Period, ok bool) {
	m, ok := t.methods[methodID]
	if !ok {
		return PeriodOf(spentAt), false
	}
	closing := t.ClosingDay(m, PeriodOf(spentAt))
	return Resolve(spentAt, m.IsCreditCard, closing), true
}

// QueryWindow returns the half-open window covering every method's
// contribution to target. The earliest closing day of the previous month
// among credit-card methods drives the start.
func (t *Table) QueryWindow(target Period) (from, until time.Time) {
	prev := target.Prev()
	closing := 0
	for _, m := range t.methods {
		if !m.IsCreditCard {
			continue
		}
		if d := t.ClosingDay(m, prev); closing == 0 || d < closing {
			closing = d
		}
	}
	if closing == 0 {
		closing = t.ClosingDay(Method{}, prev)
	}
	return QueryWindow(target, closing)
}
