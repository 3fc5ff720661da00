// Package billing maps transaction dates to billing periods and back.
//
// A billing period is the (month, year) bucket a transaction is reported in.
// Cash/Pix/debit methods always report in their calendar month; credit cards
// roll forward into the next month once the statement closing day is reached.
package billing

import (
	"fmt"
	"time"
)

// DefaultClosingDay is used when a payment method carries no closing day.
const DefaultClosingDay = 23

// Period identifies a billing (month, year).
type Period struct {
	Month time.Month
	Year  int
}

// NewPeriod validates month and year.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("year out of range: %d", year)
	}
	return Period{Month: time.Month(month), Year: year}, nil
}

// PeriodOf returns the calendar period of t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// Next returns the following period, rolling December into January.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Month: time.January, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Prev returns the preceding period, rolling January into December.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Month: time.December, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// FirstDay is the first calendar day of the period, UTC midnight.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay is the last calendar day of the period, UTC midnight.
func (p Period) LastDay() time.Time {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the period's month.
func (p Period) DaysIn() int {
	return p.LastDay().Day()
}

// Day builds a date inside the period, clamping day to the month length.
// Day 31 in February yields the 28th (or 29th).
func (p Period) Day(day int) time.Time {
	if day < 1 {
		day = 1
	}
	if n := p.DaysIn(); day > n {
		day = n
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// CalendarWindow returns the half-open calendar window [first day, first day of next month).
func (p Period) CalendarWindow() (from, until time.Time) {
	return p.FirstDay(), p.Next().FirstDay()
}

// Contains reports whether t falls in the period's calendar month.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Key is the sortable "YYYY-MM" form, used as the materialization key.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// String renders the period as "M/YYYY".
func (p Period) String() string {
	return fmt.Sprintf("%d/%d", int(p.Month), p.Year)
}

// Resolve returns the billing period a transaction dated spentAt belongs to.
//
// Non-credit-card methods resolve to the calendar month. Credit-card
// transactions on or after closingDay belong to the next month.
// closingDay must already be resolved by the caller (see Table.ClosingDay).
func Resolve(spentAt time.Time, isCreditCard bool, closingDay int) Period {
	p := PeriodOf(spentAt)
	if !isCreditCard {
		return p
	}
	if spentAt.Day() >= closingDay {
		return p.Next()
	}
	return p
}

// RangeFor returns the inclusive date window [start, end] that contains every
// transaction resolving to target, for either kind of payment method.
//
// The window is wider than the exact billing window: rows fetched with it
// must be re-filtered with Resolve. Queries should bound the end with
// "< end + 1 day" so timestamped rows on the last day are kept.
func RangeFor(target Period, closingDay int) (start, end time.Time) {
	start = target.Prev().Day(closingDay)
	end = target.LastDay()
	return start, end
}

// QueryWindow converts RangeFor into a half-open [from, until) window.
func QueryWindow(target Period, closingDay int) (from, until time.Time) {
	start, end := RangeFor(target, closingDay)
	return start, end.AddDate(0, 0, 1)
}
