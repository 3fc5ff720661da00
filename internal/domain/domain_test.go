package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/shopspring/decimal"
)

func TestParseDate_AcceptsDatesAndTimestamps(t *testing.T) {
	inputs := map[string]string{
		"2024-02-29":                       "2024-02-29",
		"2024-02-29T23:59:59+00:00":        "2024-02-29",
		"2024-02-29T10:00:00.123456+00:00": "2024-02-29",
		"2024-02-29T00:00:00Z":             "2024-02-29",
		"2024-02-29 08:30:00":              "2024-02-29",
	}
	for in, want := range inputs {
		d, err := domain.ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q) error: %v", in, err)
			continue
		}
		if d.String() != want {
			t.Errorf("ParseDate(%q) = %s, want %s", in, d, want)
		}
	}

	if _, err := domain.ParseDate("29/02/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	var e domain.Expense
	body := `{"id":"e1","amount":12.5,"spent_at":"2024-03-10T14:00:00+00:00","recurring_id":null}`
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.SpentAt.Month() != time.March || e.SpentAt.Day() != 10 {
		t.Errorf("unexpected spent_at %s", e.SpentAt)
	}
	if !e.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected amount %s", e.Amount)
	}
	if e.IsMaterialized() {
		t.Error("expense without recurring_id is not materialized")
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if back["spent_at"] != "2024-03-10" {
		t.Errorf("spent_at emitted as %v", back["spent_at"])
	}
	if back["amount"] != 12.5 {
		t.Errorf("amount should be a JSON number, got %#v", back["amount"])
	}
}

func TestInvestmentValidate(t *testing.T) {
	inv := domain.Investment{UserID: "u1", Type: "STOCK", Name: "Apple", Quantity: decimal.NewFromInt(1)}
	var verr *domain.ErrValidation
	if err := inv.Validate(); !errors.As(err, &verr) || verr.Field != "symbol" {
		t.Fatalf("expected symbol validation error, got %v", err)
	}

	sym := "AAPL"
	inv.Symbol = &sym
	if err := inv.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Currency != domain.CurrencyBRL {
		t.Errorf("currency should default to BRL, got %s", inv.Currency)
	}
	if inv.Type != domain.InvestmentStock {
		t.Errorf("type should be normalized, got %s", inv.Type)
	}

	inv.Currency = "GBP"
	if err := inv.Validate(); !errors.As(err, &verr) || verr.Field != "currency" {
		t.Errorf("expected currency validation error, got %v", err)
	}
}

func TestRecurringPatch_Propagation(t *testing.T) {
	desc := "Gym"
	amount := decimal.NewFromInt(120)
	day := 5
	patch := domain.RecurringPatch{Description: &desc, Amount: &amount, DayOfMonth: &day}
	updated := &domain.RecurringTemplate{Description: "Gym", Amount: amount, UserID: "u1"}

	ep := patch.Propagation(updated)
	if ep.Comment == nil || *ep.Comment != "Recurring: Gym" {
		t.Errorf("comment should follow description, got %v", ep.Comment)
	}
	if ep.Amount == nil || !ep.Amount.Equal(amount) {
		t.Errorf("amount should propagate")
	}
	if ep.UserID != nil || ep.CategoryKey != nil || ep.PaymentMethodID != nil {
		t.Error("untouched fields must not propagate")
	}

	onlyDay := domain.RecurringPatch{DayOfMonth: &day}
	if !onlyDay.Propagation(updated).IsEmpty() {
		t.Error("day_of_month alone must not touch existing expenses")
	}
}

func TestErrPartialFailure_Unwraps(t *testing.T) {
	inner := errors.New("boom")
	err := error(&domain.ErrPartialFailure{Operation: "update", Step: "propagate", Err: inner})
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to see the inner error")
	}
}
