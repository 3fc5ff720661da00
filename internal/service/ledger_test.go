package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func expense(id, user, method, category string, amount int64, y int, m time.Month, d int) *domain.Expense {
	return &domain.Expense{
		ID:              id,
		UserID:          user,
		Amount:          decimal.NewFromInt(amount),
		CategoryKey:     category,
		PaymentMethodID: method,
		SpentAt:         domain.NewDate(y, m, d),
		Currency:        "BRL",
	}
}

// ledgerFixture has a credit card closing on the 10th and a PIX method.
func ledgerFixture() *fakeStore {
	store := newFakeStore()
	store.methods = []domain.PaymentMethod{
		{ID: "pm-card", Name: "Visa", IsCreditCard: true, ClosingDay: 10},
		{ID: "pm-pix", Name: "PIX"},
	}
	store.profiles = []domain.Profile{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Bruno"}}
	for _, e := range []*domain.Expense{
		expense("e1", "u1", "pm-card", "food", 100, 2024, time.February, 15),   // after Feb closing -> March
		expense("e2", "u2", "pm-card", "transport", 50, 2024, time.March, 5),   // before Mar closing -> March
		expense("e3", "u1", "pm-card", "food", 30, 2024, time.March, 12),       // after Mar closing -> April
		expense("e4", "u2", "pm-pix", "housing", 20, 2024, time.March, 20),     // calendar
		expense("e5", "u1", "pm-pix", "housing", 999, 2024, time.February, 28), // calendar, February
	} {
		store.expenses[e.ID] = e
	}
	store.earnings = []domain.Earning{
		{ID: "r1", UserID: "u1", Amount: decimal.NewFromInt(1000), EarnedAt: domain.NewDate(2024, time.March, 1)},
		{ID: "r2", UserID: "u2", Amount: decimal.NewFromInt(500), EarnedAt: domain.NewDate(2024, time.March, 31)},
		{ID: "r3", UserID: "u2", Amount: decimal.NewFromInt(700), EarnedAt: domain.NewDate(2024, time.April, 1)},
	}
	return store
}

func newLedger(store *fakeStore, m *service.Materializer, onRead bool) *service.LedgerService {
	fixed := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	return service.NewLedgerService(store, m, onRead, nil, zap.NewNop()).
		WithClock(func() time.Time { return fixed })
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("%s = %s, want %d", name, got, want)
	}
}

func TestDashboard_ResolvesCreditCardBillingPeriods(t *testing.T) {
	svc := newLedger(ledgerFixture(), nil, false)

	d, err := svc.Dashboard(context.Background(), march2024, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.ExpenseCount != 3 {
		t.Fatalf("expected 3 expenses in March 2024, got %d", d.ExpenseCount)
	}
	assertAmount(t, "total_spent", d.TotalSpent, 170)
	assertAmount(t, "total_earned", d.TotalEarned, 1500)
	assertAmount(t, "balance", d.Balance, 1330)

	assertAmount(t, "food", d.CategoryTotals["food"], 100)
	assertAmount(t, "transport", d.CategoryTotals["transport"], 50)
	assertAmount(t, "housing", d.CategoryTotals["housing"], 20)

	assertAmount(t, "Ana spent", d.UserSpendTotals["Ana"], 100)
	assertAmount(t, "Bruno spent", d.UserSpendTotals["Bruno"], 70)
	assertAmount(t, "Bruno earned", d.UserEarnedTotals["Bruno"], 500)

	if d.Month != 3 || d.Year != 2024 || d.BillingPeriod != march2024.String() {
		t.Errorf("unexpected period labels: %d/%d %q", d.Month, d.Year, d.BillingPeriod)
	}
	if d.GeneratedAt.IsZero() {
		t.Error("generated_at should be set")
	}
}

func TestDashboard_FiltersByUser(t *testing.T) {
	d, err := newLedger(ledgerFixture(), nil, false).Dashboard(context.Background(), march2024, "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "total_spent", d.TotalSpent, 70)
	assertAmount(t, "total_earned", d.TotalEarned, 500)
	if _, ok := d.UserSpendTotals["Ana"]; ok {
		t.Error("other users must not appear in the breakdown")
	}
}

func TestDashboard_ClosingDayOverride(t *testing.T) {
	store := ledgerFixture()
	// February statement closes on the 20th: the Feb 15 purchase stays in February.
	store.overrides[[2]int{2, 2024}] = 20

	d, err := newLedger(store, nil, false).Dashboard(context.Background(), march2024, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "total_spent", d.TotalSpent, 70)
	if _, ok := d.CategoryTotals["food"]; ok {
		t.Error("the Feb 15 card expense should have left March")
	}
}

func TestDashboard_UnknownPaymentMethodUsesCalendarMonth(t *testing.T) {
	store := ledgerFixture()
	store.expenses["e6"] = expense("e6", "u1", "pm-gone", "misc", 7, 2024, time.March, 25)

	d, err := newLedger(store, nil, false).Dashboard(context.Background(), march2024, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "misc", d.CategoryTotals["misc"], 7)
}

func TestDashboard_MaterializesOnRead(t *testing.T) {
	store := ledgerFixture()
	store.templates["rec-1"] = &domain.RecurringTemplate{
		ID:              "rec-1",
		UserID:          "u1",
		Amount:          decimal.NewFromInt(1200),
		CategoryKey:     "housing",
		PaymentMethodID: "pm-pix",
		DayOfMonth:      5,
		Description:     "Rent",
		Active:          true,
	}
	m := service.NewMaterializer(store, nil, nil, zap.NewNop(), 2)
	svc := newLedger(store, m, true)

	for i := 0; i < 2; i++ {
		d, err := svc.Dashboard(context.Background(), march2024, "u1")
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		assertAmount(t, "total_spent", d.TotalSpent, 1300)
	}
}

func TestMonthlyReport_EmptyPeriodIsNotFound(t *testing.T) {
	svc := newLedger(ledgerFixture(), nil, false)

	_, err := svc.MonthlyReport(context.Background(), billing.Period{Month: time.January, Year: 2020}, "")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	r, err := svc.MonthlyReport(context.Background(), march2024, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Expenses) != 3 || len(r.Earnings) != 2 || r.Month != 3 || r.Year != 2024 {
		t.Errorf("unexpected report: %d expenses, %d earnings, %d/%d", len(r.Expenses), len(r.Earnings), r.Month, r.Year)
	}
}

func TestCreateExpense_DropsTemplateLink(t *testing.T) {
	svc := newLedger(newFakeStore(), nil, false)
	rid := "rec-1"
	e := expense("", "u1", "pm-pix", "food", 10, 2024, time.March, 1)
	e.RecurringID = &rid
	e.Currency = ""

	created, err := svc.CreateExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.IsMaterialized() {
		t.Error("manually created expenses must not link to a template")
	}
	if created.Currency != "BRL" {
		t.Errorf("currency should default to BRL, got %q", created.Currency)
	}

	e.Amount = decimal.Zero
	var verr *domain.ErrValidation
	if _, err := svc.CreateExpense(context.Background(), e); !errors.As(err, &verr) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
}

func TestClosingDays_CRUD(t *testing.T) {
	store := newFakeStore()
	svc := newLedger(store, nil, false)
	ctx := context.Background()

	if _, err := svc.SetClosingDay(ctx, march2024, 32); err == nil {
		t.Error("closing day 32 should be rejected")
	}
	saved, err := svc.SetClosingDay(ctx, march2024, 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ClosingDay != 18 || saved.Month != 3 || saved.Year != 2024 {
		t.Errorf("unexpected override %+v", saved)
	}
	if _, err := svc.SetClosingDay(ctx, march2024, 12); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := svc.GetClosingDay(ctx, march2024)
	if err != nil || got.ClosingDay != 12 {
		t.Errorf("expected upserted value 12, got %+v (%v)", got, err)
	}

	if err := svc.DeleteClosingDay(ctx, march2024); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf *domain.ErrNotFound
	if err := svc.DeleteClosingDay(ctx, march2024); !errors.As(err, &nf) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}
