package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/handler"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockLedger struct {
	period     billing.Period
	userID     string
	closingDay int
	dashboard  *domain.Dashboard
	report     *domain.MonthlyReport
	err        error
}

func (m *mockLedger) Dashboard(_ context.Context, p billing.Period, userID string) (*domain.Dashboard, error) {
	m.period, m.userID = p, userID
	return m.dashboard, m.err
}

func (m *mockLedger) MonthlyReport(_ context.Context, p billing.Period, userID string) (*domain.MonthlyReport, error) {
	m.period, m.userID = p, userID
	return m.report, m.err
}

func (m *mockLedger) CreateExpense(_ context.Context, e *domain.Expense) (*domain.Expense, error) {
	if m.err != nil {
		return nil, m.err
	}
	e.ID = "exp-1"
	return e, nil
}

func (m *mockLedger) DeleteExpense(_ context.Context, _, userID string) error {
	m.userID = userID
	return m.err
}

func (m *mockLedger) ListEarnings(_ context.Context, p billing.Period, userID string) ([]domain.Earning, error) {
	m.period, m.userID = p, userID
	return []domain.Earning{}, m.err
}

func (m *mockLedger) CreateEarning(_ context.Context, e *domain.Earning) (*domain.Earning, error) {
	return e, m.err
}

func (m *mockLedger) ListClosingDays(context.Context) ([]domain.ClosingDayOverride, error) {
	return []domain.ClosingDayOverride{}, m.err
}

func (m *mockLedger) GetClosingDay(_ context.Context, p billing.Period) (*domain.ClosingDayOverride, error) {
	m.period = p
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ClosingDayOverride{Month: int(p.Month), Year: p.Year, ClosingDay: 20}, nil
}

func (m *mockLedger) SetClosingDay(_ context.Context, p billing.Period, day int) (*domain.ClosingDayOverride, error) {
	m.period, m.closingDay = p, day
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ClosingDayOverride{Month: int(p.Month), Year: p.Year, ClosingDay: day}, nil
}

func (m *mockLedger) DeleteClosingDay(_ context.Context, p billing.Period) error {
	m.period = p
	return m.err
}

type mockRecurring struct {
	err     error
	created *domain.RecurringTemplate
}

func (m *mockRecurring) List(_ context.Context, userID string) ([]domain.RecurringTemplate, error) {
	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	}
	return []domain.RecurringTemplate{}, m.err
}

func (m *mockRecurring) Create(_ context.Context, r *domain.RecurringTemplate) (*domain.RecurringTemplate, error) {
	m.created = r
	return r, m.err
}

func (m *mockRecurring) Update(_ context.Context, id string, _ domain.RecurringPatch) (*domain.RecurringUpdate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RecurringUpdate{RecurringTemplate: domain.RecurringTemplate{ID: id}}, nil
}

func (m *mockRecurring) Delete(_ context.Context, id string) (*domain.RecurringDeletion, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RecurringDeletion{ID: id}, nil
}

type mockMaterializer struct {
	period billing.Period
	all    bool
	userID string
}

func (m *mockMaterializer) Materialize(_ context.Context, p billing.Period, userID string) (*domain.MaterializeResult, error) {
	m.period, m.userID = p, userID
	return &domain.MaterializeResult{UserID: userID, Period: p.Key(), Created: []string{}}, nil
}

func (m *mockMaterializer) MaterializeAll(_ context.Context, p billing.Period) ([]domain.MaterializeResult, error) {
	m.period, m.all = p, true
	return []domain.MaterializeResult{}, nil
}

type mockPortfolio struct {
	types     []domain.InvestmentType
	portfolio *domain.Portfolio
	err       error
}

func (m *mockPortfolio) Value(_ context.Context, userID string) (*domain.Portfolio, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.portfolio, nil
}

func (m *mockPortfolio) Distribution(_ context.Context, _ string, types []domain.InvestmentType) (*domain.Distribution, error) {
	m.types = types
	return &domain.Distribution{Itemized: len(types) == 1}, m.err
}

func (m *mockPortfolio) Create(_ context.Context, inv *domain.Investment) (*domain.Investment, error) {
	return inv, m.err
}

func (m *mockPortfolio) Update(_ context.Context, id, userID string, _ domain.InvestmentPatch) (*domain.Investment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Investment{ID: id, UserID: userID}, nil
}

func (m *mockPortfolio) Delete(context.Context, string, string) error {
	return m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- Helpers ---

type fixture struct {
	ledger       *mockLedger
	recurring    *mockRecurring
	materializer *mockMaterializer
	portfolio    *mockPortfolio
	store        *mockPinger
	router       http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		ledger:       &mockLedger{},
		recurring:    &mockRecurring{},
		materializer: &mockMaterializer{},
		portfolio:    &mockPortfolio{},
		store:        &mockPinger{},
	}
	f.router = handler.NewRouter(handler.Services{
		Ledger:       f.ledger,
		Recurring:    f.recurring,
		Materializer: f.materializer,
		Portfolio:    f.portfolio,
		Store:        f.store,
	}, observability.NewMetrics(), zap.NewNop())
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

// --- Operational ---

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "ok" {
		t.Errorf("status = %v", got)
	}

	f.store.err = errors.New("down")
	rec = f.do(http.MethodGet, "/health", "")
	if got := decodeBody(t, rec)["status"]; rec.Code != http.StatusOK || got != "degraded" {
		t.Errorf("expected 200 degraded, got %d %v", rec.Code, got)
	}
}

func TestReadyz(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	f.store.err = errors.New("down")
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// --- Dashboard & report ---

func TestDashboard(t *testing.T) {
	f := newFixture()
	f.ledger.dashboard = &domain.Dashboard{BillingPeriod: "March 2024", TotalSpent: decimal.NewFromInt(170)}

	rec := f.do(http.MethodGet, "/dashboard?month=3&year=2024&user_id=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.ledger.period != (billing.Period{Month: time.March, Year: 2024}) || f.ledger.userID != "u1" {
		t.Errorf("unexpected call %+v %q", f.ledger.period, f.ledger.userID)
	}
	if got := decodeBody(t, rec)["total_spent"]; got != 170.0 {
		t.Errorf("total_spent = %v", got)
	}
}

func TestDashboard_InvalidPeriod(t *testing.T) {
	f := newFixture()
	for _, target := range []string{"/dashboard", "/dashboard?month=3", "/dashboard?month=13&year=2024", "/dashboard?month=x&year=2024"} {
		if rec := f.do(http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestMonthlyReport(t *testing.T) {
	f := newFixture()
	f.ledger.report = &domain.MonthlyReport{
		Month: 3,
		Year:  2024,
		Expenses: []domain.Expense{
			{ID: "e1", Amount: decimal.NewFromInt(10), CategoryKey: "food", SpentAt: domain.NewDate(2024, time.March, 1)},
		},
	}

	rec := f.do(http.MethodGet, "/report/monthly?month=3&year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "report_3_2024.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
	// xlsx files are zip archives.
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("body is not an xlsx archive")
	}
}

func TestMonthlyReport_NoExpenses(t *testing.T) {
	f := newFixture()
	f.ledger.err = &domain.ErrNotFound{Resource: "expenses", ID: "March 2024"}
	if rec := f.do(http.MethodGet, "/report/monthly?month=3&year=2024", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// --- Expenses, earnings, closing days ---

func TestCreateExpense(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/expenses", `{"user_id":"u1","amount":12.5,"category_key":"food","payment_method_id":"pm","spent_at":"2024-03-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["id"]; got != "exp-1" {
		t.Errorf("id = %v", got)
	}

	if rec := f.do(http.MethodPost, "/expenses", `{"nope":true}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown fields should be rejected, got %d", rec.Code)
	}
}

func TestDeleteExpense_PassesUser(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodDelete, "/expenses/exp-1?user_id=u9", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.ledger.userID != "u9" {
		t.Errorf("user_id = %q", f.ledger.userID)
	}
}

func TestListEarnings(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodGet, "/earnings?month=2&year=2024", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.ledger.period.Month != time.February {
		t.Errorf("unexpected period %+v", f.ledger.period)
	}
}

func TestClosingDays(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPut, "/closing-days/2024/3", `{"closing_day":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.ledger.closingDay != 15 || f.ledger.period != (billing.Period{Month: time.March, Year: 2024}) {
		t.Errorf("unexpected call %+v day=%d", f.ledger.period, f.ledger.closingDay)
	}

	if rec := f.do(http.MethodGet, "/closing-days/2024/3", ""); rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/closing-days/2024/13", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("month 13: expected 400, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/closing-days", ""); rec.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", rec.Code)
	}

	f.ledger.err = &domain.ErrNotFound{Resource: "closing_day_override", ID: "3/2024"}
	if rec := f.do(http.MethodDelete, "/closing-days/2024/3", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: expected 404, got %d", rec.Code)
	}
}

// --- Recurring ---

func TestRecurring_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		step   string
	}{
		{"conflict", &domain.ErrConflict{Message: "still referenced"}, http.StatusConflict, ""},
		{"partial", &domain.ErrPartialFailure{Operation: "delete recurring expense", Step: "unlink past expenses", Err: errors.New("x")}, http.StatusInternalServerError, "unlink past expenses"},
		{"not found", &domain.ErrNotFound{Resource: "recurring_expense", ID: "r1"}, http.StatusNotFound, ""},
		{"store down", &domain.ErrExternalService{Service: "supabase", Err: errors.New("x")}, http.StatusBadGateway, ""},
		{"breaker open", &domain.ErrCircuitOpen{Service: "supabase"}, http.StatusServiceUnavailable, ""},
		{"timeout", &domain.ErrTimeout{Operation: "supabase"}, http.StatusGatewayTimeout, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.recurring.err = tt.err
			rec := f.do(http.MethodDelete, "/recurring-expenses/r1", "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.step != "" {
				if got := decodeBody(t, rec)["failed_step"]; got != tt.step {
					t.Errorf("failed_step = %v", got)
				}
			}
		})
	}
}

func TestRecurring_ListRequiresUser(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodGet, "/recurring-expenses", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/recurring-expenses?user_id=u1", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRecurring_CreateIgnoresClientIDAndCreatedAt(t *testing.T) {
	f := newFixture()
	body := `{"id":"forged","user_id":"u1","description":"Gym","amount":100,"day_of_month":5,"created_at":"2020-01-01T00:00:00Z"}`
	rec := f.do(http.MethodPost, "/recurring-expenses", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := f.recurring.created
	if got == nil {
		t.Fatal("service was not called")
	}
	if got.ID != "" {
		t.Errorf("id = %q, want empty", got.ID)
	}
	if !got.CreatedAt.IsZero() {
		t.Errorf("created_at = %v, want zero", got.CreatedAt)
	}
	if got.UserID != "u1" || !got.Active {
		t.Errorf("template = %+v", got)
	}
}

func TestRecurring_Update(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPut, "/recurring-expenses/r1", `{"amount":150,"description":"Gym"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["id"]; got != "r1" {
		t.Errorf("id = %v", got)
	}
}

func TestMaterialize(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodPost, "/recurring-expenses/materialize?month=4&year=2024&user_id=u1", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.materializer.userID != "u1" || f.materializer.period.Month != time.April || f.materializer.all {
		t.Errorf("unexpected single-user call %+v", f.materializer)
	}

	f = newFixture()
	if rec := f.do(http.MethodPost, "/recurring-expenses/materialize", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !f.materializer.all || f.materializer.period != billing.PeriodOf(time.Now().UTC()) {
		t.Errorf("expected all users for the current month, got %+v", f.materializer)
	}
}

// --- Investments ---

func TestInvestments_RequireUser(t *testing.T) {
	f := newFixture()
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/investments"},
		{http.MethodGet, "/investments/distribution"},
		{http.MethodDelete, "/investments/i1"},
	} {
		if rec := f.do(tc.method, tc.target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d", tc.method, tc.target, rec.Code)
		}
	}
}

func TestInvestments_DegradedIsStillOK(t *testing.T) {
	f := newFixture()
	f.portfolio.portfolio = &domain.Portfolio{UserID: "u1", Degraded: true, Investments: []domain.ValuedInvestment{}}

	rec := f.do(http.MethodGet, "/investments?user_id=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["degraded"]; got != true {
		t.Errorf("degraded = %v", got)
	}
}

func TestDistribution_ParsesTypes(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/investments/distribution?user_id=u1&investment_types=Stock,%20crypto,", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.portfolio.types) != 2 || f.portfolio.types[0] != domain.InvestmentStock || f.portfolio.types[1] != domain.InvestmentCrypto {
		t.Errorf("unexpected types %v", f.portfolio.types)
	}
}

func TestCreateInvestment_UserFromQuery(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/investments?user_id=u1", `{"type":"cash","name":"Savings","quantity":100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["user_id"]; got != "u1" {
		t.Errorf("user_id = %v", got)
	}
}
