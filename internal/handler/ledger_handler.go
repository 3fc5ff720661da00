package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/report"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard & report
// ============================================================

func dashboardHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /dashboard")
		defer span.End()

		p, err := parsePeriod(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		userID := queryUserID(r)
		span.SetAttributes(attribute.String("period", p.Key()), attribute.String("user.id", userID))

		d, err := svc.Dashboard(ctx, p, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func monthlyReportHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /report/monthly")
		defer span.End()

		p, err := parsePeriod(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		data, err := svc.MonthlyReport(ctx, p, queryUserID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Render fully before writing headers so a failure still gets a JSON error.
		var buf bytes.Buffer
		if err := report.Write(&buf, data); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", report.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(data.Month, data.Year)+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w)
	}
}

// ============================================================
// Expenses & earnings
// ============================================================

func createExpenseHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /expenses")
		defer span.End()

		var e domain.Expense
		if err := decodeJSON(r, &e); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := svc.CreateExpense(ctx, &e)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func deleteExpenseHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /expenses/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := svc.DeleteExpense(ctx, id, queryUserID(r)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "expense deleted", ID: id})
	}
}

func listEarningsHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /earnings")
		defer span.End()

		p, err := parsePeriod(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		earnings, err := svc.ListEarnings(ctx, p, queryUserID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, earnings)
	}
}

func createEarningHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /earnings")
		defer span.End()

		var e domain.Earning
		if err := decodeJSON(r, &e); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := svc.CreateEarning(ctx, &e)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// ============================================================
// Closing-day overrides
// ============================================================

// pathPeriod reads {year}/{month} from the URL.
func pathPeriod(r *http.Request) (billing.Period, error) {
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return billing.Period{}, &domain.ErrValidation{Field: "month", Message: "invalid"}
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return billing.Period{}, &domain.ErrValidation{Field: "year", Message: "invalid"}
	}
	p, err := billing.NewPeriod(month, year)
	if err != nil {
		return billing.Period{}, &domain.ErrValidation{Field: "month", Message: err.Error()}
	}
	return p, nil
}

func listClosingDaysHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /closing-days")
		defer span.End()

		overrides, err := svc.ListClosingDays(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overrides)
	}
}

func getClosingDayHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /closing-days/{year}/{month}")
		defer span.End()

		p, err := pathPeriod(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		o, err := svc.GetClosingDay(ctx, p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func setClosingDayHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /closing-days/{year}/{month}")
		defer span.End()

		p, err := pathPeriod(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var body struct {
			ClosingDay int `json:"closing_day"`
		}
		if err := decodeJSON(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		o, err := svc.SetClosingDay(ctx, p, body.ClosingDay)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func deleteClosingDayHandler(svc LedgerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /closing-days/{year}/{month}")
		defer span.End()

		p, err := pathPeriod(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.DeleteClosingDay(ctx, p); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "closing day override deleted"})
	}
}
