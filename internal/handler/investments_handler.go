package handler

import (
	"net/http"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Investments
// ============================================================

// listInvestmentsHandler returns the valued portfolio. A degraded valuation
// is still a 200; the body carries degraded=true.
func listInvestmentsHandler(svc PortfolioAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /investments")
		defer span.End()

		userID, err := requireUserID(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", userID))

		p, err := svc.Value(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func distributionHandler(svc PortfolioAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /investments/distribution")
		defer span.End()

		userID, err := requireUserID(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		d, err := svc.Distribution(ctx, userID, parseTypes(r.URL.Query().Get("investment_types")))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func createInvestmentHandler(svc PortfolioAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /investments")
		defer span.End()

		var inv domain.Investment
		if err := decodeJSON(r, &inv); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if inv.UserID == "" {
			inv.UserID = queryUserID(r)
		}
		created, err := svc.Create(ctx, &inv)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateInvestmentHandler(svc PortfolioAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /investments/{id}")
		defer span.End()

		userID, err := requireUserID(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var patch domain.InvestmentPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := svc.Update(ctx, chi.URLParam(r, "id"), userID, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteInvestmentHandler(svc PortfolioAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /investments/{id}")
		defer span.End()

		userID, err := requireUserID(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		id := chi.URLParam(r, "id")
		if err := svc.Delete(ctx, id, userID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "investment deleted", ID: id})
	}
}
