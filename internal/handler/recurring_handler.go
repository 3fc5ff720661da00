package handler

import (
	"net/http"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Recurring expenses
// ============================================================

func listRecurringHandler(svc RecurringAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /recurring-expenses")
		defer span.End()

		templates, err := svc.List(ctx, queryUserID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, templates)
	}
}

func createRecurringHandler(svc RecurringAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /recurring-expenses")
		defer span.End()

		t := domain.RecurringTemplate{Active: true}
		if err := decodeJSON(r, &t); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if t.UserID == "" {
			t.UserID = queryUserID(r)
		}
		t.ID, t.CreatedAt = "", time.Time{}
		created, err := svc.Create(ctx, &t)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateRecurringHandler(svc RecurringAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /recurring-expenses/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("recurring.id", id))

		var patch domain.RecurringPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := svc.Update(ctx, id, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteRecurringHandler(svc RecurringAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /recurring-expenses/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("recurring.id", id))

		res, err := svc.Delete(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// materializeHandler runs materialization for one user or, without
// user_id, for every profile. month/year default to the current month.
func materializeHandler(svc MaterializerAPI, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /recurring-expenses/materialize")
		defer span.End()

		p, err := periodOrCurrent(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if userID := queryUserID(r); userID != "" {
			res, err := svc.Materialize(ctx, p, userID)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, []domain.MaterializeResult{*res})
			return
		}

		results, err := svc.MaterializeAll(ctx, p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}
