package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
	Step  string `json:"failed_step,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// parsePeriod reads the required month and year query parameters.
func parsePeriod(r *http.Request) (billing.Period, error) {
	q := r.URL.Query()
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		return billing.Period{}, &domain.ErrValidation{Field: "month", Message: "missing or invalid"}
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return billing.Period{}, &domain.ErrValidation{Field: "year", Message: "missing or invalid"}
	}
	p, err := billing.NewPeriod(month, year)
	if err != nil {
		return billing.Period{}, &domain.ErrValidation{Field: "month", Message: err.Error()}
	}
	return p, nil
}

// periodOrCurrent is parsePeriod with the current calendar month as default.
func periodOrCurrent(r *http.Request) (billing.Period, error) {
	q := r.URL.Query()
	if q.Get("month") == "" && q.Get("year") == "" {
		return billing.PeriodOf(time.Now().UTC()), nil
	}
	return parsePeriod(r)
}

func queryUserID(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}

func requireUserID(r *http.Request) (string, error) {
	id := queryUserID(r)
	if id == "" {
		return "", &domain.ErrValidation{Field: "user_id", Message: "required"}
	}
	return id, nil
}

// parseTypes splits a comma separated investment_types parameter.
func parseTypes(raw string) []domain.InvestmentType {
	var out []domain.InvestmentType
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, domain.InvestmentType(t))
		}
	}
	return out
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var partial *domain.ErrPartialFailure
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		logger.Warn("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &partial):
		logger.Error("partial failure",
			zap.String("operation", partial.Operation),
			zap.String("step", partial.Step),
			zap.Error(partial.Err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: fmt.Sprintf("%s did not complete", partial.Operation),
			Step:  partial.Step,
		})
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream service error")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
