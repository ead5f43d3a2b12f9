package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"promo-engine/internal/domain/discount"
	"promo-engine/internal/domain/order"
)

// errorResponse is the error envelope for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.lg.Error("Encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps a domain error to its HTTP status. Unrecognized
// errors are treated as storage failures: logged and hidden behind a 500.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := domainErrorStatus(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		h.respondError(w, status, "internal error")
		return
	}
	h.respondError(w, status, err.Error())
}

func domainErrorStatus(err error) int {
	var (
		validationErr *discount.ValidationError
		quantityErr   *order.InvalidQuantityError
	)
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, discount.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, discount.ErrInvalidCode),
		errors.Is(err, discount.ErrCodeExpired),
		errors.Is(err, discount.ErrUsageLimitReached),
		errors.Is(err, order.ErrBelowMinimumOrderValue),
		errors.Is(err, order.ErrAlreadyApplied),
		errors.Is(err, order.ErrNoEligibleItems):
		return http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.As(err, &validationErr),
		errors.As(err, &quantityErr),
		errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
