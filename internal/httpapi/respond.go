package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleDomainError maps service errors onto HTTP statuses. Conflicts (lost
// state races, duplicate vouchers) are 409 so clients can re-read and retry;
// bad input is 400 and never retried.
func handleDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "insufficient stock at the nearest store",
			Code:    "insufficient_stock",
			Details: stockErr.Missing,
		})
		return
	}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		respondError(w, http.StatusBadRequest, "invalid_"+vErr.Field, vErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrVoucherNotFound),
		errors.Is(err, domain.ErrProofNotFound),
		errors.Is(err, domain.ErrAddressNotFound),
		errors.Is(err, domain.ErrStoreNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "you do not own this order")
	case errors.Is(err, domain.ErrInvalidOrderState),
		errors.Is(err, domain.ErrOrderExpired),
		errors.Is(err, domain.ErrVoucherApplied):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrMissingCoordinates),
		errors.Is(err, domain.ErrNoStoresAvailable),
		errors.Is(err, domain.ErrShippingUnavailable),
		errors.Is(err, domain.ErrVoucherNotEligible),
		errors.Is(err, domain.ErrTrackingRequired),
		errors.Is(err, domain.ErrReasonRequired):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
