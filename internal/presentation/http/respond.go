package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hoangvu/gearcart/internal/application/checkout"
	"github.com/hoangvu/gearcart/internal/application/payment"
	"github.com/hoangvu/gearcart/internal/domain/catalog"
	"github.com/hoangvu/gearcart/internal/domain/order"
	"github.com/hoangvu/gearcart/internal/domain/voucher"
)

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, voucher.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, checkout.ErrNotOwner):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, catalog.ErrInactive),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, voucher.ErrInactive),
		errors.Is(err, voucher.ErrNotStarted),
		errors.Is(err, voucher.ErrExpired),
		errors.Is(err, voucher.ErrUsageExhausted),
		errors.Is(err, voucher.ErrBelowMinimum),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidAddress),
		errors.Is(err, checkout.ErrUnknownPayMethod),
		errors.Is(err, checkout.ErrNegativeTotal),
		errors.Is(err, payment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
