package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/drafts"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
)

// fail maps a domain error to a status code and a message the caller can show.
// Anything unrecognised is logged and reported as a 500 with fallback.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var incomplete *wizard.IncompleteError
	var decodeErr *model.DecodeError

	switch {
	case errors.As(err, &incomplete):
		msg := incomplete.Error()
		if len(incomplete.Missing) > 0 {
			msg += ": " + strings.Join(incomplete.Missing, ", ")
		}
		http.Error(w, msg, http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrSaleNotRecorded):
		h.Logger.Error("checkout left appointment without sale", "path", r.URL.Path, "err", err)
		http.Error(w, lifecycle.ErrSaleNotRecorded.Error(), http.StatusBadGateway)
	case errors.Is(err, lifecycle.ErrConfirmationRequired),
		errors.Is(err, lifecycle.ErrInvalidSlot),
		errors.Is(err, lifecycle.ErrNoServices),
		errors.Is(err, payments.ErrCardUnavailable),
		errors.Is(err, payments.ErrPaymentMethodRequired),
		errors.Is(err, payments.ErrUnsupportedMethod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, payments.ErrPaymentDeclined):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, lifecycle.ErrNotOwner), errors.Is(err, drafts.ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, lifecycle.ErrNotCheckoutable),
		errors.Is(err, lifecycle.ErrCheckoutInProgress),
		errors.Is(err, lifecycle.ErrNotCancellable),
		errors.Is(err, lifecycle.ErrNotEditable),
		errors.Is(err, lifecycle.ErrNoChanges),
		errors.Is(err, storage.ErrStatusConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, drafts.ErrNotFound), storage.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	case storage.IsUniqueViolation(err):
		http.Error(w, "already exists", http.StatusConflict)
	case storage.IsForeignKeyViolation(err):
		http.Error(w, "conflicts with related records", http.StatusConflict)
	case errors.As(err, &decodeErr):
		h.Logger.Error("stored record failed validation", "path", r.URL.Path, "err", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	default:
		h.Logger.Error(fallback, "path", r.URL.Path, "err", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}
