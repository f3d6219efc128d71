package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
	"github.com/eventure/ticketing/internal/ticketing"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses. Anything unmapped is a
// 500 with a generic body so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		writeJSON(w, code, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, catalog.ErrEventNotFound),
		errors.Is(err, catalog.ErrTicketNotFound),
		errors.Is(err, ticketing.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrEmailTaken),
		errors.Is(err, ticketing.ErrInsufficientInventory):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrInactive):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, catalog.ErrInvalidTicketType),
		errors.Is(err, ticketing.ErrInvalidQuantity),
		errors.Is(err, ticketing.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, ticketing.ErrPaymentGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
