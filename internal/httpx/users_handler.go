package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
	"github.com/eventure/ticketing/internal/ticketing"
)

// EventLister is the slice of the catalog the dashboard needs.
type EventLister interface {
	UpcomingEvents(ctx context.Context, now time.Time) ([]catalog.Event, error)
}

type UsersHandler struct {
	Users    *identity.Service
	Events   EventLister
	Workflow Workflow
}

func (h *UsersHandler) profile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	user, err := h.Users.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileUpdateReq struct {
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Role  identity.Role `json:"role"`
}

func (h *UsersHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	claims := ClaimsFrom(r.Context())
	user, err := h.Users.UpdateProfile(r.Context(), claims.UserID, identity.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type dashboardResp struct {
	UpcomingEvents []catalog.Event             `json:"upcoming_events"`
	Purchased      []ticketing.PurchasedTicket `json:"purchased_tickets"`
}

// dashboard returns upcoming events alongside the caller's purchases.
func (h *UsersHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	upcoming, err := h.Events.UpcomingEvents(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	purchased, err := h.Workflow.GetPurchased(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResp{UpcomingEvents: upcoming, Purchased: purchased})
}
