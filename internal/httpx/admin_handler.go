package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
)

// AdminHandler covers moderation: the full event list regardless of filters,
// approval toggling, and attendee account activation.
type AdminHandler struct {
	Users   *identity.Service
	Catalog *catalog.Repo
}

func (h *AdminHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Catalog.ListEvents(r.Context(), catalog.EventFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []catalog.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

type approveReq struct {
	EventID  string `json:"event_id"`
	Approved *bool  `json:"approved"`
}

func (h *AdminHandler) approveEvent(w http.ResponseWriter, r *http.Request) {
	var req approveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing event_id"})
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}

	if err := h.Catalog.SetApproval(r.Context(), req.EventID, approved); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": req.EventID, "approved": approved})
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListAttendees(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []identity.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type activationReq struct {
	UserID string `json:"user_id"`
}

// setUserActivation handles PUT /admin/users/{action} with action either
// "activate" or "deactivate".
func (h *AdminHandler) setUserActivation(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action != "activate" && action != "deactivate" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}

	var req activationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	if err := h.Users.SetActivation(r.Context(), req.UserID, action == "activate"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": req.UserID, "active": action == "activate"})
}
