package httpx

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/eventure/ticketing/internal/catalog"
	kafkax "github.com/eventure/ticketing/internal/kafka"
	"github.com/eventure/ticketing/internal/ticketing"
)

type EventsHandler struct {
	Catalog  *catalog.Repo
	Producer ticketing.Publisher
	Service  string
}

type eventReq struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartsAt    time.Time         `json:"starts_at"`
	StartTime   string            `json:"start_time"`
	Location    string            `json:"location"`
	Category    string            `json:"category"`
	PriceCents  int64             `json:"price_cents"`
	ImageURL    string            `json:"image_url"`
	Sessions    []catalog.Session `json:"sessions"`
}

func (h *EventsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req eventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Title == "" || req.Location == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	claims := ClaimsFrom(r.Context())
	event, err := h.Catalog.CreateEvent(r.Context(), catalog.Event{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		StartTime:   req.StartTime,
		Location:    req.Location,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		ImageURL:    req.ImageURL,
		CreatedBy:   claims.UserID,
		Sessions:    req.Sessions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req eventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	event, err := h.Catalog.UpdateEvent(r.Context(), catalog.Event{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		StartTime:   req.StartTime,
		Location:    req.Location,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		ImageURL:    req.ImageURL,
		Sessions:    req.Sessions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

func (h *EventsHandler) get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Catalog.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// list supports ?date=YYYY-MM-DD, ?location=, ?category= and
// ?priceRange=min-max (major units).
func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r.URL.Query().Get("date"), r.URL.Query().Get("location"),
		r.URL.Query().Get("category"), r.URL.Query().Get("priceRange"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	events, err := h.Catalog.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []catalog.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func parseEventFilter(date, location, category, priceRange string) (catalog.EventFilter, error) {
	f := catalog.EventFilter{Location: location, Category: category}

	if date != "" {
		since, err := time.Parse("2006-01-02", date)
		if err != nil {
			return catalog.EventFilter{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
		}
		f.Since = &since
	}
	if priceRange != "" {
		lo, hi, ok := strings.Cut(priceRange, "-")
		if !ok {
			return catalog.EventFilter{}, fmt.Errorf("invalid priceRange %q, want min-max", priceRange)
		}
		min, err1 := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		max, err2 := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err1 != nil || err2 != nil {
			return catalog.EventFilter{}, fmt.Errorf("invalid priceRange %q, want min-max", priceRange)
		}
		minCents, maxCents := min*100, max*100
		f.MinPriceCents = &minCents
		f.MaxPriceCents = &maxCents
	}
	return f, nil
}

func (h *EventsHandler) getSchedule(w http.ResponseWriter, r *http.Request) {
	event, err := h.Catalog.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": event.ID,
		"title":    event.Title,
		"sessions": event.Sessions,
	})
}

type scheduleReq struct {
	Sessions []catalog.Session `json:"sessions"`
}

// updateSchedule replaces the session list and publishes a schedule-updated
// event; the notifier consumes it and mails every attendee.
func (h *EventsHandler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	event, err := h.Catalog.UpdateSessions(r.Context(), chi.URLParam(r, "id"), req.Sessions)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Producer != nil {
		env := ticketing.Envelope{
			EventID:       uuid.NewString(),
			EventType:     ticketing.EventScheduleUpdated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			CorrelationID: event.ID,
			Payload: kafkax.MustMarshal(ticketing.ScheduleUpdatedPayload{
				EventID:  event.ID,
				Title:    event.Title,
				Sessions: event.Sessions,
			}),
		}
		h.Producer.Publish(ticketing.PartitionKey(event.ID), kafkax.MustMarshal(env),
			kafkago.Header{Key: "x-event-type", Value: []byte(ticketing.EventScheduleUpdated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) attendees(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.Attendees(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []catalog.Attendee{}
	}
	writeJSON(w, http.StatusOK, list)
}

// exportAttendees streams the attendee list as a CSV download.
func (h *EventsHandler) exportAttendees(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	list, err := h.Catalog.Attendees(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "attendees-"+eventID+".csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"name", "email", "ticket_id", "quantity", "total", "payment_status"})
	for _, a := range list {
		_ = cw.Write([]string{
			a.Name,
			a.Email,
			a.TicketID,
			strconv.Itoa(a.Quantity),
			fmt.Sprintf("%.2f", float64(a.TotalCents)/100),
			a.PaymentStatus,
		})
	}
	cw.Flush()
}

func (h *EventsHandler) analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.Catalog.EventAnalytics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
