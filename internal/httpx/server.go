package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *AuthHandler
	Users   *UsersHandler
	Events  *EventsHandler
	Tickets *TicketsHandler
	Admin   *AdminHandler
}

// NewRouter assembles the full route tree: a public surface, an
// authenticated group and an organizer-only group nested inside it.
func NewRouter(secret []byte, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/auth/register", h.Auth.register)
	r.Post("/auth/login", h.Auth.login)
	r.Get("/events", h.Events.list)
	r.Get("/events/{id}", h.Events.get)
	r.Get("/events/{id}/schedule", h.Events.getSchedule)
	r.Get("/tickets", h.Tickets.list)

	r.Group(func(pr chi.Router) {
		pr.Use(Authenticator(secret))

		pr.Get("/users/profile", h.Users.profile)
		pr.Put("/users/profile", h.Users.updateProfile)
		pr.Get("/users/dashboard", h.Users.dashboard)

		pr.Post("/tickets/purchase", h.Tickets.purchase)
		pr.Get("/tickets/purchased", h.Tickets.purchased)
		pr.Delete("/tickets/cancel", h.Tickets.cancel)
		pr.Put("/tickets/transfer", h.Tickets.transfer)
		pr.Post("/payments/result", h.Tickets.paymentResult)
		pr.Get("/orders/{id}/status", h.Tickets.orderStatus)

		pr.Group(func(or chi.Router) {
			or.Use(RequireOrganizer)

			or.Post("/events", h.Events.create)
			or.Put("/events/{id}", h.Events.update)
			or.Delete("/events/{id}", h.Events.delete)
			or.Put("/events/{id}/schedule", h.Events.updateSchedule)
			or.Get("/events/{id}/attendees", h.Events.attendees)
			or.Get("/events/{id}/attendees/export", h.Events.exportAttendees)
			or.Get("/events/{id}/analytics", h.Events.analytics)

			or.Post("/tickets", h.Tickets.create)

			or.Get("/admin/events", h.Admin.listEvents)
			or.Put("/admin/events/approve", h.Admin.approveEvent)
			or.Get("/admin/users", h.Admin.listUsers)
			or.Put("/admin/users/{action}", h.Admin.setUserActivation)
		})
	})

	return r
}
