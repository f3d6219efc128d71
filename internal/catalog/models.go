package catalog

import "time"

// Session is one agenda entry inside an event's schedule.
type Session struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Speaker   string `json:"speaker"`
}

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	StartTime   string    `json:"start_time"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url"`
	IsApproved  bool      `json:"is_approved"`
	CreatedBy   string    `json:"created_by"`
	Sessions    []Session `json:"sessions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TicketType string

const (
	TicketGeneral TicketType = "General Admission"
	TicketVIP     TicketType = "VIP"
)

func ValidTicketType(t TicketType) bool {
	return t == TicketGeneral || t == TicketVIP
}

type Ticket struct {
	ID                string     `json:"id"`
	EventID           string     `json:"event_id"`
	Type              TicketType `json:"type"`
	PriceCents        int64      `json:"price_cents"`
	AvailableQuantity int        `json:"available_quantity"`
}

// Attendee is one buyer of an event, derived from the order ledger.
type Attendee struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	TicketID      string `json:"ticket_id"`
	Quantity      int    `json:"quantity"`
	TotalCents    int64  `json:"total_cents"`
	PaymentStatus string `json:"payment_status"`
}

// Analytics aggregates sales figures for one event.
type Analytics struct {
	TotalTicketsSold  int       `json:"total_tickets_sold"`
	TotalAttendance   int       `json:"total_attendance"`
	TotalRevenueCents int64     `json:"total_revenue_cents"`
	EventTitle        string    `json:"event_title"`
	EventDate         time.Time `json:"event_date"`
	EventLocation     string    `json:"event_location"`
}
