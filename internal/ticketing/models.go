package ticketing

import (
	"time"

	"github.com/eventure/ticketing/internal/catalog"
)

// Order links a buyer to a ticket purchase. TotalCents is fixed at creation
// time from the ticket price, so later price changes never touch past orders.
type Order struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	EventID          string        `json:"event_id"`
	TicketID         string        `json:"ticket_id"`
	Quantity         int           `json:"quantity"`
	TotalCents       int64         `json:"total_cents"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentSessionID string        `json:"payment_session_id"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Refund describes what a cancellation owes the buyer. Executing the actual
// refund against the gateway is the caller's concern.
type Refund struct {
	AmountCents int64  `json:"amount_cents"`
	Quantity    int    `json:"quantity"`
	TicketID    string `json:"ticket_id"`
	EventID     string `json:"event_id"`
}

// PurchasedTicket is an order joined with its ticket and event for display.
type PurchasedTicket struct {
	Order  Order          `json:"order"`
	Ticket catalog.Ticket `json:"ticket"`
	Event  catalog.Event  `json:"event"`
}

type PurchaseInput struct {
	UserID   string
	TicketID string
	Quantity int
}

type PurchaseResult struct {
	SessionID string
	Order     Order
}
