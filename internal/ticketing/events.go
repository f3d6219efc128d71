package ticketing

import (
	"encoding/json"
	"time"

	"github.com/eventure/ticketing/internal/catalog"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderCanceled    = "OrderCanceled"
	EventOrderTransferred = "OrderTransferred"
	EventScheduleUpdated  = "ScheduleUpdated"
)

// Envelope is the wire format for every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	EventID    string `json:"event_id"`
	TicketID   string `json:"ticket_id"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
	SessionID  string `json:"session_id"`
}

type OrderCanceledPayload struct {
	OrderID     string `json:"order_id"`
	TicketID    string `json:"ticket_id"`
	Quantity    int    `json:"quantity"`
	RefundCents int64  `json:"refund_cents"`
}

type OrderTransferredPayload struct {
	OrderID    string `json:"order_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
}

type ScheduleUpdatedPayload struct {
	EventID  string            `json:"event_id"`
	Title    string            `json:"title"`
	Sessions []catalog.Session `json:"sessions"`
}
