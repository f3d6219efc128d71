package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
	kafkax "github.com/eventure/ticketing/internal/kafka"
)

// Store is the persistence surface the engine orchestrates: the catalog
// (tickets, events), the order ledger and the user directory. WithTx must
// make the enclosed writes atomic; implementations that cannot will surface
// ErrInconsistentState from the engine when the pair half-applies.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindUser(ctx context.Context, id string) (identity.User, error)
	FindTicket(ctx context.Context, id string) (catalog.Ticket, error)
	FindEvent(ctx context.Context, id string) (catalog.Event, error)

	CreateOrder(ctx context.Context, o Order) error
	FindOrder(ctx context.Context, id string) (Order, error)
	FindOrdersByUser(ctx context.Context, userID string) ([]PurchasedTicket, error)
	MarkCanceled(ctx context.Context, orderID string) error
	ReassignOrderUser(ctx context.Context, orderID, userID string) (Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status PaymentStatus) error

	// DecrementAvailable subtracts qty from the ticket pool only when the
	// remainder stays non-negative, as one atomic storage operation; it
	// returns ErrInsufficientInventory otherwise.
	DecrementAvailable(ctx context.Context, ticketID string, qty int) error
	RestoreAvailable(ctx context.Context, ticketID string, qty int) error
}

// Checkout creates a hosted payment session for an amount in minor units.
type Checkout interface {
	CreateSession(ctx context.Context, amountCents int64, currency, successURL, cancelURL string) (string, error)
}

// Notifier delivers a message to an address. Best effort: the engine logs
// failures and never fails an operation over them.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Publisher emits domain events; best effort, may be nil.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Config struct {
	Currency    string
	SuccessURL  string
	CancelURL   string
	ServiceName string
}

// Engine orchestrates purchase, cancellation and transfer across the catalog
// store and the order ledger.
type Engine struct {
	store    Store
	checkout Checkout
	notifier Notifier
	events   Publisher
	cfg      Config
	log      *slog.Logger
}

func NewEngine(store Store, checkout Checkout, notifier Notifier, events Publisher, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, checkout: checkout, notifier: notifier, events: events, cfg: cfg, log: log}
}

// Purchase reserves quantity units of a ticket for a user. The payment
// session is created before any mutation, so a gateway failure leaves the
// ledger and inventory untouched. Order insert and inventory decrement run
// in one transaction; the conditional decrement re-checks availability so a
// purchase that lost the race aborts instead of overselling.
func (e *Engine) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.Quantity <= 0 {
		return PurchaseResult{}, ErrInvalidQuantity
	}

	user, err := e.store.FindUser(ctx, in.UserID)
	if err != nil {
		return PurchaseResult{}, err
	}
	ticket, err := e.store.FindTicket(ctx, in.TicketID)
	if err != nil {
		return PurchaseResult{}, err
	}
	event, err := e.store.FindEvent(ctx, ticket.EventID)
	if err != nil {
		return PurchaseResult{}, err
	}

	if in.Quantity > ticket.AvailableQuantity {
		return PurchaseResult{}, ErrInsufficientInventory
	}

	totalCents := ticket.PriceCents * int64(in.Quantity)

	sessionID, err := e.checkout.CreateSession(ctx, totalCents, e.cfg.Currency, e.cfg.SuccessURL, e.cfg.CancelURL)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	order := Order{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		EventID:          ticket.EventID,
		TicketID:         in.TicketID,
		Quantity:         in.Quantity,
		TotalCents:       totalCents,
		PaymentStatus:    StatusPending,
		PaymentSessionID: sessionID,
		CreatedAt:        time.Now().UTC(),
	}

	err = e.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := e.store.CreateOrder(txCtx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := e.store.DecrementAvailable(txCtx, in.TicketID, in.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientInventory) {
				return err
			}
			e.log.Error("inventory decrement failed after order write",
				"order_id", order.ID, "ticket_id", in.TicketID, "quantity", in.Quantity, "direction", "decrement", "error", err)
			return fmt.Errorf("%w: order %s ticket %s qty %d", ErrInconsistentState, order.ID, in.TicketID, in.Quantity)
		}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	subject := fmt.Sprintf("Ticket Purchase Confirmation for %s", event.Title)
	body := fmt.Sprintf(
		"Dear %s,\n\nThank you for purchasing %d ticket(s) for %q.\nTotal Amount: %.2f\n\nWe look forward to seeing you at the event!\n\nBest regards,\nEvent Management Team",
		user.Name, in.Quantity, event.Title, float64(totalCents)/100)
	if e.notifier != nil {
		if err := e.notifier.Send(ctx, user.Email, subject, body); err != nil {
			e.log.Warn("purchase confirmation email failed", "order_id", order.ID, "to", user.Email, "error", err)
		}
	}

	e.publish(EventOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		EventID:    order.EventID,
		TicketID:   order.TicketID,
		Quantity:   order.Quantity,
		TotalCents: order.TotalCents,
		SessionID:  sessionID,
	})

	return PurchaseResult{SessionID: sessionID, Order: order}, nil
}

// Cancel marks an order canceled and restores its quantity to the ticket
// pool. A ticket deleted since purchase skips the restore but the
// cancellation still succeeds and still reports the refund owed.
func (e *Engine) Cancel(ctx context.Context, orderID string) (Refund, error) {
	order, err := e.store.FindOrder(ctx, orderID)
	if err != nil {
		return Refund{}, err
	}

	refund := Refund{
		AmountCents: order.TotalCents,
		Quantity:    order.Quantity,
		TicketID:    order.TicketID,
		EventID:     order.EventID,
	}

	err = e.store.WithTx(ctx, func(txCtx context.Context) error {
		restored := false
		if _, err := e.store.FindTicket(txCtx, order.TicketID); err == nil {
			if err := e.store.RestoreAvailable(txCtx, order.TicketID, order.Quantity); err != nil {
				return fmt.Errorf("restore inventory: %w", err)
			}
			restored = true
		} else if !errors.Is(err, catalog.ErrTicketNotFound) {
			return err
		}

		if err := e.store.MarkCanceled(txCtx, orderID); err != nil {
			if restored {
				e.log.Error("order not canceled after inventory restore",
					"order_id", orderID, "ticket_id", order.TicketID, "quantity", order.Quantity, "direction", "restore", "error", err)
				return fmt.Errorf("%w: order %s ticket %s qty %d", ErrInconsistentState, orderID, order.TicketID, order.Quantity)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Refund{}, err
	}

	e.publish(EventOrderCanceled, orderID, OrderCanceledPayload{
		OrderID:     orderID,
		TicketID:    order.TicketID,
		Quantity:    order.Quantity,
		RefundCents: order.TotalCents,
	})

	return refund, nil
}

// Transfer reassigns an order to another user. No inventory or payment side
// effects.
func (e *Engine) Transfer(ctx context.Context, orderID, newUserID string) (Order, error) {
	order, err := e.store.FindOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if _, err := e.store.FindUser(ctx, newUserID); err != nil {
		return Order{}, err
	}

	updated, err := e.store.ReassignOrderUser(ctx, orderID, newUserID)
	if err != nil {
		return Order{}, err
	}

	e.publish(EventOrderTransferred, orderID, OrderTransferredPayload{
		OrderID:    orderID,
		FromUserID: order.UserID,
		ToUserID:   newUserID,
	})

	return updated, nil
}

// GetOrder fetches one non-canceled order.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (Order, error) {
	return e.store.FindOrder(ctx, orderID)
}

// GetPurchased lists a user's orders joined with ticket and event.
func (e *Engine) GetPurchased(ctx context.Context, userID string) ([]PurchasedTicket, error) {
	if _, err := e.store.FindUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.FindOrdersByUser(ctx, userID)
}

// RecordPaymentResult applies the gateway's verdict to a pending order.
// Only pending -> succeeded and pending -> failed are accepted here;
// cancellation goes through Cancel.
func (e *Engine) RecordPaymentResult(ctx context.Context, orderID string, status PaymentStatus) (Order, error) {
	if status != StatusSucceeded && status != StatusFailed {
		return Order{}, ErrInvalidTransition
	}

	order, err := e.store.FindOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(order.PaymentStatus, status) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.PaymentStatus, status)
	}

	if err := e.store.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return Order{}, err
	}
	order.PaymentStatus = status
	return order, nil
}

func (e *Engine) publish(eventType, correlationID string, payload any) {
	if e.events == nil {
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.cfg.ServiceName,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	e.events.Publish(PartitionKey(correlationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
