package ticketing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
	"github.com/eventure/ticketing/internal/postgres"
)

// Repo implements Store on postgres. Canceled orders are kept for auditing
// but excluded from every lookup, so to the workflow they no longer exist.
type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, event_id, ticket_id, quantity, total_cents,
	payment_status, payment_session_id, created_at, updated_at`

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return postgres.WithTx(ctx, r.DB, fn)
}

func (r *Repo) FindUser(ctx context.Context, id string) (identity.User, error) {
	q := postgres.From(ctx, r.DB)
	var u identity.User
	err := q.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, is_active, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return identity.User{}, identity.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *Repo) FindTicket(ctx context.Context, id string) (catalog.Ticket, error) {
	q := postgres.From(ctx, r.DB)
	var t catalog.Ticket
	err := q.QueryRow(ctx, `
		SELECT id, event_id, type, price_cents, available_quantity
		FROM tickets WHERE id = $1`, id).
		Scan(&t.ID, &t.EventID, &t.Type, &t.PriceCents, &t.AvailableQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return catalog.Ticket{}, catalog.ErrTicketNotFound
		}
		return catalog.Ticket{}, fmt.Errorf("find ticket: %w", err)
	}
	return t, nil
}

func (r *Repo) FindEvent(ctx context.Context, id string) (catalog.Event, error) {
	q := postgres.From(ctx, r.DB)
	var e catalog.Event
	var sessions []byte
	err := q.QueryRow(ctx, `
		SELECT id, title, description, starts_at, start_time, location, category,
			price_cents, image_url, is_approved, created_by, sessions, created_at, updated_at
		FROM events WHERE id = $1`, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.StartTime, &e.Location,
			&e.Category, &e.PriceCents, &e.ImageURL, &e.IsApproved, &e.CreatedBy, &sessions,
			&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return catalog.Event{}, catalog.ErrEventNotFound
		}
		return catalog.Event{}, fmt.Errorf("find event: %w", err)
	}
	if err := json.Unmarshal(sessions, &e.Sessions); err != nil {
		return catalog.Event{}, fmt.Errorf("decode sessions: %w", err)
	}
	return e, nil
}

func (r *Repo) CreateOrder(ctx context.Context, o Order) error {
	q := postgres.From(ctx, r.DB)
	_, err := q.Exec(ctx, `
		INSERT INTO orders (id, user_id, event_id, ticket_id, quantity, total_cents,
			payment_status, payment_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.UserID, o.EventID, o.TicketID, o.Quantity, o.TotalCents,
		o.PaymentStatus, o.PaymentSessionID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repo) FindOrder(ctx context.Context, id string) (Order, error) {
	q := postgres.From(ctx, r.DB)
	var o Order
	err := q.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE id = $1 AND payment_status <> 'canceled'`, id).
		Scan(&o.ID, &o.UserID, &o.EventID, &o.TicketID, &o.Quantity, &o.TotalCents,
			&o.PaymentStatus, &o.PaymentSessionID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}

func (r *Repo) FindOrdersByUser(ctx context.Context, userID string) ([]PurchasedTicket, error) {
	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `
		SELECT o.id, o.user_id, o.event_id, o.ticket_id, o.quantity, o.total_cents,
			o.payment_status, o.payment_session_id, o.created_at, o.updated_at,
			t.id, t.event_id, t.type, t.price_cents, t.available_quantity,
			e.id, e.title, e.description, e.starts_at, e.start_time, e.location,
			e.category, e.price_cents, e.image_url, e.is_approved, e.created_by,
			e.sessions, e.created_at, e.updated_at
		FROM orders o
		JOIN tickets t ON t.id = o.ticket_id
		JOIN events e ON e.id = o.event_id
		WHERE o.user_id = $1 AND o.payment_status <> 'canceled'
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchasedTicket
	for rows.Next() {
		var p PurchasedTicket
		var sessions []byte
		err := rows.Scan(
			&p.Order.ID, &p.Order.UserID, &p.Order.EventID, &p.Order.TicketID,
			&p.Order.Quantity, &p.Order.TotalCents, &p.Order.PaymentStatus,
			&p.Order.PaymentSessionID, &p.Order.CreatedAt, &p.Order.UpdatedAt,
			&p.Ticket.ID, &p.Ticket.EventID, &p.Ticket.Type, &p.Ticket.PriceCents,
			&p.Ticket.AvailableQuantity,
			&p.Event.ID, &p.Event.Title, &p.Event.Description, &p.Event.StartsAt,
			&p.Event.StartTime, &p.Event.Location, &p.Event.Category,
			&p.Event.PriceCents, &p.Event.ImageURL, &p.Event.IsApproved,
			&p.Event.CreatedBy, &sessions, &p.Event.CreatedAt, &p.Event.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sessions, &p.Event.Sessions); err != nil {
			return nil, fmt.Errorf("decode sessions: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) MarkCanceled(ctx context.Context, orderID string) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `
		UPDATE orders SET payment_status = 'canceled', updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'canceled'`, orderID)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("mark canceled: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repo) ReassignOrderUser(ctx context.Context, orderID, userID string) (Order, error) {
	q := postgres.From(ctx, r.DB)
	var o Order
	err := q.QueryRow(ctx, `
		UPDATE orders SET user_id = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'canceled'
		RETURNING `+orderColumns, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.EventID, &o.TicketID, &o.Quantity, &o.TotalCents,
			&o.PaymentStatus, &o.PaymentSessionID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("reassign order: %w", err)
	}
	return o, nil
}

func (r *Repo) UpdatePaymentStatus(ctx context.Context, orderID string, status PaymentStatus) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		orderID, status)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("update payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DecrementAvailable takes qty from the pool in one conditional UPDATE, so
// two racing purchases can never both pass a stale availability check.
func (r *Repo) DecrementAvailable(ctx context.Context, ticketID string, qty int) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `
		UPDATE tickets SET available_quantity = available_quantity - $2
		WHERE id = $1 AND available_quantity >= $2`, ticketID, qty)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return catalog.ErrTicketNotFound
		}
		return fmt.Errorf("decrement inventory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// distinguish a missing ticket from an exhausted pool
		if _, err := r.FindTicket(ctx, ticketID); err != nil {
			return err
		}
		return ErrInsufficientInventory
	}
	return nil
}

func (r *Repo) RestoreAvailable(ctx context.Context, ticketID string, qty int) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `
		UPDATE tickets SET available_quantity = available_quantity + $2
		WHERE id = $1`, ticketID, qty)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return catalog.ErrTicketNotFound
		}
		return fmt.Errorf("restore inventory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrTicketNotFound
	}
	return nil
}
