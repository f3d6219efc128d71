package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventure/ticketing/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const eventColumns = `id, title, description, starts_at, start_time, location, category,
	price_cents, image_url, is_approved, created_by, sessions, created_at, updated_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	var sessions []byte
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.StartTime, &e.Location,
		&e.Category, &e.PriceCents, &e.ImageURL, &e.IsApproved, &e.CreatedBy, &sessions,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	if err := json.Unmarshal(sessions, &e.Sessions); err != nil {
		return Event{}, fmt.Errorf("decode sessions: %w", err)
	}
	return e, nil
}

func (r *Repo) CreateEvent(ctx context.Context, e Event) (Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Sessions == nil {
		e.Sessions = []Session{}
	}
	sessions, err := json.Marshal(e.Sessions)
	if err != nil {
		return Event{}, fmt.Errorf("encode sessions: %w", err)
	}

	q := postgres.From(ctx, r.DB)
	row := q.QueryRow(ctx, `
		INSERT INTO events (id, title, description, starts_at, start_time, location,
			category, price_cents, image_url, is_approved, created_by, sessions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10, $11)
		RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.StartsAt, e.StartTime, e.Location,
		e.Category, e.PriceCents, e.ImageURL, e.CreatedBy, sessions)
	return scanEvent(row)
}

func (r *Repo) UpdateEvent(ctx context.Context, e Event) (Event, error) {
	sessions, err := json.Marshal(e.Sessions)
	if err != nil {
		return Event{}, fmt.Errorf("encode sessions: %w", err)
	}

	q := postgres.From(ctx, r.DB)
	row := q.QueryRow(ctx, `
		UPDATE events SET title = $2, description = $3, starts_at = $4, start_time = $5,
			location = $6, category = $7, price_cents = $8, image_url = $9,
			sessions = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.StartsAt, e.StartTime, e.Location,
		e.Category, e.PriceCents, e.ImageURL, sessions)
	return scanEvent(row)
}

func (r *Repo) DeleteEvent(ctx context.Context, id string) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *Repo) GetEvent(ctx context.Context, id string) (Event, error) {
	q := postgres.From(ctx, r.DB)
	return scanEvent(q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// EventFilter narrows ListEvents; zero values mean "no constraint".
type EventFilter struct {
	Since         *time.Time
	Location      string
	Category      string
	MinPriceCents *int64
	MaxPriceCents *int64
}

// buildEventFilter renders the WHERE clause for a filter. Kept pure so the
// SQL assembly is testable without a database.
func buildEventFilter(f EventFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Since != nil {
		add("starts_at >= $%d", *f.Since)
	}
	if f.Location != "" {
		add("location ILIKE $%d", "%"+f.Location+"%")
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.MinPriceCents != nil {
		add("price_cents >= $%d", *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		add("price_cents <= $%d", *f.MaxPriceCents)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repo) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	where, args := buildEventFilter(f)
	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `SELECT `+eventColumns+` FROM events`+where+` ORDER BY starts_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpcomingEvents lists events starting at or after now, soonest first.
func (r *Repo) UpcomingEvents(ctx context.Context, now time.Time) ([]Event, error) {
	return r.ListEvents(ctx, EventFilter{Since: &now})
}

func (r *Repo) UpdateSessions(ctx context.Context, id string, sessions []Session) (Event, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	encoded, err := json.Marshal(sessions)
	if err != nil {
		return Event{}, fmt.Errorf("encode sessions: %w", err)
	}

	q := postgres.From(ctx, r.DB)
	row := q.QueryRow(ctx, `
		UPDATE events SET sessions = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+eventColumns, id, encoded)
	return scanEvent(row)
}

func (r *Repo) SetApproval(ctx context.Context, id string, approved bool) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `UPDATE events SET is_approved = $2, updated_at = NOW() WHERE id = $1`, id, approved)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("set approval: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Attendees lists buyers of an event from the order ledger and records them
// in event_attendees, skipping pairs already present.
func (r *Repo) Attendees(ctx context.Context, eventID string) ([]Attendee, error) {
	if _, err := r.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `
		SELECT u.id, u.name, u.email, o.ticket_id, o.quantity, o.total_cents, o.payment_status
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.event_id = $1 AND o.payment_status <> 'canceled'
		ORDER BY o.created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attendee
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.UserID, &a.Name, &a.Email, &a.TicketID, &a.Quantity, &a.TotalCents, &a.PaymentStatus); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range out {
		if _, err := q.Exec(ctx, `
			INSERT INTO event_attendees (event_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (event_id, user_id) DO NOTHING`, eventID, a.UserID); err != nil {
			return nil, fmt.Errorf("record attendee: %w", err)
		}
	}
	return out, nil
}

// AttendeeEmails returns the distinct email addresses of an event's buyers.
func (r *Repo) AttendeeEmails(ctx context.Context, eventID string) ([]string, error) {
	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `
		SELECT DISTINCT u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.event_id = $1 AND o.payment_status <> 'canceled'`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// EventAnalytics aggregates ticket sales for one event. Canceled orders are
// excluded from every figure.
func (r *Repo) EventAnalytics(ctx context.Context, eventID string) (Analytics, error) {
	event, err := r.GetEvent(ctx, eventID)
	if err != nil {
		return Analytics{}, err
	}

	q := postgres.From(ctx, r.DB)
	var a Analytics
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0), COUNT(DISTINCT user_id), COALESCE(SUM(total_cents), 0)
		FROM orders
		WHERE event_id = $1 AND payment_status <> 'canceled'`, eventID).
		Scan(&a.TotalTicketsSold, &a.TotalAttendance, &a.TotalRevenueCents)
	if err != nil {
		return Analytics{}, fmt.Errorf("aggregate orders: %w", err)
	}

	a.EventTitle = event.Title
	a.EventDate = event.StartsAt
	a.EventLocation = event.Location
	return a, nil
}

func (r *Repo) CreateTicket(ctx context.Context, t Ticket) (Ticket, error) {
	if !ValidTicketType(t.Type) {
		return Ticket{}, ErrInvalidTicketType
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	q := postgres.From(ctx, r.DB)
	_, err := q.Exec(ctx, `
		INSERT INTO tickets (id, event_id, type, price_cents, available_quantity)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.EventID, t.Type, t.PriceCents, t.AvailableQuantity)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return Ticket{}, ErrEventNotFound
		}
		return Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	return t, nil
}

func (r *Repo) ListTickets(ctx context.Context) ([]Ticket, error) {
	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `
		SELECT id, event_id, type, price_cents, available_quantity FROM tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.Type, &t.PriceCents, &t.AvailableQuantity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
