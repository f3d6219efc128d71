package ticketing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
)

// fakeStore emulates the postgres store in memory. WithTx serializes
// transactions and rolls the order/ticket maps back on error, matching the
// atomicity the real store gets from postgres.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users   map[string]identity.User
	tickets map[string]catalog.Ticket
	events  map[string]catalog.Event
	orders  map[string]Order

	createOrderErr  error
	decrementErr    error
	markCanceledErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]identity.User{},
		tickets: map[string]catalog.Ticket{},
		events:  map[string]catalog.Event{},
		orders:  map[string]Order{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	ticketsSnap := maps.Clone(f.tickets)
	ordersSnap := maps.Clone(f.orders)
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.tickets = ticketsSnap
		f.orders = ordersSnap
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) FindUser(_ context.Context, id string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) FindTicket(_ context.Context, id string) (catalog.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return catalog.Ticket{}, catalog.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeStore) FindEvent(_ context.Context, id string) (catalog.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return catalog.Event{}, catalog.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o Order) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
	return nil
}

func (f *fakeStore) FindOrder(_ context.Context, id string) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.PaymentStatus == StatusCanceled {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) FindOrdersByUser(_ context.Context, userID string) ([]PurchasedTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PurchasedTicket
	for _, o := range f.orders {
		if o.UserID != userID || o.PaymentStatus == StatusCanceled {
			continue
		}
		out = append(out, PurchasedTicket{
			Order:  o,
			Ticket: f.tickets[o.TicketID],
			Event:  f.events[o.EventID],
		})
	}
	return out, nil
}

func (f *fakeStore) MarkCanceled(_ context.Context, orderID string) error {
	if f.markCanceledErr != nil {
		return f.markCanceledErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.PaymentStatus == StatusCanceled {
		return ErrOrderNotFound
	}
	o.PaymentStatus = StatusCanceled
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) ReassignOrderUser(_ context.Context, orderID, userID string) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.PaymentStatus == StatusCanceled {
		return Order{}, ErrOrderNotFound
	}
	o.UserID = userID
	f.orders[orderID] = o
	return o, nil
}

func (f *fakeStore) UpdatePaymentStatus(_ context.Context, orderID string, status PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.PaymentStatus = status
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) DecrementAvailable(_ context.Context, ticketID string, qty int) error {
	if f.decrementErr != nil {
		return f.decrementErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return catalog.ErrTicketNotFound
	}
	if t.AvailableQuantity < qty {
		return ErrInsufficientInventory
	}
	t.AvailableQuantity -= qty
	f.tickets[ticketID] = t
	return nil
}

func (f *fakeStore) RestoreAvailable(_ context.Context, ticketID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return catalog.ErrTicketNotFound
	}
	t.AvailableQuantity += qty
	f.tickets[ticketID] = t
	return nil
}

func (f *fakeStore) availableQuantity(t *testing.T, ticketID string) int {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	require.True(t, ok, "ticket %s missing", ticketID)
	return ticket.AvailableQuantity
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeCheckout struct {
	mu    sync.Mutex
	calls int
	err   error

	lastAmount   int64
	lastCurrency string
}

func (c *fakeCheckout) CreateSession(_ context.Context, amountCents int64, currency, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.calls++
	c.lastAmount = amountCents
	c.lastCurrency = currency
	return fmt.Sprintf("cs_test_%d", c.calls), nil
}

type sentMail struct{ to, subject, body string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []Envelope
}

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var env Envelope
	_ = json.Unmarshal(value, &env)
	p.published = append(p.published, env)
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.published))
	for _, env := range p.published {
		out = append(out, env.EventType)
	}
	return out
}

type fixture struct {
	engine   *Engine
	store    *fakeStore
	checkout *fakeCheckout
	notifier *fakeNotifier
	events   *fakePublisher
}

// newFixture seeds two users, one event and one ticket: price 50.00,
// availableQuantity 3 (the walkthrough scenario of the purchase flow).
func newFixture() *fixture {
	store := newFakeStore()
	store.users["user-1"] = identity.User{ID: "user-1", Name: "Ana", Email: "ana@example.com", Role: identity.RoleAttendee, IsActive: true}
	store.users["user-2"] = identity.User{ID: "user-2", Name: "Ben", Email: "ben@example.com", Role: identity.RoleAttendee, IsActive: true}
	store.events["event-1"] = catalog.Event{ID: "event-1", Title: "Music Festival 2025", Location: "Austin, TX"}
	store.tickets["ticket-1"] = catalog.Ticket{ID: "ticket-1", EventID: "event-1", Type: catalog.TicketGeneral, PriceCents: 5000, AvailableQuantity: 3}

	checkout := &fakeCheckout{}
	notifier := &fakeNotifier{}
	events := &fakePublisher{}
	engine := NewEngine(store, checkout, notifier, events, Config{
		Currency:    "inr",
		SuccessURL:  "http://localhost:3000/paymentsuccess",
		CancelURL:   "http://localhost:3000/paymentfailure",
		ServiceName: "ticketing-api-test",
	}, nil)

	return &fixture{engine: engine, store: store, checkout: checkout, notifier: notifier, events: events}
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("success decrements inventory and creates one pending order", func(t *testing.T) {
		fx := newFixture()

		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
		require.NoError(t, err)
		require.Equal(t, "cs_test_1", res.SessionID)
		require.Equal(t, int64(10000), res.Order.TotalCents)
		require.Equal(t, 2, res.Order.Quantity)
		require.Equal(t, StatusPending, res.Order.PaymentStatus)
		require.Equal(t, "cs_test_1", res.Order.PaymentSessionID)

		require.Equal(t, 1, fx.store.availableQuantity(t, "ticket-1"))
		require.Equal(t, 1, fx.store.orderCount())
		require.Equal(t, int64(10000), fx.checkout.lastAmount)
		require.Equal(t, "inr", fx.checkout.lastCurrency)

		require.Len(t, fx.notifier.sent, 1)
		require.Equal(t, "ana@example.com", fx.notifier.sent[0].to)
		require.Contains(t, fx.notifier.sent[0].subject, "Music Festival 2025")
		require.Contains(t, fx.notifier.sent[0].body, "100.00")

		require.Equal(t, []string{EventOrderCreated}, fx.events.types())
	})

	t.Run("insufficient inventory fails before any side effect", func(t *testing.T) {
		fx := newFixture()

		_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 5})
		require.ErrorIs(t, err, ErrInsufficientInventory)

		require.Equal(t, 3, fx.store.availableQuantity(t, "ticket-1"))
		require.Equal(t, 0, fx.store.orderCount())
		require.Equal(t, 0, fx.checkout.calls)
		require.Empty(t, fx.notifier.sent)
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		fx := newFixture()
		for _, qty := range []int{0, -1} {
			_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: qty})
			require.ErrorIs(t, err, ErrInvalidQuantity)
		}
		require.Equal(t, 0, fx.checkout.calls)
	})

	t.Run("unknown user", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "ghost", TicketID: "ticket-1", Quantity: 1})
		require.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ghost", Quantity: 1})
		require.ErrorIs(t, err, catalog.ErrTicketNotFound)
	})

	t.Run("gateway failure aborts before any mutation", func(t *testing.T) {
		fx := newFixture()
		fx.checkout.err = errors.New("card network down")

		_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
		require.ErrorIs(t, err, ErrPaymentGateway)

		require.Equal(t, 3, fx.store.availableQuantity(t, "ticket-1"))
		require.Equal(t, 0, fx.store.orderCount())
		require.Empty(t, fx.notifier.sent)
	})

	t.Run("notification failure does not fail the purchase", func(t *testing.T) {
		fx := newFixture()
		fx.notifier.err = errors.New("smtp unreachable")

		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
		require.NoError(t, err)
		require.NotEmpty(t, res.SessionID)
		require.Equal(t, 2, fx.store.availableQuantity(t, "ticket-1"))
	})

	t.Run("inventory write failure rolls the order back", func(t *testing.T) {
		fx := newFixture()
		fx.store.decrementErr = errors.New("connection reset")

		_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
		require.ErrorIs(t, err, ErrInconsistentState)

		require.Equal(t, 0, fx.store.orderCount())
		require.Equal(t, 3, fx.store.availableQuantity(t, "ticket-1"))
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("restores inventory and hides the order", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
		require.NoError(t, err)
		require.Equal(t, 1, fx.store.availableQuantity(t, "ticket-1"))

		refund, err := fx.engine.Cancel(ctx, res.Order.ID)
		require.NoError(t, err)
		require.Equal(t, Refund{AmountCents: 10000, Quantity: 2, TicketID: "ticket-1", EventID: "event-1"}, refund)
		require.Equal(t, 3, fx.store.availableQuantity(t, "ticket-1"))

		purchased, err := fx.engine.GetPurchased(ctx, "user-1")
		require.NoError(t, err)
		require.Empty(t, purchased)

		require.Equal(t, []string{EventOrderCreated, EventOrderCanceled}, fx.events.types())
	})

	t.Run("second cancel fails NotFound", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
		require.NoError(t, err)

		_, err = fx.engine.Cancel(ctx, res.Order.ID)
		require.NoError(t, err)

		_, err = fx.engine.Cancel(ctx, res.Order.ID)
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.engine.Cancel(ctx, "ghost")
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("ticket deleted since purchase still cancels", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
		require.NoError(t, err)

		fx.store.mu.Lock()
		delete(fx.store.tickets, "ticket-1")
		fx.store.mu.Unlock()

		refund, err := fx.engine.Cancel(ctx, res.Order.ID)
		require.NoError(t, err)
		require.Equal(t, int64(10000), refund.AmountCents)

		_, err = fx.engine.Cancel(ctx, res.Order.ID)
		require.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("changes only the user reference", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
		require.NoError(t, err)

		updated, err := fx.engine.Transfer(ctx, res.Order.ID, "user-2")
		require.NoError(t, err)
		require.Equal(t, "user-2", updated.UserID)
		require.Equal(t, res.Order.Quantity, updated.Quantity)
		require.Equal(t, res.Order.TicketID, updated.TicketID)
		require.Equal(t, res.Order.TotalCents, updated.TotalCents)
		require.Equal(t, res.Order.PaymentStatus, updated.PaymentStatus)

		// inventory untouched by transfer
		require.Equal(t, 1, fx.store.availableQuantity(t, "ticket-1"))

		purchased, err := fx.engine.GetPurchased(ctx, "user-2")
		require.NoError(t, err)
		require.Len(t, purchased, 1)
	})

	t.Run("unknown new user", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
		require.NoError(t, err)

		_, err = fx.engine.Transfer(ctx, res.Order.ID, "ghost")
		require.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.engine.Transfer(ctx, "ghost", "user-2")
		require.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestGetPurchased(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
	require.NoError(t, err)

	purchased, err := fx.engine.GetPurchased(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, purchased, 1)
	require.Equal(t, res.Order.ID, purchased[0].Order.ID)
	require.Equal(t, "ticket-1", purchased[0].Ticket.ID)
	require.Equal(t, "Music Festival 2025", purchased[0].Event.Title)

	_, err = fx.engine.GetPurchased(ctx, "ghost")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestRecordPaymentResult(t *testing.T) {
	ctx := context.Background()

	t.Run("pending to succeeded", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
		require.NoError(t, err)

		order, err := fx.engine.RecordPaymentResult(ctx, res.Order.ID, StatusSucceeded)
		require.NoError(t, err)
		require.Equal(t, StatusSucceeded, order.PaymentStatus)

		// terminal: no further gateway verdicts accepted
		_, err = fx.engine.RecordPaymentResult(ctx, res.Order.ID, StatusFailed)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("canceled is not a gateway verdict", func(t *testing.T) {
		fx := newFixture()
		res, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
		require.NoError(t, err)

		_, err = fx.engine.RecordPaymentResult(ctx, res.Order.ID, StatusCanceled)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

// Oversell freedom: N concurrent single-unit purchases against k available
// units never yield more than k successes.
func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	const k = 5
	const n = 20

	fx.store.mu.Lock()
	ticket := fx.store.tickets["ticket-1"]
	ticket.AvailableQuantity = k
	fx.store.tickets["ticket-1"] = ticket
	fx.store.mu.Unlock()

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 1})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientInventory):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, k, successes)
	require.Equal(t, n-k, rejections)
	require.Equal(t, 0, fx.store.availableQuantity(t, "ticket-1"))
	require.Equal(t, k, fx.store.orderCount())
}

// The walkthrough: price 50.00, 3 available; buy 2 for 100.00, a second
// 2-unit purchase is refused, cancel restores all 3.
func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	res1, err := fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-1", TicketID: "ticket-1", Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, int64(10000), res1.Order.TotalCents)
	require.Equal(t, 1, fx.store.availableQuantity(t, "ticket-1"))

	_, err = fx.engine.Purchase(ctx, PurchaseInput{UserID: "user-2", TicketID: "ticket-1", Quantity: 2})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	_, err = fx.engine.Cancel(ctx, res1.Order.ID)
	require.NoError(t, err)
	require.Equal(t, 3, fx.store.availableQuantity(t, "ticket-1"))
}
