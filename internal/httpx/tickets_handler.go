package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/identity"
	"github.com/eventure/ticketing/internal/redisx"
	"github.com/eventure/ticketing/internal/ticketing"
)

// Workflow is the engine surface the handlers drive.
type Workflow interface {
	Purchase(ctx context.Context, in ticketing.PurchaseInput) (ticketing.PurchaseResult, error)
	Cancel(ctx context.Context, orderID string) (ticketing.Refund, error)
	Transfer(ctx context.Context, orderID, newUserID string) (ticketing.Order, error)
	GetOrder(ctx context.Context, orderID string) (ticketing.Order, error)
	GetPurchased(ctx context.Context, userID string) ([]ticketing.PurchasedTicket, error)
	RecordPaymentResult(ctx context.Context, orderID string, status ticketing.PaymentStatus) (ticketing.Order, error)
}

// TicketCatalog is the slice of the catalog the ticket endpoints need.
type TicketCatalog interface {
	CreateTicket(ctx context.Context, t catalog.Ticket) (catalog.Ticket, error)
	ListTickets(ctx context.Context) ([]catalog.Ticket, error)
}

type TicketsHandler struct {
	Workflow Workflow
	Catalog  TicketCatalog
	Redis    *redis.Client
}

type createTicketReq struct {
	EventID           string             `json:"event_id"`
	Type              catalog.TicketType `json:"type"`
	PriceCents        int64              `json:"price_cents"`
	AvailableQuantity int                `json:"available_quantity"`
}

func (h *TicketsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTicketReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.EventID == "" || req.AvailableQuantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ticket, err := h.Catalog.CreateTicket(r.Context(), catalog.Ticket{
		EventID:           req.EventID,
		Type:              req.Type,
		PriceCents:        req.PriceCents,
		AvailableQuantity: req.AvailableQuantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *TicketsHandler) list(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Catalog.ListTickets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tickets == nil {
		tickets = []catalog.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

type purchaseReq struct {
	TicketID string `json:"ticket_id"`
	Quantity int    `json:"quantity"`
}

type purchaseResp struct {
	SessionID string          `json:"session_id"`
	Order     ticketing.Order `json:"order"`
}

func (h *TicketsHandler) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.TicketID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing ticket_id"})
		return
	}

	claims := ClaimsFrom(r.Context())
	res, err := h.Workflow.Purchase(r.Context(), ticketing.PurchaseInput{
		UserID:   claims.UserID,
		TicketID: req.TicketID,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(r.Context(), res.Order.ID, res.Order.PaymentStatus)
	writeJSON(w, http.StatusCreated, purchaseResp{SessionID: res.SessionID, Order: res.Order})
}

func (h *TicketsHandler) purchased(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	purchased, err := h.Workflow.GetPurchased(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if purchased == nil {
		purchased = []ticketing.PurchasedTicket{}
	}
	writeJSON(w, http.StatusOK, purchased)
}

type cancelReq struct {
	OrderID string `json:"order_id"`
}

func (h *TicketsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := h.authorizeOrderAccess(r, req.OrderID); err != nil {
		writeError(w, err)
		return
	}

	refund, err := h.Workflow.Cancel(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(r.Context(), req.OrderID, ticketing.StatusCanceled)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "order canceled",
		"refund":  refund,
	})
}

type transferReq struct {
	OrderID   string `json:"order_id"`
	NewUserID string `json:"new_user_id"`
}

func (h *TicketsHandler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OrderID == "" || req.NewUserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	if err := h.authorizeOrderAccess(r, req.OrderID); err != nil {
		writeError(w, err)
		return
	}

	order, err := h.Workflow.Transfer(r.Context(), req.OrderID, req.NewUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type paymentResultReq struct {
	OrderID string                  `json:"order_id"`
	Status  ticketing.PaymentStatus `json:"status"`
}

func (h *TicketsHandler) paymentResult(w http.ResponseWriter, r *http.Request) {
	var req paymentResultReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	order, err := h.Workflow.RecordPaymentResult(r.Context(), req.OrderID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(r.Context(), order.ID, order.PaymentStatus)
	writeJSON(w, http.StatusOK, order)
}

// orderStatus serves the payment status from redis when cached, falling back
// to the store and refilling the cache.
func (h *TicketsHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	order, err := h.Workflow.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(r.Context(), order.ID, order.PaymentStatus)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(order.PaymentStatus)})
}

// authorizeOrderAccess lets the order's owner, or any organizer, act on it.
// Unknown orders fall through so the workflow reports NotFound.
func (h *TicketsHandler) authorizeOrderAccess(r *http.Request, orderID string) error {
	claims := ClaimsFrom(r.Context())
	if claims.Role == string(identity.RoleOrganizer) {
		return nil
	}
	order, err := h.Workflow.GetOrder(r.Context(), orderID)
	if err != nil {
		return err
	}
	if order.UserID != claims.UserID {
		return ticketing.ErrOrderNotFound
	}
	return nil
}

func (h *TicketsHandler) cacheStatus(ctx context.Context, orderID string, status ticketing.PaymentStatus) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]string{"status": string(status)})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
