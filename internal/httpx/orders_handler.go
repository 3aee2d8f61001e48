package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-surprise-bags/internal/redisx"
	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Identity headers are set by the auth gateway in front of this service and trusted as-is.
const (
	HeaderCustomerID     = "X-Customer-ID"
	HeaderStoreID        = "X-Store-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// SummaryCache is implemented by redisx.OrderCache.
type SummaryCache interface {
	GetSummary(ctx context.Context, orderID string) (reservation.OrderSummary, bool, error)
	PutSummary(ctx context.Context, sum reservation.OrderSummary) error
	DropSummary(ctx context.Context, orderID string) error
	Claim(ctx context.Context, customerID, key string) (orderID string, claimed bool, err error)
	Remember(ctx context.Context, customerID, key, orderID string) error
	Forget(ctx context.Context, customerID, key string) error
}

type OrdersHandler struct {
	Service *reservation.Service
	Cache   SummaryCache // optional
	Log     *zap.Logger
}

type CreateOrderReq struct {
	BagID string `json:"bagId"`
}

type ValidatePickupReq struct {
	PickupCode string `json:"pickupCode"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/confirm", h.confirmOrder)
	r.Post("/orders/{id}/validate-pickup", h.validatePickup)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/bags", h.listBags)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(HeaderCustomerID)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing customer identity"})
		return
	}
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if strings.TrimSpace(req.BagID) == "" {
		badRequest(w, "missing bagId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := r.Header.Get(HeaderIdempotencyKey)
	if idemKey != "" && h.Cache != nil {
		orderID, claimed, err := h.Cache.Claim(ctx, customerID, idemKey)
		switch {
		case errors.Is(err, redisx.ErrInProgress):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		case err != nil:
			// redis down: carry on without idempotency, postgres stays correct
			h.Log.Warn("idempotency claim failed", zap.Error(err))
			idemKey = ""
		case !claimed:
			h.replay(ctx, w, orderID)
			return
		}
	}

	sum, err := h.Service.CreateReservation(ctx, customerID, req.BagID)
	if err != nil {
		if idemKey != "" {
			_ = h.Cache.Forget(ctx, customerID, idemKey)
		}
		writeError(w, err)
		return
	}
	if idemKey != "" {
		if err := h.Cache.Remember(ctx, customerID, idemKey, sum.OrderID); err != nil {
			h.Log.Warn("idempotency remember failed", zap.String("order_id", sum.OrderID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, sum)
}

func (h *OrdersHandler) replay(ctx context.Context, w http.ResponseWriter, orderID string) {
	sum, err := h.Service.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Idempotent-Replay", "true")
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	storeID := r.Header.Get(HeaderStoreID)
	if storeID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing store identity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Service.Confirm(ctx, chi.URLParam(r, "id"), storeID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, sum.OrderID)
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) validatePickup(w http.ResponseWriter, r *http.Request) {
	var req ValidatePickupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.PickupCode == "" {
		badRequest(w, "missing pickupCode")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sum, err := h.Service.ValidatePickup(ctx, chi.URLParam(r, "id"), req.PickupCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(HeaderCustomerID)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing customer identity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Service.Cancel(ctx, chi.URLParam(r, "id"), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, sum.OrderID)
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if h.Cache != nil {
		if sum, ok, err := h.Cache.GetSummary(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, sum)
			return
		}
	}

	// 2) fallback DB
	sum, err := h.Service.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cache(ctx, sum)
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) listBags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	bags, err := h.Service.ListAvailableBags(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bags)
}

// invalidate drops the cached summary after a status change; only getOrder fills it.
func (h *OrdersHandler) invalidate(ctx context.Context, orderID string) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.DropSummary(ctx, orderID); err != nil {
		h.Log.Warn("cache drop failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (h *OrdersHandler) cache(ctx context.Context, sum reservation.OrderSummary) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.PutSummary(ctx, sum); err != nil {
		h.Log.Warn("cache summary failed", zap.String("order_id", sum.OrderID), zap.Error(err))
	}
}
