package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/domain/checkout"
	"github.com/verdantshop/storefront/internal/domain/order"
	"github.com/verdantshop/storefront/internal/payment"
	"github.com/verdantshop/storefront/internal/platform"
)

// Signature headers for the two webhook families.
const (
	paymentSignatureHeader  = "Stripe-Signature"
	platformSignatureHeader = "X-Platform-Hmac-Sha256"
)

type cartItemRequest struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	// Price is accepted for wire compatibility and deliberately ignored;
	// pricing is server-side only.
	Price float64 `json:"price"`
}

type customerInfoRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type cartRequest struct {
	Items        []cartItemRequest    `json:"items"`
	CustomerInfo *customerInfoRequest `json:"customerInfo"`
}

func (r cartRequest) cartItems() []checkout.CartItem {
	items := make([]checkout.CartItem, len(r.Items))
	for i, item := range r.Items {
		id := item.ProductID
		if id == "" {
			id = item.ID
		}
		items[i] = checkout.CartItem{ProductID: id, Quantity: item.Quantity}
	}
	return items
}

func (r cartRequest) customerInfo() *checkout.CustomerInfo {
	if r.CustomerInfo == nil {
		return nil
	}
	return &checkout.CustomerInfo{
		Email: r.CustomerInfo.Email,
		Name:  r.CustomerInfo.Name,
		Phone: r.CustomerInfo.Phone,
	}
}

// writeCheckoutError maps orchestrator errors onto the error taxonomy:
// invalid input and state conflicts are 400, missing orders 404, upstream
// failures a generic 500.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr *checkout.InvalidQuantityError
		uiErr *checkout.UnknownItemError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoCustomer),
		errors.Is(err, checkout.ErrIntentMismatch),
		errors.As(err, &iqErr),
		errors.As(err, &uiErr):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var identity *checkout.Identity
	if id := identityFrom(r.Context()); id != nil {
		identity = &checkout.Identity{CustomerID: id.CustomerID, Email: id.Email}
	}

	res, err := h.checkout.StartCheckout(r.Context(), checkout.StartRequest{
		Items:    req.cartItems(),
		Info:     req.customerInfo(),
		Identity: identity,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"orderId":      res.OrderID,
		"clientSecret": res.ClientSecret,
		"total":        res.Total.InexactFloat64(),
		"status":       "payment_intent_created",
	})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.checkout.ConfirmPayment(r.Context(), chi.URLParam(r, "orderID"), req.PaymentIntentID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	if !res.Succeeded {
		h.writeError(w, http.StatusBadRequest, "payment not completed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orderId":       res.Order.ID,
		"status":        res.Order.Status,
		"paymentStatus": res.Order.PaymentStatus,
		"total":         res.Order.Total.InexactFloat64(),
		"message":       "payment confirmed",
	})
}

// completeOrder is the legacy unverified completion path. It stays separated
// from confirmPayment and performs no payment checks.
func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.CompleteLegacy(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orderId": o.ID,
		"status":  o.Status,
		"total":   o.Total.InexactFloat64(),
		"message": "order completed",
	})
}

func (h *Handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orderId":       o.ID,
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"total":         o.Total.InexactFloat64(),
		"createdAt":     o.CreatedAt,
		"updatedAt":     o.UpdatedAt,
	})
}

// paymentWebhook handles processor events. Verification is delegated to the
// gateway; an unverifiable payload is rejected before any state change.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	ev, err := h.gateway.VerifyWebhook(body, r.Header.Get(paymentSignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) || errors.Is(err, payment.ErrMissingWebhookSecret) {
			h.writeError(w, http.StatusBadRequest, "invalid webhook signature")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if err := h.checkout.HandlePaymentEvent(r.Context(), ev); err != nil {
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// platformWebhook verifies and acknowledges commerce-platform order events.
// The events carry platform order references with no local mapping, so they
// are logged and acked without state changes.
func (h *Handler) platformWebhook(w http.ResponseWriter, r *http.Request) {
	event := chi.URLParam(r, "event")
	switch event {
	case "created", "updated", "paid":
	default:
		h.writeError(w, http.StatusNotFound, "unknown webhook event")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	sig := r.Header.Get(platformSignatureHeader)
	if err := platform.VerifySignature(body, sig, h.cfg.PlatformWebhookSecret); err != nil {
		h.writeError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	h.lg.Info("platform order webhook received",
		zap.String("event", event),
		zap.Int("payload_bytes", len(body)),
	)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
