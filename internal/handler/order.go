package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/verdantshop/storefront/internal/domain/checkout"
	"github.com/verdantshop/storefront/internal/domain/order"
)

type lineItemResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type orderResponse struct {
	ID              string             `json:"id"`
	Items           []lineItemResponse `json:"items"`
	Total           float64            `json:"total"`
	Status          order.Status       `json:"status"`
	PaymentStatus   order.PaymentStatus `json:"paymentStatus"`
	PaymentIntentID string             `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:              o.ID,
		Items:           items,
		Total:           o.Total.InexactFloat64(),
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	items, err := h.orders.ListByCustomer(r.Context(), id.CustomerID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make([]orderResponse, len(items))
	for i := range items {
		out[i] = toOrderResponse(&items[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// getOrder returns a single order. Orders belonging to another customer are
// reported as not found so order IDs cannot be probed.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	if o.CustomerID != id.CustomerID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// createOrder persists a PENDING order without a payment intent. Payment is
// arranged later through the checkout endpoints.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.checkout.CreateOrder(r.Context(), checkout.StartRequest{
		Items:    req.cartItems(),
		Identity: &checkout.Identity{CustomerID: id.CustomerID, Email: id.Email},
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}
