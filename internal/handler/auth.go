package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/verdantshop/storefront/internal/auth"
	"github.com/verdantshop/storefront/internal/domain/customer"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type customerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	Token    string           `json:"token"`
	Customer customerResponse `json:"customer"`
}

func toCustomerResponse(c *customer.Customer) customerResponse {
	return customerResponse{ID: c.ID, Email: c.Email, Name: c.DisplayName}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	c, token, err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, customer.ErrAlreadyExists) {
			h.writeError(w, http.StatusConflict, "email is already registered")
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, Customer: toCustomerResponse(c)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Customer: toCustomerResponse(c)})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"customerId": id.CustomerID,
		"email":      id.Email,
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	p, err := h.auth.Profile(r.Context(), id.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         p.Customer.ID,
		"email":      p.Customer.Email,
		"name":       p.Customer.DisplayName,
		"orderCount": p.OrderCount,
		"createdAt":  p.Customer.CreatedAt,
	})
}
