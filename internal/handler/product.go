package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/verdantshop/storefront/internal/domain/product"
)

type productResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

func (h *Handler) toProductResponse(p *product.Product) productResponse {
	imageURL := p.ImageURL
	if h.cfg.ImageBaseURL != "" && imageURL != "" && !strings.Contains(imageURL, "://") {
		imageURL = strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(imageURL, "/")
	}
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		ImageURL:    imageURL,
	}
}

func (h *Handler) toProductResponses(items []product.Product) []productResponse {
	out := make([]productResponse, len(items))
	for i := range items {
		out[i] = h.toProductResponse(&items[i])
	}
	return out
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.products.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductResponses(items))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductResponse(p))
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	items, err := h.products.Search(r.Context(), query)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductResponses(items))
}

func (h *Handler) syncProducts(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "platform integration is not configured")
		return
	}

	count, err := h.syncer.Sync(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": count})
}
