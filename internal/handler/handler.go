// Package handler exposes the storefront HTTP API. Handlers decode requests,
// delegate to domain services, and map domain errors onto the stable
// {"error": message} response shape.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/auth"
	"github.com/verdantshop/storefront/internal/domain/checkout"
	"github.com/verdantshop/storefront/internal/domain/order"
	"github.com/verdantshop/storefront/internal/domain/product"
	"github.com/verdantshop/storefront/internal/payment"
	"github.com/verdantshop/storefront/internal/platform"
)

// maxBodySize caps request bodies, including raw webhook payloads.
const maxBodySize = 1 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// PlatformWebhookSecret verifies inbound commerce-platform webhooks.
	// When empty, verification always rejects.
	PlatformWebhookSecret string
}

// Handler carries the domain dependencies shared by all route handlers.
type Handler struct {
	cfg      Config
	checkout *checkout.Service
	auth     *auth.Service
	products product.Repository
	orders   order.Repository
	gateway  payment.Gateway
	syncer   *platform.Syncer // nil when the platform integration is not configured
	lg       *zap.Logger
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	checkoutSvc *checkout.Service,
	authSvc *auth.Service,
	products product.Repository,
	orders order.Repository,
	gateway payment.Gateway,
	syncer *platform.Syncer,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		cfg:      cfg,
		checkout: checkoutSvc,
		auth:     authSvc,
		products: products,
		orders:   orders,
		gateway:  gateway,
		syncer:   syncer,
		lg:       lg,
	}
}

// Routes builds the API router. The caller mounts it under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.With(h.requireAuth).Get("/verify", h.verify)
		r.With(h.requireAuth).Get("/profile", h.profile)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/search", h.searchProducts)
		r.Get("/{id}", h.getProduct)
		r.Post("/sync", h.syncProducts)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.With(h.optionalAuth).Post("/create-payment-intent", h.createPaymentIntent)
		r.Post("/confirm-payment/{orderID}", h.confirmPayment)
		r.Post("/complete/{orderID}", h.completeOrder)
		r.Get("/order-status/{orderID}", h.orderStatus)
		r.Post("/webhook/payment", h.paymentWebhook)
		r.Post("/webhook/order/{event}", h.platformWebhook)
	})

	return r
}

type ctxKey int

const identityKey ctxKey = iota

// identityFrom returns the authenticated identity, or nil for anonymous
// requests.
func identityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// requireAuth rejects requests without a valid bearer token.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.bearerIdentity(r)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// optionalAuth attaches an identity when a valid bearer token is present and
// treats everything else as anonymous.
func (h *Handler) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := h.bearerIdentity(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) bearerIdentity(r *http.Request) (*auth.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, auth.ErrInvalidToken
	}
	return h.auth.Authenticate(r.Context(), token)
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the stable error shape. The message must never carry raw
// upstream error bodies or internal details.
func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs the cause and responds with a generic message.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.lg.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}
