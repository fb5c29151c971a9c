package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/auth"
	"github.com/verdantshop/storefront/internal/domain/checkout"
	"github.com/verdantshop/storefront/internal/domain/customer"
	"github.com/verdantshop/storefront/internal/domain/order"
	"github.com/verdantshop/storefront/internal/domain/product"
	"github.com/verdantshop/storefront/internal/payment"
)

const testPlatformSecret = "platform-secret"

// --- In-memory repositories ---

type memProductRepo struct {
	byID map[string]*product.Product
}

func (m *memProductRepo) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) Search(_ context.Context, query string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.Title == query {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) Upsert(_ context.Context, p *product.Product) error {
	m.byID[p.ID] = p
	return nil
}

type memCustomerRepo struct {
	mu      sync.Mutex
	byID    map[string]*customer.Customer
	byEmail map[string]*customer.Customer
}

func (m *memCustomerRepo) Create(_ context.Context, c *customer.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[c.Email]; ok {
		return customer.ErrAlreadyExists
	}
	m.byID[c.ID] = c
	m.byEmail[c.Email] = c
	return nil
}

func (m *memCustomerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

func (m *memCustomerRepo) GetByEmail(_ context.Context, email string) (*customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byEmail[email]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) CountByCustomer(_ context.Context, customerID string) (int, error) {
	orders, _ := m.ListByCustomer(context.Background(), customerID)
	return len(orders), nil
}

func (m *memOrderRepo) SetPaymentIntent(_ context.Context, orderID, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.PaymentIntentID == "" {
		o.PaymentIntentID = intentID
	}
	return nil
}

func (m *memOrderRepo) Complete(_ context.Context, orderID string) (*order.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, false, order.ErrNotFound
	}
	transitioned := o.Status != order.StatusCompleted
	if transitioned {
		o.Status = order.StatusCompleted
		o.PaymentStatus = order.PaymentCompleted
	}
	cp := *o
	return &cp, transitioned, nil
}

func (m *memOrderRepo) MarkPaymentFailed(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != order.StatusCompleted {
		o.PaymentStatus = order.PaymentFailed
	}
	return nil
}

// stubGateway overrides webhook verification on top of the demo gateway.
type stubGateway struct {
	payment.Gateway

	verifyErr error
	event     *payment.Event
}

func (g *stubGateway) VerifyWebhook(rawBody []byte, header string) (*payment.Event, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.event != nil {
		return g.event, nil
	}
	return g.Gateway.VerifyWebhook(rawBody, header)
}

// --- Fixture ---

type fixture struct {
	handler   *Handler
	router    http.Handler
	products  *memProductRepo
	customers *memCustomerRepo
	orders    *memOrderRepo
	gateway   *stubGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &memProductRepo{byID: map[string]*product.Product{
		"sku1": {ID: "sku1", Title: "Hand Grinder", Price: decimal.RequireFromString("25.00")},
		"sku2": {ID: "sku2", Title: "Filter Papers", Price: decimal.RequireFromString("6.00"), ImageURL: "/img/papers.jpg"},
	}}
	customers := &memCustomerRepo{
		byID:    make(map[string]*customer.Customer),
		byEmail: make(map[string]*customer.Customer),
	}
	orders := &memOrderRepo{orders: make(map[string]*order.Order)}
	gateway := &stubGateway{Gateway: payment.NewDemoGateway(zap.NewNop())}

	checkoutSvc := checkout.NewService(products, customers, orders, gateway, "usd", zap.NewNop())
	authSvc := auth.NewService(customers, orders, "test-secret", zap.NewNop())

	h := New(Config{
		ImageBaseURL:          "https://img.example.com",
		PlatformWebhookSecret: testPlatformSecret,
	}, checkoutSvc, authSvc, products, orders, gateway, nil, zap.NewNop())

	return &fixture{
		handler:   h,
		router:    h.Routes(),
		products:  products,
		customers: customers,
		orders:    orders,
		gateway:   gateway,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// registerCustomer creates an account over HTTP and returns its token.
func (f *fixture) registerCustomer(t *testing.T, email string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "name": "Test User", "password": "s3cret",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	decodeBody(t, rec, &resp)
	return resp.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func platformSign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testPlatformSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
