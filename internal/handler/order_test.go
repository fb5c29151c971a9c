package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_RequireAuth(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/orders", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/orders", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/orders/some-id", nil, nil).Code)
}

func TestCreateAndListOrders(t *testing.T) {
	f := newFixture(t)
	token := f.registerCustomer(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"id": "sku1", "quantity": 2}},
	}, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created orderResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, 50.00, created.Total)
	assert.Equal(t, "PENDING", string(created.Status))
	assert.Empty(t, created.PaymentIntentID)

	rec = f.do(t, http.MethodGet, "/orders", nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []orderResponse
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newFixture(t)
	token := f.registerCustomer(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{},
	}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(t)
	alice := f.registerCustomer(t, "alice@example.com")
	bob := f.registerCustomer(t, "bob@example.com")

	rec := f.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"id": "sku2", "quantity": 1}},
	}, bearer(alice))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created orderResponse
	decodeBody(t, rec, &created)

	// The owner sees the order.
	rec = f.do(t, http.MethodGet, "/orders/"+created.ID, nil, bearer(alice))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Anyone else gets not found, not forbidden.
	rec = f.do(t, http.MethodGet, "/orders/"+created.ID, nil, bearer(bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	token := f.registerCustomer(t, "alice@example.com")

	rec := f.do(t, http.MethodGet, "/orders/missing", nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
