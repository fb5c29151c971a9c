package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStripeGateway_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "5000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "ord_1", r.PostForm.Get("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pi_1",
			"client_secret": "pi_1_secret_abc",
			"amount": 5000,
			"currency": "usd",
			"status": "requires_payment_method",
			"metadata": {"order_id": "ord_1"}
		}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL}, zap.NewNop())

	intent, err := g.CreateIntent(context.Background(), decimal.RequireFromString("50.00"), "usd", map[string]string{"order_id": "ord_1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret_abc", intent.ClientSecret)
	assert.Equal(t, IntentRequiresPaymentMethod, intent.Status)
}

func TestStripeGateway_RetrieveIntent_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such payment_intent"}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL}, zap.NewNop())

	_, err := g.RetrieveIntent(context.Background(), "pi_missing")
	require.Error(t, err)
	// Raw upstream error bodies are logged, not propagated.
	assert.NotContains(t, err.Error(), "No such payment_intent")
}

func TestStripeGateway_VerifyWebhook_MissingSecret(t *testing.T) {
	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123"}, zap.NewNop())

	_, err := g.VerifyWebhook([]byte("{}"), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrMissingWebhookSecret)
}
