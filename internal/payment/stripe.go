package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://api.stripe.com/v1"

var _ Gateway = (*StripeGateway)(nil)

// StripeGateway talks to the real processor over its form-encoded REST API.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
	lg            *zap.Logger

	// tolerance bounds the accepted age of a signed webhook timestamp.
	tolerance time.Duration
}

// StripeConfig configures the gateway. BaseURL is overridable for tests.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
}

// NewStripeGateway creates a gateway backed by the processor API.
func NewStripeGateway(cfg StripeConfig, lg *zap.Logger) *StripeGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &StripeGateway{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 30 * time.Second},
		lg:            lg,
		tolerance:     5 * time.Minute,
	}
}

// intentJSON mirrors the processor's payment intent representation.
type intentJSON struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

func (j intentJSON) toIntent() *Intent {
	return &Intent{
		ID:           j.ID,
		ClientSecret: j.ClientSecret,
		Amount:       j.Amount,
		Currency:     j.Currency,
		Status:       j.Status,
		Metadata:     j.Metadata,
	}
}

// CreateIntent creates a payment intent for the given amount with automatic
// payment methods enabled, tagging it with the provided metadata.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(minorUnits(amount), 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out intentJSON
	if err := g.do(ctx, http.MethodPost, "/payment_intents", form, &out); err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}
	return out.toIntent(), nil
}

// RetrieveIntent fetches the live state of a payment intent.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	var out intentJSON
	if err := g.do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "retrieve payment intent %s", id)
	}
	return out.toIntent(), nil
}

// CreateCustomer registers a processor-side customer record.
func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	if name != "" {
		form.Set("name", name)
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := g.do(ctx, http.MethodPost, "/customers", form, &out); err != nil {
		return nil, errors.Wrap(err, "create customer")
	}
	return &Customer{ID: out.ID, Email: out.Email, Name: out.Name}, nil
}

// Refund issues a refund against an intent. A zero amount refunds the full
// charge.
func (g *StripeGateway) Refund(ctx context.Context, intentID string, amount decimal.Decimal) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	if amount.IsPositive() {
		form.Set("amount", strconv.FormatInt(minorUnits(amount), 10))
	}

	var out struct {
		ID            string `json:"id"`
		PaymentIntent string `json:"payment_intent"`
		Amount        int64  `json:"amount"`
		Status        string `json:"status"`
	}
	if err := g.do(ctx, http.MethodPost, "/refunds", form, &out); err != nil {
		return nil, errors.Wrapf(err, "refund intent %s", intentID)
	}
	return &Refund{ID: out.ID, IntentID: out.PaymentIntent, Amount: out.Amount, Status: out.Status}, nil
}

// VerifyWebhook validates the signature header and parses the event.
func (g *StripeGateway) VerifyWebhook(rawBody []byte, signatureHeader string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if err := verifyIntentSignature(rawBody, signatureHeader, g.webhookSecret, time.Now(), g.tolerance); err != nil {
		return nil, err
	}
	return parseEvent(rawBody)
}

// apiError is the processor's error envelope.
type apiError struct {
	Err struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs one API call. Raw error bodies are logged, never returned to
// callers verbatim.
func (g *StripeGateway) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "processor request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Err.Message != "" {
			g.lg.Error("processor API error",
				zap.Int("status", resp.StatusCode),
				zap.String("type", apiErr.Err.Type),
				zap.String("code", apiErr.Err.Code),
				zap.String("message", apiErr.Err.Message),
			)
		} else {
			g.lg.Error("processor API error",
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", data),
			)
		}
		return errors.Errorf("processor returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
