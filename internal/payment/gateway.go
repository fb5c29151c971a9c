// Package payment wraps the external payment processor behind the Gateway
// interface. Two implementations exist: StripeGateway talks to the real
// processor API, DemoGateway fabricates deterministic-shaped responses so
// the whole checkout flow runs without processor credentials.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Intent statuses reported by the processor. Only IntentSucceeded completes
// an order; everything else is surfaced to the caller as a failed attempt.
const (
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentSucceeded             = "succeeded"
	IntentFailed                = "failed"
)

// Event types the checkout orchestrator reacts to. Other types are
// acknowledged and ignored.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Sentinel errors for webhook verification.
var (
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMissingWebhookSecret = errors.New("payment webhook secret is not configured")
)

// Intent is a processor object representing an authorized-but-not-yet-settled
// charge attempt. Its status lifecycle is independent of the Order's.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64 // minor units (cents)
	Currency     string
	Status       string
	Metadata     map[string]string
}

// Customer is the processor-side customer record.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// Refund is a processor refund against an intent.
type Refund struct {
	ID       string
	IntentID string
	Amount   int64
	Status   string
}

// Event is a verified webhook event with the intent it refers to.
type Event struct {
	ID     string
	Type   string
	Intent Intent
}

// Gateway is the payment processor capability consumed by the checkout
// orchestrator. Amounts are decimal major units; implementations convert
// to the processor's minor units.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CreateCustomer(ctx context.Context, email, name string) (*Customer, error)
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) (*Refund, error)

	// VerifyWebhook checks the signature header against rawBody and parses
	// the event. Fails with ErrInvalidSignature on absent or mismatched
	// signatures, ErrMissingWebhookSecret when no shared secret is set.
	VerifyWebhook(rawBody []byte, signatureHeader string) (*Event, error)
}

// minorUnits converts a decimal major-unit amount to integer minor units.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
