package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ Gateway = (*DemoGateway)(nil)

// DemoGateway is active when no processor secret key is configured. It
// synthesizes plausible processor objects so development and tests can run
// the full checkout flow. RetrieveIntent always reports success and
// VerifyWebhook accepts anything; none of this is suitable for production.
type DemoGateway struct {
	lg *zap.Logger
}

// NewDemoGateway returns a gateway that fabricates processor responses.
func NewDemoGateway(lg *zap.Logger) *DemoGateway {
	lg.Warn("payment processor not configured, running in demo mode")
	return &DemoGateway{lg: lg}
}

// CreateIntent returns a locally generated intent awaiting a payment method,
// echoing the requested amount and metadata.
func (g *DemoGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error) {
	id := fmt.Sprintf("pi_demo_%s", uuid.New().String())
	return &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String(),
		Amount:       minorUnits(amount),
		Currency:     currency,
		Status:       IntentRequiresPaymentMethod,
		Metadata:     metadata,
	}, nil
}

// RetrieveIntent always reports the intent as succeeded.
func (g *DemoGateway) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	return &Intent{
		ID:       id,
		Currency: "usd",
		Status:   IntentSucceeded,
	}, nil
}

// CreateCustomer returns a locally generated processor customer.
func (g *DemoGateway) CreateCustomer(_ context.Context, email, name string) (*Customer, error) {
	return &Customer{
		ID:    fmt.Sprintf("cus_demo_%s", uuid.New().String()),
		Email: email,
		Name:  name,
	}, nil
}

// Refund returns a synthesized succeeded refund.
func (g *DemoGateway) Refund(_ context.Context, intentID string, amount decimal.Decimal) (*Refund, error) {
	return &Refund{
		ID:       fmt.Sprintf("re_demo_%s", uuid.New().String()),
		IntentID: intentID,
		Amount:   minorUnits(amount),
		Status:   IntentSucceeded,
	}, nil
}

// VerifyWebhook fabricates a succeeded event without checking anything.
// Documented demo behaviour: webhook deliveries cannot be authenticated
// without a shared secret, so demo mode simply exercises the success path.
func (g *DemoGateway) VerifyWebhook(_ []byte, _ string) (*Event, error) {
	g.lg.Debug("demo mode: fabricating succeeded webhook event")
	return &Event{
		ID:   fmt.Sprintf("evt_demo_%s", uuid.New().String()),
		Type: EventIntentSucceeded,
		Intent: Intent{
			ID:     "pi_demo_webhook",
			Status: IntentSucceeded,
		},
	}, nil
}
