package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus is the payment lifecycle state, tracked independently of
// the order status: a PENDING order may carry a FAILED payment and be
// retried with a new confirmation attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// LineItem is a snapshot of a purchased catalog item. UnitPrice is copied
// from the catalog at checkout time and never changes afterwards.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is a customer purchase. Items and Total are immutable after
// creation; only Status, PaymentStatus, and UpdatedAt mutate.
type Order struct {
	ID                string
	CustomerID        string
	Items             []LineItem
	Total             decimal.Decimal
	Status            Status
	PaymentStatus     PaymentStatus
	PaymentIntentID   string
	GatewayCustomerID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository defines persistence operations for orders. Status mutations
// are conditional writes so concurrent completion paths (client confirm,
// processor webhook, legacy complete) converge on a single terminal state.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)

	// SetPaymentIntent links the gateway intent to the order. First write
	// wins: a second call for the same order is a no-op.
	SetPaymentIntent(ctx context.Context, orderID, intentID string) error

	// Complete transitions the order to COMPLETED/COMPLETED. The returned
	// bool reports whether this call performed the transition; false means
	// the order was already completed (idempotent re-entry). Returns
	// ErrNotFound for unknown orders.
	Complete(ctx context.Context, orderID string) (*Order, bool, error)

	// MarkPaymentFailed sets paymentStatus=FAILED unless the order has
	// already completed. Completed orders are never regressed.
	MarkPaymentFailed(ctx context.Context, orderID string) error
}
