// Package checkout implements the order/payment orchestration core: it
// creates orders priced from the authoritative catalog, opens matching
// payment intents, and reconciles completion across the three triggers
// (client confirmation, processor webhook, legacy direct-complete).
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/domain/customer"
	"github.com/verdantshop/storefront/internal/domain/order"
	"github.com/verdantshop/storefront/internal/domain/product"
	"github.com/verdantshop/storefront/internal/payment"
)

// Metadata keys set on payment intents so webhook events can be routed back
// to the originating order.
const (
	MetaOrderID       = "order_id"
	MetaCustomerEmail = "customer_email"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart      = errors.New("cart items required")
	ErrNoCustomer     = errors.New("customer identity or contact info required")
	ErrIntentMismatch = errors.New("payment intent mismatch")
)

// UnknownItemError indicates a cart references a catalog item that does not
// exist. The request is rejected rather than pricing the item at zero.
type UnknownItemError struct {
	ProductID string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown catalog item %s", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.ProductID)
}

// CartItem is a client-submitted cart line. Any price the client attaches
// to its request is ignored; pricing is server-side only.
type CartItem struct {
	ProductID string
	Quantity  int
}

// CustomerInfo is the contact information supplied for guest checkout.
type CustomerInfo struct {
	Email string
	Name  string
	Phone string
}

// Identity is an authenticated customer resolved by the auth capability.
type Identity struct {
	CustomerID string
	Email      string
	Name       string
}

// StartRequest is the input to StartCheckout.
type StartRequest struct {
	Items    []CartItem
	Info     *CustomerInfo
	Identity *Identity
}

// StartResult carries what the client needs to complete payment out-of-band.
type StartResult struct {
	OrderID      string
	ClientSecret string
	Total        decimal.Decimal
}

// ConfirmResult reports the outcome of a payment confirmation attempt.
// When Succeeded is false the order stays PENDING with paymentStatus FAILED
// and IntentStatus carries the processor's reported status.
type ConfirmResult struct {
	Order        *order.Order
	Succeeded    bool
	IntentStatus string
}

// Service is the checkout orchestrator.
type Service struct {
	products  product.Repository
	customers customer.Repository
	orders    order.Repository
	gateway   payment.Gateway
	currency  string
	lg        *zap.Logger
}

// NewService creates the orchestrator with its injected dependencies.
func NewService(
	products product.Repository,
	customers customer.Repository,
	orders order.Repository,
	gateway payment.Gateway,
	currency string,
	lg *zap.Logger,
) *Service {
	return &Service{
		products:  products,
		customers: customers,
		orders:    orders,
		gateway:   gateway,
		currency:  currency,
		lg:        lg,
	}
}

// StartCheckout resolves the customer, prices the cart from the catalog,
// persists a PENDING order, and opens a payment intent for its total.
//
// Ordering: order creation happens-before intent creation happens-before
// intent-ref persistence. A failure after order creation leaves the order
// PENDING without an intent ref; that state is observable and recoverable
// by retry, not rolled back.
func (s *Service) StartCheckout(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	cust, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	lines, total, err := s.priceCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	// Processor-side customer creation is best effort: the record may
	// already exist, and checkout must not fail because of it.
	gatewayCustomerID := ""
	if gc, err := s.gateway.CreateCustomer(ctx, cust.Email, cust.DisplayName); err != nil {
		s.lg.Warn("could not create gateway customer",
			zap.String("email", cust.Email),
			zap.Error(err),
		)
	} else {
		gatewayCustomerID = gc.ID
	}

	o := &order.Order{
		ID:                uuid.New().String(),
		CustomerID:        cust.ID,
		Items:             lines,
		Total:             total,
		Status:            order.StatusPending,
		PaymentStatus:     order.PaymentPending,
		GatewayCustomerID: gatewayCustomerID,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	intent, err := s.gateway.CreateIntent(ctx, total, s.currency, map[string]string{
		MetaOrderID:       o.ID,
		MetaCustomerEmail: cust.Email,
	})
	if err != nil {
		// The PENDING order is kept; the caller may retry.
		return nil, errors.Wrapf(err, "create payment intent for order %s", o.ID)
	}

	if err := s.orders.SetPaymentIntent(ctx, o.ID, intent.ID); err != nil {
		return nil, errors.Wrapf(err, "link intent to order %s", o.ID)
	}

	s.lg.Info("checkout started",
		zap.String("order_id", o.ID),
		zap.String("intent_id", intent.ID),
		zap.String("total", total.StringFixed(2)),
	)

	return &StartResult{
		OrderID:      o.ID,
		ClientSecret: intent.ClientSecret,
		Total:        total,
	}, nil
}

// CreateOrder prices the cart and persists a PENDING order without opening
// a payment intent. Serves the direct order API; payment is arranged later
// through the checkout endpoints.
func (s *Service) CreateOrder(ctx context.Context, req StartRequest) (*order.Order, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	cust, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	lines, total, err := s.priceCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:            uuid.New().String(),
		CustomerID:    cust.ID,
		Items:         lines,
		Total:         total,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.lg.Info("order created", zap.String("order_id", o.ID))
	return o, nil
}

func validateItems(items []CartItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	return nil
}

// priceCart snapshots authoritative catalog prices into order lines and
// computes the total. Unknown product IDs are an error, never a zero price.
func (s *Service) priceCart(ctx context.Context, items []CartItem) ([]order.LineItem, decimal.Decimal, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]order.LineItem, len(items))
	total := decimal.Zero
	for i, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, decimal.Zero, &UnknownItemError{ProductID: item.ProductID}
		}
		lines[i] = order.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return lines, total.Round(2), nil
}

// resolveCustomer picks the authenticated identity when present, otherwise
// reuses or creates a guest customer from the supplied email.
func (s *Service) resolveCustomer(ctx context.Context, req StartRequest) (*customer.Customer, error) {
	if req.Identity != nil {
		c, err := s.customers.GetByID(ctx, req.Identity.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "resolve authenticated customer")
		}
		return c, nil
	}

	if req.Info == nil || req.Info.Email == "" {
		return nil, ErrNoCustomer
	}

	c, err := s.customers.GetByEmail(ctx, req.Info.Email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, customer.ErrNotFound) {
		return nil, errors.Wrap(err, "look up customer by email")
	}

	name := req.Info.Name
	if name == "" {
		name = "Guest"
	}
	guest := &customer.Customer{
		ID:          uuid.New().String(),
		Email:       req.Info.Email,
		DisplayName: name,
	}
	if err := s.customers.Create(ctx, guest); err != nil {
		return nil, errors.Wrap(err, "create guest customer")
	}

	s.lg.Info("created guest customer", zap.String("customer_id", guest.ID))
	return guest, nil
}

// ConfirmPayment checks the claimed intent against the order's stored intent
// ref, retrieves the live intent status, and completes the order when the
// processor reports success. Confirming an already-completed order re-applies
// the same terminal state without error.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, claimedIntentID string) (*ConfirmResult, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentIntentID == "" || o.PaymentIntentID != claimedIntentID {
		return nil, ErrIntentMismatch
	}

	intent, err := s.gateway.RetrieveIntent(ctx, claimedIntentID)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieve intent %s", claimedIntentID)
	}

	if intent.Status != payment.IntentSucceeded {
		if err := s.orders.MarkPaymentFailed(ctx, orderID); err != nil {
			return nil, errors.Wrapf(err, "mark payment failed for order %s", orderID)
		}
		updated, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &ConfirmResult{Order: updated, Succeeded: false, IntentStatus: intent.Status}, nil
	}

	completed, transitioned, err := s.orders.Complete(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "complete order %s", orderID)
	}
	if transitioned {
		s.lg.Info("order completed via confirmation", zap.String("order_id", orderID))
	}
	return &ConfirmResult{Order: completed, Succeeded: true, IntentStatus: intent.Status}, nil
}

// CompleteLegacy unconditionally completes an order without payment
// verification. Retained for compatibility and demo flows only; it carries
// none of ConfirmPayment's guarantees and must stay clearly separated from
// the verified path.
func (s *Service) CompleteLegacy(ctx context.Context, orderID string) (*order.Order, error) {
	o, transitioned, err := s.orders.Complete(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.lg.Info("order completed via legacy path", zap.String("order_id", orderID))
	}
	return o, nil
}

// HandlePaymentEvent applies a verified processor webhook event. Repeated
// deliveries are harmless: completion is a conditional write and failed
// events never regress a completed order. Events without an order reference
// and unrecognized types are acknowledged and ignored.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev *payment.Event) error {
	switch ev.Type {
	case payment.EventIntentSucceeded:
		orderID := ev.Intent.Metadata[MetaOrderID]
		if orderID == "" {
			s.lg.Warn("succeeded event without order reference", zap.String("event_id", ev.ID))
			return nil
		}
		_, transitioned, err := s.orders.Complete(ctx, orderID)
		if errors.Is(err, order.ErrNotFound) {
			s.lg.Warn("webhook references unknown order",
				zap.String("event_id", ev.ID),
				zap.String("order_id", orderID),
			)
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "complete order %s", orderID)
		}
		if transitioned {
			s.lg.Info("order completed via webhook", zap.String("order_id", orderID))
		}
		return nil

	case payment.EventIntentFailed:
		orderID := ev.Intent.Metadata[MetaOrderID]
		if orderID == "" {
			return nil
		}
		if err := s.orders.MarkPaymentFailed(ctx, orderID); err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return nil
			}
			return errors.Wrapf(err, "mark payment failed for order %s", orderID)
		}
		s.lg.Info("payment failed via webhook", zap.String("order_id", orderID))
		return nil

	default:
		s.lg.Debug("ignoring payment event", zap.String("type", ev.Type))
		return nil
	}
}
