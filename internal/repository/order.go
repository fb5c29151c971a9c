package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/verdantshop/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, customer_id, items, total, status, payment_status, gateway_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`

	getOrderByIDSQL = `SELECT id, customer_id, items, total, status, payment_status,
			COALESCE(payment_intent_id, ''), COALESCE(gateway_customer_id, ''), created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersByCustomerSQL = `SELECT id, customer_id, items, total, status, payment_status,
			COALESCE(payment_intent_id, ''), COALESCE(gateway_customer_id, ''), created_at, updated_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	countOrdersByCustomerSQL = `SELECT COUNT(*) FROM orders WHERE customer_id = $1`

	// First write wins: once an intent ref is set it is never replaced.
	setPaymentIntentSQL = `UPDATE orders SET payment_intent_id = $2, updated_at = now()
		WHERE id = $1 AND payment_intent_id IS NULL`

	// Conditional transition: only a not-yet-completed order is updated, so
	// concurrent completion paths apply side effects at most once.
	completeOrderSQL = `UPDATE orders
		SET status = 'COMPLETED', payment_status = 'COMPLETED', updated_at = now()
		WHERE id = $1 AND status <> 'COMPLETED'`

	markPaymentFailedSQL = `UPDATE orders SET payment_status = 'FAILED', updated_at = now()
		WHERE id = $1 AND status <> 'COMPLETED'`

	orderExistsSQL = `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items are serialized to JSON for storage
// in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, itemsJSON, o.Total, o.Status, o.PaymentStatus, o.GatewayCustomerID,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// CountByCustomer returns how many orders the customer has placed.
func (r *OrderRepository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countOrdersByCustomerSQL, customerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting orders for customer %q: %w", customerID, err)
	}
	return count, nil
}

// SetPaymentIntent links a payment intent to the order. The write only
// applies when no intent ref is set yet.
func (r *OrderRepository) SetPaymentIntent(ctx context.Context, orderID, intentID string) error {
	tag, err := r.pool.Exec(ctx, setPaymentIntentSQL, orderID, intentID)
	if err != nil {
		return fmt.Errorf("setting payment intent for order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.requireExists(ctx, orderID)
	}
	return nil
}

// Complete transitions the order to its terminal state. The returned bool
// reports whether this call performed the transition.
func (r *OrderRepository) Complete(ctx context.Context, orderID string) (*order.Order, bool, error) {
	tag, err := r.pool.Exec(ctx, completeOrderSQL, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("completing order %q: %w", orderID, err)
	}

	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return o, tag.RowsAffected() > 0, nil
}

// MarkPaymentFailed records a failed payment attempt. Orders that already
// completed are left untouched.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, orderID string) error {
	tag, err := r.pool.Exec(ctx, markPaymentFailedSQL, orderID)
	if err != nil {
		return fmt.Errorf("marking payment failed for order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.requireExists(ctx, orderID)
	}
	return nil
}

// requireExists distinguishes a conditional write skipped on purpose from a
// write against a missing order.
func (r *OrderRepository) requireExists(ctx context.Context, orderID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", orderID, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		total     decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &itemsJSON, &total, &o.Status, &o.PaymentStatus,
		&o.PaymentIntentID, &o.GatewayCustomerID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Total = total
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
