package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantshop/storefront/internal/domain/customer"
)

const (
	createCustomerSQL = `INSERT INTO customers (id, email, display_name, credential_hash)
		VALUES ($1, $2, $3, NULLIF($4, ''))`

	getCustomerByIDSQL = `SELECT id, email, display_name, COALESCE(credential_hash, ''), created_at
		FROM customers WHERE id = $1`

	getCustomerByEmailSQL = `SELECT id, email, display_name, COALESCE(credential_hash, ''), created_at
		FROM customers WHERE email = $1`
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create persists a new customer. Returns customer.ErrAlreadyExists when the
// email is already registered.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, createCustomerSQL, c.ID, c.Email, c.DisplayName, c.CredentialHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return customer.ErrAlreadyExists
		}
		return fmt.Errorf("creating customer %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// GetByEmail returns a customer by email.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting customer by email: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer by email: %w", err)
	}
	return &c, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Email, &c.DisplayName, &c.CredentialHash, &c.CreatedAt)
	return c, err
}
