package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for customer lookup and creation.
var (
	ErrNotFound      = errors.New("customer not found")
	ErrAlreadyExists = errors.New("customer already exists")
)

// Customer represents a storefront account. Guest customers are created
// during checkout from an email alone and carry no credential hash.
type Customer struct {
	ID             string
	Email          string
	DisplayName    string
	CredentialHash string
	CreatedAt      time.Time
}

// IsGuest reports whether the customer has no login credential.
func (c *Customer) IsGuest() bool {
	return c.CredentialHash == ""
}

// Repository defines persistence operations for customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
}
