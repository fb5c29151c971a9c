// Package auth provides customer registration, credential login, and JWT
// session verification.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/verdantshop/storefront/internal/domain/customer"
	"github.com/verdantshop/storefront/internal/domain/order"
)

// tokenTTL is how long an issued session token stays valid.
const tokenTTL = 24 * time.Hour

// Sentinel errors. ErrInvalidCredentials deliberately covers every login
// failure mode so responses never reveal whether an email is registered.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Identity is the verified subject of a session token.
type Identity struct {
	CustomerID string
	Email      string
}

// Profile is the account view returned to an authenticated customer.
type Profile struct {
	Customer   *customer.Customer
	OrderCount int
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies customer sessions.
type Service struct {
	customers customer.Repository
	orders    order.Repository
	secret    []byte
	now       func() time.Time
	lg        *zap.Logger
}

// NewService creates the auth service. The secret signs session tokens and
// must stay stable across restarts for issued tokens to remain valid.
func NewService(customers customer.Repository, orders order.Repository, secret string, lg *zap.Logger) *Service {
	return &Service{
		customers: customers,
		orders:    orders,
		secret:    []byte(secret),
		now:       time.Now,
		lg:        lg,
	}
}

// Register creates a credentialed customer account and returns it with a
// fresh session token. Returns customer.ErrAlreadyExists when the email is
// taken, including by a guest account.
func (s *Service) Register(ctx context.Context, email, name, password string) (*customer.Customer, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", errors.Wrap(err, "hash password")
	}

	c := &customer.Customer{
		ID:             uuid.New().String(),
		Email:          email,
		DisplayName:    name,
		CredentialHash: string(hash),
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(c)
	if err != nil {
		return nil, "", err
	}

	s.lg.Info("customer registered", zap.String("customer_id", c.ID))
	return c, token, nil
}

// Login verifies the credentials and returns the customer with a fresh
// session token. Guests have no credential and can never log in.
func (s *Service) Login(ctx context.Context, email, password string) (*customer.Customer, string, error) {
	c, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", errors.Wrap(err, "look up customer")
	}
	if c.IsGuest() {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.CredentialHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(c)
	if err != nil {
		return nil, "", err
	}
	return c, token, nil
}

// Authenticate verifies a session token and returns its identity.
func (s *Service) Authenticate(_ context.Context, token string) (*Identity, error) {
	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || cl.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{CustomerID: cl.Subject, Email: cl.Email}, nil
}

// Profile returns the account details and order count for a customer.
func (s *Service) Profile(ctx context.Context, customerID string) (*Profile, error) {
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	count, err := s.orders.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	return &Profile{Customer: c, OrderCount: count}, nil
}

func (s *Service) issueToken(c *customer.Customer) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
