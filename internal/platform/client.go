// Package platform wraps the external commerce platform: catalog export,
// checkout session lookup, webhook management, and webhook signature
// verification. It is independent of the local order store.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Product is a catalog item as exported by the platform.
type Product struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	BodyHTML string           `json:"body_html"`
	Variants []ProductVariant `json:"variants"`
	Images   []ProductImage   `json:"images"`
}

// ProductVariant carries the purchasable unit of a platform product.
type ProductVariant struct {
	ID                int64  `json:"id"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// ProductImage is a platform-hosted product image.
type ProductImage struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Checkout is a platform-side checkout session.
type Checkout struct {
	ID          string  `json:"id"`
	WebURL      string  `json:"web_url"`
	CompletedAt *string `json:"completed_at"`
	TotalPrice  string  `json:"total_price"`
	Currency    string  `json:"currency"`
}

// CheckoutItem is a line item for creating a platform checkout.
type CheckoutItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// Webhook is a platform webhook subscription.
type Webhook struct {
	ID      int64  `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

// Client talks to the platform's admin REST API.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
	lg          *zap.Logger
}

// Config configures the platform client. StoreURL is the bare store host;
// the admin API path and version are appended by the client.
type Config struct {
	StoreURL    string
	AccessToken string
	APIVersion  string
}

// NewClient creates a platform API client.
func NewClient(cfg Config, lg *zap.Logger) *Client {
	version := cfg.APIVersion
	if version == "" {
		version = "2023-10"
	}
	return &Client{
		baseURL:     fmt.Sprintf("https://%s/admin/api/%s", cfg.StoreURL, version),
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
		lg:          lg,
	}
}

// Products fetches the platform's product catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products.json", nil, &out); err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return out.Products, nil
}

// Product fetches a single platform product by ID.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var out struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d.json", id), nil, &out); err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &out.Product, nil
}

// CreateCheckout opens a platform checkout session for the given items.
func (c *Client) CreateCheckout(ctx context.Context, items []CheckoutItem) (*Checkout, error) {
	body := map[string]any{
		"checkout": map[string]any{"line_items": items},
	}
	var out struct {
		Checkout Checkout `json:"checkout"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkouts.json", body, &out); err != nil {
		return nil, errors.Wrap(err, "create checkout")
	}
	return &out.Checkout, nil
}

// Checkout fetches a platform checkout session by ID.
func (c *Client) Checkout(ctx context.Context, id string) (*Checkout, error) {
	var out struct {
		Checkout Checkout `json:"checkout"`
	}
	if err := c.do(ctx, http.MethodGet, "/checkouts/"+id+".json", nil, &out); err != nil {
		return nil, errors.Wrapf(err, "get checkout %s", id)
	}
	return &out.Checkout, nil
}

// Order is a platform-side order, referenced by inbound order webhooks.
type Order struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	TotalPrice      string `json:"total_price"`
	Currency        string `json:"currency"`
	FinancialStatus string `json:"financial_status"`
}

// Orders lists recent platform orders.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders.json", nil, &out); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return out.Orders, nil
}

// CreateWebhook registers a webhook subscription with the platform.
func (c *Client) CreateWebhook(ctx context.Context, topic, address string) (*Webhook, error) {
	body := map[string]any{
		"webhook": map[string]any{"topic": topic, "address": address, "format": "json"},
	}
	var out struct {
		Webhook Webhook `json:"webhook"`
	}
	if err := c.do(ctx, http.MethodPost, "/webhooks.json", body, &out); err != nil {
		return nil, errors.Wrapf(err, "create webhook %s", topic)
	}
	return &out.Webhook, nil
}

// Webhooks lists the registered webhook subscriptions.
func (c *Client) Webhooks(ctx context.Context) ([]Webhook, error) {
	var out struct {
		Webhooks []Webhook `json:"webhooks"`
	}
	if err := c.do(ctx, http.MethodGet, "/webhooks.json", nil, &out); err != nil {
		return nil, errors.Wrap(err, "list webhooks")
	}
	return out.Webhooks, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("X-Platform-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "platform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.lg.Error("platform API error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
			zap.ByteString("body", data),
		)
		return errors.Errorf("platform returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
