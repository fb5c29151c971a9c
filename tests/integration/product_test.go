//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededProducts {
		t.Fatalf("expected %d products, got %d", seededProducts, len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var grinder *productResponse
	for i := range products {
		if products[i].ID == "sku-burr-grinder" {
			grinder = &products[i]
			break
		}
	}

	if grinder == nil {
		t.Fatal("product sku-burr-grinder not found")
	}
	if grinder.Title != "Conical Burr Grinder" {
		t.Errorf("title: got %q, want %q", grinder.Title, "Conical Burr Grinder")
	}
	if grinder.Price != 72.5 {
		t.Errorf("price: got %v, want 72.5", grinder.Price)
	}
	if grinder.Description == "" {
		t.Error("description is empty")
	}
	if grinder.ImageURL == "" {
		t.Error("imageUrl is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/sku-ceramic-mug")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "sku-ceramic-mug" {
		t.Errorf("id: got %q, want %q", product.ID, "sku-ceramic-mug")
	}
	if product.Price != 18 {
		t.Errorf("price: got %v, want 18", product.Price)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/sku-does-not-exist")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Error == "" {
		t.Error("error message is empty")
	}
}

func TestSearchProducts(t *testing.T) {
	resp := doGet(t, "/api/products/search?q="+url.QueryEscape("kettle"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 1 {
		t.Fatalf("expected 1 result, got %d", len(products))
	}
	if products[0].ID != "sku-pour-over-kettle" {
		t.Errorf("id: got %q, want %q", products[0].ID, "sku-pour-over-kettle")
	}
}

func TestSearchProducts_MissingQuery(t *testing.T) {
	resp := doGet(t, "/api/products/search")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSyncProducts_Unconfigured(t *testing.T) {
	// No platform credentials are configured in the test environment, so
	// manual sync must report the integration as unavailable.
	resp := doPost(t, "/api/products/sync", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
