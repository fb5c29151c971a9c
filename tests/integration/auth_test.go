//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestAuth_RegisterLoginProfile(t *testing.T) {
	email := fmt.Sprintf("auth-%d@example.com", time.Now().UnixNano())

	reg := doPost(t, "/api/auth/register", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
		"name":     "Auth Tester",
	})
	defer reg.Body.Close()

	if reg.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", reg.StatusCode)
	}
	session := decodeJSON[sessionResponse](t, reg)
	if session.Token == "" {
		t.Fatal("register returned no token")
	}
	if session.Customer.Email != email {
		t.Errorf("email: got %q, want %q", session.Customer.Email, email)
	}

	login := doPost(t, "/api/auth/login", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	defer login.Body.Close()

	if login.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", login.StatusCode)
	}
	loggedIn := decodeJSON[sessionResponse](t, login)
	if loggedIn.Token == "" {
		t.Fatal("login returned no token")
	}

	profile := doGetWithBearer(t, "/api/auth/profile", loggedIn.Token)
	defer profile.Body.Close()

	if profile.StatusCode != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", profile.StatusCode)
	}
	body := decodeJSON[map[string]any](t, profile)
	if body["email"] != email {
		t.Errorf("profile email: got %v, want %q", body["email"], email)
	}
}

func TestAuth_DuplicateEmail(t *testing.T) {
	email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())
	payload := map[string]string{"email": email, "password": "password123"}

	first := doPost(t, "/api/auth/register", payload)
	first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", first.StatusCode)
	}

	second := doPost(t, "/api/auth/register", payload)
	defer second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", second.StatusCode)
	}
}

func TestAuth_WrongPassword(t *testing.T) {
	session := registerCustomer(t)

	resp := doPost(t, "/api/auth/login", map[string]string{
		"email":    session.Customer.Email,
		"password": "not-the-password",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuth_VerifyToken(t *testing.T) {
	session := registerCustomer(t)

	resp := doGetWithBearer(t, "/api/auth/verify", session.Token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON[map[string]any](t, resp)
	if body["valid"] != true {
		t.Errorf("valid: got %v, want true", body["valid"])
	}
	if body["customerId"] != session.Customer.ID {
		t.Errorf("customerId: got %v, want %q", body["customerId"], session.Customer.ID)
	}
}

func TestAuth_BadToken(t *testing.T) {
	resp := doGetWithBearer(t, "/api/auth/profile", "not-a-jwt")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
