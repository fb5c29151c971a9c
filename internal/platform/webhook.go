package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/go-faster/errors"
)

// ErrInvalidSignature is returned for absent, malformed, or mismatched
// webhook signatures, and when no shared secret is configured (verification
// fails closed rather than silently accepting).
var ErrInvalidSignature = errors.New("invalid platform webhook signature")

// VerifySignature checks the platform's webhook HMAC over the raw request
// body. The header value is the base64-encoded HMAC-SHA256 of the body under
// the shared secret, optionally prefixed with "sha256=". Comparison is
// constant-time.
func VerifySignature(body []byte, signatureHeader, secret string) error {
	if signatureHeader == "" || secret == "" {
		return ErrInvalidSignature
	}

	provided, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(signatureHeader, "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
