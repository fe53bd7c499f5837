// Package signature verifies inbound webhook payload authenticity with a
// keyed hash over the raw request body.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Header carries the hex-encoded HMAC-SHA256 of the raw request body.
const Header = "X-Webhook-Signature"

var (
	ErrMissingSignature = errors.New("webhook signature header is required")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Sign computes the hex-encoded HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the header-supplied signature against the expected one in
// constant time. An empty secret disables verification entirely: payloads
// are accepted unsigned. That opt-in posture is deliberate; do not reject
// unsigned requests unless a secret is configured.
func Verify(secret string, body []byte, provided string) error {
	if secret == "" {
		return nil
	}

	if provided == "" {
		return ErrMissingSignature
	}

	expected := Sign(secret, body)

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrInvalidSignature
	}

	return nil
}
