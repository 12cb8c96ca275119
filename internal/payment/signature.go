package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// SignatureVerifier checks provider payment confirmations.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) error
}

// HMACVerifier verifies hex HMAC-SHA256 signatures over "orderID|paymentID".
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for the shared key secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign returns the expected signature for an order and payment pair.
func (v *HMACVerifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify returns SignatureMismatch unless signature matches.
func (v *HMACVerifier) Verify(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return domain.NewValidationError("order ID, payment ID and signature are required")
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return domain.NewSignatureMismatchError()
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	if !hmac.Equal(mac.Sum(nil), got) {
		return domain.NewSignatureMismatchError()
	}
	return nil
}
