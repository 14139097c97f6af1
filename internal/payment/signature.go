package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Verifier checks the two independent gateway signatures. Each uses its
// own secret.
type Verifier struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewVerifier(keySecret, webhookSecret string) *Verifier {
	return &Verifier{
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// PaymentSignature is the hex HMAC-SHA256 of "orderID|paymentID".
func PaymentSignature(secret, gatewayOrderID, gatewayPaymentID string) string {
	return Sign([]byte(secret), []byte(gatewayOrderID+"|"+gatewayPaymentID))
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayment checks the signature the client received after checkout.
func (v *Verifier) VerifyPayment(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := Sign(v.keySecret, []byte(gatewayOrderID+"|"+gatewayPaymentID))
	return equal(expected, signature)
}

// VerifyWebhook checks the signature header against the raw request body.
func (v *Verifier) VerifyWebhook(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	return equal(Sign(v.webhookSecret, body), signature)
}

func equal(expected, got string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
