// Package payment creates gateway orders and verifies the signatures the
// gateway returns after checkout.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// Order is a gateway order awaiting checkout
type Order struct {
	ID       string
	Amount   int64 // smallest currency unit
	Currency string
	Receipt  string
}

// Gateway creates payment orders
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
}

// ToSubunits converts a decimal amount to the smallest currency unit,
// rounding half away from zero.
func ToSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under secret
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout signature in constant time
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
