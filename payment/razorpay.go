package payment

import (
	"context"
	"log"

	"github.com/juju/errors"
	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway creates orders through the Razorpay API
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway creates a gateway for the given key pair
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder registers an order. The SDK call takes no context; ctx is only
// checked before the request goes out.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		log.Printf("❌ Razorpay order creation failed: %v", err)
		return nil, errors.Annotate(err, "creating payment order")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.Errorf("payment order response has no id")
	}
	return &Order{ID: id, Amount: amount, Currency: currency, Receipt: receipt}, nil
}

// DisabledGateway is used when no gateway credentials are configured
type DisabledGateway struct{}

func (DisabledGateway) CreateOrder(context.Context, int64, string, string) (*Order, error) {
	return nil, errors.NotSupportedf("payments without gateway credentials")
}
