package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// StripeVerifier checks payment intents with the Stripe API.
type StripeVerifier struct {
	client paymentintent.Client
}

func NewStripeVerifier(secretKey string) *StripeVerifier {
	return &StripeVerifier{
		client: paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

// orderMetadataKey is the payment intent metadata entry holding the order id.
const orderMetadataKey = "order_id"

// LookupPayment retrieves the payment intent and reports its status, amount and order.
func (v *StripeVerifier) LookupPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := v.client.Get(paymentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	return &PaymentDetails{
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
		Amount:    pi.Amount,
		Currency:  string(pi.Currency),
		OrderID:   pi.Metadata[orderMetadataKey],
	}, nil
}
