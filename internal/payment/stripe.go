// Package payment wraps the Stripe hosted checkout flow behind the small
// Checkout surface the workflow engine needs.
package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeCheckout creates hosted checkout sessions. The whole order is billed
// as a single line item carrying the already-computed total in minor units.
type StripeCheckout struct {
	productName string
}

func NewStripeCheckout(apiKey string) *StripeCheckout {
	stripe.Key = apiKey
	return &StripeCheckout{productName: "Event tickets"}
}

func (s *StripeCheckout) CreateSession(ctx context.Context, amountCents int64, currency, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(amountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(s.productName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.ID, nil
}
