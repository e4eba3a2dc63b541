package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeChannel routes payments through Stripe PaymentIntents. The
// intent carries our reference in its metadata so webhook events can
// be correlated back to the local transaction.
type StripeChannel struct {
	webhookSecret string
	currency      string
}

// NewStripeChannel builds a stripe channel. The API key is installed
// globally, as the stripe-go client expects.
func NewStripeChannel(secretKey, webhookSecret, currency string) *StripeChannel {
	stripe.Key = secretKey
	if currency == "" {
		currency = "usd"
	}
	return &StripeChannel{webhookSecret: webhookSecret, currency: currency}
}

var _ Channel = (*StripeChannel)(nil)

// Name returns the channel code.
func (s *StripeChannel) Name() string { return ChannelStripe }

// SignatureHeader names the callback signature header.
func (s *StripeChannel) SignatureHeader() string { return "Stripe-Signature" }

// CreateTransaction opens a PaymentIntent for the amount. The client
// secret is returned as the pay code; the presentation layer feeds it
// to Stripe's checkout elements.
func (s *StripeChannel) CreateTransaction(_ context.Context, req *CreateTransactionRequest) (*ProviderTransaction, error) {
	if req == nil || req.Reference == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(req.AmountCents)),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"reference": req.Reference,
			"order_id":  req.OrderID,
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &ProviderTransaction{
		ProviderRef: pi.ID,
		PayCode:     pi.ClientSecret,
	}, nil
}

// VerifyCallback validates the Stripe-Signature header with the
// webhook secret and maps intent events onto callback statuses.
// Events the engine does not track are rejected so the caller can
// acknowledge them without touching state.
func (s *StripeChannel) VerifyCallback(payload []byte, signature string) (*CallbackNotice, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook verification: %w", err)
	}
	var status string
	switch event.Type {
	case "payment_intent.succeeded":
		status = CallbackStatusPaid
	case "payment_intent.payment_failed":
		status = CallbackStatusFailed
	case "payment_intent.canceled":
		status = CallbackStatusExpired
	default:
		return nil, fmt.Errorf("unhandled stripe event type: %s", event.Type)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	ref := pi.Metadata["reference"]
	if ref == "" {
		return nil, fmt.Errorf("payment intent %s carries no reference", pi.ID)
	}
	return &CallbackNotice{
		Reference:   ref,
		Status:      status,
		AmountCents: uint32(pi.Amount),
	}, nil
}
