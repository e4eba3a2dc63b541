// Package gateway models external payment channels behind one
// capability: open a transaction, and verify + decode the provider's
// asynchronous callback. Provider-specific behaviour lives in one
// variant per channel, selected by channel code, so no call site
// branches on the provider.
package gateway

import (
	"context"
	"time"
)

// Callback statuses normalised across providers.
const (
	CallbackStatusPaid    = "PAID"
	CallbackStatusFailed  = "FAILED"
	CallbackStatusExpired = "EXPIRED"
)

// CreateTransactionRequest carries what a channel needs to open a
// transaction with its provider.
type CreateTransactionRequest struct {
	Reference     string            // our reference, echoed back in callbacks
	OrderID       string            // externally visible order id
	AmountCents   uint32            // amount to collect
	CustomerName  string            // contact name for the provider's records
	CustomerEmail string            // contact email for receipts
	Description   string            // line shown on the provider's page
	Items         []TransactionItem // order breakdown where the provider supports it
}

// TransactionItem is one order line forwarded to providers that
// render an itemised checkout.
type TransactionItem struct {
	Name       string
	Quantity   uint32
	PriceCents uint32
}

// ProviderTransaction is what the provider hands back when a
// transaction opens: how the customer pays.
type ProviderTransaction struct {
	ProviderRef string    // provider-side transaction id, when distinct from ours
	PayCode     string    // virtual account / pay code, when applicable
	PayURL      string    // hosted payment page, when applicable
	QRPayload   string    // QR string for scan-to-pay channels, when applicable
	ExpiresAt   time.Time // provider-side expiry of the attempt, zero when unmanaged
}

// CallbackNotice is a verified, decoded provider callback.
type CallbackNotice struct {
	Reference   string // our reference
	Status      string // CallbackStatusPaid, CallbackStatusFailed or CallbackStatusExpired
	AmountCents uint32 // amount the provider reports
}

// Channel is one payment provider route. VerifyCallback must
// authenticate the payload against the channel's shared secret before
// decoding; an unverifiable callback returns an error and is never
// applied to any state.
type Channel interface {
	// Name returns the channel code this variant serves.
	Name() string
	// SignatureHeader names the HTTP header carrying the callback
	// signature for this provider.
	SignatureHeader() string
	// CreateTransaction opens a transaction with the provider.
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*ProviderTransaction, error)
	// VerifyCallback authenticates and decodes a raw callback body.
	VerifyCallback(payload []byte, signature string) (*CallbackNotice, error)
}
