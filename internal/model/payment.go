package model

import "time"

// Payment transaction statuses as reported by providers and mirrored
// locally.  PENDING is the only state a callback may move away from.
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusExpired = "EXPIRED"
	PaymentStatusFailed  = "FAILED"
)

// PaymentTransaction records one attempt to collect payment for a
// booking through an external channel.  A booking has at most one
// non-superseded transaction at a time; opening a new attempt after a
// failure or on another channel supersedes the prior one explicitly.
// Callbacks referencing a superseded transaction are stale and are
// absorbed without side effects.
//
// Fields:
//  ID          – primary key identifier.
//  Reference   – our reference sent to and echoed back by the provider.
//  BookingID   – booking being paid for.
//  Channel     – channel code the attempt was opened on.
//  AmountCents – amount the provider was asked to collect.
//  Status      – PENDING, PAID, EXPIRED or FAILED.
//  Superseded  – no longer the booking's active attempt.
//  PayCode     – provider pay code (virtual account number etc.).
//  PayURL      – provider hosted payment page, when given.
//  QRPayload   – QR string for scan-to-pay channels, when given.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type PaymentTransaction struct {
	ID          uint64    // payment_transactions.id
	Reference   string    // payment_transactions.reference
	BookingID   uint64    // payment_transactions.booking_id
	Channel     string    // payment_transactions.channel
	AmountCents uint32    // payment_transactions.amount_cents
	Status      string    // payment_transactions.status
	Superseded  bool      // payment_transactions.superseded
	PayCode     string    // payment_transactions.pay_code
	PayURL      string    // payment_transactions.pay_url
	QRPayload   string    // payment_transactions.qr_payload
	CreatedAt   time.Time // payment_transactions.created_at
	UpdatedAt   time.Time // payment_transactions.updated_at
}

// Final reports whether the transaction reached a terminal status.
func (t *PaymentTransaction) Final() bool {
	return t.Status != PaymentStatusPending
}
