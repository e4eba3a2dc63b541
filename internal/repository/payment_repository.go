package repository

import (
	"context"
	"database/sql"

	"github.com/harborline/ferry-reservation/internal/model"
)

// PaymentRepo provides data access to the payment_transactions table.
// The superseded flag keeps at most one active attempt per booking;
// callbacks against superseded rows are reported stale upstream.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

var _ PaymentStore = (*PaymentRepo)(nil)

// Create inserts a new payment transaction and populates its ID.
func (r *PaymentRepo) Create(ctx context.Context, t *model.PaymentTransaction) error {
	out, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_transactions
		   (reference, booking_id, channel, amount_cents, status, superseded, pay_code, pay_url, qr_payload)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		t.Reference, t.BookingID, t.Channel, t.AmountCents, t.Status, t.PayCode, t.PayURL, t.QRPayload,
	)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// ByReference loads a transaction by our provider-echoed reference.
func (r *PaymentRepo) ByReference(ctx context.Context, ref string) (*model.PaymentTransaction, error) {
	return r.one(ctx, `WHERE reference = ?`, ref)
}

// ActiveByBooking returns the booking's non-superseded transaction.
func (r *PaymentRepo) ActiveByBooking(ctx context.Context, bookingID uint64) (*model.PaymentTransaction, error) {
	return r.one(ctx, `WHERE booking_id = ? AND superseded = 0 ORDER BY id DESC LIMIT 1`, bookingID)
}

func (r *PaymentRepo) one(ctx context.Context, where string, arg interface{}) (*model.PaymentTransaction, error) {
	var t model.PaymentTransaction
	var superseded int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reference, booking_id, channel, amount_cents, status, superseded,
		        pay_code, pay_url, qr_payload, created_at, updated_at
		   FROM payment_transactions `+where,
		arg,
	).Scan(&t.ID, &t.Reference, &t.BookingID, &t.Channel, &t.AmountCents, &t.Status,
		&superseded, &t.PayCode, &t.PayURL, &t.QRPayload, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Superseded = superseded != 0
	return &t, nil
}

// Supersede marks a transaction as no longer the active attempt.
func (r *PaymentRepo) Supersede(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_transactions SET superseded = 1 WHERE id = ?`, id,
	)
	return err
}

// MarkStatus flips status from -> to for one transaction.
func (r *PaymentRepo) MarkStatus(ctx context.Context, id uint64, from, to string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_transactions SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
